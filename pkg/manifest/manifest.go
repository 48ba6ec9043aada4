package manifest

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ppphp/portagebrowser/pkg/checksum"
	"github.com/ppphp/portagebrowser/pkg/portage"
)

const (
	TypeDist   = "DIST"
	TypeEbuild = "EBUILD"
	TypeAux    = "AUX"
	TypeMisc   = "MISC"
)

var manifestRe = regexp.MustCompile(`^(DIST|EBUILD|AUX|MISC) (\S+) (\d+)((?: \S+ \S+)+)$`)

type Entry struct {
	Type   string
	Name   string
	Size   int64
	Hashes map[string]string
}

// Manifest is the parsed content of a package Manifest file. Entries are
// keyed by type, then by file name.
type Manifest struct {
	Path    string
	entries map[string]map[string]*Entry
}

// GuessFileType returns the entry type a file below a package directory
// would be recorded under, or "" for files a Manifest never lists.
func GuessFileType(filename string) string {
	filename = filepath.ToSlash(filename)
	switch {
	case strings.HasPrefix(filename, "files/digest-"):
		return ""
	case strings.HasPrefix(filename, "files/"):
		return TypeAux
	case strings.HasSuffix(filename, ".ebuild"):
		return TypeEbuild
	case filename == "ChangeLog" || filename == "metadata.xml":
		return TypeMisc
	}
	return TypeDist
}

func parseLine(line string, valid map[string]bool) *Entry {
	m := manifestRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	size, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return nil
	}
	e := &Entry{Type: m[1], Name: m[2], Size: size, Hashes: map[string]string{}}
	tokens := strings.Fields(m[4])
	for i := 0; i+1 < len(tokens); i += 2 {
		if valid[tokens[i]] {
			e.Hashes[tokens[i]] = tokens[i+1]
		}
	}
	return e
}

// Parse reads Manifest lines from r. Lines that aren't entries are skipped;
// a repeated entry merges its hashes into the earlier one.
func Parse(r io.Reader, path string) (*Manifest, error) {
	valid := map[string]bool{}
	for _, k := range checksum.ValidChecksumKeys() {
		valid[k] = true
	}
	m := &Manifest{Path: path, entries: map[string]map[string]*Entry{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		e := parseLine(strings.TrimSpace(sc.Text()), valid)
		if e == nil {
			continue
		}
		byName := m.entries[e.Type]
		if byName == nil {
			byName = map[string]*Entry{}
			m.entries[e.Type] = byName
		}
		if old, ok := byName[e.Name]; ok {
			old.Size = e.Size
			for k, v := range e.Hashes {
				old.Hashes[k] = v
			}
			continue
		}
		byName[e.Name] = e
	}
	return m, errors.Wrapf(sc.Err(), "couldn't read %s", path)
}

// Load parses the Manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &portage.NotFoundError{What: "Manifest", Path: path}
		}
		return nil, errors.Wrapf(err, "couldn't open %s", path)
	}
	defer f.Close()
	return Parse(f, path)
}

func (m *Manifest) Entry(typ, name string) *Entry {
	return m.entries[typ][name]
}

// Dist looks up a distfile entry.
func (m *Manifest) Dist(name string) *Entry {
	return m.Entry(TypeDist, name)
}

func (m *Manifest) Names(typ string) []string {
	r := make([]string, 0, len(m.entries[typ]))
	for k := range m.entries[typ] {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

// DistFiles returns the distfile names of a SRC_URI value. USE
// conditionals are ignored; "uri -> name" renames are honoured.
func DistFiles(srcURI string) []string {
	var r []string
	seen := map[string]bool{}
	tokens := strings.Fields(srcURI)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "(" || tok == ")" || tok == "||" || strings.HasSuffix(tok, "?") {
			continue
		}
		name := tok[strings.LastIndex(tok, "/")+1:]
		if i+2 < len(tokens) && tokens[i+1] == "->" {
			name = tokens[i+2]
			i += 2
		}
		if name != "" && !seen[name] {
			seen[name] = true
			r = append(r, name)
		}
	}
	return r
}
