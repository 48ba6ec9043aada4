package detail

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"golang.org/x/sync/errgroup"

	"github.com/ppphp/portagebrowser/pkg/events"
	"github.com/ppphp/portagebrowser/pkg/manifest"
	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/scanner"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
)

// positions in a metadata cache record, counted from 1
const (
	cacheSlot        = 3
	cacheSrcURI      = 4
	cacheHomepage    = 6
	cacheLicense     = 7
	cacheDescription = 8
	cacheKeywords    = 9
	cacheIUse        = 11
)

var ebuildVarRe = regexp.MustCompile(`^\s*(DESCRIPTION|HOMEPAGE|SLOT|LICENSE|KEYWORDS|IUSE|SRC_URI)=(.*)$`)

// Loader fills in the descriptive fields of versions on demand.
type Loader struct {
	Dirs        scanner.Dirs
	PreferCache bool
	// Workers bounds LoadAll; zero means 4.
	Workers int
	Events  chan<- events.Event
}

func New(dirs scanner.Dirs) *Loader {
	return &Loader{Dirs: dirs, PreferCache: true}
}

// Load reads the details of every version of p that has none yet. Missing
// or unreadable sources are skipped silently; a version is marked loaded
// once tried.
func (l *Loader) Load(ctx context.Context, p *portage.Package) error {
	for _, v := range p.SortedVersionList() {
		if v.DetailsLoaded {
			continue
		}
		if err := l.loadVersion(ctx, p, v); err != nil {
			return err
		}
		v.DetailsLoaded = true
	}
	events.Emit(ctx, l.Events, events.DetailsLoaded{Package: p.UniqueName()})
	return nil
}

// LoadAll loads the details of every package in list. Each package is
// handled by one goroutine at a time.
func (l *Loader) LoadAll(ctx context.Context, list *portage.PackageList) error {
	g, gctx := errgroup.WithContext(ctx)
	n := l.Workers
	if n <= 0 {
		n = 4
	}
	g.SetLimit(n)
	for _, p := range list.Packages() {
		p := p
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return l.Load(gctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return portage.ErrAborted
	}
	return nil
}

func (l *Loader) loadVersion(ctx context.Context, p *portage.Package, v *portage.Version) error {
	cat, name, ver := p.Category().UniqueName(), p.Name(), v.Version()
	pv := name + "-" + ver
	log := msg.WithPackage(v.Cpv())

	ok, err := l.loadFrom(ctx, v, l.Dirs.Portage, l.Dirs.Cache)
	if err != nil {
		return err
	}
	if !ok && v.Overlay {
		for _, o := range l.Dirs.Overlays {
			if ok, err = l.loadFrom(ctx, v, o, ""); err != nil {
				return err
			}
			if ok {
				break
			}
		}
	}
	if !ok {
		log.Debugf("no metadata found")
	}
	if v.Installed && l.Dirs.Installed != "" {
		_, err := l.scanEbuild(ctx, v, filepath.Join(l.Dirs.Installed, cat, pv, pv+".ebuild"), nil)
		if err != nil {
			return err
		}
	}
	return nil
}

// loadFrom tries the metadata cache, then the ebuild of one tree. The digest
// file is read whenever the ebuild path is tried; without one the package
// Manifest supplies the digests of the version's distfiles.
func (l *Loader) loadFrom(ctx context.Context, v *portage.Version, tree, cache string) (bool, error) {
	k := v.Package()
	pv := k.Name + "-" + v.Version()
	dir := filepath.Join(tree, k.Category, k.Name)
	var srcURI string
	if l.PreferCache && cache != "" {
		ok, err := l.readCacheRecord(ctx, v, filepath.Join(cache, k.Category, pv), &srcURI)
		if err != nil {
			return false, err
		}
		if ok {
			if tree != "" {
				l.readManifest(v, dir, srcURI)
			}
			return true, nil
		}
	}
	if tree == "" {
		return false, nil
	}
	if err := l.readDigest(ctx, v, filepath.Join(dir, "files", "digest-"+pv)); err != nil {
		return false, err
	}
	ok, err := l.scanEbuild(ctx, v, filepath.Join(dir, pv+".ebuild"), &srcURI)
	if ok {
		l.readManifest(v, dir, expandSrcURI(srcURI, k.Name, v.Version()))
	}
	return ok, err
}

func checkAbort(ctx context.Context) error {
	if ctx.Err() != nil {
		return portage.ErrAborted
	}
	return nil
}

// readLines calls fn for each line of name. A missing file returns false.
func readLines(ctx context.Context, name string, fn func(n int, line string)) (bool, os.FileInfo, error) {
	f, err := os.Open(name)
	if err != nil {
		msg.WithFile(name).Debugf("skipped: %v", err)
		return false, nil, nil
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return false, nil, nil
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		fn(n, sc.Text())
		if err := checkAbort(ctx); err != nil {
			return false, st, err
		}
	}
	if err := sc.Err(); err != nil {
		msg.WithFile(name).Debugf("read error: %v", err)
	}
	return true, st, nil
}

func (l *Loader) readCacheRecord(ctx context.Context, v *portage.Version, name string, srcURI *string) (bool, error) {
	ok, _, err := readLines(ctx, name, func(n int, line string) {
		switch n {
		case cacheSlot:
			v.Slot = strings.TrimSpace(line)
		case cacheSrcURI:
			*srcURI = strings.TrimSpace(line)
		case cacheHomepage:
			v.Homepage = strings.TrimSpace(line)
		case cacheLicense:
			v.Licenses = strings.Fields(line)
		case cacheDescription:
			v.Description = strings.TrimSpace(line)
		case cacheKeywords:
			v.Keywords = strings.Fields(line)
		case cacheIUse:
			v.UseFlags = strings.Fields(line)
		}
	})
	return ok, err
}

// unquote returns the shell value of an assignment right-hand side. ok is
// false while a quote is still open.
func unquote(s string) (string, bool) {
	words, err := shlex.Split(s)
	if err != nil {
		return "", false
	}
	return strings.Join(words, " "), true
}

// scanEbuild picks the metadata assignments out of an ebuild. Values are
// overwritten, so a later scan wins.
func (l *Loader) scanEbuild(ctx context.Context, v *portage.Version, name string, srcURI *string) (bool, error) {
	key, pending := "", ""
	set := func(k, val string) {
		switch k {
		case "DESCRIPTION":
			v.Description = val
		case "HOMEPAGE":
			v.Homepage = val
		case "SLOT":
			v.Slot = val
		case "LICENSE":
			v.Licenses = strings.Fields(val)
		case "KEYWORDS":
			v.Keywords = strings.Fields(val)
		case "IUSE":
			v.UseFlags = strings.Fields(val)
		case "SRC_URI":
			if srcURI != nil {
				*srcURI = val
			}
		}
	}
	ok, st, err := readLines(ctx, name, func(n int, line string) {
		if key != "" {
			pending += "\n" + line
		} else {
			m := ebuildVarRe.FindStringSubmatch(line)
			if m == nil {
				return
			}
			key, pending = m[1], m[2]
		}
		if val, done := unquote(pending); done {
			set(key, val)
			key, pending = "", ""
		}
	})
	if err != nil || !ok {
		return ok, err
	}
	if key != "" {
		msg.WithFile(name).Debugf("unterminated %s", key)
	}
	v.Date = st.ModTime()
	return true, nil
}

// readDigest reads a digest file of "ALGO hash file size" lines. The size
// on the last non-blank line wins; a line without one leaves the size unknown.
func (l *Loader) readDigest(ctx context.Context, v *portage.Version, name string) error {
	_, _, err := readLines(ctx, name, func(n int, line string) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return
		}
		size, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
		if err != nil {
			size = 0
		}
		v.Size = size
		if len(fields) >= 4 {
			if v.Digests == nil {
				v.Digests = map[string]map[string]string{}
			}
			if v.Digests[fields[2]] == nil {
				v.Digests[fields[2]] = map[string]string{}
			}
			v.Digests[fields[2]][fields[0]] = fields[1]
		}
	})
	return err
}

// expandSrcURI substitutes the package name and version variables an ebuild
// uses in SRC_URI. Other references are left as written.
func expandSrcURI(srcURI, name, ver string) string {
	pv, rev := ver, "r0"
	if i := strings.LastIndex(ver, "-r"); i > 0 {
		if _, err := strconv.Atoi(ver[i+2:]); err == nil {
			pv, rev = ver[:i], ver[i+1:]
		}
	}
	vars := map[string]string{
		"PN":  name,
		"PV":  pv,
		"PR":  rev,
		"PVR": ver,
		"P":   name + "-" + pv,
		"PF":  name + "-" + ver,
	}
	return os.Expand(srcURI, func(k string) string {
		if x, ok := vars[k]; ok {
			return x
		}
		return "${" + k + "}"
	})
}

// readManifest fills in digests from the package Manifest when no digest
// file provided any. Size becomes the total of the version's distfiles.
func (l *Loader) readManifest(v *portage.Version, dir, srcURI string) {
	if len(v.Digests) != 0 || srcURI == "" {
		return
	}
	m, err := manifest.Load(filepath.Join(dir, "Manifest"))
	if err != nil {
		if !portage.IsNotFound(err) {
			msg.WithPackage(v.Cpv()).Debugf("%v", err)
		}
		return
	}
	var size int64
	for _, f := range manifest.DistFiles(srcURI) {
		e := m.Dist(f)
		if e == nil {
			continue
		}
		if v.Digests == nil {
			v.Digests = map[string]map[string]string{}
		}
		v.Digests[f] = map[string]string{}
		for k, h := range e.Hashes {
			v.Digests[f][k] = h
		}
		size += e.Size
	}
	if v.Digests != nil {
		v.Size = size
	}
}
