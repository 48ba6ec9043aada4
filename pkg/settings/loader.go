package settings

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/util/grab"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
)

const (
	MakeDefaults = "make.defaults"
	ParentFile   = "parent"
)

var (
	profileLinks = []string{"etc/make.profile", "etc/portage/make.profile"}
	globalFiles  = []string{"etc/make.globals", "etc/make.conf", "etc/portage/make.conf"}

	assignRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)
)

// LoadFile reads NAME=VALUE assignments from myCfg. Quoted values may span
// several lines.
func (s *Settings) LoadFile(myCfg string) error {
	f, err := os.Open(myCfg)
	if err != nil {
		if os.IsNotExist(err) {
			return &portage.NotFoundError{What: "config file", Path: myCfg}
		}
		return errors.Wrapf(err, "couldn't open %s", myCfg)
	}
	defer f.Close()

	log := msg.WithFile(myCfg)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	pending := ""
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if pending == "" {
			t := strings.TrimSpace(line)
			if t == "" || strings.HasPrefix(t, "#") {
				continue
			}
			pending = line
		} else {
			pending += "\n" + line
		}
		tokens, err := shlex.Split(pending)
		if err != nil {
			// unterminated quote: keep reading
			continue
		}
		pending = ""
		for _, tok := range tokens {
			m := assignRe.FindStringSubmatch(tok)
			if m == nil {
				if tok != "export" {
					log.Debugf("line %d: ignoring %q", lineNum, tok)
				}
				continue
			}
			s.AddToValue(m[1], strings.Join(strings.Fields(m[2]), " "))
		}
	}
	if pending != "" {
		log.Warnf("unterminated value at end of file")
	}
	return errors.Wrapf(sc.Err(), "couldn't read %s", myCfg)
}

func (s *Settings) path(p string) string {
	return filepath.Join(s.Root, p)
}

// ProfileDir resolves the profile symlink below Root.
func (s *Settings) ProfileDir() (string, error) {
	for _, l := range profileLinks {
		link := s.path(l)
		target, err := os.Readlink(link)
		if err != nil {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(link), target)
		}
		return filepath.Clean(target), nil
	}
	return "", &portage.NotFoundError{What: "profile", Path: s.path(profileLinks[0])}
}

// LoadProfile walks the profile cascade from the profile symlink through each
// parent file, then reads the global config files. A missing profile is
// reported after the global files have been read.
func (s *Settings) LoadProfile() error {
	profileErr := s.loadCascade()
	for _, g := range globalFiles {
		if err := s.LoadFile(s.path(g)); err != nil && !portage.IsNotFound(err) {
			return err
		}
	}
	return profileErr
}

func (s *Settings) loadCascade() error {
	dir, err := s.ProfileDir()
	if err != nil {
		return err
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return &portage.NotFoundError{What: "profile", Path: dir}
	}
	visited := map[string]bool{}
	s.profiles = s.profiles[:0]
	for dir != "" && !visited[dir] {
		visited[dir] = true
		s.profiles = append(s.profiles, dir)
		if err := s.LoadFile(filepath.Join(dir, MakeDefaults)); err != nil && !portage.IsNotFound(err) {
			return err
		}
		dir = nextProfile(dir)
	}
	return nil
}

// Profiles lists the profile directories read by LoadProfile, starting
// with the one the symlink points at.
func (s *Settings) Profiles() []string {
	return append([]string(nil), s.profiles...)
}

func nextProfile(dir string) string {
	lines := grab.GrabFile(filepath.Join(dir, ParentFile), false)
	if len(lines) == 0 {
		return ""
	}
	p := lines[0].Text
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	return filepath.Clean(p)
}
