package settings

import (
	"path/filepath"
	"strings"

	"github.com/ppphp/configparser"

	"github.com/ppphp/portagebrowser/pkg/util/configs"
	"github.com/ppphp/portagebrowser/pkg/util/grab"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
)

const (
	DefaultPortDir = "/usr/portage"
	DepCachePath   = "var/cache/edb/dep"
	VdbPath        = "var/db/pkg"
	ReposConf      = "etc/portage/repos.conf"
)

// Arch is the keyword versions are judged against. A "~ARCH" entry in
// ACCEPT_KEYWORDS turns it into the testing keyword.
func (s *Settings) Arch() string {
	arch := s.Value("ARCH")
	accept := s.Tokens("ACCEPT_KEYWORDS")
	if arch == "" {
		if len(accept) == 0 {
			return ""
		}
		return accept[0]
	}
	for _, k := range accept {
		if k == "~"+arch {
			return k
		}
	}
	return arch
}

func (s *Settings) AcceptKeywords() []string {
	return s.Tokens("ACCEPT_KEYWORDS")
}

type repo struct {
	name, location string
}

// repos reads repos.conf, which may be a file or a directory of files.
func (s *Settings) repos() (main string, repos []repo) {
	files := grab.RecursiveFileList(s.path(ReposConf))
	if len(files) == 0 {
		return "", nil
	}
	parser := configparser.NewConfigParser(configparser.DefaultArgument)
	if err := configs.ReadConfigs(parser, files); err != nil {
		msg.WithFile(files[0]).Warnf("couldn't parse repos.conf: %v", err)
		return "", nil
	}
	main = parser.Defaults()["main-repo"]
	for _, sname := range parser.Sections() {
		if !parser.HasOption(sname, "location") {
			continue
		}
		loc, err := parser.Gett(sname, "location")
		if err != nil || loc == "" {
			continue
		}
		repos = append(repos, repo{name: sname, location: filepath.Clean(loc)})
	}
	return main, repos
}

// PortDir is the mainline tree: PORTDIR, else the repos.conf main repo,
// else the historical default.
func (s *Settings) PortDir() string {
	if p := s.Value("PORTDIR"); p != "" {
		return filepath.Clean(p)
	}
	main, repos := s.repos()
	for _, r := range repos {
		if r.name == main {
			return r.location
		}
	}
	return DefaultPortDir
}

// Overlays lists PORTDIR_OVERLAY entries followed by the non-main repos.conf
// locations, without duplicates.
func (s *Settings) Overlays() []string {
	portDir := s.PortDir()
	seen := map[string]bool{portDir: true}
	r := []string{}
	for _, o := range strings.Fields(s.Value("PORTDIR_OVERLAY")) {
		o = filepath.Clean(o)
		if !seen[o] {
			seen[o] = true
			r = append(r, o)
		}
	}
	_, repos := s.repos()
	for _, x := range repos {
		if !seen[x.location] {
			seen[x.location] = true
			r = append(r, x.location)
		}
	}
	return r
}

// CacheDir is the precomputed metadata cache of the mainline tree.
func (s *Settings) CacheDir() string {
	return filepath.Join(s.path(DepCachePath), s.PortDir())
}

func (s *Settings) InstalledDir() string {
	return s.path(VdbPath)
}

// ConfigDir holds the user's package.* files.
func (s *Settings) ConfigDir() string {
	return s.path("etc/portage")
}
