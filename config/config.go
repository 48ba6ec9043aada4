// config for portagebrowser
// read from a toml file, every key is optional

package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type Paths struct {
	// Root is the system root the portage configuration is read from.
	Root      string   `toml:"root"`
	Portage   string   `toml:"portage"`
	Overlays  []string `toml:"overlays"`
	Installed string   `toml:"installed"`
	Cache     string   `toml:"cache"`
	CacheFile string   `toml:"cache_file"`
	DistDir   string   `toml:"distdir"`
}

type Scan struct {
	PreferCache  bool `toml:"prefer_cache"`
	UseCacheFile bool `toml:"use_cache_file"`
	BatchSize    int  `toml:"batch_size"`
	Workers      int  `toml:"workers"`
	// Trees holds any of "mainline", "overlay", "installed"; empty means all.
	Trees []string `toml:"trees"`
}

type Server struct {
	Port   int    `toml:"port"`
	WebDir string `toml:"web_dir"`
}

type Conf struct {
	Paths  Paths  `toml:"paths"`
	Scan   Scan   `toml:"scan"`
	Server Server `toml:"server"`
}

func Default() *Conf {
	return &Conf{
		Paths:  Paths{Root: "/", CacheFile: "/var/cache/portagebrowser/tree.xml"},
		Scan:   Scan{PreferCache: true, UseCacheFile: true, BatchSize: 20, Workers: 4},
		Server: Server{Port: 8080},
	}
}

// Load reads name over the defaults. An empty name returns the defaults.
func Load(name string) (*Conf, error) {
	c := Default()
	if name == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(name, c)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read config %s", name)
	}
	if u := md.Undecoded(); len(u) > 0 {
		return nil, errors.Errorf("%s: unknown keys %v", name, u)
	}
	return c, nil
}
