package portage

import (
	"time"

	"github.com/ppphp/portagebrowser/pkg/keywords"
	"github.com/ppphp/portagebrowser/pkg/versions"
)

// PackageKey identifies the package owning a version without pointing at it.
type PackageKey struct {
	Category string
	Name     string
}

func (k PackageKey) String() string {
	return k.Category + "/" + k.Name
}

// Version holds one version's metadata. The version string is the key inside
// its package and never changes.
type Version struct {
	pkg     PackageKey
	version string

	Installed     bool
	Overlay       bool
	HardMasked    bool
	DetailsLoaded bool

	Description      string
	Homepage         string
	Slot             string
	Licenses         []string
	Keywords         []string
	AcceptedKeywords []string
	UseFlags         []string
	Size             int64
	Date             time.Time

	// distfile name -> hash name -> hex digest
	Digests map[string]map[string]string
}

func NewVersion(pkg PackageKey, version string) *Version {
	return &Version{pkg: pkg, version: version}
}

func (v *Version) Version() string {
	return v.version
}

func (v *Version) Package() PackageKey {
	return v.pkg
}

// Cpv is the full "category/name-version" string.
func (v *Version) Cpv() string {
	return v.pkg.String() + "-" + v.version
}

func (v *Version) Stability(arch string) keywords.Stability {
	return keywords.Evaluate(v.HardMasked, v.Keywords, v.AcceptedKeywords, arch)
}

func (v *Version) IsNewerThan(other *Version) bool {
	return versions.IsNewerThan(v.version, other.version)
}

// clone copies v for a different owner; lists are copied so that the two
// versions can be mutated independently.
func (v *Version) clone(pkg PackageKey) *Version {
	c := *v
	c.pkg = pkg
	c.Licenses = append([]string(nil), v.Licenses...)
	c.Keywords = append([]string(nil), v.Keywords...)
	c.AcceptedKeywords = append([]string(nil), v.AcceptedKeywords...)
	c.UseFlags = append([]string(nil), v.UseFlags...)
	if v.Digests != nil {
		c.Digests = map[string]map[string]string{}
		for f, h := range v.Digests {
			c.Digests[f] = map[string]string{}
			for k, x := range h {
				c.Digests[f][k] = x
			}
		}
	}
	return &c
}
