package portage

import (
	"sort"

	"github.com/ppphp/portagebrowser/pkg/keywords"
)

// Package owns the versions of one category/name pair.
type Package struct {
	category Category
	name     string
	versions map[string]*Version
}

func NewPackage(category Category, name string) *Package {
	return &Package{category: category.Clone(), name: name, versions: map[string]*Version{}}
}

func (p *Package) Category() Category {
	return p.category
}

func (p *Package) Name() string {
	return p.name
}

func (p *Package) Key() PackageKey {
	return PackageKey{Category: p.category.UniqueName(), Name: p.name}
}

func (p *Package) UniqueName() string {
	return p.category.UniqueName() + "/" + p.name
}

// Version returns the version keyed by v, creating it on first reference.
func (p *Package) Version(v string) *Version {
	if ver, ok := p.versions[v]; ok {
		return ver
	}
	ver := NewVersion(p.Key(), v)
	p.versions[v] = ver
	return ver
}

// Lookup returns the version keyed by v without creating it.
func (p *Package) Lookup(v string) (*Version, bool) {
	ver, ok := p.versions[v]
	return ver, ok
}

func (p *Package) HasVersion(v string) bool {
	_, ok := p.versions[v]
	return ok
}

func (p *Package) Remove(v string) {
	delete(p.versions, v)
}

func (p *Package) Clear() {
	p.versions = map[string]*Version{}
}

func (p *Package) Len() int {
	return len(p.versions)
}

// Versions returns the versions in unspecified order.
func (p *Package) Versions() []*Version {
	r := make([]*Version, 0, len(p.versions))
	for _, v := range p.versions {
		r = append(r, v)
	}
	return r
}

// SortedVersionList returns all versions, oldest first. Ties keep the
// order of their version strings so the result is deterministic.
func (p *Package) SortedVersionList() []*Version {
	r := p.Versions()
	sort.Slice(r, func(i, j int) bool { return r[i].version < r[j].version })
	sort.SliceStable(r, func(i, j int) bool { return r[j].IsNewerThan(r[i]) })
	return r
}

func (p *Package) SortedVersionListInSlot(slot string) []*Version {
	r := []*Version{}
	for _, v := range p.SortedVersionList() {
		if v.Slot == slot {
			r = append(r, v)
		}
	}
	return r
}

// Slots lists the distinct slots in version order.
func (p *Package) Slots() []string {
	seen := map[string]bool{}
	r := []string{}
	for _, v := range p.SortedVersionList() {
		if !seen[v.Slot] {
			seen[v.Slot] = true
			r = append(r, v.Slot)
		}
	}
	return r
}

func (p *Package) LatestVersion() *Version {
	l := p.SortedVersionList()
	if len(l) == 0 {
		return nil
	}
	return l[len(l)-1]
}

func (p *Package) LatestStableVersion(arch string) *Version {
	l := p.SortedVersionList()
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Stability(arch) == keywords.Stable {
			return l[i]
		}
	}
	return nil
}

func (p *Package) InstalledVersions() []*Version {
	r := []*Version{}
	for _, v := range p.SortedVersionList() {
		if v.Installed {
			r = append(r, v)
		}
	}
	return r
}

func (p *Package) IsInstalled() bool {
	for _, v := range p.versions {
		if v.Installed {
			return true
		}
	}
	return false
}

// HasUpdate checks the newest installed version for an update.
func (p *Package) HasUpdate(arch string) bool {
	inst := p.InstalledVersions()
	if len(inst) == 0 {
		return false
	}
	return p.HasUpdateFrom(inst[len(inst)-1].version, arch)
}

// HasUpdateFrom reports whether a version placed after installed in the
// sorted list shares its slot, is not installed and is stable for arch.
// "Newer" means later in the sorted list, not a fresh comparison.
func (p *Package) HasUpdateFrom(installed, arch string) bool {
	l := p.SortedVersionList()
	pos := -1
	for i, v := range l {
		if v.version == installed {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}
	slot := l[pos].Slot
	for _, v := range l[pos+1:] {
		if v.Slot != slot || v.Installed {
			continue
		}
		if v.Stability(arch) == keywords.Stable {
			return true
		}
	}
	return false
}

// CanUpdate is true when any installed version has an update.
func (p *Package) CanUpdate(arch string) bool {
	for _, v := range p.InstalledVersions() {
		if p.HasUpdateFrom(v.version, arch) {
			return true
		}
	}
	return false
}

// Clone deep-copies p.
func (p *Package) Clone() *Package {
	c := NewPackage(p.category, p.name)
	for k, v := range p.versions {
		c.versions[k] = v.clone(c.Key())
	}
	return c
}
