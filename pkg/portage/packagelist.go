package portage

import (
	"sort"
	"strings"
)

// PackageList holds at most one Package per (category, name). It does no
// locking; callers serialize mutating loaders themselves.
type PackageList struct {
	packages map[PackageKey]*Package
}

func NewPackageList() *PackageList {
	return &PackageList{packages: map[PackageKey]*Package{}}
}

// Package returns the package for category/name, creating it on first
// reference.
func (l *PackageList) Package(category Category, name string) *Package {
	k := PackageKey{Category: category.UniqueName(), Name: name}
	if p, ok := l.packages[k]; ok {
		return p
	}
	p := NewPackage(category, name)
	l.packages[k] = p
	return p
}

func (l *PackageList) Get(category, name string) (*Package, bool) {
	p, ok := l.packages[PackageKey{Category: category, Name: name}]
	return p, ok
}

// Find looks up "category/name".
func (l *PackageList) Find(catName string) (*Package, bool) {
	i := strings.Index(catName, "/")
	if i < 0 {
		return nil, false
	}
	return l.Get(catName[:i], catName[i+1:])
}

// Insert adds p, replacing any package with the same key.
func (l *PackageList) Insert(p *Package) {
	l.packages[p.Key()] = p
}

func (l *PackageList) Remove(category, name string) {
	delete(l.packages, PackageKey{Category: category, Name: name})
}

func (l *PackageList) Clear() {
	l.packages = map[PackageKey]*Package{}
}

func (l *PackageList) Len() int {
	return len(l.packages)
}

// Packages returns all packages sorted by unique name.
func (l *PackageList) Packages() []*Package {
	r := make([]*Package, 0, len(l.packages))
	for _, p := range l.packages {
		r = append(r, p)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].UniqueName() < r[j].UniqueName() })
	return r
}

// Categories returns the sorted unique names of all non-empty categories.
func (l *PackageList) Categories() []string {
	seen := map[string]bool{}
	r := []string{}
	for k := range l.packages {
		if !seen[k.Category] {
			seen[k.Category] = true
			r = append(r, k.Category)
		}
	}
	sort.Strings(r)
	return r
}

func (l *PackageList) InstalledCount() int {
	n := 0
	for _, p := range l.packages {
		if p.IsInstalled() {
			n++
		}
	}
	return n
}

func (l *PackageList) VersionCount() int {
	n := 0
	for _, p := range l.packages {
		n += p.Len()
	}
	return n
}

// Replace swaps the content of l for the content of other.
func (l *PackageList) Replace(other *PackageList) {
	l.packages = other.packages
	other.packages = map[PackageKey]*Package{}
}
