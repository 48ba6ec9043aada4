package portage

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

type Policy int

const (
	Include Policy = iota
	Exclude
)

// Selector filters a PackageList. Exclusion filters always win over
// inclusion filters and the default policy.
type Selector struct {
	All Policy

	includeCategories []Category
	excludeCategories []Category
	includeNames      []string
	excludeNames      []string
	includeInstalled  *bool
	excludeInstalled  *bool
}

func NewSelector(all Policy) *Selector {
	return &Selector{All: all}
}

func (s *Selector) IncludeCategory(c Category) {
	s.includeCategories = append(s.includeCategories, c.Clone())
}

func (s *Selector) ExcludeCategory(c Category) {
	s.excludeCategories = append(s.excludeCategories, c.Clone())
}

// IncludeName adds a glob on the package name, e.g. "kde*".
func (s *Selector) IncludeName(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return errors.Errorf("invalid name pattern %q", pattern)
	}
	s.includeNames = append(s.includeNames, pattern)
	return nil
}

func (s *Selector) ExcludeName(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return errors.Errorf("invalid name pattern %q", pattern)
	}
	s.excludeNames = append(s.excludeNames, pattern)
	return nil
}

// IncludeInstalled sets the single installed-flag inclusion filter.
func (s *Selector) IncludeInstalled(installed bool) {
	s.includeInstalled = &installed
}

// ExcludeInstalled sets the single installed-flag exclusion filter.
func (s *Selector) ExcludeInstalled(installed bool) {
	s.excludeInstalled = &installed
}

func (s *Selector) Reset(all Policy) {
	*s = Selector{All: all}
}

// Clone returns a selector whose filter lists are independent from s.
func (s *Selector) Clone() *Selector {
	c := &Selector{All: s.All}
	for _, x := range s.includeCategories {
		c.includeCategories = append(c.includeCategories, x.Clone())
	}
	for _, x := range s.excludeCategories {
		c.excludeCategories = append(c.excludeCategories, x.Clone())
	}
	c.includeNames = append([]string(nil), s.includeNames...)
	c.excludeNames = append([]string(nil), s.excludeNames...)
	if s.includeInstalled != nil {
		b := *s.includeInstalled
		c.includeInstalled = &b
	}
	if s.excludeInstalled != nil {
		b := *s.excludeInstalled
		c.excludeInstalled = &b
	}
	return c
}

func nameMatches(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func categoryMatches(filters []Category, c Category) bool {
	for _, f := range filters {
		if f.Contains(c) {
			return true
		}
	}
	return false
}

// Matches evaluates the filters against one package.
func (s *Selector) Matches(p *Package) bool {
	if categoryMatches(s.excludeCategories, p.Category()) {
		return false
	}
	if nameMatches(s.excludeNames, p.Name()) {
		return false
	}
	if s.excludeInstalled != nil && p.IsInstalled() == *s.excludeInstalled {
		return false
	}
	if s.All == Include {
		return true
	}
	if categoryMatches(s.includeCategories, p.Category()) {
		return true
	}
	if nameMatches(s.includeNames, p.Name()) {
		return true
	}
	return s.includeInstalled != nil && p.IsInstalled() == *s.includeInstalled
}

// Select returns a new list with the packages of src that match. Packages are
// shared with src, so details loaded through the result are visible in src.
func (s *Selector) Select(ctx context.Context, src *PackageList) (*PackageList, error) {
	dst := NewPackageList()
	for _, p := range src.packages {
		if ctx.Err() != nil {
			return dst, ErrAborted
		}
		if s.Matches(p) {
			dst.Insert(p)
		}
	}
	return dst, nil
}
