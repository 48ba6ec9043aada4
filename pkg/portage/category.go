package portage

import "strings"

// Category is an ordered list of path segments, e.g. ["app", "portage"].
// The empty category stands for all packages.
type Category []string

// ParseCategory splits a category directory name on its first dash.
func ParseCategory(uniqueName string) Category {
	if uniqueName == "" {
		return Category{}
	}
	return Category(strings.SplitN(uniqueName, "-", 2))
}

func (c Category) UniqueName() string {
	return strings.Join(c, "-")
}

func (c Category) String() string {
	return c.UniqueName()
}

func (c Category) IsAll() bool {
	return len(c) == 0
}

// Contains reports whether other lies inside c, i.e. c's segments are a
// prefix of other's.
func (c Category) Contains(other Category) bool {
	if len(c) > len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

func (c Category) Equal(other Category) bool {
	return len(c) == len(other) && c.Contains(other)
}

func (c Category) Clone() Category {
	return append(Category{}, c...)
}
