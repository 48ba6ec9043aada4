package dep

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/versions"
)

const (
	slotSeparator = ":"
	op            = `(?:[=~]|[><]=?)`
	cat           = `[\w+][\w+.-]*`
	slotLoose     = `[\w+./*=-]+`
)

var atomRe = regexp.MustCompile(`^(?P<op>` + op + `)?(?P<cat>` + cat + `)/(?P<rest>[^:]+?)(?P<star>\*)?(?::(?P<slot>` + slotLoose + `))?$`)

// Atom is a package atom such as ">=sys-apps/portage-2.1:0". It filters
// versions; it resolves nothing.
type Atom struct {
	Value    string
	Operator string
	Category string
	Name     string
	Version  string
	Slot     string
	Glob     bool
}

func (a *Atom) Cp() string {
	return a.Category + "/" + a.Name
}

func (a *Atom) String() string {
	return a.Value
}

// ParseAtom parses s. Versioned atoms need an operator and unversioned ones
// must not carry one.
func ParseAtom(s string) (*Atom, error) {
	m := atomRe.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.Errorf("invalid atom %q", s)
	}
	a := &Atom{Value: s, Operator: m[1], Category: m[2], Slot: m[5], Glob: m[4] != ""}
	rest := m[3]
	if a.Operator == "" {
		if a.Glob {
			return nil, errors.Errorf("invalid atom %q: wildcard without operator", s)
		}
		a.Name = rest
		return a, nil
	}
	if a.Glob && a.Operator != "=" {
		return nil, errors.Errorf("invalid atom %q: wildcard needs '='", s)
	}
	name, ver, ok := versions.SplitNameVersion(rest)
	if !ok {
		return nil, errors.Errorf("invalid atom %q: operator without version", s)
	}
	a.Name, a.Version = name, ver
	return a, nil
}

func withoutRevision(ver string) string {
	if i := strings.LastIndex(ver, "-r"); i > 0 {
		return ver[:i]
	}
	return ver
}

// Match reports whether v satisfies the atom. A slot restriction only
// matches versions whose slot is known and equal.
func (a *Atom) Match(v *portage.Version) bool {
	k := v.Package()
	if k.Category != a.Category || k.Name != a.Name {
		return false
	}
	if a.Slot != "" && v.Slot != a.Slot {
		return false
	}
	ver := v.Version()
	switch a.Operator {
	case "":
		return true
	case "=":
		if a.Glob {
			return strings.HasPrefix(ver, a.Version)
		}
		return versions.VerCmp(ver, a.Version) == 0
	case "~":
		return withoutRevision(ver) == withoutRevision(a.Version)
	case ">":
		return versions.IsNewerThan(ver, a.Version)
	case ">=":
		return !versions.IsNewerThan(a.Version, ver)
	case "<":
		return versions.IsNewerThan(a.Version, ver)
	case "<=":
		return !versions.IsNewerThan(ver, a.Version)
	}
	return false
}

// MatchingVersions returns the versions in list satisfying the atom, oldest
// first.
func (a *Atom) MatchingVersions(list *portage.PackageList) []*portage.Version {
	p, ok := list.Get(a.Category, a.Name)
	if !ok {
		return nil
	}
	r := []*portage.Version{}
	for _, v := range p.SortedVersionList() {
		if a.Match(v) {
			r = append(r, v)
		}
	}
	return r
}
