package ebuild

import (
	"fmt"
	"path"
	"strings"

	"github.com/ppphp/portagebrowser/pkg/dep"
	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/util/grab"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
)

// atomLine is a parsed atom and the keywords following it on its line.
type atomLine struct {
	atom  *dep.Atom
	extra []string
}

// stackLines merges groups of directive lines in order. A line "-atom"
// drops an earlier line with the same atom. Unparsable atoms are recorded
// in errs keyed by file:line and skipped.
func stackLines(groups [][]grab.Line, errs map[string]error) []atomLine {
	stacked := []atomLine{}
	for _, g := range groups {
		for _, l := range g {
			fields := strings.Fields(l.Text)
			s := fields[0]
			remove := strings.HasPrefix(s, "-")
			if remove {
				s = s[1:]
			}
			a, err := dep.ParseAtom(s)
			if err != nil {
				errs[fmt.Sprintf("%s:%d", l.Source, l.Num)] = err
				continue
			}
			if remove {
				kept := stacked[:0]
				matched := false
				for _, x := range stacked {
					if x.atom.Value == s {
						matched = true
						continue
					}
					kept = append(kept, x)
				}
				stacked = kept
				if !matched {
					msg.WithFile(l.Source).Debugf("line %d: unmatched removal %s", l.Num, l.Text)
				}
				continue
			}
			stacked = append(stacked, atomLine{atom: a, extra: fields[1:]})
		}
	}
	return stacked
}

func byCp(lines []atomLine) map[string][]atomLine {
	r := map[string][]atomLine{}
	for _, l := range lines {
		r[l.atom.Cp()] = append(r[l.atom.Cp()], l)
	}
	return r
}

// MaskManager hard-masks versions named in package.mask unless
// package.unmask names them too.
type MaskManager struct {
	pmaskDict, punmaskDict map[string][]atomLine
}

// NewMaskManager reads the tree-wide profiles/package.mask of portDir, the
// package.mask and package.unmask of each profile (parents first) and those
// under userConfig.
func NewMaskManager(portDir string, profiles []string, userConfig string, errs map[string]error) *MaskManager {
	maskGroups := [][]grab.Line{grab.GrabFile(path.Join(portDir, "profiles", "package.mask"), false)}
	unmaskGroups := [][]grab.Line{}
	for _, p := range profiles {
		maskGroups = append(maskGroups, grab.GrabFile(path.Join(p, "package.mask"), true))
		unmaskGroups = append(unmaskGroups, grab.GrabFile(path.Join(p, "package.unmask"), true))
	}
	if userConfig != "" {
		maskGroups = append(maskGroups, grab.GrabFile(path.Join(userConfig, "package.mask"), true))
		unmaskGroups = append(unmaskGroups, grab.GrabFile(path.Join(userConfig, "package.unmask"), true))
	}
	return &MaskManager{
		pmaskDict:   byCp(stackLines(maskGroups, errs)),
		punmaskDict: byCp(stackLines(unmaskGroups, errs)),
	}
}

func matchAny(lines []atomLine, v *portage.Version) bool {
	for _, l := range lines {
		if l.atom.Match(v) {
			return true
		}
	}
	return false
}

// IsMasked reports whether v is hard-masked.
func (m *MaskManager) IsMasked(v *portage.Version) bool {
	cp := v.Package().String()
	return matchAny(m.pmaskDict[cp], v) && !matchAny(m.punmaskDict[cp], v)
}

// Apply sets the hard-masked flag of every version in list.
func (m *MaskManager) Apply(list *portage.PackageList) {
	for _, p := range list.Packages() {
		m.ApplyPackage(p)
	}
}

func (m *MaskManager) ApplyPackage(p *portage.Package) {
	for _, v := range p.Versions() {
		v.HardMasked = m.IsMasked(v)
	}
}
