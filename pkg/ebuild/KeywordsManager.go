package ebuild

import (
	"path"
	"strings"

	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/util/grab"
)

// KeywordsManager assigns per-version accepted keywords from
// package.keywords and package.accept_keywords.
type KeywordsManager struct {
	pkeywordsDict map[string][]atomLine
}

// NewKeywordsManager reads package.accept_keywords from each profile
// (parents first) and both package.keywords and package.accept_keywords
// under userConfig. A user entry without keywords accepts the testing
// keyword of every stable keyword in acceptKeywords.
func NewKeywordsManager(profiles []string, userConfig string, acceptKeywords []string, errs map[string]error) *KeywordsManager {
	groups := [][]grab.Line{}
	for _, p := range profiles {
		groups = append(groups, grab.GrabFile(path.Join(p, "package.accept_keywords"), true))
	}
	if userConfig != "" {
		groups = append(groups,
			grab.GrabFile(path.Join(userConfig, "package.keywords"), true),
			grab.GrabFile(path.Join(userConfig, "package.accept_keywords"), true))
	}
	defaults := []string{}
	for _, k := range acceptKeywords {
		if !strings.HasPrefix(k, "~") && !strings.HasPrefix(k, "-") {
			defaults = append(defaults, "~"+k)
		}
	}
	lines := stackLines(groups, errs)
	for i := range lines {
		if len(lines[i].extra) == 0 {
			lines[i].extra = defaults
		}
	}
	return &KeywordsManager{pkeywordsDict: byCp(lines)}
}

// AcceptedKeywords returns the keywords of every entry matching v, in file
// order.
func (k *KeywordsManager) AcceptedKeywords(v *portage.Version) []string {
	r := []string{}
	for _, l := range k.pkeywordsDict[v.Package().String()] {
		if l.atom.Match(v) {
			r = append(r, l.extra...)
		}
	}
	return r
}

// Apply replaces the accepted keywords of every version in list.
func (k *KeywordsManager) Apply(list *portage.PackageList) {
	for _, p := range list.Packages() {
		k.ApplyPackage(p)
	}
}

func (k *KeywordsManager) ApplyPackage(p *portage.Package) {
	for _, v := range p.Versions() {
		v.AcceptedKeywords = k.AcceptedKeywords(v)
	}
}
