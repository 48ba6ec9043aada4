package ebuild

import (
	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/settings"
)

// Manager applies the mask and keyword files of a configured system to a
// package list.
type Manager struct {
	Mask     *MaskManager
	Keywords *KeywordsManager

	// Errors holds unparsable lines keyed by file:line.
	Errors map[string]error
}

func NewManager(s *settings.Settings) *Manager {
	profiles := s.Profiles()
	for i, j := 0, len(profiles)-1; i < j; i, j = i+1, j-1 {
		profiles[i], profiles[j] = profiles[j], profiles[i]
	}
	m := &Manager{Errors: map[string]error{}}
	m.Mask = NewMaskManager(s.PortDir(), profiles, s.ConfigDir(), m.Errors)
	m.Keywords = NewKeywordsManager(profiles, s.ConfigDir(), s.AcceptKeywords(), m.Errors)
	return m
}

func (m *Manager) Apply(list *portage.PackageList) {
	m.Mask.Apply(list)
	m.Keywords.Apply(list)
}

// ApplyPackage re-evaluates one package. Lines naming a slot only match once
// the slots have been read, so this runs again after details are loaded.
func (m *Manager) ApplyPackage(p *portage.Package) {
	m.Mask.ApplyPackage(p)
	m.Keywords.ApplyPackage(p)
}
