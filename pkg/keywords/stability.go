package keywords

import "strings"

type Stability int

const (
	Stable Stability = iota
	Masked
	HardMasked
	NotAvailable
)

func (s Stability) String() string {
	switch s {
	case Stable:
		return "stable"
	case Masked:
		return "masked"
	case HardMasked:
		return "hardmasked"
	case NotAvailable:
		return "notavailable"
	}
	return "unknown"
}

func has(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Evaluate classifies a version for arch from its own keywords, the
// per-version accepted keyword overrides and the hard-mask flag.
func Evaluate(hardMasked bool, keywords, accepted []string, arch string) Stability {
	if hardMasked {
		return HardMasked
	}
	bare := strings.TrimPrefix(arch, "~")
	testing := "~" + bare

	for _, a := range accepted {
		switch {
		case a == "~*" || a == testing:
			if has(keywords, testing) || has(keywords, bare) {
				return Stable
			}
		case a == "-"+bare:
			if has(keywords, bare) {
				return NotAvailable
			}
		case a == "*":
			if has(keywords, bare) {
				return Stable
			}
		case a == "-*":
			return NotAvailable
		}
	}

	if has(keywords, arch) {
		return Stable
	}
	if has(keywords, "~"+arch) {
		return Masked
	}
	if strings.HasPrefix(arch, "~") && has(keywords, bare) {
		return Stable
	}
	return NotAvailable
}
