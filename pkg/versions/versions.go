package versions

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	pkg = `[\w+][\w+-]*?`
	v   = `\d+(?:\.\d+)*[a-z]?(?:_(?:pre|p|beta|alpha|rc)\d*)*`
	rev = `\d+`
	vr  = v + `(?:-r` + rev + `)?`
	pv  = `^(?P<pn>` + pkg + `)-(?P<ver>` + vr + `)$`
)

var (
	verRegexp      = regexp.MustCompile(`^` + vr + `$`)
	pvRegexp       = regexp.MustCompile(pv)
	pnInvalRegexp  = regexp.MustCompile(`-` + vr + `$`)
	revisionRegexp = regexp.MustCompile(`-r(\d+)$`)
	chainRegexp    = regexp.MustCompile(`(?:_(?:alpha|beta|pre|rc|p)\d*)+$`)
	suffixRegexp   = regexp.MustCompile(`_(alpha|beta|pre|rc|p)(\d*)`)
	letterRegexp   = regexp.MustCompile(`\d([a-z])$`)
)

type SuffixStatus string

const (
	SuffixNone  SuffixStatus = ""
	SuffixAlpha SuffixStatus = "alpha"
	SuffixBeta  SuffixStatus = "beta"
	SuffixPre   SuffixStatus = "pre"
	SuffixRC    SuffixStatus = "rc"
	SuffixP     SuffixStatus = "p"
)

// Offsets keep the suffix category dominant over its numeric tail.
var suffixValue = map[SuffixStatus]int64{
	SuffixAlpha: -400000000,
	SuffixBeta:  -300000000,
	SuffixPre:   -200000000,
	SuffixRC:    -100000000,
	SuffixNone:  0,
	SuffixP:     100000000,
}

// Suffix is one "_pre1" style element of a version.
type Suffix struct {
	Status SuffixStatus
	N      int64
}

// Weight folds the suffix category and its number into one value.
func (s Suffix) Weight() int64 {
	return suffixValue[s.Status] + s.N
}

// Version is the decomposition of a version string. It is a plain value:
// parsing never mutates shared state.
type Version struct {
	Raw      string
	Base     string
	Letter   byte
	Suffixes []Suffix
	Revision int64
}

// SuffixWeight is the weight of the i-th suffix. Past the end of the chain it
// is the weight of no suffix at all.
func (v Version) SuffixWeight(i int) int64 {
	if i < len(v.Suffixes) {
		return v.Suffixes[i].Weight()
	}
	return suffixValue[SuffixNone]
}

func atoi64(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// out of range: saturate, the tail is only a tie-breaker
		return 99999999
	}
	return n
}

// Parse splits ver into base version, trailing letter, suffix chain and
// revision, peeling them off from the end.
func Parse(ver string) Version {
	p := Version{Raw: ver}
	rest := ver

	if m := revisionRegexp.FindStringSubmatchIndex(rest); m != nil {
		p.Revision = atoi64(rest[m[2]:m[3]])
		rest = rest[:m[0]]
	}
	if m := chainRegexp.FindStringIndex(rest); m != nil {
		for _, s := range suffixRegexp.FindAllStringSubmatch(rest[m[0]:], -1) {
			p.Suffixes = append(p.Suffixes, Suffix{Status: SuffixStatus(s[1]), N: atoi64(s[2])})
		}
		rest = rest[:m[0]]
	}
	if m := letterRegexp.FindStringSubmatchIndex(rest); m != nil {
		p.Letter = rest[m[2]]
		rest = rest[:m[2]]
	}
	p.Base = rest
	return p
}

// numericRuns splits a base version into its digit runs. A separator must be
// a single non-digit character; an empty run marks malformed input.
func numericRuns(base string) []string {
	if base == "" {
		return nil
	}
	runs := []string{}
	start := 0
	for i := 0; i < len(base); i++ {
		if base[i] < '0' || base[i] > '9' {
			runs = append(runs, base[start:i])
			start = i + 1
		}
	}
	return append(runs, base[start:])
}

// cmpNumeric compares two digit strings of arbitrary length.
func cmpNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) > len(b) {
			return 1
		}
		return -1
	}
	return strings.Compare(a, b)
}

func cmpInt(a, b int64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

// IsNewerThan reports whether p orders strictly after other.
func (p Version) IsNewerThan(other Version) bool {
	r1 := numericRuns(p.Base)
	r2 := numericRuns(other.Base)
	for i := 0; ; i++ {
		done1, done2 := i >= len(r1), i >= len(r2)
		if done1 && done2 {
			break
		}
		if done2 {
			return true
		}
		if done1 {
			return false
		}
		if r1[i] == "" || r2[i] == "" {
			return false
		}
		if c := cmpNumeric(r1[i], r2[i]); c != 0 {
			return c > 0
		}
	}
	if c := cmpInt(int64(p.Letter), int64(other.Letter)); c != 0 {
		return c > 0
	}
	for i := 0; i < len(p.Suffixes) || i < len(other.Suffixes); i++ {
		if c := cmpInt(p.SuffixWeight(i), other.SuffixWeight(i)); c != 0 {
			return c > 0
		}
	}
	return p.Revision > other.Revision
}

// IsNewerThan reports whether version string a is newer than b.
func IsNewerThan(a, b string) bool {
	if a == b {
		return false
	}
	return Parse(a).IsNewerThan(Parse(b))
}

// VerCmp returns 1 if ver1 is newer, -1 if ver2 is newer and 0 otherwise.
func VerCmp(ver1, ver2 string) int {
	if IsNewerThan(ver1, ver2) {
		return 1
	}
	if IsNewerThan(ver2, ver1) {
		return -1
	}
	return 0
}

func VerVerify(myver string) bool {
	return verRegexp.MatchString(myver)
}

// SplitNameVersion splits "name-version" as found in cache entries and the
// installed package database. ok is false when no trailing version exists.
func SplitNameVersion(mypkg string) (name, version string, ok bool) {
	m := pvRegexp.FindStringSubmatch(mypkg)
	if m == nil {
		return "", "", false
	}
	name, version = m[1], m[2]
	if pnInvalRegexp.MatchString(name) {
		return "", "", false
	}
	return name, version, true
}

// Best returns the newest entry of myMatches.
func Best(myMatches []string) string {
	if len(myMatches) == 0 {
		return ""
	}
	bestMatch := myMatches[0]
	for _, x := range myMatches[1:] {
		if IsNewerThan(x, bestMatch) {
			bestMatch = x
		}
	}
	return bestMatch
}
