package settings

import (
	"sort"
	"strings"
)

var incrementals = map[string]bool{"USE": true, "ACCEPT_KEYWORDS": true, "FEATURES": true}

// Incremental reports whether values of name accumulate across loads.
func Incremental(name string) bool {
	return incrementals[name] || strings.HasPrefix(name, "CONFIG_PROTECT")
}

// Settings is a flat map of configuration values. Values are stored as
// written; variable references are substituted when read.
type Settings struct {
	Root     string
	values   map[string]string
	profiles []string
}

func New(root string) *Settings {
	if root == "" {
		root = "/"
	}
	return &Settings{Root: root, values: map[string]string{}}
}

// SetValue stores value under name, replacing what was there.
func (s *Settings) SetValue(name, value string) {
	s.values[name] = value
}

// AddToValue stores value under name. Incremental variables merge tokens:
// "-*" drops everything so far, "-tok" drops tok, anything else is appended
// unless already present.
func (s *Settings) AddToValue(name, value string) {
	if !Incremental(name) {
		s.values[name] = value
		return
	}
	s.values[name] = strings.Join(mergeTokens(strings.Fields(s.values[name]), strings.Fields(value)), " ")
}

func mergeTokens(old, add []string) []string {
	tokens := append([]string{}, old...)
	for _, t := range add {
		if t == "-*" {
			tokens = tokens[:0]
			continue
		}
		if strings.HasPrefix(t, "-") {
			kept := tokens[:0]
			for _, x := range tokens {
				if x != t[1:] {
					kept = append(kept, x)
				}
			}
			tokens = kept
			continue
		}
		if !contains(tokens, t) {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func contains(l []string, s string) bool {
	for _, x := range l {
		if x == s {
			return true
		}
	}
	return false
}

func (s *Settings) RawValue(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *Settings) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Value returns the value of name with $NAME and ${NAME} references
// resolved against the other stored values.
func (s *Settings) Value(name string) string {
	v, ok := s.values[name]
	if !ok {
		return ""
	}
	return s.expand(v, map[string]bool{name: true})
}

func (s *Settings) Tokens(name string) []string {
	return strings.Fields(s.Value(name))
}

func (s *Settings) Keys() []string {
	r := make([]string, 0, len(s.values))
	for k := range s.values {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

var varexpandWordChars = func() [256]bool {
	var t [256]bool
	for c := 'a'; c <= 'z'; c++ {
		t[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		t[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		t[c] = true
	}
	t['_'] = true
	return t
}()

func validName(n string) bool {
	if n == "" || (n[0] >= '0' && n[0] <= '9') {
		return false
	}
	for i := 0; i < len(n); i++ {
		if !varexpandWordChars[n[i]] {
			return false
		}
	}
	return true
}

// expand substitutes references in myString. Names in visiting are being
// expanded further up the stack and are left literal.
func (s *Settings) expand(myString string, visiting map[string]bool) string {
	var b strings.Builder
	pos := 0
	for pos < len(myString) {
		current := myString[pos]
		if current != '$' || pos+1 >= len(myString) {
			b.WriteByte(current)
			pos++
			continue
		}
		var name string
		var end int
		if myString[pos+1] == '{' {
			closing := strings.IndexByte(myString[pos+2:], '}')
			if closing < 0 {
				b.WriteByte(current)
				pos++
				continue
			}
			name = myString[pos+2 : pos+2+closing]
			end = pos + 2 + closing + 1
		} else {
			end = pos + 1
			for end < len(myString) && varexpandWordChars[myString[end]] {
				end++
			}
			name = myString[pos+1 : end]
		}
		raw, ok := s.values[name]
		if !validName(name) || !ok || visiting[name] {
			b.WriteByte(current)
			pos++
			continue
		}
		visiting[name] = true
		b.WriteString(s.expand(raw, visiting))
		delete(visiting, name)
		pos = end
	}
	return b.String()
}
