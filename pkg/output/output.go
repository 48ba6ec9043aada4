package output

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	terminal "golang.org/x/term"
)

// ColorMapFile is the per-system color override file below the root.
const ColorMapFile = "etc/portage/color.map"

const escSeq = "\x1b["

var (
	HaveColor = true

	styles = map[string][]string{
		"NORMAL":         {"normal"},
		"GOOD":           {"green"},
		"WARN":           {"yellow"},
		"BAD":            {"red"},
		"HILITE":         {"teal"},
		"BRACKET":        {"blue"},
		"PKG_STABLE":     {"green"},
		"PKG_MASKED":     {"yellow"},
		"PKG_HARDMASKED": {"red"},
		"PKG_MISSING":    {"darkgray"},
		"PKG_INSTALLED":  {"teal"},
		"PKG_UPDATE":     {"fuchsia"},
	}
	codes = map[string]string{
		"normal": escSeq + "0m", "reset": escSeq + "39;49;00m",
		"bold": escSeq + "01m", "faint": escSeq + "02m",
		"underline": escSeq + "04m", "reverse": escSeq + "07m",
		"bg_black": escSeq + "40m", "bg_darkred": escSeq + "41m",
		"bg_darkgreen": escSeq + "42m", "bg_brown": escSeq + "43m",
		"bg_darkblue": escSeq + "44m", "bg_purple": escSeq + "45m",
		"bg_teal": escSeq + "46m", "bg_lightgray": escSeq + "47m",
		"bg_default": escSeq + "49m",
	}

	ansiCodePattern = regexp.MustCompile(`^[0-9;]*m$`)
	escapeRe        = regexp.MustCompile(`\x1b\[[^m]*m`)
)

func init() {
	names := []string{
		"black", "darkgray", "darkred", "red", "darkgreen", "green", "brown", "yellow",
		"darkblue", "blue", "purple", "fuchsia", "teal", "turquoise", "lightgray", "white",
	}
	ansi := []string{
		"30m", "30;01m", "31m", "31;01m", "32m", "32;01m", "33m", "33;01m",
		"34m", "34;01m", "35m", "35;01m", "36m", "36;01m", "37m", "37;01m",
	}
	for i, n := range names {
		codes[n] = escSeq + ansi[i]
	}
	codes["darkteal"] = codes["turquoise"]
	codes["darkyellow"] = codes["brown"]
}

// Colorize wraps text in the escape codes of a style or a color name.
func Colorize(style, text string) string {
	if !HaveColor || text == "" {
		return text
	}
	var b strings.Builder
	if list, ok := styles[style]; ok {
		for _, c := range list {
			if strings.HasPrefix(c, escSeq) {
				b.WriteString(c)
			} else {
				b.WriteString(codes[c])
			}
		}
	} else if c, ok := codes[style]; ok {
		b.WriteString(c)
	} else {
		return text
	}
	return b.String() + text + codes["reset"]
}

// StabilityStyle names the style a stability string is shown in.
func StabilityStyle(stability string) string {
	if stability == "notavailable" {
		return "PKG_MISSING"
	}
	return "PKG_" + strings.ToUpper(stability)
}

// Len is the display width of s, ignoring escape codes.
func Len(s string) int {
	return len(escapeRe.ReplaceAllString(s, ""))
}

// NoColor turns Colorize into a no-op.
func NoColor() {
	HaveColor = false
}

// Auto decides whether f gets colored output: NOCOLOR set to anything but
// "no" or "false" disables it, as does a dumb or non-terminal output.
func Auto(f *os.File) bool {
	if v, ok := os.LookupEnv("NOCOLOR"); ok && v != "no" && v != "false" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return terminal.IsTerminal(int(f.Fd()))
}

func stripQuotes(token string) string {
	if len(token) >= 2 && strings.ContainsAny(token[:1], `'"`) && token[0] == token[len(token)-1] {
		return token[1 : len(token)-1]
	}
	return token
}

// ParseColorMap reads style and color overrides from name. Each line is
// "KEY = value" where value is either a raw ANSI code like "01;32m" or a
// list of color names. Bad lines go to onerror; a nil onerror stops at the
// first one.
func ParseColorMap(name string, onerror func(error) error) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	report := func(e error) error {
		if onerror == nil {
			return e
		}
		return onerror(e)
	}
	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		split := strings.Split(line, "=")
		if len(split) != 2 {
			if err := report(errors.Errorf("%s, line %d: expected exactly one occurrence of '=' operator", name, lineno)); err != nil {
				return err
			}
			continue
		}
		k := stripQuotes(strings.TrimSpace(split[0]))
		v := stripQuotes(strings.TrimSpace(split[1]))
		_, isStyle := styles[k]
		_, isCode := codes[k]
		if !isStyle && !isCode {
			if err := report(errors.Errorf("%s, line %d: unknown variable %q", name, lineno, k)); err != nil {
				return err
			}
			continue
		}
		if ansiCodePattern.MatchString(v) {
			if isStyle {
				styles[k] = []string{escSeq + v}
			} else {
				codes[k] = escSeq + v
			}
			continue
		}
		list := []string{}
		bad := false
		for _, x := range strings.Fields(v) {
			c, ok := codes[x]
			if !ok {
				bad = true
				if err := report(errors.Errorf("%s, line %d: undefined %q", name, lineno, x)); err != nil {
					return err
				}
				continue
			}
			if isStyle {
				list = append(list, x)
			} else {
				list = append(list, c)
			}
		}
		if bad && len(list) == 0 {
			continue
		}
		if isStyle {
			styles[k] = list
		} else {
			codes[k] = strings.Join(list, "")
		}
	}
	return errors.Wrapf(sc.Err(), "couldn't read %s", name)
}
