package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docker/go-units"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ppphp/portagebrowser/pkg/output"
	"github.com/ppphp/portagebrowser/pkg/portage"
)

const wrapWidth = 72

type packageRow struct {
	Package   string `json:"package" yaml:"package"`
	Latest    string `json:"latest,omitempty" yaml:"latest,omitempty"`
	Installed string `json:"installed,omitempty" yaml:"installed,omitempty"`
	Update    bool   `json:"update,omitempty" yaml:"update,omitempty"`
}

type versionRow struct {
	Version     string   `json:"version" yaml:"version"`
	Stability   string   `json:"stability" yaml:"stability"`
	Slot        string   `json:"slot,omitempty" yaml:"slot,omitempty"`
	Installed   bool     `json:"installed,omitempty" yaml:"installed,omitempty"`
	Overlay     bool     `json:"overlay,omitempty" yaml:"overlay,omitempty"`
	Size        string   `json:"size,omitempty" yaml:"size,omitempty"`
	Date        string   `json:"date,omitempty" yaml:"date,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Homepage    string   `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Licenses    []string `json:"licenses,omitempty" yaml:"licenses,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	UseFlags    []string `json:"use,omitempty" yaml:"use,omitempty"`
}

type packageInfo struct {
	Package  string       `json:"package" yaml:"package"`
	Versions []versionRow `json:"versions" yaml:"versions"`
}

func toPackageRow(p *portage.Package, arch string) packageRow {
	r := packageRow{Package: p.UniqueName(), Update: p.HasUpdate(arch)}
	if v := p.LatestVersion(); v != nil {
		r.Latest = v.Version()
	}
	inst := []string{}
	for _, v := range p.InstalledVersions() {
		inst = append(inst, v.Version())
	}
	r.Installed = strings.Join(inst, " ")
	return r
}

func toVersionRow(v *portage.Version, arch string) versionRow {
	r := versionRow{
		Version:     v.Version(),
		Stability:   v.Stability(arch).String(),
		Slot:        v.Slot,
		Installed:   v.Installed,
		Overlay:     v.Overlay,
		Description: v.Description,
		Homepage:    v.Homepage,
		Licenses:    v.Licenses,
		Keywords:    v.Keywords,
		UseFlags:    v.UseFlags,
	}
	if v.Size > 0 {
		r.Size = units.HumanSize(float64(v.Size))
	}
	if !v.Date.IsZero() {
		r.Date = v.Date.Format("2006-01-02")
	}
	return r
}

// pad left-aligns s in width columns, not counting color codes.
func pad(s string, width int) string {
	if n := output.Len(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// printer writes results as aligned text, yaml or json.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case "text", "yaml", "json":
		return &printer{w: w, format: format}, nil
	}
	return nil, errors.Errorf("unknown format %q", format)
}

// structured writes v as yaml or json and reports whether it did.
func (p *printer) structured(v interface{}) (bool, error) {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func (p *printer) packages(rows []packageRow) error {
	if ok, err := p.structured(rows); ok {
		return err
	}
	for _, r := range rows {
		mark := " "
		if r.Update {
			mark = output.Colorize("PKG_UPDATE", "U")
		} else if r.Installed != "" {
			mark = output.Colorize("PKG_INSTALLED", "I")
		}
		line := fmt.Sprintf("%s%s%s %-40s %s",
			output.Colorize("BRACKET", "["), mark, output.Colorize("BRACKET", "]"), r.Package, r.Latest)
		if r.Installed != "" {
			line += fmt.Sprintf(" (installed: %s)", r.Installed)
		}
		fmt.Fprintln(p.w, line)
	}
	return nil
}

func (p *printer) info(info packageInfo) error {
	if ok, err := p.structured(info); ok {
		return err
	}
	fmt.Fprintln(p.w, output.Colorize("bold", info.Package))
	for _, v := range info.Versions {
		flags := []string{output.Colorize(output.StabilityStyle(v.Stability), v.Stability)}
		if v.Installed {
			flags = append(flags, output.Colorize("PKG_INSTALLED", "installed"))
		}
		if v.Overlay {
			flags = append(flags, "overlay")
		}
		fmt.Fprintf(p.w, "  %s slot %s %s\n", pad(v.Version, 20), pad(v.Slot, 6), strings.Join(flags, ", "))
		if v.Description != "" {
			fmt.Fprintln(p.w, indent.String(wordwrap.String(v.Description, wrapWidth), 6))
		}
		details := []string{}
		if v.Homepage != "" {
			details = append(details, v.Homepage)
		}
		if v.Size != "" {
			details = append(details, v.Size)
		}
		if v.Date != "" {
			details = append(details, v.Date)
		}
		if len(v.Licenses) > 0 {
			details = append(details, strings.Join(v.Licenses, " "))
		}
		if len(details) > 0 {
			fmt.Fprintln(p.w, indent.String(wordwrap.String(strings.Join(details, "  "), wrapWidth), 6))
		}
		if len(v.UseFlags) > 0 {
			fmt.Fprintln(p.w, indent.String(wordwrap.String("USE: "+strings.Join(v.UseFlags, " "), wrapWidth), 6))
		}
	}
	return nil
}

// table prints key/value pairs in the text format.
func (p *printer) table(v interface{}, rows [][2]string) error {
	if ok, err := p.structured(v); ok {
		return err
	}
	for _, r := range rows {
		fmt.Fprintf(p.w, "%-30s %s\n", r[0], r[1])
	}
	return nil
}
