package treecache

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
)

const (
	docType     = "portageML"
	rootElement = "portagetree"
)

type versionElem struct {
	XMLName   xml.Name `xml:"version"`
	ID        string   `xml:"id,attr"`
	Installed string   `xml:"installed,attr,omitempty"`
	Overlay   string   `xml:"overlay,attr,omitempty"`
	Date      string   `xml:"date,attr,omitempty"`
}

type packageElem struct {
	XMLName  xml.Name      `xml:"package"`
	Category string        `xml:"category,attr"`
	Name     string        `xml:"name,attr"`
	Versions []versionElem `xml:"version"`
}

func flag(b bool) string {
	if b {
		return "true"
	}
	return ""
}

func aborted(ctx context.Context) error {
	if ctx.Err() != nil {
		return portage.ErrAborted
	}
	return nil
}

// Save writes the package and version structure of list as XML. Only the
// installed and overlay flags and the date of each version are kept.
func Save(ctx context.Context, w io.Writer, list *portage.PackageList) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "couldn't write cache")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	root := xml.StartElement{Name: xml.Name{Local: rootElement}}
	if err := enc.EncodeToken(xml.Directive("DOCTYPE " + docType)); err != nil {
		return errors.Wrap(err, "couldn't write cache")
	}
	if err := enc.EncodeToken(root); err != nil {
		return errors.Wrap(err, "couldn't write cache")
	}
	for _, p := range list.Packages() {
		if err := aborted(ctx); err != nil {
			return err
		}
		e := packageElem{Category: p.Category().UniqueName(), Name: p.Name()}
		for _, v := range p.SortedVersionList() {
			ve := versionElem{ID: v.Version(), Installed: flag(v.Installed), Overlay: flag(v.Overlay)}
			if !v.Date.IsZero() {
				ve.Date = v.Date.Format(time.RFC3339Nano)
			}
			e.Versions = append(e.Versions, ve)
		}
		if err := enc.Encode(e); err != nil {
			return errors.Wrap(err, "couldn't write cache")
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return errors.Wrap(err, "couldn't write cache")
	}
	if err := enc.Flush(); err != nil {
		return errors.Wrap(err, "couldn't write cache")
	}
	_, err := io.WriteString(w, "\n")
	return errors.Wrap(err, "couldn't write cache")
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(portage.ErrMalformed, format, args...)
}

func parseFlag(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// Load replaces the content of list with the cache read from r. On any
// error list is left as it was.
func Load(ctx context.Context, r io.Reader, list *portage.PackageList) error {
	staging := portage.NewPackageList()
	dec := xml.NewDecoder(r)
	seenRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return malformed("%v", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !seenRoot {
			if start.Name.Local != rootElement {
				return malformed("unexpected root element <%s>", start.Name.Local)
			}
			seenRoot = true
			continue
		}
		if start.Name.Local != "package" {
			if err := dec.Skip(); err != nil {
				return malformed("%v", err)
			}
			continue
		}
		var e packageElem
		if err := dec.DecodeElement(&e, &start); err != nil {
			return malformed("%v", err)
		}
		if err := applyPackage(staging, &e); err != nil {
			return err
		}
		if err := aborted(ctx); err != nil {
			return err
		}
	}
	if !seenRoot {
		return malformed("no <%s> element", rootElement)
	}
	list.Replace(staging)
	return nil
}

func applyPackage(l *portage.PackageList, e *packageElem) error {
	if e.Category == "" || e.Name == "" {
		return malformed("package without category or name")
	}
	p := l.Package(portage.ParseCategory(e.Category), e.Name)
	p.Clear()
	for _, ve := range e.Versions {
		if ve.ID == "" {
			return malformed("version without id in %s", p.UniqueName())
		}
		v := p.Version(ve.ID)
		var err error
		if v.Installed, err = parseFlag(ve.Installed); err != nil {
			return malformed("%s-%s: installed: %v", p.UniqueName(), ve.ID, err)
		}
		if v.Overlay, err = parseFlag(ve.Overlay); err != nil {
			return malformed("%s-%s: overlay: %v", p.UniqueName(), ve.ID, err)
		}
		if ve.Date != "" {
			if v.Date, err = time.Parse(time.RFC3339Nano, ve.Date); err != nil {
				return malformed("%s-%s: date: %v", p.UniqueName(), ve.ID, err)
			}
		}
	}
	return nil
}

// SaveFile writes the cache to name through a temporary file in the same
// directory, so readers never see a partial cache.
func SaveFile(ctx context.Context, name string, list *portage.PackageList) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return errors.Wrapf(err, "couldn't create %s", filepath.Dir(name))
	}
	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return errors.Wrap(err, "couldn't create cache")
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if err := Save(ctx, f, list); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "couldn't write %s", tmp)
	}
	if err := os.Rename(tmp, name); err != nil {
		return errors.Wrapf(err, "couldn't rename %s", tmp)
	}
	msg.WithFile(name).Debugf("saved %d packages", list.Len())
	return nil
}

func LoadFile(ctx context.Context, name string, list *portage.PackageList) error {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return &portage.NotFoundError{What: "tree cache", Path: name}
		}
		return errors.Wrapf(err, "couldn't open %s", name)
	}
	defer f.Close()
	if err := Load(ctx, f, list); err != nil {
		return errors.WithMessage(err, name)
	}
	msg.WithFile(name).Debugf("loaded %d packages", list.Len())
	return nil
}
