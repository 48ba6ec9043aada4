package api

import (
	"net/http"
	"time"

	"github.com/docker/go-units"
	"github.com/gin-gonic/gin"

	"github.com/ppphp/portagebrowser/pkg/portage"
)

func (h *handler) getCategory(c *gin.Context) {
	c.JSON(http.StatusOK, h.b.Categories())
}

type packageSummary struct {
	Category  string `json:"category"`
	Name      string `json:"name"`
	Latest    string `json:"latest,omitempty"`
	Installed bool   `json:"installed"`
	Update    bool   `json:"update"`
}

func summarize(p *portage.Package, arch string) packageSummary {
	s := packageSummary{
		Category:  p.Category().UniqueName(),
		Name:      p.Name(),
		Installed: p.IsInstalled(),
		Update:    p.HasUpdate(arch),
	}
	if v := p.LatestVersion(); v != nil {
		s.Latest = v.Version()
	}
	return s
}

// getPackages lists the packages of a category. A partial category such as
// "app" lists every "app-*" category; ?name= filters by a name glob.
func (h *handler) getPackages(c *gin.Context) {
	ctx := c.Request.Context()
	sel := portage.NewSelector(portage.Exclude)
	sel.IncludeCategory(portage.ParseCategory(c.Param("category")))
	l, err := h.b.Select(ctx, sel)
	if err == nil && c.Query("name") != "" {
		byName := portage.NewSelector(portage.Exclude)
		if err = byName.IncludeName(c.Query("name")); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		l, err = byName.Select(ctx, l)
	}
	if err == nil {
		inst := portage.NewSelector(portage.Exclude)
		inst.IncludeInstalled(true)
		var installed *portage.PackageList
		if installed, err = inst.Select(ctx, l); err == nil {
			err = h.b.LoadListDetails(ctx, installed)
		}
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	arch := h.b.Arch()
	r := []packageSummary{}
	h.b.View(func(*portage.PackageList) {
		for _, p := range l.Packages() {
			r = append(r, summarize(p, arch))
		}
	})
	c.JSON(http.StatusOK, r)
}

type versionInfo struct {
	Version     string     `json:"version"`
	Stability   string     `json:"stability"`
	Installed   bool       `json:"installed"`
	Overlay     bool       `json:"overlay"`
	Slot        string     `json:"slot"`
	Description string     `json:"description,omitempty"`
	Homepage    string     `json:"homepage,omitempty"`
	Licenses    []string   `json:"licenses,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
	UseFlags    []string   `json:"use,omitempty"`
	Size        string     `json:"size,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

func describe(v *portage.Version, arch string) versionInfo {
	i := versionInfo{
		Version:     v.Version(),
		Stability:   v.Stability(arch).String(),
		Installed:   v.Installed,
		Overlay:     v.Overlay,
		Slot:        v.Slot,
		Description: v.Description,
		Homepage:    v.Homepage,
		Licenses:    v.Licenses,
		Keywords:    v.Keywords,
		UseFlags:    v.UseFlags,
	}
	if v.Size > 0 {
		i.Size = units.HumanSize(float64(v.Size))
	}
	if !v.Date.IsZero() {
		d := v.Date
		i.Date = &d
	}
	return i
}

func (h *handler) getPackage(c *gin.Context) {
	key := c.Param("category") + "/" + c.Param("name")
	p, err := h.b.LoadDetails(c.Request.Context(), key)
	if err != nil {
		status := http.StatusInternalServerError
		if portage.IsNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	arch := h.b.Arch()
	r := []versionInfo{}
	h.b.View(func(*portage.PackageList) {
		for _, v := range p.SortedVersionList() {
			r = append(r, describe(v, arch))
		}
	})
	c.JSON(http.StatusOK, gin.H{"package": key, "versions": r})
}

func (h *handler) getUpdates(c *gin.Context) {
	ups, err := h.b.Updates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	arch := h.b.Arch()
	r := []packageSummary{}
	h.b.View(func(*portage.PackageList) {
		for _, p := range ups {
			r = append(r, summarize(p, arch))
		}
	})
	c.JSON(http.StatusOK, r)
}
