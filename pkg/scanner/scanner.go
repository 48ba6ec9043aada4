package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ppphp/portagebrowser/pkg/events"
	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
	"github.com/ppphp/portagebrowser/pkg/versions"
)

// Trees selects the trees a scan walks.
type Trees int

const (
	Mainline Trees = 1 << iota
	Overlay
	Installed

	AllTrees = Mainline | Overlay | Installed
)

const DefaultBatchSize = 20

var excludedDirs = map[string]bool{
	"CVS": true, ".git": true, ".svn": true,
	"distfiles": true, "eclass": true, "licenses": true, "metadata": true,
	"packages": true, "profiles": true, "scripts": true,
}

// Dirs locates the trees on disk.
type Dirs struct {
	Portage   string
	Overlays  []string
	Installed string
	// Cache is the metadata cache of the mainline tree.
	Cache string
}

// Scanner fills a package list from the directory layout of the trees.
type Scanner struct {
	Dirs        Dirs
	PreferCache bool
	BatchSize   int
	// Events receives progress and completion events. Completion events are
	// delivered even after an abort, so it must be drained until Scan returns.
	Events chan<- events.Event
}

func New(dirs Dirs) *Scanner {
	return &Scanner{Dirs: dirs, PreferCache: true, BatchSize: DefaultBatchSize}
}

// Result counts what a scan found. Failed lists the trees that could not be
// read.
type Result struct {
	Packages int
	Versions int
	Failed   map[events.Tree]error
}

func (r *Result) partial() *portage.PartialFailureError {
	if len(r.Failed) == 0 {
		return nil
	}
	e := &portage.PartialFailureError{Failed: map[string]error{}}
	for t, err := range r.Failed {
		e.Failed[string(t)] = err
	}
	return e
}

// Partial returns the failed trees as an error, or nil.
func (r *Result) Partial() error {
	if p := r.partial(); p != nil {
		return p
	}
	return nil
}

// Scan adds the versions found in the requested trees to list. Data found
// before an abort stays in list and portage.ErrAborted is returned. A tree
// that cannot be read is recorded in the result; the scan fails only when
// every requested tree failed.
func (s *Scanner) Scan(ctx context.Context, list *portage.PackageList, trees Trees) (*Result, error) {
	start := time.Now()
	res := &Result{Failed: map[events.Tree]error{}}
	requested := 0
	var err error

	steps := []struct {
		tree events.Tree
		flag Trees
		walk func(context.Context, *portage.PackageList) (int, error)
	}{
		{events.Mainline, Mainline, s.scanMainline},
		{events.Overlay, Overlay, s.scanOverlays},
		{events.Installed, Installed, s.scanInstalled},
	}
	for _, st := range steps {
		if trees&st.flag == 0 {
			continue
		}
		if err = aborted(ctx); err != nil {
			break
		}
		requested++
		t0 := time.Now()
		var n int
		n, err = st.walk(ctx, list)
		events.Send(s.Events, events.TreeComplete{Tree: st.tree, Packages: n, Elapsed: time.Since(t0), Err: err})
		if portage.IsAborted(err) {
			break
		}
		if err != nil {
			msg.WithTree(string(st.tree)).Warnf("scan failed: %v", err)
			res.Failed[st.tree] = err
			err = nil
		}
	}

	res.Packages = list.Len()
	res.Versions = list.VersionCount()
	if err == nil && requested > 0 && len(res.Failed) == requested {
		err = res.partial()
	}
	events.Send(s.Events, events.AllComplete{
		Packages:  res.Packages,
		Versions:  res.Versions,
		Installed: list.InstalledCount(),
		Elapsed:   time.Since(start),
		Err:       err,
	})
	return res, err
}

func (s *Scanner) batch() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

func aborted(ctx context.Context) error {
	if ctx.Err() != nil {
		return portage.ErrAborted
	}
	return nil
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}

// listDir returns the sorted names of the entries of p accepted by keep.
func listDir(p string, keep func(os.DirEntry) bool) ([]string, error) {
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	r := []string{}
	for _, e := range entries {
		if keep(e) {
			r = append(r, e.Name())
		}
	}
	sort.Strings(r)
	return r, nil
}

func dirEntry(e os.DirEntry) bool {
	if !e.IsDir() {
		// symlinked directories
		if e.Type()&os.ModeSymlink == 0 {
			return false
		}
	}
	return true
}

// categories lists the category directories of a tree root.
func categories(root string) ([]string, error) {
	return listDir(root, func(e os.DirEntry) bool {
		n := e.Name()
		if excludedDirs[n] || strings.HasPrefix(n, ".") || !strings.Contains(n, "-") {
			return false
		}
		return dirEntry(e)
	})
}

// counter emits a progress event every batch packages.
type counter struct {
	ctx   context.Context
	s     *Scanner
	tree  events.Tree
	n     int
	batch int
}

func (c *counter) add() {
	c.n++
	if c.n%c.batch == 0 {
		events.Emit(c.ctx, c.s.Events, events.Progress{Tree: c.tree, Packages: c.n})
	}
}

func (s *Scanner) scanMainline(ctx context.Context, list *portage.PackageList) (int, error) {
	if !isDir(s.Dirs.Portage) {
		return 0, &portage.NotFoundError{What: "portage tree", Path: s.Dirs.Portage}
	}
	c := &counter{ctx: ctx, s: s, tree: events.Mainline, batch: s.batch()}
	err := s.walkTree(ctx, list, s.Dirs.Portage, false, c)
	return c.n, err
}

func (s *Scanner) scanOverlays(ctx context.Context, list *portage.PackageList) (int, error) {
	c := &counter{ctx: ctx, s: s, tree: events.Overlay, batch: s.batch()}
	found := 0
	for _, o := range s.Dirs.Overlays {
		if !isDir(o) {
			msg.WithTree(string(events.Overlay)).Warnf("overlay %s not found", o)
			continue
		}
		found++
		if err := s.walkTree(ctx, list, o, true, c); err != nil {
			return c.n, err
		}
	}
	if found == 0 && len(s.Dirs.Overlays) > 0 {
		return 0, &portage.NotFoundError{What: "overlay", Path: strings.Join(s.Dirs.Overlays, " ")}
	}
	return c.n, nil
}

// walkTree reads a mainline or overlay tree. The mainline tree is read from
// the metadata cache when that is preferred and present.
func (s *Scanner) walkTree(ctx context.Context, list *portage.PackageList, root string, overlay bool, c *counter) error {
	cats, err := categories(root)
	if err != nil {
		return errors.Wrapf(err, "couldn't list %s", root)
	}
	log := msg.WithTree(string(c.tree))
	for _, cat := range cats {
		if err := aborted(ctx); err != nil {
			return err
		}
		category := portage.ParseCategory(cat)
		if !overlay && s.PreferCache && s.Dirs.Cache != "" && isDir(filepath.Join(s.Dirs.Cache, cat)) {
			if err := s.readCacheCategory(ctx, list, category, filepath.Join(s.Dirs.Cache, cat), c); err != nil {
				return err
			}
			continue
		}
		pkgs, err := listDir(filepath.Join(root, cat), func(e os.DirEntry) bool {
			return !strings.HasPrefix(e.Name(), ".") && !excludedDirs[e.Name()] && dirEntry(e)
		})
		if err != nil {
			log.Debugf("couldn't list %s: %v", cat, err)
			continue
		}
		for _, name := range pkgs {
			if err := aborted(ctx); err != nil {
				return err
			}
			vs := ebuildVersions(filepath.Join(root, cat, name), name)
			if len(vs) == 0 {
				continue
			}
			p := list.Package(category, name)
			for _, v := range vs {
				ver := p.Version(v)
				if overlay {
					ver.Overlay = true
				}
			}
			c.add()
		}
	}
	return nil
}

// ebuildVersions lists the versions of the "<name>-<version>.ebuild" files in
// dir.
func ebuildVersions(dir, name string) []string {
	files, err := listDir(dir, func(e os.DirEntry) bool {
		return !e.IsDir() && strings.HasSuffix(e.Name(), ".ebuild")
	})
	if err != nil {
		return nil
	}
	r := []string{}
	prefix := name + "-"
	for _, f := range files {
		base := strings.TrimSuffix(f, ".ebuild")
		if !strings.HasPrefix(base, prefix) {
			continue
		}
		v := base[len(prefix):]
		if !versions.VerVerify(v) {
			msg.Log.Debugf("ignoring %s", filepath.Join(dir, f))
			continue
		}
		r = append(r, v)
	}
	return r
}

// readCacheCategory reads the "<name>-<version>" entries of one category of
// the metadata cache.
func (s *Scanner) readCacheCategory(ctx context.Context, list *portage.PackageList, category portage.Category, dir string, c *counter) error {
	entries, err := listDir(dir, func(e os.DirEntry) bool {
		return !strings.HasPrefix(e.Name(), ".")
	})
	if err != nil {
		msg.WithTree(string(c.tree)).Debugf("couldn't list %s: %v", dir, err)
		return nil
	}
	last := ""
	for _, e := range entries {
		name, ver, ok := versions.SplitNameVersion(e)
		if !ok {
			continue
		}
		if name != last {
			if err := aborted(ctx); err != nil {
				return err
			}
			if last != "" {
				c.add()
			}
			last = name
		}
		list.Package(category, name).Version(ver)
	}
	if last != "" {
		c.add()
	}
	return nil
}

func (s *Scanner) scanInstalled(ctx context.Context, list *portage.PackageList) (int, error) {
	root := s.Dirs.Installed
	if !isDir(root) {
		return 0, &portage.NotFoundError{What: "installed package database", Path: root}
	}
	c := &counter{ctx: ctx, s: s, tree: events.Installed, batch: s.batch()}
	cats, err := categories(root)
	if err != nil {
		return 0, errors.Wrapf(err, "couldn't list %s", root)
	}
	for _, cat := range cats {
		if err := aborted(ctx); err != nil {
			return c.n, err
		}
		category := portage.ParseCategory(cat)
		entries, err := listDir(filepath.Join(root, cat), func(e os.DirEntry) bool {
			return !strings.HasPrefix(e.Name(), ".") && !strings.HasPrefix(e.Name(), "-") && dirEntry(e)
		})
		if err != nil {
			continue
		}
		for _, e := range entries {
			if err := aborted(ctx); err != nil {
				return c.n, err
			}
			name, ver, ok := versions.SplitNameVersion(e)
			if !ok {
				msg.WithTree(string(events.Installed)).Debugf("invalid entry %s/%s", cat, e)
				continue
			}
			list.Package(category, name).Version(ver).Installed = true
			c.add()
		}
	}
	return c.n, nil
}
