package backend

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ppphp/portagebrowser/config"
	"github.com/ppphp/portagebrowser/pkg/checksum"
	"github.com/ppphp/portagebrowser/pkg/detail"
	"github.com/ppphp/portagebrowser/pkg/ebuild"
	"github.com/ppphp/portagebrowser/pkg/events"
	"github.com/ppphp/portagebrowser/pkg/job"
	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/scanner"
	"github.com/ppphp/portagebrowser/pkg/settings"
	"github.com/ppphp/portagebrowser/pkg/treecache"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
)

var treeNames = map[string]scanner.Trees{
	"mainline":  scanner.Mainline,
	"overlay":   scanner.Overlay,
	"overlays":  scanner.Overlay,
	"installed": scanner.Installed,
}

// ParseTrees turns tree names into scan flags. No names means all trees.
func ParseTrees(names []string) (scanner.Trees, error) {
	if len(names) == 0 {
		return scanner.AllTrees, nil
	}
	var t scanner.Trees
	for _, n := range names {
		f, ok := treeNames[n]
		if !ok {
			return 0, errors.Errorf("unknown tree %q", n)
		}
		t |= f
	}
	return t, nil
}

// Backend is one browsing session: the configuration, the package list and
// the operations that fill it. Operations that replace or modify the list
// take the write lock; readers use View.
type Backend struct {
	Conf     *config.Conf
	Settings *settings.Settings
	Scanner  *scanner.Scanner
	Loader   *detail.Loader
	Manager  *ebuild.Manager

	trees  scanner.Trees
	events chan<- events.Event

	mu         sync.RWMutex
	list       *portage.PackageList
	lastResult *scanner.Result

	scanJob, saveJob, loadJob *job.Job
}

// New reads the portage configuration below c.Paths.Root. Paths set in c
// take precedence over the ones portage is configured with. ch receives
// the events of every operation and may be nil; when set it must be
// drained.
func New(c *config.Conf, ch chan<- events.Event) (*Backend, error) {
	trees, err := ParseTrees(c.Scan.Trees)
	if err != nil {
		return nil, err
	}
	s := settings.New(c.Paths.Root)
	if err := s.LoadProfile(); err != nil {
		if !portage.IsNotFound(err) {
			return nil, err
		}
		msg.Log.Warnf("%v", err)
	}

	dirs := scanner.Dirs{
		Portage:   c.Paths.Portage,
		Overlays:  c.Paths.Overlays,
		Installed: c.Paths.Installed,
		Cache:     c.Paths.Cache,
	}
	if dirs.Portage == "" {
		dirs.Portage = s.PortDir()
	}
	if dirs.Overlays == nil {
		dirs.Overlays = s.Overlays()
	}
	if dirs.Installed == "" {
		dirs.Installed = s.InstalledDir()
	}
	if dirs.Cache == "" {
		dirs.Cache = s.CacheDir()
	}

	b := &Backend{
		Conf:     c,
		Settings: s,
		Scanner:  scanner.New(dirs),
		Loader:   detail.New(dirs),
		Manager:  ebuild.NewManager(s),
		trees:    trees,
		events:   ch,
		list:     portage.NewPackageList(),
	}
	for k, err := range b.Manager.Errors {
		msg.WithFile(k).Warnf("%v", err)
	}
	b.Scanner.PreferCache = c.Scan.PreferCache
	b.Scanner.BatchSize = c.Scan.BatchSize
	b.Scanner.Events = ch
	b.Loader.PreferCache = c.Scan.PreferCache
	b.Loader.Workers = c.Scan.Workers
	b.Loader.Events = ch

	b.scanJob = job.New(b.scan)
	b.saveJob = job.New(b.saveCache)
	b.loadJob = job.New(b.loadCache)
	return b, nil
}

func (b *Backend) Arch() string {
	return b.Settings.Arch()
}

// DistDir is where downloaded distfiles are looked for.
func (b *Backend) DistDir() string {
	if d := b.Conf.Paths.DistDir; d != "" {
		return d
	}
	if d := b.Settings.Value("DISTDIR"); d != "" {
		return d
	}
	return filepath.Join(b.Scanner.Dirs.Portage, "distfiles")
}

// View calls fn with the package list under the read lock. fn must not keep
// references to the list after returning.
func (b *Backend) View(fn func(*portage.PackageList)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn(b.list)
}

func (b *Backend) LastResult() *scanner.Result {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastResult
}

// scan fills a fresh list, from the cache file when allowed and present,
// else from the trees, and swaps it in.
func (b *Backend) scan(ctx context.Context) error {
	if b.Conf.Scan.UseCacheFile && b.Conf.Paths.CacheFile != "" {
		if _, err := os.Stat(b.Conf.Paths.CacheFile); err == nil {
			start := time.Now()
			err := b.loadCache(ctx)
			if err == nil || portage.IsAborted(err) {
				ac := events.AllComplete{Elapsed: time.Since(start), Err: err}
				if err == nil {
					b.View(func(l *portage.PackageList) {
						ac.Packages, ac.Versions, ac.Installed = l.Len(), l.VersionCount(), l.InstalledCount()
					})
				}
				events.Send(b.events, ac)
				return err
			}
			msg.WithFile(b.Conf.Paths.CacheFile).Warnf("falling back to a full scan: %v", err)
		}
	}
	fresh := portage.NewPackageList()
	res, err := b.Scanner.Scan(ctx, fresh, b.trees)
	if err != nil {
		return err
	}
	b.Manager.Apply(fresh)
	b.mu.Lock()
	b.list.Replace(fresh)
	b.lastResult = res
	b.mu.Unlock()
	return nil
}

// Scan runs a scan and waits for it.
func (b *Backend) Scan(ctx context.Context) error {
	return b.scanJob.Run(ctx)
}

// StartScan runs a scan in the background. It fails with
// portage.ErrAlreadyRunning while one is in progress.
func (b *Backend) StartScan(ctx context.Context) error {
	return b.scanJob.Start(ctx)
}

func (b *Backend) ScanRunning() bool {
	return b.scanJob.Running()
}

func (b *Backend) AbortScan() error {
	return b.scanJob.AbortAndWait()
}

func (b *Backend) WaitScan() error {
	return b.scanJob.Wait()
}

func (b *Backend) saveCache(ctx context.Context) error {
	start := time.Now()
	b.mu.RLock()
	err := treecache.SaveFile(ctx, b.Conf.Paths.CacheFile, b.list)
	b.mu.RUnlock()
	events.Send(b.events, events.CacheSaved{Path: b.Conf.Paths.CacheFile, Elapsed: time.Since(start), Err: err})
	return err
}

func (b *Backend) loadCache(ctx context.Context) error {
	start := time.Now()
	fresh := portage.NewPackageList()
	err := treecache.LoadFile(ctx, b.Conf.Paths.CacheFile, fresh)
	ev := events.CacheLoaded{Path: b.Conf.Paths.CacheFile, Err: err}
	if err == nil {
		b.Manager.Apply(fresh)
		ev.Packages, ev.Versions = fresh.Len(), fresh.VersionCount()
		b.mu.Lock()
		b.list.Replace(fresh)
		b.lastResult = &scanner.Result{Packages: ev.Packages, Versions: ev.Versions}
		b.mu.Unlock()
	}
	ev.Elapsed = time.Since(start)
	events.Send(b.events, ev)
	return err
}

// SaveCache writes the package list to the cache file.
func (b *Backend) SaveCache(ctx context.Context) error {
	return b.saveJob.Run(ctx)
}

// LoadCache replaces the package list with the cache file content.
func (b *Backend) LoadCache(ctx context.Context) error {
	return b.loadJob.Run(ctx)
}

// LoadDetails reads the details of the package named "category/name".
func (b *Backend) LoadDetails(ctx context.Context, key string) (*portage.Package, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.list.Find(key)
	if !ok {
		return nil, &portage.NotFoundError{What: "package", Path: key}
	}
	if err := b.Loader.Load(ctx, p); err != nil {
		return nil, err
	}
	b.Manager.ApplyPackage(p)
	return p, nil
}

// LoadListDetails reads the details of the packages in l, a selection
// from this session.
func (b *Backend) LoadListDetails(ctx context.Context, l *portage.PackageList) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.Loader.LoadAll(ctx, l)
	for _, p := range l.Packages() {
		b.Manager.ApplyPackage(p)
	}
	return err
}

// Select returns the packages sel accepts. The returned list shares its
// packages with the session; read them through View.
func (b *Backend) Select(ctx context.Context, sel *portage.Selector) (*portage.PackageList, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sel.Select(ctx, b.list)
}

// CategoryInfo counts the packages of one category.
type CategoryInfo struct {
	Name     string `json:"name" yaml:"name"`
	Packages int    `json:"packages" yaml:"packages"`
}

func (b *Backend) Categories() []CategoryInfo {
	counts := map[string]int{}
	b.View(func(l *portage.PackageList) {
		for _, p := range l.Packages() {
			counts[p.Category().UniqueName()]++
		}
	})
	r := make([]CategoryInfo, 0, len(counts))
	for k, v := range counts {
		r = append(r, CategoryInfo{Name: k, Packages: v})
	}
	sort.Slice(r, func(i, j int) bool { return r[i].Name < r[j].Name })
	return r
}

// Updates lists the installed packages with a stable update in a slot
// they occupy. It needs slots, so details are loaded first.
func (b *Backend) Updates(ctx context.Context) ([]*portage.Package, error) {
	sel := portage.NewSelector(portage.Exclude)
	sel.IncludeInstalled(true)
	installed, err := b.Select(ctx, sel)
	if err != nil {
		return nil, err
	}
	if err := b.LoadListDetails(ctx, installed); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	arch := b.Arch()
	r := []*portage.Package{}
	for _, p := range installed.Packages() {
		if p.CanUpdate(arch) {
			r = append(r, p)
		}
	}
	return r, nil
}

// Verify checks the downloaded distfiles of every version of the package
// named key. Results are keyed by version, then distfile.
func (b *Backend) Verify(ctx context.Context, key string) (map[string]map[string]error, error) {
	p, err := b.LoadDetails(ctx, key)
	if err != nil {
		return nil, err
	}
	filter := checksum.NewHashFilter(b.Settings.Value("PORTAGE_CHECKSUM_FILTER"))
	b.mu.RLock()
	defer b.mu.RUnlock()
	r := map[string]map[string]error{}
	for _, v := range p.SortedVersionList() {
		if len(v.Digests) == 0 {
			continue
		}
		res, err := checksum.VerifyVersion(ctx, b.DistDir(), v, filter)
		if err != nil {
			return nil, err
		}
		r[v.Version()] = res
	}
	return r, nil
}
