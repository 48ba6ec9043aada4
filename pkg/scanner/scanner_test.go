package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppphp/portagebrowser/pkg/events"
	"github.com/ppphp/portagebrowser/pkg/portage"
)

func touch(t *testing.T, p string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, nil, 0644))
}

func mkdir(t *testing.T, p string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(p, 0755))
}

type fixture struct {
	dirs Dirs
}

func newFixture(t *testing.T) fixture {
	root := t.TempDir()
	d := Dirs{
		Portage:   filepath.Join(root, "usr/portage"),
		Overlays:  []string{filepath.Join(root, "usr/local/portage")},
		Installed: filepath.Join(root, "var/db/pkg"),
		Cache:     filepath.Join(root, "var/cache/edb/dep/usr/portage"),
	}
	touch(t, filepath.Join(d.Portage, "app-misc/foo/foo-1.0.ebuild"))
	touch(t, filepath.Join(d.Portage, "app-misc/foo/foo-1.1-r1.ebuild"))
	touch(t, filepath.Join(d.Portage, "app-misc/foo/ChangeLog"))
	touch(t, filepath.Join(d.Portage, "app-misc/foo/files/digest-foo-1.0"))
	touch(t, filepath.Join(d.Portage, "app-misc/bar-baz/bar-baz-2.0_rc1.ebuild"))
	touch(t, filepath.Join(d.Portage, "app-misc/empty/metadata.xml"))
	touch(t, filepath.Join(d.Portage, "dev-lang/python/python-2.4.ebuild"))
	touch(t, filepath.Join(d.Portage, "eclass/eutils.eclass"))
	touch(t, filepath.Join(d.Portage, "profiles/package.mask"))
	touch(t, filepath.Join(d.Portage, "virtual/x/x-1.ebuild"))
	touch(t, filepath.Join(d.Portage, ".git-x/a/a-1.ebuild"))

	touch(t, filepath.Join(d.Overlays[0], "app-misc/foo/foo-9999.ebuild"))

	mkdir(t, filepath.Join(d.Installed, "app-misc/foo-1.0"))
	mkdir(t, filepath.Join(d.Installed, "sys-apps/portage-2.1"))
	mkdir(t, filepath.Join(d.Installed, "sys-apps/-MERGING-portage-2.2"))
	return fixture{dirs: d}
}

func versionsOf(t *testing.T, l *portage.PackageList, cat, name string) []string {
	t.Helper()
	p, ok := l.Get(cat, name)
	require.True(t, ok, cat+"/"+name)
	r := []string{}
	for _, v := range p.SortedVersionList() {
		r = append(r, v.Version())
	}
	return r
}

func TestScanAllTrees(t *testing.T) {
	f := newFixture(t)
	s := New(f.dirs)
	l := portage.NewPackageList()
	res, err := s.Scan(context.Background(), l, AllTrees)
	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	assert.NoError(t, res.Partial())

	assert.Equal(t, []string{"1.0", "1.1-r1", "9999"}, versionsOf(t, l, "app-misc", "foo"))
	assert.Equal(t, []string{"2.0_rc1"}, versionsOf(t, l, "app-misc", "bar-baz"))
	assert.Equal(t, []string{"2.4"}, versionsOf(t, l, "dev-lang", "python"))
	assert.Equal(t, []string{"2.1"}, versionsOf(t, l, "sys-apps", "portage"))
	_, ok := l.Get("app-misc", "empty")
	assert.False(t, ok)
	_, ok = l.Get("virtual", "x")
	assert.False(t, ok)
	assert.Equal(t, []string{"app-misc", "dev-lang", "sys-apps"}, l.Categories())

	foo, _ := l.Get("app-misc", "foo")
	v, _ := foo.Lookup("1.0")
	assert.True(t, v.Installed)
	assert.False(t, v.Overlay)
	v, _ = foo.Lookup("9999")
	assert.True(t, v.Overlay)
	assert.False(t, v.Installed)

	assert.Equal(t, 4, res.Packages)
	assert.Equal(t, 6, res.Versions)
}

func TestScanPrefersCache(t *testing.T) {
	f := newFixture(t)
	touch(t, filepath.Join(f.dirs.Cache, "app-misc/foo-1.0"))
	touch(t, filepath.Join(f.dirs.Cache, "app-misc/foo-2.0"))
	touch(t, filepath.Join(f.dirs.Cache, "app-misc/qux-0.1"))

	l := portage.NewPackageList()
	_, err := New(f.dirs).Scan(context.Background(), l, Mainline)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "2.0"}, versionsOf(t, l, "app-misc", "foo"))
	assert.Equal(t, []string{"0.1"}, versionsOf(t, l, "app-misc", "qux"))
	// no cache directory for this category: walked
	assert.Equal(t, []string{"2.4"}, versionsOf(t, l, "dev-lang", "python"))

	s := New(f.dirs)
	s.PreferCache = false
	l = portage.NewPackageList()
	_, err = s.Scan(context.Background(), l, Mainline)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "1.1-r1"}, versionsOf(t, l, "app-misc", "foo"))
}

func TestScanMissingTree(t *testing.T) {
	f := newFixture(t)
	f.dirs.Installed = filepath.Join(f.dirs.Installed, "nowhere")
	l := portage.NewPackageList()
	res, err := New(f.dirs).Scan(context.Background(), l, AllTrees)
	require.NoError(t, err)
	require.Contains(t, res.Failed, events.Installed)
	assert.True(t, portage.IsNotFound(res.Failed[events.Installed]))
	assert.Error(t, res.Partial())
	assert.Equal(t, []string{"1.0", "1.1-r1", "9999"}, versionsOf(t, l, "app-misc", "foo"))

	f.dirs.Portage = filepath.Join(f.dirs.Portage, "nowhere")
	_, err = New(f.dirs).Scan(context.Background(), portage.NewPackageList(), Mainline|Installed)
	require.Error(t, err)
	pf, ok := err.(*portage.PartialFailureError)
	require.True(t, ok)
	assert.Len(t, pf.Failed, 2)
}

func TestScanProgress(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 45; i++ {
		touch(t, filepath.Join(root, fmt.Sprintf("app-misc/p%02d/p%02d-1.0.ebuild", i, i)))
	}
	ch := make(chan events.Event, 100)
	s := New(Dirs{Portage: root})
	s.Events = ch
	_, err := s.Scan(context.Background(), portage.NewPackageList(), Mainline)
	require.NoError(t, err)
	close(ch)

	got := []events.Event{}
	for ev := range ch {
		got = append(got, ev)
	}
	require.Len(t, got, 4)
	assert.Equal(t, events.Progress{Tree: events.Mainline, Packages: 20}, got[0])
	assert.Equal(t, events.Progress{Tree: events.Mainline, Packages: 40}, got[1])
	tc, ok := got[2].(events.TreeComplete)
	require.True(t, ok)
	assert.Equal(t, 45, tc.Packages)
	assert.NoError(t, tc.Err)
	ac, ok := got[3].(events.AllComplete)
	require.True(t, ok)
	assert.Equal(t, 45, ac.Packages)
	assert.Equal(t, 45, ac.Versions)
	assert.Equal(t, 0, ac.Installed)
}

func TestScanAbortedReportsCompletion(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 50; i++ {
		ch := make(chan events.Event, 100)
		s := New(f.dirs)
		s.Events = ch
		_, err := s.Scan(ctx, portage.NewPackageList(), AllTrees)
		require.True(t, portage.IsAborted(err))
		close(ch)

		var all []events.AllComplete
		for ev := range ch {
			if ac, ok := ev.(events.AllComplete); ok {
				all = append(all, ac)
			}
		}
		require.Len(t, all, 1)
		assert.True(t, portage.IsAborted(all[0].Err))
	}
}

func TestScanAborted(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := portage.NewPackageList()
	_, err := New(f.dirs).Scan(ctx, l, AllTrees)
	assert.True(t, portage.IsAborted(err))
	assert.Equal(t, 0, l.Len())
}

func TestScanCompletionCountsInstalled(t *testing.T) {
	f := newFixture(t)
	ch := make(chan events.Event, 100)
	s := New(f.dirs)
	s.Events = ch
	_, err := s.Scan(context.Background(), portage.NewPackageList(), AllTrees)
	require.NoError(t, err)
	close(ch)

	var last events.Event
	for ev := range ch {
		last = ev
	}
	ac, ok := last.(events.AllComplete)
	require.True(t, ok)
	assert.Equal(t, 2, ac.Installed)
	assert.NoError(t, ac.Err)
}
