package ebuild

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppphp/portagebrowser/pkg/keywords"
	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/settings"
)

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func testList() *portage.PackageList {
	l := portage.NewPackageList()
	p := l.Package(portage.ParseCategory("app-misc"), "foo")
	for _, v := range []string{"1.0", "2.0", "3.0"} {
		p.Version(v).Keywords = []string{"~x86"}
	}
	p.Version("1.0").Keywords = []string{"x86"}
	l.Package(portage.ParseCategory("app-misc"), "bar").Version("1.0").Keywords = []string{"~x86"}
	return l
}

func TestManager(t *testing.T) {
	root := t.TempDir()
	portDir := filepath.Join(root, "usr/portage")
	profile := filepath.Join(portDir, "profiles/default/x86")
	writeFile(t, filepath.Join(portDir, "profiles/package.mask"), "# masked for testing\n>=app-misc/foo-2.0\napp-misc/bar\n")
	writeFile(t, filepath.Join(profile, "make.defaults"), "ARCH=\"x86\"\nACCEPT_KEYWORDS=\"x86\"\n")
	writeFile(t, filepath.Join(profile, "package.mask"), "-app-misc/bar\n")
	writeFile(t, filepath.Join(root, "etc/make.conf"), "PORTDIR=\""+portDir+"\"\n")
	writeFile(t, filepath.Join(root, "etc/portage/package.unmask"), "=app-misc/foo-3.0\n")
	writeFile(t, filepath.Join(root, "etc/portage/package.keywords/misc"), "app-misc/foo\nnot-an-atom\n>=app-misc/foo-3.0 -*\n")
	require.NoError(t, os.Symlink(profile, filepath.Join(root, "etc/make.profile")))

	s := settings.New(root)
	require.NoError(t, s.LoadProfile())
	m := NewManager(s)
	require.Len(t, m.Errors, 1)
	for k := range m.Errors {
		assert.Equal(t, filepath.Join(root, "etc/portage/package.keywords/misc")+":2", k)
	}

	l := testList()
	m.Apply(l)
	foo, ok := l.Get("app-misc", "foo")
	require.True(t, ok)
	v1, _ := foo.Lookup("1.0")
	v2, _ := foo.Lookup("2.0")
	v3, _ := foo.Lookup("3.0")
	assert.False(t, v1.HardMasked)
	assert.True(t, v2.HardMasked)
	assert.False(t, v3.HardMasked)

	assert.Equal(t, []string{"~x86"}, v1.AcceptedKeywords)
	assert.Equal(t, []string{"~x86", "-*"}, v3.AcceptedKeywords)

	arch := s.Arch()
	assert.Equal(t, keywords.Stable, v1.Stability(arch))
	assert.Equal(t, keywords.HardMasked, v2.Stability(arch))
	assert.Equal(t, keywords.Stable, v3.Stability(arch))

	bar, _ := l.Get("app-misc", "bar")
	b, _ := bar.Lookup("1.0")
	assert.False(t, b.HardMasked)
	assert.Empty(t, b.AcceptedKeywords)
	assert.Equal(t, keywords.Masked, b.Stability(arch))
}
