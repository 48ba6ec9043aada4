package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppphp/portagebrowser/pkg/portage"
)

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestIncremental(t *testing.T) {
	assert.True(t, Incremental("USE"))
	assert.True(t, Incremental("ACCEPT_KEYWORDS"))
	assert.True(t, Incremental("FEATURES"))
	assert.True(t, Incremental("CONFIG_PROTECT_MASK"))
	assert.False(t, Incremental("CFLAGS"))
}

func TestAddToValue(t *testing.T) {
	s := New("")
	s.AddToValue("USE", "a b")
	s.AddToValue("USE", "-a c")
	assert.ElementsMatch(t, []string{"b", "c"}, s.Tokens("USE"))

	s.AddToValue("USE", "b d")
	assert.ElementsMatch(t, []string{"b", "c", "d"}, s.Tokens("USE"))

	s.AddToValue("USE", "-* e")
	assert.Equal(t, []string{"e"}, s.Tokens("USE"))

	s.AddToValue("CFLAGS", "-O2")
	s.AddToValue("CFLAGS", "-O3")
	assert.Equal(t, "-O3", s.Value("CFLAGS"))
}

func TestValueSubstitution(t *testing.T) {
	s := New("")
	s.SetValue("PORTDIR", "/usr/portage")
	s.SetValue("DISTDIR", "${PORTDIR}/distfiles")
	s.SetValue("PKGDIR", "$PORTDIR/packages")
	s.SetValue("X", "$MISSING and ${ALSO_MISSING} stay, $DISTDIR resolves")
	s.SetValue("LOOP", "a$LOOP")
	s.SetValue("BAD", "${ unterminated")

	assert.Equal(t, "/usr/portage/distfiles", s.Value("DISTDIR"))
	assert.Equal(t, "/usr/portage/packages", s.Value("PKGDIR"))
	assert.Equal(t, "$MISSING and ${ALSO_MISSING} stay, /usr/portage/distfiles resolves", s.Value("X"))
	assert.Equal(t, "a$LOOP", s.Value("LOOP"))
	assert.Equal(t, "${ unterminated", s.Value("BAD"))

	// substitution happens on read
	s.SetValue("PORTDIR", "/var/db/repos/gentoo")
	assert.Equal(t, "/var/db/repos/gentoo/distfiles", s.Value("DISTDIR"))
	raw, _ := s.RawValue("DISTDIR")
	assert.Equal(t, "${PORTDIR}/distfiles", raw)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "make.conf")
	writeFile(t, f, `# comment
CFLAGS="-O2 -pipe"
export CHOST=i686-pc-linux-gnu
USE="gtk
  kde"
not an assignment
1BAD=x
PORTDIR_OVERLAY='/usr/local/portage'
`)
	s := New("")
	require.NoError(t, s.LoadFile(f))
	assert.Equal(t, "-O2 -pipe", s.Value("CFLAGS"))
	assert.Equal(t, "i686-pc-linux-gnu", s.Value("CHOST"))
	assert.Equal(t, []string{"gtk", "kde"}, s.Tokens("USE"))
	assert.Equal(t, "/usr/local/portage", s.Value("PORTDIR_OVERLAY"))
	assert.False(t, s.Has("1BAD"))

	err := s.LoadFile(filepath.Join(dir, "missing"))
	assert.True(t, portage.IsNotFound(err))
}

func TestLoadProfile(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "usr/portage/profiles/base")
	arch := filepath.Join(root, "usr/portage/profiles/default-linux/x86")
	writeFile(t, filepath.Join(base, MakeDefaults), "USE=\"a b\"\nCHOST=\"base\"\nFEATURES=\"sandbox\"\n")
	writeFile(t, filepath.Join(arch, MakeDefaults), "USE=\"c\"\nCHOST=\"child\"\nARCH=\"x86\"\nACCEPT_KEYWORDS=\"x86\"\n")
	writeFile(t, filepath.Join(arch, ParentFile), "# comment\n\n../../base\n")
	writeFile(t, filepath.Join(root, "etc/make.globals"), "PORTDIR=\"/usr/portage\"\nFEATURES=\"-sandbox distlocks\"\n")
	writeFile(t, filepath.Join(root, "etc/make.conf"), "USE=\"-a\"\nACCEPT_KEYWORDS=\"~x86\"\nPORTDIR_OVERLAY=\"/usr/local/portage ${PORTDIR}\"\n")
	require.NoError(t, os.Symlink(arch, filepath.Join(root, "etc/make.profile")))

	s := New(root)
	require.NoError(t, s.LoadProfile())
	assert.ElementsMatch(t, []string{"b", "c"}, s.Tokens("USE"))
	// the child is read first, its parent overwrites plain variables
	assert.Equal(t, "base", s.Value("CHOST"))
	assert.Equal(t, []string{arch, base}, s.Profiles())
	assert.Equal(t, []string{"distlocks"}, s.Tokens("FEATURES"))
	assert.Equal(t, []string{"x86", "~x86"}, s.AcceptKeywords())
	assert.Equal(t, "~x86", s.Arch())
	assert.Equal(t, "/usr/portage", s.PortDir())
	assert.Equal(t, []string{"/usr/local/portage"}, s.Overlays())
	assert.Equal(t, filepath.Join(root, "var/cache/edb/dep/usr/portage"), s.CacheDir())
	assert.Equal(t, filepath.Join(root, "var/db/pkg"), s.InstalledDir())
}

func TestLoadProfileMissingLink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "etc/make.conf"), "ARCH=\"amd64\"\n")
	s := New(root)
	err := s.LoadProfile()
	assert.True(t, portage.IsNotFound(err))
	assert.Equal(t, "amd64", s.Value("ARCH"))
}

func TestArchTesting(t *testing.T) {
	s := New("")
	s.SetValue("ARCH", "x86")
	s.SetValue("ACCEPT_KEYWORDS", "x86 ~x86")
	assert.Equal(t, "~x86", s.Arch())

	s = New("")
	s.SetValue("ACCEPT_KEYWORDS", "amd64")
	assert.Equal(t, "amd64", s.Arch())
}

func TestReposConf(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ReposConf, "gentoo.conf"), "[DEFAULT]\nmain-repo = gentoo\n\n[gentoo]\nlocation = /var/db/repos/gentoo\n")
	writeFile(t, filepath.Join(root, ReposConf, "local.conf"), "[local]\nlocation = /var/db/repos/local\n")
	s := New(root)
	assert.Equal(t, "/var/db/repos/gentoo", s.PortDir())
	assert.Equal(t, []string{"/var/db/repos/local"}, s.Overlays())
}

func TestReposConfSkipsRepoWithoutLocation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ReposConf, "a.conf"), "[DEFAULT]\nmain-repo = gentoo\n\n[gentoo]\nlocation = /var/db/repos/gentoo/\n")
	writeFile(t, filepath.Join(root, ReposConf, "b.conf"), "[broken]\nsync-type = git\n\n[extra]\nlocation = /srv/extra\n")
	s := New(root)
	assert.Equal(t, "/var/db/repos/gentoo", s.PortDir())
	assert.Equal(t, []string{"/srv/extra"}, s.Overlays())
}
