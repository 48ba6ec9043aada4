package grab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrabFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "package.mask")
	require.NoError(t, os.WriteFile(f, []byte("# comment\n\n>=sys-apps/portage-2.1 # trailing\n  app-misc/foo  \n"), 0644))

	lines := GrabFile(f, false)
	require.Len(t, lines, 2)
	assert.Equal(t, ">=sys-apps/portage-2.1", lines[0].Text)
	assert.Equal(t, 3, lines[0].Num)
	assert.Equal(t, "app-misc/foo", lines[1].Text)
	assert.Equal(t, f, lines[1].Source)

	assert.Empty(t, GrabFile(filepath.Join(dir, "missing"), false))
}

func TestGrabFileRecursive(t *testing.T) {
	dir := t.TempDir()
	d := filepath.Join(dir, "package.keywords")
	require.NoError(t, os.MkdirAll(filepath.Join(d, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(d, "b"), []byte("app-misc/b ~x86\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(d, "a"), []byte("app-misc/a ~x86\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(d, "a~"), []byte("app-misc/backup\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(d, ".git", "x"), []byte("app-misc/git\n"), 0644))

	lines := GrabFile(d, true)
	require.Len(t, lines, 2)
	assert.Equal(t, "app-misc/a ~x86", lines[0].Text)
	assert.Equal(t, "app-misc/b ~x86", lines[1].Text)
}

func TestGrabDict(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "package.keywords")
	require.NoError(t, os.WriteFile(f, []byte("app-misc/a ~x86\napp-misc/b\napp-misc/a ~ppc\n"), 0644))

	d, order := GrabDict(f, false, true)
	assert.Equal(t, []string{"app-misc/a", "app-misc/b"}, order)
	assert.Equal(t, []string{"~x86", "~ppc"}, d["app-misc/a"])
	assert.Equal(t, []string{}, d["app-misc/b"])

	d, _ = GrabDict(f, false, false)
	_, ok := d["app-misc/b"]
	assert.False(t, ok)
}
