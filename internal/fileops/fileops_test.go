package fileops

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/localvault/internal/model"
)

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Equal(t, filepath.Join(home, ".kube", "config"), ExpandPath("~/.kube/config"))
	require.Equal(t, home, ExpandPath("~"))
	require.Equal(t, "/etc/hosts", ExpandPath("/etc/hosts"))
	require.Equal(t, "relative/~/x", ExpandPath("relative/~/x"))
	require.Equal(t, "~user/x", ExpandPath("~user/x"))
}

func TestActivateFile_WritesOwnerOnly(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "nested", "dir", "kubeconfig")
	require.NoError(t, ActivateFile(p, []byte("apiVersion: v1")))

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, "apiVersion: v1", string(got))

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(p)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
}

func TestActivateFile_OverwritesExisting(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(p, []byte("a much longer previous content"), 0o644))

	require.NoError(t, ActivateFile(p, []byte("new")))

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, "new", string(got))

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(p)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
}

func TestActivateFile_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, ActivateFile("~/.ssh/id_ed25519", []byte("key")))

	got, err := os.ReadFile(filepath.Join(home, ".ssh", "id_ed25519"))
	require.NoError(t, err)
	require.Equal(t, "key", string(got))
}

func TestActivateFile_ParentIsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	require.Error(t, ActivateFile(filepath.Join(blocker, "child"), []byte("x")))
}

func TestSecureDelete_RemovesFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(p, make([]byte, 3*wipeChunk+17), 0o600))

	require.True(t, SecureDelete(p))
	_, err := os.Stat(p)
	require.True(t, os.IsNotExist(err))
}

func TestSecureDelete_MissingFileIsSilent(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		require.True(t, SecureDelete(filepath.Join(t.TempDir(), "nope")))
	})
}

func TestSecureDelete_NonEmptyDirIsSwallowed(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "d")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inner"), 0o700))

	require.NotPanics(t, func() {
		require.False(t, SecureDelete(dir))
	})
	_, err := os.Stat(dir)
	require.NoError(t, err)
}

func TestSecureDelete_EmptyDirIsKept(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.Mkdir(dir, 0o700))

	require.False(t, SecureDelete(dir))
	fi, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestSecureDelete_SymlinkTargetUntouched(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("keep me"), 0o600))
	require.NoError(t, os.Symlink(target, link))

	require.True(t, SecureDelete(link))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "keep me", string(got))
}

func TestDeactivateAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var pairs []model.ActivePath
	for _, name := range []string{"a", "b", "c"} {
		p := filepath.Join(dir, name)
		require.NoError(t, ActivateFile(p, []byte(name)))
		pairs = append(pairs, model.ActivePath{ID: name, FilePath: p})
	}
	pairs = append(pairs, model.ActivePath{ID: "missing", FilePath: filepath.Join(dir, "missing")})

	require.Equal(t, 4, DeactivateAll(pairs))
	for _, ap := range pairs {
		_, err := os.Stat(ap.FilePath)
		require.True(t, os.IsNotExist(err), ap.FilePath)
	}

	require.Equal(t, 0, DeactivateAll(nil))
}
