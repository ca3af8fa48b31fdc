package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_ReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.html")
	require.NoError(t, WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, WriteFile(path, []byte("new"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	assertNoTemps(t, filepath.Dir(path))
}

func TestWriteFile_RelativePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, WriteFile("servers.dump", []byte("x"), 0o600))

	got, err := os.ReadFile("servers.dump")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestWriteFunc_FailureKeepsOldFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.dump")
	require.NoError(t, WriteFile(path, []byte("v1"), 0o600))

	boom := errors.New("disk full")
	err := WriteFunc(path, 0o600, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := os.ReadFile(path)
	assert.Equal(t, "v1", string(got), "old content survives a failed write")
	assertNoTemps(t, filepath.Dir(path))
}

func TestWriteFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "x.html")
	assert.Error(t, WriteFile(path, []byte("x"), 0o644))
}

func TestSyncDir(t *testing.T) {
	assert.NoError(t, syncDir(t.TempDir()))
	assert.Error(t, syncDir(filepath.Join(t.TempDir(), "gone")))
}

func TestPublish_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.html")
	body := []byte("<html>servers</html>")
	require.NoError(t, Publish(path, body, true))

	plain, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, plain)

	f, err := os.Open(path + GzipSuffix)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	unz, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, body, unz)
	assert.Equal(t, "servers.html", zr.Name)
}

func TestPublish_Uncompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.xml")
	require.NoError(t, Publish(path, []byte("<servers/>"), false))
	assert.NoFileExists(t, path+GzipSuffix)
}

func TestRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmppscan.log")
	write := func(p, s string) { require.NoError(t, os.WriteFile(p, []byte(s), 0o600)) }
	read := func(p string) string {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		return string(b)
	}

	write(path, "run1")
	require.NoError(t, Rotate(path, 2))
	assert.NoFileExists(t, path)
	assert.Equal(t, "run1", read(path+".1"))

	write(path, "run2")
	require.NoError(t, Rotate(path, 2))
	write(path, "run3")
	require.NoError(t, Rotate(path, 2))

	assert.Equal(t, "run3", read(path+".1"))
	assert.Equal(t, "run2", read(path+".2"))
	assert.NoFileExists(t, path+".3", "only keep backups are retained")
}

func TestRotate_NothingToRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmppscan.log")
	assert.NoError(t, Rotate(path, 10))
	assert.NoError(t, Rotate(path, 0))
}

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, matches, "temporary files left behind")
}
