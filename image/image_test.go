package image

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/fat"
	"github.com/stretchr/testify/require"
)

const (
	testBlockSize  = 512
	testBlockCount = 64
)

func testImage(t *testing.T) (*Image, string) {
	filename := filepath.Join(t.TempDir(), "test.img")
	i, err := CreateImage(filename, testBlockSize, testBlockCount)
	require.Nil(t, err)
	t.Cleanup(func() { i.Close() })
	return i, filename
}

func writeHostFile(t *testing.T, filename, data string) {
	require.Nil(t, os.MkdirAll(filepath.Dir(filename), 0700))
	require.Nil(t, os.WriteFile(filename, []byte(data), 0600))
}

func TestImageCreateOpen(t *testing.T) {
	i, filename := testImage(t)
	info, err := os.Stat(filename)
	require.Nil(t, err)
	require.Equal(t, int64(testBlockSize*testBlockCount), info.Size())

	require.Nil(t, i.FS().Mkdir("/files"))
	require.Nil(t, i.FS().WriteFile("/files/howdy", []byte("howdy howdy howdy")))
	require.Nil(t, i.Close())

	reopened, err := OpenImage(filename, testBlockSize)
	require.Nil(t, err)
	defer reopened.Close()
	require.Equal(t, testBlockCount, reopened.BlockCount())

	data, err := reopened.FS().ReadFile("/files/howdy")
	require.Nil(t, err)
	require.Equal(t, "howdy howdy howdy", string(data))
}

func TestImageLocked(t *testing.T) {
	_, filename := testImage(t)
	_, err := OpenImage(filename, testBlockSize)
	require.Error(t, err)
}

func TestImageOpenErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenImage(filepath.Join(dir, "missing.img"), testBlockSize)
	require.Error(t, err)

	odd := filepath.Join(dir, "odd.img")
	writeHostFile(t, odd, "not a whole block")
	_, err = OpenImage(odd, testBlockSize)
	require.Error(t, err)
}

func TestImageOpenUnformatted(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "blank.img")
	require.Nil(t, os.WriteFile(filename, make([]byte, testBlockSize*testBlockCount), 0600))

	i, err := OpenImage(filename, testBlockSize)
	require.Nil(t, err)
	defer i.Close()
	require.ErrorIs(t, i.FS().Ls(), fat.ErrNotFormatted)
	require.Nil(t, i.FS().Format())
	require.Nil(t, i.FS().Ls())
}

func TestImageBlockIO(t *testing.T) {
	i, _ := testImage(t)
	buf := make([]byte, testBlockSize)
	buf[0] = 0x42
	require.Nil(t, i.WriteBlock(testBlockCount-1, buf))

	got := make([]byte, testBlockSize)
	require.Nil(t, i.ReadBlock(testBlockCount-1, got))
	require.Equal(t, buf, got)

	require.ErrorIs(t, i.ReadBlock(testBlockCount, got), fatvfs.ErrBlockRange)
	require.ErrorIs(t, i.WriteBlock(0, buf[:10]), fatvfs.ErrBlockSize)
	require.Nil(t, i.Sync())
}

func TestImageScanFiles(t *testing.T) {
	i, _ := testImage(t)
	fs := i.FS()
	require.Nil(t, fs.WriteFile("/foo", []byte("foo")))
	require.Nil(t, fs.Mkdir("/sub"))
	require.Nil(t, fs.WriteFile("/sub/bar", []byte("barbar")))
	require.Nil(t, fs.Chmod("4", "/sub/bar"))

	records, err := i.ScanFiles()
	require.Nil(t, err)
	require.Equal(t, []FileRecord{
		{Name: "/foo", Rights: fat.DefaultRights, Size: 3},
		{Name: "/sub", Dir: true},
		{Name: "/sub/bar", Rights: fatvfs.RightRead, Size: 6},
	}, records)

	ok, err := i.IsDir("/sub")
	require.Nil(t, err)
	require.True(t, ok)
	ok, err = i.IsDir("/foo")
	require.Nil(t, err)
	require.False(t, ok)
	ok, err = i.IsDir("/nothing")
	require.Nil(t, err)
	require.False(t, ok)
	ok, err = i.IsDir("/")
	require.Nil(t, err)
	require.True(t, ok)
}

func TestImageImportExport(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeHostFile(t, filepath.Join(src, "foo"), "foo data\n")
	writeHostFile(t, filepath.Join(src, "sub", "bar"), "bar data\n")
	writeHostFile(t, filepath.Join(src, "sub", "deeper", "baz"), "")
	writeHostFile(t, filepath.Join(src, "sub", "raw"), "a\x00bc\x00")

	i, _ := testImage(t)
	require.Nil(t, i.Import(ctx, src))

	data, err := i.FS().ReadFile("/sub/deeper/baz")
	require.Nil(t, err)
	require.Empty(t, data)

	dst := filepath.Join(t.TempDir(), "out")
	require.Nil(t, i.Export(ctx, dst))
	for _, name := range []string{"foo", "sub/bar", "sub/deeper/baz", "sub/raw"} {
		want, err := os.ReadFile(filepath.Join(src, name))
		require.Nil(t, err)
		got, err := os.ReadFile(filepath.Join(dst, name))
		require.Nil(t, err)
		require.Equal(t, want, got, name)
	}
}

func TestImageImportInvalidName(t *testing.T) {
	src := t.TempDir()
	writeHostFile(t, filepath.Join(src, "foo.txt"), "x")

	i, _ := testImage(t)
	err := i.Import(context.Background(), src)
	require.ErrorIs(t, err, fat.ErrInvalid)
}

func TestRewriteImage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "src.img")
	dstFile := filepath.Join(dir, "dst.img")

	src, err := CreateImage(srcFile, testBlockSize, testBlockCount)
	require.Nil(t, err)
	require.Nil(t, src.FS().Mkdir("/d"))
	require.Nil(t, src.FS().WriteFile("/d/secret", []byte("hidden")))
	require.Nil(t, src.FS().Chmod("2", "/d/secret"))
	require.Nil(t, src.FS().Chmod("5", "/d"))
	want, err := src.ScanFiles()
	require.Nil(t, err)
	require.Nil(t, src.Close())

	require.Nil(t, RewriteImage(ctx, dstFile, srcFile, testBlockSize, 1024, 32))

	dst, err := OpenImage(dstFile, 1024)
	require.Nil(t, err)
	defer dst.Close()
	got, err := dst.ScanFiles()
	require.Nil(t, err)
	require.Equal(t, want, got)

	// rights on the source are restored after the copy
	src, err = OpenImage(srcFile, testBlockSize)
	require.Nil(t, err)
	defer src.Close()
	after, err := src.ScanFiles()
	require.Nil(t, err)
	require.Equal(t, want, after)
}

func TestImageAddFile(t *testing.T) {
	i, _ := testImage(t)
	host := filepath.Join(t.TempDir(), "howdy")
	writeHostFile(t, host, "howdy howdy howdy")

	require.Nil(t, i.FS().Mkdir("/files"))
	require.Nil(t, i.AddFile("/files/howdy", host))
	data, err := i.FS().ReadFile("/files/howdy")
	require.Nil(t, err)
	require.Equal(t, "howdy howdy howdy", string(data))

	require.Error(t, i.AddFile("/files/gone", filepath.Join(t.TempDir(), "gone")))
	require.ErrorIs(t, i.AddFile("/files/howdy", host), fat.ErrExists)
}
