package image

import (
	"context"
	"os"

	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/fat"
	"golang.org/x/sys/unix"
)

// Image is a volume stored in a host file of blockSize*blockCount bytes.
// The file is held under an exclusive advisory lock while open.
type Image struct {
	Filename   string
	file       *os.File
	blockSize  int
	blockCount int
	fs         *fat.FileSystem
}

// ensure Image implements fatvfs.BlockDevice
var _ fatvfs.BlockDevice = (*Image)(nil)

// OpenImage opens an existing image, deriving the block count from the file
// size. An unformatted image opens successfully and accepts only Format.
func OpenImage(filename string, blockSize int, opts ...fat.Option) (*Image, error) {
	if !IsFile(filename) {
		return nil, Fatalf("image not found: %s", filename)
	}
	if blockSize <= 0 {
		return nil, Fatalf("invalid block size %d", blockSize)
	}
	i := Image{Filename: filename, blockSize: blockSize}
	var err error
	i.file, err = os.OpenFile(filename, os.O_RDWR, 0600)
	if err != nil {
		return nil, hostError("open", filename, err)
	}
	info, err := i.file.Stat()
	if err != nil {
		i.file.Close()
		return nil, hostError("stat", filename, err)
	}
	if info.Size()%int64(blockSize) != 0 {
		i.file.Close()
		return nil, Fatalf("%s: size %d is not a multiple of block size %d", filename, info.Size(), blockSize)
	}
	i.blockCount = int(info.Size() / int64(blockSize))
	err = i.lock()
	if err != nil {
		i.file.Close()
		return nil, err
	}
	i.fs, err = fat.New(&i, opts...)
	if err != nil {
		i.Close()
		return nil, err
	}
	return &i, nil
}

// CreateImage creates or truncates filename to hold blockCount blocks and
// formats the volume.
func CreateImage(filename string, blockSize, blockCount int, opts ...fat.Option) (*Image, error) {
	if blockSize <= 0 || blockCount <= 0 {
		return nil, Fatalf("invalid geometry %dx%d", blockSize, blockCount)
	}
	i := Image{Filename: filename, blockSize: blockSize, blockCount: blockCount}
	err := i.createImageFile(int64(blockSize) * int64(blockCount))
	if err != nil {
		return nil, err
	}
	err = i.lock()
	if err != nil {
		i.file.Close()
		return nil, err
	}
	i.fs, err = fat.New(&i, opts...)
	if err != nil {
		i.Close()
		return nil, err
	}
	err = i.fs.Format()
	if err != nil {
		i.Close()
		return nil, err
	}
	return &i, nil
}

// create, truncate, and reopen the output file
func (i *Image) createImageFile(size int64) error {
	var err error
	i.file, err = os.OpenFile(i.Filename, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return hostError("create", i.Filename, err)
	}
	err = i.file.Truncate(size)
	if err != nil {
		i.file.Close()
		return hostError("truncate", i.Filename, err)
	}
	return nil
}

func (i *Image) lock() error {
	err := unix.Flock(int(i.file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		return hostError("lock", i.Filename, err)
	}
	return nil
}

// FS returns the file system stored in the image.
func (i *Image) FS() *fat.FileSystem {
	return i.fs
}

func (i *Image) BlockSize() int {
	return i.blockSize
}

func (i *Image) BlockCount() int {
	return i.blockCount
}

func (i *Image) ReadBlock(index int, buf []byte) error {
	if err := fatvfs.CheckBlock(i, index, buf); err != nil {
		return err
	}
	_, err := i.file.ReadAt(buf, int64(index)*int64(i.blockSize))
	if err != nil {
		return hostError("read", i.Filename, err)
	}
	return nil
}

func (i *Image) WriteBlock(index int, buf []byte) error {
	if err := fatvfs.CheckBlock(i, index, buf); err != nil {
		return err
	}
	_, err := i.file.WriteAt(buf, int64(index)*int64(i.blockSize))
	if err != nil {
		return hostError("write", i.Filename, err)
	}
	return nil
}

// Sync flushes the image file to stable storage.
func (i *Image) Sync() error {
	if i.file == nil {
		return nil
	}
	err := unix.Fsync(int(i.file.Fd()))
	if err != nil {
		return Fatal(err)
	}
	return nil
}

func (i *Image) closeFile() error {
	if i.file != nil {
		fd := int(i.file.Fd())
		syncErr := unix.Fsync(fd)
		unix.Flock(fd, unix.LOCK_UN)
		err := i.file.Close()
		i.file = nil
		if syncErr != nil {
			return Fatal(syncErr)
		}
		if err != nil {
			return Fatal(err)
		}
	}
	return nil
}

func (i *Image) Close() error {
	return i.closeFile()
}

// ScanFiles lists every file and directory in the volume, parents before
// their contents.
func (i *Image) ScanFiles() ([]FileRecord, error) {
	return ScanFS(i.fs)
}

// IsDir reports whether name is an existing directory in the volume.
func (i *Image) IsDir(name string) (bool, error) {
	if name == "/" {
		return true, nil
	}
	_, err := i.fs.ReadDir(name)
	switch fat.KindOf(err) {
	case fat.KindUnknown:
		if err != nil {
			return false, err
		}
		return true, nil
	case fat.KindNotFound, fat.KindNotDir:
		return false, nil
	}
	return false, err
}

// AddFile copies the host file srcPathname to dstPathname in the volume.
func (i *Image) AddFile(dstPathname, srcPathname string) error {
	data, err := os.ReadFile(srcPathname)
	if err != nil {
		return Fatal(err)
	}
	return i.fs.WriteFile(dstPathname, data)
}

// Import writes every directory and file below hostDir into the volume
// root.
func (i *Image) Import(ctx context.Context, hostDir string) error {
	return ImportTree(ctx, i.fs, hostDir)
}

// Export writes the volume tree below hostDir.
func (i *Image) Export(ctx context.Context, hostDir string) error {
	return ExportTree(ctx, i.fs, hostDir)
}
