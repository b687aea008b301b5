package fat

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rstms/fatvfs"
	"github.com/stretchr/testify/require"
)

const (
	testBlockSize  = 512
	testBlockCount = 64
)

var errFault = errors.New("injected device fault")

// faultDisk fails reads or writes of selected blocks.
type faultDisk struct {
	*fatvfs.MemDisk
	failRead  map[int]bool
	failWrite map[int]bool
}

func newFaultDisk(blockSize, blockCount int) *faultDisk {
	return &faultDisk{
		MemDisk:   fatvfs.NewMemDisk(blockSize, blockCount),
		failRead:  map[int]bool{},
		failWrite: map[int]bool{},
	}
}

func (d *faultDisk) ReadBlock(index int, buf []byte) error {
	if d.failRead[index] {
		return errFault
	}
	return d.MemDisk.ReadBlock(index, buf)
}

func (d *faultDisk) WriteBlock(index int, buf []byte) error {
	if d.failWrite[index] {
		return errFault
	}
	return d.MemDisk.WriteBlock(index, buf)
}

func newTestFS(t *testing.T, input string) (*FileSystem, *bytes.Buffer, *faultDisk) {
	disk := newFaultDisk(testBlockSize, testBlockCount)
	out := new(bytes.Buffer)
	f, err := New(disk, WithInput(strings.NewReader(input)), WithOutput(out))
	require.Nil(t, err)
	require.Nil(t, f.Format())
	return f, out, disk
}

// snapshot copies every block of the device.
func snapshot(t *testing.T, dev fatvfs.BlockDevice) [][]byte {
	blocks := make([][]byte, dev.BlockCount())
	for i := range blocks {
		blocks[i] = make([]byte, dev.BlockSize())
		require.Nil(t, dev.ReadBlock(i, blocks[i]))
	}
	return blocks
}

func cat(t *testing.T, f *FileSystem, out *bytes.Buffer, path string) string {
	out.Reset()
	require.Nil(t, f.Cat(path))
	return out.String()
}

func lookup(t *testing.T, f *FileSystem, path string) Record {
	target, err := f.existing(path)
	require.Nil(t, err)
	return target.Record
}
