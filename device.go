package fatvfs

import (
	"errors"
)

var (
	ErrBlockRange = errors.New("block index out of range")
	ErrBlockSize  = errors.New("buffer length does not match block size")
)

// BlockDevice is fixed-size block storage addressed by index. Reads and
// writes always transfer exactly one whole block.
type BlockDevice interface {
	BlockSize() int
	BlockCount() int
	ReadBlock(index int, buf []byte) error
	WriteBlock(index int, buf []byte) error
}

// CheckBlock validates an index and buffer against a device's geometry.
func CheckBlock(dev BlockDevice, index int, buf []byte) error {
	if index < 0 || index >= dev.BlockCount() {
		return ErrBlockRange
	}
	if len(buf) != dev.BlockSize() {
		return ErrBlockSize
	}
	return nil
}
