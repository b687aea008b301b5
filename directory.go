package fatvfs

import (
	"fmt"
)

// Rights is the advisory access bitmask stored on every directory record.
type Rights uint8

const (
	RightExecute Rights = 0x01
	RightWrite   Rights = 0x02
	RightRead    Rights = 0x04
	RightAll            = RightRead | RightWrite | RightExecute
)

// Has reports whether every bit of mask is set.
func (r Rights) Has(mask Rights) bool {
	return r&mask == mask
}

// String renders the bits as "rwx" with '-' for absent bits.
func (r Rights) String() string {
	b := []byte("---")
	if r.Has(RightRead) {
		b[0] = 'r'
	}
	if r.Has(RightWrite) {
		b[1] = 'w'
	}
	if r.Has(RightExecute) {
		b[2] = 'x'
	}
	return string(b)
}

// EntryType tags a directory record as a file or a directory.
type EntryType uint8

const (
	TypeFile      EntryType = 0
	TypeDirectory EntryType = 1
)

func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "dir"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}
