package fat

import (
	"bytes"
	"encoding/binary"

	"github.com/rstms/fatvfs"
)

const (
	// NameSize is the capacity of the name field, terminator included
	// when the name is shorter.
	NameSize = 56
	// RecordSize is the on-disk size of one directory record.
	RecordSize = 64

	offSize       = NameSize
	offFirstBlock = offSize + 4
	offType       = offFirstBlock + 2
	offRights     = offType + 1
)

// ParentName is the back-reference record every non-root directory holds.
const ParentName = ".."

// Record describes one file or directory.
type Record struct {
	Name       string
	Size       uint32
	FirstBlock uint16
	Type       fatvfs.EntryType
	Rights     fatvfs.Rights
}

func (r Record) IsDir() bool {
	return r.Type == fatvfs.TypeDirectory
}

// Slot is one record position in a directory block: either Used and
// holding Record, or empty. On disk an empty slot is a record whose first
// name byte is zero.
type Slot struct {
	Record
	Used bool
}

func decodeSlot(b []byte) Slot {
	if b[0] == 0 {
		return Slot{}
	}
	name := b[:NameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return Slot{
		Used: true,
		Record: Record{
			Name:       string(name),
			Size:       binary.LittleEndian.Uint32(b[offSize:]),
			FirstBlock: binary.LittleEndian.Uint16(b[offFirstBlock:]),
			Type:       fatvfs.EntryType(b[offType]),
			Rights:     fatvfs.Rights(b[offRights]),
		},
	}
}

// encode writes the slot into b, which must be RecordSize bytes. Empty
// slots are zeroed.
func (s Slot) encode(b []byte) {
	clear(b[:RecordSize])
	if !s.Used {
		return
	}
	copy(b[:NameSize], s.Name)
	binary.LittleEndian.PutUint32(b[offSize:], s.Size)
	binary.LittleEndian.PutUint16(b[offFirstBlock:], s.FirstBlock)
	b[offType] = byte(s.Type)
	b[offRights] = byte(s.Rights)
}

func decodeSlots(buf []byte) []Slot {
	slots := make([]Slot, len(buf)/RecordSize)
	for i := range slots {
		slots[i] = decodeSlot(buf[i*RecordSize:])
	}
	return slots
}

func encodeSlots(slots []Slot, blockSize int) []byte {
	buf := make([]byte, blockSize)
	for i, s := range slots {
		s.encode(buf[i*RecordSize:])
	}
	return buf
}

// ParentRecordName scans a parent's slots for the record whose chain starts
// at child and returns its name. The back-reference is never a match.
func ParentRecordName(slots []Slot, child uint16) (string, bool) {
	for _, s := range slots {
		if s.Used && s.Name != ParentName && s.FirstBlock == child {
			return s.Name, true
		}
	}
	return "", false
}
