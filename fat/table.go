package fat

import (
	"encoding/binary"

	"github.com/rstms/fatvfs"
)

const (
	// RootBlock holds the root directory records.
	RootBlock = 0
	// TableBlock holds the serialized allocation table.
	TableBlock = 1
)

// Allocation table link values. Any other value is the index of the
// next block in the chain.
const (
	Free int16 = 0
	EOF  int16 = -1
)

// Table is the in-memory allocation table mirrored to TableBlock. Every
// mutation is written through to the device before it returns.
type Table struct {
	device  fatvfs.BlockDevice
	entries []int16

	// the reserved slots may each be initialized exactly once per Table
	rootSet  bool
	tableSet bool
}

// tableLen is the number of addressable blocks: one int16 slot per block,
// bounded by what fits in the table block.
func tableLen(device fatvfs.BlockDevice) int {
	n := device.BlockSize() / 2
	if device.BlockCount() < n {
		n = device.BlockCount()
	}
	return n
}

// NewTable returns an empty table for device. Nothing is written until the
// first Set.
func NewTable(device fatvfs.BlockDevice) *Table {
	return &Table{
		device:  device,
		entries: make([]int16, tableLen(device)),
	}
}

// LoadTable decodes the table stored on device. A table whose reserved
// slots are already EOF counts as initialized.
func LoadTable(device fatvfs.BlockDevice) (*Table, error) {
	t := NewTable(device)
	buf := make([]byte, device.BlockSize())
	if err := device.ReadBlock(TableBlock, buf); err != nil {
		return nil, deviceError("read table", TableBlock, err)
	}
	for i := range t.entries {
		t.entries[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	t.rootSet = t.entries[RootBlock] == EOF
	t.tableSet = t.entries[TableBlock] == EOF
	return t, nil
}

// Formatted reports whether both reserved blocks are marked in use.
func (t *Table) Formatted() bool {
	return t.rootSet && t.tableSet &&
		t.entries[RootBlock] == EOF && t.entries[TableBlock] == EOF
}

// Len is the number of addressable blocks.
func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) encode() []byte {
	buf := make([]byte, t.device.BlockSize())
	for i, v := range t.entries {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func (t *Table) persist() error {
	if err := t.device.WriteBlock(TableBlock, t.encode()); err != nil {
		return deviceError("write table", TableBlock, err)
	}
	return nil
}

func (t *Table) claimReserved(index int) error {
	switch index {
	case RootBlock:
		if t.rootSet {
			return newError(KindReserved, "", "root block slot already initialized")
		}
		t.rootSet = true
	case TableBlock:
		if t.tableSet {
			return newError(KindReserved, "", "table block slot already initialized")
		}
		t.tableSet = true
	}
	return nil
}

// Set writes one slot and persists the whole table.
func (t *Table) Set(index int, value int16) error {
	if index < 0 || index >= len(t.entries) {
		return newError(KindRange, "", "table index %d out of range [0,%d)", index, len(t.entries))
	}
	if err := t.claimReserved(index); err != nil {
		return err
	}
	t.entries[index] = value
	return t.persist()
}

// format marks the reserved blocks EOF and every other block free.
func (t *Table) format() error {
	if err := t.Set(RootBlock, EOF); err != nil {
		return err
	}
	if err := t.Set(TableBlock, EOF); err != nil {
		return err
	}
	for i := TableBlock + 1; i < len(t.entries); i++ {
		t.entries[i] = Free
	}
	return t.persist()
}

// Next returns the link stored for block.
func (t *Table) Next(block int) int16 {
	if block < 0 || block >= len(t.entries) {
		return EOF
	}
	return t.entries[block]
}

func (t *Table) IsFree(block int) bool {
	return t.Next(block) == Free
}

// FreeCount is the number of unallocated blocks.
func (t *Table) FreeCount() int {
	n := 0
	for _, v := range t.entries {
		if v == Free {
			n++
		}
	}
	return n
}

// freeBlocks returns the count lowest-indexed free blocks.
func (t *Table) freeBlocks(count int) ([]int, error) {
	if count <= 0 {
		return nil, newError(KindInvalid, "", "cannot allocate %d blocks", count)
	}
	blocks := make([]int, 0, count)
	for i, v := range t.entries {
		if len(blocks) == count {
			break
		}
		if v == Free {
			blocks = append(blocks, i)
		}
	}
	if len(blocks) < count {
		return nil, newError(KindNoSpace, "", "need %d blocks, %d free", count, len(blocks))
	}
	return blocks, nil
}

// link chains blocks in order and terminates the chain with EOF.
func (t *Table) link(blocks []int) error {
	for i, block := range blocks {
		next := EOF
		if i < len(blocks)-1 {
			next = int16(blocks[i+1])
		}
		if err := t.Set(block, next); err != nil {
			return err
		}
	}
	return nil
}

// Allocate links count free blocks into a new chain and returns its head.
// A failed write part way through leaves the earlier links in place.
func (t *Table) Allocate(count int) (int, error) {
	blocks, err := t.freeBlocks(count)
	if err != nil {
		return 0, err
	}
	if err := t.link(blocks); err != nil {
		return 0, err
	}
	return blocks[0], nil
}

// Tail walks forward from any member of a chain to its EOF block.
func (t *Table) Tail(member int) int {
	block := member
	for steps := 0; steps < len(t.entries); steps++ {
		next := t.Next(block)
		if next == EOF || next == Free {
			break
		}
		block = int(next)
	}
	return block
}

// Extend appends count new blocks to the chain containing member.
func (t *Table) Extend(count int, member int) error {
	blocks, err := t.freeBlocks(count)
	if err != nil {
		return err
	}
	if err := t.Set(t.Tail(member), int16(blocks[0])); err != nil {
		return err
	}
	return t.link(blocks)
}

// Chain returns the blocks of the chain starting at head, in order.
func (t *Table) Chain(head int) []int {
	var blocks []int
	block := head
	for steps := 0; steps < len(t.entries); steps++ {
		blocks = append(blocks, block)
		next := t.Next(block)
		if next == EOF || next == Free {
			break
		}
		block = int(next)
	}
	return blocks
}

// Release returns every block of the chain at head to the free list, one
// block at a time. wipe is called on each block first; a wipe failure does
// not stop the table from being reclaimed.
func (t *Table) Release(head int, wipe func(block int) error) error {
	if head == RootBlock || head == TableBlock {
		return newError(KindReserved, "", "cannot release reserved block %d", head)
	}
	for _, block := range t.Chain(head) {
		if wipe != nil {
			_ = wipe(block)
		}
		if err := t.Set(block, Free); err != nil {
			return err
		}
	}
	return nil
}
