package fatvfs

// MemDisk is a BlockDevice held entirely in memory.
type MemDisk struct {
	blockSize int
	blocks    [][]byte
}

// ensure MemDisk implements BlockDevice
var _ BlockDevice = (*MemDisk)(nil)

func NewMemDisk(blockSize, blockCount int) *MemDisk {
	d := &MemDisk{
		blockSize: blockSize,
		blocks:    make([][]byte, blockCount),
	}
	for i := range d.blocks {
		d.blocks[i] = make([]byte, blockSize)
	}
	return d
}

func (d *MemDisk) BlockSize() int {
	return d.blockSize
}

func (d *MemDisk) BlockCount() int {
	return len(d.blocks)
}

func (d *MemDisk) ReadBlock(index int, buf []byte) error {
	if err := CheckBlock(d, index, buf); err != nil {
		return err
	}
	copy(buf, d.blocks[index])
	return nil
}

func (d *MemDisk) WriteBlock(index int, buf []byte) error {
	if err := CheckBlock(d, index, buf); err != nil {
		return err
	}
	copy(d.blocks[index], buf)
	return nil
}
