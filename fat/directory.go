package fat

import (
	"github.com/rstms/fatvfs"
)

// Directory reads and writes directory blocks as arrays of fixed-size
// record slots.
type Directory struct {
	device fatvfs.BlockDevice
}

// Capacity is the number of record slots in one directory block.
func (d *Directory) Capacity() int {
	return d.device.BlockSize() / RecordSize
}

// Load decodes every slot of a directory block.
func (d *Directory) Load(block int) ([]Slot, error) {
	buf := make([]byte, d.device.BlockSize())
	if err := d.device.ReadBlock(block, buf); err != nil {
		return nil, deviceError("read directory", block, err)
	}
	return decodeSlots(buf), nil
}

func (d *Directory) save(block int, slots []Slot) error {
	if err := d.device.WriteBlock(block, encodeSlots(slots, d.device.BlockSize())); err != nil {
		return deviceError("write directory", block, err)
	}
	return nil
}

// Init writes an empty directory block.
func (d *Directory) Init(block int) error {
	return d.save(block, nil)
}

// Find returns the record called name, with ok false when there is none.
func (d *Directory) Find(block int, name string) (Record, bool, error) {
	slots, err := d.Load(block)
	if err != nil {
		return Record{}, false, err
	}
	for _, s := range slots {
		if s.Used && s.Name == name {
			return s.Record, true, nil
		}
	}
	return Record{}, false, nil
}

// Insert stores rec in the first empty slot.
func (d *Directory) Insert(block int, rec Record) error {
	if rec.Name == "" {
		return newError(KindInvalid, "", "cannot insert a record without a name")
	}
	slots, err := d.Load(block)
	if err != nil {
		return err
	}
	for i := range slots {
		if !slots[i].Used {
			slots[i] = Slot{Record: rec, Used: true}
			return d.save(block, slots)
		}
	}
	return newError(KindDirFull, rec.Name, "directory block %d has no free slot", block)
}

// Update overwrites the slot holding old's name with rec; a rec without a
// name empties the slot. When no slot carries old's name nothing is
// changed and Update still succeeds: callers update records they have just
// looked up.
func (d *Directory) Update(block int, old Record, rec Record) error {
	slots, err := d.Load(block)
	if err != nil {
		return err
	}
	for i := range slots {
		if slots[i].Used && slots[i].Name == old.Name {
			slots[i] = Slot{Record: rec, Used: rec.Name != ""}
			break
		}
	}
	return d.save(block, slots)
}

// Remove empties the slot holding rec's name.
func (d *Directory) Remove(block int, rec Record) error {
	return d.Update(block, rec, Record{})
}

// IsEmpty reports whether dir holds nothing but its back-reference.
func (d *Directory) IsEmpty(dir Record) (bool, error) {
	slots, err := d.Load(int(dir.FirstBlock))
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.Used && s.Name != ParentName {
			return false, nil
		}
	}
	return true, nil
}

// Entries returns the used records of a directory block in slot order.
func (d *Directory) Entries(block int) ([]Record, error) {
	slots, err := d.Load(block)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(slots))
	for _, s := range slots {
		if s.Used {
			records = append(records, s.Record)
		}
	}
	return records, nil
}
