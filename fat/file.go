package fat

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/pkg/logging/slogext"
)

// Create makes a file at path holding the next input line plus its
// terminator.
func (f *FileSystem) Create(path string) error {
	const op = "fat.FileSystem.Create"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Create", slog.String("path", path))

	if err := f.ready(); err != nil {
		return err
	}
	t, err := f.creatable(path)
	if err != nil {
		logger.Debug("Cannot create", slogext.Err(err))
		return err
	}

	line, err := f.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		logger.Error("Failed to read input", slogext.Err(err))
		return Fatal(err)
	}
	line = strings.TrimSuffix(line, "\n")

	if err := f.createFile(t, []byte(line+"\n")); err != nil {
		logger.Debug("Failed to create file", slogext.Err(err))
		return err
	}
	logger.Debug("File created successfully", slog.String("name", t.Name), slog.Int("size", len(line)+1))
	return nil
}

// WriteFile creates a file at path holding exactly data.
func (f *FileSystem) WriteFile(path string, data []byte) error {
	const op = "fat.FileSystem.WriteFile"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("WriteFile", slog.String("path", path), slog.Int("size", len(data)))

	if err := f.ready(); err != nil {
		return err
	}
	t, err := f.creatable(path)
	if err != nil {
		return err
	}
	return f.createFile(t, data)
}

// creatable resolves path and fails if it already names an entry.
func (f *FileSystem) creatable(path string) (Target, error) {
	t, err := f.parse(path)
	if err != nil {
		return Target{}, err
	}
	if t.Exists {
		return Target{}, newError(KindExists, path, "")
	}
	if err := newName(path, t.Name); err != nil {
		return Target{}, err
	}
	return t, nil
}

func (f *FileSystem) createFile(t Target, data []byte) error {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return newError(KindNoSpace, t.Path.Raw, "file too large")
	}
	head, err := f.table.Allocate(f.blocksFor(len(data)))
	if err != nil {
		return err
	}
	if err := f.writeChain(head, data); err != nil {
		f.discard(head)
		return err
	}
	err = f.dir.Insert(t.Parent, Record{
		Name:       t.Name,
		Size:       uint32(len(data)),
		FirstBlock: uint16(head),
		Type:       fatvfs.TypeFile,
		Rights:     DefaultRights,
	})
	if err != nil {
		f.discard(head)
		return err
	}
	return nil
}

// Cat writes the contents of a readable file to the output.
func (f *FileSystem) Cat(path string) error {
	const op = "fat.FileSystem.Cat"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Cat", slog.String("path", path))

	t, err := f.readFile(path)
	if err != nil {
		logger.Debug("Cannot read file", slogext.Err(err))
		return err
	}
	data, err := f.readChain(int(t.Record.FirstBlock))
	if err != nil {
		return err
	}
	if _, err := f.out.Write(data); err != nil {
		return Fatal(err)
	}
	return nil
}

// ReadFile returns the contents of a readable file, all Size bytes of it.
func (f *FileSystem) ReadFile(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := f.readFile(path)
	if err != nil {
		return nil, err
	}
	return f.readSized(int(t.Record.FirstBlock), t.Record.Size)
}

func (f *FileSystem) readFile(path string) (Target, error) {
	if err := f.ready(); err != nil {
		return Target{}, err
	}
	return f.readable(path, fatvfs.RightRead)
}

// Cp copies a readable file into an existing directory under its own name,
// or to a new name when dst does not exist.
func (f *FileSystem) Cp(src, dst string) error {
	const op = "fat.FileSystem.Cp"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Cp", slog.String("src", src), slog.String("dst", dst))

	if err := f.ready(); err != nil {
		return err
	}
	from, err := f.readable(src, fatvfs.RightRead)
	if err != nil {
		logger.Debug("Invalid source", slogext.Err(err))
		return err
	}
	parent, name, err := f.destination(dst, from.Record.Name)
	if err != nil {
		logger.Debug("Invalid destination", slogext.Err(err))
		return err
	}

	source := f.table.Chain(int(from.Record.FirstBlock))
	head, err := f.table.Allocate(len(source))
	if err != nil {
		return err
	}
	rec := from.Record
	rec.Name = name
	rec.FirstBlock = uint16(head)
	if err := f.dir.Insert(parent, rec); err != nil {
		f.discard(head)
		return err
	}

	buf := make([]byte, f.device.BlockSize())
	for i, block := range f.table.Chain(head) {
		if err := f.device.ReadBlock(source[i], buf); err != nil {
			return deviceError("read", source[i], err)
		}
		if err := f.device.WriteBlock(block, buf); err != nil {
			return deviceError("write", block, err)
		}
	}

	logger.Debug("Copy successful", slog.Int("parent", parent), slog.String("name", name))
	return nil
}

// destination resolves the target of a copy or move. An existing
// directory receives the entry under name; a missing path supplies its own
// final name and parent. Anything else fails.
func (f *FileSystem) destination(dst, name string) (int, string, error) {
	t, err := f.parse(dst)
	if err != nil {
		return 0, "", err
	}
	if !t.Exists {
		if err := newName(dst, t.Name); err != nil {
			return 0, "", err
		}
		return t.Parent, t.Name, nil
	}
	if !t.Record.IsDir() {
		return 0, "", newError(KindExists, dst, "")
	}
	parent := int(t.Record.FirstBlock)
	_, taken, err := f.dir.Find(parent, name)
	if err != nil {
		return 0, "", err
	}
	if taken {
		return 0, "", newError(KindExists, dst+"/"+name, "")
	}
	return parent, name, nil
}

// Mv relocates a file into an existing directory, or renames it when dst
// does not exist. No file data moves.
func (f *FileSystem) Mv(src, dst string) error {
	const op = "fat.FileSystem.Mv"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Mv", slog.String("src", src), slog.String("dst", dst))

	if err := f.ready(); err != nil {
		return err
	}
	from, err := f.existing(src)
	if err != nil {
		return err
	}
	if err := mutable(from); err != nil {
		return err
	}
	if from.Record.IsDir() {
		return newError(KindNotFile, src, "cannot move a directory")
	}
	parent, name, err := f.destination(dst, from.Record.Name)
	if err != nil {
		logger.Debug("Invalid destination", slogext.Err(err))
		return err
	}

	rec := from.Record
	rec.Name = name
	if parent == from.Parent {
		if err := f.dir.Update(from.Parent, from.Record, rec); err != nil {
			return err
		}
	} else {
		if err := f.dir.Insert(parent, rec); err != nil {
			return err
		}
		if err := f.dir.Remove(from.Parent, from.Record); err != nil {
			return err
		}
	}

	logger.Debug("Move successful", slog.Int("parent", parent), slog.String("name", name))
	return nil
}

// Rm erases a file or empty directory and returns its blocks to the free
// list.
func (f *FileSystem) Rm(path string) error {
	const op = "fat.FileSystem.Rm"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Rm", slog.String("path", path))

	if err := f.ready(); err != nil {
		return err
	}
	t, err := f.existing(path)
	if err != nil {
		return err
	}
	if err := mutable(t); err != nil {
		return err
	}
	if t.Record.IsDir() {
		if int(t.Record.FirstBlock) == f.paths.Cwd() {
			return newError(KindInvalid, path, "cannot remove the working directory")
		}
		empty, err := f.dir.IsEmpty(t.Record)
		if err != nil {
			return err
		}
		if !empty {
			logger.Debug("Directory not empty", slog.Int("block", int(t.Record.FirstBlock)))
			return newError(KindNotEmpty, path, "")
		}
	}

	if err := f.dir.Remove(t.Parent, t.Record); err != nil {
		return err
	}
	if err := f.table.Release(int(t.Record.FirstBlock), f.wipe); err != nil {
		logger.Error("Failed to release chain", slogext.Err(err))
		return err
	}

	logger.Debug("Remove successful", slog.String("name", t.Name))
	return nil
}

// Append adds the contents of src to the end of dst, growing dst's chain
// when the result needs more blocks.
func (f *FileSystem) Append(src, dst string) error {
	const op = "fat.FileSystem.Append"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Append", slog.String("src", src), slog.String("dst", dst))

	if err := f.ready(); err != nil {
		return err
	}
	from, err := f.readable(src, fatvfs.RightRead)
	if err != nil {
		return err
	}
	to, err := f.readable(dst, fatvfs.RightRead|fatvfs.RightWrite)
	if err != nil {
		return err
	}

	data, err := f.readSized(int(to.Record.FirstBlock), to.Record.Size)
	if err != nil {
		return err
	}
	tail, err := f.readSized(int(from.Record.FirstBlock), from.Record.Size)
	if err != nil {
		return err
	}
	data = append(data, tail...)
	if uint64(len(data)) > uint64(^uint32(0)) {
		return newError(KindNoSpace, dst, "file too large")
	}

	head := int(to.Record.FirstBlock)
	owned := len(f.table.Chain(head))
	if need := f.blocksFor(len(data)); need > owned {
		logger.Debug("Extending chain", slog.Int("owned", owned), slog.Int("need", need))
		if err := f.table.Extend(need-owned, head); err != nil {
			return err
		}
	}
	if err := f.writeChain(head, data); err != nil {
		return err
	}

	rec := to.Record
	rec.Size = uint32(len(data))
	if err := f.dir.Update(to.Parent, to.Record, rec); err != nil {
		return err
	}

	logger.Debug("Append successful", slog.Int("size", len(data)))
	return nil
}

// Chmod replaces the access rights of an entry. rights is a decimal value
// in [0, 7].
func (f *FileSystem) Chmod(rights, path string) error {
	const op = "fat.FileSystem.Chmod"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Chmod", slog.String("rights", rights), slog.String("path", path))

	if err := f.ready(); err != nil {
		return err
	}
	value, err := strconv.Atoi(rights)
	if err != nil || value < 0 || value > int(fatvfs.RightAll) {
		return newError(KindInvalid, path, "invalid access rights %q", rights)
	}
	t, err := f.existing(path)
	if err != nil {
		return err
	}
	if err := mutable(t); err != nil {
		return err
	}

	rec := t.Record
	rec.Rights = fatvfs.Rights(value)
	if err := f.dir.Update(t.Parent, t.Record, rec); err != nil {
		return err
	}

	logger.Debug("Chmod successful", slog.String("rights", rec.Rights.String()))
	return nil
}
