package fat

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/pkg/logging/slogext"
)

// DefaultRights are given to newly created files.
const DefaultRights = fatvfs.RightRead | fatvfs.RightWrite

// FileSystem implements fatvfs.FileSystem on a BlockDevice laid out as a
// root directory block, an allocation table block and a pool of data
// blocks chained through the table.
type FileSystem struct {
	mu     sync.Mutex
	device fatvfs.BlockDevice
	table  *Table
	dir    *Directory
	paths  *Resolver

	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

// ensure FileSystem implements fatvfs.FileSystem
var _ fatvfs.FileSystem = (*FileSystem)(nil)

type Option func(*FileSystem)

// WithInput sets where Create reads file contents from.
func WithInput(r io.Reader) Option {
	return func(f *FileSystem) {
		if br, ok := r.(*bufio.Reader); ok {
			f.in = br
		} else {
			f.in = bufio.NewReader(r)
		}
	}
}

// WithOutput sets where Cat, Ls and Pwd write.
func WithOutput(w io.Writer) Option {
	return func(f *FileSystem) {
		f.out = w
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *FileSystem) {
		f.logger = logger
	}
}

// New returns a FileSystem for device, loading the allocation table it
// already holds. An unformatted device accepts only Format.
func New(device fatvfs.BlockDevice, opts ...Option) (*FileSystem, error) {
	bs := device.BlockSize()
	switch {
	case bs < 2*RecordSize || bs%RecordSize != 0:
		return nil, newError(KindInvalid, "", "block size %d is not a multiple of %d records", bs, RecordSize)
	case bs/2 > math.MaxInt16+1:
		return nil, newError(KindInvalid, "", "block size %d exceeds the table's addressable range", bs)
	case device.BlockCount() <= TableBlock+1:
		return nil, newError(KindInvalid, "", "device has only %d blocks", device.BlockCount())
	}

	table, err := LoadTable(device)
	if err != nil {
		return nil, err
	}

	dir := &Directory{device: device}
	f := &FileSystem{
		device: device,
		table:  table,
		dir:    dir,
		paths:  &Resolver{dir: dir, cwd: RootBlock},
		in:     bufio.NewReader(bytes.NewReader(nil)),
		out:    io.Discard,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FileSystem) ready() error {
	if !f.table.Formatted() {
		return ErrNotFormatted
	}
	return nil
}

// Format wipes every block, installs a fresh allocation table and resets
// the working directory to the root.
func (f *FileSystem) Format() error {
	const op = "fat.FileSystem.Format"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Format",
		slog.Int("block_size", f.device.BlockSize()),
		slog.Int("block_count", f.device.BlockCount()),
	)

	empty := make([]byte, f.device.BlockSize())
	for i := 0; i < f.device.BlockCount(); i++ {
		if err := f.device.WriteBlock(i, empty); err != nil {
			logger.Error("Failed to wipe block", slogext.Err(err), slog.Int("block", i))
			return deviceError("wipe", i, err)
		}
	}

	table := NewTable(f.device)
	if err := table.format(); err != nil {
		logger.Error("Failed to initialize table", slogext.Err(err))
		return err
	}
	f.table = table
	f.paths.SetCwd(RootBlock)

	logger.Debug("Format successful", slog.Int("free_blocks", table.FreeCount()))
	return nil
}

// Usage reports the free and total addressable block counts.
func (f *FileSystem) Usage() (free, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table.FreeCount(), f.table.Len()
}

// blocksFor is the number of blocks needed for size bytes. Every chain
// has at least one block.
func (f *FileSystem) blocksFor(size int) int {
	bs := f.device.BlockSize()
	n := (size + bs - 1) / bs
	if n == 0 {
		n = 1
	}
	return n
}

// readChain concatenates the contents of each block of the chain at head,
// stopping in every block at its first zero byte.
func (f *FileSystem) readChain(head int) ([]byte, error) {
	var data []byte
	buf := make([]byte, f.device.BlockSize())
	for _, block := range f.table.Chain(head) {
		if err := f.device.ReadBlock(block, buf); err != nil {
			return nil, deviceError("read", block, err)
		}
		n := bytes.IndexByte(buf, 0)
		if n < 0 {
			n = len(buf)
		}
		data = append(data, buf[:n]...)
	}
	return data, nil
}

// readSized returns the first size bytes stored along the chain at head.
func (f *FileSystem) readSized(head int, size uint32) ([]byte, error) {
	data := make([]byte, 0, size)
	buf := make([]byte, f.device.BlockSize())
	for _, block := range f.table.Chain(head) {
		if len(data) == int(size) {
			break
		}
		if err := f.device.ReadBlock(block, buf); err != nil {
			return nil, deviceError("read", block, err)
		}
		data = append(data, buf[:min(len(buf), int(size)-len(data))]...)
	}
	if len(data) < int(size) {
		return nil, newError(KindUnknown, "", "chain at %d holds %d of %d bytes", head, len(data), size)
	}
	return data, nil
}

// writeChain writes data across the chain at head from its first block,
// zero padding the last block written. The first block is always written.
func (f *FileSystem) writeChain(head int, data []byte) error {
	bs := f.device.BlockSize()
	blocks := f.table.Chain(head)
	if len(blocks)*bs < len(data) {
		return newError(KindNoSpace, "", "chain of %d blocks cannot hold %d bytes", len(blocks), len(data))
	}
	buf := make([]byte, bs)
	for i, block := range blocks {
		if i > 0 && len(data) == 0 {
			break
		}
		clear(buf)
		n := copy(buf, data)
		if err := f.device.WriteBlock(block, buf); err != nil {
			return deviceError("write", block, err)
		}
		data = data[n:]
	}
	return nil
}

// wipe zeroes a block on its way back to the free list.
func (f *FileSystem) wipe(block int) error {
	if err := f.device.WriteBlock(block, make([]byte, f.device.BlockSize())); err != nil {
		f.logger.Warn("Failed to wipe released block", slogext.Err(err), slog.Int("block", block))
		return err
	}
	return nil
}

// discard frees a chain that never got a record pointing at it.
func (f *FileSystem) discard(head int) {
	if err := f.table.Release(head, f.wipe); err != nil {
		f.logger.Warn("Failed to release unused chain", slogext.Err(err), slog.Int("head", head))
	}
}

// parse validates a path argument and resolves it.
func (f *FileSystem) parse(path string) (Target, error) {
	p, err := ParsePath(path)
	if err != nil {
		return Target{}, err
	}
	return f.paths.Resolve(p)
}

// existing resolves path and fails unless it names an entry.
func (f *FileSystem) existing(path string) (Target, error) {
	t, err := f.parse(path)
	if err != nil {
		return Target{}, err
	}
	if !t.Exists {
		return Target{}, newError(KindNotFound, path, "")
	}
	return t, nil
}

// readable resolves path to a file with the given rights.
func (f *FileSystem) readable(path string, rights fatvfs.Rights) (Target, error) {
	t, err := f.existing(path)
	if err != nil {
		return Target{}, err
	}
	if t.Record.Type != fatvfs.TypeFile {
		return Target{}, newError(KindNotFile, path, "")
	}
	if !t.Record.Rights.Has(rights) {
		return Target{}, newError(KindPermission, path, "needs %s, has %s", rights, t.Record.Rights)
	}
	return t, nil
}

// mutable fails for targets whose record may not be changed directly.
func mutable(t Target) error {
	if t.IsRoot() || t.Name == ParentName {
		return newError(KindInvalid, t.Path.Raw, "cannot modify %q", t.Path.Raw)
	}
	return nil
}

// newName checks a name for a record about to be created.
func newName(path, name string) error {
	if !ValidName(name) || name == ParentName {
		return newError(KindInvalid, path, "invalid name %q", name)
	}
	return nil
}
