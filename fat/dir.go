package fat

import (
	"fmt"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/pkg/logging/slogext"
)

// Ls writes a table of the working directory's records.
func (f *FileSystem) Ls() error {
	const op = "fat.FileSystem.Ls"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Ls", slog.Int("cwd", f.paths.Cwd()))

	if err := f.ready(); err != nil {
		return err
	}
	records, err := f.dir.Entries(f.paths.Cwd())
	if err != nil {
		logger.Error("Failed to read directory", slogext.Err(err))
		return err
	}

	w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tType\tAccessrights\tSize")
	for _, rec := range records {
		size := "-"
		if rec.Size != 0 {
			size = strconv.FormatUint(uint64(rec.Size), 10)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Name, rec.Type, rec.Rights, size)
	}
	if err := w.Flush(); err != nil {
		return Fatal(err)
	}
	return nil
}

// ReadDir returns the records of the directory at path, without its
// parent reference. An empty path is the working directory.
func (f *FileSystem) ReadDir(path string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ready(); err != nil {
		return nil, err
	}
	block := f.paths.Cwd()
	if path != "" {
		t, err := f.existing(path)
		if err != nil {
			return nil, err
		}
		if !t.Record.IsDir() {
			return nil, newError(KindNotDir, path, "")
		}
		block = int(t.Record.FirstBlock)
	}
	records, err := f.dir.Entries(block)
	if err != nil {
		return nil, err
	}
	result := records[:0]
	for _, rec := range records {
		if rec.Name != ParentName {
			result = append(result, rec)
		}
	}
	return result, nil
}

// Mkdir creates an empty directory holding only its back-reference.
func (f *FileSystem) Mkdir(path string) error {
	const op = "fat.FileSystem.Mkdir"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Mkdir", slog.String("path", path))

	if err := f.ready(); err != nil {
		return err
	}
	t, err := f.creatable(path)
	if err != nil {
		logger.Debug("Cannot create directory", slogext.Err(err))
		return err
	}

	block, err := f.table.Allocate(1)
	if err != nil {
		return err
	}
	if err := f.dir.Init(block); err != nil {
		f.discard(block)
		return err
	}
	err = f.dir.Insert(t.Parent, Record{
		Name:       t.Name,
		FirstBlock: uint16(block),
		Type:       fatvfs.TypeDirectory,
	})
	if err != nil {
		f.discard(block)
		return err
	}
	if err := f.table.Set(block, EOF); err != nil {
		return err
	}
	err = f.dir.Insert(block, Record{
		Name:       ParentName,
		FirstBlock: uint16(t.Parent),
		Type:       fatvfs.TypeDirectory,
	})
	if err != nil {
		return err
	}

	logger.Debug("Directory created successfully", slog.String("name", t.Name), slog.Int("block", block))
	return nil
}

// Cd changes the working directory.
func (f *FileSystem) Cd(path string) error {
	const op = "fat.FileSystem.Cd"

	f.mu.Lock()
	defer f.mu.Unlock()

	logger := f.logger.With(slog.String("op", op))
	logger.Debug("Cd", slog.String("path", path))

	if err := f.ready(); err != nil {
		return err
	}
	if path == "/" {
		f.paths.SetCwd(RootBlock)
		return nil
	}
	t, err := f.existing(path)
	if err != nil {
		return err
	}
	if !t.Record.IsDir() {
		return newError(KindNotDir, path, "")
	}
	f.paths.SetCwd(int(t.Record.FirstBlock))

	logger.Debug("Cd successful", slog.Int("cwd", f.paths.Cwd()))
	return nil
}

// Pwd writes the absolute path of the working directory, quoted unless it
// is the root.
func (f *FileSystem) Pwd() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, err := f.workingPath()
	if err != nil {
		return err
	}
	if path != "/" {
		path = "'" + path + "'"
	}
	if _, err := fmt.Fprintln(f.out, path); err != nil {
		return Fatal(err)
	}
	return nil
}

// WorkingPath returns the absolute path of the working directory.
func (f *FileSystem) WorkingPath() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workingPath()
}

func (f *FileSystem) workingPath() (string, error) {
	if err := f.ready(); err != nil {
		return "", err
	}
	return f.paths.WorkingPath(f.table.Len())
}
