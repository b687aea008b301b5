package image

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/fat"
	"github.com/rstms/fatvfs/pkg/logging"
	"github.com/rstms/fatvfs/pkg/logging/slogext"
)

type FileRecord struct {
	Name   string
	Dir    bool
	Rights fatvfs.Rights
	Size   uint32
}

// ScanFS lists every file and directory of a volume with absolute paths,
// parents before their contents.
func ScanFS(volume *fat.FileSystem) ([]FileRecord, error) {
	return walk(volume, "/")
}

func walk(volume *fat.FileSystem, dir string) ([]FileRecord, error) {
	records := []FileRecord{}
	entries, err := volume.ReadDir(dir)
	if err != nil {
		return []FileRecord{}, err
	}
	for _, entry := range entries {
		record := FileRecord{
			Name:   path.Join(dir, entry.Name),
			Dir:    entry.IsDir(),
			Rights: entry.Rights,
			Size:   entry.Size,
		}
		records = append(records, record)
		if record.Dir {
			subRecords, err := walk(volume, record.Name)
			if err != nil {
				return []FileRecord{}, err
			}
			records = append(records, subRecords...)
		}
	}
	return records, nil
}

// ImportTree writes every directory and file below hostDir into the
// volume root, keeping relative paths.
func ImportTree(ctx context.Context, volume *fat.FileSystem, hostDir string) error {
	const op = "image.ImportTree"
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	err := filepath.WalkDir(hostDir, func(hostPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return Fatal(err)
		}
		if hostPath == hostDir {
			return nil
		}
		rel, err := filepath.Rel(hostDir, hostPath)
		if err != nil {
			return Fatal(err)
		}
		dst := "/" + filepath.ToSlash(rel)
		logger.Debug("Import", slog.Bool("dir", d.IsDir()), slog.String("dst", dst), slog.String("src", hostPath))
		if d.IsDir() {
			return volume.Mkdir(dst)
		}
		if !d.Type().IsRegular() {
			logger.Warn("Skipping non-regular file", slog.String("src", hostPath))
			return nil
		}
		data, err := os.ReadFile(hostPath)
		if err != nil {
			return Fatal(err)
		}
		return volume.WriteFile(dst, data)
	})
	if err != nil {
		logger.Error("Import failed", slogext.Err(err))
		return err
	}
	return nil
}

// ExportTree writes the volume tree below hostDir. Every file must be
// readable.
func ExportTree(ctx context.Context, volume *fat.FileSystem, hostDir string) error {
	const op = "image.ExportTree"
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	records, err := ScanFS(volume)
	if err != nil {
		return err
	}
	err = os.MkdirAll(hostDir, 0700)
	if err != nil {
		return Fatal(err)
	}
	for _, record := range records {
		dst := filepath.Join(hostDir, filepath.FromSlash(record.Name))
		logger.Debug("Export", slog.Bool("dir", record.Dir), slog.String("src", record.Name), slog.String("dst", dst))
		if record.Dir {
			err := os.Mkdir(dst, 0700)
			if err != nil && !os.IsExist(err) {
				return Fatal(err)
			}
			continue
		}
		data, err := volume.ReadFile(record.Name)
		if err != nil {
			logger.Error("Failed to read file", slogext.Err(err), slog.String("src", record.Name))
			return err
		}
		err = os.WriteFile(dst, data, 0600)
		if err != nil {
			return Fatal(err)
		}
	}
	return nil
}
