package image

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/pkg/logging"
	"github.com/rstms/fatvfs/pkg/logging/slogext"
)

// RewriteImage copies the volume in srcFile into a freshly formatted image
// of a new geometry, keeping every entry's access rights.
func RewriteImage(ctx context.Context, dstFile, srcFile string, srcBlockSize, blockSize, blockCount int) error {
	const op = "image.RewriteImage"
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	src, err := OpenImage(srcFile, srcBlockSize)
	if err != nil {
		return err
	}
	defer src.Close()

	records, err := src.ScanFiles()
	if err != nil {
		return err
	}

	// unreadable files are granted read for the copy and restored after
	for _, record := range records {
		if record.Dir || record.Rights.Has(fatvfs.RightRead) {
			continue
		}
		err := src.fs.Chmod(rightsArg(record.Rights|fatvfs.RightRead), record.Name)
		if err != nil {
			return err
		}
		defer func(record FileRecord) {
			err := src.fs.Chmod(rightsArg(record.Rights), record.Name)
			if err != nil {
				logger.Warn("Failed to restore rights", slogext.Err(err), slog.String("name", record.Name))
			}
		}(record)
	}

	tempDir, err := os.MkdirTemp("", "fatvfs-*")
	if err != nil {
		return Fatal(err)
	}
	defer os.RemoveAll(tempDir)
	err = src.Export(ctx, tempDir)
	if err != nil {
		return err
	}

	dst, err := CreateImage(dstFile, blockSize, blockCount)
	if err != nil {
		return err
	}
	defer dst.Close()
	err = dst.Import(ctx, tempDir)
	if err != nil {
		return err
	}
	for _, record := range records {
		err := dst.fs.Chmod(rightsArg(record.Rights), record.Name)
		if err != nil {
			return err
		}
	}

	logger.Debug("Rewrite successful", slog.Int("entries", len(records)))
	return nil
}

func rightsArg(r fatvfs.Rights) string {
	return strconv.Itoa(int(r))
}
