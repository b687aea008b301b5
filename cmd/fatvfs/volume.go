package main

import (
	"context"
	"fmt"

	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/fat"
	"github.com/rstms/fatvfs/image"
	"github.com/rstms/fatvfs/internal/config"
	"github.com/rstms/fatvfs/pgdisk"
	"github.com/rstms/go-common"
)

// volume is an open file system and whatever holds its device.
type volume struct {
	fs      *fat.FileSystem
	closers []func() error
}

func (v *volume) Close() error {
	var first error
	for i := len(v.closers) - 1; i >= 0; i-- {
		if err := v.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openVolume opens the configured device. With format set the volume is
// created or wiped first; a missing image file is always created.
func openVolume(ctx context.Context, cfg *config.Config, format bool, opts ...fat.Option) (*volume, error) {
	dev := cfg.Device
	v := &volume{}

	switch dev.Driver {
	case config.DriverFile:
		var img *image.Image
		var err error
		if format || !common.IsFile(dev.Path) {
			img, err = image.CreateImage(dev.Path, dev.BlockSize, dev.BlockCount, opts...)
		} else {
			img, err = image.OpenImage(dev.Path, dev.BlockSize, opts...)
		}
		if err != nil {
			return nil, err
		}
		v.fs = img.FS()
		v.closers = append(v.closers, img.Close)
		return v, nil

	case config.DriverMemory:
		return v, v.mount(fatvfs.NewMemDisk(dev.BlockSize, dev.BlockCount), format, opts)

	case config.DriverPostgres:
		pool, err := pgdisk.NewPool(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		v.closers = append(v.closers, func() error { pool.Close(); return nil })
		if err := pgdisk.EnsureSchema(ctx, pool); err != nil {
			v.Close()
			return nil, err
		}
		disk, err := pgdisk.Open(ctx, pool, dev.Volume, dev.BlockSize, dev.BlockCount, dev.Timeout)
		if err != nil {
			v.Close()
			return nil, err
		}
		if err := v.mount(disk, format, opts); err != nil {
			v.Close()
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown device driver %q", dev.Driver)
}

func (v *volume) mount(device fatvfs.BlockDevice, format bool, opts []fat.Option) error {
	fs, err := fat.New(device, opts...)
	if err != nil {
		return err
	}
	if format {
		if err := fs.Format(); err != nil {
			return err
		}
	}
	v.fs = fs
	return nil
}
