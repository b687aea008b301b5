package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	filename := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, os.WriteFile(filename, []byte(data), 0600))
	return filename
}

func TestLoadFile(t *testing.T) {
	filename := writeConfig(t, `
device:
  driver: postgres
  block_size: 512
  block_count: 256
  volume: scratch
  timeout: 2s
database:
  host: db
  port: 6543
  user: fat
  password: secret
  name: blocks
log:
  level: debug
  pretty: true
`)
	cfg, err := Load(filename)
	require.Nil(t, err)
	require.Equal(t, DriverPostgres, cfg.Device.Driver)
	require.Equal(t, 512, cfg.Device.BlockSize)
	require.Equal(t, 256, cfg.Device.BlockCount)
	require.Equal(t, "scratch", cfg.Device.Volume)
	require.Equal(t, 2*time.Second, cfg.Device.Timeout)
	require.Equal(t, "fatvfs.img", cfg.Device.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Log.Pretty)
	require.Equal(t, "postgres://fat:secret@db:6543/blocks?sslmode=disable", cfg.Database.DSN())
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("FATVFS_DEVICE_DRIVER", "memory")
	t.Setenv("FATVFS_DEVICE_BLOCK_COUNT", "64")

	cfg, err := Load("")
	require.Nil(t, err)
	require.Equal(t, DriverMemory, cfg.Device.Driver)
	require.Equal(t, 4096, cfg.Device.BlockSize)
	require.Equal(t, 64, cfg.Device.BlockCount)
	require.Equal(t, 5*time.Second, cfg.Device.Timeout)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	filename := writeConfig(t, "device:\n  path: from-file.img\n")
	t.Setenv("FATVFS_DEVICE_PATH", "from-env.img")

	cfg, err := Load(filename)
	require.Nil(t, err)
	require.Equal(t, "from-env.img", cfg.Device.Path)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "device:\n  driver: tape\n"))
	require.ErrorContains(t, err, "tape")

	_, err = Load(writeConfig(t, "device:\n  block_size: -1\n"))
	require.Error(t, err)

	require.Panics(t, func() { MustLoad(writeConfig(t, "device:\n  driver: tape\n")) })
}
