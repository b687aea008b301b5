package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

type DeviceConfig struct {
	Driver     string        `yaml:"driver" env:"FATVFS_DEVICE_DRIVER" env-default:"file"`
	Path       string        `yaml:"path" env:"FATVFS_DEVICE_PATH" env-default:"fatvfs.img"`
	BlockSize  int           `yaml:"block_size" env:"FATVFS_DEVICE_BLOCK_SIZE" env-default:"4096"`
	BlockCount int           `yaml:"block_count" env:"FATVFS_DEVICE_BLOCK_COUNT" env-default:"2048"`
	Volume     string        `yaml:"volume" env:"FATVFS_DEVICE_VOLUME" env-default:"default"`
	Timeout    time.Duration `yaml:"timeout" env:"FATVFS_DEVICE_TIMEOUT" env-default:"5s"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"FATVFS_DATABASE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"FATVFS_DATABASE_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"FATVFS_DATABASE_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"FATVFS_DATABASE_PASSWORD"`
	Name     string `yaml:"name" env:"FATVFS_DATABASE_NAME" env-default:"fatvfs"`
	SSLMode  string `yaml:"sslmode" env:"FATVFS_DATABASE_SSLMODE" env-default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type LogConfig struct {
	Level  string `yaml:"level" env:"FATVFS_LOG_LEVEL" env-default:"info"`
	Pretty bool   `yaml:"pretty" env:"FATVFS_LOG_PRETTY"`
}

// Load reads configPath, with environment variables taking precedence. An
// empty path reads the environment alone.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic("cannot read config: " + err.Error())
	}
	return cfg
}

func (c *Config) Validate() error {
	switch c.Device.Driver {
	case DriverFile:
		if c.Device.Path == "" {
			return fmt.Errorf("device.path is required for the %s driver", DriverFile)
		}
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("unknown device.driver %q", c.Device.Driver)
	}
	if c.Device.BlockSize <= 0 || c.Device.BlockCount <= 0 {
		return fmt.Errorf("invalid device geometry %dx%d", c.Device.BlockSize, c.Device.BlockCount)
	}
	if c.Device.Driver == DriverPostgres && c.Device.Timeout <= 0 {
		return fmt.Errorf("device.timeout must be positive")
	}
	return nil
}
