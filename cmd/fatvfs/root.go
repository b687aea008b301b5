package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"github.com/rstms/fatvfs/fat"
	"github.com/rstms/fatvfs/image"
	"github.com/rstms/fatvfs/internal/config"
	"github.com/rstms/fatvfs/internal/shell"
	"github.com/rstms/fatvfs/pkg/logging"
	"github.com/rstms/fatvfs/pkg/logging/slogpretty"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	imagePath  string
	cfg        *config.Config
	logger     *slog.Logger
	stdin      io.Reader
	stdout     io.Writer
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout}

	root := &cobra.Command{
		Use:          "fatvfs",
		Short:        "FAT file system on a block device",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: environment only)")
	root.PersistentFlags().StringVar(&a.imagePath, "image", "", "image file, selects the file driver")

	root.AddCommand(
		&cobra.Command{
			Use:   "format",
			Short: "create an empty volume on the configured device",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := openVolume(cmd.Context(), a.cfg, true, fat.WithLogger(a.logger))
				if err != nil {
					return err
				}
				defer v.Close()
				free, total := v.fs.Usage()
				a.logger.Info("Volume formatted", slog.Int("free", free), slog.Int("total", total))
				return nil
			},
		},
		&cobra.Command{
			Use:   "shell",
			Short: "run commands read from standard input",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				in := bufio.NewReader(a.stdin)
				v, err := openVolume(cmd.Context(), a.cfg, false,
					fat.WithInput(in), fat.WithOutput(a.stdout), fat.WithLogger(a.logger))
				if err != nil {
					return err
				}
				defer v.Close()
				return shell.New(v.fs, in, a.stdout, shell.WithPrompt("fatvfs> ")).Run(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "import <dir>",
			Short: "copy a host directory tree into the volume root",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := openVolume(cmd.Context(), a.cfg, false, fat.WithLogger(a.logger))
				if err != nil {
					return err
				}
				defer v.Close()
				return image.ImportTree(cmd.Context(), v.fs, args[0])
			},
		},
		&cobra.Command{
			Use:   "export <dir>",
			Short: "copy the volume tree to a host directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := openVolume(cmd.Context(), a.cfg, false, fat.WithLogger(a.logger))
				if err != nil {
					return err
				}
				defer v.Close()
				return image.ExportTree(cmd.Context(), v.fs, args[0])
			},
		},
	)
	return root
}

// setup loads configuration and installs the logger in the command
// context.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.imagePath != "" {
		cfg.Device.Driver = config.DriverFile
		cfg.Device.Path = a.imagePath
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.MakeContextWithLogger(ctx, a.logger))
	return nil
}

func newLogger(cfg config.LogConfig, out io.Writer) *slog.Logger {
	level := logging.ParseLevel(cfg.Level)
	if cfg.Pretty {
		opts := slogpretty.PrettyHandlerOptions{
			SlogOpts: &slog.HandlerOptions{Level: level},
		}
		return slog.New(opts.NewPrettyHandler(out))
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
