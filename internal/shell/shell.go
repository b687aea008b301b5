package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/pkg/logging"
	"github.com/rstms/fatvfs/pkg/logging/slogext"
)

type command struct {
	name  string
	args  []string
	about string
	run   func(fs fatvfs.FileSystem, args []string) error
}

func (c command) usage() string {
	if len(c.args) == 0 {
		return c.name
	}
	return c.name + " " + strings.Join(c.args, " ")
}

var commands = []command{
	{"format", nil, "create an empty volume", func(fs fatvfs.FileSystem, _ []string) error { return fs.Format() }},
	{"create", []string{"<path>"}, "create a file from the next input line", func(fs fatvfs.FileSystem, a []string) error { return fs.Create(a[0]) }},
	{"cat", []string{"<path>"}, "print a file", func(fs fatvfs.FileSystem, a []string) error { return fs.Cat(a[0]) }},
	{"ls", nil, "list the working directory", func(fs fatvfs.FileSystem, _ []string) error { return fs.Ls() }},
	{"cp", []string{"<src>", "<dst>"}, "copy a file", func(fs fatvfs.FileSystem, a []string) error { return fs.Cp(a[0], a[1]) }},
	{"mv", []string{"<src>", "<dst>"}, "move or rename a file", func(fs fatvfs.FileSystem, a []string) error { return fs.Mv(a[0], a[1]) }},
	{"rm", []string{"<path>"}, "remove a file or empty directory", func(fs fatvfs.FileSystem, a []string) error { return fs.Rm(a[0]) }},
	{"append", []string{"<src>", "<dst>"}, "append src to dst", func(fs fatvfs.FileSystem, a []string) error { return fs.Append(a[0], a[1]) }},
	{"mkdir", []string{"<path>"}, "create a directory", func(fs fatvfs.FileSystem, a []string) error { return fs.Mkdir(a[0]) }},
	{"cd", []string{"<path>"}, "change the working directory", func(fs fatvfs.FileSystem, a []string) error { return fs.Cd(a[0]) }},
	{"pwd", nil, "print the working directory", func(fs fatvfs.FileSystem, _ []string) error { return fs.Pwd() }},
	{"chmod", []string{"<rights>", "<path>"}, "set access rights (0-7)", func(fs fatvfs.FileSystem, a []string) error { return fs.Chmod(a[0], a[1]) }},
}

var ErrUnknownCommand = errors.New("unknown command")

// Shell reads one command per line and runs it against a FileSystem.
// Create payload lines are read from the same reader, so the FileSystem
// must be built with that reader as its input.
type Shell struct {
	fs     fatvfs.FileSystem
	in     *bufio.Reader
	out    io.Writer
	prompt string
	errOut *color.Color
}

type Option func(*Shell)

func WithPrompt(prompt string) Option {
	return func(s *Shell) {
		s.prompt = prompt
	}
}

func New(fs fatvfs.FileSystem, in *bufio.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		fs:     fs,
		in:     in,
		out:    out,
		errOut: color.New(color.FgRed),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes commands until end of input or quit. A failing command is
// reported and the session continues.
func (s *Shell) Run(ctx context.Context) error {
	const op = "shell.Shell.Run"

	ctx = logging.MakeContextWithNewSessionID(ctx)
	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Session started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.prompt != "" {
			fmt.Fprint(s.out, s.prompt)
		}
		line, err := s.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			logger.Error("Failed to read command", slogext.Err(err))
			return Fatal(err)
		}
		eof := err != nil
		if strings.TrimSpace(line) != "" {
			if s.Execute(ctx, line) {
				logger.Debug("Session ended by quit")
				return nil
			}
		}
		if eof {
			logger.Debug("Session ended at end of input")
			return nil
		}
	}
}

// Execute runs a single command line and reports whether it asked the
// session to end.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	const op = "shell.Shell.Execute"
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	logger.Debug("Execute", slog.String("command", name), slog.Any("args", args))

	switch name {
	case "quit", "exit":
		return true
	case "help":
		s.help()
		return false
	}

	for _, c := range commands {
		if c.name != name {
			continue
		}
		if len(args) != len(c.args) {
			fmt.Fprintf(s.out, "usage: %s\n", c.usage())
			return false
		}
		if err := c.run(s.fs, args); err != nil {
			logger.Debug("Command failed", slog.String("command", name), slogext.Err(err))
			s.errOut.Fprintf(s.out, "error: %v\n", err)
		}
		return false
	}

	s.errOut.Fprintf(s.out, "error: %v: %s\n", ErrUnknownCommand, name)
	return false
}

func (s *Shell) help() {
	for _, c := range commands {
		fmt.Fprintf(s.out, "  %-24s %s\n", c.usage(), c.about)
	}
	fmt.Fprintf(s.out, "  %-24s %s\n", "help", "show this list")
	fmt.Fprintf(s.out, "  %-24s %s\n", "quit", "end the session")
}
