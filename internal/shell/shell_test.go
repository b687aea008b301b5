package shell

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rstms/fatvfs"
	"github.com/rstms/fatvfs/fat"
	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, script string) (string, *fat.FileSystem) {
	in := bufio.NewReader(strings.NewReader(script))
	out := new(bytes.Buffer)
	fs, err := fat.New(fatvfs.NewMemDisk(512, 64), fat.WithInput(in), fat.WithOutput(out))
	require.Nil(t, err)
	require.Nil(t, New(fs, in, out).Run(context.Background()))
	return out.String(), fs
}

func TestSessionScript(t *testing.T) {
	out, _ := runScript(t, strings.Join([]string{
		"format",
		"create /a",
		"hello",
		"cat /a",
		"mkdir /d",
		"cd /d",
		"pwd",
		"cp /a /d/b",
		"mv /d/b /d/c",
		"cat /d/b",
		"append /d/c /a",
		"cat /a",
		"chmod 0 /a",
		"cat /a",
		"",
	}, "\n"))

	require.Contains(t, out, "hello\n'/d'\n")
	require.Contains(t, out, "hello\nhello\n")
	require.Equal(t, 2, strings.Count(out, "error: "))
	require.Contains(t, out, "/d/b")
	require.Contains(t, out, "permission denied")
}

func TestQuitStopsSession(t *testing.T) {
	out, fs := runScript(t, "format\nmkdir keep\nquit\nmkdir skipped\n")
	require.Empty(t, out)

	records, err := fs.ReadDir("/")
	require.Nil(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "keep", records[0].Name)
}

func TestUsageAndUnknown(t *testing.T) {
	out, _ := runScript(t, "format\ncp onlyone\nfrobnicate\n# comment only\n\nPWD\n")
	require.Contains(t, out, "usage: cp <src> <dst>\n")
	require.Contains(t, out, "unknown command: frobnicate")
	require.True(t, strings.HasSuffix(out, "/\n"))
}

func TestErrorsDoNotEndSession(t *testing.T) {
	out, _ := runScript(t, "ls\nformat\nls")
	require.Contains(t, out, "volume not formatted")
	require.Contains(t, out, "Name")
}

func TestHelp(t *testing.T) {
	out, _ := runScript(t, "help\n")
	for _, c := range commands {
		require.Contains(t, out, c.usage())
	}
	require.Contains(t, out, "quit")
}

func TestPrompt(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("pwd\n"))
	out := new(bytes.Buffer)
	fs, err := fat.New(fatvfs.NewMemDisk(512, 64), fat.WithInput(in), fat.WithOutput(out))
	require.Nil(t, err)
	require.Nil(t, fs.Format())

	require.Nil(t, New(fs, in, out, WithPrompt("> ")).Run(context.Background()))
	require.True(t, strings.HasPrefix(out.String(), "> /\n"))
}

func TestCancelledContext(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("format\n"))
	fs, err := fat.New(fatvfs.NewMemDisk(512, 64), fat.WithInput(in))
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, New(fs, in, new(bytes.Buffer)).Run(ctx), context.Canceled)
}
