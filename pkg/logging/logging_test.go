package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/rstms/fatvfs/pkg/logging/slogext"
	"github.com/rstms/fatvfs/pkg/logging/slogpretty"
	"github.com/stretchr/testify/require"
)

func TestSessionID(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, GetSessionIDFromCtx(ctx))

	ctx = MakeContextWithNewSessionID(ctx)
	id := GetSessionIDFromCtx(ctx)
	_, err := uuid.Parse(id)
	require.Nil(t, err)

	require.Equal(t, "fixed", GetSessionIDFromCtx(MakeContextWithSessionID(ctx, "fixed")))
}

func TestLoggerFromContext(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := slog.New(slog.NewTextHandler(buf, nil))
	ctx := MakeContextWithLogger(context.Background(), logger)
	ctx = MakeContextWithSessionID(ctx, "s1")

	GetLoggerFromContextWithOp(ctx, "test.Op").Info("hello", slogext.Err(errors.New("boom")))
	out := buf.String()
	require.Contains(t, out, "msg=hello")
	require.Contains(t, out, "session_id=s1")
	require.Contains(t, out, "op=test.Op")
	require.Contains(t, out, "error=boom")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestPrettyHandler(t *testing.T) {
	buf := new(bytes.Buffer)
	opts := slogpretty.PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	logger := slog.New(opts.NewPrettyHandler(buf)).With(slog.String("op", "test.Op"))

	logger.Debug("pretty message", slog.Int("block", 7))
	out := buf.String()
	require.Contains(t, out, "pretty message")
	require.Contains(t, out, `"block": 7`)
	require.Contains(t, out, `"op": "test.Op"`)
}

func TestErrNil(t *testing.T) {
	require.Equal(t, "<nil>", slogext.Err(nil).Value.String())
}
