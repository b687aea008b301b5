package logging

import (
	"context"

	"github.com/google/uuid"
)

func GetSessionIDFromCtx(ctx context.Context) string {
	if v := ctx.Value(sessionKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func MakeContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

func MakeContextWithNewSessionID(ctx context.Context) context.Context {
	return MakeContextWithSessionID(ctx, uuid.New().String())
}
