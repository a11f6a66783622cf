package utils

import (
	"context"

	"pharmacie-admin/pkg/contextkeys"
	apperrors "pharmacie-admin/pkg/errors"
)

func GetSessionIDFromCtx(ctx context.Context) (string, error) {
	sid, ok := ctx.Value(contextkeys.SessionIDKey).(string)
	if !ok || sid == "" {
		return "", apperrors.ErrSessionIDNotFoundInContext
	}
	return sid, nil
}

func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, contextkeys.SessionIDKey, sid)
}
