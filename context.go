package yggAuth

import "context"

type attemptIDContextKey struct{}

// WithAttemptID attaches a caller-chosen correlation id to ctx. The Engine
// copies it into log lines and audit events so one launch attempt can be
// traced across its login, validate and refresh calls.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptIDContextKey{}, id)
}

func attemptIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(attemptIDContextKey{}).(string)
	return id
}
