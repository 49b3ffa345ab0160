package logx

import (
	"context"

	"pkt.systems/pslog"
)

type contextKey int

const (
	sessionKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with a capture session id when available.
func WithSession(ctx context.Context, sessionID string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if log == nil || sessionID == "" {
		return log
	}
	if current, ok := ctx.Value(sessionKey).(string); ok && current == sessionID {
		return log
	}
	return log.With("session", sessionID)
}

// WithCommand annotates the logger with the captured command.
func WithCommand(log pslog.Logger, command string) pslog.Logger {
	if log != nil && command != "" {
		log = log.With("command", command)
	}
	return log
}

// WithModel annotates the logger with LLM provider and model when set.
func WithModel(log pslog.Logger, provider, model string) pslog.Logger {
	if log == nil {
		return log
	}
	if provider != "" {
		log = log.With("provider", provider)
	}
	if model != "" {
		log = log.With("model", model)
	}
	return log
}

// ContextWithSession attaches the logger annotated with the session id and
// stores the session marker for de-duplication.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	log := WithSession(ctx, sessionID)
	if log != nil {
		ctx = pslog.ContextWithLogger(ctx, log)
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}
