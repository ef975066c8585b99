package logging

import (
	"context"
)

// Context keys for logging values.
type contextKey int

const (
	sessionIDKey contextKey = iota
	hookKey
	componentKey
)

// WithSession adds a session ID to the context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithHook adds the hook verb being handled, e.g. "pre-compact".
func WithHook(ctx context.Context, hook string) context.Context {
	return context.WithValue(ctx, hookKey, hook)
}

// WithComponent adds a component name to the context
// (e.g. "committracker", "handoff", "recovery").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// SessionIDFromContext returns the session ID, or "" if not set.
func SessionIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sessionIDKey).(string)
	return s
}

// HookFromContext returns the hook verb, or "" if not set.
func HookFromContext(ctx context.Context) string {
	s, _ := ctx.Value(hookKey).(string)
	return s
}

// ComponentFromContext returns the component name, or "" if not set.
func ComponentFromContext(ctx context.Context) string {
	s, _ := ctx.Value(componentKey).(string)
	return s
}
