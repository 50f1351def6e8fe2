package logger

import "context"

// contextKey is a private type so our context keys never collide with
// keys set by other packages.
type contextKey struct{}

var sessionContextKey = contextKey{}

// SessionContext holds the fields attached to every log line produced while
// handling one connection: its correlation id, peer address, and the most
// recently read opcode (grounded on the teacher's internal/logger.LogContext
// request-scoping pattern).
type SessionContext struct {
	SessionID string
	Peer      string
	Opcode    string
}

// WithSession returns a copy of ctx carrying sc.
func WithSession(ctx context.Context, sc *SessionContext) context.Context {
	return context.WithValue(ctx, sessionContextKey, sc)
}

// SessionFromContext returns the SessionContext attached to ctx, or nil.
func SessionFromContext(ctx context.Context) *SessionContext {
	sc, _ := ctx.Value(sessionContextKey).(*SessionContext)
	return sc
}

// WithOpcode returns a copy of sc with Opcode set, for passing back into
// WithSession ahead of the next log call.
func (sc *SessionContext) WithOpcode(op string) *SessionContext {
	if sc == nil {
		return nil
	}
	clone := *sc
	clone.Opcode = op
	return &clone
}

// Fields flattens sc into a slog key/value arg list, ready to splat into
// Debug/Info/Warn/Error.
func (sc *SessionContext) Fields() []any {
	if sc == nil {
		return nil
	}
	fields := make([]any, 0, 6)
	if sc.SessionID != "" {
		fields = append(fields, "session_id", sc.SessionID)
	}
	if sc.Peer != "" {
		fields = append(fields, "peer", sc.Peer)
	}
	if sc.Opcode != "" {
		fields = append(fields, "opcode", sc.Opcode)
	}
	return fields
}
