package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context. Session is
// reserved for a future FTP protocol layer (out of scope here) to
// thread a session id through without changing this API.
type LogContext struct {
	TraceID   string    // trace ID
	SpanID    string    // span ID
	Session   string    // FTP session id, if any
	Store     string    // users, groups, sections, or zipscript
	Release   string    // zipscript release virtual path, if any
	UID       string    // identity of the user record touched, if any
	GID       string    // identity of the group record touched, if any
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the named store.
func NewLogContext(store string) *LogContext {
	return &LogContext{
		Store:     store,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Session:   lc.Session,
		Store:     lc.Store,
		Release:   lc.Release,
		UID:       lc.UID,
		GID:       lc.GID,
		StartTime: lc.StartTime,
	}
}

// WithStore returns a copy with the store name set
func (lc *LogContext) WithStore(store string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Store = store
	}
	return clone
}

// WithRelease returns a copy with the release path set
func (lc *LogContext) WithRelease(release string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Release = release
	}
	return clone
}

// WithSession returns a copy with the session id set
func (lc *LogContext) WithSession(session string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Session = session
	}
	return clone
}

// WithIdentity returns a copy with the touched user/group identity set
func (lc *LogContext) WithIdentity(uid, gid string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.UID = uid
		clone.GID = gid
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
