package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these keys
// consistently across all log statements so log aggregation and
// querying can rely on them.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // trace ID for request correlation
	KeySpanID  = "span_id"  // span ID for operation tracking

	// ========================================================================
	// Domain context
	// ========================================================================
	KeyStore     = "store"     // which store the line concerns: users, groups, sections, zipscript
	KeySession   = "session"   // FTP session id, if supplied by a caller (reserved, unused today)
	KeyRelease   = "release"   // zipscript release virtual path
	KeyUID       = "uid"       // identity of the user record being touched, where applicable
	KeyGID       = "gid"       // identity of the group record being touched, where applicable
	KeyUsername  = "username"  // account name
	KeyGroupName = "group"     // group name
	KeySection   = "section"   // section name

	// ========================================================================
	// File / path operations
	// ========================================================================
	KeyPath     = "path"      // store file path or virtual release/file path
	KeyOldPath  = "old_path"  // source path for rename operations
	KeyNewPath  = "new_path"  // destination path for rename operations
	KeySize     = "size"      // byte size
	KeyOffset   = "offset"    // WAL/snapshot frame offset

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyOperation  = "operation"   // sub-operation type
	KeyAttempt    = "attempt"     // retry attempt number

	// ========================================================================
	// Zipscript
	// ========================================================================
	KeyFileState  = "file_state"  // pending, ok, missing, bad_crc, extra, deleted, nuked
	KeyCRC        = "crc"         // computed/expected CRC32, hex
	KeyWasNuked   = "was_nuked"   // permanent nuke marker
)

// TraceID returns a slog.Attr for the trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for the span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Store returns a slog.Attr identifying which store (users, groups,
// sections, zipscript) a log line concerns.
func Store(name string) slog.Attr { return slog.String(KeyStore, name) }

// Session returns a slog.Attr for an FTP session identifier.
func Session(id string) slog.Attr { return slog.String(KeySession, id) }

// Release returns a slog.Attr for a zipscript release virtual path.
func Release(path string) slog.Attr { return slog.String(KeyRelease, path) }

// UID returns a slog.Attr for the identity of the user record touched.
func UID(uid string) slog.Attr { return slog.String(KeyUID, uid) }

// GID returns a slog.Attr for the identity of the group record touched.
func GID(gid string) slog.Attr { return slog.String(KeyGID, gid) }

// Username returns a slog.Attr for an account name.
func Username(name string) slog.Attr { return slog.String(KeyUsername, name) }

// GroupName returns a slog.Attr for a group name.
func GroupName(name string) slog.Attr { return slog.String(KeyGroupName, name) }

// Section returns a slog.Attr for a section name.
func Section(name string) slog.Attr { return slog.String(KeySection, name) }

// Path returns a slog.Attr for a store file path or virtual path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// OldPath returns a slog.Attr for the source path of a rename.
func OldPath(p string) slog.Attr { return slog.String(KeyOldPath, p) }

// NewPath returns a slog.Attr for the destination path of a rename.
func NewPath(p string) slog.Attr { return slog.String(KeyNewPath, p) }

// Size returns a slog.Attr for a byte size.
func Size(s int64) slog.Attr { return slog.Int64(KeySize, s) }

// Offset returns a slog.Attr for a WAL/snapshot frame offset.
func Offset(off int64) slog.Attr { return slog.Int64(KeyOffset, off) }

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error, or a zero Attr for a nil error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Operation returns a slog.Attr for a sub-operation type.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// FileState returns a slog.Attr for a zipscript file verification state.
func FileState(state string) slog.Attr { return slog.String(KeyFileState, state) }

// CRC returns a slog.Attr for a hex-formatted CRC32 value.
func CRC(hex string) slog.Attr { return slog.String(KeyCRC, hex) }

// WasNuked returns a slog.Attr for the permanent nuke marker.
func WasNuked(v bool) slog.Attr { return slog.Bool(KeyWasNuked, v) }
