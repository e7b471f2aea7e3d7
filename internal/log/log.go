// Package log wraps a *zap.Logger with the host/shard/stream field helpers
// shared by every transport layer boundary, matching the teacher proxy's
// zap.NewProduction() / zap.Error(err) idiom (see proxy.Proxy.Listen).
package log

import "go.uber.org/zap"

// Logger is a thin *zap.Logger wrapper so callers add host/shard/stream
// fields by name instead of repeating zap.String/zap.Int boilerplate at
// every call site.
type Logger struct {
	z *zap.Logger
}

// New wraps an existing *zap.Logger. Passing nil yields a no-op Logger.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// NewProduction builds a production zap.Logger and wraps it, matching the
// teacher's zap.NewProduction() call at proxy startup.
func NewProduction() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

// Nop returns a Logger that discards everything, for tests and defaults.
func Nop() *Logger { return New(zap.NewNop()) }

// WithHost returns a child Logger with a "host" field attached.
func (l *Logger) WithHost(host string) *Logger {
	return &Logger{z: l.z.With(zap.String("host", host))}
}

// WithShard returns a child Logger with a "shard" field attached.
func (l *Logger) WithShard(shard int) *Logger {
	return &Logger{z: l.z.With(zap.Int("shard", shard))}
}

// WithStream returns a child Logger with a "stream" field attached.
func (l *Logger) WithStream(stream int16) *Logger {
	return &Logger{z: l.z.With(zap.Int16("stream", stream))}
}

// Info logs at info level with additional fields.
func (l *Logger) Info(msg string, fields ...zap.Field) { l.z.Info(msg, fields...) }

// Warn logs at warn level with additional fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.z.Warn(msg, fields...) }

// Error logs at error level with additional fields.
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// Sync flushes any buffered log entries, matching zap's shutdown idiom.
func (l *Logger) Sync() error { return l.z.Sync() }

// Raw returns the underlying *zap.Logger for call sites that want the full
// zap API (e.g. zap.Error, zap.Int) rather than this wrapper's helpers.
func (l *Logger) Raw() *zap.Logger { return l.z }
