package logger

import "context"

// Logger defines the interface for leveled logging
type Logger interface {
	Debug(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})

	// WithPrefix returns a logger that tags every line with a component name
	WithPrefix(name string) Logger
}
