// Package logging builds the process zap logger and carries request-scoped loggers in contexts.
package logging

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	Level   string
	JSON    bool
	File    string // when set, logs are also appended here and errors to error.log beside it
	Debug   bool
	Service string
	Version string
}

// New builds a logger writing to stderr, plus File and its error.log sibling when File is set.
func New(o Options) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if o.Level != "" {
		if err := lvl.UnmarshalText([]byte(o.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", o.Level, err)
		}
	}
	if o.Debug {
		lvl.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewProductionConfig()
	if !o.JSON {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	var extra []zapcore.Core
	if o.File != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, o.File)

		errPath := filepath.Join(filepath.Dir(o.File), "error.log")
		sink, _, err := zap.Open(errPath)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", errPath, err)
		}
		enc := zapcore.NewJSONEncoder(cfg.EncoderConfig)
		extra = append(extra, zapcore.NewCore(enc, sink, zapcore.ErrorLevel))
	}

	log, err := cfg.Build(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(append([]zapcore.Core{c}, extra...)...)
	}))
	if err != nil {
		return nil, err
	}
	if o.Service != "" {
		log = log.With(zap.String("service", o.Service), zap.String("version", o.Version))
	}
	return log, nil
}

type ctxKey struct{}

// WithLogger returns ctx carrying l.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// With enriches the context logger with fields.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(fields...))
}
