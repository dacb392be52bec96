// Package logging builds the zap loggers used by the host tools.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Level string
	JSON  bool
}

// NewConfig returns the logger config for opts: console output with ISO8601
// timestamps, or JSON when requested. Stacktraces are disabled.
func NewConfig(opts Options) (zap.Config, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zap.Config{}, err
	}

	encoding := "console"
	levelEncoder := zapcore.CapitalColorLevelEncoder
	if opts.JSON {
		encoding = "json"
		levelEncoder = zapcore.LowercaseLevelEncoder
	}

	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    levelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}, nil
}

// New builds a logger for opts
func New(opts Options) (*zap.Logger, error) {
	cfg, err := NewConfig(opts)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

// ParseLevel maps a level name to a zap level. An empty name is info.
func ParseLevel(s string) (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return level, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
