package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// severities maps syslog-style names onto zap levels. zap has nothing above
// error that keeps the process alive, so critical and up log at error.
var severities = map[string]zapcore.Level{
	"notice":    zapcore.InfoLevel,
	"warning":   zapcore.WarnLevel,
	"critical":  zapcore.ErrorLevel,
	"alert":     zapcore.ErrorLevel,
	"emergency": zapcore.ErrorLevel,
}

// ParseLevel accepts zap level names (debug, info, warn, error) and the
// syslog severities used by error tracking (notice, warning, critical, alert, emergency).
func ParseLevel(name string) (zapcore.Level, error) {
	if lvl, ok := severities[name]; ok {
		return lvl, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	if lvl > zapcore.ErrorLevel {
		return 0, fmt.Errorf("invalid log level %q: terminates the process", name)
	}
	return lvl, nil
}

// NewLogger creates a zap logger for the given environment.
// prod and staging use JSON output, local/dev/docker use colored console output,
// test discards everything.
// levelOverride (if non-empty) is parsed with ParseLevel.
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod", "production", "staging":
		cfg = zap.NewProductionConfig()
	case "local", "dev", "docker":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "test":
		return zap.NewNop(), nil
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if len(levelOverride) > 0 && levelOverride[0] != "" {
		level, err := ParseLevel(levelOverride[0])
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
