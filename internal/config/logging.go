package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (l LoggingConfig) validate() error {
	if _, err := zap.ParseAtomicLevel(l.level()); err != nil {
		return fmt.Errorf("invalid logging level: %s", l.Level)
	}
	switch l.format() {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", l.Format)
	}
	return nil
}

func (l LoggingConfig) level() string {
	if strings.TrimSpace(l.Level) == "" {
		return "info"
	}
	return strings.ToLower(strings.TrimSpace(l.Level))
}

func (l LoggingConfig) format() string {
	if strings.TrimSpace(l.Format) == "" {
		return "console"
	}
	return strings.ToLower(strings.TrimSpace(l.Format))
}

// NewLogger builds a zap logger writing to stderr so command output on stdout stays clean.
func (l LoggingConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.level())
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	var zc zap.Config
	if l.format() == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
