// Package logger builds the slog logger used by every component
package logger

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

// Config controls where and how logs are written
type Config struct {
	Level  string       `yaml:"level"`
	JSON   bool         `yaml:"json"`
	Color  bool         `yaml:"color"`
	Fluent FluentConfig `yaml:"fluent"`
}

// FluentConfig enables forwarding log records to a fluent-bit/fluentd agent
type FluentConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Tag     string `yaml:"tag"`
}

// New creates the process logger. The returned close function flushes and
// closes the fluent connection when one was opened.
func New(cfg Config, w io.Writer) (*slog.Logger, func() error, error) {
	if w == nil {
		w = os.Stdout
	}
	level := ParseLevel(cfg.Level)

	var console slog.Handler
	switch {
	case cfg.JSON:
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case cfg.Color:
		console = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	default:
		console = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	if !cfg.Fluent.Enabled {
		return slog.New(console), func() error { return nil }, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.Fluent.Host,
		FluentPort: cfg.Fluent.Port,
		Async:      true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to fluent: %w", err)
	}

	tag := cfg.Fluent.Tag
	if tag == "" {
		tag = "hestia"
	}
	forward := NewFluentHandler(client, tag, level)
	return slog.New(multiHandler{console, forward}), client.Close, nil
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", level)
		return slog.LevelInfo
	}
}
