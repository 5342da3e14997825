package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"course-scene-service/internal/config"
)

// loadConfig reads .env, then the YAML file, then COURSE_* overrides, and
// installs the configured logger as the slog default.
func loadConfig(path string) (config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
