// Package logging installs the colored slog handler used by every binary.
package logging

import (
	"fmt"
	"io"
	log "log/slog"
	"time"

	"github.com/lmittmann/tint"
)

var levels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func ParseLevel(name string) (log.Level, error) {
	lvl, ok := levels[name]
	if !ok {
		return log.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// Setup makes a tint handler writing to w the default logger.
func Setup(w io.Writer, level log.Level) {
	log.SetDefault(log.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}
