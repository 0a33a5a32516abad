// Package logging configures the process-wide logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/term"
)

// EnvLevel overrides the configured level when set.
const EnvLevel = "STARKACCT_LOG_LEVEL"

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "", "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return log.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// New builds a terminal logger writing to w. STARKACCT_LOG_LEVEL takes
// precedence over level.
func New(w io.Writer, level string) (log.Logger, error) {
	if env := os.Getenv(EnvLevel); env != "" {
		level = env
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, useColor(w))), nil
}

// Setup builds a stderr logger and installs it as the root logger.
func Setup(level string) (log.Logger, error) {
	l, err := New(os.Stderr, level)
	if err != nil {
		return nil, err
	}
	log.SetDefault(l)
	return l, nil
}

func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
