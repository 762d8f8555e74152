package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var logCloser io.Closer

// setupLogging installs the default slog logger. Logs stay at warn level
// unless --logs or --debug is given so they do not break the prompts.
func setupLogging(_ *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	switch {
	case debugLogs:
		level = slog.LevelDebug
	case showLogs:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	noColor := false
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out, logCloser, noColor = f, f, true
	}

	slog.SetDefault(newLogger(out, level, noColor))
	return nil
}

func newLogger(out io.Writer, level slog.Level, noColor bool) *slog.Logger {
	handler := tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	})
	return slog.New(handler)
}

func closeLogging() {
	if logCloser != nil {
		_ = logCloser.Close()
	}
}
