package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the default slog logger. Output always goes to stderr;
// when logFile is set, entries are also written to a size-rotated file so
// the posting history survives restarts without growing unbounded.
func Setup(logFile string, debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var output io.Writer = os.Stderr
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return err
		}

		fileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    5, // MB
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		}
		output = io.MultiWriter(os.Stderr, fileWriter)
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	return nil
}
