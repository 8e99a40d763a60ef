// Package logging builds the slog handlers used by the pjg CLI.
package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger returns a logger writing to w at the given level. With jsonOut
// set the records are emitted as JSON, otherwise as logfmt text.
func Logger(w io.Writer, jsonOut bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if jsonOut {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// RotatingFile returns a log sink that rotates at maxSizeMB megabytes,
// keeping a small number of old files.
func RotatingFile(path string, maxSizeMB int) io.Writer {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}
