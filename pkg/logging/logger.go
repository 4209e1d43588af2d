// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging builds the slog.Logger the ClaimSentinel binaries install
// as the process default.
//
// Output goes to stderr in text or JSON form, with an optional JSON log file
// alongside. Both binaries construct one Logger at startup, hand its slog to
// slog.SetDefault, and Close it on the way out:
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    Service: "claims",
//	    JSON:    true,
//	})
//	defer logger.Close()
//	slog.SetDefault(logger.Slog())
//
// Nothing here redacts claim text. Callers log identifier counts and byte
// lengths, never narrative content; the redaction guardrail owns masking.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level is the minimum severity a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// slogLevel maps onto slog's scale, where adjacent named levels sit four
// apart starting at -4 for debug.
func (l Level) slogLevel() slog.Level {
	return slog.Level(int(l)*4 - 4)
}

// Config controls where and how a Logger writes. The zero value is an
// Info-level text logger on stderr.
type Config struct {
	// Level is the minimum emitted severity. Default: LevelInfo.
	Level Level

	// Service tags every record and names the log file. "claims" for the
	// HTTP service, "cli" for the sentinel command.
	Service string

	// JSON switches the stderr stream to JSON lines. The log file is JSON
	// regardless.
	JSON bool

	// Quiet drops the stderr stream entirely, leaving only the log file
	// if LogDir is set.
	Quiet bool

	// LogDir, when non-empty, adds a JSON log file under this directory.
	// A leading ~ expands to the user's home.
	LogDir string
}

// Logger owns the configured destinations.
//
// # Thread Safety
//
// Safe for concurrent use; slog handlers serialize their own writes.
type Logger struct {
	slog *slog.Logger
	file *os.File
}

// New builds a Logger per the config. Close must be called when file
// logging is enabled so buffered records reach disk.
func New(config Config) *Logger {
	return newLogger(os.Stderr, config)
}

// newLogger is the seam tests use to capture the stderr stream.
func newLogger(stderr io.Writer, config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.slogLevel()}
	logger := &Logger{}

	var sinks []slog.Handler
	if !config.Quiet {
		if config.JSON {
			sinks = append(sinks, slog.NewJSONHandler(stderr, opts))
		} else {
			sinks = append(sinks, slog.NewTextHandler(stderr, opts))
		}
	}
	if config.LogDir != "" {
		// Startup must survive an unwritable log directory; the stderr
		// stream keeps working without the file.
		if file, err := openLogFile(config.LogDir, config.Service); err == nil {
			logger.file = file
			sinks = append(sinks, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(sinks) {
	case 0:
		handler = slog.DiscardHandler
	case 1:
		handler = sinks[0]
	default:
		handler = fanout(sinks)
	}
	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(handler)
	return logger
}

// Slog returns the underlying slog.Logger for slog.SetDefault and for APIs
// that take the standard type.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close syncs and closes the log file if one is open.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync log file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// openLogFile opens (appending) the dated service log under dir, creating
// the directory if needed. Files are named "{service}_{date}.log".
func openLogFile(dir, service string) (*os.File, error) {
	if service == "" {
		service = "sentinel"
	}
	dir = expandHome(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// fanout delivers each record to every sink, letting stderr and the log
// file carry different formats at the same level gate.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		// Each handler gets its own copy; slog handlers may retain the
		// record they are handed.
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
