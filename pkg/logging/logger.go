// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging configures structured logging for library consumers.
//
// The library logs through Go's standard slog package; every component
// that logs (execution strategies, the model orchestrator) accepts a
// *slog.Logger and falls back to slog.Default() when given none. This
// package builds loggers with the attributes and formats those
// components expect, so host applications get consistent records
// without wiring handlers by hand.
//
// # Basic Usage
//
//	logger := logging.Default()
//	m, _ := model.New(inputs, outputs, model.WithLogger(logger))
//
// Capturing compute logs in tests:
//
//	var buf bytes.Buffer
//	logger := logging.New(logging.Config{
//	    Level:  slog.LevelDebug,
//	    JSON:   true,
//	    Writer: &buf,
//	})
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config configures a logger. The zero value writes Info+ text records
// to stderr tagged with the default component name.
type Config struct {
	// Level is the minimum record level. Default: slog.LevelInfo.
	Level slog.Level

	// JSON selects JSON output instead of human-readable text.
	JSON bool

	// Writer is the log destination. Default: os.Stderr.
	Writer io.Writer

	// Component tags every record with a "component" attribute for
	// filtering in aggregated logs. Default: "cession". Set to "-" to
	// omit the attribute.
	Component string
}

// New builds a logger from the configuration.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	component := cfg.Component
	if component == "" {
		component = "cession"
	}
	if component != "-" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("component", component),
		})
	}
	return slog.New(handler)
}

// Default returns a logger with default settings: Info level, text
// format, stderr.
func Default() *slog.Logger {
	return New(Config{})
}
