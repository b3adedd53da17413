/*
 * wideq
 * Copyright (C) 2026  wideq contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package log provides the process-wide slog setup shared by the library
// and the CLI. It is conventionally imported as logutils.
package log

import (
	"log/slog"
	"os"
)

// level gates every logger handed out by this package. Handlers consult it
// at record time, so adjusting it affects loggers created earlier.
var level = new(slog.LevelVar)

// handler is the process-wide handler package loggers write through.
// Diagnostics go to stderr so command output stays clean on stdout.
var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: level,
})

// NewPackageLogger returns a logger that attaches the given key/value
// attributes to every record. Packages declare one at init time:
//
//	var log = logutils.NewPackageLogger(wideq.ComponentKey, wideq.ComponentModel)
func NewPackageLogger(args ...any) *slog.Logger {
	return slog.New(handler).With(args...)
}

// SetLevel adjusts the minimum level for all package loggers.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Init configures process-wide logging for a command line tool. Debug
// enables debug records; the slog default logger is routed through the
// package handler so stray slog calls land in one place.
func Init(debug bool) {
	if debug {
		level.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(handler))
}
