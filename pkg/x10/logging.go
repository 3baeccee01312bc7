// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// loggerPtr is the package-level fallback logger used by code paths that
// do not carry a Manager-scoped logger (e.g. Module, which is not aware
// of the Manager that owns its Registry). SetLogger replaces it for the
// whole process; every component then derives a ".With()" child logger
// from the same base rather than constructing its own.
var loggerPtr atomic.Pointer[zerolog.Logger]

var loggerInitOnce sync.Once

func packageLogger() *zerolog.Logger {
	loggerInitOnce.Do(func() {
		l := newConsoleLogger(zerolog.InfoLevel)
		loggerPtr.Store(&l)
	})
	return loggerPtr.Load()
}

// SetLogger replaces the package-wide base logger. Components derive
// child loggers from it with .With().Str("subsystem", ...).Logger().
func SetLogger(l zerolog.Logger) {
	loggerPtr.Store(&l)
}

// newConsoleLogger builds a human-readable logger writing to stderr, for
// interactive/development use.
func newConsoleLogger(level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	return zerolog.New(w).Level(level).With().Timestamp().Str("component", "x10").Logger()
}

// newJSONLogger builds a JSON logger writing to stderr. Nothing in this
// package calls it: Configuration.LogFormat and LogLevel are loaded and
// validated but do not select or configure the package logger.
func newJSONLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("component", "x10").Logger()
}

// componentLogger derives a child logger scoped to a named subsystem.
func componentLogger(base *zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("subsystem", component).Logger()
}
