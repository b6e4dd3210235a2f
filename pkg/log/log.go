// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log routes user-visible messages. The host application only shows
// what arrives as notify events, so notification verbosity is a setting of its
// own; local diagnostics go to the console stream (stderr, since stdout
// carries the host protocol).
package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// Notification levels, matching the settings file's log key.
const (
	LevelError uint64 = iota
	LevelStatus
	LevelVerbose
	LevelDebug
)

// 🎨 Display configuration
const (
	titleWidth    = 40 // base width for the book title column
	decisionWidth = 10 // width for the decision column
)

// 📢 Notifier is the host-facing half: anything that can deliver a notify
// event. *host.Channel satisfies it.
type Notifier interface {
	Notify(message string) error
}

// 📦 BookOperation represents one per-book outcome for display.
type BookOperation struct {
	Title    string // Book title
	Key      string // Content key
	Decision string // added/updated/skipped/failed
}

// 🎯 Logger fans user-visible messages out to the host notify channel (gated
// by verbosity) and to colored console diagnostics.
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	notifier  Notifier
	verbosity uint64
	mu        sync.Mutex
}

// 🏭 New creates a logger. A nil notifier silences the host-facing half,
// which the tests use. Structured records go to a stderr console writer; the
// console stream carries the human-readable lines. Neither may ever touch
// stdout, which belongs to the host protocol.
func New(console io.Writer, notifier Notifier, verbosity uint64) *Logger {
	zlevel := zerolog.InfoLevel
	if verbosity >= LevelVerbose {
		zlevel = zerolog.DebugLevel
	}
	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).With().Timestamp().Logger().Level(zlevel)
	return &Logger{
		zlog:      zlog,
		console:   console,
		notifier:  notifier,
		verbosity: verbosity,
	}
}

// notify forwards msg to the host when the level clears the threshold.
func (l *Logger) notify(level uint64, msg string) {
	if l.notifier == nil || level > l.verbosity {
		return
	}
	// A dead notify channel is not worth failing the sync over.
	_ = l.notifier.Notify(msg)
}

// 📝 Error reports a failure to the host and the console.
func (l *Logger) Error(msg string) {
	l.notify(LevelError, msg)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Status reports normal progress.
func (l *Logger) Status(msg string) {
	l.notify(LevelStatus, msg)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Verbose reports per-book detail.
func (l *Logger) Verbose(msg string) {
	l.notify(LevelVerbose, msg)
	l.zlog.Debug().Msg(msg)
}

// 📝 Debug reports wire-level detail.
func (l *Logger) Debug(msg string) {
	l.notify(LevelDebug, msg)
	l.zlog.Debug().Msg(msg)
}

// 📝 Errorf is Error with formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Statusf is Status with formatting.
func (l *Logger) Statusf(format string, args ...interface{}) {
	l.Status(fmt.Sprintf(format, args...))
}

// 📝 Verbosef is Verbose with formatting.
func (l *Logger) Verbosef(format string, args ...interface{}) {
	l.Verbose(fmt.Sprintf(format, args...))
}

// 📝 LogBookOperation prints one per-book outcome line to the console.
func (l *Logger) LogBookOperation(op BookOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatBookOperation(op))

	l.zlog.Info().
		Str("title", op.Title).
		Str("key", op.Key).
		Str("decision", op.Decision).
		Msg("book operation")
}

// formatBookOperation formats a per-book outcome line for display.
func (l *Logger) formatBookOperation(op BookOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch op.Decision {
	case "failed":
		symbol = '✗'
		symbolColor = color.FgRed
	case "added":
		symbol = '✓'
		symbolColor = color.FgGreen
	case "updated":
		symbol = '⟳'
		symbolColor = color.FgBlue
	default:
		symbol = '•'
		symbolColor = color.FgCyan
	}

	return fmt.Sprintf("%s %s %s %s",
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", titleWidth, op.Title),
		color.New(color.Faint).Sprint(fmt.Sprintf("%-*s", decisionWidth, op.Decision)),
		color.New(color.FgYellow).Sprint(op.Key))
}
