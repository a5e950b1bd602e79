// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// Logger writes records through the root logger with a fixed context prepended.
// The root logger is resolved on every call, so package level loggers declared
// before Setup still follow the handler installed later.
type Logger struct {
	ctx []any
}

// WithContext creates a logger carrying the given key/value pairs.
func WithContext(ctx ...any) *Logger {
	return &Logger{ctx: ctx}
}

// With returns a child logger with additional context.
func (l *Logger) With(ctx ...any) *Logger {
	merged := make([]any, 0, len(l.ctx)+len(ctx))
	merged = append(append(merged, l.ctx...), ctx...)
	return &Logger{ctx: merged}
}

func (l *Logger) args(kv []any) []any {
	if len(l.ctx) == 0 {
		return kv
	}
	out := make([]any, 0, len(l.ctx)+len(kv))
	return append(append(out, l.ctx...), kv...)
}

func (l *Logger) Trace(msg string, kv ...any) { ethlog.Root().Trace(msg, l.args(kv)...) }
func (l *Logger) Debug(msg string, kv ...any) { ethlog.Root().Debug(msg, l.args(kv)...) }
func (l *Logger) Info(msg string, kv ...any)  { ethlog.Root().Info(msg, l.args(kv)...) }
func (l *Logger) Warn(msg string, kv ...any)  { ethlog.Root().Warn(msg, l.args(kv)...) }
func (l *Logger) Error(msg string, kv ...any) { ethlog.Root().Error(msg, l.args(kv)...) }

// Enabled reports whether records at the level would be written.
func (l *Logger) Enabled(level slog.Level) bool {
	return ethlog.Root().Enabled(context.Background(), level)
}

// Root returns the root logger.
func Root() *Logger { return &Logger{} }
