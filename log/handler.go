// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"io"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// Format selects the output encoding of the root handler.
type Format int

const (
	FormatTerminal Format = iota
	FormatJSON
	FormatLogfmt
)

// Options configures the root handler.
type Options struct {
	Writer    io.Writer
	Format    Format
	Color     bool
	Verbosity slog.Level
}

// Setup installs a new root handler.
func Setup(opts Options) {
	var h slog.Handler
	switch opts.Format {
	case FormatJSON:
		h = ethlog.JSONHandler(opts.Writer)
	case FormatLogfmt:
		h = ethlog.LogfmtHandler(opts.Writer)
	default:
		h = ethlog.NewTerminalHandler(opts.Writer, opts.Color)
	}
	glog := ethlog.NewGlogHandler(h)
	glog.Verbosity(opts.Verbosity)
	ethlog.SetDefault(ethlog.NewLogger(glog))
}

// Discard installs a root handler that drops every record.
func Discard() {
	ethlog.SetDefault(ethlog.NewLogger(DiscardHandler()))
}

// LevelFromVerbosity converts the 0 (crit) .. 5 (trace) command line verbosity into a level.
func LevelFromVerbosity(v int) slog.Level {
	return ethlog.FromLegacyLevel(v)
}

type discardHandler struct{}

// DiscardHandler returns a no-op handler
func DiscardHandler() slog.Handler {
	return &discardHandler{}
}

func (h *discardHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

func (h *discardHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

func (h *discardHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *discardHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}
