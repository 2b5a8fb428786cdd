package notify

import (
	"log/slog"
)

// SlogSink forwards resolution notifications to the process logger. It is
// the sink of last resort and is always safe to use.
type SlogSink struct{}

// NewSlogSink creates a new slog-backed sink.
func NewSlogSink() *SlogSink {
	return &SlogSink{}
}

func (SlogSink) Info(msg string)    { slog.Info(msg) }
func (SlogSink) Warning(msg string) { slog.Warn(msg) }
func (SlogSink) Error(msg string)   { slog.Error(msg) }
