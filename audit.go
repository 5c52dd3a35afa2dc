package cashflow

import (
	"io"
	"log/slog"

	"github.com/cooperrunyan/cashflow/internal/audit"
)

type (
	AuditEvent     = audit.Event
	AuditSink      = audit.Sink
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	SlogSink       = audit.SlogSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewSlogSink logs audit events at level on logger.
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	return audit.NewSlogSink(logger, level)
}
