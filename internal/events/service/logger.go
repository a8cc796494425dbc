package service

import (
	"context"

	"github.com/corvusHold/shopmail/internal/events/domain"
	"github.com/rs/zerolog"
)

// Logger is a Publisher that writes events to the structured log.
// In production, replace with a queue or external sink.
type Logger struct{ log zerolog.Logger }

func NewLogger(log zerolog.Logger) *Logger { return &Logger{log: log} }

func (l *Logger) Publish(ctx context.Context, e domain.Event) error {
	ev := l.log.Info()
	if e.Type == domain.TypeSendFailed || e.Type == domain.TypeTransportDegraded {
		ev = l.log.Warn()
	}
	ev.Str("type", e.Type).
		Str("tenant_id", e.TenantID.String()).
		Fields(map[string]any{"meta": e.Meta}).
		Time("ts", e.Time).
		Msg("event")
	return nil
}
