package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Mail subsystem event types.
const (
	// TypeTransportDegraded: a tenant's own SMTP config failed verification and
	// its mail is routed through the default account until the cache is cleared.
	TypeTransportDegraded = "mail.transport.degraded"
	TypeSendFallback      = "mail.send.fallback"
	TypeSendFailed        = "mail.send.failed"
	TypeCacheCleared      = "mail.cache.cleared"
)

// Event represents an operational event that the surrounding application may
// surface to a tenant (e.g. "your mail server rejected our login").
// Meta may contain host, source, error, etc.
type Event struct {
	Type     string
	TenantID uuid.UUID
	Meta     map[string]string
	Time     time.Time
}

// Publisher publishes events to an external system (log, queue, etc.).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
