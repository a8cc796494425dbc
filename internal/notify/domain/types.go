package domain

import (
	"context"

	"github.com/google/uuid"

	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
)

// Repair order statuses with German labels for customer mail.
const (
	StatusReceived     = "received"
	StatusInRepair     = "in_repair"
	StatusWaitingParts = "waiting_parts"
	StatusReady        = "ready"
	StatusCompleted    = "completed"
	StatusCancelled    = "cancelled"
)

var statusLabels = map[string]string{
	StatusReceived:     "Eingegangen",
	StatusInRepair:     "In Reparatur",
	StatusWaitingParts: "Warten auf Ersatzteile",
	StatusReady:        "Abholbereit",
	StatusCompleted:    "Abgeschlossen",
	StatusCancelled:    "Storniert",
}

// StatusLabel returns the customer-facing label, or the raw status when unknown.
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

// StatusChange tells a customer that their repair order moved to a new status.
type StatusChange struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	OrderNumber   string `json:"order_number" validate:"required"`
	Device        string `json:"device"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status" validate:"required"`
	Note          string `json:"note"`
	TrackingURL   string `json:"tracking_url" validate:"omitempty,url"`
}

// FeedbackRequest asks a customer to rate a completed repair.
type FeedbackRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	OrderNumber   string `json:"order_number" validate:"required"`
	FeedbackURL   string `json:"feedback_url" validate:"required,url"`
}

type Notifier interface {
	StatusChanged(ctx context.Context, tenantID uuid.UUID, n StatusChange) (mdomain.SendResult, error)
	FeedbackRequest(ctx context.Context, tenantID uuid.UUID, n FeedbackRequest) (mdomain.SendResult, error)
}
