package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BusinessSettings is one row of a shop owner's settings history.
// Only the newest row (by UpdatedAt) is authoritative.
type BusinessSettings struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	BusinessName string
	Email        string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	UpdatedAt    time.Time
}

// HasSMTP reports whether host, user and password are all present.
func (s BusinessSettings) HasSMTP() bool {
	return strings.TrimSpace(s.SMTPHost) != "" &&
		strings.TrimSpace(s.SMTPUser) != "" &&
		strings.TrimSpace(s.SMTPPassword) != ""
}

// Repository abstracts storage of business settings.
type Repository interface {
	// Latest returns (settings, found, err) for the most recently updated row of a user.
	Latest(ctx context.Context, userID uuid.UUID) (BusinessSettings, bool, error)
	// Insert appends a new row to the user's settings history.
	Insert(ctx context.Context, s BusinessSettings) (BusinessSettings, error)
}
