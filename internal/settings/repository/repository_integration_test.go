package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	sdomain "github.com/corvusHold/shopmail/internal/settings/domain"
)

func TestRepository_Latest_Integration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		t.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	userID := uuid.New()
	if _, err := pool.Exec(ctx, "INSERT INTO users (id, username) VALUES ($1, $2)", userID, "itest-"+userID.String()); err != nil {
		t.Fatalf("create user: %v", err)
	}

	repo := New(pool)

	if _, found, err := repo.Latest(ctx, userID); err != nil || found {
		t.Fatalf("expected no settings yet, found=%v err=%v", found, err)
	}

	if _, err := repo.Insert(ctx, sdomain.BusinessSettings{UserID: userID, BusinessName: "Old Name", SMTPHost: "old.example.com"}); err != nil {
		t.Fatalf("insert first row: %v", err)
	}
	// updated_at defaults to now(); keep the rows apart
	time.Sleep(20 * time.Millisecond)
	if _, err := repo.Insert(ctx, sdomain.BusinessSettings{
		UserID:       userID,
		BusinessName: "Handy Doktor",
		SMTPHost:     "mail.example.com",
		SMTPPort:     "465",
		SMTPUser:     "shop@example.com",
		SMTPPassword: "pw",
	}); err != nil {
		t.Fatalf("insert second row: %v", err)
	}

	got, found, err := repo.Latest(ctx, userID)
	if err != nil || !found {
		t.Fatalf("Latest failed: found=%v err=%v", found, err)
	}
	if got.BusinessName != "Handy Doktor" || got.SMTPPort != "465" {
		t.Fatalf("expected newest row, got %+v", got)
	}
	if !got.HasSMTP() {
		t.Fatalf("expected complete smtp settings")
	}
}
