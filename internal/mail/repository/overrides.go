package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/corvusHold/shopmail/internal/db/sqlc"
	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	"github.com/corvusHold/shopmail/internal/platform/secretbox"
)

var _ mdomain.OverrideRepository = (*OverrideRepository)(nil)

// OverrideRepository persists per-tenant SMTP overrides. Passwords are sealed
// with the configured secretbox before they reach the database.
type OverrideRepository struct {
	q   *db.Queries
	box *secretbox.Box
}

func NewOverrides(pg *pgxpool.Pool, box *secretbox.Box) *OverrideRepository {
	return &OverrideRepository{q: db.New(pg), box: box}
}

func toPgUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func (r *OverrideRepository) Get(ctx context.Context, tenantID uuid.UUID) (mdomain.TenantMailConfig, bool, error) {
	row, err := r.q.GetMailOverride(ctx, toPgUUID(tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return mdomain.TenantMailConfig{}, false, nil
	}
	if err != nil {
		return mdomain.TenantMailConfig{}, false, err
	}
	pw, err := r.box.Open(row.PasswordEnc)
	if err != nil {
		return mdomain.TenantMailConfig{}, false, fmt.Errorf("open override password: %w", err)
	}
	cfg := mdomain.TenantMailConfig{
		Host:            row.Host,
		Port:            int(row.Port),
		Username:        row.Username,
		Password:        string(pw),
		FromAddressHint: row.FromAddress.String,
	}
	return cfg.Normalize(), true, nil
}

func (r *OverrideRepository) Put(ctx context.Context, tenantID uuid.UUID, cfg mdomain.TenantMailConfig) error {
	cfg = cfg.Normalize()
	if !cfg.Complete() {
		return mdomain.ErrConfigIncomplete
	}
	sealed, err := r.box.Seal([]byte(cfg.Password))
	if err != nil {
		return fmt.Errorf("seal override password: %w", err)
	}
	return r.q.UpsertMailOverride(ctx, db.UpsertMailOverrideParams{
		TenantID:    toPgUUID(tenantID),
		Host:        cfg.Host,
		Port:        int32(cfg.Port),
		Username:    cfg.Username,
		PasswordEnc: sealed,
		FromAddress: pgtype.Text{String: cfg.FromAddressHint, Valid: cfg.FromAddressHint != ""},
	})
}

func (r *OverrideRepository) Delete(ctx context.Context, tenantID uuid.UUID) error {
	return r.q.DeleteMailOverride(ctx, toPgUUID(tenantID))
}
