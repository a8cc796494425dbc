package repository

import (
	"context"
	"errors"

	db "github.com/corvusHold/shopmail/internal/db/sqlc"
	sdomain "github.com/corvusHold/shopmail/internal/settings/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SQLCRepository struct{ q *db.Queries }

func New(pg *pgxpool.Pool) *SQLCRepository { return &SQLCRepository{q: db.New(pg)} }

func toPgUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func fromRow(row db.BusinessSetting) sdomain.BusinessSettings {
	return sdomain.BusinessSettings{
		ID:           uuid.UUID(row.ID.Bytes),
		UserID:       uuid.UUID(row.UserID.Bytes),
		BusinessName: row.BusinessName.String,
		Email:        row.Email.String,
		SMTPHost:     row.SmtpHost.String,
		SMTPPort:     row.SmtpPort.String,
		SMTPUser:     row.SmtpUser.String,
		SMTPPassword: row.SmtpPassword.String,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}

func (r *SQLCRepository) Latest(ctx context.Context, userID uuid.UUID) (sdomain.BusinessSettings, bool, error) {
	row, err := r.q.GetLatestBusinessSettings(ctx, toPgUUID(userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return sdomain.BusinessSettings{}, false, nil
	}
	if err != nil {
		return sdomain.BusinessSettings{}, false, err
	}
	return fromRow(row), true, nil
}

func (r *SQLCRepository) Insert(ctx context.Context, s sdomain.BusinessSettings) (sdomain.BusinessSettings, error) {
	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row, err := r.q.InsertBusinessSettings(ctx, db.InsertBusinessSettingsParams{
		ID:           toPgUUID(id),
		UserID:       toPgUUID(s.UserID),
		BusinessName: toPgText(s.BusinessName),
		Email:        toPgText(s.Email),
		SmtpHost:     toPgText(s.SMTPHost),
		SmtpPort:     toPgText(s.SMTPPort),
		SmtpUser:     toPgText(s.SMTPUser),
		SmtpPassword: toPgText(s.SMTPPassword),
	})
	if err != nil {
		return sdomain.BusinessSettings{}, err
	}
	return fromRow(row), nil
}
