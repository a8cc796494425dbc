package repository

import (
	"context"

	db "github.com/corvusHold/shopmail/internal/db/sqlc"
	udomain "github.com/corvusHold/shopmail/internal/users/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SQLCRepository struct {
	q *db.Queries
}

func New(pg *pgxpool.Pool) *SQLCRepository {
	return &SQLCRepository{q: db.New(pg)}
}

func toPgUUID(u uuid.UUID) pgtype.UUID {
	var id pgtype.UUID
	id.Bytes = u
	id.Valid = true
	return id
}

// GetByID returns pgx.ErrNoRows when the user does not exist.
func (r *SQLCRepository) GetByID(ctx context.Context, id uuid.UUID) (udomain.User, error) {
	row, err := r.q.GetUserByID(ctx, toPgUUID(id))
	if err != nil {
		return udomain.User{}, err
	}
	return udomain.User{
		ID:       uuid.UUID(row.ID.Bytes),
		Username: row.Username,
		Email:    row.Email.String,
	}, nil
}

func (r *SQLCRepository) Create(ctx context.Context, u udomain.User) error {
	return r.q.CreateUser(ctx, db.CreateUserParams{
		ID:       toPgUUID(u.ID),
		Username: u.Username,
		Email:    pgtype.Text{String: u.Email, Valid: u.Email != ""},
	})
}
