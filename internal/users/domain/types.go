package domain

import (
	"context"

	"github.com/google/uuid"
)

// User is a shop-owner account. Its id is the tenant id used across the mail subsystem.
type User struct {
	ID       uuid.UUID
	Username string
	Email    string
}

// Repository abstracts persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, u User) error
}
