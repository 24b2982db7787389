package repository

import (
	"context"

	"session-auth/internal/domain"
)

// UserRepository defines persistence operations for User entities.
//
// Lookups that match nothing return domain.ErrUserNotFound and inserts that
// break email or username uniqueness return domain.ErrUserExists. Any other
// error is a store failure.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	Delete(ctx context.Context, id int64) error
}
