package repository

import (
	"context"

	"ridehail/internal/domain"
)

// UserRepository defines the persistence operations for account profiles.
type UserRepository interface {
	// Create adds a new user. Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, user *domain.User) error

	GetByID(ctx context.Context, id string) (*domain.User, error)

	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences) error

	// IncrementTotalRides bumps the completed ride counter of each user.
	IncrementTotalRides(ctx context.Context, ids ...string) error
}
