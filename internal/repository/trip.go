package repository

import (
	"context"

	"ridehail/internal/domain"
)

// TripFilter selects trips for a participant.
type TripFilter struct {
	// UserID matches the rider or driver named by Role. Empty matches every trip.
	UserID   string
	Role     domain.UserType
	Statuses []domain.TripStatus
	Limit    int
}

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// Update writes the trip only if its stored status still equals expected.
	// Returns ErrConflict when another writer changed the status first.
	Update(ctx context.Context, trip *domain.Trip, expected domain.TripStatus) error

	// AppendRoutePoint adds a point to the route of a trip that is not finished.
	// Returns ErrConflict when the trip reached a terminal status.
	AppendRoutePoint(ctx context.Context, id string, point domain.Location) error

	// Find returns trips matching the filter, most recently requested first.
	Find(ctx context.Context, filter TripFilter) ([]*domain.Trip, error)
}
