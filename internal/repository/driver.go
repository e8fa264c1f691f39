package repository

import (
	"context"

	"ridehail/internal/domain"
)

// DriverRepository defines the persistence operations for the driver pool.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// ListOnline retrieves drivers currently accepting trips.
	ListOnline(ctx context.Context) ([]*domain.Driver, error)

	// UpdateAvailability sets the online flag and last known location.
	UpdateAvailability(ctx context.Context, id string, online bool, location *domain.Location) error
}
