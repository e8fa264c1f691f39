package redis

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, loc domain.Location) error
	FindNearby(ctx context.Context, center domain.Location, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error)
	Release(ctx context.Context, lock *Lock) error
}

// CacheStoreInterface defines the read-through cache used by services.
type CacheStoreInterface interface {
	GetTrip(ctx context.Context, tripID string) (*domain.Trip, error)
	SetTrip(ctx context.Context, trip *domain.Trip) error
	InvalidateTrip(ctx context.Context, tripID string) error
	GetDriver(ctx context.Context, driverID string) (*domain.Driver, error)
	SetDriver(ctx context.Context, driver *domain.Driver) error
	InvalidateDriver(ctx context.Context, driverID string) error
	GetDriversBatch(ctx context.Context, driverIDs []string) (map[string]*domain.Driver, []string, error)
	SetDriversBatch(ctx context.Context, drivers []*domain.Driver) error
}

// EventStream is a live feed of trip events.
// Events is closed once the stream ends.
type EventStream interface {
	Events() <-chan domain.TripEvent
	Unsubscribe() error
}

// EventBusInterface publishes and subscribes to trip events.
type EventBusInterface interface {
	Publish(ctx context.Context, event domain.TripEvent, topics ...string) error
	Subscribe(ctx context.Context, topics ...string) (EventStream, error)
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
	_ EventBusInterface      = (*EventBus)(nil)
)
