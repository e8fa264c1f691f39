package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"ridehail/internal/domain"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	DriverCacheTTL = 30 * time.Second // online flag flips often
	TripCacheTTL   = 60 * time.Second
)

// Key prefixes
const (
	driverCachePrefix = "cache:driver:"
	tripCachePrefix   = "cache:trip:"
)

// GetTrip retrieves a trip snapshot. A nil trip with a nil error is a cache miss.
func (s *CacheStore) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	var trip domain.Trip
	hit, err := s.get(ctx, tripCachePrefix+tripID, &trip)
	if err != nil || !hit {
		return nil, err
	}
	return &trip, nil
}

// SetTrip stores a trip snapshot.
func (s *CacheStore) SetTrip(ctx context.Context, trip *domain.Trip) error {
	return s.set(ctx, tripCachePrefix+trip.ID, trip, TripCacheTTL)
}

// InvalidateTrip removes a trip snapshot.
func (s *CacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, tripCachePrefix+tripID).Err()
}

// GetDriver retrieves a driver profile. A nil driver with a nil error is a cache miss.
func (s *CacheStore) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	var driver domain.Driver
	hit, err := s.get(ctx, driverCachePrefix+driverID, &driver)
	if err != nil || !hit {
		return nil, err
	}
	return &driver, nil
}

// SetDriver stores a driver profile.
func (s *CacheStore) SetDriver(ctx context.Context, driver *domain.Driver) error {
	return s.set(ctx, driverCachePrefix+driver.ID, driver, DriverCacheTTL)
}

// InvalidateDriver removes a driver profile.
func (s *CacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, driverCachePrefix+driverID).Err()
}

// GetDriversBatch fetches several driver profiles in one pipeline.
// Returns the hits keyed by ID and the IDs that must be loaded elsewhere.
func (s *CacheStore) GetDriversBatch(ctx context.Context, driverIDs []string) (map[string]*domain.Driver, []string, error) {
	result := make(map[string]*domain.Driver, len(driverIDs))
	if len(driverIDs) == 0 {
		return result, nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(driverIDs))
	for i, id := range driverIDs {
		cmds[i] = pipe.Get(ctx, driverCachePrefix+id)
	}

	// Exec reports redis.Nil when any key is missing; per-command errors are checked below.
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, err
	}

	var missing []string
	for i, cmd := range cmds {
		id := driverIDs[i]
		data, err := cmd.Bytes()
		if err != nil {
			missing = append(missing, id)
			continue
		}

		var driver domain.Driver
		if err := json.Unmarshal(data, &driver); err != nil {
			missing = append(missing, id)
			continue
		}
		result[id] = &driver
	}

	return result, missing, nil
}

// SetDriversBatch stores several driver profiles in one pipeline.
func (s *CacheStore) SetDriversBatch(ctx context.Context, drivers []*domain.Driver) error {
	if len(drivers) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, driver := range drivers {
		data, err := json.Marshal(driver)
		if err != nil {
			return err
		}
		pipe.Set(ctx, driverCachePrefix+driver.ID, data, DriverCacheTTL)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *CacheStore) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheStore) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}
