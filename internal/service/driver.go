package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

const defaultSearchRadiusKm = 5.0

// DriverService handles the driver dashboard and the driver pool.
type DriverService struct {
	locationStore redis.LocationStoreInterface
	cacheStore    redis.CacheStoreInterface
	driverRepo    repository.DriverRepository
	radiusKm      float64
	logger        *zap.Logger
}

// NewDriverService creates a new DriverService. cacheStore may be nil.
func NewDriverService(
	locationStore redis.LocationStoreInterface,
	cacheStore redis.CacheStoreInterface,
	driverRepo repository.DriverRepository,
	logger *zap.Logger,
) *DriverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriverService{
		locationStore: locationStore,
		cacheStore:    cacheStore,
		driverRepo:    driverRepo,
		radiusKm:      defaultSearchRadiusKm,
		logger:        logger,
	}
}

// WithSearchRadius sets the radius used by ListPool when the request leaves it unset.
func (s *DriverService) WithSearchRadius(km float64) *DriverService {
	if km > 0 {
		s.radiusKm = km
	}
	return s
}

// GoOnline puts the calling driver in the pool at the given location.
func (s *DriverService) GoOnline(ctx context.Context, session Session, loc domain.Location) (*domain.Driver, error) {
	if err := requireDriver(session); err != nil {
		return nil, err
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	if err := s.driverRepo.UpdateAvailability(ctx, session.UserID, true, &loc); err != nil {
		return nil, err
	}

	if err := s.locationStore.UpdateLocation(ctx, session.UserID, loc); err != nil {
		return nil, err
	}

	s.logger.Info("driver online", zap.String("driver_id", session.UserID))

	return s.refresh(ctx, session.UserID)
}

// UpdateLocation records the calling driver's position.
// Offline drivers keep their last location but stay out of the geo index.
func (s *DriverService) UpdateLocation(ctx context.Context, session Session, loc domain.Location) error {
	if err := requireDriver(session); err != nil {
		return err
	}
	if err := loc.Validate(); err != nil {
		return err
	}

	driver, err := s.GetDriver(ctx, session.UserID)
	if err != nil {
		return err
	}

	if err := s.driverRepo.UpdateAvailability(ctx, session.UserID, driver.IsOnline, &loc); err != nil {
		return err
	}

	if driver.IsOnline {
		if err := s.locationStore.UpdateLocation(ctx, session.UserID, loc); err != nil {
			return err
		}
	}

	s.invalidate(ctx, session.UserID)
	return nil
}

// GoOffline removes the calling driver from the pool.
func (s *DriverService) GoOffline(ctx context.Context, session Session) error {
	if err := requireDriver(session); err != nil {
		return err
	}

	if err := s.driverRepo.UpdateAvailability(ctx, session.UserID, false, nil); err != nil {
		return err
	}

	if err := s.locationStore.RemoveLocation(ctx, session.UserID); err != nil {
		return err
	}

	s.invalidate(ctx, session.UserID)
	s.logger.Info("driver offline", zap.String("driver_id", session.UserID))
	return nil
}

// GetDriver returns a driver profile, reading through the cache.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetDriver(ctx, driverID); err == nil && cached != nil {
			return cached, nil
		}
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetDriver(ctx, driver)
	}
	return driver, nil
}

// ListPoolRequest filters the driver pool.
type ListPoolRequest struct {
	OnlineOnly bool
	Near       *domain.Location // optional: restrict to drivers around this point
	RadiusKm   float64          // 0 uses the service radius
}

// ListPool returns drivers in the pool. With Near set, only indexed online
// drivers inside the radius are returned, closest first.
func (s *DriverService) ListPool(ctx context.Context, req ListPoolRequest) ([]*domain.Driver, error) {
	if req.Near == nil {
		if req.OnlineOnly {
			return s.driverRepo.ListOnline(ctx)
		}
		return s.driverRepo.GetAll(ctx)
	}

	if err := req.Near.Validate(); err != nil {
		return nil, err
	}

	radiusKm := req.RadiusKm
	if radiusKm <= 0 {
		radiusKm = s.radiusKm
	}

	nearby, err := s.locationStore.FindNearby(ctx, *req.Near, radiusKm)
	if err != nil {
		return nil, err
	}
	if len(nearby) == 0 {
		return nil, nil
	}

	ids := make([]string, len(nearby))
	for i, loc := range nearby {
		ids[i] = loc.DriverID
	}

	profiles, err := s.driversByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	drivers := make([]*domain.Driver, 0, len(nearby))
	for _, loc := range nearby {
		driver, ok := profiles[loc.DriverID]
		if !ok || !driver.IsOnline {
			continue
		}
		position := loc.Location
		driver.CurrentLocation = &position
		drivers = append(drivers, driver)
	}

	return drivers, nil
}

// driversByID batch-loads profiles from the cache and falls back to the database.
func (s *DriverService) driversByID(ctx context.Context, ids []string) (map[string]*domain.Driver, error) {
	found := make(map[string]*domain.Driver, len(ids))
	missing := ids

	if s.cacheStore != nil {
		cached, miss, err := s.cacheStore.GetDriversBatch(ctx, ids)
		if err == nil {
			found = cached
			missing = miss
		}
	}

	var loaded []*domain.Driver
	for _, id := range missing {
		driver, err := s.driverRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		found[id] = driver
		loaded = append(loaded, driver)
	}

	if s.cacheStore != nil && len(loaded) > 0 {
		_ = s.cacheStore.SetDriversBatch(ctx, loaded)
	}

	return found, nil
}

func (s *DriverService) refresh(ctx context.Context, driverID string) (*domain.Driver, error) {
	s.invalidate(ctx, driverID)
	return s.GetDriver(ctx, driverID)
}

func (s *DriverService) invalidate(ctx context.Context, driverID string) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.InvalidateDriver(ctx, driverID)
}
