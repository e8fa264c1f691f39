package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

const defaultTripLockTTL = 30 * time.Second // held while a trip is being dispatched

// DispatchPolicy chooses a driver for a trip from the online pool.
type DispatchPolicy interface {
	Pick(ctx context.Context, pool []*domain.Driver) (*domain.Driver, error)
}

// RandomDispatchPolicy picks uniformly at random. It does not look at
// distance, rating or availability.
type RandomDispatchPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDispatchPolicy creates a RandomDispatchPolicy. A nil source uses
// the shared generator.
func NewRandomDispatchPolicy(src rand.Source) *RandomDispatchPolicy {
	p := &RandomDispatchPolicy{}
	if src != nil {
		p.rng = rand.New(src)
	}
	return p
}

// Pick returns one driver of the pool.
func (p *RandomDispatchPolicy) Pick(ctx context.Context, pool []*domain.Driver) (*domain.Driver, error) {
	if len(pool) == 0 {
		return nil, ErrNoDriverAvailable
	}
	if p.rng == nil {
		return pool[rand.IntN(len(pool))], nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return pool[p.rng.IntN(len(pool))], nil
}

// DispatchService assigns drivers to requested trips.
type DispatchService struct {
	tripService   *TripService
	driverService *DriverService
	policy        DispatchPolicy
	lockStore     redis.LockStoreInterface
	lockTTL       time.Duration
	logger        *zap.Logger
}

// NewDispatchService creates a new DispatchService. lockStore may be nil.
func NewDispatchService(
	tripService *TripService,
	driverService *DriverService,
	policy DispatchPolicy,
	lockStore redis.LockStoreInterface,
	logger *zap.Logger,
) *DispatchService {
	if policy == nil {
		policy = NewRandomDispatchPolicy(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchService{
		tripService:   tripService,
		driverService: driverService,
		policy:        policy,
		lockStore:     lockStore,
		lockTTL:       defaultTripLockTTL,
		logger:        logger,
	}
}

// WithLockTTL sets how long a trip stays locked while a driver is picked.
func (s *DispatchService) WithLockTTL(ttl time.Duration) *DispatchService {
	if ttl > 0 {
		s.lockTTL = ttl
	}
	return s
}

// AssignDriver binds an online driver to the rider's requested trip through
// the regular accept transition. A trip that already has a driver is
// returned unchanged.
func (s *DispatchService) AssignDriver(ctx context.Context, session Session, tripID string) (*domain.Trip, error) {
	if err := requireRider(session); err != nil {
		return nil, err
	}

	trip, err := s.tripService.GetTrip(ctx, session, tripID)
	if err != nil {
		return nil, err
	}
	if trip.RiderID != session.UserID {
		return nil, ErrNotTripParticipant
	}
	if trip.DriverID != "" {
		return trip, nil
	}
	if trip.Status != domain.TripStatusRequested {
		return nil, domain.ErrInvalidTransition
	}

	if s.lockStore != nil {
		lock, err := s.lockStore.Acquire(ctx, redis.TripLockKey(tripID), s.lockTTL)
		if err != nil {
			return nil, err
		}
		if lock == nil {
			return nil, repository.ErrConflict
		}
		defer s.lockStore.Release(ctx, lock)
	}

	candidates, err := s.driverService.ListPool(ctx, ListPoolRequest{OnlineOnly: true})
	if err != nil {
		return nil, err
	}

	for len(candidates) > 0 {
		driver, err := s.policy.Pick(ctx, candidates)
		if err != nil {
			return nil, err
		}

		assigned, err := s.tripService.acceptAs(ctx, driver.ID, tripID)
		if err == nil {
			s.logger.Info("driver dispatched",
				zap.String("trip_id", tripID),
				zap.String("driver_id", driver.ID),
			)
			return assigned, nil
		}
		if !errors.Is(err, ErrDriverHasActiveTrip) && !errors.Is(err, ErrDriverBusy) {
			return nil, err
		}

		candidates = without(candidates, driver.ID)
	}

	return nil, ErrNoDriverAvailable
}

func without(pool []*domain.Driver, driverID string) []*domain.Driver {
	out := make([]*domain.Driver, 0, len(pool))
	for _, d := range pool {
		if d.ID != driverID {
			out = append(out, d)
		}
	}
	return out
}
