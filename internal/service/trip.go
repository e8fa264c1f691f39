package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridehail/internal/domain"
	"ridehail/internal/pricing"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

const (
	driverLockTTL        = 10 * time.Second
	defaultTripListLimit = 50
)

// TripServiceDeps contains the dependencies of TripService.
// Everything below Calculator is optional. Without a Transactor, completion
// and the ride counters are written separately.
type TripServiceDeps struct {
	TripRepo   repository.TripRepository
	UserRepo   repository.UserRepository
	Calculator *pricing.Calculator

	Transactor          repository.Transactor

	DriverService       *DriverService
	WalletService       *WalletService
	NotificationService *NotificationService
	ReceiptService      *ReceiptService
	LockStore           redis.LockStoreInterface
	CacheStore          redis.CacheStoreInterface
	EventBus            redis.EventBusInterface
	Logger              *zap.Logger
}

// TripService runs the trip lifecycle.
// Every transition is written with a guard on the status it was applied to,
// so a concurrent transition that got there first surfaces as repository.ErrConflict.
type TripService struct {
	tripRepo            repository.TripRepository
	userRepo            repository.UserRepository
	txr                 repository.Transactor
	calculator          *pricing.Calculator
	driverService       *DriverService
	walletService       *WalletService
	notificationService *NotificationService
	receiptService      *ReceiptService
	lockStore           redis.LockStoreInterface
	cacheStore          redis.CacheStoreInterface
	bus                 redis.EventBusInterface
	logger              *zap.Logger
	now                 func() time.Time
}

// NewTripService creates a new TripService.
func NewTripService(deps TripServiceDeps) *TripService {
	calculator := deps.Calculator
	if calculator == nil {
		calculator = pricing.NewCalculator()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TripService{
		tripRepo:            deps.TripRepo,
		userRepo:            deps.UserRepo,
		txr:                 deps.Transactor,
		calculator:          calculator,
		driverService:       deps.DriverService,
		walletService:       deps.WalletService,
		notificationService: deps.NotificationService,
		receiptService:      deps.ReceiptService,
		lockStore:           deps.LockStore,
		cacheStore:          deps.CacheStore,
		bus:                 deps.EventBus,
		logger:              logger,
		now:                 time.Now,
	}
}

// RequestTripRequest contains the parameters for requesting a trip.
type RequestTripRequest struct {
	Pickup            domain.Location
	Destination       domain.Location
	RideType          domain.RideType
	PromoCode         string
	RequireValidPromo bool
	PaymentMethod     domain.PaymentMethod
}

// RequestTrip prices and books a trip for the calling rider.
func (s *TripService) RequestTrip(ctx context.Context, session Session, req RequestTripRequest) (*domain.Trip, error) {
	if err := requireRider(session); err != nil {
		return nil, err
	}

	payment := req.PaymentMethod
	if payment.Type == "" {
		payment.Type = domain.PaymentTypeCard
	}
	if !payment.Type.Valid() {
		return nil, domain.ErrInvalidPaymentType
	}

	quote, err := s.calculator.Quote(ctx, pricing.QuoteRequest{
		Pickup:            req.Pickup,
		Destination:       req.Destination,
		RideType:          req.RideType,
		PromoCode:         strings.TrimSpace(req.PromoCode),
		RequireValidPromo: req.RequireValidPromo,
	})
	if err != nil {
		return nil, err
	}

	active, err := s.tripRepo.Find(ctx, repository.TripFilter{
		UserID:   session.UserID,
		Role:     domain.UserTypeRider,
		Statuses: domain.ActiveTripStatuses,
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, ErrActiveTripExists
	}

	trip := domain.NewTrip(domain.NewTripParams{
		ID:            uuid.New().String(),
		RiderID:       session.UserID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		RideType:      quote.RideType,
		DistanceKm:    quote.DistanceKm,
		DurationMin:   quote.DurationMin,
		Fare:          quote.Fare,
		PaymentMethod: payment,
		RequestedAt:   s.now(),
	})

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		// A concurrent request from the same rider won the open-trip index.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrActiveTripExists
		}
		return nil, err
	}

	s.logger.Info("trip requested",
		zap.String("trip_id", trip.ID),
		zap.String("rider_id", trip.RiderID),
		zap.String("ride_type", string(trip.RideType)),
		zap.String("promo_status", string(trip.Fare.Promo)),
	)

	if s.notificationService != nil {
		_ = s.notificationService.NotifyTripRequested(ctx, trip)
	}

	return trip, nil
}

// AcceptTrip binds the calling driver to a requested trip.
func (s *TripService) AcceptTrip(ctx context.Context, session Session, tripID string) (*domain.Trip, error) {
	if err := requireDriver(session); err != nil {
		return nil, err
	}
	return s.acceptAs(ctx, session.UserID, tripID)
}

// acceptAs binds driverID to the trip. The driver lock keeps one driver from
// taking two trips at once.
func (s *TripService) acceptAs(ctx context.Context, driverID, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	if s.lockStore != nil {
		lock, err := s.lockStore.Acquire(ctx, redis.DriverLockKey(driverID), driverLockTTL)
		if err != nil {
			return nil, err
		}
		if lock == nil {
			return nil, ErrDriverBusy
		}
		defer s.lockStore.Release(ctx, lock)
	}

	busy, err := s.tripRepo.Find(ctx, repository.TripFilter{
		UserID:   driverID,
		Role:     domain.UserTypeDriver,
		Statuses: domain.ActiveTripStatuses,
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(busy) > 0 {
		return nil, ErrDriverHasActiveTrip
	}

	trip, err := s.transition(ctx, tripID, func(trip *domain.Trip) error {
		return trip.Accept(driverID, s.now())
	})
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		var driver *domain.Driver
		if s.driverService != nil {
			driver, _ = s.driverService.GetDriver(ctx, driverID)
		}
		_ = s.notificationService.NotifyTripAccepted(ctx, trip, driver)
	}

	return trip, nil
}

// StartTrip picks the rider up. Only the bound driver may start the trip.
func (s *TripService) StartTrip(ctx context.Context, session Session, tripID string) (*domain.Trip, error) {
	if err := requireDriver(session); err != nil {
		return nil, err
	}

	trip, err := s.transition(ctx, tripID, func(trip *domain.Trip) error {
		if trip.DriverID != session.UserID {
			return ErrNotTripParticipant
		}
		return trip.Start(s.now())
	})
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyTripStarted(ctx, trip)
	}

	return trip, nil
}

// CompleteTripRequest contains the parameters for completing a trip.
type CompleteTripRequest struct {
	ActualFare *float64 // nil charges the estimate
}

// CompleteTripResponse contains the result of completing a trip.
type CompleteTripResponse struct {
	Trip    *domain.Trip
	Charge  *domain.WalletTransaction
	Receipt *domain.Receipt
}

// CompleteTrip drops the rider off, charges the wallet when it was chosen
// and issues a receipt. Only the bound driver may complete the trip.
func (s *TripService) CompleteTrip(ctx context.Context, session Session, tripID string, req CompleteTripRequest) (*CompleteTripResponse, error) {
	if err := requireDriver(session); err != nil {
		return nil, err
	}
	if req.ActualFare != nil && *req.ActualFare < 0 {
		return nil, ErrInvalidFareAmount
	}

	var trip *domain.Trip
	err := s.withinTx(ctx, func(repos repository.Repositories) error {
		var err error
		trip, err = s.transitionWith(ctx, repos.Trips, tripID, func(trip *domain.Trip) error {
			if trip.DriverID != session.UserID {
				return ErrNotTripParticipant
			}
			return trip.Complete(req.ActualFare, s.now())
		})
		if err != nil {
			return err
		}
		if repos.Users == nil {
			return nil
		}
		return repos.Users.IncrementTotalRides(ctx, trip.RiderID, trip.DriverID)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateTrip(ctx, tripID)

	// The trip is already completed; what follows must not fail the call.
	if s.notificationService != nil {
		_ = s.notificationService.NotifyTripCompleted(ctx, trip)
	}

	var charge *domain.WalletTransaction
	if s.walletService != nil {
		charge, err = s.walletService.ChargeTrip(ctx, trip)
		if err != nil {
			// Charging is idempotent and can be retried.
			s.logger.Error("wallet charge failed", zap.String("trip_id", trip.ID), zap.Error(err))
			charge = nil
		}
		if charge != nil && s.notificationService != nil {
			_ = s.notificationService.NotifyWalletCharged(ctx, trip, charge)
		}
	}

	var receipt *domain.Receipt
	if s.receiptService != nil {
		receipt, _ = s.receiptService.GenerateReceipt(ctx, GenerateReceiptRequest{
			Trip:   trip,
			Charge: charge,
		})
	}

	return &CompleteTripResponse{
		Trip:    trip,
		Charge:  charge,
		Receipt: receipt,
	}, nil
}

// CancelTrip cancels an open trip on behalf of its rider or bound driver.
func (s *TripService) CancelTrip(ctx context.Context, session Session, tripID, reason string) (*domain.Trip, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	trip, err := s.transition(ctx, tripID, func(trip *domain.Trip) error {
		if !trip.IsParticipant(session.UserID) {
			return ErrNotTripParticipant
		}
		return trip.Cancel(strings.TrimSpace(reason), session.UserID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("trip cancelled",
		zap.String("trip_id", trip.ID),
		zap.String("cancelled_by", trip.CancelledBy),
	)

	if s.notificationService != nil {
		_ = s.notificationService.NotifyTripCancelled(ctx, trip)
	}

	return trip, nil
}

// RateTripRequest contains the parameters for rating a trip.
type RateTripRequest struct {
	Score   int
	Comment string
}

// RateTrip attaches a rating to a completed trip. Rating again replaces the
// earlier rating and leaves the status alone.
func (s *TripService) RateTrip(ctx context.Context, session Session, tripID string, req RateTripRequest) (*domain.Trip, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	trip, err := s.transition(ctx, tripID, func(trip *domain.Trip) error {
		if !trip.IsParticipant(session.UserID) {
			return ErrNotTripParticipant
		}
		return trip.Rate(domain.Rating{
			Score:   req.Score,
			Comment: strings.TrimSpace(req.Comment),
			RatedBy: session.UserID,
			RatedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyTripRated(ctx, trip)
	}

	return trip, nil
}

// UpdateTripLocation appends a point to the route of an open trip.
func (s *TripService) UpdateTripLocation(ctx context.Context, session Session, tripID string, point domain.Location) (*domain.Trip, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsParticipant(session.UserID) {
		return nil, ErrNotTripParticipant
	}

	if err := trip.AppendRoute(point); err != nil {
		return nil, err
	}

	if err := s.tripRepo.AppendRoutePoint(ctx, tripID, point); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, domain.ErrTripFinalized
		}
		return nil, err
	}
	s.invalidateTrip(ctx, tripID)

	if s.notificationService != nil {
		_ = s.notificationService.NotifyRouteUpdated(ctx, trip, point)
	}

	return trip, nil
}

// transition loads the trip, applies fn and stores the result guarded by the
// status the trip had when it was loaded.
func (s *TripService) transition(ctx context.Context, tripID string, fn func(trip *domain.Trip) error) (*domain.Trip, error) {
	trip, err := s.transitionWith(ctx, s.tripRepo, tripID, fn)
	if err != nil {
		return nil, err
	}
	s.invalidateTrip(ctx, tripID)
	return trip, nil
}

func (s *TripService) transitionWith(ctx context.Context, trips repository.TripRepository, tripID string, fn func(trip *domain.Trip) error) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	expected := trip.Status
	if err := fn(trip); err != nil {
		return nil, err
	}

	if err := trips.Update(ctx, trip, expected); err != nil {
		return nil, err
	}

	s.logger.Debug("trip transition",
		zap.String("trip_id", trip.ID),
		zap.String("from", string(expected)),
		zap.String("to", string(trip.Status)),
	)

	return trip, nil
}

// GetTrip returns a trip visible to the caller: its participants, and any
// driver while the trip is still waiting to be accepted.
func (s *TripService) GetTrip(ctx context.Context, session Session, tripID string) (*domain.Trip, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if !canView(session, trip) {
		return nil, ErrNotTripParticipant
	}
	return trip, nil
}

// OpenTrips lists requested trips awaiting a driver, newest first.
func (s *TripService) OpenTrips(ctx context.Context, session Session) ([]*domain.Trip, error) {
	if err := requireDriver(session); err != nil {
		return nil, err
	}
	return s.tripRepo.Find(ctx, repository.TripFilter{
		Statuses: []domain.TripStatus{domain.TripStatusRequested},
		Limit:    defaultTripListLimit,
	})
}

// CurrentTrip returns the caller's most recent open trip, or nil when there is none.
func (s *TripService) CurrentTrip(ctx context.Context, session Session) (*domain.Trip, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	trips, err := s.tripRepo.Find(ctx, repository.TripFilter{
		UserID:   session.UserID,
		Role:     session.UserType,
		Statuses: domain.ActiveTripStatuses,
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		return nil, nil
	}
	return trips[0], nil
}

// TripHistory lists the caller's completed and cancelled trips, newest first.
func (s *TripService) TripHistory(ctx context.Context, session Session) ([]*domain.Trip, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	return s.tripRepo.Find(ctx, repository.TripFilter{
		UserID:   session.UserID,
		Role:     session.UserType,
		Statuses: domain.FinishedTripStatuses,
		Limit:    defaultTripListLimit,
	})
}

// WatchTrip streams changes to one trip. The returned trip is read after the
// subscription is live, so no change between the two is lost.
// The caller must Unsubscribe the stream.
func (s *TripService) WatchTrip(ctx context.Context, session Session, tripID string) (redis.EventStream, *domain.Trip, error) {
	if s.bus == nil {
		return nil, nil, ErrEventsUnavailable
	}
	if _, err := s.GetTrip(ctx, session, tripID); err != nil {
		return nil, nil, err
	}

	stream, err := s.bus.Subscribe(ctx, redis.TripTopic(tripID))
	if err != nil {
		return nil, nil, err
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		_ = stream.Unsubscribe()
		return nil, nil, err
	}
	if !canView(session, trip) {
		_ = stream.Unsubscribe()
		return nil, nil, ErrNotTripParticipant
	}

	if !trip.IsParticipant(session.UserID) {
		// A driver looking at an open trip loses sight of it once another driver takes it.
		stream = newVisibleStream(stream, session)
	}
	return stream, trip, nil
}

// WatchMyTrips streams changes to every trip the caller takes part in.
// The caller must Unsubscribe the stream.
func (s *TripService) WatchMyTrips(ctx context.Context, session Session) (redis.EventStream, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if s.bus == nil {
		return nil, ErrEventsUnavailable
	}
	return s.bus.Subscribe(ctx, redis.UserTopic(session.UserID))
}

// loadTrip reads through the cache. Only finished trips are cached: an open
// trip read here could be stored after a concurrent transition invalidated it.
func (s *TripService) loadTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetTrip(ctx, tripID); err == nil && cached != nil {
			return cached, nil
		}
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil && trip.Status.IsTerminal() {
		_ = s.cacheStore.SetTrip(ctx, trip)
	}
	return trip, nil
}

func (s *TripService) invalidateTrip(ctx context.Context, tripID string) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.InvalidateTrip(ctx, tripID)
}

func (s *TripService) withinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if s.txr == nil {
		return fn(repository.Repositories{Trips: s.tripRepo, Users: s.userRepo})
	}
	return s.txr.WithinTx(ctx, fn)
}

func canView(session Session, trip *domain.Trip) bool {
	if trip.IsParticipant(session.UserID) {
		return true
	}
	return session.IsDriver() && trip.Status == domain.TripStatusRequested
}
