package tests

import (
	"context"
	"testing"

	"ridehail/internal/domain"
	"ridehail/internal/pricing"
	"ridehail/internal/service"
)

// dropoffPoint sits about 10 km east of pickupPoint, an economy fare of 12.50.
var (
	riderSession   = service.Session{UserID: "rider-1", UserType: domain.UserTypeRider}
	otherRider     = service.Session{UserID: "rider-2", UserType: domain.UserTypeRider}
	driverSession  = service.Session{UserID: "driver-1", UserType: domain.UserTypeDriver}
	otherDriver    = service.Session{UserID: "driver-2", UserType: domain.UserTypeDriver}
	pickupPoint    = domain.Location{Latitude: 0, Longitude: 0, Address: "Pickup"}
	dropoffPoint   = domain.Location{Latitude: 0, Longitude: 0.08993, Address: "Dropoff"}
	midRoutePoint  = domain.Location{Latitude: 0, Longitude: 0.045, Address: "Halfway"}
	invalidLatLong = domain.Location{Latitude: 91, Longitude: 0}
)

// harness wires the real services over in-memory mocks.
type harness struct {
	trips     *MockTripRepository
	users     *MockUserRepository
	drivers   *MockDriverRepository
	wallet    *MockWalletRepository
	locations *MockLocationStore
	locks     *MockLockStore
	bus       *MockEventBus
	psp       *MockPSP
	cache     *MockCacheStore
	txr       *MockTransactor

	driverService   *service.DriverService
	walletService   *service.WalletService
	receiptService  *service.ReceiptService
	tripService     *service.TripService
	dispatchService *service.DispatchService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		trips:     NewMockTripRepository(),
		users:     NewMockUserRepository(),
		drivers:   NewMockDriverRepository(),
		wallet:    NewMockWalletRepository(),
		locations: NewMockLocationStore(),
		locks:     NewMockLockStore(),
		bus:       NewMockEventBus(),
		psp:       NewMockPSP(),
		cache:     NewMockCacheStore(),
	}
	h.txr = NewMockTransactor(h.trips, h.users, nil, nil)

	for _, s := range []service.Session{riderSession, otherRider, driverSession, otherDriver} {
		h.users.AddUser(&domain.User{ID: s.UserID, Name: s.UserID, UserType: s.UserType, Rating: domain.DefaultUserRating})
	}
	h.drivers.AddDriver(&domain.Driver{ID: driverSession.UserID, Name: "Dana", Rating: 4.9})
	h.drivers.AddDriver(&domain.Driver{ID: otherDriver.UserID, Name: "Eli", Rating: 4.7})

	notifications := service.NewNotificationService(h.bus, nil)
	h.receiptService = service.NewReceiptService(notifications)
	h.driverService = service.NewDriverService(h.locations, nil, h.drivers, nil)
	h.walletService = service.NewWalletService(h.wallet, h.psp, nil)
	h.tripService = service.NewTripService(service.TripServiceDeps{
		TripRepo:            h.trips,
		UserRepo:            h.users,
		Transactor:          h.txr,
		Calculator:          pricing.NewCalculator(),
		DriverService:       h.driverService,
		WalletService:       h.walletService,
		NotificationService: notifications,
		ReceiptService:      h.receiptService,
		LockStore:           h.locks,
		CacheStore:          h.cache,
		EventBus:            h.bus,
	})
	h.dispatchService = service.NewDispatchService(h.tripService, h.driverService, nil, h.locks, nil)

	return h
}

// requestTrip books an economy trip for the rider and fails the test on error.
func (h *harness) requestTrip(t *testing.T, req service.RequestTripRequest) *domain.Trip {
	t.Helper()
	if req.Pickup == (domain.Location{}) {
		req.Pickup = pickupPoint
	}
	if req.Destination == (domain.Location{}) {
		req.Destination = dropoffPoint
	}
	if req.RideType == "" {
		req.RideType = domain.RideTypeEconomy
	}
	trip, err := h.tripService.RequestTrip(context.Background(), riderSession, req)
	if err != nil {
		t.Fatalf("request trip: %v", err)
	}
	return trip
}

// inProgressTrip drives a fresh trip to in_progress with driver-1.
func (h *harness) inProgressTrip(t *testing.T, req service.RequestTripRequest) *domain.Trip {
	t.Helper()
	ctx := context.Background()
	trip := h.requestTrip(t, req)
	if _, err := h.tripService.AcceptTrip(ctx, driverSession, trip.ID); err != nil {
		t.Fatalf("accept trip: %v", err)
	}
	started, err := h.tripService.StartTrip(ctx, driverSession, trip.ID)
	if err != nil {
		t.Fatalf("start trip: %v", err)
	}
	return started
}

func approxEqual(a, b, tolerance float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
