package tests

import (
	"context"
	"errors"
	"testing"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

func TestDriver_GoOnlineIndexesLocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	driver, err := h.driverService.GoOnline(ctx, driverSession, pickupPoint)
	if err != nil {
		t.Fatalf("go online: %v", err)
	}
	if !driver.IsOnline {
		t.Error("expected driver to be online")
	}
	if driver.CurrentLocation == nil || *driver.CurrentLocation != pickupPoint {
		t.Errorf("expected current location %+v, got %+v", pickupPoint, driver.CurrentLocation)
	}
	if !h.locations.HasLocation(driverSession.UserID) {
		t.Error("expected the driver in the geo index")
	}
}

func TestDriver_UpdateLocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	testCases := []struct {
		name        string
		online      bool
		wantIndexed bool
	}{
		{name: "online driver moves in the index", online: true, wantIndexed: true},
		{name: "offline driver stays out of the index", online: false, wantIndexed: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			if tc.online {
				if _, err := h.driverService.GoOnline(ctx, driverSession, pickupPoint); err != nil {
					t.Fatalf("go online: %v", err)
				}
			}

			if err := h.driverService.UpdateLocation(ctx, driverSession, midRoutePoint); err != nil {
				t.Fatalf("update location: %v", err)
			}

			stored := h.drivers.GetDriver(driverSession.UserID)
			if stored.CurrentLocation == nil || *stored.CurrentLocation != midRoutePoint {
				t.Errorf("expected stored location %+v, got %+v", midRoutePoint, stored.CurrentLocation)
			}
			if stored.IsOnline != tc.online {
				t.Errorf("availability changed: expected online=%v", tc.online)
			}
			if got := h.locations.HasLocation(driverSession.UserID); got != tc.wantIndexed {
				t.Errorf("expected indexed=%v, got %v", tc.wantIndexed, got)
			}
		})
	}
}

func TestDriver_GoOfflineLeavesThePool(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	if _, err := h.driverService.GoOnline(ctx, driverSession, pickupPoint); err != nil {
		t.Fatalf("go online: %v", err)
	}
	if err := h.driverService.GoOffline(ctx, driverSession); err != nil {
		t.Fatalf("go offline: %v", err)
	}

	if h.drivers.GetDriver(driverSession.UserID).IsOnline {
		t.Error("expected driver to be offline")
	}
	if h.locations.HasLocation(driverSession.UserID) {
		t.Error("expected the driver to leave the geo index")
	}

	pool, err := h.driverService.ListPool(ctx, service.ListPoolRequest{Near: &pickupPoint})
	if err != nil {
		t.Fatalf("list pool: %v", err)
	}
	if len(pool) != 0 {
		t.Errorf("expected an empty pool, got %d drivers", len(pool))
	}
}

func TestDriver_RejectsBadInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	testCases := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name: "go online off the globe",
			call: func() error {
				_, err := h.driverService.GoOnline(ctx, driverSession, invalidLatLong)
				return err
			},
			wantErr: domain.ErrInvalidCoordinate,
		},
		{
			name: "update location off the globe",
			call: func() error {
				return h.driverService.UpdateLocation(ctx, driverSession, domain.Location{Latitude: 0, Longitude: 181})
			},
			wantErr: domain.ErrInvalidCoordinate,
		},
		{
			name: "rider cannot go online",
			call: func() error {
				_, err := h.driverService.GoOnline(ctx, riderSession, pickupPoint)
				return err
			},
			wantErr: service.ErrDriverRequired,
		},
		{
			name: "anonymous cannot go offline",
			call: func() error {
				return h.driverService.GoOffline(ctx, service.Session{})
			},
			wantErr: service.ErrNotAuthenticated,
		},
		{
			name: "unknown driver",
			call: func() error {
				session := service.Session{UserID: "ghost", UserType: domain.UserTypeDriver}
				return h.driverService.UpdateLocation(ctx, session, pickupPoint)
			},
			wantErr: repository.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if h.locations.HasLocation(driverSession.UserID) {
		t.Error("rejected calls must not touch the geo index")
	}
}

func TestDriver_ListPool(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	if _, err := h.driverService.GoOnline(ctx, driverSession, pickupPoint); err != nil {
		t.Fatalf("go online: %v", err)
	}

	all, err := h.driverService.ListPool(ctx, service.ListPoolRequest{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected both drivers, got %d", len(all))
	}

	online, err := h.driverService.ListPool(ctx, service.ListPoolRequest{OnlineOnly: true})
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if len(online) != 1 || online[0].ID != driverSession.UserID {
		t.Errorf("expected only %s online, got %d drivers", driverSession.UserID, len(online))
	}

	// A stale index entry for an offline driver is filtered out by profile.
	if err := h.locations.UpdateLocation(ctx, otherDriver.UserID, midRoutePoint); err != nil {
		t.Fatalf("seed index: %v", err)
	}

	near, err := h.driverService.ListPool(ctx, service.ListPoolRequest{Near: &pickupPoint, RadiusKm: 3})
	if err != nil {
		t.Fatalf("list near: %v", err)
	}
	if len(near) != 1 || near[0].ID != driverSession.UserID {
		t.Fatalf("expected only the online driver near pickup, got %d", len(near))
	}
	if near[0].CurrentLocation == nil || *near[0].CurrentLocation != pickupPoint {
		t.Errorf("expected the indexed position, got %+v", near[0].CurrentLocation)
	}

	if _, err := h.driverService.ListPool(ctx, service.ListPoolRequest{Near: &invalidLatLong}); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
}
