package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

// ──────────────────────────────────────────────
// 1. HAPPY PATH
// ──────────────────────────────────────────────

func TestTrip_FullLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	trip := h.requestTrip(t, service.RequestTripRequest{})
	if trip.Status != domain.TripStatusRequested {
		t.Fatalf("expected status %s, got %s", domain.TripStatusRequested, trip.Status)
	}

	accepted, err := h.tripService.AcceptTrip(ctx, driverSession, trip.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.DriverID != driverSession.UserID {
		t.Errorf("expected driver %s, got %s", driverSession.UserID, accepted.DriverID)
	}

	if _, err := h.tripService.StartTrip(ctx, driverSession, trip.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	completed := result.Trip
	if completed.Status != domain.TripStatusCompleted {
		t.Errorf("expected status %s, got %s", domain.TripStatusCompleted, completed.Status)
	}
	if completed.ActualFare == nil || *completed.ActualFare != completed.Fare.Total {
		t.Errorf("expected actual fare to default to the estimate %.2f", completed.Fare.Total)
	}
	if result.Receipt == nil {
		t.Fatal("expected a receipt")
	}
	if result.Charge != nil {
		t.Error("card trips must not touch the wallet")
	}

	if completed.AcceptedAt.Before(completed.RequestedAt) ||
		completed.StartedAt.Before(completed.AcceptedAt) ||
		completed.CompletedAt.Before(completed.StartedAt) {
		t.Error("lifecycle timestamps must not go backwards")
	}

	if got := h.users.TotalRides(riderSession.UserID); got != 1 {
		t.Errorf("expected rider total rides 1, got %d", got)
	}
	if got := h.users.TotalRides(driverSession.UserID); got != 1 {
		t.Errorf("expected driver total rides 1, got %d", got)
	}

	wantEvents := []domain.EventType{
		domain.EventTripRequested,
		domain.EventTripAccepted,
		domain.EventTripStarted,
		domain.EventTripCompleted,
		domain.EventReceiptReady,
	}
	gotEvents := h.bus.Types()
	if len(gotEvents) != len(wantEvents) {
		t.Fatalf("expected events %v, got %v", wantEvents, gotEvents)
	}
	for i := range wantEvents {
		if gotEvents[i] != wantEvents[i] {
			t.Errorf("event %d: expected %s, got %s", i, wantEvents[i], gotEvents[i])
		}
	}
}

func TestTrip_CompleteWithActualFare(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	trip := h.inProgressTrip(t, service.RequestTripRequest{})

	actual := 18.75
	result, err := h.tripService.CompleteTrip(context.Background(), driverSession, trip.ID, service.CompleteTripRequest{
		ActualFare: &actual,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if *result.Trip.ActualFare != actual {
		t.Errorf("expected actual fare %.2f, got %.2f", actual, *result.Trip.ActualFare)
	}
	if result.Receipt.ActualFare != actual {
		t.Errorf("expected receipt total %.2f, got %.2f", actual, result.Receipt.ActualFare)
	}
}

func TestTrip_CompleteRollsBackWhenRideCountFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	trip := h.inProgressTrip(t, service.RequestTripRequest{})

	h.users.IncrementError = ErrMockDBConstraint
	if _, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{}); !errors.Is(err, ErrMockDBConstraint) {
		t.Fatalf("expected the counter error, got %v", err)
	}
	if got := h.trips.GetTrip(trip.ID).Status; got != domain.TripStatusInProgress {
		t.Errorf("expected the trip to stay in_progress, got %s", got)
	}
	if h.txr.Rollbacks != 1 {
		t.Errorf("expected one rollback, got %d", h.txr.Rollbacks)
	}
	for _, typ := range h.bus.Types() {
		if typ == domain.EventTripCompleted {
			t.Error("no completion event may be published for a rolled back completion")
		}
	}

	h.users.IncrementError = nil
	if _, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{}); err != nil {
		t.Fatalf("retry complete: %v", err)
	}
	if got := h.users.TotalRides(riderSession.UserID); got != 1 {
		t.Errorf("expected the rider to have 1 ride, got %d", got)
	}
	if got := h.users.TotalRides(driverSession.UserID); got != 1 {
		t.Errorf("expected the driver to have 1 ride, got %d", got)
	}
}

func TestTrip_CompleteRejectsNegativeFare(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	trip := h.inProgressTrip(t, service.RequestTripRequest{})

	negative := -1.0
	_, err := h.tripService.CompleteTrip(context.Background(), driverSession, trip.ID, service.CompleteTripRequest{
		ActualFare: &negative,
	})
	if !errors.Is(err, service.ErrInvalidFareAmount) {
		t.Errorf("expected ErrInvalidFareAmount, got %v", err)
	}
	if h.trips.GetTrip(trip.ID).Status != domain.TripStatusInProgress {
		t.Error("trip must stay in progress")
	}
}

func TestTrip_WalletPaymentChargedOnCompletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.wallet.Fund(riderSession.UserID, "50.00")

	trip := h.inProgressTrip(t, service.RequestTripRequest{
		PaymentMethod: domain.PaymentMethod{Type: domain.PaymentTypeWallet},
	})

	result, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Charge == nil {
		t.Fatal("expected a wallet charge")
	}
	if result.Charge.Status != domain.TransactionCompleted {
		t.Errorf("expected charge status %s, got %s", domain.TransactionCompleted, result.Charge.Status)
	}
	if result.Receipt.ChargeStatus != domain.TransactionCompleted {
		t.Errorf("expected receipt charge status %s, got %s", domain.TransactionCompleted, result.Receipt.ChargeStatus)
	}

	balance, _ := h.wallet.Balance(ctx, riderSession.UserID)
	if balance.StringFixed(2) != "37.50" {
		t.Errorf("expected balance 37.50 after a 12.50 ride, got %s", balance.StringFixed(2))
	}
}

// ──────────────────────────────────────────────
// 2. TRANSITION GUARDS
// ──────────────────────────────────────────────

func TestTrip_InvalidTransitionsLeaveStatusUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("start before accept", func(t *testing.T) {
		h := newHarness(t)
		trip := h.requestTrip(t, service.RequestTripRequest{})

		// Bind a driver without moving the status, as a stale client would see it.
		stale := h.trips.GetTrip(trip.ID)
		stale.DriverID = driverSession.UserID
		h.trips.AddTrip(stale)

		_, err := h.tripService.StartTrip(ctx, driverSession, trip.ID)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
		if got := h.trips.GetTrip(trip.ID).Status; got != domain.TripStatusRequested {
			t.Errorf("expected status requested, got %s", got)
		}
	})

	t.Run("complete straight from requested", func(t *testing.T) {
		h := newHarness(t)
		trip := h.requestTrip(t, service.RequestTripRequest{})
		stale := h.trips.GetTrip(trip.ID)
		stale.DriverID = driverSession.UserID
		h.trips.AddTrip(stale)

		_, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{})
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
		stored := h.trips.GetTrip(trip.ID)
		if stored.Status != domain.TripStatusRequested {
			t.Errorf("expected status requested, got %s", stored.Status)
		}
		if stored.ActualFare != nil {
			t.Error("a rejected completion must not record a fare")
		}
	})

	t.Run("accept twice", func(t *testing.T) {
		h := newHarness(t)
		trip := h.requestTrip(t, service.RequestTripRequest{})
		if _, err := h.tripService.AcceptTrip(ctx, driverSession, trip.ID); err != nil {
			t.Fatalf("accept: %v", err)
		}

		_, err := h.tripService.AcceptTrip(ctx, otherDriver, trip.ID)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
		if got := h.trips.GetTrip(trip.ID).DriverID; got != driverSession.UserID {
			t.Errorf("expected driver to stay %s, got %s", driverSession.UserID, got)
		}
	})

	t.Run("cancel after completion", func(t *testing.T) {
		h := newHarness(t)
		trip := h.inProgressTrip(t, service.RequestTripRequest{})
		if _, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{}); err != nil {
			t.Fatalf("complete: %v", err)
		}

		_, err := h.tripService.CancelTrip(ctx, riderSession, trip.ID, "changed my mind")
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestTrip_OnlyBoundDriverDrivesTheTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	trip := h.requestTrip(t, service.RequestTripRequest{})
	if _, err := h.tripService.AcceptTrip(ctx, driverSession, trip.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := h.tripService.StartTrip(ctx, otherDriver, trip.ID); !errors.Is(err, service.ErrNotTripParticipant) {
		t.Errorf("expected ErrNotTripParticipant, got %v", err)
	}
	if _, err := h.tripService.StartTrip(ctx, riderSession, trip.ID); !errors.Is(err, service.ErrDriverRequired) {
		t.Errorf("expected ErrDriverRequired, got %v", err)
	}
	if _, err := h.tripService.AcceptTrip(ctx, service.Session{}, trip.ID); !errors.Is(err, service.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestTrip_ConcurrentAcceptHasOneWinner(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	trip := h.requestTrip(t, service.RequestTripRequest{})

	const drivers = 8
	for i := 0; i < drivers; i++ {
		h.drivers.AddDriver(&domain.Driver{ID: driverID(i)})
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			session := service.Session{UserID: id, UserType: domain.UserTypeDriver}
			if _, err := h.tripService.AcceptTrip(context.Background(), session, trip.ID); err == nil {
				mu.Lock()
				winners = append(winners, id)
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrInvalidTransition) && !errors.Is(err, repository.ErrConflict) {
				t.Errorf("unexpected error for %s: %v", id, err)
			}
		}(driverID(i))
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %v", winners)
	}
	if got := h.trips.GetTrip(trip.ID).DriverID; got != winners[0] {
		t.Errorf("stored driver %s does not match winner %s", got, winners[0])
	}
}

func TestTrip_DriverCannotHoldTwoTrips(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	first := h.requestTrip(t, service.RequestTripRequest{})
	if _, err := h.tripService.AcceptTrip(ctx, driverSession, first.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	second, err := h.tripService.RequestTrip(ctx, otherRider, service.RequestTripRequest{
		Pickup: pickupPoint, Destination: dropoffPoint, RideType: domain.RideTypeComfort,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := h.tripService.AcceptTrip(ctx, driverSession, second.ID); !errors.Is(err, service.ErrDriverHasActiveTrip) {
		t.Errorf("expected ErrDriverHasActiveTrip, got %v", err)
	}

	h.locks.Hold(redis.DriverLockKey(otherDriver.UserID))
	if _, err := h.tripService.AcceptTrip(ctx, otherDriver, second.ID); !errors.Is(err, service.ErrDriverBusy) {
		t.Errorf("expected ErrDriverBusy, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 3. CANCELLATION, RATING, ROUTE
// ──────────────────────────────────────────────

func TestTrip_CancelByRiderOrDriver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	testCases := []struct {
		name    string
		accept  bool
		session service.Session
		wantErr error
	}{
		{name: "rider cancels requested trip", session: riderSession},
		{name: "rider cancels accepted trip", accept: true, session: riderSession},
		{name: "bound driver cancels", accept: true, session: driverSession},
		{name: "stranger cannot cancel", accept: true, session: otherRider, wantErr: service.ErrNotTripParticipant},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			trip := h.requestTrip(t, service.RequestTripRequest{})
			if tc.accept {
				if _, err := h.tripService.AcceptTrip(ctx, driverSession, trip.ID); err != nil {
					t.Fatalf("accept: %v", err)
				}
			}

			cancelled, err := h.tripService.CancelTrip(ctx, tc.session, trip.ID, "  running late ")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if cancelled.Status != domain.TripStatusCancelled {
				t.Errorf("expected status cancelled, got %s", cancelled.Status)
			}
			if cancelled.CancellationReason != "running late" {
				t.Errorf("expected trimmed reason, got %q", cancelled.CancellationReason)
			}
			if cancelled.CancelledBy != tc.session.UserID {
				t.Errorf("expected cancelled by %s, got %s", tc.session.UserID, cancelled.CancelledBy)
			}
		})
	}
}

func TestTrip_RatingOverwritesAndKeepsStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	trip := h.inProgressTrip(t, service.RequestTripRequest{})

	if _, err := h.tripService.RateTrip(ctx, riderSession, trip.ID, service.RateTripRequest{Score: 5}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("rating before completion: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := h.tripService.RateTrip(ctx, riderSession, trip.ID, service.RateTripRequest{Score: 0}); !errors.Is(err, domain.ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}

	first, err := h.tripService.RateTrip(ctx, riderSession, trip.ID, service.RateTripRequest{Score: 3, Comment: "ok"})
	if err != nil {
		t.Fatalf("first rating: %v", err)
	}
	if first.Rating.Score != 3 {
		t.Errorf("expected score 3, got %d", first.Rating.Score)
	}

	second, err := h.tripService.RateTrip(ctx, riderSession, trip.ID, service.RateTripRequest{Score: 5, Comment: "great"})
	if err != nil {
		t.Fatalf("second rating: %v", err)
	}
	if second.Rating.Score != 5 || second.Rating.Comment != "great" {
		t.Errorf("expected rating to be replaced, got %+v", second.Rating)
	}
	if second.Status != domain.TripStatusCompleted {
		t.Errorf("rating must not change status, got %s", second.Status)
	}

	if _, err := h.tripService.RateTrip(ctx, otherRider, trip.ID, service.RateTripRequest{Score: 1}); !errors.Is(err, service.ErrNotTripParticipant) {
		t.Errorf("expected ErrNotTripParticipant, got %v", err)
	}
}

func TestTrip_RouteAppendStopsAtTerminalStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	trip := h.inProgressTrip(t, service.RequestTripRequest{})

	updated, err := h.tripService.UpdateTripLocation(ctx, driverSession, trip.ID, midRoutePoint)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(updated.Route) != 2 {
		t.Fatalf("expected route of 2 points, got %d", len(updated.Route))
	}
	if updated.Route[0] != pickupPoint {
		t.Error("route must start at the pickup")
	}

	if _, err := h.tripService.UpdateTripLocation(ctx, driverSession, trip.ID, invalidLatLong); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}

	if _, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err = h.tripService.UpdateTripLocation(ctx, driverSession, trip.ID, dropoffPoint)
	if !errors.Is(err, domain.ErrTripFinalized) {
		t.Errorf("expected ErrTripFinalized, got %v", err)
	}
	if got := len(h.trips.GetTrip(trip.ID).Route); got != 2 {
		t.Errorf("route must stay at 2 points after completion, got %d", got)
	}
}

// ──────────────────────────────────────────────
// 4. QUERIES AND SUBSCRIPTIONS
// ──────────────────────────────────────────────

func TestTrip_Visibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	trip := h.requestTrip(t, service.RequestTripRequest{})

	if _, err := h.tripService.GetTrip(ctx, otherDriver, trip.ID); err != nil {
		t.Errorf("drivers may view requested trips: %v", err)
	}
	if _, err := h.tripService.GetTrip(ctx, otherRider, trip.ID); !errors.Is(err, service.ErrNotTripParticipant) {
		t.Errorf("expected ErrNotTripParticipant, got %v", err)
	}

	if _, err := h.tripService.AcceptTrip(ctx, driverSession, trip.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.tripService.GetTrip(ctx, otherDriver, trip.ID); !errors.Is(err, service.ErrNotTripParticipant) {
		t.Errorf("accepted trips are private, got %v", err)
	}
	if _, err := h.tripService.GetTrip(ctx, riderSession, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTrip_OnlyFinishedTripsAreCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	trip := h.inProgressTrip(t, service.RequestTripRequest{})

	if _, err := h.tripService.GetTrip(ctx, riderSession, trip.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if h.cache.HasTrip(trip.ID) {
		t.Fatal("an open trip must not be cached")
	}

	if _, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := h.tripService.GetTrip(ctx, riderSession, trip.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.TripStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if !h.cache.HasTrip(trip.ID) {
		t.Error("expected the finished trip to be cached")
	}

	if _, err := h.tripService.RateTrip(ctx, riderSession, trip.ID, service.RateTripRequest{Score: 5}); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if h.cache.HasTrip(trip.ID) {
		t.Error("rating must invalidate the cached trip")
	}
}

func TestTrip_CurrentAndHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	current, err := h.tripService.CurrentTrip(ctx, riderSession)
	if err != nil || current != nil {
		t.Fatalf("expected no current trip, got %v, %v", current, err)
	}

	trip := h.inProgressTrip(t, service.RequestTripRequest{})

	current, err = h.tripService.CurrentTrip(ctx, driverSession)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current == nil || current.ID != trip.ID {
		t.Fatalf("expected current trip %s for the driver", trip.ID)
	}

	if _, err := h.tripService.CompleteTrip(ctx, driverSession, trip.ID, service.CompleteTripRequest{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	history, err := h.tripService.TripHistory(ctx, riderSession)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ID != trip.ID {
		t.Errorf("expected history to hold the completed trip, got %d trips", len(history))
	}

	current, _ = h.tripService.CurrentTrip(ctx, riderSession)
	if current != nil {
		t.Error("completed trips are not current")
	}
}

func TestTrip_OpenTripsForDrivers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	trip := h.requestTrip(t, service.RequestTripRequest{})

	open, err := h.tripService.OpenTrips(ctx, driverSession)
	if err != nil {
		t.Fatalf("open trips: %v", err)
	}
	if len(open) != 1 || open[0].ID != trip.ID {
		t.Errorf("expected the requested trip to be open, got %d", len(open))
	}

	if _, err := h.tripService.OpenTrips(ctx, riderSession); !errors.Is(err, service.ErrDriverRequired) {
		t.Errorf("expected ErrDriverRequired, got %v", err)
	}
}

func TestTrip_WatchTripReceivesChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	trip := h.requestTrip(t, service.RequestTripRequest{})

	stream, snapshot, err := h.tripService.WatchTrip(ctx, riderSession, trip.ID)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if snapshot.Status != domain.TripStatusRequested {
		t.Errorf("expected snapshot status requested, got %s", snapshot.Status)
	}

	if _, err := h.tripService.AcceptTrip(ctx, driverSession, trip.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	event := <-stream.Events()
	if event.Type != domain.EventTripAccepted || event.Status != domain.TripStatusAccepted {
		t.Errorf("expected accepted event, got %s/%s", event.Type, event.Status)
	}

	if err := stream.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if _, ok := <-stream.Events(); ok {
		t.Error("expected the stream to be closed after unsubscribe")
	}

	if _, _, err := h.tripService.WatchTrip(ctx, otherRider, trip.ID); !errors.Is(err, service.ErrNotTripParticipant) {
		t.Errorf("expected ErrNotTripParticipant, got %v", err)
	}
}

func TestTrip_WatchEndsWhenAnotherDriverAccepts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	trip := h.requestTrip(t, service.RequestTripRequest{})

	bystander, _, err := h.tripService.WatchTrip(ctx, otherDriver, trip.ID)
	if err != nil {
		t.Fatalf("watch as other driver: %v", err)
	}
	defer bystander.Unsubscribe()

	winner, _, err := h.tripService.WatchTrip(ctx, driverSession, trip.ID)
	if err != nil {
		t.Fatalf("watch as accepting driver: %v", err)
	}
	defer winner.Unsubscribe()

	if _, err := h.tripService.AcceptTrip(ctx, driverSession, trip.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	select {
	case event := <-winner.Events():
		if event.Type != domain.EventTripAccepted {
			t.Errorf("expected the accepting driver to see trip_accepted, got %s", event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("the accepting driver saw no event")
	}

	select {
	case event, ok := <-bystander.Events():
		if ok {
			t.Errorf("the other driver must not see %s after the trip was taken", event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the other driver's stream to end")
	}
}

func TestTrip_WatchEndsWithContext(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	trip := h.requestTrip(t, service.RequestTripRequest{})

	ctx, cancel := context.WithCancel(context.Background())
	stream, _, err := h.tripService.WatchTrip(ctx, riderSession, trip.ID)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	cancel()

	select {
	case _, ok := <-stream.Events():
		if ok {
			t.Error("expected no events after the context ended")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the stream to end with its context")
	}
}

func TestTrip_WatchMyTripsFollowsTheUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	stream, err := h.tripService.WatchMyTrips(ctx, driverSession)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stream.Unsubscribe()

	trip := h.requestTrip(t, service.RequestTripRequest{})
	if _, err := h.tripService.AcceptTrip(ctx, driverSession, trip.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	event := <-stream.Events()
	if event.TripID != trip.ID || event.Type != domain.EventTripAccepted {
		t.Errorf("expected the accept of %s, got %s for %s", trip.ID, event.Type, event.TripID)
	}
}

func driverID(i int) string {
	return "pool-driver-" + string(rune('a'+i))
}
