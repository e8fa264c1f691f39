package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

var tripColumnNames = []string{
	"id", "rider_id", "driver_id", "status", "ride_type", "pickup", "destination", "pickup_geohash",
	"distance_km", "duration_min", "base_fare", "distance_fare", "promo_discount", "total_fare", "promo_code", "promo_status",
	"actual_fare", "payment_method_id", "payment_type", "route", "rating",
	"requested_at", "accepted_at", "started_at", "completed_at", "cancelled_at", "cancellation_reason", "cancelled_by",
}

var requestedAt = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func setupTripRepoTest(t *testing.T) (*TripRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewTripRepository(db), mock, func() { db.Close() }
}

func sampleTrip() *domain.Trip {
	return domain.NewTrip(domain.NewTripParams{
		ID:            "trip-1",
		RiderID:       "rider-1",
		Pickup:        domain.Location{Latitude: 0, Longitude: 0, Address: "Depot"},
		Destination:   domain.Location{Latitude: 0, Longitude: 0.09, Address: "Harbour"},
		RideType:      domain.RideTypeEconomy,
		DistanceKm:    10.0075,
		DurationMin:   25,
		Fare:          domain.Fare{BaseFare: 2.5, DistanceFare: 10.0075, Total: 12.5075, Promo: domain.PromoNone},
		PaymentMethod: domain.PaymentMethod{ID: "pm-1", Type: domain.PaymentTypeWallet},
		RequestedAt:   requestedAt,
	})
}

func acceptedTripRow() *sqlmock.Rows {
	acceptedAt := requestedAt.Add(2 * time.Minute)
	return sqlmock.NewRows(tripColumnNames).AddRow(
		"trip-1", "rider-1", "driver-1", "accepted", "economy",
		[]byte(`{"latitude":0,"longitude":0,"address":"Depot"}`),
		[]byte(`{"latitude":0,"longitude":0.09,"address":"Harbour"}`),
		"s000000",
		10.0075, 25, 2.5, 10.0075, 0.0, 12.5075, "", "none",
		nil, "pm-1", "wallet",
		[]byte(`[{"latitude":0,"longitude":0,"address":"Depot"}]`),
		nil,
		requestedAt, acceptedAt, nil, nil, nil, "", "",
	)
}

func TestTripRepository_Create(t *testing.T) {
	repo, mock, cleanup := setupTripRepoTest(t)
	defer cleanup()

	args := make([]driver.Value, 28)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	args[0] = "trip-1"
	args[1] = "rider-1"
	args[3] = "requested"
	args[7] = "s000000"
	args[18] = "wallet"

	mock.ExpectExec("INSERT INTO trips").
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), sampleTrip())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepository_Create_OpenTripExists(t *testing.T) {
	repo, mock, cleanup := setupTripRepoTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO trips").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_trips_one_open_per_rider"})

	err := repo.Create(context.Background(), sampleTrip())

	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepository_GetByID(t *testing.T) {
	testCases := []struct {
		name       string
		mockSetup  func(mock sqlmock.Sqlmock)
		assertFunc func(t *testing.T, trip *domain.Trip, err error)
	}{
		{
			name: "Success",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("^SELECT (.+) FROM trips WHERE id = \\$1").
					WithArgs("trip-1").
					WillReturnRows(acceptedTripRow())
			},
			assertFunc: func(t *testing.T, trip *domain.Trip, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.TripStatusAccepted, trip.Status)
				assert.Equal(t, "driver-1", trip.DriverID)
				assert.Equal(t, "Harbour", trip.Destination.Address)
				assert.Len(t, trip.Route, 1)
				assert.Nil(t, trip.ActualFare)
				assert.Nil(t, trip.Rating)
				assert.True(t, trip.StartedAt.IsZero())
				assert.Equal(t, domain.PaymentTypeWallet, trip.PaymentMethod.Type)
			},
		},
		{
			name: "Not Found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("^SELECT (.+) FROM trips WHERE id = \\$1").
					WithArgs("trip-1").
					WillReturnError(sql.ErrNoRows)
			},
			assertFunc: func(t *testing.T, trip *domain.Trip, err error) {
				assert.ErrorIs(t, err, repository.ErrNotFound)
				assert.Nil(t, trip)
			},
		},
		{
			name: "Database Error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("^SELECT (.+) FROM trips WHERE id = \\$1").
					WithArgs("trip-1").
					WillReturnError(errors.New("connection reset"))
			},
			assertFunc: func(t *testing.T, trip *domain.Trip, err error) {
				assert.EqualError(t, err, "connection reset")
				assert.Nil(t, trip)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, cleanup := setupTripRepoTest(t)
			defer cleanup()

			tc.mockSetup(mock)

			trip, err := repo.GetByID(context.Background(), "trip-1")

			tc.assertFunc(t, trip, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTripRepository_Update(t *testing.T) {
	testCases := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "Success",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE trips").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "Status Moved On",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE trips").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT status FROM trips WHERE id = \\$1").
					WithArgs("trip-1").
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("cancelled"))
			},
			wantErr: repository.ErrConflict,
		},
		{
			name: "Trip Missing",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE trips").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT status FROM trips WHERE id = \\$1").
					WithArgs("trip-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: repository.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, cleanup := setupTripRepoTest(t)
			defer cleanup()

			tc.mockSetup(mock)

			trip := sampleTrip()
			require.NoError(t, trip.Accept("driver-1", requestedAt.Add(time.Minute)))
			err := repo.Update(context.Background(), trip, domain.TripStatusRequested)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTripRepository_AppendRoutePoint_FinishedTrip(t *testing.T) {
	repo, mock, cleanup := setupTripRepoTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE trips\\s+SET route = route \\|\\| jsonb_build_array").
		WithArgs("trip-1", `{"latitude":1,"longitude":2,"address":""}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM trips").
		WithArgs("trip-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	err := repo.AppendRoutePoint(context.Background(), "trip-1", domain.Location{Latitude: 1, Longitude: 2})

	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepository_Find(t *testing.T) {
	t.Run("rider history", func(t *testing.T) {
		repo, mock, cleanup := setupTripRepoTest(t)
		defer cleanup()

		mock.ExpectQuery("status = ANY\\(\\$1\\) AND rider_id = \\$2 ORDER BY requested_at DESC LIMIT \\$3").
			WithArgs(sqlmock.AnyArg(), "rider-1", 50).
			WillReturnRows(acceptedTripRow())

		trips, err := repo.Find(context.Background(), repository.TripFilter{
			UserID:   "rider-1",
			Role:     domain.UserTypeRider,
			Statuses: domain.ActiveTripStatuses,
		})

		require.NoError(t, err)
		require.Len(t, trips, 1)
		assert.Equal(t, "trip-1", trips[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver filter and explicit limit", func(t *testing.T) {
		repo, mock, cleanup := setupTripRepoTest(t)
		defer cleanup()

		mock.ExpectQuery("AND driver_id = \\$2 ORDER BY requested_at DESC LIMIT \\$3").
			WithArgs(sqlmock.AnyArg(), "driver-1", 1).
			WillReturnRows(sqlmock.NewRows(tripColumnNames))

		trips, err := repo.Find(context.Background(), repository.TripFilter{
			UserID:   "driver-1",
			Role:     domain.UserTypeDriver,
			Statuses: domain.ActiveTripStatuses,
			Limit:    1,
		})

		require.NoError(t, err)
		assert.Empty(t, trips)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
