package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const defaultTripLimit = 50

const tripColumns = `id, rider_id, driver_id, status, ride_type, pickup, destination, pickup_geohash,
		distance_km, duration_min, base_fare, distance_fare, promo_discount, total_fare, promo_code, promo_status,
		actual_fare, payment_method_id, payment_type, route, rating,
		requested_at, accepted_at, started_at, completed_at, cancelled_at, cancellation_reason, cancelled_by`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`

	pickup, err := json.Marshal(trip.Pickup)
	if err != nil {
		return err
	}
	destination, err := json.Marshal(trip.Destination)
	if err != nil {
		return err
	}
	route, err := json.Marshal(trip.Route)
	if err != nil {
		return err
	}
	rating, err := marshalRating(trip.Rating)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		trip.ID,
		trip.RiderID,
		nullString(trip.DriverID),
		trip.Status,
		trip.RideType,
		pickup,
		destination,
		trip.Pickup.Geohash(),
		trip.DistanceKm,
		trip.DurationMin,
		trip.Fare.BaseFare,
		trip.Fare.DistanceFare,
		trip.Fare.PromoDiscount,
		trip.Fare.Total,
		trip.Fare.PromoCode,
		trip.Fare.Promo,
		nullFloat(trip.ActualFare),
		trip.PaymentMethod.ID,
		trip.PaymentMethod.Type,
		route,
		rating,
		trip.RequestedAt,
		nullTime(trip.AcceptedAt),
		nullTime(trip.StartedAt),
		nullTime(trip.CompletedAt),
		nullTime(trip.CancelledAt),
		trip.CancellationReason,
		trip.CancelledBy,
	)
	// Either the ID or the rider's open-trip index.
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// Update writes the lifecycle fields of a trip whose stored status is still expected.
// The route is owned by AppendRoutePoint and is never overwritten here.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip, expected domain.TripStatus) error {
	query := `
		UPDATE trips
		SET driver_id = $2, status = $3, actual_fare = $4, rating = $5,
			accepted_at = $6, started_at = $7, completed_at = $8, cancelled_at = $9,
			cancellation_reason = $10, cancelled_by = $11
		WHERE id = $1 AND status = $12
	`

	rating, err := marshalRating(trip.Rating)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, query,
		trip.ID,
		nullString(trip.DriverID),
		trip.Status,
		nullFloat(trip.ActualFare),
		rating,
		nullTime(trip.AcceptedAt),
		nullTime(trip.StartedAt),
		nullTime(trip.CompletedAt),
		nullTime(trip.CancelledAt),
		trip.CancellationReason,
		trip.CancelledBy,
		expected,
	)
	if err != nil {
		return err
	}

	if err := expectOneRow(result, errNoRowsUpdated); err != nil {
		if errors.Is(err, errNoRowsUpdated) {
			return r.missingOrConflict(ctx, trip.ID)
		}
		return err
	}

	return nil
}

// AppendRoutePoint adds a point to the route unless the trip is finished.
func (r *TripRepository) AppendRoutePoint(ctx context.Context, id string, point domain.Location) error {
	query := `
		UPDATE trips
		SET route = route || jsonb_build_array($2::jsonb)
		WHERE id = $1 AND NOT (status = ANY($3))
	`

	data, err := json.Marshal(point)
	if err != nil {
		return err
	}

	terminal := statusStrings(domain.FinishedTripStatuses)
	result, err := r.q.ExecContext(ctx, query, id, string(data), pq.Array(terminal))
	if err != nil {
		return err
	}

	if err := expectOneRow(result, errNoRowsUpdated); err != nil {
		if errors.Is(err, errNoRowsUpdated) {
			return r.missingOrConflict(ctx, id)
		}
		return err
	}

	return nil
}

// Find returns trips matching the filter, most recently requested first.
func (r *TripRepository) Find(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE TRUE`
	var args []any

	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}

	if filter.UserID != "" {
		column := "rider_id"
		if filter.Role == domain.UserTypeDriver {
			column = "driver_id"
		}
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTripLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY requested_at DESC LIMIT $%d", len(args))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

var errNoRowsUpdated = errors.New("no rows updated")

// missingOrConflict distinguishes a deleted trip from one whose status moved on.
func (r *TripRepository) missingOrConflict(ctx context.Context, id string) error {
	var status string
	err := r.q.QueryRowContext(ctx, `SELECT status FROM trips WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	return repository.ErrConflict
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var (
		trip                               domain.Trip
		driverID                           sql.NullString
		pickup, destination, route, rating []byte
		geohash                            string
		actualFare                         sql.NullFloat64
	)
	var acceptedAt, startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.RiderID,
		&driverID,
		&trip.Status,
		&trip.RideType,
		&pickup,
		&destination,
		&geohash,
		&trip.DistanceKm,
		&trip.DurationMin,
		&trip.Fare.BaseFare,
		&trip.Fare.DistanceFare,
		&trip.Fare.PromoDiscount,
		&trip.Fare.Total,
		&trip.Fare.PromoCode,
		&trip.Fare.Promo,
		&actualFare,
		&trip.PaymentMethod.ID,
		&trip.PaymentMethod.Type,
		&route,
		&rating,
		&trip.RequestedAt,
		&acceptedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
		&trip.CancellationReason,
		&trip.CancelledBy,
	)
	if err != nil {
		return nil, err
	}

	trip.DriverID = driverID.String
	if actualFare.Valid {
		v := actualFare.Float64
		trip.ActualFare = &v
	}
	trip.AcceptedAt = acceptedAt.Time
	trip.StartedAt = startedAt.Time
	trip.CompletedAt = completedAt.Time
	trip.CancelledAt = cancelledAt.Time

	if err := json.Unmarshal(pickup, &trip.Pickup); err != nil {
		return nil, fmt.Errorf("decode pickup: %w", err)
	}
	if err := json.Unmarshal(destination, &trip.Destination); err != nil {
		return nil, fmt.Errorf("decode destination: %w", err)
	}
	if len(route) > 0 {
		if err := json.Unmarshal(route, &trip.Route); err != nil {
			return nil, fmt.Errorf("decode route: %w", err)
		}
	}
	if len(rating) > 0 {
		trip.Rating = &domain.Rating{}
		if err := json.Unmarshal(rating, trip.Rating); err != nil {
			return nil, fmt.Errorf("decode rating: %w", err)
		}
	}

	return &trip, nil
}

// marshalRating returns an untyped nil for a missing rating so it is stored as NULL.
func marshalRating(r *domain.Rating) (any, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func statusStrings(statuses []domain.TripStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
