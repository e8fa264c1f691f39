package domain

import "time"

// TripStatus represents where a trip is in its lifecycle.
type TripStatus string

const (
	TripStatusRequested  TripStatus = "requested"
	TripStatusAccepted   TripStatus = "accepted"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

var (
	// ActiveTripStatuses are the statuses of a trip that has not yet finished.
	ActiveTripStatuses = []TripStatus{TripStatusRequested, TripStatusAccepted, TripStatusInProgress}

	// FinishedTripStatuses are the terminal statuses shown in ride history.
	FinishedTripStatuses = []TripStatus{TripStatusCompleted, TripStatusCancelled}
)

// IsTerminal reports whether no further lifecycle transition is possible.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// PromoStatus records what happened to the promo code entered at booking.
type PromoStatus string

const (
	PromoNone         PromoStatus = "none"
	PromoApplied      PromoStatus = "applied"
	PromoUnrecognized PromoStatus = "unrecognized"
)

// Fare is the price breakdown computed when a trip is requested.
// Amounts keep full float precision; rounding is a display concern.
type Fare struct {
	BaseFare      float64     `json:"base_fare"`
	DistanceFare  float64     `json:"distance_fare"`
	PromoDiscount float64     `json:"promo_discount"`
	Total         float64     `json:"total"`
	PromoCode     string      `json:"promo_code,omitempty"`
	Promo         PromoStatus `json:"promo_status"`
}

// Subtotal is the fare before any promo discount.
func (f Fare) Subtotal() float64 {
	return f.BaseFare + f.DistanceFare
}

// Rating is the post-trip feedback left by a participant.
type Rating struct {
	Score   int       `json:"score"`
	Comment string    `json:"comment,omitempty"`
	RatedBy string    `json:"rated_by"`
	RatedAt time.Time `json:"rated_at"`
}

// Trip is a single ride from request to completion or cancellation.
// Distance, duration and fare are fixed at request time.
type Trip struct {
	ID            string
	RiderID       string
	DriverID      string
	Status        TripStatus
	Pickup        Location
	Destination   Location
	RideType      RideType
	DistanceKm    float64
	DurationMin   int
	Fare          Fare
	ActualFare    *float64
	PaymentMethod PaymentMethod
	Route         []Location
	Rating        *Rating

	RequestedAt time.Time
	AcceptedAt  time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	CancelledAt time.Time

	CancellationReason string
	CancelledBy        string
}

// NewTripParams holds the values fixed when a rider requests a trip.
type NewTripParams struct {
	ID            string
	RiderID       string
	Pickup        Location
	Destination   Location
	RideType      RideType
	DistanceKm    float64
	DurationMin   int
	Fare          Fare
	PaymentMethod PaymentMethod
	RequestedAt   time.Time
}

// NewTrip creates a trip in the requested status whose route starts at the pickup.
func NewTrip(p NewTripParams) *Trip {
	return &Trip{
		ID:            p.ID,
		RiderID:       p.RiderID,
		Status:        TripStatusRequested,
		Pickup:        p.Pickup,
		Destination:   p.Destination,
		RideType:      p.RideType,
		DistanceKm:    p.DistanceKm,
		DurationMin:   p.DurationMin,
		Fare:          p.Fare,
		PaymentMethod: p.PaymentMethod,
		Route:         []Location{p.Pickup},
		RequestedAt:   p.RequestedAt,
	}
}

// Accept binds a driver to a requested trip.
func (t *Trip) Accept(driverID string, at time.Time) error {
	if t.Status != TripStatusRequested {
		return ErrInvalidTransition
	}
	t.DriverID = driverID
	t.Status = TripStatusAccepted
	t.AcceptedAt = t.stamp(at)
	return nil
}

// Start moves an accepted trip into progress.
func (t *Trip) Start(at time.Time) error {
	if t.Status != TripStatusAccepted {
		return ErrInvalidTransition
	}
	t.Status = TripStatusInProgress
	t.StartedAt = t.stamp(at)
	return nil
}

// Complete finishes a trip in progress. A nil actual fare keeps the estimate.
func (t *Trip) Complete(actualFare *float64, at time.Time) error {
	if t.Status != TripStatusInProgress {
		return ErrInvalidTransition
	}
	if actualFare == nil {
		estimate := t.Fare.Total
		actualFare = &estimate
	}
	t.ActualFare = actualFare
	t.Status = TripStatusCompleted
	t.CompletedAt = t.stamp(at)
	return nil
}

// Cancel ends a trip that has not completed yet.
func (t *Trip) Cancel(reason, by string, at time.Time) error {
	if t.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	t.Status = TripStatusCancelled
	t.CancellationReason = reason
	t.CancelledBy = by
	t.CancelledAt = t.stamp(at)
	return nil
}

// Rate attaches a rating to a completed trip, replacing any earlier one.
func (t *Trip) Rate(r Rating) error {
	if t.Status != TripStatusCompleted {
		return ErrInvalidTransition
	}
	if r.Score < 1 || r.Score > 5 {
		return ErrInvalidRating
	}
	if r.RatedAt.Before(t.CompletedAt) {
		r.RatedAt = t.CompletedAt
	}
	t.Rating = &r
	return nil
}

// AppendRoute records a point travelled while the trip is still open.
func (t *Trip) AppendRoute(loc Location) error {
	if t.Status.IsTerminal() {
		return ErrTripFinalized
	}
	if err := loc.Validate(); err != nil {
		return err
	}
	t.Route = append(t.Route, loc)
	return nil
}

// IsParticipant reports whether the user is the trip's rider or bound driver.
func (t *Trip) IsParticipant(userID string) bool {
	return userID != "" && (userID == t.RiderID || userID == t.DriverID)
}

// ChargeAmount is what the rider pays: the actual fare when known, otherwise the estimate.
func (t *Trip) ChargeAmount() float64 {
	if t.ActualFare != nil {
		return *t.ActualFare
	}
	return t.Fare.Total
}

// stamp clamps a transition time so lifecycle timestamps never go backwards.
func (t *Trip) stamp(at time.Time) time.Time {
	latest := t.RequestedAt
	for _, ts := range []time.Time{t.AcceptedAt, t.StartedAt, t.CompletedAt, t.CancelledAt} {
		if ts.After(latest) {
			latest = ts
		}
	}
	if at.Before(latest) {
		return latest
	}
	return at
}
