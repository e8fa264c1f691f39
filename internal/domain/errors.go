package domain

import "errors"

var (
	// ErrInvalidCoordinate is returned when a latitude or longitude is out of range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrUnknownRideType is returned when a ride type is not one of the known tiers.
	ErrUnknownRideType = errors.New("unknown ride type")

	// ErrInvalidPromoCode is returned for an unrecognized promo code when strict promo handling is requested.
	ErrInvalidPromoCode = errors.New("invalid promo code")

	// ErrInvalidTransition is returned when a lifecycle event is not allowed from the trip's current status.
	ErrInvalidTransition = errors.New("invalid trip status transition")

	// ErrTripFinalized is returned when mutating the route of a completed or cancelled trip.
	ErrTripFinalized = errors.New("trip already finalized")

	// ErrInvalidRating is returned when a rating score is outside 1..5.
	ErrInvalidRating = errors.New("rating score must be between 1 and 5")

	// ErrInvalidPaymentType is returned when a payment method type is unknown.
	ErrInvalidPaymentType = errors.New("invalid payment method type")
)
