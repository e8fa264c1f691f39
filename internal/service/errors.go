package service

import "errors"

var (
	// ErrNotAuthenticated is returned when a session is missing, malformed or expired.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials is returned when email and password do not match an account.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotTripParticipant is returned when the caller is not allowed to act on the trip.
	ErrNotTripParticipant = errors.New("not a participant of this trip")

	// ErrDriverRequired is returned when a rider calls a driver-only operation.
	ErrDriverRequired = errors.New("operation requires a driver account")

	// ErrRiderRequired is returned when a driver calls a rider-only operation.
	ErrRiderRequired = errors.New("operation requires a rider account")

	// ErrNoDriverAvailable is returned when the online driver pool is empty.
	ErrNoDriverAvailable = errors.New("no driver available")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrActiveTripExists is returned when a rider requests a trip while another is still open.
	ErrActiveTripExists = errors.New("rider already has an active trip")

	// ErrDriverHasActiveTrip is returned when driver already has an active trip.
	ErrDriverHasActiveTrip = errors.New("driver already has an active trip")

	// ErrDriverBusy is returned when another request is already binding the driver to a trip.
	ErrDriverBusy = errors.New("driver is being assigned to another trip")

	// ErrInvalidFareAmount is returned when a reported actual fare is negative.
	ErrInvalidFareAmount = errors.New("invalid fare amount")

	// ErrInvalidAmount is returned when a wallet amount is not positive after
	// rounding to cents, or does not fit the ledger.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance is returned when a wallet cannot cover a ride.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrInvalidEmail is returned when an email address is empty or malformed.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrWeakPassword is returned when a password is shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("password too short")

	// ErrPasswordTooLong is returned when a password exceeds MaxPasswordLength bytes.
	ErrPasswordTooLong = errors.New("password too long")

	// ErrInvalidName is returned when the display name is empty.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidUserType is returned when the account type is neither rider nor driver.
	ErrInvalidUserType = errors.New("invalid user type")

	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrEventsUnavailable is returned when live trip events are not configured.
	ErrEventsUnavailable = errors.New("trip events unavailable")

	// ErrInvalidIdempotencyKey is returned when a top-up arrives without an idempotency key.
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
)
