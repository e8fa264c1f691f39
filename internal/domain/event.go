package domain

import "time"

// EventType names a change pushed to trip listeners.
type EventType string

const (
	EventTripRequested EventType = "trip_requested"
	EventTripAccepted  EventType = "trip_accepted"
	EventTripStarted   EventType = "trip_started"
	EventTripCompleted EventType = "trip_completed"
	EventTripCancelled EventType = "trip_cancelled"
	EventTripRated     EventType = "trip_rated"
	EventRouteUpdated  EventType = "route_updated"
	EventWalletCharged EventType = "wallet_charged"
	EventReceiptReady  EventType = "receipt_ready"
)

// TripEvent is a snapshot-carrying notification about a trip.
type TripEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	TripID     string         `json:"trip_id"`
	RiderID    string         `json:"rider_id"`
	DriverID   string         `json:"driver_id,omitempty"`
	Status     TripStatus     `json:"status"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
