package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridehail/internal/domain"
	"ridehail/internal/pricing"
	"ridehail/internal/redis"
)

// NotificationService turns lifecycle changes into trip events.
// Events are logged and, when a bus is configured, published to the trip's
// topic and to the topic of every participant.
type NotificationService struct {
	bus    redis.EventBusInterface
	logger *zap.Logger
}

// NewNotificationService creates a new NotificationService. bus may be nil.
func NewNotificationService(bus redis.EventBusInterface, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		bus:    bus,
		logger: logger,
	}
}

// NotifyTripRequested announces a new trip awaiting a driver.
func (s *NotificationService) NotifyTripRequested(ctx context.Context, trip *domain.Trip) error {
	return s.publish(ctx, trip, domain.EventTripRequested,
		"Trip Requested",
		fmt.Sprintf("Looking for a %s driver. Estimated fare: $%s", trip.RideType, pricing.FormatMoney(trip.Fare.Total)),
		map[string]any{
			"ride_type":    trip.RideType,
			"pickup":       trip.Pickup,
			"destination":  trip.Destination,
			"distance_km":  trip.DistanceKm,
			"duration_min": trip.DurationMin,
			"fare":         pricing.FormatMoney(trip.Fare.Total),
		})
}

// NotifyTripAccepted tells the rider a driver is on the way. driver may be nil.
func (s *NotificationService) NotifyTripAccepted(ctx context.Context, trip *domain.Trip, driver *domain.Driver) error {
	message := "A driver has accepted your trip"
	data := map[string]any{"driver_id": trip.DriverID}
	if driver != nil {
		message = fmt.Sprintf("%s is on the way in a %s %s (%s)", driver.Name, driver.Car.Color, driver.Car.Model, driver.Car.LicensePlate)
		data["driver_name"] = driver.Name
		data["car"] = driver.Car
	}
	return s.publish(ctx, trip, domain.EventTripAccepted, "Driver Assigned", message, data)
}

// NotifyTripStarted tells the rider the trip is under way.
func (s *NotificationService) NotifyTripStarted(ctx context.Context, trip *domain.Trip) error {
	return s.publish(ctx, trip, domain.EventTripStarted,
		"Trip Started",
		"Your trip has started. Enjoy your ride!",
		map[string]any{"started_at": trip.StartedAt})
}

// NotifyTripCompleted reports the final fare.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, trip *domain.Trip) error {
	fare := pricing.FormatMoney(trip.ChargeAmount())
	return s.publish(ctx, trip, domain.EventTripCompleted,
		"Trip Completed",
		fmt.Sprintf("You have arrived. Total fare: $%s", fare),
		map[string]any{
			"fare":         fare,
			"completed_at": trip.CompletedAt,
		})
}

// NotifyTripCancelled tells both participants who cancelled and why.
func (s *NotificationService) NotifyTripCancelled(ctx context.Context, trip *domain.Trip) error {
	message := "The trip has been cancelled"
	switch trip.CancelledBy {
	case trip.RiderID:
		message = "The rider has cancelled the trip"
	case trip.DriverID:
		message = "The driver has cancelled the trip"
	}
	return s.publish(ctx, trip, domain.EventTripCancelled, "Trip Cancelled", message,
		map[string]any{
			"cancelled_by": trip.CancelledBy,
			"reason":       trip.CancellationReason,
		})
}

// NotifyTripRated shares the rating left on a completed trip.
func (s *NotificationService) NotifyTripRated(ctx context.Context, trip *domain.Trip) error {
	if trip.Rating == nil {
		return nil
	}
	return s.publish(ctx, trip, domain.EventTripRated,
		"Trip Rated",
		fmt.Sprintf("Trip rated %d out of 5", trip.Rating.Score),
		map[string]any{
			"score":    trip.Rating.Score,
			"comment":  trip.Rating.Comment,
			"rated_by": trip.Rating.RatedBy,
		})
}

// NotifyRouteUpdated streams a new position of an open trip.
func (s *NotificationService) NotifyRouteUpdated(ctx context.Context, trip *domain.Trip, point domain.Location) error {
	return s.publish(ctx, trip, domain.EventRouteUpdated,
		"Location Updated",
		"The driver's position changed",
		map[string]any{"location": point})
}

// NotifyWalletCharged reports the outcome of a wallet payment.
func (s *NotificationService) NotifyWalletCharged(ctx context.Context, trip *domain.Trip, txn *domain.WalletTransaction) error {
	title, message := "Payment Successful", fmt.Sprintf("Paid $%s from your wallet", txn.Amount.Neg().StringFixed(2))
	if txn.Status == domain.TransactionFailed {
		title, message = "Payment Failed", "Your wallet could not cover this trip. Please top up."
	}
	return s.publish(ctx, trip, domain.EventWalletCharged, title, message,
		map[string]any{
			"transaction_id": txn.ID,
			"amount":         txn.Amount.StringFixed(2),
			"status":         txn.Status,
		})
}

// NotifyReceiptReady tells the rider a receipt is available.
func (s *NotificationService) NotifyReceiptReady(ctx context.Context, trip *domain.Trip, receipt *domain.Receipt) error {
	total := pricing.FormatMoney(receipt.ActualFare)
	return s.publish(ctx, trip, domain.EventReceiptReady,
		"Receipt Ready",
		fmt.Sprintf("Your receipt for $%s is ready", total),
		map[string]any{
			"receipt_id": receipt.ID,
			"total_fare": total,
		})
}

func (s *NotificationService) publish(ctx context.Context, trip *domain.Trip, eventType domain.EventType, title, message string, data map[string]any) error {
	event := domain.TripEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		TripID:     trip.ID,
		RiderID:    trip.RiderID,
		DriverID:   trip.DriverID,
		Status:     trip.Status,
		Title:      title,
		Message:    message,
		Data:       data,
		OccurredAt: time.Now(),
	}

	s.logger.Info("trip event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("trip_id", event.TripID),
		zap.String("status", string(event.Status)),
		zap.String("title", event.Title),
	)

	if s.bus == nil {
		return nil
	}

	if err := s.bus.Publish(ctx, event, eventTopics(trip)...); err != nil {
		s.logger.Warn("failed to publish trip event",
			zap.String("trip_id", trip.ID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func eventTopics(trip *domain.Trip) []string {
	topics := []string{redis.TripTopic(trip.ID), redis.UserTopic(trip.RiderID)}
	if trip.DriverID != "" {
		topics = append(topics, redis.UserTopic(trip.DriverID))
	}
	return topics
}
