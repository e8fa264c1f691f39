package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/pricing"
)

// ReceiptService handles receipt generation.
type ReceiptService struct {
	notificationService *NotificationService
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(notificationService *NotificationService) *ReceiptService {
	return &ReceiptService{
		notificationService: notificationService,
	}
}

// GenerateReceiptRequest contains the parameters for generating a receipt.
type GenerateReceiptRequest struct {
	Trip   *domain.Trip
	Charge *domain.WalletTransaction // nil unless paid from the wallet
}

// GenerateReceipt generates a receipt for a completed trip.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, req GenerateReceiptRequest) (*domain.Receipt, error) {
	if req.Trip == nil || req.Trip.ID == "" {
		return nil, ErrInvalidTripID
	}
	if req.Trip.Status != domain.TripStatusCompleted {
		return nil, domain.ErrInvalidTransition
	}

	trip := req.Trip

	// Card and cash are settled outside the app.
	chargeStatus := domain.TransactionCompleted
	if req.Charge != nil {
		chargeStatus = req.Charge.Status
	}

	receipt := &domain.Receipt{
		ID:             uuid.New().String(),
		TripID:         trip.ID,
		RiderID:        trip.RiderID,
		DriverID:       trip.DriverID,
		Pickup:         trip.Pickup,
		Destination:    trip.Destination,
		RideType:       trip.RideType,
		DistanceKm:     trip.DistanceKm,
		DurationMin:    trip.DurationMin,
		BaseFare:       trip.Fare.BaseFare,
		DistanceFare:   trip.Fare.DistanceFare,
		PromoCode:      trip.Fare.PromoCode,
		PromoDiscount:  trip.Fare.PromoDiscount,
		EstimatedTotal: trip.Fare.Total,
		ActualFare:     trip.ChargeAmount(),
		PaymentMethod:  trip.PaymentMethod,
		ChargeStatus:   chargeStatus,
		StartedAt:      trip.StartedAt,
		CompletedAt:    trip.CompletedAt,
		CreatedAt:      time.Now(),
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyReceiptReady(ctx, trip, receipt)
	}

	return receipt, nil
}

// FormatReceipt renders the receipt as plain text for email or print.
func (s *ReceiptService) FormatReceipt(receipt *domain.Receipt) string {
	var b strings.Builder

	line := strings.Repeat("=", 37)
	rule := strings.Repeat("-", 37)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "            RIDE RECEIPT")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Receipt ID: %s\n", receipt.ID)
	fmt.Fprintf(&b, "Trip ID:    %s\n", receipt.TripID)
	fmt.Fprintf(&b, "Date:       %s\n\n", receipt.CreatedAt.Format("Jan 02, 2006 3:04 PM"))

	fmt.Fprintln(&b, "TRIP DETAILS")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Pickup:      %s\n", formatPlace(receipt.Pickup))
	fmt.Fprintf(&b, "Destination: %s\n", formatPlace(receipt.Destination))
	fmt.Fprintf(&b, "Ride type:   %s\n", receipt.RideType)
	fmt.Fprintf(&b, "Distance:    %.2f km\n", receipt.DistanceKm)
	fmt.Fprintf(&b, "Duration:    %d min\n\n", receipt.DurationMin)

	fmt.Fprintln(&b, "FARE BREAKDOWN")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Base fare:        $%s\n", pricing.FormatMoney(receipt.BaseFare))
	fmt.Fprintf(&b, "Distance:         $%s\n", pricing.FormatMoney(receipt.DistanceFare))
	if receipt.PromoDiscount > 0 {
		fmt.Fprintf(&b, "Promo (%s):  -$%s\n", receipt.PromoCode, pricing.FormatMoney(receipt.PromoDiscount))
	}
	fmt.Fprintf(&b, "Estimate:         $%s\n", pricing.FormatMoney(receipt.EstimatedTotal))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "TOTAL:            $%s\n\n", pricing.FormatMoney(receipt.ActualFare))

	fmt.Fprintln(&b, "PAYMENT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Method: %s\n", receipt.PaymentMethod.Type)
	fmt.Fprintf(&b, "Status: %s\n\n", receipt.ChargeStatus)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "     Thank you for riding with us!")
	fmt.Fprintln(&b, line)

	return b.String()
}

func formatPlace(loc domain.Location) string {
	if loc.Address != "" {
		return loc.Address
	}
	return fmt.Sprintf("(%.4f, %.4f)", loc.Latitude, loc.Longitude)
}
