package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType is how a rider pays for a trip.
type PaymentType string

const (
	PaymentTypeCard   PaymentType = "card"
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeWallet PaymentType = "wallet"
)

// Valid reports whether the payment type is known.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentTypeCard, PaymentTypeCash, PaymentTypeWallet:
		return true
	}
	return false
}

// PaymentMethod references the method chosen at booking.
type PaymentMethod struct {
	ID   string      `json:"id"`
	Type PaymentType `json:"type"`
}

// TransactionType classifies wallet ledger entries.
type TransactionType string

const (
	TransactionRide   TransactionType = "ride"
	TransactionTopUp  TransactionType = "topup"
	TransactionRefund TransactionType = "refund"
	TransactionBonus  TransactionType = "bonus"
)

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// WalletTransaction is one signed entry in a user's wallet ledger.
// Debits are negative.
type WalletTransaction struct {
	ID             string
	UserID         string
	TripID         string
	Type           TransactionType
	Amount         decimal.Decimal
	Status         TransactionStatus
	Description    string
	IdempotencyKey string
	CreatedAt      time.Time
}

// Receipt is the summary handed to the rider after a completed trip.
type Receipt struct {
	ID             string
	TripID         string
	RiderID        string
	DriverID       string
	Pickup         Location
	Destination    Location
	RideType       RideType
	DistanceKm     float64
	DurationMin    int
	BaseFare       float64
	DistanceFare   float64
	PromoCode      string
	PromoDiscount  float64
	EstimatedTotal float64
	ActualFare     float64
	PaymentMethod  PaymentMethod
	ChargeStatus   TransactionStatus
	StartedAt      time.Time
	CompletedAt    time.Time
	CreatedAt      time.Time
}
