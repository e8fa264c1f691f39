package handler

import (
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/pricing"
)

// FareResponse is the price breakdown. Amounts are 2-decimal strings.
type FareResponse struct {
	BaseFare      string `json:"base_fare"`
	DistanceFare  string `json:"distance_fare"`
	PromoDiscount string `json:"promo_discount"`
	Total         string `json:"total"`
	PromoCode     string `json:"promo_code,omitempty"`
	PromoStatus   string `json:"promo_status"`
}

// RatingResponse is the feedback left on a trip.
type RatingResponse struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
	RatedBy string `json:"rated_by"`
	RatedAt string `json:"rated_at"`
}

// TripResponse is the HTTP representation of a trip.
type TripResponse struct {
	ID                 string               `json:"id"`
	RiderID            string               `json:"rider_id"`
	DriverID           string               `json:"driver_id,omitempty"`
	Status             string               `json:"status"`
	RideType           string               `json:"ride_type"`
	Pickup             domain.Location      `json:"pickup"`
	Destination        domain.Location      `json:"destination"`
	DistanceKm         float64              `json:"distance_km"`
	DurationMin        int                  `json:"duration_min"`
	Fare               FareResponse         `json:"fare"`
	ActualFare         string               `json:"actual_fare,omitempty"`
	PaymentMethod      domain.PaymentMethod `json:"payment_method"`
	Route              []domain.Location    `json:"route"`
	Rating             *RatingResponse      `json:"rating,omitempty"`
	RequestedAt        string               `json:"requested_at"`
	AcceptedAt         string               `json:"accepted_at,omitempty"`
	StartedAt          string               `json:"started_at,omitempty"`
	CompletedAt        string               `json:"completed_at,omitempty"`
	CancelledAt        string               `json:"cancelled_at,omitempty"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	CancelledBy        string               `json:"cancelled_by,omitempty"`
}

// DriverResponse is the HTTP representation of a pool driver.
type DriverResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Phone           string           `json:"phone"`
	Rating          float64          `json:"rating"`
	Car             domain.Car       `json:"car"`
	IsOnline        bool             `json:"is_online"`
	CurrentLocation *domain.Location `json:"current_location,omitempty"`
	UpdatedAt       string           `json:"updated_at"`
}

// UserResponse is the HTTP representation of an account.
type UserResponse struct {
	ID          string             `json:"id"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	Name        string             `json:"name"`
	UserType    string             `json:"user_type"`
	Rating      float64            `json:"rating"`
	TotalRides  int                `json:"total_rides"`
	Preferences domain.Preferences `json:"preferences"`
	CreatedAt   string             `json:"created_at"`
}

// TransactionResponse is one wallet ledger entry.
type TransactionResponse struct {
	ID          string `json:"id"`
	TripID      string `json:"trip_id,omitempty"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// ReceiptResponse is the receipt of a completed trip.
type ReceiptResponse struct {
	ID             string  `json:"id"`
	BaseFare       string  `json:"base_fare"`
	DistanceFare   string  `json:"distance_fare"`
	PromoCode      string  `json:"promo_code,omitempty"`
	PromoDiscount  string  `json:"promo_discount"`
	EstimatedTotal string  `json:"estimated_total"`
	TotalFare      string  `json:"total_fare"`
	PaymentMethod  string  `json:"payment_method"`
	ChargeStatus   string  `json:"charge_status"`
	DistanceKm     float64 `json:"distance_km"`
	DurationMin    int     `json:"duration_min"`
	Text           string  `json:"text,omitempty"`
}

func toFareResponse(f domain.Fare) FareResponse {
	return FareResponse{
		BaseFare:      pricing.FormatMoney(f.BaseFare),
		DistanceFare:  pricing.FormatMoney(f.DistanceFare),
		PromoDiscount: pricing.FormatMoney(f.PromoDiscount),
		Total:         pricing.FormatMoney(f.Total),
		PromoCode:     f.PromoCode,
		PromoStatus:   string(f.Promo),
	}
}

func toTripResponse(t *domain.Trip) TripResponse {
	resp := TripResponse{
		ID:                 t.ID,
		RiderID:            t.RiderID,
		DriverID:           t.DriverID,
		Status:             string(t.Status),
		RideType:           string(t.RideType),
		Pickup:             t.Pickup,
		Destination:        t.Destination,
		DistanceKm:         t.DistanceKm,
		DurationMin:        t.DurationMin,
		Fare:               toFareResponse(t.Fare),
		PaymentMethod:      t.PaymentMethod,
		Route:              t.Route,
		RequestedAt:        formatTime(t.RequestedAt),
		AcceptedAt:         formatTime(t.AcceptedAt),
		StartedAt:          formatTime(t.StartedAt),
		CompletedAt:        formatTime(t.CompletedAt),
		CancelledAt:        formatTime(t.CancelledAt),
		CancellationReason: t.CancellationReason,
		CancelledBy:        t.CancelledBy,
	}
	if resp.Route == nil {
		resp.Route = []domain.Location{}
	}
	if t.ActualFare != nil {
		resp.ActualFare = pricing.FormatMoney(*t.ActualFare)
	}
	if t.Rating != nil {
		resp.Rating = &RatingResponse{
			Score:   t.Rating.Score,
			Comment: t.Rating.Comment,
			RatedBy: t.Rating.RatedBy,
			RatedAt: formatTime(t.Rating.RatedAt),
		}
	}
	return resp
}

func toTripResponses(trips []*domain.Trip) []TripResponse {
	out := make([]TripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripResponse(t))
	}
	return out
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:              d.ID,
		Name:            d.Name,
		Phone:           d.Phone,
		Rating:          d.Rating,
		Car:             d.Car,
		IsOnline:        d.IsOnline,
		CurrentLocation: d.CurrentLocation,
		UpdatedAt:       formatTime(d.UpdatedAt),
	}
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Phone:       u.Phone,
		Name:        u.Name,
		UserType:    string(u.UserType),
		Rating:      u.Rating,
		TotalRides:  u.TotalRides,
		Preferences: u.Preferences,
		CreatedAt:   formatTime(u.CreatedAt),
	}
}

func toTransactionResponse(t *domain.WalletTransaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		TripID:      t.TripID,
		Type:        string(t.Type),
		Amount:      t.Amount.StringFixed(2),
		Status:      string(t.Status),
		Description: t.Description,
		CreatedAt:   formatTime(t.CreatedAt),
	}
}

func toReceiptResponse(r *domain.Receipt, text string) *ReceiptResponse {
	if r == nil {
		return nil
	}
	return &ReceiptResponse{
		ID:             r.ID,
		BaseFare:       pricing.FormatMoney(r.BaseFare),
		DistanceFare:   pricing.FormatMoney(r.DistanceFare),
		PromoCode:      r.PromoCode,
		PromoDiscount:  pricing.FormatMoney(r.PromoDiscount),
		EstimatedTotal: pricing.FormatMoney(r.EstimatedTotal),
		TotalFare:      pricing.FormatMoney(r.ActualFare),
		PaymentMethod:  string(r.PaymentMethod.Type),
		ChargeStatus:   string(r.ChargeStatus),
		DistanceKm:     r.DistanceKm,
		DurationMin:    r.DurationMin,
		Text:           text,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
