package pricing

import (
	"context"
	"math"

	"ridehail/internal/domain"
)

// BaseFare is the flat amount charged on every trip.
const BaseFare = 2.50

var (
	// PerKmRates is the distance rate for each ride type.
	PerKmRates = map[domain.RideType]float64{
		domain.RideTypeEconomy: 1.0,
		domain.RideTypeComfort: 1.5,
		domain.RideTypePremium: 2.0,
		domain.RideTypeXL:      1.8,
	}

	// PromoRates maps each recognised promo code to the fraction of the subtotal it takes off.
	PromoRates = map[string]float64{
		"SAVE20": 0.20,
	}
)

// Calculator prices trips from distance, ride type and promo code.
type Calculator struct {
	baseFare float64
	perKm    map[domain.RideType]float64
	promos   map[string]float64
}

// NewCalculator creates a Calculator with the standard rate card.
func NewCalculator() *Calculator {
	return &Calculator{
		baseFare: BaseFare,
		perKm:    PerKmRates,
		promos:   PromoRates,
	}
}

// QuoteRequest contains the parameters for pricing a prospective trip.
type QuoteRequest struct {
	Pickup      domain.Location
	Destination domain.Location
	RideType    domain.RideType
	PromoCode   string

	// RequireValidPromo turns an unrecognised promo code into ErrInvalidPromoCode
	// instead of a zero discount.
	RequireValidPromo bool
}

// Quote is the priced estimate for one ride type.
type Quote struct {
	RideType    domain.RideType
	DistanceKm  float64
	DurationMin int
	Fare        domain.Fare
}

// Quote prices a single trip.
func (c *Calculator) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	distance, err := Distance(req.Pickup, req.Destination)
	if err != nil {
		return nil, err
	}

	fare, err := c.Fare(distance, req.RideType, req.PromoCode)
	if err != nil {
		return nil, err
	}
	if req.RequireValidPromo && fare.Promo == domain.PromoUnrecognized {
		return nil, domain.ErrInvalidPromoCode
	}

	return &Quote{
		RideType:    req.RideType,
		DistanceKm:  distance,
		DurationMin: Duration(distance),
		Fare:        fare,
	}, nil
}

// QuoteAll prices the trip for every ride type, in display order.
func (c *Calculator) QuoteAll(ctx context.Context, req QuoteRequest) ([]*Quote, error) {
	quotes := make([]*Quote, 0, len(domain.RideTypes))
	for _, rt := range domain.RideTypes {
		req.RideType = rt
		q, err := c.Quote(ctx, req)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// Fare computes the breakdown for a known distance.
// Unrecognised promo codes give no discount and are reported as PromoUnrecognized.
func (c *Calculator) Fare(distanceKm float64, rideType domain.RideType, promoCode string) (domain.Fare, error) {
	rate, ok := c.perKm[rideType]
	if !ok {
		return domain.Fare{}, domain.ErrUnknownRideType
	}

	fare := domain.Fare{
		BaseFare:     c.baseFare,
		DistanceFare: distanceKm * rate,
		PromoCode:    promoCode,
		Promo:        domain.PromoNone,
	}

	subtotal := fare.Subtotal()
	if promoCode != "" {
		if pct, ok := c.promos[promoCode]; ok {
			fare.PromoDiscount = subtotal * pct
			fare.Promo = domain.PromoApplied
		} else {
			fare.Promo = domain.PromoUnrecognized
		}
	}

	fare.Total = math.Max(subtotal-fare.PromoDiscount, 0)
	return fare, nil
}
