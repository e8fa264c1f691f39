package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/pricing"
)

// FareHandler handles HTTP requests for price estimates.
type FareHandler struct {
	calculator *pricing.Calculator
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(calculator *pricing.Calculator) *FareHandler {
	return &FareHandler{calculator: calculator}
}

// QuoteRequest is the HTTP request body for a fare estimate.
type QuoteRequest struct {
	Pickup      domain.Location `json:"pickup"`
	Destination domain.Location `json:"destination"`
	RideType    string          `json:"ride_type"`
	PromoCode   string          `json:"promo_code"`
	StrictPromo bool            `json:"strict_promo"`
}

// QuoteResponse is one priced ride type.
type QuoteResponse struct {
	RideType    string       `json:"ride_type"`
	DistanceKm  float64      `json:"distance_km"`
	DurationMin int          `json:"duration_min"`
	Fare        FareResponse `json:"fare"`
}

// Quote handles POST /v1/fares/quote
// An empty ride_type prices every ride type.
func (h *FareHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	quoteReq := pricing.QuoteRequest{
		Pickup:            req.Pickup,
		Destination:       req.Destination,
		PromoCode:         req.PromoCode,
		RequireValidPromo: req.StrictPromo,
	}

	if strings.TrimSpace(req.RideType) == "" {
		quotes, err := h.calculator.QuoteAll(c.Request.Context(), quoteReq)
		if err != nil {
			respondError(c, err)
			return
		}
		response := make([]QuoteResponse, 0, len(quotes))
		for _, q := range quotes {
			response = append(response, toQuoteResponse(q))
		}
		respondJSON(c, http.StatusOK, gin.H{"quotes": response})
		return
	}

	rideType, err := domain.ParseRideType(req.RideType)
	if err != nil {
		respondError(c, err)
		return
	}
	quoteReq.RideType = rideType

	quote, err := h.calculator.Quote(c.Request.Context(), quoteReq)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toQuoteResponse(quote))
}

func toQuoteResponse(q *pricing.Quote) QuoteResponse {
	return QuoteResponse{
		RideType:    string(q.RideType),
		DistanceKm:  q.DistanceKm,
		DurationMin: q.DurationMin,
		Fare:        toFareResponse(q.Fare),
	}
}
