package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService     *service.TripService
	dispatchService *service.DispatchService
	receiptService  *service.ReceiptService
}

// NewTripHandler creates a new TripHandler. dispatchService and
// receiptService may be nil.
func NewTripHandler(
	tripService *service.TripService,
	dispatchService *service.DispatchService,
	receiptService *service.ReceiptService,
) *TripHandler {
	return &TripHandler{
		tripService:     tripService,
		dispatchService: dispatchService,
		receiptService:  receiptService,
	}
}

// RequestTripRequest is the HTTP request body for booking a trip.
type RequestTripRequest struct {
	Pickup        domain.Location      `json:"pickup"`
	Destination   domain.Location      `json:"destination"`
	RideType      string               `json:"ride_type"`
	PromoCode     string               `json:"promo_code"`
	StrictPromo   bool                 `json:"strict_promo"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

// CompleteTripRequest is the optional HTTP request body for completing a trip.
type CompleteTripRequest struct {
	ActualFare *float64 `json:"actual_fare"`
}

// CancelTripRequest is the optional HTTP request body for cancelling a trip.
type CancelTripRequest struct {
	Reason string `json:"reason"`
}

// RateTripRequest is the HTTP request body for rating a trip.
type RateTripRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// CompleteTripResponse is the HTTP response for a completed trip.
type CompleteTripResponse struct {
	Trip    TripResponse         `json:"trip"`
	Charge  *TransactionResponse `json:"charge,omitempty"`
	Receipt *ReceiptResponse     `json:"receipt,omitempty"`
}

// Request handles POST /v1/trips
func (h *TripHandler) Request(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	var req RequestTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	rideType, err := domain.ParseRideType(req.RideType)
	if err != nil {
		respondError(c, err)
		return
	}

	trip, err := h.tripService.RequestTrip(c.Request.Context(), session, service.RequestTripRequest{
		Pickup:            req.Pickup,
		Destination:       req.Destination,
		RideType:          rideType,
		PromoCode:         req.PromoCode,
		RequireValidPromo: req.StrictPromo,
		PaymentMethod:     req.PaymentMethod,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// Get handles GET /v1/trips/:id
func (h *TripHandler) Get(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	trip, err := h.tripService.GetTrip(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// Current handles GET /v1/trips/current
func (h *TripHandler) Current(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	trip, err := h.tripService.CurrentTrip(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}

	if trip == nil {
		respondJSON(c, http.StatusOK, gin.H{"trip": nil})
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"trip": toTripResponse(trip)})
}

// History handles GET /v1/trips/history
func (h *TripHandler) History(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	trips, err := h.tripService.TripHistory(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"trips": toTripResponses(trips)})
}

// Open handles GET /v1/trips/open
func (h *TripHandler) Open(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	trips, err := h.tripService.OpenTrips(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"trips": toTripResponses(trips)})
}

// Accept handles POST /v1/trips/:id/accept
func (h *TripHandler) Accept(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	trip, err := h.tripService.AcceptTrip(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// Dispatch handles POST /v1/trips/:id/dispatch
func (h *TripHandler) Dispatch(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}
	if h.dispatchService == nil {
		respondError(c, service.ErrNoDriverAvailable)
		return
	}

	trip, err := h.dispatchService.AssignDriver(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// Start handles POST /v1/trips/:id/start
func (h *TripHandler) Start(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	trip, err := h.tripService.StartTrip(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// Complete handles POST /v1/trips/:id/complete
func (h *TripHandler) Complete(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	// The body is optional.
	var req CompleteTripRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	result, err := h.tripService.CompleteTrip(c.Request.Context(), session, c.Param("id"), service.CompleteTripRequest{
		ActualFare: req.ActualFare,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := CompleteTripResponse{Trip: toTripResponse(result.Trip)}
	if result.Charge != nil {
		charge := toTransactionResponse(result.Charge)
		response.Charge = &charge
	}
	if result.Receipt != nil {
		text := ""
		if h.receiptService != nil {
			text = h.receiptService.FormatReceipt(result.Receipt)
		}
		response.Receipt = toReceiptResponse(result.Receipt, text)
	}

	respondJSON(c, http.StatusOK, response)
}

// Cancel handles POST /v1/trips/:id/cancel
func (h *TripHandler) Cancel(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	var req CancelTripRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	trip, err := h.tripService.CancelTrip(c.Request.Context(), session, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// Rate handles POST /v1/trips/:id/rate
func (h *TripHandler) Rate(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	var req RateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	trip, err := h.tripService.RateTrip(c.Request.Context(), session, c.Param("id"), service.RateTripRequest{
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// Route handles POST /v1/trips/:id/route
func (h *TripHandler) Route(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	var point domain.Location
	if err := c.ShouldBindJSON(&point); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	trip, err := h.tripService.UpdateTripLocation(c.Request.Context(), session, c.Param("id"), point)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}
