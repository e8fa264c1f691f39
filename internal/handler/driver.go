package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// DriverHandler handles HTTP requests for the driver pool.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// UpdateLocationRequest is the HTTP request body for a driver position report.
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

func (r UpdateLocationRequest) location() domain.Location {
	return domain.Location{Latitude: r.Latitude, Longitude: r.Longitude, Address: r.Address}
}

// List handles GET /v1/drivers
// Query: online=true, lat, lng, radius_km.
func (h *DriverHandler) List(c *gin.Context) {
	req := service.ListPoolRequest{OnlineOnly: c.Query("online") == "true"}

	latParam, lngParam := c.Query("lat"), c.Query("lng")
	if latParam != "" || lngParam != "" {
		lat, err := strconv.ParseFloat(latParam, 64)
		if err != nil {
			badRequest(c, "invalid lat")
			return
		}
		lng, err := strconv.ParseFloat(lngParam, 64)
		if err != nil {
			badRequest(c, "invalid lng")
			return
		}
		req.Near = &domain.Location{Latitude: lat, Longitude: lng}
	}

	if radius := c.Query("radius_km"); radius != "" {
		km, err := strconv.ParseFloat(radius, 64)
		if err != nil || km <= 0 {
			badRequest(c, "invalid radius_km")
			return
		}
		req.RadiusKm = km
	}

	drivers, err := h.driverService.ListPool(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, toDriverResponse(d))
	}
	respondJSON(c, http.StatusOK, gin.H{"drivers": response})
}

// GoOnline handles POST /v1/drivers/online
func (h *DriverHandler) GoOnline(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	driver, err := h.driverService.GoOnline(c.Request.Context(), session, req.location())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// GoOffline handles POST /v1/drivers/offline
func (h *DriverHandler) GoOffline(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	if err := h.driverService.GoOffline(c.Request.Context(), session); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "offline"})
}

// UpdateLocation handles POST /v1/drivers/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := h.driverService.UpdateLocation(c.Request.Context(), session, req.location()); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "updated"})
}
