package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// UserHandler handles HTTP requests for accounts and sessions.
type UserHandler struct {
	identityService *service.IdentityService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(identityService *service.IdentityService) *UserHandler {
	return &UserHandler{identityService: identityService}
}

// RegisterRequest is the HTTP request body for sign-up.
type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	UserType string      `json:"user_type"`
	Car      *domain.Car `json:"car"`
}

// SignInRequest is the HTTP request body for sign-in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResponse carries the bearer token for later requests.
type SignInResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// Register handles POST /v1/auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	registerReq := service.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		UserType: domain.UserType(req.UserType),
	}
	if req.Car != nil {
		registerReq.Car = *req.Car
	}

	user, err := h.identityService.Register(c.Request.Context(), registerReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toUserResponse(user))
}

// SignIn handles POST /v1/auth/signin
func (h *UserHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.identityService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SignInResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toUserResponse(result.User),
	})
}

// Profile handles GET /v1/me
func (h *UserHandler) Profile(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	user, err := h.identityService.Profile(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// UpdatePreferences handles PUT /v1/me/preferences
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	var prefs domain.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.identityService.UpdatePreferences(c.Request.Context(), session, prefs)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toUserResponse(user))
}
