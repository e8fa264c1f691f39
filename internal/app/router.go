package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ridehail/internal/handler"
	"ridehail/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	Authenticator middleware.Authenticator

	UserHandler   *handler.UserHandler
	FareHandler   *handler.FareHandler
	TripHandler   *handler.TripHandler
	DriverHandler *handler.DriverHandler
	WalletHandler *handler.WalletHandler
	EventsHandler *handler.EventsHandler

	RedisClient *redis.Client // optional: enables Idempotency-Key replay
	NewRelicApp *newrelic.Application
	Logger      *zap.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORSMiddleware())
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")

	// Public routes.
	auth := v1.Group("/auth")
	{
		auth.POST("/register", deps.UserHandler.Register)
		auth.POST("/signin", deps.UserHandler.SignIn)
	}

	// Everything else needs a session.
	private := v1.Group("")
	private.Use(middleware.RequireAuth(deps.Authenticator))
	private.Use(middleware.NewRelicSession())
	if deps.RedisClient != nil {
		private.Use(middleware.IdempotencyMiddleware(deps.RedisClient, logger))
	}

	me := private.Group("/me")
	{
		me.GET("", deps.UserHandler.Profile)
		me.PUT("/preferences", deps.UserHandler.UpdatePreferences)
	}

	private.POST("/fares/quote", deps.FareHandler.Quote)

	trips := private.Group("/trips")
	{
		trips.POST("", deps.TripHandler.Request)
		trips.GET("/current", deps.TripHandler.Current)
		trips.GET("/history", deps.TripHandler.History)
		trips.GET("/open", deps.TripHandler.Open)
		trips.GET("/:id", deps.TripHandler.Get)
		trips.POST("/:id/accept", deps.TripHandler.Accept)
		trips.POST("/:id/dispatch", deps.TripHandler.Dispatch)
		trips.POST("/:id/start", deps.TripHandler.Start)
		trips.POST("/:id/complete", deps.TripHandler.Complete)
		trips.POST("/:id/cancel", deps.TripHandler.Cancel)
		trips.POST("/:id/rate", deps.TripHandler.Rate)
		trips.POST("/:id/route", deps.TripHandler.Route)

		if deps.EventsHandler != nil {
			trips.GET("/events", deps.EventsHandler.WatchMyTrips)
			trips.GET("/:id/events", deps.EventsHandler.WatchTrip)
		}
	}

	drivers := private.Group("/drivers")
	{
		drivers.GET("", deps.DriverHandler.List)
		drivers.POST("/online", deps.DriverHandler.GoOnline)
		drivers.POST("/offline", deps.DriverHandler.GoOffline)
		drivers.POST("/location", deps.DriverHandler.UpdateLocation)
	}

	wallet := private.Group("/wallet")
	{
		wallet.GET("", deps.WalletHandler.Ledger)
		wallet.POST("/topup", deps.WalletHandler.TopUp)
	}

	return router
}
