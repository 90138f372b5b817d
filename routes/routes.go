package routes

import (
	"time"

	"telecare/handlers"
	"telecare/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.GET("/:id", hb.Booking.GetBookingHandler)
		api.GET("/:id/stream", hb.Booking.StreamBookingHandler)

		// Commands act on behalf of the X-User-ID caller.
		cmd := api.Group("")
		cmd.Use(middleware.RequireActor())
		cmd.POST("", hb.Booking.CreateBookingHandler)
		cmd.POST("/emergency", hb.Booking.CreateEmergencyHandler)
		cmd.POST("/:id/confirm", hb.Booking.ConfirmHandler)
		cmd.POST("/:id/reject", hb.Booking.RejectHandler)
		cmd.POST("/:id/cancel", hb.Booking.CancelHandler)
		cmd.POST("/:id/call", hb.Booking.InitiateCallHandler)
		cmd.POST("/:id/join", hb.Booking.JoinCallHandler)
		cmd.POST("/:id/complete", hb.Booking.CompleteHandler)
		cmd.POST("/:id/reject-call", hb.Booking.RejectDuringCallHandler)
	}
}

// RegisterProfessionalRoutes registers availability, queue and presence endpoints.
func RegisterProfessionalRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/professionals")
	{
		api.GET("/:id/slots", hb.Professional.GetSlotsHandler)
		api.GET("/:id/queue", hb.Professional.GetQueueHandler)
		api.GET("/:id/queue/stream", hb.Professional.StreamQueueHandler)
		api.GET("/:id/availability", hb.Professional.GetAvailabilityHandler)

		owner := api.Group("")
		owner.Use(middleware.RequireActor())
		owner.PUT("/:id", hb.Professional.UpsertProfileHandler)
		owner.PUT("/:id/availability", hb.Professional.SetAvailabilityHandler)
		owner.PATCH("/:id/status", hb.Professional.SetStatusHandler)
	}
}

// RegisterAccountRoutes registers device and wallet endpoints of the caller.
func RegisterAccountRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/me")
	{
		api.Use(middleware.RequireActor())
		api.PUT("/device", hb.Device.SaveTokenHandler)
		api.GET("/wallet", hb.Wallet.GetBalanceHandler)
		api.POST("/wallet/deposit", hb.Wallet.DepositHandler)
	}
}

// RegisterHealthRoutes registers health and metrics endpoints.
func RegisterHealthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
	r.GET("/metrics", hb.MetricsHandler())
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.ActorHeader, "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterProfessionalRoutes(r, hb)
	RegisterAccountRoutes(r, hb)
}
