package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"slotify/handlers"
	"slotify/middleware"
)

// RegisterPublicRoutes registers the rate-limited public booking surface.
func RegisterPublicRoutes(r *gin.Engine) {
	api := r.Group("/v1/public")
	api.Use(middleware.RateLimitMiddleware())
	{
		api.POST("/bookings", handlers.CreateBooking)
	}
}

// RegisterBookingRoutes registers availability and booking reads/cancels.
func RegisterBookingRoutes(r *gin.Engine) {
	api := r.Group("/v1")
	{
		api.GET("/availability", handlers.ListAvailability)
		api.GET("/bookings/:id", handlers.GetBooking)
		api.POST("/bookings/:id/cancel", handlers.CancelBooking)
	}
}

// RegisterAdminRoutes registers tenant-authenticated operator endpoints.
func RegisterAdminRoutes(r *gin.Engine) {
	api := r.Group("/v1/admin")
	api.Use(middleware.TenantAuthMiddleware())
	{
		api.POST("/schedule/:resourceID/recompile", handlers.RecompileSchedule)
	}
}

// RegisterHealthRoute registers the health-check endpoints.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.Health)
	r.GET("/health/database", handlers.Health)
}

// SetupRoutes configures CORS and attaches all route groups.
func SetupRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "Idempotency-Replayed"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterPublicRoutes(r)
	RegisterBookingRoutes(r)
	RegisterAdminRoutes(r)
	RegisterHealthRoute(r)
}
