package routes

import (
	"net/http"
	"slices"
	"time"

	"groundbooking/internal/config"
	"groundbooking/internal/container"
	"groundbooking/internal/middleware"
	"groundbooking/internal/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(c *container.Container) *gin.Engine {
	if config.IsProdLike(c.Config.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(corsConfig(c.Config.CORSAllowedOrigins)))
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}
	r.Use(middleware.ErrorLogger())

	r.GET("/healthz", func(ctx *gin.Context) {
		sqlDB, err := c.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx.Request.Context())
		}
		if err != nil {
			response.Error(ctx, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Database is not reachable")
			return
		}
		response.Success(ctx, http.StatusOK, gin.H{
			"status":  "OK",
			"service": "ground-booking",
			"viewers": c.Hub.Viewers(),
		})
	})

	// live calendar feed
	r.GET("/ws", c.Hub.ServeWS)

	v1 := r.Group("/api/v1")
	{
		c.SettingsHandler.RegisterRoutes(v1)
		c.AvailabilityHandler.RegisterRoutes(v1)
		c.BookingHandler.RegisterRoutes(v1)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.JWTAuth(c.JWT), middleware.AdminOnly())
	{
		c.SettingsHandler.RegisterAdminRoutes(admin)
		c.BookingHandler.RegisterAdminRoutes(admin)
		c.CalendarHandler.RegisterAdminRoutes(admin)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
