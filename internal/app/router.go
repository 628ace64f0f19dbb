package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the handlers behind the request logger and auth.
func NewRouter(a *App, auth AuthConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(a.Logger), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": a.Sessions.Len()})
	})
	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api")
	api.Use(AuthMiddleware(auth))
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", a.OpenSessionHandler)
			sessions.GET("/:sid", a.GetSessionHandler)
			sessions.PUT("/:sid/date", a.SelectDateHandler)
			sessions.POST("/:sid/reservations", a.ReserveHandler)
		}

		api.GET("/days/:date/slots", a.GetDaySlotsHandler)

		me := api.Group("/me")
		{
			me.GET("/reservations", a.ListReservationsHandler)
			me.GET("/reservations/:date", a.GetReservationHandler)
			me.POST("/reservations/:date/calendar", a.ExportReservationHandler)
			me.GET("/profile", a.ProfileHandler)
			me.PUT("/profile", a.SaveProfileHandler)
			me.GET("/stats", a.GetStatsHandler)
			me.PUT("/stats", a.SaveStatsHandler)
		}

		overrides := api.Group("/slot-overrides")
		overrides.Use(RequireAdmin())
		{
			overrides.GET("", a.ListOverridesHandler)
			overrides.PUT("/:date", a.PutOverrideHandler)
			overrides.DELETE("/:date", a.DeleteOverrideHandler)
		}

		api.GET("/calendar/auth", a.GoogleAuthHandler)
	}
	return router
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"user_id", userIDFrom(c),
		)
	}
}
