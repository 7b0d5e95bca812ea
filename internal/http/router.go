// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/nikola-86/jelovnik/internal/config"
	"github.com/nikola-86/jelovnik/internal/http/handlers"
	"github.com/nikola-86/jelovnik/internal/http/middleware"
	"github.com/nikola-86/jelovnik/internal/notify"
	"github.com/nikola-86/jelovnik/internal/queue"
	"github.com/nikola-86/jelovnik/internal/services"
	"github.com/nikola-86/jelovnik/internal/tabular"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. The dispatcher must be the running notification queue; the notifier
// is shared between the worker path and the test endpoint.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter (uploads dominate, so the cap follows MAX_UPLOAD_BYTES)
//  6. Metrics
//  7. Rate limiter (per client IP)
//  8. gzip, CORS, and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, dispatcher queue.Dispatcher, notifier *notify.SlackNotifier, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit; leave headroom over the upload cap for the
	// multipart framing.
	r.Use(limitBody(cfg.MaxUploadBytes + (64 << 10)))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 8) Compression, CORS posture, security headers
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/queue/notifier
	importSvc := services.NewImportService(db, tabular.NewCSVProvider(), dispatcher)
	notifSvc := services.NewNotificationService(db, notifier, dispatcher)
	h := handlers.New(importSvc, notifSvc, notifier, db, handlers.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		PendingLimit:   cfg.PendingLimit,
	})

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Imports
		api.POST("/imports", h.ImportMealChoices)

		// Meal choices
		api.GET("/meal-choices", h.ListMealChoices)
		api.GET("/statistics", h.Statistics)

		// Notifications
		api.POST("/notifications/send-pending", h.SendPendingNotifications)
		api.POST("/notifications/test", h.TestNotification)

		// Employees
		api.PUT("/employees/:id/slack-id", h.UpdateEmployeeSlackID)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
