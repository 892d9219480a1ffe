// Package httpapi wires the Gin transport to the announcement service,
// middleware and route handlers. Cross-cutting concerns live here: tracing,
// correlation IDs, redacted logging, panic recovery, body limits, metrics,
// compression, CORS, security headers, idempotency and rate limiting.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/announcements-backend/internal/config"
	"github.com/tbourn/announcements-backend/internal/http/handlers"
	"github.com/tbourn/announcements-backend/internal/http/middleware"
	"github.com/tbourn/announcements-backend/internal/services"
	"github.com/tbourn/announcements-backend/internal/store"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{
		"Origin", "Content-Type", "Accept",
		middleware.HeaderUserID,
		middleware.HeaderIdempotencyKey,
		"If-None-Match",
	}
	corsExpose = []string{
		"ETag",
		middleware.HeaderRequestID,
		middleware.HeaderIdempotencyReplayed,
		"Retry-After",
	}
)

// RegisterRoutes attaches middleware and endpoints to r, backed by st.
//
// Middleware order:
//  1. otelgin
//  2. RequestID
//  3. RedactingLogger (X-User-ID masked)
//  4. Recovery
//  5. body limit
//  6. Metrics
//  7. gzip
//  8. CORS and security headers
//  9. IdempotencyValidator, ahead of the limiter so replays bypass it
//  10. global rate limiter
//
// POST /announcements/:id/comments carries a second, stricter limiter.
func RegisterRoutes(r *gin.Engine, st store.Store, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderUserID},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.BodyLimitBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(corsMiddleware(cfg.CORS))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		CacheControl: "no-cache",
		EnablePolicy: true,
	}))

	svc := services.NewAnnouncementService(st)

	// Only reaction writes are deduplicated, so only they may skip the limiters.
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		MaxLen:       middleware.DefaultIdempotencyKeyMaxLen,
		ReplayRoutes: []string{
			middleware.ReplayRoute(http.MethodPost, routePath(cfg.APIBasePath, "/announcements/:id/reactions")),
		},
	}, svc.SeenIdempotencyKey))

	global := middleware.NewRateLimiter("global", cfg.Rate.RPS, cfg.Rate.Burst, middleware.KeyByIP("global"))
	r.Use(global.Handler())

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc)
	comments := middleware.NewRateLimiter("comments", cfg.CommentRate.RPS, cfg.CommentRate.Burst, middleware.KeyByIP("comments"))

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/announcements", h.ListAnnouncements)
		api.POST("/announcements", h.CreateAnnouncement)

		api.GET("/announcements/:id/comments", h.ListComments)
		api.POST("/announcements/:id/comments", comments.Handler(), h.AddComment)

		api.POST("/announcements/:id/reactions", h.AddReaction)
		api.DELETE("/announcements/:id/reactions", h.RemoveReaction)
	}
}

// corsMiddleware allows any origin when none are configured, otherwise only
// the listed ones. Credentials are never allowed.
func corsMiddleware(cc config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    corsExpose,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cc.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cc.AllowedOrigins
	}
	return cors.New(c)
}

// limitBody caps request bodies at maxBytes. Reads past the cap fail with
// *http.MaxBytesError, which handlers turn into 413.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
// routePath is the full pattern gin reports via FullPath for rel registered
// under groupWithPrefix(r, prefix).
func routePath(prefix, rel string) string {
	if prefix == "" || prefix == "/" {
		return rel
	}
	return strings.TrimSuffix(prefix, "/") + rel
}

func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
