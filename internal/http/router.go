// Package httpapi wires the local control API (Gin) to the offline queue, the
// mutation gateway, middleware and route handlers. It centralizes
// cross-cutting concerns such as tracing, correlation IDs, logging/redaction,
// panic recovery, compression, metrics, idempotency, rate limiting, CORS and
// security headers.
//
//	@title			recur-sync API
//	@version		1.0
//	@description	Local control API for the Recur offline sync queue.
//	@BasePath		/api/v1
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/recur-sync/docs"
	"github.com/tbourn/recur-sync/internal/config"
	"github.com/tbourn/recur-sync/internal/http/handlers"
	"github.com/tbourn/recur-sync/internal/http/middleware"
	"github.com/tbourn/recur-sync/internal/repo"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Deps are the application services the API is built on.
type Deps struct {
	// DB backs idempotency records and list ETags. May be nil.
	DB        *gorm.DB
	Queue     handlers.Queue
	Mutations handlers.Mutations
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the control API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID and client identity
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter and gzip
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	r.Use(middleware.RequestID())
	r.Use(middleware.ClientIdentity(cfg.ClientID))

	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Remote-Token"},
		KeepIDs:     true,
	}))

	r.Use(middleware.Recovery())

	r.Use(limitBody(maxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scopes: map[string]string{
				http.MethodPost + " " + joinPath(apiBase, "/sync/actions"): handlers.IdempotencyScopeActions,
			},
		},
		idempotencyLookup(deps.DB),
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientOrIP())
	r.Use(rl.Handler())

	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match",
		middleware.HeaderClientID, middleware.HeaderIdempotencyKey,
	}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{joinPath(apiBase, "/sync")},
		EnablePolicy:    true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness plus the queue's view of the remote.
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if deps.Queue != nil {
			st := deps.Queue.State()
			body["online"] = st.IsOnline
			body["pending_count"] = st.PendingCount
		}
		c.JSON(http.StatusOK, body)
	})

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Queue, deps.Mutations, handlers.Options{
		DB:             deps.DB,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	api := groupWithPrefix(r, apiBase)
	{
		// Offline queue
		api.GET("/sync/status", h.GetSyncStatus)
		api.GET("/sync/actions", h.ListActions)
		api.POST("/sync/actions", h.EnqueueAction)
		api.DELETE("/sync/actions", h.ClearActions)
		api.GET("/sync/actions/:id", h.GetAction)
		api.DELETE("/sync/actions/:id", h.DeleteAction)
		api.POST("/sync/run", h.RunSync)
		api.PUT("/sync/connectivity", h.SetConnectivity)

		// Mutation gateway
		api.POST("/subscriptions", h.CreateSubscription)
		api.PUT("/subscriptions/:id", h.UpdateSubscription)
		api.DELETE("/subscriptions/:id", h.DeleteSubscription)
		api.POST("/categories", h.CreateCategory)
		api.PUT("/categories/:id", h.UpdateCategory)
		api.DELETE("/categories/:id", h.DeleteCategory)
		api.PUT("/users/me", h.UpdateProfile)
	}
}

// idempotencyLookup reports whether a live record exists for the key. With no
// database every request is treated as new.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, clientID, scope, key string, now time.Time) (bool, error) {
		if db == nil {
			return false, nil
		}
		rec, err := repo.GetIdempotency(ctx, db, clientID, scope, key, now)
		if err != nil || rec == nil {
			return false, nil
		}
		return true, nil
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

// joinPath joins a normalized base path and a route.
func joinPath(base, route string) string {
	if base == "" || base == "/" {
		return route
	}
	return base + route
}
