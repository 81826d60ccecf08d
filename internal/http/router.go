// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, rate limiting, and the admin shared-secret gate.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Raw-body fidelity on the webhook route (no body-rewriting middleware)
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

	"github.com/mboukas/go-onboard-backend/internal/config"
	"github.com/mboukas/go-onboard-backend/internal/domain"
	"github.com/mboukas/go-onboard-backend/internal/http/handlers"
	"github.com/mboukas/go-onboard-backend/internal/http/middleware"
	"github.com/mboukas/go-onboard-backend/internal/messaging"
	"github.com/mboukas/go-onboard-backend/internal/repo"
	"github.com/mboukas/go-onboard-backend/internal/services"
	"github.com/mboukas/go-onboard-backend/internal/token"
)

// adminStoreShim adapts the repository free functions to the
// handlers.AdminStore interface. This keeps handlers decoupled from the
// concrete repo package while reusing existing functions.
type adminStoreShim struct{ db *gorm.DB }

// RecentSends proxies repo.ListRecentSends.
func (s adminStoreShim) RecentSends(ctx context.Context, limit int) ([]domain.DmSendLogEntry, error) {
	return repo.ListRecentSends(ctx, s.db, limit)
}

// RecentEvents proxies repo.ListRecentWebhookEvents.
func (s adminStoreShim) RecentEvents(ctx context.Context, limit int) ([]domain.WebhookEvent, error) {
	return repo.ListRecentWebhookEvents(ctx, s.db, limit)
}

// LeadsPage proxies repo.CountLeads + repo.ListLeadsPage.
func (s adminStoreShim) LeadsPage(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Lead, int64, error) {
	total, err := repo.CountLeads(ctx, s.db, tenantID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := repo.ListLeadsPage(ctx, s.db, tenantID, (page-1)*pageSize, pageSize)
	return rows, total, err
}

// Templates proxies repo.ListTemplates.
func (s adminStoreShim) Templates(ctx context.Context, tenantID string) ([]domain.DmTemplate, error) {
	return repo.ListTemplates(ctx, s.db, tenantID)
}

// NewProvider selects the messaging provider for the configured dispatch
// mode. The injected client bounds every remote call.
func NewProvider(cfg config.Config, client *http.Client) messaging.Provider {
	if cfg.Messaging.Mode == "log" {
		return messaging.LogProvider{}
	}
	return &messaging.GraphQLProvider{
		Client:  client,
		APIURL:  cfg.Messaging.APIURL,
		APIKey:  cfg.Messaging.APIKey,
		AgentID: cfg.Messaging.AgentID,
	}
}

// BuildServices constructs the service graph shared by the API server and
// the retry job.
func BuildServices(db *gorm.DB, cfg config.Config, provider messaging.Provider, client *http.Client) (*services.WebhookService, *services.InviteService, *services.LeadService, *services.DispatchService) {
	var signer *token.Signer
	if cfg.TokenSecret != "" {
		signer = token.NewSigner(cfg.TokenSecret)
	}

	inviteSvc := &services.InviteService{
		DB:      db,
		Signer:  signer,
		BaseURL: cfg.BaseURL,
		TTL:     cfg.InviteTTL,
	}
	dispatchSvc := &services.DispatchService{
		DB:       db,
		Provider: provider,
		Enabled:  cfg.Messaging.Enabled,
	}
	webhookSvc := &services.WebhookService{
		DB:            db,
		Invites:       inviteSvc,
		Dispatch:      dispatchSvc,
		Templates:     &services.TemplateService{DB: db},
		WebhookSecret: cfg.WebhookSecret,
	}
	leadSvc := &services.LeadService{
		DB:            db,
		ForwardURL:    cfg.Forward.URL,
		ForwardSecret: cfg.Forward.Secret,
		Client:        client,
	}
	return webhookSvc, inviteSvc, leadSvc, dispatchSvc
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, provider messaging.Provider, client *http.Client) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction; signature and secret headers
	//    must never reach the logs in the clear.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			middleware.HeaderAdminSecret,
			"Whop-Signature",
			"X-Whop-Signature",
			"X-Signature",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client IP. Signed webhook deliveries
	//    and infra probes are exempted so a burst of legitimate platform
	//    events never starves the bucket.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP()).
		Exempt("/webhooks/", "/health", "/metrics")
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStore:         false,
		EnablePolicy:    true,
		NoStorePrefixes: []string{"/admin"},
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

	// Swagger UI (optional)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/provider
	webhookSvc, inviteSvc, leadSvc, _ := BuildServices(db, cfg, provider, client)
	h := handlers.New(webhookSvc, inviteSvc, leadSvc, adminStoreShim{db: db})

	// Inbound webhooks (outside the versioned API base: the sender's URL
	// is registered once and should never move with API versions).
	r.POST("/webhooks/membership", h.HandleWebhook)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/invites/validate", h.ValidateInvite)
		api.POST("/invites/use", h.UseInvite)
		api.POST("/onboarding/:creatorId/responses", h.SubmitResponses)
	}

	// Admin surface: shared-secret gate, gzip for the list views.
	admin := r.Group("/admin", middleware.AdminAuth(cfg.AdminSecret), gzip.Gzip(gzip.DefaultCompression))
	{
		admin.GET("/status", h.AdminStatus)
		admin.GET("/sends", h.AdminSends)
		admin.GET("/events", h.AdminEvents)
		admin.GET("/leads", h.AdminLeads)
		admin.GET("/templates", h.AdminTemplates)
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
