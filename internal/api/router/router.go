package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/lakeside-dental/internal/compliance"
	"github.com/wolfman30/lakeside-dental/internal/content"
	httpmiddleware "github.com/wolfman30/lakeside-dental/internal/http/middleware"
	"github.com/wolfman30/lakeside-dental/internal/observability/metrics"
	"github.com/wolfman30/lakeside-dental/internal/webchat"
	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	ChatHandler    *webchat.Handler
	ContentHandler *content.Handler
	// AuditHandler is nil when no audit database is configured.
	AuditHandler *compliance.Handler

	// GatewayConfigured is reported by /health.
	GatewayConfigured func() bool

	MetricsHandler http.Handler
	// StatsGatherer backs /api/admin/chat-stats; nil uses the default registry.
	StatsGatherer prometheus.Gatherer

	AdminAuthSecret    string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json"))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", healthHandler(cfg.GatewayConfigured))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimitRPS > 0 {
		limit = httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.ChatHandler != nil {
			api.With(limit).Post("/chat", cfg.ChatHandler.HandleChat)
		}
		if h := cfg.ContentHandler; h != nil {
			api.Get("/services", h.ListServices)
			api.Get("/blog", h.ListBlogPosts)
			api.Get("/blog/{slug}", h.GetBlogPost)
			api.Get("/testimonials", h.ListTestimonials)
			api.Get("/office", h.GetOffice)
			api.With(limit).Post("/appointments", h.CreateAppointment)
		}

		api.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.ContentHandler != nil {
				admin.Get("/appointments", cfg.ContentHandler.ListAppointments)
			}
			admin.Get("/admin/chat-stats", chatStatsHandler(cfg.StatsGatherer))
			if cfg.AuditHandler != nil {
				admin.Get("/admin/audit-events", cfg.AuditHandler.ListEvents)
			}
		})
	})

	return r
}

type healthResponse struct {
	Status            string `json:"status"`
	GatewayConfigured bool   `json:"gateway_configured"`
}

func healthHandler(gatewayConfigured func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if gatewayConfigured != nil {
			resp.GatewayConfigured = gatewayConfigured()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func chatStatsHandler(gatherer prometheus.Gatherer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(metrics.SnapshotChat(gatherer))
	}
}
