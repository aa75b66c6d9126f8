package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
)

const rateWindow = 15 * time.Minute

type RouterConfig struct {
	CORSOrigins   []string
	InternalToken string
	WebhookToken  string
	PublicLimit   *middleware.RateLimiter
	WebhookLimit  *middleware.RateLimiter
}

type Handlers struct {
	Public   *LeadHandler
	Webhook  *LeadHandler
	Internal *InternalLeadHandler
	Notify   *NotifyHandler
	Health   *HealthHandler
}

// NewRateLimiters returns the public and webhook limiters.
func NewRateLimiters() (public, webhook *middleware.RateLimiter) {
	return middleware.NewRateLimiter(100, rateWindow), middleware.NewRateLimiter(1000, rateWindow)
}

func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	if cfg.PublicLimit == nil || cfg.WebhookLimit == nil {
		cfg.PublicLimit, cfg.WebhookLimit = NewRateLimiters()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Metrics)

	r.Get("/health", h.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins(cfg.CORSOrigins),
			AllowedMethods: []string{"POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
		r.Use(cfg.PublicLimit.Handler)
		r.Post("/api/leads", h.Public.Handle)
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.WebhookLimit.Handler)
		r.Use(middleware.WebhookToken(cfg.WebhookToken))
		r.Post("/webhooks/n8n/lead", h.Webhook.Handle)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.BearerToken(cfg.InternalToken))
		r.Post("/leads/upsert", h.Internal.HandleUpsert)
		r.Get("/leads/stats", h.Internal.HandleStats)
		r.Get("/leads/{email}", h.Internal.HandleGet)
		r.Post("/notify/lead", h.Notify.Handle)
	})

	return r
}

func corsOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
