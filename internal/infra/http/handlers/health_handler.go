package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ConnectionState interface {
	Healthy() bool
}

type ConfiguredChecker interface {
	Configured() bool
}

type Checker interface {
	Check() error
}

// HealthHandler reports every dependency it was given; nil ones are listed
// as not configured.
type HealthHandler struct {
	Store     Pinger
	RabbitMQ  ConnectionState
	Email     ConfiguredChecker
	Sheets    Checker
	Providers []string
	Version   string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Providers    []string          `json:"providers"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(store Pinger, providers []string) *HealthHandler {
	return &HealthHandler{
		Store:     store,
		Providers: providers,
		Version:   "1.0.0",
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)

	if h.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			deps["database"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			deps["database"] = "healthy"
		}
	} else {
		deps["database"] = "not configured"
	}

	if h.RabbitMQ != nil {
		if !h.RabbitMQ.Healthy() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	if h.Email != nil && h.Email.Configured() {
		deps["smtp"] = "configured"
	} else {
		deps["smtp"] = "not configured"
	}

	if h.Sheets != nil {
		if err := h.Sheets.Check(); err != nil {
			deps["sheets"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			deps["sheets"] = "healthy"
		}
	} else {
		deps["sheets"] = "not configured"
	}

	if len(h.Providers) > 0 {
		deps["classifier"] = "configured"
	} else {
		deps["classifier"] = "not configured"
	}

	status := "healthy"
	for _, v := range deps {
		if v != "healthy" && v != "configured" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	providers := h.Providers
	if providers == nil {
		providers = []string{}
	}

	response := HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Providers:    providers,
		Dependencies: deps,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}
