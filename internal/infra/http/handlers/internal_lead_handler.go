package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type LeadUpserter interface {
	ExecuteSubmission(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.UpsertLeadOutput, error)
}

type LeadReader interface {
	FindByEmail(ctx context.Context, email string) (*entity.Lead, error)
	CountByCategory(ctx context.Context) (map[entity.Category]int64, error)
}

// InternalLeadHandler exposes the lead store contract to trusted callers.
type InternalLeadHandler struct {
	Upsert LeadUpserter
	Repo   LeadReader
}

func NewInternalLeadHandler(upsert LeadUpserter, repo LeadReader) *InternalLeadHandler {
	return &InternalLeadHandler{
		Upsert: upsert,
		Repo:   repo,
	}
}

type UpsertLeadResponse struct {
	OK     bool                `json:"ok"`
	Status entity.UpsertStatus `json:"status"`
	Lead   *entity.Lead        `json:"lead"`
}

type LeadStatsResponse struct {
	OK         bool                      `json:"ok"`
	Total      int64                     `json:"total"`
	ByCategory map[entity.Category]int64 `json:"byCategory"`
}

// HandleUpsert (POST /internal/leads/upsert): 201 on create, 200 on update.
func (h *InternalLeadHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var input usecase.SubmitLeadInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeBadJSON(w, err)
		return
	}

	output, err := h.Upsert.ExecuteSubmission(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if output.Status == entity.UpsertCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, UpsertLeadResponse{OK: true, Status: output.Status, Lead: output.Lead})
}

// HandleGet (GET /internal/leads/{email})
func (h *InternalLeadHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	email := entity.NormalizeEmail(chi.URLParam(r, "email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Email requerido"})
		return
	}

	lead, err := h.Repo.FindByEmail(r.Context(), email)
	if errors.Is(err, entity.ErrLeadNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Lead no encontrado"})
		return
	}
	if err != nil {
		zap.L().Error("failed to look up lead", zap.String("email", email), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Servicio de leads no disponible"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "lead": lead})
}

// HandleStats (GET /internal/leads/stats)
func (h *InternalLeadHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Repo.CountByCategory(r.Context())
	if err != nil {
		zap.L().Error("failed to count leads", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Servicio de leads no disponible"})
		return
	}

	resp := LeadStatsResponse{OK: true, ByCategory: make(map[entity.Category]int64, len(entity.Categories))}
	for _, c := range entity.Categories {
		resp.ByCategory[c] = counts[c]
		resp.Total += counts[c]
	}
	writeJSON(w, http.StatusOK, resp)
}
