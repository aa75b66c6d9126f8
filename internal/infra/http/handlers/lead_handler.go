package handlers

import (
	"context"
	"net/http"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type LeadSubmitter interface {
	Execute(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.SubmitLeadOutput, error)
}

// LeadHandler serves both intake surfaces. DefaultSource is applied when the
// payload names none; empty keeps the store default.
type LeadHandler struct {
	Submit        LeadSubmitter
	DefaultSource string
}

func NewLeadHandler(submit LeadSubmitter, defaultSource string) *LeadHandler {
	return &LeadHandler{
		Submit:        submit,
		DefaultSource: defaultSource,
	}
}

type SubmitLeadResponse struct {
	OK       bool                `json:"ok"`
	Status   entity.UpsertStatus `json:"status"`
	LeadID   string              `json:"leadId"`
	Notified bool                `json:"notified"`
}

func (h *LeadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var input usecase.SubmitLeadInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeBadJSON(w, err)
		return
	}

	if input.Source == "" {
		input.Source = h.DefaultSource
	}
	if input.OriginIP == "" {
		input.OriginIP = middleware.ClientIP(r)
	}

	output, err := h.Submit.Execute(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SubmitLeadResponse{
		OK:       true,
		Status:   output.Status,
		LeadID:   output.LeadID,
		Notified: output.Notified,
	})
}
