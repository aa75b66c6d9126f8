package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type LeadNotifier interface {
	Execute(ctx context.Context, event entity.Event) usecase.Delivery
}

// NotifyHandler is best-effort: it always answers 200 and reports the email
// outcome in the body.
type NotifyHandler struct {
	Notifier LeadNotifier
}

func NewNotifyHandler(notifier LeadNotifier) *NotifyHandler {
	return &NotifyHandler{Notifier: notifier}
}

type NotifyResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *NotifyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var event entity.Event
	if err := decodeJSON(w, r, &event); err != nil {
		zap.L().Warn("invalid notification payload", zap.Error(err))
		writeJSON(w, http.StatusOK, NotifyResponse{Error: "Invalid payload", Message: err.Error()})
		return
	}
	event.Lead.Email = entity.NormalizeEmail(event.Lead.Email)

	res := h.Notifier.Execute(r.Context(), event)
	switch {
	case res.Delivered:
		writeJSON(w, http.StatusOK, NotifyResponse{OK: true, Message: "Notification sent"})
	case res.Reason == usecase.ReasonInvalidEvent:
		writeJSON(w, http.StatusOK, NotifyResponse{Error: "Invalid payload", Message: res.Reason})
	case res.Reason == usecase.ReasonEmailNotConfigured:
		writeJSON(w, http.StatusOK, NotifyResponse{Error: "Email not configured", Message: res.Reason})
	default:
		writeJSON(w, http.StatusOK, NotifyResponse{Error: "Email send failed", Message: res.Reason})
	}
}
