package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	OK      bool                      `json:"ok"`
	Error   string                    `json:"error"`
	Message string                    `json:"message,omitempty"`
	Details []usecase.ValidationError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("failed to write response", zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeError maps use-case errors onto status codes: domain errors are the
// caller's fault, an unavailable store is 503, anything else 500.
func writeError(w http.ResponseWriter, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Datos inválidos",
			Message: de.Message,
			Details: de.Details,
		})
		return
	}

	var te *usecase.TechnicalError
	if errors.As(err, &te) && te.Code == usecase.CodeStoreUnavailable {
		zap.L().Error("lead store unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Servicio de leads no disponible"})
		return
	}

	zap.L().Error("unexpected error processing lead", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Error al procesar lead"})
}

func writeBadJSON(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "JSON inválido", Message: err.Error()})
}
