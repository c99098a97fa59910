package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fin-ledger/ledger-service/internal/domain"
)

// SupportService is the support surface the HTTP layer depends on.
type SupportService interface {
	Submit(ctx context.Context, email, message string) (*domain.SupportMessage, error)
	ListAll(ctx context.Context) ([]domain.SupportMessage, error)
}

// SupportHandler maps the support routes onto the support service.
type SupportHandler struct {
	support SupportService
	logger  zerolog.Logger
}

// NewSupportHandler creates a new SupportHandler.
func NewSupportHandler(support SupportService, logger zerolog.Logger) *SupportHandler {
	return &SupportHandler{support: support, logger: logger}
}

type supportRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Submit handles POST /support.
func (h *SupportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req supportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, msgInvalidBody, http.StatusBadRequest)
		return
	}

	if _, err := h.support.Submit(r.Context(), req.Email, req.Message); err != nil {
		h.logger.Error().Err(err).Str("email", req.Email).Msg("support submit failed")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Support request received"})
}

// ListAll handles GET /support-messages.
func (h *SupportHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.support.ListAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("support list failed")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, msgs)
}
