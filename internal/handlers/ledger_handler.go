package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fin-ledger/ledger-service/internal/domain"
)

// Failure bodies are the exact prose strings of the API contract. Callers
// distinguish error categories only by status code; within 400-class
// responses, by this text.
const (
	msgUserNotFound      = "User not found"
	msgInsufficientFunds = "Insufficient funds or user not found"
	msgTransferFailed    = "Transfer failed"
	msgInternalError     = "Internal server error"
	msgInvalidBody       = "Invalid request body"
)

// LedgerService is the ledger surface the HTTP layer depends on.
type LedgerService interface {
	Register(ctx context.Context, email, password string) (*domain.Account, error)
	Deposit(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error)
	Transfer(ctx context.Context, fromEmail, toEmail string, amount decimal.Decimal) error
	GetBalance(ctx context.Context, email string) (decimal.Decimal, error)
	GetHistory(ctx context.Context, email string) ([]domain.Transaction, error)
}

// LedgerHandler maps the account routes onto the ledger service.
type LedgerHandler struct {
	ledger LedgerService
	logger zerolog.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger LedgerService, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type amountRequest struct {
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	FromEmail string          `json:"fromEmail"`
	ToEmail   string          `json:"toEmail"`
	Amount    decimal.Decimal `json:"amount"`
}

// Register handles POST /register.
func (h *LedgerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, msgInvalidBody, http.StatusBadRequest)
		return
	}

	account, err := h.ledger.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error().Err(err).Str("email", req.Email).Msg("register failed")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Account created",
		"user":    account,
	})
}

// Deposit handles POST /deposit.
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, msgInvalidBody, http.StatusBadRequest)
		return
	}

	balance, err := h.ledger.Deposit(r.Context(), req.Email, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			http.Error(w, msgUserNotFound, http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("email", req.Email).Msg("deposit failed")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// Withdraw handles POST /withdraw. A missing account and an insufficient
// balance are conflated into one 400 response by contract.
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, msgInvalidBody, http.StatusBadRequest)
		return
	}

	balance, err := h.ledger.Withdraw(r.Context(), req.Email, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrInsufficientFunds) {
			http.Error(w, msgInsufficientFunds, http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Str("email", req.Email).Msg("withdraw failed")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// Transfer handles POST /transfer. A missing party and an insufficient
// sender balance are conflated into one 400 response by contract.
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, msgInvalidBody, http.StatusBadRequest)
		return
	}

	err := h.ledger.Transfer(r.Context(), req.FromEmail, req.ToEmail, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) ||
			errors.Is(err, domain.ErrInsufficientFunds) ||
			errors.Is(err, domain.ErrSameAccount) {
			http.Error(w, msgTransferFailed, http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).
			Str("from", req.FromEmail).
			Str("to", req.ToEmail).
			Msg("transfer failed")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Transfer successful"})
}

// Balance handles GET /balance/{email}.
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	balance, err := h.ledger.GetBalance(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			http.Error(w, msgUserNotFound, http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("email", email).Msg("balance lookup failed")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// History handles GET /history/{email}.
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	history, err := h.ledger.GetHistory(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			http.Error(w, msgUserNotFound, http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("email", email).Msg("history lookup failed")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}
