package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter wires the API routes onto the ledger and support services.
func NewRouter(ledger LedgerService, support SupportService, logger zerolog.Logger) http.Handler {
	ledgerHandler := NewLedgerHandler(ledger, logger)
	supportHandler := NewSupportHandler(support, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Post("/register", ledgerHandler.Register)
	r.Post("/deposit", ledgerHandler.Deposit)
	r.Post("/withdraw", ledgerHandler.Withdraw)
	r.Post("/transfer", ledgerHandler.Transfer)
	r.Get("/balance/{email}", ledgerHandler.Balance)
	r.Get("/history/{email}", ledgerHandler.History)

	r.Post("/support", supportHandler.Submit)
	r.Get("/support-messages", supportHandler.ListAll)

	r.Get("/health", handleHealth)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one structured line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// writeJSON sends a JSON success body.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
