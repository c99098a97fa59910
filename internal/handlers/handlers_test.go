package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fin-ledger/ledger-service/internal/domain"
	"github.com/fin-ledger/ledger-service/internal/handlers"
)

func TestMain(m *testing.M) {
	// Matches the wire format configured in cmd/server.
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

// mockLedgerService implements handlers.LedgerService for unit testing.
type mockLedgerService struct {
	registerFunc   func(ctx context.Context, email, password string) (*domain.Account, error)
	depositFunc    func(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error)
	withdrawFunc   func(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error)
	transferFunc   func(ctx context.Context, fromEmail, toEmail string, amount decimal.Decimal) error
	getBalanceFunc func(ctx context.Context, email string) (decimal.Decimal, error)
	getHistoryFunc func(ctx context.Context, email string) ([]domain.Transaction, error)
}

func (m *mockLedgerService) Register(ctx context.Context, email, password string) (*domain.Account, error) {
	return m.registerFunc(ctx, email, password)
}

func (m *mockLedgerService) Deposit(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error) {
	return m.depositFunc(ctx, email, amount)
}

func (m *mockLedgerService) Withdraw(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error) {
	return m.withdrawFunc(ctx, email, amount)
}

func (m *mockLedgerService) Transfer(ctx context.Context, fromEmail, toEmail string, amount decimal.Decimal) error {
	return m.transferFunc(ctx, fromEmail, toEmail, amount)
}

func (m *mockLedgerService) GetBalance(ctx context.Context, email string) (decimal.Decimal, error) {
	return m.getBalanceFunc(ctx, email)
}

func (m *mockLedgerService) GetHistory(ctx context.Context, email string) ([]domain.Transaction, error) {
	return m.getHistoryFunc(ctx, email)
}

// mockSupportService implements handlers.SupportService for unit testing.
type mockSupportService struct {
	submitFunc  func(ctx context.Context, email, message string) (*domain.SupportMessage, error)
	listAllFunc func(ctx context.Context) ([]domain.SupportMessage, error)
}

func (m *mockSupportService) Submit(ctx context.Context, email, message string) (*domain.SupportMessage, error) {
	return m.submitFunc(ctx, email, message)
}

func (m *mockSupportService) ListAll(ctx context.Context) ([]domain.SupportMessage, error) {
	return m.listAllFunc(ctx)
}

func newTestRouter(ledger handlers.LedgerService, support handlers.SupportService) http.Handler {
	return handlers.NewRouter(ledger, support, zerolog.Nop())
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRegisterHandler(t *testing.T) {
	ledger := &mockLedgerService{
		registerFunc: func(ctx context.Context, email, password string) (*domain.Account, error) {
			if email != "a@x.com" || password != "p" {
				t.Errorf("unexpected register args: %s %s", email, password)
			}
			return domain.NewAccount(email, password), nil
		},
	}
	router := newTestRouter(ledger, &mockSupportService{})

	rec := postJSON(t, router, "/register", map[string]string{"email": "a@x.com", "password": "p"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Account created" {
		t.Errorf("expected message 'Account created', got %v", body["message"])
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %v", body["user"])
	}
	if user["email"] != "a@x.com" {
		t.Errorf("expected user email a@x.com, got %v", user["email"])
	}
	if user["balance"] != float64(0) {
		t.Errorf("expected zero balance, got %v", user["balance"])
	}
}

func TestDepositHandler(t *testing.T) {
	tests := []struct {
		name       string
		depositErr error
		wantStatus int
		wantBody   string
	}{
		{name: "success", depositErr: nil, wantStatus: http.StatusOK},
		{name: "user not found", depositErr: domain.ErrAccountNotFound, wantStatus: http.StatusNotFound, wantBody: "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &mockLedgerService{
				depositFunc: func(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error) {
					if tt.depositErr != nil {
						return decimal.Decimal{}, tt.depositErr
					}
					return amount, nil
				},
			}
			router := newTestRouter(ledger, &mockSupportService{})

			rec := postJSON(t, router, "/deposit", map[string]any{"email": "a@x.com", "amount": 50})

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantBody != "" {
				if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
					t.Errorf("expected body %q, got %q", tt.wantBody, got)
				}
				return
			}
			body := decodeBody(t, rec)
			if body["balance"] != float64(50) {
				t.Errorf("expected balance 50, got %v", body["balance"])
			}
		})
	}
}

func TestWithdrawHandler_ConflatesErrors(t *testing.T) {
	// Missing account and insufficient balance share one outward signal.
	for _, domainErr := range []error{domain.ErrAccountNotFound, domain.ErrInsufficientFunds} {
		ledger := &mockLedgerService{
			withdrawFunc: func(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error) {
				return decimal.Decimal{}, domainErr
			},
		}
		router := newTestRouter(ledger, &mockSupportService{})

		rec := postJSON(t, router, "/withdraw", map[string]any{"email": "a@x.com", "amount": 50})

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%v: expected 400, got %d", domainErr, rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != "Insufficient funds or user not found" {
			t.Errorf("%v: unexpected body %q", domainErr, got)
		}
	}
}

func TestWithdrawHandler_Success(t *testing.T) {
	ledger := &mockLedgerService{
		withdrawFunc: func(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error) {
			return decimal.RequireFromString("30"), nil
		},
	}
	router := newTestRouter(ledger, &mockSupportService{})

	rec := postJSON(t, router, "/withdraw", map[string]any{"email": "a@x.com", "amount": 20})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["balance"] != float64(30) {
		t.Errorf("expected balance 30, got %v", body["balance"])
	}
}

func TestTransferHandler(t *testing.T) {
	tests := []struct {
		name        string
		transferErr error
		wantStatus  int
		wantBody    string
	}{
		{name: "success", transferErr: nil, wantStatus: http.StatusOK},
		{name: "missing participant", transferErr: domain.ErrAccountNotFound, wantStatus: http.StatusBadRequest, wantBody: "Transfer failed"},
		{name: "insufficient funds", transferErr: domain.ErrInsufficientFunds, wantStatus: http.StatusBadRequest, wantBody: "Transfer failed"},
		{name: "same account", transferErr: domain.ErrSameAccount, wantStatus: http.StatusBadRequest, wantBody: "Transfer failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &mockLedgerService{
				transferFunc: func(ctx context.Context, fromEmail, toEmail string, amount decimal.Decimal) error {
					if fromEmail != "a@x.com" || toEmail != "b@x.com" {
						t.Errorf("unexpected transfer args: %s -> %s", fromEmail, toEmail)
					}
					return tt.transferErr
				},
			}
			router := newTestRouter(ledger, &mockSupportService{})

			rec := postJSON(t, router, "/transfer", map[string]any{
				"fromEmail": "a@x.com",
				"toEmail":   "b@x.com",
				"amount":    30,
			})

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantBody != "" {
				if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
					t.Errorf("expected body %q, got %q", tt.wantBody, got)
				}
				return
			}
			if body := decodeBody(t, rec); body["message"] != "Transfer successful" {
				t.Errorf("expected message 'Transfer successful', got %v", body["message"])
			}
		})
	}
}

func TestBalanceHandler(t *testing.T) {
	ledger := &mockLedgerService{
		getBalanceFunc: func(ctx context.Context, email string) (decimal.Decimal, error) {
			if email != "a@x.com" {
				return decimal.Decimal{}, domain.ErrAccountNotFound
			}
			return decimal.RequireFromString("42.50"), nil
		},
	}
	router := newTestRouter(ledger, &mockSupportService{})

	rec := get(t, router, "/balance/a@x.com")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["balance"] != 42.5 {
		t.Errorf("expected balance 42.5, got %v", body["balance"])
	}

	rec = get(t, router, "/balance/missing@x.com")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "User not found" {
		t.Errorf("expected body 'User not found', got %q", got)
	}
}

func TestHistoryHandler(t *testing.T) {
	ledger := &mockLedgerService{
		getHistoryFunc: func(ctx context.Context, email string) ([]domain.Transaction, error) {
			if email != "a@x.com" {
				return nil, domain.ErrAccountNotFound
			}
			return []domain.Transaction{
				{Type: domain.TransactionDeposit, Amount: decimal.NewFromInt(50), RecordedAt: time.Now()},
				{Type: domain.TransactionTransferOut, Amount: decimal.NewFromInt(30), To: "b@x.com", RecordedAt: time.Now()},
			}, nil
		},
	}
	router := newTestRouter(ledger, &mockSupportService{})

	rec := get(t, router, "/history/a@x.com")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	history, ok := body["history"].([]any)
	if !ok || len(history) != 2 {
		t.Fatalf("expected 2 history records, got %v", body["history"])
	}
	first := history[0].(map[string]any)
	if first["type"] != "deposit" || first["amount"] != float64(50) {
		t.Errorf("unexpected first record: %v", first)
	}
	second := history[1].(map[string]any)
	if second["to"] != "b@x.com" {
		t.Errorf("expected transfer_out counterparty, got %v", second)
	}

	rec = get(t, router, "/history/missing@x.com")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSupportSubmitHandler(t *testing.T) {
	support := &mockSupportService{
		submitFunc: func(ctx context.Context, email, message string) (*domain.SupportMessage, error) {
			if email != "a@x.com" || message != "help me" {
				t.Errorf("unexpected submit args: %s %s", email, message)
			}
			return domain.NewSupportMessage(email, message), nil
		},
	}
	router := newTestRouter(&mockLedgerService{}, support)

	rec := postJSON(t, router, "/support", map[string]string{"email": "a@x.com", "message": "help me"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["message"] != "Support request received" {
		t.Errorf("expected message 'Support request received', got %v", body["message"])
	}
}

func TestSupportListHandler(t *testing.T) {
	support := &mockSupportService{
		listAllFunc: func(ctx context.Context) ([]domain.SupportMessage, error) {
			return []domain.SupportMessage{
				{ID: uuid.New(), Email: "a@x.com", Message: "first", Date: time.Now()},
				{ID: uuid.New(), Email: "b@x.com", Message: "second", Date: time.Now()},
			}, nil
		},
	}
	router := newTestRouter(&mockLedgerService{}, support)

	rec := get(t, router, "/support-messages")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var msgs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0]["email"] != "a@x.com" || msgs[1]["message"] != "second" {
		t.Errorf("unexpected messages: %v", msgs)
	}
}

func TestInvalidRequestBody(t *testing.T) {
	router := newTestRouter(&mockLedgerService{}, &mockSupportService{})

	for _, path := range []string{"/register", "/deposit", "/withdraw", "/transfer", "/support"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400 for malformed body, got %d", path, rec.Code)
		}
	}
}

func TestHealthHandler(t *testing.T) {
	router := newTestRouter(&mockLedgerService{}, &mockSupportService{})

	rec := get(t, router, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}
