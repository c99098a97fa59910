package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the core domain entity: a user's ledger record holding the
// current balance and the full transaction history.
//
// Email is the outward identifier used by every API operation. No uniqueness
// is enforced on it; lookups among duplicates return the earliest-created
// account.
type Account struct {
	ID        uuid.UUID       `json:"-"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	Balance   decimal.Decimal `json:"balance"`
	History   []Transaction   `json:"history"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// TransactionType tags the variant of a history record.
type TransactionType string

const (
	TransactionDeposit     TransactionType = "deposit"
	TransactionWithdraw    TransactionType = "withdraw"
	TransactionTransferOut TransactionType = "transfer_out"
	TransactionTransferIn  TransactionType = "transfer_in"
)

// Transaction is a single element of an account's history. The history is
// append-only from the service's perspective; records are never updated or
// removed. To is set only on transfer_out records, From only on transfer_in.
type Transaction struct {
	Type       TransactionType `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	To         string          `json:"to,omitempty"`
	From       string          `json:"from,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// SupportMessage is a free-text message submitted by a user and retrievable
// in bulk by staff. It carries no account linkage and is never mutated.
type SupportMessage struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// NewAccount creates an Account with zero balance and empty history.
func NewAccount(email, password string) *Account {
	now := time.Now()
	return &Account{
		ID:        uuid.New(),
		Email:     email,
		Password:  password,
		Balance:   decimal.Zero,
		History:   []Transaction{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewSupportMessage creates a SupportMessage dated at the current time.
func NewSupportMessage(email, message string) *SupportMessage {
	return &SupportMessage{
		ID:      uuid.New(),
		Email:   email,
		Message: message,
		Date:    time.Now(),
	}
}

// Credit adds the given amount to the account balance. The amount is applied
// as-is: the ledger contract performs no sign validation on deposits.
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = time.Now()
}

// Debit subtracts the given amount from the account balance. Callers must
// check HasSufficientFunds first; Debit itself does not re-validate.
func (a *Account) Debit(amount decimal.Decimal) {
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now()
}

// HasSufficientFunds reports whether the balance covers the given amount.
func (a *Account) HasSufficientFunds(amount decimal.Decimal) bool {
	return a.Balance.Cmp(amount) >= 0
}

// Record appends a transaction record to the account history.
func (a *Account) Record(t Transaction) {
	a.History = append(a.History, t)
}
