package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fin-ledger/ledger-service/internal/domain"
)

// AccountRepository implements domain.AccountRepository using PostgreSQL.
//
// The history is stored as a JSONB document column next to the balance, so
// an account row reads and writes as one unit the way the original document
// layout did. Email carries no unique constraint; duplicate registrations
// coexist and email lookups resolve to the earliest-created row.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, email, password, balance::text, history, created_at, updated_at`

// Create persists a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, password, balance, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	history, err := json.Marshal(account.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	_, err = queryTarget(ctx, r.pool).Exec(ctx, query,
		account.ID,
		account.Email,
		account.Password,
		account.Balance.String(),
		history,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByEmail retrieves an account by email. When duplicates exist, the
// earliest-created account wins.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1
		ORDER BY created_at
		LIMIT 1
	`

	row := queryTarget(ctx, r.pool).QueryRow(ctx, query, email)
	return scanAccount(row)
}

// Lock retrieves the account by email and acquires a row lock held for the
// duration of the surrounding transaction. Must be called within a
// transaction context. Uses SELECT ... FOR UPDATE.
func (r *AccountRepository) Lock(ctx context.Context, email string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE
	`

	row := queryTarget(ctx, r.pool).QueryRow(ctx, query, email)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return account, nil
}

// Update persists the account's balance and history.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET balance = $2,
		    history = $3,
		    updated_at = $4
		WHERE id = $1
	`

	history, err := json.Marshal(account.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	result, err := queryTarget(ctx, r.pool).Exec(ctx, query,
		account.ID,
		account.Balance.String(),
		history,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// scanAccount reads one account row, decoding the balance from its text
// representation and the history from JSONB.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	var balance string
	var history []byte

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Password,
		&balance,
		&history,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to decode balance: %w", err)
	}
	if err := json.Unmarshal(history, &account.History); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return &account, nil
}
