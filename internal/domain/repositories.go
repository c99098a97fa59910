package domain

import "context"

// AccountRepository defines data access for accounts.
// Implementations resolve email lookups to the earliest-created account when
// duplicates exist, since registration enforces no uniqueness.
type AccountRepository interface {
	// Create persists a new account.
	Create(ctx context.Context, account *Account) error

	// GetByEmail retrieves an account by email.
	// Returns ErrAccountNotFound if no account matches.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Lock retrieves the account by email and acquires a row lock held for
	// the duration of the surrounding transaction. Must be called within a
	// transaction context.
	Lock(ctx context.Context, email string) (*Account, error)

	// Update persists the account's balance and history.
	Update(ctx context.Context, account *Account) error
}

// SupportMessageRepository defines data access for support messages.
type SupportMessageRepository interface {
	// Create persists a new support message.
	Create(ctx context.Context, msg *SupportMessage) error

	// List returns every stored message in insertion order.
	List(ctx context.Context) ([]SupportMessage, error)
}

// TransactionManager runs a function within a database transaction.
// If the function returns an error the transaction is rolled back,
// otherwise it is committed.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher publishes domain events to external systems (e.g. RabbitMQ).
// Pass nil where no events should be emitted.
type EventPublisher interface {
	// PublishTransactionRecorded emits an event for a transaction appended
	// to the given account's history.
	PublishTransactionRecorded(ctx context.Context, email string, record Transaction) error
}
