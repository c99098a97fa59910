package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound is returned when a referenced account doesn't exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when the balance doesn't cover a
	// withdrawal or transfer
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount is returned when a transfer names the same email on
	// both sides
	ErrSameAccount = errors.New("sender and receiver must be different accounts")
)

// LedgerService handles the business logic for account mutations and queries.
//
// Every mutation runs inside a database transaction and takes a row lock on
// the affected account(s) before reading the balance, so concurrent deposits,
// withdrawals and transfers serialize per account and cannot lose updates.
// Transfers debit and credit within a single transaction; there is no
// partially-applied state visible outside it.
type LedgerService struct {
	accounts  AccountRepository
	txManager TransactionManager
	// Optional publisher for transaction-recorded events; nil disables it.
	events EventPublisher
	logger zerolog.Logger
}

// NewLedgerService creates a new LedgerService.
// Pass nil for events if no events should be emitted.
func NewLedgerService(
	accounts AccountRepository,
	txManager TransactionManager,
	events EventPublisher,
	logger zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		accounts:  accounts,
		txManager: txManager,
		events:    events,
		logger:    logger,
	}
}

// Register creates a new account with zero balance and empty history.
// Duplicate emails are not rejected; later lookups resolve to the
// earliest-created account.
func (s *LedgerService) Register(ctx context.Context, email, password string) (*Account, error) {
	account := NewAccount(email, password)
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// Deposit adds amount to the account's balance and appends a deposit record.
// The amount is applied without sign validation, matching the ledger
// contract. Returns the new balance.
func (s *LedgerService) Deposit(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	var record Transaction

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		account, err := s.accounts.Lock(txCtx, email)
		if err != nil {
			return err
		}

		record = Transaction{Type: TransactionDeposit, Amount: amount, RecordedAt: time.Now()}
		account.Credit(amount)
		account.Record(record)

		if err := s.accounts.Update(txCtx, account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}

		balance = account.Balance
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	s.publish(email, record)
	return balance, nil
}

// Withdraw subtracts amount from the account's balance and appends a
// withdraw record. Fails with ErrInsufficientFunds when the balance doesn't
// cover the amount, leaving balance and history unchanged. Returns the new
// balance.
func (s *LedgerService) Withdraw(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	var record Transaction

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		account, err := s.accounts.Lock(txCtx, email)
		if err != nil {
			return err
		}

		if !account.HasSufficientFunds(amount) {
			return ErrInsufficientFunds
		}

		record = Transaction{Type: TransactionWithdraw, Amount: amount, RecordedAt: time.Now()}
		account.Debit(amount)
		account.Record(record)

		if err := s.accounts.Update(txCtx, account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}

		balance = account.Balance
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	s.publish(email, record)
	return balance, nil
}

// Transfer moves amount from the sender to the receiver atomically, appending
// a transfer_out record to the sender's history and a transfer_in record to
// the receiver's. Both accounts are locked in deterministic (email) order to
// avoid deadlocks between concurrent opposite transfers. Any failure leaves
// both balances and histories unchanged.
func (s *LedgerService) Transfer(ctx context.Context, fromEmail, toEmail string, amount decimal.Decimal) error {
	if fromEmail == toEmail {
		return ErrSameAccount
	}

	var outRecord, inRecord Transaction

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var sender, receiver *Account
		var err error

		if fromEmail < toEmail {
			sender, err = s.accounts.Lock(txCtx, fromEmail)
			if err != nil {
				return fmt.Errorf("failed to lock sender account: %w", err)
			}
			receiver, err = s.accounts.Lock(txCtx, toEmail)
			if err != nil {
				return fmt.Errorf("failed to lock receiver account: %w", err)
			}
		} else {
			receiver, err = s.accounts.Lock(txCtx, toEmail)
			if err != nil {
				return fmt.Errorf("failed to lock receiver account: %w", err)
			}
			sender, err = s.accounts.Lock(txCtx, fromEmail)
			if err != nil {
				return fmt.Errorf("failed to lock sender account: %w", err)
			}
		}

		if !sender.HasSufficientFunds(amount) {
			return ErrInsufficientFunds
		}

		now := time.Now()
		outRecord = Transaction{Type: TransactionTransferOut, Amount: amount, To: toEmail, RecordedAt: now}
		inRecord = Transaction{Type: TransactionTransferIn, Amount: amount, From: fromEmail, RecordedAt: now}

		sender.Debit(amount)
		sender.Record(outRecord)
		receiver.Credit(amount)
		receiver.Record(inRecord)

		if err := s.accounts.Update(txCtx, sender); err != nil {
			return fmt.Errorf("failed to update sender account: %w", err)
		}
		if err := s.accounts.Update(txCtx, receiver); err != nil {
			return fmt.Errorf("failed to update receiver account: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(fromEmail, outRecord)
	s.publish(toEmail, inRecord)
	return nil
}

// GetBalance retrieves the current balance of the account.
func (s *LedgerService) GetBalance(ctx context.Context, email string) (decimal.Decimal, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return account.Balance, nil
}

// GetHistory retrieves the ordered transaction history of the account.
func (s *LedgerService) GetHistory(ctx context.Context, email string) ([]Transaction, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return account.History, nil
}

// publish emits a transaction-recorded event after the surrounding
// transaction has committed. Publishing is best-effort and asynchronous so
// transient broker failures don't make an already-committed mutation appear
// to fail.
func (s *LedgerService) publish(email string, record Transaction) {
	if s.events == nil {
		return
	}
	go func() {
		if err := s.events.PublishTransactionRecorded(context.Background(), email, record); err != nil {
			s.logger.Warn().Err(err).
				Str("email", email).
				Str("type", string(record.Type)).
				Msg("failed to publish transaction event")
		}
	}()
}

// SupportService handles submission and retrieval of support messages.
type SupportService struct {
	messages SupportMessageRepository
}

// NewSupportService creates a new SupportService.
func NewSupportService(messages SupportMessageRepository) *SupportService {
	return &SupportService{messages: messages}
}

// Submit stores a support message dated at the current time. Message content
// is accepted as-is; the contract performs no validation.
func (s *SupportService) Submit(ctx context.Context, email, message string) (*SupportMessage, error) {
	msg := NewSupportMessage(email, message)
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create support message: %w", err)
	}
	return msg, nil
}

// ListAll returns every stored support message in insertion order.
func (s *SupportService) ListAll(ctx context.Context) ([]SupportMessage, error) {
	msgs, err := s.messages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list support messages: %w", err)
	}
	return msgs, nil
}
