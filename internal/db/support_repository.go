package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fin-ledger/ledger-service/internal/domain"
)

// SupportMessageRepository implements domain.SupportMessageRepository using
// PostgreSQL. Messages are insert-only.
type SupportMessageRepository struct {
	pool *pgxpool.Pool
}

// NewSupportMessageRepository creates a new SupportMessageRepository.
func NewSupportMessageRepository(pool *pgxpool.Pool) *SupportMessageRepository {
	return &SupportMessageRepository{pool: pool}
}

// Create persists a new support message.
func (r *SupportMessageRepository) Create(ctx context.Context, msg *domain.SupportMessage) error {
	query := `
		INSERT INTO support_messages (id, email, message, date)
		VALUES ($1, $2, $3, $4)
	`

	_, err := queryTarget(ctx, r.pool).Exec(ctx, query,
		msg.ID,
		msg.Email,
		msg.Message,
		msg.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to create support message: %w", err)
	}
	return nil
}

// List returns every stored message in insertion order.
func (r *SupportMessageRepository) List(ctx context.Context) ([]domain.SupportMessage, error) {
	query := `
		SELECT id, email, message, date
		FROM support_messages
		ORDER BY date, id
	`

	rows, err := queryTarget(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list support messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]domain.SupportMessage, 0)
	for rows.Next() {
		var msg domain.SupportMessage
		if err := rows.Scan(&msg.ID, &msg.Email, &msg.Message, &msg.Date); err != nil {
			return nil, fmt.Errorf("failed to scan support message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read support messages: %w", err)
	}
	return msgs, nil
}
