package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sendlater/sendlater/pkg/pg"
	"github.com/sendlater/sendlater/pkg/scheduler"
)

const senderColumns = `id, email, name, smtp_user, smtp_pass, hourly_limit, is_active, created_at, updated_at`

// SenderStore is the Postgres implementation of scheduler.SenderStore.
type SenderStore struct {
	pool *pgxpool.Pool
}

// NewSenderStore creates a sender store over the given pool.
func NewSenderStore(pool *pgxpool.Pool) *SenderStore {
	return &SenderStore{pool: pool}
}

func (s *SenderStore) Create(ctx context.Context, sender *scheduler.Sender) error {
	query := `
		INSERT INTO senders (id, email, name, smtp_user, smtp_pass, hourly_limit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, query,
		sender.ID,
		sender.Email,
		sender.Name,
		sender.SMTPUser,
		sender.SMTPPass,
		sender.HourlyLimit,
		sender.IsActive,
	).Scan(&sender.CreatedAt, &sender.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: failed to insert sender: %w", err)
	}
	return nil
}

func (s *SenderStore) GetByID(ctx context.Context, id uuid.UUID) (*scheduler.Sender, error) {
	query := `SELECT ` + senderColumns + ` FROM senders WHERE id = $1`

	sender, err := scanSender(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, scheduler.ErrSenderNotFound
		}
		return nil, fmt.Errorf("storage: failed to query sender %s: %w", id, err)
	}
	return sender, nil
}

func (s *SenderStore) List(ctx context.Context) ([]scheduler.Sender, error) {
	query := `SELECT ` + senderColumns + ` FROM senders ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list senders: %w", err)
	}
	defer rows.Close()

	var out []scheduler.Sender
	for rows.Next() {
		sender, err := scanSender(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: failed to scan sender row: %w", err)
		}
		out = append(out, *sender)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: sender rows iteration failed: %w", err)
	}
	return out, nil
}

func (s *SenderStore) Update(ctx context.Context, sender *scheduler.Sender) error {
	query := `
		UPDATE senders
		SET email = $2, name = $3, smtp_user = $4, smtp_pass = $5, hourly_limit = $6, is_active = $7, updated_at = now()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		sender.ID,
		sender.Email,
		sender.Name,
		sender.SMTPUser,
		sender.SMTPPass,
		sender.HourlyLimit,
		sender.IsActive,
	)
	if err != nil {
		return fmt.Errorf("storage: failed to update sender %s: %w", sender.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return scheduler.ErrSenderNotFound
	}
	return nil
}

func (s *SenderStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM senders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("storage: failed to delete sender %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return scheduler.ErrSenderNotFound
	}
	return nil
}

func scanSender(row pgx.Row) (*scheduler.Sender, error) {
	var sender scheduler.Sender
	err := row.Scan(
		&sender.ID,
		&sender.Email,
		&sender.Name,
		&sender.SMTPUser,
		&sender.SMTPPass,
		&sender.HourlyLimit,
		&sender.IsActive,
		&sender.CreatedAt,
		&sender.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sender, nil
}
