package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sendlater/sendlater/pkg/pg"
	"github.com/sendlater/sendlater/pkg/scheduler"
)

const emailColumns = `id, user_id, sender_id, to_email, subject, body, status,
	scheduled_at, sent_at, error_message, retry_count, job_id, created_at, updated_at`

// EmailStore is the Postgres implementation of scheduler.EmailStore.
type EmailStore struct {
	pool *pgxpool.Pool
}

// NewEmailStore creates an email store over the given pool.
func NewEmailStore(pool *pgxpool.Pool) *EmailStore {
	return &EmailStore{pool: pool}
}

func (s *EmailStore) Create(ctx context.Context, email *scheduler.Email) error {
	query := `
		INSERT INTO emails (id, user_id, sender_id, to_email, subject, body, status, scheduled_at, job_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, query,
		email.ID,
		email.UserID,
		email.SenderID,
		email.To,
		email.Subject,
		email.Body,
		email.Status,
		email.ScheduledAt,
		nullableText(email.JobID),
	).Scan(&email.CreatedAt, &email.UpdatedAt)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return fmt.Errorf("%w: %s", scheduler.ErrSenderNotFound, email.SenderID)
		}
		return fmt.Errorf("storage: failed to insert email: %w", err)
	}
	return nil
}

func (s *EmailStore) GetByID(ctx context.Context, id uuid.UUID) (*scheduler.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE id = $1`

	email, err := scanEmail(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, scheduler.ErrEmailNotFound
		}
		return nil, fmt.Errorf("storage: failed to query email %s: %w", id, err)
	}
	return email, nil
}

func (s *EmailStore) List(ctx context.Context, filter scheduler.EmailFilter) ([]scheduler.Email, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != uuid.Nil {
		conds = append(conds, "user_id = "+arg(filter.UserID))
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, "status = ANY("+arg(statusStrings(filter.Statuses))+")")
	}

	query := `SELECT ` + emailColumns + ` FROM emails`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY scheduled_at ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list emails: %w", err)
	}
	defer rows.Close()

	return collectEmails(rows)
}

func (s *EmailStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM emails WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("storage: failed to delete email %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return scheduler.ErrEmailNotFound
	}
	return nil
}

func (s *EmailStore) UpdateStatus(ctx context.Context, id uuid.UUID, status scheduler.Status) error {
	return s.update(ctx, id,
		`UPDATE emails SET status = $2, updated_at = now() WHERE id = $1`,
		status)
}

func (s *EmailStore) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return s.update(ctx, id,
		`UPDATE emails SET status = $2, sent_at = $3, error_message = NULL, updated_at = now() WHERE id = $1`,
		scheduler.StatusSent, sentAt)
}

func (s *EmailStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return s.update(ctx, id,
		`UPDATE emails SET status = $2, error_message = $3, retry_count = retry_count + 1, updated_at = now() WHERE id = $1`,
		scheduler.StatusFailed, errMsg)
}

func (s *EmailStore) MarkRateLimited(ctx context.Context, id uuid.UUID) error {
	return s.UpdateStatus(ctx, id, scheduler.StatusRateLimited)
}

func (s *EmailStore) Reschedule(ctx context.Context, id uuid.UUID, jobID string, scheduledAt time.Time) error {
	return s.update(ctx, id,
		`UPDATE emails SET status = $2, job_id = $3, scheduled_at = $4, updated_at = now() WHERE id = $1`,
		scheduler.StatusScheduled, jobID, scheduledAt)
}

func (s *EmailStore) SetJobID(ctx context.Context, id uuid.UUID, jobID string) error {
	return s.update(ctx, id,
		`UPDATE emails SET job_id = $2, updated_at = now() WHERE id = $1`,
		jobID)
}

func (s *EmailStore) ListPending(ctx context.Context) ([]scheduler.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails
		WHERE status = ANY($1)
		ORDER BY scheduled_at ASC`

	rows, err := s.pool.Query(ctx, query, statusStrings(scheduler.PendingStatuses))
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list pending emails: %w", err)
	}
	defer rows.Close()

	return collectEmails(rows)
}

func (s *EmailStore) FailAllProcessing(ctx context.Context, errMsg string) (int64, error) {
	query := `UPDATE emails
		SET status = $1, error_message = $2, updated_at = now()
		WHERE status = $3`

	tag, err := s.pool.Exec(ctx, query, scheduler.StatusFailed, errMsg, scheduler.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("storage: failed to fail processing emails: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *EmailStore) update(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("storage: failed to update email %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return scheduler.ErrEmailNotFound
	}
	return nil
}

func scanEmail(row pgx.Row) (*scheduler.Email, error) {
	var (
		email  scheduler.Email
		errMsg *string
		jobID  *string
	)
	err := row.Scan(
		&email.ID,
		&email.UserID,
		&email.SenderID,
		&email.To,
		&email.Subject,
		&email.Body,
		&email.Status,
		&email.ScheduledAt,
		&email.SentAt,
		&errMsg,
		&email.RetryCount,
		&jobID,
		&email.CreatedAt,
		&email.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		email.ErrorMessage = *errMsg
	}
	if jobID != nil {
		email.JobID = *jobID
	}
	return &email, nil
}

func collectEmails(rows pgx.Rows) ([]scheduler.Email, error) {
	var out []scheduler.Email
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: failed to scan email row: %w", err)
		}
		out = append(out, *email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: email rows iteration failed: %w", err)
	}
	return out, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// statusStrings converts to the plain string slice pgx encodes as text[].
func statusStrings(statuses []scheduler.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
