package mailer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// DevMailer implements Mailer for local development. It logs the message and
// reports success without touching the network.
type DevMailer struct {
	log *slog.Logger
}

// NewDevMailer creates a development mailer that logs instead of sending.
func NewDevMailer(log *slog.Logger) *DevMailer {
	if log == nil {
		log = slog.Default()
	}
	return &DevMailer{log: log}
}

func (m *DevMailer) Send(ctx context.Context, params Params) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	id := uuid.NewString()
	m.log.InfoContext(ctx, "dev mailer: email not actually sent",
		slog.String("message_id", id),
		slog.String("to", params.To),
		slog.String("from", params.From),
		slog.String("subject", params.Subject),
	)

	return Result{MessageID: id}, nil
}
