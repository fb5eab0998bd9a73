package mailer

import (
	"context"
	"errors"
	"fmt"

	mail "github.com/wneessen/go-mail"
)

// SMTPMailer sends messages through an SMTP relay. The relay host and port
// are fixed at construction; authentication happens per message with the
// credentials carried in the send parameters, so a single mailer serves any
// number of senders.
type SMTPMailer struct {
	host string
	port int
}

// NewSMTPMailer creates an SMTP-backed mailer.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("%w: SMTPHost is required", ErrInvalidConfig)
	}
	if cfg.SMTPPort <= 0 {
		return nil, fmt.Errorf("%w: SMTPPort must be positive", ErrInvalidConfig)
	}
	return &SMTPMailer{host: cfg.SMTPHost, port: cfg.SMTPPort}, nil
}

// Send delivers a single message. A fresh client is dialed per send because
// each message may authenticate as a different sender.
func (m *SMTPMailer) Send(ctx context.Context, params Params) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	if params.Credentials.Username == "" || params.Credentials.Password == "" {
		return Result{}, ErrMissingCredentials
	}

	msg := mail.NewMsg()
	if err := msg.From(params.From); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := msg.To(params.To); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	msg.Subject(params.Subject)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, params.Body)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody(params.Body))

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(params.Credentials.Username),
		mail.WithPassword(params.Credentials.Password),
	)
	if err != nil {
		return Result{}, errors.Join(ErrFailedToSend, err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return Result{}, errors.Join(ErrFailedToSend, err)
	}

	return Result{MessageID: msg.GetMessageID()}, nil
}
