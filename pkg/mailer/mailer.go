package mailer

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
)

// Credentials carry the per-sender transport secret. The scheduling core
// treats them as opaque; only the transport implementation interprets them.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Params describes a single outbound message.
type Params struct {
	To          string
	Subject     string
	Body        string
	From        string
	Credentials Credentials
}

// Result reports a successful send.
type Result struct {
	MessageID string
}

// Mailer sends a single email. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, params Params) (Result, error)
}

var addressRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidAddress reports whether s looks like a deliverable email address.
// Shared with the scheduling layer so recipients are rejected before any
// record is persisted.
func ValidAddress(s string) bool {
	return addressRegex.MatchString(s)
}

// Validate checks the parameters common to every transport.
func (p Params) Validate() error {
	if !ValidAddress(p.To) {
		return fmt.Errorf("%w: recipient %q is not a valid address", ErrInvalidParams, p.To)
	}
	if !ValidAddress(p.From) {
		return fmt.Errorf("%w: from %q is not a valid address", ErrInvalidParams, p.From)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is empty", ErrInvalidParams)
	}
	return nil
}

// htmlBody renders the plain-text body as a minimal HTML alternative,
// escaping the content and preserving line breaks.
func htmlBody(body string) string {
	escaped := strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")
	return `<div style="font-family: Arial, sans-serif; padding: 20px;"><p>` + escaped + `</p></div>`
}

// New builds a Mailer from config. Unknown providers fail fast at startup.
func New(cfg Config, log *slog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case ProviderSMTP:
		return NewSMTPMailer(cfg)
	case ProviderPostmark:
		return NewPostmarkMailer(), nil
	case ProviderDev:
		return NewDevMailer(log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
