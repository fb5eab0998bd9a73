package mailer

import "errors"

var (
	ErrFailedToSend       = errors.New("mailer: failed to send email")
	ErrInvalidParams      = errors.New("mailer: invalid send parameters")
	ErrInvalidConfig      = errors.New("mailer: invalid config")
	ErrUnknownProvider    = errors.New("mailer: unknown provider")
	ErrMissingCredentials = errors.New("mailer: missing sender credentials")
)
