package scheduler

import "errors"

var (
	// ErrEmailNotFound is returned when no email record exists under the given id.
	ErrEmailNotFound = errors.New("scheduler: email not found")

	// ErrSenderNotFound is returned when the referenced sender does not exist.
	ErrSenderNotFound = errors.New("scheduler: sender not found")

	// ErrSenderInactive is returned when scheduling against a deactivated sender.
	ErrSenderInactive = errors.New("scheduler: sender is inactive")

	// ErrInvalidRecipient is returned when a recipient address fails validation.
	ErrInvalidRecipient = errors.New("scheduler: invalid recipient address")

	// ErrNoRecipients is returned when a bulk request carries no recipients.
	ErrNoRecipients = errors.New("scheduler: no recipients provided")

	// ErrEmailProcessing is returned when canceling an email whose job is
	// already being processed.
	ErrEmailProcessing = errors.New("scheduler: email is being processed and cannot be canceled")
)
