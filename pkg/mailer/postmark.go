package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkMailer sends through Postmark's transactional API. The credential
// password is interpreted as the Postmark server token, so each sender can
// map to its own Postmark server.
type PostmarkMailer struct{}

// NewPostmarkMailer creates a Postmark-backed mailer.
func NewPostmarkMailer() *PostmarkMailer {
	return &PostmarkMailer{}
}

func (m *PostmarkMailer) Send(ctx context.Context, params Params) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	if params.Credentials.Password == "" {
		return Result{}, ErrMissingCredentials
	}

	client := postmark.NewClient(params.Credentials.Password, "")

	resp, err := client.SendEmail(ctx, postmark.Email{
		From:     params.From,
		To:       params.To,
		Subject:  params.Subject,
		TextBody: params.Body,
		HTMLBody: htmlBody(params.Body),
	})
	if err != nil {
		return Result{}, errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return Result{}, errors.Join(
			ErrFailedToSend,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}

	return Result{MessageID: resp.MessageID}, nil
}
