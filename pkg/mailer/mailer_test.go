package mailer_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendlater/sendlater/pkg/mailer"
)

func TestParams_Validate(t *testing.T) {
	t.Parallel()

	valid := mailer.Params{
		To:      "recipient@example.com",
		From:    "sender@example.com",
		Subject: "hello",
		Body:    "body",
	}

	tests := []struct {
		name    string
		mutate  func(*mailer.Params)
		wantErr bool
	}{
		{name: "valid", mutate: func(p *mailer.Params) {}},
		{name: "missing recipient", mutate: func(p *mailer.Params) { p.To = "" }, wantErr: true},
		{name: "malformed recipient", mutate: func(p *mailer.Params) { p.To = "not-an-address" }, wantErr: true},
		{name: "malformed from", mutate: func(p *mailer.Params) { p.From = "@example.com" }, wantErr: true},
		{name: "empty subject", mutate: func(p *mailer.Params) { p.Subject = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, mailer.ErrInvalidParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidAddress(t *testing.T) {
	t.Parallel()

	assert.True(t, mailer.ValidAddress("user@example.com"))
	assert.True(t, mailer.ValidAddress("user.name+tag@sub.example.co"))
	assert.False(t, mailer.ValidAddress(""))
	assert.False(t, mailer.ValidAddress("user@"))
	assert.False(t, mailer.ValidAddress("user@localhost"))
	assert.False(t, mailer.ValidAddress("user example.com"))
}

func TestDevMailer_Send(t *testing.T) {
	t.Parallel()

	m := mailer.NewDevMailer(slog.Default())
	res, err := m.Send(context.Background(), mailer.Params{
		To:      "recipient@example.com",
		From:    "sender@example.com",
		Subject: "hello",
		Body:    "body",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)
}

func TestNew_UnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := mailer.New(mailer.Config{Provider: "carrier-pigeon"}, slog.Default())
	assert.ErrorIs(t, err, mailer.ErrUnknownProvider)
}

func TestNewSMTPMailer_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := mailer.NewSMTPMailer(mailer.Config{SMTPHost: "", SMTPPort: 587})
	assert.ErrorIs(t, err, mailer.ErrInvalidConfig)

	_, err = mailer.NewSMTPMailer(mailer.Config{SMTPHost: "smtp.example.com", SMTPPort: 0})
	assert.ErrorIs(t, err, mailer.ErrInvalidConfig)
}

func TestSMTPMailer_MissingCredentials(t *testing.T) {
	t.Parallel()

	m, err := mailer.NewSMTPMailer(mailer.Config{SMTPHost: "smtp.example.com", SMTPPort: 587})
	require.NoError(t, err)

	_, err = m.Send(context.Background(), mailer.Params{
		To:      "recipient@example.com",
		From:    "sender@example.com",
		Subject: "hello",
	})
	assert.ErrorIs(t, err, mailer.ErrMissingCredentials)
}
