package mailer

// Provider selects the transport implementation.
type Provider string

const (
	ProviderSMTP     Provider = "smtp"
	ProviderPostmark Provider = "postmark"
	ProviderDev      Provider = "dev"
)

// Config holds transport configuration. Host and port apply to the SMTP
// provider only; per-sender authentication travels with each job payload.
type Config struct {
	Provider Provider `env:"MAILER_PROVIDER" envDefault:"smtp"`
	SMTPHost string   `env:"SMTP_HOST" envDefault:"smtp.ethereal.email"`
	SMTPPort int      `env:"SMTP_PORT" envDefault:"587"`
}
