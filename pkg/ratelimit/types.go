package ratelimit

import "time"

// Result reports the outcome of an admission check.
type Result struct {
	Allowed    bool
	Current    int64         // Count within the current window after this check.
	Limit      int           // Limit the check was made against.
	RetryAfter time.Duration // Time until the next hour window; zero when allowed.
}

// Config holds the default hourly quota applied when a sender carries no
// limit of its own.
type Config struct {
	DefaultHourlyLimit int `env:"MAX_EMAILS_PER_HOUR_PER_SENDER" envDefault:"100"`
}
