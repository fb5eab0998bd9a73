// Package httpserver wraps net/http with graceful shutdown and configurable
// timeouts.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal is
// received, then shuts the server down with http.Server.Shutdown under a
// configurable deadline. Start errors are wrapped with ErrStart and shutdown
// errors with ErrShutdown so callers can distinguish them with errors.Is.
package httpserver
