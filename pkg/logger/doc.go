// Package logger builds configured slog.Logger instances for the service.
//
// It supports JSON output for production log aggregation and text output for
// local development, selected via functional options or the environment-aware
// helpers WithDevelopment and WithProduction.
//
// The package also ships a set of typed attribute helpers (Error, EmailID,
// SenderID, JobID, ...) so log call sites across the codebase use consistent
// attribute keys.
//
// Usage:
//
//	log := logger.New(
//		logger.WithProduction("sendlater"),
//	)
//	logger.SetAsDefault(log)
package logger
