// Package config loads typed configuration structs from environment variables.
//
// Structs are annotated with `env:` tags (parsed by caarlos0/env) and loaded
// with the generic Load function. A .env file, when present, is loaded once
// per process before the first parse so local development does not require
// exporting variables manually.
//
// Each configuration type is parsed at most once and cached, so independent
// packages can call Load for the same type without re-reading the environment.
//
// Usage:
//
//	type RedisConfig struct {
//		URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
//	}
//
//	var cfg RedisConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
package config
