package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.Mutex
	cache   = make(map[string]any)

	defaultEnvLoaded sync.Once
)

// Load parses environment variables into the provided configuration struct.
//
// The default .env file is loaded once per process before the first parse;
// a missing .env file is not an error. Each unique configuration type is
// parsed only once, subsequent calls return the cached value.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvLoaded.Do(func() {
		// The .env file is optional, real environments set variables directly.
		_ = godotenv.Load()
	})

	typeName := typeNameOf[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[typeName]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	// Store a copy so later mutations of the caller's struct do not leak into the cache.
	cache[typeName] = *v
	return nil
}

// MustLoad is like Load but panics on failure.
// Intended for process initialization where a missing required variable
// should prevent startup.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}

// LoadEnv loads the given .env files into the process environment.
// Later files take precedence over earlier ones. Unlike the implicit default
// load, a missing file here is an error because the caller asked for it.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLoadingEnvFile, path, err)
		}
	}
	return nil
}

// ResetCache clears cached configurations. Intended for tests only.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]any)
}

func typeNameOf[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.Name()
}
