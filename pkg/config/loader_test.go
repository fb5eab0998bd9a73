package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendlater/sendlater/pkg/config"
)

type testConfig struct {
	Host  string `env:"TEST_CFG_HOST" envDefault:"localhost"`
	Port  int    `env:"TEST_CFG_PORT" envDefault:"5432"`
	Debug bool   `env:"TEST_CFG_DEBUG"`
}

type requiredConfig struct {
	Token string `env:"TEST_CFG_REQUIRED_TOKEN,required"`
}

func TestLoad_Defaults(t *testing.T) {
	config.ResetCache()

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvironment(t *testing.T) {
	config.ResetCache()
	t.Setenv("TEST_CFG_HOST", "db.internal")
	t.Setenv("TEST_CFG_PORT", "6432")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6432, cfg.Port)
}

func TestLoad_Cached(t *testing.T) {
	config.ResetCache()
	t.Setenv("TEST_CFG_HOST", "first")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "first", cfg.Host)

	// A changed environment must not affect an already-loaded type.
	t.Setenv("TEST_CFG_HOST", "second")
	var again testConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, "first", again.Host)
}

func TestLoad_RequiredMissing(t *testing.T) {
	config.ResetCache()

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	err := config.Load[testConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}

func TestLoadEnv_MissingFile(t *testing.T) {
	err := config.LoadEnv("testdata/does-not-exist.env")
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}
