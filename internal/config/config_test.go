package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv() {
	for _, key := range []string{
		"NOTEFLOW_PLANNER_URL", "NOTEFLOW_PLANNER_TIMEOUT",
		"NOTEFLOW_GENERATOR_URL", "NOTEFLOW_GENERATOR_TIMEOUT",
		"NOTEFLOW_EXECUTOR_URL", "NOTEFLOW_NOTEBOOK_ID", "NOTEFLOW_EXECUTOR_TIMEOUT", "NOTEFLOW_EXECUTOR_EMPTY_OUTPUT_WAIT",
		"NOTEFLOW_REDIS_URL", "NOTEFLOW_REDIS_PASSWORD", "NOTEFLOW_REDIS_DB", "NOTEFLOW_REDIS_POOL_SIZE", "NOTEFLOW_REDIS_BLOB_TTL",
		"NOTEFLOW_DATABASE_DSN", "NOTEFLOW_DB_MAX_CONNECTIONS", "NOTEFLOW_DB_MIN_CONNECTIONS",
		"NOTEFLOW_JWT_SECRET", "NOTEFLOW_JWT_ISSUER", "NOTEFLOW_JWT_LIFETIME",
		"NOTEFLOW_LOG_LEVEL", "NOTEFLOW_LOG_FORMAT",
		"NOTEFLOW_MAX_STEPS", "NOTEFLOW_CONTROL_BIND_ADDR", "NOTEFLOW_CONTROL_REST_ENABLED",
		"NOTEFLOW_CHECKPOINT_ENABLED", "NOTEFLOW_CHECKPOINT_CRON", "NOTEFLOW_CHECKPOINT_PREFIX",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "http://localhost:8001", cfg.Planner.BaseURL)
	assert.Equal(t, 300*time.Second, cfg.Planner.Timeout)
	assert.Equal(t, "http://localhost:8002", cfg.Generator.BaseURL)
	assert.Equal(t, "http://localhost:8888", cfg.Executor.BaseURL)
	assert.Equal(t, 100*time.Millisecond, cfg.Executor.EmptyOutputWait)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 0, cfg.Control.DefaultMaxSteps)
	assert.False(t, cfg.Control.EnableREST)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv()
	os.Setenv("NOTEFLOW_PLANNER_URL", "http://planner.internal")
	os.Setenv("NOTEFLOW_MAX_STEPS", "5")
	os.Setenv("NOTEFLOW_LOG_LEVEL", "debug")
	defer clearEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://planner.internal", cfg.Planner.BaseURL)
	assert.Equal(t, 5, cfg.Control.DefaultMaxSteps)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate_RejectsMissingPlannerURL(t *testing.T) {
	cfg := &Config{
		Generator: GeneratorConfig{BaseURL: "http://x"},
		Executor:  ExecutorConfig{BaseURL: "http://x"},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
	}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "planner base URL")
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	cfg := &Config{
		Planner:   PlannerConfig{BaseURL: "http://x"},
		Generator: GeneratorConfig{BaseURL: "http://x"},
		Executor:  ExecutorConfig{BaseURL: "http://x"},
		Logging:   LoggingConfig{Level: "verbose", Format: "json"},
	}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "invalid log level")
}

func TestValidate_RejectsShortJWTSecret(t *testing.T) {
	cfg := &Config{
		Planner:   PlannerConfig{BaseURL: "http://x"},
		Generator: GeneratorConfig{BaseURL: "http://x"},
		Executor:  ExecutorConfig{BaseURL: "http://x"},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Auth:      AuthConfig{JWTSecret: "short"},
	}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestValidate_RejectsNegativeMaxSteps(t *testing.T) {
	cfg := &Config{
		Planner:   PlannerConfig{BaseURL: "http://x"},
		Generator: GeneratorConfig{BaseURL: "http://x"},
		Executor:  ExecutorConfig{BaseURL: "http://x"},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Control:   ControlConfig{DefaultMaxSteps: -1},
	}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "MAX_STEPS")
}
