package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadEnums(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "batch"
	cfg.Storage = "sqlite"
	cfg.LogLevel = "trace"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "batch"`)
	assert.Contains(t, err.Error(), `unknown storage "sqlite"`)
	assert.Contains(t, err.Error(), `unknown log_level "trace"`)
}

func TestValidateProgramAddress(t *testing.T) {
	cfg := Defaults()
	cfg.Program.Address = "not-an-address"
	require.Error(t, cfg.Validate())

	cfg.Program.Address = "0x0000000000000000000000000000000000000000"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero address")
}

func TestValidateOperatorRequiredForResolver(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "resolver"
	cfg.Oracle.Enabled = true
	cfg.Oracle.BaseURL = "http://localhost:9100"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operator")

	cfg.Operator.PrivateKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	require.NoError(t, cfg.Validate())

	// Server mode never resolves markets, so no key is needed.
	cfg.Operator.PrivateKey = ""
	cfg.Mode = "server"
	require.NoError(t, cfg.Validate())
}

func TestValidatePostgresOnlyWhenSelected(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""

	require.Error(t, cfg.Validate())

	cfg.Storage = "memory"
	require.NoError(t, cfg.Validate())
}

func TestValidatePostgresDSNBypassesHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	cfg.Postgres.DSN = "postgres://app:secret@db:5432/predictd"

	require.NoError(t, cfg.Validate())
}

func TestValidateTelegramPair(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "123:abc"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")

	cfg.Notify.TelegramChatID = "-100200300"
	require.NoError(t, cfg.Validate())
}

func TestDurationText(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	require.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTD_MODE", "server")
	t.Setenv("PREDICTD_STORAGE", "memory")
	t.Setenv("PREDICTD_SERVER_PORT", "9001")
	t.Setenv("PREDICTD_SERVER_AUTH_MAX_SKEW", "2m")
	t.Setenv("PREDICTD_SERVER_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PREDICTD_REDIS_ADDR", "redis:6379")
	t.Setenv("PREDICTD_S3_ENABLED", "true")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.AuthMaxSkew.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.S3.Enabled)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Operator.PrivateKey = "0xdeadbeef"
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Notify.TelegramChatID = "-1"

	red := RedactedConfig(&cfg)

	assert.NotEqual(t, cfg.Operator.PrivateKey, red.Operator.PrivateKey)
	assert.NotEqual(t, cfg.Postgres.Password, red.Postgres.Password)
	assert.NotEqual(t, cfg.Notify.TelegramToken, red.Notify.TelegramToken)
	assert.Equal(t, cfg.Server.Port, red.Server.Port)

	// The original must stay untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
