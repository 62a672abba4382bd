package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("REGISTRY_OWNER", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	t.Setenv("REGISTRY_TRUSTED_CALLER", "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "main", cfg.Registry.ID)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, ForwarderHeader, cfg.Forwarder.Mode)
	assert.False(t, cfg.Kafka.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/registry")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Run("missing bootstrap identities", func(t *testing.T) {
		t.Setenv("REGISTRY_OWNER", "")
		t.Setenv("REGISTRY_TRUSTED_CALLER", "")
		err := FromEnv().Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REGISTRY_OWNER")
		assert.Contains(t, err.Error(), "REGISTRY_TRUSTED_CALLER")
	})

	t.Run("unknown backend", func(t *testing.T) {
		setRequired(t)
		t.Setenv("STORE_BACKEND", "etcd")
		assert.ErrorContains(t, FromEnv().Validate(), `unknown STORE_BACKEND "etcd"`)
	})

	t.Run("redis backend needs url", func(t *testing.T) {
		setRequired(t)
		t.Setenv("STORE_BACKEND", "redis")
		assert.ErrorContains(t, FromEnv().Validate(), "REDIS_URL")
	})

	t.Run("jwt mode needs a strong key", func(t *testing.T) {
		setRequired(t)
		t.Setenv("FORWARDER_MODE", "jwt")
		t.Setenv("FORWARDER_SIGNING_KEY", "short")
		assert.ErrorContains(t, FromEnv().Validate(), "FORWARDER_SIGNING_KEY")
	})
}
