package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DSN", "postgres://localhost/test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, StoreMongo, cfg.ChatStore)
	assert.Equal(t, DirectoryPostgres, cfg.UserDirectory)
	assert.Equal(t, FanoutLocal, cfg.FanoutMode)
	assert.Equal(t, ReceiptScopePage, cfg.ReadReceiptScope)
	assert.Equal(t, 10*time.Second, cfg.WSHandshakeTimeout)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DSN", "postgres://localhost/test")
	t.Setenv("CHAT_STORE", "redis")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresCredentialSource(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_GRPC_ADDR", "")
	t.Setenv("DB_DSN", "postgres://localhost/test")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadGRPCDirectory(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("CHAT_STORE", StoreMemory)
	t.Setenv("DB_DSN", "")
	t.Setenv("USER_DIRECTORY", "GRPC")
	t.Setenv("USER_GRPC_ADDR", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("USER_GRPC_ADDR", "users:9090")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DirectoryGRPC, cfg.UserDirectory)
}

func TestLoadBrokerNeedsAMQP(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DSN", "postgres://localhost/test")
	t.Setenv("FANOUT_MODE", "broker")
	t.Setenv("AMQP_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a , ,http://b"))
	assert.Nil(t, splitList(""))
}
