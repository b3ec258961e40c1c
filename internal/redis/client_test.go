package redisdb

import (
	"testing"

	"carelink/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_BasicConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Password = "pw"
	cfg.Redis.DB = 15

	client := NewClient(cfg)
	require.NotNil(t, client)

	opts := client.Options()
	assert.Equal(t, cfg.Redis.Addr, opts.Addr)
	assert.Equal(t, cfg.Redis.Password, opts.Password)
	assert.Equal(t, cfg.Redis.DB, opts.DB)
}
