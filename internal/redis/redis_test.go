package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDefaults(t *testing.T) {
	v := viper.New()
	Setup(v, "redis")

	var cfg struct {
		Redis Config `mapstructure:"redis"`
	}
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.Redis.ReadTimeout)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}

func TestNewClientPing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(&Config{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, Ping(context.Background(), client))

	mr.Close()
	assert.Error(t, Ping(context.Background(), client))
}
