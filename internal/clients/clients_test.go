package clients

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eternalist/theprintfarm/internal/config"
)

func TestNewWithoutOptionalServices(t *testing.T) {
	c, err := New(context.Background(), config.Config{SendGridFromEmail: "noreply@theprintfarm.com"})
	require.NoError(t, err)
	assert.Nil(t, c.Identity)
	assert.Nil(t, c.Redis)
	assert.NotNil(t, c.Mail)
	assert.False(t, c.Mail.Configured())
	assert.NoError(t, c.Close())
}

func TestNewWithRedisAndIdentity(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), config.Config{
		RedisAddr:       mr.Addr(),
		SupabaseURL:     "https://example.supabase.co",
		SupabaseAnonKey: "anon",
	})
	require.NoError(t, err)
	defer c.Close()
	assert.NotNil(t, c.Identity)
	require.NotNil(t, c.Redis)
	assert.NoError(t, c.Redis.Ping(context.Background()).Err())
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), config.Config{RedisAddr: addr})
	assert.Error(t, err)
}
