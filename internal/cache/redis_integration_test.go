//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisClient_RoundTrip(t *testing.T) {
	client, err := NewRedisClient(RedisConfig{Addr: startRedis(t), PoolSize: 2})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	key := Key("gen", "abc123")

	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, client.Set(ctx, key, []byte(`{"text":"analysis"}`), time.Minute))
	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"analysis"}`, string(got))

	require.NoError(t, client.Delete(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisClient_Expiry(t *testing.T) {
	client, err := NewRedisClient(RedisConfig{Addr: startRedis(t)})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "short", []byte("v"), time.Second))

	assert.Eventually(t, func() bool {
		_, err := client.Get(ctx, "short")
		return err == ErrCacheMiss
	}, 5*time.Second, 100*time.Millisecond)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(RedisConfig{Addr: "127.0.0.1:1"})
	assert.ErrorContains(t, err, "redis ping failed")
}
