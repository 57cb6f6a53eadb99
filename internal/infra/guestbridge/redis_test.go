//go:build e2e

package guestbridge_test

import (
	"context"
	"testing"
	"time"

	"flightshare/internal/infra/guestbridge"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/shared"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Redisコンテナの起動に失敗")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStore(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("保存して一度だけ取り出せる", func(t *testing.T) {
		now := time.Now().UTC()
		store := guestbridge.NewRedisStore(client, func() time.Time { return now })
		b := newBridge(t, now, 30*time.Minute)

		require.NoError(t, store.Save(ctx, b))

		ttl, err := client.TTL(ctx, "guest_bridge:"+b.TicketID.String()).Result()
		require.NoError(t, err)
		assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 5)

		got, err := store.Take(ctx, b.TicketID)
		require.NoError(t, err)
		assert.Equal(t, b.OfferID, got.OfferID)
		assert.True(t, b.ExpiresAt.Equal(got.ExpiresAt))

		_, err = store.Take(ctx, b.TicketID)
		require.ErrorIs(t, err, shared.ErrBridgeNotFound)
	})

	t.Run("同じチケットの二重保存は拒否", func(t *testing.T) {
		now := time.Now().UTC()
		store := guestbridge.NewRedisStore(client, func() time.Time { return now })
		b := newBridge(t, now, time.Minute)

		require.NoError(t, store.Save(ctx, b))
		require.ErrorIs(t, store.Save(ctx, b), shared.ErrBridgeExists)
	})

	t.Run("期限切れのブリッジは保存しない", func(t *testing.T) {
		now := time.Now().UTC()
		b := newBridge(t, now, time.Minute)
		store := guestbridge.NewRedisStore(client, func() time.Time { return now.Add(2 * time.Minute) })

		err := store.Save(ctx, b)
		assert.True(t, errs.Is(err, errs.ErrContinuationExpired))
	})

	t.Run("TTL経過でRedisから消える", func(t *testing.T) {
		now := time.Now().UTC()
		store := guestbridge.NewRedisStore(client, func() time.Time { return now })
		b := newBridge(t, now, 1500*time.Millisecond)

		require.NoError(t, store.Save(ctx, b))
		time.Sleep(2 * time.Second)

		_, err := store.Take(ctx, b.TicketID)
		require.ErrorIs(t, err, shared.ErrBridgeNotFound)
	})
}
