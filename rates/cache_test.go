package rates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a throwaway Redis container and returns its address.
func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("could not terminate redis container: %s", err)
		}
	})

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)
	return addr
}

func TestRedisCache(t *testing.T) {
	cache := NewRedisCache(startRedis(t))
	t.Cleanup(func() { _ = cache.Close() })
	ctx := context.Background()

	require.NoError(t, cache.Ping(ctx))

	t.Run("miss", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, "rates:USD:GBP")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "rates:USD:KZT", "470.5", time.Minute))

		v, ok, err := cache.Get(ctx, "rates:USD:KZT")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "470.5", v)
	})

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "rates:EUR:USD", "1.08", 50*time.Millisecond))
		time.Sleep(200 * time.Millisecond)

		_, ok, err := cache.Get(ctx, "rates:EUR:USD")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("backs the rate service", func(t *testing.T) {
		src := &fakeSource{table: sampleTable()}
		svc := NewService(src, cache, time.Hour, nil, quietLogger())

		first, err := svc.Rate(ctx, "USD", "EUR")
		require.NoError(t, err)
		second, err := svc.Rate(ctx, "USD", "EUR")
		require.NoError(t, err)

		assert.True(t, first.Equal(second))
		assert.Equal(t, 1, src.calls)
	})
}

func TestRedisCacheUnreachable(t *testing.T) {
	cache := NewRedisCache("127.0.0.1:1")
	t.Cleanup(func() { _ = cache.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, cache.Ping(ctx))
}
