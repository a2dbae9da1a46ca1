//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"esign/internal/platform/config"
	platformredis "esign/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a throwaway Redis reached through the same client
// constructor the server uses, so pool options and the startup ping are
// exercised too.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *platformredis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err == nil {
		var client *platformredis.Client
		client, err = platformredis.New(ctx, config.RedisConfig{URL: url, PoolSize: 4})
		if err == nil {
			return &RedisContainer{Container: container, URL: url, Client: client}
		}
	}

	_ = container.Terminate(ctx)
	t.Fatalf("connect redis: %v", err)
	return nil
}

// FlushAll clears the token cache, notification queue and rate limit keys
// left by a previous test.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
