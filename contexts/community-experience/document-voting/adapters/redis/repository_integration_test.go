//go:build integration

package redisadapter

import (
	"context"
	"fmt"
	"os"
	"testing"

	"docvote/contexts/community-experience/document-voting/adapters/storetest"
	"docvote/internal/platform/db"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var testRedisAddr string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}
	testRedisAddr = endpoint

	code := m.Run()

	_ = container.Terminate(ctx)
	os.Exit(code)
}

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := goredis.NewClient(&goredis.Options{Addr: testRedisAddr})
	client.AddHook(db.NewCircuitBreakerHook(nil))
	require.NoError(t, client.FlushAll(context.Background()).Err())
	t.Cleanup(func() {
		_ = client.Close()
	})
	return NewRepository(client, nil)
}

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Repository {
		return setupRepository(t)
	})
}
