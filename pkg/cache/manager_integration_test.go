//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})
	return client
}

func TestIntegration_ManagerExpiry(t *testing.T) {
	m := NewManager(setupRedisContainer(t)).WithStaleRetention(0)
	ctx := context.Background()

	if err := m.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	entry := &Entry{Data: []byte("x"), StatusCode: 200, Expires: time.Now().Add(time.Second), CachedAt: time.Now()}
	if err := m.Set(ctx, testKey("1"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := m.Get(ctx, testKey("1")); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := m.Get(ctx, testKey("1")); err != ErrCacheMiss {
		t.Errorf("entry should have expired in Redis, got %v", err)
	}
}
