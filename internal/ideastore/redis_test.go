package ideastore

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	t.Cleanup(func() { _ = redisC.Terminate(ctx) })
	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisPersistenceAndLegacyImport(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	keys := DefaultLegacyKeys()

	if err := client.Set(ctx, keys.Idea, "Dog walking app for busy professionals", 0).Err(); err != nil {
		t.Fatalf("seed legacy idea: %v", err)
	}
	if err := client.Set(ctx, keys.Pinned, "true", 0).Err(); err != nil {
		t.Fatalf("seed legacy pin: %v", err)
	}

	p := NewRedisPersistence(client, "test:ideas")
	s := New(WithLogger(quietLogger()), WithPersistence(p))
	imported, err := s.ImportLegacy(ctx, client, "", keys)
	if err != nil || !imported {
		t.Fatalf("ImportLegacy = %v, %v", imported, err)
	}
	if st, ok := s.Current(""); !ok || !st.Pinned || st.Input.Idea != "Dog walking app for busy professionals" {
		t.Fatalf("legacy idea not imported: %+v", st)
	}
	if n, _ := client.Exists(ctx, keys.Idea, keys.Pinned).Result(); n != 0 {
		t.Fatalf("legacy keys must be deleted, %d remain", n)
	}

	// a second import finds nothing
	imported, err = s.ImportLegacy(ctx, client, "", keys)
	if err != nil || imported {
		t.Fatalf("second ImportLegacy = %v, %v", imported, err)
	}

	// legacy keys never overwrite an existing idea
	if err := client.Set(ctx, keys.Idea, `{"idea":"Meal kits"}`, 0).Err(); err != nil {
		t.Fatalf("seed legacy idea: %v", err)
	}
	if imported, err := s.ImportLegacy(ctx, client, "", keys); err != nil || imported {
		t.Fatalf("ImportLegacy over existing idea = %v, %v", imported, err)
	}

	restarted := New(WithLogger(quietLogger()), WithPersistence(p))
	if err := restarted.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	pinned := restarted.Pinned()
	if len(pinned) != 1 || pinned[0].Input.Idea != "Dog walking app for busy professionals" {
		t.Fatalf("unexpected persisted state %+v", pinned)
	}
}
