package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisLocker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()
	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer func() { _ = client.Close() }()

	a, b := NewRedisLocker(client), NewRedisLocker(client)
	release, ok, err := a.Acquire(ctx, "lock:u1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v", ok, err)
	}
	if _, ok, err := b.Acquire(ctx, "lock:u1", time.Minute); err != nil || ok {
		t.Fatalf("second Acquire must fail while held, got %v, %v", ok, err)
	}
	release()
	releaseB, ok, err := b.Acquire(ctx, "lock:u1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire after release = %v, %v", ok, err)
	}

	// a stale release never drops someone else's lock
	release()
	if n, _ := client.Exists(ctx, "lock:u1").Result(); n != 1 {
		t.Fatalf("stale release deleted the current holder's lock")
	}
	releaseB()
	if n, _ := client.Exists(ctx, "lock:u1").Result(); n != 0 {
		t.Fatalf("lock still held after release")
	}
}
