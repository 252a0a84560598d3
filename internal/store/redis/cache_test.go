package redis

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

func TestCache_BreakerOpensWhenRedisDown(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1", // nothing listens here
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := newCache(client, CacheConfig{MaxFailures: 2, ResetTimeout: time.Minute})
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _, err := c.Get(ctx, "ETHUSDT:5m:200")
		if err == nil {
			t.Fatalf("call %d: expected connection error", i)
		}
		if errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d: breaker opened too early", i)
		}
	}

	if c.Breaker().CurrentState() != StateOpen {
		t.Fatalf("expected Open, got %v", c.Breaker().CurrentState())
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Second); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen from Set, got %v", err)
	}
}

func TestCache_BypassesRedisWhileOpen(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := newCache(client, CacheConfig{MaxFailures: 1, ResetTimeout: time.Minute})
	defer c.Close()

	ctx := context.Background()
	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Fatal("expected connection error")
	}

	start := time.Now()
	for i := 0; i < 20; i++ {
		data, hit, err := c.Get(ctx, "k")
		if !errors.Is(err, ErrCircuitOpen) || hit || data != nil {
			t.Fatalf("Get while open: data=%v hit=%v err=%v", data, hit, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("rejected calls took %v; they should not dial", elapsed)
	}

	if !strings.Contains(buf.String(), "[redis] circuit breaker closed -> open") {
		t.Errorf("transition not logged: %q", buf.String())
	}
}

// TestCache_RoundTrip needs a live server: REDIS_TEST_ADDR=localhost:6379.
func TestCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c, err := NewCache(CacheConfig{Addr: addr, Prefix: "test:chart:"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	key := "ETHUSDT:5m:" + time.Now().Format("150405.000000")

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	sub := c.Client().Subscribe(ctx, "pub:test:chart:"+key)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, key, []byte(`[{"close":1}]`), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(data) != `[{"close":1}]` {
		t.Errorf("data = %s", data)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != `[{"close":1}]` {
			t.Errorf("published payload = %s", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Error("no publish received")
	}
	c.Client().Del(ctx, "test:chart:"+key)
}
