package idemstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(16, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	steps := []struct {
		name    string
		advance time.Duration
		forget  bool
		want    bool
	}{
		{name: "first", want: true},
		{name: "redelivered", want: false},
		{name: "still remembered", advance: 59 * time.Second, want: false},
		{name: "expired", advance: 2 * time.Minute, want: true},
		{name: "forgotten", forget: true, want: true},
	}

	for _, step := range steps {
		now = now.Add(step.advance)
		if step.forget {
			if err := s.Forget(ctx, "evt"); err != nil {
				t.Fatal(err)
			}
		}
		got, err := s.SetIfAbsent(ctx, "evt")
		if err != nil {
			t.Fatalf("%s: did not want error, got=%v", step.name, err)
		}
		if got != step.want {
			t.Errorf("%s: got=%v want=%v", step.name, got, step.want)
		}
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}

	s := NewRedisStore(client, time.Minute)
	key := "idemstore-test:" + time.Now().Format(time.RFC3339Nano)
	defer client.Del(ctx, key)

	first, err := s.SetIfAbsent(ctx, key)
	if err != nil || !first {
		t.Fatalf("expected first set to win first=%v err=%v", first, err)
	}
	second, err := s.SetIfAbsent(ctx, key)
	if err != nil || second {
		t.Fatalf("expected second set to lose second=%v err=%v", second, err)
	}
	if err := s.Forget(ctx, key); err != nil {
		t.Fatal(err)
	}
	again, err := s.SetIfAbsent(ctx, key)
	if err != nil || !again {
		t.Fatalf("expected set after forget to win again=%v err=%v", again, err)
	}
}
