package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, validity time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, 6, validity), mr
}

func TestRedisStore_IssueAndVerify(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Minute)

	code, err := store.Issue(ctx, "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("Issue() code length = %d, want 6", len(code))
	}

	ok, err := store.Verify(ctx, "alice", code)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Verify() with correct code = false, want true")
	}

	if ok, _ := store.Verify(ctx, "alice", code); ok {
		t.Error("Verify() after consumption = true, want false")
	}
}

func TestRedisStore_WrongCodeLeavesChallengeUsable(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Minute)

	code, err := store.Issue(ctx, "bob")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	if ok, _ := store.Verify(ctx, "bob", wrong); ok {
		t.Fatal("Verify() with wrong code = true, want false")
	}
	if ok, _ := store.Verify(ctx, "bob", code); !ok {
		t.Error("Verify() with correct code after mismatch = false, want true")
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Second)

	code, err := store.Issue(ctx, "carol")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	mr.FastForward(2 * time.Second)

	if ok, _ := store.Verify(ctx, "carol", code); ok {
		t.Error("Verify() past validity window = true, want false")
	}
}

func TestRedisStore_ReissueSupersedes(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Minute)

	first, err := store.Issue(ctx, "dave")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	second, err := store.Issue(ctx, "dave")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if first != second {
		if ok, _ := store.Verify(ctx, "dave", first); ok {
			t.Error("Verify() with superseded code = true, want false")
		}
	}
	if ok, _ := store.Verify(ctx, "dave", second); !ok {
		t.Error("Verify() with current code = false, want true")
	}
}
