package challenge

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_IssueAndVerify(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(6, time.Minute)

	code, err := store.Issue(ctx, "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("Issue() code length = %d, want 6", len(code))
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("Issue() code %q contains non-digit", code)
		}
	}

	ok, err := store.Verify(ctx, "alice", code)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Verify() with correct code = false, want true")
	}

	// single use: the same code must not verify twice
	ok, _ = store.Verify(ctx, "alice", code)
	if ok {
		t.Error("Verify() after consumption = true, want false")
	}
}

func TestMemoryStore_WrongCodeLeavesChallengeUsable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(6, time.Minute)

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

	// the original challenge survives the failed attempt
	if ok, _ := store.Verify(ctx, "bob", code); !ok {
		t.Error("Verify() with correct code after mismatch = false, want true")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(6, time.Second)

	now := time.Now()
	store.now = func() time.Time { return now }

	code, err := store.Issue(ctx, "carol")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	now = now.Add(1500 * time.Millisecond)
	if ok, _ := store.Verify(ctx, "carol", code); ok {
		t.Error("Verify() past validity window = true, want false")
	}

	// the expired entry was discarded, not just rejected
	store.mu.Lock()
	_, exists := store.entries["carol"]
	store.mu.Unlock()
	if exists {
		t.Error("expired entry was not discarded")
	}
}

func TestMemoryStore_ReissueSupersedes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(8, time.Minute)

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

func TestMemoryStore_UnknownPrincipal(t *testing.T) {
	store := NewMemoryStore(6, time.Minute)
	if ok, _ := store.Verify(context.Background(), "nobody", "123456"); ok {
		t.Error("Verify() for unknown principal = true, want false")
	}
}
