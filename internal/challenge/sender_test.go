package challenge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

type fakeTransport struct {
	messages []string
	fail     bool
}

func (f *fakeTransport) SendSMS(_ context.Context, _, message string) error {
	if f.fail {
		return errors.New("gateway down")
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeTransport) SendEmail(_ context.Context, _, _, body string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.messages = append(f.messages, body)
	return nil
}

func TestSender_SendViaSMS(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(6, time.Minute)
	transport := &fakeTransport{}
	sender := NewSender(store, transport, nil, time.Minute)

	if err := sender.SendViaSMS(ctx, "alice", "+100000000"); err != nil {
		t.Fatalf("SendViaSMS() error = %v", err)
	}
	if len(transport.messages) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(transport.messages))
	}

	// the delivered code must verify
	code := strings.TrimPrefix(transport.messages[0], "Your SecureCAS verification code is: ")
	if ok, _ := store.Verify(ctx, "alice", code); !ok {
		t.Error("delivered code did not verify")
	}
}

func TestSender_TransportFailureKeepsChallengeValid(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(6, time.Minute)
	sender := NewSender(store, &fakeTransport{fail: true}, nil, time.Minute)

	err := sender.SendViaSMS(ctx, "bob", "+100000000")
	if !errors.Is(err, core.ErrDelivery) {
		t.Fatalf("SendViaSMS() error = %v, want ErrDelivery", err)
	}

	// the challenge was issued before delivery failed and stays live
	store.mu.Lock()
	entry, exists := store.entries["bob"]
	store.mu.Unlock()
	if !exists {
		t.Fatal("transport failure invalidated the issued challenge")
	}
	if ok, _ := store.Verify(ctx, "bob", entry.code); !ok {
		t.Error("issued challenge did not verify after delivery failure")
	}
}

func TestSender_NoTransportConfigured(t *testing.T) {
	sender := NewSender(NewMemoryStore(6, time.Minute), nil, nil, time.Minute)

	if err := sender.SendViaSMS(context.Background(), "x", "y"); !errors.Is(err, core.ErrDelivery) {
		t.Errorf("SendViaSMS() error = %v, want ErrDelivery", err)
	}
	if err := sender.SendViaEmail(context.Background(), "x", "y"); !errors.Is(err, core.ErrDelivery) {
		t.Errorf("SendViaEmail() error = %v, want ErrDelivery", err)
	}
}
