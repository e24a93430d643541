// Package challenge implements the one-time code second factor: issuance,
// time-boxed verification and single-use consumption. A principal has at
// most one live challenge; re-issuing supersedes the previous one.
package challenge

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const (
	DefaultCodeLength = 6
	DefaultValidity   = 5 * time.Minute
)

// Store is the per-principal challenge state machine:
// absent -> issued -> (verified | expired | superseded).
type Store interface {
	// Issue generates a fresh code for the principal, superseding any
	// prior unconsumed challenge.
	Issue(ctx context.Context, principal string) (string, error)

	// Verify checks the supplied code. A match consumes the challenge
	// (single use); a mismatch leaves it intact so the real code can be
	// retried until expiry. Expired or absent challenges verify false.
	Verify(ctx context.Context, principal, code string) (bool, error)
}

// generateCode draws each digit independently and uniformly from a
// cryptographically strong source.
func generateCode(length int) (string, error) {
	ten := big.NewInt(10)
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generating challenge code: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	code     string
	issuedAt time.Time
}

// MemoryStore keeps challenges in process memory. Entries do not survive a
// restart, which is acceptable: a lost challenge simply fails verification
// and the user requests a new code.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	codeLength int
	validity   time.Duration
	now        func() time.Time
}

func NewMemoryStore(codeLength int, validity time.Duration) *MemoryStore {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		codeLength: codeLength,
		validity:   validity,
		now:        time.Now,
	}
}

func (s *MemoryStore) Issue(_ context.Context, principal string) (string, error) {
	code, err := generateCode(s.codeLength)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.entries[principal] = memoryEntry{code: code, issuedAt: s.now()}
	s.mu.Unlock()

	return code, nil
}

func (s *MemoryStore) Verify(_ context.Context, principal, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[principal]
	if !ok {
		return false, nil
	}

	// lazy expiry, no background sweeper needed
	if s.now().Sub(entry.issuedAt) > s.validity {
		delete(s.entries, principal)
		return false, nil
	}

	if entry.code != code {
		return false, nil
	}

	delete(s.entries, principal)
	return true, nil
}
