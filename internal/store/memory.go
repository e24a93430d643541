package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

var _ core.IdentityStore = (*MemoryIdentityStore)(nil)

// MemoryIdentityStore keeps identities in process memory, keyed by
// lower-cased username. The map key is the uniqueness constraint the engine
// relies on for the creation race.
type MemoryIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*core.Identity
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		identities: make(map[string]*core.Identity),
	}
}

func key(username string) string {
	return strings.ToLower(username)
}

func (s *MemoryIdentityStore) FindByUsername(_ context.Context, username string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[key(username)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return identity.Clone(), nil
}

func (s *MemoryIdentityStore) Create(_ context.Context, identity *core.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(identity.Username)
	if _, exists := s.identities[k]; exists {
		return core.ErrDuplicateUsername
	}
	s.identities[k] = identity.Clone()
	return nil
}

func (s *MemoryIdentityStore) Update(_ context.Context, identity *core.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(identity.Username)
	if _, exists := s.identities[k]; !exists {
		return core.ErrNotFound
	}
	s.identities[k] = identity.Clone()
	return nil
}

func (s *MemoryIdentityStore) FindInactiveSince(_ context.Context, threshold time.Time) ([]*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*core.Identity
	for _, identity := range s.identities {
		if !identity.Active {
			continue
		}
		if !identity.LastLoginAt.IsZero() && identity.LastLoginAt.Before(threshold) {
			matches = append(matches, identity.Clone())
		}
	}
	sortByUsername(matches)
	return matches, nil
}

func (s *MemoryIdentityStore) Search(_ context.Context, filter core.IdentityFilter) ([]*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(filter.Query)

	var matches []*core.Identity
	for _, identity := range s.identities {
		if filter.Source != "" && identity.Source != filter.Source {
			continue
		}
		if filter.Active != nil && identity.Active != *filter.Active {
			continue
		}
		if query != "" && !matchesQuery(identity, query) {
			continue
		}
		matches = append(matches, identity.Clone())
	}
	sortByUsername(matches)
	return matches, nil
}

func matchesQuery(identity *core.Identity, query string) bool {
	return strings.Contains(strings.ToLower(identity.Username), query) ||
		strings.Contains(strings.ToLower(identity.Email), query) ||
		strings.Contains(strings.ToLower(identity.DisplayName), query)
}

func sortByUsername(identities []*core.Identity) {
	sort.Slice(identities, func(i, j int) bool {
		return identities[i].Username < identities[j].Username
	})
}

var _ core.RuleStore = (*MemoryRuleStore)(nil)

// MemoryRuleStore serves provisioning rules from memory, typically seeded
// from the configuration file. Creation order is the tie-breaker for equal
// Order values.
type MemoryRuleStore struct {
	mu    sync.RWMutex
	rules []core.ProvisioningRule
}

func NewMemoryRuleStore(rules []core.ProvisioningRule) *MemoryRuleStore {
	s := &MemoryRuleStore{}
	s.rules = append(s.rules, rules...)
	return s
}

// Replace swaps the whole rule set, e.g. on configuration reload.
func (s *MemoryRuleStore) Replace(rules []core.ProvisioningRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules[:0:0], rules...)
}

func (s *MemoryRuleStore) ListAll(_ context.Context) ([]core.ProvisioningRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]core.ProvisioningRule, len(s.rules))
	copy(rules, s.rules)
	return rules, nil
}
