package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

func newIdentity(username string, lastLogin time.Time, active bool) *core.Identity {
	return &core.Identity{
		Username:    username,
		Email:       username + "@x.com",
		DisplayName: username,
		Source:      core.SourceLDAP,
		LastLoginAt: lastLogin,
		Active:      active,
		Roles:       core.NewStringSet("ROLE_USER"),
		Groups:      core.NewStringSet(),
		Attributes:  map[string]string{},
	}
}

func TestMemoryIdentityStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdentityStore()

	if _, err := s.FindByUsername(ctx, "alice"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("FindByUsername() on empty store error = %v, want ErrNotFound", err)
	}

	if err := s.Create(ctx, newIdentity("alice", time.Now(), true)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// lookup is case-insensitive
	got, err := s.FindByUsername(ctx, "ALICE")
	if err != nil {
		t.Fatalf("FindByUsername() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}

	// uniqueness: second create for the same username fails
	if err := s.Create(ctx, newIdentity("Alice", time.Now(), true)); !errors.Is(err, core.ErrDuplicateUsername) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicateUsername", err)
	}
}

func TestMemoryIdentityStore_CloneIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdentityStore()

	identity := newIdentity("bob", time.Now(), true)
	if err := s.Create(ctx, identity); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// mutating the caller's copy must not leak into the store
	identity.Roles.Add("ROLE_ADMIN")
	got, _ := s.FindByUsername(ctx, "bob")
	if got.Roles.Has("ROLE_ADMIN") {
		t.Error("store shares mutable state with caller")
	}
}

func TestMemoryIdentityStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdentityStore()

	if err := s.Update(ctx, newIdentity("ghost", time.Now(), true)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Update() for missing identity error = %v, want ErrNotFound", err)
	}

	identity := newIdentity("carol", time.Now(), true)
	_ = s.Create(ctx, identity)

	identity.Department = "Engineering"
	if err := s.Update(ctx, identity); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := s.FindByUsername(ctx, "carol")
	if got.Department != "Engineering" {
		t.Errorf("Department = %q, want %q", got.Department, "Engineering")
	}
}

func TestMemoryIdentityStore_FindInactiveSince(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdentityStore()
	now := time.Now()

	_ = s.Create(ctx, newIdentity("stale", now.AddDate(0, 0, -120), true))
	_ = s.Create(ctx, newIdentity("fresh", now.AddDate(0, 0, -1), true))
	_ = s.Create(ctx, newIdentity("gone", now.AddDate(0, 0, -120), false))

	got, err := s.FindInactiveSince(ctx, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("FindInactiveSince() error = %v", err)
	}
	if len(got) != 1 || got[0].Username != "stale" {
		t.Errorf("FindInactiveSince() = %v identities, want only 'stale'", len(got))
	}
}

func TestMemoryIdentityStore_Search(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdentityStore()
	now := time.Now()

	a := newIdentity("ann.lee", now, true)
	a.Source = core.SourceOIDC
	_ = s.Create(ctx, a)
	b := newIdentity("bob.ray", now, false)
	_ = s.Create(ctx, b)

	active := true
	got, err := s.Search(ctx, core.IdentityFilter{Active: &active})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].Username != "ann.lee" {
		t.Errorf("Search(active) returned %d identities, want only 'ann.lee'", len(got))
	}

	got, _ = s.Search(ctx, core.IdentityFilter{Query: "RAY"})
	if len(got) != 1 || got[0].Username != "bob.ray" {
		t.Errorf("Search(query) returned %d identities, want only 'bob.ray'", len(got))
	}

	got, _ = s.Search(ctx, core.IdentityFilter{Source: core.SourceOIDC})
	if len(got) != 1 || got[0].Username != "ann.lee" {
		t.Errorf("Search(source) returned %d identities, want only 'ann.lee'", len(got))
	}
}

func TestMemoryRuleStore_ListAllKeepsCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRuleStore([]core.ProvisioningRule{
		{Name: "second", Enabled: true, Order: 2, Source: core.SourceLDAP, Condition: core.ConditionAlways},
		{Name: "disabled", Enabled: false, Order: 0, Source: core.SourceLDAP, Condition: core.ConditionAlways},
		{Name: "first", Enabled: true, Order: 1, Source: core.SourceLDAP, Condition: core.ConditionAlways},
	})

	got, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	// creation order, disabled included: filtering and sorting is the
	// snapshot's job
	if len(got) != 3 || got[0].Name != "second" || got[1].Name != "disabled" || got[2].Name != "first" {
		t.Errorf("ListAll() = %+v, want all rules in creation order", got)
	}
}
