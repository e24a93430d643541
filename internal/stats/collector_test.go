package stats

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
	"github.com/abusaleh34/secure-cas-commercial/internal/store"
)

func TestCollector_Collect(t *testing.T) {
	ctx := context.Background()
	identities := store.NewMemoryIdentityStore()

	now := time.Now()
	seed := []*core.Identity{
		{
			Username: "alee", Source: core.SourceLDAP, Active: true, AutoProvisioned: true,
			ProvisionedAt: now, LastLoginAt: now,
			Roles:  core.NewStringSet("ROLE_USER", "ROLE_INTERNAL"),
			Groups: core.NewStringSet("Development"),
		},
		{
			Username: "bpark", Source: core.SourceLDAP, Active: false, AutoProvisioned: true,
			ProvisionedAt: now, LastLoginAt: now,
			Roles: core.NewStringSet("ROLE_USER"),
		},
		{
			Username: "admin", Source: core.SourceManual, Active: true, AutoProvisioned: false,
			ProvisionedAt: now, LastLoginAt: now,
			Roles: core.NewStringSet("ROLE_ADMIN"),
		},
	}
	for _, identity := range seed {
		if err := identities.Create(ctx, identity); err != nil {
			t.Fatalf("Create(%s) error = %v", identity.Username, err)
		}
	}

	rules := store.NewMemoryRuleStore([]core.ProvisioningRule{
		{Name: "on", Enabled: true, Source: core.SourceLDAP, Condition: core.ConditionAlways, Roles: core.NewStringSet("ROLE_A")},
		{Name: "off", Enabled: false, Source: core.SourceLDAP, Condition: core.ConditionAlways, Roles: core.NewStringSet("ROLE_B")},
	})

	got, err := NewCollector(identities, rules).Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := &Overview{
		TotalUsers:           3,
		ActiveUsers:          2,
		AutoProvisionedUsers: 2,
		UsersBySource:        map[string]int{"LDAP": 2, "MANUAL": 1},
		UsersByRole:          map[string]int{"ROLE_USER": 2, "ROLE_INTERNAL": 1, "ROLE_ADMIN": 1},
		UsersByGroup:         map[string]int{"Development": 1},
		TotalRules:           2,
		EnabledRules:         1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollector_CollectEmpty(t *testing.T) {
	collector := NewCollector(store.NewMemoryIdentityStore(), store.NewMemoryRuleStore(nil))

	got, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got.TotalUsers != 0 || got.TotalRules != 0 {
		t.Errorf("Collect() on empty stores = %+v, want zeroes", got)
	}
}
