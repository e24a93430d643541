package stats

import (
	"context"
	"fmt"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

// Overview is a point-in-time aggregate over the provisioned identities and
// the configured rules. Cheap enough to compute on demand for dashboards.
type Overview struct {
	TotalUsers           int            `json:"total_users"`
	ActiveUsers          int            `json:"active_users"`
	AutoProvisionedUsers int            `json:"auto_provisioned_users"`
	UsersBySource        map[string]int `json:"users_by_source"`
	UsersByRole          map[string]int `json:"users_by_role"`
	UsersByGroup         map[string]int `json:"users_by_group"`
	TotalRules           int            `json:"total_rules"`
	EnabledRules         int            `json:"enabled_rules"`
}

// Collector aggregates provisioning statistics from the stores.
type Collector struct {
	identities core.IdentityStore
	rules      core.RuleStore
}

func NewCollector(identities core.IdentityStore, rules core.RuleStore) *Collector {
	return &Collector{identities: identities, rules: rules}
}

func (c *Collector) Collect(ctx context.Context) (*Overview, error) {
	identities, err := c.identities.Search(ctx, core.IdentityFilter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	rules, err := c.rules.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRuleLookup, err)
	}

	overview := &Overview{
		TotalUsers:    len(identities),
		UsersBySource: make(map[string]int),
		UsersByRole:   make(map[string]int),
		UsersByGroup:  make(map[string]int),
		TotalRules:    len(rules),
	}
	for _, identity := range identities {
		if identity.Active {
			overview.ActiveUsers++
		}
		if identity.AutoProvisioned {
			overview.AutoProvisionedUsers++
		}
		overview.UsersBySource[string(identity.Source)]++
		for role := range identity.Roles {
			overview.UsersByRole[role]++
		}
		for group := range identity.Groups {
			overview.UsersByGroup[group]++
		}
	}
	for _, rule := range rules {
		if rule.Enabled {
			overview.EnabledRules++
		}
	}
	return overview, nil
}
