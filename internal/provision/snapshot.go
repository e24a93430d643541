package provision

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

// compiledRule is a rule with its ATTRIBUTE_MATCHES pattern pre-compiled so
// evaluation on the login hot path never recompiles regexes.
type compiledRule struct {
	core.ProvisioningRule
	re *regexp.Regexp
}

// Snapshot is an immutable view of the enabled rules, partitioned by source
// and sorted ascending by Order. Every provisioning call evaluates against
// exactly one snapshot, so administrator edits never interleave
// mid-evaluation.
type Snapshot struct {
	bySource map[core.Source][]compiledRule
	loadedAt time.Time
}

func (s *Snapshot) rulesFor(source core.Source) []compiledRule {
	return s.bySource[source]
}

// LoadedAt reports when this snapshot was taken from the rule store.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// RuleSet manages the current rule snapshot. Reads are lock-free; Refresh
// swaps in a new snapshot atomically.
type RuleSet struct {
	store   core.RuleStore
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

func NewRuleSet(store core.RuleStore) *RuleSet {
	return &RuleSet{store: store}
}

// Snapshot returns the current snapshot, loading one from the store if none
// has been taken yet. Load failures wrap core.ErrRuleLookup.
func (rs *RuleSet) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := rs.current.Load(); snap != nil {
		return snap, nil
	}
	return rs.Refresh(ctx)
}

// Refresh re-reads all rules from the store and swaps in a fresh snapshot.
// Called at startup and whenever administrators edit rules (or on the
// configured interval); until then provisioning sees the previous snapshot,
// which is the documented staleness bound.
func (rs *RuleSet) Refresh(ctx context.Context) (*Snapshot, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rules, err := rs.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRuleLookup, err)
	}

	snap := buildSnapshot(rules)
	rs.current.Store(snap)
	return snap, nil
}

func buildSnapshot(rules []core.ProvisioningRule) *Snapshot {
	snap := &Snapshot{
		bySource: make(map[core.Source][]compiledRule),
		loadedAt: time.Now(),
	}
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		cr := compiledRule{ProvisioningRule: rule}
		if rule.Condition == core.ConditionAttributeMatches {
			re, err := compilePattern(rule.ConditionValue)
			if err != nil {
				// fail closed for this rule only; one malformed rule
				// must not block provisioning for all users
				log.Warn().Err(err).Str("rule", rule.Name).
					Msg("rule has an unparsable pattern and will never match")
			} else {
				cr.re = re
			}
		}
		snap.bySource[rule.Source] = append(snap.bySource[rule.Source], cr)
	}
	for source := range snap.bySource {
		partition := snap.bySource[source]
		// stable keeps creation order for equal Order values
		sort.SliceStable(partition, func(i, j int) bool {
			return partition[i].Order < partition[j].Order
		})
	}
	return snap
}
