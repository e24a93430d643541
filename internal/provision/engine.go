package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/abusaleh34/secure-cas-commercial/internal/audit"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

// Config parameterizes the engine. Zero value is usable: subsystem on, all
// sources enabled, attribute sync on every login, ROLE_USER fallback.
type Config struct {
	// Disabled turns provisioning off entirely; every Provision call is
	// refused regardless of source.
	Disabled bool

	// DefaultRoles are granted when no matching rule assigned any role.
	DefaultRoles []string

	// SyncAttributesOnLogin re-maps attributes on every login. When false,
	// attributes are only captured at creation.
	SyncAttributesOnLogin bool

	// EnabledSources limits provisioning to the listed sources.
	// Nil means every source is enabled.
	EnabledSources map[core.Source]bool
}

func (c Config) sourceEnabled(source core.Source) bool {
	if c.EnabledSources == nil {
		return true
	}
	return c.EnabledSources[source]
}

// Event is the domain notification emitted once per Provision call.
// Subscribers must be idempotent; ordering across subscribers is not
// guaranteed.
type Event struct {
	Identity   *core.Identity
	IsNewUser  bool
	Source     core.Source
	Attributes core.Attributes
	Time       time.Time
}

type Subscriber func(Event)

// Engine is the provisioning reconciliation engine. It is invoked
// synchronously on the authentication hot path and is safe for concurrent
// use; correctness under concurrent first logins rests on the identity
// store's username uniqueness constraint, not on in-process locking.
type Engine struct {
	identities core.IdentityStore
	rules      *RuleSet
	auditor    core.Auditor
	cfg        Config

	now func() time.Time

	subMu sync.RWMutex
	subs  []Subscriber
}

func NewEngine(identities core.IdentityStore, rules *RuleSet, auditor core.Auditor, cfg Config) *Engine {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	if len(cfg.DefaultRoles) == 0 {
		cfg.DefaultRoles = []string{"ROLE_USER"}
	}
	return &Engine{
		identities: identities,
		rules:      rules,
		auditor:    auditor,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Subscribe registers a notification subscriber. Subscribers run inline on
// the provisioning path and must return quickly.
func (e *Engine) Subscribe(fn Subscriber) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subs = append(e.subs, fn)
}

// Provision reconciles one successful external authentication into a local
// identity: create-or-update, rule application, persistence, audit,
// notification. Returns the reconciled identity with its entitlements.
func (e *Engine) Provision(ctx context.Context, username string, attrs core.Attributes, source core.Source) (*core.Identity, error) {
	if e.cfg.Disabled {
		return nil, fmt.Errorf("%w: JIT provisioning is disabled", core.ErrSourceDisabled)
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("unknown provisioning source '%s'", source)
	}
	if !e.cfg.sourceEnabled(source) {
		return nil, fmt.Errorf("%w: %s", core.ErrSourceDisabled, source)
	}
	key := strings.ToLower(strings.TrimSpace(username))
	if key == "" {
		return nil, fmt.Errorf("username must not be empty")
	}

	existing, err := e.identities.FindByUsername(ctx, key)
	switch {
	case err == nil:
		return e.reconcile(ctx, existing, attrs, source)
	case errors.Is(err, core.ErrNotFound):
		// first login from any source, take the create path
	default:
		return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}

	identity, err := e.create(ctx, key, attrs, source)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, core.ErrDuplicateUsername) {
		return nil, err
	}

	// A concurrent first login won the creation race. Re-fetch and fall
	// back to the update path instead of surfacing a hard failure.
	log.Debug().Str("username", key).Msg("lost identity creation race, retrying as update")
	existing, err = e.identities.FindByUsername(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return e.reconcile(ctx, existing, attrs, source)
}

func (e *Engine) create(ctx context.Context, username string, attrs core.Attributes, source core.Source) (*core.Identity, error) {
	now := e.now()
	identity := &core.Identity{
		Username:        username,
		Source:          source,
		ProvisionedAt:   now,
		LastLoginAt:     now,
		LastUpdatedAt:   now,
		Active:          true,
		AutoProvisioned: true,
		Roles:           core.NewStringSet(),
		Groups:          core.NewStringSet(),
	}
	mapFields(username, attrs).applyTo(identity)

	snap, err := e.rules.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	e.applyRules(identity, attrs, source, snap)

	if err := e.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, core.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}

	log.Info().Str("username", username).Str("source", string(source)).
		Msg("provisioned new identity")

	e.audit(core.ActionUserCreated, identity, "created")
	e.notify(Event{
		Identity:   identity.Clone(),
		IsNewUser:  true,
		Source:     source,
		Attributes: attrs,
		Time:       now,
	})
	return identity, nil
}

func (e *Engine) reconcile(ctx context.Context, existing *core.Identity, attrs core.Attributes, source core.Source) (*core.Identity, error) {
	now := e.now()
	identity := existing.Clone()
	identity.LastLoginAt = now

	dirty := false
	if e.cfg.SyncAttributesOnLogin {
		dirty = mapFields(identity.Username, attrs).applyTo(identity)
	}
	if dirty {
		snap, err := e.rules.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		e.applyRules(identity, attrs, source, snap)
		identity.LastUpdatedAt = now
	}

	if err := e.identities.Update(ctx, identity); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}

	if dirty {
		e.audit(core.ActionUserUpdated, identity, "updated")
	}
	e.notify(Event{
		Identity:   identity.Clone(),
		IsNewUser:  false,
		Source:     source,
		Attributes: attrs,
		Time:       now,
	})
	return identity, nil
}

// applyRules evaluates the snapshot's rules for the source that asserted the
// current login in ascending order and unions every matching rule's grants.
// Grants only accumulate; no rule can revoke what an earlier rule assigned.
// The login source decides the partition, not the source the identity was
// created from, so an LDAP-created identity logging in via OIDC is evaluated
// against the OIDC rules.
func (e *Engine) applyRules(identity *core.Identity, attrs core.Attributes, source core.Source, snap *Snapshot) {
	for _, rule := range snap.rulesFor(source) {
		if !matchesCompiled(rule.ProvisioningRule, rule.re, attrs) {
			continue
		}
		log.Debug().Str("rule", rule.Name).Str("username", identity.Username).
			Msg("provisioning rule matched")
		identity.Roles.Union(rule.Roles)
		identity.Groups.Union(rule.Groups)
	}
	if len(identity.Roles) == 0 {
		identity.Roles.Add(e.cfg.DefaultRoles...)
	}
}

// Deactivate soft-deletes an identity. A missing identity is a no-op, not
// an error.
func (e *Engine) Deactivate(ctx context.Context, username string) error {
	return e.setActive(ctx, username, false, core.ActionUserDeactivated, "User deactivated")
}

// Activate reverses a deactivation without clearing history.
func (e *Engine) Activate(ctx context.Context, username string) error {
	return e.setActive(ctx, username, true, core.ActionUserReactivated, "User reactivated")
}

func (e *Engine) setActive(ctx context.Context, username string, active bool, action, details string) error {
	key := strings.ToLower(strings.TrimSpace(username))
	identity, err := e.identities.FindByUsername(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}

	identity = identity.Clone()
	identity.Active = active
	identity.LastUpdatedAt = e.now()
	if err := e.identities.Update(ctx, identity); err != nil {
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}

	e.record(core.AuditRecord{
		ID:        xid.New().String(),
		Time:      e.now(),
		Action:    action,
		Principal: identity.Username,
		Success:   true,
		Details:   details,
	})
	return nil
}

// FindInactive returns active identities whose last login is older than
// daysInactive days. Read-only, no side effects.
func (e *Engine) FindInactive(ctx context.Context, daysInactive int) ([]*core.Identity, error) {
	threshold := e.now().AddDate(0, 0, -daysInactive)
	identities, err := e.identities.FindInactiveSince(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return identities, nil
}

// DeactivateInactive deactivates every identity inactive for more than
// daysInactive days and returns how many were deactivated.
func (e *Engine) DeactivateInactive(ctx context.Context, daysInactive int) (int, error) {
	identities, err := e.FindInactive(ctx, daysInactive)
	if err != nil {
		return 0, err
	}
	for i, identity := range identities {
		if err := e.Deactivate(ctx, identity.Username); err != nil {
			return i, err
		}
	}
	return len(identities), nil
}

func (e *Engine) audit(action string, identity *core.Identity, verb string) {
	e.record(core.AuditRecord{
		ID:        xid.New().String(),
		Time:      e.now(),
		Action:    action,
		Principal: identity.Username,
		Success:   true,
		Details: fmt.Sprintf("JIT provisioning %s user %s from %s. Roles: %v, Groups: %v",
			verb, identity.Username, identity.Source, identity.Roles.Values(), identity.Groups.Values()),
	})
}

// record writes an audit record. Audit failures are reported but never
// unwind a successful identity persistence.
func (e *Engine) record(rec core.AuditRecord) {
	if err := e.auditor.Record(rec); err != nil {
		log.Error().Err(err).Str("action", rec.Action).Str("principal", rec.Principal).
			Msg("failed to write audit record")
	}
}

func (e *Engine) notify(evt Event) {
	e.subMu.RLock()
	subs := make([]Subscriber, len(e.subs))
	copy(subs, e.subs)
	e.subMu.RUnlock()

	for _, fn := range subs {
		fn(evt)
	}
}
