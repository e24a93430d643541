package core

import (
	"context"
	"time"
)

// IdentityFilter narrows an identity search. Zero values mean "any".
type IdentityFilter struct {
	Source Source
	Active *bool
	// Query is a case-insensitive substring matched against username,
	// email and display name.
	Query string
}

// IdentityStore is durable keyed storage for identity records. The store,
// not the engine, enforces username uniqueness; correctness under concurrent
// first logins rests on that constraint.
type IdentityStore interface {
	// FindByUsername looks up an identity case-insensitively.
	// Returns ErrNotFound on a miss.
	FindByUsername(ctx context.Context, username string) (*Identity, error)

	// Create inserts a new identity. Returns ErrDuplicateUsername when the
	// username is already taken.
	Create(ctx context.Context, identity *Identity) error

	// Update persists changes to an existing identity.
	// Returns ErrNotFound when the identity does not exist.
	Update(ctx context.Context, identity *Identity) error

	// FindInactiveSince returns active identities whose last login is
	// older than threshold.
	FindInactiveSince(ctx context.Context, threshold time.Time) ([]*Identity, error)

	// Search returns identities matching the filter.
	Search(ctx context.Context, filter IdentityFilter) ([]*Identity, error)
}

// RuleStore is read-only access to administrator-authored provisioning
// rules. The engine never edits rules; it reads the full set and builds its
// own per-source snapshot, so one query per refresh suffices.
type RuleStore interface {
	// ListAll returns every rule regardless of state, in creation order.
	ListAll(ctx context.Context) ([]ProvisioningRule, error)
}

// SMSSender delivers a text message. Opaque to the challenge state machine.
type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// EmailSender delivers a mail message. Opaque to the challenge state machine.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}
