package core

import "time"

// Audit actions emitted by the provisioning engine and the MFA surface.
const (
	ActionUserCreated     = "JIT_USER_CREATED"
	ActionUserUpdated     = "JIT_USER_UPDATED"
	ActionUserDeactivated = "JIT_USER_DEACTIVATED"
	ActionUserReactivated = "JIT_USER_REACTIVATED"

	ActionChallengeIssued   = "MFA_OTP_ISSUED"
	ActionChallengeVerified = "MFA_OTP_VERIFIED"
)

// AuditRecord is an append-only security event. Records are never mutated
// after creation.
type AuditRecord struct {
	// ID is the unique record ID (correlation ID when available).
	ID string `json:"id"`

	Time time.Time `json:"time"`

	// Action is the event tag, e.g. JIT_USER_CREATED.
	Action string `json:"action"`

	// Principal identifies whom the event is about.
	Principal string `json:"principal"`

	Service  string `json:"service,omitempty"`
	ClientIP string `json:"client_ip,omitempty"`

	Success bool `json:"success"`

	// Details is free text describing the outcome.
	Details string `json:"details,omitempty"`
}

// Auditor is the append-only audit sink. Writes are best-effort relative to
// the primary state change, but persistent failures must surface to
// operators rather than being silently dropped.
type Auditor interface {
	Record(rec AuditRecord) error
	Close() error
}
