package core

import "errors"

var (
	// ErrNotFound is returned by store lookups that miss. A miss is not a
	// failure; callers decide whether absence is acceptable.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned by IdentityStore.Create when the
	// username is already taken. The engine treats this as "another login
	// won the creation race" and falls back to the update path.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrPersistence wraps store failures other than the expected
	// uniqueness race. Fatal to the current provisioning call.
	ErrPersistence = errors.New("identity store unavailable")

	// ErrRuleLookup wraps failures loading provisioning rules.
	ErrRuleLookup = errors.New("rule lookup failed")

	// ErrSourceDisabled is returned when provisioning is disabled for the
	// asserted source via configuration.
	ErrSourceDisabled = errors.New("provisioning disabled for this source")

	// ErrDelivery wraps transport failures when sending a challenge code.
	// The issued challenge stays valid regardless.
	ErrDelivery = errors.New("challenge delivery failed")
)
