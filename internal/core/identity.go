package core

import (
	"fmt"
	"time"
)

// Source is the external authentication mechanism that asserted an identity.
type Source string

const (
	SourceLDAP            Source = "LDAP"
	SourceActiveDirectory Source = "ACTIVE_DIRECTORY"
	SourceOIDC            Source = "OIDC"
	SourceSAML            Source = "SAML"
	SourceManual          Source = "MANUAL"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceLDAP, SourceActiveDirectory, SourceOIDC, SourceSAML, SourceManual:
		return true
	default:
		return false
	}
}

// ParseSource normalizes a configuration/string value into a Source.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown provisioning source '%s'", raw)
	}
	return s, nil
}

// Identity is the durable local record representing a provisioned user.
// Usernames are case-insensitive; the stored form is always lower-cased and
// immutable once created.
type Identity struct {
	Username    string `json:"username"`
	ExternalID  string `json:"external_id,omitempty"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Department  string `json:"department,omitempty"`
	EmployeeID  string `json:"employee_id,omitempty"`

	Source Source `json:"source"`

	// ProvisionedAt is set exactly once, at creation.
	ProvisionedAt time.Time `json:"provisioned_at"`
	LastLoginAt   time.Time `json:"last_login_at,omitempty"`
	LastUpdatedAt time.Time `json:"last_updated_at,omitempty"`

	// Active is the soft-delete flag: deactivation flips it to false,
	// reactivation back to true. Records are never hard-deleted here.
	Active          bool `json:"active"`
	AutoProvisioned bool `json:"auto_provisioned"`

	Roles  StringSet `json:"roles"`
	Groups StringSet `json:"groups"`

	// Attributes is a last-write-wins snapshot of all asserted attributes.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Clone returns a deep copy so stores and callers never share mutable state.
func (id *Identity) Clone() *Identity {
	if id == nil {
		return nil
	}
	clone := *id
	clone.Roles = id.Roles.Clone()
	clone.Groups = id.Groups.Clone()
	clone.Attributes = make(map[string]string, len(id.Attributes))
	for k, v := range id.Attributes {
		clone.Attributes[k] = v
	}
	return &clone
}
