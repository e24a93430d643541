package provision

import (
	"maps"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

// mappedFields is the canonical projection of one attribute bag onto the
// identity's tracked fields. Candidate keys are ordered most- to
// least-authoritative across the LDAP/AD/OIDC vocabularies.
type mappedFields struct {
	externalID  string
	email       string
	firstName   string
	lastName    string
	displayName string
	phoneNumber string
	department  string
	employeeID  string
	snapshot    map[string]string
}

func mapFields(username string, attrs core.Attributes) mappedFields {
	var m mappedFields
	m.email, _ = attrs.Resolve("mail", "email")
	m.firstName, _ = attrs.Resolve("givenName", "given_name", "firstName")
	m.lastName, _ = attrs.Resolve("sn", "family_name", "lastName")
	m.displayName, _ = attrs.Resolve("displayName", "cn", "name")
	m.phoneNumber, _ = attrs.Resolve("telephoneNumber", "phone_number", "mobile")
	m.department, _ = attrs.Resolve("department", "ou")
	m.employeeID, _ = attrs.Resolve("employeeNumber", "employee_id")
	m.externalID, _ = attrs.Resolve("uid", "sub", "objectGUID")

	// synthesize a display name when the source asserted none, so the
	// projection stays deterministic across create and update
	if m.displayName == "" {
		if m.firstName != "" && m.lastName != "" {
			m.displayName = m.firstName + " " + m.lastName
		} else {
			m.displayName = username
		}
	}

	m.snapshot = attrs.Snapshot()
	return m
}

// applyTo writes the projection onto the identity and reports whether any
// tracked field or the attribute snapshot actually changed (the dirty flag).
func (m mappedFields) applyTo(identity *core.Identity) bool {
	dirty := false
	set := func(field *string, value string) {
		if *field != value {
			*field = value
			dirty = true
		}
	}

	set(&identity.ExternalID, m.externalID)
	set(&identity.Email, m.email)
	set(&identity.FirstName, m.firstName)
	set(&identity.LastName, m.lastName)
	set(&identity.DisplayName, m.displayName)
	set(&identity.PhoneNumber, m.phoneNumber)
	set(&identity.Department, m.department)
	set(&identity.EmployeeID, m.employeeID)

	if !maps.Equal(identity.Attributes, m.snapshot) {
		identity.Attributes = m.snapshot
		dirty = true
	}
	return dirty
}
