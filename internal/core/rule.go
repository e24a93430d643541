package core

import (
	"fmt"
	"regexp"
)

// ConditionType selects how a provisioning rule matches an attribute bag.
type ConditionType string

const (
	// ConditionAlways matches unconditionally.
	ConditionAlways ConditionType = "ALWAYS"
	// ConditionAttributeEquals matches when the resolved attribute equals
	// the rule value, case-insensitively.
	ConditionAttributeEquals ConditionType = "ATTRIBUTE_EQUALS"
	// ConditionAttributeContains matches when the rule value is a
	// case-insensitive substring of the resolved attribute.
	ConditionAttributeContains ConditionType = "ATTRIBUTE_CONTAINS"
	// ConditionAttributeMatches matches when the entire resolved attribute
	// matches the rule value interpreted as a regular expression.
	ConditionAttributeMatches ConditionType = "ATTRIBUTE_MATCHES"
	// ConditionAttributeExists matches when the attribute is present with
	// any non-empty value.
	ConditionAttributeExists ConditionType = "ATTRIBUTE_EXISTS"
	// ConditionMemberOfGroup matches when any memberOf entry contains the
	// rule value as a case-insensitive substring.
	ConditionMemberOfGroup ConditionType = "MEMBEROF_GROUP"
	// ConditionEmailDomain matches when the domain of the asserted email
	// equals the rule value, case-insensitively.
	ConditionEmailDomain ConditionType = "EMAIL_DOMAIN"
)

func (c ConditionType) IsValid() bool {
	switch c {
	case ConditionAlways, ConditionAttributeEquals, ConditionAttributeContains,
		ConditionAttributeMatches, ConditionAttributeExists,
		ConditionMemberOfGroup, ConditionEmailDomain:
		return true
	default:
		return false
	}
}

// NeedsAttribute reports whether the condition type reads a rule-configured
// attribute name. MEMBEROF_GROUP and EMAIL_DOMAIN read well-known keys.
func (c ConditionType) NeedsAttribute() bool {
	switch c {
	case ConditionAttributeEquals, ConditionAttributeContains,
		ConditionAttributeMatches, ConditionAttributeExists:
		return true
	default:
		return false
	}
}

// ProvisioningRule is an administrator-authored policy row. Rules are
// evaluated ascending by Order within their source partition; every matching
// rule contributes its grants (union, never revoke).
type ProvisioningRule struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`

	// Order is the ascending evaluation priority. Ties break by creation
	// order.
	Order int `yaml:"order" json:"order"`

	Source Source `yaml:"source" json:"source"`

	Condition          ConditionType `yaml:"condition" json:"condition"`
	ConditionAttribute string        `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	ConditionValue     string        `yaml:"value,omitempty" json:"value,omitempty"`

	Roles  StringSet `yaml:"roles,omitempty" json:"roles,omitempty"`
	Groups StringSet `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// Validate checks a rule definition for configuration errors. A rule with an
// unparsable ATTRIBUTE_MATCHES pattern is rejected up front; the matcher
// additionally fails closed at evaluation time for patterns that slip past
// (e.g. rules edited directly in the store).
func (r *ProvisioningRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule missing name")
	}
	if !r.Source.IsValid() {
		return fmt.Errorf("rule '%s' has unknown source '%s'", r.Name, r.Source)
	}
	if !r.Condition.IsValid() {
		return fmt.Errorf("rule '%s' has unknown condition '%s'", r.Name, r.Condition)
	}
	if r.Condition.NeedsAttribute() && r.ConditionAttribute == "" {
		return fmt.Errorf("rule '%s' condition %s requires an attribute name", r.Name, r.Condition)
	}
	switch r.Condition {
	case ConditionAlways, ConditionAttributeExists:
		// no value required
	default:
		if r.ConditionValue == "" {
			return fmt.Errorf("rule '%s' condition %s requires a value", r.Name, r.Condition)
		}
	}
	if r.Condition == ConditionAttributeMatches {
		if _, err := regexp.Compile(r.ConditionValue); err != nil {
			return fmt.Errorf("rule '%s' has invalid pattern: %w", r.Name, err)
		}
	}
	if len(r.Roles) == 0 && len(r.Groups) == 0 {
		return fmt.Errorf("rule '%s' grants neither roles nor groups", r.Name)
	}
	return nil
}
