package provision

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

// emailKeys are the candidate attribute keys for EMAIL_DOMAIN conditions.
var emailKeys = []string{"mail", "email"}

// Matches evaluates a single rule against an attribute bag. Pure function:
// no side effects, absent attributes evaluate to false (except ALWAYS).
// A non-nil error means the rule definition itself is broken (unparsable
// pattern); callers should treat the rule as non-matching and surface the
// diagnostic instead of aborting the whole reconciliation.
func Matches(rule core.ProvisioningRule, attrs core.Attributes) (bool, error) {
	var re *regexp.Regexp
	if rule.Condition == core.ConditionAttributeMatches {
		var err error
		if re, err = compilePattern(rule.ConditionValue); err != nil {
			return false, fmt.Errorf("rule '%s' has invalid pattern: %w", rule.Name, err)
		}
	}
	return matchesCompiled(rule, re, attrs), nil
}

// compilePattern anchors the pattern so the whole attribute value must
// match, not just a substring of it.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`\A(?:` + pattern + `)\z`)
}

func matchesCompiled(rule core.ProvisioningRule, re *regexp.Regexp, attrs core.Attributes) bool {
	switch rule.Condition {
	case core.ConditionAlways:
		return true

	case core.ConditionAttributeEquals:
		v, ok := attrs.Resolve(rule.ConditionAttribute)
		return ok && strings.EqualFold(v, rule.ConditionValue)

	case core.ConditionAttributeContains:
		v, ok := attrs.Resolve(rule.ConditionAttribute)
		return ok && strings.Contains(strings.ToLower(v), strings.ToLower(rule.ConditionValue))

	case core.ConditionAttributeMatches:
		if re == nil {
			return false
		}
		v, ok := attrs.Resolve(rule.ConditionAttribute)
		return ok && re.MatchString(v)

	case core.ConditionAttributeExists:
		return attrs.Has(rule.ConditionAttribute)

	case core.ConditionMemberOfGroup:
		memberOf, ok := attrs["memberOf"]
		if !ok {
			return false
		}
		needle := strings.ToLower(rule.ConditionValue)
		for _, group := range memberOf.Values() {
			if strings.Contains(strings.ToLower(group), needle) {
				return true
			}
		}
		return false

	case core.ConditionEmailDomain:
		email, ok := attrs.Resolve(emailKeys...)
		if !ok {
			return false
		}
		at := strings.Index(email, "@")
		if at < 0 {
			return false
		}
		return strings.EqualFold(email[at+1:], rule.ConditionValue)
	}

	// unknown condition types fail closed
	return false
}
