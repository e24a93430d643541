package core

import (
	"fmt"
	"strings"
)

// Value is a single attribute asserted by an identity source. Directory
// attributes may carry one value or many (e.g. memberOf); Value preserves
// the order the source asserted them in.
type Value struct {
	values []string
}

// String wraps a scalar attribute value.
func String(v string) Value {
	return Value{values: []string{v}}
}

// Strings wraps a multi-valued attribute.
func Strings(values ...string) Value {
	return Value{values: values}
}

// First returns the first value, matching the "first element of a
// multi-valued attribute" convention used by LDAP-style sources.
func (v Value) First() (string, bool) {
	if len(v.values) == 0 {
		return "", false
	}
	return v.values[0], true
}

func (v Value) Values() []string {
	out := make([]string, len(v.values))
	copy(out, v.values)
	return out
}

func (v Value) IsZero() bool {
	return len(v.values) == 0
}

// String renders the value the way it is stored in an identity's attribute
// snapshot: scalars as-is, multi-valued attributes comma-joined.
func (v Value) String() string {
	return strings.Join(v.values, ", ")
}

// Attributes is the bag of claims asserted during one authentication event.
// Keys are source-vocabulary names (mail, givenName, memberOf, ...).
type Attributes map[string]Value

// Resolve iterates candidate keys in the caller's priority order and returns
// the first present, non-empty value. This is the single place that
// reconciles alias keys across source vocabularies, so callers must order
// keys from most- to least-authoritative.
func (a Attributes) Resolve(keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := a[key]
		if !ok {
			continue
		}
		if first, ok := v.First(); ok {
			return first, true
		}
	}
	return "", false
}

// Has reports whether key is present with at least one value.
func (a Attributes) Has(key string) bool {
	v, ok := a[key]
	return ok && !v.IsZero()
}

// Snapshot stringifies every attribute into the last-write-wins map stored
// on the identity record.
func (a Attributes) Snapshot() map[string]string {
	snap := make(map[string]string, len(a))
	for key, v := range a {
		if v.IsZero() {
			continue
		}
		snap[key] = v.String()
	}
	return snap
}

// AttributesFromMap adapts a loosely-typed attribute bag, as handed over by
// host authentication frameworks, into a typed bag. Nil values are dropped;
// collections keep their order; other scalars are stringified.
func AttributesFromMap(raw map[string]any) Attributes {
	attrs := make(Attributes, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			attrs[key] = String(v)
		case []string:
			attrs[key] = Strings(v...)
		case []any:
			values := make([]string, 0, len(v))
			for _, item := range v {
				if item == nil {
					continue
				}
				values = append(values, fmt.Sprint(item))
			}
			if len(values) == 0 {
				continue
			}
			attrs[key] = Strings(values...)
		default:
			attrs[key] = String(fmt.Sprint(v))
		}
	}
	return attrs
}
