// Package validation is the rule library used to check request payloads
// before a resource handler runs.
//
// A Rule is a small, immutable description of what a single payload value
// must look like. Rules are built from go-playground/validator tags, so
// anything the validator understands ("email", "min=3", "uuid", ...) can be
// used, plus a handful of type tags registered by this package:
//
//	string   JSON string
//	number   JSON number
//	integer  whole JSON number
//	boolean  true or false
//	array    JSON array
//	isodate  RFC 3339 timestamp
//
// Two transformations matter to the rest of the application:
//
//   - Mandatory() marks a rule as "must be present". The resource layer
//     applies it to the create rule set only.
//   - Object(shape) builds a composite rule that matches a nested JSON object
//     field-by-field.
package validation

import (
	"sort"
	"strings"
)

// Rule describes the constraints on one payload value.
// The zero value accepts anything.
type Rule struct {
	tag       string
	shape     RuleSet
	mandatory bool
}

// RuleSet maps payload field names to their rules.
type RuleSet map[string]*Rule

// Tag returns a rule built from a raw validator tag, e.g. "email,max=64".
func Tag(tag string) *Rule {
	return &Rule{tag: strings.Trim(tag, ", ")}
}

// String matches any JSON string.
func String() *Rule { return Tag("string") }

// Number matches any JSON number.
func Number() *Rule { return Tag("number") }

// Integer matches whole JSON numbers.
func Integer() *Rule { return Tag("integer") }

// Boolean matches true or false.
func Boolean() *Rule { return Tag("boolean") }

// Date matches RFC 3339 timestamps such as "2024-05-01T10:00:00Z".
func Date() *Rule { return Tag("isodate") }

// Array matches a JSON array whose every element satisfies items.
// A nil items rule only checks that the value is an array.
func Array(items *Rule) *Rule {
	if items == nil || items.tag == "" {
		return Tag("array")
	}
	return Tag("array,dive," + items.tag)
}

// Object matches a JSON object shaped like shape. Keys missing from shape
// are rejected, and every rule in shape is applied to the matching key.
func Object(shape RuleSet) *Rule {
	return &Rule{shape: shape.clone()}
}

// With returns a copy of r with additional validator tags appended.
//
//	validation.String().With("email", "max=64")
func (r *Rule) With(tags ...string) *Rule {
	out := r.clone()
	for _, t := range tags {
		t = strings.Trim(t, ", ")
		if t == "" {
			continue
		}
		if out.tag == "" {
			out.tag = t
		} else {
			out.tag += "," + t
		}
	}
	return out
}

// Mandatory returns a copy of r that also requires the value to be present.
// r itself is left untouched, so the same rule can be shared between the
// create and update rule sets.
func (r *Rule) Mandatory() *Rule {
	out := r.clone()
	out.mandatory = true
	return out
}

// IsMandatory reports whether the value must be present.
func (r *Rule) IsMandatory() bool { return r != nil && r.mandatory }

// Constraint returns the validator tag string of the rule.
func (r *Rule) Constraint() string {
	if r == nil {
		return ""
	}
	return r.tag
}

// Shape returns the nested rule set of an Object rule, or nil.
func (r *Rule) Shape() RuleSet {
	if r == nil {
		return nil
	}
	return r.shape.clone()
}

func (r *Rule) clone() *Rule {
	if r == nil {
		return &Rule{}
	}
	return &Rule{
		tag:       r.tag,
		shape:     r.shape.clone(),
		mandatory: r.mandatory,
	}
}

// Fields returns the rule names in sorted order.
func (rs RuleSet) Fields() []string {
	names := make([]string, 0, len(rs))
	for name := range rs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mandatory lists the fields whose rules require presence, sorted.
func (rs RuleSet) Mandatory() []string {
	var names []string
	for _, name := range rs.Fields() {
		if rs[name].IsMandatory() {
			names = append(names, name)
		}
	}
	return names
}

func (rs RuleSet) clone() RuleSet {
	if rs == nil {
		return nil
	}
	out := make(RuleSet, len(rs))
	for k, v := range rs {
		out[k] = v.clone()
	}
	return out
}
