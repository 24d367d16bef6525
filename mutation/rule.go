// Package mutation implements the rule-driven message mutation pipeline
// the simulator applies to inbound FIX traffic, per spec §4.10.
package mutation

import (
	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// Condition tests a single tag on a message. Every non-nil/non-empty
// field must hold for the condition to be satisfied; an all-zero
// Condition always holds.
type Condition struct {
	Tag fixtag.Tag `yaml:"tag"`
	// Exists, if set, requires the tag's presence (true) or absence
	// (false) to match.
	Exists *bool `yaml:"exists,omitempty"`
	// Equals, if set, requires the tag's value to equal it exactly.
	Equals *string `yaml:"equals,omitempty"`
	// Regex, if set, requires the tag's value to match it.
	Regex string `yaml:"regex,omitempty"`
	// TagIn, if non-empty, requires the tag's value to be one of it.
	TagIn []string `yaml:"tag_in,omitempty"`
}

// needsValue reports whether c requires the tag to actually be present
// with a value to evaluate (as opposed to Exists, which can be satisfied
// by absence).
func (c Condition) needsValue() bool {
	return c.Equals != nil || c.Regex != "" || len(c.TagIn) > 0
}

// Evaluate reports whether c holds for msg. If c references a value on a
// tag msg doesn't have, strict mode turns that into a StrictModeViolation
// error rather than a false result.
func (c Condition) Evaluate(msg *message.FixMessage, strict bool) (bool, error) {
	v, has := msg.Get(c.Tag)

	if c.Exists != nil && has != *c.Exists {
		return false, nil
	}

	if c.needsValue() && !has {
		if strict {
			return false, &StrictModeViolation{Tag: c.Tag, Reason: "condition references a tag missing from the message"}
		}
		return false, nil
	}

	if c.Equals != nil && v != *c.Equals {
		return false, nil
	}
	if c.Regex != "" {
		matched, err := regexMatch(c.Regex, v)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	if len(c.TagIn) > 0 && !stringIn(v, c.TagIn) {
		return false, nil
	}
	return true, nil
}

func stringIn(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ActionKind is the effect an Action applies to a message, per spec
// §4.10's six mandated actions.
type ActionKind string

const (
	ActionSet          ActionKind = "SET"
	ActionRemove       ActionKind = "REMOVE"
	ActionPrefix       ActionKind = "PREFIX"
	ActionSuffix       ActionKind = "SUFFIX"
	ActionRegexReplace ActionKind = "REGEX_REPLACE"
	ActionCopy         ActionKind = "COPY"
)

// Action is one mutation applied when a Rule's conditions all hold.
type Action struct {
	Kind ActionKind `yaml:"kind"`
	Tag  fixtag.Tag `yaml:"tag,omitempty"`
	// Value is used by SET, PREFIX, and SUFFIX.
	Value string `yaml:"value,omitempty"`
	// Pattern and Replacement are used by REGEX_REPLACE.
	Pattern     string `yaml:"pattern,omitempty"`
	Replacement string `yaml:"replacement,omitempty"`
	// FromTag and ToTag are used by COPY; Tag is unused there.
	FromTag fixtag.Tag `yaml:"from_tag,omitempty"`
	ToTag   fixtag.Tag `yaml:"to_tag,omitempty"`
}

// Rule is a named set of Conditions (AND-combined) and the Actions
// applied, in order, when every Condition holds.
type Rule struct {
	Name       string      `yaml:"name"`
	MsgTypes   []string    `yaml:"msg_types,omitempty"` // empty means any
	Conditions []Condition `yaml:"conditions,omitempty"`
	Actions    []Action    `yaml:"actions"`
}

// matches reports whether r applies to msg: msgType (if constrained) and
// every condition must hold, evaluated against msg's current state so a
// rule sees any mutation an earlier rule already applied.
func (r Rule) matches(msg *message.FixMessage, strict bool) (bool, error) {
	if len(r.MsgTypes) > 0 {
		mt, _ := msg.MsgType()
		if !stringIn(mt, r.MsgTypes) {
			return false, nil
		}
	}
	for _, c := range r.Conditions {
		ok, err := c.Evaluate(msg, strict)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
