package mutation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// ErrUnknownAction is returned when a Rule references an ActionKind the
// engine doesn't recognize.
var ErrUnknownAction = errors.New("mutation: unknown action kind")

// StrictModeViolation is returned in strict mode when a Condition or
// Action references a tag missing from the message it's evaluated
// against.
type StrictModeViolation struct {
	Tag    fixtag.Tag
	Reason string
}

func (e *StrictModeViolation) Error() string {
	return fmt.Sprintf("mutation: strict mode violation on tag %d: %s", e.Tag, e.Reason)
}

// Engine evaluates an ordered list of Rules against a message and
// produces an Outcome.
type Engine struct {
	rules  []Rule
	strict bool
}

// NewEngine builds an Engine over rules, evaluated in slice order.
// strict controls whether a condition or action referencing a tag
// missing from the message under evaluation is reported as a
// StrictModeViolation (true) or simply causes that rule/action to not
// apply (false).
func NewEngine(rules []Rule, strict bool) *Engine {
	return &Engine{rules: rules, strict: strict}
}

// Outcome is the effect of running a message through the Engine.
type Outcome struct {
	Message   *message.FixMessage
	AppliedBy []string
}

// Apply runs every matching rule against msg in order, applying actions
// directly to a working clone: a rule's conditions are evaluated against
// whatever earlier rules already mutated, not against the original
// input, so rules compose sequentially rather than independently.
func (e *Engine) Apply(msg *message.FixMessage) (Outcome, error) {
	working := msg.Clone()
	out := Outcome{Message: working}

	for _, rule := range e.rules {
		matched, err := rule.matches(working, e.strict)
		if err != nil {
			return out, err
		}
		if !matched {
			continue
		}
		out.AppliedBy = append(out.AppliedBy, rule.Name)
		for _, action := range rule.Actions {
			if err := applyAction(working, action, e.strict); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// applyAction mutates msg in place per a.Kind. Actions that read an
// existing tag value (PREFIX, SUFFIX, REGEX_REPLACE, COPY) skip silently
// in non-strict mode, or return a StrictModeViolation in strict mode,
// when the tag they read is missing.
func applyAction(msg *message.FixMessage, a Action, strict bool) error {
	switch a.Kind {
	case ActionSet:
		msg.Set(a.Tag, a.Value)
		return nil
	case ActionRemove:
		msg.Delete(a.Tag)
		return nil
	case ActionPrefix:
		v, has := msg.Get(a.Tag)
		if !has {
			return missingTagOutcome(strict, a.Tag, "PREFIX references a tag missing from the message")
		}
		msg.Set(a.Tag, a.Value+v)
		return nil
	case ActionSuffix:
		v, has := msg.Get(a.Tag)
		if !has {
			return missingTagOutcome(strict, a.Tag, "SUFFIX references a tag missing from the message")
		}
		msg.Set(a.Tag, v+a.Value)
		return nil
	case ActionRegexReplace:
		v, has := msg.Get(a.Tag)
		if !has {
			return missingTagOutcome(strict, a.Tag, "REGEX_REPLACE references a tag missing from the message")
		}
		replaced, err := regexReplace(a.Pattern, a.Replacement, v)
		if err != nil {
			return err
		}
		msg.Set(a.Tag, replaced)
		return nil
	case ActionCopy:
		v, has := msg.Get(a.FromTag)
		if !has {
			return missingTagOutcome(strict, a.FromTag, "COPY references a source tag missing from the message")
		}
		msg.Set(a.ToTag, v)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}

func missingTagOutcome(strict bool, tag fixtag.Tag, reason string) error {
	if strict {
		return &StrictModeViolation{Tag: tag, Reason: reason}
	}
	return nil
}

func regexMatch(pattern, value string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("mutation: invalid regex %q: %w", pattern, err)
	}
	return re.MatchString(value), nil
}

func regexReplace(pattern, replacement, value string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("mutation: invalid regex %q: %w", pattern, err)
	}
	return re.ReplaceAllString(value, replacement), nil
}
