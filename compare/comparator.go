package compare

import (
	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// Kind distinguishes the ways a single tag can differ (or not) between two
// messages.
type Kind int

const (
	KindMatch Kind = iota
	KindValueMismatch
	KindMissingInActual
	KindMissingInExpected
)

func (k Kind) String() string {
	switch k {
	case KindMatch:
		return "MATCH"
	case KindValueMismatch:
		return "VALUE_MISMATCH"
	case KindMissingInActual:
		return "MISSING_IN_ACTUAL"
	case KindMissingInExpected:
		return "MISSING_IN_EXPECTED"
	default:
		return "UNKNOWN"
	}
}

// Diff is the outcome for a single tag.
type Diff struct {
	Tag      fixtag.Tag
	Kind     Kind
	Expected string
	Actual   string
}

// Result is the full outcome of comparing one expected/actual message pair.
type Result struct {
	Diffs []Diff
}

// Equal reports whether every compared tag matched.
func (r Result) Equal() bool {
	for _, d := range r.Diffs {
		if d.Kind != KindMatch {
			return false
		}
	}
	return true
}

// Mismatches returns only the non-matching diffs, preserving order.
func (r Result) Mismatches() []Diff {
	var out []Diff
	for _, d := range r.Diffs {
		if d.Kind != KindMatch {
			out = append(out, d)
		}
	}
	return out
}

// Comparator evaluates an expected/actual FixMessage pair under a Config.
type Comparator struct {
	cfg *Config
}

// NewComparator builds a Comparator against cfg. A nil cfg behaves like
// NewConfig(): the default exclude set only.
func NewComparator(cfg *Config) *Comparator {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Comparator{cfg: cfg}
}

// Compare evaluates expected against actual, applying the include/exclude
// tag policy and any per-tag normalizers from c's Config. Comparison is
// idempotent: Compare(a, b) run twice yields identical Results, per spec §8.
func (c *Comparator) Compare(expected, actual *message.FixMessage) Result {
	msgType, _ := expected.MsgType()
	if msgType == "" {
		msgType, _ = actual.MsgType()
	}

	tags := c.cfg.tagsToCompare(msgType, expected.Tags(), actual.Tags())

	diffs := make([]Diff, 0, len(tags))
	for _, t := range tags {
		expVal, expHas := expected.Get(t)
		actVal, actHas := actual.Get(t)

		if !expHas && !actHas {
			continue
		}
		if !actHas {
			diffs = append(diffs, Diff{Tag: t, Kind: KindMissingInActual, Expected: expVal})
			continue
		}
		if !expHas {
			diffs = append(diffs, Diff{Tag: t, Kind: KindMissingInExpected, Actual: actVal})
			continue
		}

		normExp, normAct := expVal, actVal
		if n, ok := c.cfg.Normalizers[t]; ok {
			normExp = n.Apply(expVal)
			normAct = n.Apply(actVal)
		}

		if normExp == normAct {
			diffs = append(diffs, Diff{Tag: t, Kind: KindMatch, Expected: expVal, Actual: actVal})
		} else {
			diffs = append(diffs, Diff{Tag: t, Kind: KindValueMismatch, Expected: expVal, Actual: actVal})
		}
	}
	return Result{Diffs: diffs}
}
