package linker

import (
	"fmt"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// DiffEntry is one compared pair's outcome, keyed by the id spec §4.6
// assigns it: messageIdPrefix + expectedLine + "-" + actualLine.
type DiffEntry struct {
	ID     string
	Result compare.Result
}

// DiffReport is every DiffEntry produced by a MessageMatching call.
type DiffReport struct {
	Entries []DiffEntry
}

// Failed counts entries whose comparison wasn't a full match.
func (r DiffReport) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if !e.Result.Equal() {
			n++
		}
	}
	return n
}

// MatchOutcome is the result of matching an actual stream against an
// expected stream under a CorrelationStrategy.
type MatchOutcome struct {
	Matched           int
	UnmatchedExpected int
	UnmatchedActual   int
	Ambiguous         int
	Diffs             DiffReport
}

// MessageMatching indexes expected under strategy and iterates actual in
// order, per spec §4.6: each actual entry looks itself up via its own
// message type's chosen tags, consuming the single matching expected
// entry exactly once and comparing the pair with comparator. A bucket
// holding more than one candidate is reported as ambiguous and left
// unconsumed rather than resolved by position. idPrefix prefixes every
// DiffEntry's id.
func MessageMatching(strategy CorrelationStrategy, expected, actual []message.LogEntry, comparator *compare.Comparator, idPrefix string, normalizers map[fixtag.Tag]compare.Normalizer) MatchOutcome {
	idx := NewIndex(strategy, expected, normalizers)
	var out MatchOutcome
	consumed := 0

	for _, act := range actual {
		claimed, res := idx.Claim(act)
		switch res {
		case claimOK:
			consumed++
			out.Matched++
			result := comparator.Compare(claimed.Msg, act.Msg)
			out.Diffs.Entries = append(out.Diffs.Entries, DiffEntry{
				ID:     fmt.Sprintf("%s%d-%d", idPrefix, claimed.Line, act.Line),
				Result: result,
			})
		case claimAmbiguous:
			out.Ambiguous++
		default:
			out.UnmatchedActual++
		}
	}

	out.UnmatchedExpected = len(expected) - consumed
	if out.UnmatchedExpected < 0 {
		out.UnmatchedExpected = 0
	}
	return out
}
