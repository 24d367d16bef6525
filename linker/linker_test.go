package linker

import (
	"testing"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

func newOrderEntry(line int, clOrdID string) message.LogEntry {
	m := message.New()
	m.Set(fixtag.MsgType, "D")
	m.Set(fixtag.Tag(11), clOrdID)
	return message.LogEntry{Line: line, Msg: m}
}

func execReportEntry(line int, clOrdID, orderID string) message.LogEntry {
	m := message.New()
	m.Set(fixtag.MsgType, "8")
	m.Set(fixtag.Tag(11), clOrdID)
	m.Set(fixtag.Tag(37), orderID)
	return message.LogEntry{Line: line, Msg: m}
}

// TestDiscover_PicksUniqueOverCollidingCombination verifies that a tag
// combination whose values uniquely identify every message on both sides
// outscores one that collides.
func TestDiscover_PicksUniqueOverCollidingCombination(t *testing.T) {
	in := []message.LogEntry{
		newOrderEntry(1, "ORD-1"),
		newOrderEntry(2, "ORD-2"),
	}
	out := []message.LogEntry{
		execReportEntry(1, "ORD-1", "OID-1"),
		execReportEntry(2, "ORD-2", "OID-2"),
	}
	// Give tag 37 (OrderID) a constant value on the in-side so every
	// in-side message collides on it: only tag 11 is unique on both sides.
	in[0].Msg.Set(fixtag.Tag(37), "OID-X")
	in[1].Msg.Set(fixtag.Tag(37), "OID-X")
	cfg := LinkerConfig{CandidateTags: []fixtag.Tag{11, 37}}

	strategy := Discover(in, out, cfg)
	tags, ok := strategy.TagsFor("8")
	if !ok {
		t.Fatalf("expected a strategy for msgType 8")
	}
	if len(tags) != 1 || tags[0] != fixtag.Tag(11) {
		t.Fatalf("expected tag 11 chosen (the only combination unique on both sides), got %v", tags)
	}
}

// TestDiscover_OmitsMsgTypeWithNoResolvingCombination verifies that a
// message type where no candidate combination resolves on both sides is
// left out of the strategy entirely, rather than defaulting to
// something.
func TestDiscover_OmitsMsgTypeWithNoResolvingCombination(t *testing.T) {
	in := []message.LogEntry{newOrderEntry(1, "ORD-1")}
	out := []message.LogEntry{{Line: 1, Msg: message.New()}}
	out[0].Msg.Set(fixtag.MsgType, "8") // no tag 11 present at all

	strategy := Discover(in, out, LinkerConfig{CandidateTags: []fixtag.Tag{11}})
	if _, ok := strategy.TagsFor("8"); ok {
		t.Fatalf("expected no strategy for msgType 8 since no candidate resolves on the out side")
	}
}

// TestDiscover_TieBreaksByFewerThenLexicographicTags verifies spec
// §4.4's deterministic tie-break when two candidate combinations score
// identically.
func TestDiscover_TieBreaksByFewerThenLexicographicTags(t *testing.T) {
	in := []message.LogEntry{newOrderEntry(1, "ORD-1")}
	// Tags 11 and 37 carry the same value on both sides, so [11], [37] and
	// [11 37] all reach the same score.
	in[0].Msg.Set(fixtag.Tag(37), "ORD-1")
	out := []message.LogEntry{execReportEntry(1, "ORD-1", "ORD-1")}

	strategy := Discover(in, out, LinkerConfig{CandidateTags: []fixtag.Tag{11, 37}})
	tags, ok := strategy.TagsFor("8")
	if !ok {
		t.Fatalf("expected a strategy for msgType 8")
	}
	if len(tags) != 1 || tags[0] != fixtag.Tag(11) {
		t.Fatalf("expected the single-tag, lexicographically smaller combination [11] to win the tie-break, got %v", tags)
	}
}

// TestMessageMatching_ExactlyOnceConsumption verifies that once an actual
// entry claims an expected entry, a later actual entry sharing the same
// key value finds nothing left to claim and is reported unmatched, so no
// expected entry is matched twice.
func TestMessageMatching_ExactlyOnceConsumption(t *testing.T) {
	strategy := Discover(
		[]message.LogEntry{newOrderEntry(1, "ORD-1"), newOrderEntry(2, "ORD-2")},
		[]message.LogEntry{execReportEntry(1, "ORD-1", "OID-1"), execReportEntry(2, "ORD-2", "OID-2")},
		LinkerConfig{CandidateTags: []fixtag.Tag{11}},
	)

	expected := []message.LogEntry{newOrderEntry(1, "ORD-1"), newOrderEntry(2, "ORD-2")}
	actual := []message.LogEntry{
		execReportEntry(1, "ORD-1", "OID-1"),
		execReportEntry(2, "ORD-1", "OID-1B"),
		execReportEntry(3, "ORD-2", "OID-2"),
	}

	outcome := MessageMatching(strategy, expected, actual, compare.NewComparator(compare.NewConfig()), "offline:", nil)
	if outcome.Matched != 2 {
		t.Fatalf("expected 2 matches, got %d", outcome.Matched)
	}
	if outcome.UnmatchedActual != 1 {
		t.Fatalf("expected the second ORD-1 actual unmatched, got %+v", outcome)
	}
	if outcome.UnmatchedExpected != 0 {
		t.Fatalf("expected every expected entry consumed, got %+v", outcome)
	}
}

// TestMessageMatching_AmbiguousBucketNotConsumed verifies that when more
// than one expected entry shares a key, an actual entry with that key is
// reported ambiguous and nothing is claimed — the colliding expected
// entries remain available (and unmatched) rather than being resolved by
// order.
func TestMessageMatching_AmbiguousBucketNotConsumed(t *testing.T) {
	key := fixtag.Tag(11)
	strategy := CorrelationStrategy{byMsgType: map[string][]fixtag.Tag{"8": {key}}}

	expected := []message.LogEntry{newOrderEntry(1, "ORD-1"), newOrderEntry(2, "ORD-1")}
	actual := []message.LogEntry{execReportEntry(1, "ORD-1", "OID-1")}

	cmp := compare.NewComparator(compare.NewConfig())
	outcome := MessageMatching(strategy, expected, actual, cmp, "offline:", nil)
	if outcome.Ambiguous != 1 {
		t.Fatalf("expected 1 ambiguous outcome, got %d", outcome.Ambiguous)
	}
	if outcome.Matched != 0 {
		t.Fatalf("expected nothing matched from an ambiguous bucket, got %d", outcome.Matched)
	}
	if outcome.UnmatchedExpected != 2 {
		t.Fatalf("expected both expected entries to remain unmatched, got %d", outcome.UnmatchedExpected)
	}
}

// TestMessageMatching_DiffEntryIDFormat verifies the id spec §4.6
// assigns each diff: prefix + expectedLine + "-" + actualLine.
func TestMessageMatching_DiffEntryIDFormat(t *testing.T) {
	strategy := CorrelationStrategy{byMsgType: map[string][]fixtag.Tag{"8": {fixtag.Tag(11)}}}
	expected := []message.LogEntry{newOrderEntry(7, "ORD-1")}
	actual := []message.LogEntry{execReportEntry(9, "ORD-1", "OID-1")}

	outcome := MessageMatching(strategy, expected, actual, compare.NewComparator(compare.NewConfig()), "session-A:", nil)
	if len(outcome.Diffs.Entries) != 1 {
		t.Fatalf("expected 1 diff entry, got %d", len(outcome.Diffs.Entries))
	}
	if got, want := outcome.Diffs.Entries[0].ID, "session-A:7-9"; got != want {
		t.Fatalf("expected id %q, got %q", want, got)
	}
}

// TestMessageMatching_UnmatchedActualWhenNoStrategy verifies an actual
// entry whose message type has no strategy entry is reported unmatched
// rather than panicking or silently passing.
func TestMessageMatching_UnmatchedActualWhenNoStrategy(t *testing.T) {
	strategy := CorrelationStrategy{byMsgType: map[string][]fixtag.Tag{}}
	actual := []message.LogEntry{execReportEntry(1, "ORD-1", "OID-1")}

	outcome := MessageMatching(strategy, nil, actual, compare.NewComparator(compare.NewConfig()), "", nil)
	if outcome.UnmatchedActual != 1 {
		t.Fatalf("expected 1 unmatched actual, got %d", outcome.UnmatchedActual)
	}
}

// TestBuildLinkReport_RecordsCollisionExample verifies that a colliding
// bucket produces a CollisionExample with its in-side line numbers, and
// is counted as ambiguous rather than matched.
func TestBuildLinkReport_RecordsCollisionExample(t *testing.T) {
	strategy := CorrelationStrategy{byMsgType: map[string][]fixtag.Tag{"8": {fixtag.Tag(11)}}}
	in := []message.LogEntry{newOrderEntry(1, "ORD-1"), newOrderEntry(2, "ORD-1")}
	out := []message.LogEntry{execReportEntry(10, "ORD-1", "OID-1")}

	report := BuildLinkReport(strategy, in, out, nil)
	if report.Ambiguous != 1 {
		t.Fatalf("expected 1 ambiguous result, got %d", report.Ambiguous)
	}
	if len(report.CollisionExamples) != 1 {
		t.Fatalf("expected 1 collision example, got %d", len(report.CollisionExamples))
	}
	ex := report.CollisionExamples[0]
	if ex.Count != 2 || len(ex.InLines) != 2 {
		t.Fatalf("expected collision example covering both colliding lines, got %+v", ex)
	}
}
