package compare

import (
	"regexp"
	"testing"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

func fieldsWithClOrdID(clOrdID string) *message.FixMessage {
	m := message.New()
	m.Set(fixtag.MsgType, "D")
	m.Set(fixtag.Tag(11), clOrdID)
	m.Set(fixtag.Tag(55), "MSFT")
	return m
}

// TestComparator_DefaultExcludeDropsFramingTags verifies the default
// exclude set {8, 9, 10, 34, 52, 122} is never reported even when the two
// messages disagree on those tags.
func TestComparator_DefaultExcludeDropsFramingTags(t *testing.T) {
	expected := fieldsWithClOrdID("ORD-1")
	expected.Set(fixtag.MsgSeqNum, "7")
	actual := fieldsWithClOrdID("ORD-1")
	actual.Set(fixtag.MsgSeqNum, "9")

	result := NewComparator(NewConfig()).Compare(expected, actual)
	if !result.Equal() {
		t.Fatalf("expected seqnum divergence to be excluded by default, got mismatches: %+v", result.Mismatches())
	}
}

// TestComparator_NormalizerStripsPrefixBeforeCompare reproduces the spec §8
// scenario where a "RA-" prefix on an account tag is trimmed before
// comparison so "RA-9001" and "9001" are considered equal.
func TestComparator_NormalizerStripsPrefixBeforeCompare(t *testing.T) {
	const accountTag = fixtag.Tag(1)
	expected := fieldsWithClOrdID("ORD-1")
	expected.Set(accountTag, "RA-9001")
	actual := fieldsWithClOrdID("ORD-1")
	actual.Set(accountTag, "9001")

	cfg := NewConfig()
	cfg.Normalizers[accountTag] = Normalizer{
		Replacements: []Replacement{{Pattern: regexp.MustCompile(`^RA-`), Replacement: ""}},
	}

	result := NewComparator(cfg).Compare(expected, actual)
	if !result.Equal() {
		t.Fatalf("expected normalized account tag to match, got mismatches: %+v", result.Mismatches())
	}
}

// TestComparator_ExcludeTimeLikeTagsDropsTransactTime verifies the
// ExcludeTimeLikeTags switch removes tag 60 even when it isn't part of the
// static default exclude set.
func TestComparator_ExcludeTimeLikeTagsDropsTransactTime(t *testing.T) {
	expected := fieldsWithClOrdID("ORD-1")
	expected.Set(fixtag.TransactTime, "20260101-00:00:00.000")
	actual := fieldsWithClOrdID("ORD-1")
	actual.Set(fixtag.TransactTime, "20260101-00:00:01.500")

	cfg := NewConfig()
	cfg.ExcludeTimeLikeTags = true

	result := NewComparator(cfg).Compare(expected, actual)
	if !result.Equal() {
		t.Fatalf("expected TransactTime excluded, got mismatches: %+v", result.Mismatches())
	}
}

// TestComparator_ReportsValueMismatch verifies a genuine divergence on a
// compared tag surfaces as KindValueMismatch.
func TestComparator_ReportsValueMismatch(t *testing.T) {
	expected := fieldsWithClOrdID("ORD-1")
	actual := fieldsWithClOrdID("ORD-2")

	result := NewComparator(NewConfig()).Compare(expected, actual)
	mismatches := result.Mismatches()
	if len(mismatches) != 1 || mismatches[0].Tag != fixtag.Tag(11) || mismatches[0].Kind != KindValueMismatch {
		t.Fatalf("expected single value mismatch on tag 11, got %+v", mismatches)
	}
}

// TestComparator_MissingTagKinds verifies tags present on only one side are
// reported with the correct directional Kind.
func TestComparator_MissingTagKinds(t *testing.T) {
	expected := fieldsWithClOrdID("ORD-1")
	expected.Set(fixtag.Tag(58), "only on expected")
	actual := fieldsWithClOrdID("ORD-1")
	actual.Set(fixtag.Tag(59), "only on actual")

	result := NewComparator(NewConfig()).Compare(expected, actual)
	var sawMissingActual, sawMissingExpected bool
	for _, d := range result.Mismatches() {
		if d.Tag == fixtag.Tag(58) && d.Kind == KindMissingInActual {
			sawMissingActual = true
		}
		if d.Tag == fixtag.Tag(59) && d.Kind == KindMissingInExpected {
			sawMissingExpected = true
		}
	}
	if !sawMissingActual || !sawMissingExpected {
		t.Fatalf("expected both directional missing-tag kinds, got %+v", result.Mismatches())
	}
}

// TestComparator_IsIdempotent verifies the idempotence property from spec
// §8: comparing the same pair twice yields identical results.
func TestComparator_IsIdempotent(t *testing.T) {
	expected := fieldsWithClOrdID("ORD-1")
	actual := fieldsWithClOrdID("ORD-2")
	cmp := NewComparator(NewConfig())

	first := cmp.Compare(expected, actual)
	second := cmp.Compare(expected, actual)
	if len(first.Diffs) != len(second.Diffs) {
		t.Fatalf("expected identical diff counts across runs, got %d vs %d", len(first.Diffs), len(second.Diffs))
	}
	for i := range first.Diffs {
		if first.Diffs[i] != second.Diffs[i] {
			t.Fatalf("expected identical diffs across runs at index %d: %+v vs %+v", i, first.Diffs[i], second.Diffs[i])
		}
	}
}

// TestComparator_PerMsgTypeIncludeRestrictsScope verifies a msgType-specific
// include list narrows comparison to only the listed tags.
func TestComparator_PerMsgTypeIncludeRestrictsScope(t *testing.T) {
	expected := fieldsWithClOrdID("ORD-1")
	expected.Set(fixtag.Tag(58), "note-a")
	actual := fieldsWithClOrdID("ORD-2")
	actual.Set(fixtag.Tag(58), "note-b")

	cfg := NewConfig()
	cfg.PerMsgTypeInclude["D"] = map[fixtag.Tag]bool{fixtag.Tag(58): true}

	result := NewComparator(cfg).Compare(expected, actual)
	for _, d := range result.Diffs {
		if d.Tag != fixtag.Tag(58) {
			t.Fatalf("expected only tag 58 in scope, saw tag %d", d.Tag)
		}
	}
	if len(result.Diffs) != 1 {
		t.Fatalf("expected exactly 1 diff, got %d", len(result.Diffs))
	}
}
