package linker

import (
	"sort"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// claimResult reports what happened when an out-side entry looked itself
// up in an Index.
type claimResult int

const (
	// claimNone means the entry had no strategy, no key, or an empty
	// bucket: nothing correlates to it.
	claimNone claimResult = iota
	// claimAmbiguous means the bucket held more than one candidate;
	// per spec §4.6 it is reported, not resolved, and nothing is
	// consumed.
	claimAmbiguous
	// claimOK means exactly one candidate was found and consumed.
	claimOK
)

// Index resolves an out-side entry's LinkKey to the single in-side entry
// that produced it, per message type, built eagerly for every message
// type a CorrelationStrategy covers. Consumption is exactly once: a
// claimed bucket is emptied so no later out-side entry can reuse it.
type Index struct {
	strategy    CorrelationStrategy
	normalizers map[fixtag.Tag]compare.Normalizer
	buckets     map[string]map[string][]message.LogEntry // msgType -> keyString -> in-side entries
}

// NewIndex builds an Index over inSide, bucketed per message type under
// strategy's chosen tag combination for that type.
func NewIndex(strategy CorrelationStrategy, inSide []message.LogEntry, normalizers map[fixtag.Tag]compare.Normalizer) *Index {
	idx := &Index{
		strategy:    strategy,
		normalizers: normalizers,
		buckets:     make(map[string]map[string][]message.LogEntry),
	}
	for _, msgType := range strategy.MsgTypes() {
		tags, _ := strategy.TagsFor(msgType)
		bucket := make(map[string][]message.LogEntry)
		for _, e := range inSide {
			k, ok := keyString(tags, e.Msg, normalizers)
			if !ok {
				continue
			}
			bucket[k] = append(bucket[k], e)
		}
		idx.buckets[msgType] = bucket
	}
	return idx
}

// Claim looks up outEntry's key under its own message type's strategy
// and, if exactly one in-side entry shares it, removes and returns it.
func (idx *Index) Claim(outEntry message.LogEntry) (message.LogEntry, claimResult) {
	mt, err := outEntry.Msg.MsgType()
	if err != nil {
		return message.LogEntry{}, claimNone
	}
	tags, ok := idx.strategy.TagsFor(mt)
	if !ok {
		return message.LogEntry{}, claimNone
	}
	k, ok := keyString(tags, outEntry.Msg, idx.normalizers)
	if !ok {
		return message.LogEntry{}, claimNone
	}
	bucket := idx.buckets[mt]
	candidates, ok := bucket[k]
	if !ok || len(candidates) == 0 {
		return message.LogEntry{}, claimNone
	}
	if len(candidates) > 1 {
		return message.LogEntry{}, claimAmbiguous
	}
	claimed := candidates[0]
	delete(bucket, k)
	return claimed, claimOK
}

// FixLink is one correlated in-side/out-side pair, keyed by the
// LinkKey's string encoding.
type FixLink struct {
	CorrelationID string
	InLine        int
	OutLine       int
}

// CollisionExample records one bucket that held more than one candidate
// at the moment an out-side entry collided with it: the key's owning
// message type and string encoding, the bucket's size, and up to 5 of
// the colliding in-side line numbers.
type CollisionExample struct {
	MsgType string
	Key     string
	Count   int
	InLines []int
}

// LinkReport summarizes correlating inSide against outSide under
// strategy: every pair matched, how many out-side entries found nothing
// or an ambiguous bucket, and a bounded sample of the collisions
// encountered.
type LinkReport struct {
	Strategy          CorrelationStrategy
	Matched           []FixLink
	Unmatched         int
	Ambiguous         int
	CollisionExamples []CollisionExample
}

// BuildLinkReport runs outSide against an Index built over inSide under
// strategy, per spec §4.5, recording collisions as they're encountered.
func BuildLinkReport(strategy CorrelationStrategy, inSide, outSide []message.LogEntry, normalizers map[fixtag.Tag]compare.Normalizer) LinkReport {
	idx := NewIndex(strategy, inSide, normalizers)
	report := LinkReport{Strategy: strategy}
	seenCollisions := make(map[string]bool)

	for _, out := range outSide {
		mt, err := out.Msg.MsgType()
		if err != nil {
			report.Unmatched++
			continue
		}
		tags, hasStrategy := strategy.TagsFor(mt)
		if hasStrategy {
			recordCollision(&report, seenCollisions, idx, mt, tags, out, normalizers)
		}

		claimed, res := idx.Claim(out)
		switch res {
		case claimOK:
			id := ""
			if lk, ok := linkKeyOf(mt, tags, out.Msg, normalizers); ok {
				id = lk.String()
			}
			report.Matched = append(report.Matched, FixLink{CorrelationID: id, InLine: claimed.Line, OutLine: out.Line})
		case claimAmbiguous:
			report.Ambiguous++
		default:
			report.Unmatched++
		}
	}

	sortCollisions(report.CollisionExamples)
	if len(report.CollisionExamples) > 5 {
		report.CollisionExamples = report.CollisionExamples[:5]
	}
	return report
}

func recordCollision(report *LinkReport, seen map[string]bool, idx *Index, msgType string, tags []fixtag.Tag, out message.LogEntry, normalizers map[fixtag.Tag]compare.Normalizer) {
	k, ok := keyString(tags, out.Msg, normalizers)
	if !ok {
		return
	}
	bucket := idx.buckets[msgType]
	candidates := bucket[k]
	if len(candidates) <= 1 {
		return
	}
	collisionKey := msgType + "\x00" + k
	if seen[collisionKey] {
		return
	}
	seen[collisionKey] = true

	lines := make([]int, 0, 5)
	for i, c := range candidates {
		if i >= 5 {
			break
		}
		lines = append(lines, c.Line)
	}
	report.CollisionExamples = append(report.CollisionExamples, CollisionExample{
		MsgType: msgType,
		Key:     k,
		Count:   len(candidates),
		InLines: lines,
	})
}

// sortCollisions orders examples by count descending, then msgType
// ascending, then key ascending, per spec §4.5.
func sortCollisions(examples []CollisionExample) {
	sort.Slice(examples, func(i, j int) bool {
		a, b := examples[i], examples[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.MsgType != b.MsgType {
			return a.MsgType < b.MsgType
		}
		return a.Key < b.Key
	})
}
