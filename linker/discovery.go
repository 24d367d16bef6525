package linker

import (
	"sort"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// scoreScale fixes the scoring arithmetic to integers, per spec §4.4:
// every score is an integer scaled by scoreScale rather than a float, so
// discovery is bit-for-bit reproducible across platforms.
const scoreScale = 10000

// defaultCandidateTags lists the tags LinkDiscovery scores as potential
// correlation keys when a LinkerConfig gives it no combinations of its
// own: order and execution identifiers expected to round-trip between an
// in-side and an out-side message stream.
var defaultCandidateTags = []fixtag.Tag{
	fixtag.Tag(11), // ClOrdID
	fixtag.Tag(37), // OrderID
	fixtag.Tag(17), // ExecID
	fixtag.Tag(41), // OrigClOrdID
}

// LinkerConfig controls which tag combinations LinkDiscovery scores, and
// the normalizers applied to tag values before they're compared.
type LinkerConfig struct {
	// CandidateTags overrides defaultCandidateTags when non-empty; every
	// non-empty subset of it is scored unless CandidateCombinations or
	// PerMsgTypeCombinations supplies explicit combinations instead.
	CandidateTags []fixtag.Tag
	// CandidateCombinations, when non-empty, replaces the subset
	// enumeration of CandidateTags as the set of combinations scored for
	// every message type not covered by PerMsgTypeCombinations.
	CandidateCombinations [][]fixtag.Tag
	// PerMsgTypeCombinations overrides CandidateCombinations for a
	// specific out-side message type.
	PerMsgTypeCombinations map[string][][]fixtag.Tag
	// Normalizers maps a tag to the Normalizer applied to both sides'
	// values before they're compared for correlation.
	Normalizers map[fixtag.Tag]compare.Normalizer
}

func (c LinkerConfig) candidateTags() []fixtag.Tag {
	if len(c.CandidateTags) > 0 {
		return c.CandidateTags
	}
	return defaultCandidateTags
}

func (c LinkerConfig) combinationsFor(msgType string) [][]fixtag.Tag {
	if combos, ok := c.PerMsgTypeCombinations[msgType]; ok && len(combos) > 0 {
		return combos
	}
	if len(c.CandidateCombinations) > 0 {
		return c.CandidateCombinations
	}
	return nonEmptySubsets(c.candidateTags())
}

// scoredCombo pairs a candidate tag combination with its score for one
// out-side message type.
type scoredCombo struct {
	tags  []fixtag.Tag
	score int
}

func betterCombo(a, b scoredCombo) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return lessTags(sortedTags(a.tags), sortedTags(b.tags))
}

// Discover builds a CorrelationStrategy from two unpaired message
// streams: inEntries (e.g. an entry-side log) and outEntries (e.g. an
// exit-side log), per spec §4.4. For each message type present on the
// out side, every candidate tag combination is scored against both
// streams and the highest-scoring combination is kept; a message type
// for which no combination resolves on both sides is omitted from the
// returned strategy entirely.
func Discover(inEntries, outEntries []message.LogEntry, cfg LinkerConfig) CorrelationStrategy {
	byMsgType := make(map[string][]fixtag.Tag)
	outByType := groupByMsgType(outEntries)
	totalIn := len(inEntries)

	for _, msgType := range sortedMsgTypes(outByType) {
		outForType := outByType[msgType]
		var best *scoredCombo
		for _, combo := range cfg.combinationsFor(msgType) {
			score, ok := scoreCombination(combo, inEntries, outForType, totalIn, len(outForType), cfg.Normalizers)
			if !ok {
				continue
			}
			cand := scoredCombo{tags: combo, score: score}
			if best == nil || betterCombo(cand, *best) {
				best = &cand
			}
		}
		if best != nil {
			byMsgType[msgType] = best.tags
		}
	}
	return CorrelationStrategy{byMsgType: byMsgType}
}

// scoreCombination implements spec §4.4's four-term score for tags
// against one out-side message type: uniqueness_in + uniqueness_out +
// match_rate + coverage, each a ratio in [0,1] scaled by scoreScale with
// integer division, then summed.
// ok is false if either side has zero valid (key-resolving) entries,
// since the combination can't correlate anything in that case.
func scoreCombination(tags []fixtag.Tag, inEntries, outEntries []message.LogEntry, totalIn, totalOutOfType int, normalizers map[fixtag.Tag]compare.Normalizer) (int, bool) {
	inCounts, validIn := countKeys(tags, inEntries, normalizers)
	outCounts, validOut := countKeys(tags, outEntries, normalizers)
	if validIn == 0 || validOut == 0 {
		return 0, false
	}

	uniquenessIn := len(inCounts) * scoreScale / validIn
	uniquenessOut := len(outCounts) * scoreScale / validOut

	matched := 0
	for k, count := range outCounts {
		if _, onIn := inCounts[k]; onIn {
			matched += count
		}
	}
	matchRate := matched * scoreScale / validOut

	coverage := (validIn*scoreScale/totalIn + validOut*scoreScale/totalOutOfType) / 2

	score := uniquenessIn + uniquenessOut + matchRate + coverage
	return score, true
}

// countKeys resolves tags against every entry in entries, regardless of
// its own message type, counting how many distinct key values appear and
// how many entries resolved at all.
func countKeys(tags []fixtag.Tag, entries []message.LogEntry, normalizers map[fixtag.Tag]compare.Normalizer) (counts map[string]int, valid int) {
	counts = make(map[string]int)
	for _, e := range entries {
		k, ok := keyString(tags, e.Msg, normalizers)
		if !ok {
			continue
		}
		counts[k]++
		valid++
	}
	return counts, valid
}

func groupByMsgType(entries []message.LogEntry) map[string][]message.LogEntry {
	out := make(map[string][]message.LogEntry)
	for _, e := range entries {
		mt, err := e.Msg.MsgType()
		if err != nil {
			continue
		}
		out[mt] = append(out[mt], e)
	}
	return out
}

func sortedMsgTypes(byType map[string][]message.LogEntry) []string {
	out := make([]string, 0, len(byType))
	for mt := range byType {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

// nonEmptySubsets enumerates every non-empty subset of tags, each
// returned in tags' original order, sorted ascending by subset size so
// Discover favors fewer-tag combinations when scores are otherwise tied.
func nonEmptySubsets(tags []fixtag.Tag) [][]fixtag.Tag {
	n := len(tags)
	if n == 0 {
		return nil
	}
	out := make([][]fixtag.Tag, 0, (1<<n)-1)
	for mask := 1; mask < (1 << n); mask++ {
		var subset []fixtag.Tag
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				subset = append(subset, tags[i])
			}
		}
		out = append(out, subset)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) < len(out[j]) })
	return out
}
