package linker

import (
	"sort"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
)

// CorrelationStrategy maps a message type to the ordered tag combination
// LinkDiscovery found best correlates it across two streams. It is
// immutable once returned by Discover.
type CorrelationStrategy struct {
	byMsgType map[string][]fixtag.Tag
}

// TagsFor returns the tag combination chosen for msgType, if discovery
// found one that reached a finite score.
func (s CorrelationStrategy) TagsFor(msgType string) ([]fixtag.Tag, bool) {
	tags, ok := s.byMsgType[msgType]
	return tags, ok
}

// MsgTypes returns every message type the strategy covers, ascending, so
// the strategy serializes and logs deterministically.
func (s CorrelationStrategy) MsgTypes() []string {
	out := make([]string, 0, len(s.byMsgType))
	for mt := range s.byMsgType {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

// Len reports how many message types the strategy covers.
func (s CorrelationStrategy) Len() int { return len(s.byMsgType) }
