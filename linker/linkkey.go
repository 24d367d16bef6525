// Package linker discovers which FIX tags correlate two independent
// message streams (LinkDiscovery), indexes one side under the resulting
// strategy (LinkIndex), and pairs-and-compares the other side against it
// (MessageMatching), per spec §4.4–§4.6.
package linker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// LinkKey identifies one correlated message: its message type, the
// ordered tag combination a CorrelationStrategy chose for that type, and
// the corresponding value for each tag, in the same order.
type LinkKey struct {
	MsgType string
	Tags    []fixtag.Tag
	Values  []string
}

// String returns a stable encoding of the key, used as a FixLink's
// CorrelationID.
func (k LinkKey) String() string {
	var sb strings.Builder
	sb.WriteString(k.MsgType)
	for i, t := range k.Tags {
		fmt.Fprintf(&sb, "|%d=%s", t, k.Values[i])
	}
	return sb.String()
}

func sortedTags(tags []fixtag.Tag) []fixtag.Tag {
	out := append([]fixtag.Tag(nil), tags...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// lessTags implements the "fewer tags, then lexicographically smaller
// tags" half of LinkDiscovery's tie-break: shorter combination wins;
// equal length compares element by element at the first difference.
func lessTags(a, b []fixtag.Tag) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// keyString encodes msg's values for tags, in order, normalizing each
// with normalizers if configured. ok is false if any tag is absent or
// normalizes to empty, since such a message can't participate in
// correlation under this combination.
func keyString(tags []fixtag.Tag, msg *message.FixMessage, normalizers map[fixtag.Tag]compare.Normalizer) (string, bool) {
	var sb strings.Builder
	for i, t := range tags {
		v, ok := msg.Get(t)
		if !ok || v == "" {
			return "", false
		}
		if n, has := normalizers[t]; has {
			v = n.Apply(v)
			if v == "" {
				return "", false
			}
		}
		if i > 0 {
			sb.WriteByte(0x1f) // unit separator; never appears in FIX values
		}
		sb.WriteString(v)
	}
	return sb.String(), true
}

// linkKeyOf builds the structured LinkKey for msg under tags, for
// callers (FixLink construction) that need more than the bucket key
// string.
func linkKeyOf(msgType string, tags []fixtag.Tag, msg *message.FixMessage, normalizers map[fixtag.Tag]compare.Normalizer) (LinkKey, bool) {
	if _, ok := keyString(tags, msg, normalizers); !ok {
		return LinkKey{}, false
	}
	values := make([]string, len(tags))
	for i, t := range tags {
		v, _ := msg.Get(t)
		if n, has := normalizers[t]; has {
			v = n.Apply(v)
		}
		values[i] = v
	}
	return LinkKey{MsgType: msgType, Tags: tags, Values: values}, true
}
