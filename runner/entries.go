package runner

import "github.com/coinbase-samples/fix-conformance-harness/message"

// BuildEntries filters msgs by filter, then assigns dense 1-based line
// numbers to what survives, per spec §4.7's load step. A message whose
// own type is filtered out never receives a line number, so later
// sessions' entries stay densely numbered within their own stream.
func BuildEntries(msgs []*message.FixMessage, filter MsgTypeFilter) []message.LogEntry {
	out := make([]message.LogEntry, 0, len(msgs))
	line := 0
	for _, m := range msgs {
		mt, err := m.MsgType()
		if err == nil && !filter.Accepts(mt) {
			continue
		}
		line++
		out = append(out, message.LogEntry{Line: line, Msg: m})
	}
	return out
}

// bySession splits entries by the SessionKey of each entry's message.
func bySession(entries []message.LogEntry) map[message.SessionKey][]message.LogEntry {
	out := make(map[message.SessionKey][]message.LogEntry)
	for _, e := range entries {
		key := message.SessionKeyOf(e.Msg)
		out[key] = append(out[key], e)
	}
	return out
}

// sessionKeysUnion returns the union of every SessionKey present across
// groups, in ascending SessionKey.ID() order.
func sessionKeysUnion(groups ...map[message.SessionKey][]message.LogEntry) []message.SessionKey {
	seen := make(map[message.SessionKey]bool)
	var out []message.SessionKey
	for _, g := range groups {
		for k := range g {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sortSessionKeys(out)
	return out
}

func sortSessionKeys(keys []message.SessionKey) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1].ID() > keys[j].ID(); j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
}
