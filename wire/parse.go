package wire

import (
	"fmt"
	"strconv"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// ErrMalformedField is returned when a tag=value pair can't be parsed, e.g.
// a non-numeric tag or a field with no "=" separator.
type ErrMalformedField struct {
	Offset int
	Reason string
}

func (e *ErrMalformedField) Error() string {
	return fmt.Sprintf("wire: malformed field at byte %d: %s", e.Offset, e.Reason)
}

// ParseFramed normalizes raw's field delimiters to SOH per rules, then
// parses it, for callers (e.g. the simulator) that receive a single
// already-isolated frame directly from a transport callback rather than
// through a Scanner.
func ParseFramed(raw []byte, rules DelimiterRules) (*message.FixMessage, error) {
	return Parse(normalizeDelimiters(raw, rules))
}

// Parse converts an SOH-delimited FIX payload (as emitted by Scanner, or
// produced by Encode) into a FixMessage. It is the inverse of Encode for
// well-formed input.
func Parse(payload []byte) (*message.FixMessage, error) {
	m := message.New()
	start := 0
	for start < len(payload) {
		end := start
		for end < len(payload) && payload[end] != 0x01 {
			end++
		}
		if end >= len(payload) {
			break // trailing partial field with no terminator; ignore
		}
		field := payload[start:end]
		fieldStart := start
		start = end + 1

		eq := -1
		for i, b := range field {
			if b == '=' {
				eq = i
				break
			}
		}
		if eq <= 0 {
			return nil, &ErrMalformedField{Offset: fieldStart, Reason: "missing '=' separator"}
		}
		tagNum, err := strconv.Atoi(string(field[:eq]))
		if err != nil || tagNum <= 0 {
			return nil, &ErrMalformedField{Offset: fieldStart, Reason: "non-positive or non-numeric tag"}
		}
		m.Set(fixtag.Tag(tagNum), string(field[eq+1:]))
	}
	return m, nil
}
