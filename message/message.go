// Package message holds the shared data model every other
// package in the harness builds on: the parsed FixMessage, the raw bytes a
// Scanner emits before parsing, the per-line LogEntry wrapper, and the
// SessionKey identifying a FIX counterparty pair.
package message

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
)

// ErrMissingMsgType is returned wherever a tag-35 value is required but
// absent or blank.
var ErrMissingMsgType = errors.New("message: tag 35 (MsgType) is missing or blank")

// FixMessage is the canonical in-memory representation of one parsed FIX
// message: a tag -> value mapping. Insertion order is never meaningful for
// equality or comparison; only tag/value pairs matter.
type FixMessage struct {
	fields map[fixtag.Tag]string
}

// New returns an empty FixMessage ready for Set calls.
func New() *FixMessage {
	return &FixMessage{fields: make(map[fixtag.Tag]string)}
}

// FromFields builds a FixMessage from a tag -> value map, copying it so the
// caller's map can be mutated afterwards without affecting the message.
func FromFields(fields map[fixtag.Tag]string) *FixMessage {
	m := New()
	for t, v := range fields {
		m.fields[t] = v
	}
	return m
}

// Set stores value under tag, overwriting any previous value.
func (m *FixMessage) Set(tag fixtag.Tag, value string) {
	m.fields[tag] = value
}

// Get returns the value for tag and whether it was present at all (a field
// present with an empty string still returns ok=true).
func (m *FixMessage) Get(tag fixtag.Tag) (string, bool) {
	v, ok := m.fields[tag]
	return v, ok
}

// GetOr returns the value for tag, or def if the tag is absent.
func (m *FixMessage) GetOr(tag fixtag.Tag, def string) string {
	if v, ok := m.fields[tag]; ok {
		return v
	}
	return def
}

// Delete removes tag from the message, if present.
func (m *FixMessage) Delete(tag fixtag.Tag) {
	delete(m.fields, tag)
}

// Has reports whether tag is present with a non-empty value.
func (m *FixMessage) Has(tag fixtag.Tag) bool {
	v, ok := m.fields[tag]
	return ok && v != ""
}

// Tags returns every tag present in the message, ascending.
func (m *FixMessage) Tags() []fixtag.Tag {
	out := make([]fixtag.Tag, 0, len(m.fields))
	for t := range m.fields {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of fields in the message.
func (m *FixMessage) Len() int { return len(m.fields) }

// Clone returns a deep copy of the message.
func (m *FixMessage) Clone() *FixMessage {
	return FromFields(m.fields)
}

// MsgType returns tag 35, erroring if it is absent or blank.
func (m *FixMessage) MsgType() (string, error) {
	v, ok := m.fields[fixtag.MsgType]
	if !ok || v == "" {
		return "", ErrMissingMsgType
	}
	return v, nil
}

// SenderCompID returns tag 49.
func (m *FixMessage) SenderCompID() string { return m.fields[fixtag.SenderCompID] }

// TargetCompID returns tag 56.
func (m *FixMessage) TargetCompID() string { return m.fields[fixtag.TargetCompID] }

// SeqNum parses tag 34 as an integer, returning 0 if absent or malformed.
func (m *FixMessage) SeqNum() int {
	v, ok := m.fields[fixtag.MsgSeqNum]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// Equal reports whether two messages have exactly the same tag/value pairs.
func (m *FixMessage) Equal(other *FixMessage) bool {
	if other == nil || len(m.fields) != len(other.fields) {
		return false
	}
	for t, v := range m.fields {
		if ov, ok := other.fields[t]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (m *FixMessage) String() string {
	tags := m.Tags()
	s := ""
	for _, t := range tags {
		s += fmt.Sprintf("%d=%s|", t, m.fields[t])
	}
	return s
}

// Direction distinguishes inbound/outbound log entries captured by the
// Scanner's metadata extraction.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionIn
	DirectionOut
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// RawMessage is the byte-level output of the Scanner: a self-delimited FIX
// payload with its field terminators normalized to SOH, plus whatever
// metadata the scanner could recover from the surrounding log text.
type RawMessage struct {
	Path      string
	Offset    int64
	Payload   []byte
	Timestamp string
	Direction Direction
}

// LogEntry pairs a dense, 1-based line number with its parsed message. Line
// numbers are assigned by a loader over one stream and are only meaningful
// within that stream.
type LogEntry struct {
	Line int
	Msg  *FixMessage
}

// SessionKey identifies a FIX counterparty pair by (SenderCompID,
// TargetCompID). Both must be non-empty for the key to be meaningful.
type SessionKey struct {
	SenderCompID string
	TargetCompID string
}

// ID returns the canonical "sender_target" string form used to sort and
// deduplicate sessions.
func (k SessionKey) ID() string {
	return k.SenderCompID + "_" + k.TargetCompID
}

// SessionKeyOf builds a SessionKey from a message's tag 49 / tag 56.
func SessionKeyOf(m *FixMessage) SessionKey {
	return SessionKey{SenderCompID: m.SenderCompID(), TargetCompID: m.TargetCompID()}
}
