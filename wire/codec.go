package wire

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// ErrMissingBeginMsgType is returned when Encode is asked to emit a message
// with no (or blank) tag 35.
var ErrMissingBeginMsgType = errors.New("wire: tag 35 (MsgType) is missing or blank")

// ErrPayloadTooLarge is returned when an encoded payload would exceed
// MaxOutboundLength.
var ErrPayloadTooLarge = errors.New("wire: encoded payload exceeds max outbound length")

const sentinelSendingTime = "19700101-00:00:00.000"

// EncodeParams are the caller-supplied values Encode can't derive from the
// field map alone: the session identity and framing values that belong in
// the fixed header per spec §4.2.
type EncodeParams struct {
	BeginString       string
	SenderCompID      string
	TargetCompID      string
	SeqNum            int
	SendingTime       string // optional; sentinelSendingTime used if blank
	MaxOutboundLength int    // 0 means unbounded
}

// Encode produces a wire-correct FIX payload from fields plus the framing
// values in params. Fields must contain at least a non-blank tag 35; 8, 9,
// 10, 34, 49, 52, 56 in fields are ignored in favor of params (and the
// computed BodyLength/Checksum), matching the teacher's buildHeader which
// always sets header fields itself rather than trusting caller-supplied
// ones.
func Encode(fields *message.FixMessage, params EncodeParams) ([]byte, int, string, error) {
	msgType, ok := fields.Get(fixtag.MsgType)
	if !ok || msgType == "" {
		return nil, 0, "", ErrMissingBeginMsgType
	}

	sendingTime := params.SendingTime
	if sendingTime == "" {
		sendingTime = sentinelSendingTime
	}

	body := buildBody(fields, msgType, params, sendingTime)

	bodyLen := len(body)
	out := make([]byte, 0, bodyLen+64)
	out = append(out, []byte(fmt.Sprintf("8=%s\x01", params.BeginString))...)
	out = append(out, []byte(fmt.Sprintf("9=%d\x01", bodyLen))...)
	out = append(out, body...)

	checksum := sumBytes(out) % 256
	out = append(out, []byte(fmt.Sprintf("10=%03d\x01", checksum))...)

	if params.MaxOutboundLength > 0 && len(out) > params.MaxOutboundLength {
		return nil, 0, "", ErrPayloadTooLarge
	}
	return out, params.SeqNum, msgType, nil
}

// buildBody emits everything from tag 35 through the last business field's
// SOH: the span BodyLength counts.
func buildBody(fields *message.FixMessage, msgType string, params EncodeParams, sendingTime string) []byte {
	var out []byte
	out = append(out, []byte(fmt.Sprintf("35=%s\x01", msgType))...)
	out = append(out, []byte(fmt.Sprintf("49=%s\x01", params.SenderCompID))...)
	out = append(out, []byte(fmt.Sprintf("56=%s\x01", params.TargetCompID))...)
	out = append(out, []byte(fmt.Sprintf("34=%d\x01", params.SeqNum))...)
	out = append(out, []byte(fmt.Sprintf("52=%s\x01", sendingTime))...)

	for _, t := range businessTags(fields) {
		v, _ := fields.Get(t)
		out = append(out, []byte(fmt.Sprintf("%d=%s\x01", int(t), v))...)
	}
	return out
}

// businessTags returns every tag outside the fixed header/trailer set,
// ascending.
func businessTags(fields *message.FixMessage) []fixtag.Tag {
	excluded := map[fixtag.Tag]bool{
		fixtag.BeginString:  true,
		fixtag.BodyLength:   true,
		fixtag.CheckSum:     true,
		fixtag.MsgSeqNum:    true,
		fixtag.MsgType:      true,
		fixtag.SenderCompID: true,
		fixtag.SendingTime:  true,
		fixtag.TargetCompID: true,
	}
	out := make([]fixtag.Tag, 0, fields.Len())
	for _, t := range fields.Tags() {
		if !excluded[t] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sumBytes(b []byte) int {
	sum := 0
	for _, c := range b {
		sum += int(c)
	}
	return sum
}

// RecomputeBodyLength returns the BodyLength an encoded payload should
// declare: the byte count from the start of tag 35 through the SOH
// preceding tag 10. Used by tests to verify Encode's own output.
func RecomputeBodyLength(payload []byte) (int, error) {
	end := lastChecksumFieldStart(payload)
	if end == -1 {
		return 0, errors.New("wire: payload has no tag 10")
	}
	tag9 := bytes.Index(payload, []byte("\x019="))
	if tag9 == -1 || tag9 >= end {
		return 0, errors.New("wire: payload has no tag 9")
	}
	// The body starts right after the SOH that terminates the tag 9 field.
	bodyStart := tag9 + 1 + bytes.IndexByte(payload[tag9+1:], 0x01) + 1
	return end - bodyStart, nil
}

// RecomputeChecksum returns the checksum the encoded payload should
// declare: sum of all bytes up to and including the SOH before tag 10, mod
// 256.
func RecomputeChecksum(payload []byte) (int, error) {
	idx := lastChecksumFieldStart(payload)
	if idx == -1 {
		return 0, errors.New("wire: payload has no tag 10")
	}
	return sumBytes(payload[:idx]) % 256, nil
}

// lastChecksumFieldStart finds the byte offset of the "10=" field that
// ends the payload, keeping the last one found in a forward scan since
// SOH-delimited payloads always terminate with it.
func lastChecksumFieldStart(payload []byte) int {
	start := 0
	last := -1
	for i, b := range payload {
		if b == 0x01 {
			field := payload[start:i]
			if len(field) >= 3 && field[0] == '1' && field[1] == '0' && field[2] == '=' {
				last = start
			}
			start = i + 1
		}
	}
	return last
}
