package wire

import (
	"io"
	"strings"
	"testing"

	"github.com/coinbase-samples/fix-conformance-harness/message"
)

func scanAll(t *testing.T, input string, cfg Config) []*message.RawMessage {
	t.Helper()
	sc := NewScanner(strings.NewReader(input), "test.log", cfg)
	var out []*message.RawMessage
	for {
		m, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		out = append(out, m)
	}
	return out
}

// TestScanner_MixedFraming reproduces the literal scenario from spec §8:
// one caret-delimited IN message, one noise line, one pipe-delimited OUT
// message.
func TestScanner_MixedFraming(t *testing.T) {
	input := "2026-01-10 10:15:30.100 INFO IN [8=FIX.4.4^A35=D^A49=BUY^A56=SELL^A11=ORD-1^A10=001^A]\n" +
		"noise line\n" +
		"2026-01-10 10:15:31.100 INFO OUT 8=FIX.4.4|35=8|49=SELL|56=BUY|37=EX-1|10=002|\n"

	msgs := scanAll(t, input, Config{})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	first, err := Parse(msgs[0].Payload)
	if err != nil {
		t.Fatalf("parse first message: %v", err)
	}
	mt, _ := first.MsgType()
	if mt != "D" {
		t.Fatalf("expected first MsgType D, got %s", mt)
	}
	if msgs[0].Direction != message.DirectionIn {
		t.Fatalf("expected first direction IN, got %v", msgs[0].Direction)
	}

	second, err := Parse(msgs[1].Payload)
	if err != nil {
		t.Fatalf("parse second message: %v", err)
	}
	mt2, _ := second.MsgType()
	if mt2 != "8" {
		t.Fatalf("expected second MsgType 8, got %s", mt2)
	}
	if msgs[1].Direction != message.DirectionOut {
		t.Fatalf("expected second direction OUT, got %v", msgs[1].Direction)
	}
}

// TestScanner_SummaryMatchesLiteralScenario verifies the scan summary
// numbers from spec §8 scenario 1 exactly.
func TestScanner_SummaryMatchesLiteralScenario(t *testing.T) {
	input := "2026-01-10 10:15:30.100 INFO IN [8=FIX.4.4^A35=D^A49=BUY^A56=SELL^A11=ORD-1^A10=001^A]\n" +
		"noise line\n" +
		"2026-01-10 10:15:31.100 INFO OUT 8=FIX.4.4|35=8|49=SELL|56=BUY|37=EX-1|10=002|\n"

	sc := NewScanner(strings.NewReader(input), "test.log", Config{})
	sum, err := Scan(sc)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if sum.MessageCount != 2 {
		t.Fatalf("expected messageCount=2, got %d", sum.MessageCount)
	}
	if sum.MsgTypeDistribution["D"] != 1 || sum.MsgTypeDistribution["8"] != 1 {
		t.Fatalf("expected {D:1, 8:1}, got %v", sum.MsgTypeDistribution)
	}
	if len(sum.SessionsDetected) != 2 {
		t.Fatalf("expected 2 distinct sessions, got %d", len(sum.SessionsDetected))
	}
}

// TestScanner_DelimiterAgnosticRoundTrip verifies the delimiter-agnostic
// property from spec §8: scanning the same message encoded with any
// recognized delimiter yields one RawMessage whose normalized payload is
// identical.
func TestScanner_DelimiterAgnosticRoundTrip(t *testing.T) {
	fields := "8=FIX.4.4\x0135=D\x0149=BUY\x0156=SELL\x0110=123\x01"
	sohMsgs := scanAll(t, fields, Config{})
	if len(sohMsgs) != 1 {
		t.Fatalf("expected 1 SOH message, got %d", len(sohMsgs))
	}

	pipeEncoded := strings.ReplaceAll(fields, "\x01", "|")
	pipeMsgs := scanAll(t, pipeEncoded, Config{})
	if len(pipeMsgs) != 1 {
		t.Fatalf("expected 1 pipe message, got %d", len(pipeMsgs))
	}

	caretEncoded := strings.ReplaceAll(fields, "\x01", "^A")
	caretMsgs := scanAll(t, caretEncoded, Config{})
	if len(caretMsgs) != 1 {
		t.Fatalf("expected 1 caret message, got %d", len(caretMsgs))
	}

	if string(pipeMsgs[0].Payload) != string(sohMsgs[0].Payload) {
		t.Fatalf("pipe-delimited payload diverged from SOH baseline")
	}
	if string(caretMsgs[0].Payload) != string(sohMsgs[0].Payload) {
		t.Fatalf("caret-delimited payload diverged from SOH baseline")
	}
}

// TestScanner_RobustToInterveningGarbage verifies that arbitrary byte runs
// with no "10=DDD" substring between two valid messages don't disturb
// extraction, per spec §8.
func TestScanner_RobustToInterveningGarbage(t *testing.T) {
	msg1 := "8=FIX.4.4\x0135=D\x0149=BUY\x0156=SELL\x0110=001\x01"
	garbage := "\x00\x00random-binary-noise-without-the-marker\xff\xfe"
	msg2 := "8=FIX.4.4\x0135=8\x0149=SELL\x0156=BUY\x0110=002\x01"

	msgs := scanAll(t, msg1+garbage+msg2, Config{})
	if len(msgs) != 2 {
		t.Fatalf("expected exactly 2 messages, got %d", len(msgs))
	}
	m1, _ := Parse(msgs[0].Payload)
	m2, _ := Parse(msgs[1].Payload)
	mt1, _ := m1.MsgType()
	mt2, _ := m2.MsgType()
	if mt1 != "D" || mt2 != "8" {
		t.Fatalf("expected D then 8, got %s then %s", mt1, mt2)
	}
}

// TestScanner_AbandonsOverLongCandidate verifies that a candidate message
// exceeding MaxMessageLength is abandoned and scanning resumes, rather than
// the scanner getting stuck or erroring.
func TestScanner_AbandonsOverLongCandidate(t *testing.T) {
	tooLong := "8=FIX.4.4\x01" + strings.Repeat("58=x\x01", 1000) + "10=001\x01"
	valid := "8=FIX.4.4\x0135=D\x0149=BUY\x0156=SELL\x0110=002\x01"

	msgs := scanAll(t, tooLong+valid, Config{MaxMessageLength: 64})
	if len(msgs) != 1 {
		t.Fatalf("expected the over-long candidate abandoned and only the valid one kept, got %d", len(msgs))
	}
	mt, _ := Parse(msgs[0].Payload)
	got, _ := mt.MsgType()
	if got != "D" {
		t.Fatalf("expected surviving message MsgType D, got %s", got)
	}
}

// TestScanner_DiscardsUnterminatedTrailingMessage verifies that an
// in-progress message with no terminator at end of stream is discarded.
func TestScanner_DiscardsUnterminatedTrailingMessage(t *testing.T) {
	input := "8=FIX.4.4\x0135=D\x0149=BUY\x0156=SELL\x0110=001\x01" + "8=FIX.4.4\x0135=8\x0149=SELL"
	msgs := scanAll(t, input, Config{})
	if len(msgs) != 1 {
		t.Fatalf("expected only the terminated message, got %d", len(msgs))
	}
}
