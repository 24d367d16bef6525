package message

import (
	"testing"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
)

// TestFixMessage_MsgTypeRequiresTag35 verifies that MsgType fails when tag
// 35 is absent or blank, per the invariant in spec §3.
func TestFixMessage_MsgTypeRequiresTag35(t *testing.T) {
	m := New()
	if _, err := m.MsgType(); err != ErrMissingMsgType {
		t.Fatalf("expected ErrMissingMsgType for absent tag 35, got %v", err)
	}

	m.Set(fixtag.MsgType, "")
	if _, err := m.MsgType(); err != ErrMissingMsgType {
		t.Fatalf("expected ErrMissingMsgType for blank tag 35, got %v", err)
	}

	m.Set(fixtag.MsgType, "D")
	got, err := m.MsgType()
	if err != nil || got != "D" {
		t.Fatalf("expected MsgType D, got %q err=%v", got, err)
	}
}

// TestFixMessage_EqualIgnoresInsertionOrder verifies equality is a pure
// tag/value comparison, independent of the order fields were Set in.
func TestFixMessage_EqualIgnoresInsertionOrder(t *testing.T) {
	a := New()
	a.Set(fixtag.MsgType, "D")
	a.Set(fixtag.SenderCompID, "BUY")

	b := New()
	b.Set(fixtag.SenderCompID, "BUY")
	b.Set(fixtag.MsgType, "D")

	if !a.Equal(b) {
		t.Fatalf("expected equal messages regardless of Set order")
	}
}

// TestFixMessage_CloneIsIndependent verifies mutating a clone never affects
// the original message, since Clone makes a deep copy of the field map.
func TestFixMessage_CloneIsIndependent(t *testing.T) {
	a := New()
	a.Set(fixtag.MsgType, "D")
	b := a.Clone()
	b.Set(fixtag.MsgType, "8")

	got, _ := a.MsgType()
	if got != "D" {
		t.Fatalf("expected original message untouched, got %q", got)
	}
}

// TestSessionKey_IDFormat verifies the sender_target id format the Linker
// and runners both rely on for deterministic session ordering.
func TestSessionKey_IDFormat(t *testing.T) {
	k := SessionKey{SenderCompID: "BUY", TargetCompID: "SELL"}
	if got, want := k.ID(), "BUY_SELL"; got != want {
		t.Fatalf("ID() = %q, want %q", got, want)
	}
}
