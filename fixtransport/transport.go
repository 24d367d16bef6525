// Package fixtransport adapts a live quickfixgo/quickfix session to the
// runner.Transport interface, so OnlineRunner can inject and collect
// traffic against a real FIX gateway the same way it would against any
// other Transport implementation.
package fixtransport

import (
	"context"
	"sync/atomic"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"

	"github.com/coinbase-samples/fix-conformance-harness/message"
	"github.com/coinbase-samples/fix-conformance-harness/wire"
)

// Config mirrors the identity fields the teacher's FixApp.Config carries:
// just enough to stamp an outbound header, nothing session-layer
// specific (quickfix owns sequencing, logon, and resend on its own).
type Config struct {
	BeginString  string
	SenderCompID string
	TargetCompID string
}

// Transport implements runner.Transport over one quickfix.SessionID.
// It satisfies quickfix.Application itself, the same role the teacher's
// FixApp plays, so it can be registered directly with quickfix.Initiator
// or quickfix.Acceptor.
type Transport struct {
	cfg    Config
	logger *zap.Logger

	sessionID atomic.Value // quickfix.SessionID
	seqNum    atomic.Int64
	inbound   chan *message.FixMessage
	closed    atomic.Bool
}

// New builds a Transport. A nil logger falls back to zap.NewNop().
func New(cfg Config, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{cfg: cfg, logger: logger, inbound: make(chan *message.FixMessage, 1024)}
}

// OnCreate records the session this Transport now represents, mirroring
// FixApp.OnCreate.
func (t *Transport) OnCreate(sid quickfix.SessionID) {
	t.sessionID.Store(sid)
}

func (t *Transport) OnLogon(sid quickfix.SessionID)  { t.sessionID.Store(sid) }
func (t *Transport) OnLogout(quickfix.SessionID)      {}
func (t *Transport) ToAdmin(*quickfix.Message, quickfix.SessionID) {}
func (t *Transport) ToApp(*quickfix.Message, quickfix.SessionID) error { return nil }

func (t *Transport) FromAdmin(*quickfix.Message, quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp is quickfix's entry point for every inbound application
// message; it converts the wire bytes back to a FixMessage and publishes
// them non-blockingly onto inbound, the same drop-rather-than-stall
// discipline OnlineRunner's own pump applies downstream.
func (t *Transport) FromApp(msg *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	fields, err := wire.Parse([]byte(msg.String()))
	if err != nil {
		t.logger.Warn("dropping unparseable inbound message", zap.Error(err))
		return nil
	}
	select {
	case t.inbound <- fields:
	default:
		t.logger.Warn("transport inbound channel full, dropping message")
	}
	return nil
}

// Send encodes msg and dispatches it to the currently known session via
// quickfix.SendToTarget, the same call the teacher's request helpers use.
func (t *Transport) Send(ctx context.Context, msg *message.FixMessage) error {
	sid, _ := t.sessionID.Load().(quickfix.SessionID)

	payload, _, _, err := wire.Encode(msg, wire.EncodeParams{
		BeginString:  t.cfg.BeginString,
		SenderCompID: t.cfg.SenderCompID,
		TargetCompID: t.cfg.TargetCompID,
		SeqNum:       int(t.seqNum.Add(1)),
	})
	if err != nil {
		return err
	}

	out := quickfix.NewMessage()
	if err := quickfix.ParseMessage(out, payload); err != nil {
		return err
	}
	return quickfix.SendToTarget(out, sid)
}

// Inbound returns the channel of messages the gateway has sent back.
func (t *Transport) Inbound() <-chan *message.FixMessage {
	return t.inbound
}

// Close marks the transport closed and releases its inbound channel.
// quickfix's own session lifecycle (not this Transport) owns the
// underlying socket.
func (t *Transport) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		close(t.inbound)
	}
	return nil
}
