package runner

import (
	"context"
	"testing"
	"time"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/linker"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// fakeTransport is an in-process Transport for tests: every Send echoes
// an OrderID-stamped reply onto Inbound.
type fakeTransport struct {
	inbound chan *message.FixMessage
	sent    []*message.FixMessage
}

func newFakeTransport(capacity int) *fakeTransport {
	return &fakeTransport{inbound: make(chan *message.FixMessage, capacity)}
}

func (f *fakeTransport) Send(ctx context.Context, msg *message.FixMessage) error {
	f.sent = append(f.sent, msg)
	clOrdID, _ := msg.Get(fixtag.Tag(11))
	reply := msg.Clone()
	reply.Set(fixtag.MsgType, "8")
	reply.Set(fixtag.Tag(37), "OID-"+clOrdID)
	select {
	case f.inbound <- reply:
	default:
	}
	return nil
}

func (f *fakeTransport) Inbound() <-chan *message.FixMessage { return f.inbound }
func (f *fakeTransport) Close() error                        { close(f.inbound); return nil }

func newOrderMsg(clOrdID string) *message.FixMessage {
	m := message.New()
	m.Set(fixtag.MsgType, "D")
	m.Set(fixtag.Tag(11), clOrdID)
	return m
}

func expectedEntry(line int, clOrdID string) message.LogEntry {
	return message.LogEntry{Line: line, Msg: newOrderMsg(clOrdID)}
}

// TestOnlineRunner_HappyPathInjectsAndCollects verifies the online
// happy-path scenario from spec §8: input orders are injected, their
// execution-report replies collected and matched against the expected
// reports within the poll deadline.
func TestOnlineRunner_HappyPathInjectsAndCollects(t *testing.T) {
	transport := newFakeTransport(8)
	cfg := linker.LinkerConfig{CandidateTags: []fixtag.Tag{11, 37}}
	cmp := compare.NewComparator(compare.NewConfig())

	r := NewOnlineRunner(transport, cfg, cmp, nil, OnlineConfig{
		QueueCapacity: 8,
		PollInterval:  time.Millisecond,
		PollTimeout:   time.Second,
	}, nil)

	inputs := []message.LogEntry{expectedEntry(1, "ORD-1"), expectedEntry(2, "ORD-2")}
	// The expected replies are the execution reports fakeTransport echoes
	// for each input order.
	expected := make([]message.LogEntry, 0, len(inputs))
	for _, in := range inputs {
		m := in.Msg.Clone()
		clOrdID, _ := m.Get(fixtag.Tag(11))
		m.Set(fixtag.MsgType, "8")
		m.Set(fixtag.Tag(37), "OID-"+clOrdID)
		expected = append(expected, message.LogEntry{Line: in.Line, Msg: m})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := r.Run(ctx, inputs, expected)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Sent != 2 {
		t.Fatalf("expected 2 messages sent, got %d", result.Sent)
	}
	if result.TimedOut {
		t.Fatalf("expected no timeout on the happy path")
	}
	if result.Matched != 2 {
		t.Fatalf("expected both replies matched, got %d", result.Matched)
	}
	if !result.Passed {
		t.Fatalf("expected a passed result, got %+v", result)
	}
}

// TestOnlineRunner_DropsWhenQueueFull verifies the bounded queue's
// non-blocking drop-and-count behavior rather than applying backpressure.
func TestOnlineRunner_DropsWhenQueueFull(t *testing.T) {
	transport := newFakeTransport(5)
	cfg := linker.LinkerConfig{CandidateTags: []fixtag.Tag{11}}
	cmp := compare.NewComparator(compare.NewConfig())

	r := NewOnlineRunner(transport, cfg, cmp, nil, OnlineConfig{
		QueueCapacity: 1,
		PollInterval:  time.Millisecond,
		PollTimeout:   50 * time.Millisecond,
	}, nil)

	for i := 0; i < 5; i++ {
		transport.inbound <- newOrderMsg("FLOOD")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go r.pump(ctx)

	// Nothing reads r.queue here, so once the pump fills its single slot
	// every further inbound message has to be dropped.
	deadline := time.Now().Add(500 * time.Millisecond)
	for r.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if r.Dropped() == 0 {
		t.Fatalf("expected at least one drop once the queue saturated")
	}
}

// TestOnlineRunner_TimesOutButStillMatchesPartialReplies verifies that
// when replies never arrive, Run sets TimedOut rather than returning an
// error, and still runs match_result over whatever it received (nothing,
// in this case).
func TestOnlineRunner_TimesOutButStillMatchesPartialReplies(t *testing.T) {
	transport := &stubTransport{inbound: make(chan *message.FixMessage)}
	cfg := linker.LinkerConfig{CandidateTags: []fixtag.Tag{11}}
	cmp := compare.NewComparator(compare.NewConfig())

	r := NewOnlineRunner(transport, cfg, cmp, nil, OnlineConfig{
		QueueCapacity: 4,
		PollInterval:  time.Millisecond,
		PollTimeout:   30 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	expected := []message.LogEntry{expectedEntry(1, "ORD-1")}
	result, err := r.Run(ctx, expected, expected)
	if err != nil {
		t.Fatalf("expected no error on timeout, got %v", err)
	}
	if !result.TimedOut {
		t.Fatalf("expected TimedOut set")
	}
	if result.UnmatchedExpected != 1 {
		t.Fatalf("expected the unreceived reply to surface as unmatched, got %d", result.UnmatchedExpected)
	}
	if result.Passed {
		t.Fatalf("expected a timed-out run not to pass")
	}
}

// TestOnlineRunner_FilterDropsNonAdmittedReplies verifies a reply whose
// message type the filter rejects never reaches the match.
func TestOnlineRunner_FilterDropsNonAdmittedReplies(t *testing.T) {
	transport := newFakeTransport(8)
	cfg := linker.LinkerConfig{CandidateTags: []fixtag.Tag{11, 37}}
	cmp := compare.NewComparator(compare.NewConfig())
	filter := NewMsgTypeFilter("D") // admits outbound NewOrderSingle, rejects the "8" reply

	r := NewOnlineRunner(transport, cfg, cmp, filter, OnlineConfig{
		QueueCapacity: 8,
		PollInterval:  time.Millisecond,
		PollTimeout:   50 * time.Millisecond,
	}, nil)

	expected := []message.LogEntry{expectedEntry(1, "ORD-1")}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	result, err := r.Run(ctx, expected, expected)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Received != 0 {
		t.Fatalf("expected the filtered-out reply never received, got %d", result.Received)
	}
}

type stubTransport struct {
	inbound chan *message.FixMessage
}

func (s *stubTransport) Send(ctx context.Context, msg *message.FixMessage) error { return nil }
func (s *stubTransport) Inbound() <-chan *message.FixMessage                    { return s.inbound }
func (s *stubTransport) Close() error                                           { return nil }
