package runner

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/linker"
	"github.com/coinbase-samples/fix-conformance-harness/message"
	"github.com/coinbase-samples/fix-conformance-harness/metrics"
)

// OnlineConfig controls OnlineRunner's queue capacity and poll deadline.
type OnlineConfig struct {
	QueueCapacity int
	PollInterval  time.Duration
	PollTimeout   time.Duration
}

func (c OnlineConfig) withDefaults() OnlineConfig {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 1024
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Millisecond
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
	return c
}

// OnlineRunResult is the outcome of one online run, per spec §4.8.
type OnlineRunResult struct {
	Sent              int
	Received          int
	Dropped           int64
	TimedOut          bool
	Matched           int
	UnmatchedExpected int
	UnmatchedActual   int
	Ambiguous         int
	Diffs             linker.DiffReport
	Passed            bool
}

// OnlineRunner discovers a CorrelationStrategy from a recorded
// input/expected sample, then injects the input messages into a live
// Transport and matches the gateway's replies against it, collected
// through a bounded, non-blocking queue so a slow consumer never stalls
// the transport's own read loop.
type OnlineRunner struct {
	transport  Transport
	cfg        linker.LinkerConfig
	comparator *compare.Comparator
	filter     MsgTypeFilter
	pollCfg    OnlineConfig
	logger     *zap.Logger

	queue   chan *message.FixMessage
	dropped atomic.Int64

	metrics *metrics.Collector
}

// WithMetrics attaches a metrics.Collector the runner reports queue
// drops to. A nil Collector (the default) makes metric reporting a
// no-op.
func (r *OnlineRunner) WithMetrics(m *metrics.Collector) *OnlineRunner {
	r.metrics = m
	return r
}

// NewOnlineRunner builds an OnlineRunner bound to transport. A nil
// logger falls back to zap.NewNop(); a nil/empty filter admits every
// message type.
func NewOnlineRunner(transport Transport, cfg linker.LinkerConfig, comparator *compare.Comparator, filter MsgTypeFilter, pollCfg OnlineConfig, logger *zap.Logger) *OnlineRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	pollCfg = pollCfg.withDefaults()
	return &OnlineRunner{
		transport:  transport,
		cfg:        cfg,
		comparator: comparator,
		filter:     filter,
		pollCfg:    pollCfg,
		logger:     logger,
		queue:      make(chan *message.FixMessage, pollCfg.QueueCapacity),
	}
}

// Dropped returns the count of inbound messages discarded because the
// queue was full.
func (r *OnlineRunner) Dropped() int64 {
	return r.dropped.Load()
}

// pump drains the transport's Inbound channel into r's bounded queue
// without ever blocking, applying the admission filter before a message
// ever reaches the queue: a filtered-out message type is discarded
// silently, while a full queue drops the message and counts it.
func (r *OnlineRunner) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-r.transport.Inbound():
			if !ok {
				return
			}
			mt, _ := msg.MsgType()
			if !r.filter.Accepts(mt) {
				continue
			}
			select {
			case r.queue <- msg:
			default:
				r.dropped.Add(1)
				r.metrics.IncQueueDropped()
				r.logger.Warn("inbound queue full, dropping message", zap.Int64("totalDropped", r.dropped.Load()))
			}
		}
	}
}

// Run discovers a CorrelationStrategy from inputs/expected, injects every
// entry-side input message that passes the admission filter, and polls
// for replies until len(expected) have arrived or the poll deadline
// elapses or ctx is canceled. A timeout or cancellation during the poll
// wait sets TimedOut rather than aborting: match_result still runs over
// whatever arrived before the deadline.
func (r *OnlineRunner) Run(ctx context.Context, inputs, expected []message.LogEntry) (OnlineRunResult, error) {
	strategy := linker.Discover(inputs, expected, r.cfg)

	go r.pump(ctx)

	sent := 0
	for _, e := range inputs {
		mt, _ := e.Msg.MsgType()
		if !r.filter.Accepts(mt) {
			continue
		}
		if err := r.transport.Send(ctx, e.Msg); err != nil {
			return OnlineRunResult{}, err
		}
		sent++
	}

	received, timedOut := r.poll(ctx, len(expected))
	actual := make([]message.LogEntry, len(received))
	for i, msg := range received {
		actual[i] = message.LogEntry{Line: i + 1, Msg: msg}
	}

	outcome := linker.MessageMatching(strategy, expected, actual, r.comparator, "online:", r.cfg.Normalizers)

	result := OnlineRunResult{
		Sent:              sent,
		Received:          len(received),
		Dropped:           r.dropped.Load(),
		TimedOut:          timedOut,
		Matched:           outcome.Matched,
		UnmatchedExpected: outcome.UnmatchedExpected,
		UnmatchedActual:   outcome.UnmatchedActual,
		Ambiguous:         outcome.Ambiguous,
		Diffs:             outcome.Diffs,
	}
	result.Passed = !timedOut &&
		result.UnmatchedExpected == 0 &&
		result.UnmatchedActual == 0 &&
		result.Ambiguous == 0 &&
		outcome.Diffs.Failed() == 0

	r.logger.Info("online run complete",
		zap.Int("sent", result.Sent),
		zap.Int("received", result.Received),
		zap.Bool("timedOut", result.TimedOut),
		zap.Int("matched", result.Matched),
		zap.Bool("passed", result.Passed),
	)
	return result, nil
}

// poll collects messages from r's queue until want have arrived or the
// poll deadline elapses, checking every PollInterval. timedOut is true
// whenever the wait ended by deadline or ctx cancellation rather than by
// collecting everything wanted.
func (r *OnlineRunner) poll(ctx context.Context, want int) (out []*message.FixMessage, timedOut bool) {
	out = make([]*message.FixMessage, 0, want)
	if want <= 0 {
		return out, false
	}

	timer := time.NewTimer(r.pollCfg.PollTimeout)
	defer timer.Stop()
	ticker := time.NewTicker(r.pollCfg.PollInterval)
	defer ticker.Stop()

	for len(out) < want {
		select {
		case <-ctx.Done():
			return out, true
		case <-timer.C:
			return out, true
		case msg := <-r.queue:
			out = append(out, msg)
		case <-ticker.C:
			// wake to re-check ctx/timer even with no new message
		}
	}
	return out, false
}
