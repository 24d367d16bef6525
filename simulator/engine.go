package simulator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
	"github.com/coinbase-samples/fix-conformance-harness/metrics"
	"github.com/coinbase-samples/fix-conformance-harness/mutation"
	"github.com/coinbase-samples/fix-conformance-harness/wire"
)

// gaugeInterval is how often Run republishes the live session-count gauge,
// matching the teacher's own low-overhead poll cadence.
const gaugeInterval = 10 * time.Millisecond

// RouteCode is the upstream-facing outcome of routing one entry-inbound
// frame, mirroring the embedded FIX engine's try_send/poll contract:
// CONTINUE tells the caller the frame was consumed (sent, queued, or
// dropped by a filter or a failed parse or mutation), ABORT
// tells it to redeliver the frame.
type RouteCode int

const (
	CONTINUE RouteCode = iota
	ABORT
)

func (c RouteCode) String() string {
	if c == ABORT {
		return "ABORT"
	}
	return "CONTINUE"
}

// EndpointIdentity is the (listen address, CompID pair) a runtime matches
// an acquired session's identity against to decide whether it's the entry
// or exit session.
type EndpointIdentity struct {
	ListenHost   string
	ListenPort   int
	LocalCompID  string
	RemoteCompID string
}

// Config is the simulator's routing configuration, per spec §6's
// `routing`/`mutation`/`shutdown` keys.
type Config struct {
	Entry       EndpointIdentity
	Exit        EndpointIdentity
	BeginString string

	// EnabledMsgTypes restricts routed business traffic; nil/empty
	// admits every message type.
	EnabledMsgTypes       map[string]bool
	DropAdminMessages     bool
	ArtificialDelay       time.Duration
	FailIfExitNotLoggedOn bool
	MaxQueueDepth         int

	GracefulTimeout time.Duration
}

// Topology reports whether cfg's entry/exit listen ports coincide.
func (c Config) Topology() Topology {
	return topologyFor(c.Entry.ListenPort, c.Exit.ListenPort)
}

func (c Config) admits(msgType string) bool {
	if len(c.EnabledMsgTypes) == 0 {
		return true
	}
	return c.EnabledMsgTypes[msgType]
}

// Simulator fronts the entry and exit Endpoints: every frame accepted on
// the entry session is routed to the exit session, through the mutation
// pipeline, per spec §4.9.
type Simulator struct {
	cfg     Config
	entry   *Endpoint
	exit    *Endpoint
	mutator *mutation.Engine
	logger  *zap.Logger
	metrics *metrics.Collector

	// routingMu is the routing_lock of spec §5: it guards the pending
	// queue and the flush-then-send sequence against concurrent entry
	// frames and session acquisition.
	routingMu sync.Mutex
	queue     *boundedQueue
	lastSeq   atomic.Int64

	errMu   sync.Mutex
	lastErr error
}

// NewSimulator builds a Simulator bound to cfg. A nil mutator routes
// traffic unmodified; a nil logger falls back to zap.NewNop().
func NewSimulator(cfg Config, mutator *mutation.Engine, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		cfg:     cfg,
		entry:   NewEndpoint("entry"),
		exit:    NewEndpoint("exit"),
		mutator: mutator,
		logger:  logger,
		queue:   newBoundedQueue(cfg.MaxQueueDepth),
	}
}

// WithMetrics attaches a metrics.Collector the simulator reports its live
// session gauge to while Run is active. A nil Collector (the default)
// makes reporting a no-op.
func (s *Simulator) WithMetrics(m *metrics.Collector) *Simulator {
	s.metrics = m
	return s
}

// Start moves both endpoints from INIT to AWAITING_SESSION.
func (s *Simulator) Start() error {
	if err := s.entry.Start(); err != nil {
		return fmt.Errorf("simulator: starting entry endpoint: %w", err)
	}
	if err := s.exit.Start(); err != nil {
		return fmt.Errorf("simulator: starting exit endpoint: %w", err)
	}
	return nil
}

// Stop closes whichever sessions are currently assigned and moves both
// endpoints to STOPPED. A close failure on one endpoint is chained as a
// suppressed error rather than discarded, per spec §5's shutdown
// semantics; the first error encountered is returned.
func (s *Simulator) Stop() error {
	var first error
	note := func(err error) {
		if err == nil {
			return
		}
		if first == nil {
			first = err
			return
		}
		s.logger.Warn("suppressed error during simulator shutdown", zap.Error(err))
	}

	for _, ep := range []*Endpoint{s.entry, s.exit} {
		if sess := ep.Current(); sess != nil {
			note(sess.Transport.Close())
		}
		note(ep.Stop())
	}
	return first
}

func (s *Simulator) setLastError(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.lastErr == nil {
		s.lastErr = err
	}
}

// LastError returns the first fatal runtime error the simulator latched,
// or nil.
func (s *Simulator) LastError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// IsReady reports whether both entry and exit currently have an assigned
// session and no fatal error has latched, per spec §4.9's isReady.
func (s *Simulator) IsReady() bool {
	return s.entry.Current() != nil && s.exit.Current() != nil && s.LastError() == nil
}

func (s *Simulator) sessionCount() int {
	n := 0
	if s.entry.Current() != nil {
		n++
	}
	if s.exit.Current() != nil {
		n++
	}
	return n
}

// AcquireSession assigns sess to the entry or exit endpoint by matching
// (localCompID, remoteCompID) against cfg.Entry/cfg.Exit, per spec §4.9's
// runtime acquire callback. A session matching neither identity is
// observed-only: the simulator ignores its traffic. Acquiring the exit
// session triggers a queue flush, per the exit-session flush hook.
func (s *Simulator) AcquireSession(sess *Session, localCompID, remoteCompID string) {
	switch {
	case localCompID == s.cfg.Entry.LocalCompID && remoteCompID == s.cfg.Entry.RemoteCompID:
		if err := s.entry.Assign(sess); err != nil {
			s.logger.Warn("entry session assign rejected", zap.Error(err), zap.String("session", sess.ID))
			return
		}
		s.logger.Info("entry session acquired", zap.String("session", sess.ID))
	case localCompID == s.cfg.Exit.LocalCompID && remoteCompID == s.cfg.Exit.RemoteCompID:
		if err := s.exit.Assign(sess); err != nil {
			s.logger.Warn("exit session assign rejected", zap.Error(err), zap.String("session", sess.ID))
			return
		}
		s.logger.Info("exit session acquired", zap.String("session", sess.ID))
		s.flushQueue()
	default:
		s.logger.Debug("session acquired observed-only", zap.String("session", sess.ID))
	}
}

// ReleaseSession returns whichever endpoint currently holds sess to
// AWAITING_SESSION, e.g. on disconnect.
func (s *Simulator) ReleaseSession(sess *Session) {
	if s.entry.Current() == sess {
		_ = s.entry.Release()
		s.logger.Info("entry session released", zap.String("session", sess.ID))
	}
	if s.exit.Current() == sess {
		_ = s.exit.Release()
		s.logger.Info("exit session released", zap.String("session", sess.ID))
	}
}

// RouteEntryFrame implements the routing pipeline for one inbound frame
// arriving on the entry session, per spec §4.9: normalize and parse, drop
// if msgType is missing, apply the admission filter, run the mutation
// pipeline (dropping if it strips tag 35), then flush-then-send to the
// exit session, or enqueue/drop per FailIfExitNotLoggedOn when the exit
// session isn't connected.
func (s *Simulator) RouteEntryFrame(raw []byte) RouteCode {
	msg, err := wire.ParseFramed(raw, wire.DefaultDelimiterRules())
	if err != nil {
		s.logger.Warn("dropping malformed inbound frame", zap.Error(err))
		return CONTINUE
	}

	msgType, err := msg.MsgType()
	if err != nil {
		s.logger.Warn("dropping inbound frame with missing msgType", zap.Error(err))
		return CONTINUE
	}

	if s.cfg.DropAdminMessages && fixtag.AdminMsgTypes[msgType] {
		return CONTINUE
	}
	if !s.cfg.admits(msgType) {
		return CONTINUE
	}

	mutated := msg
	if s.mutator != nil {
		outcome, err := s.mutator.Apply(msg)
		if err != nil {
			s.setLastError(err)
			s.logger.Warn("mutation pipeline error, dropping inbound", zap.Error(err), zap.String("msgType", msgType))
			return CONTINUE
		}
		mutated = outcome.Message
	}

	if _, err := mutated.MsgType(); err != nil {
		s.setLastError(fmt.Errorf("simulator: mutation stripped tag 35 from a %s message: %w", msgType, err))
		s.logger.Error("mutated message lost tag 35, dropping", zap.String("originalMsgType", msgType))
		return CONTINUE
	}

	if s.cfg.ArtificialDelay > 0 {
		time.Sleep(s.cfg.ArtificialDelay)
	}

	s.routingMu.Lock()
	defer s.routingMu.Unlock()

	if s.exit.Current() != nil {
		if code := s.flushQueueLocked(); code == ABORT {
			return ABORT
		}
		return s.sendToExitLocked(mutated)
	}

	if s.cfg.FailIfExitNotLoggedOn {
		s.setLastError(fmt.Errorf("simulator: exit session not logged on, dropping %s", msgType))
		s.logger.Error("exit session not logged on, dropping inbound", zap.String("msgType", msgType))
		return CONTINUE
	}

	if err := s.queue.Push(mutated); err != nil {
		s.setLastError(err)
		s.logger.Warn("pending queue full, aborting for redelivery", zap.Error(err))
		return ABORT
	}
	return CONTINUE
}

// flushQueue drains the pending queue to the exit session under
// routingMu, stopping (and leaving the head in place) at the first send
// failure so FIFO order survives for redelivery.
func (s *Simulator) flushQueue() RouteCode {
	s.routingMu.Lock()
	defer s.routingMu.Unlock()
	return s.flushQueueLocked()
}

func (s *Simulator) flushQueueLocked() RouteCode {
	for {
		msg, ok := s.queue.Peek()
		if !ok {
			return CONTINUE
		}
		if s.exit.Current() == nil {
			return CONTINUE
		}
		if code := s.sendToExitLocked(msg); code == ABORT {
			return ABORT
		}
		s.queue.Pop()
	}
}

// sendToExitLocked encodes msg through the Codec using the exit
// endpoint's own (SenderCompID, TargetCompID) and the next sequence
// number, then sends the re-parsed result to the exit session's
// Transport. Must be called with routingMu held.
func (s *Simulator) sendToExitLocked(msg *message.FixMessage) RouteCode {
	session := s.exit.Current()
	if session == nil {
		return ABORT
	}

	raw, seq, _, err := wire.Encode(msg, wire.EncodeParams{
		BeginString:  s.cfg.BeginString,
		SenderCompID: s.cfg.Exit.LocalCompID,
		TargetCompID: s.cfg.Exit.RemoteCompID,
		SeqNum:       int(s.nextSeq()),
	})
	if err != nil {
		s.setLastError(err)
		s.logger.Warn("exit encode failed", zap.Error(err))
		return ABORT
	}
	encoded, err := wire.Parse(raw)
	if err != nil {
		s.setLastError(err)
		return ABORT
	}

	if err := session.Transport.Send(context.Background(), encoded); err != nil {
		s.setLastError(err)
		s.logger.Warn("exit send failed", zap.Error(err), zap.Int("seq", seq))
		return ABORT
	}
	return CONTINUE
}

// nextSeq returns max(1, lastSentSeq+1), per spec §4.9's exit sequencing.
func (s *Simulator) nextSeq() int64 {
	for {
		last := s.lastSeq.Load()
		next := last + 1
		if next < 1 {
			next = 1
		}
		if s.lastSeq.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Run republishes the live session-count gauge until ctx is canceled.
// Frame routing itself runs synchronously on whatever goroutine calls
// RouteEntryFrame rather than through a separate poll loop draining an
// inbound queue: the simulator has no artio-style fragment poller to run,
// so there's nothing else for a per-runtime poll task to do.
func (s *Simulator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.reportSessionGauge(ctx) })
	return g.Wait()
}

func (s *Simulator) reportSessionGauge(ctx context.Context) error {
	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.metrics.SetSimulatorSessions(float64(s.sessionCount()))
		}
	}
}
