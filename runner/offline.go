package runner

import (
	"go.uber.org/zap"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/linker"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// OfflineRunResult is the outcome of an offline comparison run, possibly
// spanning several FIX sessions present in the loaded logs.
type OfflineRunResult struct {
	// UsedActual is false when no actual log was supplied: the run only
	// scores discovery quality over inputs/expected, per session.
	UsedActual            bool
	Matched               int
	UnmatchedExpected     int
	UnmatchedActual       int
	Ambiguous             int
	Diffs                 linker.DiffReport
	PerSessionLinkReports map[string]linker.LinkReport
}

// Passed reports whether the run found nothing to flag: every expected
// and actual message was matched unambiguously and every matched pair
// compared equal.
func (r OfflineRunResult) Passed() bool {
	return r.UnmatchedExpected == 0 && r.UnmatchedActual == 0 && r.Ambiguous == 0 && r.Diffs.Failed() == 0
}

// OfflineRunner compares already-materialized message streams, possibly
// spanning several sessions, running LinkDiscovery independently within
// each one before matching.
type OfflineRunner struct {
	cfg        linker.LinkerConfig
	comparator *compare.Comparator
	filter     MsgTypeFilter
	logger     *zap.Logger
}

// NewOfflineRunner builds an OfflineRunner. A nil logger falls back to
// zap.NewNop(). A nil/empty filter admits every message type.
func NewOfflineRunner(cfg linker.LinkerConfig, comparator *compare.Comparator, filter MsgTypeFilter, logger *zap.Logger) *OfflineRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfflineRunner{cfg: cfg, comparator: comparator, filter: filter, logger: logger}
}

// Run iterates every SessionKey present across inputs, expected, and
// actuals in ascending SessionKey.ID() order, per spec §4.7: within each
// session, LinkDiscovery runs over that session's inputs/expected to
// build a CorrelationStrategy, and a LinkReport is recorded for it. If
// actuals is empty as passed in (before the filter is applied), the run
// only measures discovery quality (the
// LinkReport's own unmatched/ambiguous counts fold into the aggregate
// totals); otherwise expected is matched against that session's actuals
// under the discovered strategy, and the match outcome (not the
// LinkReport) folds into the totals.
func (r *OfflineRunner) Run(inputs, expected, actuals []message.LogEntry) OfflineRunResult {
	usedActual := len(actuals) > 0
	inputs = r.filtered(inputs)
	expected = r.filtered(expected)
	actuals = r.filtered(actuals)

	inBySession := bySession(inputs)
	expBySession := bySession(expected)
	actBySession := bySession(actuals)

	result := OfflineRunResult{
		UsedActual:            usedActual,
		PerSessionLinkReports: make(map[string]linker.LinkReport),
	}

	for _, sk := range sessionKeysUnion(inBySession, expBySession, actBySession) {
		sessionIn := inBySession[sk]
		sessionExp := expBySession[sk]
		strategy := linker.Discover(sessionIn, sessionExp, r.cfg)
		linkReport := linker.BuildLinkReport(strategy, sessionIn, sessionExp, r.cfg.Normalizers)
		result.PerSessionLinkReports[sk.ID()] = linkReport

		if !usedActual {
			result.UnmatchedExpected += linkReport.Unmatched
			result.Ambiguous += linkReport.Ambiguous
			continue
		}

		outcome := linker.MessageMatching(strategy, sessionExp, actBySession[sk], r.comparator, sk.ID()+":", r.cfg.Normalizers)
		result.Matched += outcome.Matched
		result.UnmatchedExpected += outcome.UnmatchedExpected
		result.UnmatchedActual += outcome.UnmatchedActual
		result.Ambiguous += outcome.Ambiguous
		result.Diffs.Entries = append(result.Diffs.Entries, outcome.Diffs.Entries...)
	}

	r.logger.Info("offline run complete",
		zap.Bool("usedActual", result.UsedActual),
		zap.Int("matched", result.Matched),
		zap.Int("unmatchedExpected", result.UnmatchedExpected),
		zap.Int("unmatchedActual", result.UnmatchedActual),
		zap.Int("ambiguous", result.Ambiguous),
		zap.Int("failed", result.Diffs.Failed()),
	)
	return result
}

func (r *OfflineRunner) filtered(entries []message.LogEntry) []message.LogEntry {
	if len(r.filter) == 0 {
		return entries
	}
	out := make([]message.LogEntry, 0, len(entries))
	for _, e := range entries {
		mt, err := e.Msg.MsgType()
		if err == nil && !r.filter.Accepts(mt) {
			continue
		}
		out = append(out, e)
	}
	return out
}
