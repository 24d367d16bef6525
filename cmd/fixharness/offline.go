package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/linker"
	"github.com/coinbase-samples/fix-conformance-harness/reportstore"
	"github.com/coinbase-samples/fix-conformance-harness/runner"
)

func offlineCmd() *cobra.Command {
	var inputsPath, expectedPath, actualPath, candidateTags, msgTypes, reportDB string

	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Compare an expected FIX log against an actual FIX log, linking messages via a discovered correlation strategy",
		RunE: func(_ *cobra.Command, _ []string) error {
			filter := parseMsgTypeFilter(msgTypes)

			inputEntries, err := loadEntries(inputsPath, filter)
			if err != nil {
				return err
			}
			expectedEntries, err := loadEntries(expectedPath, filter)
			if err != nil {
				return err
			}
			actualEntries, err := loadEntries(actualPath, filter)
			if err != nil {
				return err
			}

			tags, err := parseTagList(candidateTags)
			if err != nil {
				return err
			}
			cfg := linker.LinkerConfig{CandidateTags: tags}

			comparator := compare.NewComparator(compare.NewConfig())
			offlineRunner := runner.NewOfflineRunner(cfg, comparator, filter, logger)
			result := offlineRunner.Run(inputEntries, expectedEntries, actualEntries)

			var store *reportstore.Store
			if reportDB != "" {
				store, err = reportstore.Open(reportDB)
				if err != nil {
					return err
				}
				defer store.Close()
			}
			printOfflineResult(result, store)

			if !result.Passed() {
				return fmt.Errorf("offline run failed: matched=%d unmatchedExpected=%d unmatchedActual=%d ambiguous=%d failedDiffs=%d",
					result.Matched, result.UnmatchedExpected, result.UnmatchedActual, result.Ambiguous, result.Diffs.Failed())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputsPath, "inputs", "", "path to the entry-side FIX log LinkDiscovery uses to learn the correlation strategy")
	cmd.Flags().StringVar(&expectedPath, "expected", "", "path to the expected exit-side FIX log")
	cmd.Flags().StringVar(&actualPath, "actual", "", "path to the actual exit-side FIX log")
	cmd.Flags().StringVar(&candidateTags, "candidate-tags", "11,37,17,41", "comma-separated FIX tags LinkDiscovery may build a correlation key from")
	cmd.Flags().StringVar(&msgTypes, "msg-types", "", "comma-separated message types to admit into the run; empty admits every type")
	cmd.Flags().StringVar(&reportDB, "report-db", "", "optional SQLite path to persist results")
	_ = cmd.MarkFlagRequired("inputs")
	_ = cmd.MarkFlagRequired("expected")
	_ = cmd.MarkFlagRequired("actual")

	return cmd
}

// parseTagList parses a comma-separated list of FIX tag numbers.
func parseTagList(s string) ([]fixtag.Tag, error) {
	var out []fixtag.Tag
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid tag %q: %w", part, err)
		}
		out = append(out, fixtag.Tag(n))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no candidate tags given")
	}
	return out, nil
}

// parseMsgTypeFilter parses a comma-separated list of message types into a
// MsgTypeFilter. An empty string admits every type.
func parseMsgTypeFilter(s string) runner.MsgTypeFilter {
	var types []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			types = append(types, part)
		}
	}
	return runner.NewMsgTypeFilter(types...)
}

func printOfflineResult(result runner.OfflineRunResult, store *reportstore.Store) {
	runID, _ := store.RecordRun(uuid.NewString(), time.Now().UTC().Format(time.RFC3339))

	mismatches := 0
	for _, entry := range result.Diffs.Entries {
		for _, d := range entry.Result.Mismatches() {
			mismatches++
			_ = store.RecordDiff(runID, int(d.Tag), d.Kind.String(), d.Expected, d.Actual)
		}
	}
	if result.UnmatchedExpected > 0 {
		_ = store.RecordUnmatched(runID, "expected", fmt.Sprintf("count=%d", result.UnmatchedExpected))
	}
	if result.UnmatchedActual > 0 {
		_ = store.RecordUnmatched(runID, "actual", fmt.Sprintf("count=%d", result.UnmatchedActual))
	}

	fmt.Printf("used actual:        %v\n", result.UsedActual)
	fmt.Printf("matched:            %d\n", result.Matched)
	fmt.Printf("tag mismatches:     %d\n", mismatches)
	fmt.Printf("unmatched expected: %d\n", result.UnmatchedExpected)
	fmt.Printf("unmatched actual:   %d\n", result.UnmatchedActual)
	fmt.Printf("ambiguous:          %d\n", result.Ambiguous)
	fmt.Printf("passed:             %v\n", result.Passed())
}
