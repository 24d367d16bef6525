package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/quickfix"
	"github.com/spf13/cobra"

	"github.com/coinbase-samples/fix-conformance-harness/compare"
	"github.com/coinbase-samples/fix-conformance-harness/fixtransport"
	"github.com/coinbase-samples/fix-conformance-harness/linker"
	"github.com/coinbase-samples/fix-conformance-harness/metrics"
	"github.com/coinbase-samples/fix-conformance-harness/reportstore"
	"github.com/coinbase-samples/fix-conformance-harness/runner"
)

func onlineCmd() *cobra.Command {
	var inputsPath, expectedPath, sessionCfgPath, candidateTags, msgTypes, reportDB string
	var queueCapacity int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "online",
		Short: "Replay an entry-side FIX log against a live gateway and compare its exit-side replies",
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

			tags, err := parseTagList(candidateTags)
			if err != nil {
				return err
			}
			cfg := linker.LinkerConfig{CandidateTags: tags}

			cfgFile, err := os.Open(sessionCfgPath)
			if err != nil {
				return err
			}
			defer cfgFile.Close()
			settings, err := quickfix.ParseSettings(cfgFile)
			if err != nil {
				return fmt.Errorf("parsing session config: %w", err)
			}

			beginString, _ := settings.GlobalSettings().Setting("BeginString")
			senderCompID, _ := settings.GlobalSettings().Setting("SenderCompID")
			targetCompID, _ := settings.GlobalSettings().Setting("TargetCompID")
			transport := fixtransport.New(fixtransport.Config{
				BeginString:  beginString,
				SenderCompID: senderCompID,
				TargetCompID: targetCompID,
			}, logger)
			storeFactory := quickfix.NewMemoryStoreFactory()
			logFactory := quickfix.NewNullLogFactory()
			initiator, err := quickfix.NewInitiator(transport, storeFactory, settings, logFactory)
			if err != nil {
				return fmt.Errorf("building initiator: %w", err)
			}
			if err := initiator.Start(); err != nil {
				return fmt.Errorf("starting initiator: %w", err)
			}
			defer initiator.Stop()

			collector := metrics.NewCollector(nil)
			comparator := compare.NewComparator(compare.NewConfig())
			onlineRunner := runner.NewOnlineRunner(transport, cfg, comparator, filter, runner.OnlineConfig{
				QueueCapacity: queueCapacity,
				PollTimeout:   timeout,
			}, logger).WithMetrics(collector)

			ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
			defer cancel()

			result, err := onlineRunner.Run(ctx, inputEntries, expectedEntries)
			if err != nil {
				return err
			}

			var store *reportstore.Store
			if reportDB != "" {
				store, err = reportstore.Open(reportDB)
				if err != nil {
					return err
				}
				defer store.Close()
			}
			printOnlineResult(result, store)

			if !result.Passed {
				return fmt.Errorf("online run failed: sent=%d received=%d timedOut=%v matched=%d unmatchedExpected=%d unmatchedActual=%d ambiguous=%d dropped=%d",
					result.Sent, result.Received, result.TimedOut, result.Matched, result.UnmatchedExpected, result.UnmatchedActual, result.Ambiguous, result.Dropped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputsPath, "inputs", "", "path to the entry-side FIX log replayed into the live gateway")
	cmd.Flags().StringVar(&expectedPath, "expected", "", "path to the expected exit-side FIX log")
	cmd.Flags().StringVar(&sessionCfgPath, "session-config", "", "path to the quickfix session settings file")
	cmd.Flags().StringVar(&candidateTags, "candidate-tags", "11,37,17,41", "comma-separated FIX tags LinkDiscovery may build a correlation key from")
	cmd.Flags().StringVar(&msgTypes, "msg-types", "", "comma-separated message types to admit into the run; empty admits every type")
	cmd.Flags().StringVar(&reportDB, "report-db", "", "optional SQLite path to persist results")
	cmd.Flags().IntVar(&queueCapacity, "queue-capacity", 1024, "capacity of the bounded inbound reply queue")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the expected replies")
	_ = cmd.MarkFlagRequired("inputs")
	_ = cmd.MarkFlagRequired("expected")
	_ = cmd.MarkFlagRequired("session-config")

	return cmd
}

func printOnlineResult(result runner.OnlineRunResult, store *reportstore.Store) {
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

	fmt.Printf("sent:               %d\n", result.Sent)
	fmt.Printf("received:           %d\n", result.Received)
	fmt.Printf("queue dropped:      %d\n", result.Dropped)
	fmt.Printf("timed out:          %v\n", result.TimedOut)
	fmt.Printf("matched:            %d\n", result.Matched)
	fmt.Printf("tag mismatches:     %d\n", mismatches)
	fmt.Printf("unmatched expected: %d\n", result.UnmatchedExpected)
	fmt.Printf("unmatched actual:   %d\n", result.UnmatchedActual)
	fmt.Printf("ambiguous:          %d\n", result.Ambiguous)
	fmt.Printf("passed:             %v\n", result.Passed)
}
