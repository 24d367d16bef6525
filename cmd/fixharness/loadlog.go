package main

import (
	"fmt"
	"io"
	"os"

	"github.com/coinbase-samples/fix-conformance-harness/message"
	"github.com/coinbase-samples/fix-conformance-harness/runner"
	"github.com/coinbase-samples/fix-conformance-harness/wire"
)

// loadMessages scans and parses every FIX message out of the file at path,
// discarding fragments that fail to parse rather than aborting the run.
func loadMessages(path string) ([]*message.FixMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sc := wire.NewScanner(f, path, wire.Config{})
	var out []*message.FixMessage
	for {
		raw, err := sc.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("scanning %s: %w", path, err)
		}
		fields, err := wire.Parse(raw.Payload)
		if err != nil {
			continue
		}
		out = append(out, fields)
	}
}

// loadEntries loads path and assigns it dense line numbers after applying
// filter, ready for the linker/runner packages.
func loadEntries(path string, filter runner.MsgTypeFilter) ([]message.LogEntry, error) {
	msgs, err := loadMessages(path)
	if err != nil {
		return nil, err
	}
	return runner.BuildEntries(msgs, filter), nil
}
