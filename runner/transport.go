// Package runner orchestrates a comparison run, offline (log vs. log) or
// online (log vs. a live gateway reached through Transport), per spec
// §4.7–§4.8.
package runner

import (
	"context"

	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// Transport abstracts a live FIX session so OnlineRunner never depends on
// a concrete engine. A real implementation (fixtransport) adapts this to
// quickfixgo/quickfix; tests use an in-process fake.
type Transport interface {
	// Send delivers an outbound message to the gateway under test.
	Send(ctx context.Context, msg *message.FixMessage) error
	// Inbound returns a channel of messages the gateway sends back.
	// A closed channel means the transport has no more messages to
	// deliver.
	Inbound() <-chan *message.FixMessage
	// Close releases any resources held by the transport.
	Close() error
}
