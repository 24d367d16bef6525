package simulator

import "github.com/coinbase-samples/fix-conformance-harness/runner"

// Session is a connected counterparty claiming ownership of an Endpoint.
// It wraps a runner.Transport with the identity the simulator tracks it
// under.
type Session struct {
	ID        string
	Transport runner.Transport
}
