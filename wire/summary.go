package wire

import (
	"io"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// Summary aggregates scan statistics, matching the literal "scan mixed
// framing" scenario in spec §8: message count, per-msgType distribution,
// and the distinct sessions observed.
type Summary struct {
	MessageCount       int
	MsgTypeDistribution map[string]int
	SessionsDetected    map[message.SessionKey]bool
}

func newSummary() *Summary {
	return &Summary{
		MsgTypeDistribution: make(map[string]int),
		SessionsDetected:    make(map[message.SessionKey]bool),
	}
}

// Scan drains a Scanner entirely, parsing each raw message and folding it
// into a Summary. It stops at the first I/O failure that isn't a clean
// end-of-stream; a payload that fails to parse is skipped and not counted,
// and malformed fragments the Scanner itself discards never reach here.
func Scan(sc *Scanner) (*Summary, error) {
	sum := newSummary()
	for {
		raw, err := sc.Next()
		if err == io.EOF {
			return sum, nil
		}
		if err != nil {
			return sum, err
		}
		fields, err := Parse(raw.Payload)
		if err != nil {
			continue
		}
		sum.MessageCount++
		if mt, ok := fields.Get(fixtag.MsgType); ok {
			sum.MsgTypeDistribution[mt]++
		}
		sum.SessionsDetected[message.SessionKeyOf(fields)] = true
	}
}
