// Package wire turns arbitrarily-framed log bytes into self-delimited FIX
// messages (Scanner) and turns a field map back into wire-correct FIX bytes
// (Codec). Both are synchronous and single-threaded, following the
// teacher's parser.go: no suspension points, no shared mutable state beyond
// their arguments.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/coinbase-samples/fix-conformance-harness/message"
)

// ErrIOFailure marks a read error from the scanner's source; Next wraps it
// with %w and appends the underlying error's text.
var ErrIOFailure = errors.New("wire: scanner read failure")

const startMarker = "8=FIX"

// DelimiterRules selects which field boundaries the scanner recognizes.
// At least one must be enabled or the scanner can never find a field
// boundary and every candidate message will be abandoned.
type DelimiterRules struct {
	SOH    bool
	Pipe   bool
	CaretA bool
}

// DefaultDelimiterRules recognizes all three boundary forms, matching the
// "subset of {SOH, PIPE, CARET_A}" default in spec §4.1.
func DefaultDelimiterRules() DelimiterRules {
	return DelimiterRules{SOH: true, Pipe: true, CaretA: true}
}

// Config configures a Scanner. Zero-value ChunkSize/MaxMessageLength fall
// back to sane defaults in NewScanner.
type Config struct {
	ChunkSize        int
	MaxMessageLength int
	DelimiterRules   DelimiterRules
}

const (
	defaultChunkSize        = 64 * 1024
	defaultMaxMessageLength = 1 << 20
	contextWindow           = 4096
)

// Scanner extracts every self-delimited FIX message from an io.Reader of
// arbitrary framing. It is lazy and one-shot: call Next repeatedly until it
// returns io.EOF. Reopen the source and construct a new Scanner to restart.
type Scanner struct {
	src    io.Reader
	cfg    Config
	path   string
	buf    []byte // accumulated, not-yet-fully-scanned bytes
	cursor int     // next search position within buf
	prev   int     // end of the previously consumed region within buf
	eof    bool
	closer io.Closer
}

// NewScanner builds a Scanner reading from src, labeling emitted messages
// with path (typically the source file name, used only for diagnostics).
func NewScanner(src io.Reader, path string, cfg Config) *Scanner {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = defaultMaxMessageLength
	}
	if !cfg.DelimiterRules.SOH && !cfg.DelimiterRules.Pipe && !cfg.DelimiterRules.CaretA {
		cfg.DelimiterRules = DefaultDelimiterRules()
	}
	s := &Scanner{src: src, cfg: cfg, path: path}
	if c, ok := src.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Close releases the underlying source if it is also an io.Closer. Safe to
// call even after the iterator is fully drained, and safe to call more than
// once.
func (s *Scanner) Close() error {
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}

var (
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?`)
	directionPattern = regexp.MustCompile(`(?i)\b(IN|OUT)\b`)
)

// Next returns the next RawMessage, io.EOF when the source is exhausted, or
// a wrapped ErrIOFailure if the underlying reader failed.
func (s *Scanner) Next() (*message.RawMessage, error) {
	for {
		if msg, ok, err := s.tryExtractOne(); err != nil {
			return nil, err
		} else if ok {
			return msg, nil
		}
		if s.eof {
			return nil, io.EOF
		}
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
}

// fill reads up to ChunkSize more bytes into buf, marking eof on io.EOF.
func (s *Scanner) fill() error {
	chunk := make([]byte, s.cfg.ChunkSize)
	n, err := s.src.Read(chunk)
	if n > 0 {
		s.buf = append(s.buf, chunk[:n]...)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.eof = true
			return nil
		}
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	return nil
}

// tryExtractOne attempts to find and emit exactly one message from the
// current buffer, abandoning over-long candidates and advancing past them.
// ok is false when the buffer doesn't yet contain enough data to decide.
func (s *Scanner) tryExtractOne() (*message.RawMessage, bool, error) {
	for {
		idx := bytes.Index(s.buf[s.cursor:], []byte(startMarker))
		if idx == -1 {
			// No candidate start in the unscanned tail. Feed everything
			// except a short safety margin (in case "8=FIX" straddles a
			// future read) into the context ring, and ask for more data.
			margin := len(startMarker) - 1
			if s.eof {
				margin = 0
			}
			if len(s.buf)-s.cursor > margin {
				s.cursor = len(s.buf) - margin
			}
			return nil, false, nil
		}
		p := s.cursor + idx

		terminator, consumed, abandon, needMore := s.findTerminator(p)
		if needMore && !s.eof {
			return nil, false, nil
		}
		if needMore && s.eof {
			// In-progress message at end of stream with no terminator:
			// discard per spec §4.1.
			s.prev = p
			s.cursor = len(s.buf)
			continue
		}
		if abandon {
			s.cursor = p + 1
			continue
		}

		raw := s.buf[p:terminator]
		ctx := s.contextBefore(p)
		payload := normalizeDelimiters(raw, s.cfg.DelimiterRules)
		payload = append(payload, 0x01)

		s.prev = terminator + consumed
		s.cursor = s.prev

		ts, dir := extractMetadata(ctx)
		msg := &message.RawMessage{
			Path:      s.path,
			Offset:    int64(p),
			Payload:   payload,
			Timestamp: ts,
			Direction: dir,
		}
		return msg, true, nil
	}
}

// findTerminator looks for a valid "10=DDD" terminator for the candidate
// message starting at p. It returns the buffer index one past the checksum
// digits (terminator), how many trailing boundary bytes belong to the
// terminator itself (consumed), whether the candidate should be abandoned
// for exceeding MaxMessageLength, and whether more data is required before
// a decision can be made.
func (s *Scanner) findTerminator(p int) (terminator, consumed int, abandon, needMore bool) {
	search := p
	for {
		rel := bytes.Index(s.buf[search:], []byte("10="))
		if rel == -1 {
			// Nothing found yet in the available data.
			if len(s.buf)-p > s.cfg.MaxMessageLength {
				return 0, 0, true, false
			}
			return 0, 0, false, true
		}
		j := search + rel
		if j+6 > len(s.buf) {
			// Not enough bytes yet to know the 3 checksum digits.
			if j-p > s.cfg.MaxMessageLength {
				return 0, 0, true, false
			}
			return 0, 0, false, true
		}
		if !isDigit(s.buf[j+3]) || !isDigit(s.buf[j+4]) || !isDigit(s.buf[j+5]) {
			search = j + 3
			continue
		}
		if !precededByBoundary(s.buf, j, s.cfg.DelimiterRules) {
			search = j + 3
			continue
		}
		ok, trail, more := s.followedByValidTerminator(j + 6)
		if more {
			if j+6-p > s.cfg.MaxMessageLength {
				return 0, 0, true, false
			}
			return 0, 0, false, true
		}
		if !ok {
			search = j + 3
			continue
		}
		if j+6-p > s.cfg.MaxMessageLength {
			return 0, 0, true, false
		}
		return j + 6, trail, false, false
	}
}

// followedByValidTerminator checks the byte(s) immediately after a
// candidate checksum field. needMore is true only when more data might
// still arrive and change the answer.
func (s *Scanner) followedByValidTerminator(k int) (ok bool, trail int, needMore bool) {
	if k >= len(s.buf) {
		if s.eof {
			return true, 0, false
		}
		return false, 0, true
	}
	if matched, n := boundaryAt(s.buf, k, s.cfg.DelimiterRules); matched {
		return true, n, false
	}
	switch s.buf[k] {
	case ' ', '\t', ']', ')', '\n', '\r':
		return true, 0, false
	}
	return false, 0, false
}

// contextBefore returns the up-to-contextWindow bytes immediately before p,
// with newline/carriage-return bytes stripped, per spec §4.1's "ring
// buffer of the preceding 4096 bytes of non-newline context".
func (s *Scanner) contextBefore(p int) []byte {
	start := s.prev
	if start < 0 {
		start = 0
	}
	if start > p {
		start = p
	}
	raw := s.buf[start:p]
	stripped := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b == '\n' || b == '\r' {
			continue
		}
		stripped = append(stripped, b)
	}
	if len(stripped) > contextWindow {
		stripped = stripped[len(stripped)-contextWindow:]
	}
	return stripped
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// boundaryAt reports whether a recognized field boundary begins at data[i],
// returning its byte length (1 for SOH/pipe, 2 for the caret-A sequence).
func boundaryAt(data []byte, i int, rules DelimiterRules) (bool, int) {
	if i >= len(data) {
		return false, 0
	}
	if rules.SOH && data[i] == 0x01 {
		return true, 1
	}
	if rules.Pipe && data[i] == '|' {
		return true, 1
	}
	if rules.CaretA && data[i] == '^' && i+1 < len(data) && data[i+1] == 'A' {
		return true, 2
	}
	return false, 0
}

// precededByBoundary reports whether a recognized field boundary ends
// exactly at data[j].
func precededByBoundary(data []byte, j int, rules DelimiterRules) bool {
	if j >= 1 && rules.SOH && data[j-1] == 0x01 {
		return true
	}
	if j >= 1 && rules.Pipe && data[j-1] == '|' {
		return true
	}
	if j >= 2 && rules.CaretA && data[j-2] == '^' && data[j-1] == 'A' {
		return true
	}
	return false
}

// normalizeDelimiters rewrites every recognized boundary in raw to a single
// SOH byte, leaving all other bytes untouched.
func normalizeDelimiters(raw []byte, rules DelimiterRules) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); {
		if matched, n := boundaryAt(raw, i, rules); matched {
			out = append(out, 0x01)
			i += n
			continue
		}
		out = append(out, raw[i])
		i++
	}
	return out
}

// extractMetadata parses a context snapshot for the latest ISO-8601-like
// timestamp and the latest word-bounded IN/OUT token, each independently:
// when a kind of metadata appears more than once in the context, the
// occurrence closest to the upcoming message wins.
func extractMetadata(ctx []byte) (string, message.Direction) {
	s := string(ctx)

	var ts string
	if all := timestampPattern.FindAllString(s, -1); len(all) > 0 {
		ts = all[len(all)-1]
	}

	dir := message.DirectionUnknown
	if all := directionPattern.FindAllString(s, -1); len(all) > 0 {
		switch toUpperASCII(all[len(all)-1]) {
		case "IN":
			dir = message.DirectionIn
		case "OUT":
			dir = message.DirectionOut
		}
	}
	return ts, dir
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
