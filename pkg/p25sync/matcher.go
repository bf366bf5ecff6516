// Package p25sync implements the 48-bit sliding-window sync pattern
// matcher used to locate P25 frame boundaries in a continuous bit
// stream as a streaming shift-register comparator.
package p25sync

// DefaultPattern is the P25 Phase-1 frame sync word, 0x5575F5FF77FF.
const DefaultPattern uint64 = 0x5575F5FF77FF

const windowMask uint64 = (1 << 48) - 1

// Matcher holds a 48-bit sliding register of the most recently
// received bits and reports whether it currently equals the configured
// sync pattern. The match flag is a level, not an edge: callers read
// Matches() once per dibit position.
type Matcher struct {
	pattern  uint64
	register uint64
}

// New creates a Matcher configured for the given 48-bit pattern.
func New(pattern uint64) *Matcher {
	return &Matcher{pattern: pattern & windowMask}
}

// Receive shifts a bit into the sliding register.
func (m *Matcher) Receive(bit bool) {
	m.register <<= 1
	if bit {
		m.register |= 1
	}
	m.register &= windowMask
}

// Matches reports whether the current 48-bit window equals the
// configured pattern exactly. Zero errors are tolerated; Hamming-
// distance tolerance is not implemented.
func (m *Matcher) Matches() bool {
	return m.register == m.pattern
}

// Reset clears the sliding register, equivalent to construction-time
// state. Sync matching never needs this in normal operation (the
// register free-runs for the life of the Framer) but it keeps the
// Matcher independently testable and supports Framer.Dispose.
func (m *Matcher) Reset() {
	m.register = 0
}
