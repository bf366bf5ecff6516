// Package testhelpers provides test doubles for driving a Framer
// without a real radio front end: a dibit-stream builder that encodes
// bits the way a C4FM demodulator would hand them off, and a recording
// Sink that keeps every dispatched message in order.
package testhelpers

import (
	"sync"

	"github.com/dbehnke/p25framer/pkg/dibit"
	"github.com/dbehnke/p25framer/pkg/message"
)

// DibitStream accumulates dibits for feeding to a Framer or Assembler
// one symbol at a time.
type DibitStream struct {
	dibits []dibit.Dibit
}

// NewDibitStream creates an empty stream.
func NewDibitStream() *DibitStream {
	return &DibitStream{}
}

// PushBits appends one dibit per two bits. An odd final bit is padded
// with a trailing 0 bit.
func (s *DibitStream) PushBits(bits []bool) *DibitStream {
	for i := 0; i < len(bits); i += 2 {
		b1 := bits[i]
		b2 := false
		if i+1 < len(bits) {
			b2 = bits[i+1]
		}
		s.dibits = append(s.dibits, dibit.New(b1, b2))
	}
	return s
}

// PushUint appends the low `width` bits of v, most-significant bit
// first, as dibits.
func (s *DibitStream) PushUint(v uint64, width int) *DibitStream {
	bits := make([]bool, width)
	for i := 0; i < width; i++ {
		shift := width - 1 - i
		bits[i] = (v>>uint(shift))&1 == 1
	}
	return s.PushBits(bits)
}

// PushZeros appends n zero dibits.
func (s *DibitStream) PushZeros(n int) *DibitStream {
	for i := 0; i < n; i++ {
		s.dibits = append(s.dibits, dibit.New(false, false))
	}
	return s
}

// Dibits returns the accumulated dibit slice.
func (s *DibitStream) Dibits() []dibit.Dibit {
	return s.dibits
}

// RecordingSink collects every dispatched message for assertions. It
// implements message.Sink.
type RecordingSink struct {
	mu       sync.Mutex
	messages []message.Message
}

// NewRecordingSink creates an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Dispatch implements message.Sink.
func (r *RecordingSink) Dispatch(msg message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of every message recorded so far.
func (r *RecordingSink) Messages() []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]message.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Count returns the number of messages recorded so far.
func (r *RecordingSink) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}
