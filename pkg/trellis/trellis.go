// Package trellis implements the Viterbi decoder for P25's half-rate
// (K=5, rate 1/2) convolutional trellis code, decoding a 196-bit coded
// block in place to its 98-bit data payload.
//
// It is adapted from a K=5 rate-1/2 Viterbi decoder for the sibling
// YSF protocol: the
// branch tables, state count, and decision-bitmask chainback are the
// same construction. It differs from YSF's decoder in being
// block-oriented (P25 TSBK/PDU blocks are always exactly 98 coded
// dibits) rather than driven one soft-decision pair at a time across a
// variable-length frame, and in decoding directly into a
// bitbuffer.BitBuffer range instead of a packed byte slice.
package trellis

import (
	"errors"

	"github.com/dbehnke/p25framer/pkg/bitbuffer"
)

// ErrInvalidBlock is returned when Decode is asked to operate on a
// range that is not exactly 196 bits wide.
var ErrInvalidBlock = errors.New("trellis: invalid block range")

const (
	numStatesHalf = 8
	numStates     = 16
	metricMax     = 2
	dataSteps     = 98 // 196 coded bits / 2 == 98 data-bit traceback steps
)

var (
	branchTable1 = [numStatesHalf]uint8{0, 0, 0, 0, 1, 1, 1, 1}
	branchTable2 = [numStatesHalf]uint8{0, 1, 1, 0, 0, 1, 1, 0}
)

// HalfRate is a Viterbi decoder for the P25 K=5 rate-1/2 trellis code.
// Its metric and decision arrays are preallocated once at
// construction, not per-block, to avoid hot-path allocation, mirroring
// the YSF convolutional decoder's constructor.
type HalfRate struct {
	metricsA  [numStates]uint16
	metricsB  [numStates]uint16
	old       *[numStates]uint16
	next      *[numStates]uint16
	decisions [dataSteps]uint16 // one bit per state (16 states) per step
}

// New creates a HalfRate decoder with its working arrays preallocated.
func New() *HalfRate {
	h := &HalfRate{}
	h.old = &h.metricsA
	h.next = &h.metricsB
	return h
}

func (h *HalfRate) start() {
	for i := range h.metricsA {
		h.metricsA[i] = 0
	}
	for i := range h.metricsB {
		h.metricsB[i] = 0
	}
	h.old = &h.metricsA
	h.next = &h.metricsB
}

func (h *HalfRate) step(dp int, s0, s1 uint8) {
	var decision uint16
	for i := uint8(0); i < numStatesHalf; i++ {
		j := i * 2
		metric := uint16((branchTable1[i] ^ s0) + (branchTable2[i] ^ s1))

		m0 := h.old[i] + metric
		m1 := h.old[i+numStatesHalf] + (metricMax - metric)
		var d0 uint16
		if m0 >= m1 {
			d0 = 1
			h.next[j] = m1
		} else {
			h.next[j] = m0
		}

		m0 = h.old[i] + (metricMax - metric)
		m1 = h.old[i+numStatesHalf] + metric
		var d1 uint16
		if m0 >= m1 {
			d1 = 1
			h.next[j+1] = m1
		} else {
			h.next[j+1] = m0
		}

		decision |= (d1 << (j + 1)) | (d0 << j)
	}
	h.decisions[dp] = decision
	h.old, h.next = h.next, h.old
}

func (h *HalfRate) chainback(out []bool) {
	// The block carries no flush bits, so traceback starts from the
	// lowest-metric final state, whose 4 bits are the last 4 data bits.
	best := uint32(0)
	for s := uint32(1); s < numStates; s++ {
		if h.old[s] < h.old[best] {
			best = s
		}
	}
	for k := 0; k < 4; k++ {
		out[dataSteps-1-k] = (best>>uint(k))&1 == 1
	}
	// The decision at step dp recovers the data bit 4 steps earlier.
	state := best << 4
	for dp := dataSteps - 1; dp >= 4; dp-- {
		i := state >> (9 - 5) // constraintK == 5
		bit := uint8(h.decisions[dp]>>i) & 1
		state = (uint32(bit) << 7) | (state >> 1)
		out[dp-4] = bit != 0
	}
}

// Decode decodes the 196 coded bits at [start,end) in place: the
// first 98 bits of the range become the decoded data bits, and the
// remaining 98 positions are cleared. The Viterbi algorithm always
// yields a most-likely path; there is no failure mode here — downstream
// CRC/FEC validation (outside this package) decides whether the result
// is trustworthy.
func (h *HalfRate) Decode(buf *bitbuffer.BitBuffer, start, end int) error {
	if end-start != 196 {
		return ErrInvalidBlock
	}
	coded, err := buf.Get(start, end)
	if err != nil {
		return err
	}

	h.start()
	for dp := 0; dp < dataSteps; dp++ {
		s0 := boolToBit(coded[dp*2])
		s1 := boolToBit(coded[dp*2+1])
		h.step(dp, s0, s1)
	}

	decoded := make([]bool, dataSteps)
	h.chainback(decoded)

	if err := buf.Clear(start, end); err != nil {
		return err
	}
	if err := buf.PutBits(start, decoded); err != nil {
		return err
	}
	return nil
}

func boolToBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
