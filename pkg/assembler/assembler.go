// Package assembler implements the per-context P25 message assembly
// state machine: status-bit skipping, DUID-driven length switching,
// and completion/dispatch: a stateful accumulator keyed by a running
// position, flushed and reset once its expected size is reached, with
// P25's dynamic, DUID-selected buffer length and status-symbol
// punctuation.
package assembler

import (
	"time"

	"github.com/google/uuid"

	"github.com/dbehnke/p25framer/pkg/bitbuffer"
	"github.com/dbehnke/p25framer/pkg/dibit"
	"github.com/dbehnke/p25framer/pkg/duid"
	"github.com/dbehnke/p25framer/pkg/interleave"
	"github.com/dbehnke/p25framer/pkg/message"
	"github.com/dbehnke/p25framer/pkg/trellis"
	"github.com/dbehnke/p25framer/pkg/tsbk"
)

// DefaultStatusSchedule is the P25 status-symbol bit-offset schedule:
// a status dibit is inserted every 70 bits starting at 22.
var DefaultStatusSchedule = []int{22, 92, 162, 232, 302, 372, 442, 512, 582, 652, 722, 792, 862, 932}

// PDU continuation block counts: N = blocks_to_follow + pad_blocks
// selects the PDU header's onward continuation length.
const (
	pduBlocksToFollowOffset = 16
	pduBlocksToFollowWidth  = 7
	pduPadBlocksOffset      = 24
	pduPadBlocksWidth       = 7

	tsbkBlockStart = 64
	tsbkBlockEnd   = 260
)

// Assembler is a single reassembly context: it owns a BitBuffer sized
// to the current DUID and advances through the P25 NID/DUID state
// machine. It is pooled by a Framer; the zero value is not usable,
// use New.
type Assembler struct {
	buf      *bitbuffer.BitBuffer
	active   bool
	complete bool
	cur      duid.DUID
	nac      uint64

	statusIx       int
	statusSchedule []int

	trellis *trellis.HalfRate
}

// New creates an Assembler in its inactive, reset state, with its own
// Viterbi decoder instance so its metric/decision arrays are
// preallocated once and never shared across assemblers.
func New(statusSchedule []int) *Assembler {
	if len(statusSchedule) == 0 {
		statusSchedule = DefaultStatusSchedule
	}
	a := &Assembler{
		statusSchedule: statusSchedule,
		trellis:        trellis.New(),
	}
	a.reset()
	return a
}

// Active reports whether the assembler is currently eligible to
// consume dibits.
func (a *Assembler) Active() bool {
	return a.active
}

// Complete reports whether a message has been assembled and is
// awaiting reset by the Framer.
func (a *Assembler) Complete() bool {
	return a.complete
}

// DUID reports the assembler's current state.
func (a *Assembler) DUID() duid.DUID {
	return a.cur
}

// Activate transitions the assembler from inactive to active on a
// sync match, without otherwise touching its (already-reset) state.
func (a *Assembler) Activate() {
	a.active = true
}

// Reset returns the assembler to inactive, pointer 0, status index 0,
// DUID NID, buffer cleared and resized to NID length.
func (a *Assembler) Reset() {
	a.reset()
}

func (a *Assembler) reset() {
	a.active = false
	a.complete = false
	a.cur = duid.NID
	a.nac = 0
	a.statusIx = 0
	n, _ := duid.Length(duid.NID)
	if a.buf == nil {
		a.buf = bitbuffer.New(n)
	} else {
		a.buf.SetSize(n)
		a.buf.Reset()
	}
}

func (a *Assembler) setDUID(d duid.DUID) {
	a.cur = d
	n, ok := duid.Length(d)
	if !ok {
		n = a.buf.Len()
	}
	pos := a.buf.Pos()
	a.buf.SetSize(n)
	a.buf.SetPos(pos)
}

// Receive feeds one dibit to the assembler. Status-bit skipping takes
// precedence over appending; once the buffer fills, check_complete
// runs and may emit zero or more messages (a TSBK can dispatch once
// per continuation step while still not latching complete).
func (a *Assembler) Receive(d dibit.Dibit, now time.Time) []message.Message {
	if !a.active {
		return nil
	}

	if a.statusIx < len(a.statusSchedule) && a.buf.Pos() == a.statusSchedule[a.statusIx] {
		a.statusIx++
		return nil
	}

	if err := a.buf.Add(d.Bit1()); err != nil {
		a.complete = true
		return nil
	}
	if err := a.buf.Add(d.Bit2()); err != nil {
		a.complete = true
		return nil
	}

	if a.buf.IsFull() {
		return a.checkComplete(now)
	}
	return nil
}

func (a *Assembler) checkComplete(now time.Time) []message.Message {
	switch a.cur {
	case duid.NID:
		return a.checkNID(now)

	case duid.HDU, duid.TDU, duid.LDU1, duid.LDU2, duid.TDULC:
		msg := a.snapshot(a.cur, now)
		a.complete = true
		return []message.Message{msg}

	case duid.PDU1:
		return a.checkPDU1(now)

	case duid.PDU2, duid.PDU3:
		msg := a.snapshot(a.cur, now)
		a.complete = true
		return []message.Message{msg}

	case duid.TSBK1, duid.TSBK2, duid.TSBK3:
		return a.checkTSBK(now)

	default: // duid.UNKN and anything else
		msg := a.snapshot(duid.UNKN, now)
		a.complete = true
		return []message.Message{msg}
	}
}

func (a *Assembler) checkNID(now time.Time) []message.Message {
	nac, err := a.buf.GetInt(duid.NIDNACOffset, duid.NIDNACOffset+duid.NIDNACWidth)
	if err != nil {
		msg := a.snapshot(duid.UNKN, now)
		a.complete = true
		return []message.Message{msg}
	}
	a.nac = nac

	code, err := a.buf.GetInt(duid.NIDDUIDOffset, duid.NIDDUIDOffset+duid.NIDDUIDWidth)
	if err != nil {
		msg := a.snapshot(duid.UNKN, now)
		a.complete = true
		return []message.Message{msg}
	}

	d, ok := duid.FromCode(code)
	if !ok {
		msg := a.snapshot(duid.UNKN, now)
		a.complete = true
		return []message.Message{msg}
	}

	a.setDUID(d)
	return nil
}

func (a *Assembler) checkPDU1(now time.Time) []message.Message {
	blocks, err1 := a.buf.GetInt(pduBlocksToFollowOffset, pduBlocksToFollowOffset+pduBlocksToFollowWidth)
	pad, err2 := a.buf.GetInt(pduPadBlocksOffset, pduPadBlocksOffset+pduPadBlocksWidth)
	if err1 != nil || err2 != nil {
		msg := a.snapshot(duid.PDU1, now)
		a.complete = true
		return []message.Message{msg}
	}

	n := blocks + pad
	switch {
	case n == 24 || n == 32:
		a.setDUID(duid.PDU2)
		return nil
	case n == 36 || n == 48:
		a.setDUID(duid.PDU3)
		return nil
	default:
		// Unlisted N values fall back to dispatching PDU1 as-is.
		msg := a.snapshot(duid.PDU1, now)
		a.complete = true
		return []message.Message{msg}
	}
}

func (a *Assembler) checkTSBK(now time.Time) []message.Message {
	if err := interleave.Deinterleave(a.buf, tsbkBlockStart, tsbkBlockEnd); err != nil {
		msg := a.snapshot(a.cur, now)
		a.complete = true
		return []message.Message{msg}
	}
	if err := a.trellis.Decode(a.buf, tsbkBlockStart, tsbkBlockEnd); err != nil {
		msg := a.snapshot(a.cur, now)
		a.complete = true
		return []message.Message{msg}
	}

	payload := bitbuffer.New(98)
	bits, err := a.buf.Get(tsbkBlockStart, tsbkBlockStart+98)
	if err != nil {
		msg := a.snapshot(a.cur, now)
		a.complete = true
		return []message.Message{msg}
	}
	if err := payload.PutBits(0, bits); err != nil {
		msg := a.snapshot(a.cur, now)
		a.complete = true
		return []message.Message{msg}
	}

	built, err := tsbk.Build(a.nac, payload)
	lastBlock := err == nil && built.IsLastBlock()

	msg := message.Message{
		ID:         uuid.New(),
		DUID:       a.cur,
		NAC:        a.nac,
		Payload:    payload,
		TSBK:       built,
		ReceivedAt: now,
	}

	if lastBlock || a.cur == duid.TSBK3 {
		a.complete = true
		return []message.Message{msg}
	}

	next := duid.TSBK2
	if a.cur == duid.TSBK2 {
		next = duid.TSBK3
	}
	a.setDUID(next)
	a.buf.SetPos(tsbkBlockStart)
	return []message.Message{msg}
}

func (a *Assembler) snapshot(d duid.DUID, now time.Time) message.Message {
	return message.Message{
		ID:         uuid.New(),
		DUID:       d,
		NAC:        a.nac,
		Payload:    a.buf.Copy(),
		ReceivedAt: now,
	}
}
