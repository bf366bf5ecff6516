package assembler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbehnke/p25framer/pkg/dibit"
	"github.com/dbehnke/p25framer/pkg/duid"
)

// feedBits feeds the given content bits to the assembler as dibits,
// transparently inserting a noise dibit whenever the assembler's
// buffer position lands on a scheduled status offset (mirroring a
// real over-the-air stream, where a status symbol is an extra symbol
// injected between data bits rather than a data bit itself).
func feedBits(t *testing.T, a *Assembler, bits []bool) []message_t {
	t.Helper()
	require.Equal(t, 0, len(bits)%2, "test bit streams must be dibit-aligned")
	var all []message_t
	for i := 0; i < len(bits); i += 2 {
		for a.statusIx < len(a.statusSchedule) && a.buf.Pos() == a.statusSchedule[a.statusIx] {
			a.Receive(dibit.New(true, true), time.Unix(0, 0))
		}
		msgs := a.Receive(dibit.New(bits[i], bits[i+1]), time.Unix(0, 0))
		for _, m := range msgs {
			all = append(all, message_t{duid: m.DUID, nac: m.NAC})
		}
	}
	return all
}

type message_t struct {
	duid duid.DUID
	nac  uint64
}

func bitsOfInt(v uint64, width int) []bool {
	out := make([]bool, width)
	for i := 0; i < width; i++ {
		out[width-1-i] = (v>>uint(i))&1 == 1
	}
	return out
}

// nidBits builds a 64-bit NID: 12-bit NAC, 4-bit DUID code, 48 filler
// bits, matching duid.NIDNACOffset/NIDDUIDOffset layout.
func nidBits(nac uint64, code uint64) []bool {
	out := make([]bool, 64)
	copy(out[0:12], bitsOfInt(nac, 12))
	copy(out[12:16], bitsOfInt(code, 4))
	return out
}

func TestTDUScenario(t *testing.T) {
	a := New(nil)
	a.Activate()

	bits := nidBits(0x123, 0x3) // TDU
	bits = append(bits, make([]bool, TDURemainder(t))...)

	msgs := feedBits(t, a, bits)
	require.Len(t, msgs, 1)
	require.Equal(t, duid.TDU, msgs[0].duid)
	require.True(t, a.Complete())
}

// TDURemainder returns the number of filler bits needed after the
// 64-bit NID to reach TDU's full 504-bit length.
func TDURemainder(t *testing.T) int {
	t.Helper()
	n, ok := duid.Length(duid.TDU)
	require.True(t, ok)
	return n - 64
}

func TestStatusBitSkipping(t *testing.T) {
	a := New(nil)
	a.Activate()

	// Build the NID (64 bits) and insert a noise dibit at status
	// offsets 22 and 92. Since NID is only 64 bits, only offset 22
	// falls within it; the dibit consumed there must be skipped (not
	// appended), or the pointer would stand at 66 rather than 64 once
	// the NID is complete. The NAC/DUID fields (bits 0-15) lie ahead
	// of offset 22 and must still decode.
	nac := uint64(0x123)
	code := uint64(0x3) // TDU
	want := nidBits(nac, code)

	// Feed bit-by-bit via dibits, inserting a noise dibit exactly when
	// the assembler's buffer pointer equals a scheduled status offset.
	i := 0
	noiseAt := -1
	for i < len(want) {
		if (a.buf.Pos() == 22 || a.buf.Pos() == 92) && a.buf.Pos() != noiseAt {
			// Feed one noise dibit; the assembler must discard it.
			noiseAt = a.buf.Pos()
			a.Receive(dibit.New(true, true), time.Unix(0, 0))
			continue
		}
		b1 := want[i]
		b2 := want[i+1]
		a.Receive(dibit.New(b1, b2), time.Unix(0, 0))
		i += 2
	}

	require.Equal(t, 64, a.buf.Pos())
	require.Equal(t, duid.TDU, a.DUID())
}

func TestPDU1ToPDU2Continuation(t *testing.T) {
	a := New(nil)
	a.Activate()

	nidPrefix := nidBits(0x1, 0xC) // PDU1
	pdu1Len, ok := duid.Length(duid.PDU1)
	require.True(t, ok)

	header := make([]bool, pdu1Len)
	copy(header, nidPrefix)
	// blocks_to_follow = 2 at bit 16 (width 7), pad_blocks = 22 at bit 24 (width 7): N = 24.
	copy(header[16:23], bitsOfInt(2, 7))
	copy(header[24:31], bitsOfInt(22, 7))

	msgs := feedBits(t, a, header)
	require.Empty(t, msgs, "PDU1 header alone should not yet dispatch")
	require.Equal(t, duid.PDU2, a.DUID())

	pdu2Len, ok := duid.Length(duid.PDU2)
	require.True(t, ok)
	remaining := pdu2Len - pdu1Len
	tail := make([]bool, remaining)

	msgs = feedBits(t, a, tail)
	require.Len(t, msgs, 1)
	require.Equal(t, duid.PDU2, msgs[0].duid)
	require.True(t, a.Complete())
}

func TestResetReturnsToConstructionState(t *testing.T) {
	a := New(nil)
	a.Activate()
	require.True(t, a.Active())

	a.Reset()
	require.False(t, a.Active())
	require.False(t, a.Complete())
	require.Equal(t, duid.NID, a.DUID())
	require.Equal(t, 0, a.buf.Pos())
}

func TestInactiveAssemblerIgnoresDibits(t *testing.T) {
	a := New(nil)
	msgs := a.Receive(dibit.New(true, false), time.Unix(0, 0))
	require.Empty(t, msgs)
	require.Equal(t, 0, a.buf.Pos())
}
