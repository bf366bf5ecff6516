// Package duid enumerates P25's Data Unit IDentifiers and their
// canonical bit lengths.
package duid

// DUID tags the kind of Data Unit a MessageAssembler is currently
// assembling. It doubles as the assembler's state-machine state.
type DUID int

const (
	// NID is the placeholder state before the 4-bit DUID field has
	// been read out of the Network Identifier.
	NID DUID = iota
	HDU
	TDU
	LDU1
	TSBK1
	LDU2
	PDU1
	TDULC
	// PDU2, PDU3, TSBK2, TSBK3 are continuation states reached only
	// by transition, never by the NID field directly.
	PDU2
	PDU3
	TSBK2
	TSBK3
	// UNKN tags a raw, unrecognized DUID code.
	UNKN
)

// String renders the DUID's name.
func (d DUID) String() string {
	switch d {
	case NID:
		return "NID"
	case HDU:
		return "HDU"
	case TDU:
		return "TDU"
	case LDU1:
		return "LDU1"
	case TSBK1:
		return "TSBK1"
	case LDU2:
		return "LDU2"
	case PDU1:
		return "PDU1"
	case TDULC:
		return "TDULC"
	case PDU2:
		return "PDU2"
	case PDU3:
		return "PDU3"
	case TSBK2:
		return "TSBK2"
	case TSBK3:
		return "TSBK3"
	case UNKN:
		return "UNKN"
	default:
		return "UNKNOWN"
	}
}

// The *Bits constants give the canonical total length, in bits, of a
// complete message of each DUID, measured from the start of the NID.
//
// PDU2Bits/PDU3Bits and TSBK2Bits/TSBK3Bits are chosen here: PDU1's blocks_to_follow/pad_blocks total N selects
// PDU2 (N in {24,32}) or PDU3 (N in {36,48}) but the resulting buffer
// length isn't given directly. TSBK continuation reuses TSBK1's
// 260-bit block size unchanged (the assembler rewinds its pointer to
// 64 within the same buffer rather than resizing), so TSBK2Bits/
// TSBK3Bits equal TSBK1Bits. PDU2/PDU3 extend the 260-bit header by
// one additional 196-bit trellis block per continuation step.
const (
	NIDBits   = 64
	HDUBits   = 792
	TDUBits   = 504
	LDU1Bits  = 1728
	TSBK1Bits = 260
	TSBK2Bits = TSBK1Bits
	TSBK3Bits = TSBK1Bits
	LDU2Bits  = 1728
	PDU1Bits  = 260
	PDU2Bits  = PDU1Bits + 196
	PDU3Bits  = PDU1Bits + 2*196
	TDULCBits = 648
)

// Length returns the canonical bit length for every DUID except NID's
// continuation placeholder state UNKN, whose message length is
// whatever the buffer held at the point the unrecognized code was
// read (never a fixed, name-derived length).
func Length(d DUID) (int, bool) {
	switch d {
	case NID:
		return NIDBits, true
	case HDU:
		return HDUBits, true
	case TDU:
		return TDUBits, true
	case LDU1:
		return LDU1Bits, true
	case TSBK1:
		return TSBK1Bits, true
	case TSBK2:
		return TSBK2Bits, true
	case TSBK3:
		return TSBK3Bits, true
	case LDU2:
		return LDU2Bits, true
	case PDU1:
		return PDU1Bits, true
	case PDU2:
		return PDU2Bits, true
	case PDU3:
		return PDU3Bits, true
	case TDULC:
		return TDULCBits, true
	default:
		return 0, false
	}
}

// FromCode maps the 4-bit NID DUID field to a recognized DUID. The
// second return is false for codes with no P25 Phase-1 meaning in
// this decoder's scope, in which case the assembler dispatches a raw
// UNKN message rather than treating the code as an error.
func FromCode(code uint64) (DUID, bool) {
	switch code {
	case 0x0:
		return HDU, true
	case 0x3:
		return TDU, true
	case 0x5:
		return LDU1, true
	case 0x7:
		return TSBK1, true
	case 0xA:
		return LDU2, true
	case 0xC:
		return PDU1, true
	case 0xF:
		return TDULC, true
	default:
		return UNKN, false
	}
}

// NIDDUIDOffset and NIDDUIDWidth locate the 4-bit DUID field within
// the 64-bit NID, counted from the start of the NID (i.e. from
// position 0 of an assembler whose buffer currently holds only the
// NID). The P25 NID packs a 12-bit NAC followed by the 4-bit DUID.
const (
	NIDNACOffset  = 0
	NIDNACWidth   = 12
	NIDDUIDOffset = NIDNACOffset + NIDNACWidth
	NIDDUIDWidth  = 4
)
