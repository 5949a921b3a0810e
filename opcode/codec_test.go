package opcode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/opcode"
)

// roundTrip asserts from_bytes(to_bytes(instructions)) == instructions,
// the codec's central correctness property (spec ยง8).
func roundTrip(t *testing.T, instructions []opcode.Instruction) {
	t.Helper()
	raw, err := opcode.ToBytes(instructions)
	require.NoError(t, err)

	got, err := opcode.FromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, instructions, got)
}

func TestRoundTripSimpleBranch(t *testing.T) {
	// iconst_0; ifeq -> return; iconst_1; return
	roundTrip(t, []opcode.Instruction{
		{Op: opcode.Iconst0},
		{Op: opcode.Ifeq, Offset: 3},
		{Op: opcode.Iconst1},
		{Op: opcode.Return},
	})
}

func TestRoundTripGotoW(t *testing.T) {
	roundTrip(t, []opcode.Instruction{
		{Op: opcode.Nop},
		{Op: opcode.GotoW, Offset: 2},
		{Op: opcode.Return},
	})
}

func TestRoundTripLoadStoreWide(t *testing.T) {
	roundTrip(t, []opcode.Instruction{
		{Op: opcode.Iload, LocalIndex: 300, Wide: true},
		{Op: opcode.Istore, LocalIndex: 7},
		{Op: opcode.Return},
	})
}

func TestRoundTripIincWide(t *testing.T) {
	roundTrip(t, []opcode.Instruction{
		{Op: opcode.Iinc, LocalIndex: 1000, IntImm: -5, Wide: true},
		{Op: opcode.Return},
	})
}

func TestRoundTripTableswitch(t *testing.T) {
	// index 0: nop (to shift the switch off a 4-byte boundary, exercising
	// padding); index 1: tableswitch; targets: default -> index 1 (self,
	// degenerate but legal), cases -> index 2, 3.
	roundTrip(t, []opcode.Instruction{
		{Op: opcode.Nop},
		{
			Op: opcode.Tableswitch,
			Table: &opcode.TableSwitch{
				Default: 0, // relative to switch's own index (1) -> index 1
				Low:     0,
				High:    1,
				Offsets: []int32{1, 2}, // -> index 2, index 3
			},
		},
		{Op: opcode.Iconst0},
		{Op: opcode.Return},
	})
}

func TestRoundTripLookupswitch(t *testing.T) {
	roundTrip(t, []opcode.Instruction{
		{
			Op: opcode.Lookupswitch,
			Lookup: &opcode.LookupSwitch{
				Default: 2,
				Pairs: []opcode.LookupPair{
					{Match: 10, Offset: 1},
					{Match: 20, Offset: 2},
				},
			},
		},
		{Op: opcode.Iconst1},
		{Op: opcode.Return},
	})
}

func TestFromBytesInvalidOffset(t *testing.T) {
	// ifeq with a raw byte offset landing past the last instruction.
	raw := []byte{
		byte(opcode.Ifeq), 0x00, 0x05, // target byte 5, not a boundary
		byte(opcode.Nop),
		byte(opcode.Return),
	}
	_, err := opcode.FromBytes(raw)
	require.Error(t, err)
	var invalidErr opcode.InvalidInstructionOffsetError
	require.ErrorAs(t, err, &invalidErr)
}

func TestToBytesKnownWidths(t *testing.T) {
	raw, err := opcode.ToBytes([]opcode.Instruction{
		{Op: opcode.Bipush, IntImm: 42},
		{Op: opcode.Return},
	})
	require.NoError(t, err)
	require.Equal(t, []byte{byte(opcode.Bipush), 42, byte(opcode.Return)}, raw)
}
