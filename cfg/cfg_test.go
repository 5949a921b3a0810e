package cfg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/cfg"
	"vjvm/codeinfo"
	"vjvm/opcode"
	"vjvm/types"
)

func java8() types.ClassFileVersion { return types.ClassFileVersion{Major: types.Java8} }

func TestSuccessorsConditionalBranchFallsThroughAndBranches(t *testing.T) {
	ins := []opcode.Instruction{
		{Op: opcode.Iconst0},
		{Op: opcode.Ifeq, Offset: 3},
		{Op: opcode.Iconst1},
		{Op: opcode.Return},
	}
	ci, err := codeinfo.Build(ins)
	require.NoError(t, err)

	succs, err := cfg.Successors(ins, ci, 1, java8())
	require.NoError(t, err)
	require.ElementsMatch(t, []int{3, 2}, succs)
}

func TestSuccessorsUnconditionalGoto(t *testing.T) {
	ins := []opcode.Instruction{
		{Op: opcode.Goto, Offset: 2},
		{Op: opcode.Iconst0},
		{Op: opcode.Return},
	}
	ci, err := codeinfo.Build(ins)
	require.NoError(t, err)

	succs, err := cfg.Successors(ins, ci, 0, java8())
	require.NoError(t, err)
	require.Equal(t, []int{2}, succs)
}

func TestSuccessorsReturnHasNone(t *testing.T) {
	ins := []opcode.Instruction{{Op: opcode.Return}}
	ci, err := codeinfo.Build(ins)
	require.NoError(t, err)

	succs, err := cfg.Successors(ins, ci, 0, java8())
	require.NoError(t, err)
	require.Empty(t, succs)
}

func TestSuccessorsTableswitch(t *testing.T) {
	ins := []opcode.Instruction{
		{Op: opcode.Iconst0},
		{
			Op: opcode.Tableswitch,
			Table: &opcode.TableSwitch{
				Default: 1, // -> index 2
				Low:     0, High: 1,
				Offsets: []int32{2, 1}, // -> index 3, index 2
			},
		},
		{Op: opcode.Iconst1},
		{Op: opcode.Return},
	}
	ci, err := codeinfo.Build(ins)
	require.NoError(t, err)

	succs, err := cfg.Successors(ins, ci, 1, java8())
	require.NoError(t, err)
	require.ElementsMatch(t, []int{2, 3, 2}, succs)
}

func TestSuccessorsFallThroughPastEndIsError(t *testing.T) {
	ins := []opcode.Instruction{{Op: opcode.Nop}}
	ci, err := codeinfo.Build(ins)
	require.NoError(t, err)

	_, err = cfg.Successors(ins, ci, 0, java8())
	require.Error(t, err)
}

func TestSuccessorsJsrRejectedAtVersion51(t *testing.T) {
	ins := []opcode.Instruction{
		{Op: opcode.Jsr, Offset: 1},
		{Op: opcode.Return},
	}
	ci, err := codeinfo.Build(ins)
	require.NoError(t, err)

	_, err = cfg.Successors(ins, ci, 0, types.ClassFileVersion{Major: types.Java7})
	require.Error(t, err)

	succs, err := cfg.Successors(ins, ci, 0, types.ClassFileVersion{Major: types.Java6})
	require.NoError(t, err)
	require.Equal(t, []int{1}, succs)
}

func TestExceptionSuccessors(t *testing.T) {
	ins := []opcode.Instruction{
		{Op: opcode.Iconst0}, // offset 0
		{Op: opcode.Athrow},  // offset 1
		{Op: opcode.Pop},     // offset 2, handler
		{Op: opcode.Return},  // offset 3
	}
	ci, err := codeinfo.Build(ins)
	require.NoError(t, err)

	table := []cfg.ExceptionTableEntry{
		{StartPC: 0, EndPC: 2, HandlerPC: 2, CatchType: "java/lang/Exception"},
	}

	handlers, err := cfg.ExceptionSuccessors(ci, table, 0)
	require.NoError(t, err)
	require.Equal(t, []int{2}, handlers)

	handlers, err = cfg.ExceptionSuccessors(ci, table, 2)
	require.NoError(t, err)
	require.Empty(t, handlers)
}

func TestWorklistIdempotentAddAndLIFOPop(t *testing.T) {
	w := cfg.NewWorklist(5)
	require.True(t, w.Empty())
	w.Add(1)
	w.Add(2)
	w.Add(1) // idempotent
	require.False(t, w.Empty())

	idx, ok := w.Pop()
	require.True(t, ok)
	require.Equal(t, 2, idx)

	idx, ok = w.Pop()
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = w.Pop()
	require.False(t, ok)
	require.True(t, w.Empty())
}
