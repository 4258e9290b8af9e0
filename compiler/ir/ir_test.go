package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slowlang/pas/compiler/datum"
)

func TestOpTableComplete(t *testing.T) {
	for op := Op(0); op < numOps; op++ {
		assert.NotEmpty(t, ops[op].name, "op %d", op)
	}

	assert.False(t, numOps.Valid())
	assert.Equal(t, 2, Add.Pops())
	assert.Equal(t, 1, Eval.Pops())
	assert.Equal(t, 0, Push.Pops())
}

func TestDisasm(t *testing.T) {
	var p Program

	p.Emit(1, Call, 0, datum.Int(2))
	p.Emit(1, Halt, 0, datum.Int(0))
	p.Emit(2, PushVar, 1, datum.Int(4))
	p.Emit(2, Push, 0, datum.Float(2.5))
	p.Emit(2, Add, 0, datum.Int(0))
	p.Emit(3, Write, 2, datum.Int(0))

	assert.Equal(t, ""+
		"    0: call     0, 2\n"+
		"    1: halt\n"+
		"    2: pushvar  1, 4\n"+
		"    3: push     2.5\n"+
		"    4: add\n"+
		"    5: write    2\n",
		string(Disasm(&p)))

	assert.Equal(t, []int{1, 1, 2, 2, 2, 3}, p.Lines)
}

func TestDrop(t *testing.T) {
	var p Program

	p.Emit(1, Push, 0, datum.Int(1))
	p.Emit(1, Eval, 0, datum.Int(3))

	last, ok := p.Last()
	assert.True(t, ok)
	assert.Equal(t, Eval, last.Op)

	p.Drop()
	assert.Equal(t, 1, p.Here())
	assert.Len(t, p.Lines, 1)
}
