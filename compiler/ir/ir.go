package ir

import (
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/pas/compiler/datum"
)

type (
	Instr struct {
		Op    Op
		Level int8
		Arg   datum.Datum
	}

	// Program is compiled code ready to run.
	// Lines[i] is the source line that produced Code[i].
	Program struct {
		Name   string
		Source []byte

		Code  []Instr
		Lines []int
	}
)

// Activation frame layout, relative to the frame pointer.
const (
	FrameBase = iota
	FrameOldFp
	FrameRetAddr
	FrameRetVal

	FrameSize
)

func (p *Program) Here() int { return len(p.Code) }

func (p *Program) Emit(line int, op Op, level int8, arg datum.Datum) int {
	p.Code = append(p.Code, Instr{Op: op, Level: level, Arg: arg})
	p.Lines = append(p.Lines, line)

	return len(p.Code) - 1
}

// Last returns the last instruction emitted.
func (p *Program) Last() (Instr, bool) {
	if len(p.Code) == 0 {
		return Instr{}, false
	}

	return p.Code[len(p.Code)-1], true
}

// Drop removes the last instruction.
func (p *Program) Drop() {
	p.Code = p.Code[:len(p.Code)-1]
	p.Lines = p.Lines[:len(p.Lines)-1]
}

func (x Instr) String() string {
	return string(x.Append(nil))
}

func (x Instr) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, x.String())
}
