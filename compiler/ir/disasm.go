package ir

import (
	"github.com/nikandfor/hacked/hfmt"
)

// Append renders the mnemonic and the fields the opcode uses.
func (x Instr) Append(b []byte) []byte {
	if !x.Op.Valid() {
		return hfmt.Appendf(b, "%v", x.Op)
	}

	switch ops[x.Op].form {
	case formArg:
		return hfmt.Appendf(b, "%-8s %v", x.Op, x.Arg)
	case formLevel:
		return hfmt.Appendf(b, "%-8s %d", x.Op, x.Level)
	case formLevelArg:
		return hfmt.Appendf(b, "%-8s %d, %v", x.Op, x.Level, x.Arg)
	default:
		return hfmt.Appendf(b, "%s", x.Op)
	}
}

// AppendDisasm renders one instruction as "address: mnemonic operands".
func AppendDisasm(b []byte, addr int, x Instr) []byte {
	b = hfmt.Appendf(b, "%5d: ", addr)
	b = x.Append(b)

	return append(b, '\n')
}

func Disasm(p *Program) (b []byte) {
	for i, x := range p.Code {
		b = AppendDisasm(b, i, x)
	}

	return b
}
