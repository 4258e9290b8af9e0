package ir

import "strconv"

type (
	Op uint8

	form uint8

	info struct {
		name string
		pops int
		form form
	}
)

const (
	Halt Op = iota

	// unary
	Neg
	Itor
	Itor2
	Round
	Trunc
	Abs
	Atan
	Cos
	Exp
	Log
	Sin
	Sqr
	Sqrt
	Odd
	Pred
	Succ
	Ord
	Chr
	Dup
	Not

	// binary
	Add
	Sub
	Mul
	Div
	Rem
	Band
	Bor
	Bxor
	Shl
	Shr
	Lt
	Lte
	Equ
	Gte
	Gt
	Neq
	Or
	And

	// stack and memory
	Push
	PushVar
	Eval
	Assign
	Copy
	Pop

	// control
	Call
	Calli
	Enter
	Ret
	Retf
	Jump
	Jumpi
	Jneq

	// heap
	New
	Dispose

	// bounds
	Llimit
	Ulimit

	// output
	Write
	Writeln

	numOps
)

const (
	formNone form = iota
	formArg
	formLevel
	formLevelArg
)

var ops = [numOps]info{
	Halt: {"halt", 0, formNone},

	Neg:   {"neg", 1, formNone},
	Itor:  {"itor", 1, formNone},
	Itor2: {"itor2", 2, formNone},
	Round: {"round", 1, formNone},
	Trunc: {"trunc", 1, formNone},
	Abs:   {"abs", 1, formNone},
	Atan:  {"atan", 1, formNone},
	Cos:   {"cos", 1, formNone},
	Exp:   {"exp", 1, formNone},
	Log:   {"log", 1, formNone},
	Sin:   {"sin", 1, formNone},
	Sqr:   {"sqr", 1, formNone},
	Sqrt:  {"sqrt", 1, formNone},
	Odd:   {"odd", 1, formNone},
	Pred:  {"pred", 1, formNone},
	Succ:  {"succ", 1, formNone},
	Ord:   {"ord", 1, formNone},
	Chr:   {"chr", 1, formNone},
	Dup:   {"dup", 1, formNone},
	Not:   {"not", 1, formNone},

	Add:  {"add", 2, formNone},
	Sub:  {"sub", 2, formNone},
	Mul:  {"mul", 2, formNone},
	Div:  {"div", 2, formNone},
	Rem:  {"rem", 2, formNone},
	Band: {"band", 2, formNone},
	Bor:  {"bor", 2, formNone},
	Bxor: {"bxor", 2, formNone},
	Shl:  {"shl", 2, formNone},
	Shr:  {"shr", 2, formNone},
	Lt:   {"lt", 2, formNone},
	Lte:  {"lte", 2, formNone},
	Equ:  {"equ", 2, formNone},
	Gte:  {"gte", 2, formNone},
	Gt:   {"gt", 2, formNone},
	Neq:  {"neq", 2, formNone},
	Or:   {"or", 2, formNone},
	And:  {"and", 2, formNone},

	Push:    {"push", 0, formArg},
	PushVar: {"pushvar", 0, formLevelArg},
	Eval:    {"eval", 1, formArg},
	Assign:  {"assign", 2, formArg},
	Copy:    {"copy", 2, formArg},
	Pop:     {"pop", 0, formArg},

	Call:  {"call", 0, formLevelArg},
	Calli: {"calli", 1, formLevel},
	Enter: {"enter", 0, formArg},
	Ret:   {"ret", 0, formArg},
	Retf:  {"retf", 0, formArg},
	Jump:  {"jump", 0, formArg},
	Jumpi: {"jumpi", 1, formNone},
	Jneq:  {"jneq", 1, formArg},

	New:     {"new", 1, formNone},
	Dispose: {"dispose", 1, formNone},

	Llimit: {"llimit", 1, formArg},
	Ulimit: {"ulimit", 1, formArg},

	Write:   {"write", 1, formLevel},
	Writeln: {"writeln", 0, formNone},
}

func (op Op) Valid() bool { return op < numOps }

// Pops is the minimal number of stack operands op needs.
func (op Op) Pops() int {
	return ops[op].pops
}

func (op Op) String() string {
	if !op.Valid() {
		return "op(" + strconv.Itoa(int(op)) + ")"
	}

	return ops[op].name
}
