package vm

import (
	"bytes"
	"context"
	"io"
	"math"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/pas/compiler/datum"
	"github.com/slowlang/pas/compiler/ir"
	"github.com/slowlang/pas/vm/freestore"
)

type (
	Config struct {
		StackSize int
		HeapSize  int

		Trace bool
		Out   io.Writer
	}

	// Machine is a stack machine running ir code.
	//
	// Memory slot 0 is never addressable so nil is address 0.
	// The stack is [1, sp], the heap is [StackSize, StackSize+HeapSize).
	Machine struct {
		Config

		code []ir.Instr
		mem  []datum.Datum
		heap *freestore.Store

		pc, fp, sp int
		ir         ir.Instr

		steps int64
		out   []byte

		tr tlog.Span
	}
)

const (
	DefaultStackSize = 4096
	DefaultHeapSize  = 4096
)

func New(code []ir.Instr, cfg Config) *Machine {
	if cfg.StackSize <= ir.FrameSize {
		cfg.StackSize = DefaultStackSize
	}

	if cfg.HeapSize <= 0 {
		cfg.HeapSize = DefaultHeapSize
	}

	if cfg.Out == nil {
		cfg.Out = io.Discard
	}

	m := &Machine{
		Config: cfg,
		code:   code,
		mem:    make([]datum.Datum, cfg.StackSize+cfg.HeapSize),
		tr:     tlog.Root(),
	}

	m.Reset()

	return m
}

// Reset clears memory and registers. Execution starts at address 0.
func (m *Machine) Reset() {
	for i := range m.mem {
		m.mem[i] = datum.Int(0)
	}

	m.heap = freestore.New(m.StackSize, m.HeapSize)

	m.pc = 0
	m.fp = 1
	m.sp = 0
	m.ir = ir.Instr{}
	m.steps = 0
	m.out = m.out[:0]
}

func (m *Machine) PC() int { return m.pc }
func (m *Machine) FP() int { return m.fp }
func (m *Machine) SP() int { return m.sp }

// Steps is the number of instructions executed since Reset.
func (m *Machine) Steps() int64 { return m.steps }

// Run executes until the program halts or faults.
// Normal termination is reported as nil, a fault as Fault.
func (m *Machine) Run(ctx context.Context) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "run", "instructions", len(m.code), "stack", m.StackSize, "heap", m.HeapSize)
	defer tr.Finish("err", &err)

	if tr.Logger != nil {
		m.tr = tr
		defer func() { m.tr = tlog.Root() }()
	}

	defer func() {
		if ferr := m.flush(); err == nil && ferr != nil {
			err = errors.Wrap(ferr, "write output")
		}

		tr.Printw("stopped", "steps", m.steps, "machine", m)
	}()

	for {
		if m.steps&0x3ff == 0 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "run")
			default:
			}
		}

		pc := m.pc

		switch r := m.Step(); r {
		case Success:
			continue
		case Halted:
			return nil
		default:
			return Fault{PC: pc, SP: m.sp, Result: r}
		}
	}
}

// Step executes one instruction.
func (m *Machine) Step() Result {
	if m.pc < 0 || m.pc >= len(m.code) {
		return BadFetch
	}

	m.ir = m.code[m.pc]
	m.pc++
	m.steps++

	if !m.ir.Op.Valid() {
		return UnknownInstr
	}

	if m.sp < m.ir.Op.Pops() {
		return StackUnderflow
	}

	if m.Trace {
		m.tr.Printw("step", "pc", m.pc-1, "fp", m.fp, "sp", m.sp, "ir", m.ir, "tos", m.mem[m.sp])
	}

	switch op := m.ir.Op; {
	case op == ir.Halt:
		return Halted
	case op == ir.Itor2:
		r, res := unary(ir.Itor, m.mem[m.sp-1])
		m.mem[m.sp-1] = r

		return res
	case op == ir.Dup:
		return m.push(m.mem[m.sp])
	case op >= ir.Neg && op <= ir.Not:
		return m.unary(op)
	case op >= ir.Add && op <= ir.And:
		return m.binary(op)
	}

	return m.exec()
}

func (m *Machine) exec() Result {
	x := m.ir

	switch x.Op {
	case ir.Push:
		return m.push(x.Arg)
	case ir.PushVar:
		off, err := x.Arg.AsInt()
		if err != nil {
			return BadDataType
		}

		b, r := m.base(int(x.Level))
		if r != Success {
			return r
		}

		return m.push(datum.Addr(b + int(off)))
	case ir.Eval:
		n, a, r := m.blockAt(x.Arg, m.sp)
		if r != Success {
			return r
		}

		if m.sp-1+n >= m.StackSize {
			return StackOverflow
		}

		m.sp--
		copy(m.mem[m.sp+1:m.sp+1+n], m.mem[a:a+n])
		m.sp += n
	case ir.Assign:
		n, err := x.Arg.AsInt()
		if err != nil || n < 1 {
			return BadDataType
		}

		if int64(m.sp) < n+1 {
			return StackUnderflow
		}

		k := int(n)
		src := m.sp - k + 1

		_, dst, r := m.blockAt(x.Arg, src-1)
		if r != Success {
			return r
		}

		copy(m.mem[dst:dst+k], m.mem[src:src+k])
		m.sp -= k + 1
	case ir.Copy:
		n, src, r := m.blockAt(x.Arg, m.sp)
		if r != Success {
			return r
		}

		_, dst, r := m.blockAt(x.Arg, m.sp-1)
		if r != Success {
			return r
		}

		copy(m.mem[dst:dst+n], m.mem[src:src+n])
		m.sp -= 2
	case ir.Pop:
		n, err := x.Arg.AsInt()
		if err != nil || n < 0 {
			return BadDataType
		}

		if int64(m.sp) < n {
			return StackUnderflow
		}

		m.sp -= int(n)
	case ir.Call:
		to, err := x.Arg.AsInt()
		if err != nil {
			return BadDataType
		}

		return m.call(int(x.Level), int(to))
	case ir.Calli:
		to, err := m.pop().AsInt()
		if err != nil {
			return BadDataType
		}

		return m.call(int(x.Level), int(to))
	case ir.Enter:
		n, err := x.Arg.AsInt()
		if err != nil || n < 0 {
			return BadDataType
		}

		if int64(m.sp)+n >= int64(m.StackSize) {
			return StackOverflow
		}

		m.sp += int(n)
	case ir.Ret, ir.Retf:
		return m.ret(x)
	case ir.Jump:
		to, err := x.Arg.AsInt()
		if err != nil {
			return BadDataType
		}

		m.pc = int(to)
	case ir.Jumpi:
		to, err := m.pop().AsInt()
		if err != nil {
			return BadDataType
		}

		m.pc = int(to)
	case ir.Jneq:
		c, err := m.pop().AsBool()
		if err != nil {
			return BadDataType
		}

		if c {
			break
		}

		to, err := x.Arg.AsInt()
		if err != nil {
			return BadDataType
		}

		m.pc = int(to)
	case ir.New:
		n, err := m.mem[m.sp].AsInt()
		if err != nil {
			return BadDataType
		}

		a, ok := m.heap.Alloc(int(n))
		if !ok {
			m.mem[m.sp] = datum.Addr(0)
			return FreeStoreError
		}

		m.mem[m.sp] = datum.Addr(a)
	case ir.Dispose:
		a, err := m.pop().AsAddr()
		if err != nil {
			return BadDataType
		}

		if !m.heap.Free(a) {
			return FreeStoreError
		}
	case ir.Llimit, ir.Ulimit:
		v, err := m.mem[m.sp].Ordinal()
		if err != nil {
			return BadDataType
		}

		lim, err := x.Arg.AsInt()
		if err != nil {
			return BadDataType
		}

		if x.Op == ir.Llimit && v < lim || x.Op == ir.Ulimit && v > lim {
			return OutOfRange
		}
	case ir.Write:
		return m.write(int(x.Level))
	case ir.Writeln:
		m.out = append(m.out, '\n')

		if err := m.flush(); err != nil {
			tlog.Printw("write output", "err", err)
		}
	default:
		return UnknownInstr
	}

	return Success
}

func (m *Machine) unary(op ir.Op) Result {
	v := m.mem[m.sp]

	r, res := unary(op, v)
	m.mem[m.sp] = r

	return res
}

func unary(op ir.Op, v datum.Datum) (datum.Datum, Result) {
	zero := datum.Int(0)

	switch op {
	case ir.Neg, ir.Abs, ir.Sqr:
		if i, err := v.AsInt(); err == nil {
			switch op {
			case ir.Neg:
				i = -i
			case ir.Abs:
				if i < 0 {
					i = -i
				}
			case ir.Sqr:
				i *= i
			}

			return datum.Int32(i), Success
		}

		f, err := v.AsReal()
		if err != nil {
			return zero, BadDataType
		}

		switch op {
		case ir.Neg:
			f = -f
		case ir.Abs:
			f = math.Abs(f)
		case ir.Sqr:
			f *= f
		}

		return datum.Float(f), Success
	case ir.Itor:
		f, err := v.ToReal()
		if err != nil {
			return zero, BadDataType
		}

		return datum.Float(f), Success
	case ir.Round, ir.Trunc:
		f, err := v.AsReal()
		if err != nil {
			return zero, BadDataType
		}

		if op == ir.Round {
			f = math.Round(f)
		} else {
			f = math.Trunc(f)
		}

		if f < math.MinInt32 || f > math.MaxInt32 || math.IsNaN(f) {
			return zero, OutOfRange
		}

		return datum.Int(int64(f)), Success
	case ir.Atan, ir.Cos, ir.Exp, ir.Log, ir.Sin, ir.Sqrt:
		f, err := v.ToReal()
		if err != nil {
			return zero, BadDataType
		}

		switch op {
		case ir.Atan:
			f = math.Atan(f)
		case ir.Cos:
			f = math.Cos(f)
		case ir.Exp:
			f = math.Exp(f)
		case ir.Sin:
			f = math.Sin(f)
		case ir.Log:
			if f <= 0 {
				return zero, OutOfRange
			}

			f = math.Log(f)
		case ir.Sqrt:
			if f < 0 {
				return zero, OutOfRange
			}

			f = math.Sqrt(f)
		}

		return datum.Float(f), Success
	case ir.Odd:
		i, err := v.AsInt()
		if err != nil {
			return zero, BadDataType
		}

		return datum.Bool(i&1 != 0), Success
	case ir.Pred, ir.Succ:
		i, err := v.Ordinal()
		if err != nil {
			return zero, BadDataType
		}

		if op == ir.Pred {
			i--
		} else {
			i++
		}

		switch v.Kind() {
		case datum.Boolean:
			if i < 0 || i > 1 {
				return zero, OutOfRange
			}

			return datum.Bool(i != 0), Success
		case datum.Character:
			if i < 0 || i > 255 {
				return zero, OutOfRange
			}

			return datum.Char(byte(i)), Success
		}

		return datum.Int32(i), Success
	case ir.Ord:
		i, err := v.Ordinal()
		if err != nil {
			return zero, BadDataType
		}

		return datum.Int(i), Success
	case ir.Chr:
		i, err := v.AsInt()
		if err != nil {
			return zero, BadDataType
		}

		if i < 0 || i > 255 {
			return zero, OutOfRange
		}

		return datum.Char(byte(i)), Success
	case ir.Not:
		if b, err := v.AsBool(); err == nil {
			return datum.Bool(!b), Success
		}

		i, err := v.AsInt()
		if err != nil {
			return zero, BadDataType
		}

		return datum.Int(^i), Success
	}

	return zero, UnknownInstr
}

func (m *Machine) binary(op ir.Op) Result {
	b := m.pop()
	a := m.mem[m.sp]

	r, res := binary(op, a, b)
	m.mem[m.sp] = r

	return res
}

// binary always yields one value, a zero placeholder on failure.
func binary(op ir.Op, a, b datum.Datum) (datum.Datum, Result) {
	zero := datum.Int(0)

	var (
		r   datum.Datum
		err error
	)

	switch op {
	case ir.Add:
		r, err = datum.Add(a, b)
	case ir.Sub:
		r, err = datum.Sub(a, b)
	case ir.Mul:
		r, err = datum.Mul(a, b)
	case ir.Div:
		r, err = datum.Div(a, b)
	case ir.Rem:
		r, err = datum.Rem(a, b)
	case ir.Band, ir.Bor, ir.Bxor, ir.Shl, ir.Shr:
		x, errx := a.AsInt()
		y, erry := b.AsInt()
		if errx != nil || erry != nil {
			return zero, BadDataType
		}

		switch op {
		case ir.Band:
			x &= y
		case ir.Bor:
			x |= y
		case ir.Bxor:
			x ^= y
		case ir.Shl:
			x = int64(int32(x) << uint(y&31))
		case ir.Shr:
			x = int64(int32(x) >> uint(y&31))
		}

		return datum.Int(x), Success
	case ir.Or, ir.And:
		x, errx := a.AsBool()
		y, erry := b.AsBool()
		if errx != nil || erry != nil {
			return zero, BadDataType
		}

		if op == ir.Or {
			return datum.Bool(x || y), Success
		}

		return datum.Bool(x && y), Success
	default:
		c, err := datum.Compare(a, b)
		if err != nil {
			return zero, BadDataType
		}

		var v bool

		switch op {
		case ir.Lt:
			v = c < 0
		case ir.Lte:
			v = c <= 0
		case ir.Equ:
			v = c == 0
		case ir.Gte:
			v = c >= 0
		case ir.Gt:
			v = c > 0
		case ir.Neq:
			v = c != 0
		default:
			return zero, UnknownInstr
		}

		return datum.Bool(v), Success
	}

	switch {
	case errors.Is(err, datum.ErrDivZero):
		return zero, DivideByZero
	case err != nil:
		return zero, BadDataType
	}

	return r, Success
}

func (m *Machine) push(v datum.Datum) Result {
	if m.sp+1 >= m.StackSize {
		return StackOverflow
	}

	m.sp++
	m.mem[m.sp] = v

	return Success
}

// pop is only called after the operand count was checked.
func (m *Machine) pop() datum.Datum {
	v := m.mem[m.sp]
	m.sp--

	return v
}

// base follows static links level times up from the current frame.
func (m *Machine) base(level int) (int, Result) {
	b := m.fp

	for ; level > 0; level-- {
		if !m.valid(b, 1) {
			return 0, OutOfRange
		}

		a, err := m.mem[b+ir.FrameBase].AsAddr()
		if err != nil {
			return 0, BadDataType
		}

		b = a
	}

	return b, Success
}

// valid reports whether [a, a+n) is all inside the live stack or inside the heap.
func (m *Machine) valid(a, n int) bool {
	if n <= 0 || a < 1 {
		return false
	}

	last := a + n - 1

	return last <= m.sp || m.heap.Contains(a) && m.heap.Contains(last)
}

// blockAt reads the block size from arg and the block address from the stack slot at.
func (m *Machine) blockAt(arg datum.Datum, at int) (n, a int, r Result) {
	n64, err := arg.AsInt()
	if err != nil || n64 < 1 {
		return 0, 0, BadDataType
	}

	if at < 1 {
		return 0, 0, StackUnderflow
	}

	a, err = m.mem[at].AsAddr()
	if err != nil {
		return 0, 0, BadDataType
	}

	n = int(n64)

	if !m.valid(a, n) {
		return 0, 0, OutOfRange
	}

	return n, a, Success
}

func (m *Machine) call(level, to int) Result {
	b, r := m.base(level)
	if r != Success {
		return r
	}

	if m.sp+ir.FrameSize >= m.StackSize {
		return StackOverflow
	}

	fp := m.sp + 1

	m.mem[fp+ir.FrameBase] = datum.Addr(b)
	m.mem[fp+ir.FrameOldFp] = datum.Addr(m.fp)
	m.mem[fp+ir.FrameRetAddr] = datum.Int(int64(m.pc))
	m.mem[fp+ir.FrameRetVal] = datum.Int(0)

	m.sp += ir.FrameSize
	m.fp = fp
	m.pc = to

	return Success
}

// ret tears down the current frame together with the caller's arguments.
func (m *Machine) ret(x ir.Instr) Result {
	n, err := x.Arg.AsInt()
	if err != nil || n < 0 {
		return BadDataType
	}

	fp := m.fp

	if fp < 1 || fp+ir.FrameRetVal > m.sp {
		return StackUnderflow
	}

	pc, err := m.mem[fp+ir.FrameRetAddr].AsInt()
	if err != nil {
		return BadDataType
	}

	old, err := m.mem[fp+ir.FrameOldFp].AsAddr()
	if err != nil {
		return BadDataType
	}

	rv := m.mem[fp+ir.FrameRetVal]

	sp := fp - 1 - int(n)
	if sp < 0 {
		return StackUnderflow
	}

	m.sp = sp
	m.fp = old
	m.pc = int(pc)

	if x.Op == ir.Retf {
		return m.push(rv)
	}

	return Success
}

// write pops a value and up to two format arguments: width and precision.
func (m *Machine) write(nfmt int) Result {
	if nfmt < 0 || nfmt > 2 {
		return BadDataType
	}

	if m.sp < nfmt+1 {
		return StackUnderflow
	}

	width, prec := 0, -1

	if nfmt == 2 {
		p, err := m.pop().AsInt()
		if err != nil {
			return BadDataType
		}

		prec = int(max(p, 0))
	}

	if nfmt >= 1 {
		w, err := m.pop().AsInt()
		if err != nil {
			return BadDataType
		}

		width = int(w)
	}

	v := m.pop()

	st := len(m.out)

	switch v.Kind() {
	case datum.Character:
		c, _ := v.AsChar()
		m.out = append(m.out, c)
	case datum.Real:
		f, _ := v.AsReal()

		if prec >= 0 {
			m.out = strconv.AppendFloat(m.out, f, 'f', prec, 64)
		} else {
			m.out = hfmt.Appendf(m.out, "%g", f)
		}
	default:
		m.out = v.Append(m.out)
	}

	if pad := width - (len(m.out) - st); pad > 0 {
		m.out = append(m.out[:st], append(bytes.Repeat([]byte{' '}, pad), m.out[st:]...)...)
	}

	return Success
}

func (m *Machine) flush() error {
	if len(m.out) == 0 {
		return nil
	}

	_, err := m.Out.Write(m.out)
	m.out = m.out[:0]

	return err
}

func (m *Machine) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 4)
	b = e.AppendString(b, "pc")
	b = e.AppendInt(b, m.pc)
	b = e.AppendString(b, "fp")
	b = e.AppendInt(b, m.fp)
	b = e.AppendString(b, "sp")
	b = e.AppendInt(b, m.sp)
	b = e.AppendString(b, "heap")
	b = m.heap.TlogAppend(b)

	return b
}
