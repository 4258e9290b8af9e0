package front

import (
	"github.com/slowlang/pas/compiler/datum"
	"github.com/slowlang/pas/compiler/ir"
	"github.com/slowlang/pas/compiler/lex"
	"github.com/slowlang/pas/compiler/sym"
	"github.com/slowlang/pas/compiler/tp"
)

var relops = map[lex.Token]ir.Op{
	lex.Equ: ir.Equ,
	lex.Neq: ir.Neq,
	lex.Lt:  ir.Lt,
	lex.Lte: ir.Lte,
	lex.Gt:  ir.Gt,
	lex.Gte: ir.Gte,
}

// expression leaves one value on the stack and returns its type.
// Aggregates leave all their words.
func (c *Compiler) expression() *tp.Type {
	lt := c.simpleExpr()

	op, ok := relops[c.tok]
	if !ok {
		return lt
	}

	c.next()

	rt := c.simpleExpr()

	if _, err := c.u.Promote(c, lt, rt); err != nil || lt.Root().Kind == tp.Pointer && !tp.Same(lt, rt) {
		c.error("cannot compare %v and %v", lt, rt)
	}

	if lt.Kind == tp.Pointer && op != ir.Equ && op != ir.Neq {
		c.error("pointers can only be tested for equality")
	}

	c.emit(op)

	return c.u.Boolean
}

func (c *Compiler) simpleExpr() *tp.Type {
	sign := c.tok
	if sign == lex.Plus || sign == lex.Minus {
		c.next()
	}

	t := c.term()

	if (sign == lex.Plus || sign == lex.Minus) && !numeric(t) {
		c.error("sign on non-numeric operand")
	}

	if sign == lex.Minus {
		c.emit(ir.Neg)
	}

	for {
		switch op := c.tok; op {
		case lex.Plus, lex.Minus, lex.Or, lex.Xor:
			c.next()

			t = c.binary(op, t, c.term())
		default:
			return t
		}
	}
}

func (c *Compiler) term() *tp.Type {
	t := c.factor()

	for {
		switch op := c.tok; op {
		case lex.Star, lex.Slash, lex.Div, lex.Mod, lex.And, lex.Shl, lex.Shr:
			c.next()

			t = c.binary(op, t, c.factor())
		default:
			return t
		}
	}
}

// binary emits op over TOS-1 of type lt and TOS of type rt.
func (c *Compiler) binary(op lex.Token, lt, rt *tp.Type) *tp.Type {
	l, r := lt.Root(), rt.Root()

	switch op {
	case lex.Plus, lex.Minus, lex.Star:
		t, err := c.u.Promote(c, lt, rt)
		if err != nil || !numeric(t) {
			c.error("operands of %v must be numbers", op)
			return c.u.Integer
		}

		c.emit(map[lex.Token]ir.Op{lex.Plus: ir.Add, lex.Minus: ir.Sub, lex.Star: ir.Mul}[op])

		return t
	case lex.Slash:
		if !numeric(l) || !numeric(r) {
			c.error("operands of / must be numbers")
			return c.u.Real
		}

		if l.Kind == tp.Integer {
			c.emit(ir.Itor2)
		}

		if r.Kind == tp.Integer {
			c.emit(ir.Itor)
		}

		c.emit(ir.Div)

		return c.u.Real
	case lex.Div, lex.Mod, lex.Shl, lex.Shr:
		if l.Kind != tp.Integer || r.Kind != tp.Integer {
			c.error("operands of %v must be integers", op)
			return c.u.Integer
		}

		c.emit(map[lex.Token]ir.Op{lex.Div: ir.Div, lex.Mod: ir.Rem, lex.Shl: ir.Shl, lex.Shr: ir.Shr}[op])

		return c.u.Integer
	}

	// and, or, xor
	switch {
	case l.Kind == tp.Boolean && r.Kind == tp.Boolean:
		c.emit(map[lex.Token]ir.Op{lex.And: ir.And, lex.Or: ir.Or, lex.Xor: ir.Neq}[op])

		return c.u.Boolean
	case l.Kind == tp.Integer && r.Kind == tp.Integer:
		c.emit(map[lex.Token]ir.Op{lex.And: ir.Band, lex.Or: ir.Bor, lex.Xor: ir.Bxor}[op])

		return c.u.Integer
	}

	c.error("operands of %v must be both boolean or both integer", op)

	return c.u.Boolean
}

func (c *Compiler) factor() *tp.Type {
	switch c.tok {
	case lex.IntNum:
		c.Emit(ir.Push, 0, datum.Int(c.lx.Int))
		c.next()

		return c.u.Integer
	case lex.RealNum:
		c.Emit(ir.Push, 0, datum.Float(c.lx.Real))
		c.next()

		return c.u.Real
	case lex.String:
		if len(c.lx.Text) != 1 {
			c.error("strings are only allowed in write")
		}

		c.Emit(ir.Push, 0, datum.Char(first(c.lx.Text)))
		c.next()

		return c.u.Char
	case lex.Nil:
		c.Emit(ir.Push, 0, datum.Addr(0))
		c.next()

		return c.u.Nil
	case lex.LParen:
		c.next()

		t := c.expression()
		c.expect(lex.RParen)

		return t
	case lex.Not:
		c.next()

		t := c.factor()
		if k := t.Root().Kind; k != tp.Boolean && k != tp.Integer {
			c.error("operand of not must be boolean or integer")
		}

		c.emit(ir.Not)

		return t.Root()
	case lex.Ident:
		return c.identFactor()
	}

	if c.tok.IsBuiltin() {
		return c.builtin()
	}

	c.error("expression expected")

	return c.u.Integer
}

func (c *Compiler) identFactor() *tp.Type {
	v := c.lookup()

	switch v.Kind {
	case sym.Constant:
		c.Emit(ir.Push, 0, v.Value)

		return v.Type
	case sym.Variable:
		t := c.variable(v)
		c.emitInt(ir.Eval, int64(t.Size))

		return t
	case sym.Function:
		c.callSub(v)

		return v.Type
	}

	c.error("%v %v is not a value", v.Kind, v.Name)

	return c.u.Integer
}

// variable leaves the address of a designator on the stack.
func (c *Compiler) variable(v *sym.Value) *tp.Type {
	c.pushVar(v)

	t := v.Type

	for {
		switch c.tok {
		case lex.LBrack:
			c.next()

			for {
				if t.Kind != tp.Array {
					c.error("%v is not an array", t)
					c.expression()
				} else {
					c.index(t)
					t = t.Base
				}

				if c.tok != lex.Comma {
					break
				}

				c.next()
			}

			c.expect(lex.RBrack)
		case lex.Period:
			c.next()

			name := c.ident()

			if t.Kind != tp.Record {
				c.error("%v is not a record", t)
				continue
			}

			f, ok := t.Field(name)
			if !ok {
				c.error("no field %v in %v", name, t)
				continue
			}

			if f.Offset != 0 {
				c.emitInt(ir.Push, int64(f.Offset))
				c.emit(ir.Add)
			}

			t = f.Type
		case lex.Caret:
			c.next()

			if t.Kind != tp.Pointer || t.Base == nil {
				c.error("%v is not a pointer", t)
				continue
			}

			c.emitInt(ir.Eval, 1)
			t = t.Base
		default:
			return t
		}
	}
}

// pushVar pushes the address of a variable. Locals live above the frame header.
func (c *Compiler) pushVar(v *sym.Value) {
	off, _ := v.Value.AsInt()
	if off >= 0 {
		off += ir.FrameSize
	}

	c.Emit(ir.PushVar, int8(c.level-v.Level), datum.Int(off))
}

// index turns the address of array t and an index into the element address.
func (c *Compiler) index(t *tp.Type) {
	it := c.expression()
	if !tp.Same(t.RType, it) {
		c.error("index type mismatch: %v for %v", it, t.RType)
	}

	r := t.RType.Range

	c.emitInt(ir.Llimit, r.Min)
	c.emitInt(ir.Ulimit, r.Max)

	if t.RType.Root().Kind != tp.Integer {
		c.emit(ir.Ord)
	}

	if r.Min != 0 {
		c.emitInt(ir.Push, r.Min)
		c.emit(ir.Sub)
	}

	if size := t.Base.Size; size != 1 {
		c.emitInt(ir.Push, int64(size))
		c.emit(ir.Mul)
	}

	c.emit(ir.Add)
}

func (c *Compiler) builtin() *tp.Type {
	fn := c.tok
	c.next()

	c.expect(lex.LParen)
	t := c.expression()
	c.expect(lex.RParen)

	k := t.Root().Kind

	switch fn {
	case lex.Abs, lex.Sqr:
		if !numeric(t) {
			c.error("%v expects a number", fn)
		}

		c.emit(map[lex.Token]ir.Op{lex.Abs: ir.Abs, lex.Sqr: ir.Sqr}[fn])

		return t.Root()
	case lex.Sin, lex.Cos, lex.Arctan, lex.Exp, lex.Ln, lex.Sqrt:
		if !numeric(t) {
			c.error("%v expects a number", fn)
		}

		if k == tp.Integer {
			c.emit(ir.Itor)
		}

		c.emit(map[lex.Token]ir.Op{
			lex.Sin: ir.Sin, lex.Cos: ir.Cos, lex.Arctan: ir.Atan,
			lex.Exp: ir.Exp, lex.Ln: ir.Log, lex.Sqrt: ir.Sqrt,
		}[fn])

		return c.u.Real
	case lex.Round, lex.Trunc:
		if !numeric(t) {
			c.error("%v expects a number", fn)
		}

		if k == tp.Integer {
			c.emit(ir.Itor)
		}

		c.emit(map[lex.Token]ir.Op{lex.Round: ir.Round, lex.Trunc: ir.Trunc}[fn])

		return c.u.Integer
	case lex.Odd:
		if k != tp.Integer {
			c.error("odd expects an integer")
		}

		c.emit(ir.Odd)

		return c.u.Boolean
	case lex.Pred, lex.Succ:
		if !t.IsOrdinal() {
			c.error("%v expects an ordinal", fn)
			return t
		}

		c.emit(map[lex.Token]ir.Op{lex.Pred: ir.Pred, lex.Succ: ir.Succ}[fn])

		if t.IsNarrow() || k == tp.Enumeration {
			c.emitInt(ir.Llimit, t.Range.Min)
			c.emitInt(ir.Ulimit, t.Range.Max)
		}

		return t
	case lex.Ord:
		if !t.IsOrdinal() {
			c.error("ord expects an ordinal")
		}

		c.emit(ir.Ord)

		return c.u.Integer
	case lex.Chr:
		if k != tp.Integer {
			c.error("chr expects an integer")
		}

		c.emit(ir.Chr)

		return c.u.Char
	}

	c.error("%v is not a function", fn)

	return c.u.Integer
}

func numeric(t *tp.Type) bool {
	k := t.Root().Kind

	return k == tp.Integer || k == tp.Real
}
