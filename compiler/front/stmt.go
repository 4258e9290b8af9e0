package front

import (
	"github.com/slowlang/pas/compiler/datum"
	"github.com/slowlang/pas/compiler/ir"
	"github.com/slowlang/pas/compiler/lex"
	"github.com/slowlang/pas/compiler/sym"
	"github.com/slowlang/pas/compiler/tp"
)

func (c *Compiler) compound() {
	c.expect(lex.Begin)

	for {
		c.statement()

		switch c.tok {
		case lex.Semicolon:
			c.next()
			continue
		case lex.End:
			c.next()
			return
		}

		c.error("';' or 'end' expected")

		if c.tok == lex.EOF {
			return
		}

		if !startsStatement(c.tok) {
			c.next()
		}
	}
}

func startsStatement(t lex.Token) bool {
	switch t {
	case lex.Ident, lex.Begin, lex.If, lex.While, lex.Repeat, lex.For,
		lex.Write, lex.Writeln, lex.New, lex.Dispose:
		return true
	}

	return false
}

// statement compiles one statement. Anything else is the empty statement.
func (c *Compiler) statement() {
	switch c.tok {
	case lex.Ident:
		c.identStatement()
	case lex.Begin:
		c.compound()
	case lex.If:
		c.ifStatement()
	case lex.While:
		c.whileStatement()
	case lex.Repeat:
		c.repeatStatement()
	case lex.For:
		c.forStatement()
	case lex.Write, lex.Writeln:
		c.writeStatement()
	case lex.New, lex.Dispose:
		c.heapStatement()
	}
}

func (c *Compiler) identStatement() {
	v := c.lookup()

	switch v.Kind {
	case sym.Variable:
		t := c.variable(v)
		c.becomes()
		c.store(t, c.expression())
	case sym.Procedure:
		c.callSub(v)
	case sym.Function:
		if c.tok != lex.Becomes || !c.inside(v) {
			c.error("function %v called as a statement", v.Name)
			c.callSub(v)

			return
		}

		c.Emit(ir.PushVar, int8(c.level-v.Level-1), datum.Int(ir.FrameRetVal))
		c.becomes()

		c.convert(v.Type, c.expression())
		c.emitInt(ir.Assign, 1)
	default:
		c.error("cannot assign to %v %v", v.Kind, v.Name)
	}
}

func (c *Compiler) becomes() {
	if c.tok == lex.Equ {
		c.error("':=' expected, found '='")
		c.next()

		return
	}

	c.expect(lex.Becomes)
}

func (c *Compiler) inside(v *sym.Value) bool {
	for _, s := range c.subs {
		if s == v {
			return true
		}
	}

	return false
}

// store consumes a value of type src over its destination address.
func (c *Compiler) store(dst, src *tp.Type) {
	if !dst.IsAggregate() {
		c.convert(dst, src)
		c.emitInt(ir.Assign, 1)

		return
	}

	if !tp.Same(dst, src) {
		c.error("type mismatch: %v := %v", dst, src)
		return
	}

	// whole-aggregate copy goes address to address
	if last, ok := c.p.Last(); ok && last.Op == ir.Eval {
		c.p.Drop()
		c.emitInt(ir.Copy, int64(dst.Size))

		return
	}

	c.emitInt(ir.Assign, int64(dst.Size))
}

func (c *Compiler) convert(dst, src *tp.Type) {
	narrowed, err := c.u.AssignPromote(c, dst, src)
	if err != nil {
		c.error("type mismatch: %v := %v", dst, src)
		return
	}

	if narrowed {
		c.warn("real value rounded to integer")
	}
}

func (c *Compiler) callSub(v *sym.Value) {
	n := 0

	if c.tok == lex.LParen {
		c.next()

		for {
			t := c.expression()

			if n < len(v.Params) {
				c.argument(v.Params[n], t)
			}

			n++

			if c.tok != lex.Comma {
				break
			}

			c.next()
		}

		c.expect(lex.RParen)
	}

	if n != len(v.Params) {
		c.error("%v expects %d arguments, got %d", v.Name, len(v.Params), n)
	}

	c.call(v)
}

func (c *Compiler) argument(param, t *tp.Type) {
	if param.IsAggregate() {
		if !tp.Same(param, t) {
			c.error("argument type mismatch: %v for %v", t, param)
		}

		return
	}

	c.convert(param, t)
}

func (c *Compiler) condition() {
	t := c.expression()

	if t.Root().Kind != tp.Boolean {
		c.error("boolean expression expected")
	}
}

func (c *Compiler) ifStatement() {
	c.next()
	c.condition()

	j := c.jump(ir.Jneq)

	c.expect(lex.Then)
	c.statement()

	if c.tok != lex.Else {
		c.patch(j, c.p.Here())
		return
	}

	c.next()

	k := c.jump(ir.Jump)
	c.patch(j, c.p.Here())

	c.statement()
	c.patch(k, c.p.Here())
}

func (c *Compiler) whileStatement() {
	c.next()

	top := c.p.Here()
	c.condition()

	j := c.jump(ir.Jneq)

	c.expect(lex.Do)
	c.statement()

	c.emitInt(ir.Jump, int64(top))
	c.patch(j, c.p.Here())
}

func (c *Compiler) repeatStatement() {
	c.next()

	top := c.p.Here()

	for {
		c.statement()

		if c.tok != lex.Semicolon {
			break
		}

		c.next()
	}

	c.expect(lex.Until)
	c.condition()

	c.emitInt(ir.Jneq, int64(top))
}

func (c *Compiler) forStatement() {
	c.next()

	if c.tok != lex.Ident {
		c.error("control variable expected")
		return
	}

	v := c.lookup()
	if v.Kind != sym.Variable || !v.Type.IsOrdinal() {
		c.error("%v is not an ordinal variable", v.Name)
		v = c.dummy
	}

	c.pushVar(v)
	c.becomes()
	c.convert(v.Type, c.expression())
	c.emitInt(ir.Assign, 1)

	cmp, step := ir.Gte, ir.Succ

	switch c.tok {
	case lex.To:
	case lex.Downto:
		cmp, step = ir.Lte, ir.Pred
	default:
		c.error("'to' or 'downto' expected")
	}

	c.next()

	// the limit is evaluated once and stays on the stack for the whole loop
	if t := c.expression(); !tp.Same(v.Type, t) {
		c.error("for limit does not match control variable")
	}

	top := c.p.Here()

	c.emit(ir.Dup)
	c.pushVar(v)
	c.emitInt(ir.Eval, 1)
	c.emit(cmp)
	exit := c.jump(ir.Jneq)

	c.expect(lex.Do)
	c.statement()

	// stop at the limit before stepping so succ never leaves the type's range
	c.emit(ir.Dup)
	c.pushVar(v)
	c.emitInt(ir.Eval, 1)
	c.emit(ir.Neq)
	last := c.jump(ir.Jneq)

	c.pushVar(v)
	c.pushVar(v)
	c.emitInt(ir.Eval, 1)
	c.emit(step)
	c.emitInt(ir.Assign, 1)

	c.emitInt(ir.Jump, int64(top))

	c.patch(exit, c.p.Here())
	c.patch(last, c.p.Here())
	c.emitInt(ir.Pop, 1)
}

func (c *Compiler) writeStatement() {
	ln := c.tok == lex.Writeln
	c.next()

	if c.tok == lex.LParen {
		c.next()

		for {
			c.writeArg()

			if c.tok != lex.Comma {
				break
			}

			c.next()
		}

		c.expect(lex.RParen)
	}

	if ln {
		c.emit(ir.Writeln)
	}
}

func (c *Compiler) writeArg() {
	if c.tok == lex.String && len(c.lx.Text) != 1 {
		for _, ch := range []byte(c.lx.Text) {
			c.Emit(ir.Push, 0, datum.Char(ch))
			c.emit(ir.Write)
		}

		c.next()

		return
	}

	t := c.expression()
	if t.IsAggregate() {
		c.error("cannot write %v", t)
	}

	n := int8(0)

	for n < 2 && c.tok == lex.Colon {
		c.next()

		if f := c.expression(); f.Root().Kind != tp.Integer {
			c.error("field width must be an integer")
		}

		n++
	}

	c.Emit(ir.Write, n, datum.Int(0))
}

// heapStatement compiles new(p) and dispose(p).
func (c *Compiler) heapStatement() {
	op := c.tok
	c.next()

	c.expect(lex.LParen)

	if c.tok != lex.Ident {
		c.error("pointer variable expected")
		return
	}

	v := c.lookup()
	if v.Kind != sym.Variable {
		c.error("%v is not a variable", v.Name)
		v = c.dummy
	}

	t := c.variable(v)

	switch {
	case t.Kind != tp.Pointer || t.Base == nil:
		c.error("pointer variable expected")
	case op == lex.New:
		c.emitInt(ir.Push, int64(t.Base.Size))
		c.emit(ir.New)
		c.emitInt(ir.Assign, 1)
	default:
		c.emitInt(ir.Eval, 1)
		c.emit(ir.Dispose)
	}

	c.expect(lex.RParen)
}
