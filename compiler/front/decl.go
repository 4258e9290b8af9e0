package front

import (
	"tlog.app/go/tlog"

	"github.com/slowlang/pas/compiler/datum"
	"github.com/slowlang/pas/compiler/ir"
	"github.com/slowlang/pas/compiler/lex"
	"github.com/slowlang/pas/compiler/sym"
	"github.com/slowlang/pas/compiler/tp"
)

// program body is an implicit procedure called from address 0.
func (c *Compiler) program() {
	c.expect(lex.Program)

	name := c.ident()
	c.p.Name = name

	if c.tok == lex.LParen {
		c.next()
		c.identList()
		c.expect(lex.RParen)
	}

	c.expect(lex.Semicolon)

	main := &sym.Value{Name: name, Kind: sym.Procedure, Level: 0, Value: datum.Int(-1)}
	c.declare(main)

	c.call(main)
	c.emit(ir.Halt)

	c.block(main, 1)

	if c.tok != lex.Period {
		c.error("'.' expected")
		return
	}

	c.next()

	if c.tok != lex.EOF {
		c.error("text after end of program")
	}
}

func (c *Compiler) block(v *sym.Value, level int) {
	saved := c.level
	c.level = level
	c.subs = append(c.subs, v)

	defer func() {
		c.level = saved
		c.subs = c.subs[:len(c.subs)-1]
	}()

	locals := 0

decls:
	for {
		switch c.tok {
		case lex.Const:
			c.constDecls()
		case lex.Type:
			c.typeDecls()
		case lex.Var:
			locals = c.varDecls(locals)
		case lex.Procedure, lex.Function:
			c.subDecl()
		default:
			break decls
		}
	}

	entry := c.p.Here()
	c.define(v, entry)

	if c.Verbose {
		tlog.Printw("block", "name", v.Name, "level", level, "entry", entry, "locals", locals, "params", v.ParamSize)
	}

	if locals != 0 {
		c.emitInt(ir.Enter, int64(locals))
	}

	c.compound()

	if v.Kind == sym.Function {
		c.emitInt(ir.Retf, int64(v.ParamSize))
	} else {
		c.emitInt(ir.Ret, int64(v.ParamSize))
	}

	c.syms.Purge(level)
}

func (c *Compiler) constDecls() {
	c.next()

	for c.tok == lex.Ident {
		name := c.ident()
		c.expect(lex.Equ)

		val, t := c.constant()

		c.declare(&sym.Value{Name: name, Kind: sym.Constant, Level: c.level, Value: val, Type: t})
		c.expect(lex.Semicolon)
	}
}

func (c *Compiler) constant() (datum.Datum, *tp.Type) {
	neg := false

	if c.tok == lex.Plus || c.tok == lex.Minus {
		neg = c.tok == lex.Minus
		c.next()
	}

	var (
		val datum.Datum
		t   *tp.Type
	)

	switch c.tok {
	case lex.IntNum:
		val, t = datum.Int(c.lx.Int), c.u.Integer
		c.next()
	case lex.RealNum:
		val, t = datum.Float(c.lx.Real), c.u.Real
		c.next()
	case lex.String:
		if len(c.lx.Text) != 1 {
			c.error("character constant expected")
		}

		val, t = datum.Char(first(c.lx.Text)), c.u.Char
		c.next()
	case lex.Ident:
		v := c.lookup()
		if v.Kind != sym.Constant {
			c.error("%v is not a constant", v.Name)
			return datum.Int(0), c.u.Integer
		}

		val, t = v.Value, v.Type
	default:
		c.error("constant expected")
		return datum.Int(0), c.u.Integer
	}

	if !neg {
		return val, t
	}

	switch t.Root().Kind {
	case tp.Integer:
		i, _ := val.AsInt()
		return datum.Int(-i), t
	case tp.Real:
		f, _ := val.AsReal()
		return datum.Float(-f), t
	}

	c.error("sign on non-numeric constant")

	return val, t
}

func (c *Compiler) typeDecls() {
	c.next()

	c.fwd = c.fwd[:0]

	for c.tok == lex.Ident {
		name := c.ident()
		c.expect(lex.Equ)

		t := c.typeSpec(true)
		if t.Name == "" {
			t.Name = name
		}

		c.declare(&sym.Value{Name: name, Kind: sym.TypeName, Level: c.level, Type: t})
		c.expect(lex.Semicolon)
	}

	for _, f := range c.fwd {
		v, err := c.syms.Lookup(f.name)
		if err != nil || v.Kind != sym.TypeName {
			c.errs = append(c.errs, Diag{Line: f.line, Msg: "undefined pointer base type " + f.name})
			f.t.Base = c.u.Integer

			continue
		}

		f.t.Base = v.Type
	}

	c.fwd = c.fwd[:0]
}

// typeSpec parses a type. Pointers to types not declared yet
// are allowed inside a type section.
func (c *Compiler) typeSpec(inTypeDecl bool) *tp.Type {
	switch c.tok {
	case lex.Ident:
		v, err := c.syms.Lookup(c.lx.Text)
		if err == nil && v.Kind == sym.Constant {
			return c.subrange()
		}

		return c.typeIdent()
	case lex.LParen:
		return c.enum()
	case lex.IntNum, lex.Plus, lex.Minus, lex.String:
		return c.subrange()
	case lex.Array:
		return c.array(inTypeDecl)
	case lex.Record:
		return c.record(inTypeDecl)
	case lex.Caret:
		return c.pointer(inTypeDecl)
	}

	c.error("type expected")

	return c.u.Integer
}

func (c *Compiler) typeIdent() *tp.Type {
	if c.tok != lex.Ident {
		c.error("type identifier expected")
		return c.u.Integer
	}

	v := c.lookup()
	if v.Kind != sym.TypeName {
		c.error("%v is not a type", v.Name)
		return c.u.Integer
	}

	return v.Type
}

func (c *Compiler) enum() *tp.Type {
	c.next()

	names := c.identList()
	c.expect(lex.RParen)

	t := tp.NewEnum("", len(names))

	for i, n := range names {
		c.declare(&sym.Value{Name: n, Kind: sym.Constant, Level: c.level, Value: datum.Int(int64(i)), Type: t})
	}

	return t
}

func (c *Compiler) subrange() *tp.Type {
	lo, lt := c.constant()
	c.expect(lex.Range)
	hi, ht := c.constant()

	if !lt.IsOrdinal() || !tp.Same(lt, ht) {
		c.error("subrange bounds must be ordinals of one type")
		return c.u.Integer
	}

	l, _ := lo.Ordinal()
	h, _ := hi.Ordinal()

	t, err := tp.NewSubrange(lt, l, h)
	if err != nil {
		c.error("%v", err)
		return c.u.Integer
	}

	return t
}

func (c *Compiler) array(inTypeDecl bool) *tp.Type {
	c.next()
	c.expect(lex.LBrack)

	var idx []*tp.Type

	for {
		idx = append(idx, c.typeSpec(false))

		if c.tok != lex.Comma {
			break
		}

		c.next()
	}

	c.expect(lex.RBrack)
	c.expect(lex.Of)

	t := c.typeSpec(inTypeDecl)

	for i := len(idx) - 1; i >= 0; i-- {
		a, err := tp.NewArray(idx[i], t)
		if err != nil {
			c.error("%v", err)
			return c.u.Integer
		}

		t = a
	}

	return t
}

func (c *Compiler) record(inTypeDecl bool) *tp.Type {
	c.next()

	var fields []tp.Field

	for c.tok == lex.Ident {
		names := c.identList()
		c.expect(lex.Colon)

		t := c.typeSpec(inTypeDecl)

		for _, n := range names {
			for _, f := range fields {
				if f.Name == n {
					c.error("duplicate field %v", n)
				}
			}

			fields = append(fields, tp.Field{Name: n, Type: t})
		}

		if c.tok != lex.Semicolon {
			break
		}

		c.next()
	}

	c.expect(lex.End)

	if len(fields) == 0 {
		c.error("empty record")
		return c.u.Integer
	}

	return tp.NewRecord(fields)
}

func (c *Compiler) pointer(inTypeDecl bool) *tp.Type {
	c.next()

	if c.tok != lex.Ident {
		c.error("type identifier expected")
		return tp.NewPointer(c.u.Integer)
	}

	v, err := c.syms.Lookup(c.lx.Text)
	if err == nil {
		c.next()

		if v.Kind != sym.TypeName {
			c.error("%v is not a type", v.Name)
			return tp.NewPointer(c.u.Integer)
		}

		return tp.NewPointer(v.Type)
	}

	if !inTypeDecl {
		c.lookup()
		return tp.NewPointer(c.u.Integer)
	}

	t := tp.NewPointer(nil)
	c.fwd = append(c.fwd, fwdPointer{name: c.lx.Text, t: t, line: c.lx.Line})
	c.next()

	return t
}

// varDecls allocates variables at offsets starting from off.
func (c *Compiler) varDecls(off int) int {
	c.next()

	for c.tok == lex.Ident {
		names := c.identList()
		c.expect(lex.Colon)

		t := c.typeSpec(false)

		for _, n := range names {
			c.declare(&sym.Value{Name: n, Kind: sym.Variable, Level: c.level, Value: datum.Int(int64(off)), Type: t})
			off += t.Size
		}

		c.expect(lex.Semicolon)
	}

	return off
}

// subDecl compiles a procedure or a function.
// Parameters sit right below the callee frame, the last one at -1.
func (c *Compiler) subDecl() {
	kind := sym.Procedure
	if c.tok == lex.Function {
		kind = sym.Function
	}

	c.next()

	v := &sym.Value{Name: c.ident(), Kind: kind, Level: c.level, Value: datum.Int(-1)}
	c.declare(v)

	var params []*sym.Value

	if c.tok == lex.LParen {
		c.next()

		for {
			names := c.identList()
			c.expect(lex.Colon)

			t := c.typeIdent()

			for _, n := range names {
				p := &sym.Value{Name: n, Kind: sym.Variable, Level: c.level + 1, Type: t}
				c.declare(p)

				params = append(params, p)
			}

			if c.tok != lex.Semicolon {
				break
			}

			c.next()
		}

		c.expect(lex.RParen)
	}

	for _, p := range params {
		v.ParamSize += p.Type.Size
	}

	off := -v.ParamSize

	for _, p := range params {
		p.Value = datum.Int(int64(off))
		off += p.Type.Size

		v.Params = append(v.Params, p.Type)
	}

	if kind == sym.Function {
		c.expect(lex.Colon)

		v.Type = c.typeIdent()
		if v.Type.IsAggregate() {
			c.error("function result must be a scalar")
		}
	}

	c.expect(lex.Semicolon)

	c.block(v, c.level+1)

	c.expect(lex.Semicolon)
}

func first(s string) byte {
	if s == "" {
		return 0
	}

	return s[0]
}
