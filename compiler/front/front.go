package front

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/pas/compiler/datum"
	"github.com/slowlang/pas/compiler/ir"
	"github.com/slowlang/pas/compiler/lex"
	"github.com/slowlang/pas/compiler/set"
	"github.com/slowlang/pas/compiler/sym"
	"github.com/slowlang/pas/compiler/tp"
)

type (
	Options struct {
		Verbose bool
	}

	// Compiler parses, checks and generates code in one pass.
	Compiler struct {
		Options

		lx   *lex.Lexer
		tok  lex.Token
		line int // line of the last consumed token

		u     *tp.Universe
		syms  *sym.Table
		dummy *sym.Value
		p     *ir.Program

		level int
		subs  []*sym.Value // enclosing subprograms, innermost last

		fwd []fwdPointer

		pending set.Addrs
		calls   map[*sym.Value][]int

		errs   Errors
		warns  Errors
		errPos int
	}

	fwdPointer struct {
		name string
		t    *tp.Type
		line int
	}

	Diag struct {
		Line int
		Msg  string
	}

	Errors []Diag
)

func New(opts Options) *Compiler {
	return &Compiler{Options: opts}
}

// Compile translates a whole program.
// It returns Errors if any diagnostic was reported.
func (c *Compiler) Compile(ctx context.Context, name string, src []byte) (p *ir.Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "size", len(src))
	defer tr.Finish("err", &err)

	c.lx = lex.NewLexer(src)
	c.line = 1
	c.u = tp.NewUniverse()
	c.syms = sym.New()
	c.p = &ir.Program{Name: name, Source: src}
	c.level = 0
	c.subs = nil
	c.fwd = nil
	c.pending = set.Addrs{}
	c.calls = map[*sym.Value][]int{}
	c.errs = nil
	c.warns = nil
	c.errPos = -1

	c.dummy = &sym.Value{Name: "?", Kind: sym.Variable, Value: datum.Int(0), Type: c.u.Integer}

	c.predeclare()

	c.next()
	c.program()

	for _, w := range c.warns {
		tr.Printw("warning", "line", w.Line, "msg", w.Msg)
	}

	if len(c.errs) != 0 {
		return nil, c.errs
	}

	if c.pending.Len() != 0 {
		panic(fmt.Sprintf("unpatched jumps at %v", c.pending.Min()))
	}

	tr.Printw("compiled", "program", c.p.Name, "instructions", len(c.p.Code))

	return c.p, nil
}

// Warnings of the last Compile.
func (c *Compiler) Warnings() Errors { return c.warns }

func (c *Compiler) predeclare() {
	for _, t := range []*tp.Type{c.u.Integer, c.u.Real, c.u.Boolean, c.u.Char} {
		c.declare(&sym.Value{Name: t.Name, Kind: sym.TypeName, Type: t})
	}

	c.declare(&sym.Value{Name: "false", Kind: sym.Constant, Value: datum.Bool(false), Type: c.u.Boolean})
	c.declare(&sym.Value{Name: "true", Kind: sym.Constant, Value: datum.Bool(true), Type: c.u.Boolean})
	c.declare(&sym.Value{Name: "maxint", Kind: sym.Constant, Value: datum.Int(tp.MaxInt), Type: c.u.Integer})
}

func (c *Compiler) next() {
	c.line = c.lx.Line
	c.tok = c.lx.Next()

	switch c.tok {
	case lex.Unknown:
		c.error("unexpected %q", c.lx.Text)
	case lex.BadComment:
		c.error("unterminated comment")
	default:
		return
	}

	c.next()
}

func (c *Compiler) expect(t lex.Token) {
	if c.tok == t {
		c.next()
		return
	}

	c.error("'%v' expected", t)
}

func (c *Compiler) ident() string {
	if c.tok != lex.Ident {
		c.error("identifier expected")
		return "?"
	}

	name := c.lx.Text
	c.next()

	return name
}

func (c *Compiler) identList() (l []string) {
	for {
		l = append(l, c.ident())

		if c.tok != lex.Comma {
			return l
		}

		c.next()
	}
}

// lookup resolves the current identifier.
// Undefined names are reported and resolve to a dummy variable.
func (c *Compiler) lookup() *sym.Value {
	v, err := c.syms.Lookup(c.lx.Text)
	if err != nil {
		c.error("%v", err)
		v = c.dummy
	}

	c.next()

	return v
}

func (c *Compiler) declare(v *sym.Value) {
	err := c.syms.Insert(v)
	if err != nil {
		c.error("%v", err)
	}
}

func (c *Compiler) error(f string, args ...any) {
	if c.lx.Pos == c.errPos {
		return
	}

	c.errPos = c.lx.Pos

	d := Diag{Line: c.lx.Line, Msg: fmt.Sprintf(f, args...)}
	c.errs = append(c.errs, d)

	if tlog.If("diag") {
		tlog.Printw("diagnostic", "line", d.Line, "msg", d.Msg, "from", loc.Caller(1))
	}
}

func (c *Compiler) warn(f string, args ...any) {
	c.warns = append(c.warns, Diag{Line: c.lx.Line, Msg: fmt.Sprintf(f, args...)})
}

// Emit appends an instruction attributed to the last consumed token's line.
func (c *Compiler) Emit(op ir.Op, level int8, arg datum.Datum) int {
	return c.p.Emit(c.line, op, level, arg)
}

func (c *Compiler) emit(op ir.Op) int {
	return c.Emit(op, 0, datum.Int(0))
}

func (c *Compiler) emitInt(op ir.Op, v int64) int {
	return c.Emit(op, 0, datum.Int(v))
}

// jump emits a jump with its target left to be patched.
func (c *Compiler) jump(op ir.Op) int {
	a := c.emitInt(op, -1)
	c.pending.Add(a)

	return a
}

// patch sets the target of a pending jump. Each one is patched once.
func (c *Compiler) patch(a, target int) {
	if !c.pending.Remove(a) {
		panic(fmt.Sprintf("patch of settled instruction %d", a))
	}

	c.p.Code[a].Arg = datum.Int(int64(target))
}

func (c *Compiler) call(v *sym.Value) {
	entry, _ := v.Value.AsInt()

	a := c.Emit(ir.Call, int8(c.level-v.Level), datum.Int(entry))
	if entry >= 0 {
		return
	}

	c.pending.Add(a)
	c.calls[v] = append(c.calls[v], a)
}

// define fixes the entry address of a subprogram and every call made before.
func (c *Compiler) define(v *sym.Value, entry int) {
	v.Value = datum.Int(int64(entry))

	for _, a := range c.calls[v] {
		c.patch(a, entry)
	}

	delete(c.calls, v)
}

func (d Diag) Error() string {
	return fmt.Sprintf("%s near line %d", d.Msg, d.Line)
}

func (e Errors) Error() string {
	var b strings.Builder

	for i, d := range e {
		if i != 0 {
			b.WriteByte('\n')
		}

		b.WriteString(d.Error())
	}

	return b.String()
}

// AsErrors extracts compile diagnostics from err.
func AsErrors(err error) (Errors, bool) {
	var e Errors

	if !errors.As(err, &e) {
		return nil, false
	}

	return e, true
}
