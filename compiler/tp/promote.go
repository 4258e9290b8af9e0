package tp

import (
	"tlog.app/go/errors"

	"github.com/slowlang/pas/compiler/datum"
	"github.com/slowlang/pas/compiler/ir"
)

type (
	Emitter interface {
		Emit(op ir.Op, level int8, arg datum.Datum) int
	}
)

var ErrMismatch = errors.New("type mismatch")

// Promote makes the two topmost operands compatible for a binary operation.
// lhs is TOS-1, rhs is TOS. The result is the common root type.
func (u *Universe) Promote(e Emitter, lhs, rhs *Type) (*Type, error) {
	l, r := lhs.Root(), rhs.Root()

	switch {
	case l.Kind == Integer && r.Kind == Real:
		e.Emit(ir.Itor2, 0, datum.Int(0))
		return u.Real, nil
	case l.Kind == Real && r.Kind == Integer:
		e.Emit(ir.Itor, 0, datum.Int(0))
		return u.Real, nil
	case l.Kind != r.Kind:
		return nil, ErrMismatch
	case l.Kind == Enumeration && l != r:
		return nil, ErrMismatch
	case l.IsAggregate():
		return nil, ErrMismatch
	}

	return l, nil
}

// AssignPromote converts TOS of type src to be stored into dst.
// Real to Integer is allowed but rounds and reports narrowed.
// Narrow ordinal destinations get a bound check.
func (u *Universe) AssignPromote(e Emitter, dst, src *Type) (narrowed bool, err error) {
	d, s := dst.Root(), src.Root()

	switch {
	case d.Kind == Real && s.Kind == Integer:
		e.Emit(ir.Itor, 0, datum.Int(0))
	case d.Kind == Integer && s.Kind == Real:
		e.Emit(ir.Round, 0, datum.Int(0))
		narrowed = true
	case !Same(d, s):
		return false, ErrMismatch
	}

	if dst.IsNarrow() {
		e.Emit(ir.Llimit, 0, datum.Int(dst.Range.Min))
		e.Emit(ir.Ulimit, 0, datum.Int(dst.Range.Max))
	}

	return narrowed, nil
}
