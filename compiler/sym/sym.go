package sym

import (
	"tlog.app/go/errors"

	"github.com/slowlang/pas/compiler/datum"
	"github.com/slowlang/pas/compiler/tp"
)

type (
	Kind uint8

	// Value is one declared name.
	// Value holds the stack offset of a Variable, the literal of a Constant
	// and the entry address of a Procedure or Function (-1 until known).
	Value struct {
		Name  string
		Kind  Kind
		Level int
		Value datum.Datum
		Type  *tp.Type

		Params    []*tp.Type
		ParamSize int
	}

	// Table maps names to declarations at any number of levels.
	// The closest enclosing declaration wins.
	Table struct {
		m map[string][]*Value
	}
)

const (
	Variable Kind = iota
	Constant
	Procedure
	Function
	TypeName
)

func New() *Table {
	return &Table{m: map[string][]*Value{}}
}

func (t *Table) Insert(v *Value) error {
	for _, x := range t.m[v.Name] {
		if x.Level == v.Level {
			return errors.New("duplicate identifier: %v", v.Name)
		}
	}

	t.m[v.Name] = append(t.m[v.Name], v)

	return nil
}

func (t *Table) Lookup(name string) (*Value, error) {
	var best *Value

	for _, v := range t.m[name] {
		if best == nil || v.Level > best.Level {
			best = v
		}
	}

	if best == nil {
		return nil, errors.New("undefined identifier: %v", name)
	}

	return best, nil
}

// Purge removes every declaration made at level.
func (t *Table) Purge(level int) (n int) {
	for name, l := range t.m {
		k := 0

		for _, v := range l {
			if v.Level != level {
				l[k] = v
				k++
			}
		}

		n += len(l) - k

		if k == 0 {
			delete(t.m, name)
		} else {
			t.m[name] = l[:k]
		}
	}

	return n
}

func (k Kind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Constant:
		return "constant"
	case Procedure:
		return "procedure"
	case Function:
		return "function"
	case TypeName:
		return "type"
	default:
		return "kind?"
	}
}
