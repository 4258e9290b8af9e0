package tp

import (
	"math"

	"tlog.app/go/errors"
)

type (
	Kind uint8

	SubRange struct {
		Min, Max int64
	}

	// Type describes a built-in or user type.
	// Types are shared between symbols and never change once declared,
	// except for a forward pointer base resolved at the end of its type section.
	Type struct {
		Kind Kind
		Name string

		Size  int
		Range SubRange

		Base  *Type // array element, pointee or subrange host
		RType *Type // array index type

		Fields []Field
	}

	Field struct {
		Name   string
		Type   *Type
		Offset int
	}

	// Universe holds the built-in types of one compiler instance.
	Universe struct {
		Integer *Type
		Real    *Type
		Boolean *Type
		Char    *Type
		Nil     *Type
	}
)

const (
	Integer Kind = iota
	Real
	Boolean
	Character
	Array
	Record
	Enumeration
	Pointer
)

const (
	MinInt = math.MinInt32
	MaxInt = math.MaxInt32
)

func NewUniverse() *Universe {
	return &Universe{
		Integer: &Type{Kind: Integer, Name: "integer", Size: 1, Range: SubRange{MinInt, MaxInt}},
		Real:    &Type{Kind: Real, Name: "real", Size: 1},
		Boolean: &Type{Kind: Boolean, Name: "boolean", Size: 1, Range: SubRange{0, 1}},
		Char:    &Type{Kind: Character, Name: "char", Size: 1, Range: SubRange{0, 255}},
		Nil:     &Type{Kind: Pointer, Name: "nil", Size: 1},
	}
}

func (r SubRange) Span() int64 { return r.Max - r.Min + 1 }

func (r SubRange) Contains(v int64) bool { return v >= r.Min && v <= r.Max }

func NewEnum(name string, n int) *Type {
	return &Type{Kind: Enumeration, Name: name, Size: 1, Range: SubRange{0, int64(n) - 1}}
}

func NewPointer(base *Type) *Type {
	return &Type{Kind: Pointer, Size: 1, Base: base}
}

// NewSubrange narrows an ordinal host type to [lo, hi].
func NewSubrange(host *Type, lo, hi int64) (*Type, error) {
	host = host.Root()

	if !host.IsOrdinal() {
		return nil, errors.New("subrange of non-ordinal type")
	}

	if lo > hi {
		return nil, errors.New("subrange bounds out of order")
	}

	if !host.Range.Contains(lo) || !host.Range.Contains(hi) {
		return nil, errors.New("subrange exceeds host type")
	}

	return &Type{Kind: host.Kind, Size: 1, Range: SubRange{lo, hi}, Base: host}, nil
}

// NewArray makes one dimension. Multi-dimensional arrays chain through elem.
func NewArray(index, elem *Type) (*Type, error) {
	if !index.IsOrdinal() {
		return nil, errors.New("array index must be ordinal")
	}

	span := index.Range.Span()
	if span > math.MaxInt32/int64(max(elem.Size, 1)) {
		return nil, errors.New("array too large")
	}

	return &Type{
		Kind:  Array,
		Size:  int(span) * elem.Size,
		Range: index.Range,
		Base:  elem,
		RType: index,
	}, nil
}

func NewRecord(fields []Field) *Type {
	t := &Type{Kind: Record}

	for i := range fields {
		fields[i].Offset = t.Size
		t.Size += fields[i].Type.Size
	}

	t.Fields = fields
	t.Range = SubRange{0, int64(t.Size) - 1}

	return t
}

// Root strips subranges.
func (t *Type) Root() *Type {
	for t.IsSubrange() {
		t = t.Base
	}

	return t
}

func (t *Type) IsSubrange() bool {
	switch t.Kind {
	case Integer, Boolean, Character, Enumeration:
		return t.Base != nil
	}

	return false
}

func (t *Type) IsOrdinal() bool {
	switch t.Kind {
	case Integer, Boolean, Character, Enumeration:
		return true
	}

	return false
}

func (t *Type) IsAggregate() bool {
	return t.Kind == Array || t.Kind == Record
}

// IsNarrow reports whether values need a run-time bound check
// to be stored in t.
func (t *Type) IsNarrow() bool {
	return t.IsOrdinal() && t.IsSubrange() && t.Range != t.Root().Range
}

func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

// Same reports whether a value of type b may be stored in a as is.
// Scalars match by kind, enumerations, arrays and records by identity.
func Same(a, b *Type) bool {
	a, b = a.Root(), b.Root()

	if a == b {
		return true
	}

	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case Integer, Real, Boolean, Character:
		return true
	case Pointer:
		return a.Base == nil || b.Base == nil || a.Base == b.Base
	}

	return false
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}

	if t.Name != "" {
		return t.Name
	}

	switch t.Kind {
	case Array:
		return "array of " + t.Base.String()
	case Record:
		return "record"
	case Pointer:
		if t.Base == nil {
			return "^?"
		}

		return "^" + t.Base.String()
	}

	if t.IsSubrange() {
		return t.Base.String() + " subrange"
	}

	return t.Kind.String()
}

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Boolean:
		return "boolean"
	case Character:
		return "char"
	case Array:
		return "array"
	case Record:
		return "record"
	case Enumeration:
		return "enumeration"
	case Pointer:
		return "pointer"
	default:
		return "kind?"
	}
}
