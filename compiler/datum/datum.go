package datum

import (
	"math"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	Kind uint8

	// Datum is a tagged scalar. The zero value is Integer 0.
	Datum struct {
		k Kind
		i int64
		f float64
	}
)

const (
	Integer Kind = iota
	Boolean
	Character
	Real
	Address
)

var (
	ErrKind    = errors.New("bad data type")
	ErrDivZero = errors.New("divide by zero")
)

func Int(v int64) Datum     { return Datum{k: Integer, i: v} }
func Float(v float64) Datum { return Datum{k: Real, f: v} }
func Char(c byte) Datum     { return Datum{k: Character, i: int64(c)} }
func Addr(a int) Datum      { return Datum{k: Address, i: int64(a)} }

// Int32 is an Integer result of arithmetic, wrapped to 32 bits.
func Int32(v int64) Datum { return Int(int64(int32(v))) }

func Bool(v bool) Datum {
	if v {
		return Datum{k: Boolean, i: 1}
	}

	return Datum{k: Boolean}
}

func (d Datum) Kind() Kind { return d.k }

func (d Datum) IsNumeric() bool { return d.k == Integer || d.k == Real }

func (d Datum) AsInt() (int64, error) {
	if d.k != Integer {
		return 0, ErrKind
	}

	return d.i, nil
}

func (d Datum) AsBool() (bool, error) {
	if d.k != Boolean {
		return false, ErrKind
	}

	return d.i != 0, nil
}

func (d Datum) AsChar() (byte, error) {
	if d.k != Character {
		return 0, ErrKind
	}

	return byte(d.i), nil
}

func (d Datum) AsReal() (float64, error) {
	if d.k != Real {
		return 0, ErrKind
	}

	return d.f, nil
}

func (d Datum) AsAddr() (int, error) {
	if d.k != Address {
		return 0, ErrKind
	}

	return int(d.i), nil
}

// ToReal widens Integer to Real. Real is returned as is.
func (d Datum) ToReal() (float64, error) {
	switch d.k {
	case Integer:
		return float64(d.i), nil
	case Real:
		return d.f, nil
	}

	return 0, ErrKind
}

// Ordinal is the ordinal number of Integer, Boolean and Character values.
func (d Datum) Ordinal() (int64, error) {
	switch d.k {
	case Integer, Boolean, Character:
		return d.i, nil
	}

	return 0, ErrKind
}

func (d Datum) IsZero() bool {
	switch d.k {
	case Real:
		return d.f == 0
	default:
		return d.i == 0
	}
}

func Add(a, b Datum) (Datum, error) {
	switch {
	case a.k == Integer && b.k == Integer:
		return Int32(a.i + b.i), nil
	case a.k == Address && b.k == Integer:
		return Addr(int(a.i + b.i)), nil
	case a.k == Integer && b.k == Address:
		return Addr(int(a.i + b.i)), nil
	}

	x, y, err := reals(a, b)
	if err != nil {
		return Datum{}, err
	}

	return Float(x + y), nil
}

func Sub(a, b Datum) (Datum, error) {
	switch {
	case a.k == Integer && b.k == Integer:
		return Int32(a.i - b.i), nil
	case a.k == Address && b.k == Integer:
		return Addr(int(a.i - b.i)), nil
	}

	x, y, err := reals(a, b)
	if err != nil {
		return Datum{}, err
	}

	return Float(x - y), nil
}

func Mul(a, b Datum) (Datum, error) {
	if a.k == Integer && b.k == Integer {
		return Int32(a.i * b.i), nil
	}

	x, y, err := reals(a, b)
	if err != nil {
		return Datum{}, err
	}

	return Float(x * y), nil
}

// Div truncates on two Integers and divides exactly otherwise.
func Div(a, b Datum) (Datum, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Datum{}, ErrKind
	}

	if b.IsZero() {
		return Datum{}, ErrDivZero
	}

	if a.k == Integer && b.k == Integer {
		return Int32(a.i / b.i), nil
	}

	x, y, _ := reals(a, b)

	return Float(x / y), nil
}

func Rem(a, b Datum) (Datum, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Datum{}, ErrKind
	}

	if b.IsZero() {
		return Datum{}, ErrDivZero
	}

	if a.k == Integer && b.k == Integer {
		return Int32(a.i % b.i), nil
	}

	x, y, _ := reals(a, b)

	return Float(math.Mod(x, y)), nil
}

// Compare orders two values of compatible kinds.
// Integer and Real compare numerically, other kinds only with themselves.
func Compare(a, b Datum) (int, error) {
	if a.k == b.k && a.k != Real {
		return cmp(a.i, b.i), nil
	}

	x, y, err := reals(a, b)
	if err != nil {
		return 0, err
	}

	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	}

	return 0, nil
}

func Equal(a, b Datum) bool {
	c, err := Compare(a, b)

	return err == nil && c == 0
}

func reals(a, b Datum) (x, y float64, err error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return 0, 0, ErrKind
	}

	x, _ = a.ToReal()
	y, _ = b.ToReal()

	return x, y, nil
}

func cmp(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}

	return 0
}

func (k Kind) String() string {
	switch k {
	case Integer:
		return "Integer"
	case Boolean:
		return "Boolean"
	case Character:
		return "Character"
	case Real:
		return "Real"
	case Address:
		return "Address"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

func (d Datum) String() string {
	return string(d.Append(nil))
}

func (d Datum) Append(b []byte) []byte {
	switch d.k {
	case Boolean:
		return strconv.AppendBool(b, d.i != 0)
	case Character:
		return strconv.AppendQuoteRune(b, rune(d.i))
	case Real:
		return strconv.AppendFloat(b, d.f, 'g', -1, 64)
	case Address:
		b = append(b, '@')
		return strconv.AppendInt(b, d.i, 10)
	default:
		return strconv.AppendInt(b, d.i, 10)
	}
}

func (d Datum) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	switch d.k {
	case Integer:
		return e.AppendInt(b, int(d.i))
	default:
		return e.AppendString(b, d.String())
	}
}
