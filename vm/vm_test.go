package vm

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pas/compiler/datum"
	"github.com/slowlang/pas/compiler/front"
	"github.com/slowlang/pas/compiler/ir"
)

func run(t *testing.T, src string, cfg Config) (string, *Machine, error) {
	t.Helper()

	p, err := front.New(front.Options{}).Compile(context.Background(), "t.pas", []byte(src))
	require.NoError(t, err)

	var out bytes.Buffer
	cfg.Out = &out

	m := New(p.Code, cfg)
	err = m.Run(context.Background())

	return out.String(), m, err
}

func in(op ir.Op, level int8, arg datum.Datum) ir.Instr {
	return ir.Instr{Op: op, Level: level, Arg: arg}
}

func TestCallRet(t *testing.T) {
	m := New([]ir.Instr{
		in(ir.Push, 0, datum.Int(7)),
		in(ir.Call, 0, datum.Int(3)),
		in(ir.Halt, 0, datum.Int(0)),
		in(ir.Ret, 0, datum.Int(0)),
	}, Config{})

	require.Equal(t, Success, m.Step())

	pc, fp, sp := m.PC(), m.FP(), m.SP()

	require.Equal(t, Success, m.Step())
	assert.Equal(t, 3, m.PC())
	assert.Equal(t, sp+1, m.FP())
	assert.Equal(t, sp+ir.FrameSize, m.SP())

	require.Equal(t, Success, m.Step())
	assert.Equal(t, pc+1, m.PC())
	assert.Equal(t, fp, m.FP())
	assert.Equal(t, sp, m.SP())

	assert.Equal(t, Halted, m.Step())
}

func TestDivideByZero(t *testing.T) {
	for _, op := range []ir.Op{ir.Div, ir.Rem} {
		m := New([]ir.Instr{
			in(ir.Push, 0, datum.Int(1)),
			in(ir.Push, 0, datum.Int(5)),
			in(ir.Push, 0, datum.Int(0)),
			in(op, 0, datum.Int(0)),
			in(ir.Halt, 0, datum.Int(0)),
		}, Config{})

		err := m.Run(context.Background())
		require.Error(t, err)

		assert.True(t, errors.Is(err, DivideByZero), "%v", err)
		assert.Equal(t, 2, m.SP())
		assert.Equal(t, "runtime error @pc 3, sp: 2: divideByZero", err.Error())
	}
}

func TestArithmetic(t *testing.T) {
	for _, tc := range []struct {
		op   ir.Op
		a, b datum.Datum
		res  datum.Datum
	}{
		{ir.Add, datum.Int(3), datum.Int(4), datum.Int(7)},
		{ir.Sub, datum.Int(3), datum.Int(4), datum.Int(-1)},
		{ir.Mul, datum.Int(-3), datum.Int(4), datum.Int(-12)},
		{ir.Div, datum.Int(-7), datum.Int(2), datum.Int(-3)},
		{ir.Rem, datum.Int(-7), datum.Int(2), datum.Int(-1)},
		{ir.Add, datum.Int(3), datum.Float(2), datum.Float(5)},
		{ir.Div, datum.Float(1), datum.Float(4), datum.Float(0.25)},
		{ir.Lt, datum.Int(1), datum.Float(1.5), datum.Bool(true)},
		{ir.Equ, datum.Char('a'), datum.Char('a'), datum.Bool(true)},
		{ir.Neq, datum.Addr(0), datum.Addr(5), datum.Bool(true)},
		{ir.And, datum.Bool(true), datum.Bool(false), datum.Bool(false)},
		{ir.Bxor, datum.Int(6), datum.Int(3), datum.Int(5)},
		{ir.Shl, datum.Int(1), datum.Int(4), datum.Int(16)},
	} {
		m := New([]ir.Instr{
			in(ir.Push, 0, tc.a),
			in(ir.Push, 0, tc.b),
			in(tc.op, 0, datum.Int(0)),
			in(ir.Halt, 0, datum.Int(0)),
		}, Config{})

		require.NoError(t, m.Run(context.Background()), "%v %v %v", tc.a, tc.op, tc.b)
		assert.Equal(t, 1, m.SP())
		assert.Equal(t, tc.res, m.mem[1], "%v %v %v", tc.a, tc.op, tc.b)
	}
}

func TestBadDataType(t *testing.T) {
	m := New([]ir.Instr{
		in(ir.Push, 0, datum.Bool(true)),
		in(ir.Push, 0, datum.Int(1)),
		in(ir.Add, 0, datum.Int(0)),
	}, Config{})

	err := m.Run(context.Background())
	assert.True(t, errors.Is(err, BadDataType), "%v", err)
	assert.Equal(t, 1, m.SP())
}

func TestMachineFaults(t *testing.T) {
	for _, tc := range []struct {
		code []ir.Instr
		res  Result
	}{
		{[]ir.Instr{in(ir.Jump, 0, datum.Int(10))}, BadFetch},
		{[]ir.Instr{in(ir.Add, 0, datum.Int(0))}, StackUnderflow},
		{[]ir.Instr{{Op: ir.Op(200)}}, UnknownInstr},
		{[]ir.Instr{in(ir.Push, 0, datum.Addr(0)), in(ir.Eval, 0, datum.Int(1))}, OutOfRange},
		{[]ir.Instr{in(ir.Push, 0, datum.Int(11)), in(ir.Ulimit, 0, datum.Int(10))}, OutOfRange},
		{[]ir.Instr{in(ir.Push, 0, datum.Char('a')), in(ir.Llimit, 0, datum.Int('b'))}, OutOfRange},
		{[]ir.Instr{in(ir.Push, 0, datum.Addr(1)), in(ir.Dispose, 0, datum.Int(0))}, FreeStoreError},
		{[]ir.Instr{in(ir.Push, 0, datum.Int(1000)), in(ir.New, 0, datum.Int(0))}, FreeStoreError},
		{[]ir.Instr{in(ir.Call, 0, datum.Int(0))}, StackOverflow},
	} {
		m := New(tc.code, Config{StackSize: 64, HeapSize: 16})

		err := m.Run(context.Background())

		var f Fault
		require.True(t, errors.As(err, &f), "%v", err)
		assert.Equal(t, tc.res, f.Result, "%v", tc.code)
	}
}

func TestIndirectJumpAndCall(t *testing.T) {
	m := New([]ir.Instr{
		in(ir.Push, 0, datum.Int(3)),
		in(ir.Jumpi, 0, datum.Int(0)),
		in(ir.Halt, 0, datum.Int(0)),
		in(ir.Push, 0, datum.Int(6)), // 3
		in(ir.Calli, 0, datum.Int(0)),
		in(ir.Halt, 0, datum.Int(0)),
		in(ir.Enter, 0, datum.Int(2)), // 6
		in(ir.Ret, 0, datum.Int(0)),
	}, Config{})

	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, 6, m.PC())
	assert.Equal(t, 0, m.SP())
	assert.Equal(t, int64(7), m.Steps())
}

func TestProgramResult(t *testing.T) {
	_, m, err := run(t, "program t; var x: integer; begin x := 2 + 3 * 4; end.", Config{})
	require.NoError(t, err)

	// main frame starts at 1, x is its first local
	assert.Equal(t, datum.Int(14), m.mem[1+ir.FrameSize])
}

func TestIndexOutOfRange(t *testing.T) {
	_, _, err := run(t, `program t;
var a: array[1..10] of integer; i: integer;
begin
  i := 11;
  a[i] := 1
end.`, Config{})

	assert.True(t, errors.Is(err, OutOfRange), "%v", err)
}

func TestOutput(t *testing.T) {
	out, _, err := run(t, `program w;
var i: integer;
function fact(n: integer): integer;
begin
  if n <= 1 then fact := 1 else fact := n * fact(n - 1)
end;
begin
  for i := 1 to 5 do write(fact(i):4);
  writeln;
  writeln('x = ', 2.5:6:2, ' ', true, ' ', 'c', chr(ord('a') + 1));
  writeln(7 / 2, ' ', 7 div 2, ' ', -7 mod 2)
end.`, Config{})
	require.NoError(t, err)

	assert.Equal(t, "   1   2   6  24 120\nx =   2.50 true cb\n3.5 3 -1\n", out)
}

func TestNestedProcedures(t *testing.T) {
	out, _, err := run(t, `program n;
var total: integer;
procedure outer(k: integer);
var x: integer;
  procedure inner(d: integer);
  begin
    x := x + d;
    total := total + x
  end;
begin
  x := k;
  inner(1);
  inner(2)
end;
begin
  total := 0;
  outer(10);
  writeln(total)
end.`, Config{})
	require.NoError(t, err)

	// x: 11, then 13
	assert.Equal(t, "24\n", out)
}

func TestHeapList(t *testing.T) {
	out, m, err := run(t, `program h;
type
  list = ^node;
  node = record v: integer; next: list end;
var head, p: list; i, s: integer;
begin
  head := nil;
  for i := 1 to 3 do
  begin
    new(p); p^.v := i; p^.next := head; head := p
  end;
  s := 0;
  while head <> nil do
  begin
    s := s + head^.v; p := head; head := head^.next; dispose(p)
  end;
  writeln(s)
end.`, Config{})
	require.NoError(t, err)

	assert.Equal(t, "6\n", out)
	assert.Empty(t, m.heap.AllocatedBlocks())
	assert.Equal(t, map[int]int{m.StackSize: m.HeapSize}, m.heap.FreeBlocks())
}

func TestRecordsAndArrays(t *testing.T) {
	out, _, err := run(t, `program r;
type
  pt = record x, y: integer end;
  row = array[1..3] of pt;
var a, b: row; i: integer; c: (red, green, blue); g: array[red..blue, boolean] of char;
begin
  for i := 1 to 3 do
  begin
    a[i].x := i;
    a[i].y := i * i
  end;
  b := a;
  a[2].y := 0;
  g[green, true] := 'z';
  c := succ(red);
  writeln(b[2].y, ' ', a[2].y, ' ', b[3].x + b[3].y, ' ', g[c, true], ' ', ord(c))
end.`, Config{})
	require.NoError(t, err)

	assert.Equal(t, "4 0 12 z 1\n", out)
}

func TestAggregateArgument(t *testing.T) {
	out, _, err := run(t, `program r;
type vec = array[0..2] of integer;
var v: vec;
function sum(a: vec): integer;
var i, s: integer;
begin
  s := 0;
  for i := 0 to 2 do s := s + a[i];
  a[0] := 100;
  sum := s
end;
begin
  v[0] := 1; v[1] := 2; v[2] := 3;
  writeln(sum(v), ' ', v[0])
end.`, Config{})
	require.NoError(t, err)

	assert.Equal(t, "6 1\n", out)
}

func TestIntegerOverflowWraps(t *testing.T) {
	out, _, err := run(t, `program o;
var x: integer;
begin
  x := maxint;
  x := x + 1;
  writeln(x);
  writeln(maxint * maxint);
  writeln(-x, ' ', x - 1, ' ', sqr(x))
end.`, Config{})
	require.NoError(t, err)

	assert.Equal(t, "-2147483648\n1\n-2147483648 2147483647 0\n", out)
}

func TestForLoopBounds(t *testing.T) {
	out, _, err := run(t, `program f;
var b: boolean; c: char; n, k, i: integer;
begin
  for b := false to true do write(b, ' ');
  writeln;
  n := 0;
  for c := chr(250) to chr(255) do n := n + 1;
  writeln(n, ' ', ord(c));
  n := 0;
  for b := true downto false do n := n + 1;
  writeln(n);
  for n := 3 to 1 do write('x');
  k := 3;
  for i := 1 to k do
  begin
    k := 10;
    write(i)
  end;
  writeln
end.`, Config{})
	require.NoError(t, err)

	assert.Equal(t, "false true \n6 255\n2\n123\n", out)
}

func TestForLoopLeavesStackBalanced(t *testing.T) {
	p, err := front.New(front.Options{}).Compile(context.Background(), "t.pas", []byte(`program f;
var i, s: integer;
begin
  s := 0;
  for i := 1 to 4 do s := s + i;
  for i := 4 downto 5 do s := s + 100
end.`))
	require.NoError(t, err)

	m := New(p.Code, Config{})

	// stop at the main program's ret
	for m.PC() != len(p.Code)-1 {
		require.Equal(t, Success, m.Step(), "pc %d", m.PC())
	}

	assert.Equal(t, ir.FrameSize+2, m.SP())
	assert.Equal(t, datum.Int(10), m.mem[1+ir.FrameSize+1])
}

func TestTraceUsesRunSpan(t *testing.T) {
	var buf bytes.Buffer

	l := tlog.New(&buf)
	ctx := tlog.ContextWithSpan(context.Background(), l.Root())

	m := New([]ir.Instr{
		in(ir.Push, 0, datum.Int(1)),
		in(ir.Halt, 0, datum.Int(0)),
	}, Config{Trace: true})

	require.NoError(t, m.Run(ctx))

	assert.Contains(t, buf.String(), "tos")
}

func TestRuntimeErrors(t *testing.T) {
	for _, tc := range []struct {
		src string
		res Result
	}{
		{"program t; var i: integer; begin i := 0; i := 1 div i end.", DivideByZero},
		{"program t; type l = ^integer; var p: l; begin p := nil; p^ := 1 end.", OutOfRange},
		{"program t; type l = ^integer; var p, q: l; begin new(p); q := p; dispose(p); dispose(q) end.", FreeStoreError},
		{"program t; var s: 1..5; i: integer; begin i := 6; s := i end.", OutOfRange},
		{"program t; procedure r; begin r end; begin r end.", StackOverflow},
		{"program t; var c: char; begin c := chr(300) end.", OutOfRange},
	} {
		_, _, err := run(t, tc.src, Config{StackSize: 256, HeapSize: 16})
		assert.True(t, errors.Is(err, tc.res), "%s: %v", tc.src, err)
	}
}

func TestResultNames(t *testing.T) {
	assert.Equal(t, "outOfRange", OutOfRange.Error())
	assert.Equal(t, "result(99)", Result(99).String())

	f := Fault{PC: 7, SP: 3, Result: BadFetch}
	assert.Equal(t, "runtime error @pc 7, sp: 3: badFetch", f.Error())
	assert.True(t, errors.Is(f, BadFetch))
}
