package format

import (
	"bytes"
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pas/compiler/ir"
)

// Format renders compiled code.
// A Program becomes a listing: each source line followed by the code it produced.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ir.Program:
		return formatProgram(ctx, b, x, d)
	case ir.Instr:
		return app(b, d, "%s\n", x), nil
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatProgram(ctx context.Context, b []byte, p *ir.Program, d int) ([]byte, error) {
	if len(p.Lines) != len(p.Code) {
		return nil, errors.New("line table mismatch: %d lines for %d instructions", len(p.Lines), len(p.Code))
	}

	byLine := map[int][]int{}

	for i, l := range p.Lines {
		byLine[l] = append(byLine[l], i)
	}

	lines := bytes.Split(p.Source, []byte("\n"))

	if n := len(lines); n != 0 && len(lines[n-1]) == 0 {
		lines = lines[:n-1]
	}

	for i, text := range lines {
		line := i + 1

		b = app(b, d, "%s:%d: %s\n", p.Name, line, bytes.TrimRight(text, "\r"))

		for _, a := range byLine[line] {
			b = app(b, d+1, "")
			b = ir.AppendDisasm(b, a, p.Code[a])
		}

		delete(byLine, line)
	}

	if len(byLine) != 0 {
		tlog.SpanFromContext(ctx).Printw("code without source line", "lines", len(byLine))

		b = app(b, d, "%s: ?\n", p.Name)

		for a, l := range p.Lines {
			if _, ok := byLine[l]; ok {
				b = app(b, d+1, "")
				b = ir.AppendDisasm(b, a, p.Code[a])
			}
		}
	}

	return b, nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
