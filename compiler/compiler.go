package compiler

import (
	"context"
	"io"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pas/compiler/front"
	"github.com/slowlang/pas/compiler/ir"
)

type (
	Options = front.Options
)

// CompileFile compiles the named file. "-" stands for stdin.
func CompileFile(ctx context.Context, name string, opts Options) (p *ir.Program, err error) {
	var text []byte

	if name == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(name)
	}

	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, opts)
}

func Compile(ctx context.Context, name string, text []byte, opts Options) (p *ir.Program, err error) {
	c := front.New(opts)

	p, err = c.Compile(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return p, nil
}
