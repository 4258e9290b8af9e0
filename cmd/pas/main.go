package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pas/compiler"
	"github.com/slowlang/pas/compiler/format"
	"github.com/slowlang/pas/compiler/front"
	"github.com/slowlang/pas/compiler/ir"
	"github.com/slowlang/pas/vm"
)

func main() {
	compileFlags := []*cli.Flag{
		cli.NewFlag("listing", false, "print source lines with the code they produced"),
		cli.NewFlag("verbose", false, "log subprogram layout while compiling"),
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile and run programs",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: append(compileFlags,
			cli.NewFlag("trace", false, "log every executed instruction"),
			cli.NewFlag("stack", vm.DefaultStackSize, "stack size in words"),
			cli.NewFlag("heap", vm.DefaultHeapSize, "heap size in words"),
		),
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile programs and report diagnostics",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags:       compileFlags,
	}

	disasmCmd := &cli.Command{
		Name:        "disasm",
		Description: "print compiled code",
		Action:      disasmAct,
		Args:        cli.Args{},
		Flags:       compileFlags,
	}

	app := &cli.Command{
		Name:        "pas",
		Description: "pas compiles and runs pascal-like programs on a stack machine",
		Commands: []*cli.Command{
			runCmd,
			compileCmd,
			disasmCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		p, err := compileOne(ctx, c, a)
		if err != nil {
			return err
		}

		m := vm.New(p.Code, vm.Config{
			StackSize: c.Int("stack"),
			HeapSize:  c.Int("heap"),
			Trace:     c.Bool("trace"),
			Out:       os.Stdout,
		})

		err = m.Run(ctx)
		if err != nil {
			return errors.Wrap(err, "run %v", a)
		}
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		_, err := compileOne(ctx, c, a)
		if err != nil {
			return err
		}
	}

	return nil
}

func disasmAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		p, err := compileOne(ctx, c, a)
		if err != nil {
			return err
		}

		_, err = os.Stdout.Write(ir.Disasm(p))
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func compileOne(ctx context.Context, c *cli.Command, name string) (*ir.Program, error) {
	p, err := compiler.CompileFile(ctx, name, compiler.Options{
		Verbose: c.Bool("verbose"),
	})

	if errs, ok := front.AsErrors(err); ok {
		for _, d := range errs {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, d)
		}

		return nil, errors.New("%v: %d errors", name, len(errs))
	}

	if err != nil {
		return nil, errors.Wrap(err, "compile %v", name)
	}

	if !c.Bool("listing") {
		return p, nil
	}

	l, err := format.Format(ctx, nil, p)
	if err != nil {
		return nil, errors.Wrap(err, "listing")
	}

	_, err = os.Stdout.Write(l)
	if err != nil {
		return nil, errors.Wrap(err, "write")
	}

	return p, nil
}
