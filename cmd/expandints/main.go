package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/eipiminus1/beignet/compiler"
	"github.com/eipiminus1/beignet/compiler/eval"
	"github.com/eipiminus1/beignet/compiler/format"
	"github.com/eipiminus1/beignet/compiler/layout"
)

func main() {
	expandCmd := &cli.Command{
		Name:        "expand",
		Description: "split integers wider than 64 bits and print the result",
		Action:      expandAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("verify", true, "check the result has no illegal integers left"),
		},
	}

	dumpCmd := &cli.Command{
		Name:        "dump",
		Description: "print imported ir as is",
		Action:      dumpAct,
		Args:        cli.Args{},
	}

	evalCmd := &cli.Command{
		Name:        "eval",
		Description: "interpret a function before and after expansion: eval FILE ARGS...",
		Action:      evalAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("mem", 1<<16, "interpreter memory size"),
		},
	}

	app := &cli.Command{
		Name:        "expandints",
		Description: "expandints legalizes wide integers in LLVM IR",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("layout", "", "data layout toml file"),
			cli.NewFlag("func", "", "process only this function"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			expandCmd,
			dumpCmd,
			evalCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func expandAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	l, err := loadLayout(c)
	if err != nil {
		return err
	}

	opts := compiler.Options{
		Layout: l,
		Func:   c.String("func"),
		Verify: c.Bool("verify"),
	}

	for _, a := range c.Args {
		text, err := compiler.ExpandFile(ctx, a, opts)
		if err != nil {
			return errors.Wrap(err, "expand %v", a)
		}

		fmt.Printf("%s", text)
	}

	return nil
}

func dumpAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		p, err := compiler.ReadFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		err = compiler.Select(p, c.String("func"))
		if err != nil {
			return err
		}

		text, err := format.Format(ctx, nil, p)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		fmt.Printf("%s", text)
	}

	return nil
}

func evalAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) == 0 {
		return errors.New("file expected")
	}

	if c.String("func") == "" {
		return errors.New("--func is required")
	}

	l, err := loadLayout(c)
	if err != nil {
		return err
	}

	args := make([]*uint256.Int, len(c.Args)-1)

	for i, a := range c.Args[1:] {
		args[i], err = parseArg(a)
		if err != nil {
			return errors.Wrap(err, "arg %d", i)
		}
	}

	name := c.Args[0]

	for _, expand := range []bool{false, true} {
		p, err := compiler.ReadFile(ctx, name)
		if err != nil {
			return errors.Wrap(err, "read %v", name)
		}

		if expand {
			_, err = compiler.Expand(ctx, p, compiler.Options{Layout: l, Func: c.String("func"), Verify: true})
		} else {
			err = compiler.Select(p, c.String("func"))
		}
		if err != nil {
			return err
		}

		m := eval.New(l, c.Int("mem"))

		res, err := m.Call(ctx, p.Funcs[0], args...)
		if err != nil {
			return errors.Wrap(err, "eval (expanded: %v)", expand)
		}

		stage := "before"
		if expand {
			stage = "after"
		}

		fmt.Printf("%-8s  %v\n", stage, res)
	}

	return nil
}

func loadLayout(c *cli.Command) (*layout.Layout, error) {
	name := c.String("layout")
	if name == "" {
		return layout.Default(), nil
	}

	l, err := layout.Load(name)
	if err != nil {
		return nil, errors.Wrap(err, "load layout %v", name)
	}

	return l, nil
}

func parseArg(s string) (*uint256.Int, error) {
	if strings.HasPrefix(s, "0x") {
		return uint256.FromHex(s)
	}

	return uint256.FromDecimal(s)
}
