package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/eipiminus1/beignet/compiler/analyze"
	"github.com/eipiminus1/beignet/compiler/expand"
	"github.com/eipiminus1/beignet/compiler/format"
	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/layout"
	"github.com/eipiminus1/beignet/compiler/llimport"
)

type (
	Options struct {
		Layout *layout.Layout

		// Func limits processing to one function if set.
		Func string

		// Verify runs the output checks after the expansion.
		Verify bool
	}
)

func ReadFile(ctx context.Context, name string) (p *ir.Package, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return llimport.ParseString(ctx, name, string(text))
}

func ExpandFile(ctx context.Context, name string, opts Options) (text []byte, err error) {
	p, err := ReadFile(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "import")
	}

	_, err = Expand(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	return format.Format(ctx, nil, p)
}

// Expand legalizes the package in place.
// FatalError panics are returned as errors.
func Expand(ctx context.Context, p *ir.Package, opts Options) (modified bool, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: expand", "path", p.Path, "func", opts.Func)
	defer tr.Finish("err", &err, "modified", &modified)

	err = Select(p, opts.Func)
	if err != nil {
		return false, err
	}

	err = analyze.Package(ctx, p, analyze.Input)
	if err != nil {
		return false, errors.Wrap(err, "check input")
	}

	modified, err = run(ctx, p, opts.Layout)
	if err != nil {
		return modified, errors.Wrap(err, "expand")
	}

	if !opts.Verify {
		return modified, nil
	}

	err = analyze.Package(ctx, p, analyze.Output)
	if err != nil {
		return modified, errors.Wrap(err, "check output")
	}

	return modified, nil
}

// Select keeps only the named function in p. Empty name keeps all.
func Select(p *ir.Package, name string) error {
	if name == "" {
		return nil
	}

	for _, f := range p.Funcs {
		if f.Name == name {
			p.Funcs = []*ir.Func{f}
			return nil
		}
	}

	return errors.New("no function %v in %v", name, p.Path)
}

func run(ctx context.Context, p *ir.Package, l *layout.Layout) (modified bool, err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}

		e, ok := p.(*expand.FatalError)
		if !ok {
			panic(p)
		}

		err = e
	}()

	modified = expand.Package(ctx, p, l)

	return modified, nil
}
