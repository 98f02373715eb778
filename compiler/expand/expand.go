package expand

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/eipiminus1/beignet/compiler/format"
	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/layout"
)

// Package runs the expansion on every function of the package.
func Package(ctx context.Context, p *ir.Package, l *layout.Layout) (modified bool) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "expand: package", "path", p.Path, "funcs", len(p.Funcs))
	defer tr.Finish("modified", &modified)

	for _, f := range p.Funcs {
		if Run(ctx, f, l) {
			modified = true
		}
	}

	return modified
}

// Run rewrites every integer wider than ChunkBits bits in f into
// pairs of narrower integers. f is modified in place.
//
// Unsupported input panics with *FatalError.
func Run(ctx context.Context, f *ir.Func, l *layout.Layout) (modified bool) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "expand: func", "name", f.Name)
	defer tr.Finish("modified", &modified)

	if l == nil {
		l = layout.Default()
	}

	s := newState(f, l, tr)

	for _, id := range f.In {
		if ShouldConvert(f, id) {
			s.fatal(ir.Nil, "Function %s has illegal integer argument", f.Name)
		}
	}

	if tr.If("dump_func_before") {
		dump(tr, f, "func before")
	}

	// TODO: loop to handle nested forward phis.

	for _, b := range f.ReversePostorder() {
		// the block grows as we go, new instructions are visited too
		for i := 0; i < len(f.Blocks[b].Code); i++ {
			id := f.Blocks[b].Code[i]

			if !s.needsConversion(id) {
				continue
			}

			s.convert(id)
			modified = true
		}
	}

	s.patchForwardPHIs()
	s.eraseReplacedInstructions()

	tr.Printw("expanded", "converted", len(s.illegals), "replaced", len(s.legals), "forward_phis", len(s.forward), "erased", len(s.toErase))

	if tr.If("dump_func_after") {
		dump(tr, f, "func after")
	}

	return modified
}

// needsConversion reports whether the result or any of the operands is illegal.
func (s *state) needsConversion(id ir.Expr) bool {
	if ShouldConvert(s.f, id) {
		return true
	}

	for _, a := range s.f.Args(id) {
		if *a != ir.Nil && ShouldConvert(s.f, *a) {
			return true
		}
	}

	return false
}

func dump(tr tlog.Span, f *ir.Func, msg string) {
	b, err := format.Format(context.Background(), nil, f)
	if err != nil {
		tr.Printw(msg, "err", err)
		return
	}

	tr.Printw(msg, "name", f.Name, "code", string(b))
}
