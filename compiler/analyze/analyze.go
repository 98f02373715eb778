package analyze

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/eipiminus1/beignet/compiler/format"
	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/tp"
)

type (
	ContractError struct {
		Func string
		Inst string
		Msg  string
	}

	check func(f *ir.Func, id ir.Expr) string
)

// MaxLegalBits is the widest integer left after expansion.
const MaxLegalBits = 64

// Input checks what expansion requires and doesn't fix itself:
// legal signature and vectors of legal lanes.
func Input(ctx context.Context, f *ir.Func) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "analyze: input", "name", f.Name)
	defer tr.Finish("err", &err)

	for _, id := range f.In {
		if illegal(f.Type(id)) {
			return newError(f, id, "illegal integer argument")
		}
	}

	if illegal(f.Out) {
		return newError(f, ir.Nil, fmt.Sprintf("illegal integer result %v", f.Out))
	}

	return walk(f, refs, illegalLanes)
}

// Output checks the expansion result: no illegal integers left,
// no references to erased instructions, phis are consistent with the graph.
func Output(ctx context.Context, f *ir.Func) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "analyze: output", "name", f.Name)
	defer tr.Finish("err", &err)

	err = walk(f, refs, illegalLanes, illegalInts)
	if err != nil {
		return err
	}

	return phis(f)
}

func Package(ctx context.Context, p *ir.Package, fn func(context.Context, *ir.Func) error) error {
	for _, f := range p.Funcs {
		err := fn(ctx, f)
		if err != nil {
			return errors.Wrap(err, "func %v", f.Name)
		}
	}

	return nil
}

func walk(f *ir.Func, checks ...check) error {
	for _, b := range f.Blocks {
		for _, id := range b.Code {
			for _, c := range checks {
				if msg := c(f, id); msg != "" {
					return newError(f, id, msg)
				}
			}
		}
	}

	return nil
}

func refs(f *ir.Func, id ir.Expr) string {
	for _, a := range f.Args(id) {
		switch {
		case *a == ir.Nil:
			return "nil operand"
		case f.IsErased(*a):
			return fmt.Sprintf("reference to erased value %d", *a)
		}
	}

	return ""
}

func illegalInts(f *ir.Func, id ir.Expr) string {
	if illegal(f.Type(id)) {
		return fmt.Sprintf("illegal integer %v", f.Type(id))
	}

	for _, a := range f.Args(id) {
		if t := f.Type(*a); illegal(t) {
			return fmt.Sprintf("illegal integer operand %v", t)
		}
	}

	return ""
}

func illegalLanes(f *ir.Func, id ir.Expr) string {
	vt, ok := f.Type(id).(tp.Vector)
	if ok && illegal(vt.Elem) {
		return fmt.Sprintf("vector of illegal integers %v", vt)
	}

	return ""
}

func phis(f *ir.Func) error {
	preds := f.Preds()

	for l, b := range f.Blocks {
		for _, id := range b.Code {
			p, ok := f.Node(id).(ir.Phi)
			if !ok {
				break
			}

			if len(p) != len(preds[l]) {
				return newError(f, id, fmt.Sprintf("phi has %d edges, block has %d predecessors", len(p), len(preds[l])))
			}

		branches:
			for _, br := range p {
				for _, pr := range preds[l] {
					if pr == br.B {
						continue branches
					}
				}

				return newError(f, id, fmt.Sprintf("phi edge from non-predecessor block %d", br.B))
			}
		}
	}

	return nil
}

func illegal(t tp.Type) bool {
	it, ok := t.(tp.Int)

	return ok && it.Bits > MaxLegalBits
}

func newError(f *ir.Func, id ir.Expr, msg string) ContractError {
	e := ContractError{
		Func: f.Name,
		Msg:  msg,
	}

	if id != ir.Nil {
		e.Inst = format.Inst(f, id)
	}

	return e
}

func (e ContractError) Error() string {
	if e.Inst == "" {
		return fmt.Sprintf("%v: %v", e.Func, e.Msg)
	}

	return fmt.Sprintf("%v: %v: %v", e.Func, e.Msg, e.Inst)
}
