package format

import (
	"context"
	"fmt"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/tp"
)

func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	switch x := x.(type) {
	case *ir.Package:
		return formatPackage(ctx, b, x)
	case *ir.Func:
		return formatFunc(ctx, b, x)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

// Inst returns one instruction or value as text, for diagnostics.
func Inst(f *ir.Func, id ir.Expr) string {
	if id == ir.Nil {
		return "<nil>"
	}

	if f.IsErased(id) {
		return fmt.Sprintf("<erased %d>", id)
	}

	if !f.IsInst(id) {
		return string(appendTyped(nil, f, id))
	}

	b, err := formatInst(nil, f, id)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}

	return string(b)
}

func formatPackage(ctx context.Context, b []byte, p *ir.Package) (_ []byte, err error) {
	if p.Path != "" {
		b = app(b, 0, "; module %s\n", p.Path)
	}

	for i, f := range p.Funcs {
		if i != 0 || p.Path != "" {
			b = append(b, '\n')
		}

		b, err = formatFunc(ctx, b, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, f *ir.Func) (_ []byte, err error) {
	b = app(b, 0, "define %v @%s(", f.Out, f.Name)

	for i, id := range f.In {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = appendTyped(b, f, id)
	}

	b = append(b, ") {\n"...)

	for l, blk := range f.Blocks {
		if l != 0 {
			b = append(b, '\n')
		}

		b = app(b, 0, "%s:\n", blockName(f, ir.Label(l)))

		for _, id := range blk.Code {
			b = app(b, 1, "")

			b, err = formatInst(b, f, id)
			if err != nil {
				return nil, errors.Wrap(err, "block %v", blockName(f, ir.Label(l)))
			}

			b = append(b, '\n')
		}
	}

	b = append(b, "}\n"...)

	return b, nil
}

func formatInst(b []byte, f *ir.Func, id ir.Expr) ([]byte, error) {
	if _, ok := f.Type(id).(tp.Void); !ok {
		b = appendRef(b, f, id)
		b = append(b, " = "...)
	}

	switch x := f.Node(id).(type) {
	case ir.Phi:
		b = app(b, 0, "phi %v ", f.Type(id))

		for i, br := range x {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = append(b, "[ "...)
			b = appendRef(b, f, br.Expr)
			b = app(b, 0, ", %%%s ]", blockName(f, br.B))
		}
	case *ir.Cast:
		b = app(b, 0, "%s ", x.Op)
		b = appendTyped(b, f, x.X)
		b = app(b, 0, " to %v", f.Type(id))
	case *ir.Binary:
		b = app(b, 0, "%s ", x.Op)
		b = appendTyped(b, f, x.L)
		b = append(b, ", "...)
		b = appendRef(b, f, x.R)
	case *ir.Cmp:
		b = app(b, 0, "icmp %s ", x.Cond)
		b = appendTyped(b, f, x.L)
		b = append(b, ", "...)
		b = appendRef(b, f, x.R)
	case *ir.Select:
		b = append(b, "select "...)
		b = appendTyped(b, f, x.Cond)
		b = append(b, ", "...)
		b = appendTyped(b, f, x.T)
		b = append(b, ", "...)
		b = appendTyped(b, f, x.F)
	case *ir.Load:
		b = app(b, 0, "load %v, ", f.Type(id))
		b = appendTyped(b, f, x.Ptr)
		b = appendAlign(b, x.Align)
	case *ir.Store:
		b = append(b, "store "...)
		b = appendTyped(b, f, x.Val)
		b = append(b, ", "...)
		b = appendTyped(b, f, x.Ptr)
		b = appendAlign(b, x.Align)
	case *ir.Index:
		b = append(b, "getelementptr "...)
		b = appendTyped(b, f, x.X)
		b = app(b, 0, ", i32 %d", x.I)
	case *ir.Extract:
		b = append(b, "extractelement "...)
		b = appendTyped(b, f, x.Vec)
		b = app(b, 0, ", i32 %d", x.Lane)
	case *ir.Insert:
		b = append(b, "insertelement "...)
		b = appendTyped(b, f, x.Vec)
		b = append(b, ", "...)
		b = appendTyped(b, f, x.Elem)
		b = app(b, 0, ", i32 %d", x.Lane)
	case *ir.B:
		b = app(b, 0, "br label %%%s", blockName(f, x.Label))
	case *ir.BCond:
		b = append(b, "br "...)
		b = appendTyped(b, f, x.Expr)
		b = app(b, 0, ", label %%%s, label %%%s", blockName(f, x.Then), blockName(f, x.Else))
	case *ir.Switch:
		b = append(b, "switch "...)
		b = appendTyped(b, f, x.X)
		b = app(b, 0, ", label %%%s [", blockName(f, x.Default))

		for _, c := range x.Cases {
			b = append(b, ' ')
			b = appendTyped(b, f, c.Val)
			b = app(b, 0, ", label %%%s", blockName(f, c.Label))
		}

		b = append(b, " ]"...)
	case *ir.Ret:
		if x.X == ir.Nil {
			b = append(b, "ret void"...)
			break
		}

		b = append(b, "ret "...)
		b = appendTyped(b, f, x.X)
	case *ir.Unreachable:
		b = append(b, "unreachable"...)
	default:
		return b, errors.New("unsupported instruction: %T", x)
	}

	return b, nil
}

func appendTyped(b []byte, f *ir.Func, id ir.Expr) []byte {
	if id == ir.Nil {
		return append(b, "<nil>"...)
	}

	b = app(b, 0, "%v ", f.Type(id))

	return appendRef(b, f, id)
}

func appendRef(b []byte, f *ir.Func, id ir.Expr) []byte {
	if id == ir.Nil {
		return append(b, "<nil>"...)
	}

	switch x := f.Node(id).(type) {
	case ir.Imm:
		return append(b, x.X.String()...)
	case ir.Undef:
		return append(b, "undef"...)
	}

	if name := f.ValueName(id); name != "" {
		return app(b, 0, "%%%s", name)
	}

	return app(b, 0, "%%%d", id)
}

func appendAlign(b []byte, align int) []byte {
	if align == 0 {
		return b
	}

	return app(b, 0, ", align %d", align)
}

func blockName(f *ir.Func, l ir.Label) string {
	if l < 0 || int(l) >= len(f.Blocks) {
		return fmt.Sprintf("<block %d>", l)
	}

	if n := f.Blocks[l].Name; n != "" {
		return n
	}

	return fmt.Sprintf("b%d", l)
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
