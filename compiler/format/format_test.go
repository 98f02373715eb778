package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/tp"
)

func TestFormatFunc(t *testing.T) {
	f := ir.NewFunc("f", nil)
	p := f.AddParam(tp.Ptr{Elem: tp.Int{Bits: 128}}, "p")
	c := f.AddParam(tp.I1, "c")

	entry := f.NewBlock("entry")
	exit := f.NewBlock("")

	b := f.At(entry)
	x := b.Load(tp.Int{Bits: 128}, p, 16, "x")
	y := b.BinImm(ir.Add, x, 1, "")
	b.BrCond(c, exit, exit)

	b = f.At(exit)
	b.Store(y, b.Index(p, 1, "q"), 0)
	b.Ret(ir.Nil)

	text, err := Format(context.Background(), nil, f)
	require.NoError(t, err)

	assert.Equal(t, `define void @f(i128* %p, i1 %c) {
entry:
	%x = load i128, i128* %p, align 16
	%`+itoa(y)+` = add i128 %x, 1
	br i1 %c, label %b1, label %b1

b1:
	%q = getelementptr i128* %p, i32 1
	store i128 %`+itoa(y)+`, i128* %q
	ret void
}
`, string(text))
}

func TestFormatPackage(t *testing.T) {
	f := ir.NewFunc("g", tp.I64)
	a := f.AddParam(tp.I64, "a")
	f.At(f.NewBlock("entry")).Ret(a)

	text, err := Format(context.Background(), nil, &ir.Package{Path: "m.ll", Funcs: []*ir.Func{f}})
	require.NoError(t, err)

	assert.Equal(t, "; module m.ll\n\ndefine i64 @g(i64 %a) {\nentry:\n\tret i64 %a\n}\n", string(text))

	_, err = Format(context.Background(), nil, 3)
	assert.Error(t, err)
}

func TestInst(t *testing.T) {
	f := ir.NewFunc("f", nil)
	a := f.AddParam(tp.I64, "a")

	b := f.At(f.NewBlock("entry"))
	x := b.Cmp(ir.EQ, a, f.Undef(tp.I64), "x")

	assert.Equal(t, "%x = icmp eq i64 %a, undef", Inst(f, x))
	assert.Equal(t, "i64 %a", Inst(f, a))
	assert.Equal(t, "<nil>", Inst(f, ir.Nil))

	f.Erase(x)
	assert.Equal(t, "<erased "+itoa(x)+">", Inst(f, x))
}

func itoa(id ir.Expr) string {
	return string(app(nil, 0, "%d", int(id)))
}
