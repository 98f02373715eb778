package analyze

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/tp"
)

func TestInput(t *testing.T) {
	ctx := context.Background()

	f := ir.NewFunc("ok", tp.I64)
	x := f.AddParam(tp.I64, "x")

	b := f.At(f.NewBlock("entry"))
	w := b.ZExt(x, tp.Int{Bits: 128}, "w")
	b.Ret(b.Trunc(w, tp.I64, "t"))

	require.NoError(t, Input(ctx, f))

	err := Output(ctx, f)
	assert.ErrorContains(t, err, "illegal integer i128")

	f = ir.NewFunc("arg", nil)
	f.AddParam(tp.Int{Bits: 65}, "x")
	f.At(f.NewBlock("entry")).Ret(ir.Nil)

	assert.ErrorContains(t, Input(ctx, f), "illegal integer argument")

	f = ir.NewFunc("lanes", nil)
	p := f.AddParam(tp.Ptr{Elem: tp.I8}, "p")

	b = f.At(f.NewBlock("entry"))
	b.Load(tp.Vector{Elem: tp.Int{Bits: 128}, Len: 2}, p, 0, "v")
	b.Ret(ir.Nil)

	assert.ErrorContains(t, Input(ctx, f), "vector of illegal integers")
}

func TestOutputErased(t *testing.T) {
	ctx := context.Background()

	f := ir.NewFunc("erased", tp.I64)
	x := f.AddParam(tp.I64, "x")

	b := f.At(f.NewBlock("entry"))
	y := b.BinImm(ir.Add, x, 1, "y")
	b.Ret(y)

	require.NoError(t, Output(ctx, f))

	f.Erase(y)

	var ce ContractError

	err := Output(ctx, f)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "erased", ce.Func)
	assert.Contains(t, ce.Msg, "reference to erased value")
}

func TestOutputPhis(t *testing.T) {
	ctx := context.Background()

	f := ir.NewFunc("phis", tp.I64)
	c := f.AddParam(tp.I1, "c")

	entry := f.NewBlock("entry")
	then := f.NewBlock("then")
	join := f.NewBlock("join")

	f.At(entry).BrCond(c, then, join)
	f.At(then).Br(join)

	b := f.At(join)
	phi := b.Phi(tp.I64, 2, "v")
	b.Ret(phi)

	f.AddIncoming(phi, f.ConstUint64(tp.I64, 1), entry)

	assert.ErrorContains(t, Output(ctx, f), "phi has 1 edges, block has 2 predecessors")

	f.AddIncoming(phi, f.ConstUint64(tp.I64, 2), join)

	assert.ErrorContains(t, Output(ctx, f), "non-predecessor")

	f.SetIncoming(phi, 1, f.ConstUint64(tp.I64, 3))
	f.Node(phi).(ir.Phi)[1].B = then

	assert.NoError(t, Output(ctx, f))
}
