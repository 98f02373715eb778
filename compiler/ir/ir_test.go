package ir

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eipiminus1/beignet/compiler/tp"
)

func TestUniqueName(t *testing.T) {
	f := NewFunc("f", nil)

	assert.Equal(t, "x", f.uniqueName("x"))
	assert.Equal(t, "x1", f.uniqueName("x"))
	assert.Equal(t, "x2", f.uniqueName("x"))
	assert.Equal(t, "x1.lo", f.uniqueName("x1.lo"))
	assert.Equal(t, "", f.uniqueName(""))
	assert.Equal(t, "", f.uniqueName(""))
}

func TestConstWraps(t *testing.T) {
	f := NewFunc("f", nil)

	c := f.Const(tp.I8, big.NewInt(-1))
	assert.Zero(t, big.NewInt(255).Cmp(f.Node(c).(Imm).X))

	c = f.Const(tp.Int{Bits: 65}, new(big.Int).Lsh(big.NewInt(3), 64))
	assert.Zero(t, new(big.Int).Lsh(big.NewInt(1), 64).Cmp(f.Node(c).(Imm).X))

	assert.True(t, f.IsConst(c))
	assert.False(t, f.IsInst(c))
}

func TestBuilderInsertAfter(t *testing.T) {
	f := NewFunc("f", tp.I64)
	a := f.AddParam(tp.I64, "a")

	l := f.NewBlock("entry")
	b := f.At(l)
	x := b.BinImm(Add, a, 1, "x")
	r := b.Ret(x)

	b = f.After(x)
	y := b.BinImm(Mul, x, 2, "y")
	z := b.BinImm(Sub, y, 3, "z")

	assert.Equal(t, []Expr{x, y, z, r}, f.Blocks[l].Code)
	assert.Equal(t, 2, f.Pos(z))
	assert.Equal(t, l, f.Block(y))
	assert.Nil(t, f.Succs(l))
}

func TestBuilderFolding(t *testing.T) {
	f := NewFunc("f", nil)
	a := f.AddParam(tp.I64, "a")

	l := f.NewBlock("entry")
	b := f.At(l)

	assert.Equal(t, a, b.ZExt(a, tp.I64, "same"))
	assert.Equal(t, a, b.ZExtOrTrunc(a, tp.I64, "same"))
	assert.Empty(t, f.Blocks[l].Code)

	w := b.ZExtOrTrunc(a, tp.Int{Bits: 128}, "w")
	assert.Equal(t, &Cast{Op: ZExt, X: a}, f.Node(w))

	n := b.SExtOrTrunc(a, tp.I32, "n")
	assert.Equal(t, &Cast{Op: Trunc, X: a}, f.Node(n))

	s := b.SExtOrTrunc(n, tp.I64, "s")
	assert.Equal(t, &Cast{Op: SExt, X: n}, f.Node(s))
}

func TestReplaceEraseTakeName(t *testing.T) {
	f := NewFunc("f", tp.I64)
	a := f.AddParam(tp.I64, "a")

	l := f.NewBlock("entry")
	b := f.At(l)
	x := b.BinImm(Add, a, 1, "x")
	y := b.Bin(Xor, x, x, "y")
	b.Ret(y)

	z := f.After(x).BinImm(Or, a, 2, "")

	f.ReplaceAllUses(x, z)
	f.TakeName(z, x)

	assert.Equal(t, &Binary{Op: Xor, L: z, R: z}, f.Node(y))
	assert.Equal(t, "x", f.ValueName(z))
	assert.Equal(t, "", f.ValueName(x))
	assert.Equal(t, []Expr{y}, f.Uses(z))
	assert.Empty(t, f.Uses(x))

	f.DropReferences(x)
	f.Erase(x)

	assert.True(t, f.IsErased(x))
	assert.False(t, f.IsInst(x))
	assert.Equal(t, -1, f.Pos(x))
	assert.NotContains(t, f.Blocks[l].Code, x)
	assert.Len(t, f.Blocks[l].Code, 3)
}

func TestPhiIncoming(t *testing.T) {
	f := NewFunc("f", nil)

	entry := f.NewBlock("entry")
	loop := f.NewBlock("loop")

	f.At(entry).Br(loop)

	b := f.At(loop)
	i := b.Phi(tp.I64, 2, "i")
	i2 := b.BinImm(Add, i, 1, "i2")
	b.Br(loop)

	zero := f.ConstUint64(tp.I64, 0)
	und := f.Undef(tp.I64)

	f.AddIncoming(i, zero, entry)
	f.AddIncoming(i, und, loop)
	f.SetIncoming(i, 1, i2)

	assert.Equal(t, Phi{{B: entry, Expr: zero}, {B: loop, Expr: i2}}, f.Node(i))
	assert.Equal(t, [][]Label{nil, {entry, loop}}, f.Preds())
}

func TestReversePostorder(t *testing.T) {
	f := NewFunc("f", nil)
	c := f.AddParam(tp.I1, "c")

	entry := f.NewBlock("entry")
	loop := f.NewBlock("loop")
	then := f.NewBlock("then")
	els := f.NewBlock("else")
	join := f.NewBlock("join")
	exit := f.NewBlock("exit")
	dead := f.NewBlock("dead")

	f.At(entry).Br(loop)
	f.At(loop).BrCond(c, then, els)
	f.At(then).Br(join)
	f.At(els).Br(join)
	f.At(join).BrCond(c, loop, exit)
	f.At(exit).Ret(Nil)
	f.At(dead).Br(join)

	rpo := f.ReversePostorder()
	require.Len(t, rpo, 6)
	assert.NotContains(t, rpo, dead)

	pos := map[Label]int{}
	for i, l := range rpo {
		pos[l] = i
	}

	assert.Equal(t, 0, pos[entry])
	assert.Less(t, pos[loop], pos[then])
	assert.Less(t, pos[loop], pos[els])
	assert.Less(t, pos[then], pos[join])
	assert.Less(t, pos[els], pos[join])
	assert.Less(t, pos[join], pos[exit])
}

func TestSwitchOperands(t *testing.T) {
	f := NewFunc("f", nil)
	x := f.AddParam(tp.I64, "x")

	entry := f.NewBlock("entry")
	a := f.NewBlock("a")

	one := f.ConstUint64(tp.I64, 1)
	sw := f.At(entry).Switch(x, a, SwitchCase{Val: one, Label: a})
	f.At(a).Ret(Nil)

	args := f.Args(sw)
	require.Len(t, args, 2)
	assert.Equal(t, x, *args[0])
	assert.Equal(t, one, *args[1])

	assert.Equal(t, []Label{a, a}, f.Succs(entry))
	assert.Nil(t, f.Args(one))
}
