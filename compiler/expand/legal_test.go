package expand

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/tlog"

	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/layout"
	"github.com/eipiminus1/beignet/compiler/tp"
)

func TestIsLegal(t *testing.T) {
	assert.False(t, IsLegal(0))
	assert.True(t, IsLegal(1))
	assert.True(t, IsLegal(64))
	assert.False(t, IsLegal(65))

	f := ir.NewFunc("f", nil)

	assert.True(t, ShouldConvert(f, f.Undef(tp.Int{Bits: 65})))
	assert.False(t, ShouldConvert(f, f.Undef(tp.I64)))
	assert.False(t, ShouldConvert(f, f.Undef(tp.Vector{Elem: tp.I64, Len: 4})))
	assert.False(t, ShouldConvert(f, f.Undef(tp.Ptr{Elem: i128})))
}

func TestSplitType(t *testing.T) {
	assert.Equal(t, TypePair{Lo: tp.I64, Hi: tp.Int{Bits: 1}}, SplitType(tp.Int{Bits: 65}))
	assert.Equal(t, TypePair{Lo: tp.I64, Hi: tp.I32}, SplitType(i96))
	assert.Equal(t, TypePair{Lo: tp.I64, Hi: i128}, SplitType(i192))

	assert.Panics(t, func() { SplitType(tp.I64) })
}

func TestSplitConstant(t *testing.T) {
	f := ir.NewFunc("consts", nil)
	s := newState(f, layout.Default(), tlog.Span{})

	pattern, ok := new(big.Int).SetString("f0e1d2c3b4a5968778695a4b3c2d1e0f0123456789abcdeffedcba9876543210", 16)
	require.True(t, ok)

	one := big.NewInt(1)

	for _, w := range []int{65, 72, 96, 128, 192} {
		allOnes := new(big.Int).Sub(new(big.Int).Lsh(one, uint(w)), one)
		topBit := new(big.Int).Lsh(one, uint(w-1))

		for _, v := range []*big.Int{big.NewInt(0), one, allOnes, topBit, pattern} {
			ty := tp.Int{Bits: w}
			c := f.Const(ty, v)

			p := s.splitConstant(c)

			assert.Equal(t, tp.I64, f.Type(p.Lo))
			assert.Equal(t, tp.Int{Bits: w - 64}, f.Type(p.Hi))

			lo := f.Node(p.Lo).(ir.Imm).X
			hi := f.Node(p.Hi).(ir.Imm).X

			got := new(big.Int).Lsh(hi, 64)
			got.Or(got, lo)

			assert.Equal(t, 0, ir.Wrap(v, w).Cmp(got), "width %d value %x: got %x", w, v, got)
		}

		u := s.splitConstant(f.Undef(tp.Int{Bits: w}))

		assert.IsType(t, ir.Undef{}, f.Node(u.Lo))
		assert.IsType(t, ir.Undef{}, f.Node(u.Hi))
		assert.Equal(t, tp.Int{Bits: w - 64}, f.Type(u.Hi))
	}
}

func TestSplitConstantUnexpected(t *testing.T) {
	f := ir.NewFunc("consts", nil)
	x := f.AddParam(i128, "x")

	s := newState(f, layout.Default(), tlog.Span{})

	assert.PanicsWithError(t, "consts: Unexpected constant value: i128 %x", func() {
		s.splitConstant(x)
	})
}
