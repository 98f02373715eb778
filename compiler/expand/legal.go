package expand

import (
	"math/big"

	"tlog.app/go/tlog/tlwire"

	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/tp"
)

// Break instructions up into no larger than 64-bit chunks.
const (
	ChunkBits  = 64
	ChunkBytes = ChunkBits / 8
)

type (
	TypePair struct {
		Lo, Hi tp.Int
	}

	ValuePair struct {
		Lo, Hi ir.Expr
	}

	AlignPair struct {
		Lo, Hi int
	}
)

func IsLegal(bits int) bool {
	return bits >= 1 && bits <= ChunkBits
}

// ShouldConvert reports whether x is an integer too wide to be left as is.
// Vectors are never converted directly.
func ShouldConvert(f *ir.Func, x ir.Expr) bool {
	t, ok := f.Type(x).(tp.Int)

	return ok && !IsLegal(t.Bits)
}

// SplitType returns the low chunk type and the rest.
// The rest may still be illegal and gets split again when its instructions are visited.
func SplitType(t tp.Type) TypePair {
	it, ok := t.(tp.Int)
	if !ok || IsLegal(it.Bits) {
		panic(t)
	}

	return TypePair{
		Lo: tp.Int{Bits: ChunkBits},
		Hi: tp.Int{Bits: it.Bits - ChunkBits},
	}
}

func (s *state) splitConstant(x ir.Expr) ValuePair {
	f := s.f
	tys := SplitType(f.Type(x))

	switch c := f.Node(x).(type) {
	case ir.Undef:
		return ValuePair{
			Lo: f.Undef(tys.Lo),
			Hi: f.Undef(tys.Hi),
		}
	case ir.Imm:
		hi := new(big.Int).Rsh(c.X, ChunkBits)

		return ValuePair{
			Lo: f.Const(tys.Lo, c.X),
			Hi: f.Const(tys.Hi, hi),
		}
	}

	s.fatal(x, "Unexpected constant value")

	return ValuePair{}
}

func (p ValuePair) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "lo", int(p.Lo))
	b = e.AppendKeyInt(b, "hi", int(p.Hi))

	return b
}
