package expand

import (
	"strconv"

	"github.com/eipiminus1/beignet/compiler/format"
	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/tp"
)

// convert rewrites one instruction producing or consuming an illegal integer.
// New instructions are inserted right after id, so the driver visits them too.
// That's how types wider than two chunks get expanded.
func (s *state) convert(id ir.Expr) {
	f := s.f
	b := f.After(id)

	name := f.ValueName(id)
	if name == "" {
		name = strconv.Itoa(int(id))
	}

	if s.tr.If("expand_inst") {
		s.tr.Printw("expand", "id", id, "inst", format.Inst(f, id))
	}

	switch x := f.Node(id).(type) {
	case ir.Phi:
		s.convertPhi(b, id, x, name)
	case *ir.Cast:
		switch x.Op {
		case ir.ZExt:
			s.convertZExt(b, id, x, name)
		case ir.Trunc:
			s.convertTrunc(b, id, x, name)
		case ir.BitCast:
			if tp.IsVector(f.Type(id)) {
				s.intToVector(b, id, x, name)
			} else {
				s.vectorToInt(b, id, x, name)
			}
		default:
			s.fatal(id, "Unhandled large integer expansion")
		}
	case *ir.Binary:
		s.convertBinary(b, id, x, name)
	case *ir.Load:
		s.convertLoad(b, id, x, name)
	case *ir.Store:
		s.convertStore(b, id, x)
	case *ir.Cmp:
		s.convertCmp(b, id, x, name)
	case *ir.Select:
		t := s.getConverted(x.T)
		e := s.getConverted(x.F)

		lo := b.Select(x.Cond, t.Lo, e.Lo, name+".lo")
		hi := b.Select(x.Cond, t.Hi, e.Hi, name+".hi")

		s.recordIllegal(id, ValuePair{Lo: lo, Hi: hi})
	default:
		s.fatal(id, "Unhandled large integer expansion")
	}
}

func (s *state) convertPhi(b *ir.Builder, id ir.Expr, x ir.Phi, name string) {
	f := s.f
	tys := SplitType(f.Type(id))

	lo := b.Phi(tys.Lo, len(x), name+".lo")
	hi := b.Phi(tys.Hi, len(x), name+".hi")

	for i, br := range x {
		// not converted yet means a back edge: patch it after the traversal
		var ops ValuePair
		if s.hasConverted(br.Expr) {
			ops = s.getConverted(br.Expr)
		} else {
			ops = s.recordForwardPHI(br.Expr, lo, hi, i)
		}

		f.AddIncoming(lo, ops.Lo, br.B)
		f.AddIncoming(hi, ops.Hi, br.B)
	}

	s.recordIllegal(id, ValuePair{Lo: lo, Hi: hi})
}

func (s *state) convertZExt(b *ir.Builder, id ir.Expr, x *ir.Cast, name string) {
	f := s.f
	tys := SplitType(f.Type(id))

	var p ValuePair

	if tp.Bits(f.Type(x.X)) <= ChunkBits {
		p.Lo = b.ZExt(x.X, tys.Lo, name+".lo")
		p.Hi = f.ConstUint64(tys.Hi, 0)
	} else {
		ops := s.getConverted(x.X)

		p.Lo = ops.Lo
		p.Hi = b.ZExt(ops.Hi, tys.Hi, name+".hi")
	}

	s.recordIllegal(id, p)
}

func (s *state) convertTrunc(b *ir.Builder, id ir.Expr, x *ir.Cast, name string) {
	f := s.f

	if !ShouldConvert(f, x.X) {
		s.fatal(id, "Trunc is expandable but not its operand")
	}

	ops := s.getConverted(x.X)

	if !ShouldConvert(f, id) {
		s.recordLegal(id, b.Trunc(ops.Lo, f.Type(id), name))
		return
	}

	tys := SplitType(f.Type(id))

	s.recordIllegal(id, ValuePair{
		Lo: ops.Lo,
		Hi: b.Trunc(ops.Hi, tys.Hi, name+".hi"),
	})
}

func (s *state) convertBinary(b *ir.Builder, id ir.Expr, x *ir.Binary, name string) {
	f := s.f

	lhs := s.getConverted(x.L)
	rhs := s.getConverted(x.R)
	tys := SplitType(f.Type(id))

	var lo, hi ir.Expr

	switch x.Op {
	case ir.And, ir.Or, ir.Xor:
		lo = b.Bin(x.Op, lhs.Lo, rhs.Lo, name+".lo")
		hi = b.Bin(x.Op, lhs.Hi, rhs.Hi, name+".hi")
	case ir.Shl:
		c := s.shiftAmount(id, rhs)
		if c == 0 {
			lo, hi = lhs.Lo, lhs.Hi
			break
		}

		// |<------------Hi---------->|<-------Lo------>|
		// |abcdefghijklmnopqrstuvwxyz|ABCDEFGHIJKLMNOPQ|
		//
		// |efghijklmnopqrstuvwxyzABCD|EFGHIJKLMNOPQ0000| Some Lo into Hi.
		// |vwxyzABCDEFGHIJKLMNOPQ0000|00000000000000000| Lo is 0, keep some Hi.
		// |DEFGHIJKLMNOPQ000000000000|00000000000000000| Lo is 0, no Hi left.
		switch {
		case c < ChunkBits:
			lo = b.BinImm(ir.Shl, lhs.Lo, uint64(c), name+".lo")
			hi = b.BinImm(ir.LShr, lhs.Lo, uint64(ChunkBits-c), name+".lo.shr")
			hi = b.ZExtOrTrunc(hi, tys.Hi, name+".lo.ext")
		case c == ChunkBits:
			lo = f.ConstUint64(tys.Lo, 0)
			hi = b.ZExtOrTrunc(lhs.Lo, tys.Hi, name+".lo.ext")
		default:
			lo = f.ConstUint64(tys.Lo, 0)
			hi = b.ZExtOrTrunc(lhs.Lo, tys.Hi, name+".lo.ext")
			hi = b.BinImm(ir.Shl, hi, uint64(c-ChunkBits), name+".lo.shl")
		}

		if c < tys.Hi.Bits {
			sh := b.BinImm(ir.Shl, lhs.Hi, uint64(c), name+".hi.shl")
			hi = b.Bin(ir.Or, hi, sh, name+".or")
		}
	case ir.LShr, ir.AShr:
		c := s.shiftAmount(id, rhs)
		if c == 0 {
			lo, hi = lhs.Lo, lhs.Hi
			break
		}

		// |<--Hi-->|<-------Lo------>|
		// |abcdefgh|ABCDEFGHIJKLMNOPQ|
		//
		// |0000abcd|defgABCDEFGHIJKLM| Some Hi into Lo.
		// |00000000|00abcdefgABCDEFGH| Hi is 0, keep some Lo.
		// |00000000|000000000000abcde| Hi is 0, no Lo left.
		// 0 is the sign for ashr.
		arith := x.Op == ir.AShr

		ext := b.ZExtOrTrunc
		if arith {
			ext = b.SExtOrTrunc
		}

		switch {
		case c < ChunkBits:
			lo = ext(lhs.Hi, tys.Lo, name+".hi.ext")
			lo = b.BinImm(ir.Shl, lo, uint64(ChunkBits-c), name+".hi.shl")
			sh := b.BinImm(ir.LShr, lhs.Lo, uint64(c), name+".lo.shr")
			lo = b.Bin(ir.Or, lo, sh, name+".lo")
		case c == ChunkBits:
			lo = ext(lhs.Hi, tys.Lo, name+".hi.ext")
		default:
			lo = b.BinImm(x.Op, lhs.Hi, uint64(c-ChunkBits), name+".hi.shr")
			lo = ext(lo, tys.Lo, name+".lo.ext")
		}

		switch {
		case c < tys.Hi.Bits:
			hi = b.BinImm(x.Op, lhs.Hi, uint64(c), name+".hi")
		case arith:
			hi = b.BinImm(ir.AShr, lhs.Hi, uint64(tys.Hi.Bits-1), name+".hi")
		default:
			hi = f.ConstUint64(tys.Hi, 0)
		}
	case ir.Add:
		// low sum wrapped iff it's less than either of the operands
		cmp := b.Cmp(ir.ULT, lhs.Lo, rhs.Lo, name+".cmp")
		limit := b.Select(cmp, rhs.Lo, lhs.Lo, name+".limit")

		lo = b.Bin(ir.Add, lhs.Lo, rhs.Lo, name+".lo")

		over := b.Cmp(ir.ULT, lo, limit, name+".overflowed")
		carry := b.ZExt(over, tys.Hi, name+".carry")

		hi = b.Bin(ir.Add, lhs.Hi, rhs.Hi, name+".hi")
		hi = b.Bin(ir.Add, hi, carry, name+".carried")
	case ir.Sub:
		// borrowing is 0 or 1
		cmp := b.Cmp(ir.ULT, lhs.Lo, rhs.Lo, name+".borrow")
		borrow := b.ZExt(cmp, tys.Hi, name+".borrowing")

		lo = b.Bin(ir.Sub, lhs.Lo, rhs.Lo, name+".lo")

		hi = b.Bin(ir.Sub, lhs.Hi, rhs.Hi, name+".hi")
		hi = b.Bin(ir.Sub, hi, borrow, name+".borrowed")
	default:
		s.fatal(id, "Unhandled BinaryOperator type in integer expansion")
	}

	s.recordIllegal(id, ValuePair{Lo: lo, Hi: hi})
}

// shiftAmount returns the constant shift amount.
// Amounts not less than the width are undefined behavior and are treated as 0.
func (s *state) shiftAmount(id ir.Expr, rhs ValuePair) int {
	f := s.f

	c, ok := f.Node(rhs.Lo).(ir.Imm)
	if !ok {
		s.fatal(id, "Expansion of variable-sized shifts of > 64-bit-wide values is not supported")
	}

	if h, ok := f.Node(rhs.Hi).(ir.Imm); ok && h.X.Sign() != 0 {
		return 0
	}

	width := tp.Bits(f.Type(id))

	if !c.X.IsUint64() || c.X.Uint64() >= uint64(width) {
		return 0
	}

	return int(c.X.Uint64())
}

func (s *state) convertLoad(b *ir.Builder, id ir.Expr, x *ir.Load, name string) {
	f := s.f
	tys := SplitType(f.Type(id))
	align := s.getAlign(x.Align, f.Type(id))

	loty, hity := s.splitPointer(b, id, x.Ptr, tys)

	lo := b.Load(tys.Lo, loty, align.Lo, name+".lo")
	hi := b.Load(tys.Hi, hity, align.Hi, name+".hi")

	s.recordIllegal(id, ValuePair{Lo: lo, Hi: hi})
}

func (s *state) convertStore(b *ir.Builder, id ir.Expr, x *ir.Store) {
	f := s.f
	tys := SplitType(f.Type(x.Val))
	vals := s.getConverted(x.Val)
	align := s.getAlign(x.Align, f.Type(x.Val))

	loty, hity := s.splitPointer(b, id, x.Ptr, tys)

	lo := b.Store(vals.Lo, loty, align.Lo)
	hi := b.Store(vals.Hi, hity, align.Hi)

	s.recordIllegal(id, ValuePair{Lo: lo, Hi: hi})
}

// splitPointer returns the addresses of the low and the high chunks.
// Hi is right after Lo.
func (s *state) splitPointer(b *ir.Builder, id, ptr ir.Expr, tys TypePair) (loty, hity ir.Expr) {
	f := s.f

	pt, ok := f.Type(ptr).(tp.Ptr)
	if !ok {
		s.fatal(id, "Pointer operand expected")
	}

	if s.l.PointerSize(pt.AddrSpace) == 0 {
		s.fatal(id, "Unknown address space %d", pt.AddrSpace)
	}

	pname := f.ValueName(ptr)
	if pname == "" {
		pname = strconv.Itoa(int(ptr))
	}

	loty = b.BitCast(ptr, tp.Ptr{Elem: tys.Lo, AddrSpace: pt.AddrSpace}, pname+".loty")
	gep := b.Index(loty, 1, pname+".hi.gep")
	hity = b.BitCast(gep, tp.Ptr{Elem: tys.Hi, AddrSpace: pt.AddrSpace}, pname+".hity")

	return loty, hity
}

// convertCmp supports equality only.
// Chunk-wise equality is bit pattern equality regardless of signedness.
func (s *state) convertCmp(b *ir.Builder, id ir.Expr, x *ir.Cmp, name string) {
	lhs := s.getConverted(x.L)
	rhs := s.getConverted(x.R)

	switch x.Cond {
	case ir.EQ, ir.NE:
	case ir.UGT, ir.UGE, ir.ULT, ir.ULE, ir.SGT, ir.SGE, ir.SLT, ir.SLE:
		s.fatal(id, "Comparisons other than equality not supported for integer types larger than 64 bit")
	default:
		s.fatal(id, "Invalid integer comparison")
	}

	lo := b.Cmp(ir.EQ, lhs.Lo, rhs.Lo, name+".lo")
	hi := b.Cmp(ir.EQ, lhs.Hi, rhs.Hi, name+".hi")
	res := b.Bin(ir.And, lo, hi, name+".result")

	if x.Cond == ir.NE {
		res = b.BinImm(ir.Xor, res, 1, name+".not")
	}

	s.recordLegal(id, res)
}
