package expand

import (
	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/tp"
)

// intToVector gets all the chunks of an illegal integer and inserts them
// into a vector of the destination type.
func (s *state) intToVector(b *ir.Builder, id ir.Expr, x *ir.Cast, name string) {
	f := s.f

	var split []ir.Expr

	v := x.X
	for ShouldConvert(f, v) {
		p := s.getConverted(v)
		split = append(split, p.Lo)
		v = p.Hi
	}

	split = append(split, v)

	// insertelement requires a single element type
	lanes := s.unifyElementType(b, id, split)

	vec := f.Undef(tp.Vector{Elem: f.Type(lanes[0]), Len: len(lanes)})

	for i, e := range lanes {
		vec = b.Insert(vec, e, i, "")
	}

	vec = b.BitCast(vec, f.Type(id), name)

	s.recordLegal(id, vec)
}

// vectorToInt views the vector as a flat lane array, lane 0 being least significant.
// Lo takes the first lanes, Hi the rest. Hi is remembered as a part of the root vector
// so if it's still illegal its own conversion continues from the right lane.
func (s *state) vectorToInt(b *ir.Builder, id ir.Expr, x *ir.Cast, name string) {
	f := s.f

	vt, ok := f.Type(x.X).(tp.Vector)
	if !ok {
		s.fatal(id, "Unhandled bitcast of illegal integer")
	}

	lw := tp.Bits(vt.Elem)
	tys := SplitType(f.Type(id))

	if lw == 0 || tys.Lo.Bits%lw != 0 || tys.Hi.Bits%lw != 0 {
		s.fatal(id, "Vector lane width %d doesn't divide chunks %v and %v", lw, tys.Lo, tys.Hi)
	}

	root, base := x.X, 0

	if v, ok := s.convertedVector(x.X); ok {
		root, base = v.Root, v.Lane
	} else if !s.extracted(x.X, f.Block(id)) {
		delete(s.elements, x.X)

		for i := 0; i < vt.Len; i++ {
			s.appendElement(x.X, b.Extract(x.X, i, ""))
		}
	}

	lowN := tys.Lo.Bits / lw
	highN := tys.Hi.Bits / lw

	loElems := make([]ir.Expr, lowN)
	for i := range loElems {
		loElems[i] = s.getElement(root, base+i)
	}

	lo := b.BitCast(s.buildVectorOrScalar(b, loElems), tys.Lo, name+".lo")

	hiElems := make([]ir.Expr, highN)
	for i := range hiElems {
		hiElems[i] = s.getElement(root, base+lowN+i)
	}

	vec := s.buildVectorOrScalar(b, hiElems)
	hi := b.BitCast(vec, tys.Hi, name+".hi")

	s.recordVectorMap(vec, root, base+lowN)
	s.recordIllegal(id, ValuePair{Lo: lo, Hi: hi})
}

// buildVectorOrScalar returns the only element as is.
// Vectors which are illegal integers in size are temporary:
// they are bitcast to an illegal integer which is converted later.
func (s *state) buildVectorOrScalar(b *ir.Builder, elems []ir.Expr) ir.Expr {
	if len(elems) == 1 {
		return elems[0]
	}

	f := s.f

	vt := tp.Vector{Elem: f.Type(elems[0]), Len: len(elems)}
	keep := IsLegal(tp.Bits(vt))

	vec := f.Undef(vt)

	for i, e := range elems {
		vec = b.Insert(vec, e, i, "")

		if !keep {
			s.addEraseCandidate(vec)
		}
	}

	return vec
}

// unifyElementType splits wider values into lanes of the narrowest one.
func (s *state) unifyElementType(b *ir.Builder, id ir.Expr, src []ir.Expr) []ir.Expr {
	f := s.f

	minw := tp.Bits(f.Type(src[0]))
	unified := true

	for _, x := range src {
		w := tp.Bits(f.Type(x))

		if w != minw {
			unified = false
		}

		minw = min(minw, w)
	}

	if unified {
		return src
	}

	et := tp.Int{Bits: minw}
	dst := make([]ir.Expr, 0, len(src))

	for _, x := range src {
		w := tp.Bits(f.Type(x))

		if w%minw != 0 {
			s.fatal(id, "Can't split %v into lanes of %v", f.Type(x), et)
		}

		if w == minw {
			dst = append(dst, x)
			continue
		}

		cast := b.BitCast(x, tp.Vector{Elem: et, Len: w / minw}, "")

		for j := 0; j < w/minw; j++ {
			dst = append(dst, b.Extract(cast, j, ""))
		}
	}

	return dst
}
