package expand

import (
	"tlog.app/go/tlog"

	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/layout"
	"github.com/eipiminus1/beignet/compiler/set"
	"github.com/eipiminus1/beignet/compiler/tp"
)

type (
	// state holds the bookkeeping of one function conversion.
	// Blocks are visited in reverse postorder, so phis are the only
	// instructions which can be visited before the values they use.
	state struct {
		f  *ir.Func
		l  *layout.Layout
		tr tlog.Span

		illegals map[ir.Expr]ValuePair
		legals   map[ir.Expr]ir.Expr

		toErase []ir.Expr
		queued  set.Bits[ir.Expr]

		forward []forwardPHI

		// vector -> root vector and its first lane
		vectors map[ir.Expr]vectorLane
		// root vector -> extracted lanes
		elements map[ir.Expr][]ir.Expr
	}

	forwardPHI struct {
		Val    ir.Expr
		Lo, Hi ir.Expr
		Edge   int
	}

	vectorLane struct {
		Root ir.Expr
		Lane int
	}
)

func newState(f *ir.Func, l *layout.Layout, tr tlog.Span) *state {
	return &state{
		f:        f,
		l:        l,
		tr:       tr,
		illegals: make(map[ir.Expr]ValuePair),
		legals:   make(map[ir.Expr]ir.Expr),
		queued:   set.MakeBits[ir.Expr](),
		vectors:  make(map[ir.Expr]vectorLane),
		elements: make(map[ir.Expr][]ir.Expr),
	}
}

// getConverted returns the replacement pair of an illegal value.
func (s *state) getConverted(x ir.Expr) ValuePair {
	if s.f.IsConst(x) {
		return s.splitConstant(x)
	}

	p, ok := s.illegals[x]
	if !ok {
		s.fatal(x, "Expanded value not found in map")
	}

	if r, ok := s.legals[p.Lo]; ok {
		p.Lo = r
	}

	if r, ok := s.legals[p.Hi]; ok {
		p.Hi = r
	}

	return p
}

// hasConverted is only useful for phis.
// Everything else always uses converted values.
func (s *state) hasConverted(x ir.Expr) bool {
	if s.f.IsConst(x) {
		return true
	}

	_, ok := s.illegals[x]

	return ok
}

// recordForwardPHI remembers the edge to patch after the traversal
// and returns placeholders to use meanwhile.
func (s *state) recordForwardPHI(x, lo, hi ir.Expr, edge int) ValuePair {
	s.tr.V("expand_inst").Printw("forward phi", "val", x, "lo", lo, "hi", hi, "edge", edge)

	s.forward = append(s.forward, forwardPHI{Val: x, Lo: lo, Hi: hi, Edge: edge})

	return ValuePair{
		Lo: s.f.Undef(s.f.Type(lo)),
		Hi: s.f.Undef(s.f.Type(hi)),
	}
}

func (s *state) recordIllegal(from ir.Expr, to ValuePair) {
	s.tr.V("expand_inst").Printw("converted", "from", from, "to", to)

	s.addEraseCandidate(from)
	s.illegals[from] = to
}

// recordLegal replaces uses of from with to in place.
// to gets the name of from, from is queued for deletion.
func (s *state) recordLegal(from, to ir.Expr) {
	if ShouldConvert(s.f, from) {
		panic(from)
	}

	s.tr.V("expand_inst").Printw("replaced", "from", from, "to", to)

	s.addEraseCandidate(from)

	s.f.ReplaceAllUses(from, to)
	s.f.TakeName(to, from)

	s.legals[from] = to
}

func (s *state) patchForwardPHIs() {
	for _, p := range s.forward {
		ops := s.getConverted(p.Val)

		s.f.SetIncoming(p.Lo, p.Edge, ops.Lo)
		s.f.SetIncoming(p.Hi, p.Edge, ops.Hi)
	}
}

// eraseReplacedInstructions detaches all the queued instructions first
// so they can reference each other.
func (s *state) eraseReplacedInstructions() {
	for _, id := range s.toErase {
		s.f.DropReferences(id)
	}

	for _, id := range s.toErase {
		s.f.Erase(id)
	}
}

func (s *state) addEraseCandidate(id ir.Expr) {
	if s.queued.TestAndSet(id) {
		return
	}

	s.toErase = append(s.toErase, id)
}

func (s *state) appendElement(vec, e ir.Expr) {
	s.elements[vec] = append(s.elements[vec], e)
}

func (s *state) getElement(vec ir.Expr, lane int) ir.Expr {
	l := s.elements[vec]
	if lane >= len(l) {
		s.fatal(vec, "Vector lane %d out of range", lane)
	}

	return l[lane]
}

// extracted reports whether vec lanes were extracted in block b and can be reused there.
func (s *state) extracted(vec ir.Expr, b ir.Label) bool {
	l := s.elements[vec]

	return len(l) != 0 && s.f.Block(l[0]) == b
}

func (s *state) recordVectorMap(child, root ir.Expr, lane int) {
	s.vectors[child] = vectorLane{Root: root, Lane: lane}
}

func (s *state) convertedVector(vec ir.Expr) (vectorLane, bool) {
	v, ok := s.vectors[vec]
	return v, ok
}

func (s *state) getAlign(align int, t tp.Type) AlignPair {
	if align == 0 {
		align = s.l.PrefAlign(t)
	}

	return AlignPair{
		Lo: align,
		Hi: layout.MinAlign(align, ChunkBytes),
	}
}
