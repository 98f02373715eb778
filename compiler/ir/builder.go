package ir

import (
	"github.com/eipiminus1/beignet/compiler/tp"
)

type (
	// Builder inserts instructions one after another starting at a fixed point.
	Builder struct {
		f   *Func
		b   Label
		pos int
	}
)

// After returns a Builder inserting right after id.
func (f *Func) After(id Expr) *Builder {
	return &Builder{
		f:   f,
		b:   f.Where[id],
		pos: f.Pos(id) + 1,
	}
}

// At returns a Builder appending to the end of block l.
func (f *Func) At(l Label) *Builder {
	return &Builder{
		f:   f,
		b:   l,
		pos: len(f.Blocks[l].Code),
	}
}

func (b *Builder) Func() *Func { return b.f }

func (b *Builder) add(x any, t tp.Type, name string) Expr {
	id := b.f.Insert(b.b, b.pos, x, t, name)
	b.pos++

	return id
}

func (b *Builder) Phi(t tp.Type, n int, name string) Expr {
	return b.add(make(Phi, 0, n), t, name)
}

// Cast converts x to t. Casting to the same type is a no-op and returns x.
func (b *Builder) Cast(op CastOp, x Expr, t tp.Type, name string) Expr {
	if b.f.EType[x] == t {
		return x
	}

	return b.add(&Cast{Op: op, X: x}, t, name)
}

func (b *Builder) ZExt(x Expr, t tp.Type, name string) Expr {
	return b.Cast(ZExt, x, t, name)
}

func (b *Builder) SExt(x Expr, t tp.Type, name string) Expr {
	return b.Cast(SExt, x, t, name)
}

func (b *Builder) Trunc(x Expr, t tp.Type, name string) Expr {
	return b.Cast(Trunc, x, t, name)
}

func (b *Builder) BitCast(x Expr, t tp.Type, name string) Expr {
	return b.Cast(BitCast, x, t, name)
}

func (b *Builder) ZExtOrTrunc(x Expr, t tp.Type, name string) Expr {
	return b.extOrTrunc(ZExt, x, t, name)
}

func (b *Builder) SExtOrTrunc(x Expr, t tp.Type, name string) Expr {
	return b.extOrTrunc(SExt, x, t, name)
}

func (b *Builder) extOrTrunc(ext CastOp, x Expr, t tp.Type, name string) Expr {
	from, to := tp.Bits(b.f.EType[x]), tp.Bits(t)

	switch {
	case from < to:
		return b.Cast(ext, x, t, name)
	case from > to:
		return b.Cast(Trunc, x, t, name)
	default:
		return x
	}
}

func (b *Builder) Bin(op BinOp, l, r Expr, name string) Expr {
	return b.add(&Binary{Op: op, L: l, R: r}, b.f.EType[l], name)
}

// BinImm applies op to l and a literal of l's type.
func (b *Builder) BinImm(op BinOp, l Expr, r uint64, name string) Expr {
	c := b.f.ConstUint64(b.f.EType[l].(tp.Int), r)

	return b.Bin(op, l, c, name)
}

func (b *Builder) Cmp(cond Cond, l, r Expr, name string) Expr {
	return b.add(&Cmp{Cond: cond, L: l, R: r}, tp.I1, name)
}

func (b *Builder) Select(cond, t, f Expr, name string) Expr {
	return b.add(&Select{Cond: cond, T: t, F: f}, b.f.EType[t], name)
}

func (b *Builder) Load(t tp.Type, ptr Expr, align int, name string) Expr {
	return b.add(&Load{Ptr: ptr, Align: align}, t, name)
}

func (b *Builder) Store(x, ptr Expr, align int) Expr {
	return b.add(&Store{Val: x, Ptr: ptr, Align: align}, Void, "")
}

func (b *Builder) Index(ptr Expr, i int, name string) Expr {
	return b.add(&Index{X: ptr, I: i}, b.f.EType[ptr], name)
}

func (b *Builder) Extract(vec Expr, lane int, name string) Expr {
	t := b.f.EType[vec].(tp.Vector)

	return b.add(&Extract{Vec: vec, Lane: lane}, t.Elem, name)
}

func (b *Builder) Insert(vec, elem Expr, lane int, name string) Expr {
	return b.add(&Insert{Vec: vec, Elem: elem, Lane: lane}, b.f.EType[vec], name)
}

func (b *Builder) Br(l Label) Expr {
	return b.add(&B{Label: l}, Void, "")
}

func (b *Builder) BrCond(cond Expr, then, els Label) Expr {
	return b.add(&BCond{Expr: cond, Then: then, Else: els}, Void, "")
}

func (b *Builder) Switch(x Expr, def Label, cases ...SwitchCase) Expr {
	return b.add(&Switch{X: x, Default: def, Cases: cases}, Void, "")
}

func (b *Builder) Ret(x Expr) Expr {
	return b.add(&Ret{X: x}, Void, "")
}

func (b *Builder) Unreachable() Expr {
	return b.add(&Unreachable{}, Void, "")
}
