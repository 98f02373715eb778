package eval

import (
	"github.com/holiman/uint256"
	"tlog.app/go/errors"

	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/tp"
)

func (m *Machine) exec(fr *frame, id ir.Expr) (err error) {
	f := fr.f
	t := f.Type(id)
	w := tp.Bits(t)

	if w > MaxBits {
		return errors.New("%v is wider than %d bits", t, MaxBits)
	}

	var r uint256.Int

	switch x := f.Node(id).(type) {
	case *ir.Cast:
		v, err := fr.get(x.X)
		if err != nil {
			return err
		}

		switch x.Op {
		case ir.ZExt, ir.Trunc, ir.BitCast:
			r.Set(v)
		case ir.SExt:
			sext(&r, v, tp.Bits(f.Type(x.X)))
		default:
			return errors.New("unsupported cast: %v", x.Op)
		}
	case *ir.Binary:
		l, err := fr.get(x.L)
		if err != nil {
			return err
		}

		rv, err := fr.get(x.R)
		if err != nil {
			return err
		}

		err = binary(&r, x.Op, l, rv, w)
		if err != nil {
			return err
		}
	case *ir.Cmp:
		l, err := fr.get(x.L)
		if err != nil {
			return err
		}

		rv, err := fr.get(x.R)
		if err != nil {
			return err
		}

		ok, err := compare(x.Cond, l, rv, tp.Bits(f.Type(x.L)))
		if err != nil {
			return err
		}

		if ok {
			r.SetOne()
		}
	case *ir.Select:
		c, err := fr.get(x.Cond)
		if err != nil {
			return err
		}

		src := x.F
		if !c.IsZero() {
			src = x.T
		}

		v, err := fr.get(src)
		if err != nil {
			return err
		}

		r.Set(v)
	case *ir.Load:
		p, err := fr.get(x.Ptr)
		if err != nil {
			return err
		}

		err = m.load(&r, p, t.Size(), x.Align)
		if err != nil {
			return err
		}
	case *ir.Store:
		p, err := fr.get(x.Ptr)
		if err != nil {
			return err
		}

		v, err := fr.get(x.Val)
		if err != nil {
			return err
		}

		return m.store(v, p, f.Type(x.Val).Size(), x.Align)
	case *ir.Index:
		p, err := fr.get(x.X)
		if err != nil {
			return err
		}

		pt, ok := f.Type(x.X).(tp.Ptr)
		if !ok || pt.Elem == nil {
			return errors.New("index of %v", f.Type(x.X))
		}

		off := int64(x.I) * int64(m.Layout.AllocSize(pt.Elem))

		if off >= 0 {
			r.AddUint64(p, uint64(off))
		} else {
			r.SubUint64(p, uint64(-off))
		}
	case *ir.Extract:
		v, err := fr.get(x.Vec)
		if err != nil {
			return err
		}

		vt := f.Type(x.Vec).(tp.Vector)
		if x.Lane < 0 || x.Lane >= vt.Len {
			return ErrPoison
		}

		r.Rsh(v, uint(x.Lane*w))
	case *ir.Insert:
		v, err := fr.get(x.Vec)
		if err != nil {
			return err
		}

		e, err := fr.get(x.Elem)
		if err != nil {
			return err
		}

		vt := t.(tp.Vector)
		if x.Lane < 0 || x.Lane >= vt.Len {
			return ErrPoison
		}

		lw := tp.Bits(vt.Elem)
		sh := uint(x.Lane * lw)

		var lane, hole uint256.Int

		lane.Lsh(mask(e.Clone(), lw), sh)
		hole.Lsh(mask(new(uint256.Int).SetAllOne(), lw), sh)
		hole.Not(&hole)

		r.And(v, &hole)
		r.Or(&r, &lane)
	default:
		return errors.New("unsupported instruction: %T", x)
	}

	if w != 0 {
		mask(&r, w)
	}

	fr.put(id, &r)

	return nil
}

func binary(r *uint256.Int, op ir.BinOp, l, rv *uint256.Int, w int) error {
	switch op {
	case ir.Add:
		r.Add(l, rv)
	case ir.Sub:
		r.Sub(l, rv)
	case ir.Mul:
		r.Mul(l, rv)
	case ir.UDiv, ir.URem, ir.SDiv, ir.SRem:
		if rv.IsZero() {
			return ErrDivByZero
		}

		var a, b uint256.Int

		sext(&a, l, w)
		sext(&b, rv, w)

		switch op {
		case ir.UDiv:
			r.Div(l, rv)
		case ir.URem:
			r.Mod(l, rv)
		case ir.SDiv:
			r.SDiv(&a, &b)
		case ir.SRem:
			r.SMod(&a, &b)
		}
	case ir.And:
		r.And(l, rv)
	case ir.Or:
		r.Or(l, rv)
	case ir.Xor:
		r.Xor(l, rv)
	case ir.Shl, ir.LShr, ir.AShr:
		if !rv.IsUint64() || rv.Uint64() >= uint64(w) {
			return errors.Wrap(ErrPoison, "shift by %v of i%d", rv, w)
		}

		n := uint(rv.Uint64())

		switch op {
		case ir.Shl:
			r.Lsh(l, n)
		case ir.LShr:
			r.Rsh(l, n)
		case ir.AShr:
			var a uint256.Int

			sext(&a, l, w)
			r.SRsh(&a, n)
		}
	default:
		return errors.New("unsupported binary op: %v", op)
	}

	return nil
}

func compare(c ir.Cond, l, r *uint256.Int, w int) (bool, error) {
	switch c {
	case ir.EQ:
		return l.Eq(r), nil
	case ir.NE:
		return !l.Eq(r), nil
	case ir.UGT:
		return l.Gt(r), nil
	case ir.UGE:
		return !l.Lt(r), nil
	case ir.ULT:
		return l.Lt(r), nil
	case ir.ULE:
		return !l.Gt(r), nil
	}

	var a, b uint256.Int

	sext(&a, l, w)
	sext(&b, r, w)

	switch c {
	case ir.SGT:
		return a.Sgt(&b), nil
	case ir.SGE:
		return !a.Slt(&b), nil
	case ir.SLT:
		return a.Slt(&b), nil
	case ir.SLE:
		return !a.Sgt(&b), nil
	}

	return false, errors.New("unsupported condition: %v", c)
}

func (m *Machine) load(r, p *uint256.Int, size, align int) error {
	addr, err := m.access(p, size, align)
	if err != nil {
		return err
	}

	var b [32]byte

	for i := 0; i < size; i++ {
		b[31-i] = m.Mem[addr+i]
	}

	r.SetBytes(b[:])

	return nil
}

func (m *Machine) store(v, p *uint256.Int, size, align int) error {
	addr, err := m.access(p, size, align)
	if err != nil {
		return err
	}

	b := v.Bytes32()

	for i := 0; i < size; i++ {
		m.Mem[addr+i] = b[31-i]
	}

	return nil
}

func (m *Machine) access(p *uint256.Int, size, align int) (int, error) {
	if !p.IsUint64() || p.Uint64() > uint64(len(m.Mem)) || int(p.Uint64())+size > len(m.Mem) {
		return 0, errors.Wrap(ErrOutOfMem, "addr %v size %d", p, size)
	}

	addr := int(p.Uint64())

	if addr == 0 {
		return 0, errors.Wrap(ErrOutOfMem, "nil pointer")
	}

	if align != 0 && addr%align != 0 {
		return 0, errors.Wrap(ErrMisalign, "addr %d align %d", addr, align)
	}

	return addr, nil
}

// mask clears all the bits starting from w.
func mask(x *uint256.Int, w int) *uint256.Int {
	if w <= 0 || w >= MaxBits {
		return x
	}

	var m uint256.Int

	m.Lsh(m.SetOne(), uint(w))
	m.SubUint64(&m, 1)

	return x.And(x, &m)
}

// sext sets r to x of width w sign extended to 256 bits.
func sext(r, x *uint256.Int, w int) *uint256.Int {
	r.Set(x)

	if w <= 0 || w >= MaxBits || r.Rsh(x, uint(w-1)).Uint64()&1 == 0 {
		return mask(r.Set(x), w)
	}

	var hi uint256.Int

	hi.Lsh(hi.SetAllOne(), uint(w))

	return r.Or(mask(r.Set(x), w), &hi)
}
