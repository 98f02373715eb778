package eval

import (
	"context"

	"github.com/holiman/uint256"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/layout"
	"github.com/eipiminus1/beignet/compiler/set"
	"github.com/eipiminus1/beignet/compiler/tp"
)

type (
	// Machine interprets ir.Func.
	//
	// Every value is a bit pattern of up to 256 bits.
	// Vectors are packed with lane 0 in the least significant bits,
	// so bitcasts between integers and vectors keep the value as is.
	// Pointers are offsets into Mem. Memory is little-endian.
	Machine struct {
		Layout *layout.Layout

		Mem []byte
		top int

		MaxSteps int
	}

	frame struct {
		f    *ir.Func
		args []*uint256.Int

		vals []uint256.Int
		set  set.Bits[ir.Expr]
	}
)

const MaxBits = 256

var (
	ErrPoison    = errors.New("poison value")
	ErrMisalign  = errors.New("misaligned access")
	ErrOutOfMem  = errors.New("memory access out of range")
	ErrDivByZero = errors.New("division by zero")
	ErrSteps     = errors.New("steps limit exceeded")
)

func New(l *layout.Layout, memSize int) *Machine {
	if l == nil {
		l = layout.Default()
	}

	return &Machine{
		Layout:   l,
		Mem:      make([]byte, memSize),
		MaxSteps: 1_000_000,
	}
}

// Alloc reserves size bytes aligned to align and returns the address.
// Address 0 is never returned.
func (m *Machine) Alloc(size, align int) uint64 {
	if align <= 0 {
		align = 1
	}

	if m.top == 0 {
		m.top = 1
	}

	m.top = (m.top + align - 1) / align * align
	addr := m.top
	m.top += size

	if m.top > len(m.Mem) {
		m.Mem = append(m.Mem, make([]byte, m.top-len(m.Mem))...)
	}

	return uint64(addr)
}

// Call runs f with the args and returns its result.
// Void functions return nil.
func (m *Machine) Call(ctx context.Context, f *ir.Func, args ...*uint256.Int) (res *uint256.Int, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "eval: call", "name", f.Name, "args", len(args))
	defer tr.Finish("err", &err)

	if len(args) != len(f.In) {
		return nil, errors.New("%v: expected %d args, got %d", f.Name, len(f.In), len(args))
	}

	if len(f.Blocks) == 0 {
		return nil, errors.New("%v: no blocks", f.Name)
	}

	fr := &frame{
		f:    f,
		args: make([]*uint256.Int, len(args)),
		vals: make([]uint256.Int, len(f.Exprs)),
		set:  set.MakeBits[ir.Expr](),
	}

	for i, a := range args {
		fr.args[i] = mask(a.Clone(), tp.Bits(f.Type(f.In[i])))
	}

	prev, cur := ir.NoBlock, ir.Label(0)

	for steps := 0; ; steps++ {
		if m.MaxSteps != 0 && steps >= m.MaxSteps {
			return nil, ErrSteps
		}

		next, res, done, err := m.runBlock(fr, prev, cur)
		if err != nil {
			return nil, errors.Wrap(err, "%v: block %d", f.Name, cur)
		}

		if done {
			if tr.If("eval_result") {
				tr.Printw("result", "name", f.Name, "res", res, "steps", steps)
			}

			return res, nil
		}

		prev, cur = cur, next
	}
}

func (m *Machine) runBlock(fr *frame, prev, cur ir.Label) (next ir.Label, res *uint256.Int, done bool, err error) {
	f := fr.f
	code := f.Blocks[cur].Code

	// phis read their inputs all at once
	i := 0
	var phis []uint256.Int

	for ; i < len(code); i++ {
		p, ok := f.Node(code[i]).(ir.Phi)
		if !ok {
			break
		}

		v, err := fr.phi(p, prev)
		if err != nil {
			return 0, nil, false, errors.Wrap(err, "phi %d", code[i])
		}

		phis = append(phis, *v)
	}

	for j, v := range phis {
		fr.put(code[j], &v)
	}

	for ; i < len(code); i++ {
		id := code[i]

		switch x := f.Node(id).(type) {
		case *ir.B:
			return x.Label, nil, false, nil
		case *ir.BCond:
			c, err := fr.get(x.Expr)
			if err != nil {
				return 0, nil, false, err
			}

			if !c.IsZero() {
				return x.Then, nil, false, nil
			}

			return x.Else, nil, false, nil
		case *ir.Switch:
			v, err := fr.get(x.X)
			if err != nil {
				return 0, nil, false, err
			}

			for _, c := range x.Cases {
				cv, err := fr.get(c.Val)
				if err != nil {
					return 0, nil, false, err
				}

				if v.Eq(cv) {
					return c.Label, nil, false, nil
				}
			}

			return x.Default, nil, false, nil
		case *ir.Ret:
			if x.X == ir.Nil {
				return 0, nil, true, nil
			}

			v, err := fr.get(x.X)
			if err != nil {
				return 0, nil, false, err
			}

			return 0, v.Clone(), true, nil
		case *ir.Unreachable:
			return 0, nil, false, errors.New("unreachable executed")
		}

		err = m.exec(fr, id)
		if err != nil {
			return 0, nil, false, errors.Wrap(err, "inst %d", id)
		}
	}

	return 0, nil, false, errors.New("no terminator")
}

func (fr *frame) phi(p ir.Phi, prev ir.Label) (*uint256.Int, error) {
	for _, br := range p {
		if br.B == prev {
			return fr.get(br.Expr)
		}
	}

	return nil, errors.New("no incoming value from block %d", prev)
}

func (fr *frame) put(id ir.Expr, v *uint256.Int) {
	fr.vals[id].Set(v)
	fr.set.Set(id)
}

func (fr *frame) get(id ir.Expr) (*uint256.Int, error) {
	if id == ir.Nil || fr.f.IsErased(id) {
		return nil, errors.New("reference to erased value %d", id)
	}

	switch x := fr.f.Node(id).(type) {
	case ir.Imm:
		v, overflow := uint256.FromBig(x.X)
		if overflow {
			return nil, errors.New("constant is wider than %d bits", MaxBits)
		}

		return v, nil
	case ir.Undef:
		return new(uint256.Int), nil
	case ir.Param:
		return fr.args[x], nil
	}

	if !fr.set.IsSet(id) {
		return nil, errors.New("value %d used before defined", id)
	}

	return &fr.vals[id], nil
}
