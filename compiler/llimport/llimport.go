package llimport

import (
	"context"

	"github.com/llir/llvm/asm"
	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/tp"
)

type (
	funcImporter struct {
		src *llir.Func
		f   *ir.Func

		vals   map[value.Value]ir.Expr
		blocks map[*llir.Block]ir.Label
	}

	operander interface {
		Operands() []*value.Value
	}
)

func ParseFile(ctx context.Context, name string) (*ir.Package, error) {
	m, err := parse(func() (*llir.Module, error) {
		return asm.ParseFile(name)
	})
	if err != nil {
		return nil, err
	}

	return Module(ctx, name, m)
}

func ParseString(ctx context.Context, name, src string) (*ir.Package, error) {
	m, err := parse(func() (*llir.Module, error) {
		return asm.ParseString(name, src)
	})
	if err != nil {
		return nil, err
	}

	return Module(ctx, name, m)
}

// parse converts llir panics on malformed input into errors.
func parse(fn func() (*llir.Module, error)) (m *llir.Module, err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}

		m, err = nil, errors.New("parse: %v", p)
	}()

	m, err = fn()
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	return m, nil
}

// Module converts all the defined functions of m.
// Declarations are skipped.
func Module(ctx context.Context, path string, m *llir.Module) (p *ir.Package, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "llimport: module", "path", path, "funcs", len(m.Funcs))
	defer tr.Finish("err", &err)

	p = &ir.Package{Path: path}

	for _, src := range m.Funcs {
		if len(src.Blocks) == 0 {
			continue
		}

		f, err := Func(ctx, src)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", src.Name())
		}

		p.Funcs = append(p.Funcs, f)
	}

	return p, nil
}

func Func(ctx context.Context, src *llir.Func) (_ *ir.Func, err error) {
	out, err := typ(src.Sig.RetType)
	if err != nil {
		return nil, errors.Wrap(err, "result")
	}

	fi := &funcImporter{
		src:    src,
		f:      ir.NewFunc(src.Name(), out),
		vals:   make(map[value.Value]ir.Expr),
		blocks: make(map[*llir.Block]ir.Label),
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("llimport_func") {
		tr.Printw("import func", "name", src.Name(), "params", len(src.Params), "blocks", len(src.Blocks))
	}

	f := fi.f

	for _, p := range src.Params {
		t, err := typ(p.Type())
		if err != nil {
			return nil, errors.Wrap(err, "param %v", p.Name())
		}

		fi.vals[p] = f.AddParam(t, p.Name())
	}

	for _, b := range src.Blocks {
		fi.blocks[b] = f.NewBlock(b.Name())
	}

	// all the instructions get ids first so forward references resolve
	for _, b := range src.Blocks {
		for _, inst := range b.Insts {
			v, ok := inst.(value.Value)
			if !ok {
				continue
			}

			if _, ok := inst.(*llir.InstStore); ok {
				continue
			}

			t, err := typ(v.Type())
			if err != nil {
				return nil, errors.Wrap(err, "block %v: %v", b.Name(), inst.LLString())
			}

			fi.vals[v] = f.Alloc(nil, t, localName(v))
		}
	}

	for _, b := range src.Blocks {
		l := fi.blocks[b]

		for _, inst := range b.Insts {
			err = fi.inst(l, inst)
			if err != nil {
				return nil, errors.Wrap(err, "block %v: %v", b.Name(), inst.LLString())
			}
		}

		err = fi.term(l, b.Term)
		if err != nil {
			return nil, errors.Wrap(err, "block %v: %v", b.Name(), b.Term.LLString())
		}
	}

	return f, nil
}

func (fi *funcImporter) inst(l ir.Label, inst llir.Instruction) (err error) {
	f := fi.f

	if s, ok := inst.(*llir.InstStore); ok {
		val, err := fi.value(s.Src)
		if err != nil {
			return err
		}

		ptr, err := fi.value(s.Dst)
		if err != nil {
			return err
		}

		f.At(l).Store(val, ptr, int(s.Align))

		return nil
	}

	v, ok := inst.(value.Value)
	if !ok {
		return errors.New("unsupported instruction")
	}

	id := fi.vals[v]

	var node any

	switch x := inst.(type) {
	case *llir.InstPhi:
		phi := make(ir.Phi, 0, len(x.Incs))

		for _, inc := range x.Incs {
			in, err := fi.value(inc.X)
			if err != nil {
				return err
			}

			pred, err := fi.block(inc.Pred)
			if err != nil {
				return err
			}

			phi = append(phi, ir.PhiBranch{B: pred, Expr: in})
		}

		node = phi
	case *llir.InstZExt:
		node, err = fi.cast(ir.ZExt, x.From)
	case *llir.InstSExt:
		node, err = fi.cast(ir.SExt, x.From)
	case *llir.InstTrunc:
		node, err = fi.cast(ir.Trunc, x.From)
	case *llir.InstBitCast:
		node, err = fi.cast(ir.BitCast, x.From)
	case *llir.InstAdd:
		node, err = fi.binary(ir.Add, x.X, x.Y)
	case *llir.InstSub:
		node, err = fi.binary(ir.Sub, x.X, x.Y)
	case *llir.InstMul:
		node, err = fi.binary(ir.Mul, x.X, x.Y)
	case *llir.InstUDiv:
		node, err = fi.binary(ir.UDiv, x.X, x.Y)
	case *llir.InstSDiv:
		node, err = fi.binary(ir.SDiv, x.X, x.Y)
	case *llir.InstURem:
		node, err = fi.binary(ir.URem, x.X, x.Y)
	case *llir.InstSRem:
		node, err = fi.binary(ir.SRem, x.X, x.Y)
	case *llir.InstAnd:
		node, err = fi.binary(ir.And, x.X, x.Y)
	case *llir.InstOr:
		node, err = fi.binary(ir.Or, x.X, x.Y)
	case *llir.InstXor:
		node, err = fi.binary(ir.Xor, x.X, x.Y)
	case *llir.InstShl:
		node, err = fi.binary(ir.Shl, x.X, x.Y)
	case *llir.InstLShr:
		node, err = fi.binary(ir.LShr, x.X, x.Y)
	case *llir.InstAShr:
		node, err = fi.binary(ir.AShr, x.X, x.Y)
	case *llir.InstICmp:
		node, err = fi.icmp(x)
	case *llir.InstSelect:
		ops, err := fi.operands(x, 3)
		if err != nil {
			return err
		}

		node = &ir.Select{Cond: ops[0], T: ops[1], F: ops[2]}
	case *llir.InstLoad:
		ptr, err := fi.value(x.Src)
		if err != nil {
			return err
		}

		node = &ir.Load{Ptr: ptr, Align: int(x.Align)}
	case *llir.InstGetElementPtr:
		node, err = fi.gep(l, x)
	case *llir.InstExtractElement:
		vec, err := fi.value(x.X)
		if err != nil {
			return err
		}

		lane, err := constIndex(x.Index)
		if err != nil {
			return err
		}

		node = &ir.Extract{Vec: vec, Lane: lane}
	case *llir.InstInsertElement:
		vec, err := fi.value(x.X)
		if err != nil {
			return err
		}

		elem, err := fi.value(x.Elem)
		if err != nil {
			return err
		}

		lane, err := constIndex(x.Index)
		if err != nil {
			return err
		}

		node = &ir.Insert{Vec: vec, Elem: elem, Lane: lane}
	default:
		return errors.New("unsupported instruction: %T", x)
	}

	if err != nil {
		return err
	}

	f.Exprs[id] = node
	f.Append(l, id)

	return nil
}

func (fi *funcImporter) term(l ir.Label, t llir.Terminator) error {
	b := fi.f.At(l)

	switch x := t.(type) {
	case *llir.TermRet:
		if x.X == nil {
			b.Ret(ir.Nil)
			return nil
		}

		v, err := fi.value(x.X)
		if err != nil {
			return err
		}

		b.Ret(v)
	case *llir.TermBr:
		to, err := fi.block(x.Target)
		if err != nil {
			return err
		}

		b.Br(to)
	case *llir.TermCondBr:
		c, err := fi.value(x.Cond)
		if err != nil {
			return err
		}

		then, err := fi.block(x.TargetTrue)
		if err != nil {
			return err
		}

		els, err := fi.block(x.TargetFalse)
		if err != nil {
			return err
		}

		b.BrCond(c, then, els)
	case *llir.TermSwitch:
		v, err := fi.value(x.X)
		if err != nil {
			return err
		}

		def, err := fi.block(x.TargetDefault)
		if err != nil {
			return err
		}

		cases := make([]ir.SwitchCase, len(x.Cases))

		for i, c := range x.Cases {
			cv, err := fi.value(c.X)
			if err != nil {
				return err
			}

			to, err := fi.block(c.Target)
			if err != nil {
				return err
			}

			cases[i] = ir.SwitchCase{Val: cv, Label: to}
		}

		b.Switch(v, def, cases...)
	case *llir.TermUnreachable:
		b.Unreachable()
	default:
		return errors.New("unsupported terminator: %T", x)
	}

	return nil
}

func (fi *funcImporter) value(v value.Value) (ir.Expr, error) {
	f := fi.f

	switch c := v.(type) {
	case *constant.Int:
		return f.Const(tp.Int{Bits: int(c.Typ.BitSize)}, c.X), nil
	case *constant.Undef:
		t, err := typ(c.Typ)
		if err != nil {
			return ir.Nil, err
		}

		return f.Undef(t), nil
	}

	if id, ok := fi.vals[v]; ok {
		return id, nil
	}

	return ir.Nil, errors.New("unsupported value: %T %v", v, v.Ident())
}

func (fi *funcImporter) operands(x operander, n int) ([]ir.Expr, error) {
	ops := x.Operands()
	if len(ops) != n {
		return nil, errors.New("expected %d operands, got %d", n, len(ops))
	}

	r := make([]ir.Expr, n)

	for i, op := range ops {
		id, err := fi.value(*op)
		if err != nil {
			return nil, err
		}

		r[i] = id
	}

	return r, nil
}

func (fi *funcImporter) cast(op ir.CastOp, from value.Value) (any, error) {
	x, err := fi.value(from)
	if err != nil {
		return nil, err
	}

	return &ir.Cast{Op: op, X: x}, nil
}

func (fi *funcImporter) binary(op ir.BinOp, l, r value.Value) (any, error) {
	lx, err := fi.value(l)
	if err != nil {
		return nil, err
	}

	rx, err := fi.value(r)
	if err != nil {
		return nil, err
	}

	return &ir.Binary{Op: op, L: lx, R: rx}, nil
}

var preds = map[enum.IPred]ir.Cond{
	enum.IPredEQ:  ir.EQ,
	enum.IPredNE:  ir.NE,
	enum.IPredUGT: ir.UGT,
	enum.IPredUGE: ir.UGE,
	enum.IPredULT: ir.ULT,
	enum.IPredULE: ir.ULE,
	enum.IPredSGT: ir.SGT,
	enum.IPredSGE: ir.SGE,
	enum.IPredSLT: ir.SLT,
	enum.IPredSLE: ir.SLE,
}

func (fi *funcImporter) icmp(x *llir.InstICmp) (any, error) {
	c, ok := preds[x.Pred]
	if !ok {
		return nil, errors.New("unsupported predicate: %v", x.Pred)
	}

	if _, ok := x.X.Type().(*types.IntType); !ok {
		return nil, errors.New("unsupported comparison of %v", x.X.Type())
	}

	l, err := fi.value(x.X)
	if err != nil {
		return nil, err
	}

	r, err := fi.value(x.Y)
	if err != nil {
		return nil, err
	}

	return &ir.Cmp{Cond: c, L: l, R: r}, nil
}

// gep supports a single constant index only.
// The source is bitcast to the element type first if it doesn't match.
func (fi *funcImporter) gep(l ir.Label, x *llir.InstGetElementPtr) (any, error) {
	if len(x.Indices) != 1 {
		return nil, errors.New("unsupported getelementptr with %d indices", len(x.Indices))
	}

	i, err := constIndex(x.Indices[0])
	if err != nil {
		return nil, err
	}

	src, err := fi.value(x.Src)
	if err != nil {
		return nil, err
	}

	st, ok := fi.f.Type(src).(tp.Ptr)
	if !ok {
		return nil, errors.New("getelementptr of %v", fi.f.Type(src))
	}

	et, err := typ(x.ElemType)
	if err != nil {
		return nil, err
	}

	if st.Elem != et {
		src = fi.f.At(l).BitCast(src, tp.Ptr{Elem: et, AddrSpace: st.AddrSpace}, "")
	}

	return &ir.Index{X: src, I: i}, nil
}

func (fi *funcImporter) block(v any) (ir.Label, error) {
	b, ok := v.(*llir.Block)
	if !ok {
		return ir.NoBlock, errors.New("block expected, got %T", v)
	}

	l, ok := fi.blocks[b]
	if !ok {
		return ir.NoBlock, errors.New("block %v is not in the function", b.Name())
	}

	return l, nil
}

func constIndex(v value.Value) (int, error) {
	c, ok := v.(*constant.Int)
	if !ok || !c.X.IsInt64() {
		return 0, errors.New("constant index expected: %v", v.Ident())
	}

	return int(c.X.Int64()), nil
}

func typ(t types.Type) (tp.Type, error) {
	switch t := t.(type) {
	case *types.VoidType:
		return ir.Void, nil
	case *types.IntType:
		return tp.Int{Bits: int(t.BitSize)}, nil
	case *types.VectorType:
		et, err := typ(t.ElemType)
		if err != nil {
			return nil, err
		}

		return tp.Vector{Elem: et, Len: int(t.Len)}, nil
	case *types.PointerType:
		var et tp.Type

		if t.ElemType != nil {
			var err error

			et, err = typ(t.ElemType)
			if err != nil {
				return nil, err
			}
		}

		return tp.Ptr{Elem: et, AddrSpace: int(t.AddrSpace)}, nil
	default:
		return nil, errors.New("unsupported type: %v", t)
	}
}

func localName(v value.Value) string {
	n, ok := v.(value.Named)
	if !ok {
		return ""
	}

	if id, ok := n.(interface{ IsUnnamed() bool }); ok && id.IsUnnamed() {
		return ""
	}

	return n.Name()
}
