package ir

import (
	"math/big"

	"tlog.app/go/tlog/tlwire"

	"github.com/eipiminus1/beignet/compiler/tp"
)

type (
	Expr  int
	Label int

	Cond   string
	CastOp string
	BinOp  string

	Package struct {
		Path string

		Funcs []*Func
	}

	Func struct {
		Name string

		In  []Expr
		Out tp.Type

		Exprs []any     `tlog:"-"`
		EType []tp.Type `tlog:"-"`
		Names []string  `tlog:"-"`
		Where []Label   `tlog:"-"`

		Blocks []*Block

		used map[string]int
	}

	Block struct {
		Name string

		Code []Expr
	}

	// Param is the N-th function argument.
	Param int

	Imm struct {
		X *big.Int
	}

	Undef struct{}

	Phi []PhiBranch

	PhiBranch struct {
		B    Label
		Expr Expr
	}

	Cast struct {
		Op CastOp
		X  Expr
	}

	Binary struct {
		Op   BinOp
		L, R Expr
	}

	Cmp struct {
		Cond Cond
		L, R Expr
	}

	Select struct {
		Cond Expr
		T, F Expr
	}

	Load struct {
		Ptr   Expr
		Align int
	}

	Store struct {
		Val   Expr
		Ptr   Expr
		Align int
	}

	// Index is the address I elements past X, element type taken from X's pointer type.
	Index struct {
		X Expr
		I int
	}

	Extract struct {
		Vec  Expr
		Lane int
	}

	Insert struct {
		Vec  Expr
		Elem Expr
		Lane int
	}

	B struct {
		Label Label
	}

	BCond struct {
		Expr Expr
		Then Label
		Else Label
	}

	Switch struct {
		X       Expr
		Default Label
		Cases   []SwitchCase
	}

	SwitchCase struct {
		Val   Expr
		Label Label
	}

	Ret struct {
		X Expr
	}

	Unreachable struct{}
)

type (
	Iner interface {
		In() []*Expr
	}

	Terminator interface {
		Succs() []Label
	}
)

const (
	Nil     Expr  = -1
	NoBlock Label = -1
)

const (
	ZExt    CastOp = "zext"
	SExt    CastOp = "sext"
	Trunc   CastOp = "trunc"
	BitCast CastOp = "bitcast"
)

const (
	Add  BinOp = "add"
	Sub  BinOp = "sub"
	Mul  BinOp = "mul"
	UDiv BinOp = "udiv"
	SDiv BinOp = "sdiv"
	URem BinOp = "urem"
	SRem BinOp = "srem"
	And  BinOp = "and"
	Or   BinOp = "or"
	Xor  BinOp = "xor"
	Shl  BinOp = "shl"
	LShr BinOp = "lshr"
	AShr BinOp = "ashr"
)

const (
	EQ  Cond = "eq"
	NE  Cond = "ne"
	UGT Cond = "ugt"
	UGE Cond = "uge"
	ULT Cond = "ult"
	ULE Cond = "ule"
	SGT Cond = "sgt"
	SGE Cond = "sge"
	SLT Cond = "slt"
	SLE Cond = "sle"
)

var Void tp.Type = tp.Void{}

func (x Phi) In() []*Expr {
	l := make([]*Expr, len(x))

	for i := range x {
		l[i] = &x[i].Expr
	}

	return l
}

func (x *Cast) In() []*Expr    { return []*Expr{&x.X} }
func (x *Binary) In() []*Expr  { return []*Expr{&x.L, &x.R} }
func (x *Cmp) In() []*Expr     { return []*Expr{&x.L, &x.R} }
func (x *Select) In() []*Expr  { return []*Expr{&x.Cond, &x.T, &x.F} }
func (x *Load) In() []*Expr    { return []*Expr{&x.Ptr} }
func (x *Store) In() []*Expr   { return []*Expr{&x.Val, &x.Ptr} }
func (x *Index) In() []*Expr   { return []*Expr{&x.X} }
func (x *Extract) In() []*Expr { return []*Expr{&x.Vec} }
func (x *Insert) In() []*Expr  { return []*Expr{&x.Vec, &x.Elem} }
func (x *BCond) In() []*Expr   { return []*Expr{&x.Expr} }

func (x *Ret) In() []*Expr {
	if x.X == Nil {
		return nil
	}

	return []*Expr{&x.X}
}

func (x *Switch) In() []*Expr {
	l := []*Expr{&x.X}

	for i := range x.Cases {
		l = append(l, &x.Cases[i].Val)
	}

	return l
}

func (x *B) Succs() []Label           { return []Label{x.Label} }
func (x *BCond) Succs() []Label       { return []Label{x.Then, x.Else} }
func (x *Ret) Succs() []Label         { return nil }
func (x *Unreachable) Succs() []Label { return nil }

func (x *Switch) Succs() []Label {
	l := []Label{x.Default}

	for _, c := range x.Cases {
		l = append(l, c.Label)
	}

	return l
}

func (p PhiBranch) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "b", int(p.B))
	b = e.AppendKeyInt(b, "id", int(p.Expr))

	return b
}
