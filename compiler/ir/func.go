package ir

import (
	"math/big"
	"strconv"

	"github.com/eipiminus1/beignet/compiler/tp"
)

func NewFunc(name string, out tp.Type) *Func {
	if out == nil {
		out = Void
	}

	return &Func{
		Name: name,
		Out:  out,
	}
}

func (f *Func) Alloc(x any, t tp.Type, name string) Expr {
	id := Expr(len(f.Exprs))

	f.Exprs = append(f.Exprs, x)
	f.EType = append(f.EType, t)
	f.Names = append(f.Names, f.uniqueName(name))
	f.Where = append(f.Where, NoBlock)

	return id
}

func (f *Func) AddParam(t tp.Type, name string) Expr {
	id := f.Alloc(Param(len(f.In)), t, name)
	f.In = append(f.In, id)

	return id
}

// Const returns a new integer literal. x is wrapped to the width of t.
func (f *Func) Const(t tp.Int, x *big.Int) Expr {
	return f.Alloc(Imm{X: Wrap(x, t.Bits)}, t, "")
}

func (f *Func) ConstUint64(t tp.Int, x uint64) Expr {
	return f.Const(t, new(big.Int).SetUint64(x))
}

func (f *Func) Undef(t tp.Type) Expr {
	return f.Alloc(Undef{}, t, "")
}

func (f *Func) NewBlock(name string) Label {
	l := Label(len(f.Blocks))
	f.Blocks = append(f.Blocks, &Block{Name: name})

	return l
}

func (f *Func) Type(id Expr) tp.Type     { return f.EType[id] }
func (f *Func) ValueName(id Expr) string { return f.Names[id] }
func (f *Func) Node(id Expr) any         { return f.Exprs[id] }
func (f *Func) Block(id Expr) Label      { return f.Where[id] }

// IsInst reports whether id is an instruction placed in a block.
func (f *Func) IsInst(id Expr) bool {
	return id >= 0 && f.Where[id] != NoBlock
}

func (f *Func) IsConst(id Expr) bool {
	switch f.Exprs[id].(type) {
	case Imm, Undef:
		return true
	}

	return false
}

// IsErased reports whether id was an instruction and is gone now.
func (f *Func) IsErased(id Expr) bool {
	return f.Exprs[id] == nil
}

// Insert places a new instruction at position pos of block l.
func (f *Func) Insert(l Label, pos int, x any, t tp.Type, name string) Expr {
	id := f.Alloc(x, t, name)
	f.Where[id] = l

	b := f.Blocks[l]

	b.Code = append(b.Code, Nil)
	copy(b.Code[pos+1:], b.Code[pos:])
	b.Code[pos] = id

	return id
}

// Append places an already allocated value at the end of block l.
func (f *Func) Append(l Label, id Expr) {
	f.Where[id] = l
	f.Blocks[l].Code = append(f.Blocks[l].Code, id)
}

// Pos returns id position in its block or -1.
func (f *Func) Pos(id Expr) int {
	l := f.Where[id]
	if l == NoBlock {
		return -1
	}

	for i, x := range f.Blocks[l].Code {
		if x == id {
			return i
		}
	}

	return -1
}

func (f *Func) Term(l Label) Terminator {
	code := f.Blocks[l].Code
	if len(code) == 0 {
		return nil
	}

	t, _ := f.Exprs[code[len(code)-1]].(Terminator)

	return t
}

func (f *Func) Succs(l Label) []Label {
	t := f.Term(l)
	if t == nil {
		return nil
	}

	return t.Succs()
}

func (f *Func) Preds() [][]Label {
	preds := make([][]Label, len(f.Blocks))

	for l := range f.Blocks {
		for _, s := range f.Succs(Label(l)) {
			preds[s] = append(preds[s], Label(l))
		}
	}

	return preds
}

func (f *Func) AddIncoming(phi, x Expr, from Label) {
	p := f.Exprs[phi].(Phi)
	f.Exprs[phi] = append(p, PhiBranch{B: from, Expr: x})
}

func (f *Func) SetIncoming(phi Expr, i int, x Expr) {
	p := f.Exprs[phi].(Phi)
	p[i].Expr = x
}

// Args returns operands of id. Constants, params and erased values have none.
func (f *Func) Args(id Expr) []*Expr {
	x, ok := f.Exprs[id].(Iner)
	if !ok {
		return nil
	}

	return x.In()
}

// ReplaceAllUses redirects every operand referring to from to refer to to.
func (f *Func) ReplaceAllUses(from, to Expr) {
	for _, b := range f.Blocks {
		for _, id := range b.Code {
			for _, a := range f.Args(id) {
				if *a == from {
					*a = to
				}
			}
		}
	}
}

func (f *Func) Uses(x Expr) (l []Expr) {
	for _, b := range f.Blocks {
		for _, id := range b.Code {
			for _, a := range f.Args(id) {
				if *a == x {
					l = append(l, id)
					break
				}
			}
		}
	}

	return l
}

// uniqueName appends a counter to already taken names: x, x1, x2.
func (f *Func) uniqueName(name string) string {
	if name == "" {
		return ""
	}

	if f.used == nil {
		f.used = make(map[string]int)
	}

	n, ok := f.used[name]
	if !ok {
		f.used[name] = 1
		return name
	}

	for {
		cand := name + strconv.Itoa(n)
		n++

		if _, ok := f.used[cand]; ok {
			continue
		}

		f.used[name] = n
		f.used[cand] = 1

		return cand
	}
}

func (f *Func) TakeName(to, from Expr) {
	f.Names[to] = f.Names[from]
	f.Names[from] = ""
}

func (f *Func) DropReferences(id Expr) {
	for _, a := range f.Args(id) {
		*a = Nil
	}
}

// Erase removes the instruction from its block and leaves a tombstone in the arena.
func (f *Func) Erase(id Expr) {
	if pos := f.Pos(id); pos >= 0 {
		b := f.Blocks[f.Where[id]]
		b.Code = append(b.Code[:pos], b.Code[pos+1:]...)
	}

	f.Exprs[id] = nil
	f.Where[id] = NoBlock
}

// Wrap truncates x to bits and returns it as an unsigned value.
func Wrap(x *big.Int, bits int) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	m.Sub(m, big.NewInt(1))

	return new(big.Int).And(x, m)
}
