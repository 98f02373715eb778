package llimport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eipiminus1/beignet/compiler/eval"
	"github.com/eipiminus1/beignet/compiler/expand"
	"github.com/eipiminus1/beignet/compiler/ir"
	"github.com/eipiminus1/beignet/compiler/layout"
	"github.com/eipiminus1/beignet/compiler/tp"
)

const sum = `
declare void @ext(i64)

define void @sum(i128* %p, i64 %n) {
entry:
  %init = load i128, i128* %p, align 16
  br label %loop

loop:
  %i = phi i64 [ 0, %entry ], [ %i2, %loop ]
  %acc = phi i128 [ %init, %entry ], [ %next, %loop ]
  %x = zext i64 %i to i128
  %sh = shl i128 %x, 64
  %next = add i128 %acc, %sh
  %i2 = add i64 %i, 1
  %c = icmp ult i64 %i2, %n
  br i1 %c, label %loop, label %exit

exit:
  %q = getelementptr i128, i128* %p, i64 1
  store i128 %next, i128* %q, align 16
  ret void
}
`

func TestImport(t *testing.T) {
	p, err := ParseString(context.Background(), "sum.ll", sum)
	require.NoError(t, err)

	require.Len(t, p.Funcs, 1)

	f := p.Funcs[0]

	assert.Equal(t, "sum", f.Name)
	assert.Equal(t, ir.Void, f.Out)
	require.Len(t, f.In, 2)
	assert.Equal(t, tp.Ptr{Elem: tp.Int{Bits: 128}}, f.Type(f.In[0]))
	assert.Equal(t, tp.I64, f.Type(f.In[1]))

	require.Len(t, f.Blocks, 3)
	assert.Equal(t, "entry", f.Blocks[0].Name)
	assert.Len(t, f.Blocks[0].Code, 2)
	assert.Len(t, f.Blocks[1].Code, 8)
	assert.Len(t, f.Blocks[2].Code, 3)

	acc := f.Blocks[1].Code[1]
	assert.Equal(t, "acc", f.ValueName(acc))

	phi, ok := f.Node(acc).(ir.Phi)
	require.True(t, ok)
	require.Len(t, phi, 2)
	assert.Equal(t, ir.Label(1), phi[1].B)
	assert.Equal(t, "next", f.ValueName(phi[1].Expr), "forward reference")

	q := f.Blocks[2].Code[0]
	assert.Equal(t, &ir.Index{X: f.In[0], I: 1}, f.Node(q))
}

func TestImportExpandEval(t *testing.T) {
	ctx := context.Background()

	p, err := ParseString(ctx, "sum.ll", sum)
	require.NoError(t, err)

	f := p.Funcs[0]

	assert.True(t, expand.Run(ctx, f, layout.Default()))

	m := eval.New(layout.Default(), 1<<10)
	ptr := int(m.Alloc(32, 16))

	init := uint256.NewInt(0xffff_ffff_ffff_fff0)
	b := init.Bytes32()

	for i := 0; i < 16; i++ {
		m.Mem[ptr+i] = b[31-i]
	}

	_, err = m.Call(ctx, f, uint256.NewInt(uint64(ptr)), uint256.NewInt(4))
	require.NoError(t, err)

	// hi increments by 0+1+2+3
	var got [32]byte

	for i := 0; i < 16; i++ {
		got[31-i] = m.Mem[ptr+16+i]
	}

	exp := new(uint256.Int).Lsh(uint256.NewInt(6), 64)
	exp.Add(exp, init)

	assert.Equal(t, exp, new(uint256.Int).SetBytes32(got[:]))
}

func TestImportVector(t *testing.T) {
	const src = `
define <4 x i32> @split(i128 %x) {
entry:
  %v = bitcast i128 %x to <4 x i32>
  %e = extractelement <4 x i32> %v, i32 2
  %w = insertelement <4 x i32> %v, i32 %e, i32 0
  ret <4 x i32> %w
}
`

	p, err := ParseString(context.Background(), "vec.ll", src)
	require.NoError(t, err)

	f := p.Funcs[0]

	assert.Equal(t, tp.Vector{Elem: tp.I32, Len: 4}, f.Out)

	code := f.Blocks[0].Code
	require.Len(t, code, 4)

	assert.Equal(t, &ir.Cast{Op: ir.BitCast, X: f.In[0]}, f.Node(code[0]))
	assert.Equal(t, &ir.Extract{Vec: code[0], Lane: 2}, f.Node(code[1]))
	assert.Equal(t, &ir.Insert{Vec: code[0], Elem: code[1], Lane: 0}, f.Node(code[2]))
	assert.Equal(t, &ir.Ret{X: code[2]}, f.Node(code[3]))
}

func TestImportErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
	}{
		{"float", `
define double @f(double %x) {
entry:
  ret double %x
}
`},
		{"call", `
declare i64 @g()

define i64 @f() {
entry:
  %x = call i64 @g()
  ret i64 %x
}
`},
		{"gep_array", `
define i32* @f([4 x i32]* %p) {
entry:
  %q = getelementptr [4 x i32], [4 x i32]* %p, i64 0, i64 1
  ret i32* %q
}
`},
		{"gep_two_indices", `
define i32* @f(i32* %p) {
entry:
  %q = getelementptr i32, i32* %p, i64 1, i64 2
  ret i32* %q
}
`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(context.Background(), tc.name+".ll", tc.src)
			assert.Error(t, err)
		})
	}
}

func TestParseFileMalformed(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bad.ll")

	err := os.WriteFile(name, []byte(`
define i32* @f(i32* %p) {
entry:
  %q = getelementptr i32, i32* %p, i64 1, i64 2
  ret i32* %q
}
`), 0o644)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, err = ParseFile(context.Background(), name)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
