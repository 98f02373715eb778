package ir

import "github.com/eipiminus1/beignet/compiler/set"

// ReversePostorder lists blocks reachable from the entry block.
// Each block comes after all its predecessors except those reached by a back edge.
func (f *Func) ReversePostorder() []Label {
	if len(f.Blocks) == 0 {
		return nil
	}

	type frame struct {
		l     Label
		succs []Label
	}

	visited := set.MakeBits[Label]()
	post := make([]Label, 0, len(f.Blocks))

	visited.Set(0)
	stack := []frame{{l: 0, succs: f.Succs(0)}}

	for len(stack) != 0 {
		top := &stack[len(stack)-1]

		if len(top.succs) == 0 {
			post = append(post, top.l)
			stack = stack[:len(stack)-1]

			continue
		}

		s := top.succs[0]
		top.succs = top.succs[1:]

		if visited.TestAndSet(s) {
			continue
		}

		stack = append(stack, frame{l: s, succs: f.Succs(s)})
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}

	return post
}
