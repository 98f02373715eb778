package tp

import (
	"fmt"
)

type (
	Type interface {
		Size() int
		String() string
	}

	Void struct{}

	Int struct {
		Bits int
	}

	Vector struct {
		Elem Type
		Len  int
	}

	Ptr struct {
		Elem      Type
		AddrSpace int
	}
)

var (
	I1  = Int{Bits: 1}
	I8  = Int{Bits: 8}
	I16 = Int{Bits: 16}
	I32 = Int{Bits: 32}
	I64 = Int{Bits: 64}
)

func (x Void) Size() int { return 0 }

// Size is the store size in bytes.
func (x Int) Size() int {
	return (x.Bits + 7) / 8
}

func (x Vector) Size() int {
	return (Bits(x) + 7) / 8
}

func (x Ptr) Size() int {
	return 8
}

func (x Void) String() string { return "void" }
func (x Int) String() string  { return fmt.Sprintf("i%d", x.Bits) }

func (x Vector) String() string {
	return fmt.Sprintf("<%d x %v>", x.Len, x.Elem)
}

func (x Ptr) String() string {
	if x.Elem == nil {
		return "ptr"
	}

	if x.AddrSpace != 0 {
		return fmt.Sprintf("%v addrspace(%d)*", x.Elem, x.AddrSpace)
	}

	return fmt.Sprintf("%v*", x.Elem)
}

// Bits returns the primitive size in bits. Pointers and void have none.
func Bits(t Type) int {
	switch t := t.(type) {
	case Int:
		return t.Bits
	case Vector:
		return Bits(t.Elem) * t.Len
	default:
		return 0
	}
}

func IsInt(t Type) bool {
	_, ok := t.(Int)
	return ok
}

func IsVector(t Type) bool {
	_, ok := t.(Vector)
	return ok
}

func IsPtr(t Type) bool {
	_, ok := t.(Ptr)
	return ok
}
