package layout

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"tlog.app/go/errors"

	"github.com/eipiminus1/beignet/compiler/tp"
)

type (
	// Layout answers the target questions the expansion needs:
	// preferred alignments and pointer sizes.
	Layout struct {
		PointerBits int `toml:"pointer-bits"`
		MaxIntAlign int `toml:"max-int-align"`
		VectorAlign int `toml:"vector-align"`

		AddrSpaces []AddrSpace `toml:"address-space"`
	}

	AddrSpace struct {
		ID          int `toml:"id"`
		PointerBits int `toml:"pointer-bits"`
	}
)

func Default() *Layout {
	return &Layout{
		PointerBits: 64,
		MaxIntAlign: 16,
		VectorAlign: 16,
	}
}

func Load(name string) (*Layout, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(data)
}

// Parse decodes a TOML layout. Missing keys keep Default values.
func Parse(data []byte) (*Layout, error) {
	l := Default()

	err := toml.Unmarshal(data, l)
	if err != nil {
		return nil, errors.Wrap(err, "decode toml")
	}

	if l.PointerBits <= 0 || l.PointerBits%8 != 0 {
		return nil, errors.New("bad pointer-bits: %d", l.PointerBits)
	}

	if !isPow2(l.MaxIntAlign) || !isPow2(l.VectorAlign) {
		return nil, errors.New("alignment must be a power of two: int %d, vector %d", l.MaxIntAlign, l.VectorAlign)
	}

	for _, as := range l.AddrSpaces {
		if as.PointerBits <= 0 || as.PointerBits%8 != 0 {
			return nil, errors.New("address space %d: bad pointer-bits: %d", as.ID, as.PointerBits)
		}
	}

	return l, nil
}

// PointerSize returns 0 for an address space the layout doesn't know.
// Address space 0 is always known. With no address spaces listed
// all of them share PointerBits.
func (l *Layout) PointerSize(addrSpace int) int {
	for _, as := range l.AddrSpaces {
		if as.ID == addrSpace {
			return as.PointerBits / 8
		}
	}

	if addrSpace != 0 && len(l.AddrSpaces) != 0 {
		return 0
	}

	return l.PointerBits / 8
}

// PrefAlign is the alignment in bytes used when an access doesn't specify one.
func (l *Layout) PrefAlign(t tp.Type) int {
	switch t := t.(type) {
	case tp.Int:
		return min(pow2Ceil(t.Size()), l.MaxIntAlign)
	case tp.Vector:
		return min(pow2Ceil(t.Size()), l.VectorAlign)
	case tp.Ptr:
		return l.PointerSize(t.AddrSpace)
	default:
		return 1
	}
}

// AllocSize is the distance in bytes between consecutive elements of type t.
func (l *Layout) AllocSize(t tp.Type) int {
	switch t := t.(type) {
	case tp.Ptr:
		return l.PointerSize(t.AddrSpace)
	case nil:
		return 1
	}

	s := t.Size()
	a := l.PrefAlign(t)

	return (s + a - 1) / a * a
}

// MinAlign is the largest power of two dividing both a and b.
func MinAlign(a, b int) int {
	x := a | b

	return x & -x
}

func pow2Ceil(x int) int {
	p := 1

	for p < x {
		p <<= 1
	}

	return p
}

func isPow2(x int) bool {
	return x > 0 && x&(x-1) == 0
}
