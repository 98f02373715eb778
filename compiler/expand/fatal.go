package expand

import (
	"fmt"

	"tlog.app/go/loc"

	"github.com/eipiminus1/beignet/compiler/format"
	"github.com/eipiminus1/beignet/compiler/ir"
)

type (
	// FatalError is the panic value of the expansion on unsupported input.
	FatalError struct {
		Func  string
		Msg   string
		Value string

		PC loc.PC
	}
)

func (e *FatalError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Func, e.Msg)
	}

	return fmt.Sprintf("%s: %s: %s", e.Func, e.Msg, e.Value)
}

func (s *state) fatal(x ir.Expr, msg string, args ...any) {
	e := &FatalError{
		Func: s.f.Name,
		Msg:  fmt.Sprintf(msg, args...),
		PC:   loc.Caller(1),
	}

	if x != ir.Nil {
		e.Value = format.Inst(s.f, x)
	}

	s.tr.Printw("fatal", "value", e.Value, "msg", e.Msg, "from", e.PC)

	panic(e)
}
