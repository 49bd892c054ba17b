package irgen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// TargetFragmentBuilder is the §4.3 capability set: the only coupling
// between the generic lowerer and a particular backend (software
// simulator, C-like HDL backend, VHDL component). The generic lowerer
// never accesses a FIFO directly — it only ever calls these three
// methods, so swapping backends means swapping the TargetFragmentBuilder
// implementation, not touching lower.go.
type TargetFragmentBuilder interface {
	BuildPop(b *ir.Block) value.Value
	BuildPeek(b *ir.Block, index value.Value) value.Value
	BuildPush(b *ir.Block, v value.Value)
}

// externChannel is the default TargetFragmentBuilder: it routes pop/peek/
// push through three extern function declarations named after the owning
// filter. A concrete backend (C emitter, VHDL wrapper) supplies the bodies
// for these externs — the generic IR module never defines them itself,
// matching §4.3's "abstract FIFO access so that the SSA construction is
// backend-agnostic".
type externChannel struct {
	popFn, peekFn, pushFn *ir.Func
}

func newExternChannel(m *ir.Module, filterName string, inTy, outTy lltypes.Type) *externChannel {
	c := &externChannel{}
	if inTy != lltypes.Void {
		c.popFn = m.NewFunc(mangle(filterName, "pop"), inTy)
		c.peekFn = m.NewFunc(mangle(filterName, "peek"), inTy, ir.NewParam("index", lltypes.I32))
	}
	if outTy != lltypes.Void {
		c.pushFn = m.NewFunc(mangle(filterName, "push"), lltypes.Void, ir.NewParam("v", outTy))
	}
	return c
}

func (c *externChannel) BuildPop(b *ir.Block) value.Value {
	return b.NewCall(c.popFn)
}

func (c *externChannel) BuildPeek(b *ir.Block, index value.Value) value.Value {
	return b.NewCall(c.peekFn, index)
}

func (c *externChannel) BuildPush(b *ir.Block, v value.Value) {
	b.NewCall(c.pushFn, v)
}

// mangle builds the extern symbol name for one of a filter's three channel
// operations, following §4.5's name-mangling rule (non-alphanumerics
// escaped) applied to the `<filter>__<op>` shape.
func mangle(filterName, op string) string {
	return fmt.Sprintf("%s__%s", sanitizeName(filterName), op)
}

// FuncSymbol exposes mangle to other packages (internal/hdl/cbackend,
// internal/hdl/vhdl) that need to recover the exact symbol name irgen gave
// a filter's init/prework/work function or one of its pop/peek/push
// externs, without duplicating the naming rule.
func FuncSymbol(filterName, op string) string {
	return mangle(filterName, op)
}

// SanitizeName exposes sanitizeName to other packages that mangle their own
// identifiers (struct names, temporaries) and need to match §4.5's escaping
// rule exactly.
func SanitizeName(name string) string {
	return sanitizeName(name)
}

func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, []rune(fmt.Sprintf("_%x_", r))...)
		}
	}
	return string(out)
}
