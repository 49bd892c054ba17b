package irgen

import (
	lltypes "github.com/llir/llvm/ir/types"

	streamtypes "streamhls/internal/types"
)

// llConv memoizes the lowering of the type lattice (§4.1) to LLVM IR types,
// so that every reference to the same struct type resolves to the same
// *lltypes.StructType (mirrors mewspring-toy's typeDefs lookup map).
type llConv struct {
	structs map[string]*lltypes.StructType
}

func newLLConv() *llConv {
	return &llConv{structs: make(map[string]*lltypes.StructType)}
}

// llType converts a type-lattice Type to its SSA IR representation, per the
// bit widths §4.1 assigns: Bool/Bit are single-bit integers, Int is 32-bit,
// APInt carries its declared width, Float is a 32-bit IEEE float, Complex
// (the [EXPANSION] pair type) becomes a two-field struct, arrays and structs
// lower structurally.
func (c *llConv) llType(t *streamtypes.Type) lltypes.Type {
	switch t.Kind() {
	case streamtypes.Void, streamtypes.Error:
		return lltypes.Void
	case streamtypes.Bool, streamtypes.Bit:
		return lltypes.I1
	case streamtypes.Int:
		return lltypes.I32
	case streamtypes.APInt:
		return lltypes.NewInt(uint64(t.APIntWidth()))
	case streamtypes.Float:
		return lltypes.Float
	case streamtypes.Complex:
		elem := c.llType(t.Elem())
		return lltypes.NewStruct(elem, elem)
	case streamtypes.Array:
		return lltypes.NewArray(uint64(t.Length()), c.llType(t.Elem()))
	case streamtypes.Struct:
		if st, ok := c.structs[t.Name()]; ok {
			return st
		}
		fields := make([]lltypes.Type, len(t.Fields()))
		for i, f := range t.Fields() {
			fields[i] = c.llType(f.Type)
		}
		st := lltypes.NewStruct(fields...)
		st.SetName(t.Name())
		c.structs[t.Name()] = st
		return st
	default:
		return lltypes.Void
	}
}

// isSigned reports whether arithmetic/casts on t should use the signed
// variant of an opcode pair (SDiv vs UDiv, AShr vs LShr, SExt vs ZExt).
// Bool and Bit are zero-extended per §4.3 point 5; Int is always signed;
// APInt carries its own declared signedness.
func isSigned(t *streamtypes.Type) bool {
	switch t.Kind() {
	case streamtypes.Int:
		return true
	case streamtypes.APInt:
		return t.Signed()
	default:
		return false
	}
}
