package cbackend

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// ctype converts an SSA IR type to its C spelling. Struct, array-wrapper
// and function-pointer types are memoized on the printer (not at package
// scope — §5 requires two concurrent compilation jobs to use disjoint
// state) so repeated references to the same type always print the same
// typedef name, mirroring internal/irgen/llvmtypes.go's llConv.structs.
func (p *printer) ctype(t types.Type) string {
	switch tt := t.(type) {
	case *types.VoidType:
		return "void"
	case *types.IntType:
		return intCType(tt.BitSize)
	case *types.FloatType:
		if tt.Kind == types.FloatKindDouble {
			return "double"
		}
		return "float"
	case *types.PointerType:
		if _, ok := tt.ElemType.(*types.FuncType); ok {
			return p.fptrName(tt)
		}
		return p.ctype(tt.ElemType) + "*"
	case *types.ArrayType:
		return p.arrayWrapperName(tt)
	case *types.StructType:
		return p.structName(tt)
	default:
		return "void"
	}
}

// intCType rounds a declared bit width up to the nearest of §4.5's
// 8/16/32/64/128 and names the resulting stdint.h type; a single-bit
// integer is this backend's `bool`, matching how internal/irgen lowers
// Bool/Bit to i1.
func intCType(width uint64) string {
	switch {
	case width == 1:
		return "bool"
	case width <= 8:
		return "uint8_t"
	case width <= 16:
		return "uint16_t"
	case width <= 32:
		return "uint32_t"
	case width <= 64:
		return "uint64_t"
	default:
		return "unsigned __int128"
	}
}

// signedIntCType is intCType's signed counterpart, used only where an
// arithmetic result is reinterpreted as signed (signed compare, signed
// divide/remainder, signed shift-right — §4.5's carve-outs from the
// otherwise unsigned-by-default rule).
func signedIntCType(width uint64) string {
	switch {
	case width == 1:
		return "bool"
	case width <= 8:
		return "int8_t"
	case width <= 16:
		return "int16_t"
	case width <= 32:
		return "int32_t"
	case width <= 64:
		return "int64_t"
	default:
		return "__int128"
	}
}

func (p *printer) structName(t *types.StructType) string {
	if name, ok := p.structs[t]; ok {
		return name
	}
	var name string
	if t.TypeName != "" {
		name = "struct_" + sanitizeTypeName(t.TypeName)
	} else {
		name = fmt.Sprintf("anon_struct_%d", p.nextAnon)
		p.nextAnon++
	}
	p.structs[t] = name
	var fields string
	for i, f := range t.Fields {
		fields += fmt.Sprintf("  %s field_%d;\n", p.ctype(f), i)
	}
	p.declared = append(p.declared, fmt.Sprintf("typedef struct {\n%s} %s;\n", fields, name))
	return name
}

// arrayWrapperName names and (on first sight) declares the single-field
// wrapper struct §4.5 requires for every array type, so an array keeps
// value semantics across a C function boundary the way the source
// language's own array assignment does.
func (p *printer) arrayWrapperName(t *types.ArrayType) string {
	if name, ok := p.structs[t]; ok {
		return name
	}
	name := fmt.Sprintf("arr_%d_t", p.nextAnon)
	p.nextAnon++
	p.structs[t] = name
	elem := p.ctype(t.ElemType)
	p.declared = append(p.declared, fmt.Sprintf("typedef struct { %s items[%d]; } %s;\n", elem, t.Len, name))
	return name
}

func (p *printer) fptrName(t *types.PointerType) string {
	if name, ok := p.structs[t]; ok {
		return name
	}
	name := fmt.Sprintf("l_fptr_%d", p.nextAnon)
	p.nextAnon++
	p.structs[t] = name
	ft := t.ElemType.(*types.FuncType)
	params := make([]string, len(ft.Params))
	for i, pt := range ft.Params {
		params[i] = p.ctype(pt)
	}
	paramList := "void"
	if len(params) > 0 {
		paramList = joinComma(params)
	}
	p.declared = append(p.declared, fmt.Sprintf("typedef %s (*%s)(%s);\n", p.ctype(ft.RetType), name, paramList))
	return name
}

func joinComma(xs []string) string {
	out := xs[0]
	for _, x := range xs[1:] {
		out += ", " + x
	}
	return out
}

func sanitizeTypeName(name string) string {
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

func (p *printer) globalInit(init constant.Constant) string {
	switch c := init.(type) {
	case *constant.Int:
		return c.X.String()
	case *constant.Float:
		return c.X.Text('g', -1)
	default:
		return "{0}"
	}
}
