package ast

import "streamhls/internal/types"

// EnsureBuiltins registers the pre-registered built-in functions named by
// §4.2 ("Built-in functions (println, math intrinsics) are pre-registered")
// and fixed concretely by SPEC_FULL.md's EXPANSION: println (variadic,
// any printable argument) and the math intrinsics sin/cos/sqrt/abs
// (Float→Float, abs additionally overloaded Int→Int). It is a no-op on
// any call after the first, so re-running semantic analysis never grows
// the arena — a requirement of §8's idempotence property.
func (p *Program) EnsureBuiltins(in *types.Interner) {
	if p.BuiltinsRegistered {
		return
	}
	p.BuiltinsRegistered = true

	println := p.AddDecl(&FunctionDecl{
		DeclBase: DeclBase{Name: "println"},
		Builtin:  true,
	})
	p.fixupReturnType(int(println), in.Void())

	floatParam := func() DeclID {
		return p.AddDecl(&ParameterDecl{DeclBase: DeclBase{Name: "x"}, Type: in.Float()})
	}
	for _, name := range []string{"sin", "cos", "sqrt"} {
		param := floatParam()
		p.AddDecl(&FunctionDecl{
			DeclBase: DeclBase{Name: name}, Builtin: true,
			Params: []DeclID{param},
		})
		p.fixupReturnType(len(p.Decls)-1, in.Float())
	}

	absFloatParam := floatParam()
	absF := p.AddDecl(&FunctionDecl{DeclBase: DeclBase{Name: "abs"}, Builtin: true, Params: []DeclID{absFloatParam}})
	p.fixupReturnType(int(absF), in.Float())

	absIntParam := p.AddDecl(&ParameterDecl{DeclBase: DeclBase{Name: "x"}, Type: in.Int()})
	absI := p.AddDecl(&FunctionDecl{DeclBase: DeclBase{Name: "abs"}, Builtin: true, Params: []DeclID{absIntParam}})
	p.fixupReturnType(int(absI), in.Int())
}

// fixupReturnType sets a just-added FunctionDecl's resolved return type.
// Builtins skip the TypeName→Type resolution pass real declarations go
// through, since their signatures are fixed at registration time.
func (p *Program) fixupReturnType(declIndex int, ret *types.Type) {
	fd := p.Decls[declIndex].(*FunctionDecl)
	fd.ReturnType = ret
}
