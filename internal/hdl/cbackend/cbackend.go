// Package cbackend implements the C-syntax half of the C5 HDL Emitter
// (spec §4.5): given the SSA IR module internal/irgen produced and the name
// of one filter declaration, it prints a standalone HLS-C translation unit
// for that filter's init/prework/work functions.
//
// The peek/pop/push extern calls internal/irgen's TargetFragmentBuilder
// left in the IR (internal/irgen/channel.go's externChannel) are exactly
// the seam this package fills: every call to a filterName__pop/__peek/__push
// symbol is rewritten here into direct FIFO-port array access, and the
// enclosing function gains the FIFO port parameters spec §4.5 describes
// ("a function whose parameters model peek/pop/push via FIFO ports").
package cbackend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"streamhls/internal/irgen"
)

// Unit is one filter's finished HLS-C translation unit.
type Unit struct {
	FilterName string
	FileName   string // "<name>.c"
	Source     string
}

// Emit produces one Unit per name in filterNames, in the order given.
// filterNames should be the deduplicated set of FilterDecl names reachable
// from the stream graph (internal/streamgraph.StreamGraph.Filters, keyed by
// Decl.Name) — the C body is shared across every instance of the same
// declaration, so only one translation unit per declaration is needed even
// when a filter is `add`ed more than once.
func Emit(m *ir.Module, filterNames []string) ([]Unit, error) {
	p := newPrinter(m)
	units := make([]Unit, 0, len(filterNames))
	for _, name := range filterNames {
		src, err := p.emitFilterUnit(name)
		if err != nil {
			return nil, fmt.Errorf("cbackend: %s: %w", name, err)
		}
		units = append(units, Unit{FilterName: name, FileName: name + ".c", Source: src})
	}
	return units, nil
}

type printer struct {
	m        *ir.Module
	structs  map[types.Type]string // memoized C type names for struct/array/fptr wrapper types
	nextAnon int
	declared []string // struct/array/fptr typedef text, in reachability-discovery order
}

func newPrinter(m *ir.Module) *printer {
	return &printer{
		m:       m,
		structs: make(map[types.Type]string),
	}
}

// emitFilterUnit assembles one complete .c file: header, type declarations,
// extern declarations for the runtime symbols this filter's functions call,
// the filter's persistent-state globals, then its init/prework/work bodies.
func (p *printer) emitFilterUnit(filterName string) (string, error) {
	stage := map[string]*ir.Func{}
	for _, op := range []string{"init", "prework", "work"} {
		sym := irgen.FuncSymbol(filterName, op)
		if f := p.findFunc(sym); f != nil {
			stage[op] = f
		}
	}
	if len(stage) == 0 {
		return "", fmt.Errorf("no init/prework/work function found for filter %q", filterName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "/* generated HLS-C for filter %s */\n\n", irgen.SanitizeName(filterName))
	b.WriteString(header())

	// Type declarations are collected from every reachable stage function
	// before any body is printed, per §5's "declarations are emitted
	// strictly before uses" ordering rule. collectTypes only needs a
	// throwaway funcPrinter to reach the shared printer's type registry.
	for _, op := range []string{"init", "prework", "work"} {
		if f, ok := stage[op]; ok {
			(&funcPrinter{p: p, filterName: filterName}).collectTypes(f)
		}
	}
	for _, decl := range p.declared {
		b.WriteString(decl)
	}
	b.WriteString("\n")

	b.WriteString(p.externDecls(stage))
	b.WriteString(p.globalDecls(filterName))

	for _, op := range []string{"init", "prework", "work"} {
		f, ok := stage[op]
		if !ok {
			continue
		}
		src, err := p.printFunc(f, filterName, op)
		if err != nil {
			return "", err
		}
		b.WriteString(src)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (p *printer) findFunc(name string) *ir.Func {
	for _, f := range p.m.Funcs {
		if f.Name() == name && len(f.Blocks) > 0 {
			return f
		}
	}
	return nil
}

// header is the fixed preamble spec §6 requires: the four standard headers,
// the self-emitted helper macros, and the FP<->int bitcast union.
func header() string {
	return `#include <stdarg.h>
#include <limits.h>
#include <stdint.h>
#include <math.h>

#define NORETURN __attribute__((noreturn))
#define FORCEINLINE static inline __attribute__((always_inline))
#define LLVM_NAN(sign) ((double)(sign 0.0/0.0))
#define LLVM_NANF(sign) ((float)(sign 0.0f/0.0f))
#define LLVM_INF(sign) ((double)(sign 1.0/0.0))
#define LLVM_INFF(sign) ((float)(sign 1.0f/0.0f))

typedef unsigned char bool;
#define true 1
#define false 0

typedef union { uint32_t i32; float f32; uint64_t i64; double f64; } l_bitcast_t;

`
}

// externDecls emits one C prototype per non-channel function reached by a
// call instruction anywhere in the given stage functions: user functions
// (defined elsewhere in the module — declared here so this translation
// unit stays self-contained) and built-ins, which irgen.go already points
// at real C-runtime symbol names (printf/sinf/cosf/sqrtf/abs/fabsf).
func (p *printer) externDecls(stage map[string]*ir.Func) string {
	called := map[string]*ir.Func{}
	for _, f := range stage {
		walkCalls(f, func(callee *ir.Func) {
			if len(callee.Blocks) == 0 && !isChannelSymbol(callee.Name()) {
				called[callee.Name()] = callee
			}
		})
	}
	names := make([]string, 0, len(called))
	for n := range called {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		f := called[n]
		params := make([]string, len(f.Sig.Params))
		for i, pt := range f.Sig.Params {
			params[i] = p.ctype(pt)
		}
		variadic := ""
		if f.Sig.Variadic {
			if len(params) > 0 {
				variadic = ", ..."
			} else {
				variadic = "..."
			}
		}
		fmt.Fprintf(&b, "extern %s %s(%s%s);\n", p.ctype(f.Sig.RetType), f.Name(), strings.Join(params, ", "), variadic)
	}
	if len(names) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func walkCalls(f *ir.Func, visit func(callee *ir.Func)) {
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			if call, ok := inst.(*ir.InstCall); ok {
				if callee, ok := call.Callee.(*ir.Func); ok {
					visit(callee)
				}
			}
		}
	}
}

// globalDecls emits this filter's persistent state (internal/irgen's
// declareFilterGlobals output: one ir.Global per FilterDecl.Vars entry,
// named FuncSymbol(filterName, varName)).
func (p *printer) globalDecls(filterName string) string {
	prefix := irgen.SanitizeName(filterName) + "__"
	var names []string
	globals := map[string]*ir.Global{}
	for _, g := range p.m.Globals {
		if strings.HasPrefix(g.Name(), prefix) {
			names = append(names, g.Name())
			globals[g.Name()] = g
		}
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		g := globals[n]
		elemTy := g.ContentType
		fmt.Fprintf(&b, "static %s %s = %s;\n", p.ctype(elemTy), n, p.globalInit(g.Init))
	}
	if len(names) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func isChannelSymbol(name string) bool {
	return strings.HasSuffix(name, "__pop") || strings.HasSuffix(name, "__peek") || strings.HasSuffix(name, "__push")
}
