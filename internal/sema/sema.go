// Package sema implements the semantic analyser (C2): it walks the AST
// once, resolving every identifier to its Declaration and assigning a
// resolved Type to every expression, validating work-block rates along
// the way. Diagnostics accumulate into a diag.Reporter rather than
// aborting the walk, per §7's "continue past the first error until a
// resync point" discipline; the resync point here is the enclosing
// statement list.
package sema

import (
	"fmt"
	"regexp"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/types"
)

// Analyze runs semantic analysis over prog, using in to intern and
// compare types and reporter to accumulate diagnostics. Callers check
// reporter.HasErrors() afterwards; Analyze itself never returns an error
// for user-caused problems (those are diagnostics), only leaves prog's
// resolved-type fields set as far as it could get.
func Analyze(prog *ast.Program, in *types.Interner, reporter *diag.Reporter) {
	prog.EnsureBuiltins(in)
	a := &analyzer{
		prog:          prog,
		types:         in,
		reporter:      reporter,
		structsByName: make(map[string]*types.Type),
		funcsByName:   make(map[string][]ast.DeclID),
		streamsByName: make(map[string]ast.DeclID),
	}
	a.resolveStructs()
	a.indexTopLevel()
	a.resolveSignatures()
	a.run()
}

type analyzer struct {
	prog     *ast.Program
	types    *types.Interner
	reporter *diag.Reporter

	scope *scope

	structsByName map[string]*types.Type
	funcsByName   map[string][]ast.DeclID
	streamsByName map[string]ast.DeclID

	currentFilter *ast.FilterDecl
	currentWork   *ast.WorkBlock

	loopDepth int
}

// resolveStructs pre-resolves every lexical struct declaration into the
// type interner, so field and cast type names can reference them.
// Structs are expected to reference only scalar, array or
// already-declared struct types — no forward references across structs.
func (a *analyzer) resolveStructs() {
	for _, sd := range a.prog.Structs {
		fields := make([]types.Field, 0, len(sd.Fields))
		for _, f := range sd.Fields {
			ft, ok := a.resolveTypeName(f.TypeName)
			if !ok {
				a.reporter.Errorf(diag.KindUndeclaredName, sd.Pos, "struct %s: unknown field type %q", sd.Name, f.TypeName)
				ft = a.types.Error()
			}
			fields = append(fields, types.Field{Name: f.Name, Type: ft})
		}
		a.structsByName[sd.Name] = a.types.Struct(sd.Name, fields)
	}
}

// indexTopLevel builds the global name tables: functions (by name, for
// overload resolution) and streams (filters/pipelines/splitjoins, for
// `add` resolution). Every declaration is visible from everywhere at
// this language's top level; there's no separate forward-declaration
// pass.
func (a *analyzer) indexTopLevel() {
	for _, id := range a.prog.TopLevel {
		switch d := a.prog.Decl(id).(type) {
		case *ast.FunctionDecl:
			a.funcsByName[d.Name] = append(a.funcsByName[d.Name], id)
		case *ast.FilterDecl:
			a.streamsByName[d.Name] = id
		case *ast.PipelineDecl:
			a.streamsByName[d.Name] = id
		case *ast.SplitJoinDecl:
			a.streamsByName[d.Name] = id
		}
	}
	// Builtins live outside TopLevel (EnsureBuiltins never appends to
	// it) but must still be callable.
	for i, d := range a.prog.Decls {
		if fd, ok := d.(*ast.FunctionDecl); ok && fd.Builtin {
			a.funcsByName[fd.Name] = append(a.funcsByName[fd.Name], ast.DeclID(i))
		}
	}
}

func (a *analyzer) run() {
	a.scope = newScope(nil)
	for _, id := range a.prog.TopLevel {
		switch d := a.prog.Decl(id).(type) {
		case *ast.FilterDecl:
			a.analyzeFilter(d)
		case *ast.PipelineDecl:
			a.analyzePipeline(d)
		case *ast.SplitJoinDecl:
			a.analyzeSplitJoin(d)
		case *ast.FunctionDecl:
			if !d.Builtin {
				a.analyzeFunction(d)
			}
		}
	}
}

var arraySuffix = regexp.MustCompile(`^(.*)\[(\d+)\]$`)
var apintName = regexp.MustCompile(`^([us])(\d+)$`)

// resolveTypeName resolves a source type name (§6's scalar names, `T[N]`
// array syntax, or a struct name) to an interned *types.Type.
func (a *analyzer) resolveTypeName(name string) (*types.Type, bool) {
	if m := arraySuffix.FindStringSubmatch(name); m != nil {
		elem, ok := a.resolveTypeName(m[1])
		if !ok {
			return nil, false
		}
		var n uint32
		fmt.Sscanf(m[2], "%d", &n)
		return a.types.Array(elem, n)
	}
	switch name {
	case "void":
		return a.types.Void(), true
	case "boolean", "bool":
		return a.types.Bool(), true
	case "bit":
		return a.types.Bit(), true
	case "int":
		return a.types.Int(), true
	case "float":
		return a.types.Float(), true
	case "complex":
		return a.types.Complex(), true
	}
	if m := apintName.FindStringSubmatch(name); m != nil {
		var w int
		fmt.Sscanf(m[2], "%d", &w)
		return a.types.APInt(m[1] == "s", w)
	}
	if t, ok := a.structsByName[name]; ok {
		return t, true
	}
	return nil, false
}
