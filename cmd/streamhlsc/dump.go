package main

import (
	"fmt"
	"io"

	"streamhls/internal/ast"
)

// dumpAST prints one line per top-level declaration — its kind, name, and
// (for stream declarations) its declared signature — in TopLevel order.
// There is no ast.Program pretty-printer in the compiler proper (§3 keeps
// the arena a pure data structure with no textual form of its own), so this
// stays a debug aid local to the CLI rather than something internal/ast
// itself needs to carry.
func dumpAST(w io.Writer, prog *ast.Program) error {
	for _, id := range prog.TopLevel {
		d := prog.Decl(id)
		switch v := d.(type) {
		case *ast.FilterDecl:
			kind := "filter"
			if v.Stateful {
				kind = "stateful filter"
			}
			if _, err := fmt.Fprintf(w, "%s %s(%s -> %s) %s vars=%d\n",
				kind, v.Name, v.InputTypeName, v.OutputTypeName,
				rateString(v.Work), len(v.Vars)); err != nil {
				return err
			}
		case *ast.PipelineDecl:
			if _, err := fmt.Fprintf(w, "pipeline %s(%s -> %s) adds=%d\n", v.Name, v.InputTypeName, v.OutputTypeName, len(v.Body)); err != nil {
				return err
			}
		case *ast.SplitJoinDecl:
			if _, err := fmt.Fprintf(w, "splitjoin %s(%s -> %s) stmts=%d\n", v.Name, v.InputTypeName, v.OutputTypeName, len(v.Body)); err != nil {
				return err
			}
		case *ast.FunctionDecl:
			if v.Builtin {
				continue
			}
			if _, err := fmt.Fprintf(w, "func %s(%d params) -> %s\n", v.Name, len(v.Params), v.ReturnTypeName); err != nil {
				return err
			}
		}
	}
	return nil
}

func rateString(w *ast.WorkBlock) string {
	if w == nil {
		return "peek=?/pop=?/push=?"
	}
	return fmt.Sprintf("peek=%d/pop=%d/push=%d", w.ResolvedPeek, w.ResolvedPop, w.ResolvedPush)
}

// dumpTypes prints every stream declaration's resolved input/output types,
// as internal/sema.Analyze filled them in — useful for checking C1's
// conversion and array/struct resolution rules landed the way source
// expected without reading through a full AST dump.
func dumpTypes(w io.Writer, prog *ast.Program) error {
	for _, id := range prog.TopLevel {
		var name, in, out string
		switch v := prog.Decl(id).(type) {
		case *ast.FilterDecl:
			name, in, out = v.Name, v.InputType.String(), v.OutputType.String()
		case *ast.PipelineDecl:
			name, in, out = v.Name, v.InputType.String(), v.OutputType.String()
		case *ast.SplitJoinDecl:
			name, in, out = v.Name, v.InputType.String(), v.OutputType.String()
		default:
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %s -> %s\n", name, in, out); err != nil {
			return err
		}
	}
	return nil
}
