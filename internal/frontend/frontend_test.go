package frontend

import (
	"strings"
	"testing"

	"streamhls/internal/ast"
)

const counterProgram = `{
  "exprs": [
    {"kind": "int", "pos": {"file": "counter.sdf", "line": 1, "col": 1}, "int_value": 0},
    {"kind": "ident", "pos": {"line": 2}, "name": "n"},
    {"kind": "int", "pos": {"line": 2}, "int_value": 1}
  ],
  "stmts": [
    {"kind": "push", "pos": {"line": 2}, "value": 1},
    {"kind": "expr", "pos": {"line": 3}, "x": 1}
  ],
  "decls": [
    {"kind": "variable", "name": "n", "pos": {"line": 1}, "type_name": "int", "init": 0},
    {
      "kind": "filter",
      "name": "counter",
      "pos": {"line": 1},
      "input_type": "void",
      "output_type": "int",
      "stateful": true,
      "vars": [0],
      "work": {"push_rate": 2, "body": [0, 1]}
    }
  ],
  "top_level": [1]
}`

func TestLoadProgramDecodesCounterFilter(t *testing.T) {
	prog, err := LoadProgram(strings.NewReader(counterProgram))
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if len(prog.TopLevel) != 1 {
		t.Fatalf("expected one top-level decl, got %d", len(prog.TopLevel))
	}
	fd, ok := prog.Decl(prog.TopLevel[0]).(*ast.FilterDecl)
	if !ok {
		t.Fatalf("top-level decl is not a *ast.FilterDecl")
	}
	if fd.Name != "counter" || fd.InputTypeName != "void" || fd.OutputTypeName != "int" {
		t.Fatalf("unexpected filter decl: %+v", fd)
	}
	if fd.Work == nil || len(fd.Work.Body) != 2 {
		t.Fatalf("expected work block with 2 statements, got %+v", fd.Work)
	}
	if got := prog.Expr(fd.Work.PushRate); got == nil {
		t.Fatalf("push rate expr should resolve")
	} else if lit, ok := got.(*ast.IntLit); !ok || lit.Value != 1 {
		t.Fatalf("push rate should be literal 1, got %+v", got)
	}
}

func TestLoadProgramRejectsUnknownExprKind(t *testing.T) {
	_, err := LoadProgram(strings.NewReader(`{"exprs":[{"kind":"bogus"}]}`))
	if err == nil {
		t.Fatalf("expected an error for an unknown expr kind")
	}
}
