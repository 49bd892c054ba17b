package passes

import (
	"bytes"
	"testing"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/sema"
	"streamhls/internal/source"
	"streamhls/internal/streamgraph"
	"streamhls/internal/types"
)

func pos(line int) source.Position {
	return source.Position{File: "test.shls", Line: line, Col: 1}
}

func buildGraph(t *testing.T, b *ast.Builder, top ast.DeclID) *streamgraph.StreamGraph {
	t.Helper()
	var semaBuf bytes.Buffer
	sr := diag.NewReporter(&semaBuf, "text")
	sema.Analyze(b.Program(), types.NewInterner(), sr)
	if sr.HasErrors() {
		sr.Flush()
		t.Fatalf("analyze: unexpected diagnostics: %s", semaBuf.String())
	}
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	sg, ok := streamgraph.Build(b.Program(), r, top)
	if !ok {
		r.Flush()
		t.Fatalf("Build failed: %s", buf.String())
	}
	return sg
}

func passthroughFilter(b *ast.Builder, name, in, out string, pop, push int64) ast.DeclID {
	var body []ast.StmtID
	if pop > 0 {
		body = append(body, b.ExprStmt(pos(1), b.Pop(pos(1))))
	}
	for i := int64(0); i < push; i++ {
		body = append(body, b.Push(pos(1), b.Int(pos(1), 1)))
	}
	work := b.WorkBlock().Pop(b.Int(pos(1), pop)).Push(b.Int(pos(1), push)).Body(body...)
	return b.Filter(pos(1), name, in, out, false, nil, nil, nil, nil, work)
}

func TestRateClosurePassesOnBalancedPipeline(t *testing.T) {
	b := ast.NewBuilder()
	passthroughFilter(b, "A", "void", "int", 0, 2)
	passthroughFilter(b, "B", "int", "void", 2, 0)
	addA := b.Add(pos(2), "A")
	addB := b.Add(pos(3), "B")
	top := b.Pipeline(pos(1), "top", "void", "void", nil, []ast.StmtID{addA, addB})

	sg := buildGraph(t, b, top)

	mgr := NewManager()
	mgr.Add(NewRateClosure(nil))
	if err := mgr.Run(sg); err != nil {
		t.Fatalf("RateClosure reported a violation on a solver-produced graph: %v", err)
	}
}

func TestRateClosureCatchesTamperedMultiplicity(t *testing.T) {
	b := ast.NewBuilder()
	passthroughFilter(b, "A", "void", "int", 0, 2)
	passthroughFilter(b, "B", "int", "void", 2, 0)
	addA := b.Add(pos(2), "A")
	addB := b.Add(pos(3), "B")
	top := b.Pipeline(pos(1), "top", "void", "void", nil, []ast.StmtID{addA, addB})

	sg := buildGraph(t, b, top)
	sg.Channels[0].Multiplicity = 99 // simulate a solver bug

	mgr := NewManager()
	mgr.Add(NewRateClosure(nil))
	if err := mgr.Run(sg); err == nil {
		t.Fatalf("expected RateClosure to catch the tampered channel multiplicity")
	}
}

// TestMaskAnalysisFlagsOddWidthStore mirrors §7's masking rule: a filter
// with a 3-bit persistent variable that the work block stores into should
// produce a warning identifying the odd width.
func TestMaskAnalysisFlagsOddWidthStore(t *testing.T) {
	b := ast.NewBuilder()
	acc, _ := b.Var(pos(1), "acc", "u3", false, ast.InvalidExpr)
	assign := b.Assign(pos(2), ast.OpAssign, b.Ident(pos(2), "acc"), b.Cast(pos(2), "u3", b.Int(pos(2), 1)))
	work := b.WorkBlock().Pop(b.Int(pos(1), 1)).Push(b.Int(pos(1), 0)).
		Body(b.ExprStmt(pos(1), b.Pop(pos(1))), b.ExprStmt(pos(2), assign))
	b.Filter(pos(1), "F", "int", "void", true, nil, []ast.DeclID{acc}, nil, nil, work)

	addF := b.Add(pos(2), "F")
	top := b.Pipeline(pos(1), "top", "void", "void", nil, []ast.StmtID{addF})

	sg := buildGraph(t, b, top)

	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	mgr := NewManager()
	mgr.Add(NewMaskAnalysis(r))
	if err := mgr.Run(sg); err != nil {
		t.Fatalf("MaskAnalysis unexpectedly errored: %v", err)
	}
	if len(r.Diagnostics()) == 0 {
		t.Fatalf("expected at least one warning about the 3-bit variable")
	}
}
