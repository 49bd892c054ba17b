package streamgraph

import (
	"bytes"
	"testing"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/sema"
	"streamhls/internal/source"
	"streamhls/internal/types"
)

func pos(line int) source.Position {
	return source.Position{File: "test.shls", Line: line, Col: 1}
}

func analyze(t *testing.T, prog *ast.Program) *diag.Reporter {
	t.Helper()
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	sema.Analyze(prog, types.NewInterner(), r)
	if r.HasErrors() {
		r.Flush()
		t.Fatalf("analyze: unexpected diagnostics: %s", buf.String())
	}
	return r
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

// TestPipelineChainSolvesFiringCounts mirrors a chain A(push 2) ->
// B(pop 2, push 1): B must fire once for every A firing, both stages
// already balanced, so the LCM propagation is a no-op (repeats all 1).
func TestPipelineChainSolvesFiringCounts(t *testing.T) {
	b := ast.NewBuilder()
	passthroughFilter(b, "A", "void", "int", 0, 2)
	passthroughFilter(b, "B", "int", "void", 2, 0)

	addA := b.Add(pos(2), "A")
	addB := b.Add(pos(3), "B")
	top := b.Pipeline(pos(1), "top", "void", "void", nil, []ast.StmtID{addA, addB})

	analyze(t, b.Program())

	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	sg, ok := Build(b.Program(), r, top)
	if !ok {
		r.Flush()
		t.Fatalf("Build failed: %s", buf.String())
	}
	if len(sg.Filters) != 2 {
		t.Fatalf("expected 2 filter instances, got %d", len(sg.Filters))
	}
	if sg.Filters[0].Firings != 1 || sg.Filters[1].Firings != 1 {
		t.Fatalf("expected balanced 1:1 schedule, got %d,%d", sg.Filters[0].Firings, sg.Filters[1].Firings)
	}
	if len(sg.Channels) != 1 {
		t.Fatalf("expected exactly 1 internal channel, got %d", len(sg.Channels))
	}
	if sg.Channels[0].Multiplicity != 2 {
		t.Fatalf("expected channel multiplicity 2, got %d", sg.Channels[0].Multiplicity)
	}
}

// TestPipelineChainRequiresLCMScaling: A pushes 3, B pops 2 — steady state
// needs 2 firings of A for every 3 firings of B (LCM(3,2)=6).
func TestPipelineChainRequiresLCMScaling(t *testing.T) {
	b := ast.NewBuilder()
	passthroughFilter(b, "A", "void", "int", 0, 3)
	passthroughFilter(b, "B", "int", "void", 2, 0)

	addA := b.Add(pos(2), "A")
	addB := b.Add(pos(3), "B")
	top := b.Pipeline(pos(1), "top", "void", "void", nil, []ast.StmtID{addA, addB})

	analyze(t, b.Program())

	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	sg, ok := Build(b.Program(), r, top)
	if !ok {
		r.Flush()
		t.Fatalf("Build failed: %s", buf.String())
	}
	if sg.Filters[0].Firings != 2 || sg.Filters[1].Firings != 3 {
		t.Fatalf("expected firings 2,3 (LCM(3,2)=6), got %d,%d", sg.Filters[0].Firings, sg.Filters[1].Firings)
	}
	if sg.Channels[0].Multiplicity != 6 {
		t.Fatalf("expected channel multiplicity 6, got %d", sg.Channels[0].Multiplicity)
	}
}

// TestSplitJoinDuplicateBranchesMatchScenario3 mirrors spec §8 scenario 3:
// a duplicate splitjoin with two identical F(pop 1, push 8) branches, whose
// joined output multiplicity is 2 x 8 x n_F.
func TestSplitJoinDuplicateBranchesMatchScenario3(t *testing.T) {
	b := ast.NewBuilder()
	passthroughFilter(b, "F", "int", "int", 1, 8)

	split := b.Split(pos(3), ast.SplitDuplicate)
	addF1 := b.Add(pos(4), "F")
	addF2 := b.Add(pos(5), "F")
	join := b.Join(pos(6))
	b.SplitJoin(pos(1), "sj", "int", "int", nil, []ast.StmtID{split, addF1, addF2, join})

	passthroughFilter(b, "src", "void", "int", 0, 1)
	passthroughFilter(b, "snk", "int", "void", 1, 0)

	addSrc := b.Add(pos(7), "src")
	addSJ := b.Add(pos(8), "sj")
	addSnk := b.Add(pos(9), "snk")
	top := b.Pipeline(pos(1), "top", "void", "void", nil, []ast.StmtID{addSrc, addSJ, addSnk})

	analyze(t, b.Program())

	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	sg, ok := Build(b.Program(), r, top)
	if !ok {
		r.Flush()
		t.Fatalf("Build failed: %s", buf.String())
	}
	sjNode, ok := sg.Root.(*PipelineNode).Children[1].(*SplitJoinNode)
	if !ok {
		t.Fatalf("expected middle pipeline stage to be a splitjoin")
	}
	fA := sjNode.Branches[0].(*FilterInstance)
	fB := sjNode.Branches[1].(*FilterInstance)
	if fA.Firings != fB.Firings {
		t.Fatalf("duplicate split branches must fire equally, got %d vs %d", fA.Firings, fB.Firings)
	}
	wantOut := 2 * 8 * fA.Firings
	if sjNode.OutMult != wantOut {
		t.Fatalf("splitjoin output multiplicity = %d, want %d (2 x 8 x n_F)", sjNode.OutMult, wantOut)
	}
}

// TestRoundRobinSplitUnevenWeights checks that a 1:2 round-robin split
// produces integer branch firing counts even when weights don't divide the
// branch pop rate evenly.
func TestRoundRobinSplitUnevenWeights(t *testing.T) {
	b := ast.NewBuilder()
	passthroughFilter(b, "L", "int", "int", 1, 1)
	passthroughFilter(b, "R", "int", "int", 1, 1)
	passthroughFilter(b, "src", "void", "int", 0, 3)
	passthroughFilter(b, "snk", "int", "void", 1, 0)

	split := b.Split(pos(3), ast.SplitRoundRobin, 1, 2)
	addL := b.Add(pos(4), "L")
	addR := b.Add(pos(5), "R")
	join := b.Join(pos(6), 1, 2)
	b.SplitJoin(pos(1), "sj", "int", "int", nil, []ast.StmtID{split, addL, addR, join})

	addSrc := b.Add(pos(7), "src")
	addSJ := b.Add(pos(8), "sj")
	addSnk := b.Add(pos(9), "snk")
	top := b.Pipeline(pos(1), "top", "void", "void", nil, []ast.StmtID{addSrc, addSJ, addSnk})

	analyze(t, b.Program())

	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	sg, ok := Build(b.Program(), r, top)
	if !ok {
		r.Flush()
		t.Fatalf("Build failed: %s", buf.String())
	}
	sjNode := sg.Root.(*PipelineNode).Children[1].(*SplitJoinNode)
	fL := sjNode.Branches[0].(*FilterInstance)
	fR := sjNode.Branches[1].(*FilterInstance)
	// weights 1:2 over ims 1,1 -> trunk must be a multiple of 3; branch
	// firings should be in a 1:2 ratio matching the weights.
	if fR.Firings != 2*fL.Firings {
		t.Fatalf("expected R to fire twice as often as L (weights 1:2), got %d vs %d", fL.Firings, fR.Firings)
	}
}

// TestPipelineTypeMismatchFails checks that connecting an int-producing
// filter to a bit-consuming filter is rejected as PipelineTypeMismatch.
func TestPipelineTypeMismatchFails(t *testing.T) {
	b := ast.NewBuilder()
	passthroughFilter(b, "A", "void", "int", 0, 1)
	bitPop := b.ExprStmt(pos(1), b.Pop(pos(1)))
	work := b.WorkBlock().Pop(b.Int(pos(1), 1)).Push(b.Int(pos(1), 0)).Body(bitPop)
	b.Filter(pos(1), "B", "bit", "void", false, nil, nil, nil, nil, work)

	addA := b.Add(pos(2), "A")
	addB := b.Add(pos(3), "B")
	top := b.Pipeline(pos(1), "top", "void", "void", nil, []ast.StmtID{addA, addB})

	analyze(t, b.Program())

	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	_, ok := Build(b.Program(), r, top)
	if ok {
		t.Fatalf("expected Build to fail on int->bit channel mismatch")
	}
	found := false
	for _, d := range r.Diagnostics() {
		if d.Kind == diag.KindPipelineTypeMismatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a PipelineTypeMismatch diagnostic")
	}
}

func TestFindEntryPrefersVoidToVoid(t *testing.T) {
	b := ast.NewBuilder()
	passthroughFilter(b, "A", "void", "int", 0, 1)
	work := b.WorkBlock().Pop(b.Int(pos(1), 1)).Push(b.Int(pos(1), 0)).Body(b.ExprStmt(pos(1), b.Pop(pos(1))))
	b.Filter(pos(1), "sink", "int", "void", false, nil, nil, nil, nil, work)
	addA := b.Add(pos(2), "A")
	addSink := b.Add(pos(3), "sink")
	top := b.Pipeline(pos(1), "main", "void", "void", nil, []ast.StmtID{addA, addSink})

	analyze(t, b.Program())

	id, ok := FindEntry(b.Program(), "")
	if !ok || id != top {
		t.Fatalf("FindEntry(\"\") = %d,%v, want %d,true", id, ok, top)
	}
	id, ok = FindEntry(b.Program(), "main")
	if !ok || id != top {
		t.Fatalf("FindEntry(main) = %d,%v, want %d,true", id, ok, top)
	}
}
