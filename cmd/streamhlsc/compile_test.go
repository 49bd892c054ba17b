package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/source"
)

func pos(line int) source.Position {
	return source.Position{File: "test.shls", Line: line, Col: 1}
}

// buildSamplePipeline constructs a Src -> Sink void pipeline: the same
// shape internal/hdl/vhdl's own tests build with internal/ast.Builder,
// avoiding a dependency on hand-authored JSON matching
// internal/frontend's private wire format.
func buildSamplePipeline() *ast.Program {
	b := ast.NewBuilder()

	srcWork := b.WorkBlock().Pop(b.Int(pos(1), 0)).Push(b.Int(pos(1), 1)).Body(
		b.Push(pos(1), b.Int(pos(1), 7)),
	)
	b.Filter(pos(1), "Src", "void", "int", false, nil, nil, nil, nil, srcWork)

	sinkWork := b.WorkBlock().Pop(b.Int(pos(2), 1)).Push(b.Int(pos(2), 0)).Body(
		b.ExprStmt(pos(2), b.Pop(pos(2))),
	)
	b.Filter(pos(2), "Sink", "int", "void", false, nil, nil, nil, nil, sinkWork)

	addSrc := b.Add(pos(3), "Src")
	addSink := b.Add(pos(4), "Sink")
	b.Pipeline(pos(3), "top", "void", "void", nil, []ast.StmtID{addSrc, addSink})
	return b.Program()
}

func TestCompileProgramEmitIR(t *testing.T) {
	prog := buildSamplePipeline()
	var diagBuf bytes.Buffer
	reporter := diag.NewReporter(&diagBuf, "text")

	out := filepath.Join(t.TempDir(), "top.ll")
	if err := compileProgram(prog, reporter, "ir", "", out); err != nil {
		t.Fatalf("compileProgram: %v (diagnostics: %s)", err, diagBuf.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Errorf("expected non-empty IR dump")
	}
}

func TestCompileProgramEmitProjectWritesManifestAndFiles(t *testing.T) {
	prog := buildSamplePipeline()
	var diagBuf bytes.Buffer
	reporter := diag.NewReporter(&diagBuf, "text")

	dir := t.TempDir()
	if err := compileProgram(prog, reporter, "project", "", dir); err != nil {
		t.Fatalf("compileProgram: %v (diagnostics: %s)", err, diagBuf.String())
	}
	want := []string{"Sink.c", "Src.c", "filter_Sink.vhd", "filter_Src.vhd", "top.manifest", "top.vhd", "top_tb.vhd"}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	sort.Strings(got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("produced file set differs from expected (-want +got):\n%s", diff)
	}

	manifest, err := os.ReadFile(filepath.Join(dir, "top.manifest"))
	if err != nil {
		t.Fatalf("ReadFile manifest: %v", err)
	}
	if len(manifest) == 0 {
		t.Errorf("expected a non-empty manifest")
	}
}

func TestCompileProgramEmitAST(t *testing.T) {
	prog := buildSamplePipeline()
	var diagBuf bytes.Buffer
	reporter := diag.NewReporter(&diagBuf, "text")

	out := filepath.Join(t.TempDir(), "top.ast.txt")
	if err := compileProgram(prog, reporter, "ast", "", out); err != nil {
		t.Fatalf("compileProgram: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Contains(data, []byte("pipeline top")) {
		t.Errorf("expected the top pipeline declaration in the dump, got:\n%s", data)
	}
}

func TestCompileProgramRejectsUnknownTop(t *testing.T) {
	prog := buildSamplePipeline()
	var diagBuf bytes.Buffer
	reporter := diag.NewReporter(&diagBuf, "text")

	err := compileProgram(prog, reporter, "vhdl", "nonexistent", t.TempDir())
	if err == nil {
		t.Fatal("expected an error for an unknown -top name")
	}
	var ee *exitErr
	if !errors.As(err, &ee) || ee.code != 1 {
		t.Errorf("expected a parse-bucket exitErr, got %v", err)
	}
}

func TestExitCodeMapsErrorBuckets(t *testing.T) {
	errTest := errors.New("boom")
	if got := exitCode(parseErr(errTest)); got != 1 {
		t.Errorf("parseErr: got exit code %d, want 1", got)
	}
	if got := exitCode(ioErr(errTest)); got != 3 {
		t.Errorf("ioErr: got exit code %d, want 3", got)
	}
	if got := exitCode(internalErr(errTest)); got != 2 {
		t.Errorf("internalErr: got exit code %d, want 2", got)
	}
	if got := exitCode(errTest); got != 1 {
		t.Errorf("bare error: got exit code %d, want 1 (default bucket)", got)
	}
}
