package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"streamhls/internal/diag"
	"streamhls/internal/frontend"
	"streamhls/internal/hdl/cbackend"
	"streamhls/internal/hdl/vhdl"
	"streamhls/internal/irgen"
	"streamhls/internal/passes"
	"streamhls/internal/sema"
	"streamhls/internal/streamgraph"
	"streamhls/internal/types"

	"streamhls/internal/ast"
)

func runCompile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	emit := fs.String("emit", "project", "output format (ast|types|ir|c|vhdl|project)")
	top := fs.String("top", "", "entry stream declaration name (default: the void->void one)")
	output := fs.String("o", "", "output file (single-artefact emits) or directory (c|vhdl|project)")
	diagFormat := fs.String("diag-format", "text", "diagnostic output format (text|json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("compile requires exactly one input file")
	}

	reporter := diag.NewReporter(os.Stderr, *diagFormat)
	prog, err := loadInput(fs.Arg(0))
	if err != nil {
		return err
	}

	return compileProgram(prog, reporter, *emit, *top, *output)
}

// compileProgram runs C1/C2/C4/C4b/C3/C5 over an already-loaded program and
// emits whatever mode asks for. Split out from runCompile so tests can
// drive the pipeline against an in-process *ast.Program (built with
// internal/ast.Builder, the way every other package's tests do) instead of
// round-tripping through internal/frontend's JSON wire format.
func compileProgram(prog *ast.Program, reporter *diag.Reporter, emitMode, top, output string) error {
	interner := types.NewInterner()
	sema.Analyze(prog, interner, reporter)
	if reporter.HasErrors() {
		reporter.SortByPosition()
		reporter.Flush()
		return parseErr(fmt.Errorf("semantic analysis reported errors"))
	}

	if emitMode == "ast" {
		return withOutputWriter(output, func(w io.Writer) error { return dumpAST(w, prog) })
	}
	if emitMode == "types" {
		return withOutputWriter(output, func(w io.Writer) error { return dumpTypes(w, prog) })
	}

	entry, ok := streamgraph.FindEntry(prog, top)
	if !ok {
		if top == "" {
			return parseErr(fmt.Errorf("no top-level void -> void stream declaration found; pass -top explicitly"))
		}
		return parseErr(fmt.Errorf("no stream declaration named %q", top))
	}
	moduleName := irgen.SanitizeName(prog.Decl(entry).DeclName())

	sg, ok := streamgraph.Build(prog, reporter, entry)
	if !ok {
		reporter.SortByPosition()
		reporter.Flush()
		return parseErr(fmt.Errorf("stream graph construction reported errors"))
	}

	mgr := passes.NewManager()
	mgr.Add(passes.NewMaskAnalysis(reporter))
	mgr.Add(passes.NewRateClosure(reporter))
	if err := mgr.Run(sg); err != nil {
		return internalErr(fmt.Errorf("analysis passes: %w", err))
	}
	if reporter.HasErrors() {
		reporter.SortByPosition()
		reporter.Flush()
		return parseErr(fmt.Errorf("analysis passes reported errors"))
	}

	if emitMode == "ir" {
		module := irgen.Lower(prog, interner, reporter)
		if reporter.HasErrors() {
			reporter.SortByPosition()
			reporter.Flush()
			return parseErr(fmt.Errorf("IR lowering reported errors"))
		}
		return withOutputWriter(output, func(w io.Writer) error {
			_, err := fmt.Fprint(w, module)
			return err
		})
	}

	filterNames := filterDeclNames(sg)

	if emitMode == "c" {
		module := irgen.Lower(prog, interner, reporter)
		if reporter.HasErrors() {
			reporter.SortByPosition()
			reporter.Flush()
			return parseErr(fmt.Errorf("IR lowering reported errors"))
		}
		units, err := cbackend.Emit(module, filterNames)
		if err != nil {
			return internalErr(err)
		}
		return writeUnits(output, units)
	}

	if emitMode == "vhdl" {
		proj, err := vhdl.Emit(sg, moduleName, vhdl.DefaultTestBenchOptions())
		if err != nil {
			return internalErr(err)
		}
		return writeVHDLProject(output, proj)
	}

	if emitMode != "project" {
		return fmt.Errorf("unknown emit format: %s", emitMode)
	}

	module := irgen.Lower(prog, interner, reporter)
	if reporter.HasErrors() {
		reporter.SortByPosition()
		reporter.Flush()
		return parseErr(fmt.Errorf("IR lowering reported errors"))
	}
	units, err := cbackend.Emit(module, filterNames)
	if err != nil {
		return internalErr(err)
	}
	proj, err := vhdl.Emit(sg, moduleName, vhdl.DefaultTestBenchOptions())
	if err != nil {
		return internalErr(err)
	}

	dir := output
	if dir == "" {
		dir = "."
	}
	if err := writeUnits(dir, units); err != nil {
		return err
	}
	if err := writeVHDLProject(dir, proj); err != nil {
		return err
	}
	manifestPath := filepath.Join(dir, moduleName+".manifest")
	if err := os.WriteFile(manifestPath, []byte(manifestText(units, proj)), 0o644); err != nil {
		return ioErr(err)
	}
	return nil
}

// loadInput opens path (or reads stdin for "-") and decodes it as the JSON
// AST document internal/frontend.LoadProgram expects — §1 places lexing and
// parsing out of scope, so this is the compiler's only input boundary.
func loadInput(path string) (*ast.Program, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, ioErr(err)
		}
		defer f.Close()
		r = f
	}
	prog, err := frontend.LoadProgram(r)
	if err != nil {
		return nil, parseErr(err)
	}
	return prog, nil
}

// filterDeclNames returns the deduplicated, sorted set of FilterDecl names
// reachable from sg — internal/hdl/cbackend.Emit's contract is one
// translation unit per declaration, not per instance.
func filterDeclNames(sg *streamgraph.StreamGraph) []string {
	seen := map[string]bool{}
	var names []string
	for _, f := range sg.Filters {
		if seen[f.Decl.Name] {
			continue
		}
		seen[f.Decl.Name] = true
		names = append(names, f.Decl.Name)
	}
	sort.Strings(names)
	return names
}

func withOutputWriter(path string, fn func(io.Writer) error) error {
	w, cleanup, err := outputWriter(path)
	if err != nil {
		return ioErr(err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	if err := fn(w); err != nil {
		return ioErr(err)
	}
	return nil
}

func outputWriter(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func writeUnits(dir string, units []cbackend.Unit) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioErr(err)
	}
	for _, u := range units {
		if err := os.WriteFile(filepath.Join(dir, u.FileName), []byte(u.Source), 0o644); err != nil {
			return ioErr(err)
		}
	}
	return nil
}

func writeVHDLProject(dir string, proj *vhdl.Project) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioErr(err)
	}
	for _, f := range proj.Files() {
		if err := os.WriteFile(filepath.Join(dir, f.Name), []byte(f.Source), 0o644); err != nil {
			return ioErr(err)
		}
	}
	return nil
}
