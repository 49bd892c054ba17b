// Package vhdl implements the VHDL half of the C5 HDL Emitter (spec §4.5,
// "C5b"): given a solved stream graph, it prints one component wrapper per
// filter declaration, a top-level entity wiring one instance of each wrapper
// together with the FIFOs the stream graph's schedule sized, and a
// test bench that drives the whole design with a
// parameterized input pattern and records its output.
//
// component.go and testbench.go mirror original_source/src/hlstarget's
// ComponentGenerator and ComponentTestBenchGenerator: a graph walk that
// accumulates a "signal declarations" stream and an "instantiations" stream,
// concatenated into one architecture body at the end. Go has no equivalent
// of that codebase's Visitor-dispatch class hierarchy, so the walk here
// follows the same type-switch-over-a-closed-node-set style
// internal/streamgraph and internal/hdl/cbackend already use. wrapper.go has
// no original counterpart — see its doc comment.
package vhdl

import (
	"fmt"

	"streamhls/internal/irgen"
	"streamhls/internal/streamgraph"
)

// hlsVariablePrefix and fifoComponentName mirror
// original_source/src/hlstarget/vhdl_helpers.h's VHDLHelpers constants —
// the fixed port-name prefix an HLS-C component's FIFO pointer arguments
// get, and the entity name the generic FIFO queue is instantiated as.
const (
	hlsVariablePrefix = "llvm_cbe_"
	fifoComponentName = "fifo"
)

// Project is the finished set of VHDL source files this package produces:
// spec §6's "one .vhd per filter (component wrapper), one top-level .vhd
// (component interconnect), one test-bench .vhd".
type Project struct {
	ModuleName      string
	ComponentFile   string // "<module>.vhd": top-level entity + architecture
	TestBenchFile   string // "<module>_tb.vhd"
	ComponentSource string
	TestBenchSource string
	Wrappers        []FilterWrapper
}

// Files returns every generated file as a name/source pair, in a stable
// order (filter wrappers first, then the top-level interconnect, then the
// test bench) — the order cmd/streamhlsc's project manifest lists them in.
func (p *Project) Files() []struct{ Name, Source string } {
	files := make([]struct{ Name, Source string }, 0, len(p.Wrappers)+2)
	for _, w := range p.Wrappers {
		files = append(files, struct{ Name, Source string }{w.FileName, w.Source})
	}
	files = append(files, struct{ Name, Source string }{p.ComponentFile, p.ComponentSource})
	files = append(files, struct{ Name, Source string }{p.TestBenchFile, p.TestBenchSource})
	return files
}

// Emit walks sg and produces one component wrapper per filter declaration,
// the top-level component wiring, and its test bench. moduleName becomes
// the top entity's name; opts parameterizes the test bench's input stimulus
// (see TestBenchOptions).
func Emit(sg *streamgraph.StreamGraph, moduleName string, opts TestBenchOptions) (*Project, error) {
	if sg.Root == nil {
		return nil, fmt.Errorf("vhdl: empty stream graph")
	}
	comp, err := generateComponent(sg, moduleName)
	if err != nil {
		return nil, err
	}
	tb, err := generateTestBench(sg, moduleName, opts)
	if err != nil {
		return nil, err
	}
	return &Project{
		ModuleName:      moduleName,
		ComponentFile:   moduleName + ".vhd",
		TestBenchFile:   moduleName + "_tb.vhd",
		ComponentSource: comp,
		TestBenchSource: tb,
		Wrappers:        generateFilterWrappers(sg),
	}, nil
}

// filterComponentName is the shared VHDL entity name for every instance of
// a given filter declaration — mirroring how internal/hdl/cbackend.Emit
// produces one translation unit per FilterDecl name rather than per
// instance, so the same entity gets reused across every `add`.
func filterComponentName(declName string) string {
	return "filter_" + irgen.SanitizeName(declName)
}
