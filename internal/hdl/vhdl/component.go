package vhdl

import (
	"fmt"
	"strings"

	"streamhls/internal/streamgraph"
	"streamhls/internal/types"
)

// componentWalker accumulates the two text streams
// original_source/src/hlstarget/component_generator.cpp's ComponentGenerator
// keeps as m_signals/m_body, concatenated into one architecture at the end.
type componentWalker struct {
	sg       *streamgraph.StreamGraph
	signals  strings.Builder
	body     strings.Builder
	fifoSeen map[string]bool

	// joinInputName maps a branch's boundary output *Channel to the
	// dedicated per-branch FIFO name it should feed, in place of the
	// (necessarily shared, and so physically unrealizable) join channel
	// name every branch's Channel.DstName carries. See writeSplitJoin.
	joinInputName map[*streamgraph.Channel]string
}

func generateComponent(sg *streamgraph.StreamGraph, moduleName string) (string, error) {
	w := &componentWalker{sg: sg, fifoSeen: map[string]bool{}, joinInputName: map[*streamgraph.Channel]string{}}
	w.collectJoinOverrides(sg.Root)
	w.visit(sg.Root)

	var out strings.Builder
	out.WriteString("library IEEE;\n")
	out.WriteString("use IEEE.STD_LOGIC_1164.ALL;\n")
	out.WriteString("use IEEE.NUMERIC_STD.ALL;\n\n")

	fmt.Fprintf(&out, "entity %s is\n", moduleName)
	out.WriteString("  port (\n")
	var ports []string
	if in := sg.InputChannel; in != nil {
		ports = append(ports,
			fmt.Sprintf("prog_din : in %s", in.ElemType.HDLVector()),
			"prog_empty_n : in std_logic",
			"prog_read : out std_logic",
		)
	}
	if outc := sg.OutputChannel; outc != nil {
		ports = append(ports,
			fmt.Sprintf("prog_dout : out %s", outc.ElemType.HDLVector()),
			"prog_full_n : in std_logic",
			"prog_write : out std_logic",
		)
	}
	ports = append(ports, "clk : in std_logic", "rst_n : in std_logic")
	out.WriteString(joinPorts(ports))
	out.WriteString("  );\n")
	fmt.Fprintf(&out, "end %s;\n\n", moduleName)

	fmt.Fprintf(&out, "architecture behav of %s is\n\n", moduleName)
	out.WriteString(fifoComponentDecl())
	for _, decl := range w.filterComponentDecls() {
		out.WriteString(decl)
	}
	out.WriteString("-- Signal declarations\n")
	out.WriteString(w.signals.String())
	out.WriteString("\nbegin\n\n")
	out.WriteString(w.body.String())
	out.WriteString("\nend behav;\n")
	return out.String(), nil
}

func joinPorts(ports []string) string {
	var b strings.Builder
	for i, p := range ports {
		sep := ";"
		if i == len(ports)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    %s%s\n", p, sep)
	}
	return b.String()
}

// fifoComponentDecl declares the generic FIFO queue every owned-input FIFO
// in this design instantiates, matching
// ComponentGenerator::WriteFIFOComponentDeclaration.
func fifoComponentDecl() string {
	return `-- FIFO queue component declaration
component ` + fifoComponentName + ` is
  generic (
    constant DATA_WIDTH : positive := 8;
    constant SIZE : positive := 16
  );
  port (
    clk : in std_logic;
    rst_n : in std_logic;
    read : in std_logic;
    write : in std_logic;
    empty_n : out std_logic;
    full_n : out std_logic;
    dout : out std_logic_vector(DATA_WIDTH - 1 downto 0);
    din : in std_logic_vector(DATA_WIDTH - 1 downto 0)
  );
end component;

`
}

// filterComponentDecls emits one component declaration per distinct
// FilterDecl reachable from the graph, mirroring
// ComponentGenerator::WriteFilterPermutation — one declaration per HLS-C
// translation unit internal/hdl/cbackend.Emit produced, not per instance.
func (w *componentWalker) filterComponentDecls() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range w.sg.Filters {
		if seen[f.Decl.Name] {
			continue
		}
		seen[f.Decl.Name] = true
		out = append(out, filterComponentDecl(f))
	}
	return out
}

func filterComponentDecl(f *streamgraph.FilterInstance) string {
	name := filterComponentName(f.Decl.Name)
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s (from filter %s)\n", name, f.Decl.Name)
	fmt.Fprintf(&b, "component %s is\n", name)
	b.WriteString("  port (\n")
	var ports []string
	ports = append(ports, "ap_clk : in std_logic", "ap_rst_n : in std_logic")
	if f.Decl.InputType.Kind() != types.Void {
		ports = append(ports,
			fmt.Sprintf("%sin_ptr_dout : in %s", hlsVariablePrefix, f.Decl.InputType.HDLVector()),
			hlsVariablePrefix+"in_ptr_empty_n : in std_logic",
			hlsVariablePrefix+"in_ptr_read : out std_logic",
		)
	}
	if f.Decl.OutputType.Kind() != types.Void {
		ports = append(ports,
			fmt.Sprintf("%sout_ptr_din : out %s", hlsVariablePrefix, f.Decl.OutputType.HDLVector()),
			hlsVariablePrefix+"out_ptr_full_n : in std_logic",
			hlsVariablePrefix+"out_ptr_write : out std_logic",
		)
	}
	b.WriteString(joinPorts(ports))
	b.WriteString("  );\n")
	b.WriteString("end component;\n\n")
	return b.String()
}

// visit walks the graph in the same order wireChannels built it in,
// emitting one owned input FIFO plus a component/process instantiation for
// every node that has one.
func (w *componentWalker) visit(n streamgraph.Node) {
	switch v := n.(type) {
	case *streamgraph.FilterInstance:
		w.visitFilter(v)
	case *streamgraph.PipelineNode:
		for _, c := range v.Children {
			w.visit(c)
		}
	case *streamgraph.SplitJoinNode:
		for _, br := range v.Branches {
			w.visit(br)
		}
		w.writeSplit(v)
		w.writeJoin(v)
	}
}

// ownedInputFIFO instantiates the FIFO a node with a non-void input reads
// from — every consumer in this design owns exactly one input FIFO, keyed
// by its own port name, matching Visit(Filter*)'s "<name>_fifo" convention
// generalized to composite nodes (a SplitJoinNode's split stage owns one
// too, sized as the sum of its split weights, or its branch count when
// those sum to 0, times streamgraph.FIFOSizeMultiplier).
func (w *componentWalker) ownedInputFIFO(portName string, elem *types.Type, depth int) {
	if w.fifoSeen[portName] {
		return
	}
	w.fifoSeen[portName] = true
	fmt.Fprintf(&w.signals, "signal %s_fifo_read : std_logic;\n", portName)
	fmt.Fprintf(&w.signals, "signal %s_fifo_write : std_logic;\n", portName)
	fmt.Fprintf(&w.signals, "signal %s_fifo_empty_n : std_logic;\n", portName)
	fmt.Fprintf(&w.signals, "signal %s_fifo_full_n : std_logic;\n", portName)
	fmt.Fprintf(&w.signals, "signal %s_fifo_dout : %s;\n", portName, elem.HDLVector())
	fmt.Fprintf(&w.signals, "signal %s_fifo_din : %s;\n", portName, elem.HDLVector())

	fmt.Fprintf(&w.body, "-- FIFO with depth %d\n", depth)
	fmt.Fprintf(&w.body, "%s_fifo : entity work.%s(behav)\n", portName, fifoComponentName)
	w.body.WriteString("  generic map (\n")
	fmt.Fprintf(&w.body, "    DATA_WIDTH => %d,\n", elem.BitWidth())
	fmt.Fprintf(&w.body, "    SIZE => %d\n", depth)
	w.body.WriteString("  )\n")
	w.body.WriteString("  port map (\n")
	w.body.WriteString("    clk => clk,\n")
	w.body.WriteString("    rst_n => rst_n,\n")
	fmt.Fprintf(&w.body, "    read => %s_fifo_read,\n", portName)
	fmt.Fprintf(&w.body, "    write => %s_fifo_write,\n", portName)
	fmt.Fprintf(&w.body, "    empty_n => %s_fifo_empty_n,\n", portName)
	fmt.Fprintf(&w.body, "    full_n => %s_fifo_full_n,\n", portName)
	fmt.Fprintf(&w.body, "    dout => %s_fifo_dout,\n", portName)
	fmt.Fprintf(&w.body, "    din => %s_fifo_din\n", portName)
	w.body.WriteString("  );\n\n")
}

// sinkPorts resolves the din/write/full_n signal triple a producer with
// boundary channel ch should drive: the program's output port, a dedicated
// per-branch join-input FIFO (see collectJoinOverrides), or the consumer's
// own owned input FIFO.
func (w *componentWalker) sinkPorts(ch *streamgraph.Channel) (din, write, fullN string) {
	if ch == w.sg.OutputChannel {
		return "prog_dout", "prog_write", "prog_full_n"
	}
	base := ch.DstName
	if name, ok := w.joinInputName[ch]; ok {
		base = name
	}
	return base + "_fifo_din", base + "_fifo_write", base + "_fifo_full_n"
}

func (w *componentWalker) visitFilter(f *streamgraph.FilterInstance) {
	name := f.InstanceName()
	fmt.Fprintf(&w.body, "-- Filter instance %s (filter %s)\n", name, f.Decl.Name)

	if f.In != nil {
		depth := f.In.Depth
		if depth == 0 {
			depth = streamgraph.FIFOSizeMultiplier
		}
		w.ownedInputFIFO(name, f.In.ElemType, depth)
	}

	fmt.Fprintf(&w.body, "%s : entity work.%s(behav)\n", name, filterComponentName(f.Decl.Name))
	w.body.WriteString("  port map (\n")
	var maps []string
	maps = append(maps, "ap_clk => clk", "ap_rst_n => rst_n")
	if f.In != nil {
		maps = append(maps,
			fmt.Sprintf("%sin_ptr_dout => %s_fifo_dout", hlsVariablePrefix, name),
			fmt.Sprintf("%sin_ptr_read => %s_fifo_read", hlsVariablePrefix, name),
			fmt.Sprintf("%sin_ptr_empty_n => %s_fifo_empty_n", hlsVariablePrefix, name),
		)
	}
	if f.Out != nil {
		din, write, fullN := w.sinkPorts(f.Out)
		maps = append(maps,
			fmt.Sprintf("%sout_ptr_din => %s", hlsVariablePrefix, din),
			fmt.Sprintf("%sout_ptr_write => %s", hlsVariablePrefix, write),
			fmt.Sprintf("%sout_ptr_full_n => %s", hlsVariablePrefix, fullN),
		)
	}
	w.body.WriteString(joinPorts(maps))
	w.body.WriteString("  );\n\n")
}
