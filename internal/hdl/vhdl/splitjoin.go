package vhdl

import (
	"fmt"
	"strings"

	"streamhls/internal/streamgraph"
)

// collectJoinOverrides walks the whole graph once, before any body text is
// generated, to decide the physical FIFO name every SplitJoinNode branch's
// producer should target. streamgraph's abstract Channel model gives every
// branch of a join the same DstName (the join's own port name), since at
// the scheduling level a join is a single logical consumer — but a real
// FIFO has exactly one writer, so N branches cannot literally share one
// signal. Each branch gets its own dedicated buffer instead; writeJoin
// instantiates one such buffer per branch and merges them.
func (w *componentWalker) collectJoinOverrides(n streamgraph.Node) {
	switch v := n.(type) {
	case *streamgraph.PipelineNode:
		for _, c := range v.Children {
			w.collectJoinOverrides(c)
		}
	case *streamgraph.SplitJoinNode:
		for i, br := range v.Branches {
			if ch := streamgraph.OutputChannelOf(br); ch != nil {
				w.joinInputName[ch] = fmt.Sprintf("%s_b%d", v.JoinName(), i)
			}
			w.collectJoinOverrides(br)
		}
	}
}

// writeSplit emits the weighted round-robin fan-out original_source's
// Visit(Split*) left as a no-op: a synchronous process that, once its own
// input FIFO holds an element and the currently-selected branch's input
// FIFO has room, transfers one element and advances a weighted round-robin
// selector across sj.SplitWeights.
func (w *componentWalker) writeSplit(sj *streamgraph.SplitJoinNode) {
	name := sj.SplitName()
	if sj.In != nil {
		total := sumInts(sj.SplitWeights)
		if total == 0 {
			total = len(sj.Branches)
		}
		w.ownedInputFIFO(name, sj.InputType, total*streamgraph.FIFOSizeMultiplier)
	}

	n := len(sj.Branches)
	branchFifo := make([]string, n)
	for i, br := range sj.Branches {
		branchFifo[i] = streamgraph.PortName(br, "in")
	}

	fmt.Fprintf(&w.body, "-- Split %s: weighted round-robin fan-out %v across %d branch(es)\n", name, sj.SplitWeights, n)
	fmt.Fprintf(&w.signals, "signal %s_sel : integer range 0 to %d := 0;\n", name, n-1)
	fmt.Fprintf(&w.signals, "signal %s_remaining : integer range 0 to %d := %d;\n", name, maxInt(sj.SplitWeights), sj.SplitWeights[0])

	for _, bf := range branchFifo {
		fmt.Fprintf(&w.body, "%s_fifo_din <= %s_fifo_dout;\n", bf, name)
	}
	w.body.WriteString("\n")

	var proc strings.Builder
	fmt.Fprintf(&proc, "process(clk, rst_n)\n")
	proc.WriteString("begin\n")
	proc.WriteString("  if rst_n = '0' then\n")
	fmt.Fprintf(&proc, "    %s_sel <= 0;\n", name)
	fmt.Fprintf(&proc, "    %s_remaining <= %d;\n", name, sj.SplitWeights[0])
	fmt.Fprintf(&proc, "    %s_fifo_read <= '0';\n", name)
	for _, bf := range branchFifo {
		fmt.Fprintf(&proc, "    %s_fifo_write <= '0';\n", bf)
	}
	proc.WriteString("  elsif rising_edge(clk) then\n")
	fmt.Fprintf(&proc, "    %s_fifo_read <= '0';\n", name)
	for _, bf := range branchFifo {
		fmt.Fprintf(&proc, "    %s_fifo_write <= '0';\n", bf)
	}
	proc.WriteString("    case " + name + "_sel is\n")
	for i, bf := range branchFifo {
		next := (i + 1) % n
		fmt.Fprintf(&proc, "      when %d =>\n", i)
		fmt.Fprintf(&proc, "        if %s_fifo_empty_n = '1' and %s_fifo_full_n = '1' then\n", name, bf)
		fmt.Fprintf(&proc, "          %s_fifo_read <= '1';\n", name)
		fmt.Fprintf(&proc, "          %s_fifo_write <= '1';\n", bf)
		fmt.Fprintf(&proc, "          if %s_remaining <= 1 then\n", name)
		fmt.Fprintf(&proc, "            %s_sel <= %d;\n", name, next)
		fmt.Fprintf(&proc, "            %s_remaining <= %d;\n", name, sj.SplitWeights[next])
		proc.WriteString("          else\n")
		fmt.Fprintf(&proc, "            %s_remaining <= %s_remaining - 1;\n", name, name)
		proc.WriteString("          end if;\n")
		proc.WriteString("        end if;\n")
	}
	proc.WriteString("      when others =>\n")
	fmt.Fprintf(&proc, "        %s_sel <= 0;\n", name)
	proc.WriteString("    end case;\n")
	proc.WriteString("  end if;\n")
	proc.WriteString("end process;\n\n")
	w.body.WriteString(proc.String())
}

// writeJoin instantiates one dedicated buffer FIFO per branch (fed by that
// branch's own last producer via the collectJoinOverrides target) and a
// synchronous process that merges them by weighted round robin
// (sj.JoinWeights) into whatever downstream sink sj's own Out channel
// resolves to.
func (w *componentWalker) writeJoin(sj *streamgraph.SplitJoinNode) {
	name := sj.JoinName()
	n := len(sj.Branches)
	branchFifo := make([]string, n)
	for i := range sj.Branches {
		branchFifo[i] = fmt.Sprintf("%s_b%d", name, i)
		weight := 1
		if i < len(sj.JoinWeights) {
			weight = sj.JoinWeights[i]
		}
		depth := weight * streamgraph.FIFOSizeMultiplier
		if depth == 0 {
			depth = streamgraph.FIFOSizeMultiplier
		}
		w.ownedInputFIFO(branchFifo[i], sj.OutputType, depth)
	}

	din, write, fullN := "", "", ""
	if sj.Out != nil {
		din, write, fullN = w.sinkPorts(sj.Out)
	}

	fmt.Fprintf(&w.body, "-- Join %s: weighted round-robin merge %v across %d branch(es)\n", name, sj.JoinWeights, n)
	fmt.Fprintf(&w.signals, "signal %s_sel : integer range 0 to %d := 0;\n", name, n-1)
	fmt.Fprintf(&w.signals, "signal %s_remaining : integer range 0 to %d := %d;\n", name, maxInt(sj.JoinWeights), sj.JoinWeights[0])

	if din != "" {
		w.body.WriteString("with " + name + "_sel select\n")
		for i, bf := range branchFifo {
			sep := ","
			cond := fmt.Sprintf("%d", i)
			if i == n-1 {
				sep = ";"
				cond = "others"
			}
			fmt.Fprintf(&w.body, "  %s <= %s_fifo_dout when %s%s\n", din, bf, cond, sep)
		}
		w.body.WriteString("\n")
	}

	var proc strings.Builder
	proc.WriteString("process(clk, rst_n)\n")
	proc.WriteString("begin\n")
	proc.WriteString("  if rst_n = '0' then\n")
	fmt.Fprintf(&proc, "    %s_sel <= 0;\n", name)
	fmt.Fprintf(&proc, "    %s_remaining <= %d;\n", name, sj.JoinWeights[0])
	for _, bf := range branchFifo {
		fmt.Fprintf(&proc, "    %s_fifo_read <= '0';\n", bf)
	}
	if write != "" {
		fmt.Fprintf(&proc, "    %s <= '0';\n", write)
	}
	proc.WriteString("  elsif rising_edge(clk) then\n")
	for _, bf := range branchFifo {
		fmt.Fprintf(&proc, "    %s_fifo_read <= '0';\n", bf)
	}
	if write != "" {
		fmt.Fprintf(&proc, "    %s <= '0';\n", write)
	}
	proc.WriteString("    case " + name + "_sel is\n")
	for i, bf := range branchFifo {
		next := (i + 1) % n
		fmt.Fprintf(&proc, "      when %d =>\n", i)
		if write != "" {
			fmt.Fprintf(&proc, "        if %s_fifo_empty_n = '1' and %s = '1' then\n", bf, fullN)
			fmt.Fprintf(&proc, "          %s_fifo_read <= '1';\n", bf)
			fmt.Fprintf(&proc, "          %s <= '1';\n", write)
		} else {
			fmt.Fprintf(&proc, "        if %s_fifo_empty_n = '1' then\n", bf)
			fmt.Fprintf(&proc, "          %s_fifo_read <= '1';\n", bf)
		}
		fmt.Fprintf(&proc, "          if %s_remaining <= 1 then\n", name)
		fmt.Fprintf(&proc, "            %s_sel <= %d;\n", name, next)
		fmt.Fprintf(&proc, "            %s_remaining <= %d;\n", name, sj.JoinWeights[next])
		proc.WriteString("          else\n")
		fmt.Fprintf(&proc, "            %s_remaining <= %s_remaining - 1;\n", name, name)
		proc.WriteString("          end if;\n")
		proc.WriteString("        end if;\n")
	}
	proc.WriteString("      when others =>\n")
	fmt.Fprintf(&proc, "        %s_sel <= 0;\n", name)
	proc.WriteString("    end case;\n")
	proc.WriteString("  end if;\n")
	proc.WriteString("end process;\n\n")
	w.body.WriteString(proc.String())
}

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func maxInt(xs []int) int {
	if len(xs) == 0 {
		return 1
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
