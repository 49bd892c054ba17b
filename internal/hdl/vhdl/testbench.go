package vhdl

import (
	"fmt"
	"strings"

	"streamhls/internal/streamgraph"
)

// TestBenchOptions parameterizes generateTestBench's stimulus and capture.
// original_source/src/hlstarget/component_test_bench_generator.cpp's
// WriteInputGenerator left its data-generation step as a bare
// "-- TODO: data generation" comment; DefaultTestBenchOptions fills that gap
// with a small counting pattern, and a caller of Emit can pass its own
// Pattern instead (cmd/streamhlsc always passes DefaultTestBenchOptions).
type TestBenchOptions struct {
	ClockPeriodNS int
	ResetCycles   int
	Pattern       []int64 // values pumped into the input channel, one per beat
	OutputPath    string  // file the output consumer records captured beats to
}

// DefaultTestBenchOptions mirrors the reset timing
// ComponentTestBenchGenerator::WriteResetProcess hard-codes (1ns period,
// ~500 cycles of reset) and supplies a 16-beat ramp as stimulus when the
// caller has no specific pattern in mind.
func DefaultTestBenchOptions() TestBenchOptions {
	pattern := make([]int64, 16)
	for i := range pattern {
		pattern[i] = int64(i)
	}
	return TestBenchOptions{ClockPeriodNS: 1, ResetCycles: 500, Pattern: pattern, OutputPath: "output.txt"}
}

func generateTestBench(sg *streamgraph.StreamGraph, moduleName string, opts TestBenchOptions) (string, error) {
	if opts.ClockPeriodNS <= 0 {
		opts.ClockPeriodNS = 1
	}
	if opts.ResetCycles <= 0 {
		opts.ResetCycles = 500
	}
	tbName := moduleName + "_tb"

	var signals, body strings.Builder

	signals.WriteString("signal CLK_PERIOD : time := " + fmt.Sprintf("%dns", opts.ClockPeriodNS) + ";\n")
	signals.WriteString("signal clk : std_logic := '0';\n")
	signals.WriteString("signal runsim : std_logic := '1';\n")
	signals.WriteString("signal rst_n : std_logic := '0';\n")

	body.WriteString(clockGeneratorProcess())

	var dutMaps []string
	dutMaps = append(dutMaps, "clk => clk", "rst_n => rst_n")

	if in := sg.InputChannel; in != nil {
		signals.WriteString(fifoSignalBlock("input_fifo", in.ElemType.HDLVector()))
		body.WriteString(fifoInstance("input_fifo", in.ElemType.BitWidth(), in.Depth))
		body.WriteString(inputGeneratorProcess(in.ElemType.HDLVector(), in.ElemType.BitWidth(), opts.Pattern))
		dutMaps = append(dutMaps,
			"prog_din => input_fifo_dout",
			"prog_read => input_fifo_read",
			"prog_empty_n => input_fifo_empty_n",
		)
	}
	if out := sg.OutputChannel; out != nil {
		signals.WriteString(fifoSignalBlock("output_fifo", out.ElemType.HDLVector()))
		body.WriteString(fifoInstance("output_fifo", out.ElemType.BitWidth(), out.Depth))
		body.WriteString(outputConsumerProcess(opts.OutputPath))
		dutMaps = append(dutMaps,
			"prog_dout => output_fifo_din",
			"prog_write => output_fifo_write",
			"prog_full_n => output_fifo_full_n",
		)
	}

	fmt.Fprintf(&body, "%s_comp : entity work.%s(behav)\n", moduleName, moduleName)
	body.WriteString("  port map (\n")
	body.WriteString(joinPorts(dutMaps))
	body.WriteString("  );\n\n")

	body.WriteString(resetProcess(opts.ResetCycles))

	var out strings.Builder
	out.WriteString("library IEEE;\n")
	out.WriteString("use IEEE.STD_LOGIC_1164.ALL;\n")
	out.WriteString("use IEEE.NUMERIC_STD.ALL;\n")
	out.WriteString("use STD.TEXTIO.ALL;\n")
	out.WriteString("use IEEE.STD_LOGIC_TEXTIO.ALL;\n\n")
	fmt.Fprintf(&out, "entity %s is\nend %s;\n\n", tbName, tbName)
	fmt.Fprintf(&out, "architecture behav of %s is\n\n", tbName)
	out.WriteString(fifoComponentDecl())
	fmt.Fprintf(&out, "component %s is\n", moduleName)
	out.WriteString("  port (\n")
	var dutPorts []string
	if sg.InputChannel != nil {
		dutPorts = append(dutPorts,
			fmt.Sprintf("prog_din : in %s", sg.InputChannel.ElemType.HDLVector()),
			"prog_empty_n : in std_logic",
			"prog_read : out std_logic",
		)
	}
	if sg.OutputChannel != nil {
		dutPorts = append(dutPorts,
			fmt.Sprintf("prog_dout : out %s", sg.OutputChannel.ElemType.HDLVector()),
			"prog_full_n : in std_logic",
			"prog_write : out std_logic",
		)
	}
	dutPorts = append(dutPorts, "clk : in std_logic", "rst_n : in std_logic")
	out.WriteString(joinPorts(dutPorts))
	out.WriteString("  );\nend component;\n\n")

	out.WriteString(signals.String())
	out.WriteString("\nbegin\n\n")
	out.WriteString(body.String())
	out.WriteString("end behav;\n")
	return out.String(), nil
}

func clockGeneratorProcess() string {
	return `process
begin
  if runsim = '1' then
    clk <= '0';
    wait for CLK_PERIOD / 2;
    clk <= '1';
    wait for CLK_PERIOD / 2;
  else
    wait;
  end if;
end process;

`
}

func fifoSignalBlock(name, elemVec string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "signal %s_read : std_logic;\n", name)
	fmt.Fprintf(&b, "signal %s_write : std_logic;\n", name)
	fmt.Fprintf(&b, "signal %s_empty_n : std_logic;\n", name)
	fmt.Fprintf(&b, "signal %s_full_n : std_logic;\n", name)
	fmt.Fprintf(&b, "signal %s_dout : %s;\n", name, elemVec)
	fmt.Fprintf(&b, "signal %s_din : %s;\n", name, elemVec)
	return b.String()
}

func fifoInstance(name string, width, depth int) string {
	if depth <= 0 {
		depth = streamgraph.FIFOSizeMultiplier
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s : entity work.%s(behav)\n", name, fifoComponentName)
	b.WriteString("  generic map (\n")
	fmt.Fprintf(&b, "    DATA_WIDTH => %d,\n", width)
	fmt.Fprintf(&b, "    SIZE => %d\n", depth)
	b.WriteString("  )\n")
	b.WriteString("  port map (\n")
	b.WriteString("    clk => clk,\n")
	b.WriteString("    rst_n => rst_n,\n")
	fmt.Fprintf(&b, "    read => %s_read,\n", name)
	fmt.Fprintf(&b, "    write => %s_write,\n", name)
	fmt.Fprintf(&b, "    empty_n => %s_empty_n,\n", name)
	fmt.Fprintf(&b, "    full_n => %s_full_n,\n", name)
	fmt.Fprintf(&b, "    dout => %s_dout,\n", name)
	fmt.Fprintf(&b, "    din => %s_din\n", name)
	b.WriteString("  );\n\n")
	return b.String()
}

// inputGeneratorProcess replaces the original's unfinished data-generation
// step with a fixed constant array driven into input_fifo one beat per
// cycle, blocking on full_n the way a real HLS-generated producer would.
func inputGeneratorProcess(elemVec string, width int, pattern []int64) string {
	if len(pattern) == 0 {
		pattern = []int64{0}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "type input_pattern_t is array (0 to %d) of %s;\n", len(pattern)-1, elemVec)
	b.WriteString("constant INPUT_PATTERN : input_pattern_t := (\n")
	for i, v := range pattern {
		sep := ","
		if i == len(pattern)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  std_logic_vector(to_signed(%d, %d))%s\n", v, width, sep)
	}
	b.WriteString(");\n\n")
	b.WriteString(`process
  variable idx : integer := 0;
begin
  input_fifo_write <= '0';
  wait until rst_n = '1';
  while idx <= INPUT_PATTERN'high loop
    wait until rising_edge(clk);
    if input_fifo_full_n = '1' then
      input_fifo_din <= INPUT_PATTERN(idx);
      input_fifo_write <= '1';
      idx := idx + 1;
    else
      input_fifo_write <= '0';
    end if;
  end loop;
  wait until rising_edge(clk);
  input_fifo_write <= '0';
  wait;
end process;

`)
	return b.String()
}

// outputConsumerProcess captures every beat output_fifo produces to a text
// file via std.textio, replacing
// ComponentTestBenchGenerator::WriteOutputConsumer's report-only capture —
// useful when a caller wants to diff simulation output against a reference
// trace rather than scrape a simulator's console log.
func outputConsumerProcess(path string) string {
	return fmt.Sprintf(`process
  file result_file : text open write_mode is %q;
  variable line_buf : line;
begin
  wait until rst_n = '1';
  loop
    wait until rising_edge(clk);
    if output_fifo_empty_n = '1' then
      output_fifo_read <= '1';
      write(line_buf, to_integer(signed(output_fifo_dout)));
      writeline(result_file, line_buf);
      report "output beat: " & integer'image(to_integer(signed(output_fifo_dout)));
    else
      output_fifo_read <= '0';
    end if;
  end loop;
end process;

`, path)
}

func resetProcess(cycles int) string {
	return fmt.Sprintf(`process
begin
  rst_n <= '0';
  wait for CLK_PERIOD * %d;
  rst_n <= '1';
  wait for CLK_PERIOD * %d;
  runsim <= '0';
  wait;
end process;

`, cycles, cycles)
}
