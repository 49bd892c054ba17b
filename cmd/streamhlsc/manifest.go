package main

import (
	"fmt"
	"sort"
	"strings"

	"streamhls/internal/hdl/cbackend"
	"streamhls/internal/hdl/vhdl"
)

// manifestText renders spec §6's "one project manifest listing all produced
// files": a flat, sorted list a build script can feed straight to a
// synthesis tool's file-add step, one path per line grouped by kind. Plain
// text rather than JSON matches internal/diag's own "text" default and
// keeps the manifest readable without a second tool.
func manifestText(units []cbackend.Unit, proj *vhdl.Project) string {
	var b strings.Builder
	b.WriteString("# streamhlsc project manifest\n\n")

	cFiles := make([]string, 0, len(units))
	for _, u := range units {
		cFiles = append(cFiles, u.FileName)
	}
	sort.Strings(cFiles)
	fmt.Fprintf(&b, "## HLS C sources (%d)\n", len(cFiles))
	for _, f := range cFiles {
		fmt.Fprintf(&b, "%s\n", f)
	}
	b.WriteString("\n")

	wrapperFiles := make([]string, 0, len(proj.Wrappers))
	for _, w := range proj.Wrappers {
		wrapperFiles = append(wrapperFiles, w.FileName)
	}
	sort.Strings(wrapperFiles)
	fmt.Fprintf(&b, "## VHDL component wrappers (%d)\n", len(wrapperFiles))
	for _, f := range wrapperFiles {
		fmt.Fprintf(&b, "%s\n", f)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## VHDL top-level interconnect\n%s\n\n", proj.ComponentFile)
	fmt.Fprintf(&b, "## VHDL test bench\n%s\n", proj.TestBenchFile)
	return b.String()
}
