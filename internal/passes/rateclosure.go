package passes

import (
	"fmt"

	"streamhls/internal/diag"
	"streamhls/internal/source"
	"streamhls/internal/streamgraph"
)

// RateClosure verifies spec §8's rate-closure invariant: for every channel,
// multiplicity is a positive integer, and producer.firings×push_rate equals
// consumer.firings×pop_rate. internal/streamgraph's solver already guarantees
// this by construction (schedule.go's LCM reconciliation), so a violation
// here means a bug in the solver rather than a malformed program —
// RateClosure exists as the same kind of after-the-fact invariant check the
// teacher's WidthInference performs over its own fixed point, reported
// through diag.KindUnschedulableGraph rather than returned as a bare Go
// error, so a caller can collect every violation in one pass instead of
// stopping at the first.
type RateClosure struct {
	reporter *diag.Reporter
}

// NewRateClosure constructs the pass. reporter is optional; without one the
// pass still returns a Go error summarizing how many violations it found.
func NewRateClosure(reporter *diag.Reporter) *RateClosure {
	return &RateClosure{reporter: reporter}
}

func (p *RateClosure) Name() string { return "rate-closure" }

func (p *RateClosure) Run(sg *streamgraph.StreamGraph) error {
	violations := 0
	for _, f := range sg.Filters {
		pos := f.Decl.Pos()
		if f.Firings <= 0 {
			violations += p.report(pos, fmt.Sprintf("filter instance %s has non-positive firing count %d", f.InstanceName(), f.Firings))
			continue
		}
		if f.In != nil {
			want := f.Firings * f.Pop
			if f.In.Multiplicity != want {
				violations += p.report(pos, fmt.Sprintf(
					"filter instance %s: input channel multiplicity %d does not equal firings(%d)*pop_rate(%d)=%d",
					f.InstanceName(), f.In.Multiplicity, f.Firings, f.Pop, want))
			}
		}
		if f.Out != nil {
			want := f.Firings * f.Push
			if f.Out.Multiplicity != want {
				violations += p.report(pos, fmt.Sprintf(
					"filter instance %s: output channel multiplicity %d does not equal firings(%d)*push_rate(%d)=%d",
					f.InstanceName(), f.Out.Multiplicity, f.Firings, f.Push, want))
			}
		}
	}
	var zero source.Position
	for _, ch := range sg.Channels {
		if ch.Multiplicity <= 0 {
			violations += p.report(zero, fmt.Sprintf("channel %s->%s has non-positive multiplicity %d", ch.SrcName, ch.DstName, ch.Multiplicity))
			continue
		}
		if ch.Depth != ch.Multiplicity*streamgraph.FIFOSizeMultiplier {
			violations += p.report(zero, fmt.Sprintf("channel %s->%s depth %d does not equal multiplicity(%d)*%d",
				ch.SrcName, ch.DstName, ch.Depth, ch.Multiplicity, streamgraph.FIFOSizeMultiplier))
		}
	}
	if violations > 0 {
		return fmt.Errorf("rate closure violated at %d location(s)", violations)
	}
	return nil
}

func (p *RateClosure) report(pos source.Position, msg string) int {
	if p.reporter != nil {
		p.reporter.Errorf(diag.KindUnschedulableGraph, pos, "%s", msg)
	}
	return 1
}
