package streamgraph

import (
	"math/big"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/source"
)

// solve computes (im, om): the number of elements one steady-state
// iteration of n consumes and produces. It is the §4.4 "propagate by LCM
// scaling" step, applied bottom-up — every recursive call also mutates the
// leaf FilterInstance.Firings fields it visits by the repeat factor needed
// to reconcile n's own children, so by the time solve(root, ...) returns
// every leaf's Firings is the final steady-state invocation count.
//
// math/big.Rat carries the intermediate per-child repeat ratios exactly;
// nothing in the retrieved examples ships a rational-arithmetic library, and
// this is the same class of "no third-party fit, stdlib is the primitive
// itself" case as internal/types' use of plain int arithmetic — there is no
// ecosystem alternative to the standard library's arbitrary-precision
// rational type.
func solve(n Node, reporter *diag.Reporter, pos source.Position) (im, om int, ok bool) {
	switch v := n.(type) {
	case *FilterInstance:
		return v.Pop, v.Push, true
	case *PipelineNode:
		return solvePipeline(v, reporter, pos)
	case *SplitJoinNode:
		return solveSplitJoin(v, reporter, pos)
	default:
		reporter.Internal(pos, "streamgraph: solve on unknown node type")
		return 0, 0, false
	}
}

func solvePipeline(p *PipelineNode, reporter *diag.Reporter, pos source.Position) (int, int, bool) {
	n := len(p.Children)
	ims := make([]int, n)
	oms := make([]int, n)
	for i, c := range p.Children {
		im, om, ok := solve(c, reporter, pos)
		if !ok {
			return 0, 0, false
		}
		ims[i], oms[i] = im, om
	}

	ratio := make([]*big.Rat, n)
	ratio[0] = big.NewRat(1, 1)
	for i := 0; i+1 < n; i++ {
		if oms[i] == 0 || ims[i+1] == 0 {
			reporter.Errorf(diag.KindUnschedulableGraph, pos,
				"pipeline %s: stage %d has a zero steady-state rate on an internal channel", p.DeclName, i)
			return 0, 0, false
		}
		step := big.NewRat(int64(oms[i]), int64(ims[i+1]))
		ratio[i+1] = new(big.Rat).Mul(ratio[i], step)
	}

	denomLCM := int64(1)
	for _, r := range ratio {
		denomLCM = lcm64(denomLCM, r.Denom().Int64())
	}
	repeats := make([]int, n)
	for i, r := range ratio {
		scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt64(denomLCM))
		if !scaled.IsInt() {
			reporter.Errorf(diag.KindUnschedulableGraph, pos,
				"pipeline %s: no integer steady-state schedule reconciles all stage rates", p.DeclName)
			return 0, 0, false
		}
		repeats[i] = int(scaled.Num().Int64())
	}
	for i, c := range p.Children {
		scaleFactor(c, repeats[i])
	}
	p.InMult = repeats[0] * ims[0]
	p.OutMult = repeats[n-1] * oms[n-1]
	return p.InMult, p.OutMult, true
}

func solveSplitJoin(sj *SplitJoinNode, reporter *diag.Reporter, pos source.Position) (int, int, bool) {
	n := len(sj.Branches)
	ims := make([]int, n)
	oms := make([]int, n)
	for i, b := range sj.Branches {
		im, om, ok := solve(b, reporter, pos)
		if !ok {
			return 0, 0, false
		}
		if im == 0 {
			reporter.Errorf(diag.KindUnschedulableGraph, pos,
				"splitjoin %s: branch %d has a zero input rate", sj.DeclName, i)
			return 0, 0, false
		}
		ims[i], oms[i] = im, om
	}

	repeats := make([]int64, n)
	var trunk int64
	switch sj.Policy {
	case ast.SplitDuplicate:
		trunk = 1
		for _, im := range ims {
			trunk = lcm64(trunk, int64(im))
		}
		for i := range sj.Branches {
			repeats[i] = trunk / int64(ims[i])
		}
	default: // ast.SplitRoundRobin
		w := sumInts(sj.SplitWeights)
		if w == 0 {
			reporter.Errorf(diag.KindUnschedulableGraph, pos, "splitjoin %s: round-robin split weights sum to zero", sj.DeclName)
			return 0, 0, false
		}
		trunk = 1
		for i := range sj.Branches {
			wi := int64(sj.SplitWeights[i])
			if wi == 0 {
				continue
			}
			den := int64(w) * int64(ims[i])
			trunk = lcm64(trunk, den/gcd64(wi, den))
		}
		for i := range sj.Branches {
			wi := int64(sj.SplitWeights[i])
			repeats[i] = trunk * wi / (int64(w) * int64(ims[i]))
		}
	}

	var outTotal int64
	for i, b := range sj.Branches {
		if repeats[i] <= 0 {
			reporter.Errorf(diag.KindUnschedulableGraph, pos, "splitjoin %s: branch %d never fires under this split policy", sj.DeclName, i)
			return 0, 0, false
		}
		scaleFactor(b, int(repeats[i]))
		outTotal += repeats[i] * int64(oms[i])
	}
	sj.InMult = int(trunk)
	sj.OutMult = int(outTotal)
	return sj.InMult, sj.OutMult, true
}

func gcd64(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func lcm64(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd64(a, b) * b
}
