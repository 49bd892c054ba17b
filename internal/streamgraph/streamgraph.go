// Package streamgraph implements the C4 Stream-Graph Builder of spec §4.4:
// given a fully analysed program and the name of a top-level void→void
// stream declaration, it recursively elaborates Pipeline/SplitJoin/Filter
// declarations into a directed acyclic graph of filter instances, resolves
// each `add` statement's constant arguments, and solves the steady-state
// firing counts and channel multiplicities that C5 needs to size FIFOs.
//
// The node hierarchy mirrors original_source/src/streamgraph/streamgraph.h's
// Node/Filter/Pipeline/SplitJoin/Split/Join classes, but replaces its
// virtual-dispatch Visitor with a closed set of concrete Go types plus a
// type switch, per design note 9's "prefer a tagged union walked with a
// type switch over a visitor hierarchy" guidance — the same choice
// internal/ast already made for Decl/Expr/Stmt.
package streamgraph

import (
	"fmt"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/irgen"
	"streamhls/internal/source"
	"streamhls/internal/types"
)

// FIFOSizeMultiplier is §4.4's "Channel depth = multiplicity ×
// FIFO_SIZE_MULTIPLIER" constant: enough slack that a filter's steady-state
// burst never stalls its consumer on a single-buffered channel.
const FIFOSizeMultiplier = 4

// Node is one element of the elaborated stream graph. The concrete variants
// are *FilterInstance, *PipelineNode and *SplitJoinNode.
type Node interface {
	nodeKind()
}

// Channel is one FIFO edge of the graph: a producer's push port connected
// to a consumer's pop port, sized by the steady-state schedule.
type Channel struct {
	ElemType     *types.Type
	Multiplicity int // elements moved per steady-state graph iteration
	Depth        int // FIFO capacity
	SrcName      string
	DstName      string
}

// FilterInstance is a leaf of the graph: one instantiation of a FilterDecl
// with its caller-substituted constant parameter values bound.
type FilterInstance struct {
	ID      int
	Decl    *ast.FilterDecl
	Args    map[string]int64 // parameter name -> bound constant value
	Peek    int
	Pop     int
	Push    int
	Firings int // steady-state work-block invocations per graph iteration

	In, Out *Channel
}

func (*FilterInstance) nodeKind() {}

// InstanceName is the identifier C5 uses for this instance's generated C
// function names and VHDL component label, unique even when the same
// FilterDecl is added more than once.
func (f *FilterInstance) InstanceName() string {
	return fmt.Sprintf("%s_%d", irgen.SanitizeName(f.Decl.Name), f.ID)
}

// PipelineNode serially composes its children left to right.
type PipelineNode struct {
	DeclName string
	Children []Node

	InMult, OutMult int
}

func (*PipelineNode) nodeKind() {}

// SplitJoinNode fans a single input stream out to N parallel branches and
// back into one output stream.
type SplitJoinNode struct {
	ID           int
	DeclName     string
	InputType    *types.Type
	OutputType   *types.Type
	Policy       ast.SplitPolicy
	SplitWeights []int
	Branches     []Node
	JoinWeights  []int

	In, Out *Channel

	InMult, OutMult int
}

func (*SplitJoinNode) nodeKind() {}

func (sj *SplitJoinNode) splitName() string { return fmt.Sprintf("%s_split_%d", sj.DeclName, sj.ID) }
func (sj *SplitJoinNode) joinName() string  { return fmt.Sprintf("%s_join_%d", sj.DeclName, sj.ID) }

// SplitName and JoinName are the wire identities C5b uses to label the
// split/join distribution logic it generates for this node — the same
// strings already baked into this node's boundary Channel.SrcName/DstName
// fields by wireChannels, exported so the VHDL emitter never has to
// re-derive them.
func (sj *SplitJoinNode) SplitName() string { return sj.splitName() }
func (sj *SplitJoinNode) JoinName() string  { return sj.joinName() }

// PortName returns the wire identity a graph consumer/producer on side
// ("in" or "out") of n resolves to — a leaf filter's own instance name, or
// a composite's boundary child/split/join name. C5b uses this to name the
// FIFO a node owns on its input side.
func PortName(n Node, side string) string { return portName(n, side) }

// OutputChannelOf and InputChannelOf expose the boundary *Channel a node
// reads from or writes to, without exposing the builder-only inputSlot/
// outputSlot pointer-setters.
func OutputChannelOf(n Node) *Channel {
	if s := outputSlot(n); s != nil {
		return *s
	}
	return nil
}

func InputChannelOf(n Node) *Channel {
	if s := inputSlot(n); s != nil {
		return *s
	}
	return nil
}

// StreamGraph is the finished elaboration: the root node, every channel in
// declaration order (used by C5b to size FIFOs), the flattened filter
// instance list (used by C5a to know what to emit C for), and the graph's
// own external boundary channels when the entry point isn't void→void.
type StreamGraph struct {
	Prog                        *ast.Program
	Root                        Node
	Channels                    []*Channel
	Filters                     []*FilterInstance
	InputChannel, OutputChannel *Channel
}

// Build elaborates entry (a FilterDecl/PipelineDecl/SplitJoinDecl top-level
// DeclID, typically void→void per §4.4) into a finished StreamGraph. It
// reports diagnostics through reporter and returns ok=false the moment any
// PipelineTypeMismatch or UnschedulableGraph condition is found.
func Build(prog *ast.Program, reporter *diag.Reporter, entry ast.DeclID) (*StreamGraph, bool) {
	b := &builder{prog: prog, reporter: reporter}
	root := b.elaborate(entry, nil)
	if root == nil || reporter.HasErrors() {
		return nil, false
	}
	pos := declPos(prog, entry)
	if _, _, ok := solve(root, reporter, pos); !ok {
		return nil, false
	}
	sg := &StreamGraph{Prog: prog, Root: root}
	wireChannels(sg, root)
	if in := elemInputType(root); in != nil && in.Kind() != types.Void {
		mult := nodeInMult(root)
		sg.InputChannel = &Channel{ElemType: in, Multiplicity: mult, Depth: mult * FIFOSizeMultiplier, SrcName: "tb_input", DstName: portName(root, "in")}
		*inputSlot(root) = sg.InputChannel
		sg.Channels = append(sg.Channels, sg.InputChannel)
	}
	if out := elemOutputType(root); out != nil && out.Kind() != types.Void {
		mult := nodeOutMult(root)
		sg.OutputChannel = &Channel{ElemType: out, Multiplicity: mult, Depth: mult * FIFOSizeMultiplier, SrcName: portName(root, "out"), DstName: "tb_output"}
		*outputSlot(root) = sg.OutputChannel
		sg.Channels = append(sg.Channels, sg.OutputChannel)
	}
	sg.Filters = collectFilters(root, nil)
	if reporter.HasErrors() {
		return nil, false
	}
	return sg, true
}

// FindEntry locates the stream declaration Build should elaborate: the one
// named name, or — when name is empty — the first top-level declaration
// with a void→void signature (§4.4's "given a top-level void → void
// pipeline declaration").
func FindEntry(prog *ast.Program, name string) (ast.DeclID, bool) {
	for _, id := range prog.TopLevel {
		n, in, out := streamSignature(prog, id)
		if n == "" {
			continue
		}
		if name != "" {
			if n == name {
				return id, true
			}
			continue
		}
		if in != nil && out != nil && in.Kind() == types.Void && out.Kind() == types.Void {
			return id, true
		}
	}
	return ast.InvalidDecl, false
}

func streamSignature(prog *ast.Program, id ast.DeclID) (name string, in, out *types.Type) {
	switch d := prog.Decl(id).(type) {
	case *ast.FilterDecl:
		return d.Name, d.InputType, d.OutputType
	case *ast.PipelineDecl:
		return d.Name, d.InputType, d.OutputType
	case *ast.SplitJoinDecl:
		return d.Name, d.InputType, d.OutputType
	default:
		return "", nil, nil
	}
}

func declPos(prog *ast.Program, id ast.DeclID) source.Position {
	if d := prog.Decl(id); d != nil {
		return d.Pos()
	}
	return source.Position{}
}

type builder struct {
	prog          *ast.Program
	reporter      *diag.Reporter
	filterCounter int
	sjCounter     int
}

func (b *builder) elaborate(id ast.DeclID, args map[string]int64) Node {
	switch d := b.prog.Decl(id).(type) {
	case *ast.FilterDecl:
		return b.buildFilter(d, args)
	case *ast.PipelineDecl:
		return b.buildPipeline(d, args)
	case *ast.SplitJoinDecl:
		return b.buildSplitJoin(d, args)
	default:
		b.reporter.Internal(source.Position{}, "streamgraph: add target is not a stream declaration")
		return nil
	}
}

func (b *builder) buildFilter(d *ast.FilterDecl, args map[string]int64) Node {
	b.filterCounter++
	f := &FilterInstance{ID: b.filterCounter, Decl: d, Args: args, Firings: 1}
	if d.Work != nil {
		f.Peek, f.Pop, f.Push = d.Work.ResolvedPeek, d.Work.ResolvedPop, d.Work.ResolvedPush
	}
	return f
}

func (b *builder) buildPipeline(d *ast.PipelineDecl, args map[string]int64) Node {
	var children []Node
	for _, sid := range d.Body {
		add, ok := b.prog.Stmt(sid).(*ast.AddStmt)
		if !ok {
			continue
		}
		child := b.elaborate(add.Target, b.bindArgs(add))
		if child != nil {
			children = append(children, child)
		}
	}
	if len(children) == 0 {
		b.reporter.Errorf(diag.KindUnschedulableGraph, d.Pos(), "pipeline %s: has no children to elaborate", d.Name)
		return nil
	}
	for i := 0; i+1 < len(children); i++ {
		outT, inT := elemOutputType(children[i]), elemInputType(children[i+1])
		if outT != inT {
			b.reporter.Errorf(diag.KindPipelineTypeMismatch, d.Pos(),
				"pipeline %s: channel type mismatch between stage %d (%s) and stage %d (%s)", d.Name, i, outT, i+1, inT)
		}
	}
	return &PipelineNode{DeclName: d.Name, Children: children}
}

func (b *builder) buildSplitJoin(d *ast.SplitJoinDecl, args map[string]int64) Node {
	b.sjCounter++
	sj := &SplitJoinNode{ID: b.sjCounter, DeclName: d.Name, InputType: d.InputType, OutputType: d.OutputType}
	for _, sid := range d.Body {
		switch st := b.prog.Stmt(sid).(type) {
		case *ast.SplitStmt:
			sj.Policy = st.Policy
			sj.SplitWeights = append([]int(nil), st.Weights...)
		case *ast.AddStmt:
			if child := b.elaborate(st.Target, b.bindArgs(st)); child != nil {
				sj.Branches = append(sj.Branches, child)
			}
		case *ast.JoinStmt:
			sj.JoinWeights = append([]int(nil), st.Weights...)
		}
	}
	if len(sj.Branches) == 0 {
		b.reporter.Errorf(diag.KindUnschedulableGraph, d.Pos(), "splitjoin %s: has no branches to elaborate", d.Name)
		return nil
	}
	if len(sj.SplitWeights) == 0 {
		sj.SplitWeights = onesLike(len(sj.Branches))
	}
	if len(sj.JoinWeights) == 0 {
		sj.JoinWeights = onesLike(len(sj.Branches))
	}
	if len(sj.SplitWeights) != len(sj.Branches) {
		b.reporter.Errorf(diag.KindPipelineTypeMismatch, d.Pos(),
			"splitjoin %s: split has %d weight(s) for %d branch(es)", d.Name, len(sj.SplitWeights), len(sj.Branches))
	}
	for i, br := range sj.Branches {
		if it := elemInputType(br); it != sj.InputType {
			b.reporter.Errorf(diag.KindPipelineTypeMismatch, d.Pos(),
				"splitjoin %s: branch %d input type %s does not match splitjoin input type %s", d.Name, i, it, sj.InputType)
		}
		if ot := elemOutputType(br); ot != sj.OutputType {
			b.reporter.Errorf(diag.KindPipelineTypeMismatch, d.Pos(),
				"splitjoin %s: branch %d output type %s does not match splitjoin output type %s", d.Name, i, ot, sj.OutputType)
		}
	}
	return sj
}

// bindArgs resolves an `add` statement's argument expressions to the
// constant values sema already verified they fold to (decl.go's
// resolveAdd), keyed by the target's parameter names.
func (b *builder) bindArgs(add *ast.AddStmt) map[string]int64 {
	var params []ast.DeclID
	switch d := b.prog.Decl(add.Target).(type) {
	case *ast.FilterDecl:
		params = d.Params
	case *ast.PipelineDecl:
		params = d.Params
	case *ast.SplitJoinDecl:
		params = d.Params
	}
	if len(params) == 0 {
		return nil
	}
	args := make(map[string]int64, len(params))
	for i, pid := range params {
		if i >= len(add.Args) {
			continue
		}
		pd, ok := b.prog.Decl(pid).(*ast.ParameterDecl)
		if !ok {
			continue
		}
		v, ok := evalConst(b.prog, add.Args[i])
		if !ok {
			// sema's resolveAdd already reported NonConstantArraySize for
			// this exact condition; nothing further to report here.
			continue
		}
		args[pd.Name] = v
	}
	return args
}

func onesLike(n int) []int {
	w := make([]int, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

// elemInputType/elemOutputType/inputSlot/outputSlot/portName navigate to a
// node's boundary the same way regardless of whether it is a leaf filter or
// a composite: a PipelineNode delegates to its first/last child, a
// SplitJoinNode carries its own boundary fields directly (its Split/Join
// have no single underlying FilterInstance to delegate to).

func elemInputType(n Node) *types.Type {
	switch v := n.(type) {
	case *FilterInstance:
		return v.Decl.InputType
	case *PipelineNode:
		if len(v.Children) == 0 {
			return nil
		}
		return elemInputType(v.Children[0])
	case *SplitJoinNode:
		return v.InputType
	default:
		return nil
	}
}

func elemOutputType(n Node) *types.Type {
	switch v := n.(type) {
	case *FilterInstance:
		return v.Decl.OutputType
	case *PipelineNode:
		if len(v.Children) == 0 {
			return nil
		}
		return elemOutputType(v.Children[len(v.Children)-1])
	case *SplitJoinNode:
		return v.OutputType
	default:
		return nil
	}
}

func inputSlot(n Node) **Channel {
	switch v := n.(type) {
	case *FilterInstance:
		return &v.In
	case *PipelineNode:
		return inputSlot(v.Children[0])
	case *SplitJoinNode:
		return &v.In
	default:
		return nil
	}
}

func outputSlot(n Node) **Channel {
	switch v := n.(type) {
	case *FilterInstance:
		return &v.Out
	case *PipelineNode:
		return outputSlot(v.Children[len(v.Children)-1])
	case *SplitJoinNode:
		return &v.Out
	default:
		return nil
	}
}

func portName(n Node, side string) string {
	switch v := n.(type) {
	case *FilterInstance:
		return v.InstanceName()
	case *PipelineNode:
		if side == "out" {
			return portName(v.Children[len(v.Children)-1], side)
		}
		return portName(v.Children[0], side)
	case *SplitJoinNode:
		if side == "out" {
			return v.joinName()
		}
		return v.splitName()
	default:
		return "?"
	}
}

func nodeInMult(n Node) int {
	switch v := n.(type) {
	case *FilterInstance:
		return v.Firings * v.Pop
	case *PipelineNode:
		return v.InMult
	case *SplitJoinNode:
		return v.InMult
	default:
		return 0
	}
}

func nodeOutMult(n Node) int {
	switch v := n.(type) {
	case *FilterInstance:
		return v.Firings * v.Push
	case *PipelineNode:
		return v.OutMult
	case *SplitJoinNode:
		return v.OutMult
	default:
		return 0
	}
}

// scaleFactor multiplies n's steady-state firing count by factor. For a
// leaf this is just Firings; for a composite it also rescales the node's
// own cached InMult/OutMult (set once by solve*, when this node was itself
// solved as an independent subtree) so that a later, outer LCM reconciliation
// sees the correct totals through nodeInMult/nodeOutMult without re-solving.
func scaleFactor(n Node, factor int) {
	switch v := n.(type) {
	case *FilterInstance:
		v.Firings *= factor
	case *PipelineNode:
		v.InMult *= factor
		v.OutMult *= factor
		for _, c := range v.Children {
			scaleFactor(c, factor)
		}
	case *SplitJoinNode:
		v.InMult *= factor
		v.OutMult *= factor
		for _, c := range v.Branches {
			scaleFactor(c, factor)
		}
	}
}

// wireChannels walks the finished, firing-count-solved tree bottom up and
// attaches a *Channel to every internal producer/consumer boundary.
func wireChannels(sg *StreamGraph, n Node) {
	switch v := n.(type) {
	case *PipelineNode:
		for _, c := range v.Children {
			wireChannels(sg, c)
		}
		for i := 0; i+1 < len(v.Children); i++ {
			ch := newChannel(elemOutputType(v.Children[i]), nodeOutMult(v.Children[i]), portName(v.Children[i], "out"), portName(v.Children[i+1], "in"))
			*outputSlot(v.Children[i]) = ch
			*inputSlot(v.Children[i+1]) = ch
			sg.Channels = append(sg.Channels, ch)
		}
	case *SplitJoinNode:
		for _, br := range v.Branches {
			wireChannels(sg, br)
		}
		for _, br := range v.Branches {
			ch := newChannel(v.InputType, nodeInMult(br), v.splitName(), portName(br, "in"))
			*inputSlot(br) = ch
			sg.Channels = append(sg.Channels, ch)
		}
		for _, br := range v.Branches {
			ch := newChannel(v.OutputType, nodeOutMult(br), portName(br, "out"), v.joinName())
			*outputSlot(br) = ch
			sg.Channels = append(sg.Channels, ch)
		}
	}
}

func newChannel(elem *types.Type, mult int, src, dst string) *Channel {
	return &Channel{ElemType: elem, Multiplicity: mult, Depth: mult * FIFOSizeMultiplier, SrcName: src, DstName: dst}
}

func collectFilters(n Node, out []*FilterInstance) []*FilterInstance {
	switch v := n.(type) {
	case *FilterInstance:
		return append(out, v)
	case *PipelineNode:
		for _, c := range v.Children {
			out = collectFilters(c, out)
		}
	case *SplitJoinNode:
		for _, c := range v.Branches {
			out = collectFilters(c, out)
		}
	}
	return out
}
