package passes

import (
	"fmt"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/source"
	"streamhls/internal/streamgraph"
	"streamhls/internal/types"
)

// MaskAnalysis walks every distinct filter declaration reachable from the
// stream graph and flags §7's "non-power-of-two integer widths" rule: a
// declared APInt_n variable, or a store into one, where n isn't a power of
// two needs a `value & ((1<<n)-1)` mask in the emitted C. C5a re-derives and
// applies the mask itself from the destination's own resolved type at
// codegen time, so this pass doesn't hand anything forward — like the
// teacher's WidthInference, it exists to surface the condition as an early
// warning before HDL emission rather than to compute a value cbackend
// couldn't derive on its own.
type MaskAnalysis struct {
	reporter *diag.Reporter
}

// NewMaskAnalysis constructs the pass. reporter is optional; masking is a
// codegen concern rather than a scheduling failure, so Run never errors —
// it only ever warns.
func NewMaskAnalysis(reporter *diag.Reporter) *MaskAnalysis {
	return &MaskAnalysis{reporter: reporter}
}

func (p *MaskAnalysis) Name() string { return "mask-analysis" }

func (p *MaskAnalysis) Run(sg *streamgraph.StreamGraph) error {
	if sg.Prog == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, f := range sg.Filters {
		if seen[f.Decl.Name] {
			continue
		}
		seen[f.Decl.Name] = true
		p.scanFilter(sg.Prog, f.Decl)
	}
	return nil
}

func (p *MaskAnalysis) scanFilter(prog *ast.Program, d *ast.FilterDecl) {
	for _, vid := range d.Vars {
		vd, ok := prog.Decl(vid).(*ast.VariableDecl)
		if !ok {
			continue
		}
		if needsMask(vd.Type) {
			p.warn(vd.Pos(), fmt.Sprintf("%s.%s is %s: stores must mask with (1<<%d)-1", d.Name, vd.Name, vd.Type, vd.Type.APIntWidth()))
		}
	}
	for _, wb := range []*ast.WorkBlock{d.Init, d.Prework, d.Work} {
		if wb == nil {
			continue
		}
		p.scanStmts(prog, d.Name, wb.Body)
	}
}

func (p *MaskAnalysis) scanStmts(prog *ast.Program, filterName string, ids []ast.StmtID) {
	for _, sid := range ids {
		switch s := prog.Stmt(sid).(type) {
		case *ast.ExprStmt:
			p.scanExpr(prog, filterName, s.X)
		case *ast.VarDeclStmt:
			if vd, ok := prog.Decl(s.Decl).(*ast.VariableDecl); ok && needsMask(vd.Type) {
				p.warn(vd.Pos(), fmt.Sprintf("%s.%s is %s: stores must mask with (1<<%d)-1", filterName, vd.Name, vd.Type, vd.Type.APIntWidth()))
			}
		case *ast.PushStmt:
			p.warnIfUnmasked(prog, filterName, s.Value, "push")
		case *ast.ReturnStmt:
			p.warnIfUnmasked(prog, filterName, s.Value, "return")
		case *ast.IfStmt:
			p.scanStmts(prog, filterName, s.Then)
			p.scanStmts(prog, filterName, s.Else)
		case *ast.ForStmt:
			p.scanStmts(prog, filterName, s.Body)
		}
	}
}

// scanExpr looks for AssignExpr (a store into an odd-width lvalue) and for
// CallExpr (arguments materialized at a call site need the same mask as a
// store, since both cross a C value boundary where the emitted full-width
// arithmetic result would otherwise carry its overflow bits along). Reads
// of an already-masked variable don't need re-flagging, so no other
// expression kind is worth recursing into here.
func (p *MaskAnalysis) scanExpr(prog *ast.Program, filterName string, id ast.ExprID) {
	if id == ast.InvalidExpr {
		return
	}
	switch e := prog.Expr(id).(type) {
	case *ast.AssignExpr:
		target := prog.Expr(e.Target)
		if target == nil {
			return
		}
		t := target.ResolvedType()
		if needsMask(t) {
			p.warn(target.Pos(), fmt.Sprintf("%s: store into %s requires a mask with (1<<%d)-1", filterName, t, t.APIntWidth()))
		}
	case *ast.CallExpr:
		for _, arg := range e.Args {
			p.warnIfUnmasked(prog, filterName, arg, "call argument")
		}
	}
}

// warnIfUnmasked flags id's own odd-width result when it reaches a
// non-store boundary (push, return, call argument) — the same condition
// instr.go's emit() and printCall mask at codegen time.
func (p *MaskAnalysis) warnIfUnmasked(prog *ast.Program, filterName string, id ast.ExprID, site string) {
	if id == ast.InvalidExpr {
		return
	}
	e := prog.Expr(id)
	if e == nil {
		return
	}
	t := e.ResolvedType()
	if needsMask(t) {
		p.warn(e.Pos(), fmt.Sprintf("%s: %s of %s requires a mask with (1<<%d)-1", filterName, site, t, t.APIntWidth()))
	}
}

func needsMask(t *types.Type) bool {
	if t == nil || t.Kind() != types.APInt {
		return false
	}
	w := t.APIntWidth()
	return w > 0 && w&(w-1) != 0
}

func (p *MaskAnalysis) warn(pos source.Position, msg string) {
	if p.reporter == nil {
		return
	}
	p.reporter.Warningf(pos, "%s", msg)
}
