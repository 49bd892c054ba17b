package ast

import (
	"testing"

	"streamhls/internal/source"
)

func TestBuilderProducesStableDeclIDs(t *testing.T) {
	b := NewBuilder()
	pos := source.Position{File: "counter.sdf", Line: 1, Col: 1}

	n, nDecl := b.Var(pos, "n", "int", false, b.Int(pos, 0))
	push := b.Push(pos, b.Ident(pos, "n"))
	incr := b.ExprStmt(pos, b.Assign(pos, OpAddAssign, b.Ident(pos, "n"), b.Int(pos, 1)))

	work := b.WorkBlock().Push(b.Int(pos, 1)).Body(push, incr)
	filter := b.Filter(pos, "counter", "void", "int", true, nil, []DeclID{n}, nil, nil, work)

	prog := b.Program()
	if len(prog.TopLevel) != 1 || prog.TopLevel[0] != filter {
		t.Fatalf("expected filter to be the sole top-level decl, got %v", prog.TopLevel)
	}
	fd, ok := prog.Decl(filter).(*FilterDecl)
	if !ok {
		t.Fatalf("Decl(filter) is not a *FilterDecl: %T", prog.Decl(filter))
	}
	if fd.Work == nil || len(fd.Work.Body) != 2 {
		t.Fatalf("expected work block with 2 statements, got %v", fd.Work)
	}
	if _, ok := prog.Decl(n).(*VariableDecl); !ok {
		t.Fatalf("Decl(n) is not a *VariableDecl: %T", prog.Decl(n))
	}
	if prog.Stmt(nDecl).Pos() != pos {
		t.Fatalf("VarDeclStmt position mismatch")
	}
}

func TestInvalidIDsAreDistinctSentinel(t *testing.T) {
	prog := &Program{}
	if prog.Decl(InvalidDecl) != nil {
		t.Fatalf("Decl(InvalidDecl) should return nil")
	}
	if prog.Expr(InvalidExpr) != nil {
		t.Fatalf("Expr(InvalidExpr) should return nil")
	}
	if prog.Stmt(InvalidStmt) != nil {
		t.Fatalf("Stmt(InvalidStmt) should return nil")
	}
}

func TestBinaryOpIsRelational(t *testing.T) {
	relational := []BinaryOp{OpLt, OpLe, OpGt, OpGe, OpEq, OpNe}
	for _, op := range relational {
		if !op.IsRelational() {
			t.Errorf("op %v should be relational", op)
		}
	}
	arithmetic := []BinaryOp{OpAdd, OpSub, OpMul, OpDiv, OpMod, OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr}
	for _, op := range arithmetic {
		if op.IsRelational() {
			t.Errorf("op %v should not be relational", op)
		}
	}
}
