package ast

import "streamhls/internal/source"

// Builder constructs a Program incrementally. It exists so tests and the
// in-process sample pipeline (SPEC_FULL.md's "pluggable AST ingestion
// boundary") can build a *Program directly, without round-tripping
// through the JSON form internal/frontend decodes from an external
// parser.
type Builder struct {
	prog *Program
}

// NewBuilder starts a new, empty Program.
func NewBuilder() *Builder {
	return &Builder{prog: &Program{}}
}

// Program returns the Program built so far. The Builder remains usable
// after calling this.
func (b *Builder) Program() *Program { return b.prog }

func (b *Builder) Int(pos source.Position, v int64) ExprID {
	return b.prog.AddExpr(&IntLit{ExprBase: ExprBase{NodePos: pos}, Value: v})
}

func (b *Builder) Bool(pos source.Position, v bool) ExprID {
	return b.prog.AddExpr(&BoolLit{ExprBase: ExprBase{NodePos: pos}, Value: v})
}

func (b *Builder) Float(pos source.Position, v float64) ExprID {
	return b.prog.AddExpr(&FloatLit{ExprBase: ExprBase{NodePos: pos}, Value: v})
}

func (b *Builder) Ident(pos source.Position, name string) ExprID {
	return b.prog.AddExpr(&IdentExpr{ExprBase: ExprBase{NodePos: pos}, Name: name, Decl: InvalidDecl})
}

func (b *Builder) Index(pos source.Position, base, index ExprID) ExprID {
	return b.prog.AddExpr(&IndexExpr{ExprBase: ExprBase{NodePos: pos}, Base: base, Index: index})
}

func (b *Builder) Unary(pos source.Position, op UnaryOp, operand ExprID) ExprID {
	return b.prog.AddExpr(&UnaryExpr{ExprBase: ExprBase{NodePos: pos}, Op: op, Operand: operand})
}

func (b *Builder) Binary(pos source.Position, op BinaryOp, left, right ExprID) ExprID {
	return b.prog.AddExpr(&BinaryExpr{ExprBase: ExprBase{NodePos: pos}, Op: op, Left: left, Right: right})
}

func (b *Builder) Logical(pos source.Position, op LogicalOp, left, right ExprID) ExprID {
	return b.prog.AddExpr(&LogicalExpr{ExprBase: ExprBase{NodePos: pos}, Op: op, Left: left, Right: right})
}

func (b *Builder) Assign(pos source.Position, op AssignOp, target, value ExprID) ExprID {
	return b.prog.AddExpr(&AssignExpr{ExprBase: ExprBase{NodePos: pos}, Op: op, Target: target, Value: value})
}

func (b *Builder) Peek(pos source.Position, index ExprID) ExprID {
	return b.prog.AddExpr(&PeekExpr{ExprBase: ExprBase{NodePos: pos}, Index: index})
}

func (b *Builder) Pop(pos source.Position) ExprID {
	return b.prog.AddExpr(&PopExpr{ExprBase: ExprBase{NodePos: pos}})
}

func (b *Builder) Call(pos source.Position, callee string, args ...ExprID) ExprID {
	return b.prog.AddExpr(&CallExpr{ExprBase: ExprBase{NodePos: pos}, Callee: callee, Args: args, Target: InvalidDecl})
}

func (b *Builder) Cast(pos source.Position, targetTypeName string, operand ExprID) ExprID {
	return b.prog.AddExpr(&CastExpr{ExprBase: ExprBase{NodePos: pos}, TargetTypeName: targetTypeName, Operand: operand})
}

func (b *Builder) InitList(pos source.Position, elems ...ExprID) ExprID {
	return b.prog.AddExpr(&InitListExpr{ExprBase: ExprBase{NodePos: pos}, Elems: elems})
}

// Var declares a VariableDecl and wraps it in a VarDeclStmt, returning
// both so callers can reference the DeclID from later IdentExprs.
func (b *Builder) Var(pos source.Position, name, typeName string, constant bool, init ExprID) (DeclID, StmtID) {
	id := b.prog.AddDecl(&VariableDecl{
		DeclBase: DeclBase{NamePos: pos, Name: name},
		TypeName: typeName,
		Constant: constant,
		Init:     init,
	})
	stmt := b.prog.AddStmt(&VarDeclStmt{StmtBase: StmtBase{NodePos: pos}, Decl: id})
	return id, stmt
}

func (b *Builder) Param(pos source.Position, name, typeName string) DeclID {
	return b.prog.AddDecl(&ParameterDecl{DeclBase: DeclBase{NamePos: pos, Name: name}, TypeName: typeName})
}

func (b *Builder) ExprStmt(pos source.Position, x ExprID) StmtID {
	return b.prog.AddStmt(&ExprStmt{StmtBase: StmtBase{NodePos: pos}, X: x})
}

func (b *Builder) Push(pos source.Position, value ExprID) StmtID {
	return b.prog.AddStmt(&PushStmt{StmtBase: StmtBase{NodePos: pos}, Value: value})
}

func (b *Builder) Add(pos source.Position, streamName string, args ...ExprID) StmtID {
	return b.prog.AddStmt(&AddStmt{StmtBase: StmtBase{NodePos: pos}, StreamName: streamName, Target: InvalidDecl, Args: args})
}

func (b *Builder) Split(pos source.Position, policy SplitPolicy, weights ...int) StmtID {
	return b.prog.AddStmt(&SplitStmt{StmtBase: StmtBase{NodePos: pos}, Policy: policy, Weights: weights})
}

func (b *Builder) Join(pos source.Position, weights ...int) StmtID {
	return b.prog.AddStmt(&JoinStmt{StmtBase: StmtBase{NodePos: pos}, Weights: weights})
}

func (b *Builder) If(pos source.Position, cond ExprID, then, els []StmtID) StmtID {
	return b.prog.AddStmt(&IfStmt{StmtBase: StmtBase{NodePos: pos}, Cond: cond, Then: then, Else: els})
}

func (b *Builder) For(pos source.Position, init StmtID, cond ExprID, post StmtID, body []StmtID) StmtID {
	return b.prog.AddStmt(&ForStmt{StmtBase: StmtBase{NodePos: pos}, Init: init, Cond: cond, Post: post, Body: body})
}

func (b *Builder) Break(pos source.Position) StmtID {
	return b.prog.AddStmt(&BreakStmt{StmtBase: StmtBase{NodePos: pos}})
}

func (b *Builder) Continue(pos source.Position) StmtID {
	return b.prog.AddStmt(&ContinueStmt{StmtBase: StmtBase{NodePos: pos}})
}

func (b *Builder) Return(pos source.Position, value ExprID) StmtID {
	return b.prog.AddStmt(&ReturnStmt{StmtBase: StmtBase{NodePos: pos}, Value: value})
}

// WorkBlockBuilder constructs a *WorkBlock with rate expressions that
// default to InvalidExpr (omitted) unless set.
type WorkBlockBuilder struct {
	wb *WorkBlock
}

func (b *Builder) WorkBlock() *WorkBlockBuilder {
	return &WorkBlockBuilder{wb: &WorkBlock{
		PeekRate: InvalidExpr,
		PopRate:  InvalidExpr,
		PushRate: InvalidExpr,
	}}
}

func (w *WorkBlockBuilder) Peek(rate ExprID) *WorkBlockBuilder { w.wb.PeekRate = rate; return w }
func (w *WorkBlockBuilder) Pop(rate ExprID) *WorkBlockBuilder  { w.wb.PopRate = rate; return w }
func (w *WorkBlockBuilder) Push(rate ExprID) *WorkBlockBuilder { w.wb.PushRate = rate; return w }

func (w *WorkBlockBuilder) Body(stmts ...StmtID) *WorkBlock {
	w.wb.Body = stmts
	return w.wb
}

// Filter declares a FilterDecl and appends it to TopLevel.
func (b *Builder) Filter(pos source.Position, name, inType, outType string, stateful bool, params, vars []DeclID, initBlk, prework, work *WorkBlock) DeclID {
	id := b.prog.AddDecl(&FilterDecl{
		DeclBase:      DeclBase{NamePos: pos, Name: name},
		InputTypeName: inType,
		OutputTypeName: outType,
		Stateful:      stateful,
		Params:        params,
		Vars:          vars,
		Init:          initBlk,
		Prework:       prework,
		Work:          work,
	})
	b.prog.TopLevel = append(b.prog.TopLevel, id)
	return id
}

// Pipeline declares a PipelineDecl and appends it to TopLevel.
func (b *Builder) Pipeline(pos source.Position, name, inType, outType string, params []DeclID, body []StmtID) DeclID {
	id := b.prog.AddDecl(&PipelineDecl{
		DeclBase:       DeclBase{NamePos: pos, Name: name},
		InputTypeName:  inType,
		OutputTypeName: outType,
		Params:         params,
		Body:           body,
	})
	b.prog.TopLevel = append(b.prog.TopLevel, id)
	return id
}

// SplitJoin declares a SplitJoinDecl and appends it to TopLevel.
func (b *Builder) SplitJoin(pos source.Position, name, inType, outType string, params []DeclID, body []StmtID) DeclID {
	id := b.prog.AddDecl(&SplitJoinDecl{
		DeclBase:       DeclBase{NamePos: pos, Name: name},
		InputTypeName:  inType,
		OutputTypeName: outType,
		Params:         params,
		Body:           body,
	})
	b.prog.TopLevel = append(b.prog.TopLevel, id)
	return id
}

// Function declares a FunctionDecl and appends it to TopLevel.
func (b *Builder) Function(pos source.Position, name string, builtin bool, returnType string, params []DeclID, body []StmtID) DeclID {
	id := b.prog.AddDecl(&FunctionDecl{
		DeclBase:       DeclBase{NamePos: pos, Name: name},
		Builtin:        builtin,
		ReturnTypeName: returnType,
		Params:         params,
		Body:           body,
	})
	b.prog.TopLevel = append(b.prog.TopLevel, id)
	return id
}

// Struct records a struct type declaration.
func (b *Builder) Struct(pos source.Position, name string, fields ...FieldTypeDecl) {
	b.prog.Structs = append(b.prog.Structs, StructTypeDecl{Name: name, Pos: pos, Fields: fields})
}
