// Package frontend is the boundary across which an external parser hands
// this compiler an AST. Spec §1 places the lexical scanner and
// grammar-driven parser out of scope ("we assume a parser delivers the
// AST"); LoadProgram is that handoff, decoding the JSON document such a
// parser would emit into an *ast.Program. Programs built in-process by
// tests or the sample pipeline use internal/ast's Builder directly and
// never touch this package.
package frontend

import (
	"encoding/json"
	"fmt"
	"io"

	"streamhls/internal/ast"
	"streamhls/internal/source"
)

// LoadProgram decodes a JSON-encoded AST document from r into an
// *ast.Program. It returns an error wrapping the underlying decode or
// shape failure; callers surface this as diag.KindIoError or
// diag.KindParseError depending on context.
func LoadProgram(r io.Reader) (*ast.Program, error) {
	var wp wireProgram
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wp); err != nil {
		return nil, fmt.Errorf("frontend: decode program: %w", err)
	}
	return wp.toProgram()
}

type wirePos struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

func (p wirePos) toPosition() source.Position {
	return source.Position{File: p.File, Line: p.Line, Col: p.Col}
}

type wireProgram struct {
	Decls    []wireDecl   `json:"decls"`
	Exprs    []wireExpr   `json:"exprs"`
	Stmts    []wireStmt   `json:"stmts"`
	Structs  []wireStruct `json:"structs"`
	TopLevel []int        `json:"top_level"`
}

type wireStruct struct {
	Name   string `json:"name"`
	Pos    wirePos `json:"pos"`
	Fields []struct {
		Name     string `json:"name"`
		TypeName string `json:"type_name"`
	} `json:"fields"`
}

// wireExpr is a sparse, kind-tagged encoding of every ast.Expr variant.
// Indices (Base, Index, Operand, Left, Right, Target, Value, Args, Elems)
// refer to positions in wireProgram.Exprs.
type wireExpr struct {
	Kind string  `json:"kind"`
	Pos  wirePos `json:"pos"`

	IntValue   *int64   `json:"int_value,omitempty"`
	BoolValue  *bool    `json:"bool_value,omitempty"`
	FloatValue *float64 `json:"float_value,omitempty"`

	Name string `json:"name,omitempty"`

	Base    *int `json:"base,omitempty"`
	Index   *int `json:"index,omitempty"`
	Operand *int `json:"operand,omitempty"`
	Left    *int `json:"left,omitempty"`
	Right   *int `json:"right,omitempty"`
	Target  *int `json:"target,omitempty"`
	Value   *int `json:"value,omitempty"`

	Op string `json:"op,omitempty"`

	Callee string `json:"callee,omitempty"`
	Args   []int  `json:"args,omitempty"`

	TargetType string `json:"target_type,omitempty"`
	Elems      []int   `json:"elems,omitempty"`
}

// wireStmt is a sparse, kind-tagged encoding of every ast.Stmt variant.
type wireStmt struct {
	Kind string  `json:"kind"`
	Pos  wirePos `json:"pos"`

	X      *int   `json:"x,omitempty"`
	Decl   *int   `json:"decl,omitempty"`
	Value  *int   `json:"value,omitempty"`

	StreamName string `json:"stream_name,omitempty"`
	Args       []int  `json:"args,omitempty"`

	Policy  string `json:"policy,omitempty"`
	Weights []int  `json:"weights,omitempty"`

	Cond *int  `json:"cond,omitempty"`
	Then []int `json:"then,omitempty"`
	Else []int `json:"else,omitempty"`

	Init *int  `json:"init,omitempty"`
	Post *int  `json:"post,omitempty"`
	Body []int `json:"body,omitempty"`
}

// wireDecl is a sparse, kind-tagged encoding of every ast.Decl variant.
type wireDecl struct {
	Kind string  `json:"kind"`
	Pos  wirePos `json:"pos"`
	Name string  `json:"name"`

	TypeName string `json:"type_name,omitempty"`
	Constant bool   `json:"constant,omitempty"`
	Init     *int   `json:"init,omitempty"`

	InputType  string `json:"input_type,omitempty"`
	OutputType string `json:"output_type,omitempty"`
	Stateful   bool   `json:"stateful,omitempty"`
	Params     []int  `json:"params,omitempty"`
	Vars       []int  `json:"vars,omitempty"`

	InitBlock *wireWorkBlock `json:"init_block,omitempty"`
	Prework   *wireWorkBlock `json:"prework,omitempty"`
	Work      *wireWorkBlock `json:"work,omitempty"`

	Body []int `json:"body,omitempty"`

	Builtin        bool   `json:"builtin,omitempty"`
	ReturnTypeName string `json:"return_type,omitempty"`
}

type wireWorkBlock struct {
	PeekRate *int  `json:"peek_rate,omitempty"`
	PopRate  *int  `json:"pop_rate,omitempty"`
	PushRate *int  `json:"push_rate,omitempty"`
	Body     []int `json:"body"`
}

func exprID(i *int) ast.ExprID {
	if i == nil {
		return ast.InvalidExpr
	}
	return ast.ExprID(*i)
}

func stmtID(i *int) ast.StmtID {
	if i == nil {
		return ast.InvalidStmt
	}
	return ast.StmtID(*i)
}

func declID(i *int) ast.DeclID {
	if i == nil {
		return ast.InvalidDecl
	}
	return ast.DeclID(*i)
}

func exprIDs(ints []int) []ast.ExprID {
	out := make([]ast.ExprID, len(ints))
	for i, v := range ints {
		out[i] = ast.ExprID(v)
	}
	return out
}

func stmtIDs(ints []int) []ast.StmtID {
	out := make([]ast.StmtID, len(ints))
	for i, v := range ints {
		out[i] = ast.StmtID(v)
	}
	return out
}

func declIDs(ints []int) []ast.DeclID {
	out := make([]ast.DeclID, len(ints))
	for i, v := range ints {
		out[i] = ast.DeclID(v)
	}
	return out
}

var unaryOps = map[string]ast.UnaryOp{
	"neg": ast.OpNeg, "!": ast.OpLogicalNot, "~": ast.OpBitNot,
	"++pre": ast.OpPreInc, "--pre": ast.OpPreDec,
	"++post": ast.OpPostInc, "--post": ast.OpPostDec,
}

var binaryOps = map[string]ast.BinaryOp{
	"+": ast.OpAdd, "-": ast.OpSub, "*": ast.OpMul, "/": ast.OpDiv, "%": ast.OpMod,
	"&": ast.OpBitAnd, "|": ast.OpBitOr, "^": ast.OpBitXor, "<<": ast.OpShl, ">>": ast.OpShr,
	"<": ast.OpLt, "<=": ast.OpLe, ">": ast.OpGt, ">=": ast.OpGe, "==": ast.OpEq, "!=": ast.OpNe,
}

var logicalOps = map[string]ast.LogicalOp{
	"&&": ast.OpLogicalAnd, "||": ast.OpLogicalOr,
}

var assignOps = map[string]ast.AssignOp{
	"=": ast.OpAssign, "+=": ast.OpAddAssign, "-=": ast.OpSubAssign, "*=": ast.OpMulAssign,
	"/=": ast.OpDivAssign, "%=": ast.OpModAssign, "&=": ast.OpBitAndAssign, "|=": ast.OpBitOrAssign,
	"^=": ast.OpBitXorAssign, "<<=": ast.OpShlAssign, ">>=": ast.OpShrAssign,
}

func (wp *wireProgram) toProgram() (*ast.Program, error) {
	prog := &ast.Program{
		Exprs: make([]ast.Expr, len(wp.Exprs)),
		Stmts: make([]ast.Stmt, len(wp.Stmts)),
		Decls: make([]ast.Decl, len(wp.Decls)),
	}

	for i, we := range wp.Exprs {
		e, err := we.toExpr()
		if err != nil {
			return nil, fmt.Errorf("frontend: expr %d: %w", i, err)
		}
		prog.Exprs[i] = e
	}
	for i, ws := range wp.Stmts {
		s, err := ws.toStmt()
		if err != nil {
			return nil, fmt.Errorf("frontend: stmt %d: %w", i, err)
		}
		prog.Stmts[i] = s
	}
	for i, wd := range wp.Decls {
		d, err := wd.toDecl()
		if err != nil {
			return nil, fmt.Errorf("frontend: decl %d: %w", i, err)
		}
		prog.Decls[i] = d
	}
	for _, ws := range wp.Structs {
		sd := ast.StructTypeDecl{Name: ws.Name, Pos: ws.Pos.toPosition()}
		for _, f := range ws.Fields {
			sd.Fields = append(sd.Fields, ast.FieldTypeDecl{Name: f.Name, TypeName: f.TypeName})
		}
		prog.Structs = append(prog.Structs, sd)
	}
	prog.TopLevel = declIDs(wp.TopLevel)
	return prog, nil
}

func (we wireExpr) toExpr() (ast.Expr, error) {
	pos := we.Pos.toPosition()
	base := ast.ExprBase{NodePos: pos}
	switch we.Kind {
	case "int":
		if we.IntValue == nil {
			return nil, fmt.Errorf("int literal missing int_value")
		}
		return &ast.IntLit{ExprBase: base, Value: *we.IntValue}, nil
	case "bool":
		if we.BoolValue == nil {
			return nil, fmt.Errorf("bool literal missing bool_value")
		}
		return &ast.BoolLit{ExprBase: base, Value: *we.BoolValue}, nil
	case "float":
		if we.FloatValue == nil {
			return nil, fmt.Errorf("float literal missing float_value")
		}
		return &ast.FloatLit{ExprBase: base, Value: *we.FloatValue}, nil
	case "ident":
		return &ast.IdentExpr{ExprBase: base, Name: we.Name, Decl: ast.InvalidDecl}, nil
	case "index":
		return &ast.IndexExpr{ExprBase: base, Base: exprID(we.Base), Index: exprID(we.Index)}, nil
	case "unary":
		op, ok := unaryOps[we.Op]
		if !ok {
			return nil, fmt.Errorf("unknown unary op %q", we.Op)
		}
		return &ast.UnaryExpr{ExprBase: base, Op: op, Operand: exprID(we.Operand)}, nil
	case "binary":
		op, ok := binaryOps[we.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binary op %q", we.Op)
		}
		return &ast.BinaryExpr{ExprBase: base, Op: op, Left: exprID(we.Left), Right: exprID(we.Right)}, nil
	case "logical":
		op, ok := logicalOps[we.Op]
		if !ok {
			return nil, fmt.Errorf("unknown logical op %q", we.Op)
		}
		return &ast.LogicalExpr{ExprBase: base, Op: op, Left: exprID(we.Left), Right: exprID(we.Right)}, nil
	case "comma":
		return &ast.CommaExpr{ExprBase: base, Left: exprID(we.Left), Right: exprID(we.Right)}, nil
	case "assign":
		op, ok := assignOps[we.Op]
		if !ok {
			return nil, fmt.Errorf("unknown assign op %q", we.Op)
		}
		return &ast.AssignExpr{ExprBase: base, Op: op, Target: exprID(we.Target), Value: exprID(we.Value)}, nil
	case "peek":
		return &ast.PeekExpr{ExprBase: base, Index: exprID(we.Index)}, nil
	case "pop":
		return &ast.PopExpr{ExprBase: base}, nil
	case "call":
		return &ast.CallExpr{ExprBase: base, Callee: we.Callee, Args: exprIDs(we.Args), Target: ast.InvalidDecl}, nil
	case "cast":
		return &ast.CastExpr{ExprBase: base, TargetTypeName: we.TargetType, Operand: exprID(we.Operand)}, nil
	case "init_list":
		return &ast.InitListExpr{ExprBase: base, Elems: exprIDs(we.Elems)}, nil
	default:
		return nil, fmt.Errorf("unknown expr kind %q", we.Kind)
	}
}

func (ws wireStmt) toStmt() (ast.Stmt, error) {
	pos := ws.Pos.toPosition()
	base := ast.StmtBase{NodePos: pos}
	switch ws.Kind {
	case "expr":
		return &ast.ExprStmt{StmtBase: base, X: exprID(ws.X)}, nil
	case "var_decl":
		return &ast.VarDeclStmt{StmtBase: base, Decl: declID(ws.Decl)}, nil
	case "push":
		return &ast.PushStmt{StmtBase: base, Value: exprID(ws.Value)}, nil
	case "add":
		return &ast.AddStmt{StmtBase: base, StreamName: ws.StreamName, Target: ast.InvalidDecl, Args: exprIDs(ws.Args)}, nil
	case "split":
		policy := ast.SplitDuplicate
		if ws.Policy == "roundrobin" {
			policy = ast.SplitRoundRobin
		}
		return &ast.SplitStmt{StmtBase: base, Policy: policy, Weights: ws.Weights}, nil
	case "join":
		return &ast.JoinStmt{StmtBase: base, Weights: ws.Weights}, nil
	case "if":
		return &ast.IfStmt{StmtBase: base, Cond: exprID(ws.Cond), Then: stmtIDs(ws.Then), Else: stmtIDs(ws.Else)}, nil
	case "for":
		return &ast.ForStmt{StmtBase: base, Init: stmtID(ws.Init), Cond: exprID(ws.Cond), Post: stmtID(ws.Post), Body: stmtIDs(ws.Body)}, nil
	case "break":
		return &ast.BreakStmt{StmtBase: base}, nil
	case "continue":
		return &ast.ContinueStmt{StmtBase: base}, nil
	case "return":
		return &ast.ReturnStmt{StmtBase: base, Value: exprID(ws.Value)}, nil
	default:
		return nil, fmt.Errorf("unknown stmt kind %q", ws.Kind)
	}
}

func (wb *wireWorkBlock) toWorkBlock() *ast.WorkBlock {
	if wb == nil {
		return nil
	}
	out := &ast.WorkBlock{
		PeekRate:     exprID(wb.PeekRate),
		PopRate:      exprID(wb.PopRate),
		PushRate:     exprID(wb.PushRate),
		ResolvedPeek: -1, ResolvedPop: -1, ResolvedPush: -1,
		Body: stmtIDs(wb.Body),
	}
	return out
}

func (wd wireDecl) toDecl() (ast.Decl, error) {
	pos := wd.Pos.toPosition()
	base := ast.DeclBase{NamePos: pos, Name: wd.Name}
	switch wd.Kind {
	case "variable":
		return &ast.VariableDecl{DeclBase: base, TypeName: wd.TypeName, Constant: wd.Constant, Init: exprID(wd.Init)}, nil
	case "parameter":
		return &ast.ParameterDecl{DeclBase: base, TypeName: wd.TypeName}, nil
	case "filter":
		return &ast.FilterDecl{
			DeclBase: base, InputTypeName: wd.InputType, OutputTypeName: wd.OutputType,
			Stateful: wd.Stateful, Params: declIDs(wd.Params), Vars: declIDs(wd.Vars),
			Init: wd.InitBlock.toWorkBlock(), Prework: wd.Prework.toWorkBlock(), Work: wd.Work.toWorkBlock(),
		}, nil
	case "pipeline":
		return &ast.PipelineDecl{
			DeclBase: base, InputTypeName: wd.InputType, OutputTypeName: wd.OutputType,
			Params: declIDs(wd.Params), Body: stmtIDs(wd.Body),
		}, nil
	case "splitjoin":
		return &ast.SplitJoinDecl{
			DeclBase: base, InputTypeName: wd.InputType, OutputTypeName: wd.OutputType,
			Params: declIDs(wd.Params), Body: stmtIDs(wd.Body),
		}, nil
	case "function":
		return &ast.FunctionDecl{
			DeclBase: base, Builtin: wd.Builtin, ReturnTypeName: wd.ReturnTypeName,
			Params: declIDs(wd.Params), Body: stmtIDs(wd.Body),
		}, nil
	default:
		return nil, fmt.Errorf("unknown decl kind %q", wd.Kind)
	}
}
