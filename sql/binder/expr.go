// Copyright 2026 The PrismDB Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package binder

import (
	"fmt"
	"strconv"
	"strings"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/ast"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
)

// matchSet records the aggregate/window/group-by expressions already
// extracted out of a SELECT's projection, HAVING, QUALIFY, and ORDER BY
// clauses (spec §4.7, §4.8), so that later binding passes over those same
// clauses substitute a positional reference instead of re-resolving
// columns that no longer exist once the Aggregate/Window node has
// collapsed the row shape.
type matchSet struct {
	groupBy []groupEntry
	aggs    []aggEntry
	wins    []winEntry
	// winBase is the schema width in front of the Window node's own
	// output columns, i.e. len(groupBy)+len(aggs) when aggregation ran,
	// or the width of the FROM/WHERE scope otherwise.
	winBase int
	hasAgg  bool
}

type groupEntry struct {
	ast  ast.Expr
	expr pdbsql.Expression
}

type aggEntry struct {
	call *ast.FuncCall
	expr pdbsql.Expression
	name string
}

type winEntry struct {
	call *ast.FuncCall
	expr plan.WindowExpr
	name string
}

// try reports whether e matches a previously-extracted aggregate, window
// call, or GROUP BY key, returning the GetField that stands in for it.
func (m *matchSet) try(e ast.Expr) (pdbsql.Expression, bool, error) {
	if m == nil {
		return nil, false, nil
	}
	e = unwrapParen(e)
	if call, ok := e.(*ast.FuncCall); ok {
		for i, a := range m.aggs {
			if a.call == call {
				return expression.NewGetField(len(m.groupBy)+i, a.expr.Type(), a.name, true), true, nil
			}
		}
		for i, w := range m.wins {
			if w.call == call {
				return expression.NewGetField(m.winBase+i, w.expr.Func.Type(), w.name, true), true, nil
			}
		}
	}
	for i, g := range m.groupBy {
		if exprEqual(e, g.ast) {
			return expression.NewGetField(i, g.expr.Type(), displayName(g.ast), g.expr.IsNullable()), true, nil
		}
	}
	if m.hasAgg {
		if _, ok := e.(*ast.ColumnRef); ok {
			return nil, false, pdbsql.ErrInvalidValue.New(
				fmt.Sprintf("column %q must appear in the GROUP BY clause or be used in an aggregate function", colRefText(e)))
		}
	}
	return nil, false, nil
}

func colRefText(e ast.Expr) string {
	c, ok := e.(*ast.ColumnRef)
	if !ok {
		return "?"
	}
	if c.Qualifier != "" {
		return c.Qualifier + "." + c.Name
	}
	return c.Name
}

// exprVisitor is called once per ast.Expr node a walk descends through; a
// false return stops descent into that node's children.
type exprVisitor func(e ast.Expr) (recurse bool, err error)

// walkExpr visits every sub-expression of e, never descending into a
// subquery's own body — aggregate/window extraction operates one query
// level at a time (spec §4.7, §4.8).
func walkExpr(e ast.Expr, visit exprVisitor) error {
	if e == nil {
		return nil
	}
	recurse, err := visit(e)
	if err != nil {
		return err
	}
	if !recurse {
		return nil
	}
	switch x := e.(type) {
	case *ast.ParenExpr:
		return walkExpr(x.Expr, visit)
	case *ast.BinaryExpr:
		if err := walkExpr(x.Left, visit); err != nil {
			return err
		}
		return walkExpr(x.Right, visit)
	case *ast.UnaryExpr:
		return walkExpr(x.Expr, visit)
	case *ast.IsExpr:
		if err := walkExpr(x.Expr, visit); err != nil {
			return err
		}
		return walkExpr(x.Distinct, visit)
	case *ast.BetweenExpr:
		for _, c := range []ast.Expr{x.Expr, x.Low, x.High} {
			if err := walkExpr(c, visit); err != nil {
				return err
			}
		}
		return nil
	case *ast.LikeExpr:
		if err := walkExpr(x.Expr, visit); err != nil {
			return err
		}
		return walkExpr(x.Pattern, visit)
	case *ast.InExpr:
		if err := walkExpr(x.Expr, visit); err != nil {
			return err
		}
		for _, it := range x.List {
			if err := walkExpr(it, visit); err != nil {
				return err
			}
		}
		return nil
	case *ast.CaseExpr:
		if err := walkExpr(x.Operand, visit); err != nil {
			return err
		}
		for _, w := range x.Whens {
			if err := walkExpr(w.Cond, visit); err != nil {
				return err
			}
			if err := walkExpr(w.Then, visit); err != nil {
				return err
			}
		}
		return walkExpr(x.Else, visit)
	case *ast.CastExpr:
		return walkExpr(x.Expr, visit)
	case *ast.FuncCall:
		for _, a := range x.Args {
			if err := walkExpr(a, visit); err != nil {
				return err
			}
		}
		return nil
	default:
		// Literal, ColumnRef, Star, ExistsExpr, ScalarSubquery: leaves.
		return nil
	}
}

// bindExpr binds a single ast.Expr against sc. When m is non-nil, every
// node is first checked against m's extracted aggregate/window/group-by
// entries (spec §4.7); a miss falls through to ordinary construction.
func (b *Binder) bindExpr(e ast.Expr, sc *scope, m *matchSet) (pdbsql.Expression, error) {
	if got, ok, err := m.try(e); err != nil {
		return nil, err
	} else if ok {
		return got, nil
	}

	switch x := unwrapParen(e).(type) {
	case *ast.Literal:
		return b.bindLiteral(x)
	case *ast.ColumnRef:
		return b.resolveColumn(sc, x.Qualifier, x.Name)
	case *ast.BinaryExpr:
		return b.bindBinary(x, sc, m)
	case *ast.UnaryExpr:
		return b.bindUnary(x, sc, m)
	case *ast.IsExpr:
		return b.bindIs(x, sc, m)
	case *ast.BetweenExpr:
		expr, err := b.bindExpr(x.Expr, sc, m)
		if err != nil {
			return nil, err
		}
		lo, err := b.bindExpr(x.Low, sc, m)
		if err != nil {
			return nil, err
		}
		hi, err := b.bindExpr(x.High, sc, m)
		if err != nil {
			return nil, err
		}
		return expression.NewBetween(expr, lo, hi, x.Not), nil
	case *ast.LikeExpr:
		expr, err := b.bindExpr(x.Expr, sc, m)
		if err != nil {
			return nil, err
		}
		pat, err := b.bindExpr(x.Pattern, sc, m)
		if err != nil {
			return nil, err
		}
		return expression.NewLike(expr, pat, x.Not, x.CaseFold), nil
	case *ast.InExpr:
		return b.bindIn(x, sc, m)
	case *ast.ExistsExpr:
		return b.bindExists(x, sc)
	case *ast.ScalarSubquery:
		return b.bindScalarSubquery(x, sc)
	case *ast.CaseExpr:
		return b.bindCase(x, sc, m)
	case *ast.CastExpr:
		return b.bindCast(x, sc, m)
	case *ast.FuncCall:
		return b.bindScalarCall(x, sc, m)
	case *ast.Star:
		return nil, pdbsql.ErrInvalidValue.New("* is not allowed in this context")
	default:
		return nil, pdbsql.ErrNotImplemented.New(fmt.Sprintf("expression type %T", e))
	}
}

func (b *Binder) bindLiteral(l *ast.Literal) (pdbsql.Expression, error) {
	switch l.Kind {
	case ast.LitNull:
		return expression.NewLiteral(nil, pdbsql.Null), nil
	case ast.LitBool:
		v, _ := l.Value.(bool)
		return expression.NewLiteral(v, pdbsql.Boolean), nil
	case ast.LitString:
		v, _ := l.Value.(string)
		return expression.NewLiteral(v, pdbsql.Text), nil
	case ast.LitNumber:
		text, _ := l.Value.(string)
		if !strings.ContainsAny(text, ".eE") {
			if n, err := strconv.ParseInt(text, 10, 64); err == nil {
				return expression.NewLiteral(n, pdbsql.Int64), nil
			}
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, pdbsql.ErrParse.New(fmt.Sprintf("invalid numeric literal %q", text))
		}
		return expression.NewLiteral(f, pdbsql.Float64), nil
	default:
		return nil, pdbsql.ErrNotImplemented.New("literal kind")
	}
}

func (b *Binder) bindBinary(x *ast.BinaryExpr, sc *scope, m *matchSet) (pdbsql.Expression, error) {
	left, err := b.bindExpr(x.Left, sc, m)
	if err != nil {
		return nil, err
	}
	right, err := b.bindExpr(x.Right, sc, m)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case ast.OpEq:
		return expression.NewEquals(left, right), nil
	case ast.OpNotEq:
		return expression.NewNot(expression.NewEquals(left, right)), nil
	case ast.OpLt:
		return expression.NewComparison(expression.LT, left, right), nil
	case ast.OpLte:
		return expression.NewComparison(expression.LTE, left, right), nil
	case ast.OpGt:
		return expression.NewComparison(expression.GT, left, right), nil
	case ast.OpGte:
		return expression.NewComparison(expression.GTE, left, right), nil
	case ast.OpAnd:
		return expression.NewAnd(left, right), nil
	case ast.OpOr:
		return expression.NewOr(left, right), nil
	case ast.OpConcat:
		return expression.NewConcat(left, right), nil
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		resultTy, err := pdbsql.Promote(left.Type(), right.Type())
		if err != nil {
			return nil, err
		}
		return expression.NewArithmetic(arithOp(x.Op), left, right, resultTy), nil
	default:
		return nil, pdbsql.ErrNotImplemented.New("binary operator")
	}
}

func arithOp(op ast.BinaryOp) expression.ArithOp {
	switch op {
	case ast.OpAdd:
		return expression.Add
	case ast.OpSub:
		return expression.Sub
	case ast.OpMul:
		return expression.Mul
	case ast.OpDiv:
		return expression.Div
	case ast.OpMod:
		return expression.Mod
	default:
		return expression.Add
	}
}

func (b *Binder) bindUnary(x *ast.UnaryExpr, sc *scope, m *matchSet) (pdbsql.Expression, error) {
	inner, err := b.bindExpr(x.Expr, sc, m)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case ast.OpNot:
		return expression.NewNot(inner), nil
	case ast.OpNeg:
		zero := expression.NewLiteral(int64(0), inner.Type())
		resultTy, err := pdbsql.Promote(zero.Type(), inner.Type())
		if err != nil {
			return nil, err
		}
		return expression.NewArithmetic(expression.Sub, zero, inner, resultTy), nil
	case ast.OpPos:
		return inner, nil
	default:
		return nil, pdbsql.ErrNotImplemented.New("unary operator")
	}
}

func (b *Binder) bindIs(x *ast.IsExpr, sc *scope, m *matchSet) (pdbsql.Expression, error) {
	inner, err := b.bindExpr(x.Expr, sc, m)
	if err != nil {
		return nil, err
	}
	if x.Null {
		return expression.NewIsNull(inner, x.Not), nil
	}
	other, err := b.bindExpr(x.Distinct, sc, m)
	if err != nil {
		return nil, err
	}
	eq := expression.NewNullSafeEquals(inner, other)
	if x.Not {
		return eq, nil
	}
	return expression.NewNot(eq), nil
}

func (b *Binder) bindIn(x *ast.InExpr, sc *scope, m *matchSet) (pdbsql.Expression, error) {
	expr, err := b.bindExpr(x.Expr, sc, m)
	if err != nil {
		return nil, err
	}
	if x.Subquery != nil {
		plan, correlated, err := b.bindSubqueryPlan(x.Subquery, sc)
		if err != nil {
			return nil, err
		}
		return expression.NewInSubquery(expr, plan, correlated, x.Not), nil
	}
	list := make([]pdbsql.Expression, 0, len(x.List))
	for _, it := range x.List {
		be, err := b.bindExpr(it, sc, m)
		if err != nil {
			return nil, err
		}
		list = append(list, be)
	}
	return expression.NewInList(expr, list, x.Not), nil
}

func (b *Binder) bindExists(x *ast.ExistsExpr, sc *scope) (pdbsql.Expression, error) {
	plan, correlated, err := b.bindSubqueryPlan(x.Subquery, sc)
	if err != nil {
		return nil, err
	}
	return expression.NewExistsSubquery(plan, correlated, x.Not), nil
}

func (b *Binder) bindScalarSubquery(x *ast.ScalarSubquery, sc *scope) (pdbsql.Expression, error) {
	exec, correlated, err := b.bindSubqueryPlan(x.Query, sc)
	if err != nil {
		return nil, err
	}
	schema := exec.Schema()
	var typ pdbsql.Type = pdbsql.Null
	if len(schema) > 0 {
		typ = schema[0].Type
	}
	return expression.NewScalarSubquery(exec, correlated, typ), nil
}

// bindSubqueryPlan binds and compiles a subquery body, reporting whether
// any column inside it resolved to an enclosing scope (spec §4.9).
func (b *Binder) bindSubqueryPlan(q *ast.Query, outer *scope) (expression.SubqueryPlan, bool, error) {
	prevFlag := b.corrFlag
	flag := new(bool)
	b.corrFlag = flag
	node, err := b.bindQuery(q, outer)
	b.corrFlag = prevFlag
	if err != nil {
		return nil, false, err
	}
	if b.compile == nil {
		return nil, false, pdbsql.ErrNotImplemented.New("subquery compilation requires an engine-supplied compiler")
	}
	exec, err := b.compile(node)
	if err != nil {
		return nil, false, err
	}
	return exec, *flag, nil
}

func (b *Binder) bindCase(x *ast.CaseExpr, sc *scope, m *matchSet) (pdbsql.Expression, error) {
	var operand pdbsql.Expression
	var err error
	if x.Operand != nil {
		operand, err = b.bindExpr(x.Operand, sc, m)
		if err != nil {
			return nil, err
		}
	}
	branches := make([]expression.CaseBranch, 0, len(x.Whens))
	resultTy := pdbsql.Null
	haveTy := false
	for _, w := range x.Whens {
		var cond pdbsql.Expression
		if operand != nil {
			rhs, err := b.bindExpr(w.Cond, sc, m)
			if err != nil {
				return nil, err
			}
			cond = expression.NewEquals(operand, rhs)
		} else {
			cond, err = b.bindExpr(w.Cond, sc, m)
			if err != nil {
				return nil, err
			}
		}
		then, err := b.bindExpr(w.Then, sc, m)
		if err != nil {
			return nil, err
		}
		branches = append(branches, expression.CaseBranch{Cond: cond, Then: then})
		if t, ok := widen(resultTy, then.Type(), haveTy); ok {
			resultTy, haveTy = t, true
		}
	}
	var elseExpr pdbsql.Expression
	if x.Else != nil {
		elseExpr, err = b.bindExpr(x.Else, sc, m)
		if err != nil {
			return nil, err
		}
		if t, ok := widen(resultTy, elseExpr.Type(), haveTy); ok {
			resultTy, haveTy = t, true
		}
	}
	if !haveTy {
		resultTy = pdbsql.Null
	}
	return expression.NewCase(operand, branches, elseExpr, resultTy), nil
}

func widen(acc, next pdbsql.Type, haveAcc bool) (pdbsql.Type, bool) {
	if !haveAcc {
		return next, true
	}
	if t, err := pdbsql.Promote(acc, next); err == nil {
		return t, true
	}
	return acc, true
}

func (b *Binder) bindCast(x *ast.CastExpr, sc *scope, m *matchSet) (pdbsql.Expression, error) {
	inner, err := b.bindExpr(x.Expr, sc, m)
	if err != nil {
		return nil, err
	}
	target, err := typeFromName(x.TypeName, x.TypeArgs)
	if err != nil {
		return nil, err
	}
	if !x.Try && !pdbsql.CastValid(inner.Type(), target) {
		return nil, pdbsql.ErrTypeMismatch.New(fmt.Sprintf("cannot cast %s to %s", inner.Type().Kind(), target.Kind()))
	}
	return expression.NewCast(inner, target, x.Try), nil
}

// bindScalarCall resolves a plain (non-aggregate, non-window) function
// call via the scalar registry. Aggregate and window calls are always
// intercepted earlier by matchSet; reaching here with one of their names
// means it was used somewhere aggregation/windowing doesn't apply (e.g. a
// WHERE clause), which is a binding error (spec §4.6, §4.7).
func (b *Binder) bindScalarCall(x *ast.FuncCall, sc *scope, m *matchSet) (pdbsql.Expression, error) {
	if x.Over != nil {
		return nil, pdbsql.ErrInvalidValue.New("window functions are only allowed in the select list, ORDER BY, or QUALIFY clause")
	}
	if isAggregateName(x.Name) {
		return nil, pdbsql.ErrInvalidValue.New(fmt.Sprintf("aggregate function %s is not allowed here", x.Name))
	}
	args := make([]pdbsql.Expression, 0, len(x.Args))
	for _, a := range x.Args {
		be, err := b.bindExpr(a, sc, m)
		if err != nil {
			return nil, err
		}
		args = append(args, be)
	}
	return b.funcs.Resolve(x.Name, args)
}
