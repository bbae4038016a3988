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

// Package expression implements the bound, typed expression tree (spec
// §3.3, §4.4) that the binder produces from sql/ast and the batch
// evaluator walks row-by-row or column-by-column.
package expression

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// Literal is a bound constant (spec §3.3).
type Literal struct {
	value interface{}
	typ   pdbsql.Type
}

// NewLiteral builds a Literal of the given type.
func NewLiteral(value interface{}, typ pdbsql.Type) *Literal {
	return &Literal{value: value, typ: typ}
}

func (l *Literal) Type() pdbsql.Type     { return l.typ }
func (l *Literal) IsNullable() bool      { return l.value == nil }
func (l *Literal) Resolved() bool        { return true }
func (l *Literal) String() string        { return fmt.Sprintf("%v", l.value) }
func (l *Literal) Children() []pdbsql.Expression { return nil }
func (l *Literal) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) { return l, nil }
func (l *Literal) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	return l.value, nil
}

// GetField reads one column by its position in the input row/batch (spec
// §3.3), grounded on the teacher's `expression.NewGetField(idx, typ, name,
// nullable)`.
type GetField struct {
	index    int
	typ      pdbsql.Type
	name     string
	nullable bool
}

// NewGetField builds a GetField expression.
func NewGetField(index int, typ pdbsql.Type, name string, nullable bool) *GetField {
	return &GetField{index: index, typ: typ, name: name, nullable: nullable}
}

func (g *GetField) Index() int          { return g.index }
func (g *GetField) Type() pdbsql.Type   { return g.typ }
func (g *GetField) IsNullable() bool    { return g.nullable }
func (g *GetField) Resolved() bool      { return true }
func (g *GetField) String() string      { return g.name }
func (g *GetField) Children() []pdbsql.Expression { return nil }
func (g *GetField) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) { return g, nil }
func (g *GetField) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	if g.index < 0 || g.index >= len(row) {
		return nil, pdbsql.ErrExecution.New(fmt.Sprintf("column index %d out of range for row of length %d", g.index, len(row)))
	}
	return row[g.index], nil
}

// binaryBase factors the Children boilerplate the teacher's binary
// expressions share.
type binaryBase struct {
	Left, Right pdbsql.Expression
}

func (b *binaryBase) Children() []pdbsql.Expression { return []pdbsql.Expression{b.Left, b.Right} }

// Equals implements `left = right` with three-valued NULL propagation
// (spec §3.3, §4.4).
type Equals struct{ binaryBase }

func NewEquals(left, right pdbsql.Expression) *Equals { return &Equals{binaryBase{left, right}} }

func (e *Equals) Type() pdbsql.Type { return pdbsql.Boolean }
func (e *Equals) IsNullable() bool  { return e.Left.IsNullable() || e.Right.IsNullable() }
func (e *Equals) Resolved() bool    { return e.Left.Resolved() && e.Right.Resolved() }
func (e *Equals) String() string    { return fmt.Sprintf("(%s = %s)", e.Left, e.Right) }
func (e *Equals) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("Equals: expected 2 children")
	}
	return NewEquals(c[0], c[1]), nil
}
func (e *Equals) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	l, err := e.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	r, err := e.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	typ, err := pdbsql.Promote(e.Left.Type(), e.Right.Type())
	if err != nil {
		return nil, err
	}
	tb, _, err := pdbsql.CompareValues(typ, l, r)
	if err != nil {
		return nil, err
	}
	return tb.ToNullableBool(), nil
}

// NullSafeEquals implements `IS NOT DISTINCT FROM` / `<=>` semantics:
// never returns NULL, and treats NULL = NULL as true (spec §3.3).
type NullSafeEquals struct{ binaryBase }

func NewNullSafeEquals(left, right pdbsql.Expression) *NullSafeEquals {
	return &NullSafeEquals{binaryBase{left, right}}
}

func (e *NullSafeEquals) Type() pdbsql.Type { return pdbsql.Boolean }
func (e *NullSafeEquals) IsNullable() bool  { return false }
func (e *NullSafeEquals) Resolved() bool    { return e.Left.Resolved() && e.Right.Resolved() }
func (e *NullSafeEquals) String() string    { return fmt.Sprintf("(%s <=> %s)", e.Left, e.Right) }
func (e *NullSafeEquals) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("NullSafeEquals: expected 2 children")
	}
	return NewNullSafeEquals(c[0], c[1]), nil
}
func (e *NullSafeEquals) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	l, err := e.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	r, err := e.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	typ, err := pdbsql.Promote(e.Left.Type(), e.Right.Type())
	if err != nil {
		return nil, err
	}
	return pdbsql.NullSafeEquals(typ, l, r)
}

// CompareOp names an ordering comparison (spec §3.3).
type CompareOp int

const (
	LT CompareOp = iota
	LTE
	GT
	GTE
)

// Comparison implements `<`, `<=`, `>`, `>=` with NULL propagation.
type Comparison struct {
	binaryBase
	Op CompareOp
}

func NewComparison(op CompareOp, left, right pdbsql.Expression) *Comparison {
	return &Comparison{binaryBase{left, right}, op}
}

func (c *Comparison) Type() pdbsql.Type { return pdbsql.Boolean }
func (c *Comparison) IsNullable() bool  { return c.Left.IsNullable() || c.Right.IsNullable() }
func (c *Comparison) Resolved() bool    { return c.Left.Resolved() && c.Right.Resolved() }
func (c *Comparison) String() string {
	ops := map[CompareOp]string{LT: "<", LTE: "<=", GT: ">", GTE: ">="}
	return fmt.Sprintf("(%s %s %s)", c.Left, ops[c.Op], c.Right)
}
func (c *Comparison) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 2 {
		return nil, pdbsql.ErrExecution.New("Comparison: expected 2 children")
	}
	return NewComparison(c.Op, ch[0], ch[1]), nil
}
func (c *Comparison) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	l, err := c.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	r, err := c.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	typ, err := pdbsql.Promote(c.Left.Type(), c.Right.Type())
	if err != nil {
		return nil, err
	}
	_, cmp, err := pdbsql.CompareValues(typ, l, r)
	if err != nil {
		return nil, err
	}
	switch c.Op {
	case LT:
		return cmp < 0, nil
	case LTE:
		return cmp <= 0, nil
	case GT:
		return cmp > 0, nil
	case GTE:
		return cmp >= 0, nil
	}
	return nil, pdbsql.ErrExecution.New("unknown comparison operator")
}

// And implements three-valued conjunction (spec §3.3: NULL AND FALSE =
// FALSE, NULL AND TRUE = NULL).
type And struct{ binaryBase }

func NewAnd(left, right pdbsql.Expression) *And { return &And{binaryBase{left, right}} }

func (a *And) Type() pdbsql.Type { return pdbsql.Boolean }
func (a *And) IsNullable() bool  { return true }
func (a *And) Resolved() bool    { return a.Left.Resolved() && a.Right.Resolved() }
func (a *And) String() string    { return fmt.Sprintf("(%s AND %s)", a.Left, a.Right) }
func (a *And) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("And: expected 2 children")
	}
	return NewAnd(c[0], c[1]), nil
}
func (a *And) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	l, err := a.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if lb, ok := l.(bool); ok && !lb {
		return false, nil
	}
	r, err := a.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if rb, ok := r.(bool); ok && !rb {
		return false, nil
	}
	if l == nil || r == nil {
		return nil, nil
	}
	return true, nil
}

// Or implements three-valued disjunction.
type Or struct{ binaryBase }

func NewOr(left, right pdbsql.Expression) *Or { return &Or{binaryBase{left, right}} }

func (o *Or) Type() pdbsql.Type { return pdbsql.Boolean }
func (o *Or) IsNullable() bool  { return true }
func (o *Or) Resolved() bool    { return o.Left.Resolved() && o.Right.Resolved() }
func (o *Or) String() string    { return fmt.Sprintf("(%s OR %s)", o.Left, o.Right) }
func (o *Or) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("Or: expected 2 children")
	}
	return NewOr(c[0], c[1]), nil
}
func (o *Or) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	l, err := o.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if lb, ok := l.(bool); ok && lb {
		return true, nil
	}
	r, err := o.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if rb, ok := r.(bool); ok && rb {
		return true, nil
	}
	if l == nil || r == nil {
		return nil, nil
	}
	return false, nil
}

// Not implements three-valued negation.
type Not struct{ Expr pdbsql.Expression }

func NewNot(e pdbsql.Expression) *Not { return &Not{e} }

func (n *Not) Type() pdbsql.Type     { return pdbsql.Boolean }
func (n *Not) IsNullable() bool      { return n.Expr.IsNullable() }
func (n *Not) Resolved() bool        { return n.Expr.Resolved() }
func (n *Not) String() string        { return fmt.Sprintf("(NOT %s)", n.Expr) }
func (n *Not) Children() []pdbsql.Expression { return []pdbsql.Expression{n.Expr} }
func (n *Not) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Not: expected 1 child")
	}
	return NewNot(c[0]), nil
}
func (n *Not) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	v, err := n.Expr.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	b, _ := v.(bool)
	return !b, nil
}

// ArithOp names one arithmetic operator (spec §3.2, §4.4).
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
)

// Arithmetic implements + - * / % with the numeric widening lattice
// (spec §3.2 type system). The result type is decided by the binder via
// sql.Promote and carried here rather than recomputed per Eval.
type Arithmetic struct {
	binaryBase
	Op       ArithOp
	resultTy pdbsql.Type
}

func NewArithmetic(op ArithOp, left, right pdbsql.Expression, resultTy pdbsql.Type) *Arithmetic {
	return &Arithmetic{binaryBase{left, right}, op, resultTy}
}

func (a *Arithmetic) Type() pdbsql.Type { return a.resultTy }
func (a *Arithmetic) IsNullable() bool  { return a.Left.IsNullable() || a.Right.IsNullable() }
func (a *Arithmetic) Resolved() bool    { return a.Left.Resolved() && a.Right.Resolved() }
func (a *Arithmetic) String() string {
	ops := map[ArithOp]string{Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%"}
	return fmt.Sprintf("(%s %s %s)", a.Left, ops[a.Op], a.Right)
}
func (a *Arithmetic) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("Arithmetic: expected 2 children")
	}
	return NewArithmetic(a.Op, c[0], c[1], a.resultTy), nil
}
func (a *Arithmetic) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	l, err := a.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	r, err := a.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	return evalArith(a.Op, a.resultTy, l, r)
}

func evalArith(op ArithOp, resultTy pdbsql.Type, l, r interface{}) (interface{}, error) {
	if resultTy.Kind() == pdbsql.KindDecimal {
		ld, err := resultTy.Convert(l)
		if err != nil {
			return nil, err
		}
		rd, err := resultTy.Convert(r)
		if err != nil {
			return nil, err
		}
		lv, rv := ld.(decimal.Decimal), rd.(decimal.Decimal)
		switch op {
		case Add:
			return resultTy.Convert(lv.Add(rv))
		case Sub:
			return resultTy.Convert(lv.Sub(rv))
		case Mul:
			return resultTy.Convert(lv.Mul(rv))
		case Div:
			if rv.IsZero() {
				return nil, pdbsql.ErrDivideByZero.New()
			}
			return resultTy.Convert(lv.Div(rv))
		case Mod:
			if rv.IsZero() {
				return nil, pdbsql.ErrDivideByZero.New()
			}
			return resultTy.Convert(lv.Mod(rv))
		}
	}
	if resultTy.Kind() == pdbsql.KindInt128 {
		ld, err := resultTy.Convert(l)
		if err != nil {
			return nil, err
		}
		rd, err := resultTy.Convert(r)
		if err != nil {
			return nil, err
		}
		lv, rv := ld.(decimal.Decimal), rd.(decimal.Decimal)
		switch op {
		case Add:
			return lv.Add(rv), nil
		case Sub:
			return lv.Sub(rv), nil
		case Mul:
			return lv.Mul(rv), nil
		case Div:
			if rv.IsZero() {
				return nil, pdbsql.ErrDivideByZero.New()
			}
			return lv.Div(rv).Truncate(0), nil
		case Mod:
			if rv.IsZero() {
				return nil, pdbsql.ErrDivideByZero.New()
			}
			return lv.Mod(rv), nil
		}
	}
	isFloat := resultTy.Kind() == pdbsql.KindFloat32 || resultTy.Kind() == pdbsql.KindFloat64
	if isFloat {
		lf, err := toFloat(l)
		if err != nil {
			return nil, err
		}
		rf, err := toFloat(r)
		if err != nil {
			return nil, err
		}
		switch op {
		case Add:
			return resultTy.Convert(lf + rf)
		case Sub:
			return resultTy.Convert(lf - rf)
		case Mul:
			return resultTy.Convert(lf * rf)
		case Div:
			if rf == 0 {
				return nil, pdbsql.ErrDivideByZero.New()
			}
			return resultTy.Convert(lf / rf)
		case Mod:
			if rf == 0 {
				return nil, pdbsql.ErrDivideByZero.New()
			}
			return resultTy.Convert(mathMod(lf, rf))
		}
	}
	li, err := toInt(l)
	if err != nil {
		return nil, err
	}
	ri, err := toInt(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case Add:
		return resultTy.Convert(li + ri)
	case Sub:
		return resultTy.Convert(li - ri)
	case Mul:
		return resultTy.Convert(li * ri)
	case Div:
		if ri == 0 {
			return nil, pdbsql.ErrDivideByZero.New()
		}
		return resultTy.Convert(li / ri)
	case Mod:
		if ri == 0 {
			return nil, pdbsql.ErrDivideByZero.New()
		}
		return resultTy.Convert(li % ri)
	}
	return nil, pdbsql.ErrExecution.New("unknown arithmetic operator")
}

func mathMod(a, b float64) float64 {
	for a >= b {
		a -= b
	}
	return a
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case decimal.Decimal:
		f, _ := t.Float64()
		return f, nil
	}
	return 0, pdbsql.ErrTypeMismatch.New(fmt.Sprintf("cannot use %T in float arithmetic", v))
}

func toInt(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case decimal.Decimal:
		return t.IntPart(), nil
	}
	return 0, pdbsql.ErrTypeMismatch.New(fmt.Sprintf("cannot use %T in integer arithmetic", v))
}

// Concat implements `||` string concatenation (spec §4.4).
type Concat struct{ binaryBase }

func NewConcat(left, right pdbsql.Expression) *Concat { return &Concat{binaryBase{left, right}} }

func (c *Concat) Type() pdbsql.Type { return pdbsql.VarChar(0) }
func (c *Concat) IsNullable() bool  { return c.Left.IsNullable() || c.Right.IsNullable() }
func (c *Concat) Resolved() bool    { return c.Left.Resolved() && c.Right.Resolved() }
func (c *Concat) String() string    { return fmt.Sprintf("(%s || %s)", c.Left, c.Right) }
func (c *Concat) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 2 {
		return nil, pdbsql.ErrExecution.New("Concat: expected 2 children")
	}
	return NewConcat(ch[0], ch[1]), nil
}
func (c *Concat) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	l, err := c.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	r, err := c.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%v", l))
	sb.WriteString(fmt.Sprintf("%v", r))
	return sb.String(), nil
}

// IsNull implements `IS [NOT] NULL` (spec §3.3).
type IsNull struct {
	Expr pdbsql.Expression
	Not  bool
}

func NewIsNull(e pdbsql.Expression, not bool) *IsNull { return &IsNull{e, not} }

func (i *IsNull) Type() pdbsql.Type { return pdbsql.Boolean }
func (i *IsNull) IsNullable() bool  { return false }
func (i *IsNull) Resolved() bool    { return i.Expr.Resolved() }
func (i *IsNull) String() string {
	if i.Not {
		return fmt.Sprintf("(%s IS NOT NULL)", i.Expr)
	}
	return fmt.Sprintf("(%s IS NULL)", i.Expr)
}
func (i *IsNull) Children() []pdbsql.Expression { return []pdbsql.Expression{i.Expr} }
func (i *IsNull) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("IsNull: expected 1 child")
	}
	return NewIsNull(c[0], i.Not), nil
}
func (i *IsNull) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	v, err := i.Expr.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	isNull := v == nil
	if i.Not {
		return !isNull, nil
	}
	return isNull, nil
}

// Between implements `expr [NOT] BETWEEN low AND high` (spec §4.4).
type Between struct {
	Expr, Low, High pdbsql.Expression
	Not             bool
}

func NewBetween(expr, low, high pdbsql.Expression, not bool) *Between {
	return &Between{expr, low, high, not}
}

func (b *Between) Type() pdbsql.Type { return pdbsql.Boolean }
func (b *Between) IsNullable() bool  { return true }
func (b *Between) Resolved() bool {
	return b.Expr.Resolved() && b.Low.Resolved() && b.High.Resolved()
}
func (b *Between) String() string {
	return fmt.Sprintf("(%s BETWEEN %s AND %s)", b.Expr, b.Low, b.High)
}
func (b *Between) Children() []pdbsql.Expression {
	return []pdbsql.Expression{b.Expr, b.Low, b.High}
}
func (b *Between) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 3 {
		return nil, pdbsql.ErrExecution.New("Between: expected 3 children")
	}
	return NewBetween(c[0], c[1], c[2], b.Not), nil
}
func (b *Between) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	v, err := b.Expr.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	lo, err := b.Low.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	hi, err := b.High.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if v == nil || lo == nil || hi == nil {
		return nil, nil
	}
	typ := b.Expr.Type()
	_, c1, err := pdbsql.CompareValues(typ, v, lo)
	if err != nil {
		return nil, err
	}
	_, c2, err := pdbsql.CompareValues(typ, v, hi)
	if err != nil {
		return nil, err
	}
	result := c1 >= 0 && c2 <= 0
	if b.Not {
		return !result, nil
	}
	return result, nil
}

// InList implements `expr [NOT] IN (list...)` (spec §4.4).
type InList struct {
	Expr pdbsql.Expression
	List []pdbsql.Expression
	Not  bool
}

func NewInList(expr pdbsql.Expression, list []pdbsql.Expression, not bool) *InList {
	return &InList{expr, list, not}
}

func (n *InList) Type() pdbsql.Type { return pdbsql.Boolean }
func (n *InList) IsNullable() bool  { return true }
func (n *InList) Resolved() bool {
	if !n.Expr.Resolved() {
		return false
	}
	for _, e := range n.List {
		if !e.Resolved() {
			return false
		}
	}
	return true
}
func (n *InList) String() string { return fmt.Sprintf("(%s IN (...))", n.Expr) }
func (n *InList) Children() []pdbsql.Expression {
	return append([]pdbsql.Expression{n.Expr}, n.List...)
}
func (n *InList) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) < 1 {
		return nil, pdbsql.ErrExecution.New("InList: expected at least 1 child")
	}
	return NewInList(c[0], c[1:], n.Not), nil
}
func (n *InList) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	v, err := n.Expr.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	typ := n.Expr.Type()
	sawNull := false
	for _, e := range n.List {
		item, err := e.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		if item == nil {
			sawNull = true
			continue
		}
		_, cmp, err := pdbsql.CompareValues(typ, v, item)
		if err != nil {
			return nil, err
		}
		if cmp == 0 {
			if n.Not {
				return false, nil
			}
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	if n.Not {
		return true, nil
	}
	return false, nil
}

// Case implements simple and searched CASE expressions (spec §4.4).
type CaseBranch struct {
	Cond pdbsql.Expression
	Then pdbsql.Expression
}

type Case struct {
	Operand  pdbsql.Expression // nil for searched CASE
	Branches []CaseBranch
	Else     pdbsql.Expression // nil if no ELSE (result is NULL)
	resultTy pdbsql.Type
}

func NewCase(operand pdbsql.Expression, branches []CaseBranch, elseExpr pdbsql.Expression, resultTy pdbsql.Type) *Case {
	return &Case{operand, branches, elseExpr, resultTy}
}

func (c *Case) Type() pdbsql.Type { return c.resultTy }
func (c *Case) IsNullable() bool  { return true }
func (c *Case) Resolved() bool {
	for _, b := range c.Branches {
		if !b.Cond.Resolved() || !b.Then.Resolved() {
			return false
		}
	}
	return c.Else == nil || c.Else.Resolved()
}
func (c *Case) String() string { return "CASE ... END" }
func (c *Case) Children() []pdbsql.Expression {
	var out []pdbsql.Expression
	if c.Operand != nil {
		out = append(out, c.Operand)
	}
	for _, b := range c.Branches {
		out = append(out, b.Cond, b.Then)
	}
	if c.Else != nil {
		out = append(out, c.Else)
	}
	return out
}
func (c *Case) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	idx := 0
	var operand pdbsql.Expression
	if c.Operand != nil {
		operand = ch[idx]
		idx++
	}
	var branches []CaseBranch
	for range c.Branches {
		branches = append(branches, CaseBranch{Cond: ch[idx], Then: ch[idx+1]})
		idx += 2
	}
	var elseExpr pdbsql.Expression
	if c.Else != nil {
		elseExpr = ch[idx]
	}
	return NewCase(operand, branches, elseExpr, c.resultTy), nil
}
func (c *Case) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	var operandVal interface{}
	if c.Operand != nil {
		v, err := c.Operand.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		operandVal = v
	}
	for _, b := range c.Branches {
		var matched bool
		if c.Operand != nil {
			cv, err := b.Cond.Eval(ctx, row)
			if err != nil {
				return nil, err
			}
			if operandVal == nil || cv == nil {
				matched = false
			} else {
				_, cmp, err := pdbsql.CompareValues(c.Operand.Type(), operandVal, cv)
				if err != nil {
					return nil, err
				}
				matched = cmp == 0
			}
		} else {
			cv, err := b.Cond.Eval(ctx, row)
			if err != nil {
				return nil, err
			}
			bv, _ := cv.(bool)
			matched = cv != nil && bv
		}
		if matched {
			return b.Then.Eval(ctx, row)
		}
	}
	if c.Else != nil {
		return c.Else.Eval(ctx, row)
	}
	return nil, nil
}

// Cast converts expr to the target type; Try makes a failed conversion
// yield NULL instead of an error (spec §3.2, §4.4 TRY_CAST).
type Cast struct {
	Expr   pdbsql.Expression
	Target pdbsql.Type
	Try    bool
}

func NewCast(e pdbsql.Expression, target pdbsql.Type, try bool) *Cast { return &Cast{e, target, try} }

func (c *Cast) Type() pdbsql.Type { return c.Target }
func (c *Cast) IsNullable() bool  { return true }
func (c *Cast) Resolved() bool    { return c.Expr.Resolved() }
func (c *Cast) String() string    { return fmt.Sprintf("CAST(%s AS %s)", c.Expr, c.Target) }
func (c *Cast) Children() []pdbsql.Expression { return []pdbsql.Expression{c.Expr} }
func (c *Cast) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New("Cast: expected 1 child")
	}
	return NewCast(ch[0], c.Target, c.Try), nil
}
func (c *Cast) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	v, err := c.Expr.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	out, err := c.Target.Convert(v)
	if err != nil {
		if c.Try {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// Like implements `[NOT] LIKE`/`ILIKE` with SQL `%`/`_` wildcards (spec
// §4.6); ILIKE compares on lowercased copies of both operands.
type Like struct {
	binaryBase
	Not      bool
	CaseFold bool
}

func NewLike(expr, pattern pdbsql.Expression, not, caseFold bool) *Like {
	return &Like{binaryBase{expr, pattern}, not, caseFold}
}

func (l *Like) Type() pdbsql.Type { return pdbsql.Boolean }
func (l *Like) IsNullable() bool  { return true }
func (l *Like) Resolved() bool    { return l.Left.Resolved() && l.Right.Resolved() }
func (l *Like) String() string {
	op := "LIKE"
	if l.CaseFold {
		op = "ILIKE"
	}
	return fmt.Sprintf("(%s %s %s)", l.Left, op, l.Right)
}
func (l *Like) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("Like: expected 2 children")
	}
	return NewLike(c[0], c[1], l.Not, l.CaseFold), nil
}
func (l *Like) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	v, err := l.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	p, err := l.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if v == nil || p == nil {
		return nil, nil
	}
	s, pat := fmt.Sprintf("%v", v), fmt.Sprintf("%v", p)
	if l.CaseFold {
		s, pat = strings.ToLower(s), strings.ToLower(pat)
	}
	matched := likeMatch(s, pat)
	if l.Not {
		return !matched, nil
	}
	return matched, nil
}

// likeMatch implements SQL LIKE pattern matching: `%` matches any run of
// characters (including none), `_` matches exactly one character.
func likeMatch(s, pattern string) bool {
	sr, pr := []rune(s), []rune(pattern)
	return likeMatchRunes(sr, pr)
}

func likeMatchRunes(s, p []rune) bool {
	// classic DP over (len(s)+1) x (len(p)+1); sized for typical pattern
	// lengths in query predicates, not bulk text search.
	dp := make([][]bool, len(s)+1)
	for i := range dp {
		dp[i] = make([]bool, len(p)+1)
	}
	dp[0][0] = true
	for j := 1; j <= len(p); j++ {
		if p[j-1] == '%' {
			dp[0][j] = dp[0][j-1]
		}
	}
	for i := 1; i <= len(s); i++ {
		for j := 1; j <= len(p); j++ {
			switch p[j-1] {
			case '%':
				dp[i][j] = dp[i-1][j] || dp[i][j-1]
			case '_':
				dp[i][j] = dp[i-1][j-1]
			default:
				dp[i][j] = dp[i-1][j-1] && s[i-1] == p[j-1]
			}
		}
	}
	return dp[len(s)][len(p)]
}

// OuterColumnRef reads a column from the outer row of a correlated
// subquery (spec §4.9), carried in ctx.OuterRow rather than the row
// passed to Eval -- the inner plan's row shape has no slot for outer
// columns. Produced by the binder when a column reference inside a
// subquery resolves to an enclosing scope instead of the subquery's own
// FROM clause; its presence is what marks a subquery correlated.
type OuterColumnRef struct {
	index    int
	typ      pdbsql.Type
	name     string
	nullable bool
}

func NewOuterColumnRef(index int, typ pdbsql.Type, name string, nullable bool) *OuterColumnRef {
	return &OuterColumnRef{index: index, typ: typ, name: name, nullable: nullable}
}

func (o *OuterColumnRef) Index() int          { return o.index }
func (o *OuterColumnRef) Type() pdbsql.Type   { return o.typ }
func (o *OuterColumnRef) IsNullable() bool    { return o.nullable }
func (o *OuterColumnRef) Resolved() bool      { return true }
func (o *OuterColumnRef) String() string      { return "outer." + o.name }
func (o *OuterColumnRef) Children() []pdbsql.Expression { return nil }
func (o *OuterColumnRef) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	return o, nil
}
func (o *OuterColumnRef) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	if ctx.OuterRow == nil {
		return nil, pdbsql.ErrExecution.New("outer column reference evaluated outside a correlated subquery")
	}
	if o.index < 0 || o.index >= len(ctx.OuterRow) {
		return nil, pdbsql.ErrExecution.New(fmt.Sprintf("outer column index %d out of range for row of length %d", o.index, len(ctx.OuterRow)))
	}
	return ctx.OuterRow[o.index], nil
}

// SubqueryPlan is the already-bound-and-optimized physical root of a
// subquery. The owning subquery expression runs it afresh on every Eval,
// with ctx.OuterRow set to the current row when correlated; results are
// not cached between rows, so a non-correlated subquery also runs once
// per outer row (spec §4.9).
type SubqueryPlan interface {
	pdbsql.Executable
}

// ScalarSubquery evaluates Plan and returns row 0 column 0, NULL if
// empty, erroring if more than one row is produced (spec §4.9).
type ScalarSubquery struct {
	Plan       SubqueryPlan
	Correlated bool
	typ        pdbsql.Type
}

func NewScalarSubquery(plan SubqueryPlan, correlated bool, typ pdbsql.Type) *ScalarSubquery {
	return &ScalarSubquery{Plan: plan, Correlated: correlated, typ: typ}
}

func (s *ScalarSubquery) Type() pdbsql.Type          { return s.typ }
func (s *ScalarSubquery) IsNullable() bool           { return true }
func (s *ScalarSubquery) Resolved() bool             { return true }
func (s *ScalarSubquery) String() string             { return "(SELECT ...)" }
func (s *ScalarSubquery) Children() []pdbsql.Expression { return nil }
func (s *ScalarSubquery) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	return s, nil
}
func (s *ScalarSubquery) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	runCtx := ctx
	if s.Correlated {
		runCtx = ctx.WithOuterRow(row)
	}
	rows, err := runSubquery(runCtx, s.Plan)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		return nil, pdbsql.ErrScalarSubqueryRows.New()
	}
	if len(rows[0]) == 0 {
		return nil, nil
	}
	return rows[0][0], nil
}

// ExistsSubquery implements `[NOT] EXISTS (subquery)` (spec §4.9).
type ExistsSubquery struct {
	Plan       SubqueryPlan
	Correlated bool
	Not        bool
}

func NewExistsSubquery(plan SubqueryPlan, correlated, not bool) *ExistsSubquery {
	return &ExistsSubquery{Plan: plan, Correlated: correlated, Not: not}
}

func (e *ExistsSubquery) Type() pdbsql.Type          { return pdbsql.Boolean }
func (e *ExistsSubquery) IsNullable() bool           { return false }
func (e *ExistsSubquery) Resolved() bool             { return true }
func (e *ExistsSubquery) String() string             { return "EXISTS (SELECT ...)" }
func (e *ExistsSubquery) Children() []pdbsql.Expression { return nil }
func (e *ExistsSubquery) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	return e, nil
}
func (e *ExistsSubquery) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	runCtx := ctx
	if e.Correlated {
		runCtx = ctx.WithOuterRow(row)
	}
	rows, err := runSubquery(runCtx, e.Plan)
	if err != nil {
		return nil, err
	}
	found := len(rows) > 0
	if e.Not {
		return !found, nil
	}
	return found, nil
}

// InSubquery implements `expr [NOT] IN (subquery)` (spec §4.9): the
// subquery executes once per outer row if correlated, and membership is
// tested by value-equality against column 0 of its result.
type InSubquery struct {
	Expr       pdbsql.Expression
	Plan       SubqueryPlan
	Correlated bool
	Not        bool
}

func NewInSubquery(expr pdbsql.Expression, plan SubqueryPlan, correlated, not bool) *InSubquery {
	return &InSubquery{Expr: expr, Plan: plan, Correlated: correlated, Not: not}
}

func (i *InSubquery) Type() pdbsql.Type { return pdbsql.Boolean }
func (i *InSubquery) IsNullable() bool  { return true }
func (i *InSubquery) Resolved() bool    { return i.Expr.Resolved() }
func (i *InSubquery) String() string    { return fmt.Sprintf("(%s IN (SELECT ...))", i.Expr) }
func (i *InSubquery) Children() []pdbsql.Expression { return []pdbsql.Expression{i.Expr} }
func (i *InSubquery) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("InSubquery: expected 1 child")
	}
	n := *i
	n.Expr = c[0]
	return &n, nil
}
func (i *InSubquery) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	v, err := i.Expr.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	runCtx := ctx
	if i.Correlated {
		runCtx = ctx.WithOuterRow(row)
	}
	rows, err := runSubquery(runCtx, i.Plan)
	if err != nil {
		return nil, err
	}
	sawNull := false
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		if r[0] == nil {
			sawNull = true
			continue
		}
		_, cmp, err := pdbsql.CompareValues(i.Expr.Type(), v, r[0])
		if err != nil {
			return nil, err
		}
		if cmp == 0 {
			if i.Not {
				return false, nil
			}
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	if i.Not {
		return true, nil
	}
	return false, nil
}

func runSubquery(ctx *pdbsql.Context, plan SubqueryPlan) ([]pdbsql.Row, error) {
	it, err := plan.BatchIter(ctx)
	if err != nil {
		return nil, err
	}
	return pdbsql.BatchToRows(ctx, it)
}
