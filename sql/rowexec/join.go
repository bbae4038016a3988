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

package rowexec

import (
	"fmt"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression"
)

// JoinKind mirrors plan.JoinKind.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
	SemiJoin
	AntiJoin
)

// eqKey is one side of an equi-join key expression extracted from the
// join condition.
type eqKey struct {
	left, right pdbsql.Expression
}

// HashJoin probes a hash table built from the right input's equality keys
// while iterating over the fully materialized left input (spec §4.5
// lowering rule: an equality
// condition extracts keys from both sides; anything left over stays a
// residual applied per candidate pair).
type HashJoin struct {
	Left, Right pdbsql.Executable
	Kind        JoinKind
	Keys        []eqKey
	Residual    pdbsql.Expression // nil if the whole condition reduced to equalities
}

func NewHashJoin(kind JoinKind, keys []eqKey, residual pdbsql.Expression, left, right pdbsql.Executable) *HashJoin {
	return &HashJoin{Left: left, Right: right, Kind: kind, Keys: keys, Residual: residual}
}

func (j *HashJoin) Schema() pdbsql.Schema {
	if j.Kind == SemiJoin || j.Kind == AntiJoin {
		return j.Left.Schema().Copy()
	}
	out := make(pdbsql.Schema, 0, len(j.Left.Schema())+len(j.Right.Schema()))
	out = append(out, j.Left.Schema()...)
	out = append(out, j.Right.Schema()...)
	return out
}
func (j *HashJoin) Children() []pdbsql.Node { return []pdbsql.Node{j.Left, j.Right} }
func (j *HashJoin) Resolved() bool          { return j.Left.Resolved() && j.Right.Resolved() }
func (j *HashJoin) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("HashJoin: expected 2 children")
	}
	le, lok := c[0].(pdbsql.Executable)
	re, rok := c[1].(pdbsql.Executable)
	if !lok || !rok {
		return nil, pdbsql.ErrExecution.New("HashJoin: children must be physical")
	}
	return NewHashJoin(j.Kind, j.Keys, j.Residual, le, re), nil
}
func (j *HashJoin) String() string { return fmt.Sprintf("HashJoin(kind=%d)", j.Kind) }

func (j *HashJoin) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rightRows, err := childRows(ctx, j.Right)
	if err != nil {
		return nil, err
	}
	rightAll, err := drain(ctx, rightRows)
	if err != nil {
		return nil, err
	}
	table := map[string][]int{}
	for ri, r := range rightAll {
		k, err := j.rightKey(ctx, r)
		if err != nil {
			return nil, err
		}
		table[k] = append(table[k], ri)
	}

	leftRows, err := childRows(ctx, j.Left)
	if err != nil {
		return nil, err
	}
	leftAll, err := drain(ctx, leftRows)
	if err != nil {
		return nil, err
	}

	leftWidth := len(j.Left.Schema())
	rightWidth := len(j.Right.Schema())
	rightMatched := make([]bool, len(rightAll))
	var out []pdbsql.Row
	for _, lrow := range leftAll {
		lk, err := j.leftKey(ctx, lrow)
		if err != nil {
			return nil, err
		}
		matched := false
		for _, ri := range table[lk] {
			rrow := rightAll[ri]
			ok, err := j.passResidual(ctx, lrow, rrow)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			matched = true
			switch j.Kind {
			case SemiJoin:
				out = append(out, lrow)
				goto nextLeft
			case AntiJoin:
				// handled after the loop: suppress this lrow entirely
			default:
				rightMatched[ri] = true
				out = append(out, lrow.Append(rrow))
			}
		}
		if j.Kind == AntiJoin {
			if !matched {
				out = append(out, lrow)
			}
			continue
		}
		if !matched {
			switch j.Kind {
			case LeftJoin, FullJoin:
				out = append(out, lrow.Append(make(pdbsql.Row, rightWidth)))
			case SemiJoin:
				// no match, emit nothing
			}
		}
	nextLeft:
	}

	if j.Kind == FullJoin || j.Kind == RightJoin {
		for ri, rrow := range rightAll {
			if !rightMatched[ri] {
				pad := make(pdbsql.Row, leftWidth)
				out = append(out, pad.Append(rrow))
			}
		}
	}

	return rowsToBatchIter(j.Schema(), out), nil
}

func (j *HashJoin) passResidual(ctx *pdbsql.Context, l, r pdbsql.Row) (bool, error) {
	if j.Residual == nil {
		return true, nil
	}
	v, err := j.Residual.Eval(ctx, l.Append(r))
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func (j *HashJoin) leftKey(ctx *pdbsql.Context, row pdbsql.Row) (string, error) {
	return evalKey(ctx, j.Keys, row, true)
}
func (j *HashJoin) rightKey(ctx *pdbsql.Context, row pdbsql.Row) (string, error) {
	return evalKey(ctx, j.Keys, row, false)
}

func evalKey(ctx *pdbsql.Context, keys []eqKey, row pdbsql.Row, left bool) (string, error) {
	vals := make(pdbsql.Row, len(keys))
	for i, k := range keys {
		e := k.right
		if left {
			e = k.left
		}
		v, err := e.Eval(ctx, row)
		if err != nil {
			return "", err
		}
		vals[i] = v
	}
	return fmt.Sprintf("%v", vals), nil
}

// NestedLoopJoin handles any join condition (including none, for
// CrossJoin) by brute-force pairing, used whenever the condition isn't
// reducible to pure equalities (spec §4.5 lowering rule: "condition not
// reducible to equalities remains a residual").
type NestedLoopJoin struct {
	Left, Right pdbsql.Executable
	Kind        JoinKind
	Cond        pdbsql.Expression // nil for CrossJoin
}

func NewNestedLoopJoin(kind JoinKind, cond pdbsql.Expression, left, right pdbsql.Executable) *NestedLoopJoin {
	return &NestedLoopJoin{Left: left, Right: right, Kind: kind, Cond: cond}
}

func (j *NestedLoopJoin) Schema() pdbsql.Schema {
	if j.Kind == SemiJoin || j.Kind == AntiJoin {
		return j.Left.Schema().Copy()
	}
	out := make(pdbsql.Schema, 0, len(j.Left.Schema())+len(j.Right.Schema()))
	out = append(out, j.Left.Schema()...)
	out = append(out, j.Right.Schema()...)
	return out
}
func (j *NestedLoopJoin) Children() []pdbsql.Node { return []pdbsql.Node{j.Left, j.Right} }
func (j *NestedLoopJoin) Resolved() bool          { return j.Left.Resolved() && j.Right.Resolved() }
func (j *NestedLoopJoin) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("NestedLoopJoin: expected 2 children")
	}
	le, lok := c[0].(pdbsql.Executable)
	re, rok := c[1].(pdbsql.Executable)
	if !lok || !rok {
		return nil, pdbsql.ErrExecution.New("NestedLoopJoin: children must be physical")
	}
	return NewNestedLoopJoin(j.Kind, j.Cond, le, re), nil
}
func (j *NestedLoopJoin) String() string { return fmt.Sprintf("NestedLoopJoin(kind=%d)", j.Kind) }

func (j *NestedLoopJoin) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rightRows, err := childRows(ctx, j.Right)
	if err != nil {
		return nil, err
	}
	rightAll, err := drain(ctx, rightRows)
	if err != nil {
		return nil, err
	}
	leftRows, err := childRows(ctx, j.Left)
	if err != nil {
		return nil, err
	}
	leftAll, err := drain(ctx, leftRows)
	if err != nil {
		return nil, err
	}

	leftWidth := len(j.Left.Schema())
	rightWidth := len(j.Right.Schema())
	rightMatched := make([]bool, len(rightAll))
	var out []pdbsql.Row
	for _, lrow := range leftAll {
		matched := false
		for ri, rrow := range rightAll {
			ok, err := j.passCond(ctx, lrow, rrow)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			matched = true
			rightMatched[ri] = true
			switch j.Kind {
			case SemiJoin:
				out = append(out, lrow)
			case AntiJoin:
				// suppressed below
			default:
				out = append(out, lrow.Append(rrow))
			}
			if j.Kind == SemiJoin {
				break
			}
		}
		if j.Kind == AntiJoin {
			if !matched {
				out = append(out, lrow)
			}
			continue
		}
		if !matched {
			switch j.Kind {
			case LeftJoin, FullJoin:
				out = append(out, lrow.Append(make(pdbsql.Row, rightWidth)))
			}
		}
	}
	if j.Kind == FullJoin || j.Kind == RightJoin {
		for ri, rrow := range rightAll {
			if !rightMatched[ri] {
				pad := make(pdbsql.Row, leftWidth)
				out = append(out, pad.Append(rrow))
			}
		}
	}
	return rowsToBatchIter(j.Schema(), out), nil
}

func (j *NestedLoopJoin) passCond(ctx *pdbsql.Context, l, r pdbsql.Row) (bool, error) {
	if j.Cond == nil {
		return true, nil
	}
	v, err := j.Cond.Eval(ctx, l.Append(r))
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// extractEquiKeys walks an AND-tree condition, splitting out Equals
// clauses whose two sides each reference exactly one input (left or
// right, identified by GetField index relative to leftWidth), returning
// the extracted keys plus whatever doesn't fit that shape as a residual
// (spec §4.5 lowering rule).
func ExtractEquiKeys(cond pdbsql.Expression, leftWidth int) ([]eqKey, pdbsql.Expression) {
	var keys []eqKey
	var residual pdbsql.Expression
	var walk func(e pdbsql.Expression)
	walk = func(e pdbsql.Expression) {
		if and, ok := e.(*expression.And); ok {
			walk(and.Left)
			walk(and.Right)
			return
		}
		if eq, ok := e.(*expression.Equals); ok {
			lf, lok := eq.Left.(*expression.GetField)
			rf, rok := eq.Right.(*expression.GetField)
			if lok && rok {
				if lf.Index() < leftWidth && rf.Index() >= leftWidth {
					keys = append(keys, eqKey{left: lf, right: shiftField(rf, leftWidth)})
					return
				}
				if rf.Index() < leftWidth && lf.Index() >= leftWidth {
					keys = append(keys, eqKey{left: rf, right: shiftField(lf, leftWidth)})
					return
				}
			}
		}
		residual = andExpr(residual, e)
	}
	walk(cond)
	return keys, residual
}

func shiftField(f *expression.GetField, leftWidth int) pdbsql.Expression {
	return expression.NewGetField(f.Index()-leftWidth, f.Type(), f.String(), f.IsNullable())
}

func andExpr(acc, next pdbsql.Expression) pdbsql.Expression {
	if acc == nil {
		return next
	}
	return expression.NewAnd(acc, next)
}

// EqKey is exported so the analyzer's lowering rule can construct keys.
type EqKey = eqKey

func NewEqKey(left, right pdbsql.Expression) EqKey { return EqKey{left: left, right: right} }
