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
	"github.com/TuringWorks/PrismDB-sub000/sql/expression/function/aggregation"
)

// AggExpr is one aggregate-function call in the SELECT/HAVING list.
type AggExpr struct {
	Func pdbsql.Expression // must implement aggregation.Function
	Name string
}

// HashAggregate implements GROUP BY + aggregate functions via a hash table
// keyed by the group-by tuple (spec §4.5 lowering rule: "Aggregate with
// non-empty GROUP BY -> HashAggregate"). With no GroupBy it computes a
// single group (spec §4.7's empty-input-still-emits-one-row edge case is
// handled by seeding one implicit group after the input is drained, when no
// row was seen).
type HashAggregate struct {
	Child   pdbsql.Executable
	GroupBy []pdbsql.Expression
	Aggs    []AggExpr
}

func NewHashAggregate(groupBy []pdbsql.Expression, aggs []AggExpr, child pdbsql.Executable) *HashAggregate {
	return &HashAggregate{Child: child, GroupBy: groupBy, Aggs: aggs}
}

func (a *HashAggregate) Schema() pdbsql.Schema {
	out := make(pdbsql.Schema, 0, len(a.GroupBy)+len(a.Aggs))
	for i, g := range a.GroupBy {
		out = append(out, &pdbsql.ColumnDef{Name: fmt.Sprintf("group_%d", i), Type: g.Type(), Nullable: true})
	}
	for _, ag := range a.Aggs {
		out = append(out, &pdbsql.ColumnDef{Name: ag.Name, Type: ag.Func.Type(), Nullable: true})
	}
	return out
}
func (a *HashAggregate) Children() []pdbsql.Node { return []pdbsql.Node{a.Child} }
func (a *HashAggregate) Resolved() bool          { return a.Child.Resolved() }
func (a *HashAggregate) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("HashAggregate: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("HashAggregate: child must be physical")
	}
	return NewHashAggregate(a.GroupBy, a.Aggs, ce), nil
}
func (a *HashAggregate) String() string { return fmt.Sprintf("HashAggregate(%d aggs)", len(a.Aggs)) }

type aggGroup struct {
	key  pdbsql.Row
	bufs []aggregation.Buffer
}

func (a *HashAggregate) newBuffers() ([]aggregation.Buffer, error) {
	bufs := make([]aggregation.Buffer, len(a.Aggs))
	for i, ag := range a.Aggs {
		fn, ok := ag.Func.(aggregation.Function)
		if !ok {
			return nil, pdbsql.ErrExecution.New(ag.Name + ": not an aggregate function expression")
		}
		bufs[i] = fn.NewBuffer()
	}
	return bufs, nil
}

func (a *HashAggregate) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := childRows(ctx, a.Child)
	if err != nil {
		return nil, err
	}
	groups := map[string]*aggGroup{}
	var order []string
	sawRow := false
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		row, err := rows.Next(ctx)
		if err != nil {
			break
		}
		sawRow = true
		keyVals := make(pdbsql.Row, len(a.GroupBy))
		for i, g := range a.GroupBy {
			v, err := g.Eval(ctx, row)
			if err != nil {
				rows.Close(ctx)
				return nil, err
			}
			keyVals[i] = v
		}
		keyStr := fmt.Sprintf("%v", keyVals)
		grp, ok := groups[keyStr]
		if !ok {
			bufs, err := a.newBuffers()
			if err != nil {
				rows.Close(ctx)
				return nil, err
			}
			grp = &aggGroup{key: keyVals, bufs: bufs}
			groups[keyStr] = grp
			order = append(order, keyStr)
		}
		for _, buf := range grp.bufs {
			if err := buf.Update(ctx, row); err != nil {
				rows.Close(ctx)
				return nil, err
			}
		}
	}
	if err := rows.Close(ctx); err != nil {
		return nil, err
	}
	if !sawRow && len(a.GroupBy) == 0 {
		bufs, err := a.newBuffers()
		if err != nil {
			return nil, err
		}
		groups["∅"] = &aggGroup{bufs: bufs}
		order = append(order, "∅")
	}
	out := make([]pdbsql.Row, 0, len(order))
	for _, k := range order {
		grp := groups[k]
		row := make(pdbsql.Row, 0, len(a.GroupBy)+len(a.Aggs))
		row = append(row, grp.key...)
		for _, buf := range grp.bufs {
			v, err := buf.Eval(ctx)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		out = append(out, row)
	}
	return rowsToBatchIter(a.Schema(), out), nil
}
