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
	"strings"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression/function/aggregation"
)

// PivotAgg is one aggregate computed per pivoted value (spec §4.4).
type PivotAgg struct {
	Func pdbsql.Expression
	Name string
}

// Pivot rotates distinct values of ForCols into columns, one per entry of
// Values, aggregated by Aggs within each GroupBy bucket (spec §4.4 PIVOT).
type Pivot struct {
	Child   pdbsql.Executable
	ForCols []pdbsql.Expression
	Values  []pdbsql.Expression
	Aggs    []PivotAgg
	GroupBy []pdbsql.Expression
}

func NewPivot(forCols, values []pdbsql.Expression, aggs []PivotAgg, groupBy []pdbsql.Expression, child pdbsql.Executable) *Pivot {
	return &Pivot{Child: child, ForCols: forCols, Values: values, Aggs: aggs, GroupBy: groupBy}
}

func (p *Pivot) Schema() pdbsql.Schema {
	out := make(pdbsql.Schema, 0, len(p.GroupBy)+len(p.Values)*len(p.Aggs))
	for i, g := range p.GroupBy {
		out = append(out, &pdbsql.ColumnDef{Name: fmt.Sprintf("group_%d", i), Type: g.Type(), Nullable: true})
	}
	for _, v := range p.Values {
		for _, a := range p.Aggs {
			out = append(out, &pdbsql.ColumnDef{Name: fmt.Sprintf("%v_%s", v, a.Name), Type: a.Func.Type(), Nullable: true})
		}
	}
	return out
}
func (p *Pivot) Children() []pdbsql.Node { return []pdbsql.Node{p.Child} }
func (p *Pivot) Resolved() bool          { return p.Child.Resolved() }
func (p *Pivot) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Pivot: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Pivot: child must be physical")
	}
	return NewPivot(p.ForCols, p.Values, p.Aggs, p.GroupBy, ce), nil
}
func (p *Pivot) String() string { return "Pivot" }

// BatchIter groups rows by GroupBy, and within each group fans each
// matching ForCols value's row into the aggregate buffer bound to that
// Values slot, leaving any slot with no matching rows NULL.
func (p *Pivot) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := childRows(ctx, p.Child)
	if err != nil {
		return nil, err
	}
	all, err := drain(ctx, rows)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		key  pdbsql.Row
		bufs [][]aggregation.Buffer // [valueIdx][aggIdx]
	}
	groups := map[string]*bucket{}
	var order []string

	newBufs := func() ([][]aggregation.Buffer, error) {
		bufs := make([][]aggregation.Buffer, len(p.Values))
		for vi := range p.Values {
			bufs[vi] = make([]aggregation.Buffer, len(p.Aggs))
			for ai, ag := range p.Aggs {
				fn, ok := ag.Func.(aggregation.Function)
				if !ok {
					return nil, pdbsql.ErrExecution.New(ag.Name + ": not an aggregate function expression")
				}
				bufs[vi][ai] = fn.NewBuffer()
			}
		}
		return bufs, nil
	}

	for _, row := range all {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		keyVals := make(pdbsql.Row, len(p.GroupBy))
		for i, g := range p.GroupBy {
			v, err := g.Eval(ctx, row)
			if err != nil {
				return nil, err
			}
			keyVals[i] = v
		}
		ks := fmt.Sprintf("%v", keyVals)
		b, ok := groups[ks]
		if !ok {
			bufs, err := newBufs()
			if err != nil {
				return nil, err
			}
			b = &bucket{key: keyVals, bufs: bufs}
			groups[ks] = b
			order = append(order, ks)
		}

		forVals := make(pdbsql.Row, len(p.ForCols))
		for i, f := range p.ForCols {
			v, err := f.Eval(ctx, row)
			if err != nil {
				return nil, err
			}
			forVals[i] = v
		}
		for vi, want := range p.Values {
			wv, err := want.Eval(ctx, nil)
			if err != nil {
				return nil, err
			}
			if !forValsMatch(forVals, wv) {
				continue
			}
			for ai, ag := range p.Aggs {
				_ = ag
				if err := b.bufs[vi][ai].Update(ctx, row); err != nil {
					return nil, err
				}
			}
		}
	}

	out := make([]pdbsql.Row, 0, len(order))
	for _, k := range order {
		b := groups[k]
		row := make(pdbsql.Row, 0, len(p.GroupBy)+len(p.Values)*len(p.Aggs))
		row = append(row, b.key...)
		for vi := range p.Values {
			for ai := range p.Aggs {
				v, err := b.bufs[vi][ai].Eval(ctx)
				if err != nil {
					return nil, err
				}
				row = append(row, v)
			}
		}
		out = append(out, row)
	}
	return rowsToBatchIter(p.Schema(), out), nil
}

func forValsMatch(forVals pdbsql.Row, want interface{}) bool {
	if len(forVals) == 1 {
		return fmt.Sprintf("%v", forVals[0]) == fmt.Sprintf("%v", want)
	}
	return fmt.Sprintf("%v", []interface{}(forVals)) == fmt.Sprintf("%v", want)
}

// Unpivot rotates ValueColumns into (NameColumn, ValueColumn) pairs, one
// output row per input row per source column (spec §4.4 UNPIVOT).
type Unpivot struct {
	Child        pdbsql.Executable
	ValueColumns []string
	NameColumn   string
	ValueColumn  string
	IncludeNulls bool
	childSchema  pdbsql.Schema
}

func NewUnpivot(valueColumns []string, nameCol, valueCol string, includeNulls bool, child pdbsql.Executable) *Unpivot {
	return &Unpivot{Child: child, ValueColumns: valueColumns, NameColumn: nameCol, ValueColumn: valueCol, IncludeNulls: includeNulls, childSchema: child.Schema()}
}

func (u *Unpivot) Schema() pdbsql.Schema {
	keepSet := map[string]bool{}
	for _, n := range u.ValueColumns {
		keepSet[strings.ToLower(n)] = true
	}
	var out pdbsql.Schema
	for _, c := range u.childSchema {
		if !keepSet[strings.ToLower(c.Name)] {
			out = append(out, c)
		}
	}
	out = append(out, &pdbsql.ColumnDef{Name: u.NameColumn, Type: pdbsql.Text, Nullable: false})
	out = append(out, &pdbsql.ColumnDef{Name: u.ValueColumn, Type: u.childSchema[0].Type, Nullable: true})
	return out
}
func (u *Unpivot) Children() []pdbsql.Node { return []pdbsql.Node{u.Child} }
func (u *Unpivot) Resolved() bool          { return u.Child.Resolved() }
func (u *Unpivot) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Unpivot: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Unpivot: child must be physical")
	}
	return NewUnpivot(u.ValueColumns, u.NameColumn, u.ValueColumn, u.IncludeNulls, ce), nil
}
func (u *Unpivot) String() string { return "Unpivot" }

func (u *Unpivot) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := childRows(ctx, u.Child)
	if err != nil {
		return nil, err
	}
	all, err := drain(ctx, rows)
	if err != nil {
		return nil, err
	}

	keepIdx := []int{}
	keepSet := map[string]bool{}
	for _, n := range u.ValueColumns {
		keepSet[strings.ToLower(n)] = true
	}
	for i, c := range u.childSchema {
		if !keepSet[strings.ToLower(c.Name)] {
			keepIdx = append(keepIdx, i)
		}
	}
	valueIdx := map[string]int{}
	for _, n := range u.ValueColumns {
		if i := u.childSchema.IndexOf("", n); i >= 0 {
			valueIdx[n] = i
		}
	}

	var out []pdbsql.Row
	for _, row := range all {
		for _, col := range u.ValueColumns {
			idx, ok := valueIdx[col]
			if !ok {
				continue
			}
			val := row[idx]
			if val == nil && !u.IncludeNulls {
				continue
			}
			newRow := make(pdbsql.Row, 0, len(keepIdx)+2)
			for _, ki := range keepIdx {
				newRow = append(newRow, row[ki])
			}
			newRow = append(newRow, col, val)
			out = append(out, newRow)
		}
	}
	return rowsToBatchIter(u.Schema(), out), nil
}
