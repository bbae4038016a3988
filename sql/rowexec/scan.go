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
)

// Scan is the physical leaf reading one base table, honoring the
// pushed-down filters/limit/projection the analyzer attached to the
// logical TableScan (spec §4.5 rule 2/3/4, §6.1).
type Scan struct {
	Table     pdbsql.Table
	schema    pdbsql.Schema
	Alias     string
	Filters   []pdbsql.Expression
	Limit     int
	Projected []int
}

func NewScan(table pdbsql.Table, schema pdbsql.Schema, alias string, filters []pdbsql.Expression, limit int, projected []int) *Scan {
	return &Scan{Table: table, schema: schema, Alias: alias, Filters: filters, Limit: limit, Projected: projected}
}

func (s *Scan) Schema() pdbsql.Schema   { return s.schema }
func (s *Scan) Children() []pdbsql.Node { return nil }
func (s *Scan) Resolved() bool          { return true }
func (s *Scan) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("Scan: expected 0 children")
	}
	return s, nil
}
func (s *Scan) String() string { return fmt.Sprintf("Scan(%s)", s.Table.Name()) }

func (s *Scan) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := s.Table.Scan(ctx, s.Projected, s.Filters, s.Limit)
	if err != nil {
		return nil, err
	}
	return pdbsql.RowIterToBatchIter(s.schema, rows, 0), nil
}

// Values replays a literal inline row set (spec §4.4 VALUES).
type Values struct {
	schema pdbsql.Schema
	Rows   [][]pdbsql.Expression
}

func NewValues(schema pdbsql.Schema, rows [][]pdbsql.Expression) *Values {
	return &Values{schema: schema, Rows: rows}
}

func (v *Values) Schema() pdbsql.Schema   { return v.schema }
func (v *Values) Children() []pdbsql.Node { return nil }
func (v *Values) Resolved() bool          { return true }
func (v *Values) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("Values: expected 0 children")
	}
	return v, nil
}
func (v *Values) String() string { return fmt.Sprintf("Values(%d rows)", len(v.Rows)) }

func (v *Values) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows := make([]pdbsql.Row, len(v.Rows))
	for i, r := range v.Rows {
		row := make(pdbsql.Row, len(r))
		for j, e := range r {
			val, err := e.Eval(ctx, nil)
			if err != nil {
				return nil, err
			}
			row[j] = val
		}
		rows[i] = row
	}
	return rowsToBatchIter(v.schema, rows), nil
}

// WorkingTable is the physical counterpart of plan.WorkingTableScan: the
// recursive CTE driver (RecursiveCTE below) substitutes the current
// iteration's delta batch into Delta before pulling from the recursive
// term (spec §4.11).
type WorkingTable struct {
	Name   string
	schema pdbsql.Schema
	Delta  []pdbsql.Row
}

func NewWorkingTable(name string, schema pdbsql.Schema) *WorkingTable {
	return &WorkingTable{Name: name, schema: schema}
}

func (w *WorkingTable) Schema() pdbsql.Schema   { return w.schema }
func (w *WorkingTable) Children() []pdbsql.Node { return nil }
func (w *WorkingTable) Resolved() bool          { return true }
func (w *WorkingTable) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("WorkingTable: expected 0 children")
	}
	return w, nil
}
func (w *WorkingTable) String() string { return fmt.Sprintf("WorkingTable(%s)", w.Name) }

func (w *WorkingTable) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	return rowsToBatchIter(w.schema, w.Delta), nil
}

// SubqueryAlias is a pure pass-through: the alias only matters for name
// resolution, already resolved by bind time (spec §4.3).
type SubqueryAlias struct {
	Alias string
	Child pdbsql.Executable
	schema pdbsql.Schema
}

func NewSubqueryAlias(alias string, child pdbsql.Executable, schema pdbsql.Schema) *SubqueryAlias {
	return &SubqueryAlias{Alias: alias, Child: child, schema: schema}
}

func (s *SubqueryAlias) Schema() pdbsql.Schema   { return s.schema }
func (s *SubqueryAlias) Children() []pdbsql.Node { return []pdbsql.Node{s.Child} }
func (s *SubqueryAlias) Resolved() bool          { return s.Child.Resolved() }
func (s *SubqueryAlias) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("SubqueryAlias: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("SubqueryAlias: child must be physical")
	}
	return NewSubqueryAlias(s.Alias, ce, s.schema), nil
}
func (s *SubqueryAlias) String() string { return fmt.Sprintf("SubqueryAlias(%s)", s.Alias) }
func (s *SubqueryAlias) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	return s.Child.BatchIter(ctx)
}
