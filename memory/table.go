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

// Package memory is a reference in-process implementation of sql.Catalog
// (spec §6.1), used for end-to-end testing and as a worked example of the
// storage contract the core executor expects a real collaborator to
// satisfy. It is not meant to be durable or concurrent-safe beyond a
// coarse mutex: real storage/WAL/transactions are external collaborators
// the core never depends on (spec §1 Non-goals).
package memory

import (
	"reflect"
	"sync"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// Table is a slice-backed sql.Table. Row identity for Update/Delete is
// the Row value handed back by Scan (rowID), located again by value
// equality at update/delete time; when several stored rows are equal,
// the first of them is the one affected.
type Table struct {
	mu     sync.RWMutex
	name   string
	schema pdbsql.Schema
	rows   []pdbsql.Row
}

// NewTable creates an empty table with the given name and schema.
func NewTable(name string, schema pdbsql.Schema) *Table {
	return &Table{name: name, schema: schema}
}

func (t *Table) Name() string          { return t.name }
func (t *Table) Schema() pdbsql.Schema { return t.schema }

// Scan returns a snapshot RowIter over the table's current rows,
// projected and filtered per the pushdown hints (spec §6.1): both are
// applied here on a best-effort basis, and the Filter node the optimizer
// keeps above the scan re-checks filters regardless. projectedCols, when non-nil, names
// the columns some node above the scan actually reads; every other column
// comes back nil rather than being removed, so the row stays the width the
// scan's declared Schema promises and every GetField index elsewhere in
// the plan keeps working unchanged.
func (t *Table) Scan(ctx *pdbsql.Context, projectedCols []int, filters []pdbsql.Expression, limit int) (pdbsql.RowIter, error) {
	t.mu.RLock()
	rows := make([]pdbsql.Row, len(t.rows))
	copy(rows, t.rows)
	t.mu.RUnlock()

	var out []pdbsql.Row
	for _, row := range rows {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		keep := true
		for _, f := range filters {
			v, err := f.Eval(ctx, row)
			if err != nil {
				return nil, err
			}
			if pdbsql.BoolToTribool(v) != pdbsql.True {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}
		out = append(out, projectRow(row, projectedCols))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return pdbsql.RowsToRowIter(out...), nil
}

func projectRow(row pdbsql.Row, cols []int) pdbsql.Row {
	if cols == nil {
		return row.Copy()
	}
	out := make(pdbsql.Row, len(row))
	for _, c := range cols {
		out[c] = row[c]
	}
	return out
}

// Insert appends row to the table.
func (t *Table) Insert(ctx *pdbsql.Context, row pdbsql.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row.Copy())
	return nil
}

// Update overwrites the row identified by rowID (the Row value handed
// back by Scan) with newValues, matched by deep value equality since this
// implementation keeps no separate primary-key index.
func (t *Table) Update(ctx *pdbsql.Context, rowID interface{}, newValues pdbsql.Row) error {
	old, ok := rowID.(pdbsql.Row)
	if !ok {
		return pdbsql.ErrExecution.New("memory: Update rowID is not a Row")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.findRow(old)
	if idx < 0 {
		return pdbsql.ErrExecution.New("memory: Update target row no longer present")
	}
	t.rows[idx] = newValues.Copy()
	return nil
}

// Delete removes the row identified by rowID.
func (t *Table) Delete(ctx *pdbsql.Context, rowID interface{}) error {
	old, ok := rowID.(pdbsql.Row)
	if !ok {
		return pdbsql.ErrExecution.New("memory: Delete rowID is not a Row")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.findRow(old)
	if idx < 0 {
		return pdbsql.ErrExecution.New("memory: Delete target row no longer present")
	}
	t.rows = append(t.rows[:idx], t.rows[idx+1:]...)
	return nil
}

// findRow locates row by value equality; caller holds t.mu. Deletions and
// updates race against a concurrent writer shifting positions the same
// way any non-indexed in-memory store would, which is acceptable for a
// reference/test table with storage treated as an external collaborator.
func (t *Table) findRow(row pdbsql.Row) int {
	for i, r := range t.rows {
		if rowEquals(r, row) {
			return i
		}
	}
	return -1
}

func rowEquals(a, b pdbsql.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
