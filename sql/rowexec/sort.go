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
	"sort"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// SortField is one ORDER BY entry (spec §4.4).
type SortField struct {
	Expr       pdbsql.Expression
	Desc       bool
	NullsFirst bool
}

// Sort fully materializes its input and orders it (spec §4.4); a
// streaming top-k variant is the natural follow-up when Sort feeds a
// Limit, not implemented here.
type Sort struct {
	Child  pdbsql.Executable
	Fields []SortField
}

func NewSort(fields []SortField, child pdbsql.Executable) *Sort { return &Sort{Child: child, Fields: fields} }

func (s *Sort) Schema() pdbsql.Schema   { return s.Child.Schema() }
func (s *Sort) Children() []pdbsql.Node { return []pdbsql.Node{s.Child} }
func (s *Sort) Resolved() bool          { return s.Child.Resolved() }
func (s *Sort) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Sort: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Sort: child must be physical")
	}
	return NewSort(s.Fields, ce), nil
}
func (s *Sort) String() string { return "Sort" }

func (s *Sort) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := childRows(ctx, s.Child)
	if err != nil {
		return nil, err
	}
	all, err := drain(ctx, rows)
	if err != nil {
		return nil, err
	}
	var sortErr error
	sort.SliceStable(all, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := s.less(ctx, all[i], all[j])
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return rowsToBatchIter(s.Schema(), all), nil
}

func (s *Sort) less(ctx *pdbsql.Context, a, b pdbsql.Row) (bool, error) {
	for _, f := range s.Fields {
		va, err := f.Expr.Eval(ctx, a)
		if err != nil {
			return false, err
		}
		vb, err := f.Expr.Eval(ctx, b)
		if err != nil {
			return false, err
		}
		if va == nil && vb == nil {
			continue
		}
		if va == nil {
			return f.NullsFirst, nil
		}
		if vb == nil {
			return !f.NullsFirst, nil
		}
		_, cmp, err := pdbsql.CompareValues(f.Expr.Type(), va, vb)
		if err != nil {
			return false, err
		}
		if cmp == 0 {
			continue
		}
		if f.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false, nil
}
