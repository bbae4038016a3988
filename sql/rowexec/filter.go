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
	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// Filter evaluates Predicate per row, keeping only those that are
// three-valued TRUE (spec §4.6: UNKNOWN/FALSE both drop the row).
type Filter struct {
	Child     pdbsql.Executable
	Predicate pdbsql.Expression
}

func NewFilter(predicate pdbsql.Expression, child pdbsql.Executable) *Filter {
	return &Filter{Child: child, Predicate: predicate}
}

func (f *Filter) Schema() pdbsql.Schema   { return f.Child.Schema() }
func (f *Filter) Children() []pdbsql.Node { return []pdbsql.Node{f.Child} }
func (f *Filter) Resolved() bool          { return f.Child.Resolved() && f.Predicate.Resolved() }
func (f *Filter) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Filter: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Filter: child must be physical")
	}
	return NewFilter(f.Predicate, ce), nil
}
func (f *Filter) String() string { return "Filter(" + f.Predicate.String() + ")" }

func (f *Filter) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := childRows(ctx, f.Child)
	if err != nil {
		return nil, err
	}
	return pdbsql.RowIterToBatchIter(f.Schema(), &filterRowIter{rows: rows, pred: f.Predicate}, 0), nil
}

type filterRowIter struct {
	rows pdbsql.RowIter
	pred pdbsql.Expression
}

func (it *filterRowIter) Next(ctx *pdbsql.Context) (pdbsql.Row, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		row, err := it.rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		v, err := it.pred.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		if truthy(v) {
			return row, nil
		}
	}
}
func (it *filterRowIter) Close(ctx *pdbsql.Context) error { return it.rows.Close(ctx) }
