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
	"io"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// Limit caps the row count, optionally skipping Offset rows first (spec
// §4.4).
type Limit struct {
	Child  pdbsql.Executable
	Count  pdbsql.Expression
	Offset pdbsql.Expression
}

func NewLimit(count, offset pdbsql.Expression, child pdbsql.Executable) *Limit {
	return &Limit{Child: child, Count: count, Offset: offset}
}

func (l *Limit) Schema() pdbsql.Schema   { return l.Child.Schema() }
func (l *Limit) Children() []pdbsql.Node { return []pdbsql.Node{l.Child} }
func (l *Limit) Resolved() bool          { return l.Child.Resolved() }
func (l *Limit) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Limit: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Limit: child must be physical")
	}
	return NewLimit(l.Count, l.Offset, ce), nil
}
func (l *Limit) String() string { return "Limit" }

func (l *Limit) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	count, err := intFromExpr(ctx, l.Count, -1)
	if err != nil {
		return nil, err
	}
	offset, err := intFromExpr(ctx, l.Offset, 0)
	if err != nil {
		return nil, err
	}
	rows, err := childRows(ctx, l.Child)
	if err != nil {
		return nil, err
	}
	return pdbsql.RowIterToBatchIter(l.Schema(), &limitRowIter{rows: rows, remainingSkip: offset, remaining: count}, 0), nil
}

func intFromExpr(ctx *pdbsql.Context, e pdbsql.Expression, def int) (int, error) {
	if e == nil {
		return def, nil
	}
	v, err := e.Eval(ctx, nil)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case int:
		return n, nil
	default:
		return def, nil
	}
}

type limitRowIter struct {
	rows          pdbsql.RowIter
	remainingSkip int
	remaining     int // -1 = unbounded
}

func (it *limitRowIter) Next(ctx *pdbsql.Context) (pdbsql.Row, error) {
	if it.remaining == 0 {
		return nil, io.EOF
	}
	for it.remainingSkip > 0 {
		if _, err := it.rows.Next(ctx); err != nil {
			return nil, err
		}
		it.remainingSkip--
	}
	row, err := it.rows.Next(ctx)
	if err != nil {
		return nil, err
	}
	if it.remaining > 0 {
		it.remaining--
	}
	return row, nil
}
func (it *limitRowIter) Close(ctx *pdbsql.Context) error { return it.rows.Close(ctx) }
