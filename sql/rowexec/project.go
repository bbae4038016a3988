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

// ProjectItem is one output column: the expression and its exposed name.
type ProjectItem struct {
	Expr pdbsql.Expression
	Name string
}

// Project computes the SELECT list (spec §4.4).
type Project struct {
	Child pdbsql.Executable
	Items []ProjectItem
}

func NewProject(items []ProjectItem, child pdbsql.Executable) *Project {
	return &Project{Child: child, Items: items}
}

func (p *Project) Schema() pdbsql.Schema {
	out := make(pdbsql.Schema, len(p.Items))
	for i, it := range p.Items {
		out[i] = &pdbsql.ColumnDef{Name: it.Name, Type: it.Expr.Type(), Nullable: it.Expr.IsNullable()}
	}
	return out
}
func (p *Project) Children() []pdbsql.Node { return []pdbsql.Node{p.Child} }
func (p *Project) Resolved() bool {
	if !p.Child.Resolved() {
		return false
	}
	for _, it := range p.Items {
		if !it.Expr.Resolved() {
			return false
		}
	}
	return true
}
func (p *Project) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Project: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Project: child must be physical")
	}
	return NewProject(p.Items, ce), nil
}
func (p *Project) String() string { return "Project" }

func (p *Project) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	childIt, err := p.Child.BatchIter(ctx)
	if err != nil {
		return nil, err
	}
	return &projectBatchIter{child: childIt, items: p.Items, schema: p.Schema()}, nil
}

type projectBatchIter struct {
	child  pdbsql.BatchIter
	items  []ProjectItem
	schema pdbsql.Schema
}

func (it *projectBatchIter) Next(ctx *pdbsql.Context) (*pdbsql.Batch, error) {
	b, err := it.child.Next(ctx)
	if err != nil {
		return nil, err
	}
	n := b.NumRows()
	rows := make([]pdbsql.Row, n)
	for r := 0; r < n; r++ {
		rows[r] = make(pdbsql.Row, len(it.items))
	}
	for ci, item := range it.items {
		for r := 0; r < n; r++ {
			v, err := item.Expr.Eval(ctx, b.Row(r))
			if err != nil {
				return nil, err
			}
			rows[r][ci] = v
		}
	}
	return pdbsql.RowsToBatch(it.schema, rows), nil
}
func (it *projectBatchIter) Close(ctx *pdbsql.Context) error { return it.child.Close(ctx) }
