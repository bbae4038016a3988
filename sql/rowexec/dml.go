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

func rowsAffectedSchema() pdbsql.Schema {
	return pdbsql.Schema{{Name: "rows_affected", Type: pdbsql.Int64}}
}

// Insert writes every row produced by Source into Table (spec §4.12).
type Insert struct {
	TableName string
	Table     pdbsql.Table
	Source    pdbsql.Executable
}

func NewInsert(tableName string, table pdbsql.Table, source pdbsql.Executable) *Insert {
	return &Insert{TableName: tableName, Table: table, Source: source}
}

func (i *Insert) Schema() pdbsql.Schema   { return rowsAffectedSchema() }
func (i *Insert) Children() []pdbsql.Node { return []pdbsql.Node{i.Source} }
func (i *Insert) Resolved() bool          { return i.Source.Resolved() }
func (i *Insert) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Insert: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Insert: child must be physical")
	}
	return NewInsert(i.TableName, i.Table, ce), nil
}
func (i *Insert) String() string { return fmt.Sprintf("Insert(%s)", i.TableName) }

func (i *Insert) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := childRows(ctx, i.Source)
	if err != nil {
		return nil, err
	}
	all, err := drain(ctx, rows)
	if err != nil {
		return nil, err
	}
	for _, row := range all {
		if err := i.Table.Insert(ctx, row); err != nil {
			return nil, err
		}
	}
	return rowsToBatchIter(rowsAffectedSchema(), []pdbsql.Row{{int64(len(all))}}), nil
}

// Assignment is one SET col = expr clause, addressed by column index into
// the target table's schema (spec §4.12).
type Assignment struct {
	ColumnIndex int
	Value       pdbsql.Expression
}

// Update evaluates Assignments against every surviving row of Child (its
// own WHERE already folded in as a Filter ancestor) and writes the result
// back via Table.Update (spec §4.12).
type Update struct {
	TableName   string
	Table       pdbsql.Table
	Assignments []Assignment
	Child       pdbsql.Executable
}

func NewUpdate(tableName string, table pdbsql.Table, assignments []Assignment, child pdbsql.Executable) *Update {
	return &Update{TableName: tableName, Table: table, Assignments: assignments, Child: child}
}

func (u *Update) Schema() pdbsql.Schema   { return rowsAffectedSchema() }
func (u *Update) Children() []pdbsql.Node { return []pdbsql.Node{u.Child} }
func (u *Update) Resolved() bool          { return u.Child.Resolved() }
func (u *Update) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Update: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Update: child must be physical")
	}
	return NewUpdate(u.TableName, u.Table, u.Assignments, ce), nil
}
func (u *Update) String() string { return fmt.Sprintf("Update(%s)", u.TableName) }

func (u *Update) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := childRows(ctx, u.Child)
	if err != nil {
		return nil, err
	}
	all, err := drain(ctx, rows)
	if err != nil {
		return nil, err
	}
	for _, row := range all {
		newValues := make(pdbsql.Row, len(row))
		copy(newValues, row)
		for _, a := range u.Assignments {
			v, err := a.Value.Eval(ctx, row)
			if err != nil {
				return nil, err
			}
			newValues[a.ColumnIndex] = v
		}
		if err := u.Table.Update(ctx, row, newValues); err != nil {
			return nil, err
		}
	}
	return rowsToBatchIter(rowsAffectedSchema(), []pdbsql.Row{{int64(len(all))}}), nil
}

// Delete removes every row of Child from Table (spec §4.12).
type Delete struct {
	TableName string
	Table     pdbsql.Table
	Child     pdbsql.Executable
}

func NewDelete(tableName string, table pdbsql.Table, child pdbsql.Executable) *Delete {
	return &Delete{TableName: tableName, Table: table, Child: child}
}

func (d *Delete) Schema() pdbsql.Schema   { return rowsAffectedSchema() }
func (d *Delete) Children() []pdbsql.Node { return []pdbsql.Node{d.Child} }
func (d *Delete) Resolved() bool          { return d.Child.Resolved() }
func (d *Delete) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Delete: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Delete: child must be physical")
	}
	return NewDelete(d.TableName, d.Table, ce), nil
}
func (d *Delete) String() string { return fmt.Sprintf("Delete(%s)", d.TableName) }

func (d *Delete) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := childRows(ctx, d.Child)
	if err != nil {
		return nil, err
	}
	all, err := drain(ctx, rows)
	if err != nil {
		return nil, err
	}
	for _, row := range all {
		if err := d.Table.Delete(ctx, row); err != nil {
			return nil, err
		}
	}
	return rowsToBatchIter(rowsAffectedSchema(), []pdbsql.Row{{int64(len(all))}}), nil
}

// CreateTable registers a new table in the catalog (spec §4.12, §6.1).
type CreateTable struct {
	Schema_ pdbsql.Schema_
	Info    pdbsql.TableInfo
}

func NewCreateTable(schema_ pdbsql.Schema_, info pdbsql.TableInfo) *CreateTable {
	return &CreateTable{Schema_: schema_, Info: info}
}

func (c *CreateTable) Schema() pdbsql.Schema   { return nil }
func (c *CreateTable) Children() []pdbsql.Node { return nil }
func (c *CreateTable) Resolved() bool          { return true }
func (c *CreateTable) WithChildren(ch ...pdbsql.Node) (pdbsql.Node, error) {
	if len(ch) != 0 {
		return nil, pdbsql.ErrExecution.New("CreateTable: expected 0 children")
	}
	return c, nil
}
func (c *CreateTable) String() string { return fmt.Sprintf("CreateTable(%s)", c.Info.Name) }

func (c *CreateTable) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	if err := c.Schema_.CreateTable(c.Info); err != nil {
		return nil, err
	}
	return rowsToBatchIter(nil, nil), nil
}

// DropTable removes a table from the catalog (spec §4.12).
type DropTable struct {
	Schema_ pdbsql.Schema_
	Name    string
}

func NewDropTable(schema_ pdbsql.Schema_, name string) *DropTable {
	return &DropTable{Schema_: schema_, Name: name}
}

func (d *DropTable) Schema() pdbsql.Schema   { return nil }
func (d *DropTable) Children() []pdbsql.Node { return nil }
func (d *DropTable) Resolved() bool          { return true }
func (d *DropTable) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("DropTable: expected 0 children")
	}
	return d, nil
}
func (d *DropTable) String() string { return fmt.Sprintf("DropTable(%s)", d.Name) }

func (d *DropTable) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	if err := d.Schema_.DropTable(d.Name); err != nil {
		return nil, err
	}
	return rowsToBatchIter(nil, nil), nil
}
