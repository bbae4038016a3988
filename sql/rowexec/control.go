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

// Explain renders Inner's plan tree as text instead of executing it (spec
// §6.2 EXPLAIN).
type Explain struct {
	Inner pdbsql.Node
	Text  string // pre-rendered by the lowering pass, which has the full tree in hand
}

func NewExplain(inner pdbsql.Node, text string) *Explain { return &Explain{Inner: inner, Text: text} }

func (e *Explain) Schema() pdbsql.Schema   { return pdbsql.Schema{{Name: "plan", Type: pdbsql.Text}} }
func (e *Explain) Children() []pdbsql.Node { return []pdbsql.Node{e.Inner} }
func (e *Explain) Resolved() bool          { return e.Inner.Resolved() }
func (e *Explain) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Explain: expected 1 child")
	}
	return NewExplain(c[0], e.Text), nil
}
func (e *Explain) String() string { return "Explain" }

func (e *Explain) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	return rowsToBatchIter(e.Schema(), []pdbsql.Row{{e.Text}}), nil
}

// TxKind mirrors plan.TxKind.
type TxKind int

const (
	TxBegin TxKind = iota
	TxCommit
	TxRollback
)

// Tx implements BEGIN/COMMIT/ROLLBACK against ctx.Tx (spec §6.2, §3.5):
// the core only sequences the call, the Transaction implementation itself
// is an external collaborator.
type Tx struct {
	Kind TxKind
}

func NewTx(kind TxKind) *Tx { return &Tx{Kind: kind} }

func (t *Tx) Schema() pdbsql.Schema   { return nil }
func (t *Tx) Children() []pdbsql.Node { return nil }
func (t *Tx) Resolved() bool          { return true }
func (t *Tx) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("Tx: expected 0 children")
	}
	return t, nil
}
func (t *Tx) String() string { return fmt.Sprintf("Tx(kind=%d)", t.Kind) }

func (t *Tx) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	if ctx.Tx == nil {
		if t.Kind == TxBegin {
			return rowsToBatchIter(nil, nil), nil
		}
		return nil, pdbsql.ErrExecution.New("no active transaction")
	}
	switch t.Kind {
	case TxCommit:
		if err := ctx.Tx.Commit(); err != nil {
			return nil, err
		}
	case TxRollback:
		if err := ctx.Tx.Rollback(); err != nil {
			return nil, err
		}
	}
	return rowsToBatchIter(nil, nil), nil
}

// ShowKind mirrors plan.ShowKind.
type ShowKind int

const (
	ShowTables ShowKind = iota
	ShowCreateTable
)

// Show implements SHOW TABLES / SHOW CREATE TABLE (spec §6.2) against the
// catalog's default schema.
type Show struct {
	Kind    ShowKind
	Arg     string
	Schema_ pdbsql.Schema_
}

func NewShow(kind ShowKind, arg string, schema_ pdbsql.Schema_) *Show {
	return &Show{Kind: kind, Arg: arg, Schema_: schema_}
}

func (s *Show) Schema() pdbsql.Schema {
	if s.Kind == ShowCreateTable {
		return pdbsql.Schema{{Name: "create_table", Type: pdbsql.Text}}
	}
	return pdbsql.Schema{{Name: "name", Type: pdbsql.Text}}
}
func (s *Show) Children() []pdbsql.Node { return nil }
func (s *Show) Resolved() bool          { return true }
func (s *Show) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("Show: expected 0 children")
	}
	return s, nil
}
func (s *Show) String() string { return fmt.Sprintf("Show(kind=%d, %s)", s.Kind, s.Arg) }

func (s *Show) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	switch s.Kind {
	case ShowTables:
		names, err := s.Schema_.ListTables()
		if err != nil {
			return nil, err
		}
		rows := make([]pdbsql.Row, len(names))
		for i, n := range names {
			rows[i] = pdbsql.Row{n}
		}
		return rowsToBatchIter(s.Schema(), rows), nil
	default: // ShowCreateTable
		tbl, ok, err := s.Schema_.GetTable(s.Arg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pdbsql.ErrTableNotFound.New(s.Arg)
		}
		return rowsToBatchIter(s.Schema(), []pdbsql.Row{{renderCreateTable(tbl)}}), nil
	}
}

func renderCreateTable(tbl pdbsql.Table) string {
	sch := tbl.Schema()
	out := fmt.Sprintf("CREATE TABLE %s (", tbl.Name())
	for i, c := range sch {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s %s", c.Name, c.Type.String())
		if !c.Nullable {
			out += " NOT NULL"
		}
	}
	out += ")"
	return out
}

// SetVar implements `SET name = value` (spec §6.2) by writing into the
// running Context's session variable table.
type SetVar struct {
	Name  string
	Value pdbsql.Expression
}

func NewSetVar(name string, value pdbsql.Expression) *SetVar { return &SetVar{Name: name, Value: value} }

func (s *SetVar) Schema() pdbsql.Schema   { return nil }
func (s *SetVar) Children() []pdbsql.Node { return nil }
func (s *SetVar) Resolved() bool          { return s.Value == nil || s.Value.Resolved() }
func (s *SetVar) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("SetVar: expected 0 children")
	}
	return s, nil
}
func (s *SetVar) String() string { return fmt.Sprintf("SetVar(%s)", s.Name) }

func (s *SetVar) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	if s.Value != nil {
		v, err := s.Value.Eval(ctx, nil)
		if err != nil {
			return nil, err
		}
		ctx.SetSessionVar(s.Name, v)
	}
	return rowsToBatchIter(nil, nil), nil
}

// UtilKind mirrors plan.UtilKind.
type UtilKind int

const (
	UtilInstall UtilKind = iota
	UtilLoad
	UtilCreateSecret
)

// Util implements INSTALL/LOAD/CREATE SECRET housekeeping statements
// (spec §6.2); the core performs no effect for these statements and
// records nothing, an extension loader collaborator carries out the
// actual effect.
type Util struct {
	Kind UtilKind
	Name string
}

func NewUtil(kind UtilKind, name string) *Util { return &Util{Kind: kind, Name: name} }

func (u *Util) Schema() pdbsql.Schema   { return nil }
func (u *Util) Children() []pdbsql.Node { return nil }
func (u *Util) Resolved() bool          { return true }
func (u *Util) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("Util: expected 0 children")
	}
	return u, nil
}
func (u *Util) String() string { return fmt.Sprintf("Util(kind=%d, %s)", u.Kind, u.Name) }

func (u *Util) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	return rowsToBatchIter(nil, nil), nil
}
