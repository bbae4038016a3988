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

package plan

import (
	"fmt"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// Explain wraps a bound plan for textual rendering instead of execution
// (spec §6.2 `EXPLAIN`).
type Explain struct {
	Inner pdbsql.Node
}

func NewExplain(inner pdbsql.Node) *Explain { return &Explain{Inner: inner} }

func (e *Explain) Schema() pdbsql.Schema   { return pdbsql.Schema{{Name: "plan", Type: pdbsql.Text}} }
func (e *Explain) Children() []pdbsql.Node { return []pdbsql.Node{e.Inner} }
func (e *Explain) Resolved() bool          { return e.Inner.Resolved() }
func (e *Explain) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Explain: expected 1 child")
	}
	return NewExplain(c[0]), nil
}
func (e *Explain) String() string { return "Explain" }

// TxKind mirrors ast.TxKind at the bound level.
type TxKind int

const (
	TxBegin TxKind = iota
	TxCommit
	TxRollback
)

// Tx implements BEGIN/COMMIT/ROLLBACK (spec §6.2, §3.5).
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

// ShowKind mirrors ast.ShowKind at the bound level.
type ShowKind int

const (
	ShowTables ShowKind = iota
	ShowCreateTable
)

// Show implements SHOW TABLES / SHOW CREATE TABLE (spec §6.2).
type Show struct {
	Kind ShowKind
	Arg  string
}

func NewShow(kind ShowKind, arg string) *Show { return &Show{Kind: kind, Arg: arg} }

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

// SetVar implements `SET name = value` (spec §6.2 session configuration).
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
func (s *SetVar) Expressions() []pdbsql.Expression {
	if s.Value == nil {
		return nil
	}
	return []pdbsql.Expression{s.Value}
}
func (s *SetVar) WithExpressions(e ...pdbsql.Expression) (pdbsql.Node, error) {
	if len(e) != 1 {
		return nil, pdbsql.ErrExecution.New("SetVar: expected 1 expression")
	}
	return NewSetVar(s.Name, e[0]), nil
}

// UtilKind mirrors ast.UtilKind at the bound level.
type UtilKind int

const (
	UtilInstall UtilKind = iota
	UtilLoad
	UtilCreateSecret
)

// Util implements INSTALL/LOAD/CREATE SECRET housekeeping statements
// (spec §6.2); the core only parses and plans these, collaborators (e.g.
// an extension loader) carry out the effect.
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
