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

// Package binder resolves a parsed sql/ast tree against a catalog snapshot
// and produces a bound sql/plan tree (spec §3.3, §4.3): every column
// reference becomes a positional expression.GetField, every table
// reference becomes a concrete sql.Table handle, and every scalar,
// aggregate, and window function call is resolved against its registry.
package binder

import (
	"fmt"
	"strconv"
	"strings"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/ast"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression/function"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
)

// SubqueryCompiler turns a bound logical subquery plan into the physical,
// runnable form expression.ScalarSubquery/ExistsSubquery/InSubquery need
// (spec §4.9): the binder cannot produce that form itself, since
// optimization and physical lowering (sql/analyzer, sql/rowexec) live
// above it in the pipeline. The engine supplies this callback so a
// subquery's inner query gets the same optimize+compile treatment as the
// outer statement.
type SubqueryCompiler func(node pdbsql.Node) (pdbsql.Executable, error)

// Binder holds the state threaded through one statement's binding pass: the
// catalog snapshot it resolves table/column names against, the scalar
// function registry, and the CTE scope currently in view.
type Binder struct {
	catalog pdbsql.Catalog
	funcs   *function.Registry
	ctes    map[string]pdbsql.Node
	compile SubqueryCompiler

	// corrFlag, when non-nil, is set to true by resolveColumn whenever a
	// name is resolved through an enclosing scope rather than the
	// immediate one — this is how bindSubquery learns whether the
	// subquery it just bound is correlated (spec §4.9), without needing
	// a full tree walk after the fact.
	corrFlag *bool
}

// New builds a Binder against catalog, using the default scalar function
// registry (spec §4.5). compile may be nil when no statement in the batch
// contains a subquery; calling Bind on one in that case surfaces
// ErrNotImplemented rather than panicking.
func New(catalog pdbsql.Catalog, compile SubqueryCompiler) *Binder {
	return &Binder{
		catalog: catalog,
		funcs:   function.NewRegistry(),
		ctes:    map[string]pdbsql.Node{},
		compile: compile,
	}
}

// scope is one level of a column-resolution chain: the schema visible at
// this point in the plan, plus a link to the enclosing query's scope for
// correlated lookups (spec §4.9).
type scope struct {
	schema pdbsql.Schema
	parent *scope
}

// Bind resolves stmt into an executable plan tree. It is the single entry
// point the engine's prepare phase calls (spec §3.3).
func (b *Binder) Bind(stmt ast.Statement) (pdbsql.Node, error) {
	switch s := stmt.(type) {
	case *ast.Query:
		return b.bindQuery(s, nil)
	case *ast.InsertStmt:
		return b.bindInsert(s)
	case *ast.UpdateStmt:
		return b.bindUpdate(s)
	case *ast.DeleteStmt:
		return b.bindDelete(s)
	case *ast.CreateTableStmt:
		return b.bindCreateTable(s)
	case *ast.DropTableStmt:
		return b.bindDropTable(s)
	case *ast.ExplainStmt:
		return b.bindExplain(s)
	case *ast.TxStmt:
		return b.bindTx(s)
	case *ast.ShowStmt:
		return b.bindShow(s)
	case *ast.SetStmt:
		return b.bindSet(s)
	case *ast.UtilStmt:
		return b.bindUtil(s)
	default:
		return nil, pdbsql.ErrNotImplemented.New(fmt.Sprintf("statement type %T", stmt))
	}
}

// resolveColumn walks sc and its ancestors looking for qualifier.name (or
// just name when qualifier is empty). A match in sc itself is returned as
// a plain GetField; a match in an ancestor scope is promoted to an
// OuterColumnRef (spec §4.9) and, when b.corrFlag is set, marks the
// enclosing subquery as correlated. Resolution only promotes once: a name
// found two or more levels up still yields a single OuterColumnRef against
// that level's row shape, since sql.Context.OuterRow carries exactly one
// flat outer row — correlation support is scoped to a single nesting
// level relative to the query performing the per-row re-execution.
func (b *Binder) resolveColumn(sc *scope, qualifier, name string) (pdbsql.Expression, error) {
	if sc == nil {
		return nil, pdbsql.ErrColumnNotFound.New(name)
	}
	idx, err := lookupOne(sc.schema, qualifier, name)
	if err != nil {
		return nil, err
	}
	if idx >= 0 {
		col := sc.schema[idx]
		return expression.NewGetField(idx, col.Type, displayColumnName(col), col.Nullable), nil
	}
	outer, err := b.resolveColumn(sc.parent, qualifier, name)
	if err != nil {
		return nil, err
	}
	if b.corrFlag != nil {
		*b.corrFlag = true
	}
	switch e := outer.(type) {
	case *expression.GetField:
		return expression.NewOuterColumnRef(e.Index(), e.Type(), e.String(), e.IsNullable()), nil
	case *expression.OuterColumnRef:
		return e, nil
	default:
		return outer, nil
	}
}

func displayColumnName(c *pdbsql.ColumnDef) string {
	if c.Qualifier != "" {
		return c.Qualifier + "." + c.Name
	}
	return c.Name
}

// lookupOne finds the single schema position matching qualifier.name,
// returning -1 (no error) when nothing matches and ErrAmbiguousColumn when
// more than one unqualified column shares name.
func lookupOne(schema pdbsql.Schema, qualifier, name string) (int, error) {
	name = strings.ToLower(name)
	qualifier = strings.ToLower(qualifier)
	found := -1
	count := 0
	for i, c := range schema {
		if strings.ToLower(c.Name) != name {
			continue
		}
		if qualifier != "" && strings.ToLower(c.Qualifier) != qualifier {
			continue
		}
		count++
		found = i
	}
	if count > 1 {
		return -1, pdbsql.ErrAmbiguousColumn.New(name)
	}
	return found, nil
}

// unwrapParen strips any number of enclosing ast.ParenExpr wrappers.
func unwrapParen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

// exprEqual is a structural equality check over unbound ast.Expr trees,
// used to match a GROUP BY expression or a SELECT-list alias against a
// textually identical expression appearing elsewhere in the same query
// (spec §4.7: "a SELECT-list expression naming a GROUP BY key resolves to
// that key, not a fresh per-row evaluation").
func exprEqual(a, b ast.Expr) bool {
	a, b = unwrapParen(a), unwrapParen(b)
	if a == nil || b == nil {
		return a == b
	}
	switch x := a.(type) {
	case *ast.ColumnRef:
		y, ok := b.(*ast.ColumnRef)
		return ok && strings.EqualFold(x.Qualifier, y.Qualifier) && strings.EqualFold(x.Name, y.Name)
	case *ast.Literal:
		y, ok := b.(*ast.Literal)
		return ok && x.Kind == y.Kind && x.Value == y.Value
	case *ast.BinaryExpr:
		y, ok := b.(*ast.BinaryExpr)
		return ok && x.Op == y.Op && exprEqual(x.Left, y.Left) && exprEqual(x.Right, y.Right)
	case *ast.UnaryExpr:
		y, ok := b.(*ast.UnaryExpr)
		return ok && x.Op == y.Op && exprEqual(x.Expr, y.Expr)
	case *ast.FuncCall:
		y, ok := b.(*ast.FuncCall)
		if !ok || !strings.EqualFold(x.Name, y.Name) || x.Distinct != y.Distinct || x.Star != y.Star || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !exprEqual(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *ast.CastExpr:
		y, ok := b.(*ast.CastExpr)
		return ok && strings.EqualFold(x.TypeName, y.TypeName) && exprEqual(x.Expr, y.Expr)
	default:
		return false
	}
}

// displayName picks the column name a SELECT-list item gets when it has no
// explicit alias (spec §4.3).
func displayName(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.ColumnRef:
		return x.Name
	case *ast.FuncCall:
		return strings.ToLower(x.Name)
	case *ast.ParenExpr:
		return displayName(x.Expr)
	case *ast.CastExpr:
		return displayName(x.Expr)
	default:
		return "col"
	}
}

// typeFromName maps a parsed type name/args pair (sql/parser's
// parseTypeName, always uppercased) to a logical sql.Type, used for CAST
// targets and CREATE TABLE column declarations (spec §4.2, §4.10).
func typeFromName(name string, args []int) (pdbsql.Type, error) {
	switch strings.ToUpper(name) {
	case "BOOLEAN", "BOOL":
		return pdbsql.Boolean, nil
	case "TINYINT", "INT8":
		return pdbsql.Int8, nil
	case "SMALLINT", "INT16":
		return pdbsql.Int16, nil
	case "INT", "INTEGER", "INT32":
		return pdbsql.Int32, nil
	case "BIGINT", "INT64":
		return pdbsql.Int64, nil
	case "HUGEINT":
		return pdbsql.HugeInt, nil
	case "FLOAT", "FLOAT32", "REAL":
		return pdbsql.Float32, nil
	case "DOUBLE", "FLOAT64":
		return pdbsql.Float64, nil
	case "TEXT", "STRING":
		return pdbsql.Text, nil
	case "VARCHAR", "CHAR":
		n := 255
		if len(args) > 0 {
			n = args[0]
		}
		return pdbsql.VarChar(n), nil
	case "DECIMAL", "NUMERIC":
		p, s := 18, 4
		if len(args) > 0 {
			p = args[0]
		}
		if len(args) > 1 {
			s = args[1]
		}
		return pdbsql.NewDecimalType(p, s)
	case "BINARY", "BLOB", "BYTES":
		return pdbsql.Binary, nil
	case "DATE":
		return pdbsql.Date, nil
	case "TIME":
		return pdbsql.TimeOfDay, nil
	case "TIMESTAMP", "DATETIME":
		return pdbsql.Timestamp, nil
	default:
		return nil, pdbsql.ErrTypeMismatch.New(fmt.Sprintf("unknown type name %q", name))
	}
}

// literalInt extracts a constant integer from an already-bound expression,
// used for NTILE's bucket count, LAG/LEAD's offset, and NTH_VALUE's index
// (spec §4.8: these are compile-time constants, not per-row expressions).
func literalInt(e pdbsql.Expression) (int, error) {
	lit, ok := e.(*expression.Literal)
	if !ok {
		return 0, pdbsql.ErrInvalidValue.New("expected a constant integer argument")
	}
	v, _ := lit.Eval(nil, nil)
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, pdbsql.ErrInvalidValue.New("expected a constant integer argument")
		}
		return i, nil
	default:
		return 0, pdbsql.ErrInvalidValue.New("expected a constant integer argument")
	}
}

// literalFloat extracts a constant fraction, used by PERCENTILE_CONT/DISC
// and APPROX_QUANTILE (spec §4.7).
func literalFloat(e pdbsql.Expression) (float64, error) {
	lit, ok := e.(*expression.Literal)
	if !ok {
		return 0, pdbsql.ErrInvalidValue.New("expected a constant numeric argument")
	}
	v, _ := lit.Eval(nil, nil)
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, pdbsql.ErrInvalidValue.New("expected a constant numeric argument")
		}
		return f, nil
	default:
		return 0, pdbsql.ErrInvalidValue.New("expected a constant numeric argument")
	}
}

func (b *Binder) lookupTable(schemaName, tableName string) (pdbsql.Table, error) {
	sch, err := b.resolveSchema(schemaName)
	if err != nil {
		return nil, err
	}
	tbl, ok, err := sch.GetTable(tableName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pdbsql.ErrTableNotFound.New(tableName)
	}
	return tbl, nil
}

func (b *Binder) resolveSchema(name string) (pdbsql.Schema_, error) {
	if name == "" {
		s := b.catalog.DefaultSchema()
		if s == nil {
			return nil, pdbsql.ErrCatalog.New("no default schema in scope")
		}
		return s, nil
	}
	s, ok, err := b.catalog.GetSchema(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pdbsql.ErrCatalog.New(fmt.Sprintf("schema %q not found", name))
	}
	return s, nil
}

func (b *Binder) defaultSchema() (pdbsql.Schema_, error) { return b.resolveSchema("") }

// emptyScope is used to bind expressions that may not reference any table
// column (VALUES rows, DEFAULT clauses, SET values).
func emptyScope() *scope { return &scope{schema: pdbsql.Schema{}} }
