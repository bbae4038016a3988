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

package binder

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression"
	"github.com/TuringWorks/PrismDB-sub000/sql/parser"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
)

// fakeTable is the minimal sql.Table stub these tests bind against; it
// never executes a scan, it only needs to report a schema.
type fakeTable struct {
	name   string
	schema pdbsql.Schema
}

func (t *fakeTable) Name() string          { return t.name }
func (t *fakeTable) Schema() pdbsql.Schema { return t.schema }
func (t *fakeTable) Scan(ctx *pdbsql.Context, projectedCols []int, filters []pdbsql.Expression, limit int) (pdbsql.RowIter, error) {
	return pdbsql.RowsToRowIter(), nil
}
func (t *fakeTable) Insert(ctx *pdbsql.Context, row pdbsql.Row) error                    { return nil }
func (t *fakeTable) Update(ctx *pdbsql.Context, rowID interface{}, newValues pdbsql.Row) error { return nil }
func (t *fakeTable) Delete(ctx *pdbsql.Context, rowID interface{}) error                 { return nil }

type fakeSchema struct {
	name   string
	tables map[string]pdbsql.Table
}

func (s *fakeSchema) Name() string { return s.name }
func (s *fakeSchema) GetTable(name string) (pdbsql.Table, bool, error) {
	t, ok := s.tables[name]
	return t, ok, nil
}
func (s *fakeSchema) ListTables() ([]string, error) {
	out := make([]string, 0, len(s.tables))
	for n := range s.tables {
		out = append(out, n)
	}
	return out, nil
}
func (s *fakeSchema) CreateTable(info pdbsql.TableInfo) error {
	cols := make(pdbsql.Schema, len(info.Columns))
	for i, c := range info.Columns {
		cols[i] = &pdbsql.ColumnDef{Name: c.Name, Qualifier: info.Name, Type: c.Type, Nullable: c.Nullable, Default: c.Default}
	}
	s.tables[info.Name] = &fakeTable{name: info.Name, schema: cols}
	return nil
}
func (s *fakeSchema) DropTable(name string) error {
	delete(s.tables, name)
	return nil
}

type fakeCatalog struct {
	def *fakeSchema
}

func (c *fakeCatalog) GetSchema(name string) (pdbsql.Schema_, bool, error) {
	if name == "" || name == c.def.name {
		return c.def, true, nil
	}
	return nil, false, nil
}
func (c *fakeCatalog) DefaultSchema() pdbsql.Schema_   { return c.def }
func (c *fakeCatalog) ListSchemas() ([]string, error) { return []string{c.def.name}, nil }

func col(name string, typ pdbsql.Type) *pdbsql.ColumnDef {
	return &pdbsql.ColumnDef{Name: name, Qualifier: "orders", Type: typ, Nullable: true}
}

func newTestCatalog() *fakeCatalog {
	orders := &fakeTable{
		name: "orders",
		schema: pdbsql.Schema{
			col("id", pdbsql.Int64),
			col("customer", pdbsql.Text),
			col("amount", pdbsql.Float64),
		},
	}
	customers := &fakeTable{
		name: "customers",
		schema: pdbsql.Schema{
			{Name: "id", Qualifier: "customers", Type: pdbsql.Int64, Nullable: true},
			{Name: "name", Qualifier: "customers", Type: pdbsql.Text, Nullable: true},
		},
	}
	return &fakeCatalog{def: &fakeSchema{name: "main", tables: map[string]pdbsql.Table{
		"orders":    orders,
		"customers": customers,
	}}}
}

func mustBind(t *testing.T, b *Binder, sql string) pdbsql.Node {
	t.Helper()
	stmt, err := parser.ParseStatement(sql)
	require.NoError(t, err)
	node, err := b.Bind(stmt)
	require.NoError(t, err)
	return node
}

func noopCompiler(node pdbsql.Node) (pdbsql.Executable, error) {
	return nil, pdbsql.ErrNotImplemented.New("subquery compilation")
}

func TestBindSimpleSelect(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)
	node := mustBind(t, b, "SELECT id, amount FROM orders WHERE amount > 10 ORDER BY amount DESC LIMIT 5")

	limit, ok := node.(*plan.Limit)
	require.True(t, ok)
	proj, ok := limit.Child.(*plan.Project)
	require.True(t, ok)
	require.Len(t, proj.Items, 2)
	sortN, ok := proj.Child.(*plan.Sort)
	require.True(t, ok)
	filt, ok := sortN.Child.(*plan.Filter)
	require.True(t, ok)
	_, ok = filt.Child.(*plan.TableScan)
	require.True(t, ok)
}

func TestBindAggregateGroupBy(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)
	node := mustBind(t, b, "SELECT customer, SUM(amount) AS total FROM orders GROUP BY customer HAVING SUM(amount) > 100")

	proj, ok := node.(*plan.Project)
	require.True(t, ok)
	require.Len(t, proj.Items, 2)
	filt, ok := proj.Child.(*plan.Filter)
	require.True(t, ok)
	agg, ok := filt.Child.(*plan.Aggregate)
	require.True(t, ok)
	require.Len(t, agg.GroupBy, 1)
	require.Len(t, agg.Aggs, 2)
}

func TestBindWindowFunction(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)
	node := mustBind(t, b, "SELECT customer, ROW_NUMBER() OVER (PARTITION BY customer ORDER BY amount) AS rn FROM orders")

	proj, ok := node.(*plan.Project)
	require.True(t, ok)
	win, ok := proj.Child.(*plan.Window)
	require.True(t, ok)
	require.Len(t, win.Funcs, 1)
}

func TestBindJoinOn(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)
	node := mustBind(t, b, "SELECT orders.id, customers.name FROM orders JOIN customers ON orders.customer = customers.name")

	proj, ok := node.(*plan.Project)
	require.True(t, ok)
	join, ok := proj.Child.(*plan.Join)
	require.True(t, ok)
	require.Equal(t, plan.InnerJoin, join.Kind)
	_, ok = join.Cond.(*expression.Equals)
	require.True(t, ok)
}

func TestBindCorrelatedExistsSubquery(t *testing.T) {
	var compiled pdbsql.Node
	compile := func(node pdbsql.Node) (pdbsql.Executable, error) {
		compiled = node
		return nil, pdbsql.ErrNotImplemented.New("subquery compilation")
	}
	b := New(newTestCatalog(), compile)
	_, err := func() (pdbsql.Node, error) {
		stmt, perr := parser.ParseStatement(
			"SELECT id FROM orders o WHERE EXISTS (SELECT 1 FROM customers c WHERE c.name = o.customer)")
		if perr != nil {
			return nil, perr
		}
		return b.Bind(stmt)
	}()
	require.Error(t, err)
	require.NotNil(t, compiled)
}

func TestBindUnknownTableFails(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)
	stmt, err := parser.ParseStatement("SELECT * FROM nonexistent")
	require.NoError(t, err)
	_, err = b.Bind(stmt)
	require.Error(t, err)
}

func TestBindAmbiguousColumnFails(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)
	stmt, err := parser.ParseStatement("SELECT id FROM orders JOIN customers ON orders.id = customers.id")
	require.NoError(t, err)
	_, err = b.Bind(stmt)
	require.Error(t, err)
}

func TestBindRecursiveCTE(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)
	node := mustBind(t, b, `
		WITH RECURSIVE chain AS (
			SELECT id FROM orders WHERE id = 1
			UNION ALL
			SELECT o.id FROM orders o JOIN chain ON o.id = chain.id + 1
		)
		SELECT * FROM chain`)

	_, ok := node.(*plan.Project)
	require.True(t, ok)
}

func TestBindInsertValues(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)
	node := mustBind(t, b, "INSERT INTO orders (id, customer, amount) VALUES (1, 'a', 9.5)")
	ins, ok := node.(*plan.Insert)
	require.True(t, ok)
	values, ok := ins.Source.(*plan.Values)
	require.True(t, ok)
	require.Len(t, values.Rows, 1)
}

func TestBindCreateAndDropTable(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)
	node := mustBind(t, b, "CREATE TABLE widgets (id INT, label TEXT)")
	_, ok := node.(*plan.CreateTable)
	require.True(t, ok)

	node = mustBind(t, b, "DROP TABLE widgets")
	_, ok = node.(*plan.DropTable)
	require.True(t, ok)
}

func TestBindControlStatements(t *testing.T) {
	b := New(newTestCatalog(), noopCompiler)

	node := mustBind(t, b, "EXPLAIN SELECT id FROM orders")
	_, ok := node.(*plan.Explain)
	require.True(t, ok)

	node = mustBind(t, b, "BEGIN")
	tx, ok := node.(*plan.Tx)
	require.True(t, ok)
	require.Equal(t, plan.TxBegin, tx.Kind)

	node = mustBind(t, b, "SHOW TABLES")
	_, ok = node.(*plan.Show)
	require.True(t, ok)
}

var _ = io.EOF
