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

package prismdb_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	prismdb "github.com/TuringWorks/PrismDB-sub000"
	"github.com/TuringWorks/PrismDB-sub000/memory"
	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

func newTestEngine(t *testing.T) (*prismdb.Engine, *pdbsql.Context, *memory.Database) {
	t.Helper()
	db := memory.NewDatabase("main")
	pro := memory.NewDBProvider(db)
	eng := prismdb.New(pro)
	return eng, eng.NewSession(context.Background(), nil), db
}

func seedTable(t *testing.T, ctx *pdbsql.Context, db *memory.Database, name string, schema pdbsql.Schema, rows []pdbsql.Row) {
	t.Helper()
	tbl := memory.NewTable(name, schema)
	for _, r := range rows {
		require.NoError(t, tbl.Insert(ctx, r))
	}
	db.AddTable(tbl)
}

func collectValues(t *testing.T, eng *prismdb.Engine, ctx *pdbsql.Context, stmt string) []pdbsql.Row {
	t.Helper()
	res, err := eng.Run(ctx, stmt)
	require.NoError(t, err)
	got, err := res.Collect(ctx)
	require.NoError(t, err)
	return got.Rows
}

func rowSet(rows []pdbsql.Row) map[string]int {
	out := map[string]int{}
	for _, r := range rows {
		out[fmt.Sprintf("%v", []interface{}(r))]++
	}
	return out
}

// Scenario 1: window RANK with ties (spec §8 scenario 1).
func TestScenarioWindowRankTies(t *testing.T) {
	eng, ctx, _ := newTestEngine(t)
	rows := collectValues(t, eng, ctx, `
		WITH t(v) AS (VALUES (10),(20),(20),(30),(30),(30),(40))
		SELECT v, RANK() OVER (ORDER BY v) FROM t;
	`)
	require.Len(t, rows, 7)
	got := rowSet(rows)
	want := rowSet([]pdbsql.Row{
		{int64(10), int64(1)},
		{int64(20), int64(2)},
		{int64(20), int64(2)},
		{int64(30), int64(4)},
		{int64(30), int64(4)},
		{int64(30), int64(4)},
		{int64(40), int64(7)},
	})
	require.Equal(t, want, got)
}

// Scenario 2: aggregate + GROUP BY + HAVING (spec §8 scenario 2).
func TestScenarioAggregateGroupByHaving(t *testing.T) {
	eng, ctx, db := newTestEngine(t)
	seedTable(t, ctx, db, "orders", pdbsql.Schema{
		{Name: "id", Type: pdbsql.Int64},
		{Name: "user", Type: pdbsql.Int64},
		{Name: "amount", Type: pdbsql.Float64},
	}, []pdbsql.Row{
		{int64(1), int64(1), 100.50},
		{int64(2), int64(1), 75.25},
		{int64(3), int64(2), 200.00},
		{int64(4), int64(3), 150.75},
	})

	rows := collectValues(t, eng, ctx, `
		SELECT user, COUNT(*), SUM(amount) FROM orders GROUP BY user HAVING COUNT(*) > 1;
	`)
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0][0])
	require.Equal(t, int64(2), rows[0][1])
	require.InDelta(t, 175.75, rows[0][2], 1e-9)
}

// Scenario 3: recursive CTE (spec §8 scenario 3).
func TestScenarioRecursiveCTE(t *testing.T) {
	eng, ctx, _ := newTestEngine(t)
	rows := collectValues(t, eng, ctx, `
		WITH RECURSIVE n(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM n WHERE x<5)
		SELECT x FROM n;
	`)
	got := rowSet(rows)
	want := rowSet([]pdbsql.Row{{int64(1)}, {int64(2)}, {int64(3)}, {int64(4)}, {int64(5)}})
	require.Equal(t, want, got)
}

// Scenario 4: correlated EXISTS (spec §8 scenario 4).
func TestScenarioCorrelatedExists(t *testing.T) {
	eng, ctx, db := newTestEngine(t)
	seedTable(t, ctx, db, "customers", pdbsql.Schema{
		{Name: "id", Type: pdbsql.Int64},
		{Name: "name", Type: pdbsql.Text},
	}, []pdbsql.Row{
		{int64(1), "Alice"},
		{int64(2), "Bob"},
		{int64(3), "Charlie"},
	})
	seedTable(t, ctx, db, "orders", pdbsql.Schema{
		{Name: "id", Type: pdbsql.Int64},
		{Name: "cust", Type: pdbsql.Int64},
	}, []pdbsql.Row{
		{int64(1), int64(1)},
		{int64(2), int64(1)},
		{int64(3), int64(3)},
	})

	rows := collectValues(t, eng, ctx, `
		SELECT name FROM customers c WHERE EXISTS (SELECT 1 FROM orders o WHERE o.cust=c.id);
	`)
	got := rowSet(rows)
	want := rowSet([]pdbsql.Row{{"Alice"}, {"Charlie"}})
	require.Equal(t, want, got)
}

// Scenario 5: UNPIVOT (spec §8 scenario 5).
func TestScenarioUnpivot(t *testing.T) {
	eng, ctx, db := newTestEngine(t)
	seedTable(t, ctx, db, "regional_sales", pdbsql.Schema{
		{Name: "region", Type: pdbsql.Text},
		{Name: "q1", Type: pdbsql.Int64},
		{Name: "q2", Type: pdbsql.Int64},
		{Name: "q3", Type: pdbsql.Int64},
		{Name: "q4", Type: pdbsql.Int64},
	}, []pdbsql.Row{
		{"N", int64(10), int64(20), int64(30), int64(40)},
	})

	rows := collectValues(t, eng, ctx, `
		SELECT region, quarter, sales FROM regional_sales
		UNPIVOT (sales FOR quarter IN (q1, q2, q3, q4));
	`)
	got := rowSet(rows)
	want := rowSet([]pdbsql.Row{
		{"N", "q1", int64(10)},
		{"N", "q2", int64(20)},
		{"N", "q3", int64(30)},
		{"N", "q4", int64(40)},
	})
	require.Equal(t, want, got)
}

// Scenario 6: scalar subquery above-average (spec §8 scenario 6).
func TestScenarioScalarSubqueryAboveAverage(t *testing.T) {
	eng, ctx, db := newTestEngine(t)
	seedTable(t, ctx, db, "emp", pdbsql.Schema{
		{Name: "name", Type: pdbsql.Text},
		{Name: "salary", Type: pdbsql.Float64},
	}, []pdbsql.Row{
		{"a", 50.0},
		{"b", 60.0},
		{"c", 70.0},
		{"d", 80.0},
	})

	rows := collectValues(t, eng, ctx, `
		SELECT name FROM emp WHERE salary > (SELECT AVG(salary) FROM emp);
	`)
	got := rowSet(rows)
	want := rowSet([]pdbsql.Row{{"c"}, {"d"}})
	require.Equal(t, want, got)
}
