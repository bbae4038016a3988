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

package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuringWorks/PrismDB-sub000/sql/ast"
)

func TestParseSimpleSelect(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT a, b FROM t WHERE a = 1 ORDER BY b DESC LIMIT 10")
	require.NoError(err)
	q, ok := stmt.(*ast.Query)
	require.True(ok)
	require.Len(q.Select.SelectList, 2)
	require.NotNil(q.Select.Where)
	require.Len(q.Select.OrderBy, 1)
	require.True(q.Select.OrderBy[0].Desc)
	require.NotNil(q.Select.Limit)
}

func TestParseJoinChain(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT * FROM a JOIN b ON a.id = b.id LEFT JOIN c ON b.id = c.id")
	require.NoError(err)
	q := stmt.(*ast.Query)
	join, ok := q.Select.From.(*ast.Join)
	require.True(ok)
	require.Equal(ast.LeftJoin, join.Kind)
	inner, ok := join.Left.(*ast.Join)
	require.True(ok)
	require.Equal(ast.InnerJoin, inner.Kind)
}

func TestParseCTEAndUnion(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("WITH x AS (SELECT 1) SELECT * FROM x UNION ALL SELECT * FROM x")
	require.NoError(err)
	q := stmt.(*ast.Query)
	require.Len(q.CTEs, 1)
	require.Equal("x", q.CTEs[0].Name)
	require.Len(q.SetOps, 1)
	require.Equal(ast.Union, q.SetOps[0].Op)
	require.True(q.SetOps[0].All)
}

func TestParseRecursiveCTE(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("WITH RECURSIVE t(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM t WHERE n < 10) SELECT * FROM t")
	require.NoError(err)
	q := stmt.(*ast.Query)
	require.True(q.Recursive)
	require.Equal([]string{"n"}, q.CTEs[0].Columns)
}

func TestParseWindowFunction(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT RANK() OVER (PARTITION BY dept ORDER BY salary DESC) FROM emp")
	require.NoError(err)
	q := stmt.(*ast.Query)
	call, ok := q.Select.SelectList[0].Expr.(*ast.FuncCall)
	require.True(ok)
	require.Equal("RANK", call.Name)
	require.NotNil(call.Over)
	require.Len(call.Over.PartitionBy, 1)
	require.Len(call.Over.OrderBy, 1)
}

func TestParseWindowFrame(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT SUM(x) OVER (ORDER BY y ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) FROM t")
	require.NoError(err)
	q := stmt.(*ast.Query)
	call := q.Select.SelectList[0].Expr.(*ast.FuncCall)
	require.Equal(ast.FrameRows, call.Over.Frame.Unit)
	require.Equal(ast.UnboundedPreceding, call.Over.Frame.Start.Kind)
	require.Equal(ast.CurrentRow, call.Over.Frame.End.Kind)
}

func TestParseCaseExpr(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT CASE WHEN a > 1 THEN 'big' ELSE 'small' END FROM t")
	require.NoError(err)
	q := stmt.(*ast.Query)
	ce, ok := q.Select.SelectList[0].Expr.(*ast.CaseExpr)
	require.True(ok)
	require.Len(ce.Whens, 1)
	require.NotNil(ce.Else)
}

func TestParseBetweenLikeIn(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT * FROM t WHERE a BETWEEN 1 AND 10 AND b NOT LIKE 'x%' AND c IN (1, 2, 3)")
	require.NoError(err)
	q := stmt.(*ast.Query)
	and1, ok := q.Select.Where.(*ast.BinaryExpr)
	require.True(ok)
	require.Equal(ast.OpAnd, and1.Op)
}

func TestParseSubqueries(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT * FROM t WHERE EXISTS (SELECT 1 FROM u WHERE u.id = t.id) AND t.v > (SELECT avg(v) FROM t)")
	require.NoError(err)
	q := stmt.(*ast.Query)
	require.NotNil(q.Select.Where)
}

func TestParsePivot(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT * FROM sales PIVOT (SUM(amount) FOR quarter IN ('Q1', 'Q2'))")
	require.NoError(err)
	q := stmt.(*ast.Query)
	piv, ok := q.Select.From.(*ast.Pivot)
	require.True(ok)
	require.Len(piv.InValues, 2)
	require.Equal([]string{"quarter"}, piv.ForCols)
}

func TestParseUnpivot(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT * FROM wide UNPIVOT (amount FOR quarter IN (q1, q2, q3))")
	require.NoError(err)
	q := stmt.(*ast.Query)
	unp, ok := q.Select.From.(*ast.Unpivot)
	require.True(ok)
	require.Equal("amount", unp.ValueColumn)
	require.Equal("quarter", unp.NameColumn)
	require.Len(unp.ValueColumns, 3)
}

func TestParseInsertValues(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("INSERT INTO t (a, b) VALUES (1, 'x'), (2, 'y')")
	require.NoError(err)
	ins, ok := stmt.(*ast.InsertStmt)
	require.True(ok)
	require.Equal("t", ins.Table)
	require.Len(ins.Values, 2)
}

func TestParseUpdateDelete(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("UPDATE t SET a = 1, b = 2 WHERE id = 5")
	require.NoError(err)
	upd := stmt.(*ast.UpdateStmt)
	require.Len(upd.Set, 2)

	stmt2, err := ParseStatement("DELETE FROM t WHERE id = 5")
	require.NoError(err)
	del := stmt2.(*ast.DeleteStmt)
	require.Equal("t", del.Table)
}

func TestParseCreateTable(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("CREATE TABLE t (id INT PRIMARY KEY, name VARCHAR(32) NOT NULL, amount DECIMAL(10, 2))")
	require.NoError(err)
	ct := stmt.(*ast.CreateTableStmt)
	require.Len(ct.Columns, 3)
	require.True(ct.Columns[0].PrimaryKey)
	require.False(ct.Columns[1].Nullable)
	require.Equal([]int{10, 2}, ct.Columns[2].TypeArgs)
}

func TestParseCastAndTryCast(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT CAST(a AS BIGINT), TRY_CAST(b AS DOUBLE) FROM t")
	require.NoError(err)
	q := stmt.(*ast.Query)
	c1 := q.Select.SelectList[0].Expr.(*ast.CastExpr)
	require.Equal("BIGINT", c1.TypeName)
	require.False(c1.Try)
	c2 := q.Select.SelectList[1].Expr.(*ast.CastExpr)
	require.True(c2.Try)
}

func TestParseIsDistinctFrom(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("SELECT * FROM t WHERE a IS NOT DISTINCT FROM b")
	require.NoError(err)
	q := stmt.(*ast.Query)
	is, ok := q.Select.Where.(*ast.IsExpr)
	require.True(ok)
	require.True(is.Not)
	require.NotNil(is.Distinct)
}

func TestParseTxAndExplain(t *testing.T) {
	require := require.New(t)
	stmt, err := ParseStatement("BEGIN")
	require.NoError(err)
	require.Equal(ast.TxBegin, stmt.(*ast.TxStmt).Kind)

	stmt2, err := ParseStatement("EXPLAIN SELECT 1")
	require.NoError(err)
	ex, ok := stmt2.(*ast.ExplainStmt)
	require.True(ok)
	require.NotNil(ex.Inner)
}

func TestParseMultipleStatements(t *testing.T) {
	require := require.New(t)
	stmts, err := ParseStatements("SELECT 1; SELECT 2;")
	require.NoError(err)
	require.Len(stmts, 2)
}

func TestParseErrorPosition(t *testing.T) {
	require := require.New(t)
	_, err := ParseStatement("SELECT FROM")
	require.Error(err)
	require.Contains(err.Error(), "1:8")
}
