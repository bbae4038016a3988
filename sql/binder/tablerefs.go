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
	"fmt"
	"io"
	"sort"
	"strings"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/ast"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
)

// bindTableRef binds a FROM-clause tree, returning the resulting plan
// node and the scope it exposes to sibling/enclosing clauses (spec §4.4).
func (b *Binder) bindTableRef(ref ast.TableRef, outer *scope) (pdbsql.Node, *scope, error) {
	switch t := ref.(type) {
	case *ast.NamedTable:
		return b.bindNamedTable(t, outer)
	case *ast.SubqueryTable:
		inner, err := b.bindQuery(t.Query, outer)
		if err != nil {
			return nil, nil, err
		}
		alias := t.Alias
		if alias == "" {
			alias = "subquery"
		}
		node := plan.NewSubqueryAlias(alias, inner)
		return node, &scope{schema: node.Schema(), parent: outer}, nil
	case *ast.Join:
		return b.bindJoin(t, outer)
	case *ast.Pivot:
		return b.bindPivot(t, outer)
	case *ast.Unpivot:
		return b.bindUnpivot(t, outer)
	default:
		return nil, nil, pdbsql.ErrNotImplemented.New("table reference type")
	}
}

func (b *Binder) bindNamedTable(t *ast.NamedTable, outer *scope) (pdbsql.Node, *scope, error) {
	if t.Schema == "" {
		if cte, ok := b.ctes[strings.ToLower(t.Name)]; ok {
			alias := t.Alias
			if alias == "" {
				alias = t.Name
			}
			node := plan.NewSubqueryAlias(alias, cte)
			return node, &scope{schema: node.Schema(), parent: outer}, nil
		}
	}
	tbl, err := b.lookupTable(t.Schema, t.Name)
	if err != nil {
		return nil, nil, err
	}
	node := plan.NewTableScan(tbl, t.Alias)
	return node, &scope{schema: node.Schema(), parent: outer}, nil
}

func joinKindFromAst(k ast.JoinKind) plan.JoinKind { return plan.JoinKind(k) }

func (b *Binder) bindJoin(t *ast.Join, outer *scope) (pdbsql.Node, *scope, error) {
	left, lsc, err := b.bindTableRef(t.Left, outer)
	if err != nil {
		return nil, nil, err
	}
	right, rsc, err := b.bindTableRef(t.Right, outer)
	if err != nil {
		return nil, nil, err
	}
	combinedSchema := make(pdbsql.Schema, 0, len(lsc.schema)+len(rsc.schema))
	combinedSchema = append(combinedSchema, lsc.schema...)
	combinedSchema = append(combinedSchema, rsc.schema...)
	combined := &scope{schema: combinedSchema, parent: outer}

	var cond pdbsql.Expression
	kind := joinKindFromAst(t.Kind)
	switch {
	case t.On != nil:
		cond, err = b.bindExpr(t.On, combined, nil)
		if err != nil {
			return nil, nil, err
		}
	case len(t.Using) > 0:
		cond, err = bindUsing(t.Using, lsc.schema, rsc.schema)
		if err != nil {
			return nil, nil, err
		}
	case kind != plan.CrossJoin:
		return nil, nil, pdbsql.ErrInvalidValue.New("join requires an ON or USING clause")
	}

	node := plan.NewJoin(kind, cond, left, right)
	if kind == plan.SemiJoin || kind == plan.AntiJoin {
		return node, &scope{schema: lsc.schema, parent: outer}, nil
	}
	return node, combined, nil
}

// bindUsing builds the equality predicate implied by `JOIN ... USING
// (cols)` (spec §4.4): each named column must appear, unqualified, on
// both sides.
func bindUsing(names []string, left, right pdbsql.Schema) (pdbsql.Expression, error) {
	var cond pdbsql.Expression
	for _, name := range names {
		li := left.IndexOf("", name)
		if li < 0 {
			return nil, pdbsql.ErrColumnNotFound.New(name)
		}
		ri := right.IndexOf("", name)
		if ri < 0 {
			return nil, pdbsql.ErrColumnNotFound.New(name)
		}
		lcol, rcol := left[li], right[ri]
		eq := expression.NewEquals(
			expression.NewGetField(li, lcol.Type, lcol.Name, lcol.Nullable),
			expression.NewGetField(len(left)+ri, rcol.Type, rcol.Name, rcol.Nullable),
		)
		if cond == nil {
			cond = eq
		} else {
			cond = expression.NewAnd(cond, eq)
		}
	}
	return cond, nil
}

// bindPivot binds a PIVOT clause (spec §4.4, §6.2: an omitted IN (...)
// list auto-detects the pivot column's distinct values). When the list is
// given explicitly, it binds as literals; otherwise autoDetectPivotValues
// pre-scans the pivot source ahead of planning.
func (b *Binder) bindPivot(t *ast.Pivot, outer *scope) (pdbsql.Node, *scope, error) {
	input, sc, err := b.bindTableRef(t.Input, outer)
	if err != nil {
		return nil, nil, err
	}
	forCols := make([]pdbsql.Expression, 0, len(t.ForCols))
	for _, name := range t.ForCols {
		e, err := b.resolveColumn(sc, "", name)
		if err != nil {
			return nil, nil, err
		}
		forCols = append(forCols, e)
	}
	var values []pdbsql.Expression
	if len(t.InValues) == 0 {
		values, err = autoDetectPivotValues(input, forCols)
		if err != nil {
			return nil, nil, err
		}
	} else {
		values = make([]pdbsql.Expression, 0, len(t.InValues))
		for _, v := range t.InValues {
			be, err := b.bindExpr(v, sc, nil)
			if err != nil {
				return nil, nil, err
			}
			values = append(values, be)
		}
	}
	aggs := make([]plan.PivotAgg, 0, len(t.Aggs))
	for _, item := range t.Aggs {
		call, ok := unwrapParen(item.Expr).(*ast.FuncCall)
		if !ok || !isAggregateName(call.Name) {
			return nil, nil, pdbsql.ErrInvalidValue.New("PIVOT aggregate expressions must be aggregate function calls")
		}
		args := make([]pdbsql.Expression, 0, len(call.Args))
		for _, a := range call.Args {
			be, err := b.bindExpr(a, sc, nil)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, be)
		}
		fn, err := buildAggregate(call, args)
		if err != nil {
			return nil, nil, err
		}
		name := item.Alias
		if name == "" {
			name = strings.ToLower(call.Name)
		}
		aggs = append(aggs, plan.PivotAgg{Func: fn, Name: name})
	}
	groupBy := make([]pdbsql.Expression, 0, len(t.GroupBy))
	for _, g := range t.GroupBy {
		be, err := b.bindExpr(g, sc, nil)
		if err != nil {
			return nil, nil, err
		}
		groupBy = append(groupBy, be)
	}
	node := plan.NewPivot(forCols, values, aggs, groupBy, input)
	return node, &scope{schema: node.Schema(), parent: outer}, nil
}

// autoDetectPivotValues implements the pre-scan spec §4.4/§6.2 requires
// when PIVOT's IN (...) list is omitted: the distinct values of forCols,
// sorted, become the pivoted columns. The scan runs directly against the
// underlying catalog Table (bypassing optimize/lower/execute, which isn't
// available this early in binding), so it only supports a plain table as
// the pivot source -- the common case. A PIVOT over a subquery or join
// without an explicit IN list still needs one spelled out.
func autoDetectPivotValues(input pdbsql.Node, forCols []pdbsql.Expression) ([]pdbsql.Expression, error) {
	scan, ok := input.(*plan.TableScan)
	if !ok {
		return nil, pdbsql.ErrNotImplemented.New("PIVOT auto-detection of IN (...) values requires a plain table source; give an explicit IN (...) list for a subquery or join source")
	}
	idxs := make([]int, len(forCols))
	for i, f := range forCols {
		gf, ok := f.(*expression.GetField)
		if !ok {
			return nil, pdbsql.ErrNotImplemented.New("PIVOT auto-detection requires simple FOR column references")
		}
		idxs[i] = gf.Index()
	}

	ctx := pdbsql.NewEmptyContext()
	rows, err := scan.Table.Scan(ctx, idxs, nil, 0)
	if err != nil {
		return nil, err
	}
	defer rows.Close(ctx)

	type found struct {
		key string
		row pdbsql.Row
	}
	seen := map[string]bool{}
	var distinct []found
	for {
		row, err := rows.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%v", []interface{}(row))
		if seen[key] {
			continue
		}
		seen[key] = true
		distinct = append(distinct, found{key: key, row: row.Copy()})
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].key < distinct[j].key })

	values := make([]pdbsql.Expression, len(distinct))
	for i, d := range distinct {
		if len(forCols) == 1 {
			values[i] = expression.NewLiteral(d.row[idxs[0]], forCols[0].Type())
		} else {
			tuple := make([]interface{}, len(idxs))
			for j, ix := range idxs {
				tuple[j] = d.row[ix]
			}
			values[i] = expression.NewLiteral(tuple, pdbsql.Null)
		}
	}
	return values, nil
}

func (b *Binder) bindUnpivot(t *ast.Unpivot, outer *scope) (pdbsql.Node, *scope, error) {
	input, _, err := b.bindTableRef(t.Input, outer)
	if err != nil {
		return nil, nil, err
	}
	node := plan.NewUnpivot(t.ValueColumns, t.NameColumn, t.ValueColumn, t.IncludeNulls, input)
	return node, &scope{schema: node.Schema(), parent: outer}, nil
}
