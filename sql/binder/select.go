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
	"reflect"
	"strings"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/ast"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression/function/aggregation"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression/function/window"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
)

var aggregateNames = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
	"STDDEV_SAMP": true, "VAR_SAMP": true, "MEDIAN": true,
	"PERCENTILE_CONT": true, "PERCENTILE_DISC": true, "MODE": true,
	"APPROX_COUNT_DISTINCT": true, "APPROX_QUANTILE": true, "STRING_AGG": true,
	"COVAR_POP": true, "COVAR_SAMP": true, "CORR": true,
	"REGR_SLOPE": true, "REGR_INTERCEPT": true, "REGR_R2": true, "REGR_COUNT": true,
	"REGR_AVGX": true, "REGR_AVGY": true, "REGR_SXX": true, "REGR_SYY": true, "REGR_SXY": true,
	"FIRST": true, "LAST": true, "ARG_MIN": true, "ARG_MAX": true,
	"BOOL_AND": true, "BOOL_OR": true,
}

var windowOnlyNames = map[string]bool{
	"ROW_NUMBER": true, "RANK": true, "DENSE_RANK": true, "PERCENT_RANK": true,
	"CUME_DIST": true, "NTILE": true, "LAG": true, "LEAD": true,
	"FIRST_VALUE": true, "LAST_VALUE": true, "NTH_VALUE": true,
}

func isAggregateName(name string) bool { return aggregateNames[strings.ToUpper(name)] }
func isWindowName(name string) bool {
	u := strings.ToUpper(name)
	return windowOnlyNames[u] || aggregateNames[u]
}

// setOpKindFromAst maps ast.SetOpKind (which starts at NoSetOp) onto
// plan.SetOpKind (which has no "none" member, since a SetOpItem is only
// ever constructed for an actual operator).
func setOpKindFromAst(op ast.SetOpKind) plan.SetOpKind {
	switch op {
	case ast.Intersect:
		return plan.Intersect
	case ast.Except:
		return plan.Except
	default:
		return plan.Union
	}
}

// bindQuery binds a full query: its CTEs, its anchor SELECT, and any
// trailing set operators (spec §4.3, §4.10).
func (b *Binder) bindQuery(q *ast.Query, outer *scope) (pdbsql.Node, error) {
	saved := make(map[string]pdbsql.Node, len(b.ctes))
	for k, v := range b.ctes {
		saved[k] = v
	}
	defer func() { b.ctes = saved }()

	for _, c := range q.CTEs {
		if err := b.bindCTE(c, q.Recursive); err != nil {
			return nil, err
		}
	}

	node, err := b.bindSelect(q.Select, outer)
	if err != nil {
		return nil, err
	}
	for _, so := range q.SetOps {
		rnode, err := b.bindSelect(so.Right, outer)
		if err != nil {
			return nil, err
		}
		node, rnode, err = widenSetOpSides(node, rnode)
		if err != nil {
			return nil, err
		}
		node = plan.NewSetOp(setOpKindFromAst(so.Op), so.All, node, rnode)
	}
	return node, nil
}

// widenSetOpSides implements spec §4.10's "schemas must match positionally;
// types follow the widening lattice" rule for UNION/INTERSECT/EXCEPT: the
// two sides of a set operator must have the same column count, and any
// column whose types differ is widened via the same pdbsql.Promote lattice
// CASE branches use (see widen in expr.go), with a Cast wrapped around
// whichever side doesn't already produce the promoted type. Output column
// names follow the left side's, matching the SQL-standard rule that the
// first SELECT's column list names the combined result.
func widenSetOpSides(left, right pdbsql.Node) (pdbsql.Node, pdbsql.Node, error) {
	lsch, rsch := left.Schema(), right.Schema()
	if len(lsch) != len(rsch) {
		return nil, nil, pdbsql.ErrExecution.New(fmt.Sprintf("set operation requires both sides to have the same number of columns: %d vs %d", len(lsch), len(rsch)))
	}
	needLeft, needRight := false, false
	leftItems := make([]plan.ProjectItem, len(lsch))
	rightItems := make([]plan.ProjectItem, len(rsch))
	for i := range lsch {
		lc, rc := lsch[i], rsch[i]
		target := lc.Type
		if !reflect.DeepEqual(lc.Type, rc.Type) {
			if t, ok := widen(lc.Type, rc.Type, true); ok {
				target = t
			}
		}
		leftItems[i] = plan.ProjectItem{Name: lc.Name, Expr: widenGetField(i, lc, target, &needLeft)}
		rightItems[i] = plan.ProjectItem{Name: lc.Name, Expr: widenGetField(i, rc, target, &needRight)}
	}
	if needLeft {
		left = plan.NewProject(leftItems, left)
	}
	if needRight {
		right = plan.NewProject(rightItems, right)
	}
	return left, right, nil
}

// widenGetField builds the GetField for column i of a set-op side, wrapping
// it in a Cast to target and flipping *changed to true when that side's
// natural type doesn't already match the widened target.
func widenGetField(i int, col *pdbsql.ColumnDef, target pdbsql.Type, changed *bool) pdbsql.Expression {
	gf := expression.NewGetField(i, col.Type, col.Name, col.Nullable)
	if reflect.DeepEqual(col.Type, target) {
		return gf
	}
	*changed = true
	return expression.NewCast(gf, target, true)
}

// bindCTE binds one WITH entry, handling the `anchor UNION [ALL]
// recursive-term-referencing-itself` shape for `WITH RECURSIVE` (spec
// §4.11).
func (b *Binder) bindCTE(c *ast.CTE, recursive bool) error {
	name := strings.ToLower(c.Name)
	if !recursive || len(c.Query.SetOps) == 0 {
		node, err := b.bindQuery(c.Query, nil)
		if err != nil {
			return err
		}
		if len(c.Columns) > 0 {
			node, err = renameColumns(node, c.Columns)
			if err != nil {
				return err
			}
		}
		b.ctes[name] = node
		return nil
	}

	anchor, err := b.bindSelect(c.Query.Select, nil)
	if err != nil {
		return err
	}
	// Renamed before the working-table scan is built below, so the
	// recursive term's self-reference resolves columns by the CTE's
	// declared names rather than the anchor's raw projection names.
	if len(c.Columns) > 0 {
		anchor, err = renameColumns(anchor, c.Columns)
		if err != nil {
			return err
		}
	}
	recIdx := -1
	all := false
	for i, so := range c.Query.SetOps {
		if so.Op == ast.Union && referencesTable(so.Right.From, name) {
			recIdx = i
			all = so.All
			break
		}
		rnode, err := b.bindSelect(so.Right, nil)
		if err != nil {
			return err
		}
		anchor, rnode, err = widenSetOpSides(anchor, rnode)
		if err != nil {
			return err
		}
		anchor = plan.NewSetOp(setOpKindFromAst(so.Op), so.All, anchor, rnode)
	}
	if recIdx == -1 {
		b.ctes[name] = anchor
		return nil
	}

	savedSelf := b.ctes[name]
	b.ctes[name] = plan.NewWorkingTableScan(name, anchor.Schema())
	recNode, err := b.bindSelect(c.Query.SetOps[recIdx].Right, nil)
	b.ctes[name] = savedSelf
	if err != nil {
		return err
	}
	rc := plan.NewRecursiveCTE(name, anchor, recNode, all, 0)
	var result pdbsql.Node = rc
	for i := recIdx + 1; i < len(c.Query.SetOps); i++ {
		so := c.Query.SetOps[i]
		rnode, err := b.bindSelect(so.Right, nil)
		if err != nil {
			return err
		}
		result, rnode, err = widenSetOpSides(result, rnode)
		if err != nil {
			return err
		}
		result = plan.NewSetOp(setOpKindFromAst(so.Op), so.All, result, rnode)
	}
	b.ctes[name] = result
	return nil
}

// bindValuesClause binds a literal `VALUES (...),(...)` query body (spec
// §6.2), used e.g. as a CTE's anchor. Column names default to column1,
// column2, ...; a CTE's declared column list (`t(v)`) renames them via
// renameColumns once this result is stored.
func (b *Binder) bindValuesClause(astRows [][]ast.Expr) (pdbsql.Node, error) {
	if len(astRows) == 0 {
		return nil, pdbsql.ErrExecution.New("VALUES requires at least one row")
	}
	width := len(astRows[0])
	rows := make([][]pdbsql.Expression, len(astRows))
	for i, r := range astRows {
		if len(r) != width {
			return nil, pdbsql.ErrExecution.New("VALUES rows must all have the same number of columns")
		}
		row := make([]pdbsql.Expression, len(r))
		for j, v := range r {
			be, err := b.bindExpr(v, emptyScope(), nil)
			if err != nil {
				return nil, err
			}
			row[j] = be
		}
		rows[i] = row
	}
	schema := make(pdbsql.Schema, width)
	for i := range schema {
		schema[i] = &pdbsql.ColumnDef{
			Name:     fmt.Sprintf("column%d", i+1),
			Type:     rows[0][i].Type(),
			Nullable: rows[0][i].IsNullable(),
		}
	}
	return plan.NewValues(schema, rows), nil
}

// renameColumns wraps node in a Project that renames its columns
// positionally to names, used for a CTE's declared column list (`t(v)`,
// spec §6.2 `cte`).
func renameColumns(node pdbsql.Node, names []string) (pdbsql.Node, error) {
	sch := node.Schema()
	if len(names) != len(sch) {
		return nil, pdbsql.ErrExecution.New(fmt.Sprintf("CTE column list has %d names, query produces %d columns", len(names), len(sch)))
	}
	items := make([]plan.ProjectItem, len(sch))
	for i, c := range sch {
		items[i] = plan.ProjectItem{
			Expr: expression.NewGetField(i, c.Type, c.Name, c.Nullable),
			Name: names[i],
		}
	}
	return plan.NewProject(items, node), nil
}

// referencesTable reports whether name (already lowercased) appears as an
// unqualified table reference anywhere inside ref, used to locate the
// self-referencing term of a recursive CTE (spec §4.11).
func referencesTable(ref ast.TableRef, name string) bool {
	switch t := ref.(type) {
	case *ast.NamedTable:
		return t.Schema == "" && strings.EqualFold(t.Name, name)
	case *ast.SubqueryTable:
		return false
	case *ast.Join:
		return referencesTable(t.Left, name) || referencesTable(t.Right, name)
	case *ast.Pivot:
		return referencesTable(t.Input, name)
	case *ast.Unpivot:
		return referencesTable(t.Input, name)
	default:
		return false
	}
}

// projCtx threads the state of one SELECT's projection-stage binding:
// the scope active at each pipeline stage and the matchSet built up as
// aggregates and window calls are extracted (spec §4.6-§4.8).
type projCtx struct {
	binder *Binder
	base   *scope // FROM+WHERE scope: what aggregate/window arguments bind against
	sc     *scope // current-stage scope: advances as Aggregate/Window wrap the plan
	ms     *matchSet
}

func (p *projCtx) bind(e ast.Expr) (pdbsql.Expression, error) {
	return p.binder.bindExpr(e, p.sc, p.ms)
}

// bindSelect implements one SELECT's full pipeline (spec §3.4, §4.3-§4.8):
// FROM -> WHERE -> aggregate extraction -> Aggregate -> HAVING -> window
// extraction -> Window -> QUALIFY -> Sort (pre-projection scope, so ORDER
// BY may reference expressions outside the select list) -> Project
// (+ DISTINCT via a no-op-aggregate de-dup) -> Limit/Offset.
func (b *Binder) bindSelect(s *ast.Select, outer *scope) (pdbsql.Node, error) {
	if s.Values != nil {
		return b.bindValuesClause(s.Values)
	}

	var node pdbsql.Node
	var fromScope *scope
	var err error
	if s.From != nil {
		node, fromScope, err = b.bindTableRef(s.From, outer)
		if err != nil {
			return nil, err
		}
	} else {
		node = plan.NewValues(pdbsql.Schema{}, [][]pdbsql.Expression{{}})
		fromScope = &scope{schema: pdbsql.Schema{}, parent: outer}
	}

	if s.Where != nil {
		pred, err := b.bindExpr(s.Where, fromScope, nil)
		if err != nil {
			return nil, err
		}
		node = plan.NewFilter(pred, node)
	}

	p := &projCtx{binder: b, base: fromScope, sc: fromScope, ms: &matchSet{}}

	for _, it := range s.SelectList {
		if it.Star {
			continue
		}
		if err := p.collectAggs(it.Expr); err != nil {
			return nil, err
		}
	}
	if err := p.collectAggs(s.Having); err != nil {
		return nil, err
	}
	for _, o := range s.OrderBy {
		if err := p.collectAggs(o.Expr); err != nil {
			return nil, err
		}
	}
	if err := p.collectAggs(s.Qualify); err != nil {
		return nil, err
	}

	var groupBy []pdbsql.Expression
	for _, g := range s.GroupBy {
		be, err := b.bindExpr(g, fromScope, nil)
		if err != nil {
			return nil, err
		}
		p.ms.groupBy = append(p.ms.groupBy, groupEntry{ast: g, expr: be})
		groupBy = append(groupBy, be)
	}
	p.ms.hasAgg = len(groupBy) > 0 || len(p.ms.aggs) > 0

	if p.ms.hasAgg {
		aggs := make([]plan.AggExpr, len(p.ms.aggs))
		for i, a := range p.ms.aggs {
			aggs[i] = plan.AggExpr{Func: a.expr, Name: a.name}
		}
		node = plan.NewAggregate(groupBy, aggs, node)
		p.sc = &scope{schema: node.Schema(), parent: outer}
	}
	p.ms.winBase = len(p.sc.schema)

	if s.Having != nil {
		pred, err := p.bind(s.Having)
		if err != nil {
			return nil, err
		}
		node = plan.NewFilter(pred, node)
	}

	for _, it := range s.SelectList {
		if !it.Star {
			if err := p.collectWindowsIn(it.Expr); err != nil {
				return nil, err
			}
		}
	}
	for _, o := range s.OrderBy {
		if err := p.collectWindowsIn(o.Expr); err != nil {
			return nil, err
		}
	}
	if err := p.collectWindowsIn(s.Qualify); err != nil {
		return nil, err
	}

	if len(p.ms.wins) > 0 {
		funcs := make([]plan.WindowExpr, len(p.ms.wins))
		for i, w := range p.ms.wins {
			funcs[i] = w.expr
		}
		node = plan.NewWindow(funcs, node)
		p.sc = &scope{schema: node.Schema(), parent: outer}
	}

	if s.Qualify != nil {
		pred, err := p.bind(s.Qualify)
		if err != nil {
			return nil, err
		}
		node = plan.NewFilter(pred, node)
	}

	if len(s.OrderBy) > 0 {
		fields := make([]plan.SortField, 0, len(s.OrderBy))
		for _, o := range s.OrderBy {
			expr := o.Expr
			if cr, ok := unwrapParen(expr).(*ast.ColumnRef); ok && cr.Qualifier == "" {
				if alias := findSelectAlias(s.SelectList, cr.Name); alias != nil {
					expr = alias
				}
			}
			be, err := p.bind(expr)
			if err != nil {
				return nil, err
			}
			fields = append(fields, plan.SortField{Expr: be, Desc: o.Desc, NullsFirst: !o.Desc})
		}
		node = plan.NewSort(fields, node)
	}

	items, err := p.projectItems(s.SelectList)
	if err != nil {
		return nil, err
	}
	node = plan.NewProject(items, node)

	if s.Distinct {
		dedupGroup := make([]pdbsql.Expression, len(items))
		for i, it := range items {
			dedupGroup[i] = expression.NewGetField(i, it.Expr.Type(), it.Name, it.Expr.IsNullable())
		}
		agg := plan.NewAggregate(dedupGroup, nil, node)
		restore := make([]plan.ProjectItem, len(items))
		for i, it := range items {
			restore[i] = plan.ProjectItem{
				Expr: expression.NewGetField(i, it.Expr.Type(), it.Name, it.Expr.IsNullable()),
				Name: it.Name,
			}
		}
		node = plan.NewProject(restore, agg)
	}

	if s.Limit != nil || s.Offset != nil {
		var limit, offset pdbsql.Expression
		if s.Limit != nil {
			limit, err = b.bindExpr(s.Limit, emptyScope(), nil)
			if err != nil {
				return nil, err
			}
		}
		if s.Offset != nil {
			offset, err = b.bindExpr(s.Offset, emptyScope(), nil)
			if err != nil {
				return nil, err
			}
		}
		node = plan.NewLimit(limit, offset, node)
	}

	return node, nil
}

// findSelectAlias returns the ast.Expr of the SELECT-list item aliased
// name, supporting `ORDER BY <alias>` (spec §4.3).
func findSelectAlias(items []ast.SelectItem, name string) ast.Expr {
	for _, it := range items {
		if !it.Star && strings.EqualFold(it.Alias, name) {
			return it.Expr
		}
	}
	return nil
}

// collectAggs extracts every aggregate FuncCall in e, binding its
// arguments against the pre-aggregation scope (spec §4.7).
func (p *projCtx) collectAggs(e ast.Expr) error {
	if e == nil {
		return nil
	}
	return walkExpr(e, func(x ast.Expr) (bool, error) {
		call, ok := x.(*ast.FuncCall)
		if !ok || call.Over != nil || !isAggregateName(call.Name) {
			return true, nil
		}
		args := make([]pdbsql.Expression, 0, len(call.Args))
		for _, a := range call.Args {
			be, err := p.binder.bindExpr(a, p.base, nil)
			if err != nil {
				return false, err
			}
			args = append(args, be)
		}
		fn, err := buildAggregate(call, args)
		if err != nil {
			return false, err
		}
		p.ms.aggs = append(p.ms.aggs, aggEntry{call: call, expr: fn, name: fmt.Sprintf("agg_%d", len(p.ms.aggs))})
		return false, nil
	})
}

// collectWindowsIn extracts every window FuncCall in e, binding its
// arguments, PARTITION BY, ORDER BY, and frame bounds against the current
// (post-aggregate, if any) scope (spec §4.8).
func (p *projCtx) collectWindowsIn(e ast.Expr) error {
	if e == nil {
		return nil
	}
	return walkExpr(e, func(x ast.Expr) (bool, error) {
		call, ok := x.(*ast.FuncCall)
		if !ok || call.Over == nil {
			return true, nil
		}
		args := make([]pdbsql.Expression, 0, len(call.Args))
		for _, a := range call.Args {
			be, err := p.bind(a)
			if err != nil {
				return false, err
			}
			args = append(args, be)
		}
		var partition []pdbsql.Expression
		for _, pe := range call.Over.PartitionBy {
			be, err := p.bind(pe)
			if err != nil {
				return false, err
			}
			partition = append(partition, be)
		}
		var orderFields []plan.SortField
		var orderExprs []pdbsql.Expression
		for _, o := range call.Over.OrderBy {
			be, err := p.bind(o.Expr)
			if err != nil {
				return false, err
			}
			orderFields = append(orderFields, plan.SortField{Expr: be, Desc: o.Desc, NullsFirst: !o.Desc})
			orderExprs = append(orderExprs, be)
		}
		fn, err := buildWindowFunc(call, args, orderExprs)
		if err != nil {
			return false, err
		}
		var frame *plan.FrameSpec
		if call.Over.Frame != nil {
			frame, err = p.bindFrame(call.Over.Frame)
			if err != nil {
				return false, err
			}
		}
		name := fmt.Sprintf("win_%d", len(p.ms.wins))
		we := plan.WindowExpr{Func: fn, Name: name, PartitionBy: partition, OrderBy: orderFields, Frame: frame}
		p.ms.wins = append(p.ms.wins, winEntry{call: call, expr: we, name: name})
		return false, nil
	})
}

func (p *projCtx) bindFrame(f *ast.FrameSpec) (*plan.FrameSpec, error) {
	start, err := p.bindFrameBound(f.Start)
	if err != nil {
		return nil, err
	}
	end := plan.FrameBound{Kind: plan.CurrentRow}
	if f.End != nil {
		end, err = p.bindFrameBound(*f.End)
		if err != nil {
			return nil, err
		}
	}
	return &plan.FrameSpec{Unit: plan.FrameUnit(f.Unit), Start: start, End: end}, nil
}

func (p *projCtx) bindFrameBound(fb ast.FrameBound) (plan.FrameBound, error) {
	var off pdbsql.Expression
	if fb.Offset != nil {
		var err error
		off, err = p.bind(fb.Offset)
		if err != nil {
			return plan.FrameBound{}, err
		}
	}
	return plan.FrameBound{Kind: plan.FrameBoundKind(fb.Kind), Offset: off}, nil
}

// projectItems binds the SELECT list against the fully-staged scope,
// expanding `*`/`qualifier.*` against its schema (spec §4.3).
func (p *projCtx) projectItems(items []ast.SelectItem) ([]plan.ProjectItem, error) {
	var out []plan.ProjectItem
	for _, it := range items {
		if it.Star {
			for i, c := range p.sc.schema {
				if it.StarQualifier != "" && !strings.EqualFold(c.Qualifier, it.StarQualifier) {
					continue
				}
				out = append(out, plan.ProjectItem{
					Expr: expression.NewGetField(i, c.Type, c.Name, c.Nullable),
					Name: c.Name,
				})
			}
			continue
		}
		be, err := p.bind(it.Expr)
		if err != nil {
			return nil, err
		}
		name := it.Alias
		if name == "" {
			name = displayName(it.Expr)
		}
		out = append(out, plan.ProjectItem{Expr: be, Name: name})
	}
	return out, nil
}

// buildAggregate dispatches a bound aggregate call to its constructor
// (spec §4.7).
func buildAggregate(call *ast.FuncCall, args []pdbsql.Expression) (pdbsql.Expression, error) {
	name := strings.ToUpper(call.Name)
	need := func(n int) error {
		if len(args) != n {
			return pdbsql.ErrWrongNumArgs.New(name, n, len(args))
		}
		return nil
	}
	switch name {
	case "COUNT":
		if call.Star || len(args) == 0 {
			return aggregation.NewCount(nil, call.Distinct), nil
		}
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewCount(args[0], call.Distinct), nil
	case "SUM":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewSum(args[0], args[0].Type(), call.Distinct), nil
	case "AVG":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewAvg(args[0], call.Distinct), nil
	case "MIN":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewMin(args[0], args[0].Type()), nil
	case "MAX":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewMax(args[0], args[0].Type()), nil
	case "STDDEV_SAMP":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewStddevSamp(args[0]), nil
	case "VAR_SAMP":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewVarSamp(args[0]), nil
	case "MEDIAN":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewMedian(args[0]), nil
	case "PERCENTILE_CONT":
		if err := need(2); err != nil {
			return nil, err
		}
		f, err := literalFloat(args[1])
		if err != nil {
			return nil, err
		}
		return aggregation.NewPercentileCont(args[0], f), nil
	case "PERCENTILE_DISC":
		if err := need(2); err != nil {
			return nil, err
		}
		f, err := literalFloat(args[1])
		if err != nil {
			return nil, err
		}
		return aggregation.NewPercentileDisc(args[0], f), nil
	case "MODE":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewMode(args[0]), nil
	case "APPROX_COUNT_DISTINCT":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewApproxCountDistinct(args[0]), nil
	case "APPROX_QUANTILE":
		if err := need(2); err != nil {
			return nil, err
		}
		f, err := literalFloat(args[1])
		if err != nil {
			return nil, err
		}
		return aggregation.NewApproxQuantile(args[0], f), nil
	case "STRING_AGG":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewStringAgg(args[0], args[1]), nil
	case "COVAR_POP":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewCovarPop(args[0], args[1]), nil
	case "COVAR_SAMP":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewCovarSamp(args[0], args[1]), nil
	case "CORR":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewCorr(args[0], args[1]), nil
	case "REGR_SLOPE":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewRegrSlope(args[0], args[1]), nil
	case "REGR_INTERCEPT":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewRegrIntercept(args[0], args[1]), nil
	case "REGR_R2":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewRegrR2(args[0], args[1]), nil
	case "REGR_COUNT":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewRegrCount(args[0], args[1]), nil
	case "REGR_AVGX":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewRegrAvgX(args[0], args[1]), nil
	case "REGR_AVGY":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewRegrAvgY(args[0], args[1]), nil
	case "REGR_SXX":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewRegrSXX(args[0], args[1]), nil
	case "REGR_SYY":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewRegrSYY(args[0], args[1]), nil
	case "REGR_SXY":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewRegrSXY(args[0], args[1]), nil
	case "FIRST":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewFirst(args[0]), nil
	case "LAST":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewLast(args[0]), nil
	case "ARG_MIN":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewArgMin(args[0], args[1]), nil
	case "ARG_MAX":
		if err := need(2); err != nil {
			return nil, err
		}
		return aggregation.NewArgMax(args[0], args[1]), nil
	case "BOOL_AND":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewBoolAnd(args[0]), nil
	case "BOOL_OR":
		if err := need(1); err != nil {
			return nil, err
		}
		return aggregation.NewBoolOr(args[0]), nil
	default:
		return nil, pdbsql.ErrUnknownFunction.New(name)
	}
}

// buildWindowFunc dispatches a bound window call to its constructor (spec
// §4.8). SUM/AVG/COUNT/MIN/MAX reuse their aggregation.Buffer through
// window.AggOverFrame rather than re-implementing accumulation.
func buildWindowFunc(call *ast.FuncCall, args []pdbsql.Expression, orderBy []pdbsql.Expression) (pdbsql.Expression, error) {
	name := strings.ToUpper(call.Name)
	switch name {
	case "ROW_NUMBER":
		return window.NewRowNumber(), nil
	case "RANK":
		return window.NewRank(orderBy), nil
	case "DENSE_RANK":
		return window.NewDenseRank(orderBy), nil
	case "PERCENT_RANK":
		return window.NewPercentRank(orderBy), nil
	case "CUME_DIST":
		return window.NewCumeDist(orderBy), nil
	case "NTILE":
		if len(args) != 1 {
			return nil, pdbsql.ErrWrongNumArgs.New("NTILE", 1, len(args))
		}
		n, err := literalInt(args[0])
		if err != nil {
			return nil, err
		}
		return window.NewNTile(n), nil
	case "LAG", "LEAD":
		if len(args) == 0 || len(args) > 3 {
			return nil, pdbsql.ErrWrongNumArgs.New(name, 3, len(args))
		}
		offset := 1
		var def pdbsql.Expression
		if len(args) >= 2 {
			n, err := literalInt(args[1])
			if err != nil {
				return nil, err
			}
			offset = n
		}
		if len(args) == 3 {
			def = args[2]
		}
		if name == "LAG" {
			return window.NewLag(args[0], offset, def), nil
		}
		return window.NewLead(args[0], offset, def), nil
	case "FIRST_VALUE":
		if len(args) != 1 {
			return nil, pdbsql.ErrWrongNumArgs.New("FIRST_VALUE", 1, len(args))
		}
		return window.NewFirstValue(args[0]), nil
	case "LAST_VALUE":
		if len(args) != 1 {
			return nil, pdbsql.ErrWrongNumArgs.New("LAST_VALUE", 1, len(args))
		}
		return window.NewLastValue(args[0]), nil
	case "NTH_VALUE":
		if len(args) != 2 {
			return nil, pdbsql.ErrWrongNumArgs.New("NTH_VALUE", 2, len(args))
		}
		n, err := literalInt(args[1])
		if err != nil {
			return nil, err
		}
		return window.NewNthValue(args[0], n), nil
	case "COUNT":
		var arg pdbsql.Expression
		if !call.Star && len(args) == 1 {
			arg = args[0]
		}
		return window.NewAggOverFrame("COUNT", arg, pdbsql.Int64, func() aggregation.Buffer {
			return aggregation.NewCount(arg, false).NewBuffer()
		}), nil
	case "SUM":
		if len(args) != 1 {
			return nil, pdbsql.ErrWrongNumArgs.New("SUM", 1, len(args))
		}
		return window.NewAggOverFrame("SUM", args[0], args[0].Type(), func() aggregation.Buffer {
			return aggregation.NewSum(args[0], args[0].Type(), false).NewBuffer()
		}), nil
	case "AVG":
		if len(args) != 1 {
			return nil, pdbsql.ErrWrongNumArgs.New("AVG", 1, len(args))
		}
		return window.NewAggOverFrame("AVG", args[0], pdbsql.Float64, func() aggregation.Buffer {
			return aggregation.NewAvg(args[0], false).NewBuffer()
		}), nil
	case "MIN":
		if len(args) != 1 {
			return nil, pdbsql.ErrWrongNumArgs.New("MIN", 1, len(args))
		}
		return window.NewAggOverFrame("MIN", args[0], args[0].Type(), func() aggregation.Buffer {
			return aggregation.NewMin(args[0], args[0].Type()).NewBuffer()
		}), nil
	case "MAX":
		if len(args) != 1 {
			return nil, pdbsql.ErrWrongNumArgs.New("MAX", 1, len(args))
		}
		return window.NewAggOverFrame("MAX", args[0], args[0].Type(), func() aggregation.Buffer {
			return aggregation.NewMax(args[0], args[0].Type()).NewBuffer()
		}), nil
	default:
		return nil, pdbsql.ErrUnknownFunction.New(name)
	}
}
