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

// Package plan implements the logical plan node types the binder produces
// and the analyzer rewrites (spec §3.4, §4.4, §4.5). Every node's schema is
// fully determined by its children -- never by runtime data.
package plan

import (
	"fmt"
	"strings"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// TableScan reads one base table (spec §4.4, §6.1). Filters/Limit/Projected
// are pushdown hints attached by the optimizer (analyzer.PushdownFilters,
// PushdownLimit, PushdownProjection); the physical Scan operator passes them
// to the Table and does not re-check filters itself (the Filter node kept
// above the scan does), and it still returns the scan's full declared
// schema width regardless of Projected, per the Table contract's
// best-effort semantics.
type TableScan struct {
	Table     pdbsql.Table
	Alias     string
	schema    pdbsql.Schema
	Filters   []pdbsql.Expression
	Limit     int // 0 = no pushed-down limit
	Projected []int // column indices referenced above the scan; nil = all
}

// NewTableScan builds a scan over table, aliased (or not) for qualified
// column resolution.
func NewTableScan(table pdbsql.Table, alias string) *TableScan {
	base := table.Schema()
	qualifier := alias
	if qualifier == "" {
		qualifier = table.Name()
	}
	schema := make(pdbsql.Schema, len(base))
	for i, c := range base {
		cp := *c
		cp.Qualifier = qualifier
		schema[i] = &cp
	}
	return &TableScan{Table: table, Alias: alias, schema: schema}
}

func (t *TableScan) Schema() pdbsql.Schema          { return t.schema }
func (t *TableScan) Children() []pdbsql.Node        { return nil }
func (t *TableScan) Resolved() bool                 { return true }
func (t *TableScan) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("TableScan: expected 0 children")
	}
	return t, nil
}
func (t *TableScan) String() string {
	if t.Alias != "" {
		return fmt.Sprintf("TableScan(%s AS %s)", t.Table.Name(), t.Alias)
	}
	return fmt.Sprintf("TableScan(%s)", t.Table.Name())
}

// Values is a literal inline row set (`VALUES (...), (...)`, spec §6.2).
type Values struct {
	schema pdbsql.Schema
	Rows   [][]pdbsql.Expression
}

func NewValues(schema pdbsql.Schema, rows [][]pdbsql.Expression) *Values {
	return &Values{schema: schema, Rows: rows}
}

func (v *Values) Schema() pdbsql.Schema   { return v.schema }
func (v *Values) Children() []pdbsql.Node { return nil }
func (v *Values) Resolved() bool {
	for _, row := range v.Rows {
		for _, e := range row {
			if !e.Resolved() {
				return false
			}
		}
	}
	return true
}
func (v *Values) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("Values: expected 0 children")
	}
	return v, nil
}
func (v *Values) String() string { return fmt.Sprintf("Values(%d rows)", len(v.Rows)) }

// Filter applies a WHERE/HAVING/QUALIFY predicate (spec §4.4).
type Filter struct {
	Child     pdbsql.Node
	Predicate pdbsql.Expression
}

func NewFilter(predicate pdbsql.Expression, child pdbsql.Node) *Filter {
	return &Filter{Child: child, Predicate: predicate}
}

func (f *Filter) Schema() pdbsql.Schema   { return f.Child.Schema() }
func (f *Filter) Children() []pdbsql.Node { return []pdbsql.Node{f.Child} }
func (f *Filter) Resolved() bool          { return f.Child.Resolved() && f.Predicate.Resolved() }
func (f *Filter) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Filter: expected 1 child")
	}
	return NewFilter(f.Predicate, c[0]), nil
}
func (f *Filter) String() string { return fmt.Sprintf("Filter(%s)", f.Predicate) }
func (f *Filter) Expressions() []pdbsql.Expression { return []pdbsql.Expression{f.Predicate} }
func (f *Filter) WithExpressions(e ...pdbsql.Expression) (pdbsql.Node, error) {
	if len(e) != 1 {
		return nil, pdbsql.ErrExecution.New("Filter: expected 1 expression")
	}
	return NewFilter(e[0], f.Child), nil
}

// ProjectItem is one output column: the expression and its exposed name.
type ProjectItem struct {
	Expr pdbsql.Expression
	Name string
}

// Project computes the SELECT list (spec §4.4).
type Project struct {
	Child pdbsql.Node
	Items []ProjectItem
}

func NewProject(items []ProjectItem, child pdbsql.Node) *Project {
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
	return NewProject(p.Items, c[0]), nil
}
func (p *Project) String() string {
	names := make([]string, len(p.Items))
	for i, it := range p.Items {
		names[i] = it.Name
	}
	return fmt.Sprintf("Project(%s)", strings.Join(names, ", "))
}
func (p *Project) Expressions() []pdbsql.Expression {
	out := make([]pdbsql.Expression, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.Expr
	}
	return out
}
func (p *Project) WithExpressions(e ...pdbsql.Expression) (pdbsql.Node, error) {
	if len(e) != len(p.Items) {
		return nil, pdbsql.ErrExecution.New("Project: expression count mismatch")
	}
	items := make([]ProjectItem, len(e))
	for i, ex := range e {
		items[i] = ProjectItem{Expr: ex, Name: p.Items[i].Name}
	}
	return NewProject(items, p.Child), nil
}

// SortField is one ORDER BY entry (spec §4.4).
type SortField struct {
	Expr pdbsql.Expression
	Desc bool
	// NullsFirst controls NULL placement; spec §4.4 default is NULLs sort
	// first on ASC, last on DESC.
	NullsFirst bool
}

// Sort orders its input (spec §4.4).
type Sort struct {
	Child  pdbsql.Node
	Fields []SortField
}

func NewSort(fields []SortField, child pdbsql.Node) *Sort { return &Sort{Child: child, Fields: fields} }

func (s *Sort) Schema() pdbsql.Schema   { return s.Child.Schema() }
func (s *Sort) Children() []pdbsql.Node { return []pdbsql.Node{s.Child} }
func (s *Sort) Resolved() bool {
	if !s.Child.Resolved() {
		return false
	}
	for _, f := range s.Fields {
		if !f.Expr.Resolved() {
			return false
		}
	}
	return true
}
func (s *Sort) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Sort: expected 1 child")
	}
	return NewSort(s.Fields, c[0]), nil
}
func (s *Sort) String() string { return "Sort" }
func (s *Sort) Expressions() []pdbsql.Expression {
	out := make([]pdbsql.Expression, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Expr
	}
	return out
}
func (s *Sort) WithExpressions(e ...pdbsql.Expression) (pdbsql.Node, error) {
	if len(e) != len(s.Fields) {
		return nil, pdbsql.ErrExecution.New("Sort: expression count mismatch")
	}
	fields := make([]SortField, len(e))
	for i, ex := range e {
		fields[i] = SortField{Expr: ex, Desc: s.Fields[i].Desc, NullsFirst: s.Fields[i].NullsFirst}
	}
	return NewSort(fields, s.Child), nil
}

// Limit caps the row count, optionally after skipping Offset rows (spec
// §4.4).
type Limit struct {
	Child  pdbsql.Node
	Count  pdbsql.Expression
	Offset pdbsql.Expression // nil = 0
}

func NewLimit(count, offset pdbsql.Expression, child pdbsql.Node) *Limit {
	return &Limit{Child: child, Count: count, Offset: offset}
}

func (l *Limit) Schema() pdbsql.Schema   { return l.Child.Schema() }
func (l *Limit) Children() []pdbsql.Node { return []pdbsql.Node{l.Child} }
func (l *Limit) Resolved() bool          { return l.Child.Resolved() }
func (l *Limit) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Limit: expected 1 child")
	}
	return NewLimit(l.Count, l.Offset, c[0]), nil
}
func (l *Limit) String() string { return "Limit" }

// AggExpr is one aggregate-function call in the SELECT/HAVING list.
type AggExpr struct {
	Func pdbsql.Expression // an aggregation.Function-implementing Expression
	Name string
}

// Aggregate implements GROUP BY + aggregate functions (spec §4.4, §4.7).
// With no GroupBy it computes exactly one row; for an empty input that row
// holds each aggregate's empty-input value (spec §4.7 edge case).
type Aggregate struct {
	Child   pdbsql.Node
	GroupBy []pdbsql.Expression
	Aggs    []AggExpr
}

func NewAggregate(groupBy []pdbsql.Expression, aggs []AggExpr, child pdbsql.Node) *Aggregate {
	return &Aggregate{Child: child, GroupBy: groupBy, Aggs: aggs}
}

func (a *Aggregate) Schema() pdbsql.Schema {
	out := make(pdbsql.Schema, 0, len(a.GroupBy)+len(a.Aggs))
	for i, g := range a.GroupBy {
		out = append(out, &pdbsql.ColumnDef{Name: fmt.Sprintf("group_%d", i), Type: g.Type(), Nullable: true})
	}
	for _, ag := range a.Aggs {
		out = append(out, &pdbsql.ColumnDef{Name: ag.Name, Type: ag.Func.Type(), Nullable: true})
	}
	return out
}
func (a *Aggregate) Children() []pdbsql.Node { return []pdbsql.Node{a.Child} }
func (a *Aggregate) Resolved() bool {
	if !a.Child.Resolved() {
		return false
	}
	for _, g := range a.GroupBy {
		if !g.Resolved() {
			return false
		}
	}
	for _, ag := range a.Aggs {
		if !ag.Func.Resolved() {
			return false
		}
	}
	return true
}
func (a *Aggregate) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Aggregate: expected 1 child")
	}
	return NewAggregate(a.GroupBy, a.Aggs, c[0]), nil
}
func (a *Aggregate) String() string { return fmt.Sprintf("Aggregate(%d group cols, %d aggs)", len(a.GroupBy), len(a.Aggs)) }

// JoinKind mirrors ast.JoinKind at the bound-plan level (spec §4.4).
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
	SemiJoin
	AntiJoin
)

// Join combines two inputs (spec §4.4, §4.8). Physical join strategy is
// decided by the analyzer's lowering and represented by a sql/rowexec
// operator, not by this logical node: HashJoin when equality keys can be
// extracted from Cond, NestedLoopJoin otherwise. There is no sort-merge
// join operator.
type Join struct {
	Left, Right pdbsql.Node
	Kind        JoinKind
	Cond        pdbsql.Expression // nil for CrossJoin
}

func NewJoin(kind JoinKind, cond pdbsql.Expression, left, right pdbsql.Node) *Join {
	return &Join{Left: left, Right: right, Kind: kind, Cond: cond}
}

func (j *Join) Schema() pdbsql.Schema {
	left := j.Left.Schema()
	if j.Kind == SemiJoin || j.Kind == AntiJoin {
		return left.Copy()
	}
	out := make(pdbsql.Schema, 0, len(left)+len(j.Right.Schema()))
	out = append(out, left...)
	out = append(out, j.Right.Schema()...)
	return out
}
func (j *Join) Children() []pdbsql.Node { return []pdbsql.Node{j.Left, j.Right} }
func (j *Join) Resolved() bool {
	if !j.Left.Resolved() || !j.Right.Resolved() {
		return false
	}
	return j.Cond == nil || j.Cond.Resolved()
}
func (j *Join) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("Join: expected 2 children")
	}
	return NewJoin(j.Kind, j.Cond, c[0], c[1]), nil
}
func (j *Join) String() string { return fmt.Sprintf("Join(kind=%d)", j.Kind) }
func (j *Join) Expressions() []pdbsql.Expression {
	if j.Cond == nil {
		return nil
	}
	return []pdbsql.Expression{j.Cond}
}
func (j *Join) WithExpressions(e ...pdbsql.Expression) (pdbsql.Node, error) {
	if len(e) == 0 {
		return NewJoin(j.Kind, nil, j.Left, j.Right), nil
	}
	return NewJoin(j.Kind, e[0], j.Left, j.Right), nil
}

// SetOpKind mirrors ast.SetOpKind (spec §4.4, §4.10).
type SetOpKind int

const (
	Union SetOpKind = iota
	Intersect
	Except
)

// SetOp implements UNION/INTERSECT/EXCEPT [ALL] with bag semantics (spec
// §4.10): All=false dedups the combined result. Schema() (below) trusts
// that Left and Right already agree on column count and widened type --
// binder.widenSetOpSides establishes that invariant before constructing
// one of these, wrapping either side in a Project/Cast as needed.
type SetOp struct {
	Left, Right pdbsql.Node
	Kind        SetOpKind
	All         bool
}

func NewSetOp(kind SetOpKind, all bool, left, right pdbsql.Node) *SetOp {
	return &SetOp{Left: left, Right: right, Kind: kind, All: all}
}

func (s *SetOp) Schema() pdbsql.Schema   { return s.Left.Schema() }
func (s *SetOp) Children() []pdbsql.Node { return []pdbsql.Node{s.Left, s.Right} }
func (s *SetOp) Resolved() bool          { return s.Left.Resolved() && s.Right.Resolved() }
func (s *SetOp) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("SetOp: expected 2 children")
	}
	return NewSetOp(s.Kind, s.All, c[0], c[1]), nil
}
func (s *SetOp) String() string { return fmt.Sprintf("SetOp(kind=%d, all=%v)", s.Kind, s.All) }

// RecursiveCTE implements `WITH RECURSIVE name AS (anchor UNION [ALL]
// recursive)` via semi-naive fixpoint evaluation (spec §4.11). IterCap
// bounds the number of fixpoint iterations (default 10000).
type RecursiveCTE struct {
	Name      string
	Anchor    pdbsql.Node
	Recursive pdbsql.Node // references Name via a WorkingTableScan placeholder
	All       bool
	IterCap   int
	schema    pdbsql.Schema
}

func NewRecursiveCTE(name string, anchor, recursive pdbsql.Node, all bool, iterCap int) *RecursiveCTE {
	if iterCap <= 0 {
		iterCap = 10000
	}
	return &RecursiveCTE{Name: name, Anchor: anchor, Recursive: recursive, All: all, IterCap: iterCap, schema: anchor.Schema()}
}

func (r *RecursiveCTE) Schema() pdbsql.Schema   { return r.schema }
func (r *RecursiveCTE) Children() []pdbsql.Node { return []pdbsql.Node{r.Anchor, r.Recursive} }
func (r *RecursiveCTE) Resolved() bool          { return r.Anchor.Resolved() && r.Recursive.Resolved() }
func (r *RecursiveCTE) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("RecursiveCTE: expected 2 children")
	}
	return NewRecursiveCTE(r.Name, c[0], c[1], r.All, r.IterCap), nil
}
func (r *RecursiveCTE) String() string { return fmt.Sprintf("RecursiveCTE(%s)", r.Name) }

// WorkingTableScan references the recursive CTE's working table from
// within its own recursive term (spec §4.11); substituted with the
// current iteration's delta batch at execution time.
type WorkingTableScan struct {
	Name   string
	schema pdbsql.Schema
}

func NewWorkingTableScan(name string, schema pdbsql.Schema) *WorkingTableScan {
	return &WorkingTableScan{Name: name, schema: schema}
}

func (w *WorkingTableScan) Schema() pdbsql.Schema   { return w.schema }
func (w *WorkingTableScan) Children() []pdbsql.Node { return nil }
func (w *WorkingTableScan) Resolved() bool          { return true }
func (w *WorkingTableScan) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 0 {
		return nil, pdbsql.ErrExecution.New("WorkingTableScan: expected 0 children")
	}
	return w, nil
}
func (w *WorkingTableScan) String() string { return fmt.Sprintf("WorkingTableScan(%s)", w.Name) }

// SubqueryAlias wraps a derived table / CTE reference, exposing its own
// alias as the qualifier for outer name resolution (spec §4.3).
type SubqueryAlias struct {
	Child pdbsql.Node
	Alias string
}

func NewSubqueryAlias(alias string, child pdbsql.Node) *SubqueryAlias {
	return &SubqueryAlias{Child: child, Alias: alias}
}

func (s *SubqueryAlias) Schema() pdbsql.Schema {
	base := s.Child.Schema()
	out := make(pdbsql.Schema, len(base))
	for i, c := range base {
		cp := *c
		cp.Qualifier = s.Alias
		out[i] = &cp
	}
	return out
}
func (s *SubqueryAlias) Children() []pdbsql.Node { return []pdbsql.Node{s.Child} }
func (s *SubqueryAlias) Resolved() bool          { return s.Child.Resolved() }
func (s *SubqueryAlias) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("SubqueryAlias: expected 1 child")
	}
	return NewSubqueryAlias(s.Alias, c[0]), nil
}
func (s *SubqueryAlias) String() string { return fmt.Sprintf("SubqueryAlias(%s)", s.Alias) }

// Window computes one or more OVER()-clause functions without collapsing
// rows (spec §4.4, §4.7/window table in §4.7). Unlike Aggregate, every
// input row survives; the window results are appended as new columns.
type WindowExpr struct {
	Func        pdbsql.Expression // a window-function-implementing Expression
	Name        string
	PartitionBy []pdbsql.Expression
	OrderBy     []SortField
	Frame       *FrameSpec // nil = no explicit frame: partition start through the current row, by position
}

// FrameUnit mirrors ast.FrameUnit at the bound level.
type FrameUnit int

const (
	FrameRows FrameUnit = iota
	FrameRange
	FrameGroups
)

type FrameBoundKind int

const (
	UnboundedPreceding FrameBoundKind = iota
	Preceding
	CurrentRow
	Following
	UnboundedFollowing
)

type FrameBound struct {
	Kind   FrameBoundKind
	Offset pdbsql.Expression
}

type FrameSpec struct {
	Unit  FrameUnit
	Start FrameBound
	End   FrameBound
}

// Window applies one or more window functions sharing the same input,
// each with its own partition/order/frame (spec §4.7).
type Window struct {
	Child pdbsql.Node
	Funcs []WindowExpr
}

func NewWindow(funcs []WindowExpr, child pdbsql.Node) *Window { return &Window{Child: child, Funcs: funcs} }

func (w *Window) Schema() pdbsql.Schema {
	base := w.Child.Schema()
	out := make(pdbsql.Schema, 0, len(base)+len(w.Funcs))
	out = append(out, base...)
	for _, f := range w.Funcs {
		out = append(out, &pdbsql.ColumnDef{Name: f.Name, Type: f.Func.Type(), Nullable: true})
	}
	return out
}
func (w *Window) Children() []pdbsql.Node { return []pdbsql.Node{w.Child} }
func (w *Window) Resolved() bool {
	if !w.Child.Resolved() {
		return false
	}
	for _, f := range w.Funcs {
		if !f.Func.Resolved() {
			return false
		}
	}
	return true
}
func (w *Window) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Window: expected 1 child")
	}
	return NewWindow(w.Funcs, c[0]), nil
}
func (w *Window) String() string { return fmt.Sprintf("Window(%d funcs)", len(w.Funcs)) }

// PivotAgg is one aggregate computed per pivoted value (spec §4.4, §6.2).
type PivotAgg struct {
	Func pdbsql.Expression
	Name string
}

// Pivot rotates distinct values of the FOR column(s) into columns, one per
// value in Values, aggregated by Aggs (spec §4.4 PIVOT).
type Pivot struct {
	Child   pdbsql.Node
	ForCols []pdbsql.Expression
	Values  []pdbsql.Expression // literal values defining output columns, in order
	Aggs    []PivotAgg
	GroupBy []pdbsql.Expression
}

func NewPivot(forCols, values []pdbsql.Expression, aggs []PivotAgg, groupBy []pdbsql.Expression, child pdbsql.Node) *Pivot {
	return &Pivot{Child: child, ForCols: forCols, Values: values, Aggs: aggs, GroupBy: groupBy}
}

func (p *Pivot) Schema() pdbsql.Schema {
	out := make(pdbsql.Schema, 0, len(p.GroupBy)+len(p.Values)*len(p.Aggs))
	for i, g := range p.GroupBy {
		out = append(out, &pdbsql.ColumnDef{Name: fmt.Sprintf("group_%d", i), Type: g.Type(), Nullable: true})
	}
	for _, v := range p.Values {
		for _, a := range p.Aggs {
			out = append(out, &pdbsql.ColumnDef{Name: fmt.Sprintf("%v_%s", v, a.Name), Type: a.Func.Type(), Nullable: true})
		}
	}
	return out
}
func (p *Pivot) Children() []pdbsql.Node { return []pdbsql.Node{p.Child} }
func (p *Pivot) Resolved() bool          { return p.Child.Resolved() }
func (p *Pivot) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Pivot: expected 1 child")
	}
	return NewPivot(p.ForCols, p.Values, p.Aggs, p.GroupBy, c[0]), nil
}
func (p *Pivot) String() string { return "Pivot" }

// Unpivot rotates ValueColumns into two columns: NameColumn (the source
// column's name) and ValueColumn (its value), one output row per input row
// per source column (spec §4.4 UNPIVOT). IncludeNulls controls whether
// source columns holding NULL still produce an output row.
type Unpivot struct {
	Child        pdbsql.Node
	ValueColumns []string
	NameColumn   string
	ValueColumn  string
	IncludeNulls bool
}

func NewUnpivot(valueColumns []string, nameCol, valueCol string, includeNulls bool, child pdbsql.Node) *Unpivot {
	return &Unpivot{Child: child, ValueColumns: valueColumns, NameColumn: nameCol, ValueColumn: valueCol, IncludeNulls: includeNulls}
}

func (u *Unpivot) Schema() pdbsql.Schema {
	base := u.Child.Schema()
	keepSet := map[string]bool{}
	for _, n := range u.ValueColumns {
		keepSet[strings.ToLower(n)] = true
	}
	var out pdbsql.Schema
	for _, c := range base {
		if !keepSet[strings.ToLower(c.Name)] {
			out = append(out, c)
		}
	}
	out = append(out, &pdbsql.ColumnDef{Name: u.NameColumn, Type: pdbsql.Text, Nullable: false})
	out = append(out, &pdbsql.ColumnDef{Name: u.ValueColumn, Type: base[0].Type, Nullable: true})
	return out
}
func (u *Unpivot) Children() []pdbsql.Node { return []pdbsql.Node{u.Child} }
func (u *Unpivot) Resolved() bool          { return u.Child.Resolved() }
func (u *Unpivot) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Unpivot: expected 1 child")
	}
	return NewUnpivot(u.ValueColumns, u.NameColumn, u.ValueColumn, u.IncludeNulls, c[0]), nil
}
func (u *Unpivot) String() string { return "Unpivot" }

// ---- DML / DDL ----

// Insert writes rows produced by Source into Table (spec §4.12).
type Insert struct {
	TableName string
	Table     pdbsql.Table
	Columns   []string
	Source    pdbsql.Node
}

func NewInsert(tableName string, table pdbsql.Table, columns []string, source pdbsql.Node) *Insert {
	return &Insert{TableName: tableName, Table: table, Columns: columns, Source: source}
}

func (i *Insert) Schema() pdbsql.Schema {
	return pdbsql.Schema{{Name: "rows_affected", Type: pdbsql.Int64}}
}
func (i *Insert) Children() []pdbsql.Node { return []pdbsql.Node{i.Source} }
func (i *Insert) Resolved() bool          { return i.Source.Resolved() }
func (i *Insert) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Insert: expected 1 child")
	}
	return NewInsert(i.TableName, i.Table, i.Columns, c[0]), nil
}
func (i *Insert) String() string { return fmt.Sprintf("Insert(%s)", i.TableName) }

// Update sets Assignments on every row of Child that survives its own
// internal filter (already folded in as a Filter ancestor of Child, spec
// §4.12).
type Assignment struct {
	ColumnIndex int
	Value       pdbsql.Expression
}

type Update struct {
	TableName   string
	Table       pdbsql.Table
	Assignments []Assignment
	Child       pdbsql.Node
}

func NewUpdate(tableName string, table pdbsql.Table, assignments []Assignment, child pdbsql.Node) *Update {
	return &Update{TableName: tableName, Table: table, Assignments: assignments, Child: child}
}

func (u *Update) Schema() pdbsql.Schema {
	return pdbsql.Schema{{Name: "rows_affected", Type: pdbsql.Int64}}
}
func (u *Update) Children() []pdbsql.Node { return []pdbsql.Node{u.Child} }
func (u *Update) Resolved() bool          { return u.Child.Resolved() }
func (u *Update) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Update: expected 1 child")
	}
	return NewUpdate(u.TableName, u.Table, u.Assignments, c[0]), nil
}
func (u *Update) String() string { return fmt.Sprintf("Update(%s)", u.TableName) }

// Delete removes every row of Child (spec §4.12).
type Delete struct {
	TableName string
	Table     pdbsql.Table
	Child     pdbsql.Node
}

func NewDelete(tableName string, table pdbsql.Table, child pdbsql.Node) *Delete {
	return &Delete{TableName: tableName, Table: table, Child: child}
}

func (d *Delete) Schema() pdbsql.Schema {
	return pdbsql.Schema{{Name: "rows_affected", Type: pdbsql.Int64}}
}
func (d *Delete) Children() []pdbsql.Node { return []pdbsql.Node{d.Child} }
func (d *Delete) Resolved() bool          { return d.Child.Resolved() }
func (d *Delete) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Delete: expected 1 child")
	}
	return NewDelete(d.TableName, d.Table, c[0]), nil
}
func (d *Delete) String() string { return fmt.Sprintf("Delete(%s)", d.TableName) }

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

// DropTable removes a table from the catalog (spec §4.12).
type DropTable struct {
	Schema_ pdbsql.Schema_
	Name    string
}

func NewDropTable(schema_ pdbsql.Schema_, name string) *DropTable { return &DropTable{Schema_: schema_, Name: name} }

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
