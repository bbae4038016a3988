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

package analyzer

import (
	"strings"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression/function/window"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
	"github.com/TuringWorks/PrismDB-sub000/sql/rowexec"
)

// Lower turns an optimized logical plan.Node tree into its sql/rowexec
// physical counterpart (spec §4.5's lowering targets). It is a plain
// postorder type switch rather than transform.NodeUp, since each logical
// node type maps to a *different* Go type in the physical tree --
// transform's generic rewrite assumes a rule stays within one node's own
// WithChildren, which physical nodes (built from a different package)
// don't share.
func Lower(node pdbsql.Node) (pdbsql.Executable, error) {
	switch n := node.(type) {
	case *plan.TableScan:
		return rowexec.NewScan(n.Table, n.Schema(), n.Alias, n.Filters, n.Limit, n.Projected), nil

	case *plan.Values:
		return rowexec.NewValues(n.Schema(), n.Rows), nil

	case *plan.WorkingTableScan:
		return rowexec.NewWorkingTable(n.Name, n.Schema()), nil

	case *plan.SubqueryAlias:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		return rowexec.NewSubqueryAlias(n.Alias, child, n.Schema()), nil

	case *plan.Filter:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		return rowexec.NewFilter(n.Predicate, child), nil

	case *plan.Project:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		items := make([]rowexec.ProjectItem, len(n.Items))
		for i, it := range n.Items {
			items[i] = rowexec.ProjectItem{Expr: it.Expr, Name: it.Name}
		}
		return rowexec.NewProject(items, child), nil

	case *plan.Sort:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		fields := make([]rowexec.SortField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = rowexec.SortField{Expr: f.Expr, Desc: f.Desc, NullsFirst: f.NullsFirst}
		}
		return rowexec.NewSort(fields, child), nil

	case *plan.Limit:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		return rowexec.NewLimit(n.Count, n.Offset, child), nil

	case *plan.Aggregate:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		aggs := make([]rowexec.AggExpr, len(n.Aggs))
		for i, a := range n.Aggs {
			aggs[i] = rowexec.AggExpr{Func: a.Func, Name: a.Name}
		}
		return rowexec.NewHashAggregate(n.GroupBy, aggs, child), nil

	case *plan.Join:
		return lowerJoin(n)

	case *plan.SetOp:
		left, err := Lower(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := Lower(n.Right)
		if err != nil {
			return nil, err
		}
		return rowexec.NewSetOp(rowexec.SetOpKind(n.Kind), n.All, left, right), nil

	case *plan.RecursiveCTE:
		anchor, err := Lower(n.Anchor)
		if err != nil {
			return nil, err
		}
		recursive, err := Lower(n.Recursive)
		if err != nil {
			return nil, err
		}
		working := findWorkingTable(recursive)
		return rowexec.NewRecursiveCTE(n.Name, anchor, recursive, working, n.All, n.IterCap), nil

	case *plan.Window:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		funcs := make([]rowexec.WindowExpr, len(n.Funcs))
		for i, f := range n.Funcs {
			wf, ok := f.Func.(window.Function)
			if !ok {
				return nil, pdbsql.ErrExecution.New(f.Name + ": not a window function expression")
			}
			orderBy := make([]rowexec.SortField, len(f.OrderBy))
			for j, ob := range f.OrderBy {
				orderBy[j] = rowexec.SortField{Expr: ob.Expr, Desc: ob.Desc, NullsFirst: ob.NullsFirst}
			}
			funcs[i] = rowexec.WindowExpr{
				Func:        wf,
				Name:        f.Name,
				PartitionBy: f.PartitionBy,
				OrderBy:     orderBy,
				Frame:       lowerFrameSpec(f.Frame),
			}
		}
		return rowexec.NewWindow(funcs, child), nil

	case *plan.Pivot:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		aggs := make([]rowexec.PivotAgg, len(n.Aggs))
		for i, a := range n.Aggs {
			aggs[i] = rowexec.PivotAgg{Func: a.Func, Name: a.Name}
		}
		return rowexec.NewPivot(n.ForCols, n.Values, aggs, n.GroupBy, child), nil

	case *plan.Unpivot:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		return rowexec.NewUnpivot(n.ValueColumns, n.NameColumn, n.ValueColumn, n.IncludeNulls, child), nil

	case *plan.Insert:
		source, err := Lower(n.Source)
		if err != nil {
			return nil, err
		}
		return rowexec.NewInsert(n.TableName, n.Table, source), nil

	case *plan.Update:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		assigns := make([]rowexec.Assignment, len(n.Assignments))
		for i, a := range n.Assignments {
			assigns[i] = rowexec.Assignment{ColumnIndex: a.ColumnIndex, Value: a.Value}
		}
		return rowexec.NewUpdate(n.TableName, n.Table, assigns, child), nil

	case *plan.Delete:
		child, err := Lower(n.Child)
		if err != nil {
			return nil, err
		}
		return rowexec.NewDelete(n.TableName, n.Table, child), nil

	case *plan.CreateTable:
		return rowexec.NewCreateTable(n.Schema_, n.Info), nil

	case *plan.DropTable:
		return rowexec.NewDropTable(n.Schema_, n.Name), nil

	case *plan.Explain:
		return rowexec.NewExplain(n.Inner, renderExplain(n.Inner, 0)), nil

	case *plan.Tx:
		return rowexec.NewTx(rowexec.TxKind(n.Kind)), nil

	case *plan.Show:
		return nil, pdbsql.ErrExecution.New("Show: requires a catalog schema handle, lower via LowerShow")

	case *plan.SetVar:
		return rowexec.NewSetVar(n.Name, n.Value), nil

	case *plan.Util:
		return rowexec.NewUtil(rowexec.UtilKind(n.Kind), n.Name), nil

	default:
		return nil, pdbsql.ErrExecution.New("no physical lowering for node type")
	}
}

// LowerShow lowers a plan.Show, which additionally needs the catalog's
// default schema handle that only the caller (engine.go) has at hand.
func LowerShow(n *plan.Show, schema_ pdbsql.Schema_) (pdbsql.Executable, error) {
	return rowexec.NewShow(rowexec.ShowKind(n.Kind), n.Arg, schema_), nil
}

func lowerJoin(n *plan.Join) (pdbsql.Executable, error) {
	left, err := Lower(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := Lower(n.Right)
	if err != nil {
		return nil, err
	}
	kind := rowexec.JoinKind(n.Kind)

	if n.Cond == nil {
		return rowexec.NewNestedLoopJoin(kind, nil, left, right), nil
	}

	leftWidth := len(n.Left.Schema())
	keys, residual := rowexec.ExtractEquiKeys(n.Cond, leftWidth)
	if len(keys) == 0 {
		return rowexec.NewNestedLoopJoin(kind, n.Cond, left, right), nil
	}
	return rowexec.NewHashJoin(kind, keys, residual, left, right), nil
}

// findWorkingTable locates the WorkingTable physical node inside a lowered
// recursive term so the driver can rebind its Delta each iteration (spec
// §4.11); the binder guarantees exactly one WorkingTableScan per
// recursive term.
func findWorkingTable(node pdbsql.Node) *rowexec.WorkingTable {
	if w, ok := node.(*rowexec.WorkingTable); ok {
		return w
	}
	for _, c := range node.Children() {
		if w := findWorkingTable(c); w != nil {
			return w
		}
	}
	return nil
}

func lowerFrameSpec(f *plan.FrameSpec) *rowexec.FrameSpec {
	if f == nil {
		return nil
	}
	return &rowexec.FrameSpec{
		Unit:  rowexec.FrameUnit(f.Unit),
		Start: rowexec.FrameBound{Kind: rowexec.FrameBoundKind(f.Start.Kind), Offset: f.Start.Offset},
		End:   rowexec.FrameBound{Kind: rowexec.FrameBoundKind(f.End.Kind), Offset: f.End.Offset},
	}
}

// renderExplain indents each node's String() by its depth in the tree,
// the simplest textual rendering that still shows structure (spec §6.2
// EXPLAIN).
func renderExplain(n pdbsql.Node, depth int) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.String())
	for _, c := range n.Children() {
		b.WriteString("\n")
		b.WriteString(renderExplain(c, depth+1))
	}
	return b.String()
}
