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
	"sort"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression/function/window"
)

// WindowExpr is one OVER()-clause call (spec §4.8).
type WindowExpr struct {
	Func        window.Function
	Name        string
	PartitionBy []pdbsql.Expression
	OrderBy     []SortField
	Frame       *FrameSpec // nil = default frame
}

// FrameUnit/FrameBoundKind/FrameBound/FrameSpec mirror plan's bound-level
// frame description, carried down to the physical operator so it can call
// window.ResolveFrame per row.
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

// Window computes one or more window functions without collapsing rows
// (spec §4.7): partition, sort each partition by its call's ORDER BY,
// resolve a Frame per row, then call Function.Compute.
type Window struct {
	Child pdbsql.Executable
	Funcs []WindowExpr
}

func NewWindow(funcs []WindowExpr, child pdbsql.Executable) *Window {
	return &Window{Child: child, Funcs: funcs}
}

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
func (w *Window) Resolved() bool          { return w.Child.Resolved() }
func (w *Window) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New("Window: expected 1 child")
	}
	ce, ok := c[0].(pdbsql.Executable)
	if !ok {
		return nil, pdbsql.ErrExecution.New("Window: child must be physical")
	}
	return NewWindow(w.Funcs, ce), nil
}
func (w *Window) String() string { return fmt.Sprintf("Window(%d funcs)", len(w.Funcs)) }

func (w *Window) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	rows, err := childRows(ctx, w.Child)
	if err != nil {
		return nil, err
	}
	all, err := drain(ctx, rows)
	if err != nil {
		return nil, err
	}

	baseWidth := len(w.Child.Schema())
	results := make([][]interface{}, len(all))
	for i := range results {
		results[i] = make([]interface{}, len(w.Funcs))
	}

	for fi, f := range w.Funcs {
		parts, err := partitionRows(ctx, all, f.PartitionBy)
		if err != nil {
			return nil, err
		}
		for _, part := range parts {
			sortPartition(ctx, part.rows, f.OrderBy)
			for pos, idx := range part.origIdx {
				frame, err := resolveRowFrame(ctx, f.Frame, len(part.rows), pos)
				if err != nil {
					return nil, err
				}
				v, err := f.Func.Compute(ctx, part.rows, pos, frame)
				if err != nil {
					return nil, err
				}
				results[idx][fi] = v
			}
		}
	}

	out := make([]pdbsql.Row, len(all))
	for i, r := range all {
		row := make(pdbsql.Row, 0, baseWidth+len(w.Funcs))
		row = append(row, r...)
		row = append(row, results[i]...)
		out[i] = row
	}
	return rowsToBatchIter(w.Schema(), out), nil
}

type partitionGroup struct {
	rows    []pdbsql.Row
	origIdx []int // original position in `all` for each entry of rows, kept in sync by sortPartition
}

func partitionRows(ctx *pdbsql.Context, all []pdbsql.Row, partitionBy []pdbsql.Expression) ([]*partitionGroup, error) {
	if len(partitionBy) == 0 {
		g := &partitionGroup{rows: make([]pdbsql.Row, len(all)), origIdx: make([]int, len(all))}
		copy(g.rows, all)
		for i := range all {
			g.origIdx[i] = i
		}
		return []*partitionGroup{g}, nil
	}
	groups := map[string]*partitionGroup{}
	var order []string
	for i, row := range all {
		key := make(pdbsql.Row, len(partitionBy))
		for j, e := range partitionBy {
			v, err := e.Eval(ctx, row)
			if err != nil {
				return nil, err
			}
			key[j] = v
		}
		ks := fmt.Sprintf("%v", key)
		g, ok := groups[ks]
		if !ok {
			g = &partitionGroup{}
			groups[ks] = g
			order = append(order, ks)
		}
		g.rows = append(g.rows, row)
		g.origIdx = append(g.origIdx, i)
	}
	out := make([]*partitionGroup, len(order))
	for i, k := range order {
		out[i] = groups[k]
	}
	return out, nil
}

// sortPartition orders a partition's rows by its call's ORDER BY,
// permuting origIdx in lockstep so computed results map back correctly.
func sortPartition(ctx *pdbsql.Context, rows []pdbsql.Row, fields []SortField) {
	if len(fields) == 0 {
		return
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		less, _ := sortLess(ctx, fields, rows[idx[i]], rows[idx[j]])
		return less
	})
	newRows := make([]pdbsql.Row, len(rows))
	for i, oi := range idx {
		newRows[i] = rows[oi]
	}
	copy(rows, newRows)
}

func sortLess(ctx *pdbsql.Context, fields []SortField, a, b pdbsql.Row) (bool, error) {
	s := &Sort{Fields: fields}
	return s.less(ctx, a, b)
}

func resolveRowFrame(ctx *pdbsql.Context, spec *FrameSpec, size, pos int) (window.Frame, error) {
	if spec == nil {
		return window.ResolveFrame(size, pos, "UNBOUNDED_PRECEDING", "CURRENT_ROW", 0, 0)
	}
	startKind, startOff := boundArgs(ctx, spec.Start)
	endKind, endOff := boundArgs(ctx, spec.End)
	return window.ResolveFrame(size, pos, startKind, endKind, startOff, endOff)
}

func boundArgs(ctx *pdbsql.Context, b FrameBound) (string, int) {
	switch b.Kind {
	case UnboundedPreceding:
		return "UNBOUNDED_PRECEDING", 0
	case UnboundedFollowing:
		return "UNBOUNDED_FOLLOWING", 0
	case CurrentRow:
		return "CURRENT_ROW", 0
	case Preceding:
		return "PRECEDING", boundOffset(ctx, b.Offset)
	default: // Following
		return "FOLLOWING", boundOffset(ctx, b.Offset)
	}
}

func boundOffset(ctx *pdbsql.Context, e pdbsql.Expression) int {
	if e == nil {
		return 0
	}
	v, err := e.Eval(ctx, nil)
	if err != nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
