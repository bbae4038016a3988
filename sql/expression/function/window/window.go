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

// Package window implements the window-function engine (spec §4.8),
// grounded on the teacher's aggregation/window package: partition sort,
// per-row frame computation, then one Function.Compute call per row.
package window

import (
	"fmt"
	"math"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression/function/aggregation"
)

// Frame is a resolved, partition-relative [Start, End] inclusive row range
// (spec §4.8).
type Frame struct {
	Start, End int
}

// Function computes one window call's value at a given row, given the
// full sorted partition and that row's resolved frame. Implementations
// that are frame-independent (ROW_NUMBER, RANK, ...) ignore frame.
type Function interface {
	pdbsql.Expression
	// Compute returns the value for partition row `pos` (0-based, already
	// sorted by the call's ORDER BY), given the whole partition and the
	// resolved frame for this row.
	Compute(ctx *pdbsql.Context, partition []pdbsql.Row, pos int, frame Frame) (interface{}, error)
}

type base struct {
	name string
	Arg  pdbsql.Expression
	typ  pdbsql.Type
}

func (b *base) Type() pdbsql.Type    { return b.typ }
func (b *base) IsNullable() bool     { return true }
func (b *base) Resolved() bool       { return b.Arg == nil || b.Arg.Resolved() }
func (b *base) String() string       { return fmt.Sprintf("%s(%s)", b.name, argString(b.Arg)) }
func (b *base) Children() []pdbsql.Expression {
	if b.Arg == nil {
		return nil
	}
	return []pdbsql.Expression{b.Arg}
}
func (b *base) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	return nil, pdbsql.ErrExecution.New(b.name + " must be evaluated through Compute over its partition, not Eval")
}

func argString(e pdbsql.Expression) string {
	if e == nil {
		return ""
	}
	return e.String()
}

// ---- ROW_NUMBER / RANK / DENSE_RANK ----

type rankKind int

const (
	rowNumber rankKind = iota
	rank
	denseRank
)

type Rank struct {
	base
	kind    rankKind
	OrderBy []pdbsql.Expression
}

func NewRowNumber() *Rank  { return &Rank{base: base{name: "ROW_NUMBER", typ: pdbsql.Int64}, kind: rowNumber} }
func NewRank(orderBy []pdbsql.Expression) *Rank {
	return &Rank{base: base{name: "RANK", typ: pdbsql.Int64}, kind: rank, OrderBy: orderBy}
}
func NewDenseRank(orderBy []pdbsql.Expression) *Rank {
	return &Rank{base: base{name: "DENSE_RANK", typ: pdbsql.Int64}, kind: denseRank, OrderBy: orderBy}
}
func (r *Rank) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 0 {
		return nil, pdbsql.ErrExecution.New(r.name + ": expected 0 children")
	}
	return r, nil
}
func (r *Rank) Compute(ctx *pdbsql.Context, partition []pdbsql.Row, pos int, frame Frame) (interface{}, error) {
	switch r.kind {
	case rowNumber:
		return int64(pos + 1), nil
	case rank:
		tied := 0
		for i := 0; i < pos; i++ {
			eq, err := rowsEqualByOrder(ctx, r.OrderBy, partition[i], partition[pos])
			if err != nil {
				return nil, err
			}
			if !eq {
				tied = i + 1
			}
		}
		return int64(tied + 1), nil
	default: // denseRank
		distinct := 1
		for i := 1; i <= pos; i++ {
			eq, err := rowsEqualByOrder(ctx, r.OrderBy, partition[i-1], partition[i])
			if err != nil {
				return nil, err
			}
			if !eq {
				distinct++
			}
		}
		return int64(distinct), nil
	}
}

func rowsEqualByOrder(ctx *pdbsql.Context, orderBy []pdbsql.Expression, a, b pdbsql.Row) (bool, error) {
	for _, e := range orderBy {
		av, err := e.Eval(ctx, a)
		if err != nil {
			return false, err
		}
		bv, err := e.Eval(ctx, b)
		if err != nil {
			return false, err
		}
		_, cmp, err := pdbsql.CompareValues(e.Type(), av, bv)
		if err != nil {
			return false, err
		}
		if cmp != 0 {
			return false, nil
		}
	}
	return true, nil
}

// ---- PERCENT_RANK / CUME_DIST ----

type PercentRank struct {
	base
	OrderBy []pdbsql.Expression
}

func NewPercentRank(orderBy []pdbsql.Expression) *PercentRank {
	return &PercentRank{base{name: "PERCENT_RANK", typ: pdbsql.Float64}, orderBy}
}
func (p *PercentRank) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 0 {
		return nil, pdbsql.ErrExecution.New("PERCENT_RANK: expected 0 children")
	}
	return p, nil
}
func (p *PercentRank) Compute(ctx *pdbsql.Context, partition []pdbsql.Row, pos int, frame Frame) (interface{}, error) {
	n := len(partition)
	if n < 2 {
		return 0.0, nil
	}
	tied := 0
	for i := 0; i < pos; i++ {
		eq, err := rowsEqualByOrder(ctx, p.OrderBy, partition[i], partition[pos])
		if err != nil {
			return nil, err
		}
		if !eq {
			tied = i + 1
		}
	}
	return float64(tied) / float64(n-1), nil
}

type CumeDist struct {
	base
	OrderBy []pdbsql.Expression
}

func NewCumeDist(orderBy []pdbsql.Expression) *CumeDist {
	return &CumeDist{base{name: "CUME_DIST", typ: pdbsql.Float64}, orderBy}
}
func (c *CumeDist) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 0 {
		return nil, pdbsql.ErrExecution.New("CUME_DIST: expected 0 children")
	}
	return c, nil
}
func (c *CumeDist) Compute(ctx *pdbsql.Context, partition []pdbsql.Row, pos int, frame Frame) (interface{}, error) {
	n := len(partition)
	count := 0
	for i := 0; i < n; i++ {
		le, err := rowLessOrEqualByOrder(ctx, c.OrderBy, partition[i], partition[pos])
		if err != nil {
			return nil, err
		}
		if le {
			count++
		}
	}
	return float64(count) / float64(n), nil
}

func rowLessOrEqualByOrder(ctx *pdbsql.Context, orderBy []pdbsql.Expression, a, b pdbsql.Row) (bool, error) {
	for _, e := range orderBy {
		av, err := e.Eval(ctx, a)
		if err != nil {
			return false, err
		}
		bv, err := e.Eval(ctx, b)
		if err != nil {
			return false, err
		}
		_, cmp, err := pdbsql.CompareValues(e.Type(), av, bv)
		if err != nil {
			return false, err
		}
		if cmp != 0 {
			return cmp < 0, nil
		}
	}
	return true, nil
}

// ---- NTILE ----

type NTile struct {
	base
	Buckets int
}

func NewNTile(buckets int) *NTile { return &NTile{base{name: "NTILE", typ: pdbsql.Int64}, buckets} }
func (n *NTile) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 0 {
		return nil, pdbsql.ErrExecution.New("NTILE: expected 0 children")
	}
	return n, nil
}
func (n *NTile) Compute(ctx *pdbsql.Context, partition []pdbsql.Row, pos int, frame Frame) (interface{}, error) {
	size := len(partition)
	k := n.Buckets
	if k <= 0 {
		return nil, pdbsql.ErrInvalidValue.New("NTILE bucket count must be positive")
	}
	base := size / k
	extra := size % k
	// first `extra` buckets get base+1 rows, the rest get base rows.
	bucket := 1
	remaining := pos
	for b := 0; b < k; b++ {
		sz := base
		if b < extra {
			sz++
		}
		if remaining < sz {
			bucket = b + 1
			break
		}
		remaining -= sz
	}
	return int64(bucket), nil
}

// ---- LAG / LEAD ----

type lagLead struct {
	base
	Offset  int
	Default pdbsql.Expression // may be nil -> NULL
	forward bool
}

func NewLag(arg pdbsql.Expression, offset int, def pdbsql.Expression) *lagLead {
	return &lagLead{base{name: "LAG", Arg: arg, typ: arg.Type()}, offset, def, false}
}
func NewLead(arg pdbsql.Expression, offset int, def pdbsql.Expression) *lagLead {
	return &lagLead{base{name: "LEAD", Arg: arg, typ: arg.Type()}, offset, def, true}
}
func (l *lagLead) Children() []pdbsql.Expression {
	if l.Default == nil {
		return []pdbsql.Expression{l.Arg}
	}
	return []pdbsql.Expression{l.Arg, l.Default}
}
func (l *lagLead) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) < 1 || len(ch) > 2 {
		return nil, pdbsql.ErrExecution.New(l.name + ": expected 1 or 2 children")
	}
	var def pdbsql.Expression
	if len(ch) == 2 {
		def = ch[1]
	}
	if l.forward {
		return NewLead(ch[0], l.Offset, def), nil
	}
	return NewLag(ch[0], l.Offset, def), nil
}
func (l *lagLead) Compute(ctx *pdbsql.Context, partition []pdbsql.Row, pos int, frame Frame) (interface{}, error) {
	target := pos - l.Offset
	if l.forward {
		target = pos + l.Offset
	}
	if target < 0 || target >= len(partition) {
		if l.Default == nil {
			return nil, nil
		}
		return l.Default.Eval(ctx, partition[pos])
	}
	return l.Arg.Eval(ctx, partition[target])
}

// ---- FIRST_VALUE / LAST_VALUE / NTH_VALUE ----

type frameValue struct {
	base
	kind string // "first", "last", "nth"
	N    int
}

func NewFirstValue(arg pdbsql.Expression) *frameValue {
	return &frameValue{base{name: "FIRST_VALUE", Arg: arg, typ: arg.Type()}, "first", 0}
}
func NewLastValue(arg pdbsql.Expression) *frameValue {
	return &frameValue{base{name: "LAST_VALUE", Arg: arg, typ: arg.Type()}, "last", 0}
}
func NewNthValue(arg pdbsql.Expression, n int) *frameValue {
	return &frameValue{base{name: "NTH_VALUE", Arg: arg, typ: arg.Type()}, "nth", n}
}
func (f *frameValue) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New(f.name + ": expected 1 child")
	}
	switch f.kind {
	case "first":
		return NewFirstValue(ch[0]), nil
	case "last":
		return NewLastValue(ch[0]), nil
	default:
		return NewNthValue(ch[0], f.N), nil
	}
}
func (f *frameValue) Compute(ctx *pdbsql.Context, partition []pdbsql.Row, pos int, frame Frame) (interface{}, error) {
	if frame.Start > frame.End || frame.Start < 0 || frame.End >= len(partition) {
		return nil, pdbsql.ErrInvalidFrame.New(fmt.Sprintf("start=%d end=%d size=%d", frame.Start, frame.End, len(partition)))
	}
	switch f.kind {
	case "first":
		return f.Arg.Eval(ctx, partition[frame.Start])
	case "last":
		return f.Arg.Eval(ctx, partition[frame.End])
	default:
		idx := frame.Start + f.N - 1
		if idx < frame.Start || idx > frame.End {
			return nil, nil
		}
		return f.Arg.Eval(ctx, partition[idx])
	}
}

// ---- frame aggregates: SUM/AVG/COUNT/MIN/MAX over the resolved frame ----

// AggOverFrame wraps an aggregation.Function so it can be recomputed over
// each row's resolved frame slice (spec §4.8's last clause). It re-runs
// Update across the frame each call rather than maintaining an
// incremental accumulator, trading some recomputation for reusing the
// exact same aggregate state machine as the non-windowed path.
type AggOverFrame struct {
	base
	AggBuilder func() aggregation.Buffer
	aggName    string
}

func NewAggOverFrame(name string, arg pdbsql.Expression, typ pdbsql.Type, newBuffer func() aggregation.Buffer) *AggOverFrame {
	return &AggOverFrame{base{name: name, Arg: arg, typ: typ}, newBuffer, name}
}
func (a *AggOverFrame) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New(a.name + ": expected 1 child")
	}
	n := *a
	n.Arg = ch[0]
	return &n, nil
}
func (a *AggOverFrame) Compute(ctx *pdbsql.Context, partition []pdbsql.Row, pos int, frame Frame) (interface{}, error) {
	if frame.Start > frame.End {
		return nil, pdbsql.ErrInvalidFrame.New(fmt.Sprintf("start=%d > end=%d", frame.Start, frame.End))
	}
	buf := a.AggBuilder()
	for i := frame.Start; i <= frame.End && i < len(partition); i++ {
		if i < 0 {
			continue
		}
		if err := buf.Update(ctx, partition[i]); err != nil {
			return nil, err
		}
	}
	return buf.Eval(ctx)
}

// ResolveFrame converts a ROWS-unit frame spec to a resolved [start, end]
// partition-relative range for row `pos` in a partition of `size` rows
// (spec §4.8's ROWS-unit physical-offset rules). RANGE/GROUPS units are
// treated identically, per spec.
func ResolveFrame(size, pos int, startKind, endKind string, startOffset, endOffset int) (Frame, error) {
	start, err := resolveBound(size, pos, startKind, startOffset, true)
	if err != nil {
		return Frame{}, err
	}
	end, err := resolveBound(size, pos, endKind, endOffset, false)
	if err != nil {
		return Frame{}, err
	}
	if start > end {
		return Frame{}, pdbsql.ErrInvalidFrame.New(fmt.Sprintf("start %d > end %d", start, end))
	}
	return Frame{Start: start, End: end}, nil
}

func resolveBound(size, pos int, kind string, offset int, isStart bool) (int, error) {
	switch kind {
	case "UNBOUNDED_PRECEDING":
		if !isStart {
			return 0, pdbsql.ErrInvalidFrame.New("end bound cannot be UNBOUNDED PRECEDING")
		}
		return 0, nil
	case "UNBOUNDED_FOLLOWING":
		if isStart {
			return 0, pdbsql.ErrInvalidFrame.New("start bound cannot be UNBOUNDED FOLLOWING")
		}
		return size - 1, nil
	case "CURRENT_ROW":
		return pos, nil
	case "PRECEDING":
		return int(math.Max(0, float64(pos-offset))), nil
	case "FOLLOWING":
		return int(math.Min(float64(size-1), float64(pos+offset))), nil
	default:
		return 0, pdbsql.ErrInvalidFrame.New("unknown frame bound kind: " + kind)
	}
}
