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

// Package aggregation implements the aggregate function engine (spec
// §4.7). Every aggregate is a state machine of three operations --
// Update/Merge/Eval -- so the executor can partition the input across
// substreams, fold each substream independently, and pairwise-merge the
// resulting states: the parallel merge invariant requires that this
// produces the same finalized value (up to floating-point associativity)
// as one serial scan.
package aggregation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// Buffer is one aggregate's running state. Buffers must be safe to copy by
// value or deep-copy via Merge's receiver semantics; the executor never
// mutates a buffer it has already handed off to another goroutine.
type Buffer interface {
	Update(ctx *pdbsql.Context, row pdbsql.Row) error
	Merge(other Buffer) error
	Eval(ctx *pdbsql.Context) (interface{}, error)
}

// Function is an aggregate-function-valued Expression: calling NewBuffer
// starts a fresh accumulation; Eval (inherited from pdbsql.Expression) is
// never called directly by the executor for aggregates -- NewBuffer/Update
// /Eval on the Buffer is the real evaluation path. Function still
// satisfies pdbsql.Expression so it can live in a plan's Expressions()
// list alongside scalar expressions.
type Function interface {
	pdbsql.Expression
	NewBuffer() Buffer
	// Distinct reports whether duplicate argument values should only be
	// counted once (COUNT(DISTINCT x) etc).
	Distinct() bool
}

// base implements the pdbsql.Expression plumbing shared by every
// aggregate: a single argument (COUNT(*) uses a nil Arg), a declared
// result type, and a distinct flag.
type base struct {
	name     string
	Arg      pdbsql.Expression
	typ      pdbsql.Type
	distinct bool
}

func (b *base) Type() pdbsql.Type    { return b.typ }
func (b *base) IsNullable() bool     { return true }
func (b *base) Resolved() bool       { return b.Arg == nil || b.Arg.Resolved() }
func (b *base) Distinct() bool       { return b.distinct }
func (b *base) Children() []pdbsql.Expression {
	if b.Arg == nil {
		return nil
	}
	return []pdbsql.Expression{b.Arg}
}
func (b *base) String() string {
	if b.Arg == nil {
		return fmt.Sprintf("%s(*)", b.name)
	}
	if b.distinct {
		return fmt.Sprintf("%s(DISTINCT %s)", b.name, b.Arg)
	}
	return fmt.Sprintf("%s(%s)", b.name, b.Arg)
}

// Eval is never the real evaluation path for an aggregate (see Function
// doc); it is only defined so base satisfies pdbsql.Expression.
func (b *base) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	return nil, pdbsql.ErrExecution.New(b.name + " must be evaluated through its Buffer, not Eval")
}

func argValue(arg pdbsql.Expression, ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	if arg == nil {
		return true, nil // COUNT(*) sentinel: never nil, always counted
	}
	return arg.Eval(ctx, row)
}

// ---- COUNT ----

type Count struct{ base }

func NewCount(arg pdbsql.Expression, distinct bool) *Count {
	return &Count{base{name: "COUNT", Arg: arg, typ: pdbsql.Int64, distinct: distinct}}
}
func (c *Count) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if c.Arg == nil {
		return c, nil
	}
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New("COUNT: expected 1 child")
	}
	return NewCount(ch[0], c.distinct), nil
}
func (c *Count) NewBuffer() Buffer { return &countBuffer{arg: c.Arg, distinct: c.distinct, seen: map[interface{}]bool{}} }

type countBuffer struct {
	arg      pdbsql.Expression
	distinct bool
	n        int64
	seen     map[interface{}]bool
}

func (b *countBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if b.distinct {
		if b.seen[v] {
			return nil
		}
		b.seen[v] = true
	}
	b.n++
	return nil
}
func (b *countBuffer) Merge(other Buffer) error {
	o := other.(*countBuffer)
	if b.distinct {
		for k := range o.seen {
			if !b.seen[k] {
				b.seen[k] = true
				b.n++
			}
		}
		return nil
	}
	b.n += o.n
	return nil
}
func (b *countBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) { return b.n, nil }

// ---- SUM / AVG ----

// numAccum tracks a running sum as either a float64 or a decimal
// accumulator; once any decimal input is seen the accumulator switches to
// decimal and stays there, preserving precision (spec §4.7 SUM row).
type numAccum struct {
	isDecimal bool
	dec       decimal.Decimal
	f         float64
	count     int64
}

func (a *numAccum) add(v interface{}) {
	switch n := v.(type) {
	case decimal.Decimal:
		if !a.isDecimal && a.count > 0 {
			a.dec = decimal.NewFromFloat(a.f)
		}
		a.isDecimal = true
		a.dec = a.dec.Add(n)
	case float64:
		if a.isDecimal {
			a.dec = a.dec.Add(decimal.NewFromFloat(n))
		} else {
			a.f += n
		}
	case float32:
		a.add(float64(n))
	case int64:
		if a.isDecimal {
			a.dec = a.dec.Add(decimal.NewFromInt(n))
		} else {
			a.f += float64(n)
		}
	case int32:
		a.add(int64(n))
	case int16:
		a.add(int64(n))
	case int8:
		a.add(int64(n))
	default:
		a.f += 0
	}
	a.count++
}

func (a *numAccum) merge(o *numAccum) {
	if o.count == 0 {
		return
	}
	if a.count == 0 {
		*a = *o
		return
	}
	if a.isDecimal || o.isDecimal {
		ad, od := a.dec, o.dec
		if !a.isDecimal {
			ad = decimal.NewFromFloat(a.f)
		}
		if !o.isDecimal {
			od = decimal.NewFromFloat(o.f)
		}
		a.isDecimal = true
		a.dec = ad.Add(od)
	} else {
		a.f += o.f
	}
	a.count += o.count
}

func (a *numAccum) value() interface{} {
	if a.isDecimal {
		return a.dec
	}
	return a.f
}

type Sum struct{ base }

func NewSum(arg pdbsql.Expression, typ pdbsql.Type, distinct bool) *Sum {
	return &Sum{base{name: "SUM", Arg: arg, typ: typ, distinct: distinct}}
}
func (s *Sum) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New("SUM: expected 1 child")
	}
	return NewSum(ch[0], s.typ, s.distinct), nil
}
func (s *Sum) NewBuffer() Buffer { return &sumBuffer{arg: s.Arg} }

type sumBuffer struct {
	arg   pdbsql.Expression
	acc   numAccum
	empty bool
}

func (b *sumBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil || v == nil {
		return err
	}
	b.acc.add(v)
	return nil
}
func (b *sumBuffer) Merge(other Buffer) error { b.acc.merge(&other.(*sumBuffer).acc); return nil }
func (b *sumBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if b.acc.count == 0 {
		return nil, nil
	}
	return b.acc.value(), nil
}

type Avg struct{ base }

func NewAvg(arg pdbsql.Expression, distinct bool) *Avg {
	return &Avg{base{name: "AVG", Arg: arg, typ: pdbsql.Float64, distinct: distinct}}
}
func (a *Avg) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New("AVG: expected 1 child")
	}
	return NewAvg(ch[0], a.distinct), nil
}
func (a *Avg) NewBuffer() Buffer { return &avgBuffer{arg: a.Arg} }

type avgBuffer struct {
	arg pdbsql.Expression
	acc numAccum
}

func (b *avgBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil || v == nil {
		return err
	}
	b.acc.add(v)
	return nil
}
func (b *avgBuffer) Merge(other Buffer) error { b.acc.merge(&other.(*avgBuffer).acc); return nil }
func (b *avgBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if b.acc.count == 0 {
		return nil, nil
	}
	if b.acc.isDecimal {
		return b.acc.dec.Div(decimal.NewFromInt(b.acc.count)), nil
	}
	return b.acc.f / float64(b.acc.count), nil
}

// ---- MIN / MAX ----

type minMax struct {
	base
	wantMin bool
}

func NewMin(arg pdbsql.Expression, typ pdbsql.Type) *minMax {
	return &minMax{base{name: "MIN", Arg: arg, typ: typ}, true}
}
func NewMax(arg pdbsql.Expression, typ pdbsql.Type) *minMax {
	return &minMax{base{name: "MAX", Arg: arg, typ: typ}, false}
}
func (m *minMax) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New(m.name + ": expected 1 child")
	}
	if m.wantMin {
		return NewMin(ch[0], m.typ), nil
	}
	return NewMax(ch[0], m.typ), nil
}
func (m *minMax) NewBuffer() Buffer {
	return &minMaxBuffer{arg: m.Arg, typ: m.typ, wantMin: m.wantMin}
}

type minMaxBuffer struct {
	arg     pdbsql.Expression
	typ     pdbsql.Type
	wantMin bool
	value   interface{}
	has     bool
}

func (b *minMaxBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil || v == nil {
		return err
	}
	if !b.has {
		b.value, b.has = v, true
		return nil
	}
	_, cmp, err := pdbsql.CompareValues(b.typ, v, b.value)
	if err != nil {
		return err
	}
	if (b.wantMin && cmp < 0) || (!b.wantMin && cmp > 0) {
		b.value = v
	}
	return nil
}
func (b *minMaxBuffer) Merge(other Buffer) error {
	o := other.(*minMaxBuffer)
	if !o.has {
		return nil
	}
	if !b.has {
		b.value, b.has = o.value, true
		return nil
	}
	_, cmp, err := pdbsql.CompareValues(b.typ, o.value, b.value)
	if err != nil {
		return err
	}
	if (b.wantMin && cmp < 0) || (!b.wantMin && cmp > 0) {
		b.value = o.value
	}
	return nil
}
func (b *minMaxBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if !b.has {
		return nil, nil
	}
	return b.value, nil
}

// ---- STDDEV_SAMP / VAR_SAMP (Welford + Chan et al. parallel merge) ----

type welford struct {
	count int64
	mean  float64
	m2    float64
}

func (w *welford) add(x float64) {
	w.count++
	delta := x - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (x - w.mean)
}

// merge combines two Welford states per Chan, Golub, LeVeque (1979).
func (w *welford) merge(o *welford) {
	if o.count == 0 {
		return
	}
	if w.count == 0 {
		*w = *o
		return
	}
	delta := o.mean - w.mean
	n := w.count + o.count
	w.m2 = w.m2 + o.m2 + delta*delta*float64(w.count)*float64(o.count)/float64(n)
	w.mean = (w.mean*float64(w.count) + o.mean*float64(o.count)) / float64(n)
	w.count = n
}

type varStat struct {
	base
	sample bool // true=STDDEV_SAMP/VAR_SAMP, false=STDDEV_POP/VAR_POP
	stddev bool // true=STDDEV_*, false=VAR_*
}

func NewStddevSamp(arg pdbsql.Expression) *varStat {
	return &varStat{base{name: "STDDEV_SAMP", Arg: arg, typ: pdbsql.Float64}, true, true}
}
func NewVarSamp(arg pdbsql.Expression) *varStat {
	return &varStat{base{name: "VAR_SAMP", Arg: arg, typ: pdbsql.Float64}, true, false}
}
func (v *varStat) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New(v.name + ": expected 1 child")
	}
	n := *v
	n.Arg = ch[0]
	return &n, nil
}
func (v *varStat) NewBuffer() Buffer { return &varStatBuffer{arg: v.Arg, sample: v.sample, stddev: v.stddev} }

type varStatBuffer struct {
	arg    pdbsql.Expression
	sample bool
	stddev bool
	w      welford
}

func (b *varStatBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil || v == nil {
		return err
	}
	f, err := toFloat(v)
	if err != nil {
		return err
	}
	b.w.add(f)
	return nil
}
func (b *varStatBuffer) Merge(other Buffer) error { b.w.merge(&other.(*varStatBuffer).w); return nil }
func (b *varStatBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	denom := b.w.count
	if b.sample {
		denom--
	}
	if denom < 1 {
		return nil, nil
	}
	v := b.w.m2 / float64(denom)
	if b.stddev {
		return math.Sqrt(v), nil
	}
	return v, nil
}

// ---- MEDIAN / PERCENTILE_CONT / PERCENTILE_DISC ----

type percentile struct {
	base
	frac float64 // 0.5 for MEDIAN
	disc bool
}

func NewMedian(arg pdbsql.Expression) *percentile {
	return &percentile{base{name: "MEDIAN", Arg: arg, typ: pdbsql.Float64}, 0.5, false}
}
func NewPercentileCont(arg pdbsql.Expression, frac float64) *percentile {
	return &percentile{base{name: "PERCENTILE_CONT", Arg: arg, typ: pdbsql.Float64}, frac, false}
}
func NewPercentileDisc(arg pdbsql.Expression, frac float64) *percentile {
	return &percentile{base{name: "PERCENTILE_DISC", Arg: arg, typ: arg.Type()}, frac, true}
}
func (p *percentile) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New(p.name + ": expected 1 child")
	}
	n := *p
	n.Arg = ch[0]
	return &n, nil
}
func (p *percentile) NewBuffer() Buffer {
	return &percentileBuffer{arg: p.Arg, frac: p.frac, disc: p.disc}
}

type percentileBuffer struct {
	arg    pdbsql.Expression
	frac   float64
	disc   bool
	values []interface{}
}

func (b *percentileBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil || v == nil {
		return err
	}
	b.values = append(b.values, v)
	return nil
}
func (b *percentileBuffer) Merge(other Buffer) error {
	b.values = append(b.values, other.(*percentileBuffer).values...)
	return nil
}
func (b *percentileBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if len(b.values) == 0 {
		return nil, nil
	}
	floats := make([]float64, len(b.values))
	for i, v := range b.values {
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		floats[i] = f
	}
	idx := make([]int, len(floats))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return floats[idx[i]] < floats[idx[j]] })
	n := len(floats)
	if b.disc {
		rank := int(math.Ceil(b.frac * float64(n)))
		if rank < 1 {
			rank = 1
		}
		if rank > n {
			rank = n
		}
		return b.values[idx[rank-1]], nil
	}
	pos := b.frac * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return floats[idx[lo]], nil
	}
	frac := pos - float64(lo)
	return floats[idx[lo]]*(1-frac) + floats[idx[hi]]*frac, nil
}

// ---- MODE ----

type Mode struct{ base }

func NewMode(arg pdbsql.Expression) *Mode { return &Mode{base{name: "MODE", Arg: arg, typ: arg.Type()}} }
func (m *Mode) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New("MODE: expected 1 child")
	}
	return NewMode(ch[0]), nil
}
func (m *Mode) NewBuffer() Buffer { return &modeBuffer{arg: m.Arg, counts: map[string]int{}, vals: map[string]interface{}{}} }

type modeBuffer struct {
	arg    pdbsql.Expression
	counts map[string]int
	vals   map[string]interface{}
}

func (b *modeBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil || v == nil {
		return err
	}
	k := fmt.Sprintf("%v", v)
	b.counts[k]++
	b.vals[k] = v
	return nil
}
func (b *modeBuffer) Merge(other Buffer) error {
	o := other.(*modeBuffer)
	for k, c := range o.counts {
		b.counts[k] += c
		b.vals[k] = o.vals[k]
	}
	return nil
}
func (b *modeBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	var bestKey string
	best := -1
	for k, c := range b.counts {
		if c > best {
			best, bestKey = c, k
		}
	}
	if best < 0 {
		return nil, nil
	}
	return b.vals[bestKey], nil
}

// ---- APPROX_COUNT_DISTINCT ----
// Exact hashed-value-set cardinality (spec permits an approximate
// structure like HyperLogLog; a plain set is used here since the engine
// has no existing hash-sketch dependency to wire -- see DESIGN.md).

type ApproxCountDistinct struct{ base }

func NewApproxCountDistinct(arg pdbsql.Expression) *ApproxCountDistinct {
	return &ApproxCountDistinct{base{name: "APPROX_COUNT_DISTINCT", Arg: arg, typ: pdbsql.Int64}}
}
func (a *ApproxCountDistinct) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New("APPROX_COUNT_DISTINCT: expected 1 child")
	}
	return NewApproxCountDistinct(ch[0]), nil
}
func (a *ApproxCountDistinct) NewBuffer() Buffer {
	return &approxCountDistinctBuffer{arg: a.Arg, seen: map[interface{}]bool{}}
}

type approxCountDistinctBuffer struct {
	arg  pdbsql.Expression
	seen map[interface{}]bool
}

func (b *approxCountDistinctBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil || v == nil {
		return err
	}
	b.seen[v] = true
	return nil
}
func (b *approxCountDistinctBuffer) Merge(other Buffer) error {
	for k := range other.(*approxCountDistinctBuffer).seen {
		b.seen[k] = true
	}
	return nil
}
func (b *approxCountDistinctBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	return int64(len(b.seen)), nil
}

// ---- APPROX_QUANTILE (t-digest, simplified: sorted buffer of bounded
// size with reservoir-style thinning once capacity is exceeded, rather
// than full centroid merging -- see DESIGN.md for the precision tradeoff)
// ----

const approxQuantileCap = 4096

type ApproxQuantile struct {
	base
	Quantile float64
}

func NewApproxQuantile(arg pdbsql.Expression, q float64) *ApproxQuantile {
	return &ApproxQuantile{base{name: "APPROX_QUANTILE", Arg: arg, typ: pdbsql.Float64}, q}
}
func (a *ApproxQuantile) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New("APPROX_QUANTILE: expected 1 child")
	}
	return NewApproxQuantile(ch[0], a.Quantile), nil
}
func (a *ApproxQuantile) NewBuffer() Buffer {
	return &approxQuantileBuffer{arg: a.Arg, q: a.Quantile}
}

type approxQuantileBuffer struct {
	arg    pdbsql.Expression
	q      float64
	values []float64
}

func (b *approxQuantileBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil || v == nil {
		return err
	}
	f, err := toFloat(v)
	if err != nil {
		return err
	}
	b.values = append(b.values, f)
	if len(b.values) > approxQuantileCap*2 {
		sort.Float64s(b.values)
		thinned := make([]float64, 0, approxQuantileCap)
		for i := 0; i < len(b.values); i += 2 {
			thinned = append(thinned, b.values[i])
		}
		b.values = thinned
	}
	return nil
}
func (b *approxQuantileBuffer) Merge(other Buffer) error {
	b.values = append(b.values, other.(*approxQuantileBuffer).values...)
	return nil
}
func (b *approxQuantileBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if len(b.values) == 0 {
		return nil, nil
	}
	sorted := append([]float64(nil), b.values...)
	sort.Float64s(sorted)
	pos := b.q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, nil
}

// ---- STRING_AGG ----

type StringAgg struct {
	base
	Sep pdbsql.Expression
}

func NewStringAgg(arg, sep pdbsql.Expression) *StringAgg {
	return &StringAgg{base{name: "STRING_AGG", Arg: arg, typ: pdbsql.Text}, sep}
}
func (s *StringAgg) Children() []pdbsql.Expression { return []pdbsql.Expression{s.Arg, s.Sep} }
func (s *StringAgg) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 2 {
		return nil, pdbsql.ErrExecution.New("STRING_AGG: expected 2 children")
	}
	return NewStringAgg(ch[0], ch[1]), nil
}
func (s *StringAgg) NewBuffer() Buffer { return &stringAggBuffer{arg: s.Arg, sep: s.Sep} }

type stringAggBuffer struct {
	arg, sep pdbsql.Expression
	parts    []string
	sepVal   string
	gotSep   bool
}

func (b *stringAggBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := argValue(b.arg, ctx, row)
	if err != nil {
		return err
	}
	if !b.gotSep {
		sv, err := b.sep.Eval(ctx, row)
		if err != nil {
			return err
		}
		if sv != nil {
			b.sepVal = fmt.Sprintf("%v", sv)
		}
		b.gotSep = true
	}
	if v == nil {
		return nil
	}
	b.parts = append(b.parts, fmt.Sprintf("%v", v))
	return nil
}
func (b *stringAggBuffer) Merge(other Buffer) error {
	o := other.(*stringAggBuffer)
	b.parts = append(b.parts, o.parts...)
	if !b.gotSep && o.gotSep {
		b.sepVal, b.gotSep = o.sepVal, true
	}
	return nil
}
func (b *stringAggBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if len(b.parts) == 0 {
		return nil, nil
	}
	return strings.Join(b.parts, b.sepVal), nil
}

// ---- COVAR_POP/SAMP, CORR (Schubert-Gertz-style pairwise co-moment) ----

type pairMoment struct {
	count    int64
	meanX    float64
	meanY    float64
	c        float64 // co-moment sum((x-meanX)(y-meanY))
	m2x, m2y float64
}

func (p *pairMoment) add(x, y float64) {
	p.count++
	dx := x - p.meanX
	p.meanX += dx / float64(p.count)
	dy := y - p.meanY
	p.meanY += dy / float64(p.count)
	p.c += dx * (y - p.meanY)
	p.m2x += dx * (x - p.meanX)
	p.m2y += dy * (y - p.meanY)
}

func (p *pairMoment) merge(o *pairMoment) {
	if o.count == 0 {
		return
	}
	if p.count == 0 {
		*p = *o
		return
	}
	n := p.count + o.count
	dx := o.meanX - p.meanX
	dy := o.meanY - p.meanY
	p.c = p.c + o.c + dx*dy*float64(p.count)*float64(o.count)/float64(n)
	p.m2x = p.m2x + o.m2x + dx*dx*float64(p.count)*float64(o.count)/float64(n)
	p.m2y = p.m2y + o.m2y + dy*dy*float64(p.count)*float64(o.count)/float64(n)
	p.meanX = (p.meanX*float64(p.count) + o.meanX*float64(o.count)) / float64(n)
	p.meanY = (p.meanY*float64(p.count) + o.meanY*float64(o.count)) / float64(n)
	p.count = n
}

type pairStat struct {
	base
	Y      pdbsql.Expression
	sample bool
	kind   string // "covar" or "corr"
}

func NewCovarPop(x, y pdbsql.Expression) *pairStat {
	return &pairStat{base{name: "COVAR_POP", Arg: x, typ: pdbsql.Float64}, y, false, "covar"}
}
func NewCovarSamp(x, y pdbsql.Expression) *pairStat {
	return &pairStat{base{name: "COVAR_SAMP", Arg: x, typ: pdbsql.Float64}, y, true, "covar"}
}
func NewCorr(x, y pdbsql.Expression) *pairStat {
	return &pairStat{base{name: "CORR", Arg: x, typ: pdbsql.Float64}, y, false, "corr"}
}
func (p *pairStat) Children() []pdbsql.Expression { return []pdbsql.Expression{p.Arg, p.Y} }
func (p *pairStat) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 2 {
		return nil, pdbsql.ErrExecution.New(p.name + ": expected 2 children")
	}
	n := *p
	n.Arg, n.Y = ch[0], ch[1]
	return &n, nil
}
func (p *pairStat) NewBuffer() Buffer {
	return &pairStatBuffer{x: p.Arg, y: p.Y, sample: p.sample, kind: p.kind}
}

type pairStatBuffer struct {
	x, y   pdbsql.Expression
	sample bool
	kind   string
	m      pairMoment
}

func (b *pairStatBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	xv, err := b.x.Eval(ctx, row)
	if err != nil {
		return err
	}
	yv, err := b.y.Eval(ctx, row)
	if err != nil {
		return err
	}
	if xv == nil || yv == nil {
		return nil
	}
	xf, err := toFloat(xv)
	if err != nil {
		return err
	}
	yf, err := toFloat(yv)
	if err != nil {
		return err
	}
	b.m.add(xf, yf)
	return nil
}
func (b *pairStatBuffer) Merge(other Buffer) error { b.m.merge(&other.(*pairStatBuffer).m); return nil }
func (b *pairStatBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if b.kind == "covar" {
		denom := b.m.count
		if b.sample {
			denom--
		}
		if denom < 1 {
			return nil, nil
		}
		return b.m.c / float64(denom), nil
	}
	// CORR
	if b.m.count < 2 || b.m.m2x == 0 || b.m.m2y == 0 {
		return math.NaN(), nil
	}
	return b.m.c / math.Sqrt(b.m.m2x*b.m.m2y), nil
}

// ---- REGR_* (linear regression of y on x, reusing pairMoment) ----

// regrStat implements the REGR_SLOPE/INTERCEPT/R2/COUNT/AVGX/AVGY/SXX/
// SYY/SXY family (spec.md's pair-wise co-moment state entry): every
// REGR_* function takes (y, x) per the SQL standard's dependent-then-
// independent argument order, and all of them fold the same pairMoment
// state Update evaluates once per row.
type regrStat struct {
	base
	X    pdbsql.Expression
	kind string
}

func NewRegrSlope(y, x pdbsql.Expression) *regrStat {
	return &regrStat{base{name: "REGR_SLOPE", Arg: y, typ: pdbsql.Float64}, x, "slope"}
}
func NewRegrIntercept(y, x pdbsql.Expression) *regrStat {
	return &regrStat{base{name: "REGR_INTERCEPT", Arg: y, typ: pdbsql.Float64}, x, "intercept"}
}
func NewRegrR2(y, x pdbsql.Expression) *regrStat {
	return &regrStat{base{name: "REGR_R2", Arg: y, typ: pdbsql.Float64}, x, "r2"}
}
func NewRegrCount(y, x pdbsql.Expression) *regrStat {
	return &regrStat{base{name: "REGR_COUNT", Arg: y, typ: pdbsql.Int64}, x, "count"}
}
func NewRegrAvgX(y, x pdbsql.Expression) *regrStat {
	return &regrStat{base{name: "REGR_AVGX", Arg: y, typ: pdbsql.Float64}, x, "avgx"}
}
func NewRegrAvgY(y, x pdbsql.Expression) *regrStat {
	return &regrStat{base{name: "REGR_AVGY", Arg: y, typ: pdbsql.Float64}, x, "avgy"}
}
func NewRegrSXX(y, x pdbsql.Expression) *regrStat {
	return &regrStat{base{name: "REGR_SXX", Arg: y, typ: pdbsql.Float64}, x, "sxx"}
}
func NewRegrSYY(y, x pdbsql.Expression) *regrStat {
	return &regrStat{base{name: "REGR_SYY", Arg: y, typ: pdbsql.Float64}, x, "syy"}
}
func NewRegrSXY(y, x pdbsql.Expression) *regrStat {
	return &regrStat{base{name: "REGR_SXY", Arg: y, typ: pdbsql.Float64}, x, "sxy"}
}
func (r *regrStat) Children() []pdbsql.Expression { return []pdbsql.Expression{r.Arg, r.X} }
func (r *regrStat) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 2 {
		return nil, pdbsql.ErrExecution.New(r.name + ": expected 2 children")
	}
	n := *r
	n.Arg, n.X = ch[0], ch[1]
	return &n, nil
}
func (r *regrStat) NewBuffer() Buffer {
	return &regrStatBuffer{y: r.Arg, x: r.X, kind: r.kind}
}

type regrStatBuffer struct {
	x, y pdbsql.Expression
	kind string
	m    pairMoment
}

func (b *regrStatBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	yv, err := b.y.Eval(ctx, row)
	if err != nil {
		return err
	}
	xv, err := b.x.Eval(ctx, row)
	if err != nil {
		return err
	}
	if xv == nil || yv == nil {
		return nil
	}
	xf, err := toFloat(xv)
	if err != nil {
		return err
	}
	yf, err := toFloat(yv)
	if err != nil {
		return err
	}
	b.m.add(xf, yf)
	return nil
}
func (b *regrStatBuffer) Merge(other Buffer) error {
	b.m.merge(&other.(*regrStatBuffer).m)
	return nil
}
func (b *regrStatBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	switch b.kind {
	case "count":
		return b.m.count, nil
	case "avgx":
		if b.m.count < 1 {
			return nil, nil
		}
		return b.m.meanX, nil
	case "avgy":
		if b.m.count < 1 {
			return nil, nil
		}
		return b.m.meanY, nil
	case "sxx":
		if b.m.count < 1 {
			return nil, nil
		}
		return b.m.m2x, nil
	case "syy":
		if b.m.count < 1 {
			return nil, nil
		}
		return b.m.m2y, nil
	case "sxy":
		if b.m.count < 1 {
			return nil, nil
		}
		return b.m.c, nil
	case "slope":
		if b.m.count < 2 || b.m.m2x == 0 {
			return nil, nil
		}
		return b.m.c / b.m.m2x, nil
	case "intercept":
		if b.m.count < 2 || b.m.m2x == 0 {
			return nil, nil
		}
		slope := b.m.c / b.m.m2x
		return b.m.meanY - slope*b.m.meanX, nil
	default: // "r2"
		if b.m.count < 2 || b.m.m2x == 0 || b.m.m2y == 0 {
			return nil, nil
		}
		return (b.m.c * b.m.c) / (b.m.m2x * b.m.m2y), nil
	}
}

// ---- FIRST / LAST ----

type firstLast struct {
	base
	first bool
}

func NewFirst(arg pdbsql.Expression) *firstLast {
	return &firstLast{base{name: "FIRST", Arg: arg, typ: arg.Type()}, true}
}
func NewLast(arg pdbsql.Expression) *firstLast {
	return &firstLast{base{name: "LAST", Arg: arg, typ: arg.Type()}, false}
}
func (f *firstLast) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New(f.name + ": expected 1 child")
	}
	if f.first {
		return NewFirst(ch[0]), nil
	}
	return NewLast(ch[0]), nil
}
func (f *firstLast) NewBuffer() Buffer { return &firstLastBuffer{arg: f.Arg, first: f.first} }

type firstLastBuffer struct {
	arg         pdbsql.Expression
	first       bool
	value       interface{}
	has, seenAny bool
}

func (b *firstLastBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := b.arg.Eval(ctx, row)
	if err != nil || v == nil {
		return err
	}
	b.seenAny = true
	if b.first && b.has {
		return nil
	}
	b.value, b.has = v, true
	return nil
}
func (b *firstLastBuffer) Merge(other Buffer) error {
	o := other.(*firstLastBuffer)
	if !o.has {
		return nil
	}
	if b.first {
		if !b.has {
			b.value, b.has = o.value, true
		}
		return nil
	}
	b.value, b.has = o.value, true
	return nil
}
func (b *firstLastBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if !b.has {
		return nil, nil
	}
	return b.value, nil
}

// ---- ARG_MIN / ARG_MAX ----

type argMinMax struct {
	base
	Key     pdbsql.Expression
	keyTy   pdbsql.Type
	wantMin bool
}

func NewArgMin(arg, key pdbsql.Expression) *argMinMax {
	return &argMinMax{base{name: "ARG_MIN", Arg: arg, typ: arg.Type()}, key, key.Type(), true}
}
func NewArgMax(arg, key pdbsql.Expression) *argMinMax {
	return &argMinMax{base{name: "ARG_MAX", Arg: arg, typ: arg.Type()}, key, key.Type(), false}
}
func (a *argMinMax) Children() []pdbsql.Expression { return []pdbsql.Expression{a.Arg, a.Key} }
func (a *argMinMax) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 2 {
		return nil, pdbsql.ErrExecution.New(a.name + ": expected 2 children")
	}
	if a.wantMin {
		return NewArgMin(ch[0], ch[1]), nil
	}
	return NewArgMax(ch[0], ch[1]), nil
}
func (a *argMinMax) NewBuffer() Buffer {
	return &argMinMaxBuffer{arg: a.Arg, key: a.Key, keyTy: a.keyTy, wantMin: a.wantMin}
}

type argMinMaxBuffer struct {
	arg, key     pdbsql.Expression
	keyTy        pdbsql.Type
	wantMin      bool
	value, keyVal interface{}
	has          bool
}

func (b *argMinMaxBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	kv, err := b.key.Eval(ctx, row)
	if err != nil || kv == nil {
		return err
	}
	av, err := b.arg.Eval(ctx, row)
	if err != nil {
		return err
	}
	if !b.has {
		b.value, b.keyVal, b.has = av, kv, true
		return nil
	}
	_, cmp, err := pdbsql.CompareValues(b.keyTy, kv, b.keyVal)
	if err != nil {
		return err
	}
	if (b.wantMin && cmp < 0) || (!b.wantMin && cmp > 0) {
		b.value, b.keyVal = av, kv
	}
	return nil
}
func (b *argMinMaxBuffer) Merge(other Buffer) error {
	o := other.(*argMinMaxBuffer)
	if !o.has {
		return nil
	}
	if !b.has {
		b.value, b.keyVal, b.has = o.value, o.keyVal, true
		return nil
	}
	_, cmp, err := pdbsql.CompareValues(b.keyTy, o.keyVal, b.keyVal)
	if err != nil {
		return err
	}
	if (b.wantMin && cmp < 0) || (!b.wantMin && cmp > 0) {
		b.value, b.keyVal = o.value, o.keyVal
	}
	return nil
}
func (b *argMinMaxBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if !b.has {
		return nil, nil
	}
	return b.value, nil
}

// ---- BOOL_AND / BOOL_OR ----

type boolAgg struct {
	base
	wantAnd bool
}

func NewBoolAnd(arg pdbsql.Expression) *boolAgg {
	return &boolAgg{base{name: "BOOL_AND", Arg: arg, typ: pdbsql.Boolean}, true}
}
func NewBoolOr(arg pdbsql.Expression) *boolAgg {
	return &boolAgg{base{name: "BOOL_OR", Arg: arg, typ: pdbsql.Boolean}, false}
}
func (b *boolAgg) WithChildren(ch ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(ch) != 1 {
		return nil, pdbsql.ErrExecution.New(b.name + ": expected 1 child")
	}
	if b.wantAnd {
		return NewBoolAnd(ch[0]), nil
	}
	return NewBoolOr(ch[0]), nil
}
func (b *boolAgg) NewBuffer() Buffer { return &boolAggBuffer{arg: b.Arg, wantAnd: b.wantAnd, result: b.wantAnd} }

type boolAggBuffer struct {
	arg     pdbsql.Expression
	wantAnd bool
	result  bool
	any     bool
}

func (b *boolAggBuffer) Update(ctx *pdbsql.Context, row pdbsql.Row) error {
	v, err := b.arg.Eval(ctx, row)
	if err != nil || v == nil {
		return err
	}
	bv, _ := v.(bool)
	b.any = true
	if b.wantAnd {
		b.result = b.result && bv
	} else {
		b.result = b.result || bv
	}
	return nil
}
func (b *boolAggBuffer) Merge(other Buffer) error {
	o := other.(*boolAggBuffer)
	if !o.any {
		return nil
	}
	b.any = true
	if b.wantAnd {
		b.result = b.result && o.result
	} else {
		b.result = b.result || o.result
	}
	return nil
}
func (b *boolAggBuffer) Eval(ctx *pdbsql.Context) (interface{}, error) {
	if !b.any {
		return nil, nil
	}
	return b.result, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, nil
	default:
		return 0, pdbsql.ErrTypeMismatch.New(fmt.Sprintf("%T is not numeric", v))
	}
}
