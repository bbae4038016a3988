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

package sql

import "io"

// DefaultBatchSize is the default fixed capacity of a Batch (spec §3.2).
const DefaultBatchSize = 2048

// Vector is one column of a Batch: a semantic container over typ producing
// value-at-index in O(1). NULL is represented as a nil entry.
type Vector struct {
	typ    Type
	values []interface{}
}

// NewVector wraps values (already converted to typ's native form, or nil
// for NULL) as a Vector.
func NewVector(typ Type, values []interface{}) *Vector {
	return &Vector{typ: typ, values: values}
}

// NewVectorBuilder returns an empty Vector of typ with capacity cap.
func NewVectorBuilder(typ Type, capacity int) *Vector {
	return &Vector{typ: typ, values: make([]interface{}, 0, capacity)}
}

func (v *Vector) Type() Type   { return v.typ }
func (v *Vector) Len() int     { return len(v.values) }
func (v *Vector) Get(i int) interface{} { return v.values[i] }
func (v *Vector) Append(value interface{}) { v.values = append(v.values, value) }
func (v *Vector) Values() []interface{}    { return v.values }

// Batch is a fixed-capacity, heterogeneously-typed set of columns plus a
// row count (spec §3.2). Batches are immutable once emitted downstream;
// the last batch of a stream may be short.
type Batch struct {
	schema  Schema
	columns []*Vector
}

// NewBatch builds a Batch from schema-ordered columns. All columns must
// have equal length.
func NewBatch(schema Schema, columns []*Vector) *Batch {
	return &Batch{schema: schema, columns: columns}
}

func (b *Batch) Schema() Schema { return b.schema }
func (b *Batch) NumCols() int   { return len(b.columns) }

func (b *Batch) NumRows() int {
	if len(b.columns) == 0 {
		return 0
	}
	return b.columns[0].Len()
}

// Column returns the i'th column vector.
func (b *Batch) Column(i int) *Vector { return b.columns[i] }

// At returns the value of column i at row r.
func (b *Batch) At(row, col int) interface{} { return b.columns[col].Get(row) }

// Row materializes row r of the batch as a Row (value-at-index, O(1) per
// spec §3.2, so materializing one row is O(numCols)).
func (b *Batch) Row(row int) Row {
	out := make(Row, len(b.columns))
	for i, c := range b.columns {
		out[i] = c.Get(row)
	}
	return out
}

// Slice returns a new Batch over rows [start,end) of b, sharing the
// underlying values (read-only downstream, per the immutability rule).
func (b *Batch) Slice(start, end int) *Batch {
	cols := make([]*Vector, len(b.columns))
	for i, c := range b.columns {
		cols[i] = &Vector{typ: c.typ, values: c.values[start:end]}
	}
	return &Batch{schema: b.schema, columns: cols}
}

// BatchIter is the vectorized pull contract every physical operator
// implements (spec §3.2, §5): Next produces a full batch or io.EOF, never
// a partial row; operators pull from children cooperatively, no mid-row
// suspension.
type BatchIter interface {
	Next(ctx *Context) (*Batch, error)
	Close(ctx *Context) error
}

// RowsToBatch packs a slice of rows of the given schema into a single
// Batch, used by Values and by operators bridging row-at-a-time results
// (subqueries, DML) back into the columnar pipeline.
func RowsToBatch(schema Schema, rows []Row) *Batch {
	cols := make([]*Vector, len(schema))
	for i := range schema {
		vals := make([]interface{}, len(rows))
		for r, row := range rows {
			vals[r] = row[i]
		}
		cols[i] = &Vector{typ: schema[i].Type, values: vals}
	}
	return &Batch{schema: schema, columns: cols}
}

// BatchBuilder accumulates rows up to DefaultBatchSize (or a custom cap)
// and flushes full batches; used by operators that produce results
// row-at-a-time internally (hash join probe, aggregate finalize) but must
// emit the columnar contract.
type BatchBuilder struct {
	schema Schema
	cap    int
	cols   []*Vector
}

func NewBatchBuilder(schema Schema, capacity int) *BatchBuilder {
	if capacity <= 0 {
		capacity = DefaultBatchSize
	}
	cols := make([]*Vector, len(schema))
	for i, c := range schema {
		cols[i] = NewVectorBuilder(c.Type, capacity)
	}
	return &BatchBuilder{schema: schema, cap: capacity, cols: cols}
}

func (bb *BatchBuilder) Len() int { return bb.cols[0].Len() }
func (bb *BatchBuilder) Full() bool { return bb.Len() >= bb.cap }

func (bb *BatchBuilder) AddRow(row Row) {
	for i, v := range row {
		bb.cols[i].Append(v)
	}
}

// Flush returns the accumulated Batch and resets the builder.
func (bb *BatchBuilder) Flush() *Batch {
	b := &Batch{schema: bb.schema, columns: bb.cols}
	bb.cols = make([]*Vector, len(bb.schema))
	for i, c := range bb.schema {
		bb.cols[i] = NewVectorBuilder(c.Type, bb.cap)
	}
	return b
}

// sliceBatchIter adapts pre-built batches (e.g. from RowsToBatch chunked
// by DefaultBatchSize) into a BatchIter.
type sliceBatchIter struct {
	batches []*Batch
	pos     int
}

func (it *sliceBatchIter) Next(ctx *Context) (*Batch, error) {
	if it.pos >= len(it.batches) {
		return nil, io.EOF
	}
	b := it.batches[it.pos]
	it.pos++
	return b, nil
}
func (it *sliceBatchIter) Close(ctx *Context) error { return nil }

// BatchesToBatchIter adapts a fixed slice of batches into a BatchIter.
func BatchesToBatchIter(batches ...*Batch) BatchIter {
	return &sliceBatchIter{batches: batches}
}

// RowIterToBatchIter re-chunks a row-at-a-time RowIter into batches of at
// most size rows (default DefaultBatchSize), bridging row-producing
// operators (DML, some subquery paths) back into the columnar pipeline.
func RowIterToBatchIter(schema Schema, rows RowIter, size int) BatchIter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &rowChunker{schema: schema, rows: rows, size: size}
}

type rowChunker struct {
	schema Schema
	rows   RowIter
	size   int
	done   bool
}

func (c *rowChunker) Next(ctx *Context) (*Batch, error) {
	if c.done {
		return nil, io.EOF
	}
	bb := NewBatchBuilder(c.schema, c.size)
	for bb.Len() < c.size {
		r, err := c.rows.Next(ctx)
		if err == io.EOF {
			c.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		bb.AddRow(r)
	}
	if bb.Len() == 0 {
		return nil, io.EOF
	}
	return bb.Flush(), nil
}

func (c *rowChunker) Close(ctx *Context) error { return c.rows.Close(ctx) }

// batchUnchunker flattens a BatchIter back into row-at-a-time form,
// bridging columnar operators into a consumer that only wants RowIter
// (DML targets, small subquery results).
type batchUnchunker struct {
	it      BatchIter
	batch   *Batch
	pos     int
	atEOF   bool
}

func (u *batchUnchunker) Next(ctx *Context) (Row, error) {
	for {
		if u.batch != nil && u.pos < u.batch.NumRows() {
			r := u.batch.Row(u.pos)
			u.pos++
			return r, nil
		}
		if u.atEOF {
			return nil, io.EOF
		}
		b, err := u.it.Next(ctx)
		if err == io.EOF {
			u.atEOF = true
			continue
		}
		if err != nil {
			return nil, err
		}
		u.batch = b
		u.pos = 0
	}
}

func (u *batchUnchunker) Close(ctx *Context) error { return u.it.Close(ctx) }

// BatchIterToRowIter adapts a BatchIter into a RowIter, the inverse of
// RowIterToBatchIter.
func BatchIterToRowIter(it BatchIter) RowIter {
	return &batchUnchunker{it: it}
}
