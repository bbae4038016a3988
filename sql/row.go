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

// Row is a single tuple of values, NULL represented as nil. It is the
// row-at-a-time form used by DML operators, evaluate_row, and anywhere a
// single tuple (rather than a column batch) is the natural unit.
type Row []interface{}

// NewRow builds a Row from the given values.
func NewRow(values ...interface{}) Row {
	return Row(values)
}

// Copy returns an independent copy of the row.
func (r Row) Copy() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Append concatenates two rows, used by join operators.
func (r Row) Append(other Row) Row {
	out := make(Row, 0, len(r)+len(other))
	out = append(out, r...)
	out = append(out, other...)
	return out
}

// RowIter is the row-at-a-time pull contract: Next returns io.EOF when
// exhausted. Used by DML operators and as the row-form escape hatch of an
// otherwise columnar pipeline.
type RowIter interface {
	Next(ctx *Context) (Row, error)
	Close(ctx *Context) error
}

type sliceRowIter struct {
	rows []Row
	pos  int
}

func (it *sliceRowIter) Next(ctx *Context) (Row, error) {
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	r := it.rows[it.pos]
	it.pos++
	return r, nil
}

func (it *sliceRowIter) Close(ctx *Context) error { return nil }

// RowsToRowIter adapts a fixed slice of rows into a RowIter.
func RowsToRowIter(rows ...Row) RowIter {
	return &sliceRowIter{rows: rows}
}

// BatchToRows materializes every row of a BatchIter, draining and closing
// it. Used by DML operators (spec §4.12) which consume their child
// row-at-a-time, and by subquery execution (spec §4.9) collecting a small
// inner result.
func BatchToRows(ctx *Context, it BatchIter) ([]Row, error) {
	var out []Row
	for {
		b, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			it.Close(ctx)
			return nil, err
		}
		for i := 0; i < b.NumRows(); i++ {
			out = append(out, b.Row(i))
		}
	}
	return out, it.Close(ctx)
}
