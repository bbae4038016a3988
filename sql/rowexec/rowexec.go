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

// Package rowexec is the executor driver (spec §4.5 lowering targets,
// §5): every type here implements sql.Executable, built by
// sql/analyzer's physical lowering pass from a sql/plan logical tree.
// Most operators pull their child row-at-a-time internally (via
// sql.BatchIterToRowIter) and re-chunk the result with
// sql.RowIterToBatchIter -- favoring the teacher's straightforward per-row
// operator style over a fully vectorized kernel per operator, matching
// spec §4.6's "implementations may choose either" contract.
package rowexec

import (
	"io"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// childRows pulls rows one at a time from an Executable, hiding the
// Batch<->Row bridging every operator needs.
func childRows(ctx *pdbsql.Context, e pdbsql.Executable) (pdbsql.RowIter, error) {
	it, err := e.BatchIter(ctx)
	if err != nil {
		return nil, err
	}
	return pdbsql.BatchIterToRowIter(it), nil
}

// rowsToBatchIter re-chunks a manually assembled row slice back into the
// columnar contract.
func rowsToBatchIter(schema pdbsql.Schema, rows []pdbsql.Row) pdbsql.BatchIter {
	return pdbsql.RowIterToBatchIter(schema, pdbsql.RowsToRowIter(rows...), 0)
}

// drain materializes every row of it, closing it afterward.
func drain(ctx *pdbsql.Context, it pdbsql.RowIter) ([]pdbsql.Row, error) {
	var out []pdbsql.Row
	for {
		r, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			it.Close(ctx)
			return nil, err
		}
		out = append(out, r)
	}
	return out, it.Close(ctx)
}

func truthy(v interface{}) bool { return pdbsql.BoolToTribool(v) == pdbsql.True }
