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

package expression

import pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"

// EvalBatch is the generic bridge spec §4.6 requires: a column-form result
// semantically equivalent to calling Eval on every row. Expressions that
// implement pdbsql.BatchEvaluator provide their own native vectorized
// path (e.g. a SIMD-friendly arithmetic kernel); everything else falls
// back to evaluating row by row and packing the results into a Vector.
func EvalBatch(ctx *pdbsql.Context, e pdbsql.Expression, batch *pdbsql.Batch) (*pdbsql.Vector, error) {
	if be, ok := e.(pdbsql.BatchEvaluator); ok {
		return be.EvalBatch(ctx, batch)
	}
	n := batch.NumRows()
	values := make([]interface{}, n)
	for i := 0; i < n; i++ {
		v, err := e.Eval(ctx, batch.Row(i))
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return pdbsql.NewVector(e.Type(), values), nil
}
