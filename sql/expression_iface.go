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

import "fmt"

// Expression is one node of the expression DAG (spec §3.3). Nodes are
// shared by reference across plan nodes and are immutable after binding;
// WithChildren returns a new node rather than mutating in place.
type Expression interface {
	fmt.Stringer

	Type() Type
	IsNullable() bool

	// Eval evaluates the expression against a single row (row-at-a-time
	// form, spec §4.6). Must be semantically equivalent to indexing the
	// result of EvalBatch at the same row.
	Eval(ctx *Context, row Row) (interface{}, error)

	Children() []Expression
	WithChildren(children ...Expression) (Expression, error)

	// Resolved reports whether every name inside this expression has been
	// bound to a concrete column index/type. Unresolved nodes only exist
	// transiently during binding.
	Resolved() bool
}

// BatchEvaluator is implemented by expressions that provide a native
// vectorized evaluation path; evaluator.go's generic EvalBatch falls back
// to calling Eval per row when an expression does not implement it.
type BatchEvaluator interface {
	EvalBatch(ctx *Context, batch *Batch) (*Vector, error)
}

// Deterministic reports whether evaluating e twice on the same input is
// guaranteed to produce the same value (spec §4.6): computed bottom-up,
// false if the expression (or any child) is RANDOM/NOW/CURRENT_TIMESTAMP.
func Deterministic(e Expression) bool {
	if nd, ok := e.(interface{ IsNonDeterministic() bool }); ok && nd.IsNonDeterministic() {
		return false
	}
	for _, c := range e.Children() {
		if !Deterministic(c) {
			return false
		}
	}
	return true
}
