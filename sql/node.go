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

// Node is a logical- or physical-plan operator (spec §3.4). Every node's
// schema is fully determined by its inputs and its local specification; it
// never depends on runtime data (spec §3.4, §4.4).
type Node interface {
	fmt.Stringer

	Schema() Schema
	Children() []Node
	WithChildren(children ...Node) (Node, error)

	// Resolved reports whether every name referenced by this node (and its
	// expressions) has been bound. Analogous to Expression.Resolved.
	Resolved() bool
}

// Executable is implemented by physical-plan nodes: they can be driven as
// a BatchIter (spec §3.4, §5).
type Executable interface {
	Node
	BatchIter(ctx *Context) (BatchIter, error)
}

// ExpressionContainer is implemented by plan nodes that carry expressions
// (Filter, Projection, Aggregate, Join, ...), letting the optimizer and
// binder rewrite expressions generically without a type switch per node
// kind (spec §4.4's generic visitor).
type ExpressionContainer interface {
	Node
	Expressions() []Expression
	WithExpressions(exprs ...Expression) (Node, error)
}
