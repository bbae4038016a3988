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

// Package transform provides generic bottom-up tree rewrite and read-only
// walk helpers over sql.Node/sql.Expression, used by every analyzer rule
// (spec §4.5) instead of each rule hand-rolling its own recursion.
package transform

import (
	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// TreeIdentity reports whether a rewrite actually replaced anything, so
// callers can skip re-running downstream rules on an unchanged tree.
type TreeIdentity bool

const (
	SameTree TreeIdentity = false
	NewTree  TreeIdentity = true
)

// NodeFunc is applied to one node during a bottom-up Node rewrite.
type NodeFunc func(n pdbsql.Node) (pdbsql.Node, TreeIdentity, error)

// ExprFunc is applied to one expression during a bottom-up Expression
// rewrite.
type ExprFunc func(e pdbsql.Expression) (pdbsql.Expression, TreeIdentity, error)

// NodeVisitor is a read-only pre-order Node visitor; returning nil stops
// descent into that node's children.
type NodeVisitor interface {
	Visit(n pdbsql.Node) NodeVisitor
}

type nodeVisitorFunc func(pdbsql.Node) NodeVisitor

func (f nodeVisitorFunc) Visit(n pdbsql.Node) NodeVisitor { return f(n) }

// NodeFuncVisitor adapts a plain func into a NodeVisitor.
func NodeFuncVisitor(f func(pdbsql.Node) NodeVisitor) NodeVisitor {
	return nodeVisitorFunc(f)
}

// WalkNode performs a pre-order traversal of node, calling v.Visit on each
// node (including nil sentinels marking the end of a subtree, matching the
// teacher's Walk contract) and recursing into whatever visitor v.Visit
// returns, or stopping that branch on nil.
func WalkNode(v NodeVisitor, node pdbsql.Node) {
	if v = v.Visit(node); v == nil {
		return
	}
	if node == nil {
		return
	}
	for _, c := range node.Children() {
		WalkNode(v, c)
	}
	v.Visit(nil)
}

// InspectNode is the common case of WalkNode: f decides whether to
// continue into a node's children, with no separate nil sentinel.
func InspectNode(node pdbsql.Node, f func(pdbsql.Node) bool) {
	var v NodeVisitor
	v = NodeFuncVisitor(func(n pdbsql.Node) NodeVisitor {
		if n == nil || !f(n) {
			return nil
		}
		return v
	})
	WalkNode(v, node)
}

// NodeExprs returns every expression directly owned by n (n's
// ExpressionContainer slots), or nil if n owns none.
func NodeExprs(n pdbsql.Node) []pdbsql.Expression {
	if ec, ok := n.(pdbsql.ExpressionContainer); ok {
		return ec.Expressions()
	}
	return nil
}

// NodeExprsUp rewrites every expression owned by n (not its children) via
// ExprUp, replacing them via WithExpressions if any changed.
func NodeExprsUp(n pdbsql.Node, f ExprFunc) (pdbsql.Node, TreeIdentity, error) {
	ec, ok := n.(pdbsql.ExpressionContainer)
	if !ok {
		return n, SameTree, nil
	}
	exprs := ec.Expressions()
	if len(exprs) == 0 {
		return n, SameTree, nil
	}
	same := SameTree
	newExprs := make([]pdbsql.Expression, len(exprs))
	for i, e := range exprs {
		ne, s, err := ExprUp(e, f)
		if err != nil {
			return nil, SameTree, err
		}
		newExprs[i] = ne
		if s == NewTree {
			same = NewTree
		}
	}
	if same == SameTree {
		return n, SameTree, nil
	}
	newNode, err := ec.WithExpressions(newExprs...)
	if err != nil {
		return nil, SameTree, err
	}
	return newNode, NewTree, nil
}

// NodeUp rewrites node bottom-up: children first, then node itself, via f.
// Every rule in sql/analyzer is one call to NodeUp (or NodeExprsBelow
// composed with it for expression-level rules).
func NodeUp(node pdbsql.Node, f NodeFunc) (pdbsql.Node, TreeIdentity, error) {
	if node == nil {
		return node, SameTree, nil
	}
	children := node.Children()
	same := SameTree
	var newChildren []pdbsql.Node
	if len(children) > 0 {
		newChildren = make([]pdbsql.Node, len(children))
		for i, c := range children {
			nc, s, err := NodeUp(c, f)
			if err != nil {
				return nil, SameTree, err
			}
			newChildren[i] = nc
			if s == NewTree {
				same = NewTree
			}
		}
	}
	cur := node
	if same == NewTree {
		var err error
		cur, err = node.WithChildren(newChildren...)
		if err != nil {
			return nil, SameTree, err
		}
	}
	out, s, err := f(cur)
	if err != nil {
		return nil, SameTree, err
	}
	if s == NewTree {
		same = NewTree
	}
	return out, same, nil
}

// ExprUp rewrites an expression tree bottom-up, mirroring NodeUp.
func ExprUp(expr pdbsql.Expression, f ExprFunc) (pdbsql.Expression, TreeIdentity, error) {
	if expr == nil {
		return expr, SameTree, nil
	}
	children := expr.Children()
	same := SameTree
	var newChildren []pdbsql.Expression
	if len(children) > 0 {
		newChildren = make([]pdbsql.Expression, len(children))
		for i, c := range children {
			nc, s, err := ExprUp(c, f)
			if err != nil {
				return nil, SameTree, err
			}
			newChildren[i] = nc
			if s == NewTree {
				same = NewTree
			}
		}
	}
	cur := expr
	if same == NewTree {
		var err error
		cur, err = expr.WithChildren(newChildren...)
		if err != nil {
			return nil, SameTree, err
		}
	}
	out, s, err := f(cur)
	if err != nil {
		return nil, SameTree, err
	}
	if s == NewTree {
		same = NewTree
	}
	return out, same, nil
}

// NodeExprsBelow rewrites every expression owned by every node in the tree
// rooted at node (node-level child recursion composed with
// expression-level rewrite at each node), the shape every constant-folding
// / column-rewriting analyzer rule needs.
func NodeExprsBelow(node pdbsql.Node, f ExprFunc) (pdbsql.Node, TreeIdentity, error) {
	return NodeUp(node, func(n pdbsql.Node) (pdbsql.Node, TreeIdentity, error) {
		return NodeExprsUp(n, f)
	})
}
