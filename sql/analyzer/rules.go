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

// Package analyzer implements the rule-based logical optimizer and the
// physical lowering pass (spec §4.5): a small fixed-point rule batch
// rewrites the bound sql/plan tree, then lower.go turns the result into a
// sql/rowexec tree.
package analyzer

import (
	"sort"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/expression"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
	"github.com/TuringWorks/PrismDB-sub000/sql/transform"
)

// Rule rewrites one bound plan tree, reporting whether it changed
// anything so the batch runner knows whether another pass might help.
type Rule func(node pdbsql.Node) (pdbsql.Node, transform.TreeIdentity, error)

// Batch runs every Rule in order, repeating the whole batch until a full
// pass makes no change or maxPasses is hit (spec §4.5's fixed-point rule
// application).
type Batch struct {
	Rules     []Rule
	MaxPasses int
}

func (b Batch) run(node pdbsql.Node) (pdbsql.Node, error) {
	max := b.MaxPasses
	if max <= 0 {
		max = 8
	}
	for i := 0; i < max; i++ {
		changed := false
		for _, rule := range b.Rules {
			n, identity, err := rule(node)
			if err != nil {
				return nil, err
			}
			if identity == transform.NewTree {
				changed = true
			}
			node = n
		}
		if !changed {
			break
		}
	}
	return node, nil
}

// DefaultBatches is the optimizer's standard rule set (spec §4.5):
// constant folding first (so later rules see simplified predicates), then
// pushdown rules, which only need one pass since they don't create new
// pushdown opportunities for each other.
func DefaultBatches() []Batch {
	return []Batch{
		{Rules: []Rule{FoldConstants}, MaxPasses: 4},
		{Rules: []Rule{PushdownFilters, PushdownLimit, PushdownProjection}, MaxPasses: 1},
	}
}

// Optimize runs every default batch over node in order (spec §4.5).
func Optimize(node pdbsql.Node) (pdbsql.Node, error) {
	var err error
	for _, b := range DefaultBatches() {
		node, err = b.run(node)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// FoldConstants replaces any expression subtree whose children are all
// Literals with its evaluated Literal result, skipping non-deterministic
// expressions (spec §4.5 rule 1).
func FoldConstants(node pdbsql.Node) (pdbsql.Node, transform.TreeIdentity, error) {
	return transform.NodeExprsBelow(node, foldExpr)
}

func foldExpr(e pdbsql.Expression) (pdbsql.Expression, transform.TreeIdentity, error) {
	if _, ok := e.(*expression.Literal); ok {
		return e, transform.SameTree, nil
	}
	if !pdbsql.Deterministic(e) {
		return e, transform.SameTree, nil
	}
	children := e.Children()
	if len(children) == 0 {
		return e, transform.SameTree, nil
	}
	for _, c := range children {
		if _, ok := c.(*expression.Literal); !ok {
			return e, transform.SameTree, nil
		}
	}
	v, err := e.Eval(pdbsql.NewEmptyContext(), nil)
	if err != nil {
		// leave non-foldable errors (e.g. divide by zero) to surface at
		// execution time instead of failing the whole optimize pass
		return e, transform.SameTree, nil
	}
	return expression.NewLiteral(v, e.Type()), transform.NewTree, nil
}

// PushdownFilters copies a Filter's predicate conjuncts down to its
// child's TableScan.Filters hint when the child is a bare TableScan (spec
// §4.5 rule 2). The Filter node itself is always kept: Scan.Filters is a
// best-effort hint for the storage Table, not a guarantee, so
// pushing down never changes result correctness, only how much work the
// storage collaborator can skip. Deliberately scoped to the
// Filter-directly-over-TableScan shape; filters above a Join/Project are
// left in place rather than risk pushing a predicate past a column
// rename or a join boundary it wasn't written against.
func PushdownFilters(node pdbsql.Node) (pdbsql.Node, transform.TreeIdentity, error) {
	return transform.NodeUp(node, func(n pdbsql.Node) (pdbsql.Node, transform.TreeIdentity, error) {
		f, ok := n.(*plan.Filter)
		if !ok {
			return n, transform.SameTree, nil
		}
		scan, ok := f.Child.(*plan.TableScan)
		if !ok {
			return n, transform.SameTree, nil
		}
		conjuncts := splitConjuncts(f.Predicate)
		newScan := *scan
		newScan.Filters = append(append([]pdbsql.Expression{}, scan.Filters...), conjuncts...)
		newFilter := plan.NewFilter(f.Predicate, &newScan)
		return newFilter, transform.NewTree, nil
	})
}

func splitConjuncts(e pdbsql.Expression) []pdbsql.Expression {
	if and, ok := e.(*expression.And); ok {
		return append(splitConjuncts(and.Left), splitConjuncts(and.Right)...)
	}
	return []pdbsql.Expression{e}
}

// PushdownLimit copies a Limit's row cap down to a child TableScan's
// Limit hint when the Limit's child is a bare TableScan; a Filter or Sort
// in between leaves the Limit untouched, since either one changes which
// scanned rows end up counting toward the cap (spec §4.5 rule 3).
func PushdownLimit(node pdbsql.Node) (pdbsql.Node, transform.TreeIdentity, error) {
	return transform.NodeUp(node, func(n pdbsql.Node) (pdbsql.Node, transform.TreeIdentity, error) {
		l, ok := n.(*plan.Limit)
		if !ok {
			return n, transform.SameTree, nil
		}
		count, ok := constIntValue(l.Count)
		if !ok {
			return n, transform.SameTree, nil
		}
		offset, _ := constIntValue(l.Offset)
		cap := count + offset

		// A Filter between Limit and TableScan means some scanned rows
		// won't count toward the limit, so the scan would need to read
		// past `cap` rows -- only push down over a bare TableScan.
		scan, ok := l.Child.(*plan.TableScan)
		if !ok {
			return n, transform.SameTree, nil
		}
		newScan := *scan
		newScan.Limit = minPositive(newScan.Limit, cap)
		return plan.NewLimit(l.Count, l.Offset, &newScan), transform.NewTree, nil
	})
}

func constIntValue(e pdbsql.Expression) (int, bool) {
	if e == nil {
		return 0, false
	}
	lit, ok := e.(*expression.Literal)
	if !ok {
		return 0, false
	}
	v, err := lit.Eval(nil, nil)
	if err != nil {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func minPositive(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// PushdownProjection copies the set of a bare TableScan's columns actually
// referenced above it -- by a Project's output expressions, or by a single
// Filter wrapped directly around the scan -- down to TableScan.Projected
// (spec §4.5 rule 4). The storage collaborator may use this hint to skip
// reading/materializing the rest; rows still come back the scan's full
// declared width with unreferenced columns nil (memory.Table.Scan does
// this), so no GetField index anywhere else in the tree needs renumbering.
// Deliberately scoped to Project directly over a bare TableScan, optionally
// through one Filter: a Join in between would need each side's column
// indices tracked separately, which this pass doesn't attempt.
func PushdownProjection(node pdbsql.Node) (pdbsql.Node, transform.TreeIdentity, error) {
	return transform.NodeUp(node, func(n pdbsql.Node) (pdbsql.Node, transform.TreeIdentity, error) {
		proj, ok := n.(*plan.Project)
		if !ok {
			return n, transform.SameTree, nil
		}
		var scan *plan.TableScan
		var between *plan.Filter
		switch c := proj.Child.(type) {
		case *plan.TableScan:
			scan = c
		case *plan.Filter:
			if s, ok := c.Child.(*plan.TableScan); ok {
				scan = s
				between = c
			}
		}
		if scan == nil || scan.Projected != nil {
			return n, transform.SameTree, nil
		}
		width := len(scan.Schema())
		needed := map[int]bool{}
		for _, it := range proj.Items {
			collectFieldIndexes(it.Expr, needed)
		}
		if between != nil {
			collectFieldIndexes(between.Predicate, needed)
		}
		if len(needed) == 0 || len(needed) >= width {
			return n, transform.SameTree, nil
		}
		idxs := make([]int, 0, len(needed))
		for i := range needed {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)

		newScan := *scan
		newScan.Projected = idxs
		var newChild pdbsql.Node = &newScan
		if between != nil {
			nf := *between
			nf.Child = &newScan
			newChild = &nf
		}
		newProj, err := proj.WithChildren(newChild)
		if err != nil {
			return n, transform.SameTree, err
		}
		return newProj, transform.NewTree, nil
	})
}

func collectFieldIndexes(e pdbsql.Expression, out map[int]bool) {
	if gf, ok := e.(*expression.GetField); ok {
		out[gf.Index()] = true
		return
	}
	for _, c := range e.Children() {
		collectFieldIndexes(c, out)
	}
}
