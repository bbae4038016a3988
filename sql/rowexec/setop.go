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

package rowexec

import (
	"fmt"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// SetOpKind mirrors plan.SetOpKind.
type SetOpKind int

const (
	Union SetOpKind = iota
	Intersect
	Except
)

// SetOp implements UNION/INTERSECT/EXCEPT [ALL] (spec §4.10). All=false
// dedups the combined result using the same string-keying approach as
// HashAggregate's group key.
type SetOp struct {
	Left, Right pdbsql.Executable
	Kind        SetOpKind
	All         bool
}

func NewSetOp(kind SetOpKind, all bool, left, right pdbsql.Executable) *SetOp {
	return &SetOp{Left: left, Right: right, Kind: kind, All: all}
}

// Schema returns the left side's schema. This is safe because
// binder.widenSetOpSides already made both sides match positionally --
// same column count, same widened type per column, inserting a Cast on
// whichever side needed it -- before a SetOp logical node is ever built.
func (s *SetOp) Schema() pdbsql.Schema { return s.Left.Schema() }
func (s *SetOp) Children() []pdbsql.Node { return []pdbsql.Node{s.Left, s.Right} }
func (s *SetOp) Resolved() bool          { return s.Left.Resolved() && s.Right.Resolved() }
func (s *SetOp) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("SetOp: expected 2 children")
	}
	le, lok := c[0].(pdbsql.Executable)
	re, rok := c[1].(pdbsql.Executable)
	if !lok || !rok {
		return nil, pdbsql.ErrExecution.New("SetOp: children must be physical")
	}
	return NewSetOp(s.Kind, s.All, le, re), nil
}
func (s *SetOp) String() string { return fmt.Sprintf("SetOp(kind=%d, all=%v)", s.Kind, s.All) }

func (s *SetOp) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	leftRows, err := childRows(ctx, s.Left)
	if err != nil {
		return nil, err
	}
	left, err := drain(ctx, leftRows)
	if err != nil {
		return nil, err
	}
	rightRows, err := childRows(ctx, s.Right)
	if err != nil {
		return nil, err
	}
	right, err := drain(ctx, rightRows)
	if err != nil {
		return nil, err
	}

	var out []pdbsql.Row
	switch s.Kind {
	case Union:
		out = append(out, left...)
		out = append(out, right...)
	case Intersect:
		rightCounts := countRows(right)
		for _, r := range left {
			k := rowKey(r)
			if rightCounts[k] > 0 {
				out = append(out, r)
				if !s.All {
					rightCounts[k] = 0
				} else {
					rightCounts[k]--
				}
			}
		}
	case Except:
		rightSeen := countRows(right)
		for _, r := range left {
			k := rowKey(r)
			if rightSeen[k] > 0 {
				if s.All {
					rightSeen[k]--
				}
				continue
			}
			out = append(out, r)
		}
	}

	if !s.All {
		out = dedupRows(out)
	}
	return rowsToBatchIter(s.Schema(), out), nil
}

func rowKey(r pdbsql.Row) string { return fmt.Sprintf("%v", []interface{}(r)) }

func countRows(rows []pdbsql.Row) map[string]int {
	m := map[string]int{}
	for _, r := range rows {
		m[rowKey(r)]++
	}
	return m
}

func dedupRows(rows []pdbsql.Row) []pdbsql.Row {
	seen := map[string]bool{}
	var out []pdbsql.Row
	for _, r := range rows {
		k := rowKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
