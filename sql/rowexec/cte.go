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

// RecursiveCTE drives semi-naive fixpoint evaluation (spec §4.11): run the
// anchor once, then repeatedly feed the previous round's delta into the
// recursive term's WorkingTable until it produces no new rows or IterCap
// is reached. All=false dedups against every row seen so far, across
// every iteration.
type RecursiveCTE struct {
	Name      string
	Anchor    pdbsql.Executable
	Recursive pdbsql.Executable
	Working   *WorkingTable // the WorkingTableScan node reachable inside Recursive
	All       bool
	IterCap   int
	schema    pdbsql.Schema
}

func NewRecursiveCTE(name string, anchor, recursive pdbsql.Executable, working *WorkingTable, all bool, iterCap int) *RecursiveCTE {
	if iterCap <= 0 {
		iterCap = 10000
	}
	return &RecursiveCTE{Name: name, Anchor: anchor, Recursive: recursive, Working: working, All: all, IterCap: iterCap, schema: anchor.Schema()}
}

func (r *RecursiveCTE) Schema() pdbsql.Schema   { return r.schema }
func (r *RecursiveCTE) Children() []pdbsql.Node { return []pdbsql.Node{r.Anchor, r.Recursive} }
func (r *RecursiveCTE) Resolved() bool          { return r.Anchor.Resolved() && r.Recursive.Resolved() }
func (r *RecursiveCTE) WithChildren(c ...pdbsql.Node) (pdbsql.Node, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New("RecursiveCTE: expected 2 children")
	}
	ae, aok := c[0].(pdbsql.Executable)
	re, rok := c[1].(pdbsql.Executable)
	if !aok || !rok {
		return nil, pdbsql.ErrExecution.New("RecursiveCTE: children must be physical")
	}
	return NewRecursiveCTE(r.Name, ae, re, r.Working, r.All, r.IterCap), nil
}
func (r *RecursiveCTE) String() string { return fmt.Sprintf("RecursiveCTE(%s)", r.Name) }

func (r *RecursiveCTE) BatchIter(ctx *pdbsql.Context) (pdbsql.BatchIter, error) {
	anchorRows, err := childRows(ctx, r.Anchor)
	if err != nil {
		return nil, err
	}
	anchor, err := drain(ctx, anchorRows)
	if err != nil {
		return nil, err
	}

	all := append([]pdbsql.Row{}, anchor...)
	seen := map[string]bool{}
	if !r.All {
		for _, row := range anchor {
			seen[rowKey(row)] = true
		}
	}

	delta := anchor
	for iter := 0; iter < r.IterCap && len(delta) > 0; iter++ {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		r.Working.Delta = delta
		recRows, err := childRows(ctx, r.Recursive)
		if err != nil {
			return nil, err
		}
		next, err := drain(ctx, recRows)
		if err != nil {
			return nil, err
		}
		if !r.All {
			var fresh []pdbsql.Row
			for _, row := range next {
				k := rowKey(row)
				if seen[k] {
					continue
				}
				seen[k] = true
				fresh = append(fresh, row)
			}
			next = fresh
		}
		all = append(all, next...)
		delta = next
	}

	return rowsToBatchIter(r.schema, all), nil
}
