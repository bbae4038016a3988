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

// Package prismdb wires the tokenizer, parser, binder, optimizer and
// physical executor into one embeddable Engine (spec §2, §6.3).
package prismdb

import (
	"context"
	"io"

	"github.com/pkg/errors"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/analyzer"
	"github.com/TuringWorks/PrismDB-sub000/sql/binder"
	"github.com/TuringWorks/PrismDB-sub000/sql/parser"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
)

// Engine is the embeddable query-execution core (spec §2 OVERVIEW): a
// Catalog collaborator supplies storage, everything from tokenizing to
// batch-at-a-time execution happens here.
type Engine struct {
	catalog pdbsql.Catalog
}

// New builds an Engine against catalog. Storage, WAL and transactions are
// the catalog's concern; the Engine never touches them directly (spec §1
// Non-goals).
func New(catalog pdbsql.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// NewSession opens a *sql.Context bound to this engine's catalog, for the
// lifetime of one client connection or goroutine (spec §5). tx may be nil
// for statements that don't need one; passing a live Transaction lets
// BEGIN/COMMIT/ROLLBACK and DML share it across statements.
func (e *Engine) NewSession(ctx context.Context, tx pdbsql.Transaction) *pdbsql.Context {
	return pdbsql.NewContext(ctx, e.catalog, tx)
}

// Query is one parsed, bound, optimized and lowered statement ready to
// run (spec §3.3's prepare phase, split out so a caller can Prepare once
// and Run many times against different parameter contexts).
type Query struct {
	text string
	exec pdbsql.Executable
}

// Prepare parses, binds, optimizes and lowers a single statement (spec
// §4.1-§4.5). Subqueries are compiled recursively through the same
// optimize+lower pipeline via the binder's injected SubqueryCompiler.
func (e *Engine) Prepare(stmt string) (*Query, error) {
	node, err := e.bind(stmt)
	if err != nil {
		return nil, err
	}
	exec, err := e.compile(node)
	if err != nil {
		return nil, err
	}
	return &Query{text: stmt, exec: exec}, nil
}

// bind parses stmt and resolves it against the catalog (spec §4.3),
// wiring analyzer.Build as the subquery compiler so every nested query
// gets the same optimize+lower treatment as the top-level statement.
//
// Parse and bind errors are wrapped with errors.Wrap at this layer
// boundary between the text/AST world and the rest of the engine: the
// wrap attaches a stack trace for diagnostics while preserving the
// underlying sql.Err* Kind, since errorkinds.Kind.Is walks an error's
// Cause() chain, which pkg/errors implements.
func (e *Engine) bind(stmt string) (pdbsql.Node, error) {
	ast, err := parser.ParseStatement(stmt)
	if err != nil {
		return nil, errors.Wrap(err, "parsing statement")
	}
	b := binder.New(e.catalog, analyzer.Build)
	node, err := b.Bind(ast)
	if err != nil {
		return nil, errors.Wrap(err, "binding statement")
	}
	return node, nil
}

// compile runs the optimizer and physical lowering pass over a bound
// plan, special-casing plan.Show since it needs a catalog schema handle
// Lower's generic signature doesn't carry (spec §4.5).
func (e *Engine) compile(node pdbsql.Node) (pdbsql.Executable, error) {
	optimized, err := analyzer.Optimize(node)
	if err != nil {
		return nil, errors.Wrap(err, "optimizing query plan")
	}
	if show, ok := optimized.(*plan.Show); ok {
		return analyzer.LowerShow(show, e.catalog.DefaultSchema())
	}
	return analyzer.Lower(optimized)
}

// Run prepares and immediately executes stmt, the common case for ad-hoc
// statements that don't need reuse across parameter bindings.
func (e *Engine) Run(ctx *pdbsql.Context, stmt string) (*Result, error) {
	ctx.Log.WithField("stmt", stmt).Trace("preparing statement")
	q, err := e.Prepare(stmt)
	if err != nil {
		ctx.Log.WithError(err).Debug("statement failed to prepare")
		return nil, err
	}
	return q.Run(ctx)
}

// Run executes a prepared Query, returning its result stream (spec §6.3).
// Prepare/Run are deliberately split (see Query's doc comment) so one
// Query can run under many different session Contexts; that's also why
// logging lives here and in Engine.Run rather than inside the optimizer --
// Optimize has no session Context to log against, since a prepared plan
// isn't tied to any one session.
func (q *Query) Run(ctx *pdbsql.Context) (*Result, error) {
	ctx.Log.WithField("stmt", q.text).Trace("executing prepared statement")
	it, err := q.exec.BatchIter(ctx)
	if err != nil {
		ctx.Log.WithError(err).Debug("statement failed to execute")
		return nil, err
	}
	return &Result{schema: q.exec.Schema(), iter: it}, nil
}

// Result is the streaming result of a statement (spec §6.3): Columns
// reports the output schema, NextBatch pulls one Batch at a time, and
// Collect drains the whole stream into memory for convenience callers.
type Result struct {
	schema pdbsql.Schema
	iter   pdbsql.BatchIter
}

// Columns reports the (name, type) pairs of the result's schema. DML
// statements report a single BIGINT column named rows_affected (spec
// §6.3).
func (r *Result) Columns() pdbsql.Schema { return r.schema }

// NextBatch returns the next Batch, or (nil, nil) once the stream is
// exhausted.
func (r *Result) NextBatch(ctx *pdbsql.Context) (*pdbsql.Batch, error) {
	b, err := r.iter.Next(ctx)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Close releases the result's underlying executor resources. Callers
// that drain via Collect need not call it themselves; Collect does so on
// their behalf.
func (r *Result) Close(ctx *pdbsql.Context) error {
	return r.iter.Close(ctx)
}

// Collected is the fully materialized form of a Result (spec §6.3's
// collect()).
type Collected struct {
	Columns pdbsql.Schema
	Rows    []pdbsql.Row
}

// Collect drains the entire result stream into memory, closing the
// underlying executor once done or on error. Not suitable for results
// too large to fit in memory; callers that need bounded memory use
// NextBatch directly.
func (r *Result) Collect(ctx *pdbsql.Context) (*Collected, error) {
	defer r.Close(ctx)

	out := &Collected{Columns: r.schema}
	for {
		batch, err := r.iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := 0; i < batch.NumRows(); i++ {
			out.Rows = append(out.Rows, batch.Row(i))
		}
	}
	return out, nil
}
