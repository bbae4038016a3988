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

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Context is the ExecutionContext threaded explicitly through every Eval /
// RowIter / BatchIter call (spec §5, §9): it carries the catalog handle,
// the active transaction, the in-scope CTE map, and a cancellation flag.
// It is never stored in package-level state.
type Context struct {
	context.Context

	id         uuid.UUID
	Catalog    Catalog
	Tx         Transaction
	CTEs       map[string]Node
	Log        *log.Entry
	cancelled  int32

	// OuterRow holds the current outer row while a correlated subquery's
	// inner pipeline is being re-run for that row (spec §4.9); nil outside
	// a correlated-subquery evaluation. Expression.OuterColumnRef reads
	// from this field rather than from the row passed to Eval, since the
	// inner plan's row shape has no place for outer columns.
	OuterRow Row

	vars map[string]interface{} // session configuration set via SET (spec §6.2)
}

// SetSessionVar records a session configuration value set via SET name =
// value (spec §6.2).
func (ctx *Context) SetSessionVar(name string, value interface{}) {
	if ctx.vars == nil {
		ctx.vars = map[string]interface{}{}
	}
	ctx.vars[name] = value
}

// SessionVar returns a previously-set session configuration value.
func (ctx *Context) SessionVar(name string) (interface{}, bool) {
	v, ok := ctx.vars[name]
	return v, ok
}

// NewEmptyContext returns a Context with a background context.Context and
// no catalog/transaction attached; used by unit tests exercising a single
// expression or operator in isolation.
func NewEmptyContext() *Context {
	return NewContext(context.Background(), nil, nil)
}

// NewContext builds a Context around parent, a catalog snapshot, and a
// transaction handle (spec §3.5: "all plans are bound against a fixed
// catalog snapshot seen at bind time").
func NewContext(parent context.Context, catalog Catalog, tx Transaction) *Context {
	id := uuid.New()
	return &Context{
		Context: parent,
		id:      id,
		Catalog: catalog,
		Tx:      tx,
		CTEs:    map[string]Node{},
		Log:     log.WithField("session", id.String()),
	}
}

// WithCTEs returns a shallow copy of ctx with an extended CTE scope map,
// used when a subquery's bound plan must see the parent's CTEs without
// mutating the parent's map (spec §4.3).
func (ctx *Context) WithCTEs(ctes map[string]Node) *Context {
	merged := make(map[string]Node, len(ctx.CTEs)+len(ctes))
	for k, v := range ctx.CTEs {
		merged[k] = v
	}
	for k, v := range ctes {
		merged[k] = v
	}
	cp := *ctx
	cp.CTEs = merged
	return &cp
}

// WithOuterRow returns a shallow copy of ctx with OuterRow set to row, used
// when re-running a correlated subquery's inner pipeline once per outer
// row (spec §4.9).
func (ctx *Context) WithOuterRow(row Row) *Context {
	cp := *ctx
	cp.OuterRow = row
	return &cp
}

// Cancel marks the statement cancelled; polled at batch boundaries by
// executors (spec §5).
func (ctx *Context) Cancel() { atomic.StoreInt32(&ctx.cancelled, 1) }

// Cancelled reports whether Cancel was called or the embedded
// context.Context was cancelled/deadline-exceeded.
func (ctx *Context) Cancelled() bool {
	if atomic.LoadInt32(&ctx.cancelled) != 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// CheckCancelled returns ErrCancelled if the statement has been cancelled;
// operators call this at every batch boundary (spec §5).
func (ctx *Context) CheckCancelled() error {
	if ctx.Cancelled() {
		return ErrCancelled.New()
	}
	return nil
}

// SessionID returns the UUID assigned to this context at creation, used as
// the transaction/session identifier exposed to the catalog (spec §3.5).
func (ctx *Context) SessionID() uuid.UUID { return ctx.id }
