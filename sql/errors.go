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
	errorkinds "gopkg.in/src-d/go-errors.v1"
)

// Error kinds. Every error surfaced by the core belongs to exactly one of
// these classes (§6.4). Each is a *errorkinds.Kind; calling .New(args...)
// produces a positioned, stack-carrying error of that kind.
var (
	ErrParse          = errorkinds.NewKind("parse error: %s")
	ErrCatalog        = errorkinds.NewKind("catalog error: %s")
	ErrTypeMismatch   = errorkinds.NewKind("type mismatch: %s")
	ErrInvalidValue   = errorkinds.NewKind("invalid value: %s")
	ErrExecution      = errorkinds.NewKind("execution error: %s")
	ErrNotImplemented = errorkinds.NewKind("not implemented: %s")
	ErrCancelled      = errorkinds.NewKind("statement cancelled")

	// Finer-grained kinds used throughout the pipeline; all of them are
	// still classified under one of the seven above via Classify.
	ErrTableNotFound       = errorkinds.NewKind("table not found: %s")
	ErrTableExists         = errorkinds.NewKind("table already exists: %s")
	ErrSchemaNotFound      = errorkinds.NewKind("schema not found: %s")
	ErrColumnNotFound      = errorkinds.NewKind("column %q not found")
	ErrAmbiguousColumn     = errorkinds.NewKind("ambiguous column name %q")
	ErrCTENotFound         = errorkinds.NewKind("common table expression %q not found")
	ErrDivideByZero        = errorkinds.NewKind("division by zero")
	ErrScalarSubqueryRows  = errorkinds.NewKind("scalar subquery returned more than one row")
	ErrRecursionCapReached = errorkinds.NewKind("recursive CTE exceeded iteration cap of %d")
	ErrInvalidFrame        = errorkinds.NewKind("invalid window frame: %s")
	ErrUnknownFunction     = errorkinds.NewKind("unknown function %q")
	ErrWrongNumArgs        = errorkinds.NewKind("function %q expects %d arguments, got %d")
)

// errorClass groups the finer-grained kinds into one of the seven
// user-visible classes from spec §6.4.
var errorClass = map[*errorkinds.Kind]*errorkinds.Kind{
	ErrTableNotFound:      ErrCatalog,
	ErrTableExists:        ErrCatalog,
	ErrSchemaNotFound:     ErrCatalog,
	ErrColumnNotFound:     ErrCatalog,
	ErrAmbiguousColumn:    ErrCatalog,
	ErrCTENotFound:        ErrCatalog,
	ErrDivideByZero:       ErrExecution,
	ErrScalarSubqueryRows: ErrExecution,
	ErrRecursionCapReached: ErrExecution,
	ErrInvalidFrame:        ErrExecution,
	ErrUnknownFunction:     ErrNotImplemented,
	ErrWrongNumArgs:        ErrTypeMismatch,
}

// Classify maps any error produced by the core onto its spec §6.4 class.
// Errors not produced through one of the Kinds above classify as
// ErrExecution, the conservative default (aborts + rollback).
func Classify(err error) *errorkinds.Kind {
	if err == nil {
		return nil
	}
	for kind, class := range errorClass {
		if kind.Is(err) {
			return class
		}
	}
	for _, top := range []*errorkinds.Kind{ErrParse, ErrCatalog, ErrTypeMismatch, ErrInvalidValue, ErrExecution, ErrNotImplemented, ErrCancelled} {
		if top.Is(err) {
			return top
		}
	}
	return ErrExecution
}

// IsCancelled reports whether err is (or wraps) a cancellation.
func IsCancelled(err error) bool {
	return err != nil && ErrCancelled.Is(err)
}
