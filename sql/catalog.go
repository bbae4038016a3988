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

// Transaction is the handle threaded unchanged through ExecutionContext
// for the lifetime of one statement (spec §3.5, §5). The core only relies
// on identity and Commit/Rollback; isolation semantics are the
// collaborator's concern.
type Transaction interface {
	Commit() error
	Rollback() error
}

// ColumnInfo describes one column as the catalog reports it for DDL (spec
// §6.1): (name, logical type, nullable, optional default expression).
type ColumnInfo struct {
	Name     string
	Type     Type
	Nullable bool
	Default  Expression
}

// TableInfo describes a table to be created (spec §6.1).
type TableInfo struct {
	Name    string
	Columns []ColumnInfo
}

// Table is the storage contract consumed by TableScan and the DML
// operators (spec §6.1). Scan honors projection; filters/limit are
// best-effort pushdown hints the operators above re-verify.
type Table interface {
	Name() string
	Schema() Schema

	// Scan returns a RowIter honoring projectedCols (nil = all columns, by
	// schema position); filters and limit are optional pushdown hints, not
	// obligations -- the physical Scan operator re-checks them.
	Scan(ctx *Context, projectedCols []int, filters []Expression, limit int) (RowIter, error)

	Insert(ctx *Context, row Row) error
	Update(ctx *Context, rowID interface{}, newValues Row) error
	Delete(ctx *Context, rowID interface{}) error
}

// Schema_ is a catalog-level namespace of tables (named Schema_ to avoid
// colliding with the sql.Schema column-list type).
type Schema_ interface {
	Name() string
	GetTable(name string) (Table, bool, error)
	ListTables() ([]string, error)
	CreateTable(info TableInfo) error
	DropTable(name string) error
}

// Catalog exposes schemas -> tables (spec §3.5, §6.1), read through an
// interior-locked handle treated as read-mostly; DDL operators are the
// only writers (spec §5).
type Catalog interface {
	GetSchema(name string) (Schema_, bool, error)
	DefaultSchema() Schema_
	ListSchemas() ([]string, error)
}
