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

package memory

import (
	"sort"
	"sync"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// Database is a name -> Table namespace, implementing sql.Schema_.
type Database struct {
	mu     sync.RWMutex
	name   string
	tables map[string]*Table
}

// NewDatabase creates an empty Database named name.
func NewDatabase(name string) *Database {
	return &Database{name: name, tables: map[string]*Table{}}
}

func (d *Database) Name() string { return d.name }

func (d *Database) GetTable(name string) (pdbsql.Table, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[name]
	if !ok {
		return nil, false, nil
	}
	return t, true, nil
}

func (d *Database) ListTables() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.tables))
	for n := range d.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// CreateTable registers a new empty table built from info's column list
// (spec §6.1, §4.12 CREATE TABLE).
func (d *Database) CreateTable(info pdbsql.TableInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[info.Name]; ok {
		return pdbsql.ErrTableExists.New(info.Name)
	}
	cols := make(pdbsql.Schema, len(info.Columns))
	for i, c := range info.Columns {
		cols[i] = &pdbsql.ColumnDef{
			Name:      c.Name,
			Qualifier: info.Name,
			Type:      c.Type,
			Nullable:  c.Nullable,
			Default:   c.Default,
		}
	}
	d.tables[info.Name] = NewTable(info.Name, cols)
	return nil
}

// DropTable removes a table; it is an error to drop one that isn't there,
// matching the explicit table-not-found contract DML/DDL operators expect
// elsewhere in the catalog (spec §6.1).
func (d *Database) DropTable(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[name]; !ok {
		return pdbsql.ErrTableNotFound.New(name)
	}
	delete(d.tables, name)
	return nil
}

// AddTable registers an already-constructed Table directly, bypassing
// CreateTable's TableInfo shape -- convenient for tests and embedders
// seeding fixture data.
func (d *Database) AddTable(t *Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[t.Name()] = t
}
