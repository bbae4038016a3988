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

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// Provider is a reference sql.Catalog backed by in-process Databases
// (spec §6.1, §3.5).
type Provider struct {
	schemas     map[string]*Database
	defaultName string
}

// NewDBProvider builds a Provider from the given databases; the first one
// is the default schema used to resolve unqualified table references.
func NewDBProvider(dbs ...*Database) *Provider {
	p := &Provider{schemas: map[string]*Database{}}
	for i, db := range dbs {
		p.schemas[db.Name()] = db
		if i == 0 {
			p.defaultName = db.Name()
		}
	}
	return p
}

func (p *Provider) GetSchema(name string) (pdbsql.Schema_, bool, error) {
	if name == "" {
		name = p.defaultName
	}
	db, ok := p.schemas[name]
	if !ok {
		return nil, false, nil
	}
	return db, true, nil
}

func (p *Provider) DefaultSchema() pdbsql.Schema_ {
	db, ok := p.schemas[p.defaultName]
	if !ok {
		return nil
	}
	return db
}

func (p *Provider) ListSchemas() ([]string, error) {
	out := make([]string, 0, len(p.schemas))
	for n := range p.schemas {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}
