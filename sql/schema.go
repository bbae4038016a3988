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

import "strings"

// ColumnDef describes one column of a schema (spec §3.5): name, logical
// type, nullability, and an optional source qualifier (table/alias name)
// used by the binder for qualified lookups.
type ColumnDef struct {
	Name      string
	Qualifier string
	Type      Type
	Nullable  bool
	Default   Expression // nil if no declared default
}

// Schema is the ordered list of (name, type) every plan node and table
// exposes (spec §3.4).
type Schema []*ColumnDef

// Names returns the schema's column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// IndexOf returns the position of the unqualified column name match, or -1.
// When qualifier is non-empty it is matched first; see Binder resolution
// rules (spec §4.3).
func (s Schema) IndexOf(qualifier, name string) int {
	name = strings.ToLower(name)
	qualifier = strings.ToLower(qualifier)
	if qualifier != "" {
		for i, c := range s {
			if strings.ToLower(c.Qualifier) == qualifier && strings.ToLower(c.Name) == name {
				return i
			}
		}
		return -1
	}
	for i, c := range s {
		if strings.ToLower(c.Name) == name {
			return i
		}
	}
	return -1
}

// Copy returns a shallow copy of the schema (new slice, shared ColumnDefs).
func (s Schema) Copy() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	return out
}
