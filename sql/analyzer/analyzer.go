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

package analyzer

import (
	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
)

// Build runs the optimizer's rule batches over node and lowers the result
// into a physical sql/rowexec tree (spec §4.5). This is the single
// entrypoint the rest of the system (engine.go's statement path, and the
// binder's injected SubqueryCompiler) calls.
//
// plan.Show is lowered separately via LowerShow, since it needs a catalog
// schema handle Build doesn't otherwise carry; callers that might see a
// Show node should check for it before calling Build, or use Compile,
// which already knows the default schema.
func Build(node pdbsql.Node) (pdbsql.Executable, error) {
	optimized, err := Optimize(node)
	if err != nil {
		return nil, err
	}
	return Lower(optimized)
}

// Compile is Build plus the one case Build can't handle on its own
// (SHOW, which needs a catalog schema handle).
func Compile(node pdbsql.Node, defaultSchema pdbsql.Schema_) (pdbsql.Executable, error) {
	optimized, err := Optimize(node)
	if err != nil {
		return nil, err
	}
	if show, ok := optimized.(*plan.Show); ok {
		return LowerShow(show, defaultSchema)
	}
	return Lower(optimized)
}
