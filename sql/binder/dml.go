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

package binder

import (
	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/sql/ast"
	"github.com/TuringWorks/PrismDB-sub000/sql/plan"
)

func (b *Binder) bindInsert(s *ast.InsertStmt) (pdbsql.Node, error) {
	tbl, err := b.lookupTable("", s.Table)
	if err != nil {
		return nil, err
	}
	var source pdbsql.Node
	if s.Query != nil {
		source, err = b.bindQuery(s.Query, nil)
		if err != nil {
			return nil, err
		}
	} else {
		rows := make([][]pdbsql.Expression, len(s.Values))
		for i, r := range s.Values {
			row := make([]pdbsql.Expression, len(r))
			for j, v := range r {
				be, err := b.bindExpr(v, emptyScope(), nil)
				if err != nil {
					return nil, err
				}
				row[j] = be
			}
			rows[i] = row
		}
		source = plan.NewValues(tbl.Schema(), rows)
	}
	return plan.NewInsert(s.Table, tbl, s.Columns, source), nil
}

func (b *Binder) bindUpdate(s *ast.UpdateStmt) (pdbsql.Node, error) {
	tbl, err := b.lookupTable("", s.Table)
	if err != nil {
		return nil, err
	}
	scan := plan.NewTableScan(tbl, "")
	sc := &scope{schema: scan.Schema()}
	var child pdbsql.Node = scan
	if s.Where != nil {
		pred, err := b.bindExpr(s.Where, sc, nil)
		if err != nil {
			return nil, err
		}
		child = plan.NewFilter(pred, child)
	}
	assigns := make([]plan.Assignment, len(s.Set))
	for i, a := range s.Set {
		idx := tbl.Schema().IndexOf("", a.Column)
		if idx < 0 {
			return nil, pdbsql.ErrColumnNotFound.New(a.Column)
		}
		val, err := b.bindExpr(a.Value, sc, nil)
		if err != nil {
			return nil, err
		}
		assigns[i] = plan.Assignment{ColumnIndex: idx, Value: val}
	}
	return plan.NewUpdate(s.Table, tbl, assigns, child), nil
}

func (b *Binder) bindDelete(s *ast.DeleteStmt) (pdbsql.Node, error) {
	tbl, err := b.lookupTable("", s.Table)
	if err != nil {
		return nil, err
	}
	scan := plan.NewTableScan(tbl, "")
	var child pdbsql.Node = scan
	if s.Where != nil {
		pred, err := b.bindExpr(s.Where, &scope{schema: scan.Schema()}, nil)
		if err != nil {
			return nil, err
		}
		child = plan.NewFilter(pred, child)
	}
	return plan.NewDelete(s.Table, tbl, child), nil
}

func (b *Binder) bindCreateTable(s *ast.CreateTableStmt) (pdbsql.Node, error) {
	schema_, err := b.defaultSchema()
	if err != nil {
		return nil, err
	}
	cols := make([]pdbsql.ColumnInfo, len(s.Columns))
	for i, c := range s.Columns {
		typ, err := typeFromName(c.TypeName, c.TypeArgs)
		if err != nil {
			return nil, err
		}
		var def pdbsql.Expression
		if c.Default != nil {
			def, err = b.bindExpr(c.Default, emptyScope(), nil)
			if err != nil {
				return nil, err
			}
		}
		cols[i] = pdbsql.ColumnInfo{Name: c.Name, Type: typ, Nullable: c.Nullable, Default: def}
	}
	info := pdbsql.TableInfo{Name: s.Table, Columns: cols}
	return plan.NewCreateTable(schema_, info), nil
}

func (b *Binder) bindDropTable(s *ast.DropTableStmt) (pdbsql.Node, error) {
	schema_, err := b.defaultSchema()
	if err != nil {
		return nil, err
	}
	return plan.NewDropTable(schema_, s.Table), nil
}

func (b *Binder) bindExplain(s *ast.ExplainStmt) (pdbsql.Node, error) {
	inner, err := b.Bind(s.Inner)
	if err != nil {
		return nil, err
	}
	return plan.NewExplain(inner), nil
}

func (b *Binder) bindTx(s *ast.TxStmt) (pdbsql.Node, error) {
	return plan.NewTx(plan.TxKind(s.Kind)), nil
}

func (b *Binder) bindShow(s *ast.ShowStmt) (pdbsql.Node, error) {
	return plan.NewShow(plan.ShowKind(s.Kind), s.Arg), nil
}

func (b *Binder) bindSet(s *ast.SetStmt) (pdbsql.Node, error) {
	val, err := b.bindExpr(s.Value, emptyScope(), nil)
	if err != nil {
		return nil, err
	}
	return plan.NewSetVar(s.Name, val), nil
}

func (b *Binder) bindUtil(s *ast.UtilStmt) (pdbsql.Node, error) {
	return plan.NewUtil(plan.UtilKind(s.Kind), s.Name), nil
}
