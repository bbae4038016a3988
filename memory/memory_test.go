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

package memory_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
	"github.com/TuringWorks/PrismDB-sub000/memory"
)

func TestTableInsertScan(t *testing.T) {
	require := require.New(t)
	ctx := pdbsql.NewEmptyContext()

	tbl := memory.NewTable("orders", pdbsql.Schema{
		{Name: "id", Type: pdbsql.Int64},
		{Name: "amount", Type: pdbsql.Float64},
	})
	require.NoError(tbl.Insert(ctx, pdbsql.NewRow(int64(1), 9.5)))
	require.NoError(tbl.Insert(ctx, pdbsql.NewRow(int64(2), 3.0)))

	it, err := tbl.Scan(ctx, nil, nil, 0)
	require.NoError(err)
	var rows []pdbsql.Row
	for {
		row, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(err)
		rows = append(rows, row)
	}
	require.Len(rows, 2)
}

func TestTableUpdateDelete(t *testing.T) {
	require := require.New(t)
	ctx := pdbsql.NewEmptyContext()

	tbl := memory.NewTable("t", pdbsql.Schema{{Name: "id", Type: pdbsql.Int64}})
	require.NoError(tbl.Insert(ctx, pdbsql.NewRow(int64(1))))

	it, err := tbl.Scan(ctx, nil, nil, 0)
	require.NoError(err)
	row, err := it.Next(ctx)
	require.NoError(err)

	require.NoError(tbl.Update(ctx, row, pdbsql.NewRow(int64(2))))

	it, err = tbl.Scan(ctx, nil, nil, 0)
	require.NoError(err)
	row, err = it.Next(ctx)
	require.NoError(err)
	require.Equal(int64(2), row[0])

	require.NoError(tbl.Delete(ctx, row))
	it, err = tbl.Scan(ctx, nil, nil, 0)
	require.NoError(err)
	_, err = it.Next(ctx)
	require.Equal(io.EOF, err)
}

func TestDatabaseCreateDropTable(t *testing.T) {
	require := require.New(t)
	db := memory.NewDatabase("main")

	require.NoError(db.CreateTable(pdbsql.TableInfo{
		Name: "widgets",
		Columns: []pdbsql.ColumnInfo{
			{Name: "id", Type: pdbsql.Int64},
		},
	}))
	require.Error(db.CreateTable(pdbsql.TableInfo{Name: "widgets"}))

	names, err := db.ListTables()
	require.NoError(err)
	require.Equal([]string{"widgets"}, names)

	require.NoError(db.DropTable("widgets"))
	require.Error(db.DropTable("widgets"))
}

func TestProviderDefaultSchema(t *testing.T) {
	require := require.New(t)
	db := memory.NewDatabase("main")
	pro := memory.NewDBProvider(db)

	require.Equal("main", pro.DefaultSchema().Name())
	got, ok, err := pro.GetSchema("")
	require.NoError(err)
	require.True(ok)
	require.Equal("main", got.Name())

	_, ok, err = pro.GetSchema("nope")
	require.NoError(err)
	require.False(ok)
}
