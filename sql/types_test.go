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
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalCreate(t *testing.T) {
	tests := []struct {
		precision   int
		scale       int
		expectedErr bool
	}{
		{0, 0, true},
		{1, 0, false},
		{1, 1, false},
		{1, 2, true},
		{38, 0, false},
		{38, 38, false},
		{39, 0, true},
		{10, -1, true},
		{10, 11, true},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%d,%d", test.precision, test.scale), func(t *testing.T) {
			typ, err := NewDecimalType(test.precision, test.scale)
			if test.expectedErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			dt := typ.(decimalType)
			assert.Equal(t, test.precision, dt.Precision())
			assert.Equal(t, test.scale, dt.Scale())
		})
	}
}

func TestDecimalCompare(t *testing.T) {
	tests := []struct {
		precision   int
		scale       int
		val1        interface{}
		val2        interface{}
		expectedCmp int
	}{
		{5, 0, 1, 2, -1},
		{5, 0, 2, 1, 1},
		{5, 0, 2, 2, 0},
		{5, 0, "0.23e1", 3, -1},
		{1, 1, ".7", .6, 1},
		{20, 10, "48204.23457", 93828432, -1},
		{38, 0,
			"99999999999999999999999999999999999999999999999999999999999999999",
			"99999999999999999999999999999999999999999999999999999999999999998", 1},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%v %v", test.val1, test.val2), func(t *testing.T) {
			typ := MustDecimal(test.precision, test.scale).(decimalType)
			cmp, err := typ.Compare(test.val1, test.val2)
			require.NoError(t, err)
			assert.Equal(t, test.expectedCmp, cmp)
		})
	}
}

func TestDecimalConvertRounds(t *testing.T) {
	typ := MustDecimal(10, 2).(decimalType)

	got, err := typ.Convert("3.14159")
	require.NoError(t, err)
	assert.True(t, got.(decimal.Decimal).Equal(decimal.RequireFromString("3.14")))

	got, err = typ.Convert(2)
	require.NoError(t, err)
	assert.True(t, got.(decimal.Decimal).Equal(decimal.RequireFromString("2.00")))

	_, err = typ.Convert("not-a-number")
	assert.Error(t, err)
}

func TestDecimalZero(t *testing.T) {
	typ := MustDecimal(10, 2).(decimalType)
	assert.True(t, typ.Zero().(decimal.Decimal).Equal(decimal.RequireFromString("0.00")))
}

func TestWidenDecimal(t *testing.T) {
	a := MustDecimal(5, 2).(decimalType)
	b := MustDecimal(10, 4).(decimalType)

	w := WidenDecimal(a, b)
	assert.Equal(t, 4, w.Scale())
	assert.Equal(t, 11, w.Precision()) // 6 integer digits (from b) + 4 fractional digits + 1 carry
}

func TestPromoteDecimalOverInteger(t *testing.T) {
	typ, err := Promote(Int64, MustDecimal(10, 2))
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, typ.Kind())
}
