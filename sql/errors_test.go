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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errorkinds "gopkg.in/src-d/go-errors.v1"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err   error
		class *errorkinds.Kind
	}{
		{ErrTableNotFound.New("t"), ErrCatalog},
		{ErrTableExists.New("t"), ErrCatalog},
		{ErrSchemaNotFound.New("s"), ErrCatalog},
		{ErrColumnNotFound.New("c"), ErrCatalog},
		{ErrAmbiguousColumn.New("c"), ErrCatalog},
		{ErrCTENotFound.New("c"), ErrCatalog},
		{ErrDivideByZero.New(), ErrExecution},
		{ErrScalarSubqueryRows.New(), ErrExecution},
		{ErrRecursionCapReached.New(10), ErrExecution},
		{ErrInvalidFrame.New("bad"), ErrExecution},
		{ErrUnknownFunction.New("foo"), ErrNotImplemented},
		{ErrWrongNumArgs.New("foo", 1, 2), ErrTypeMismatch},
		{ErrParse.New("bad token"), ErrParse},
		{ErrCancelled.New(), ErrCancelled},
		{fmt.Errorf("generic error"), ErrExecution},
	}

	for _, test := range tests {
		t.Run(test.err.Error(), func(t *testing.T) {
			require.Equal(t, test.class, Classify(test.err))
		})
	}

	require.Nil(t, Classify(nil))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(ErrCancelled.New()))
	assert.False(t, IsCancelled(ErrExecution.New("oops")))
	assert.False(t, IsCancelled(nil))
	assert.False(t, IsCancelled(fmt.Errorf("generic error")))
}
