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

package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeSimpleSelect(t *testing.T) {
	require := require.New(t)
	toks, err := Tokenize("SELECT a, b FROM t WHERE a = 1;")
	require.NoError(err)

	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(Keyword, toks[0].Kind)
	require.Equal("SELECT", toks[0].Upper)
	require.Equal(EOF, toks[len(toks)-1].Kind)
}

func TestTokenizeStringEscapes(t *testing.T) {
	require := require.New(t)
	toks, err := Tokenize(`'a\nb\'c'`)
	require.NoError(err)
	require.Equal(StringLiteral, toks[0].Kind)
	require.Equal("a\nb'c", toks[0].Text)
}

func TestTokenizeQuotedIdentifierDoubledQuote(t *testing.T) {
	require := require.New(t)
	toks, err := Tokenize(`"my""col"`)
	require.NoError(err)
	require.Equal(QuotedIdent, toks[0].Kind)
	require.Equal(`my"col`, toks[0].Text)
}

func TestTokenizeNumericLiterals(t *testing.T) {
	require := require.New(t)
	toks, err := Tokenize("123 45.67 1e10 1.5e-3")
	require.NoError(err)
	for i := 0; i < 4; i++ {
		require.Equal(NumberLiteral, toks[i].Kind)
	}
	require.Equal("123", toks[0].Text)
	require.Equal("45.67", toks[1].Text)
	require.Equal("1e10", toks[2].Text)
	require.Equal("1.5e-3", toks[3].Text)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	require := require.New(t)
	_, err := Tokenize(`'unterminated`)
	require.Error(err)
	lexErr, ok := err.(*LexError)
	require.True(ok)
	require.Equal(1, lexErr.Line)
}

func TestTokenizeStrayBang(t *testing.T) {
	require := require.New(t)
	_, err := Tokenize(`a ! b`)
	require.Error(err)
}

func TestTokenizeOperators(t *testing.T) {
	require := require.New(t)
	toks, err := Tokenize("<= >= <> != || a.b")
	require.NoError(err)
	require.Equal("<=", toks[0].Text)
	require.Equal(">=", toks[1].Text)
	require.Equal("<>", toks[2].Text)
	require.Equal("!=", toks[3].Text)
	require.Equal("||", toks[4].Text)
}
