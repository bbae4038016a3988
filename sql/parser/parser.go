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

// Package parser implements PrismDB's recursive-descent / Pratt parser
// (spec §4.2): tokens from sql/token become the untyped statement tree in
// sql/ast.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TuringWorks/PrismDB-sub000/sql/ast"
	"github.com/TuringWorks/PrismDB-sub000/sql/token"
	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// ParseError reports an expected-vs-found mismatch with position (spec
// §4.2).
type ParseError struct {
	Expected string
	Found    token.Token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expected %s but found %s at %d:%d", e.Expected, e.Found.Text, e.Found.Line, e.Found.Column)
}

// Parser consumes a token slice and produces ast.Statement(s).
type Parser struct {
	toks []token.Token
	pos  int
}

// New builds a Parser over src after tokenizing it.
func New(src string) (*Parser, error) {
	toks, err := token.Tokenize(src)
	if err != nil {
		return nil, pdbsql.ErrParse.New(err.Error())
	}
	return &Parser{toks: toks}, nil
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peekN(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.cur().Kind == token.EOF }

func (p *Parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.Kind == token.Keyword && t.Upper == kw
}

func (p *Parser) isPunct(s string) bool {
	t := p.cur()
	return (t.Kind == token.Punctuation || t.Kind == token.Operator) && t.Text == s
}

func (p *Parser) expectKeyword(kw string) (token.Token, error) {
	if !p.isKeyword(kw) {
		return token.Token{}, pdbsql.ErrParse.New((&ParseError{Expected: kw, Found: p.cur()}).Error())
	}
	return p.advance(), nil
}

func (p *Parser) expectPunct(s string) (token.Token, error) {
	if !p.isPunct(s) {
		return token.Token{}, pdbsql.ErrParse.New((&ParseError{Expected: s, Found: p.cur()}).Error())
	}
	return p.advance(), nil
}

func (p *Parser) tryKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) tryPunct(s string) bool {
	if p.isPunct(s) {
		p.advance()
		return true
	}
	return false
}

func pos(t token.Token) ast.Pos { return ast.Pos{Line: t.Line, Column: t.Column} }

// ParseStatement parses exactly one statement; a trailing ';' is optional
// but EOF is required afterward (spec §4.2 `parse_statement`).
func ParseStatement(src string) (ast.Statement, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.tryPunct(";")
	if !p.atEOF() {
		return nil, pdbsql.ErrParse.New((&ParseError{Expected: "EOF", Found: p.cur()}).Error())
	}
	return stmt, nil
}

// ParseStatements parses multiple ';'-separated statements (spec §4.2
// `parse_statements`).
func ParseStatements(src string) ([]ast.Statement, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	var out []ast.Statement
	for !p.atEOF() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
		if !p.tryPunct(";") {
			break
		}
	}
	if !p.atEOF() {
		return nil, pdbsql.ErrParse.New((&ParseError{Expected: "EOF or ;", Found: p.cur()}).Error())
	}
	return out, nil
}

// parseStatement dispatches on the first keyword (spec §4.2).
func (p *Parser) parseStatement() (ast.Statement, error) {
	t := p.cur()
	if t.Kind != token.Keyword {
		return nil, pdbsql.ErrParse.New((&ParseError{Expected: "statement keyword", Found: t}).Error())
	}
	switch t.Upper {
	case "SELECT", "WITH":
		return p.parseQuery()
	case "INSERT":
		return p.parseInsert()
	case "UPDATE":
		return p.parseUpdate()
	case "DELETE":
		return p.parseDelete()
	case "CREATE":
		return p.parseCreate()
	case "DROP":
		return p.parseDrop()
	case "ALTER":
		return nil, pdbsql.ErrNotImplemented.New("ALTER TABLE")
	case "BEGIN":
		p.advance()
		return &ast.TxStmt{Pos: pos(t), Kind: ast.TxBegin}, nil
	case "COMMIT":
		p.advance()
		return &ast.TxStmt{Pos: pos(t), Kind: ast.TxCommit}, nil
	case "ROLLBACK":
		p.advance()
		return &ast.TxStmt{Pos: pos(t), Kind: ast.TxRollback}, nil
	case "EXPLAIN":
		p.advance()
		inner, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &ast.ExplainStmt{Pos: pos(t), Inner: inner}, nil
	case "SHOW":
		return p.parseShow()
	case "INSTALL":
		p.advance()
		name := p.advance().Text
		return &ast.UtilStmt{Pos: pos(t), Kind: ast.UtilInstall, Name: name}, nil
	case "LOAD":
		p.advance()
		name := p.advance().Text
		return &ast.UtilStmt{Pos: pos(t), Kind: ast.UtilLoad, Name: name}, nil
	case "SET":
		return p.parseSet()
	}
	return nil, pdbsql.ErrParse.New((&ParseError{Expected: "statement", Found: t}).Error())
}

// ---- queries ----

func (p *Parser) parseQuery() (*ast.Query, error) {
	start := p.cur()
	q := &ast.Query{Pos: pos(start)}
	if p.tryKeyword("WITH") {
		if p.tryKeyword("RECURSIVE") {
			q.Recursive = true
		}
		for {
			cte, err := p.parseCTE()
			if err != nil {
				return nil, err
			}
			q.CTEs = append(q.CTEs, cte)
			if !p.tryPunct(",") {
				break
			}
		}
	}
	sel, err := p.parseSelectOrValues()
	if err != nil {
		return nil, err
	}
	q.Select = sel
	for {
		var kind ast.SetOpKind
		switch {
		case p.isKeyword("UNION"):
			kind = ast.Union
		case p.isKeyword("INTERSECT"):
			kind = ast.Intersect
		case p.isKeyword("EXCEPT"):
			kind = ast.Except
		default:
			return q, nil
		}
		p.advance()
		all := p.tryKeyword("ALL")
		if !all {
			p.tryKeyword("DISTINCT")
		}
		right, err := p.parseSelectOrValues()
		if err != nil {
			return nil, err
		}
		q.SetOps = append(q.SetOps, ast.SetOpItem{Op: kind, All: all, Right: right})
	}
}

// parseSelectOrValues parses either an ordinary SELECT block or the
// literal `VALUES (...),(...)` alternate query form (spec §6.2's `query`
// production).
func (p *Parser) parseSelectOrValues() (*ast.Select, error) {
	if p.isKeyword("VALUES") {
		tok := p.advance()
		sel := &ast.Select{Pos: pos(tok)}
		for {
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			var row []ast.Expr
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				row = append(row, e)
				if !p.tryPunct(",") {
					break
				}
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			sel.Values = append(sel.Values, row)
			if !p.tryPunct(",") {
				break
			}
		}
		return sel, nil
	}
	return p.parseSelect()
}

func (p *Parser) parseCTE() (*ast.CTE, error) {
	nameTok := p.advance()
	cte := &ast.CTE{Name: nameTok.Text}
	if p.tryPunct("(") {
		for {
			cte.Columns = append(cte.Columns, p.advance().Text)
			if !p.tryPunct(",") {
				break
			}
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	cte.Query = q
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return cte, nil
}

func (p *Parser) parseSelect() (*ast.Select, error) {
	tok, err := p.expectKeyword("SELECT")
	if err != nil {
		return nil, err
	}
	sel := &ast.Select{Pos: pos(tok)}
	sel.Distinct = p.tryKeyword("DISTINCT")
	if !sel.Distinct {
		p.tryKeyword("ALL")
	}
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		sel.SelectList = append(sel.SelectList, item)
		if !p.tryPunct(",") {
			break
		}
	}
	if p.tryKeyword("FROM") {
		from, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		sel.From = from
	}
	if p.tryKeyword("WHERE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Where = e
	}
	if p.tryKeyword("GROUP") {
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, e)
			if !p.tryPunct(",") {
				break
			}
		}
	}
	if p.tryKeyword("HAVING") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Having = e
	}
	if p.tryKeyword("QUALIFY") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Qualify = e
	}
	if p.tryKeyword("ORDER") {
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			item := ast.OrderItem{Expr: e}
			if p.tryKeyword("DESC") {
				item.Desc = true
			} else {
				p.tryKeyword("ASC")
			}
			sel.OrderBy = append(sel.OrderBy, item)
			if !p.tryPunct(",") {
				break
			}
		}
	}
	if p.tryKeyword("LIMIT") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Limit = e
		if p.tryKeyword("OFFSET") {
			off, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			sel.Offset = off
		}
	}
	return sel, nil
}

func (p *Parser) parseSelectItem() (ast.SelectItem, error) {
	if p.isPunct("*") {
		t := p.advance()
		return ast.SelectItem{Star: true, Expr: &ast.Star{Pos: pos(t)}}, nil
	}
	if p.cur().Kind == token.Ident && p.peekN(1).Kind == token.Punctuation && p.peekN(1).Text == "." && p.peekN(2).Kind == token.Operator && p.peekN(2).Text == "*" {
		qual := p.advance().Text
		p.advance()
		t := p.advance()
		return ast.SelectItem{Star: true, StarQualifier: qual, Expr: &ast.Star{Pos: pos(t), Qualifier: qual}}, nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return ast.SelectItem{}, err
	}
	item := ast.SelectItem{Expr: e}
	if p.tryKeyword("AS") {
		item.Alias = p.advance().Text
	} else if p.cur().Kind == token.Ident || p.cur().Kind == token.QuotedIdent {
		item.Alias = p.advance().Text
	}
	return item, nil
}

// ---- table refs ----

func (p *Parser) parseTableRef() (ast.TableRef, error) {
	left, err := p.parsePrimaryTableRef()
	if err != nil {
		return nil, err
	}
	for {
		left, err = p.tryParsePivotUnpivot(left)
		if err != nil {
			return nil, err
		}
		kind, ok, err := p.tryParseJoinKind()
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.parsePrimaryTableRef()
		if err != nil {
			return nil, err
		}
		right, err = p.tryParsePivotUnpivot(right)
		if err != nil {
			return nil, err
		}
		join := &ast.Join{Left: left, Right: right, Kind: kind}
		if kind != ast.CrossJoin {
			if p.tryKeyword("ON") {
				cond, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				join.On = cond
			} else if p.tryKeyword("USING") {
				if _, err := p.expectPunct("("); err != nil {
					return nil, err
				}
				for {
					join.Using = append(join.Using, p.advance().Text)
					if !p.tryPunct(",") {
						break
					}
				}
				if _, err := p.expectPunct(")"); err != nil {
					return nil, err
				}
			}
		}
		left = join
	}
}

func (p *Parser) tryParseJoinKind() (ast.JoinKind, bool, error) {
	switch {
	case p.isKeyword("JOIN"):
		p.advance()
		return ast.InnerJoin, true, nil
	case p.isKeyword("INNER"):
		p.advance()
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return 0, false, err
		}
		return ast.InnerJoin, true, nil
	case p.isKeyword("LEFT"):
		p.advance()
		p.tryKeyword("OUTER")
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return 0, false, err
		}
		return ast.LeftJoin, true, nil
	case p.isKeyword("RIGHT"):
		p.advance()
		p.tryKeyword("OUTER")
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return 0, false, err
		}
		return ast.RightJoin, true, nil
	case p.isKeyword("FULL"):
		p.advance()
		p.tryKeyword("OUTER")
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return 0, false, err
		}
		return ast.FullJoin, true, nil
	case p.isKeyword("CROSS"):
		p.advance()
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return 0, false, err
		}
		return ast.CrossJoin, true, nil
	case p.isKeyword("SEMI"):
		p.advance()
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return 0, false, err
		}
		return ast.SemiJoin, true, nil
	case p.isKeyword("ANTI"):
		p.advance()
		if _, err := p.expectKeyword("JOIN"); err != nil {
			return 0, false, err
		}
		return ast.AntiJoin, true, nil
	}
	return 0, false, nil
}

func (p *Parser) parsePrimaryTableRef() (ast.TableRef, error) {
	if p.tryPunct("(") {
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		alias := p.parseOptionalAlias()
		return &ast.SubqueryTable{Query: q, Alias: alias}, nil
	}
	t := p.advance()
	nt := &ast.NamedTable{Pos: pos(t), Name: t.Text}
	if p.tryPunct(".") {
		nt.Schema = nt.Name
		nt.Name = p.advance().Text
	}
	nt.Alias = p.parseOptionalAlias()
	return nt, nil
}

func (p *Parser) parseOptionalAlias() string {
	if p.tryKeyword("AS") {
		return p.advance().Text
	}
	if p.cur().Kind == token.Ident || p.cur().Kind == token.QuotedIdent {
		return p.advance().Text
	}
	return ""
}

func (p *Parser) tryParsePivotUnpivot(input ast.TableRef) (ast.TableRef, error) {
	for {
		switch {
		case p.isKeyword("PIVOT"):
			p.advance()
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			piv := &ast.Pivot{Input: input}
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				item := ast.SelectItem{Expr: e}
				if p.tryKeyword("AS") {
					item.Alias = p.advance().Text
				}
				piv.Aggs = append(piv.Aggs, item)
				if !p.tryPunct(",") {
					break
				}
			}
			if _, err := p.expectKeyword("FOR"); err != nil {
				return nil, err
			}
			for {
				piv.ForCols = append(piv.ForCols, p.advance().Text)
				if !p.tryPunct(",") {
					break
				}
			}
			if _, err := p.expectKeyword("IN"); err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			if !p.isPunct(")") {
				for {
					e, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					piv.InValues = append(piv.InValues, e)
					if !p.tryPunct(",") {
						break
					}
				}
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			if p.tryKeyword("GROUP") {
				if _, err := p.expectKeyword("BY"); err != nil {
					return nil, err
				}
				for {
					e, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					piv.GroupBy = append(piv.GroupBy, e)
					if !p.tryPunct(",") {
						break
					}
				}
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			piv.Alias = p.parseOptionalAlias()
			input = piv
		case p.isKeyword("UNPIVOT"):
			p.advance()
			unp := &ast.Unpivot{Input: input}
			if p.tryKeyword("INCLUDE") {
				if _, err := p.expectKeyword("NULLS"); err != nil {
					return nil, err
				}
				unp.IncludeNulls = true
			}
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			unp.ValueColumn = p.advance().Text
			if _, err := p.expectKeyword("FOR"); err != nil {
				return nil, err
			}
			unp.NameColumn = p.advance().Text
			if _, err := p.expectKeyword("IN"); err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			for {
				unp.ValueColumns = append(unp.ValueColumns, p.advance().Text)
				if !p.tryPunct(",") {
					break
				}
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			unp.Alias = p.parseOptionalAlias()
			input = unp
		default:
			return input, nil
		}
	}
}

// ---- expressions: precedence climbing per spec §4.2 ----
// OR < AND < NOT < comparison/IS/IN/BETWEEN/LIKE < additive < multiplicative
// < unary < primary.

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		t := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Pos: pos(t), Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		t := p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Pos: pos(t), Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.isKeyword("NOT") {
		t := p.advance()
		e, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Pos: pos(t), Op: ast.OpNot, Expr: e}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isKeyword("BETWEEN"):
			t := p.advance()
			not := false
			lo, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectKeyword("AND"); err != nil {
				return nil, err
			}
			hi, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BetweenExpr{Pos: pos(t), Expr: left, Low: lo, High: hi, Not: not}
		case p.isKeyword("LIKE") || p.isKeyword("ILIKE"):
			t := p.advance()
			pattern, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.LikeExpr{Pos: pos(t), Expr: left, Pattern: pattern, CaseFold: t.Upper == "ILIKE"}
		case p.isKeyword("IN"):
			t := p.advance()
			in, err := p.parseInRHS(left, t, false)
			if err != nil {
				return nil, err
			}
			left = in
		case p.isKeyword("NOT") && (p.peekN(1).Upper == "BETWEEN" || p.peekN(1).Upper == "LIKE" || p.peekN(1).Upper == "ILIKE" || p.peekN(1).Upper == "IN"):
			p.advance()
			switch p.cur().Upper {
			case "BETWEEN":
				t := p.advance()
				lo, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				if _, err := p.expectKeyword("AND"); err != nil {
					return nil, err
				}
				hi, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &ast.BetweenExpr{Pos: pos(t), Expr: left, Low: lo, High: hi, Not: true}
			case "LIKE", "ILIKE":
				t := p.advance()
				pattern, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &ast.LikeExpr{Pos: pos(t), Expr: left, Pattern: pattern, Not: true, CaseFold: t.Upper == "ILIKE"}
			case "IN":
				t := p.advance()
				in, err := p.parseInRHS(left, t, true)
				if err != nil {
					return nil, err
				}
				left = in
			}
		case p.isKeyword("IS"):
			t := p.advance()
			not := p.tryKeyword("NOT")
			if p.tryKeyword("NULL") {
				left = &ast.IsExpr{Pos: pos(t), Expr: left, Not: not, Null: true}
			} else if p.tryKeyword("DISTINCT") {
				if _, err := p.expectKeyword("FROM"); err != nil {
					return nil, err
				}
				rhs, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &ast.IsExpr{Pos: pos(t), Expr: left, Not: not, Distinct: rhs}
			} else if p.tryKeyword("TRUE") {
				lit := &ast.Literal{Kind: ast.LitBool, Value: true}
				left = &ast.IsExpr{Pos: pos(t), Expr: left, Not: !not, Distinct: lit, Null: false}
			} else if p.tryKeyword("FALSE") {
				lit := &ast.Literal{Kind: ast.LitBool, Value: false}
				left = &ast.IsExpr{Pos: pos(t), Expr: left, Not: !not, Distinct: lit, Null: false}
			} else {
				return nil, pdbsql.ErrParse.New((&ParseError{Expected: "NULL/TRUE/FALSE/DISTINCT FROM", Found: p.cur()}).Error())
			}
		case p.isComparisonOp():
			t := p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Pos: pos(t), Op: compareOpFor(t.Text), Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseInRHS(left ast.Expr, t token.Token, not bool) (ast.Expr, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if p.isKeyword("SELECT") || p.isKeyword("WITH") {
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.InExpr{Pos: pos(t), Expr: left, Subquery: q, Not: not}, nil
	}
	var list []ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.tryPunct(",") {
			break
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &ast.InExpr{Pos: pos(t), Expr: left, List: list, Not: not}, nil
}

func (p *Parser) isComparisonOp() bool {
	t := p.cur()
	if t.Kind != token.Operator {
		return false
	}
	switch t.Text {
	case "=", "!=", "<>", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func compareOpFor(s string) ast.BinaryOp {
	switch s {
	case "=":
		return ast.OpEq
	case "!=", "<>":
		return ast.OpNotEq
	case "<":
		return ast.OpLt
	case "<=":
		return ast.OpLte
	case ">":
		return ast.OpGt
	case ">=":
		return ast.OpGte
	}
	return ast.OpEq
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") || p.isPunct("||") {
		t := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		op := ast.OpAdd
		switch t.Text {
		case "-":
			op = ast.OpSub
		case "||":
			op = ast.OpConcat
		}
		left = &ast.BinaryExpr{Pos: pos(t), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") || p.isPunct("%") {
		t := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := ast.OpMul
		switch t.Text {
		case "/":
			op = ast.OpDiv
		case "%":
			op = ast.OpMod
		}
		left = &ast.BinaryExpr{Pos: pos(t), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.isPunct("-") {
		t := p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Pos: pos(t), Op: ast.OpNeg, Expr: e}, nil
	}
	if p.isPunct("+") {
		t := p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Pos: pos(t), Op: ast.OpPos, Expr: e}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch {
	case t.Kind == token.NumberLiteral:
		p.advance()
		return &ast.Literal{Pos: pos(t), Kind: ast.LitNumber, Value: t.Text}, nil
	case t.Kind == token.StringLiteral:
		p.advance()
		return &ast.Literal{Pos: pos(t), Kind: ast.LitString, Value: t.Text}, nil
	case t.Kind == token.Keyword && t.Upper == "NULL":
		p.advance()
		return &ast.Literal{Pos: pos(t), Kind: ast.LitNull}, nil
	case t.Kind == token.Keyword && t.Upper == "TRUE":
		p.advance()
		return &ast.Literal{Pos: pos(t), Kind: ast.LitBool, Value: true}, nil
	case t.Kind == token.Keyword && t.Upper == "FALSE":
		p.advance()
		return &ast.Literal{Pos: pos(t), Kind: ast.LitBool, Value: false}, nil
	case t.Kind == token.Keyword && t.Upper == "EXISTS":
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.ExistsExpr{Pos: pos(t), Subquery: q}, nil
	case t.Kind == token.Keyword && (t.Upper == "CAST" || t.Upper == "TRY_CAST"):
		return p.parseCast()
	case t.Kind == token.Keyword && t.Upper == "CASE":
		return p.parseCase()
	case t.Kind == token.Punctuation && t.Text == "(":
		p.advance()
		if p.isKeyword("SELECT") || p.isKeyword("WITH") {
			q, err := p.parseQuery()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return &ast.ScalarSubquery{Pos: pos(t), Query: q}, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.ParenExpr{Expr: e}, nil
	case t.Kind == token.Ident || t.Kind == token.QuotedIdent:
		return p.parseIdentOrCallOrColumnRef()
	}
	return nil, pdbsql.ErrParse.New((&ParseError{Expected: "expression", Found: t}).Error())
}

func (p *Parser) parseCast() (ast.Expr, error) {
	t := p.advance() // CAST / TRY_CAST
	try := t.Upper == "TRY_CAST"
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	typeName, args, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &ast.CastExpr{Pos: pos(t), Expr: e, TypeName: typeName, TypeArgs: args, Try: try}, nil
}

func (p *Parser) parseTypeName() (string, []int, error) {
	name := strings.ToUpper(p.advance().Text)
	var args []int
	if p.tryPunct("(") {
		for {
			n, err := strconv.Atoi(p.advance().Text)
			if err != nil {
				return "", nil, pdbsql.ErrParse.New("expected integer type argument")
			}
			args = append(args, n)
			if !p.tryPunct(",") {
				break
			}
		}
		if _, err := p.expectPunct(")"); err != nil {
			return "", nil, err
		}
	}
	return name, args, nil
}

func (p *Parser) parseCase() (ast.Expr, error) {
	t := p.advance() // CASE
	c := &ast.CaseExpr{Pos: pos(t)}
	if !p.isKeyword("WHEN") {
		operand, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Operand = operand
	}
	for p.tryKeyword("WHEN") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Whens = append(c.Whens, ast.WhenClause{Cond: cond, Then: then})
	}
	if p.tryKeyword("ELSE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Else = e
	}
	if _, err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Parser) parseIdentOrCallOrColumnRef() (ast.Expr, error) {
	t := p.advance()
	name := t.Text
	if p.tryPunct(".") {
		if p.isPunct("*") {
			p.advance()
			return &ast.Star{Pos: pos(t), Qualifier: name}, nil
		}
		second := p.advance()
		if p.isPunct("(") {
			return p.parseCallArgs(second.Text, pos(t))
		}
		return &ast.ColumnRef{Pos: pos(t), Qualifier: name, Name: second.Text}, nil
	}
	if p.isPunct("(") {
		return p.parseCallArgs(name, pos(t))
	}
	return &ast.ColumnRef{Pos: pos(t), Name: name}, nil
}

func (p *Parser) parseCallArgs(name string, position ast.Pos) (ast.Expr, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	call := &ast.FuncCall{Pos: position, Name: name}
	if p.isPunct("*") {
		p.advance()
		call.Star = true
	} else if !p.isPunct(")") {
		call.Distinct = p.tryKeyword("DISTINCT")
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, e)
			if !p.tryPunct(",") {
				break
			}
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if p.tryKeyword("OVER") {
		spec, err := p.parseWindowSpec()
		if err != nil {
			return nil, err
		}
		call.Over = spec
	}
	return call, nil
}

func (p *Parser) parseWindowSpec() (*ast.WindowSpec, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	spec := &ast.WindowSpec{}
	if p.tryKeyword("PARTITION") {
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			spec.PartitionBy = append(spec.PartitionBy, e)
			if !p.tryPunct(",") {
				break
			}
		}
	}
	if p.tryKeyword("ORDER") {
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			item := ast.OrderItem{Expr: e}
			if p.tryKeyword("DESC") {
				item.Desc = true
			} else {
				p.tryKeyword("ASC")
			}
			spec.OrderBy = append(spec.OrderBy, item)
			if !p.tryPunct(",") {
				break
			}
		}
	}
	if p.isKeyword("ROWS") || p.isKeyword("RANGE") || p.isKeyword("GROUPS") {
		frame, err := p.parseFrame()
		if err != nil {
			return nil, err
		}
		spec.Frame = frame
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return spec, nil
}

func (p *Parser) parseFrame() (*ast.FrameSpec, error) {
	var unit ast.FrameUnit
	switch p.advance().Upper {
	case "ROWS":
		unit = ast.FrameRows
	case "RANGE":
		unit = ast.FrameRange
	case "GROUPS":
		unit = ast.FrameGroups
	}
	frame := &ast.FrameSpec{Unit: unit}
	if p.tryKeyword("BETWEEN") {
		start, err := p.parseFrameBound()
		if err != nil {
			return nil, err
		}
		frame.Start = start
		if _, err := p.expectKeyword("AND"); err != nil {
			return nil, err
		}
		end, err := p.parseFrameBound()
		if err != nil {
			return nil, err
		}
		frame.End = &end
	} else {
		start, err := p.parseFrameBound()
		if err != nil {
			return nil, err
		}
		frame.Start = start
	}
	return frame, nil
}

func (p *Parser) parseFrameBound() (ast.FrameBound, error) {
	if p.tryKeyword("UNBOUNDED") {
		if p.tryKeyword("PRECEDING") {
			return ast.FrameBound{Kind: ast.UnboundedPreceding}, nil
		}
		if _, err := p.expectKeyword("FOLLOWING"); err != nil {
			return ast.FrameBound{}, err
		}
		return ast.FrameBound{Kind: ast.UnboundedFollowing}, nil
	}
	if p.tryKeyword("CURRENT") {
		if _, err := p.expectKeyword("ROW"); err != nil {
			return ast.FrameBound{}, err
		}
		return ast.FrameBound{Kind: ast.CurrentRow}, nil
	}
	e, err := p.parseAdditive()
	if err != nil {
		return ast.FrameBound{}, err
	}
	if p.tryKeyword("PRECEDING") {
		return ast.FrameBound{Kind: ast.Preceding, Offset: e}, nil
	}
	if _, err := p.expectKeyword("FOLLOWING"); err != nil {
		return ast.FrameBound{}, err
	}
	return ast.FrameBound{Kind: ast.Following, Offset: e}, nil
}

// ---- DML ----

func (p *Parser) parseInsert() (ast.Statement, error) {
	t, err := p.expectKeyword("INSERT")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table := p.advance().Text
	stmt := &ast.InsertStmt{Pos: pos(t), Table: table}
	if p.tryPunct("(") {
		for {
			stmt.Columns = append(stmt.Columns, p.advance().Text)
			if !p.tryPunct(",") {
				break
			}
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	if p.tryKeyword("VALUES") {
		for {
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			var row []ast.Expr
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				row = append(row, e)
				if !p.tryPunct(",") {
					break
				}
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			stmt.Values = append(stmt.Values, row)
			if !p.tryPunct(",") {
				break
			}
		}
		return stmt, nil
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	stmt.Query = q
	return stmt, nil
}

func (p *Parser) parseUpdate() (ast.Statement, error) {
	t, err := p.expectKeyword("UPDATE")
	if err != nil {
		return nil, err
	}
	table := p.advance().Text
	stmt := &ast.UpdateStmt{Pos: pos(t), Table: table}
	if _, err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	for {
		col := p.advance().Text
		if _, err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Set = append(stmt.Set, ast.Assignment{Column: col, Value: val})
		if !p.tryPunct(",") {
			break
		}
	}
	if p.tryKeyword("WHERE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = e
	}
	return stmt, nil
}

func (p *Parser) parseDelete() (ast.Statement, error) {
	t, err := p.expectKeyword("DELETE")
	if err != nil {
		return nil, err
	}
	p.tryKeyword("FROM")
	table := p.advance().Text
	stmt := &ast.DeleteStmt{Pos: pos(t), Table: table}
	if p.tryKeyword("WHERE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = e
	}
	return stmt, nil
}

func (p *Parser) parseCreate() (ast.Statement, error) {
	t, err := p.expectKeyword("CREATE")
	if err != nil {
		return nil, err
	}
	if p.isKeyword("SECRET") {
		p.advance()
		name := p.advance().Text
		return &ast.UtilStmt{Pos: pos(t), Kind: ast.UtilCreateSecret, Name: name}, nil
	}
	if _, err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table := p.advance().Text
	stmt := &ast.CreateTableStmt{Pos: pos(t), Table: table}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseColumnDecl()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, col)
		if !p.tryPunct(",") {
			break
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseColumnDecl() (ast.ColumnDecl, error) {
	name := p.advance().Text
	typeName, args, err := p.parseTypeName()
	if err != nil {
		return ast.ColumnDecl{}, err
	}
	col := ast.ColumnDecl{Name: name, TypeName: typeName, TypeArgs: args, Nullable: true}
	for {
		switch {
		case p.tryKeyword("NOT"):
			if _, err := p.expectKeyword("NULL"); err != nil {
				return ast.ColumnDecl{}, err
			}
			col.Nullable = false
		case p.tryKeyword("NULL"):
			col.Nullable = true
		case p.tryKeyword("DEFAULT"):
			e, err := p.parseExpr()
			if err != nil {
				return ast.ColumnDecl{}, err
			}
			col.Default = e
		case p.tryKeyword("PRIMARY"):
			if _, err := p.expectKeyword("KEY"); err != nil {
				return ast.ColumnDecl{}, err
			}
			col.PrimaryKey = true
			col.Nullable = false
		default:
			return col, nil
		}
	}
}

func (p *Parser) parseDrop() (ast.Statement, error) {
	t, err := p.expectKeyword("DROP")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table := p.advance().Text
	return &ast.DropTableStmt{Pos: pos(t), Table: table}, nil
}

func (p *Parser) parseShow() (ast.Statement, error) {
	t, err := p.expectKeyword("SHOW")
	if err != nil {
		return nil, err
	}
	if p.tryKeyword("TABLES") {
		return &ast.ShowStmt{Pos: pos(t), Kind: ast.ShowTables}, nil
	}
	if p.tryKeyword("CREATE") {
		p.tryKeyword("TABLE")
		name := p.advance().Text
		return &ast.ShowStmt{Pos: pos(t), Kind: ast.ShowCreateTable, Arg: name}, nil
	}
	return nil, pdbsql.ErrNotImplemented.New("SHOW " + p.cur().Text)
}

func (p *Parser) parseSet() (ast.Statement, error) {
	t, err := p.expectKeyword("SET")
	if err != nil {
		return nil, err
	}
	name := p.advance().Text
	if _, err := p.expectPunct("="); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.SetStmt{Pos: pos(t), Name: name, Value: val}, nil
}
