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

// Package function implements the scalar function registry (spec §4.6).
// Functions are ordinary pdbsql.Expression implementations; the registry
// just maps a call name to a constructor of fixed or variable arity,
// mirroring the teacher's Function0..FunctionN constructor-map idiom.
package function

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	pdbsql "github.com/TuringWorks/PrismDB-sub000/sql"
)

// Builder constructs a function expression from its already-resolved
// argument expressions. Arity checking happens here, not in the registry.
type Builder func(args []pdbsql.Expression) (pdbsql.Expression, error)

// Registry maps an upper-cased function name to its Builder.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a registry pre-populated with the built-in scalar
// functions.
func NewRegistry() *Registry {
	r := &Registry{builders: map[string]Builder{}}
	r.registerBuiltins()
	return r
}

// Register adds or overrides a function under name (case-insensitive).
func (r *Registry) Register(name string, b Builder) {
	r.builders[strings.ToUpper(name)] = b
}

// Resolve builds the expression for a call name with the given already-
// bound arguments, or a *pdbsql.ErrUnknownFunction error.
func (r *Registry) Resolve(name string, args []pdbsql.Expression) (pdbsql.Expression, error) {
	b, ok := r.builders[strings.ToUpper(name)]
	if !ok {
		return nil, pdbsql.ErrUnknownFunction.New(name)
	}
	return b(args)
}

func checkArity(name string, args []pdbsql.Expression, n int) error {
	if len(args) != n {
		return pdbsql.ErrWrongNumArgs.New(name, n, len(args))
	}
	return nil
}

func checkArityRange(name string, args []pdbsql.Expression, min, max int) error {
	if len(args) < min || len(args) > max {
		return pdbsql.ErrWrongNumArgs.New(name, min, len(args))
	}
	return nil
}

// unaryFunc is the common shape for single-argument scalar functions:
// given the already-evaluated, possibly-NULL argument, compute the result
// or propagate NULL.
type unaryFunc struct {
	name   string
	arg    pdbsql.Expression
	typ    pdbsql.Type
	eval   func(v interface{}) (interface{}, error)
}

func (f *unaryFunc) Type() pdbsql.Type          { return f.typ }
func (f *unaryFunc) IsNullable() bool           { return true }
func (f *unaryFunc) Resolved() bool             { return f.arg.Resolved() }
func (f *unaryFunc) String() string             { return fmt.Sprintf("%s(%s)", f.name, f.arg) }
func (f *unaryFunc) Children() []pdbsql.Expression { return []pdbsql.Expression{f.arg} }
func (f *unaryFunc) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 1 {
		return nil, pdbsql.ErrExecution.New(f.name + ": expected 1 child")
	}
	n := *f
	n.arg = c[0]
	return &n, nil
}
func (f *unaryFunc) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	v, err := f.arg.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return f.eval(v)
}

type binaryFunc struct {
	name       string
	left, right pdbsql.Expression
	typ        pdbsql.Type
	eval       func(l, r interface{}) (interface{}, error)
}

func (f *binaryFunc) Type() pdbsql.Type          { return f.typ }
func (f *binaryFunc) IsNullable() bool           { return true }
func (f *binaryFunc) Resolved() bool             { return f.left.Resolved() && f.right.Resolved() }
func (f *binaryFunc) String() string             { return fmt.Sprintf("%s(%s, %s)", f.name, f.left, f.right) }
func (f *binaryFunc) Children() []pdbsql.Expression { return []pdbsql.Expression{f.left, f.right} }
func (f *binaryFunc) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	if len(c) != 2 {
		return nil, pdbsql.ErrExecution.New(f.name + ": expected 2 children")
	}
	n := *f
	n.left, n.right = c[0], c[1]
	return &n, nil
}
func (f *binaryFunc) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	l, err := f.left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	r, err := f.right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	return f.eval(l, r)
}

// variadicFunc covers COALESCE/CONCAT/GREATEST/LEAST-style functions
// taking any number of arguments.
type variadicFunc struct {
	name string
	args []pdbsql.Expression
	typ  pdbsql.Type
	eval func(vals []interface{}) (interface{}, error)
}

func (f *variadicFunc) Type() pdbsql.Type          { return f.typ }
func (f *variadicFunc) IsNullable() bool           { return true }
func (f *variadicFunc) Resolved() bool {
	for _, a := range f.args {
		if !a.Resolved() {
			return false
		}
	}
	return true
}
func (f *variadicFunc) String() string {
	parts := make([]string, len(f.args))
	for i, a := range f.args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.name, strings.Join(parts, ", "))
}
func (f *variadicFunc) Children() []pdbsql.Expression { return f.args }
func (f *variadicFunc) WithChildren(c ...pdbsql.Expression) (pdbsql.Expression, error) {
	n := *f
	n.args = c
	return &n, nil
}
func (f *variadicFunc) Eval(ctx *pdbsql.Context, row pdbsql.Row) (interface{}, error) {
	vals := make([]interface{}, len(f.args))
	for i, a := range f.args {
		v, err := a.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return f.eval(vals)
}

func toStr(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toF64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, pdbsql.ErrInvalidValue.New(v)
		}
		return f, nil
	default:
		return 0, pdbsql.ErrTypeMismatch.New(fmt.Sprintf("%T is not numeric", v))
	}
}

func (r *Registry) registerBuiltins() {
	// ---- string functions ----
	r.Register("LOWER", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("LOWER", args, 1); err != nil {
			return nil, err
		}
		return &unaryFunc{name: "LOWER", arg: args[0], typ: pdbsql.Text, eval: func(v interface{}) (interface{}, error) {
			return strings.ToLower(toStr(v)), nil
		}}, nil
	})
	r.Register("UPPER", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("UPPER", args, 1); err != nil {
			return nil, err
		}
		return &unaryFunc{name: "UPPER", arg: args[0], typ: pdbsql.Text, eval: func(v interface{}) (interface{}, error) {
			return strings.ToUpper(toStr(v)), nil
		}}, nil
	})
	r.Register("LENGTH", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("LENGTH", args, 1); err != nil {
			return nil, err
		}
		return &unaryFunc{name: "LENGTH", arg: args[0], typ: pdbsql.Int64, eval: func(v interface{}) (interface{}, error) {
			return int64(len([]rune(toStr(v)))), nil
		}}, nil
	})
	r.Register("TRIM", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("TRIM", args, 1); err != nil {
			return nil, err
		}
		return &unaryFunc{name: "TRIM", arg: args[0], typ: pdbsql.Text, eval: func(v interface{}) (interface{}, error) {
			return strings.TrimSpace(toStr(v)), nil
		}}, nil
	})
	r.Register("LTRIM", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("LTRIM", args, 1); err != nil {
			return nil, err
		}
		return &unaryFunc{name: "LTRIM", arg: args[0], typ: pdbsql.Text, eval: func(v interface{}) (interface{}, error) {
			return strings.TrimLeftFunc(toStr(v), unicode.IsSpace), nil
		}}, nil
	})
	r.Register("RTRIM", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("RTRIM", args, 1); err != nil {
			return nil, err
		}
		return &unaryFunc{name: "RTRIM", arg: args[0], typ: pdbsql.Text, eval: func(v interface{}) (interface{}, error) {
			return strings.TrimRightFunc(toStr(v), unicode.IsSpace), nil
		}}, nil
	})
	r.Register("SUBSTR", substrBuilder)
	r.Register("SUBSTRING", substrBuilder)
	r.Register("CONCAT", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if len(args) < 1 {
			return nil, pdbsql.ErrWrongNumArgs.New("CONCAT", 1, len(args))
		}
		return &variadicFunc{name: "CONCAT", args: args, typ: pdbsql.Text, eval: func(vals []interface{}) (interface{}, error) {
			var b strings.Builder
			for _, v := range vals {
				if v == nil {
					return nil, nil
				}
				b.WriteString(toStr(v))
			}
			return b.String(), nil
		}}, nil
	})
	r.Register("REPLACE", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("REPLACE", args, 3); err != nil {
			return nil, err
		}
		return &variadicFunc{name: "REPLACE", args: args, typ: pdbsql.Text, eval: func(vals []interface{}) (interface{}, error) {
			for _, v := range vals {
				if v == nil {
					return nil, nil
				}
			}
			return strings.ReplaceAll(toStr(vals[0]), toStr(vals[1]), toStr(vals[2])), nil
		}}, nil
	})

	// ---- null handling ----
	r.Register("COALESCE", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if len(args) < 1 {
			return nil, pdbsql.ErrWrongNumArgs.New("COALESCE", 1, len(args))
		}
		typ := args[0].Type()
		return &variadicFunc{name: "COALESCE", args: args, typ: typ, eval: func(vals []interface{}) (interface{}, error) {
			for _, v := range vals {
				if v != nil {
					return v, nil
				}
			}
			return nil, nil
		}}, nil
	})
	r.Register("NULLIF", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("NULLIF", args, 2); err != nil {
			return nil, err
		}
		typ := args[0].Type()
		return &binaryFunc{name: "NULLIF", left: args[0], right: args[1], typ: typ, eval: func(l, r interface{}) (interface{}, error) {
			_, cmp, err := pdbsql.CompareValues(typ, l, r)
			if err != nil {
				return nil, err
			}
			if cmp == 0 {
				return nil, nil
			}
			return l, nil
		}}, nil
	})

	// ---- math ----
	r.Register("ABS", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("ABS", args, 1); err != nil {
			return nil, err
		}
		return &unaryFunc{name: "ABS", arg: args[0], typ: args[0].Type(), eval: func(v interface{}) (interface{}, error) {
			f, err := toF64(v)
			if err != nil {
				return nil, err
			}
			return args[0].Type().Convert(math.Abs(f))
		}}, nil
	})
	r.Register("ROUND", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArityRange("ROUND", args, 1, 2); err != nil {
			return nil, err
		}
		return &variadicFunc{name: "ROUND", args: args, typ: pdbsql.Float64, eval: func(vals []interface{}) (interface{}, error) {
			if vals[0] == nil {
				return nil, nil
			}
			f, err := toF64(vals[0])
			if err != nil {
				return nil, err
			}
			digits := 0
			if len(vals) == 2 && vals[1] != nil {
				d, err := toF64(vals[1])
				if err != nil {
					return nil, err
				}
				digits = int(d)
			}
			mult := math.Pow(10, float64(digits))
			return math.Round(f*mult) / mult, nil
		}}, nil
	})
	r.Register("FLOOR", mathUnary("FLOOR", math.Floor))
	r.Register("CEIL", mathUnary("CEIL", math.Ceil))
	r.Register("CEILING", mathUnary("CEIL", math.Ceil))
	r.Register("SQRT", mathUnary("SQRT", math.Sqrt))
	r.Register("POWER", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("POWER", args, 2); err != nil {
			return nil, err
		}
		return &binaryFunc{name: "POWER", left: args[0], right: args[1], typ: pdbsql.Float64, eval: func(l, r interface{}) (interface{}, error) {
			lf, err := toF64(l)
			if err != nil {
				return nil, err
			}
			rf, err := toF64(r)
			if err != nil {
				return nil, err
			}
			return math.Pow(lf, rf), nil
		}}, nil
	})
	r.Register("MOD", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("MOD", args, 2); err != nil {
			return nil, err
		}
		return &binaryFunc{name: "MOD", left: args[0], right: args[1], typ: pdbsql.Int64, eval: func(l, r interface{}) (interface{}, error) {
			lf, err := toF64(l)
			if err != nil {
				return nil, err
			}
			rf, err := toF64(r)
			if err != nil {
				return nil, err
			}
			if rf == 0 {
				return nil, pdbsql.ErrDivideByZero.New()
			}
			return math.Mod(lf, rf), nil
		}}, nil
	})

	// ---- date/time ----
	r.Register("DATE_TRUNC", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("DATE_TRUNC", args, 2); err != nil {
			return nil, err
		}
		return &binaryFunc{name: "DATE_TRUNC", left: args[0], right: args[1], typ: pdbsql.Timestamp, eval: func(l, r interface{}) (interface{}, error) {
			unit, ok := l.(string)
			if !ok {
				return nil, pdbsql.ErrTypeMismatch.New("DATE_TRUNC: first argument must be a unit string")
			}
			t, ok := r.(time.Time)
			if !ok {
				return nil, pdbsql.ErrTypeMismatch.New("DATE_TRUNC: second argument must be a timestamp")
			}
			return truncTime(t, strings.ToUpper(unit))
		}}, nil
	})
	r.Register("EXTRACT", func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity("EXTRACT", args, 2); err != nil {
			return nil, err
		}
		return &binaryFunc{name: "EXTRACT", left: args[0], right: args[1], typ: pdbsql.Int64, eval: func(l, r interface{}) (interface{}, error) {
			field, ok := l.(string)
			if !ok {
				return nil, pdbsql.ErrTypeMismatch.New("EXTRACT: first argument must be a field string")
			}
			t, ok := r.(time.Time)
			if !ok {
				return nil, pdbsql.ErrTypeMismatch.New("EXTRACT: second argument must be a timestamp")
			}
			return extractField(t, strings.ToUpper(field))
		}}, nil
	})
}

func mathUnary(name string, fn func(float64) float64) Builder {
	return func(args []pdbsql.Expression) (pdbsql.Expression, error) {
		if err := checkArity(name, args, 1); err != nil {
			return nil, err
		}
		return &unaryFunc{name: name, arg: args[0], typ: pdbsql.Float64, eval: func(v interface{}) (interface{}, error) {
			f, err := toF64(v)
			if err != nil {
				return nil, err
			}
			return fn(f), nil
		}}, nil
	}
}

func substrBuilder(args []pdbsql.Expression) (pdbsql.Expression, error) {
	if err := checkArityRange("SUBSTR", args, 2, 3); err != nil {
		return nil, err
	}
	return &variadicFunc{name: "SUBSTR", args: args, typ: pdbsql.Text, eval: func(vals []interface{}) (interface{}, error) {
		for _, v := range vals {
			if v == nil {
				return nil, nil
			}
		}
		s := []rune(toStr(vals[0]))
		startF, err := toF64(vals[1])
		if err != nil {
			return nil, err
		}
		start := int(startF)
		if start < 1 {
			start = 1
		}
		if start > len(s)+1 {
			return "", nil
		}
		end := len(s) + 1
		if len(vals) == 3 {
			lenF, err := toF64(vals[2])
			if err != nil {
				return nil, err
			}
			end = start + int(lenF)
			if end > len(s)+1 {
				end = len(s) + 1
			}
		}
		if end < start {
			return "", nil
		}
		return string(s[start-1 : end-1]), nil
	}}, nil
}

func truncTime(t time.Time, unit string) (time.Time, error) {
	switch unit {
	case "YEAR":
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location()), nil
	case "MONTH":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()), nil
	case "DAY":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
	case "HOUR":
		return t.Truncate(time.Hour), nil
	case "MINUTE":
		return t.Truncate(time.Minute), nil
	case "SECOND":
		return t.Truncate(time.Second), nil
	default:
		return time.Time{}, pdbsql.ErrInvalidValue.New("unknown DATE_TRUNC unit: " + unit)
	}
}

func extractField(t time.Time, field string) (int64, error) {
	switch field {
	case "YEAR":
		return int64(t.Year()), nil
	case "MONTH":
		return int64(t.Month()), nil
	case "DAY":
		return int64(t.Day()), nil
	case "HOUR":
		return int64(t.Hour()), nil
	case "MINUTE":
		return int64(t.Minute()), nil
	case "SECOND":
		return int64(t.Second()), nil
	case "DOW":
		return int64(t.Weekday()), nil
	case "DOY":
		return int64(t.YearDay()), nil
	default:
		return 0, pdbsql.ErrInvalidValue.New("unknown EXTRACT field: " + field)
	}
}
