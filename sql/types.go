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
	"time"

	"github.com/shopspring/decimal"
)

// TypeKind tags a logical type (spec §3.1).
type TypeKind int

const (
	KindNull TypeKind = iota
	KindBoolean
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt128 // hugeint
	KindFloat32
	KindFloat64
	KindDecimal
	KindText
	KindVarChar
	KindBinary
	KindDate
	KindTime
	KindTimestamp
	KindList
	KindStruct
	KindMap
)

// Type is a logical type: every expression and column has exactly one,
// known at plan time (spec §3.1).
type Type interface {
	fmt.Stringer

	Kind() TypeKind

	// Compare returns -1/0/1 for a<b/a==b/a>b. Neither a nor b is ever
	// NULL -- NULL comparisons are handled by the three-valued-logic
	// helpers in value.go, one layer up.
	Compare(a, b interface{}) (int, error)

	// Convert coerces v (already non-NULL) into this type's native Go
	// representation, or fails with ErrTypeMismatch/ErrInvalidValue.
	Convert(v interface{}) (interface{}, error)

	// Zero is the type's default (non-NULL) value, used for defaulted
	// columns and for accumulator seeding.
	Zero() interface{}
}

// NumericType is implemented by every numeric logical type and exposes the
// rung it occupies on the widening lattice (spec §3.1).
type NumericType interface {
	Type
	widenRank() int
	isFloat() bool
}

// ---- concrete scalar types ----

type booleanType struct{}

func (booleanType) Kind() TypeKind  { return KindBoolean }
func (booleanType) String() string  { return "BOOLEAN" }
func (booleanType) Zero() interface{} { return false }
func (booleanType) Convert(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	}
	return nil, ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to BOOLEAN", v))
}
func (booleanType) Compare(a, b interface{}) (int, error) {
	x, y := a.(bool), b.(bool)
	if x == y {
		return 0, nil
	}
	if !x {
		return -1, nil
	}
	return 1, nil
}

// integerType covers tinyint..bigint (widths 8,16,32,64); all stored as
// int64 natively, width only bounds valid values and wraps arithmetic.
type integerType struct {
	kind  TypeKind
	bits  int
	rank  int
}

func (t integerType) Kind() TypeKind    { return t.kind }
func (t integerType) widenRank() int    { return t.rank }
func (t integerType) isFloat() bool     { return false }
func (t integerType) Zero() interface{} { return int64(0) }
func (t integerType) String() string {
	switch t.bits {
	case 8:
		return "TINYINT"
	case 16:
		return "SMALLINT"
	case 32:
		return "INT"
	default:
		return "BIGINT"
	}
}
func (t integerType) Convert(v interface{}) (interface{}, error) {
	i, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	return wrapInt(i, t.bits), nil
}
func (t integerType) Compare(a, b interface{}) (int, error) {
	x, errA := toInt64(a)
	y, errB := toInt64(b)
	if errA != nil {
		return 0, errA
	}
	if errB != nil {
		return 0, errB
	}
	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	default:
		return 0, nil
	}
}

// wrapInt applies spec §9's wrapping-overflow policy for the declared
// integer width.
func wrapInt(v int64, bits int) int64 {
	switch bits {
	case 8:
		return int64(int8(v))
	case 16:
		return int64(int16(v))
	case 32:
		return int64(int32(v))
	default:
		return v
	}
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case float32:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case decimal.Decimal:
		return t.IntPart(), nil
	case string:
		var out int64
		if _, err := fmt.Sscanf(t, "%d", &out); err != nil {
			return 0, ErrInvalidValue.New(fmt.Sprintf("cannot parse %q as integer", t))
		}
		return out, nil
	}
	return 0, ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to integer", v))
}

// hugeintType is the widest integer rung (128-bit, spec §3.1). It is
// represented by decimal.Decimal with scale 0, the same 128-bit-mantissa
// storage the DECIMAL type uses, since Go has no native int128.
type hugeintType struct{}

func (hugeintType) Kind() TypeKind    { return KindInt128 }
func (hugeintType) widenRank() int    { return rankHugeint }
func (hugeintType) isFloat() bool     { return false }
func (hugeintType) String() string    { return "HUGEINT" }
func (hugeintType) Zero() interface{} { return decimal.Zero }
func (hugeintType) Convert(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t.Truncate(0), nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return decimal.NewFromInt(i), nil
	}
}
func (hugeintType) Compare(a, b interface{}) (int, error) {
	x, err := hugeintType{}.Convert(a)
	if err != nil {
		return 0, err
	}
	y, err := hugeintType{}.Convert(b)
	if err != nil {
		return 0, err
	}
	return x.(decimal.Decimal).Cmp(y.(decimal.Decimal)), nil
}

type floatType struct {
	kind TypeKind
	bits int
	rank int
}

func (t floatType) Kind() TypeKind    { return t.kind }
func (t floatType) widenRank() int    { return t.rank }
func (t floatType) isFloat() bool     { return true }
func (t floatType) Zero() interface{} { return float64(0) }
func (t floatType) String() string {
	if t.bits == 32 {
		return "FLOAT"
	}
	return "DOUBLE"
}
func (t floatType) Convert(v interface{}) (interface{}, error) {
	f, err := toFloat64(v)
	if err != nil {
		return nil, err
	}
	if t.bits == 32 {
		return float64(float32(f)), nil
	}
	return f, nil
}
func (t floatType) Compare(a, b interface{}) (int, error) {
	x, errA := toFloat64(a)
	y, errB := toFloat64(b)
	if errA != nil {
		return 0, errA
	}
	if errB != nil {
		return 0, errB
	}
	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	default:
		return 0, nil
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case decimal.Decimal:
		f, _ := t.Float64()
		return f, nil
	case string:
		var out float64
		if _, err := fmt.Sscanf(t, "%g", &out); err != nil {
			return 0, ErrInvalidValue.New(fmt.Sprintf("cannot parse %q as float", t))
		}
		return out, nil
	}
	return 0, ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to float", v))
}

// decimalType carries (precision, scale) on the type, as spec §3.1
// requires: the value itself is a decimal.Decimal (128-bit-equivalent
// mantissa + exponent), and the pair is preserved across SUM/AVG.
type decimalType struct {
	precision int
	scale     int
}

func NewDecimalType(precision, scale int) (Type, error) {
	if precision < 1 || precision > 38 {
		return nil, ErrInvalidValue.New("decimal precision must be in [1,38]")
	}
	if scale < 0 || scale > precision {
		return nil, ErrInvalidValue.New("decimal scale must be in [0,precision]")
	}
	return decimalType{precision: precision, scale: scale}, nil
}

func (t decimalType) Kind() TypeKind { return KindDecimal }
func (t decimalType) widenRank() int { return rankDecimal }
func (t decimalType) isFloat() bool  { return false }
func (t decimalType) String() string { return fmt.Sprintf("DECIMAL(%d,%d)", t.precision, t.scale) }
func (t decimalType) Precision() int { return t.precision }
func (t decimalType) Scale() int     { return t.scale }
func (t decimalType) Zero() interface{} {
	return decimal.Zero.Round(int32(t.scale))
}
func (t decimalType) Convert(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.Round(int32(t.scale)), nil
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return nil, ErrInvalidValue.New(fmt.Sprintf("cannot parse %q as DECIMAL", x))
		}
		return d.Round(int32(t.scale)), nil
	case int64, int32, int16, int8, int:
		i, _ := toInt64(v)
		return decimal.NewFromInt(i).Round(int32(t.scale)), nil
	case float64, float32:
		f, _ := toFloat64(v)
		return decimal.NewFromFloat(f).Round(int32(t.scale)), nil
	}
	return nil, ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to DECIMAL", v))
}
func (t decimalType) Compare(a, b interface{}) (int, error) {
	x, err := t.Convert(a)
	if err != nil {
		return 0, err
	}
	y, err := t.Convert(b)
	if err != nil {
		return 0, err
	}
	return x.(decimal.Decimal).Cmp(y.(decimal.Decimal)), nil
}

// WidenDecimal returns the wider precision/scale needed to hold both decimals
// without loss, per the open question in spec §9 ("widen precision on
// overflow rather than silently wrap").
func WidenDecimal(a, b decimalType) decimalType {
	scale := a.scale
	if b.scale > scale {
		scale = b.scale
	}
	intDigitsA := a.precision - a.scale
	intDigitsB := b.precision - b.scale
	intDigits := intDigitsA
	if intDigitsB > intDigits {
		intDigits = intDigitsB
	}
	precision := intDigits + scale + 1 // +1 headroom for carry
	if precision > 38 {
		precision = 38
	}
	return decimalType{precision: precision, scale: scale}
}

type stringType struct {
	kind      TypeKind
	maxLength int // 0 = unbounded TEXT
}

func (t stringType) Kind() TypeKind { return t.kind }
func (t stringType) String() string {
	if t.kind == KindText {
		return "TEXT"
	}
	return fmt.Sprintf("VARCHAR(%d)", t.maxLength)
}
func (t stringType) Zero() interface{} { return "" }
func (t stringType) Convert(v interface{}) (interface{}, error) {
	s := fmt.Sprintf("%v", v)
	if t.maxLength > 0 && len(s) > t.maxLength {
		s = s[:t.maxLength]
	}
	return s, nil
}
func (t stringType) Compare(a, b interface{}) (int, error) {
	x, y := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	default:
		return 0, nil
	}
}

type binaryType struct{}

func (binaryType) Kind() TypeKind    { return KindBinary }
func (binaryType) String() string    { return "BLOB" }
func (binaryType) Zero() interface{} { return []byte{} }
func (binaryType) Convert(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	}
	return nil, ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to BLOB", v))
}
func (binaryType) Compare(a, b interface{}) (int, error) {
	x, y := a.([]byte), b.([]byte)
	for i := 0; i < len(x) && i < len(y); i++ {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1, nil
			}
			return 1, nil
		}
	}
	switch {
	case len(x) < len(y):
		return -1, nil
	case len(x) > len(y):
		return 1, nil
	default:
		return 0, nil
	}
}

const timeLayout = "15:04:05"
const dateLayout = "2006-01-02"
const timestampLayout = "2006-01-02 15:04:05.999999999"

type temporalType struct {
	kind   TypeKind
	layout string
}

func (t temporalType) Kind() TypeKind    { return t.kind }
func (t temporalType) Zero() interface{} { return time.Time{} }
func (t temporalType) String() string {
	switch t.kind {
	case KindDate:
		return "DATE"
	case KindTime:
		return "TIME"
	default:
		return "TIMESTAMP"
	}
}
func (t temporalType) Convert(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		ts, err := time.Parse(t.layout, x)
		if err != nil {
			return nil, ErrInvalidValue.New(fmt.Sprintf("cannot parse %q as %s", x, t))
		}
		return ts, nil
	}
	return nil, ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to %s", v, t))
}
func (t temporalType) Compare(a, b interface{}) (int, error) {
	x, xok := a.(time.Time)
	y, yok := b.(time.Time)
	if !xok || !yok {
		return 0, ErrTypeMismatch.New("temporal comparison requires time.Time operands")
	}
	switch {
	case x.Before(y):
		return -1, nil
	case x.After(y):
		return 1, nil
	default:
		return 0, nil
	}
}

type nullType struct{}

func (nullType) Kind() TypeKind              { return KindNull }
func (nullType) String() string              { return "NULL" }
func (nullType) Zero() interface{}           { return nil }
func (nullType) Convert(v interface{}) (interface{}, error) { return nil, nil }
func (nullType) Compare(a, b interface{}) (int, error)      { return 0, nil }

// Composite types (list/struct/map) are declared, per spec §3.1, but no
// binder or operator in the core constructs them (STRING_AGG yields TEXT).
// They carry an element/field type but do not participate in the widening
// lattice.
type listType struct{ elem Type }

func (t listType) Kind() TypeKind    { return KindList }
func (t listType) String() string    { return fmt.Sprintf("LIST(%s)", t.elem) }
func (t listType) Zero() interface{} { return []interface{}{} }
func (t listType) Convert(v interface{}) (interface{}, error) {
	if l, ok := v.([]interface{}); ok {
		return l, nil
	}
	return nil, ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to LIST", v))
}
func (listType) Compare(a, b interface{}) (int, error) {
	return 0, ErrNotImplemented.New("ordering of LIST values")
}

type structField struct {
	Name string
	Type Type
}

type structType struct{ fields []structField }

func (t structType) Kind() TypeKind    { return KindStruct }
func (t structType) String() string    { return "STRUCT" }
func (t structType) Zero() interface{} { return map[string]interface{}{} }
func (t structType) Convert(v interface{}) (interface{}, error) {
	if m, ok := v.(map[string]interface{}); ok {
		return m, nil
	}
	return nil, ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to STRUCT", v))
}
func (structType) Compare(a, b interface{}) (int, error) {
	return 0, ErrNotImplemented.New("ordering of STRUCT values")
}

type mapType struct {
	key, value Type
}

func (t mapType) Kind() TypeKind    { return KindMap }
func (t mapType) String() string    { return fmt.Sprintf("MAP(%s,%s)", t.key, t.value) }
func (t mapType) Zero() interface{} { return map[interface{}]interface{}{} }
func (t mapType) Convert(v interface{}) (interface{}, error) {
	if m, ok := v.(map[interface{}]interface{}); ok {
		return m, nil
	}
	return nil, ErrTypeMismatch.New(fmt.Sprintf("cannot convert %T to MAP", v))
}
func (mapType) Compare(a, b interface{}) (int, error) {
	return 0, ErrNotImplemented.New("ordering of MAP values")
}

// ---- singletons & constructors, the teacher's sql.Int32/sql.Text style ----

var (
	Boolean   Type = booleanType{}
	Int8      Type = integerType{kind: KindInt8, bits: 8, rank: rankInt8}
	Int16     Type = integerType{kind: KindInt16, bits: 16, rank: rankInt16}
	Int32     Type = integerType{kind: KindInt32, bits: 32, rank: rankInt32}
	Int64     Type = integerType{kind: KindInt64, bits: 64, rank: rankInt64}
	HugeInt   Type = hugeintType{}
	Float32   Type = floatType{kind: KindFloat32, bits: 32, rank: rankFloat32}
	Float64   Type = floatType{kind: KindFloat64, bits: 64, rank: rankFloat64}
	Text      Type = stringType{kind: KindText}
	Binary    Type = binaryType{}
	Date      Type = temporalType{kind: KindDate, layout: dateLayout}
	TimeOfDay Type = temporalType{kind: KindTime, layout: timeLayout}
	Timestamp Type = temporalType{kind: KindTimestamp, layout: timestampLayout}
	Null      Type = nullType{}
)

func VarChar(n int) Type           { return stringType{kind: KindVarChar, maxLength: n} }
func MustDecimal(p, s int) Type {
	t, err := NewDecimalType(p, s)
	if err != nil {
		panic(err)
	}
	return t
}
func List(elem Type) Type                   { return listType{elem: elem} }
func Struct(fields []structField) Type      { return structType{fields: fields} }
func Map(key, value Type) Type              { return mapType{key: key, value: value} }

// widening ranks, spec §3.1: tinyint ⊂ smallint ⊂ int ⊂ bigint ⊂ hugeint;
// any integer ⊂ double; float ⊂ double.
const (
	rankInt8 = iota
	rankInt16
	rankInt32
	rankInt64
	rankHugeint
	rankDecimal
	rankFloat32
	rankFloat64
)

// Promote returns the join of a and b in the widening lattice, used by
// arithmetic/comparison binding (spec §3.1, §4.3).
func Promote(a, b Type) (Type, error) {
	if a == nil || a.Kind() == KindNull {
		return b, nil
	}
	if b == nil || b.Kind() == KindNull {
		return a, nil
	}
	if a.Kind() == KindDecimal || b.Kind() == KindDecimal {
		da, aok := a.(decimalType)
		db, bok := b.(decimalType)
		switch {
		case aok && bok:
			return WidenDecimal(da, db), nil
		case aok:
			if isFloatKind(b.Kind()) {
				return Float64, nil
			}
			return da, nil
		case bok:
			if isFloatKind(a.Kind()) {
				return Float64, nil
			}
			return db, nil
		}
	}
	na, aok := a.(NumericType)
	nb, bok := b.(NumericType)
	if aok && bok {
		if na.isFloat() || nb.isFloat() {
			return Float64, nil
		}
		if na.widenRank() >= nb.widenRank() {
			return a, nil
		}
		return b, nil
	}
	if a.Kind() == b.Kind() {
		return a, nil
	}
	// string vs anything: widen to TEXT, per the spec's "string <-> any"
	// CAST rule -- comparisons between text and non-text coerce via CAST.
	if a.Kind() == KindText || b.Kind() == KindText || a.Kind() == KindVarChar || b.Kind() == KindVarChar {
		return Text, nil
	}
	return nil, ErrTypeMismatch.New(fmt.Sprintf("no common type for %s and %s", a, b))
}

func isFloatKind(k TypeKind) bool { return k == KindFloat32 || k == KindFloat64 }

// IsNumeric reports whether t participates in the widening lattice.
func IsNumeric(t Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindInt8, KindInt16, KindInt32, KindInt64, KindInt128, KindFloat32, KindFloat64, KindDecimal:
		return true
	}
	return false
}

// CastValid implements the explicit CAST validity rules of spec §4.3: all
// numerics cast to each other; string <-> any; date/time <-> timestamp.
func CastValid(from, to Type) bool {
	if from == nil || to == nil {
		return true
	}
	if from.Kind() == to.Kind() {
		return true
	}
	if IsNumeric(from) && IsNumeric(to) {
		return true
	}
	isStr := func(t Type) bool { return t.Kind() == KindText || t.Kind() == KindVarChar }
	if isStr(from) || isStr(to) {
		return true
	}
	isTemporal := func(t Type) bool {
		return t.Kind() == KindDate || t.Kind() == KindTime || t.Kind() == KindTimestamp
	}
	if isTemporal(from) && isTemporal(to) {
		return true
	}
	return false
}
