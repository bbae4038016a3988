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

// Tribool is a three-valued truth value (spec §3.1, §4.6): TRUE, FALSE, or
// UNKNOWN. UNKNOWN propagates through AND/OR/NOT except where IS NULL / IS
// DISTINCT FROM collapse it back to a definite boolean.
type Tribool int

const (
	Unknown Tribool = iota
	True
	False
)

// BoolToTribool lifts a NULL-able Go bool (nil meaning NULL) to a Tribool.
func BoolToTribool(v interface{}) Tribool {
	if v == nil {
		return Unknown
	}
	if b, ok := v.(bool); ok {
		if b {
			return True
		}
		return False
	}
	return Unknown
}

// And implements three-valued AND: UNKNOWN only if neither side is FALSE.
func (t Tribool) And(o Tribool) Tribool {
	if t == False || o == False {
		return False
	}
	if t == Unknown || o == Unknown {
		return Unknown
	}
	return True
}

// Or implements three-valued OR: UNKNOWN only if neither side is TRUE.
func (t Tribool) Or(o Tribool) Tribool {
	if t == True || o == True {
		return True
	}
	if t == Unknown || o == Unknown {
		return Unknown
	}
	return False
}

// Not implements three-valued NOT.
func (t Tribool) Not() Tribool {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// ToNullableBool converts back to a NULL-able Go bool for storage in a Row
// or Column (nil == UNKNOWN/NULL).
func (t Tribool) ToNullableBool() interface{} {
	switch t {
	case True:
		return true
	case False:
		return false
	default:
		return nil
	}
}

// CompareValues compares two values of type typ under three-valued logic;
// a nil operand on either side yields Unknown, per spec §3.1 ("UNKNOWN
// propagates except in IS NULL / IS DISTINCT FROM").
func CompareValues(typ Type, a, b interface{}) (Tribool, int, error) {
	if a == nil || b == nil {
		return Unknown, 0, nil
	}
	c, err := typ.Compare(a, b)
	if err != nil {
		return Unknown, 0, err
	}
	if c == 0 {
		return True, c, nil
	}
	return False, c, nil
}

// NullSafeEquals implements IS NOT DISTINCT FROM / IS DISTINCT FROM
// semantics: two NULLs are equal, NULL vs non-NULL is distinct, otherwise
// value comparison applies (spec §4.6).
func NullSafeEquals(typ Type, a, b interface{}) (bool, error) {
	if a == nil && b == nil {
		return true, nil
	}
	if a == nil || b == nil {
		return false, nil
	}
	c, err := typ.Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}
