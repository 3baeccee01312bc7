// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "fmt"

// UnitCode identifies one of the 16 unit numbers addressable within a
// house code. Unit_1 is UnitCode(0), so the zero value is Unit1; UnitNotSet
// follows Unit16 and is the sentinel used when a Module carries no specific
// unit (e.g. house-wide commands).
type UnitCode byte

// Unit codes, named by their 1-based wire position.
const (
	Unit1 UnitCode = iota
	Unit2
	Unit3
	Unit4
	Unit5
	Unit6
	Unit7
	Unit8
	Unit9
	Unit10
	Unit11
	Unit12
	Unit13
	Unit14
	Unit15
	Unit16
	UnitNotSet
)

// unitNibbles mirrors houseNibbles: the encoding matches house nibbles
// exactly (Unit1=6, Unit2=14, ..., Unit16=12).
var unitNibbles = [16]byte{
	Unit1: 6, Unit2: 14, Unit3: 2, Unit4: 10,
	Unit5: 1, Unit6: 9, Unit7: 5, Unit8: 13,
	Unit9: 7, Unit10: 15, Unit11: 3, Unit12: 11,
	Unit13: 0, Unit14: 8, Unit15: 4, Unit16: 12,
}

var nibbleToUnit = func() map[byte]UnitCode {
	m := make(map[byte]UnitCode, 16)
	for u, n := range unitNibbles {
		m[n] = UnitCode(u)
	}
	return m
}()

// Nibble returns the 4-bit wire encoding for u, or 0xFF if u is UnitNotSet
// or out of range.
func (u UnitCode) Nibble() byte {
	if u >= UnitNotSet {
		return 0xFF
	}
	return unitNibbles[u]
}

// Number returns the 1-based unit number (1..16), or 0 if u is UnitNotSet.
func (u UnitCode) Number() int {
	if u >= UnitNotSet {
		return 0
	}
	return int(u) + 1
}

// String implements fmt.Stringer.
func (u UnitCode) String() string {
	if u >= UnitNotSet {
		return "NotSet"
	}
	return fmt.Sprintf("%d", u.Number())
}

// UnitFromNumber converts a 1-based unit number (1..16) to a UnitCode.
func UnitFromNumber(n int) (UnitCode, error) {
	if n < 1 || n > 16 {
		return UnitNotSet, fmt.Errorf("x10: unit number %d out of range [1,16]", n)
	}
	return UnitCode(n - 1), nil
}

// UnitFromNibble decodes a wire nibble (0..15) back into a UnitCode.
func UnitFromNibble(nibble byte) UnitCode {
	if u, ok := nibbleToUnit[nibble&0x0F]; ok {
		return u
	}
	return UnitNotSet
}
