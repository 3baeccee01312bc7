// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "fmt"

// HouseCode identifies one of the 16 X10 house letters A..P, or HouseNotSet.
// The zero value is HouseA; HouseNotSet follows HouseP and is never a valid
// address.
type HouseCode byte

// House codes, named after their wire letter. Values are indices into
// houseNibbles / houseLetters, not the wire nibble itself.
const (
	HouseA HouseCode = iota
	HouseB
	HouseC
	HouseD
	HouseE
	HouseF
	HouseG
	HouseH
	HouseI
	HouseJ
	HouseK
	HouseL
	HouseM
	HouseN
	HouseO
	HouseP
	HouseNotSet
)

// houseNibbles holds the X10 wire-encoding nibble for each house letter.
// The encoding is not alphabetic: A=6, B=14, C=2, ...
var houseNibbles = [16]byte{
	HouseA: 6, HouseB: 14, HouseC: 2, HouseD: 10,
	HouseE: 1, HouseF: 9, HouseG: 5, HouseH: 13,
	HouseI: 7, HouseJ: 15, HouseK: 3, HouseL: 11,
	HouseM: 0, HouseN: 8, HouseO: 4, HouseP: 12,
}

var houseLetters = [16]byte{
	HouseA: 'A', HouseB: 'B', HouseC: 'C', HouseD: 'D',
	HouseE: 'E', HouseF: 'F', HouseG: 'G', HouseH: 'H',
	HouseI: 'I', HouseJ: 'J', HouseK: 'K', HouseL: 'L',
	HouseM: 'M', HouseN: 'N', HouseO: 'O', HouseP: 'P',
}

// nibbleToHouse inverts houseNibbles for decoding inbound frames.
var nibbleToHouse = func() map[byte]HouseCode {
	m := make(map[byte]HouseCode, 16)
	for h, n := range houseNibbles {
		m[n] = HouseCode(h)
	}
	return m
}()

// letterToHouse inverts houseLetters.
var letterToHouse = func() map[byte]HouseCode {
	m := make(map[byte]HouseCode, 16)
	for h, l := range houseLetters {
		m[l] = HouseCode(h)
	}
	return m
}()

// Nibble returns the 4-bit wire encoding for h, or 0xFF if h is HouseNotSet
// or out of range.
func (h HouseCode) Nibble() byte {
	if h >= HouseNotSet {
		return 0xFF
	}
	return houseNibbles[h]
}

// Letter returns the single uppercase ASCII letter for h ('A'..'P'), or 0
// if h is HouseNotSet.
func (h HouseCode) Letter() byte {
	if h >= HouseNotSet {
		return 0
	}
	return houseLetters[h]
}

// String implements fmt.Stringer.
func (h HouseCode) String() string {
	if h >= HouseNotSet {
		return "NotSet"
	}
	return string(houseLetters[h])
}

// HouseFromNibble decodes a wire nibble (0..15) back into a HouseCode.
// Returns HouseNotSet if the nibble does not correspond to a house.
func HouseFromNibble(nibble byte) HouseCode {
	if h, ok := nibbleToHouse[nibble&0x0F]; ok {
		return h
	}
	return HouseNotSet
}

// HouseFromLetter decodes an uppercase ASCII house letter ('A'..'P') into a
// HouseCode. Returns (HouseNotSet, false) for anything else.
func HouseFromLetter(letter byte) (HouseCode, bool) {
	h, ok := letterToHouse[letter]
	return h, ok
}

// ParseHouseCode parses a single-character house code string, e.g. "C".
func ParseHouseCode(s string) (HouseCode, error) {
	if len(s) != 1 {
		return HouseNotSet, fmt.Errorf("x10: invalid house code %q", s)
	}
	h, ok := HouseFromLetter(s[0])
	if !ok {
		return HouseNotSet, fmt.Errorf("x10: invalid house code %q", s)
	}
	return h, nil
}
