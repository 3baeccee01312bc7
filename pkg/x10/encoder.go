// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "time"

// EncodeAddress builds an Address frame: [0x04, (house<<4)|unit] (§4.2).
func EncodeAddress(house HouseCode, unit UnitCode) []byte {
	return []byte{FrameAddress, (house.Nibble() << 4) | unit.Nibble()}
}

// EncodeHouseAddress builds a house-only Address frame, used ahead of
// AllLightsOn/AllUnitsOff: [0x04, (house<<4)|0] (§4.5).
func EncodeHouseAddress(house HouseCode) []byte {
	return []byte{FrameAddress, house.Nibble() << 4}
}

// EncodeFunction builds a non-dim Function frame: [0x06, (house<<4)|function] (§4.2).
func EncodeFunction(house HouseCode, cmd Command) []byte {
	return []byte{FrameFunction, (house.Nibble() << 4) | cmd.Nibble()}
}

// EncodeFunctionUSBDim builds the USB-variant dim/bright Function frame,
// which carries the magnitude as an explicit third byte:
// [0x06, (house<<4)|function, magnitude] where magnitude = floor(percent/100*210).
// cmd must be CommandDim or CommandBright.
func EncodeFunctionUSBDim(house HouseCode, cmd Command, percent float64) []byte {
	return []byte{
		FrameFunction,
		(house.Nibble() << 4) | cmd.Nibble(),
		PercentToMagnitude(percent),
	}
}

// EncodeFunctionSerialDim builds the serial-variant dim/bright Function
// frame, which folds the dim level into the header byte instead of a
// trailing magnitude byte:
// [0x06 | dim_code | 0x04, (house<<4)|function], dim_code = PercentToDimLevel(percent)<<3.
// cmd must be CommandDim or CommandBright.
func EncodeFunctionSerialDim(house HouseCode, cmd Command, percent float64) []byte {
	dimCode := PercentToDimLevel(percent) << 3
	header := byte(0x06) | dimCode | byte(0x04)
	return []byte{header, (house.Nibble() << 4) | cmd.Nibble()}
}

// dowBitmap returns the single-bit day-of-week mask for d, with Sunday in
// bit 0 through Saturday in bit 6, per §4.2's time-set frame layout.
func dowBitmap(d time.Weekday) byte {
	return 1 << uint(d)
}

// EncodeTimeSet builds the time-set frame (§4.2): header 0x9B followed by
// eight data bytes, with a USB-only trailing 0x02 when usb is true. The
// last two data bytes are undocumented in the reference and are
// left zero here, matching the USB trailing-0x02 precedent of retaining
// unexplained reference bytes verbatim rather than guessing at them
// (§9 Open Questions).
func EncodeTimeSet(t time.Time, house HouseCode, clearBattery, usb bool) []byte {
	minute := t.Minute()
	if t.Hour()%2 == 1 {
		minute += 60
	}

	yday := t.YearDay() - 1 // 0-based, per the reference's day-of-year convention
	ydayHighBit := byte(0)
	if yday > 0xFF {
		ydayHighBit = 0x80
	}

	flags := byte(0x03)
	if clearBattery {
		flags = 0x07
	}

	data := []byte{
		byte(t.Second()),
		byte(minute),
		byte(t.Hour() / 2),
		byte(yday & 0xFF),
		ydayHighBit | dowBitmap(t.Weekday()),
		(house.Nibble() << 4) | flags,
		0x00,
		0x00,
	}

	frame := make([]byte, 0, 10)
	frame = append(frame, FrameTimeSet)
	frame = append(frame, data...)
	if usb {
		frame = append(frame, 0x02)
	}
	return frame
}

// houseMonitorBits maps a house letter to its bit position in the USB
// monitored-codes bitmap (§4.2). The permutation is fixed by the reference
// device firmware and is not alphabetic or sequential.
var houseMonitorBits = map[HouseCode]uint{
	HouseA: 14, HouseB: 6, HouseC: 10, HouseD: 2,
	HouseE: 9, HouseF: 1, HouseG: 13, HouseH: 5,
	HouseI: 15, HouseJ: 7, HouseK: 11, HouseL: 3,
	HouseM: 8, HouseN: 0, HouseO: 12, HouseP: 4,
}

// EncodeMonitoredCodes builds the USB vendor monitored-codes frame (§4.2),
// sent during CM15 initialization (§4.6) so the controller knows which
// house codes to forward RF traffic for.
func EncodeMonitoredCodes(houses []HouseCode) []byte {
	var bitmap uint16
	for _, h := range houses {
		bitmap |= 1 << houseMonitorBits[h]
	}
	hi := byte(bitmap >> 8)
	lo := byte(bitmap & 0xFF)
	return []byte{FrameMonitoredCodes, hi, lo, 0x05, 0x00, 0x14, 0x20, 0x28, 0x24, 0x29}
}
