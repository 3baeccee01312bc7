// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"math"
	"testing"
)

// ============================================================
// ReverseByte
// ============================================================

func TestReverseByte_Involution(t *testing.T) {
	for b := 0; b < 256; b++ {
		got := ReverseByte(ReverseByte(byte(b)))
		if got != byte(b) {
			t.Errorf("ReverseByte(ReverseByte(0x%02X)) = 0x%02X, want 0x%02X", b, got, b)
		}
	}
}

func TestReverseByte_KnownValues(t *testing.T) {
	tests := []struct {
		in, want byte
	}{
		{0x00, 0x00},
		{0xFF, 0xFF},
		{0x01, 0x80},
		{0x80, 0x01},
		{0x0F, 0xF0},
	}
	for _, tt := range tests {
		if got := ReverseByte(tt.in); got != tt.want {
			t.Errorf("ReverseByte(0x%02X) = 0x%02X, want 0x%02X", tt.in, got, tt.want)
		}
	}
}

// ============================================================
// Dim level / magnitude round-trip
// ============================================================

func TestDimLevelRoundTrip(t *testing.T) {
	for p := 0; p <= 100; p++ {
		percent := float64(p)
		level := PercentToDimLevel(percent)
		frac := DimLevelToFraction(level)
		diff := math.Abs(frac - percent/100)
		if diff > 1.0/22 {
			t.Errorf("percent %v: round-trip fraction %v off by %v (want <= 1/22)", percent, frac, diff)
		}
	}
}

func TestMagnitudeRoundTrip(t *testing.T) {
	for p := 0; p <= 100; p++ {
		percent := float64(p)
		mag := PercentToMagnitude(percent)
		frac := MagnitudeToFraction(mag)
		diff := math.Abs(frac - percent/100)
		if diff > 1.0/dimStepMax {
			t.Errorf("percent %v: round-trip fraction %v off by %v", percent, frac, diff)
		}
	}
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-10, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		if got := ClampPercent(tt.in); got != tt.want {
			t.Errorf("ClampPercent(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
