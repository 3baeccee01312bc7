// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"strings"
	"testing"
)

// ============================================================
// Defaults and derived accessors
// ============================================================

func TestDefaultConfiguration_AckTimeoutFallback(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.AckTimeoutMs = 0
	if got := cfg.AckTimeout(); got != ackTimeout {
		t.Errorf("AckTimeout() = %v, want protocol default %v", got, ackTimeout)
	}
}

func TestConfiguration_Houses_ParsesCommaList(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.HouseCode = "A,C,P"

	houses, err := cfg.Houses()
	if err != nil {
		t.Fatalf("Houses: %v", err)
	}
	want := []HouseCode{HouseA, HouseC, HouseP}
	if len(houses) != len(want) {
		t.Fatalf("Houses() = %v, want %v", houses, want)
	}
	for i := range want {
		if houses[i] != want[i] {
			t.Errorf("Houses()[%d] = %v, want %v", i, houses[i], want[i])
		}
	}
}

func TestConfiguration_Houses_RejectsWhitespaceAndUnknownLetters(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.HouseCode = "A, C"
	if _, err := cfg.Houses(); err == nil {
		t.Error("expected an error for a whitespace-separated house_code")
	}

	cfg.HouseCode = "Q"
	if _, err := cfg.Houses(); err == nil {
		t.Error("expected an error for an unknown house letter")
	}
}

func TestConfiguration_IsUSB(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.PortName = "USB"
	if !cfg.IsUSB() {
		t.Error("IsUSB() = false for PortName \"USB\"")
	}
	cfg.PortName = "/dev/ttyUSB0"
	if cfg.IsUSB() {
		t.Error("IsUSB() = true for a serial device path")
	}
}

// ============================================================
// Validate
// ============================================================

func TestConfiguration_Validate_AggregatesProblems(t *testing.T) {
	cfg := Configuration{
		PortName:                        "",
		HouseCode:                       "Q",
		AckTimeoutMs:                    -1,
		ZeroChecksumDisconnectThreshold: -1,
		LogFormat:                       "xml",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	msg := err.Error()
	for _, want := range []string{"port_name", "house_code", "ack_timeout_ms", "zero_checksum_disconnect_threshold", "log_format"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Validate() error %q does not mention %q", msg, want)
		}
	}
}

func TestConfiguration_Validate_AcceptsDefaults(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.PortName = "COM1"
	cfg.HouseCode = "A"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
