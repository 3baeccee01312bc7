// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "testing"

// ============================================================
// RF standard command decoding
// ============================================================

func TestDecodeRFStandardCommand_OnOff(t *testing.T) {
	tests := []struct {
		name    string
		b2, b4  byte
		wantCmd Command
	}{
		{"unit 1 on", 0b00000000, 0b00000000, CommandOn},
		{"unit 1 off", 0b00000000, 0b00100000, CommandOff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := []byte{FrameRF, 0x20, tt.b2, ^tt.b2, tt.b4, ^tt.b4}
			got, err := DecodeRFStandardCommand(frame)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Command != tt.wantCmd {
				t.Errorf("Command = %v, want %v", got.Command, tt.wantCmd)
			}
			if got.Unit != Unit1 {
				t.Errorf("Unit = %v, want Unit1", got.Unit)
			}
		})
	}
}

func TestDecodeRFStandardCommand_HouseAUnit1OnOff(t *testing.T) {
	onFrame := []byte{FrameRF, 0x20, 0x60, 0x9F, 0x00, 0xFF}
	got, err := DecodeRFStandardCommand(onFrame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.House != HouseA || got.Unit != Unit1 || got.Command != CommandOn {
		t.Errorf("got %+v, want House A, Unit1, On", got)
	}

	offFrame := []byte{FrameRF, 0x20, 0x60, 0x9F, 0x20, 0xDF}
	got2, err := DecodeRFStandardCommand(offFrame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got2.House != HouseA || got2.Unit != Unit1 || got2.Command != CommandOff {
		t.Errorf("got %+v, want House A, Unit1, Off", got2)
	}
}

func TestDecodeRFStandardCommand_AllLightsOnAllUnitsOff(t *testing.T) {
	frame := []byte{FrameRF, 0x20, 0x00, 0xFF, 0x90, 0x6F}
	got, err := DecodeRFStandardCommand(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Command != CommandAllLightsOn {
		t.Errorf("Command = %v, want AllLightsOn", got.Command)
	}

	frame2 := []byte{FrameRF, 0x20, 0x00, 0xFF, 0x80, 0x7F}
	got2, err := DecodeRFStandardCommand(frame2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got2.Command != CommandAllUnitsOff {
		t.Errorf("Command = %v, want AllUnitsOff", got2.Command)
	}
}

func TestDecodeRFStandardCommand_InvalidPairsRejected(t *testing.T) {
	// b2=0x0F => ^b2=0xF0; b3=0x0F shares no bits with ^b2, so
	// b3 & ^b2 == b3 (0x00 == 0x0F) is false.
	frame := []byte{FrameRF, 0x20, 0x0F, 0x0F, 0x00, 0xFF}
	if _, err := DecodeRFStandardCommand(frame); err == nil {
		t.Error("expected ErrParse for an invalid validity pair")
	}
}

// ============================================================
// RF security event decoding
// ============================================================

func TestDecodeRFSecurityEvent_KnownTamperEvents(t *testing.T) {
	frame := []byte{
		FrameRF, 0x29,
		0x01, 0x01 ^ 0x0F,
		byte(DoorSensor1_Alert_Tarmper), byte(DoorSensor1_Alert_Tarmper) ^ 0xFF,
		0x02, 0x03,
	}
	got, err := DecodeRFSecurityEvent(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Event != DoorSensor1_Alert_Tarmper {
		t.Errorf("Event = %v, want DoorSensor1_Alert_Tarmper", got.Event)
	}
}

func TestDecodeRFSecurityEvent_AddressAndB7Normalization(t *testing.T) {
	frame := []byte{
		FrameRF, 0x29,
		0xAB, 0xAB ^ 0x0F,
		byte(MotionAlert), byte(MotionAlert) ^ 0xFF,
		0xCD, 0x80,
	}
	got, err := DecodeRFSecurityEvent(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantAddr := uint32(0xAB)<<16 | uint32(0xCD)<<8 | uint32(0x00)
	if got.Address != wantAddr {
		t.Errorf("Address = 0x%06X, want 0x%06X", got.Address, wantAddr)
	}
}

func TestDecodeRFSecurityEvent_InvalidRejected(t *testing.T) {
	frame := []byte{FrameRF, 0x29, 0x01, 0x00, 0x44, 0xBB, 0x00, 0x00}
	if _, err := DecodeRFSecurityEvent(frame); err == nil {
		t.Error("expected ErrParse for an invalid validity constraint")
	}
}
