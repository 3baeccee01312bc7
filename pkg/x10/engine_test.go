// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"testing"
	"time"

	"github.com/genielabs/x10-lib-go/internal/x10test"
)

func newTestEngine(t *testing.T, usb bool) (*Engine, *x10test.FakeTransport) {
	t.Helper()
	ft := x10test.NewFakeTransport()
	if _, err := ft.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	reg := NewRegistry()
	reg.Reset([]HouseCode{HouseA, HouseC})
	cfg := DefaultConfiguration()
	cfg.PortName = "COM1"
	if usb {
		cfg.PortName = "USB"
	}
	cfg.HouseCode = "A,C"
	return NewEngine(ft, reg, cfg, usb), ft
}

func buildUSBExtendedPollFrame(bitmapLogical byte, body []byte) []byte {
	wireBitmap := ReverseByte(bitmapLogical)
	wireBody := append([]byte(nil), body...)
	reverseBytes(wireBody)
	frame := []byte{FramePLCPoll, byte(len(wireBody)), wireBitmap}
	return append(frame, wireBody...)
}

// ============================================================
// On to C7 via the serial (non-USB) extended PLC poll path
// ============================================================

func TestEngine_PLCExtendedPoll_OnToC7(t *testing.T) {
	e, _ := newTestEngine(t, false)

	addrByte := (houseNibbles[HouseC] << 4) | unitNibbles[Unit7]
	fnByte := (houseNibbles[HouseC] << 4) | FuncOn
	frame := []byte{FramePLCPoll, 0x02, 0x02, addrByte, fnByte}

	e.dispatch(frame)

	m, ok := e.registry.Lookup("C7")
	if !ok {
		t.Fatal("module C7 not found in registry")
	}
	if m.Level() != 1.0 {
		t.Errorf("C7 Level() = %v, want 1.0", m.Level())
	}
}

// ============================================================
// Dim 50% to A1 via the USB extended PLC poll path
// ============================================================

func TestEngine_PLCExtendedPoll_USBDimA1(t *testing.T) {
	e, _ := newTestEngine(t, true)

	addrByte := (houseNibbles[HouseA] << 4) | unitNibbles[Unit1]
	onByte := (houseNibbles[HouseA] << 4) | FuncOn
	e.dispatch(buildUSBExtendedPollFrame(0x02, []byte{addrByte, onByte}))

	m, ok := e.registry.Lookup("A1")
	if !ok || m.Level() != 1.0 {
		t.Fatalf("A1 after On: ok=%v level=%v, want 1.0", ok, m.Level())
	}

	dimByte := (houseNibbles[HouseA] << 4) | FuncDim
	magnitude := PercentToMagnitude(50)
	e.dispatch(buildUSBExtendedPollFrame(0x02, []byte{addrByte, dimByte, magnitude}))

	want := clampFraction(1.0 - MagnitudeToFraction(magnitude))
	if m.Level() != want {
		t.Errorf("A1 after Dim 50%%: Level() = %v, want %v", m.Level(), want)
	}
}

// ============================================================
// RF "A1 ON" / "A1 OFF" with duplicate suppression
// ============================================================

func TestEngine_RFStandardCommand_OnOffWithDuplicateSuppression(t *testing.T) {
	e, _ := newTestEngine(t, false)

	onFrame := x10test.RFStandardCommand(0x60, 0x00)
	offFrame := x10test.RFStandardCommand(0x60, 0x20)

	e.dispatch(onFrame)
	m, ok := e.registry.Lookup("A1")
	if !ok || m.Level() != 1.0 {
		t.Fatalf("A1 after RF On: ok=%v level=%v, want 1.0", ok, m.Level())
	}

	// Re-delivering the identical frame within the dedupe window must not
	// be treated as a second command.
	e.dispatch(onFrame)
	if got := e.Statistics().Snapshot().RFFramesDeduped; got < 1 {
		t.Errorf("RFFramesDeduped = %d, want >= 1", got)
	}

	e.dispatch(offFrame)
	if m.Level() != 0.0 {
		t.Errorf("A1 after RF Off: Level() = %v, want 0.0", m.Level())
	}
}

// ============================================================
// Short PLC poll reply
// ============================================================

func TestEngine_ShortPLCPoll_RepliesAndDeclaresReady(t *testing.T) {
	e, ft := newTestEngine(t, false)

	var connected []bool
	unsub := e.SubscribeConnectionStatus(func(ev ConnectionStatusEvent) {
		connected = append(connected, ev.Connected)
	})
	defer unsub()

	e.dispatch([]byte{FramePLCPoll})

	if !e.isReady() {
		t.Error("engine not marked ready after a short PLC poll")
	}
	written := ft.Written()
	if len(written) != 1 || len(written[0]) != 1 || written[0][0] != FramePLCReplyToPoll {
		t.Errorf("Written() = %#v, want a single [0xC3] reply", written)
	}
	if len(connected) != 1 || !connected[0] {
		t.Errorf("connected events = %v, want exactly one true", connected)
	}

	// A second poll must not re-emit ConnectionStatus.
	e.dispatch([]byte{FramePLCPoll})
	if len(connected) != 1 {
		t.Errorf("connected events after second poll = %v, want still exactly one", connected)
	}
}

// ============================================================
// Serial ACK/checksum exchange for an outbound Send
// ============================================================

func TestEngine_Send_ChecksumThenAckCompletes(t *testing.T) {
	e, ft := newTestEngine(t, false)

	frame := EncodeAddress(HouseC, Unit7) // [0x04, 0x25]
	expectedChecksum := (frame[0] + frame[1]) & 0xFF

	result := make(chan error, 1)
	go func() { result <- e.Send(frame) }()

	// Give the Send goroutine time to enter waitForAck before the simulated
	// reader observes the checksum echo and the final ACK.
	time.Sleep(20 * time.Millisecond)
	e.dispatch([]byte{expectedChecksum, 0x00})
	e.dispatch([]byte{FramePLCReady})

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Send returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not complete within the ack timeout")
	}

	written := ft.Written()
	if len(written) < 2 {
		t.Fatalf("Written() = %#v, want at least [address frame, ack]", written)
	}
}

// ============================================================
// StrictChecksum toggle (§9)
// ============================================================

func TestEngine_ChecksumReply_LenientByDefault(t *testing.T) {
	e, _ := newTestEngine(t, false)
	if e.isChecksumReply([]byte{0xAA, 0x00}) != true {
		t.Error("a mismatched checksum byte should still be accepted when StrictChecksum is false")
	}
}

func TestEngine_ChecksumReply_StrictRejectsMismatch(t *testing.T) {
	e, _ := newTestEngine(t, false)
	e.cfg.StrictChecksum = true
	e.sess.expectedChecksum = 0x29

	if e.isChecksumReply([]byte{0xAA, 0x00}) {
		t.Error("a mismatched checksum byte should be rejected when StrictChecksum is true")
	}
	if !e.isChecksumReply([]byte{0x29, 0x00}) {
		t.Error("a matching checksum byte should be accepted when StrictChecksum is true")
	}
}
