// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "time"

// Frame leading bytes / frame types, as they appear on the wire.
const (
	FrameAddress           byte = 0x04
	FrameFunction          byte = 0x06
	FramePLCReady          byte = 0x55
	FramePLCPoll           byte = 0x5A
	FramePLCFilterFailPoll byte = 0xF3
	FrameMacro             byte = 0x5B
	FrameRF                byte = 0x5D
	FramePLCTimeRequest    byte = 0xA5
	FramePLCReplyToPoll    byte = 0xC3
	FrameTimeSet           byte = 0x9B
	FrameStatusRequestByte byte = 0x8B
	FrameMonitoredCodes    byte = 0xBB
	FrameAck               byte = 0x00
)

// RF sub-prefixes carried in byte[1] of a 0x5D frame.
const (
	rfPrefixStandard byte = 0x20
	rfPrefixSecurity byte = 0x29
)

// Function nibbles for the X10 function field (address<<4 | function lives
// in the low nibble of a Function frame's second byte).
const (
	FuncAllUnitsOff          byte = 0x0
	FuncAllLightsOn          byte = 0x1
	FuncOn                   byte = 0x2
	FuncOff                  byte = 0x3
	FuncDim                  byte = 0x4
	FuncBright               byte = 0x5
	FuncAllLightsOff         byte = 0x6
	FuncExtended             byte = 0x7
	FuncHailRequest          byte = 0x8
	FuncHailAck              byte = 0x9
	FuncPresetDim1           byte = 0xA
	FuncPresetDim2           byte = 0xB
	FuncExtendedDataTransfer byte = 0xC
	FuncStatusOn             byte = 0xD
	FuncStatusOff            byte = 0xE
	FuncStatusRequest        byte = 0xF
)

// dimStepMax is the maximum magnitude byte carried by a dim/bright function
// frame; brightness deltas are expressed as magnitude/dimStepMax of full scale.
const dimStepMax = 210

// rfDimStep is the fixed per-tap magnitude used by RF Dim/Bright commands
// (as opposed to the variable magnitude of a PLC dim/bright frame).
const rfDimStep = 0x0F

// Timing constants governing the transmit/ACK state machine and the
// connection supervisor (§4.3/§5).
const (
	ackTimeout          = 5 * time.Second
	interMessageGap     = 500 * time.Millisecond
	rfDuplicateWindow   = 500 * time.Millisecond
	reconnectBackoff    = 3 * time.Second
	supervisorTick      = 1 * time.Second
	disconnectJoinDelay = 5 * time.Second
	serialReadTimeout   = 150 * time.Millisecond
	usbReadTimeout      = 1 * time.Second
	commandResendMax    = 1
)

// zeroChecksumDefaultThreshold is the default value of
// Configuration.ZeroChecksumDisconnectThreshold; see §9 Open Questions.
const zeroChecksumDefaultThreshold = 10
