// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "time"

// ProtocolState is the engine's ACK/checksum state machine (§3).
type ProtocolState int

const (
	StateReady ProtocolState = iota
	StateWaitingChecksum
	StateWaitingAck
	StateWaitingPollReply
)

func (s ProtocolState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateWaitingChecksum:
		return "WaitingChecksum"
	case StateWaitingAck:
		return "WaitingAck"
	case StateWaitingPollReply:
		return "WaitingPollReply"
	default:
		return "Unknown"
	}
}

// session is the in-memory state of one connection attempt (§3). It is
// owned by the engine and only ever touched with commandLock/waitAckMonitor
// held, except for the fields noted otherwise.
type session struct {
	state ProtocolState

	lastSent         []byte
	expectedChecksum byte
	waitStart        time.Time
	resendCount      int

	lastReceivedTs time.Time

	lastRFSignature  string
	lastRFReceivedTs time.Time

	addressed      map[string]*Module
	newAddressData bool

	ready            bool
	zeroChecksumRuns int
}

func newSession() *session {
	return &session{
		state:     StateReady,
		addressed: make(map[string]*Module),
	}
}

// clearAddressed empties the addressed-module accumulator.
func (s *session) clearAddressed() {
	for k := range s.addressed {
		delete(s.addressed, k)
	}
}

// addAddressed adds m to the accumulator, clearing it first iff
// newAddressData latches true (§4.3 rule 9).
func (s *session) addAddressed(m *Module) {
	if s.newAddressData {
		s.clearAddressed()
		s.newAddressData = false
	}
	s.addressed[m.Address()] = m
}

// addressedModules returns a snapshot slice of the current accumulator.
func (s *session) addressedModules() []*Module {
	out := make([]*Module, 0, len(s.addressed))
	for _, m := range s.addressed {
		out = append(out, m)
	}
	return out
}

// isRFDuplicate reports whether sig was already seen within the
// rfDuplicateWindow, and records sig/now as the latest signature either way.
func (s *session) isRFDuplicate(sig string, now time.Time) bool {
	dup := sig == s.lastRFSignature && now.Sub(s.lastRFReceivedTs) < rfDuplicateWindow
	s.lastRFSignature = sig
	s.lastRFReceivedTs = now
	return dup
}
