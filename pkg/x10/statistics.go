// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"fmt"
	"sync"
	"time"
)

// Statistics accumulates protocol-engine counters and exposes a snapshot
// safe to read without the engine's own locks (§10.4).
type Statistics struct {
	mu        sync.Mutex
	startTime time.Time

	FramesSent        uint64
	FramesResent      uint64
	FramesAcked       uint64
	FramesTimedOut    uint64
	RFFramesReceived  uint64
	RFFramesDeduped   uint64
	RFFramesRejected  uint64
	PLCBytesAddressed uint64
	PLCBytesDecoded   uint64
	ZeroChecksumSeen  uint64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

func (s *Statistics) RecordFrameSent() {
	s.mu.Lock()
	s.FramesSent++
	s.mu.Unlock()
}

func (s *Statistics) RecordFrameResent() {
	s.mu.Lock()
	s.FramesResent++
	s.mu.Unlock()
}

func (s *Statistics) RecordFrameAcked() {
	s.mu.Lock()
	s.FramesAcked++
	s.mu.Unlock()
}

func (s *Statistics) RecordFrameTimedOut() {
	s.mu.Lock()
	s.FramesTimedOut++
	s.mu.Unlock()
}

func (s *Statistics) RecordRFFrameReceived() {
	s.mu.Lock()
	s.RFFramesReceived++
	s.mu.Unlock()
}

func (s *Statistics) RecordRFFrameDeduped() {
	s.mu.Lock()
	s.RFFramesDeduped++
	s.mu.Unlock()
}

func (s *Statistics) RecordRFFrameRejected() {
	s.mu.Lock()
	s.RFFramesRejected++
	s.mu.Unlock()
}

func (s *Statistics) RecordPLCByteAddressed() {
	s.mu.Lock()
	s.PLCBytesAddressed++
	s.mu.Unlock()
}

func (s *Statistics) RecordPLCByteDecoded() {
	s.mu.Lock()
	s.PLCBytesDecoded++
	s.mu.Unlock()
}

func (s *Statistics) RecordZeroChecksum() {
	s.mu.Lock()
	s.ZeroChecksumSeen++
	s.mu.Unlock()
}

// Snapshot returns a plain struct copy safe for callers to read without
// taking the engine's locks.
func (s *Statistics) Snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Statistics{
		startTime:         s.startTime,
		FramesSent:        s.FramesSent,
		FramesResent:      s.FramesResent,
		FramesAcked:       s.FramesAcked,
		FramesTimedOut:    s.FramesTimedOut,
		RFFramesReceived:  s.RFFramesReceived,
		RFFramesDeduped:   s.RFFramesDeduped,
		RFFramesRejected:  s.RFFramesRejected,
		PLCBytesAddressed: s.PLCBytesAddressed,
		PLCBytesDecoded:   s.PLCBytesDecoded,
		ZeroChecksumSeen:  s.ZeroChecksumSeen,
	}
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	snap := s.Snapshot()
	elapsed := time.Since(snap.startTime)

	result := fmt.Sprintf("=== X10 Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Sent:      %8d\n", snap.FramesSent)
	result += fmt.Sprintf("Frames Resent:    %8d\n", snap.FramesResent)
	result += fmt.Sprintf("Frames Acked:     %8d\n", snap.FramesAcked)
	result += fmt.Sprintf("Frames Timed Out: %8d\n", snap.FramesTimedOut)
	result += fmt.Sprintf("RF Received:      %8d\n", snap.RFFramesReceived)
	result += fmt.Sprintf("RF Deduplicated:  %8d\n", snap.RFFramesDeduped)
	result += fmt.Sprintf("RF Rejected:      %8d\n", snap.RFFramesRejected)
	result += fmt.Sprintf("PLC Bytes Addr:   %8d\n", snap.PLCBytesAddressed)
	result += fmt.Sprintf("PLC Bytes Decoded:%8d\n", snap.PLCBytesDecoded)
	result += fmt.Sprintf("Zero Checksums:   %8d\n", snap.ZeroChecksumSeen)
	result += "=====================================\n"
	return result
}

// Reset zeroes all counters and restarts the elapsed-time clock.
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = time.Now()
	s.FramesSent = 0
	s.FramesResent = 0
	s.FramesAcked = 0
	s.FramesTimedOut = 0
	s.RFFramesReceived = 0
	s.RFFramesDeduped = 0
	s.RFFramesRejected = 0
	s.PLCBytesAddressed = 0
	s.PLCBytesDecoded = 0
	s.ZeroChecksumSeen = 0
}
