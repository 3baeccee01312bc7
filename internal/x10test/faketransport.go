// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package x10test hosts the fake Transport and RF/PLC frame builders shared
// by the x10 package's tests.
package x10test

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Read/Write after Close.
var ErrClosed = errors.New("x10test: transport closed")

// FakeTransport is an in-memory byte pipe satisfying x10.Transport, with
// no real I/O underneath.
type FakeTransport struct {
	mu       sync.Mutex
	inbound  [][]byte
	outbound [][]byte
	opened   bool
	closed   bool
	openErr  error
}

// NewFakeTransport returns a FakeTransport ready for Open.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// FailOpenWith makes the next Open call fail with err.
func (t *FakeTransport) FailOpenWith(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openErr = err
}

func (t *FakeTransport) Open() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openErr != nil {
		err := t.openErr
		t.openErr = nil
		return false, err
	}
	t.opened = true
	t.closed = false
	return true, nil
}

func (t *FakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Read pops the next queued inbound chunk, or returns (nil, nil) if none is
// queued — the same shape as a transient transport timeout.
func (t *FakeTransport) Read() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	if len(t.inbound) == 0 {
		return nil, nil
	}
	chunk := t.inbound[0]
	t.inbound = t.inbound[1:]
	return chunk, nil
}

func (t *FakeTransport) Write(frame []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false, ErrClosed
	}
	t.outbound = append(t.outbound, append([]byte(nil), frame...))
	return true, nil
}

// Feed queues chunk to be returned by a future Read.
func (t *FakeTransport) Feed(chunk []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbound = append(t.inbound, append([]byte(nil), chunk...))
}

// Written returns every frame handed to Write, in order.
func (t *FakeTransport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.outbound...)
}

// RFStandardCommand builds a 6-byte RF standard-command frame
// ([0x5D, 0x20, b2, b3, b4, b5]) for house/function, satisfying the
// validity pairs (b3 = ^b2, b5 = ^b4).
func RFStandardCommand(b2, b4 byte) []byte {
	return []byte{0x5D, 0x20, b2, ^b2, b4, ^b4}
}

// RFSecurityFrame builds an 8-byte RF security frame
// ([0x5D, 0x29, b2, b3, b4, b5, b6, b7]) satisfying the validity
// constraints (b3 = b2^0x0F, b5 = b4^0xFF).
func RFSecurityFrame(b2, event, b6, b7 byte) []byte {
	return []byte{0x5D, 0x29, b2, b2 ^ 0x0F, event, event ^ 0xFF, b6, b7}
}
