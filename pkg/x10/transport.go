// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "errors"

// ErrDeviceGone is returned by Transport.Read/Write when the underlying
// device has disappeared (unplugged, path removed), distinct from
// ErrTimeout so the receive loop and the Supervisor can tell the two apart
// (§4.1).
var ErrDeviceGone = errors.New("x10: device gone")

// Transport is the byte-level open/close/read/write capability the
// Protocol Engine drives; it knows nothing about frame shapes (§4.1, §9
// Transport polymorphism via a capability interface).
type Transport interface {
	// Open prepares the underlying device for use. It returns
	// (false, ErrDeviceUnavailable) or a wrapped variant when the device
	// cannot be reached.
	Open() (bool, error)

	// Close releases the underlying device. It is safe to call on an
	// already-closed Transport.
	Close() error

	// Read returns the next chunk of inbound bytes. On a transient
	// timeout it returns a nil/empty slice and a nil error; it returns
	// ErrDeviceGone when the device itself is no longer present.
	Read() ([]byte, error)

	// Write sends frame in full. It returns ErrTimeout on a transient
	// write timeout and ErrDeviceGone when the device is no longer
	// present.
	Write(frame []byte) (bool, error)
}

// NewTransport selects a Transport implementation per Configuration's
// PortName field (§6): the literal "USB" selects the USB/CM15Pro backend,
// anything else is treated as a serial device path for the SER/CM11
// backend.
func NewTransport(cfg Configuration) Transport {
	if cfg.IsUSB() {
		return newUSBTransport()
	}
	return newSerialTransport(cfg.PortName)
}
