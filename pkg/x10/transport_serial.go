// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"fmt"
	"os"
	"runtime"

	"go.bug.st/serial"
)

// serialTransport is the SER/CM11 backend: 4800 8N1, synthetic PLC_Poll
// framing for short responses, and the read-timeout policy of §4.1.
type serialTransport struct {
	devicePath string
	port       serial.Port
}

func newSerialTransport(devicePath string) *serialTransport {
	return &serialTransport{devicePath: devicePath}
}

func (t *serialTransport) Open() (bool, error) {
	if runtime.GOOS != "windows" {
		if _, err := os.Stat(t.devicePath); err != nil {
			return false, fmt.Errorf("x10: %w: %v", ErrDeviceUnavailable, err)
		}
	}

	mode := &serial.Mode{
		BaudRate: 4800,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.devicePath, mode)
	if err != nil {
		return false, fmt.Errorf("x10: %w: %v", ErrDeviceUnavailable, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return false, fmt.Errorf("x10: %w: %v", ErrDeviceUnavailable, err)
	}

	t.port = port

	if _, err := t.Write([]byte{FrameStatusRequestByte}); err != nil {
		port.Close()
		t.port = nil
		return false, err
	}
	return true, nil
}

func (t *serialTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// Read fills up to a 32-byte buffer by repeated reads, stopping when a
// length-prefixed PLC frame is complete (byte[0] < bytes read), as soon as
// byte[0] is above 0x10, or when a read times out with nothing further
// (§4.1). The byte[0] > 0x10 stop does not check whether more bytes are
// pending on the device. A PLC response (length in [2,12]) is prepended with a
// synthetic PLC_Poll byte so the engine recognizes the framing.
func (t *serialTransport) Read() ([]byte, error) {
	if t.port == nil {
		return nil, ErrDeviceGone
	}

	buf := make([]byte, 32)
	n := 0
	for n < len(buf) {
		chunk := make([]byte, len(buf)-n)
		read, err := t.port.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("x10: %w: %v", ErrTransportIO, err)
		}
		// A timed-out read returns (0, nil) per SetReadTimeout's contract;
		// treat it the same as "nothing further pending".
		if read == 0 {
			break
		}
		copy(buf[n:], chunk[:read])
		n += read

		if n > 0 && int(buf[0]) < n {
			break
		}
		if n > 0 && buf[0] > 0x10 {
			break
		}
	}

	if n == 0 {
		return nil, nil
	}
	data := buf[:n]

	if n >= 2 && n <= 12 {
		framed := make([]byte, 0, n+1)
		framed = append(framed, FramePLCPoll)
		framed = append(framed, data...)
		return framed, nil
	}
	return data, nil
}

func (t *serialTransport) Write(frame []byte) (bool, error) {
	if t.port == nil {
		return false, ErrDeviceGone
	}
	if _, err := t.port.Write(frame); err != nil {
		return false, fmt.Errorf("x10: %w: %v", ErrTransportIO, err)
	}
	return true, nil
}
