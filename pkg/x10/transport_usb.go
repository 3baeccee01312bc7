// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

const (
	usbVendorID  = gousb.ID(0x0BC7)
	usbProductID = gousb.ID(0x0001)
)

// usbTransport is the USB/CM15Pro backend (§4.1, §6): vid/pid 0x0BC7:0x0001,
// interface 0, configuration 1, bulk IN 0x81 / bulk OUT 0x02.
type usbTransport struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	inEp   *gousb.InEndpoint
	outEp  *gousb.OutEndpoint
}

func newUSBTransport() *usbTransport {
	return &usbTransport{}
}

func (t *usbTransport) Open() (bool, error) {
	t.ctx = gousb.NewContext()

	dev, err := t.ctx.OpenDeviceWithVIDPID(usbVendorID, usbProductID)
	if err != nil {
		t.ctx.Close()
		t.ctx = nil
		return false, fmt.Errorf("x10: %w: %v", ErrDeviceUnavailable, err)
	}
	if dev == nil {
		t.ctx.Close()
		t.ctx = nil
		return false, fmt.Errorf("x10: %w: CM15Pro not found", ErrDeviceUnavailable)
	}
	t.dev = dev

	cfg, err := dev.Config(1)
	if err != nil {
		t.closeAll()
		return false, fmt.Errorf("x10: %w: %v", ErrDeviceUnavailable, err)
	}
	t.cfg = cfg

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		t.closeAll()
		return false, fmt.Errorf("x10: %w: %v", ErrDeviceUnavailable, err)
	}
	t.intf = intf

	inEp, err := intf.InEndpoint(0x81)
	if err != nil {
		t.closeAll()
		return false, fmt.Errorf("x10: %w: %v", ErrDeviceUnavailable, err)
	}
	outEp, err := intf.OutEndpoint(0x02)
	if err != nil {
		t.closeAll()
		return false, fmt.Errorf("x10: %w: %v", ErrDeviceUnavailable, err)
	}
	t.inEp = inEp
	t.outEp = outEp

	if _, err := t.Write([]byte{FrameStatusRequestByte}); err != nil {
		t.closeAll()
		return false, err
	}
	return true, nil
}

func (t *usbTransport) closeAll() {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.cfg != nil {
		t.cfg.Close()
		t.cfg = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	t.inEp = nil
	t.outEp = nil
}

func (t *usbTransport) Close() error {
	t.closeAll()
	return nil
}

// Read issues an 8-byte bulk-in transfer with a 1 s timeout; if that
// transfer returns a full 8 bytes, a second 8-byte transfer into the
// remaining space is issued (max packet 16 bytes). A first transfer that
// returns fewer than 8 bytes or times out ends the read. A transfer still
// incomplete at its timeout is cancelled via context cancellation and the
// accumulated bytes returned (§4.1).
func (t *usbTransport) Read() ([]byte, error) {
	if t.inEp == nil {
		return nil, ErrDeviceGone
	}

	buf := make([]byte, 16)
	n, err := t.readChunk(buf, 8)
	if err != nil {
		return nil, err
	}
	if n == 8 {
		more, err := t.readChunk(buf[n:], 8)
		if err != nil {
			return buf[:n], nil
		}
		n += more
	}
	if n == 0 {
		return nil, nil
	}
	return buf[:n], nil
}

func (t *usbTransport) readChunk(dst []byte, want int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), usbReadTimeout)
	defer cancel()

	n, err := t.inEp.ReadContext(ctx, dst[:want])
	if err != nil {
		if ctx.Err() != nil {
			return n, nil
		}
		return n, fmt.Errorf("x10: %w: %v", ErrDeviceGone, err)
	}
	return n, nil
}

func (t *usbTransport) Write(frame []byte) (bool, error) {
	if t.outEp == nil {
		return false, ErrDeviceGone
	}
	ctx, cancel := context.WithTimeout(context.Background(), usbReadTimeout)
	defer cancel()

	if _, err := t.outEp.WriteContext(ctx, frame); err != nil {
		if ctx.Err() != nil {
			return false, ErrTimeout
		}
		return false, fmt.Errorf("x10: %w: %v", ErrTransportIO, err)
	}
	return true, nil
}
