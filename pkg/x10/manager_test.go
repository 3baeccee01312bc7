// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"errors"
	"testing"
)

// ============================================================
// NewManager
// ============================================================

func TestNewManager_RejectsInvalidConfiguration(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.HouseCode = "A"
	// PortName left empty: Validate must reject it.
	if _, err := NewManager(cfg); err == nil {
		t.Error("expected an error for a configuration with no port_name")
	}
}

func TestNewManager_SeedsRegistryFromHouseCode(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.PortName = "COM1"
	cfg.HouseCode = "A,C"

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := mgr.Modules().Len(); got != 32 {
		t.Errorf("Modules().Len() = %d, want 32", got)
	}
}

// ============================================================
// SetHouseCode
// ============================================================

func TestManager_SetHouseCode_RebuildsRegistry(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.PortName = "COM1"
	cfg.HouseCode = "A"

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.SetHouseCode("B,C"); err != nil {
		t.Fatalf("SetHouseCode: %v", err)
	}
	if got := mgr.Modules().Len(); got != 32 {
		t.Errorf("Modules().Len() = %d, want 32", got)
	}
	if _, ok := mgr.Modules().Lookup("A1"); ok {
		t.Error("house A module survived SetHouseCode(\"B,C\")")
	}
}

// ============================================================
// Command methods before Connect
// ============================================================

func TestManager_CommandsBeforeConnect_ReturnErrNotConnected(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.PortName = "COM1"
	cfg.HouseCode = "A"

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := mgr.UnitOn(HouseA, Unit1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("UnitOn error = %v, want ErrNotConnected", err)
	}
	if err := mgr.Dim(HouseA, Unit1, 50); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Dim error = %v, want ErrNotConnected", err)
	}
	if err := mgr.AllLightsOn(HouseA); !errors.Is(err, ErrNotConnected) {
		t.Errorf("AllLightsOn error = %v, want ErrNotConnected", err)
	}
	if err := mgr.StatusRequest(HouseA, Unit1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("StatusRequest error = %v, want ErrNotConnected", err)
	}
	if mgr.IsConnected() {
		t.Error("IsConnected() = true before any Connect call")
	}
	if mgr.Statistics() != nil {
		t.Error("Statistics() != nil before any Connect call")
	}
}

// ============================================================
// Subscribe* before Connect are safe no-ops
// ============================================================

func TestManager_SubscribeBeforeConnect_ReturnsNoOpUnsubscribe(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.PortName = "COM1"
	cfg.HouseCode = "A"

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	unsub := mgr.SubscribeModuleChanged(func(ModuleChangedEvent) {
		t.Error("listener should never fire: no Engine exists yet")
	})
	unsub()
}
