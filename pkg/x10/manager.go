// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Manager is the public facade (§4.5): it owns the Registry, the active
// Transport, and the Engine, and exposes the command/event surface callers
// use. Modules hold no reference back to the Manager; commands are issued
// through the Manager's own methods.
type Manager struct {
	mu     sync.Mutex
	cfg    Configuration
	logger zerolog.Logger

	registry   *Registry
	transport  Transport
	engine     *Engine
	supervisor *supervisor
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewManager builds a Manager from cfg. Connect must be called before any
// command method has an effect on real hardware.
func NewManager(cfg Configuration) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	houses, err := cfg.Houses()
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	registry.Reset(houses)

	return &Manager{
		cfg:      cfg,
		logger:   componentLogger(packageLogger(), "manager"),
		registry: registry,
	}, nil
}

// SetHouseCode rebuilds the Registry for the given house letters
// ("A,C"), per §3/§4.4. It does not affect an already-open connection.
func (mgr *Manager) SetHouseCode(houseCode string) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	mgr.cfg.HouseCode = houseCode
	houses, err := mgr.cfg.Houses()
	if err != nil {
		return err
	}
	mgr.registry.Reset(houses)
	return nil
}

// Modules returns a read-only accessor for the Registry (§4.5).
func (mgr *Manager) Modules() *Registry {
	return mgr.registry
}

// Statistics returns the current engine's counter accumulator, or nil while
// no engine exists (before Connect, after Disconnect, or while the
// Supervisor is between closing and reopening a session).
func (mgr *Manager) Statistics() *Statistics {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.engine == nil {
		return nil
	}
	return mgr.engine.Statistics()
}

// IsConnected reports whether the current session is up.
func (mgr *Manager) IsConnected() bool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.engine != nil && mgr.engine.IsConnected()
}

// Connect opens the configured Transport, starts the Reader and the
// Supervisor, and returns whether the transport opened successfully
// (§4.5). Connect is idempotent: an existing session is torn down first.
func (mgr *Manager) Connect() bool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	mgr.teardownLocked()

	transport := NewTransport(mgr.cfg)
	ok, err := transport.Open()
	if err != nil {
		mgr.logger.Warn().Err(err).Msg("transport open failed")
	}

	engine := NewEngine(transport, mgr.registry, mgr.cfg, mgr.cfg.IsUSB())

	ctx, cancel := context.WithCancel(context.Background())
	mgr.transport = transport
	mgr.engine = engine
	mgr.ctx = ctx
	mgr.cancel = cancel

	engine.Start(ctx)

	mgr.supervisor = newSupervisor(mgr, mgr.cfg)
	mgr.supervisor.start(ctx)

	if ok && mgr.cfg.IsUSB() {
		mgr.sendCM15InitLocked()
	}

	return ok
}

// Disconnect cancels the Reader and Supervisor (joined within a 5 s
// deadline), closes the Transport, and emits ConnectionStatus(false)
// (§4.5, §5).
func (mgr *Manager) Disconnect() {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.teardownLocked()
}

func (mgr *Manager) teardownLocked() {
	if mgr.cancel != nil {
		mgr.cancel()
	}
	if mgr.supervisor != nil {
		mgr.supervisor.stop()
		mgr.supervisor = nil
	}
	engine := mgr.engine
	if engine != nil {
		engine.Stop()
		mgr.engine = nil
	}
	if mgr.transport != nil {
		if err := mgr.transport.Close(); err != nil {
			mgr.logger.Debug().Err(err).Msg("transport close failed")
		}
		mgr.transport = nil
	}
	if engine != nil {
		engine.connStatus.Emit(ConnectionStatusEvent{Connected: false})
		mgr.logger.Info().Msg("disconnected")
	}
}

// sendCM15InitLocked runs the USB-only initialization sequence: time-set,
// monitored codes, then a status request (§4.6).
func (mgr *Manager) sendCM15InitLocked() {
	houses, _ := mgr.cfg.Houses()
	mgr.engine.sendTimeSet()
	_ = mgr.engine.Send(EncodeMonitoredCodes(houses))
	_ = mgr.engine.Send([]byte{FrameStatusRequestByte})
}

// closeSession tears down the current transport and Engine without
// touching the Supervisor, called by the supervisor the moment it sees
// an I/O error, before its fixed backoff (§4.6).
func (mgr *Manager) closeSession() {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if mgr.engine != nil {
		mgr.engine.Stop()
		mgr.engine = nil
	}
	if mgr.transport != nil {
		_ = mgr.transport.Close()
		mgr.transport = nil
	}
}

// reconnect opens a fresh transport and rebuilds the Engine, called by
// the supervisor after closeSession and its fixed backoff (§4.6). It
// returns whether the reopen succeeded.
func (mgr *Manager) reconnect() bool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	transport := NewTransport(mgr.cfg)
	ok, err := transport.Open()
	mgr.transport = transport
	if err != nil {
		mgr.logger.Debug().Err(err).Msg("reconnect attempt failed")
		return false
	}

	engine := NewEngine(transport, mgr.registry, mgr.cfg, mgr.cfg.IsUSB())
	mgr.engine = engine
	engine.Start(mgr.ctx)

	if ok && mgr.cfg.IsUSB() {
		mgr.sendCM15InitLocked()
	}
	return ok
}

func (mgr *Manager) engineOrNil() *Engine {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.engine
}

// UnitOn addresses house/unit then sends the On function, mirroring the
// module's Level to 1.0 regardless of whether an ACK arrives (§4.5, §7).
func (mgr *Manager) UnitOn(house HouseCode, unit UnitCode) error {
	return mgr.sendAddressedCommand(house, unit, CommandOn, 1.0)
}

// UnitOff addresses house/unit then sends the Off function, mirroring the
// module's Level to 0.0.
func (mgr *Manager) UnitOff(house HouseCode, unit UnitCode) error {
	return mgr.sendAddressedCommand(house, unit, CommandOff, 0.0)
}

// Dim reduces house/unit's level by percent (0..100), mirroring the module
// immediately.
func (mgr *Manager) Dim(house HouseCode, unit UnitCode, percent float64) error {
	return mgr.sendDimCommand(house, unit, CommandDim, percent)
}

// Bright raises house/unit's level by percent (0..100), mirroring the
// module immediately.
func (mgr *Manager) Bright(house HouseCode, unit UnitCode, percent float64) error {
	return mgr.sendDimCommand(house, unit, CommandBright, percent)
}

func (mgr *Manager) sendAddressedCommand(house HouseCode, unit UnitCode, cmd Command, mirrorLevel float64) error {
	engine := mgr.engineOrNil()
	if engine == nil {
		return ErrNotConnected
	}

	if err := engine.Send(EncodeAddress(house, unit)); err != nil {
		mgr.logger.Debug().Err(err).Msg("address frame not acked")
	}
	if err := engine.Send(EncodeFunction(house, cmd)); err != nil {
		mgr.logger.Debug().Err(err).Msg("function frame not acked")
	}

	engine.setModuleLevel(mgr.registry.Get(house, unit), mirrorLevel)
	return nil
}

func (mgr *Manager) sendDimCommand(house HouseCode, unit UnitCode, cmd Command, percent float64) error {
	engine := mgr.engineOrNil()
	if engine == nil {
		return ErrNotConnected
	}

	if err := engine.Send(EncodeAddress(house, unit)); err != nil {
		mgr.logger.Debug().Err(err).Msg("address frame not acked")
	}

	var fnFrame []byte
	if engine.usb {
		fnFrame = EncodeFunctionUSBDim(house, cmd, percent)
	} else {
		fnFrame = EncodeFunctionSerialDim(house, cmd, percent)
	}
	if err := engine.Send(fnFrame); err != nil {
		mgr.logger.Debug().Err(err).Msg("dim/bright frame not acked")
	}

	m := mgr.registry.Get(house, unit)
	frac := ClampPercent(percent) / 100
	var level float64
	if cmd == CommandBright {
		level = clampFraction(m.Level() + frac)
	} else {
		level = clampFraction(m.Level() - frac)
	}
	engine.setModuleLevel(m, level)
	return nil
}

// AllLightsOn addresses house as a whole then sends AllLightsOn, applying
// the mass effect to every currently registered module of house (§4.5).
func (mgr *Manager) AllLightsOn(house HouseCode) error {
	return mgr.sendHouseCommand(house, CommandAllLightsOn)
}

// AllUnitsOff addresses house as a whole then sends AllUnitsOff.
func (mgr *Manager) AllUnitsOff(house HouseCode) error {
	return mgr.sendHouseCommand(house, CommandAllUnitsOff)
}

func (mgr *Manager) sendHouseCommand(house HouseCode, cmd Command) error {
	engine := mgr.engineOrNil()
	if engine == nil {
		return ErrNotConnected
	}

	if err := engine.Send(EncodeHouseAddress(house)); err != nil {
		mgr.logger.Debug().Err(err).Msg("house address frame not acked")
	}
	if err := engine.Send(EncodeFunction(house, cmd)); err != nil {
		mgr.logger.Debug().Err(err).Msg("function frame not acked")
	}

	level := 1.0
	if cmd == CommandAllUnitsOff {
		level = 0.0
	}
	for _, m := range mgr.registry.ForHouse(house) {
		engine.setModuleLevel(m, level)
	}
	return nil
}

// StatusRequest addresses house/unit then sends Status_Request (§4.5).
func (mgr *Manager) StatusRequest(house HouseCode, unit UnitCode) error {
	engine := mgr.engineOrNil()
	if engine == nil {
		return ErrNotConnected
	}
	if err := engine.Send(EncodeAddress(house, unit)); err != nil {
		mgr.logger.Debug().Err(err).Msg("address frame not acked")
	}
	if err := engine.Send(EncodeFunction(house, CommandStatusRequest)); err != nil {
		return fmt.Errorf("x10: status request: %w", err)
	}
	return nil
}

// Subscribe* forward to the current Engine's listener sets (§4.5). While no
// Engine exists (before Connect, after Disconnect) they are no-ops returning
// a no-op unsubscribe. A listener stays with the Engine it was registered
// on: the new Engine built by a later Connect or by a Supervisor reconnect
// starts with no listeners.
func (mgr *Manager) SubscribeConnectionStatus(fn func(ConnectionStatusEvent)) func() {
	if e := mgr.engineOrNil(); e != nil {
		return e.SubscribeConnectionStatus(fn)
	}
	return func() {}
}

func (mgr *Manager) SubscribeModuleChanged(fn func(ModuleChangedEvent)) func() {
	if e := mgr.engineOrNil(); e != nil {
		return e.SubscribeModuleChanged(fn)
	}
	return func() {}
}

func (mgr *Manager) SubscribePlcAddress(fn func(PlcAddressEvent)) func() {
	if e := mgr.engineOrNil(); e != nil {
		return e.SubscribePlcAddress(fn)
	}
	return func() {}
}

func (mgr *Manager) SubscribePlcFunction(fn func(PlcFunctionEvent)) func() {
	if e := mgr.engineOrNil(); e != nil {
		return e.SubscribePlcFunction(fn)
	}
	return func() {}
}

func (mgr *Manager) SubscribeRfData(fn func(RfDataEvent)) func() {
	if e := mgr.engineOrNil(); e != nil {
		return e.SubscribeRfData(fn)
	}
	return func() {}
}

func (mgr *Manager) SubscribeRfCommand(fn func(RfCommandEvent)) func() {
	if e := mgr.engineOrNil(); e != nil {
		return e.SubscribeRfCommand(fn)
	}
	return func() {}
}

func (mgr *Manager) SubscribeRfSecurity(fn func(RfSecurityEvent)) func() {
	if e := mgr.engineOrNil(); e != nil {
		return e.SubscribeRfSecurity(fn)
	}
	return func() {}
}
