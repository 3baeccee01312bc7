// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"fmt"
	"sync"
)

// Module mirrors the last known state of one addressable X10 unit. Its
// lifetime is owned by a Registry; callers never construct one directly.
//
// Mutation is restricted to the Protocol Engine (on decoded inbound frames)
// and to command handlers on successful outbound commands — see §3 of the
// specification. Level is always clamped to [0, 1].
type Module struct {
	address     string
	house       HouseCode
	unit        UnitCode
	description string

	// Category is an unused hook for a future "is this a light" filter on
	// mass commands (AllLightsOn/AllUnitsOff currently apply uniformly to
	// every module of a house, matching the reference implementation's
	// documented TODO — see §9 Design Notes).
	Category string

	mu        sync.RWMutex
	level     float64
	listeners []moduleListener
}

// moduleListener pairs a registered callback with the token used to remove it.
type moduleListener struct {
	id int
	fn func(m *Module, field string)
}

func newModule(house HouseCode, unit UnitCode) *Module {
	return &Module{
		address: moduleAddress(house, unit),
		house:   house,
		unit:    unit,
	}
}

// moduleAddress builds the canonical "<House><UnitNumber>" key, e.g. "C7".
func moduleAddress(house HouseCode, unit UnitCode) string {
	if unit == UnitNotSet {
		return fmt.Sprintf("%s", house)
	}
	return fmt.Sprintf("%s%d", house, unit.Number())
}

// Address returns the module's "<House><UnitNumber>" key.
func (m *Module) Address() string { return m.address }

// HouseCode returns the module's house code.
func (m *Module) HouseCode() HouseCode { return m.house }

// UnitCode returns the module's unit code.
func (m *Module) UnitCode() UnitCode { return m.unit }

// Description returns the module's optional free-text description.
func (m *Module) Description() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.description
}

// SetDescription sets the module's free-text description. This does not
// emit a change notification; only Level changes do (§3).
func (m *Module) SetDescription(d string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.description = d
}

// Level returns the module's current level in [0, 1].
func (m *Module) Level() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// setLevel clamps v to [0, 1] and, if the clamped value differs from the
// prior level, updates it and notifies subscribers with field "Level".
// Returns true if the level actually changed.
func (m *Module) setLevel(v float64) bool {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	m.mu.Lock()
	changed := v != m.level
	if changed {
		m.level = v
	}
	listeners := append([]moduleListener(nil), m.listeners...)
	m.mu.Unlock()

	if !changed {
		return false
	}
	for _, l := range listeners {
		notifyListener(l.fn, m, "Level")
	}
	return true
}

// notifyListener invokes fn, recovering and swallowing any panic so that a
// misbehaving subscriber cannot take down the Reader goroutine (§7 HandlerError).
func notifyListener(fn func(m *Module, field string), m *Module, field string) {
	defer func() {
		if r := recover(); r != nil {
			packageLogger().Error().
				Interface("panic", r).
				Str("address", m.address).
				Str("field", field).
				Msg("module listener panicked")
		}
	}()
	fn(m, field)
}

// Subscribe registers fn to be called whenever a field of m changes
// ("Level" is currently the only field that fires). Returns an unsubscribe
// function. Subscriptions are process-local and are not persisted.
func (m *Module) Subscribe(fn func(m *Module, field string)) (unsubscribe func()) {
	m.mu.Lock()
	id := len(m.listeners)
	for _, l := range m.listeners {
		if l.id >= id {
			id = l.id + 1
		}
	}
	m.listeners = append(m.listeners, moduleListener{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// String implements fmt.Stringer.
func (m *Module) String() string {
	return fmt.Sprintf("%s (level=%.2f)", m.address, m.Level())
}
