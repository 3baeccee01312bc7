// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"sort"
	"sync"
)

// Registry is a keyed map of Modules, keyed by "<House><UnitNumber>". It is
// exclusively owned by a Manager (§3 Ownership); the Protocol Engine
// mutates Modules it holds, and callers read it via Manager.Modules.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Reset clears the registry and creates 16 modules (Unit_1..Unit_16) for
// each house code in houses. This is what Manager.SetHouseCode does on a
// configuration change (§3, §4.4).
func (r *Registry) Reset(houses []HouseCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules = make(map[string]*Module, 16*len(houses))
	for _, h := range houses {
		for u := Unit1; u <= Unit16; u++ {
			m := newModule(h, u)
			r.modules[m.address] = m
		}
	}
}

// Get returns the module for code ("C7"), auto-creating it with Level=0.0
// if it is not already present — decoded addresses may reference modules
// outside the configured house codes (§4.4).
func (r *Registry) Get(house HouseCode, unit UnitCode) *Module {
	address := moduleAddress(house, unit)

	r.mu.RLock()
	m, ok := r.modules[address]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok = r.modules[address]; ok {
		return m
	}
	m = newModule(house, unit)
	r.modules[address] = m
	return m
}

// Lookup returns the module for address if present, without creating it.
func (r *Registry) Lookup(address string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[address]
	return m, ok
}

// Put inserts or replaces the module stored under m.Address().
func (r *Registry) Put(m *Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.address] = m
}

// ForHouse returns every module currently registered for house, in
// ascending unit order. Used by AllLightsOn/AllUnitsOff (§4.3, §4.5).
func (r *Registry) ForHouse(house HouseCode) []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Module
	for _, m := range r.modules {
		if m.house == house {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].unit < out[j].unit })
	return out
}

// All returns every module in the registry, sorted by address for
// deterministic iteration (callers should not rely on map order).
func (r *Registry) All() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].address < out[j].address })
	return out
}

// Len returns the number of modules currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
