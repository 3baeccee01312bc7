// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// supervisor implements §4.6: it polls the engine's I/O error flag every
// supervisorTick and rebuilds the connection after a fixed reconnectBackoff.
type supervisor struct {
	mgr    *Manager
	cfg    Configuration
	logger zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSupervisor(mgr *Manager, cfg Configuration) *supervisor {
	return &supervisor{
		mgr:    mgr,
		cfg:    cfg,
		logger: componentLogger(packageLogger(), "supervisor"),
	}
}

func (s *supervisor) start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(loopCtx)
}

func (s *supervisor) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *supervisor) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(supervisorTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *supervisor) tick(ctx context.Context) {
	engine := s.mgr.engineOrNil()
	if engine == nil || !engine.HadIOError() {
		return
	}

	s.logger.Warn().Msg("i/o error flag set, reconnecting")
	s.mgr.closeSession()

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectBackoff):
		}

		if s.mgr.reconnect() {
			s.logger.Info().Msg("reconnect succeeded")
			return
		}
		s.logger.Debug().Msg("reconnect attempt failed, will retry")
		if s.mgr.engineOrNil() != nil {
			return
		}
	}
}
