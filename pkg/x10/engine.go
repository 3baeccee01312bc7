// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Engine is the protocol engine (§4.3): it serializes transmits, runs the
// ACK/checksum state machine, decodes inbound frames, applies their
// effects to the Registry, and fans out events.
type Engine struct {
	transport Transport
	registry  *Registry
	cfg       Configuration
	usb       bool
	houses    []HouseCode
	logger    zerolog.Logger

	// commandLock serializes callers issuing outbound command sequences
	// so an address frame and its matching function frame are delivered
	// as an atomic unit (§5).
	commandLock sync.Mutex

	// ackMu/ackCond is the waitAckMonitor (§5): it guards every session
	// field and wakes a blocked sender as soon as the reader observes the
	// ACK/checksum it is waiting for.
	ackMu   sync.Mutex
	ackCond *sync.Cond
	sess    *session

	gotReadWriteError atomic.Bool

	stats *Statistics

	connStatus    *listenerSet[ConnectionStatusEvent]
	moduleChanged *listenerSet[ModuleChangedEvent]
	plcAddress    *listenerSet[PlcAddressEvent]
	plcFunction   *listenerSet[PlcFunctionEvent]
	rfData        *listenerSet[RfDataEvent]
	rfCommand     *listenerSet[RfCommandEvent]
	rfSecurity    *listenerSet[RfSecurityEvent]

	readerCancel context.CancelFunc
	readerWG     sync.WaitGroup
}

// NewEngine builds an Engine bound to transport and registry. usb selects
// the USB-variant ACK/checksum handling and frame-array reversal (§4.2-4.3).
func NewEngine(transport Transport, registry *Registry, cfg Configuration, usb bool) *Engine {
	houses, _ := cfg.Houses()

	e := &Engine{
		transport:     transport,
		registry:      registry,
		cfg:           cfg,
		usb:           usb,
		houses:        houses,
		logger:        componentLogger(packageLogger(), "engine"),
		sess:          newSession(),
		stats:         NewStatistics(),
		connStatus:    newListenerSet[ConnectionStatusEvent](),
		moduleChanged: newListenerSet[ModuleChangedEvent](),
		plcAddress:    newListenerSet[PlcAddressEvent](),
		plcFunction:   newListenerSet[PlcFunctionEvent](),
		rfData:        newListenerSet[RfDataEvent](),
		rfCommand:     newListenerSet[RfCommandEvent](),
		rfSecurity:    newListenerSet[RfSecurityEvent](),
	}
	e.ackCond = sync.NewCond(&e.ackMu)
	return e
}

// Statistics returns the engine's counter accumulator (§10.4).
func (e *Engine) Statistics() *Statistics {
	return e.stats
}

// IsConnected reports whether the engine has seen an interface-ready
// indication and has not since recorded a transport I/O error.
func (e *Engine) IsConnected() bool {
	if e.gotReadWriteError.Load() {
		return false
	}
	e.ackMu.Lock()
	defer e.ackMu.Unlock()
	return e.sess.ready
}

// HadIOError reports and does not clear the I/O error flag the Supervisor
// watches (§4.6, §5).
func (e *Engine) HadIOError() bool {
	return e.gotReadWriteError.Load()
}

// ClearIOError clears the I/O error flag. The Supervisor does not call it:
// a reconnect builds a new Engine, whose flag starts clear.
func (e *Engine) ClearIOError() {
	e.gotReadWriteError.Store(false)
}

// Start launches the Reader goroutine (§5); ctx governs its lifetime
// jointly with Stop's cancellation.
func (e *Engine) Start(ctx context.Context) {
	readerCtx, cancel := context.WithCancel(ctx)
	e.readerCancel = cancel
	e.readerWG.Add(1)
	go e.run(readerCtx)
}

// Stop cancels the Reader and joins it, bounded by disconnectJoinDelay; a
// slow transport read is left to exit on its own once it returns, per the
// cooperative-cancellation policy (§5).
func (e *Engine) Stop() {
	if e.readerCancel != nil {
		e.readerCancel()
	}
	done := make(chan struct{})
	go func() {
		e.readerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(disconnectJoinDelay):
		e.logger.Warn().Msg("reader goroutine did not join within the deadline")
	}
}

func (e *Engine) run(ctx context.Context) {
	defer e.readerWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, err := e.transport.Read()
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				continue
			}
			e.logger.Debug().Err(err).Msg("transport read failed")
			e.gotReadWriteError.Store(true)
			return
		}
		if len(data) == 0 {
			continue
		}
		e.dispatch(data)
	}
}

// Send runs the transmit path (§4.3): rate-limit, write, then wait for the
// ACK/checksum exchange to complete or time out, with one resend on
// timeout. Frames of length <=1 bypass the ACK wait entirely.
func (e *Engine) Send(frame []byte) error {
	e.commandLock.Lock()
	defer e.commandLock.Unlock()

	e.rateLimit()

	if len(frame) <= 1 {
		if _, err := e.transport.Write(frame); err != nil {
			e.noteTransportError(err)
			return err
		}
		e.stats.RecordFrameSent()
		return nil
	}

	var lastErr error
	for attempt := 0; attempt <= commandResendMax; attempt++ {
		if attempt > 0 {
			e.stats.RecordFrameResent()
		}
		if _, err := e.transport.Write(frame); err != nil {
			e.noteTransportError(err)
			return err
		}
		e.stats.RecordFrameSent()

		if e.waitForAck(frame) {
			e.stats.RecordFrameAcked()
			return nil
		}
		e.stats.RecordFrameTimedOut()
		lastErr = ErrProtocolTimeout
	}

	e.ackMu.Lock()
	e.sess.state = StateReady
	e.sess.lastSent = nil
	e.ackMu.Unlock()
	return lastErr
}

// waitForAck records frame as the pending send, transitions state per
// backend, and blocks until the reader observes completion or the ACK
// timeout elapses. It returns true on success.
func (e *Engine) waitForAck(frame []byte) bool {
	e.ackMu.Lock()
	e.sess.lastSent = frame
	e.sess.waitStart = time.Now()
	if e.usb {
		e.sess.state = StateWaitingAck
	} else {
		e.sess.expectedChecksum = (frame[0] + frame[1]) & 0xFF
		e.sess.state = StateWaitingChecksum
	}
	deadline := e.sess.waitStart.Add(e.cfg.AckTimeout())

	timer := time.AfterFunc(e.cfg.AckTimeout(), func() {
		e.ackMu.Lock()
		e.ackCond.Broadcast()
		e.ackMu.Unlock()
	})
	defer timer.Stop()

	for e.sess.state != StateReady && time.Now().Before(deadline) {
		e.ackCond.Wait()
	}
	ok := e.sess.state == StateReady
	e.ackMu.Unlock()
	return ok
}

func (e *Engine) rateLimit() {
	e.ackMu.Lock()
	wait := interMessageGap - time.Since(e.sess.lastReceivedTs)
	e.ackMu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
}

func (e *Engine) noteTransportError(err error) {
	if errors.Is(err, ErrTimeout) {
		return
	}
	e.gotReadWriteError.Store(true)
}

// dispatch applies the receive-path rules in §4.3 order to one inbound
// chunk.
func (e *Engine) dispatch(data []byte) {
	now := time.Now()

	e.ackMu.Lock()
	if e.sess.state != StateReady && !e.sess.waitStart.IsZero() && now.Sub(e.sess.waitStart) >= e.cfg.AckTimeout() {
		e.logger.Debug().Msg("ack wait exceeded timeout before reply arrived, forcing Ready")
		e.sess.state = StateReady
		e.ackCond.Broadcast()
	}
	e.ackMu.Unlock()

	switch {
	case isAckFrame(data) && e.stateIs(StateWaitingAck):
		e.ackMu.Lock()
		e.sess.state = StateReady
		e.sess.lastReceivedTs = now
		e.ackCond.Broadcast()
		e.ackMu.Unlock()

	case IsInterfaceReady(data) && !e.isReady():
		e.ackMu.Lock()
		e.sess.lastReceivedTs = now
		e.ackMu.Unlock()
		e.connStatus.Emit(ConnectionStatusEvent{Connected: true})
		e.sendTimeSet()
		e.ackMu.Lock()
		e.sess.ready = true
		e.sess.state = StateReady
		e.ackCond.Broadcast()
		e.ackMu.Unlock()

	case e.stateIs(StateWaitingChecksum) && e.isChecksumReply(data):
		e.ackMu.Lock()
		e.sess.state = StateWaitingAck
		e.sess.lastReceivedTs = now
		e.ackMu.Unlock()
		_, _ = e.transport.Write([]byte{FrameAck})

	case IsMacro(data):
		e.ackMu.Lock()
		e.sess.lastReceivedTs = now
		e.ackMu.Unlock()

	case IsRF(data):
		e.ackMu.Lock()
		e.sess.lastReceivedTs = now
		e.ackMu.Unlock()
		e.handleRF(data, now)

	case IsPLCPoll(data):
		e.declareReady(now)
		_, _ = e.transport.Write([]byte{FramePLCReplyToPoll})

	case IsPLCFilterFailPoll(data):
		e.declareReady(now)
		_, _ = e.transport.Write([]byte{FramePLCFilterFailPoll})

	case IsPLCExtendedPoll(data):
		e.ackMu.Lock()
		e.sess.lastReceivedTs = now
		e.ackMu.Unlock()
		e.handlePLCExtendedPoll(data)

	case IsTimeRequest(data):
		e.ackMu.Lock()
		e.sess.lastReceivedTs = now
		e.ackMu.Unlock()
		e.sendTimeSet()

	default:
		e.handleOther(data)
	}
}

func isAckFrame(data []byte) bool {
	return len(data) >= 1 && len(data) <= 2 && data[0] == FramePLCReady
}

func (e *Engine) stateIs(s ProtocolState) bool {
	e.ackMu.Lock()
	defer e.ackMu.Unlock()
	return e.sess.state == s
}

func (e *Engine) isReady() bool {
	e.ackMu.Lock()
	defer e.ackMu.Unlock()
	return e.sess.ready
}

// isChecksumReply reports whether data is the checksum echo the engine is
// waiting for. The checksum value itself is only compared when
// Configuration.StrictChecksum is set (§9); by default any 2-byte reply
// with a trailing 0x00 is accepted regardless of its checksum byte, since
// this implementation never rejects a command over a checksum mismatch
// (Non-goal: inbound checksum verification).
func (e *Engine) isChecksumReply(data []byte) bool {
	if len(data) != 2 || data[1] != 0x00 {
		return false
	}
	if !e.cfg.StrictChecksum {
		return true
	}
	return data[0] == e.expectedChecksum()
}

func (e *Engine) expectedChecksum() byte {
	e.ackMu.Lock()
	defer e.ackMu.Unlock()
	return e.sess.expectedChecksum
}

// declareReady marks the session ready, emitting ConnectionStatus(true)
// exactly once across repeated polls (§4.3 rules 7-8).
func (e *Engine) declareReady(now time.Time) {
	e.ackMu.Lock()
	wasReady := e.sess.ready
	e.sess.ready = true
	e.sess.lastReceivedTs = now
	e.ackMu.Unlock()

	if !wasReady {
		e.connStatus.Emit(ConnectionStatusEvent{Connected: true})
	}
}

func (e *Engine) sendTimeSet() {
	frame := EncodeTimeSet(time.Now(), e.primaryHouse(), false, e.usb)
	if err := e.Send(frame); err != nil {
		e.logger.Debug().Err(err).Msg("time-set frame not acked")
	}
}

func (e *Engine) primaryHouse() HouseCode {
	if len(e.houses) > 0 {
		return e.houses[0]
	}
	return HouseA
}

func (e *Engine) handleRF(data []byte, now time.Time) {
	e.ackMu.Lock()
	dup := e.sess.isRFDuplicate(string(data), now)
	e.ackMu.Unlock()
	if dup {
		e.stats.RecordRFFrameDeduped()
		return
	}

	switch {
	case IsRFStandardCommand(data):
		cmd, err := DecodeRFStandardCommand(data)
		if err != nil {
			e.stats.RecordRFFrameRejected()
			e.logger.Debug().Err(err).Msg("dropping malformed RF standard command")
			return
		}
		e.stats.RecordRFFrameReceived()
		e.rfData.Emit(RfDataEvent{Data: append([]byte(nil), data...)})
		e.applyRFCommand(cmd)
		e.rfCommand.Emit(RfCommandEvent{Command: cmd.Command, House: cmd.House, Unit: cmd.Unit})

	case IsRFSecurityEvent(data):
		sec, err := DecodeRFSecurityEvent(data)
		if err != nil {
			e.stats.RecordRFFrameRejected()
			e.logger.Debug().Err(err).Msg("dropping malformed RF security frame")
			return
		}
		e.stats.RecordRFFrameReceived()
		e.rfData.Emit(RfDataEvent{Data: append([]byte(nil), data...)})
		e.rfSecurity.Emit(RfSecurityEvent{Event: sec.Event, Address: sec.Address})

	default:
		e.stats.RecordRFFrameRejected()
	}
}

func (e *Engine) applyRFCommand(cmd RFCommand) {
	switch cmd.Command {
	case CommandOn, CommandOff:
		m := e.registry.Get(cmd.House, cmd.Unit)
		e.ackMu.Lock()
		e.sess.clearAddressed()
		e.sess.addressed[m.Address()] = m
		e.ackMu.Unlock()
		e.applyEffect(m, cmd.Command, 0)

	case CommandAllLightsOn, CommandAllUnitsOff:
		e.ackMu.Lock()
		e.sess.clearAddressed()
		e.ackMu.Unlock()
		if cmd.House != HouseNotSet {
			for _, m := range e.registry.ForHouse(cmd.House) {
				e.applyEffect(m, cmd.Command, 0)
			}
		}

	case CommandDim, CommandBright:
		e.ackMu.Lock()
		targets := e.sess.addressedModules()
		e.ackMu.Unlock()
		for _, m := range targets {
			e.applyEffect(m, cmd.Command, rfDimStep)
		}
	}
}

// handlePLCExtendedPoll implements §4.3 rule 9: decode, then interpret
// each address/function byte against the session's addressed-module
// accumulator.
func (e *Engine) handlePLCExtendedPoll(data []byte) {
	items, err := DecodePLCExtendedPoll(data, e.usb)
	if err != nil {
		e.logger.Debug().Err(err).Msg("dropping malformed extended PLC poll")
		return
	}

	for _, item := range items {
		if !item.IsFunction {
			m := e.registry.Get(item.House, item.Unit)
			e.ackMu.Lock()
			e.sess.addAddressed(m)
			e.ackMu.Unlock()
			e.stats.RecordPLCByteAddressed()
			e.plcAddress.Emit(PlcAddressEvent{House: item.House, Unit: item.Unit})
			continue
		}

		e.stats.RecordPLCByteDecoded()
		e.plcFunction.Emit(PlcFunctionEvent{Command: item.Command, House: item.House})
		e.applyPLCFunction(item)

		e.ackMu.Lock()
		e.sess.newAddressData = true
		e.ackMu.Unlock()
	}
}

func (e *Engine) applyPLCFunction(item PLCItem) {
	switch item.Command {
	case CommandAllLightsOn, CommandAllUnitsOff:
		e.ackMu.Lock()
		e.sess.clearAddressed()
		e.ackMu.Unlock()
		for _, m := range e.registry.ForHouse(item.House) {
			e.applyEffect(m, item.Command, 0)
		}

	case CommandDim, CommandBright:
		e.ackMu.Lock()
		targets := e.sess.addressedModules()
		e.ackMu.Unlock()
		for _, m := range targets {
			e.applyEffect(m, item.Command, item.Magnitude)
		}

	case CommandOn, CommandOff:
		e.ackMu.Lock()
		targets := e.sess.addressedModules()
		e.ackMu.Unlock()
		for _, m := range targets {
			e.applyEffect(m, item.Command, 0)
		}
	}
}

// applyEffect implements the Level update rules in §4.3.
func (e *Engine) applyEffect(m *Module, cmd Command, magnitude byte) {
	if m == nil {
		return
	}
	switch cmd {
	case CommandOn, CommandAllLightsOn:
		e.setModuleLevel(m, 1.0)
	case CommandOff, CommandAllUnitsOff:
		e.setModuleLevel(m, 0.0)
	case CommandBright:
		e.setModuleLevel(m, clampFraction(m.Level()+MagnitudeToFraction(magnitude)))
	case CommandDim:
		e.setModuleLevel(m, clampFraction(m.Level()-MagnitudeToFraction(magnitude)))
	}
}

func (e *Engine) setModuleLevel(m *Module, level float64) {
	if m.setLevel(level) {
		e.moduleChanged.Emit(ModuleChangedEvent{Module: m, Field: "Level"})
	}
}

func clampFraction(v float64) float64 {
	v = round2(v)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// handleOther implements §4.3 rule 11, the catch-all branch.
func (e *Engine) handleOther(data []byte) {
	if len(data) == 0 {
		return
	}

	if data[0] != 0x00 {
		e.ackMu.Lock()
		e.sess.zeroChecksumRuns = 0
		e.ackMu.Unlock()
		_, _ = e.transport.Write([]byte{FrameAck})
		return
	}

	e.ackMu.Lock()
	e.sess.zeroChecksumRuns++
	runs := e.sess.zeroChecksumRuns
	e.ackMu.Unlock()
	e.stats.RecordZeroChecksum()

	if e.cfg.ZeroChecksumDisconnectThreshold > 0 && runs > e.cfg.ZeroChecksumDisconnectThreshold {
		e.logger.Warn().Int("runs", runs).Msg("zero-checksum run exceeded threshold, forcing reconnect")
		e.gotReadWriteError.Store(true)
	}
}

// Subscribe* register a listener for the corresponding event kind and
// return an unsubscribe function (§4.5).

func (e *Engine) SubscribeConnectionStatus(fn func(ConnectionStatusEvent)) func() {
	return e.connStatus.Subscribe(fn)
}

func (e *Engine) SubscribeModuleChanged(fn func(ModuleChangedEvent)) func() {
	return e.moduleChanged.Subscribe(fn)
}

func (e *Engine) SubscribePlcAddress(fn func(PlcAddressEvent)) func() {
	return e.plcAddress.Subscribe(fn)
}

func (e *Engine) SubscribePlcFunction(fn func(PlcFunctionEvent)) func() {
	return e.plcFunction.Subscribe(fn)
}

func (e *Engine) SubscribeRfData(fn func(RfDataEvent)) func() {
	return e.rfData.Subscribe(fn)
}

func (e *Engine) SubscribeRfCommand(fn func(RfCommandEvent)) func() {
	return e.rfCommand.Subscribe(fn)
}

func (e *Engine) SubscribeRfSecurity(fn func(RfSecurityEvent)) func() {
	return e.rfSecurity.Subscribe(fn)
}
