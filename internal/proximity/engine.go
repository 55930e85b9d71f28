package proximity

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"ble-proximity.klederson.com/internal/config"
)

var (
	// ErrEngineStopped is returned by commands issued after Run has returned.
	ErrEngineStopped = errors.New("proximity engine stopped")
	// ErrEngineRunning is returned when Run is called twice.
	ErrEngineRunning = errors.New("proximity engine already running")
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithResolver sets the platform cache resolver used for device labels.
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithQueueSize sets the capacity of the event queue.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// Engine composes the registry, the proximity monitor and the scan
// controller. All of their state is owned by the goroutine running Run;
// commands and radio events are queued onto it, so nothing here needs a lock.
type Engine struct {
	radio     Radio
	listener  Listener
	cfg       config.ProximityConfig
	clock     Clock
	resolver  Resolver
	log       zerolog.Logger
	queueSize int

	queue   chan func()
	done    chan struct{}
	running atomic.Bool

	sched    *Scheduler
	session  *Session
	scan     *ScanController
	registry *Registry
	monitor  *Monitor
}

// New creates an engine. It does nothing until Run is called.
func New(radio Radio, listener Listener, cfg config.ProximityConfig, opts ...Option) *Engine {
	e := &Engine{
		radio:     radio,
		listener:  listener,
		cfg:       cfg,
		clock:     systemClock{},
		resolver:  nopResolver{},
		log:       zerolog.Nop(),
		queueSize: config.EventQueueSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.listener == nil {
		e.listener = NopListener{}
	}

	e.queue = make(chan func(), e.queueSize)
	e.done = make(chan struct{})

	e.sched = NewScheduler(e.clock, func(fn func()) { _ = e.post(fn) })
	e.session = newSession()
	e.scan = newScanController(radio, e.session, e.module("scan"))
	e.registry = newRegistry(radio, e.listener, e.sched, e.clock, e.resolver, e.session, cfg, e.module("registry"))
	e.monitor = newMonitor(radio, e.listener, e.sched, e.clock, e.scan, e.session, cfg, e.module("monitor"))
	return e
}

func (e *Engine) module(name string) zerolog.Logger {
	return e.log.With().Str("module", name).Logger()
}

// Run processes events until ctx is cancelled. Pending timers are cancelled
// on the way out.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}
	defer close(e.done)
	defer e.sched.CancelAll()

	e.log.Debug().Msg("engine loop started")
	for {
		select {
		case <-ctx.Done():
			e.log.Debug().Msg("engine loop stopped")
			return nil
		case fn := <-e.queue:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) post(fn func()) error {
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}

	select {
	case e.queue <- fn:
		return nil
	case <-e.done:
		return ErrEngineStopped
	}
}

// call runs fn on the loop and waits for it.
func (e *Engine) call(fn func()) error {
	finished := make(chan struct{})
	if err := e.post(func() {
		fn()
		close(finished)
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-e.done:
		return ErrEngineStopped
	}
}

// StartScanning turns continuous discovery on.
func (e *Engine) StartScanning() error {
	return e.post(e.scan.Enable)
}

// StopScanning turns discovery off and forgets every discovered device.
func (e *Engine) StopScanning() error {
	return e.post(func() {
		e.scan.Disable()
		e.registry.Clear()
	})
}

// SetPassiveMode switches the monitor between passive and active mode.
func (e *Engine) SetPassiveMode(enabled bool) error {
	return e.post(func() { e.monitor.SetPassive(enabled) })
}

// StartMonitoring starts tracking the presence of the device with the given identity.
func (e *Engine) StartMonitoring(id string) error {
	ident, err := ParseIdentity(id)
	if err != nil {
		return err
	}
	return e.post(func() { e.monitor.Start(ident) })
}

// StopMonitoring stops tracking presence.
func (e *Engine) StopMonitoring() error {
	return e.post(e.monitor.Stop)
}

// ConnectDevice opens a link to a device.
func (e *Engine) ConnectDevice(id string) error {
	ident, err := ParseIdentity(id)
	if err != nil {
		return err
	}
	return e.post(func() {
		if err := e.registry.Connect(ident); err != nil {
			e.log.Warn().Err(err).Str("id", ident.String()).Msg("connect request failed")
		}
	})
}

// DisconnectDevice closes a link to a device.
func (e *Engine) DisconnectDevice(id string) error {
	ident, err := ParseIdentity(id)
	if err != nil {
		return err
	}
	return e.post(func() {
		if err := e.registry.Disconnect(ident); err != nil {
			e.log.Warn().Err(err).Str("id", ident.String()).Msg("disconnect request failed")
		}
	})
}

// ReadSignal asks the radio for a signal read of a connected device.
func (e *Engine) ReadSignal(id string) error {
	ident, err := ParseIdentity(id)
	if err != nil {
		return err
	}
	return e.post(func() {
		if err := e.radio.ReadSignalStrength(ident); err != nil {
			e.log.Warn().Err(err).Str("id", ident.String()).Msg("signal read request failed")
		}
	})
}

// Devices returns the registered devices, strongest first. It must not be
// called from a Listener callback.
func (e *Engine) Devices() []Device {
	var out []Device
	if err := e.call(func() { out = e.registry.Devices() }); err != nil {
		return nil
	}
	return out
}

// Session returns the monitored session state, or ErrEngineStopped once the
// loop has exited. It must not be called from a Listener callback.
func (e *Engine) Session() (SessionState, error) {
	var st SessionState
	if err := e.call(func() { st = e.session.snapshot() }); err != nil {
		return SessionState{}, err
	}
	return st, nil
}

// AdapterPowerChanged implements RadioEvents.
func (e *Engine) AdapterPowerChanged(on bool) {
	e.event(func() {
		e.log.Info().Bool("powered", on).Msg("adapter power changed")
		e.monitor.OnPowerChanged(on)
	})
}

// DeviceSighted implements RadioEvents.
func (e *Engine) DeviceSighted(id Identity, rssi int, adv Advertisement) {
	e.event(func() {
		clamped := ClampRSSI(rssi)
		if e.session.IsMonitored(id) {
			e.monitor.OnSighting(clamped)
		}
		if e.scan.Desired() {
			e.registry.OnSighting(id, clamped, adv)
		}
	})
}

// Connected implements RadioEvents.
func (e *Engine) Connected(id Identity) {
	e.event(func() {
		e.registry.OnConnected(id, e.scan.Desired())
		e.monitor.OnConnected(id)
	})
}

// Disconnected implements RadioEvents.
func (e *Engine) Disconnected(id Identity) {
	e.event(func() {
		e.registry.OnDisconnected(id)
		e.monitor.OnDisconnected(id)
	})
}

// SignalRead implements RadioEvents.
func (e *Engine) SignalRead(id Identity, rssi int) {
	e.event(func() { e.monitor.OnSignalRead(id, rssi) })
}

// ServicesDiscovered implements RadioEvents.
func (e *Engine) ServicesDiscovered(id Identity, services []string) {
	e.event(func() { e.registry.OnServicesDiscovered(id, services) })
}

// CharacteristicsDiscovered implements RadioEvents.
func (e *Engine) CharacteristicsDiscovered(id Identity, service string, characteristics []string) {
	e.event(func() { e.registry.OnCharacteristicsDiscovered(id, service, characteristics) })
}

// CharacteristicValueRead implements RadioEvents.
func (e *Engine) CharacteristicValueRead(id Identity, characteristic string, value []byte) {
	e.event(func() { e.registry.OnCharacteristicValue(id, characteristic, value) })
}

func (e *Engine) event(fn func()) {
	if err := e.post(fn); err != nil {
		e.log.Trace().Err(err).Msg("radio event dropped")
	}
}
