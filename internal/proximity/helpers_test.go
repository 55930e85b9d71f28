package proximity

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ble-proximity.klederson.com/internal/config"
)

const (
	phoneID  Identity = "E337A089-2E40-C91B-9153-869A90FFA727"
	beaconID Identity = "AA:BB:CC:DD:EE:01"
	otherID  Identity = "AA:BB:CC:DD:EE:02"
)

// manualClock only moves when Advance is called.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward, firing due timers in deadline order. Timers
// armed by a firing callback fire too if they fall inside the window.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.fn()
	}
}

// fakeRadio records every command as "op:id".
type fakeRadio struct {
	mu    sync.Mutex
	calls []string
}

func (r *fakeRadio) record(op string, id Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		r.calls = append(r.calls, op)
	} else {
		r.calls = append(r.calls, op+":"+string(id))
	}
	return nil
}

func (r *fakeRadio) StartScan() error { return r.record("start-scan", "") }
func (r *fakeRadio) StopScan() error { return r.record("stop-scan", "") }
func (r *fakeRadio) Connect(id Identity) error { return r.record("connect", id) }
func (r *fakeRadio) Disconnect(id Identity) error { return r.record("disconnect", id) }
func (r *fakeRadio) ReadSignalStrength(id Identity) error {
	return r.record("read-rssi", id)
}

func (r *fakeRadio) DiscoverServices(id Identity, _ []string) error {
	return r.record("discover-services", id)
}

func (r *fakeRadio) DiscoverCharacteristics(id Identity, _ string, _ []string) error {
	return r.record("discover-characteristics", id)
}

func (r *fakeRadio) ReadCharacteristic(id Identity, characteristic string) error {
	return r.record("read-"+characteristic, id)
}

func (r *fakeRadio) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *fakeRadio) Count(call string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (r *fakeRadio) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// recordingListener keeps every event as a short string.
type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) add(ev string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *recordingListener) OnDeviceNew(d Device) { l.add("new:" + d.Identity.String()) }
func (l *recordingListener) OnDeviceUpdated(d Device) { l.add("updated:" + d.Identity.String()) }
func (l *recordingListener) OnDeviceRemoved(d Device) { l.add("removed:" + d.Identity.String()) }
func (l *recordingListener) OnPowerWarning() { l.add("power-warning") }

func (l *recordingListener) OnRssiUpdate(raw, estimated *int, active bool) {
	if raw == nil || estimated == nil {
		l.add(fmt.Sprintf("rssi:nil/nil/%t", active))
		return
	}
	l.add(fmt.Sprintf("rssi:%d/%d/%t", *raw, *estimated, active))
}

func (l *recordingListener) OnPresenceChanged(present bool, reason string) {
	l.add(fmt.Sprintf("presence:%t:%s", present, reason))
}

func (l *recordingListener) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// Presence returns only the presence events.
func (l *recordingListener) Presence() []string {
	var out []string
	for _, ev := range l.Events() {
		if len(ev) > 9 && ev[:9] == "presence:" {
			out = append(out, ev)
		}
	}
	return out
}

func (l *recordingListener) Count(ev string) int {
	n := 0
	for _, e := range l.Events() {
		if e == ev {
			n++
		}
	}
	return n
}

func (l *recordingListener) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

type mapResolver map[Identity][2]string

func (m mapResolver) Resolve(id Identity) (string, string) {
	v := m[id]
	return v[0], v[1]
}

// harness wires the components directly, without the engine loop. Timer
// callbacks run synchronously inside manualClock.Advance.
type harness struct {
	clock    *manualClock
	radio    *fakeRadio
	listener *recordingListener
	sched    *Scheduler
	session  *Session
	scan     *ScanController
	registry *Registry
	monitor  *Monitor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, config.DefaultProximity(), nopResolver{})
}

func newHarnessWith(t *testing.T, cfg config.ProximityConfig, resolver Resolver) *harness {
	t.Helper()

	h := &harness{
		clock:    newManualClock(),
		radio:    &fakeRadio{},
		listener: &recordingListener{},
		session:  newSession(),
	}
	log := zerolog.Nop()
	h.sched = NewScheduler(h.clock, func(fn func()) { fn() })
	h.scan = newScanController(h.radio, h.session, log)
	h.registry = newRegistry(h.radio, h.listener, h.sched, h.clock, resolver, h.session, cfg, log)
	h.monitor = newMonitor(h.radio, h.listener, h.sched, h.clock, h.scan, h.session, cfg, log)
	return h
}

func sortedKeys(m map[TaskKey]*task) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}
