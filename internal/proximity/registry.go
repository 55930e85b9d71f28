package proximity

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ble-proximity.klederson.com/internal/config"
)

// DeviceEvent is the registry's reaction to an input.
type DeviceEvent int

const (
	EventNone DeviceEvent = iota
	EventNew
	EventUpdated
	EventRemoved
)

func (e DeviceEvent) String() string {
	switch e {
	case EventNew:
		return "new"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	default:
		return "none"
	}
}

// IdentField is an identification field read from the Device Information service.
type IdentField int

const (
	FieldVendor IdentField = iota
	FieldModel
)

// Registry owns every observed device. Each entry lives until its staleness
// deadline passes without a new sighting, or until discovery is turned off.
type Registry struct {
	radio     Radio
	listener  Listener
	sched     *Scheduler
	clock     Clock
	resolver  Resolver
	session   *Session
	log       zerolog.Logger
	threshold int
	ttl       time.Duration

	devices map[Identity]*ObservedDevice
}

func newRegistry(radio Radio, listener Listener, sched *Scheduler, clock Clock, resolver Resolver,
	session *Session, cfg config.ProximityConfig, log zerolog.Logger) *Registry {
	return &Registry{
		radio:     radio,
		listener:  listener,
		sched:     sched,
		clock:     clock,
		resolver:  resolver,
		session:   session,
		log:       log,
		threshold: cfg.ThresholdRSSI,
		ttl:       cfg.SignalTimeout(),
		devices:   make(map[Identity]*ObservedDevice),
	}
}

// OnSighting records an advertisement. Unknown devices below the noise floor
// and exposure notification beacons are ignored.
func (r *Registry) OnSighting(id Identity, rssi int, adv Advertisement) DeviceEvent {
	if adv.HasService(config.ServiceExposureNotify) {
		r.log.Trace().Str("id", id.String()).Msg("ignoring exposure notification beacon")
		return EventNone
	}

	rssi = ClampRSSI(rssi)
	now := r.clock.Now()

	d, ok := r.devices[id]
	if !ok {
		if rssi < r.threshold {
			return EventNone
		}

		d = &ObservedDevice{Identity: id}
		d.ResolvedAddress, d.ResolvedLabel = r.resolver.Resolve(id)
		r.devices[id] = d
		r.observe(d, rssi, adv, now)
		r.touch(d, now)

		// The monitored device's link belongs to the monitor.
		if !r.session.IsMonitored(id) {
			r.connect(d)
		}

		r.log.Debug().Str("id", id.String()).Int("rssi", rssi).Msg("device discovered")
		r.listener.OnDeviceNew(d.Snapshot())
		return EventNew
	}

	r.observe(d, rssi, adv, now)
	r.touch(d, now)
	r.listener.OnDeviceUpdated(d.Snapshot())
	return EventUpdated
}

func (r *Registry) observe(d *ObservedDevice, rssi int, adv Advertisement, now time.Time) {
	d.LastRSSI = rssi
	d.LastSeen = now

	if name := strings.TrimSpace(adv.LocalName); name != "" {
		d.DisplayName = name
		d.Advertisement.LocalName = adv.LocalName
	}
	if len(adv.ServiceUUIDs) > 0 {
		d.Advertisement.ServiceUUIDs = adv.ServiceUUIDs
	}
	if len(adv.ManufacturerData) > 0 {
		d.Advertisement.ManufacturerData = adv.ManufacturerData
	}
	if adv.TxPower != nil {
		d.Advertisement.TxPower = adv.TxPower
	}
}

// touch pushes the staleness deadline out by one signal timeout.
func (r *Registry) touch(d *ObservedDevice, now time.Time) {
	id := d.Identity
	d.StaleAt = now.Add(r.ttl)
	r.sched.After(staleKey(id), r.ttl, func() { r.evict(id) })
}

func (r *Registry) evict(id Identity) {
	d, ok := r.devices[id]
	if !ok {
		return
	}
	delete(r.devices, id)

	snap := d.Snapshot()
	r.release(d)
	r.log.Debug().Str("id", id.String()).Msg("device stale, evicted")
	r.listener.OnDeviceRemoved(snap)
}

// release drops a temporary identification link. The monitored link is left alone.
func (r *Registry) release(d *ObservedDevice) {
	if !d.State.Linked() || r.session.IsMonitored(d.Identity) {
		return
	}
	if err := r.radio.Disconnect(d.Identity); err != nil {
		r.log.Debug().Err(err).Str("id", d.Identity.String()).Msg("disconnect failed")
	}
	d.State = StateDisconnecting
}

func (r *Registry) connect(d *ObservedDevice) {
	if d.State.Linked() {
		return
	}
	d.State = StateConnecting
	if err := r.radio.Connect(d.Identity); err != nil {
		r.log.Debug().Err(err).Str("id", d.Identity.String()).Msg("connect failed")
		d.State = StateDisconnected
	}
}

// Connect opens a link to a device on request. Unregistered identities are
// passed straight to the radio.
func (r *Registry) Connect(id Identity) error {
	if d, ok := r.devices[id]; ok {
		r.connect(d)
		return nil
	}
	return r.radio.Connect(id)
}

// Disconnect closes a link on request.
func (r *Registry) Disconnect(id Identity) error {
	if d, ok := r.devices[id]; ok && d.State.Linked() {
		d.State = StateDisconnecting
	}
	return r.radio.Disconnect(id)
}

// OnConnected marks the link up and, while discovering, starts identification.
func (r *Registry) OnConnected(id Identity, discovering bool) {
	if d, ok := r.devices[id]; ok {
		d.State = StateConnected
	}
	if !discovering {
		return
	}
	if err := r.radio.DiscoverServices(id, []string{config.ServiceDeviceInformation}); err != nil {
		r.log.Debug().Err(err).Str("id", id.String()).Msg("service discovery failed")
	}
}

// OnDisconnected marks the link down.
func (r *Registry) OnDisconnected(id Identity) {
	if d, ok := r.devices[id]; ok {
		d.State = StateDisconnected
	}
}

// OnServicesDiscovered asks for the identification characteristics.
func (r *Registry) OnServicesDiscovered(id Identity, services []string) {
	for _, s := range services {
		if ShortUUID(s) != config.ServiceDeviceInformation {
			continue
		}
		chars := []string{config.CharManufacturerName, config.CharModelNumber}
		if err := r.radio.DiscoverCharacteristics(id, config.ServiceDeviceInformation, chars); err != nil {
			r.log.Debug().Err(err).Str("id", id.String()).Msg("characteristic discovery failed")
		}
	}
}

// OnCharacteristicsDiscovered reads the identification characteristics.
func (r *Registry) OnCharacteristicsDiscovered(id Identity, service string, characteristics []string) {
	if ShortUUID(service) != config.ServiceDeviceInformation {
		return
	}
	for _, c := range characteristics {
		switch ShortUUID(c) {
		case config.CharManufacturerName, config.CharModelNumber:
			if err := r.radio.ReadCharacteristic(id, ShortUUID(c)); err != nil {
				r.log.Debug().Err(err).Str("id", id.String()).Str("char", c).Msg("read failed")
			}
		}
	}
}

// OnCharacteristicValue decodes a characteristic read as UTF-8 text.
func (r *Registry) OnCharacteristicValue(id Identity, characteristic string, value []byte) {
	if !utf8.Valid(value) {
		return
	}
	text := strings.TrimSpace(strings.TrimRight(string(value), "\x00"))

	switch ShortUUID(characteristic) {
	case config.CharManufacturerName:
		r.OnCharacteristicResolved(id, FieldVendor, text)
	case config.CharModelNumber:
		r.OnCharacteristicResolved(id, FieldModel, text)
	}
}

// OnCharacteristicResolved stores an identification field. Once vendor and
// model are both known the temporary link is released.
func (r *Registry) OnCharacteristicResolved(id Identity, field IdentField, value string) {
	d, ok := r.devices[id]
	if !ok {
		return
	}

	switch field {
	case FieldVendor:
		d.Vendor = value
	case FieldModel:
		d.Model = value
	}
	r.listener.OnDeviceUpdated(d.Snapshot())

	if d.Vendor != "" && d.Model != "" {
		r.release(d)
	}
}

// Clear drops every entry, as when discovery is switched off.
func (r *Registry) Clear() {
	for _, snap := range r.Devices() {
		d := r.devices[snap.Identity]
		r.sched.Cancel(staleKey(d.Identity))
		delete(r.devices, d.Identity)
		r.release(d)
		r.listener.OnDeviceRemoved(snap)
	}
}

// Get returns a snapshot of one device.
func (r *Registry) Get(id Identity) (Device, bool) {
	d, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return d.Snapshot(), true
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// Devices returns snapshots sorted by RSSI, strongest first.
func (r *Registry) Devices() []Device {
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}
