package bluetooth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"

	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/proximity"
)

// ErrUnknownDevice is returned for identities the radio has never seen advertise.
var ErrUnknownDevice = errors.New("unknown device")

// rssiFreshness bounds how old an advertised RSSI may be to answer a signal read.
const rssiFreshness = 3 * time.Second

// sightingTTL bounds how long an address that stopped advertising is remembered.
const sightingTTL = config.DefaultSignalTimeout

// knownServices are the advertised services the engine looks for. The
// advertisement payload API only answers membership queries, so sightings
// report which of these are present.
var knownServices = []string{
	config.ServiceExposureNotify,
	config.ServiceDeviceInformation,
	config.ServiceHID,
}

// peripheral is the part of a connected tinygo device the radio uses.
type peripheral interface {
	Disconnect() error
	DiscoverServices(uuids []bluetooth.UUID) ([]bluetooth.DeviceService, error)
}

type sighting struct {
	address bluetooth.Address
	rssi    int
	at      time.Time
}

// BLERadio drives a real adapter through tinygo.org/x/bluetooth. Blocking
// adapter calls run on their own goroutines; results are reported to the
// engine through proximity.RadioEvents.
type BLERadio struct {
	adapter *bluetooth.Adapter
	log     zerolog.Logger

	mu       sync.Mutex
	events   proximity.RadioEvents
	seen     map[proximity.Identity]sighting
	links    map[proximity.Identity]peripheral
	services map[proximity.Identity][]bluetooth.DeviceService
	chars    map[proximity.Identity]map[string]bluetooth.DeviceCharacteristic
	scanning bool
	pruned   time.Time
}

// NewBLERadio creates a radio on the default adapter.
func NewBLERadio(log zerolog.Logger) *BLERadio {
	return &BLERadio{
		adapter:  bluetooth.DefaultAdapter,
		log:      log,
		seen:     make(map[proximity.Identity]sighting),
		links:    make(map[proximity.Identity]peripheral),
		services: make(map[proximity.Identity][]bluetooth.DeviceService),
		chars:    make(map[proximity.Identity]map[string]bluetooth.DeviceCharacteristic),
	}
}

// Attach enables the adapter and starts reporting to events.
func (r *BLERadio) Attach(events proximity.RadioEvents) error {
	r.mu.Lock()
	r.events = events
	r.mu.Unlock()

	if err := r.adapter.Enable(); err != nil {
		events.AdapterPowerChanged(false)
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}
	events.AdapterPowerChanged(true)
	return nil
}

// Close stops scanning and drops every link.
func (r *BLERadio) Close() {
	if err := r.StopScan(); err != nil {
		r.log.Debug().Err(err).Msg("stop scan on close")
	}

	r.mu.Lock()
	links := r.links
	r.links = make(map[proximity.Identity]peripheral)
	r.services = make(map[proximity.Identity][]bluetooth.DeviceService)
	r.chars = make(map[proximity.Identity]map[string]bluetooth.DeviceCharacteristic)
	r.mu.Unlock()

	for id, dev := range links {
		if err := dev.Disconnect(); err != nil {
			r.log.Debug().Err(err).Str("id", id.String()).Msg("disconnect on close")
		}
	}
}

var (
	_ proximity.Radio        = (*BLERadio)(nil)
	_ proximity.SignalSource = (*BLERadio)(nil)
)

// SignalOverLink reports false: signal reads are answered from advertisements,
// so the engine keeps scanning while it polls.
func (r *BLERadio) SignalOverLink() bool { return false }

func (r *BLERadio) sink() proximity.RadioEvents {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}

// StartScan begins a continuous scan with duplicates reported.
func (r *BLERadio) StartScan() error {
	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		return nil
	}
	r.scanning = true
	r.mu.Unlock()

	go func() {
		err := r.adapter.Scan(r.onScanResult)

		r.mu.Lock()
		wasScanning := r.scanning
		r.scanning = false
		r.mu.Unlock()

		if err != nil && wasScanning {
			r.log.Warn().Err(err).Msg("scan ended")
			if ev := r.sink(); ev != nil {
				ev.AdapterPowerChanged(false)
			}
		}
	}()
	return nil
}

// StopScan halts the scan.
func (r *BLERadio) StopScan() error {
	r.mu.Lock()
	if !r.scanning {
		r.mu.Unlock()
		return nil
	}
	r.scanning = false
	r.mu.Unlock()

	if err := r.adapter.StopScan(); err != nil {
		return fmt.Errorf("failed to stop scan: %w", err)
	}
	return nil
}

func (r *BLERadio) onScanResult(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
	id := identityOf(result.Address)
	rssi := int(result.RSSI)

	now := time.Now()

	r.mu.Lock()
	r.seen[id] = sighting{address: result.Address, rssi: rssi, at: now}
	if now.Sub(r.pruned) > sightingTTL {
		r.pruneLocked(now)
	}
	ev := r.events
	r.mu.Unlock()

	if ev != nil {
		ev.DeviceSighted(id, rssi, advertisementOf(result))
	}
}

// pruneLocked forgets unlinked addresses not seen for sightingTTL.
func (r *BLERadio) pruneLocked(now time.Time) {
	for id, s := range r.seen {
		if _, linked := r.links[id]; linked {
			continue
		}
		if now.Sub(s.at) > sightingTTL {
			delete(r.seen, id)
		}
	}
	r.pruned = now
}

func identityOf(addr bluetooth.Address) proximity.Identity {
	return proximity.Identity(strings.ToUpper(addr.String()))
}

func advertisementOf(result bluetooth.ScanResult) proximity.Advertisement {
	adv := proximity.Advertisement{LocalName: result.LocalName()}

	for _, s := range knownServices {
		if u, err := bluetooth.ParseUUID(proximity.LongUUID(s)); err == nil && result.HasServiceUUID(u) {
			adv.ServiceUUIDs = append(adv.ServiceUUIDs, s)
		}
	}

	if mfrs := result.ManufacturerData(); len(mfrs) > 0 {
		adv.ManufacturerData = manufacturerBytes(mfrs[0].CompanyID, mfrs[0].Data)
	}
	return adv
}

// manufacturerBytes rebuilds the raw field, company ID first in little endian.
func manufacturerBytes(companyID uint16, data []byte) []byte {
	out := make([]byte, 0, len(data)+2)
	out = append(out, byte(companyID), byte(companyID>>8))
	return append(out, data...)
}

// Connect opens a link in the background.
func (r *BLERadio) Connect(id proximity.Identity) error {
	r.mu.Lock()
	s, ok := r.seen[id]
	_, linked := r.links[id]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	if linked {
		// Connect runs on the engine loop; report from elsewhere.
		if ev := r.sink(); ev != nil {
			go ev.Connected(id)
		}
		return nil
	}

	go func() {
		dev, err := r.adapter.Connect(s.address, bluetooth.ConnectionParams{})
		if err != nil {
			r.log.Debug().Err(err).Str("id", id.String()).Msg("connect failed")
			if ev := r.sink(); ev != nil {
				ev.Disconnected(id)
			}
			return
		}

		r.mu.Lock()
		r.links[id] = dev
		r.mu.Unlock()

		if ev := r.sink(); ev != nil {
			ev.Connected(id)
		}
	}()
	return nil
}

// Disconnect closes a link in the background.
func (r *BLERadio) Disconnect(id proximity.Identity) error {
	r.mu.Lock()
	dev, ok := r.links[id]
	delete(r.links, id)
	delete(r.services, id)
	delete(r.chars, id)
	r.mu.Unlock()

	go func() {
		if ok {
			if err := dev.Disconnect(); err != nil {
				r.log.Debug().Err(err).Str("id", id.String()).Msg("disconnect failed")
			}
		}
		if ev := r.sink(); ev != nil {
			ev.Disconnected(id)
		}
	}()
	return nil
}

// ReadSignalStrength answers with the latest advertised RSSI. The tinygo
// central API has no RSSI read over a link, so a device that stopped
// advertising gets no answer and the engine's stale-read fallback applies.
func (r *BLERadio) ReadSignalStrength(id proximity.Identity) error {
	r.mu.Lock()
	s, ok := r.seen[id]
	_, linked := r.links[id]
	ev := r.events
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	if !linked || time.Since(s.at) > rssiFreshness || ev == nil {
		return nil
	}
	go ev.SignalRead(id, s.rssi)
	return nil
}

// DiscoverServices looks up services on a connected device.
func (r *BLERadio) DiscoverServices(id proximity.Identity, services []string) error {
	dev, err := r.link(id)
	if err != nil {
		return err
	}

	filter, err := parseUUIDs(services)
	if err != nil {
		return err
	}

	go func() {
		found, err := dev.DiscoverServices(filter)
		if err != nil {
			r.log.Debug().Err(err).Str("id", id.String()).Msg("service discovery failed")
			return
		}

		names := make([]string, 0, len(found))
		for _, svc := range found {
			names = append(names, proximity.ShortUUID(svc.UUID().String()))
		}

		r.mu.Lock()
		r.services[id] = found
		r.mu.Unlock()

		if ev := r.sink(); ev != nil {
			ev.ServicesDiscovered(id, names)
		}
	}()
	return nil
}

// DiscoverCharacteristics looks up characteristics of a discovered service.
func (r *BLERadio) DiscoverCharacteristics(id proximity.Identity, service string, characteristics []string) error {
	r.mu.Lock()
	services := r.services[id]
	r.mu.Unlock()

	want := proximity.ShortUUID(service)
	idx := -1
	for i, svc := range services {
		if proximity.ShortUUID(svc.UUID().String()) == want {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("service %s not discovered on %s", service, id)
	}

	filter, err := parseUUIDs(characteristics)
	if err != nil {
		return err
	}

	svc := services[idx]
	go func() {
		found, err := svc.DiscoverCharacteristics(filter)
		if err != nil {
			r.log.Debug().Err(err).Str("id", id.String()).Msg("characteristic discovery failed")
			return
		}

		names := make([]string, 0, len(found))
		r.mu.Lock()
		if r.chars[id] == nil {
			r.chars[id] = make(map[string]bluetooth.DeviceCharacteristic)
		}
		for _, c := range found {
			name := proximity.ShortUUID(c.UUID().String())
			r.chars[id][name] = c
			names = append(names, name)
		}
		r.mu.Unlock()

		if ev := r.sink(); ev != nil {
			ev.CharacteristicsDiscovered(id, want, names)
		}
	}()
	return nil
}

// ReadCharacteristic reads a discovered characteristic.
func (r *BLERadio) ReadCharacteristic(id proximity.Identity, characteristic string) error {
	name := proximity.ShortUUID(characteristic)

	r.mu.Lock()
	c, ok := r.chars[id][name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("characteristic %s not discovered on %s", characteristic, id)
	}

	go func() {
		buf := make([]byte, 64)
		n, err := c.Read(buf)
		if err != nil {
			r.log.Debug().Err(err).Str("id", id.String()).Str("char", name).Msg("read failed")
			return
		}
		if ev := r.sink(); ev != nil {
			ev.CharacteristicValueRead(id, name, buf[:n])
		}
	}()
	return nil
}

func (r *BLERadio) link(id proximity.Identity) (peripheral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok := r.links[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s not connected", ErrUnknownDevice, id)
	}
	return dev, nil
}

func parseUUIDs(in []string) ([]bluetooth.UUID, error) {
	out := make([]bluetooth.UUID, 0, len(in))
	for _, s := range in {
		u, err := bluetooth.ParseUUID(proximity.LongUUID(s))
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", s, err)
		}
		out = append(out, u)
	}
	return out, nil
}
