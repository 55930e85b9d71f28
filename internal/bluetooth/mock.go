package bluetooth

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/proximity"
)

// DemoPhone is the simulated phone that demo mode monitors.
const DemoPhone proximity.Identity = "5C:F3:70:A1:22:9E"

type demoKind int

const (
	demoPlain demoKind = iota
	demoPhone
	demoExposure
	demoBeacon
)

var demoDeviceTemplates = []struct {
	Name   string
	Vendor string
	Model  string
	Kind   demoKind
}{
	{"", "Apple Inc.", "iPhone16,1", demoPhone},
	{"Galaxy S24 Ultra", "Samsung", "SM-S928B", demoPlain},
	{"Pixel 9 Pro", "Google", "Pixel 9 Pro", demoPlain},
	{"AirPods Pro", "", "", demoPlain},
	{"MacBook Air", "Apple Inc.", "Mac15,12", demoPlain},
	{"Fitbit Charge 6", "Fitbit", "Charge 6", demoPlain},
	{"Tile Tracker", "", "", demoPlain},
	{"JBL Flip 6", "Harman", "Flip 6", demoPlain},
	{"", "", "", demoExposure},
	{"", "", "", demoBeacon},
}

type demoDevice struct {
	id        proximity.Identity
	name      string
	vendor    string
	model     string
	kind      demoKind
	baseRSSI  float64
	phase     float64
	amplitude float64
	active    bool
	rssi      int
	visible   bool
}

// DemoRadio simulates a radio for demo mode: a phone that walks away and
// comes back, a handful of neighbours, an exposure notification beacon and
// an iBeacon. Linked devices answer identification reads.
type DemoRadio struct {
	log zerolog.Logger
	rng *rand.Rand

	mu       sync.Mutex
	events   proximity.RadioEvents
	devices  []demoDevice
	linked   map[proximity.Identity]bool
	scanning bool
	cancel   context.CancelFunc
	elapsed  float64
}

// NewDemoRadio creates a demo radio. The seed makes a run reproducible.
func NewDemoRadio(seed int64, log zerolog.Logger) *DemoRadio {
	rng := rand.New(rand.NewSource(seed))

	devices := make([]demoDevice, len(demoDeviceTemplates))
	for i, tmpl := range demoDeviceTemplates {
		d := demoDevice{
			id:        randomMAC(rng),
			name:      tmpl.Name,
			vendor:    tmpl.Vendor,
			model:     tmpl.Model,
			kind:      tmpl.Kind,
			baseRSSI:  -45 - rng.Float64()*40, // -45 to -85 dBm
			phase:     rng.Float64() * 2 * math.Pi,
			amplitude: 3 + rng.Float64()*6,
			active:    true,
		}
		if tmpl.Kind == demoPhone {
			d.id = DemoPhone
		}
		devices[i] = d
	}

	return &DemoRadio{
		log:     log,
		rng:     rng,
		devices: devices,
		linked:  make(map[proximity.Identity]bool),
	}
}

// Attach starts the simulation, reporting to events.
func (r *DemoRadio) Attach(events proximity.RadioEvents) error {
	r.mu.Lock()
	r.events = events
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	events.AdapterPowerChanged(true)
	go r.loop(ctx)
	return nil
}

// Close stops the simulation.
func (r *DemoRadio) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *DemoRadio) loop(ctx context.Context) {
	ticker := time.NewTicker(config.DemoTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(config.DemoTick.Seconds())
		}
	}
}

// phoneRSSI is the walk of the demo phone over a 60 second cycle: near, walking
// away, out of range, coming back.
func phoneRSSI(t float64) (rssi float64, visible bool) {
	p := math.Mod(t, 60)
	switch {
	case p < 20:
		return -50, true
	case p < 30:
		return -50 - (p-20)*3.8, true
	case p < 45:
		return 0, false
	case p < 55:
		return -88 + (p-45)*3.8, true
	default:
		return -50, true
	}
}

// tick advances the simulation by dt seconds and reports what is visible.
func (r *DemoRadio) tick(dt float64) {
	type sight struct {
		id   proximity.Identity
		rssi int
		adv  proximity.Advertisement
	}

	r.mu.Lock()
	r.elapsed += dt
	t := r.elapsed
	var out []sight

	for i := range r.devices {
		d := &r.devices[i]
		noise := (r.rng.Float64() - 0.5) * 4

		if d.kind == demoPhone {
			base, visible := phoneRSSI(t)
			d.visible = visible
			d.rssi = int(base + noise)
		} else {
			if d.kind == demoPlain && r.rng.Float64() < 0.005 {
				d.active = !d.active
			}
			d.visible = d.active
			d.rssi = int(d.baseRSSI + d.amplitude*math.Sin(t*0.5+d.phase) + noise)
		}

		if d.visible && r.scanning {
			out = append(out, sight{id: d.id, rssi: d.rssi, adv: d.advertisement()})
		}
	}
	ev := r.events
	r.mu.Unlock()

	if ev == nil {
		return
	}
	for _, s := range out {
		ev.DeviceSighted(s.id, s.rssi, s.adv)
	}
}

func (d *demoDevice) advertisement() proximity.Advertisement {
	adv := proximity.Advertisement{LocalName: d.name}
	switch d.kind {
	case demoExposure:
		adv.ServiceUUIDs = []string{config.ServiceExposureNotify}
	case demoBeacon:
		data := make([]byte, 25)
		copy(data, []byte{0x4C, 0x00, 0x02, 0x15})
		data[20], data[21] = 0x00, 0x07 // major 7
		data[22], data[23] = 0x01, 0x2C // minor 300
		data[24] = 0xC5 // tx power -59 dBm
		adv.ManufacturerData = data
	case demoPhone:
		adv.ManufacturerData = []byte{0x4C, 0x00, 0x10, 0x05, 0x01, 0x18}
	}
	return adv
}

func (r *DemoRadio) find(id proximity.Identity) (*demoDevice, bool) {
	for i := range r.devices {
		if r.devices[i].id == id {
			return &r.devices[i], true
		}
	}
	return nil, false
}

// StartScan starts reporting sightings.
func (r *DemoRadio) StartScan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanning = true
	return nil
}

// StopScan stops reporting sightings.
func (r *DemoRadio) StopScan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanning = false
	return nil
}

// Connect links a visible device.
func (r *DemoRadio) Connect(id proximity.Identity) error {
	r.mu.Lock()
	d, ok := r.find(id)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	visible := d.visible
	if visible {
		r.linked[id] = true
	}
	r.mu.Unlock()

	// Out of range devices never answer; the engine times the attempt out.
	if visible {
		r.async(func(ev proximity.RadioEvents) { ev.Connected(id) })
	}
	return nil
}

// Disconnect drops a link.
func (r *DemoRadio) Disconnect(id proximity.Identity) error {
	r.mu.Lock()
	delete(r.linked, id)
	r.mu.Unlock()

	r.async(func(ev proximity.RadioEvents) { ev.Disconnected(id) })
	return nil
}

// ReadSignalStrength answers with the current RSSI while the device is in range.
func (r *DemoRadio) ReadSignalStrength(id proximity.Identity) error {
	r.mu.Lock()
	d, ok := r.find(id)
	if !ok || !r.linked[id] {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s not connected", ErrUnknownDevice, id)
	}
	rssi, visible := d.rssi, d.visible
	r.mu.Unlock()

	if visible {
		r.async(func(ev proximity.RadioEvents) { ev.SignalRead(id, rssi) })
	}
	return nil
}

// DiscoverServices reports the Device Information service on identifiable devices.
func (r *DemoRadio) DiscoverServices(id proximity.Identity, _ []string) error {
	d, err := r.linkedDevice(id)
	if err != nil {
		return err
	}
	if d.vendor == "" {
		return nil
	}
	r.async(func(ev proximity.RadioEvents) {
		ev.ServicesDiscovered(id, []string{config.ServiceDeviceInformation})
	})
	return nil
}

// DiscoverCharacteristics reports the manufacturer and model characteristics.
func (r *DemoRadio) DiscoverCharacteristics(id proximity.Identity, service string, _ []string) error {
	if _, err := r.linkedDevice(id); err != nil {
		return err
	}
	r.async(func(ev proximity.RadioEvents) {
		ev.CharacteristicsDiscovered(id, service, []string{config.CharManufacturerName, config.CharModelNumber})
	})
	return nil
}

// ReadCharacteristic answers identification reads.
func (r *DemoRadio) ReadCharacteristic(id proximity.Identity, characteristic string) error {
	d, err := r.linkedDevice(id)
	if err != nil {
		return err
	}

	var value string
	switch proximity.ShortUUID(characteristic) {
	case config.CharManufacturerName:
		value = d.vendor
	case config.CharModelNumber:
		value = d.model
	default:
		return fmt.Errorf("characteristic %s not found on %s", characteristic, id)
	}
	r.async(func(ev proximity.RadioEvents) {
		ev.CharacteristicValueRead(id, proximity.ShortUUID(characteristic), []byte(value))
	})
	return nil
}

func (r *DemoRadio) linkedDevice(id proximity.Identity) (demoDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.find(id)
	if !ok || !r.linked[id] {
		return demoDevice{}, fmt.Errorf("%w: %s not connected", ErrUnknownDevice, id)
	}
	return *d, nil
}

// async reports off the caller's goroutine, which is the engine loop.
func (r *DemoRadio) async(fn func(proximity.RadioEvents)) {
	r.mu.Lock()
	ev := r.events
	r.mu.Unlock()
	if ev == nil {
		return
	}
	go fn(ev)
}

func randomMAC(rng *rand.Rand) proximity.Identity {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	return proximity.Identity(fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5]))
}
