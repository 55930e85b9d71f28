package app

import (
	"sort"
	"sync"

	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/proximity"
)

type storeEntry struct {
	device  proximity.Device
	history *RSSIRing
}

// DeviceStore mirrors the engine registry for rendering, keeping an RSSI
// history per device. The engine stays the owner of the devices; the store
// only applies the notifications it receives.
type DeviceStore struct {
	mu      sync.RWMutex
	devices map[proximity.Identity]*storeEntry
}

// NewDeviceStore creates an empty store.
func NewDeviceStore() *DeviceStore {
	return &DeviceStore{
		devices: make(map[proximity.Identity]*storeEntry),
	}
}

// Apply folds a registry notification into the store.
func (s *DeviceStore) Apply(msg DeviceMsg) {
	switch msg.Event {
	case proximity.EventNew, proximity.EventUpdated:
		s.Upsert(msg.Device)
	case proximity.EventRemoved:
		s.Remove(msg.Device.Identity)
	}
}

// Upsert stores the latest snapshot of a device and records its RSSI.
func (s *DeviceStore) Upsert(d proximity.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.devices[d.Identity]
	if !ok {
		e = &storeEntry{history: NewRSSIRing(config.SparklineLength)}
		s.devices[d.Identity] = e
	}
	if !ok || !d.LastSeen.Equal(e.device.LastSeen) {
		e.history.Push(float64(d.RSSI))
	}
	e.device = d
}

// Remove forgets a device.
func (s *DeviceStore) Remove(id proximity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, id)
}

// Get returns the latest snapshot of a device.
func (s *DeviceStore) Get(id proximity.Identity) (proximity.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.devices[id]
	if !ok {
		return proximity.Device{}, false
	}
	return e.device, true
}

// History returns the RSSI history of a device, oldest first.
func (s *DeviceStore) History(id proximity.Identity) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.devices[id]
	if !ok {
		return nil
	}
	return e.history.Values()
}

// Snapshot returns all devices, strongest RSSI first, ties by identity.
func (s *DeviceStore) Snapshot() []proximity.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]proximity.Device, 0, len(s.devices))
	for _, e := range s.devices {
		out = append(out, e.device)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

// Count returns the number of stored devices.
func (s *DeviceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

// CountLinked returns how many devices have a connection up.
func (s *DeviceStore) CountLinked() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.devices {
		if e.device.State == proximity.StateConnected {
			n++
		}
	}
	return n
}
