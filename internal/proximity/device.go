package proximity

import (
	"encoding/binary"
	"time"

	"ble-proximity.klederson.com/internal/config"
)

// ConnectionState is the link state of a peripheral as seen by the engine.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}

// Linked reports whether a connection exists or is being established.
func (s ConnectionState) Linked() bool {
	return s == StateConnecting || s == StateConnected
}

// Advertisement is the subset of an advertising packet the engine cares about.
type Advertisement struct {
	LocalName    string
	ServiceUUIDs []string
	// ManufacturerData is the raw manufacturer-specific field, company ID
	// first in little-endian order.
	ManufacturerData []byte
	TxPower          *int
}

// HasService reports whether the advertisement lists the given service UUID.
func (a Advertisement) HasService(uuid string) bool {
	want := ShortUUID(uuid)
	for _, s := range a.ServiceUUIDs {
		if ShortUUID(s) == want {
			return true
		}
	}
	return false
}

// CompanyID returns the Bluetooth SIG company identifier of the manufacturer data.
func (a Advertisement) CompanyID() (uint16, bool) {
	if len(a.ManufacturerData) < 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(a.ManufacturerData[:2]), true
}

// ObservedDevice is one registry entry. It is owned by the Registry and only
// touched on the engine loop.
type ObservedDevice struct {
	Identity        Identity
	LastRSSI        int
	Advertisement   Advertisement
	Vendor          string
	Model           string
	ResolvedAddress string
	ResolvedLabel   string
	DisplayName     string
	State           ConnectionState
	StaleAt         time.Time
	LastSeen        time.Time
}

// Device is an immutable snapshot of an ObservedDevice handed to listeners.
type Device struct {
	Identity          Identity
	RSSI              int
	Distance          float64
	AdvertisementSize int
	CompanyID         uint16
	Vendor            string
	Model             string
	ResolvedAddress   string
	ResolvedLabel     string
	DisplayName       string
	State             ConnectionState
	Description       string
	LastSeen          time.Time
}

// Snapshot copies the entry into a Device.
func (d *ObservedDevice) Snapshot() Device {
	company, _ := d.Advertisement.CompanyID()
	return Device{
		Identity:          d.Identity,
		RSSI:              d.LastRSSI,
		Distance:          RSSIToDistance(float64(d.LastRSSI), config.ReferenceRSSI, config.PathLossExp),
		AdvertisementSize: len(d.Advertisement.ManufacturerData),
		CompanyID:         company,
		Vendor:            d.Vendor,
		Model:             d.Model,
		ResolvedAddress:   d.ResolvedAddress,
		ResolvedLabel:     d.ResolvedLabel,
		DisplayName:       d.DisplayName,
		State:             d.State,
		Description:       Describe(d),
		LastSeen:          d.LastSeen,
	}
}
