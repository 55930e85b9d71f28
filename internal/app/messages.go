package app

import (
	"time"

	"ble-proximity.klederson.com/internal/proximity"
)

// TickMsg triggers a frame update for animation.
type TickMsg time.Time

// DeviceMsg carries a registry change.
type DeviceMsg struct {
	Event  proximity.DeviceEvent
	Device proximity.Device
}

// RssiMsg carries a monitored-device reading. Nil values mean the signal was lost.
type RssiMsg struct {
	Raw       *int
	Estimated *int
	Active    bool
}

// PresenceMsg reports a presence transition.
type PresenceMsg struct {
	Present bool
	Reason  string
	At      time.Time
}

// PowerWarningMsg reports that the adapter went off while monitoring.
type PowerWarningMsg struct{}

// SessionMsg carries a fresh session snapshot.
type SessionMsg struct {
	State proximity.SessionState
}

// CommandResultMsg reports the outcome of an engine command.
type CommandResultMsg struct {
	Action string
	Err    error
}
