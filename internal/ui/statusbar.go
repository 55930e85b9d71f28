package ui

import (
	"fmt"

	"ble-proximity.klederson.com/internal/proximity"
)

// StatusInfo is the content of the bottom status bar.
type StatusInfo struct {
	Devices   int
	Linked    int
	Monitored proximity.Identity
	Present   bool
	PowerOff  bool
	SweepDeg  float64
	MaxRange  float64
	Message   string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, s StatusInfo) string {
	var state string
	switch {
	case s.PowerOff:
		state = StyleStatusError.Render("[BLUETOOTH OFF]")
	case s.Monitored == "":
		state = StyleStatusPaused.Render("[NOT MONITORING]")
	case s.Present:
		state = StyleStatusScanning.Render("[CLOSE]")
	default:
		state = StyleStatusPaused.Render("[AWAY]")
	}

	info := fmt.Sprintf(" Devices: %d  Linked: %d  Sweep: %ddeg  Range: 0-%.0fm",
		s.Devices, s.Linked, int(s.SweepDeg), s.MaxRange)
	left := state + StyleStatusBar.Render(info)

	right := ""
	if s.Message != "" {
		right = StyleStatusPaused.Render(s.Message)
	}

	return StyleStatusBar.Width(width).MaxHeight(1).Render(padBetween(left, right, width-2))
}
