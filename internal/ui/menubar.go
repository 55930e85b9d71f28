package ui

import (
	"fmt"

	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/proximity"
)

// MenuState is what the menu bar shows on its right side.
type MenuState struct {
	Adapter  string
	Demo     bool
	Scanning bool
	Mode     proximity.Mode
}

var menuKeys = []struct{ key, label string }{
	{"S", "can"},
	{"M", "onitor"},
	{"X", " stop"},
	{"A", " mode"},
	{"C", "onnect"},
	{"R", "ead"},
	{"Q", "uit"},
}

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, st MenuState) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	left := StyleMenuKey.Render(title)
	for _, k := range menuKeys {
		left += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	status := StyleStatusPaused.Render("IDLE")
	if st.Scanning {
		status = StyleStatusScanning.Render("SCANNING")
	}

	adapter := st.Adapter
	if st.Demo {
		adapter = "demo"
	}
	right := status + "  " + StyleMenuLabel.Render(fmt.Sprintf("Mode: %s  Adapter: %s", st.Mode, adapter)) + " "

	return StyleMenuBar.Width(width).MaxHeight(1).Render(padBetween(left, right, width-2))
}
