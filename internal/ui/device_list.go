package ui

import (
	"fmt"
	"strings"

	"ble-proximity.klederson.com/internal/bluetooth"
	"ble-proximity.klederson.com/internal/proximity"
)

const linesPerDevice = 4 // 3 content + 1 blank

// RenderDeviceList renders the scrollable registry list. The header stays
// fixed; entries scroll so the cursor is always visible.
func RenderDeviceList(devices []proximity.Device, width, height, cursor int, monitored proximity.Identity) string {
	innerW := max(width-4, 10)
	innerH := max(height-2, 3)

	header := []string{
		StylePanelTitle.Render(fmt.Sprintf("DEVICES [%d]", len(devices))),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
	}
	space := max(innerH-len(header), 1)

	var lines []string
	if len(devices) == 0 {
		lines = append(lines, "", StyleHelp.Render(" No devices..."), StyleHelp.Render(" Press S to scan"))
	} else {
		visible := max(space/linesPerDevice, 1)
		start := 0
		if cursor >= visible {
			start = cursor - visible + 1
		}
		for i := start; i < len(devices) && len(lines) < space; i++ {
			lines = append(lines, renderDeviceEntry(devices[i], innerW, i == cursor, devices[i].Identity == monitored)...)
		}
	}
	if len(lines) > space {
		lines = lines[:space]
	}

	content := strings.Join(append(header, lines...), "\n")
	return clampLines(StylePanelBorder.Width(width-2).Height(innerH).Render(content), height)
}

func deviceSymbol(d proximity.Device, monitored bool) string {
	switch {
	case monitored:
		return "@"
	case d.State == proximity.StateConnected:
		return "o"
	default:
		return "*"
	}
}

func renderDeviceEntry(d proximity.Device, maxW int, isCursor, isMonitored bool) []string {
	symbol := deviceSymbol(d, isMonitored)
	tag := "[" + d.State.String() + "]"

	name := d.Description
	if nameMax := max(maxW-len(tag)-6, 4); len(name) > nameMax {
		name = name[:nameMax]
	}

	marker := "  "
	if isCursor {
		marker = ">>"
	}

	detail := fmt.Sprintf("%ddBm  ~%.1fm", d.RSSI, d.Distance)
	if m := bluetooth.ManufacturerLabel(d); m != "" {
		detail += "  " + m
	}

	raw1 := truncRaw(fmt.Sprintf("%s %s %s %s", marker, symbol, name, tag), maxW)
	raw2 := truncRaw("     "+d.Identity.String(), maxW)
	raw3 := truncRaw("     "+detail, maxW)

	if isCursor {
		return []string{StyleCursorRow.Render(raw1), StyleCursorRow.Render(raw2), StyleCursorRow.Render(raw3), ""}
	}

	nameStyle := StyleDeviceName
	switch {
	case isMonitored:
		nameStyle = StyleMonitored
	case d.State == proximity.StateConnected:
		nameStyle = StyleLinked
	}
	return []string{
		nameStyle.Render(raw1),
		StyleDeviceID.Render(raw2),
		StyleDeviceRSSI.Render(raw3),
		"",
	}
}
