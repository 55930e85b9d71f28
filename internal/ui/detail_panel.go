package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"ble-proximity.klederson.com/internal/bluetooth"
	"ble-proximity.klederson.com/internal/proximity"
)

// RenderDetailPanel renders the device detail view that replaces the radar.
func RenderDetailPanel(d proximity.Device, width, height int, history []float64, now time.Time) string {
	innerW := max(width-4, 20)

	title := StylePanelTitle.Render("DEVICE DETAIL")
	lines := []string{
		padBetween(title, StyleHelp.Render("[ESC]"), innerW),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
		"",
	}

	fields := []struct{ label, value string }{
		{"Describe", d.Description},
		{"Name", orDash(d.DisplayName)},
		{"Identity", d.Identity.String()},
		{"Address", orDash(d.ResolvedAddress)},
		{"Cached", orDash(d.ResolvedLabel)},
		{"Vendor", orDash(d.Vendor)},
		{"Model", orDash(d.Model)},
		{"Maker", orDash(bluetooth.ManufacturerLabel(d))},
		{"Link", d.State.String()},
		{"RSSI", fmt.Sprintf("%d dBm", d.RSSI)},
		{"Distance", fmt.Sprintf("~%.1fm", d.Distance)},
		{"Last", formatLastSeen(d.LastSeen, now)},
	}
	for _, f := range fields {
		lines = append(lines, StyleFieldLabel.Render(fmt.Sprintf("  %-10s", f.label))+StyleFieldValue.Render(f.value))
	}

	lines = append(lines, "")
	barWidth := max(innerW-22, 10)
	lines = append(lines, StyleFieldLabel.Render("  Signal    ")+renderSignalBar(float64(d.RSSI), barWidth))

	if len(history) > 0 {
		lines = append(lines, "", StyleFieldLabel.Render("  RSSI History:"))
		spark := renderSparkline(history, max(innerW-4, 10))
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(spark))
	}

	content := strings.Join(lines, "\n")
	return clampLines(StylePanelActive.Width(width-2).Height(height-2).Render(content), height)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// signalColor grades an RSSI from red (far) to green (close).
func signalColor(rssi float64) string {
	switch {
	case rssi >= -55:
		return "#00FF41"
	case rssi >= -67:
		return "#AAFF00"
	case rssi >= -80:
		return "#FFAA00"
	default:
		return "#FF3300"
	}
}

func renderSignalBar(rssi float64, width int) string {
	// Map RSSI -100..-30 to 0..width filled bars
	ratio := math.Max(0, math.Min(1, (rssi+100.0)/70.0))
	filled := int(math.Round(ratio * float64(width)))

	filledPart := lipgloss.NewStyle().Foreground(lipgloss.Color(signalColor(rssi))).Render(strings.Repeat("|", filled))
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(strings.Repeat("-", width-filled))
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

var sparkChars = []byte{'_', '.', '-', '~', '^'}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := math.Max(hi-lo, 1)

	var sb strings.Builder
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(sparkChars)-1))
		idx = max(0, min(idx, len(sparkChars)-1))
		sb.WriteByte(sparkChars[idx])
	}
	return sb.String()
}

func formatLastSeen(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
}
