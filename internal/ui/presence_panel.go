package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/proximity"
)

// PresenceEntry is one line of the presence log.
type PresenceEntry struct {
	At      time.Time
	Present bool
	Reason  string
}

// PresenceView is everything the presence panel shows about the monitored device.
type PresenceView struct {
	Session      proximity.SessionState
	Raw          *int
	Estimated    *int
	Active       bool
	Estimates    []float64
	Log          []PresenceEntry
	PowerWarning bool
	Thresholds   config.ProximityConfig
}

// RenderPresencePanel renders the monitored-device panel.
func RenderPresencePanel(width, height int, v PresenceView) string {
	innerW := max(width-4, 20)
	s := v.Session

	lines := []string{
		StylePanelTitle.Render("PRESENCE"),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
	}

	if v.PowerWarning {
		lines = append(lines, StyleStatusError.Render(" Bluetooth is off: presence cannot be tracked"))
	}

	if s.Monitored == "" {
		lines = append(lines, "", StyleHelp.Render(" Not monitoring."), StyleHelp.Render(" Select a device and press M"))
		return clampLines(StylePanelBorder.Width(width-2).Height(height-2).Render(strings.Join(lines, "\n")), height)
	}

	badge := StyleAbsent.Render("AWAY")
	if s.Presence {
		badge = StylePresent.Render("CLOSE")
	}
	lines = append(lines,
		" "+StyleMonitored.Render(truncRaw(s.Monitored.String(), innerW-1)),
		" "+badge+"  "+StyleFieldLabel.Render(fmt.Sprintf("%s  link %s%s", s.Mode, s.Link, pollingTag(s.Polling))),
	)

	source := "adv"
	if v.Active {
		source = "link"
	}
	lines = append(lines, StyleFieldLabel.Render(" raw ")+StyleFieldValue.Render(dbm(v.Raw))+
		StyleFieldLabel.Render("  est ")+StyleFieldValue.Render(dbm(v.Estimated))+
		StyleFieldLabel.Render("  via "+source))

	if v.Estimated != nil {
		lines = append(lines, " "+renderSignalBar(float64(*v.Estimated), max(innerW-4, 10)))
	}
	lines = append(lines, StyleHelp.Render(" "+thresholdLine(v.Thresholds)))

	if len(v.Estimates) > 0 {
		spark := renderSparkline(v.Estimates, max(innerW-2, 10))
		lines = append(lines, " "+lipgloss.NewStyle().Foreground(ColorGreen).Render(spark))
	}

	for i := len(v.Log) - 1; i >= 0; i-- {
		e := v.Log[i]
		state := "away"
		if e.Present {
			state = "close"
		}
		lines = append(lines, StyleHelp.Render(fmt.Sprintf(" %s  %-5s (%s)", e.At.Format("15:04:05"), state, e.Reason)))
	}

	return clampLines(StylePanelBorder.Width(width-2).Height(height-2).Render(strings.Join(lines, "\n")), height)
}

func pollingTag(polling bool) string {
	if polling {
		return "  polling"
	}
	return ""
}

func dbm(v *int) string {
	if v == nil {
		return "--"
	}
	return fmt.Sprintf("%d dBm", *v)
}

func thresholdLine(cfg config.ProximityConfig) string {
	unlock := "off"
	if cfg.UnlockRSSI != config.UnlockDisabled {
		unlock = fmt.Sprintf(">= %d", cfg.UnlockRSSI)
	}
	lock := "off"
	if cfg.LockRSSI != config.LockDisabled {
		lock = fmt.Sprintf("< %d", cfg.LockRSSI)
	}
	return fmt.Sprintf("close %s  away %s for %ds", unlock, lock, cfg.ProximityTimeoutSeconds)
}
