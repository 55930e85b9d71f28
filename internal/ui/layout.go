package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ComposeLayout puts the main panel left of the side column, with the menu
// bar on top and the status bar at the bottom.
func ComposeLayout(menuBar, main, side, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, main, side)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}

// ComposeSide stacks the presence panel over the device list.
func ComposeSide(presence, devices string) string {
	return lipgloss.JoinVertical(lipgloss.Left, presence, devices)
}

// clampLines forces a rendered panel to exactly height lines. lipgloss
// Height() only sets a minimum.
func clampLines(rendered string, height int) string {
	lines := strings.Split(rendered, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// truncRaw pads or truncates an unstyled string to exactly w characters.
func truncRaw(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	return s + strings.Repeat(" ", w-len(s))
}

// padBetween joins left and right with enough spaces to fill width.
func padBetween(left, right string, width int) string {
	gap := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}
