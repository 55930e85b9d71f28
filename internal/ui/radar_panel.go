package ui

// RenderRadarPanel wraps radar content with a styled border. The radar is
// rendered by the caller to keep ui free of the radar package.
func RenderRadarPanel(width, height int, radarContent, legend string) string {
	title := StylePanelTitle.Render("PROXIMITY RADAR")
	content := title + "\n" + radarContent + "\n" + legend
	return clampLines(StylePanelBorder.Width(width-2).Height(height-2).Render(content), height)
}
