package radar

import (
	"crypto/sha256"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/proximity"
)

var (
	colorBright    = lipgloss.Color("#00FF41")
	colorMid       = lipgloss.Color("#008F11")
	colorDim       = lipgloss.Color("#004A0A")
	colorDevice    = lipgloss.Color("#00FFAA")
	colorLinked    = lipgloss.Color("#33FF66")
	colorMonitored = lipgloss.Color("#FFCC00")
	colorUnlock    = lipgloss.Color("#00FFFF")
	colorLock      = lipgloss.Color("#FF6600")

	styleCenter    = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleRing      = lipgloss.NewStyle().Foreground(colorMid)
	styleDot       = lipgloss.NewStyle().Foreground(colorDim)
	styleDevice    = lipgloss.NewStyle().Foreground(colorDevice).Bold(true)
	styleLinked    = lipgloss.NewStyle().Foreground(colorLinked).Bold(true)
	styleMonitored = lipgloss.NewStyle().Foreground(colorMonitored).Bold(true)
	styleUnlock    = lipgloss.NewStyle().Foreground(colorUnlock)
	styleLock      = lipgloss.NewStyle().Foreground(colorLock)
	styleLabelDim  = lipgloss.NewStyle().Foreground(colorMid)
	styleHot       = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
)

const maxLabelLen = 8

// Blip is one device placed on the radar.
type Blip struct {
	Identity  proximity.Identity
	Label     string
	Bearing   float64
	Distance  float64
	Monitored bool
	Linked    bool
}

// Thresholds are the unlock and lock distances drawn as extra rings. Zero
// hides a ring.
type Thresholds struct {
	Unlock float64
	Lock   float64
}

// ThresholdsFor converts the engine's RSSI thresholds to ring distances.
func ThresholdsFor(cfg config.ProximityConfig) Thresholds {
	var t Thresholds
	if cfg.UnlockRSSI != config.UnlockDisabled {
		t.Unlock = ThresholdDistance(cfg.UnlockRSSI)
	}
	if cfg.LockRSSI != config.LockDisabled {
		t.Lock = ThresholdDistance(cfg.LockRSSI)
	}
	return t
}

// Blips places registry devices. The monitored device is always included,
// even when it has no registry entry, at the distance of its last estimate.
func Blips(devices []proximity.Device, monitored proximity.Identity, monitoredRSSI *int) []Blip {
	out := make([]Blip, 0, len(devices)+1)
	seenMonitored := false
	for _, d := range devices {
		b := Blip{
			Identity:  d.Identity,
			Label:     callsign(d.Identity, d.DisplayName),
			Bearing:   BearingOf(d.Identity),
			Distance:  d.Distance,
			Monitored: d.Identity == monitored,
			Linked:    d.State == proximity.StateConnected,
		}
		seenMonitored = seenMonitored || b.Monitored
		out = append(out, b)
	}

	if monitored != "" && !seenMonitored && monitoredRSSI != nil {
		out = append(out, Blip{
			Identity:  monitored,
			Label:     callsign(monitored, ""),
			Bearing:   BearingOf(monitored),
			Distance:  ThresholdDistance(*monitoredRSSI),
			Monitored: true,
		})
	}
	return out
}

func callsign(id proximity.Identity, name string) string {
	if name != "" {
		if len(name) > maxLabelLen {
			name = name[:maxLabelLen]
		}
		return name
	}
	h := sha256.Sum256([]byte(id))
	return fmt.Sprintf("#%02X%X", h[0], h[1]&0x0F)
}

type placed struct {
	col, row int
	blip     Blip
	label    string
	labelCol int
	labelRow int
}

type segment struct{ start, end int }

// occupancy tracks which row segments already hold a symbol or label.
type occupancy map[int][]segment

func (o occupancy) free(row, start, end int) bool {
	for _, seg := range o[row] {
		if start < seg.end && end > seg.start {
			return false
		}
	}
	return true
}

func (o occupancy) take(row, start, end int) {
	o[row] = append(o[row], segment{start, end})
}

// Render produces the radar display as a styled string.
func Render(width, height int, blips []Blip, sweep *Sweep, th Thresholds) string {
	if width < 10 || height < 5 {
		return ""
	}

	centerX := width / 2
	centerY := height / 2
	radius := math.Max(3, float64(min(centerX-1, int(float64(centerY-1)/config.AspectRatio))))

	rings := make([]float64, config.RingCount)
	for i := range rings {
		rings[i] = radius * float64(i+1) / float64(config.RingCount)
	}
	unlockR := ringRadius(th.Unlock, radius)
	lockR := ringRadius(th.Lock, radius)

	ps := place(blips, centerX, centerY, radius, width)

	type labelCell struct{ idx, ch int }
	labels := make(map[int]labelCell)
	symbols := make(map[int]int)
	for i, p := range ps {
		symbols[p.row*width+p.col] = i
		for ci := 0; ci < len(p.label); ci++ {
			labels[p.labelRow*width+p.labelCol+ci] = labelCell{idx: i, ch: ci}
		}
	}

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			key := row*width + col
			angle := CellAngle(col, row, centerX, centerY)

			if i, ok := symbols[key]; ok {
				sb.WriteString(renderBlip(ps[i].blip, sweep.Intensity(angle)))
				continue
			}
			if lc, ok := labels[key]; ok {
				p := ps[lc.idx]
				sb.WriteString(renderLabel(p.blip, p.label[lc.ch], sweep.Intensity(angle)))
				continue
			}
			sb.WriteString(renderCell(col, row, centerX, centerY, radius, rings, unlockR, lockR, sweep))
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func ringRadius(meters, radius float64) float64 {
	if meters <= 0 {
		return 0
	}
	return MetersToRadius(meters, config.MaxRange, radius)
}

// place computes blip positions and puts labels right, below or above the
// symbol, dropping the label when all three collide. The monitored blip is
// placed first so it always keeps its label.
func place(blips []Blip, centerX, centerY int, radius float64, width int) []placed {
	ordered := make([]Blip, 0, len(blips))
	for _, b := range blips {
		if b.Monitored {
			ordered = append([]Blip{b}, ordered...)
		} else {
			ordered = append(ordered, b)
		}
	}

	occupied := make(occupancy)
	out := make([]placed, 0, len(ordered))

	for _, b := range ordered {
		r := MetersToRadius(b.Distance, config.MaxRange, radius)
		col := centerX + int(math.Round(r*math.Sin(b.Bearing)))
		row := centerY - int(math.Round(r*math.Cos(b.Bearing)*config.AspectRatio))

		label := b.Label
		lc := col + 2
		if lc+len(label) >= width {
			lc = col - len(label) - 1
		}
		lc = max(lc, 0)

		lr := row
		found := false
		for _, candidate := range []int{row, row + 1, row - 1} {
			if occupied.free(candidate, lc, lc+len(label)) {
				lr, found = candidate, true
				break
			}
		}
		if !found {
			label = ""
		}

		out = append(out, placed{col: col, row: row, blip: b, label: label, labelCol: lc, labelRow: lr})
		occupied.take(row, col, col+1)
		if label != "" {
			occupied.take(lr, lc, lc+len(label))
		}
	}
	return out
}

func renderBlip(b Blip, intensity float64) string {
	switch {
	case b.Monitored:
		return styleMonitored.Render("@")
	case intensity > 0.5:
		return styleHot.Render(blipSymbol(b))
	case b.Linked:
		return styleLinked.Render("o")
	default:
		return styleDevice.Render("*")
	}
}

func blipSymbol(b Blip) string {
	if b.Linked {
		return "o"
	}
	return "*"
}

func renderLabel(b Blip, ch byte, intensity float64) string {
	s := string(ch)
	switch {
	case b.Monitored:
		return styleMonitored.Render(s)
	case intensity > 0.5:
		return styleHot.Render(s)
	case strings.HasPrefix(b.Label, "#"):
		return styleLabelDim.Render(s)
	default:
		return styleDevice.UnsetBold().Render(s)
	}
}

func renderCell(col, row, centerX, centerY int, radius float64, rings []float64, unlockR, lockR float64, sweep *Sweep) string {
	dist := CellDistance(col, row, centerX, centerY)
	angle := CellAngle(col, row, centerX, centerY)

	if dist > radius+0.5 {
		return " "
	}
	if col == centerX && row == centerY {
		return styleCenter.Render("+")
	}

	// Threshold rings win over the range grid.
	if unlockR > 0 && math.Abs(dist-unlockR) < 0.6 {
		return styleUnlock.Render(string(RingChar(angle)))
	}
	if lockR > 0 && math.Abs(dist-lockR) < 0.6 {
		return styleLock.Render(string(RingChar(angle)))
	}

	if col == centerX {
		return renderSweepChar('|', sweep, angle)
	}
	if row == centerY {
		return renderSweepChar('-', sweep, angle)
	}
	for _, ringR := range rings {
		if math.Abs(dist-ringR) < 0.8 {
			return renderSweepChar(RingChar(angle), sweep, angle)
		}
	}
	return renderSweepChar('.', sweep, angle)
}

func renderSweepChar(ch rune, sweep *Sweep, angle float64) string {
	color := sweepColor(sweep.Intensity(angle))
	if color == "" {
		if ch == '.' {
			return styleDot.Render(".")
		}
		return styleRing.Render(string(ch))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(ch))
}

func sweepColor(intensity float64) string {
	switch {
	case intensity <= 0:
		return ""
	case intensity > 0.8:
		return "#00FF41"
	case intensity > 0.5:
		return "#00CC33"
	case intensity > 0.3:
		return "#00AA22"
	default:
		return "#005511"
	}
}

// RenderLegend produces the radar legend line.
func RenderLegend(width int, th Thresholds) string {
	parts := []string{
		styleDevice.Render("* device"),
		styleLinked.Render("o linked"),
		styleMonitored.Render("@ monitored"),
	}
	if th.Unlock > 0 {
		parts = append(parts, styleUnlock.Render(fmt.Sprintf("unlock ~%.1fm", th.Unlock)))
	}
	if th.Lock > 0 {
		parts = append(parts, styleLock.Render(fmt.Sprintf("lock ~%.1fm", th.Lock)))
	}

	legend := strings.Join(parts, "  ")
	pad := max(0, (width-lipgloss.Width(legend))/2)
	return strings.Repeat(" ", pad) + legend
}
