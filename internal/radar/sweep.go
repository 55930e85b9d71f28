package radar

import (
	"math"
	"time"

	"ble-proximity.klederson.com/internal/config"
)

// Sweep is the rotating sweep line. It is driven by the UI tick.
type Sweep struct {
	Angle float64 // Radians [0, 2π)
	start time.Time
}

// NewSweep creates a sweep pointing north at start.
func NewSweep(start time.Time) *Sweep {
	return &Sweep{start: start}
}

// Update moves the sweep to where it is at now.
func (s *Sweep) Update(now time.Time) {
	rps := float64(config.SweepSpeedRPM) / 60.0
	s.Angle = NormalizeAngle(now.Sub(s.start).Seconds() * rps * 2 * math.Pi)
}

// Degrees returns the current sweep angle in degrees.
func (s *Sweep) Degrees() float64 {
	return s.Angle * 180 / math.Pi
}

// Intensity is the glow [0, 1] of the trail at cellAngle: 1 under the sweep
// head, fading to 0 SweepTrailDeg behind it.
func (s *Sweep) Intensity(cellAngle float64) float64 {
	behind := NormalizeAngle(s.Angle - cellAngle)
	trail := config.SweepTrailDeg * math.Pi / 180.0
	if behind > trail {
		return 0
	}
	return 1.0 - behind/trail
}
