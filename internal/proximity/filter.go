package proximity

import (
	"math"

	"ble-proximity.klederson.com/internal/config"
)

// Reading is the output of one RssiFilter sample.
type Reading struct {
	Raw      int
	Smoothed float64
	Distance float64 // meters
}

// RssiFilter smooths raw RSSI samples of the monitored device.
//
// It keeps three views of the signal: an exponential moving average used for
// the distance estimate, a short window whose mean is the "estimated" RSSI the
// away timer is driven by, and a longer raw history kept for diagnostics.
type RssiFilter struct {
	window      []int
	history     []int
	smoothed    float64
	hasSmoothed bool
	deviation   float64
}

// NewRssiFilter creates an empty filter.
func NewRssiFilter() *RssiFilter {
	return &RssiFilter{
		window:  make([]int, 0, config.EstimateWindow),
		history: make([]int, 0, config.HistoryWindow),
	}
}

// ClampRSSI maps invalid positive readings to 0 dBm.
func ClampRSSI(raw int) int {
	if raw > 0 {
		return 0
	}
	return raw
}

// Sample feeds one raw reading into the moving average and history.
func (f *RssiFilter) Sample(raw int) Reading {
	raw = ClampRSSI(raw)
	f.history = pushBounded(f.history, raw, config.HistoryWindow)

	if f.hasSmoothed {
		f.smoothed = config.SmoothingAlpha*float64(raw) + (1-config.SmoothingAlpha)*f.smoothed
	} else {
		f.smoothed = float64(raw)
		f.hasSmoothed = true
	}

	return Reading{
		Raw:      raw,
		Smoothed: f.smoothed,
		Distance: RSSIToDistance(f.smoothed, config.ReferenceRSSI, config.PathLossExp),
	}
}

// Estimate pushes raw into the short window and returns the window mean,
// rounded to the nearest dBm.
func (f *RssiFilter) Estimate(raw int) int {
	f.window = pushBounded(f.window, ClampRSSI(raw), config.EstimateWindow)
	mean, dev := meanDeviation(f.window)
	f.deviation = dev
	return int(math.Round(mean))
}

// ResetWindow drops the short window so stale weak samples cannot drag the
// estimate back below the lock threshold right after the device came close.
func (f *RssiFilter) ResetWindow() {
	f.window = f.window[:0]
}

// Reset forgets everything, for a newly monitored device.
func (f *RssiFilter) Reset() {
	f.window = f.window[:0]
	f.history = f.history[:0]
	f.smoothed = 0
	f.hasSmoothed = false
	f.deviation = 0
}

// Smoothed returns the current moving average, if any sample was seen.
func (f *RssiFilter) Smoothed() (float64, bool) {
	return f.smoothed, f.hasSmoothed
}

// Deviation is the standard deviation of the short window at the last Estimate.
func (f *RssiFilter) Deviation() float64 {
	return f.deviation
}

// History returns a copy of the raw sample history, oldest first.
func (f *RssiFilter) History() []int {
	out := make([]int, len(f.history))
	copy(out, f.history)
	return out
}

// WindowLen returns the number of samples in the short window.
func (f *RssiFilter) WindowLen() int {
	return len(f.window)
}

// RSSIToDistance estimates distance from RSSI using the log-distance path loss model.
// Formula: d = 10^((reference - rssi) / (10 * n))
func RSSIToDistance(rssi, reference, pathLossExp float64) float64 {
	return math.Pow(10, (reference-rssi)/(10*pathLossExp))
}

func pushBounded(buf []int, v, capacity int) []int {
	if len(buf) >= capacity {
		copy(buf, buf[1:])
		buf = buf[:len(buf)-1]
	}
	return append(buf, v)
}

func meanDeviation(values []int) (mean, dev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += float64(v)
	}
	mean /= float64(len(values))

	for _, v := range values {
		d := float64(v) - mean
		dev += d * d
	}
	dev = math.Sqrt(dev / float64(len(values)))
	return mean, dev
}
