package radar

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/proximity"
)

// BearingOf derives a stable bearing for an identity. RSSI carries no
// direction, so the bearing only keeps a device in the same place between
// frames. Returns radians in [0, 2π), 0=north, clockwise.
func BearingOf(id proximity.Identity) float64 {
	h := sha256.Sum256([]byte(id))
	val := binary.BigEndian.Uint32(h[:4])
	return float64(val) / float64(math.MaxUint32) * 2 * math.Pi
}

// CellDistance computes the distance from a cell to the radar center,
// accounting for terminal aspect ratio.
func CellDistance(col, row, centerX, centerY int) float64 {
	dx := float64(col - centerX)
	dy := float64(row-centerY) / config.AspectRatio
	return math.Sqrt(dx*dx + dy*dy)
}

// CellAngle computes the angle from center to a cell.
// Returns radians in [0, 2π), where 0=north, increasing clockwise.
func CellAngle(col, row, centerX, centerY int) float64 {
	dx := float64(col - centerX)
	dy := float64(row-centerY) / config.AspectRatio
	angle := math.Atan2(dx, -dy) // 0=north, clockwise
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// RingChar returns the appropriate character for a ring at the given angle.
func RingChar(angle float64) rune {
	sector := int(math.Round(NormalizeAngle(angle)/(math.Pi/4))) % 4
	return ringChars[sector]
}

// ringChars repeat every half turn: N/S, NE/SW, E/W, SE/NW.
var ringChars = [4]rune{'-', '/', '|', '\\'}

// NormalizeAngle wraps an angle to [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// MetersToRadius converts distance in meters to radar cells. Beyond maxRange
// devices sit on the outer ring.
func MetersToRadius(meters, maxRange, radarRadius float64) float64 {
	if meters > maxRange {
		return radarRadius
	}
	return (meters / maxRange) * radarRadius
}

// ThresholdDistance is the path-loss distance of an RSSI threshold, used to
// draw the unlock and lock rings.
func ThresholdDistance(rssi int) float64 {
	return proximity.RSSIToDistance(float64(rssi), config.ReferenceRSSI, config.PathLossExp)
}
