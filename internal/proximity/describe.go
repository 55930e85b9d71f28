package proximity

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

const appleVendor = "Apple Inc."

// appleModelNames maps Apple model identifiers, as read from the model number
// characteristic, to marketing names.
var appleModelNames = map[string]string{
	"iPhone14,2": "iPhone 13 Pro",
	"iPhone14,3": "iPhone 13 Pro Max",
	"iPhone14,5": "iPhone 13",
	"iPhone14,7": "iPhone 14",
	"iPhone15,2": "iPhone 14 Pro",
	"iPhone15,4": "iPhone 15",
	"iPhone16,1": "iPhone 15 Pro",
	"iPhone16,2": "iPhone 15 Pro Max",
	"iPhone17,1": "iPhone 16 Pro",
	"iPhone17,3": "iPhone 16",
	"iPad13,18":  "iPad (10th generation)",
	"iPad14,1":   "iPad mini (6th generation)",
	"Watch6,1":   "Apple Watch Series 7",
	"Watch7,1":   "Apple Watch Series 9",
}

// genericLabels are placeholder names the OS reports before the real model is known.
var genericLabels = map[string]bool{
	"iPhone": true,
	"iPad":   true,
}

// iBeacon manufacturer data starts with Apple's company ID (0x004C, little
// endian) followed by type 0x02 and length 0x15.
var iBeaconPrefix = []byte{0x4C, 0x00, 0x02, 0x15}

const iBeaconMinLen = 25

// IBeacon is a decoded iBeacon advertisement.
type IBeacon struct {
	Major   uint16
	Minor   uint16
	TxPower int8
}

// ParseIBeacon decodes manufacturer data as an iBeacon frame.
func ParseIBeacon(data []byte) (IBeacon, bool) {
	if len(data) < iBeaconMinLen || !bytes.HasPrefix(data, iBeaconPrefix) {
		return IBeacon{}, false
	}
	return IBeacon{
		Major:   binary.BigEndian.Uint16(data[20:22]),
		Minor:   binary.BigEndian.Uint16(data[22:24]),
		TxPower: int8(data[24]),
	}, true
}

// Distance estimates meters from the calibrated transmit power and the current RSSI.
func (b IBeacon) Distance(rssi int) float64 {
	return math.Pow(10, float64(int(b.TxPower)-rssi)/20)
}

// Describe returns the best human readable name for a device. Sources are
// tried from most to least specific.
func Describe(d *ObservedDevice) string {
	label := strings.TrimSpace(d.ResolvedLabel)
	if label != "" && !genericLabels[label] {
		return label
	}

	if d.Vendor != "" {
		if d.Model == "" {
			return d.Vendor
		}
		if d.Vendor == appleVendor {
			if name, ok := appleModelNames[d.Model]; ok {
				return name
			}
		}
		return d.Vendor + "/" + d.Model
	}

	if strings.TrimSpace(d.DisplayName) != "" {
		return d.DisplayName
	}

	if d.Model != "" {
		return d.Model
	}

	if b, ok := ParseIBeacon(d.Advertisement.ManufacturerData); ok {
		return fmt.Sprintf("iBeacon [%d, %d] %.1fm", b.Major, b.Minor, b.Distance(d.LastRSSI))
	}

	if label != "" {
		return label
	}

	if d.ResolvedAddress != "" {
		return d.ResolvedAddress
	}

	return d.Identity.String()
}
