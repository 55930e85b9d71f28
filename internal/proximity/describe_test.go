package proximity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iBeaconData(major, minor uint16, tx int8) []byte {
	data := make([]byte, 25)
	copy(data, iBeaconPrefix)
	data[20] = byte(major >> 8)
	data[21] = byte(major)
	data[22] = byte(minor >> 8)
	data[23] = byte(minor)
	data[24] = byte(tx)
	return data
}

func TestParseIBeacon(t *testing.T) {
	b, ok := ParseIBeacon(iBeaconData(258, 772, -59))
	require.True(t, ok)
	assert.Equal(t, uint16(258), b.Major)
	assert.Equal(t, uint16(772), b.Minor)
	assert.Equal(t, int8(-59), b.TxPower)
	assert.InDelta(t, 1.0, b.Distance(-59), 1e-9)
	assert.InDelta(t, 10.0, b.Distance(-79), 1e-9)

	_, ok = ParseIBeacon(iBeaconData(1, 2, -59)[:24])
	assert.False(t, ok, "too short")

	other := iBeaconData(1, 2, -59)
	other[0] = 0x06
	_, ok = ParseIBeacon(other)
	assert.False(t, ok, "not Apple")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		dev  ObservedDevice
		want string
	}{
		{
			name: "resolved label wins",
			dev:  ObservedDevice{Identity: otherID, ResolvedLabel: "Kitchen Speaker", Vendor: "Acme", Model: "X1"},
			want: "Kitchen Speaker",
		},
		{
			name: "generic label falls through to apple model",
			dev:  ObservedDevice{Identity: otherID, ResolvedLabel: "iPhone", Vendor: "Apple Inc.", Model: "iPhone15,4"},
			want: "iPhone 15",
		},
		{
			name: "unknown apple model is a composite",
			dev:  ObservedDevice{Identity: otherID, Vendor: "Apple Inc.", Model: "iPhone99,9"},
			want: "Apple Inc./iPhone99,9",
		},
		{
			name: "vendor only",
			dev:  ObservedDevice{Identity: otherID, Vendor: "Acme", DisplayName: "Thing"},
			want: "Acme",
		},
		{
			name: "display name",
			dev:  ObservedDevice{Identity: otherID, DisplayName: "Band 7", Model: "B7"},
			want: "Band 7",
		},
		{
			name: "blank display name is skipped",
			dev:  ObservedDevice{Identity: otherID, DisplayName: "   ", Model: "B7"},
			want: "B7",
		},
		{
			name: "ibeacon",
			dev: ObservedDevice{
				Identity:      otherID,
				LastRSSI:      -79,
				Advertisement: Advertisement{ManufacturerData: iBeaconData(1, 2, -59)},
			},
			want: "iBeacon [1, 2] 10.0m",
		},
		{
			name: "generic label as last named resort",
			dev:  ObservedDevice{Identity: otherID, ResolvedLabel: "iPad", ResolvedAddress: "11:22:33:44:55:66"},
			want: "iPad",
		},
		{
			name: "resolved address",
			dev:  ObservedDevice{Identity: phoneID, ResolvedAddress: "11:22:33:44:55:66"},
			want: "11:22:33:44:55:66",
		},
		{
			name: "identity",
			dev:  ObservedDevice{Identity: phoneID},
			want: phoneID.String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(&tt.dev))
		})
	}
}

func TestSnapshot(t *testing.T) {
	d := ObservedDevice{
		Identity:      otherID,
		LastRSSI:      -74,
		Advertisement: Advertisement{ManufacturerData: []byte{0x4C, 0x00, 0x10, 0x05}},
		State:         StateConnected,
	}

	s := d.Snapshot()
	assert.Equal(t, otherID, s.Identity)
	assert.Equal(t, 4, s.AdvertisementSize)
	assert.Equal(t, uint16(0x004C), s.CompanyID)
	assert.InDelta(t, 10.0, s.Distance, 1e-9)
	assert.Equal(t, "connected", s.State.String())
	assert.Equal(t, otherID.String(), s.Description)
}
