package proximity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Identity
		wantErr bool
	}{
		{name: "uuid", in: "e337a089-2e40-c91b-9153-869a90ffa727", want: "E337A089-2E40-C91B-9153-869A90FFA727"},
		{name: "uuid with spaces", in: "  E337A089-2E40-C91B-9153-869A90FFA727 ", want: "E337A089-2E40-C91B-9153-869A90FFA727"},
		{name: "mac", in: "aa:bb:cc:dd:ee:ff", want: "AA:BB:CC:DD:EE:FF"},
		{name: "mac with dashes", in: "aa-bb-cc-dd-ee-ff", want: "AA:BB:CC:DD:EE:FF"},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "not-a-device", wantErr: true},
		{name: "short mac", in: "aa:bb:cc", wantErr: true},
		{name: "eui64", in: "aa:bb:cc:dd:ee:ff:00:11", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidIdentity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentity_IsMAC(t *testing.T) {
	assert.True(t, Identity("AA:BB:CC:DD:EE:FF").IsMAC())
	assert.False(t, phoneID.IsMAC())
}

func TestShortUUID(t *testing.T) {
	assert.Equal(t, "180A", ShortUUID("0000180a-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "FD6F", ShortUUID("fd6f"))
	assert.Equal(t, "6E400001-B5A3-F393-E0A9-E50E24DCCA9E", ShortUUID("6e400001-b5a3-f393-e0a9-e50e24dcca9e"))
}

func TestLongUUID(t *testing.T) {
	assert.Equal(t, "00002A29-0000-1000-8000-00805F9B34FB", LongUUID("2a29"))
	assert.Equal(t, "00002A29-0000-1000-8000-00805F9B34FB", LongUUID("00002a29-0000-1000-8000-00805f9b34fb"))
}
