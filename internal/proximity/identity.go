package proximity

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidIdentity is returned when an identity string is neither a UUID nor a MAC address.
var ErrInvalidIdentity = errors.New("invalid device identity")

// Identity is the stable, opaque identifier of a peripheral. Depending on the
// platform it is a CoreBluetooth-style UUID or a BlueZ MAC address.
type Identity string

// ParseIdentity validates an identity coming from outside the engine and
// returns its canonical upper-case form.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}

	if u, err := uuid.Parse(s); err == nil {
		return Identity(strings.ToUpper(u.String())), nil
	}

	if mac, err := net.ParseMAC(s); err == nil && len(mac) == 6 {
		return Identity(strings.ToUpper(mac.String())), nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
}

// IsMAC reports whether the identity is a hardware address.
func (id Identity) IsMAC() bool {
	mac, err := net.ParseMAC(string(id))
	return err == nil && len(mac) == 6
}

func (id Identity) String() string {
	return string(id)
}

const bluetoothBaseSuffix = "-0000-1000-8000-00805F9B34FB"

// ShortUUID folds a service or characteristic UUID to its 16-bit form when it
// sits on the Bluetooth base UUID, so "0000180a-0000-1000-8000-00805f9b34fb"
// and "180a" both become "180A".
func ShortUUID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 36 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, bluetoothBaseSuffix) {
		return s[4:8]
	}
	return s
}

// LongUUID expands a 16-bit UUID onto the Bluetooth base UUID. Other values
// are returned upper-cased.
func LongUUID(s string) string {
	s = ShortUUID(s)
	if len(s) == 4 {
		return "0000" + s + bluetoothBaseSuffix
	}
	return s
}
