package proximity

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ble-proximity.klederson.com/internal/config"
)

type mockRegistry struct {
	registry *Registry
	radio    *MockRadio
	listener *MockListener
	clock    *manualClock
	session  *Session
}

func newMockRegistry(t *testing.T) *mockRegistry {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := &mockRegistry{
		radio:    NewMockRadio(ctrl),
		listener: NewMockListener(ctrl),
		clock:    newManualClock(),
		session:  newSession(),
	}
	sched := NewScheduler(m.clock, func(fn func()) { fn() })
	m.registry = newRegistry(m.radio, m.listener, sched, m.clock, nopResolver{}, m.session,
		config.DefaultProximity(), zerolog.Nop())
	return m
}

func TestRegistry_NoiseFloor(t *testing.T) {
	m := newMockRegistry(t)

	assert.Equal(t, EventNone, m.registry.OnSighting(otherID, -72, Advertisement{}))
	assert.Equal(t, 0, m.registry.Len())

	m.radio.EXPECT().Connect(otherID).Return(nil)
	m.listener.EXPECT().OnDeviceNew(gomock.Any()).Do(func(d Device) {
		assert.Equal(t, otherID, d.Identity)
		assert.Equal(t, -69, d.RSSI)
		assert.Equal(t, StateConnecting, d.State)
	})

	assert.Equal(t, EventNew, m.registry.OnSighting(otherID, -69, Advertisement{}))
	assert.Equal(t, 1, m.registry.Len())
}

func TestRegistry_UpdateBelowFloorKeepsEntry(t *testing.T) {
	m := newMockRegistry(t)
	m.radio.EXPECT().Connect(otherID).Return(nil)
	m.listener.EXPECT().OnDeviceNew(gomock.Any())
	m.registry.OnSighting(otherID, -60, Advertisement{})

	m.listener.EXPECT().OnDeviceUpdated(gomock.Any()).Do(func(d Device) {
		assert.Equal(t, -90, d.RSSI)
	})
	assert.Equal(t, EventUpdated, m.registry.OnSighting(otherID, -90, Advertisement{}))
}

func TestRegistry_ExposureNotificationIgnored(t *testing.T) {
	m := newMockRegistry(t)
	en := Advertisement{ServiceUUIDs: []string{"0000fd6f-0000-1000-8000-00805f9b34fb"}}

	assert.Equal(t, EventNone, m.registry.OnSighting(otherID, -40, en))
	assert.Equal(t, 0, m.registry.Len())

	// Also ignored once the device is registered.
	m.radio.EXPECT().Connect(otherID).Return(nil)
	m.listener.EXPECT().OnDeviceNew(gomock.Any())
	m.registry.OnSighting(otherID, -40, Advertisement{})
	assert.Equal(t, EventNone, m.registry.OnSighting(otherID, -40, en))
}

func TestRegistry_StalenessIsDebounced(t *testing.T) {
	m := newMockRegistry(t)
	m.radio.EXPECT().Connect(otherID).Return(nil)
	m.listener.EXPECT().OnDeviceNew(gomock.Any())
	m.listener.EXPECT().OnDeviceUpdated(gomock.Any()).Times(2)

	m.registry.OnSighting(otherID, -60, Advertisement{})
	m.clock.Advance(50 * time.Second)
	m.registry.OnSighting(otherID, -61, Advertisement{})
	m.clock.Advance(50 * time.Second)
	m.registry.OnSighting(otherID, -62, Advertisement{})
	m.clock.Advance(59 * time.Second)
	assert.Equal(t, 1, m.registry.Len(), "each sighting pushes the deadline out")

	d, ok := m.registry.Get(otherID)
	require.True(t, ok)
	assert.Equal(t, -62, d.RSSI)

	m.radio.EXPECT().Disconnect(otherID).Return(nil)
	m.listener.EXPECT().OnDeviceRemoved(gomock.Any())
	m.clock.Advance(time.Second)
	assert.Equal(t, 0, m.registry.Len())
}

func TestRegistry_EvictedDeviceStartsFresh(t *testing.T) {
	m := newMockRegistry(t)
	m.radio.EXPECT().Connect(otherID).Return(nil).Times(2)
	m.listener.EXPECT().OnDeviceNew(gomock.Any()).Times(2)
	m.listener.EXPECT().OnDeviceUpdated(gomock.Any())

	m.registry.OnSighting(otherID, -60, Advertisement{LocalName: "Band"})
	m.registry.OnCharacteristicResolved(otherID, FieldVendor, "Acme")

	m.listener.EXPECT().OnDeviceRemoved(gomock.Any())
	m.radio.EXPECT().Disconnect(otherID).Return(nil)
	m.clock.Advance(config.DefaultSignalTimeout)
	_, ok := m.registry.Get(otherID)
	require.False(t, ok)

	assert.Equal(t, EventNew, m.registry.OnSighting(otherID, -65, Advertisement{}))
	d, ok := m.registry.Get(otherID)
	require.True(t, ok)
	assert.Empty(t, d.Vendor)
	assert.Empty(t, d.DisplayName)
}

func TestRegistry_IdentificationDisconnectsOnce(t *testing.T) {
	m := newMockRegistry(t)
	m.radio.EXPECT().Connect(otherID).Return(nil)
	m.listener.EXPECT().OnDeviceNew(gomock.Any())
	m.registry.OnSighting(otherID, -60, Advertisement{})

	m.radio.EXPECT().DiscoverServices(otherID, []string{"180A"}).Return(nil)
	m.registry.OnConnected(otherID, true)

	m.radio.EXPECT().DiscoverCharacteristics(otherID, "180A", []string{"2A29", "2A24"}).Return(nil)
	m.registry.OnServicesDiscovered(otherID, []string{"1800", "0000180a-0000-1000-8000-00805f9b34fb"})

	m.radio.EXPECT().ReadCharacteristic(otherID, "2A29").Return(nil)
	m.radio.EXPECT().ReadCharacteristic(otherID, "2A24").Return(nil)
	m.registry.OnCharacteristicsDiscovered(otherID, "180A", []string{"2A29", "2A24", "2A25"})

	m.listener.EXPECT().OnDeviceUpdated(gomock.Any()).Times(4)
	m.radio.EXPECT().Disconnect(otherID).Return(nil).Times(1)

	m.registry.OnCharacteristicValue(otherID, "2A29", []byte("Apple Inc.\x00"))
	m.registry.OnCharacteristicValue(otherID, "2A24", []byte("iPhone15,4"))
	m.registry.OnCharacteristicResolved(otherID, FieldVendor, "Apple Inc.")
	m.registry.OnCharacteristicResolved(otherID, FieldModel, "iPhone15,4")

	d, _ := m.registry.Get(otherID)
	assert.Equal(t, "iPhone 15", d.Description)
	assert.Equal(t, StateDisconnecting, d.State)
}

func TestRegistry_MonitoredDeviceKeepsLink(t *testing.T) {
	m := newMockRegistry(t)
	m.session.Monitored = phoneID

	// No connect request: the monitor owns this link.
	m.listener.EXPECT().OnDeviceNew(gomock.Any())
	m.registry.OnSighting(phoneID, -50, Advertisement{})
	m.registry.OnConnected(phoneID, false)

	m.listener.EXPECT().OnDeviceUpdated(gomock.Any()).Times(2)
	m.registry.OnCharacteristicResolved(phoneID, FieldVendor, "Apple Inc.")
	m.registry.OnCharacteristicResolved(phoneID, FieldModel, "iPhone16,1")

	m.listener.EXPECT().OnDeviceRemoved(gomock.Any())
	m.clock.Advance(config.DefaultSignalTimeout)
	assert.Equal(t, 0, m.registry.Len())
}

func TestRegistry_InvalidCharacteristicValueIgnored(t *testing.T) {
	m := newMockRegistry(t)
	m.radio.EXPECT().Connect(otherID).Return(nil)
	m.listener.EXPECT().OnDeviceNew(gomock.Any())
	m.registry.OnSighting(otherID, -60, Advertisement{})

	m.registry.OnCharacteristicValue(otherID, "2A29", []byte{0xff, 0xfe})
	m.registry.OnCharacteristicValue(otherID, "2A00", []byte("name"))
}

func TestRegistry_Clear(t *testing.T) {
	h := newHarness(t)
	h.session.Monitored = phoneID

	h.registry.OnSighting(otherID, -60, Advertisement{})
	h.registry.OnSighting(beaconID, -50, Advertisement{})
	h.registry.OnSighting(phoneID, -40, Advertisement{})
	h.registry.OnConnected(otherID, false)
	h.registry.OnConnected(phoneID, false)
	h.radio.Reset()
	h.listener.Reset()

	h.registry.Clear()
	assert.Equal(t, 0, h.registry.Len())
	assert.Equal(t, []string{"removed:" + phoneID.String(), "removed:" + beaconID.String(), "removed:" + otherID.String()},
		h.listener.Events(), "removed strongest first")
	assert.ElementsMatch(t, []string{"disconnect:" + beaconID.String(), "disconnect:" + otherID.String()}, h.radio.Calls())
	assert.Equal(t, 0, h.sched.Len())

	h.clock.Advance(config.DefaultSignalTimeout)
	assert.Len(t, h.listener.Events(), 3, "no eviction after clear")
}

func TestRegistry_DevicesSortedAndResolved(t *testing.T) {
	h := newHarnessWith(t, config.DefaultProximity(), mapResolver{
		beaconID: {"AA:BB:CC:DD:EE:01", "Desk Lamp"},
	})
	h.registry.OnSighting(otherID, -65, Advertisement{})
	h.registry.OnSighting(beaconID, -45, Advertisement{LocalName: "LAMP"})

	devs := h.registry.Devices()
	require.Len(t, devs, 2)
	assert.Equal(t, beaconID, devs[0].Identity)
	assert.Equal(t, "Desk Lamp", devs[0].Description)
	assert.Equal(t, "LAMP", devs[0].DisplayName)
	assert.Equal(t, otherID, devs[1].Identity)
}

func TestRegistry_ExplicitConnect(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.registry.Connect(otherID))
	assert.Equal(t, []string{"connect:" + otherID.String()}, h.radio.Calls())

	h.registry.OnSighting(beaconID, -50, Advertisement{})
	h.registry.OnConnected(beaconID, false)
	h.radio.Reset()

	require.NoError(t, h.registry.Connect(beaconID))
	assert.Empty(t, h.radio.Calls(), "already connected")

	require.NoError(t, h.registry.Disconnect(beaconID))
	d, _ := h.registry.Get(beaconID)
	assert.Equal(t, StateDisconnecting, d.State)

	h.registry.OnDisconnected(beaconID)
	d, _ = h.registry.Get(beaconID)
	assert.Equal(t, StateDisconnected, d.State)
}
