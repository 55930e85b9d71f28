package proximity

//go:generate mockgen -destination=mock_proximity.go -package=proximity ble-proximity.klederson.com/internal/proximity Radio,Listener

// Presence change reasons.
const (
	ReasonClose = "close"
	ReasonAway  = "away"
	ReasonLost  = "lost"
)

// Radio is the platform radio stack the engine commands. Implementations must
// not block: anything slow runs elsewhere and reports back through RadioEvents.
type Radio interface {
	StartScan() error
	StopScan() error
	Connect(id Identity) error
	Disconnect(id Identity) error
	ReadSignalStrength(id Identity) error
	DiscoverServices(id Identity, services []string) error
	DiscoverCharacteristics(id Identity, service string, characteristics []string) error
	ReadCharacteristic(id Identity, characteristic string) error
}

// SignalSource is an optional Radio capability. A radio whose signal reads
// are answered from advertisements rather than over the link reports false,
// and the scan then keeps running while the monitor polls.
type SignalSource interface {
	SignalOverLink() bool
}

// RadioEvents is the inbound side of the radio. The Engine implements it and
// is safe to call from any goroutine.
type RadioEvents interface {
	AdapterPowerChanged(on bool)
	DeviceSighted(id Identity, rssi int, adv Advertisement)
	Connected(id Identity)
	Disconnected(id Identity)
	SignalRead(id Identity, rssi int)
	ServicesDiscovered(id Identity, services []string)
	CharacteristicsDiscovered(id Identity, service string, characteristics []string)
	CharacteristicValueRead(id Identity, characteristic string, value []byte)
}

// Listener receives engine notifications. Calls are made from the engine loop,
// so implementations must return quickly and must not call back into the
// engine's synchronous accessors.
type Listener interface {
	OnDeviceNew(d Device)
	OnDeviceUpdated(d Device)
	OnDeviceRemoved(d Device)
	OnRssiUpdate(raw, estimated *int, active bool)
	OnPresenceChanged(present bool, reason string)
	OnPowerWarning()
}

// Resolver looks up a best-effort hardware address and label for an identity
// from platform caches. Empty strings mean unknown.
type Resolver interface {
	Resolve(id Identity) (address, label string)
}

type nopResolver struct{}

func (nopResolver) Resolve(Identity) (string, string) { return "", "" }

// NopListener ignores every event. Embed it to implement part of Listener.
type NopListener struct{}

func (NopListener) OnDeviceNew(Device) {}
func (NopListener) OnDeviceUpdated(Device) {}
func (NopListener) OnDeviceRemoved(Device) {}
func (NopListener) OnRssiUpdate(_, _ *int, _ bool) {}
func (NopListener) OnPresenceChanged(bool, string) {}
func (NopListener) OnPowerWarning() {}

// Listeners fans every event out to each listener in order.
type Listeners []Listener

func (ls Listeners) OnDeviceNew(d Device) {
	for _, l := range ls {
		l.OnDeviceNew(d)
	}
}

func (ls Listeners) OnDeviceUpdated(d Device) {
	for _, l := range ls {
		l.OnDeviceUpdated(d)
	}
}

func (ls Listeners) OnDeviceRemoved(d Device) {
	for _, l := range ls {
		l.OnDeviceRemoved(d)
	}
}

func (ls Listeners) OnRssiUpdate(raw, estimated *int, active bool) {
	for _, l := range ls {
		l.OnRssiUpdate(raw, estimated, active)
	}
}

func (ls Listeners) OnPresenceChanged(present bool, reason string) {
	for _, l := range ls {
		l.OnPresenceChanged(present, reason)
	}
}

func (ls Listeners) OnPowerWarning() {
	for _, l := range ls {
		l.OnPowerWarning()
	}
}
