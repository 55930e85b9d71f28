package proximity

import "github.com/rs/zerolog"

// LogListener writes every engine event to a structured log.
type LogListener struct {
	log zerolog.Logger
}

// NewLogListener returns a listener logging to l.
func NewLogListener(l zerolog.Logger) *LogListener {
	return &LogListener{log: l}
}

func (l *LogListener) device(ev string, d Device) {
	l.log.Info().
		Str("event", ev).
		Str("id", d.Identity.String()).
		Int("rssi", d.RSSI).
		Float64("distance_m", d.Distance).
		Str("state", d.State.String()).
		Str("description", d.Description).
		Msg("device")
}

func (l *LogListener) OnDeviceNew(d Device) { l.device("new", d) }
func (l *LogListener) OnDeviceUpdated(d Device) { l.device("updated", d) }
func (l *LogListener) OnDeviceRemoved(d Device) { l.device("removed", d) }

func (l *LogListener) OnRssiUpdate(raw, estimated *int, active bool) {
	ev := l.log.Debug().Bool("active", active)
	if raw != nil {
		ev = ev.Int("rssi", *raw)
	}
	if estimated != nil {
		ev = ev.Int("estimated", *estimated)
	}
	ev.Msg("rssi update")
}

func (l *LogListener) OnPresenceChanged(present bool, reason string) {
	l.log.Info().Bool("present", present).Str("reason", reason).Msg("presence changed")
}

func (l *LogListener) OnPowerWarning() {
	l.log.Warn().Msg("bluetooth adapter is powered off")
}
