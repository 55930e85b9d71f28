package proximity

import (
	"github.com/rs/zerolog"

	"ble-proximity.klederson.com/internal/config"
)

// Monitor is the proximity state machine for the monitored device. It turns
// sightings and signal reads into presence changes and drives the connection
// and active polling of the device.
type Monitor struct {
	radio    Radio
	listener Listener
	sched    *Scheduler
	clock    Clock
	scan     *ScanController
	session  *Session
	cfg      config.ProximityConfig
	log      zerolog.Logger
}

func newMonitor(radio Radio, listener Listener, sched *Scheduler, clock Clock, scan *ScanController,
	session *Session, cfg config.ProximityConfig, log zerolog.Logger) *Monitor {
	return &Monitor{
		radio:    radio,
		listener: listener,
		sched:    sched,
		clock:    clock,
		scan:     scan,
		session:  session,
		cfg:      cfg,
		log:      log,
	}
}

// Start monitors id, replacing any previously monitored device. Presence is
// assumed until the signal says otherwise.
func (m *Monitor) Start(id Identity) {
	s := m.session
	m.dropLink()
	m.stopPolling()

	s.Monitored = id
	s.Seen = false
	s.Filter.Reset()
	m.sched.Cancel(taskProximity)
	m.resetSignalTimer()
	s.Presence = true

	m.log.Info().Str("id", id.String()).Msg("monitoring started")
	m.scan.Resume()
}

// Stop forgets the monitored device.
func (m *Monitor) Stop() {
	s := m.session
	if s.Monitored == "" {
		return
	}
	m.dropLink()
	m.stopPolling()
	m.sched.Cancel(taskSignal)
	m.sched.Cancel(taskProximity)

	m.log.Info().Str("id", s.Monitored.String()).Msg("monitoring stopped")
	s.Monitored = ""
	s.Presence = false
	s.Seen = false
	s.Filter.Reset()
	m.scan.Suspend()
}

// SetPassive switches between passive sightings and an active connection.
func (m *Monitor) SetPassive(enabled bool) {
	s := m.session
	if enabled {
		s.Mode = ModePassive
		m.stopPolling()
		m.dropLink()
	} else {
		s.Mode = ModeActive
	}
	m.log.Info().Stringer("mode", s.Mode).Msg("monitor mode changed")

	m.scan.Resume()
	if !enabled {
		m.connect()
	}
}

// OnSighting handles an advertisement of the monitored device. Sightings are
// ignored while polling, the signal reads are authoritative then.
func (m *Monitor) OnSighting(rssi int) {
	s := m.session
	s.Seen = true
	if s.Polling {
		return
	}
	m.update(rssi)
	if s.Mode == ModeActive {
		m.connect()
	}
}

// OnConnected handles a link coming up.
func (m *Monitor) OnConnected(id Identity) {
	s := m.session
	if !s.IsMonitored(id) {
		return
	}
	s.Link = StateConnected
	if s.Mode == ModePassive {
		return
	}
	m.sched.Cancel(taskConnection)
	m.readSignal()
}

// OnDisconnected handles a link going down.
func (m *Monitor) OnDisconnected(id Identity) {
	s := m.session
	if !s.IsMonitored(id) {
		return
	}
	s.Link = StateDisconnected
	m.sched.Cancel(taskConnection)
}

// OnSignalRead handles an RSSI read over the monitored link. The first one
// switches an active session into polling.
func (m *Monitor) OnSignalRead(id Identity, rssi int) {
	s := m.session
	if !s.IsMonitored(id) {
		return
	}
	m.update(rssi)
	s.LastReadAt = m.clock.Now()

	if !s.Polling && s.Mode == ModeActive {
		m.log.Debug().Msg("entering active polling")
		s.Polling = true
		m.scan.PollingStarted()
		m.sched.Every(taskActivePoll, m.cfg.ActivePollInterval(), m.pollTick)
	}
}

// OnPowerChanged handles the adapter powering on or off. The power warning
// fires once per power-off episode.
func (m *Monitor) OnPowerChanged(on bool) {
	s := m.session
	if on {
		if (!s.Polling || m.scan.ScansWhilePolling()) && (m.scan.Desired() || s.Monitored != "") {
			m.scan.Resume()
		}
		s.PowerWarned = false
		return
	}

	m.scan.PowerLost()
	s.Presence = false
	m.sched.Cancel(taskSignal)
	if !s.PowerWarned {
		s.PowerWarned = true
		m.listener.OnPowerWarning()
	}
}

// update feeds one sample through the filter and the presence rules.
func (m *Monitor) update(raw int) {
	s := m.session
	raw = ClampRSSI(raw)
	s.Filter.Sample(raw)

	if raw >= m.cfg.EffectiveUnlock() && !s.Presence {
		s.Presence = true
		m.log.Info().Int("rssi", raw).Msg("device is close")
		m.listener.OnPresenceChanged(true, ReasonClose)
		s.Filter.ResetWindow()
	}

	estimated := s.Filter.Estimate(raw)
	m.listener.OnRssiUpdate(&raw, &estimated, s.Polling)

	if estimated >= m.cfg.EffectiveLock() {
		m.sched.Cancel(taskProximity)
	} else if s.Presence && !m.sched.Pending(taskProximity) {
		m.sched.After(taskProximity, m.cfg.ProximityTimeout(), m.away)
	}

	m.resetSignalTimer()
}

func (m *Monitor) away() {
	s := m.session
	if !s.Presence {
		return
	}
	s.Presence = false
	m.log.Info().Msg("device is away")
	m.listener.OnPresenceChanged(false, ReasonAway)
}

func (m *Monitor) resetSignalTimer() {
	m.sched.After(taskSignal, m.cfg.SignalTimeout(), m.lost)
}

func (m *Monitor) lost() {
	s := m.session
	m.listener.OnRssiUpdate(nil, nil, false)
	if s.Presence {
		s.Presence = false
		m.log.Info().Msg("device is lost")
		m.listener.OnPresenceChanged(false, ReasonLost)
	}
}

// connect reads the signal over an existing link or opens one.
func (m *Monitor) connect() {
	s := m.session
	if s.Monitored == "" || !s.Seen {
		return
	}

	switch s.Link {
	case StateConnected:
		m.readSignal()
	case StateDisconnected:
		if err := m.radio.Connect(s.Monitored); err != nil {
			m.log.Debug().Err(err).Msg("connect to monitored device failed")
			return
		}
		s.Link = StateConnecting
		m.sched.After(taskConnection, m.cfg.ConnectionTimeout(), m.connectionTimedOut)
	}
}

func (m *Monitor) connectionTimedOut() {
	s := m.session
	if s.Link != StateConnecting {
		return
	}
	m.log.Debug().Msg("connection timeout")
	if err := m.radio.Disconnect(s.Monitored); err != nil {
		m.log.Debug().Err(err).Msg("cancel connection failed")
	}
	s.Link = StateDisconnected
}

func (m *Monitor) readSignal() {
	if err := m.radio.ReadSignalStrength(m.session.Monitored); err != nil {
		m.log.Debug().Err(err).Msg("signal read failed")
	}
}

func (m *Monitor) pollTick() {
	s := m.session
	if m.clock.Now().Sub(s.LastReadAt) > m.cfg.ActivePollStale() {
		m.log.Info().Msg("signal reads stale, falling back to passive sightings")
		if err := m.radio.Disconnect(s.Monitored); err != nil {
			m.log.Debug().Err(err).Msg("disconnect failed")
		}
		s.Link = StateDisconnected
		m.sched.Cancel(taskConnection)
		m.stopPolling()
		m.scan.Resume()
		return
	}

	if s.Link == StateConnected {
		m.readSignal()
		return
	}
	m.connect()
}

func (m *Monitor) stopPolling() {
	m.sched.Cancel(taskActivePoll)
	m.session.Polling = false
}

// dropLink closes the monitored link if there is one.
func (m *Monitor) dropLink() {
	s := m.session
	m.sched.Cancel(taskConnection)
	if s.Monitored == "" || !s.Link.Linked() {
		s.Link = StateDisconnected
		return
	}
	if err := m.radio.Disconnect(s.Monitored); err != nil {
		m.log.Debug().Err(err).Msg("disconnect failed")
	}
	s.Link = StateDisconnected
}
