package proximity

import "time"

// Mode is the monitoring mode of the session.
type Mode int

const (
	// ModeActive keeps a connection to the monitored device and polls its RSSI.
	ModeActive Mode = iota
	// ModePassive relies on advertisement sightings only.
	ModePassive
)

func (m Mode) String() string {
	if m == ModePassive {
		return "passive"
	}
	return "active"
}

// Session is the state of the one monitored device. There is exactly one per
// engine and it is only touched on the engine loop.
type Session struct {
	Monitored   Identity
	Presence    bool
	Mode        Mode
	Polling     bool
	Seen        bool
	Link        ConnectionState
	LastReadAt  time.Time
	PowerWarned bool
	Filter      *RssiFilter
}

func newSession() *Session {
	return &Session{Filter: NewRssiFilter()}
}

// IsMonitored reports whether id is the monitored identity.
func (s *Session) IsMonitored(id Identity) bool {
	return s.Monitored != "" && s.Monitored == id
}

// SessionState is a snapshot of the session for callers outside the loop.
type SessionState struct {
	Monitored Identity
	Presence  bool
	Mode      Mode
	Polling   bool
	Link      ConnectionState
	Smoothed  *float64
	History   []int
	LastRead  time.Time
}

func (s *Session) snapshot() SessionState {
	st := SessionState{
		Monitored: s.Monitored,
		Presence:  s.Presence,
		Mode:      s.Mode,
		Polling:   s.Polling,
		Link:      s.Link,
		History:   s.Filter.History(),
		LastRead:  s.LastReadAt,
	}
	if v, ok := s.Filter.Smoothed(); ok {
		st.Smoothed = &v
	}
	return st
}
