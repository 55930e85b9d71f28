package app

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"ble-proximity.klederson.com/internal/proximity"
)

// Sender is the part of *tea.Program the listener needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramListener turns engine notifications into Bubble Tea messages.
// Engine callbacks only enqueue; Run forwards to the program on its own
// goroutine so the engine loop never waits on the UI.
type ProgramListener struct {
	msgs chan tea.Msg
	done chan struct{}
	once sync.Once
	log  zerolog.Logger
	now  func() time.Time
}

var _ proximity.Listener = (*ProgramListener)(nil)

// NewProgramListener creates a listener buffering up to size messages.
func NewProgramListener(size int, log zerolog.Logger) *ProgramListener {
	return &ProgramListener{
		msgs: make(chan tea.Msg, size),
		done: make(chan struct{}),
		log:  log,
		now:  time.Now,
	}
}

// Run forwards messages to s until ctx is cancelled. Later notifications are dropped.
func (l *ProgramListener) Run(ctx context.Context, s Sender) {
	defer l.once.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-l.msgs:
			s.Send(msg)
		}
	}
}

func (l *ProgramListener) deliver(msg tea.Msg) {
	select {
	case l.msgs <- msg:
	case <-l.done:
		l.log.Trace().Type("msg", msg).Msg("ui gone, dropping notification")
	}
}

func (l *ProgramListener) OnDeviceNew(d proximity.Device) {
	l.deliver(DeviceMsg{Event: proximity.EventNew, Device: d})
}

func (l *ProgramListener) OnDeviceUpdated(d proximity.Device) {
	l.deliver(DeviceMsg{Event: proximity.EventUpdated, Device: d})
}

func (l *ProgramListener) OnDeviceRemoved(d proximity.Device) {
	l.deliver(DeviceMsg{Event: proximity.EventRemoved, Device: d})
}

func (l *ProgramListener) OnRssiUpdate(raw, estimated *int, active bool) {
	l.deliver(RssiMsg{Raw: raw, Estimated: estimated, Active: active})
}

func (l *ProgramListener) OnPresenceChanged(present bool, reason string) {
	l.deliver(PresenceMsg{Present: present, Reason: reason, At: l.now()})
}

func (l *ProgramListener) OnPowerWarning() {
	l.deliver(PowerWarningMsg{})
}
