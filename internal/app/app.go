package app

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/proximity"
	"ble-proximity.klederson.com/internal/radar"
	"ble-proximity.klederson.com/internal/ui"
)

// Controller is the engine surface the UI drives. Every method may block on
// the engine loop, so the model only calls them from commands.
type Controller interface {
	StartScanning() error
	StopScanning() error
	SetPassiveMode(enabled bool) error
	StartMonitoring(id string) error
	StopMonitoring() error
	ConnectDevice(id string) error
	DisconnectDevice(id string) error
	ReadSignal(id string) error
	Session() (proximity.SessionState, error)
}

// Options configures the model.
type Options struct {
	Adapter   string
	Demo      bool
	Scanning  bool
	Passive   bool
	Proximity config.ProximityConfig
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	store     *DeviceStore
	sweep     *radar.Sweep
	estimates *RSSIRing
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	width  int
	height int

	ctrl Controller
	opts Options

	scanning bool
	cursor   int
	detail   proximity.Identity
	frames   int
	message  string

	session      proximity.SessionState
	lastRaw      *int
	lastEst      *int
	active       bool
	presenceLog  []ui.PresenceEntry
	powerWarning bool

	shared *shared

	// Cached snapshot
	devices []proximity.Device
}

// New creates a new AppModel driving ctrl.
func New(ctrl Controller, opts Options) AppModel {
	return AppModel{
		ctrl:     ctrl,
		opts:     opts,
		scanning: opts.Scanning,
		session:  proximity.SessionState{Mode: modeOf(opts.Passive)},
		shared: &shared{
			store:     NewDeviceStore(),
			sweep:     radar.NewSweep(time.Now()),
			estimates: NewRSSIRing(config.SparklineLength),
		},
	}
}

func modeOf(passive bool) proximity.Mode {
	if passive {
		return proximity.ModePassive
	}
	return proximity.ModeActive
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.sessionCmd(),
	)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.shared.sweep.Update(time.Time(msg))
		m.devices = m.shared.store.Snapshot()
		m.clampCursor()
		m.frames++
		if m.frames%config.TargetFPS == 0 {
			return m, tea.Batch(tickCmd(), m.sessionCmd())
		}
		return m, tickCmd()

	case DeviceMsg:
		m.shared.store.Apply(msg)
		if msg.Event == proximity.EventRemoved && msg.Device.Identity == m.detail {
			m.detail = ""
		}
		return m, nil

	case RssiMsg:
		m.lastRaw = msg.Raw
		m.lastEst = msg.Estimated
		m.active = msg.Active
		if msg.Estimated != nil {
			m.shared.estimates.Push(float64(*msg.Estimated))
		}
		return m, nil

	case PresenceMsg:
		m.session.Presence = msg.Present
		m.presenceLog = append(m.presenceLog, ui.PresenceEntry{At: msg.At, Present: msg.Present, Reason: msg.Reason})
		if len(m.presenceLog) > config.PresenceLogLength {
			m.presenceLog = m.presenceLog[len(m.presenceLog)-config.PresenceLogLength:]
		}
		return m, m.sessionCmd()

	case PowerWarningMsg:
		m.powerWarning = true
		return m, nil

	case SessionMsg:
		if msg.State.Monitored != m.session.Monitored {
			m.resetMonitor()
		}
		m.session = msg.State
		return m, nil

	case CommandResultMsg:
		if msg.Err != nil {
			m.message = fmt.Sprintf("%s failed: %v", msg.Action, msg.Err)
		} else {
			m.message = ""
		}
		if msg.Action == actionSession {
			return m, nil
		}
		return m, m.sessionCmd()
	}

	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "s", "S":
		m.scanning = !m.scanning
		if m.scanning {
			return m, m.command("scan", m.ctrl.StartScanning)
		}
		m.detail = ""
		return m, m.command("stop scan", m.ctrl.StopScanning)

	case "m", "M":
		if d, ok := m.selected(); ok {
			m.powerWarning = false
			id := d.Identity.String()
			return m, m.command("monitor", func() error { return m.ctrl.StartMonitoring(id) })
		}

	case "x", "X":
		m.powerWarning = false
		return m, m.command("stop monitor", m.ctrl.StopMonitoring)

	case "a", "A":
		passive := m.session.Mode != proximity.ModePassive
		m.session.Mode = modeOf(passive)
		return m, m.command("mode", func() error { return m.ctrl.SetPassiveMode(passive) })

	case "c", "C":
		return m, m.onSelected("connect", m.ctrl.ConnectDevice)

	case "d", "D":
		return m, m.onSelected("disconnect", m.ctrl.DisconnectDevice)

	case "r", "R":
		return m, m.onSelected("read", m.ctrl.ReadSignal)

	case "enter":
		if d, ok := m.selected(); ok {
			m.detail = d.Identity
		}

	case "esc":
		m.detail = ""

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.devices)-1 {
			m.cursor++
		}

	case "home":
		m.cursor = 0

	case "end":
		if len(m.devices) > 0 {
			m.cursor = len(m.devices) - 1
		}
	}

	return m, nil
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing BLE Proximity..."
	}

	menuH := 1
	statusH := 1
	bodyH := max(m.height-menuH-statusH, 10)

	mainW := max(m.width*3/5, 30)
	sideW := m.width - mainW
	if sideW < 24 {
		sideW = 24
		mainW = max(m.width-sideW, 30)
	}

	menuBar := ui.RenderMenuBar(m.width, ui.MenuState{
		Adapter:  m.opts.Adapter,
		Demo:     m.opts.Demo,
		Scanning: m.scanning,
		Mode:     m.session.Mode,
	})

	th := radar.ThresholdsFor(m.opts.Proximity)
	var main string
	if d, ok := m.shared.store.Get(m.detail); ok && m.detail != "" {
		main = ui.RenderDetailPanel(d, mainW, bodyH, m.shared.store.History(d.Identity), time.Now())
	} else {
		innerW := max(mainW-4, 5)
		innerH := max(bodyH-4, 3)
		blips := radar.Blips(m.devices, m.session.Monitored, m.monitoredRSSI())
		content := radar.Render(innerW, innerH, blips, m.shared.sweep, th)
		main = ui.RenderRadarPanel(mainW, bodyH, content, radar.RenderLegend(innerW, th))
	}

	presenceH := max(bodyH*2/5, 10)
	listH := max(bodyH-presenceH, 5)
	presence := ui.RenderPresencePanel(sideW, presenceH, ui.PresenceView{
		Session:      m.session,
		Raw:          m.lastRaw,
		Estimated:    m.lastEst,
		Active:       m.active,
		Estimates:    m.shared.estimates.Values(),
		Log:          m.presenceLog,
		PowerWarning: m.powerWarning,
		Thresholds:   m.opts.Proximity,
	})
	list := ui.RenderDeviceList(m.devices, sideW, listH, m.cursor, m.session.Monitored)

	statusBar := ui.RenderStatusBar(m.width, ui.StatusInfo{
		Devices:   m.shared.store.Count(),
		Linked:    m.shared.store.CountLinked(),
		Monitored: m.session.Monitored,
		Present:   m.session.Presence,
		PowerOff:  m.powerWarning,
		SweepDeg:  m.shared.sweep.Degrees(),
		MaxRange:  config.MaxRange,
		Message:   m.message,
	})

	return ui.ComposeLayout(menuBar, main, ui.ComposeSide(presence, list), statusBar)
}

func (m *AppModel) clampCursor() {
	if m.cursor >= len(m.devices) {
		m.cursor = max(len(m.devices)-1, 0)
	}
}

func (m *AppModel) resetMonitor() {
	m.lastRaw = nil
	m.lastEst = nil
	m.active = false
	m.presenceLog = nil
	m.shared.estimates.Reset()
}

func (m AppModel) selected() (proximity.Device, bool) {
	if m.cursor < 0 || m.cursor >= len(m.devices) {
		return proximity.Device{}, false
	}
	return m.devices[m.cursor], true
}

// monitoredRSSI is the best current reading of the monitored device.
func (m AppModel) monitoredRSSI() *int {
	if m.lastEst != nil {
		return m.lastEst
	}
	return m.lastRaw
}

func (m AppModel) command(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Action: action, Err: fn()}
	}
}

func (m AppModel) onSelected(action string, fn func(id string) error) tea.Cmd {
	d, ok := m.selected()
	if !ok {
		return nil
	}
	id := d.Identity.String()
	return m.command(action, func() error { return fn(id) })
}

const actionSession = "session"

func (m AppModel) sessionCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		st, err := ctrl.Session()
		if err != nil {
			return CommandResultMsg{Action: actionSession, Err: err}
		}
		return SessionMsg{State: st}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
