package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ble-proximity.klederson.com/internal/app"
	"ble-proximity.klederson.com/internal/bluetooth"
	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/logger"
	"ble-proximity.klederson.com/internal/proximity"
)

var (
	flagConfig    string
	flagDemo      bool
	flagAdapter   string
	flagMonitor   string
	flagPassive   bool
	flagDiscover  bool
	flagLogLevel  string
	flagLogDebug  bool
	flagLogOutput string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ble-proximity",
		Short: "BLE Proximity - Bluetooth presence monitor with a radar display",
		Long: `BLE Proximity discovers Bluetooth Low Energy devices and tracks the presence
of one monitored device, reporting it close or away from its signal strength.

Requires sudo or CAP_NET_ADMIN capability for real Bluetooth scanning.
Use --demo flag for demonstration mode without Bluetooth hardware.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	pf.BoolVar(&flagDemo, "demo", false, "Run in demo mode with simulated devices (no Bluetooth required)")
	pf.StringVar(&flagAdapter, "adapter", "hci0", "Bluetooth adapter to use")
	pf.StringVar(&flagMonitor, "monitor", "", "Identity of the device to monitor on start")
	pf.BoolVar(&flagPassive, "passive", false, "Monitor from advertisements only, without a connection")
	pf.BoolVar(&flagDiscover, "discover", true, "Start device discovery immediately")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	pf.BoolVar(&flagLogDebug, "log-debug", false, "Shorthand for --log-level=debug")
	pf.StringVar(&flagLogOutput, "log-output", "stderr", "Log output: stderr, stdout, none or a file path")

	rootCmd.AddCommand(newWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings reads the config file and applies the flags the user set.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	s, err := config.Load(flagConfig)
	if err != nil {
		return s, err
	}

	flags := cmd.Flags()
	if flags.Changed("adapter") {
		s.Adapter = flagAdapter
	}
	if flags.Changed("monitor") {
		s.Monitor = flagMonitor
	}
	if flags.Changed("passive") {
		s.Passive = flagPassive
	}
	if flags.Changed("discover") {
		s.Discover = flagDiscover
	}
	if flags.Changed("log-level") {
		s.Log.Level = flagLogLevel
	}
	if flags.Changed("log-debug") {
		s.Log.Debug = flagLogDebug
	}
	if flags.Changed("log-output") {
		s.Log.Output = flagLogOutput
	}

	if s.Monitor != "" {
		if _, err := proximity.ParseIdentity(s.Monitor); err != nil {
			return s, fmt.Errorf("--monitor: %w", err)
		}
	}
	return s, s.Validate()
}

// radio is a proximity.Radio that can be bound to an engine and released.
type radio interface {
	proximity.Radio
	Attach(events proximity.RadioEvents) error
	Close()
}

func newRadio(log zerolog.Logger) radio {
	if flagDemo {
		return bluetooth.NewDemoRadio(time.Now().UnixNano(), logger.Component(log, "demo"))
	}
	return bluetooth.NewBLERadio(logger.Component(log, "radio"))
}

// startEngine runs the engine, binds the radio and applies the start-up
// settings. The caller cancels ctx and closes the radio to stop.
func startEngine(ctx context.Context, s config.Settings, r radio, listener proximity.Listener, log zerolog.Logger) (*proximity.Engine, error) {
	engine := proximity.New(r, listener, s.Proximity,
		proximity.WithLogger(logger.Component(log, "engine")),
		proximity.WithResolver(bluetooth.NewCacheResolver(bluetooth.DefaultBlueZRoot, logger.Component(log, "resolver"))),
	)
	go func() {
		if err := engine.Run(ctx); err != nil {
			log.Error().Err(err).Msg("engine stopped")
		}
	}()

	if err := r.Attach(engine); err != nil {
		return nil, err
	}

	var errs []error
	if s.Passive {
		errs = append(errs, engine.SetPassiveMode(true))
	}
	if s.Discover {
		errs = append(errs, engine.StartScanning())
	}
	if s.Monitor != "" {
		errs = append(errs, engine.StartMonitoring(s.Monitor))
	}
	return engine, errors.Join(errs...)
}

func printPermissionHelp(err error) {
	fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
	fmt.Fprintln(os.Stderr, "Bluetooth scanning requires elevated permissions.")
	fmt.Fprintln(os.Stderr, "Try one of:")
	fmt.Fprintln(os.Stderr, "  sudo ./ble-proximity")
	fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./ble-proximity")
	fmt.Fprintln(os.Stderr, "  ./ble-proximity --demo    (demo mode, no hardware needed)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// The TUI owns the terminal.
	switch strings.ToLower(s.Log.Output) {
	case "", "stderr", "stdout":
		s.Log.Output = config.TUILogFile
	}
	log, closeLog, err := logger.Init(s.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	listener := app.NewProgramListener(config.EventQueueSize, logger.Component(log, "ui"))
	listeners := proximity.Listeners{listener, proximity.NewLogListener(logger.Component(log, "events"))}

	r := newRadio(log)
	defer r.Close()

	engine, err := startEngine(ctx, s, r, listeners, log)
	if err != nil {
		if engine == nil && !flagDemo {
			printPermissionHelp(err)
		}
		return err
	}

	model := app.New(engine, app.Options{
		Adapter:   s.Adapter,
		Demo:      flagDemo,
		Scanning:  s.Discover,
		Passive:   s.Passive,
		Proximity: s.Proximity,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithFPS(30),
	)
	go listener.Run(ctx, p)

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		err = nil
	}
	return err
}
