package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ble-proximity.klederson.com/internal/eventbus"
	"ble-proximity.klederson.com/internal/logger"
	"ble-proximity.klederson.com/internal/proximity"
)

var flagNATSURL string

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run headless, logging device and presence events",
		Long: `watch runs the proximity engine without the terminal UI. Every event is
written to the log and, when NATS is enabled in the config or --nats-url is
given, published on <subject>.device.*, .rssi, .presence and .power.`,
		SilenceUsage: true,
		RunE:         runWatch,
	}
	cmd.Flags().StringVar(&flagNATSURL, "nats-url", "", "Publish events to this NATS server")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if flagNATSURL != "" {
		s.NATS.Enabled = true
		s.NATS.URL = flagNATSURL
	}

	log, closeLog, err := logger.Init(s.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listeners := proximity.Listeners{proximity.NewLogListener(logger.Component(log, "events"))}
	if s.NATS.Enabled {
		pub, err := eventbus.Connect(s.NATS, logger.Component(log, "eventbus"))
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		listeners = append(listeners, pub)
	}

	r := newRadio(log)
	defer r.Close()

	engine, err := startEngine(ctx, s, r, listeners, log)
	if err != nil {
		if engine == nil && !flagDemo {
			printPermissionHelp(err)
		}
		return err
	}

	log.Info().
		Str("adapter", s.Adapter).
		Bool("demo", flagDemo).
		Str("monitor", s.Monitor).
		Msg("watching")

	<-ctx.Done()
	<-engine.Done()
	log.Info().Msg("stopped")
	return nil
}
