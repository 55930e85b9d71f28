// Package eventbus publishes proximity engine events to NATS subjects so other
// processes can react to presence changes.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"ble-proximity.klederson.com/internal/config"
	"ble-proximity.klederson.com/internal/proximity"
)

// Subject suffixes below the configured prefix.
const (
	SubjectDeviceNew     = "device.new"
	SubjectDeviceUpdated = "device.updated"
	SubjectDeviceRemoved = "device.removed"
	SubjectRSSI          = "rssi"
	SubjectPresence      = "presence"
	SubjectPower         = "power"
)

// Event is the envelope of every published message.
type Event struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Source string          `json:"source"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// DevicePayload describes a registry device.
type DevicePayload struct {
	Identity    string  `json:"identity"`
	RSSI        int     `json:"rssi"`
	Distance    float64 `json:"distance_m"`
	State       string  `json:"state"`
	Description string  `json:"description"`
	DisplayName string  `json:"display_name,omitempty"`
	Vendor      string  `json:"vendor,omitempty"`
	Model       string  `json:"model,omitempty"`
	Address     string  `json:"address,omitempty"`
}

// RSSIPayload carries a monitored-device reading. Nil values mean the signal was lost.
type RSSIPayload struct {
	Raw       *int `json:"raw"`
	Estimated *int `json:"estimated"`
	Active    bool `json:"active"`
}

// PresencePayload carries a presence transition.
type PresencePayload struct {
	Present bool   `json:"present"`
	Reason  string `json:"reason"`
}

// Publisher is a proximity.Listener that publishes each event on NATS.
// Publishing is buffered by the client, so listener calls do not block the
// engine loop on the network.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	source string
	log    zerolog.Logger
	now    func() time.Time
}

var _ proximity.Listener = (*Publisher)(nil)

// NewPublisher wraps an existing connection.
func NewPublisher(nc *nats.Conn, prefix, source string, log zerolog.Logger) *Publisher {
	return &Publisher{
		nc:     nc,
		prefix: prefix,
		source: source,
		log:    log,
		now:    time.Now,
	}
}

// Connect dials the configured server and returns a publisher owning the connection.
func Connect(cfg config.NATSConfig, log zerolog.Logger, extraOpts ...nats.Option) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Str("subject", cfg.Subject).Msg("publishing proximity events")
	return NewPublisher(nc, cfg.Subject, cfg.Name, log), nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

// Subject returns the full subject for a suffix.
func (p *Publisher) Subject(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "." + suffix
}

func (p *Publisher) OnDeviceNew(d proximity.Device) {
	p.publish(SubjectDeviceNew, devicePayload(d))
}

func (p *Publisher) OnDeviceUpdated(d proximity.Device) {
	p.publish(SubjectDeviceUpdated, devicePayload(d))
}

func (p *Publisher) OnDeviceRemoved(d proximity.Device) {
	p.publish(SubjectDeviceRemoved, devicePayload(d))
}

func (p *Publisher) OnRssiUpdate(raw, estimated *int, active bool) {
	p.publish(SubjectRSSI, RSSIPayload{Raw: raw, Estimated: estimated, Active: active})
}

func (p *Publisher) OnPresenceChanged(present bool, reason string) {
	p.publish(SubjectPresence, PresencePayload{Present: present, Reason: reason})
}

func (p *Publisher) OnPowerWarning() {
	p.publish(SubjectPower, nil)
}

func devicePayload(d proximity.Device) DevicePayload {
	return DevicePayload{
		Identity:    d.Identity.String(),
		RSSI:        d.RSSI,
		Distance:    d.Distance,
		State:       d.State.String(),
		Description: d.Description,
		DisplayName: d.DisplayName,
		Vendor:      d.Vendor,
		Model:       d.Model,
		Address:     d.ResolvedAddress,
	}
}

func (p *Publisher) publish(suffix string, data any) {
	subject := p.Subject(suffix)

	ev := Event{
		ID:     uuid.New().String(),
		Type:   suffix,
		Source: p.source,
		Time:   p.now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			p.log.Error().Err(err).Str("subject", subject).Msg("failed to marshal event")
			return
		}
		ev.Data = raw
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("subject", subject).Msg("failed to marshal event")
		return
	}

	if err := p.nc.Publish(subject, body); err != nil {
		p.log.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
		return
	}
	p.log.Trace().Str("subject", subject).Str("event_id", ev.ID).Msg("published")
}
