package proximity

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ble-proximity.klederson.com/internal/config"
)

type engineFixture struct {
	t        *testing.T
	engine   *Engine
	radio    *fakeRadio
	listener *recordingListener
	clock    *manualClock
	cancel   context.CancelFunc
}

func startEngine(t *testing.T, opts ...Option) *engineFixture {
	t.Helper()

	f := &engineFixture{
		t:        t,
		radio:    &fakeRadio{},
		listener: &recordingListener{},
		clock:    newManualClock(),
	}
	opts = append([]Option{WithClock(f.clock), WithLogger(zerolog.Nop()), WithQueueSize(16)}, opts...)
	f.engine = New(f.radio, f.listener, config.DefaultProximity(), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	errc := make(chan error, 1)
	go func() { errc <- f.engine.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return f
}

// sync waits until everything queued so far has been processed.
func (f *engineFixture) sync() SessionState {
	f.t.Helper()
	st, err := f.engine.Session()
	require.NoError(f.t, err)
	return st
}

// advance moves the clock in steps, letting the loop catch up after each.
func (f *engineFixture) advance(total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		f.clock.Advance(step)
		f.sync()
	}
}

func TestEngine_RejectsInvalidIdentity(t *testing.T) {
	f := startEngine(t)

	require.ErrorIs(t, f.engine.StartMonitoring("nope"), ErrInvalidIdentity)
	require.ErrorIs(t, f.engine.ConnectDevice(""), ErrInvalidIdentity)
	require.ErrorIs(t, f.engine.DisconnectDevice("12:34"), ErrInvalidIdentity)
	require.ErrorIs(t, f.engine.ReadSignal("zz"), ErrInvalidIdentity)

	st := f.sync()
	assert.Equal(t, Identity(""), st.Monitored)
	assert.Empty(t, f.radio.Calls())
}

func TestEngine_Stopped(t *testing.T) {
	e := New(&fakeRadio{}, nil, config.DefaultProximity(), WithClock(newManualClock()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	<-e.Done()

	assert.ErrorIs(t, e.StartScanning(), ErrEngineStopped)
	assert.ErrorIs(t, e.StartMonitoring(phoneID.String()), ErrEngineStopped)
	assert.Nil(t, e.Devices())
	st, err := e.Session()
	assert.ErrorIs(t, err, ErrEngineStopped)
	assert.Equal(t, SessionState{}, st)
	assert.ErrorIs(t, e.Run(context.Background()), ErrEngineRunning)

	// Radio events after shutdown are dropped without blocking.
	e.DeviceSighted(otherID, -50, Advertisement{})
}

func TestEngine_DiscoveryAndIdentification(t *testing.T) {
	f := startEngine(t)
	e := f.engine

	require.NoError(t, e.StartScanning())
	e.DeviceSighted(otherID, -72, Advertisement{})
	f.sync()
	assert.Empty(t, e.Devices(), "below the noise floor")

	e.DeviceSighted(otherID, -69, Advertisement{LocalName: "Band 7"})
	e.Connected(otherID)
	e.ServicesDiscovered(otherID, []string{"180A"})
	e.CharacteristicsDiscovered(otherID, "180A", []string{"2A29", "2A24"})
	e.CharacteristicValueRead(otherID, "2A29", []byte("Acme"))
	e.CharacteristicValueRead(otherID, "2A24", []byte("B7"))
	f.sync()

	assert.Equal(t, []string{
		"start-scan",
		"connect:" + otherID.String(),
		"discover-services:" + otherID.String(),
		"discover-characteristics:" + otherID.String(),
		"read-2A29:" + otherID.String(),
		"read-2A24:" + otherID.String(),
		"disconnect:" + otherID.String(),
	}, f.radio.Calls())

	devs := e.Devices()
	require.Len(t, devs, 1)
	assert.Equal(t, "Acme/B7", devs[0].Description)
	assert.Equal(t, "Band 7", devs[0].DisplayName)

	require.NoError(t, e.StopScanning())
	f.sync()
	assert.Empty(t, e.Devices())
	assert.Equal(t, "removed:"+otherID.String(), f.listener.Events()[len(f.listener.Events())-1])
	assert.Equal(t, "stop-scan", f.radio.Calls()[len(f.radio.Calls())-1])
}

func TestEngine_SightingsIgnoredWithoutDiscovery(t *testing.T) {
	f := startEngine(t)

	f.engine.DeviceSighted(otherID, -40, Advertisement{})
	f.sync()
	assert.Empty(t, f.listener.Events())
	assert.Empty(t, f.radio.Calls())
}

func TestEngine_Eviction(t *testing.T) {
	f := startEngine(t)
	require.NoError(t, f.engine.StartScanning())
	f.engine.DeviceSighted(otherID, -50, Advertisement{})
	f.sync()

	f.advance(config.DefaultSignalTimeout, 10*time.Second)
	assert.Empty(t, f.engine.Devices())
	assert.Contains(t, f.listener.Events(), "removed:"+otherID.String())

	f.engine.DeviceSighted(otherID, -50, Advertisement{})
	f.sync()
	assert.Equal(t, 2, f.listener.Count("new:"+otherID.String()))
}

func TestEngine_PresenceScenario(t *testing.T) {
	f := startEngine(t)
	e := f.engine

	require.NoError(t, e.StartMonitoring(strings.ToLower(phoneID.String())))
	require.NoError(t, e.SetPassiveMode(true))
	st := f.sync()
	require.Equal(t, phoneID, st.Monitored)
	require.True(t, st.Presence)
	require.Equal(t, ModePassive, st.Mode)

	e.DeviceSighted(phoneID, -80, Advertisement{})
	f.sync()
	f.advance(config.DefaultProximityTimeout, time.Second)
	require.False(t, f.sync().Presence)

	for _, rssi := range []int{-78, -65} {
		e.DeviceSighted(phoneID, rssi, Advertisement{})
		assert.False(t, f.sync().Presence)
	}

	e.DeviceSighted(phoneID, -60, Advertisement{})
	st = f.sync()
	assert.True(t, st.Presence)
	assert.Equal(t, []string{"presence:false:away", "presence:true:close"}, f.listener.Presence())
	assert.Equal(t, []int{-80, -78, -65, -60}, st.History)
	require.NotNil(t, st.Smoothed)
	assert.Zero(t, f.radio.Count("connect:"+phoneID.String()), "passive mode never connects")
}

func TestEngine_PowerOffScenario(t *testing.T) {
	f := startEngine(t)
	e := f.engine

	require.NoError(t, e.StartMonitoring(phoneID.String()))
	e.AdapterPowerChanged(false)
	e.AdapterPowerChanged(false)
	st := f.sync()
	assert.False(t, st.Presence)

	f.advance(2*config.DefaultSignalTimeout, 30*time.Second)
	assert.Equal(t, 1, f.listener.Count("power-warning"))
	assert.Zero(t, f.listener.Count("presence:false:lost"))

	f.radio.Reset()
	e.AdapterPowerChanged(true)
	f.sync()
	assert.Equal(t, []string{"start-scan"}, f.radio.Calls())
}

func TestEngine_ActivePollFallback(t *testing.T) {
	f := startEngine(t)
	e := f.engine

	require.NoError(t, e.StartMonitoring(phoneID.String()))
	e.DeviceSighted(phoneID, -55, Advertisement{})
	e.Connected(phoneID)
	e.SignalRead(phoneID, -54)
	st := f.sync()
	require.True(t, st.Polling)
	require.Equal(t, StateConnected, st.Link)

	f.advance(10*time.Second, 2*time.Second)
	assert.True(t, f.sync().Polling)

	f.advance(2*time.Second, 2*time.Second)
	st = f.sync()
	assert.False(t, st.Polling)
	assert.Equal(t, StateDisconnected, st.Link)
	assert.Equal(t, 1, f.radio.Count("disconnect:"+phoneID.String()))
	assert.Equal(t, "start-scan", f.radio.Calls()[len(f.radio.Calls())-1])
}

func TestEngine_ExplicitCommands(t *testing.T) {
	f := startEngine(t)
	e := f.engine

	require.NoError(t, e.ConnectDevice("aa:bb:cc:dd:ee:02"))
	require.NoError(t, e.ReadSignal(otherID.String()))
	require.NoError(t, e.DisconnectDevice(otherID.String()))
	f.sync()

	assert.Equal(t, []string{
		"connect:" + otherID.String(),
		"read-rssi:" + otherID.String(),
		"disconnect:" + otherID.String(),
	}, f.radio.Calls())
}

func TestEngine_StopMonitoring(t *testing.T) {
	f := startEngine(t)
	e := f.engine

	require.NoError(t, e.StartMonitoring(phoneID.String()))
	require.NoError(t, e.StopMonitoring())
	st := f.sync()
	assert.Equal(t, Identity(""), st.Monitored)

	f.advance(config.DefaultSignalTimeout, 30*time.Second)
	assert.Empty(t, f.listener.Events())
}

func TestEngine_ShutdownCancelsTimers(t *testing.T) {
	f := startEngine(t)
	require.NoError(t, f.engine.StartMonitoring(phoneID.String()))
	f.sync()

	f.cancel()
	<-f.engine.Done()

	f.clock.Advance(2 * config.DefaultSignalTimeout)
	assert.Empty(t, f.listener.Events())
}

func TestEngine_SubLoggersKeepCallerComponent(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel).With().Str("component", "engine").Logger()
	f := startEngine(t, WithLogger(log))

	require.NoError(t, f.engine.StartScanning())
	f.sync()

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "scan started") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, `"component"`), "no duplicate keys")
	assert.Contains(t, line, `"module":"scan"`)
}
