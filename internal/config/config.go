package config

import "time"

const (
	// RSSI to distance estimation
	ReferenceRSSI = -54.0 // RSSI at 1 meter (dBm)
	PathLossExp   = 2.0   // Path loss exponent (N)

	// Signal filtering
	SmoothingAlpha = 0.15 // EMA smoothing factor (15% new, 85% old)
	EstimateWindow = 5    // Samples averaged for the estimated RSSI
	HistoryWindow  = 20   // Raw samples retained for diagnostics

	// Threshold sentinels
	LockDisabled   = -100 // lockRssi value that disables the lock threshold
	UnlockDisabled = 1    // unlockRssi value that disables the unlock threshold

	// Proximity defaults
	DefaultLockRSSI           = -75
	DefaultUnlockRSSI         = -60
	DefaultThresholdRSSI      = -70
	DefaultProximityTimeout   = 5 * time.Second
	DefaultSignalTimeout      = 60 * time.Second
	DefaultConnectionTimeout  = 60 * time.Second
	DefaultActivePollInterval = 2 * time.Second
	DefaultActivePollStale    = 10 * time.Second

	// GATT identifiers
	ServiceDeviceInformation = "180A"
	ServiceExposureNotify    = "FD6F"
	ServiceHID               = "1812"
	CharManufacturerName     = "2A29"
	CharModelNumber          = "2A24"

	// Engine
	EventQueueSize = 256

	// UI
	TargetFPS         = 10
	SparklineLength   = 60
	PresenceLogLength = 8

	// Radar display
	MaxRange      = 20.0 // Meters at the outer ring
	RingCount     = 4
	AspectRatio   = 0.5 // Terminal cell height/width compensation
	SweepSpeedRPM = 12
	SweepTrailDeg = 40.0

	// Demo mode
	DemoTick = 500 * time.Millisecond

	// App
	AppName    = "BLE-PROXIMITY"
	AppVersion = "1.0"
	TUILogFile = "ble-proximity.log" // Used when the TUI owns the terminal
)
