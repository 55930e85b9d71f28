package proximity

import "github.com/rs/zerolog"

// ScanController decides when the radio scans. Discovery wants a continuous
// scan; the monitor wants one until it switches to active polling, when the
// scan is suspended unless discovery still needs it or the radio answers
// signal reads from advertisements.
type ScanController struct {
	radio   Radio
	session *Session
	log     zerolog.Logger

	desired       bool
	running       bool
	pollNeedsScan bool
}

func newScanController(radio Radio, session *Session, log zerolog.Logger) *ScanController {
	c := &ScanController{radio: radio, session: session, log: log}
	if src, ok := radio.(SignalSource); ok && !src.SignalOverLink() {
		c.pollNeedsScan = true
	}
	return c
}

// Enable turns continuous discovery on.
func (c *ScanController) Enable() {
	c.desired = true
	c.Resume()
}

// Disable turns continuous discovery off. The radio scan keeps running while
// the monitor still depends on sightings.
func (c *ScanController) Disable() {
	c.desired = false
	if (c.session.Polling && !c.pollNeedsScan) || c.session.Monitored == "" {
		c.stop()
	}
}

// Desired reports whether continuous discovery is on.
func (c *ScanController) Desired() bool {
	return c.desired
}

// Running reports whether the radio scan is believed to be active.
func (c *ScanController) Running() bool {
	return c.running
}

// Resume starts the radio scan unless it is already running.
func (c *ScanController) Resume() {
	if c.running {
		return
	}
	if err := c.radio.StartScan(); err != nil {
		c.log.Warn().Err(err).Msg("failed to start scan")
		return
	}
	c.running = true
	c.log.Debug().Msg("scan started")
}

// Suspend stops the radio scan unless discovery wants it.
func (c *ScanController) Suspend() {
	if c.desired {
		return
	}
	c.stop()
}

// ScansWhilePolling reports whether active polling still depends on the scan.
func (c *ScanController) ScansWhilePolling() bool {
	return c.pollNeedsScan
}

// PollingStarted suspends the scan for active polling when the radio reads
// the signal over the link.
func (c *ScanController) PollingStarted() {
	if c.pollNeedsScan {
		return
	}
	c.Suspend()
}

// PowerLost records that the adapter dropped the scan.
func (c *ScanController) PowerLost() {
	c.running = false
}

func (c *ScanController) stop() {
	if !c.running {
		return
	}
	if err := c.radio.StopScan(); err != nil {
		c.log.Warn().Err(err).Msg("failed to stop scan")
	}
	c.running = false
	c.log.Debug().Msg("scan stopped")
}
