/*
 * wideq
 * Copyright (C) 2026  wideq contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package monitor drives the server-side monitoring tasks that stream
// appliance status snapshots. Tasks expire on the server after a while;
// the monitor restarts them transparently and keeps polling.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/core"
	"github.com/sampsyo/wideq/lib/defaults"
	logutils "github.com/sampsyo/wideq/lib/utils/log"
)

var log = logutils.NewPackageLogger(wideq.ComponentKey, wideq.ComponentMonitor)

// ErrStopPolling stops a Run loop from inside its handler without
// reporting an error.
var ErrStopPolling = errors.New("stop polling")

// Poller is the subset of the session API a monitor drives.
type Poller interface {
	// MonitorStart begins a monitoring task and returns its work ID.
	MonitorStart(ctx context.Context, deviceID string) (string, error)
	// MonitorPoll fetches a task result; nil data means nothing fresh.
	MonitorPoll(ctx context.Context, deviceID, workID string) ([]byte, error)
	// MonitorStop ends a monitoring task.
	MonitorStop(ctx context.Context, deviceID, workID string) error
}

// Config configures a Monitor.
type Config struct {
	// Poller issues the monitoring calls, normally a session.
	Poller Poller
	// DeviceID is the appliance to monitor.
	DeviceID string
	// Interval is the pause between polls in Run.
	Interval time.Duration
	// Clock overrides time in tests.
	Clock clockwork.Clock
}

// CheckAndSetDefaults checks and sets defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Poller == nil {
		return trace.BadParameter("missing parameter Poller")
	}
	if c.DeviceID == "" {
		return trace.BadParameter("missing parameter DeviceID")
	}
	if c.Interval == 0 {
		c.Interval = defaults.MonitorInterval
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Monitor owns one server-side monitoring task for one device. It is
// driven from a single goroutine; it is not safe for concurrent use.
type Monitor struct {
	cfg    Config
	workID string
	active bool
}

// New returns a Monitor from cfg. The task does not start until Start or
// Run is called.
func New(cfg Config) (*Monitor, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Monitor{cfg: cfg}, nil
}

// Start begins the monitoring task.
func (m *Monitor) Start(ctx context.Context) error {
	if m.active {
		return trace.AlreadyExists("monitoring already started for device %v", m.cfg.DeviceID)
	}
	workID, err := m.cfg.Poller.MonitorStart(ctx, m.cfg.DeviceID)
	if err != nil {
		return trace.Wrap(err)
	}
	m.workID = workID
	m.active = true
	return nil
}

// Poll fetches one result from the task. Nil data with a nil error means
// the task has nothing fresh: it is warming up, the device published no
// new snapshot, or the task expired and was just restarted. In the
// restart case the next poll reads from the fresh task.
func (m *Monitor) Poll(ctx context.Context) ([]byte, error) {
	if !m.active {
		return nil, trace.BadParameter("monitoring is not active for device %v", m.cfg.DeviceID)
	}
	data, err := m.cfg.Poller.MonitorPoll(ctx, m.cfg.DeviceID, m.workID)
	if err == nil {
		return data, nil
	}
	if !core.IsMonitorError(err) {
		return nil, trace.Wrap(err)
	}

	// The server expires monitoring tasks after a while. Stop and start
	// to obtain a fresh one, and let the caller treat this tick as empty.
	log.DebugContext(ctx, "Monitoring task expired, restarting",
		"device_id", m.cfg.DeviceID,
		"work_id", m.workID,
	)
	m.Stop(ctx)
	if err := m.Start(ctx); err != nil {
		return nil, trace.Wrap(err)
	}
	return nil, nil
}

// Stop ends the monitoring task. Stopping is best effort: the task expires
// server-side anyway, so errors are logged and swallowed. Stopping an
// inactive monitor is a no-op.
func (m *Monitor) Stop(ctx context.Context) {
	if !m.active {
		return
	}
	if err := m.cfg.Poller.MonitorStop(ctx, m.cfg.DeviceID, m.workID); err != nil {
		log.DebugContext(ctx, "Failed to stop monitoring task",
			"device_id", m.cfg.DeviceID,
			"work_id", m.workID,
			"error", err,
		)
	}
	m.workID = ""
	m.active = false
}

// Run starts the task and invokes handle for every snapshot until ctx is
// canceled or handle returns an error. Empty ticks are skipped. Returning
// ErrStopPolling from handle stops the loop and reports success. The task
// is stopped on every exit path.
func (m *Monitor) Run(ctx context.Context, handle func(data []byte) error) error {
	if err := m.Start(ctx); err != nil {
		return trace.Wrap(err)
	}
	defer func() {
		// The loop usually exits on cancellation, which would cancel the
		// stop request too, so it gets its own deadline.
		stopCtx, cancel := context.WithTimeout(context.Background(), defaults.HTTPRequestTimeout)
		defer cancel()
		m.Stop(stopCtx)
	}()

	ticker := m.cfg.Clock.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return trace.Wrap(ctx.Err())
		case <-ticker.Chan():
		}

		data, err := m.Poll(ctx)
		if err != nil {
			return trace.Wrap(err)
		}
		if data == nil {
			continue
		}
		if err := handle(data); err != nil {
			if errors.Is(err, ErrStopPolling) {
				return nil
			}
			return trace.Wrap(err)
		}
	}
}
