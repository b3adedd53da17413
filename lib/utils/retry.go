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

package utils

import (
	"fmt"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
)

// ExponentialConfig sets up an exponential retry driver.
type ExponentialConfig struct {
	// Base is the delay after the first failed attempt. Every further
	// failure doubles it. Can't be 0.
	Base time.Duration
	// Max caps the delay between attempts. Can't be 0.
	Max time.Duration
	// Clock overrides the clock in tests.
	Clock clockwork.Clock
}

// CheckAndSetDefaults checks and sets defaults.
func (c *ExponentialConfig) CheckAndSetDefaults() error {
	if c.Base <= 0 {
		return trace.BadParameter("missing parameter Base")
	}
	if c.Max <= 0 {
		return trace.BadParameter("missing parameter Max")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// NewExponential returns a retry driver whose delay doubles with every
// recorded failure: Base, 2*Base, 4*Base and so on, capped at Max.
func NewExponential(cfg ExponentialConfig) (*Exponential, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	closedChan := make(chan time.Time)
	close(closedChan)
	return &Exponential{ExponentialConfig: cfg, closedChan: closedChan}, nil
}

// Exponential calculates retry delays on a doubling progression. Before the
// first failure is recorded the delay is zero, so a retry loop's first pass
// runs immediately. Not safe for concurrent use.
type Exponential struct {
	ExponentialConfig
	attempt    int64
	closedChan chan time.Time
}

// Reset resets the driver to its initial state.
func (r *Exponential) Reset() {
	r.attempt = 0
}

// Inc records a failed attempt, growing the next delay.
func (r *Exponential) Inc() {
	r.attempt++
}

// Duration returns the delay before the next attempt.
func (r *Exponential) Duration() time.Duration {
	if r.attempt < 1 {
		return 0
	}
	d := r.Base
	for i := int64(1); i < r.attempt && d < r.Max; i++ {
		d *= 2
	}
	if d > r.Max {
		return r.Max
	}
	return d
}

// After returns a channel that fires after the Duration delay. As a special
// case it fires immediately when the delay is zero.
func (r *Exponential) After() <-chan time.Time {
	d := r.Duration()
	if d < 1 {
		return r.closedChan
	}
	return r.Clock.After(d)
}

// String returns a user-friendly representation of the driver state.
func (r *Exponential) String() string {
	return fmt.Sprintf("Exponential(attempt=%v, duration=%v)", r.attempt, r.Duration())
}
