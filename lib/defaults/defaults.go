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

// Package defaults contains the default settings used across the wideq
// codebase. Protocol constants that can never change live in the root
// package instead.
package defaults

import "time"

const (
	// GatewayURL is the v2 endpoint discovery service.
	GatewayURL = "https://route.lgthinq.com:46030/v1/service/application/gateway-uri"

	// LegacyGatewayURL is the wrapped-POST endpoint discovery service.
	LegacyGatewayURL = "https://kic.lgthinq.com:46030/api/common/gatewayUriList"

	// Country is the country code assumed when none is configured.
	Country = "US"

	// Language is the language code assumed when none is configured.
	Language = "en-US"
)

const (
	// HTTPRequestTimeout bounds a single API request attempt.
	HTTPRequestTimeout = 10 * time.Second

	// HTTPRetryAttempts is the total number of tries for one API request,
	// counting the first.
	HTTPRetryAttempts = 5

	// HTTPRetryBase is the delay after the first failed attempt. Each
	// further failure doubles it.
	HTTPRetryBase = 500 * time.Millisecond

	// HTTPRetryMax caps the delay between attempts.
	HTTPRetryMax = 8 * time.Second

	// MonitorInterval is the pause between monitor polls. Devices rarely
	// publish more than one snapshot per second.
	MonitorInterval = time.Second
)

const (
	// StateFile is the file the CLI persists client state in, relative to
	// the working directory unless overridden.
	StateFile = "wideq_state.json"

	// StateFileMode keeps persisted tokens private to the owner.
	StateFileMode = 0o600
)
