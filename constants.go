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

// Package wideq holds the protocol constants shared by every layer of the
// SmartThinQ client. The values are fixed properties of the vendor API, not
// tunables; runtime defaults live in lib/defaults.
package wideq

const (
	// AppKey is the application key sent with every legacy request.
	AppKey = "wideq"

	// SecurityKey is the static security key sent with every legacy request.
	SecurityKey = "nuts_securitykey"

	// SvcCode identifies the home appliance service.
	SvcCode = "SVC202"

	// SvcPhase is the service phase reported by the official client.
	SvcPhase = "OP"

	// OAuthSecretKey signs OAuth token requests.
	OAuthSecretKey = "c053c2a6ddeb7ad97cb0eed0dcb31cf8"

	// OAuthClientKey is the OAuth client identifier issued to the
	// official mobile application.
	OAuthClientKey = "LGAO221A02"

	// ClientID identifies this client on v2 endpoints. The server accepts
	// any stable string here; we reuse the OAuth client key.
	ClientID = OAuthClientKey

	// APIKey is the static v2 API key.
	APIKey = "VGhpblEyLjAgU0VSVklDRQ=="

	// MessageID labels v2 requests for server-side tracing.
	MessageID = "wideq"

	// AppLevel, AppOS, AppType and AppVer describe the official client
	// build. The v2 endpoints reject requests without them.
	AppLevel = "PRD"
	AppOS    = "ANDROID"
	AppType  = "NUTS"
	AppVer   = "3.5.1200"

	// OAuthRedirectURI is the fixed redirect target registered for the
	// authorization-code login flow.
	OAuthRedirectURI = "https://kr.m.lgaccount.com/login/iabClose"

	// OAuthTimestampFormat renders the timestamp that OAuth request
	// signatures cover. The zone is always rendered as a literal +0000;
	// timestamps must be generated in UTC.
	OAuthTimestampFormat = "Mon, 02 Jan 2006 15:04:05 +0000"
)

const (
	// DataRootLegacy is the wrapper key enclosing every legacy request and
	// response body.
	DataRootLegacy = "lgedmRoot"

	// DataRootResult is the wrapper key enclosing v2 response bodies.
	DataRootResult = "result"

	// ReturnCodeLegacy is the field carrying the API return code inside a
	// legacy response.
	ReturnCodeLegacy = "returnCd"

	// ReturnMessageLegacy is the field carrying the human-readable return
	// message inside a legacy response.
	ReturnMessageLegacy = "returnMsg"

	// ReturnCodeResult is the field carrying the API return code at the
	// top level of a v2 response.
	ReturnCodeResult = "resultCode"

	// SuccessCode is the return code reported for successful requests.
	SuccessCode = "0000"
)

const (
	// ComponentKey is the log attribute identifying the component
	// emitting a record.
	ComponentKey = "component"

	// ComponentTransport identifies the signed HTTP transport.
	ComponentTransport = "transport"

	// ComponentGateway identifies endpoint discovery.
	ComponentGateway = "gateway"

	// ComponentAuth identifies the credential and token refresh layer.
	ComponentAuth = "auth"

	// ComponentSession identifies the authenticated RPC layer.
	ComponentSession = "session"

	// ComponentMonitor identifies device monitoring jobs.
	ComponentMonitor = "monitor"

	// ComponentModel identifies the model schema engine.
	ComponentModel = "model"

	// ComponentClient identifies the client facade.
	ComponentClient = "client"

	// ComponentCLI identifies the command-line front end.
	ComponentCLI = "cli"
)
