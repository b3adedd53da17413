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

package client

import (
	"encoding/json"

	"github.com/sampsyo/wideq/lib/auth"
	"github.com/sampsyo/wideq/lib/gateway"
)

// State is the serializable checkpoint of a Client. Dumping after every
// command and loading on the next start avoids repeating discovery, token
// exchange and schema fetches. All fields are optional; a zero State is a
// fresh, unauthenticated client.
type State struct {
	// Gateway is the discovered endpoint set.
	Gateway *gateway.Gateway `json:"gateway,omitempty"`
	// Auth is the credential set.
	Auth *auth.Auth `json:"auth,omitempty"`
	// SessionID is the server-side session identifier, when the account
	// uses the original API.
	SessionID string `json:"session,omitempty"`
	// Model caches raw model schema documents keyed by their URL.
	Model map[string]json.RawMessage `json:"model_info,omitempty"`
	// Country is the account's country code.
	Country string `json:"country,omitempty"`
	// Language is the account's language code.
	Language string `json:"language,omitempty"`
}
