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

package core

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"time"

	"github.com/sampsyo/wideq"
)

// Sign computes the base64-encoded HMAC-SHA1 digest the OAuth endpoints
// require on token requests. The algorithm is fixed by the server side.
// Secret and message are both treated as UTF-8 text.
func Sign(message, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignatureMessage assembles the string an OAuth request signature covers:
// the request path with its query string, then the timestamp on a second
// line. The path must be encoded exactly as it is sent; the server
// recomputes the digest over the bytes it receives.
func SignatureMessage(pathWithQuery, timestamp string) string {
	return pathWithQuery + "\n" + timestamp
}

// OAuthTimestamp renders t in the format OAuth request signatures cover.
// The API expects UTC regardless of the local zone.
func OAuthTimestamp(t time.Time) string {
	return t.UTC().Format(wideq.OAuthTimestampFormat)
}
