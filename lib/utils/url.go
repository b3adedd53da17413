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
	"net/url"
	"strings"
)

// JoinURL appends path segments to a base URL, tolerating trailing slashes
// on either side. The API roots from discovery come without one.
func JoinURL(base string, elems ...string) string {
	joined, err := url.JoinPath(base, elems...)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.Join(elems, "/")
	}
	return joined
}
