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

// Package utils holds small helpers shared across the wideq packages.
package utils

// AsList reads obj[key], which the API serializes as either a single object
// or a list of objects, and returns it as a list. A missing key yields an
// empty list. Non-object list elements are dropped.
func AsList(obj map[string]any, key string) []map[string]any {
	val, ok := obj[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{v}
	default:
		return nil
	}
}

// StringField returns obj[key] when it is a string, and "" otherwise.
func StringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
