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
	"fmt"
	"strconv"

	"github.com/gravitational/trace"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/utils"
)

// Envelope identifies the wrapper object enclosing requests and responses
// on the wire. Callers select it explicitly per request; the transport
// never sniffs the format.
type Envelope int

const (
	// EnvelopeLGEDM is the original wrapped form: request bodies nest
	// under "lgedmRoot", responses unwrap from the same key, and errors
	// arrive in the inner "returnCd" field.
	EnvelopeLGEDM Envelope = iota

	// EnvelopeResult is the v2 REST form: request bodies post bare,
	// responses unwrap from "result", and errors arrive in the top-level
	// "resultCode" field.
	EnvelopeResult
)

// wrapRequest produces the on-wire request body for data.
func (e Envelope) wrapRequest(data map[string]any) any {
	if e == EnvelopeLGEDM {
		if data == nil {
			data = map[string]any{}
		}
		return map[string]any{wideq.DataRootLegacy: data}
	}
	return data
}

// unwrapResponse extracts the inner payload from a parsed response body and
// checks the return code. A non-success code maps through CodeToError; a
// missing wrapper key is a MalformedResponseError carrying raw.
func (e Envelope) unwrapResponse(raw []byte, body map[string]any) (map[string]any, error) {
	switch e {
	case EnvelopeLGEDM:
		inner, ok := body[wideq.DataRootLegacy].(map[string]any)
		if !ok {
			return nil, trace.Wrap(&MalformedResponseError{Data: raw})
		}
		if code, ok := returnCode(inner, wideq.ReturnCodeLegacy); ok && code != wideq.SuccessCode {
			return nil, trace.Wrap(CodeToError(code, utils.StringField(inner, wideq.ReturnMessageLegacy)))
		}
		return inner, nil
	default:
		if code, ok := returnCode(body, wideq.ReturnCodeResult); ok && code != wideq.SuccessCode {
			return nil, trace.Wrap(CodeToError(code, utils.StringField(body, wideq.ReturnMessageLegacy)))
		}
		inner, ok := body[wideq.DataRootResult].(map[string]any)
		if !ok {
			return nil, trace.Wrap(&MalformedResponseError{Data: raw})
		}
		return inner, nil
	}
}

// returnCode normalizes the return code field, which some endpoints send as
// a bare integer rather than a string.
func returnCode(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key]
	if !ok {
		return "", false
	}
	switch c := v.(type) {
	case string:
		return c, true
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64), true
	default:
		return fmt.Sprint(c), true
	}
}
