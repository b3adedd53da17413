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
	"errors"
	"fmt"
)

// APIError is an error reported by the API servers, carrying the vendor
// return code and optional message. Codes with a known meaning map to the
// dedicated kinds below instead; see CodeToError.
type APIError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error %v", e.Code)
	}
	return fmt.Sprintf("API error %v: %v", e.Code, e.Message)
}

// NotLoggedInError means the session is invalid or has expired. Refreshing
// the credential and retrying once usually clears it.
type NotLoggedInError struct{ APIError }

// NotConnectedError means the cloud service cannot reach the device. The
// condition is transient and local to that device.
type NotConnectedError struct{ APIError }

// FailedRequestError means the request failed, typically because the
// operation is unsupported for this device or model.
type FailedRequestError struct{ APIError }

// InvalidCredentialError means the server rejected the credential outright.
// Retrying without user action will not help.
type InvalidCredentialError struct{ APIError }

// InvalidRequestError means the server rejected the request as malformed,
// which indicates a caller bug.
type InvalidRequestError struct{ APIError }

// TokenError means the OAuth server rejected a token operation. The caller
// must re-authenticate interactively.
type TokenError struct {
	Reason string
}

// Error implements the error interface.
func (e *TokenError) Error() string {
	if e.Reason == "" {
		return "authentication token rejected"
	}
	return fmt.Sprintf("authentication token rejected: %v", e.Reason)
}

// MonitorError means a monitoring task failed, usually because the task
// expired server-side. Restarting the task recovers it.
type MonitorError struct {
	DeviceID string
	Code     string
}

// Error implements the error interface.
func (e *MonitorError) Error() string {
	return fmt.Sprintf("monitoring error for device %v (code %v)", e.DeviceID, e.Code)
}

// MalformedResponseError means the server returned data this library cannot
// decode even with the documented fallbacks. Data holds the offending
// payload.
type MalformedResponseError struct {
	Data []byte
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	data := e.Data
	if len(data) > 128 {
		data = data[:128]
	}
	return fmt.Sprintf("malformed server response: %q", data)
}

// CodeToError converts a non-success vendor return code into a typed error.
// Codes usually arrive as strings, but a few endpoints report them as bare
// integers; callers normalize those to the decimal string form first.
func CodeToError(code, message string) error {
	apiErr := APIError{Code: code, Message: message}
	switch code {
	case "0102", "9003":
		return &NotLoggedInError{apiErr}
	case "0106":
		return &NotConnectedError{apiErr}
	case "0100":
		return &FailedRequestError{apiErr}
	case "0110":
		return &InvalidCredentialError{apiErr}
	case "9000":
		return &InvalidRequestError{apiErr}
	default:
		return &apiErr
	}
}

// IsNotLoggedIn reports whether err is a NotLoggedInError anywhere in its
// chain.
func IsNotLoggedIn(err error) bool {
	var target *NotLoggedInError
	return errors.As(err, &target)
}

// IsNotConnected reports whether err is a NotConnectedError anywhere in its
// chain.
func IsNotConnected(err error) bool {
	var target *NotConnectedError
	return errors.As(err, &target)
}

// IsFailedRequest reports whether err is a FailedRequestError anywhere in
// its chain.
func IsFailedRequest(err error) bool {
	var target *FailedRequestError
	return errors.As(err, &target)
}

// IsInvalidCredential reports whether err is an InvalidCredentialError
// anywhere in its chain.
func IsInvalidCredential(err error) bool {
	var target *InvalidCredentialError
	return errors.As(err, &target)
}

// IsTokenError reports whether err is a TokenError anywhere in its chain.
func IsTokenError(err error) bool {
	var target *TokenError
	return errors.As(err, &target)
}

// IsMonitorError reports whether err is a MonitorError anywhere in its
// chain.
func IsMonitorError(err error) bool {
	var target *MonitorError
	return errors.As(err, &target)
}

// IsMalformedResponse reports whether err is a MalformedResponseError
// anywhere in its chain.
func IsMalformedResponse(err error) bool {
	var target *MalformedResponseError
	return errors.As(err, &target)
}
