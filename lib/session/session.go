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

// Package session implements the authenticated RPC surface of the API: the
// device registry, the monitoring endpoints and device control.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/gravitational/trace"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/core"
	"github.com/sampsyo/wideq/lib/gateway"
	"github.com/sampsyo/wideq/lib/utils"
	logutils "github.com/sampsyo/wideq/lib/utils/log"
)

var log = logutils.NewPackageLogger(wideq.ComponentKey, wideq.ComponentSession)

// DeviceInfo describes one appliance registered to the account, as the
// device registry reports it.
type DeviceInfo struct {
	// ID is the opaque device identifier used in every per-device call.
	ID string `json:"deviceId"`
	// Alias is the user-assigned display name.
	Alias string `json:"alias"`
	// ModelID names the hardware model.
	ModelID string `json:"modelNm"`
	// ModelInfoURL points at the JSON schema describing the model's
	// capabilities.
	ModelInfoURL string `json:"modelJsonUrl"`
	// MACAddress is the appliance's network address, when reported.
	MACAddress string `json:"macAddress,omitempty"`
	// Type is the appliance category.
	Type wideq.DeviceType `json:"deviceType"`
	// PlatformType labels which API generation the device lives on,
	// "thinq1" or "thinq2", when reported.
	PlatformType string `json:"platformType,omitempty"`
}

// ParseDeviceInfo converts one raw registry entry into a DeviceInfo.
func ParseDeviceInfo(item map[string]any) (DeviceInfo, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return DeviceInfo{}, trace.Wrap(err)
	}
	var info DeviceInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return DeviceInfo{}, trace.Wrap(err)
	}
	if info.ID == "" {
		return DeviceInfo{}, trace.BadParameter("device registry entry is missing deviceId")
	}
	return info, nil
}

// Config holds what a session needs to issue authenticated calls.
type Config struct {
	// Transport issues the requests.
	Transport *core.Transport
	// Gateway supplies the API roots and locale codes.
	Gateway *gateway.Gateway
	// AccessToken authenticates every call.
	AccessToken string
	// SessionID is the server-side session on the original API. Empty
	// for accounts living purely on the v2 API.
	SessionID string
	// UserNumber is the v2 account number. Empty for original-flow
	// accounts.
	UserNumber string
}

// CheckAndSetDefaults checks and sets defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Transport == nil {
		return trace.BadParameter("missing parameter Transport")
	}
	if c.Gateway == nil {
		return trace.BadParameter("missing parameter Gateway")
	}
	if c.AccessToken == "" {
		return trace.BadParameter("missing parameter AccessToken")
	}
	return nil
}

// Session issues authenticated API calls on behalf of one logged-in user.
// A Session holds no mutable state and is safe for concurrent use; token
// rotation is handled a layer up by replacing the Session wholesale.
type Session struct {
	cfg Config
}

// New returns a Session from cfg.
func New(cfg Config) (*Session, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Session{cfg: cfg}, nil
}

// ID returns the server-side session identifier, empty for v2 accounts.
func (s *Session) ID() string {
	return s.cfg.SessionID
}

// legacyOpts returns request options for the original wrapped API.
func (s *Session) legacyOpts() core.RequestOptions {
	return core.RequestOptions{
		Envelope:    core.EnvelopeLGEDM,
		AccessToken: s.cfg.AccessToken,
		SessionID:   s.cfg.SessionID,
	}
}

// resultOpts returns request options for the v2 REST API.
func (s *Session) resultOpts() core.RequestOptions {
	return core.RequestOptions{
		Envelope:    core.EnvelopeResult,
		AccessToken: s.cfg.AccessToken,
		UserNumber:  s.cfg.UserNumber,
		Country:     s.cfg.Gateway.Country,
		Language:    s.cfg.Gateway.Language,
	}
}

// Post sends body to an original-API path relative to the API root, with
// the session's auth context attached.
func (s *Session) Post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	out, err := s.cfg.Transport.Post(ctx, utils.JoinURL(s.cfg.Gateway.APIRoot, path), body, s.legacyOpts())
	return out, trace.Wrap(err)
}

// Get fetches a v2 path relative to the v2 API root, with the session's
// auth context attached.
func (s *Session) Get(ctx context.Context, path string) (map[string]any, error) {
	if s.cfg.Gateway.API2Root == "" {
		return nil, trace.NotImplemented("no v2 API root was discovered for this region")
	}
	out, err := s.cfg.Transport.Get(ctx, utils.JoinURL(s.cfg.Gateway.API2Root, path), s.resultOpts())
	return out, trace.Wrap(err)
}

// GetDevices lists the appliances registered to the account. Accounts with
// a v2 API root are listed through the dashboard endpoint; others fall back
// to the original registry. A single registered appliance arrives as a bare
// object rather than a list, which both paths tolerate.
func (s *Session) GetDevices(ctx context.Context) ([]DeviceInfo, error) {
	var data map[string]any
	var err error
	if s.cfg.Gateway.API2Root != "" {
		data, err = s.Get(ctx, "service/application/dashboard")
	} else {
		data, err = s.Post(ctx, "device/deviceList", nil)
	}
	if err != nil {
		return nil, trace.Wrap(err)
	}

	items := utils.AsList(data, "item")
	devices := make([]DeviceInfo, 0, len(items))
	for _, item := range items {
		info, err := ParseDeviceInfo(item)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		devices = append(devices, info)
	}
	return devices, nil
}

// MonitorStart begins a monitoring task for a device and returns the work
// ID that identifies it in later polls.
func (s *Session) MonitorStart(ctx context.Context, deviceID string) (string, error) {
	data, err := s.Post(ctx, "rti/rtiMon", map[string]any{
		"cmd":      "Mon",
		"cmdOpt":   "Start",
		"deviceId": deviceID,
		"workId":   uuid.NewString(),
	})
	if err != nil {
		return "", trace.Wrap(err)
	}
	workID := utils.StringField(data, "workId")
	if workID == "" {
		raw, _ := json.Marshal(data)
		return "", trace.Wrap(&core.MalformedResponseError{Data: raw})
	}
	log.DebugContext(ctx, "Started monitoring task", "device_id", deviceID, "work_id", workID)
	return workID, nil
}

// MonitorPoll fetches the result of a monitoring task. It returns nil with
// no error while the task warms up or has no fresh snapshot; a non-success
// task status comes back as a MonitorError, which means the task expired
// and must be restarted.
func (s *Session) MonitorPoll(ctx context.Context, deviceID, workID string) ([]byte, error) {
	data, err := s.Post(ctx, "rti/rtiResult", map[string]any{
		"workList": []map[string]any{{"deviceId": deviceID, "workId": workID}},
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	work, ok := data["workList"].(map[string]any)
	if !ok {
		raw, _ := json.Marshal(data)
		return nil, trace.Wrap(&core.MalformedResponseError{Data: raw})
	}

	// Early polls on a fresh task come back with no returnCode at all
	// while the server warms the task up.
	if _, ok := work["returnCode"]; !ok {
		return nil, nil
	}
	if code := utils.StringField(work, "returnCode"); code != wideq.SuccessCode {
		return nil, trace.Wrap(&core.MonitorError{DeviceID: deviceID, Code: code})
	}

	// A successful poll may still carry no snapshot.
	encoded, ok := work["returnData"].(string)
	if !ok {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, trace.Wrap(&core.MalformedResponseError{Data: []byte(encoded)})
	}
	return decoded, nil
}

// MonitorStop ends a monitoring task.
func (s *Session) MonitorStop(ctx context.Context, deviceID, workID string) error {
	_, err := s.Post(ctx, "rti/rtiMon", map[string]any{
		"cmd":      "Mon",
		"cmdOpt":   "Stop",
		"deviceId": deviceID,
		"workId":   workID,
	})
	return trace.Wrap(err)
}

// SetDeviceControls updates one or more control values on a device.
func (s *Session) SetDeviceControls(ctx context.Context, deviceID string, values map[string]any) error {
	_, err := s.Post(ctx, "rti/rtiControl", map[string]any{
		"cmd":      "Control",
		"cmdOpt":   "Set",
		"value":    values,
		"deviceId": deviceID,
		"workId":   uuid.NewString(),
		"data":     "",
	})
	return trace.Wrap(err)
}

// GetDeviceConfig reads one configuration or control value from a device
// and returns the raw string the server reports. category is "Config" or
// "Control" depending on the key; see DecodeConfigJSON and
// DecodeControlValue for the two payload shapes.
func (s *Session) GetDeviceConfig(ctx context.Context, deviceID, key, category string) (string, error) {
	data, err := s.Post(ctx, "rti/rtiControl", map[string]any{
		"cmd":      category,
		"cmdOpt":   "Get",
		"value":    key,
		"deviceId": deviceID,
		"workId":   uuid.NewString(),
		"data":     "",
	})
	if err != nil {
		return "", trace.Wrap(err)
	}
	value, ok := data["returnData"].(string)
	if !ok {
		raw, _ := json.Marshal(data)
		return "", trace.Wrap(&core.MalformedResponseError{Data: raw})
	}
	return value, nil
}

// DeleteControlPermission releases the control permission the server
// grants a client when it changes device settings. Some appliances refuse
// further control requests from other clients until this is called.
func (s *Session) DeleteControlPermission(ctx context.Context, deviceID string) error {
	_, err := s.Post(ctx, "rti/delControlPermission", map[string]any{
		"deviceId": deviceID,
	})
	return trace.Wrap(err)
}

// ControlDevice sends a control payload to a device over the v2 API's
// synchronous control endpoint.
func (s *Session) ControlDevice(ctx context.Context, deviceID string, data map[string]any) (map[string]any, error) {
	if s.cfg.Gateway.API2Root == "" {
		return nil, trace.NotImplemented("no v2 API root was discovered for this region")
	}
	url := utils.JoinURL(s.cfg.Gateway.API2Root, "service/devices", deviceID, "control-sync")
	out, err := s.cfg.Transport.Post(ctx, url, data, s.resultOpts())
	return out, trace.Wrap(err)
}

// DecodeConfigJSON decodes a "Config" category value, which arrives as
// base64-encoded JSON.
func DecodeConfigJSON(raw string) (any, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, trace.Wrap(&core.MalformedResponseError{Data: []byte(raw)})
	}
	var value any
	if err := json.Unmarshal(decoded, &value); err != nil {
		return nil, trace.Wrap(&core.MalformedResponseError{Data: decoded})
	}
	return value, nil
}

// DecodeControlValue decodes a "Control" category value, which arrives in
// a "(key:value)" tuple format.
func DecodeControlValue(raw string) (string, error) {
	inner, ok := strings.CutPrefix(raw, "(")
	if ok {
		inner, ok = strings.CutSuffix(inner, ")")
	}
	if !ok {
		return "", trace.BadParameter("unexpected control data format %q", raw)
	}
	_, value, found := strings.Cut(inner, ":")
	if !found {
		return "", trace.BadParameter("unexpected control data format %q", raw)
	}
	return value, nil
}
