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
	"context"
	"time"

	"github.com/gravitational/trace"

	"github.com/sampsyo/wideq/lib/model"
	"github.com/sampsyo/wideq/lib/monitor"
	"github.com/sampsyo/wideq/lib/session"
)

// Device binds one appliance to the client and its parsed model schema.
// It carries no appliance-category logic; callers consult the schema to
// learn what the device can do.
type Device struct {
	client *Client
	info   session.DeviceInfo
	model  *model.ModelInfo
}

// Device returns a handle for one appliance, fetching its model schema
// if it is not cached yet.
func (c *Client) Device(ctx context.Context, deviceID string) (*Device, error) {
	info, err := c.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	modelInfo, err := c.ModelInfo(ctx, info)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &Device{client: c, info: info, model: modelInfo}, nil
}

// Info returns the registry entry for the device.
func (d *Device) Info() session.DeviceInfo {
	return d.info
}

// Model returns the parsed capability schema for the device.
func (d *Device) Model() *model.ModelInfo {
	return d.model
}

// SetControl sets a single control value on the device. The value must
// already be encoded per the model schema; see model.EncodeEnum.
func (d *Device) SetControl(ctx context.Context, key string, value any) error {
	sess, err := d.client.Session(ctx)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(sess.SetDeviceControls(ctx, d.info.ID, map[string]any{key: value}))
}

// GetConfig reads a configuration value from the device, decoded from
// the base64 JSON the server wraps it in.
func (d *Device) GetConfig(ctx context.Context, key string) (any, error) {
	sess, err := d.client.Session(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	raw, err := sess.GetDeviceConfig(ctx, d.info.ID, key, "Config")
	if err != nil {
		return nil, trace.Wrap(err)
	}
	value, err := session.DecodeConfigJSON(raw)
	return value, trace.Wrap(err)
}

// GetControl reads a control value from the device, unwrapped from the
// server's "(key:value)" tuple format.
func (d *Device) GetControl(ctx context.Context, key string) (string, error) {
	sess, err := d.client.Session(ctx)
	if err != nil {
		return "", trace.Wrap(err)
	}
	raw, err := sess.GetDeviceConfig(ctx, d.info.ID, key, "Control")
	if err != nil {
		return "", trace.Wrap(err)
	}
	value, err := session.DecodeControlValue(raw)
	return value, trace.Wrap(err)
}

// Monitor returns a monitoring task for the device polling at the given
// interval, or the default cadence when zero. The task does not start
// until Start or Run is called.
func (d *Device) Monitor(ctx context.Context, interval time.Duration) (*monitor.Monitor, error) {
	sess, err := d.client.Session(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	mon, err := monitor.New(monitor.Config{
		Poller:   sess,
		DeviceID: d.info.ID,
		Interval: interval,
	})
	return mon, trace.Wrap(err)
}

// DeleteControlPermission releases the control permission granted when
// this client changed device settings. Some appliances refuse further
// control from other clients until it is released.
func (d *Device) DeleteControlPermission(ctx context.Context) error {
	sess, err := d.client.Session(ctx)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(sess.DeleteControlPermission(ctx, d.info.ID))
}
