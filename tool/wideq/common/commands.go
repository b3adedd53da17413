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

package common

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gravitational/trace"

	"github.com/sampsyo/wideq/lib/asciitable"
	"github.com/sampsyo/wideq/lib/client"
	"github.com/sampsyo/wideq/lib/model"
)

// onList prints the account's devices as a table.
func onList(ctx context.Context, clt *client.Client) error {
	devices, err := clt.Devices(ctx)
	if err != nil {
		return trace.Wrap(err)
	}
	rows := make([][]string, 0, len(devices))
	for _, device := range devices {
		rows = append(rows, []string{
			device.ID, device.Alias, device.Type.String(), device.ModelID,
		})
	}
	table := asciitable.MakeTableWithTruncatedColumn(
		[]string{"ID", "Name", "Type", "Model"}, rows, "Name")
	_, err = os.Stdout.Write(table.AsBuffer().Bytes())
	return trace.Wrap(err)
}

// onMonitor streams status snapshots for one device until the context is
// canceled, normally by Ctrl-C.
func onMonitor(ctx context.Context, clt *client.Client, deviceID string) error {
	device, err := clt.Device(ctx, deviceID)
	if err != nil {
		return trace.Wrap(err)
	}
	mon, err := device.Monitor(ctx, 0)
	if err != nil {
		return trace.Wrap(err)
	}
	fmt.Printf("Monitoring %v; press Ctrl-C to stop.\n", device.Info().Alias)
	err = mon.Run(ctx, func(data []byte) error {
		printSnapshot(device.Model(), data)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return trace.Wrap(err)
}

// printSnapshot decodes and prints one status payload. Payloads the
// schema cannot decode are printed raw rather than aborting the stream.
func printSnapshot(m *model.ModelInfo, data []byte) {
	snapshot, err := m.DecodeMonitor(data)
	if err != nil {
		fmt.Printf("status data: %q\n", data)
		return
	}
	for _, key := range slices.Sorted(maps.Keys(snapshot)) {
		fmt.Println("- " + formatValue(m, key, snapshot[key]))
	}
}

// formatValue renders one status entry, resolving enum codes to labels
// and annotating numeric values with their schema range.
func formatValue(m *model.ModelInfo, key string, value any) string {
	text := fmt.Sprint(value)
	desc, err := m.Value(key)
	if err != nil {
		return fmt.Sprintf("%v: %v", key, text)
	}
	switch v := desc.(type) {
	case model.EnumValue:
		if label, ok := v.Options[text]; ok {
			return fmt.Sprintf("%v: %v", key, label)
		}
		return fmt.Sprintf("%v: %v", key, text)
	case model.RangeValue:
		return fmt.Sprintf("%v: %v (%v-%v)", key, text, v.Min, v.Max)
	default:
		return fmt.Sprintf("%v: %v", key, text)
	}
}

// onSet sets one control value, encoding it per the model schema.
func onSet(ctx context.Context, clt *client.Client, deviceID, key, value string) error {
	device, err := clt.Device(ctx, deviceID)
	if err != nil {
		return trace.Wrap(err)
	}
	encoded, err := encodeControlValue(device.Model(), key, value)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(device.SetControl(ctx, key, encoded))
}

// encodeControlValue translates a user-supplied value into the encoded
// form the device expects. Enum labels become their codes, numbers are
// checked against the schema range, and keys the schema does not describe
// pass through untouched.
func encodeControlValue(m *model.ModelInfo, key, value string) (any, error) {
	desc, err := m.Value(key)
	if err != nil {
		if trace.IsNotFound(err) {
			return value, nil
		}
		return nil, trace.Wrap(err)
	}
	switch v := desc.(type) {
	case model.EnumValue:
		if code, err := m.EncodeEnum(key, value); err == nil {
			return code, nil
		}
		if _, ok := v.Options[value]; ok {
			return value, nil
		}
		return nil, trace.BadParameter("%q is neither a label nor a code for %v", value, key)
	case model.RangeValue:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, trace.BadParameter("%v expects a number, got %q", key, value)
		}
		if !v.InRange(n) {
			return nil, trace.BadParameter("%v must be between %v and %v", key, v.Min, v.Max)
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	default:
		return value, nil
	}
}

// onTurn switches a device on or off through its Operation control.
func onTurn(ctx context.Context, clt *client.Client, deviceID, state string) error {
	device, err := clt.Device(ctx, deviceID)
	if err != nil {
		return trace.Wrap(err)
	}
	label, err := operationLabel(device.Model(), state == "on")
	if err != nil {
		return trace.Wrap(err)
	}
	code, err := device.Model().EncodeEnum("Operation", label)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(device.SetControl(ctx, "Operation", code))
}

// operationLabel picks the schema label that switches the device on or
// off. Vendor labels follow patterns like "@AC_MAIN_OPERATION_ON_W" or
// "@operation_off"; the match must be unique so an ambiguous schema fails
// loudly instead of toggling the wrong state.
func operationLabel(m *model.ModelInfo, on bool) (string, error) {
	desc, err := m.Value("Operation")
	if err != nil {
		return "", trace.Wrap(err, "this model exposes no Operation control; use set instead")
	}
	enum, ok := desc.(model.EnumValue)
	if !ok {
		return "", trace.BadParameter("the Operation control is not an enum on this model")
	}
	needle := "_ON"
	if !on {
		needle = "_OFF"
	}
	var matches []string
	for _, label := range enum.Options {
		upper := strings.ToUpper(label)
		if strings.HasSuffix(upper, needle) || strings.Contains(upper, needle+"_") {
			matches = append(matches, label)
		}
	}
	slices.Sort(matches)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", trace.NotFound("no Operation label matches %v; use set Operation <label> instead", strings.ToLower(needle[1:]))
	default:
		return "", trace.BadParameter("several Operation labels match: %v; use set Operation <label> instead", strings.Join(matches, ", "))
	}
}

// onSetTemp sets the target temperature after validating it against the
// schema range.
func onSetTemp(ctx context.Context, clt *client.Client, deviceID, key, value string) error {
	device, err := clt.Device(ctx, deviceID)
	if err != nil {
		return trace.Wrap(err)
	}
	desc, err := device.Model().Value(key)
	if err != nil {
		return trace.Wrap(err, "this model exposes no %v setting", key)
	}
	rng, ok := desc.(model.RangeValue)
	if !ok {
		return trace.BadParameter("%v is not a numeric setting on this model; use set instead", key)
	}
	temp, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return trace.BadParameter("temperature %q is not a number", value)
	}
	if !rng.InRange(temp) {
		return trace.BadParameter("temperature %v is outside the supported range %v-%v", temp, rng.Min, rng.Max)
	}
	return trace.Wrap(device.SetControl(ctx, key, strconv.FormatFloat(temp, 'f', -1, 64)))
}

// onLoginURL prints the browser login URL.
func onLoginURL(ctx context.Context, clt *client.Client) error {
	gw, err := clt.Gateway(ctx)
	if err != nil {
		return trace.Wrap(err)
	}
	fmt.Println(gw.OAuthURL())
	return nil
}

// onAuth stores credentials from the login callback URL.
func onAuth(ctx context.Context, clt *client.Client, callbackURL string) error {
	if err := clt.AuthFromCallbackURL(ctx, callbackURL); err != nil {
		return trace.Wrap(err)
	}
	fmt.Println("Authenticated.")
	return nil
}
