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

// Package model parses the per-model JSON schema documents that describe an
// appliance's capabilities: which values exist, how they are typed, and how
// to decode the status snapshots the monitoring endpoints stream.
//
// A parsed ModelInfo is read-only and safe for concurrent use.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gravitational/trace"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/core"
	"github.com/sampsyo/wideq/lib/utils"
	logutils "github.com/sampsyo/wideq/lib/utils/log"
)

var log = logutils.NewPackageLogger(wideq.ComponentKey, wideq.ComponentModel)

// Unknown is the label DecodeEnum reports for codes the schema does not
// declare. Firmware updates add codes faster than schemas learn them, so
// decoding never fails outright.
const Unknown = "Unknown"

// Value describes one schema value. The concrete type is one of EnumValue,
// RangeValue, BitValue, ReferenceValue or StringValue.
type Value interface {
	isValue()
}

// EnumValue maps encoded codes to display labels.
type EnumValue struct {
	// Options maps code to label, like "1" to "@CP_ON_EN_W".
	Options map[string]string
}

// RangeValue bounds a numeric value.
type RangeValue struct {
	Min  float64
	Max  float64
	Step float64
}

// BitValue names the flags packed into a bit-field value.
type BitValue struct {
	// Options maps a start bit to the flag name stored there.
	Options map[int]string
}

// ReferenceValue points into a sibling lookup table of the schema.
type ReferenceValue struct {
	// Table maps code to the row describing it.
	Table map[string]map[string]any
}

// StringValue is a free-form string; the comment describes its format.
type StringValue struct {
	Comment string
}

func (EnumValue) isValue()      {}
func (RangeValue) isValue()     {}
func (BitValue) isValue()       {}
func (ReferenceValue) isValue() {}
func (StringValue) isValue()    {}

// InRange reports whether v lies within the declared bounds.
func (r RangeValue) InRange(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ModelInfo is a parsed model schema document.
type ModelInfo struct {
	data map[string]any
}

// New wraps an already-decoded schema document.
func New(data map[string]any) *ModelInfo {
	return &ModelInfo{data: data}
}

// Parse decodes a raw schema document.
func Parse(raw []byte) (*ModelInfo, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, trace.Wrap(&core.MalformedResponseError{Data: raw})
	}
	return New(data), nil
}

// valueData returns the raw descriptor for one value name.
func (m *ModelInfo) valueData(name string) (map[string]any, bool) {
	values, ok := m.data["Value"].(map[string]any)
	if !ok {
		return nil, false
	}
	desc, ok := values[name].(map[string]any)
	return desc, ok
}

// Value looks up the typed descriptor for a value name.
func (m *ModelInfo) Value(name string) (Value, error) {
	desc, ok := m.valueData(name)
	if !ok {
		return nil, trace.NotFound("unknown value %q", name)
	}
	typ := utils.StringField(desc, "type")
	switch strings.ToLower(typ) {
	case "enum":
		options, ok := desc["option"].(map[string]any)
		if !ok {
			return nil, descriptorError(name, typ, desc)
		}
		out := make(map[string]string, len(options))
		for code, label := range options {
			out[code] = fmt.Sprint(label)
		}
		return EnumValue{Options: out}, nil

	case "range":
		options, ok := desc["option"].(map[string]any)
		if !ok {
			return nil, descriptorError(name, typ, desc)
		}
		min, okMin := floatField(options, "min")
		max, okMax := floatField(options, "max")
		if !okMin || !okMax {
			return nil, descriptorError(name, typ, desc)
		}
		step, ok := floatField(options, "step")
		if !ok {
			step = 1
		}
		return RangeValue{Min: min, Max: max, Step: step}, nil

	case "bit":
		options, ok := desc["option"].([]any)
		if !ok {
			return nil, descriptorError(name, typ, desc)
		}
		out := make(map[int]string, len(options))
		for _, opt := range options {
			field, ok := opt.(map[string]any)
			if !ok {
				return nil, descriptorError(name, typ, desc)
			}
			start, ok := intField(field, "startbit")
			if !ok {
				return nil, descriptorError(name, typ, desc)
			}
			out[start] = utils.StringField(field, "value")
		}
		return BitValue{Options: out}, nil

	case "reference":
		options, ok := desc["option"].([]any)
		if !ok || len(options) == 0 {
			return nil, descriptorError(name, typ, desc)
		}
		ref := fmt.Sprint(options[0])
		table, ok := m.data[ref].(map[string]any)
		if !ok {
			return nil, trace.BadParameter("value %q references table %q which the schema does not carry", name, ref)
		}
		out := make(map[string]map[string]any, len(table))
		for code, row := range table {
			rowMap, ok := row.(map[string]any)
			if !ok {
				return nil, descriptorError(name, typ, desc)
			}
			out[code] = rowMap
		}
		return ReferenceValue{Table: out}, nil

	case "string":
		return StringValue{Comment: utils.StringField(desc, "_comment")}, nil

	default:
		return nil, descriptorError(name, typ, desc)
	}
}

// descriptorError reports a value descriptor this engine cannot interpret,
// carrying enough of the raw descriptor to debug schema drift.
func descriptorError(name, typ string, desc map[string]any) error {
	raw, err := json.Marshal(desc)
	if err != nil {
		raw = []byte(fmt.Sprint(desc))
	}
	return trace.BadParameter("unsupported value name: '%s' type: '%s' data: '%s'", name, typ, raw)
}

// Default returns the schema-declared default for a value name.
func (m *ModelInfo) Default(name string) (any, error) {
	desc, ok := m.valueData(name)
	if !ok {
		return nil, trace.NotFound("unknown value %q", name)
	}
	def, ok := desc["default"]
	if !ok {
		return nil, trace.NotFound("value %q declares no default", name)
	}
	return def, nil
}

// EncodeEnum looks up the encoded code for an enum label.
func (m *ModelInfo) EncodeEnum(name, label string) (string, error) {
	v, err := m.Value(name)
	if err != nil {
		return "", trace.Wrap(err)
	}
	enum, ok := v.(EnumValue)
	if !ok {
		return "", trace.BadParameter("value %q is not an enum", name)
	}
	for code, l := range enum.Options {
		if l == label {
			return code, nil
		}
	}
	return "", trace.NotFound("value %q has no label %q", name, label)
}

// DecodeEnum looks up the display label for an encoded enum code. Codes the
// schema does not declare decode to the Unknown sentinel with a warning
// rather than an error, so status decoding survives schema drift.
func (m *ModelInfo) DecodeEnum(name, code string) string {
	v, err := m.Value(name)
	if err != nil {
		log.Warn("Decoding against an unusable enum", "name", name, "error", err)
		return Unknown
	}
	enum, ok := v.(EnumValue)
	if !ok {
		log.Warn("Decoding a non-enum value as an enum", "name", name)
		return Unknown
	}
	label, ok := enum.Options[code]
	if !ok {
		log.Warn("Enum code missing from the schema",
			"name", name,
			"code", code,
			"options", enum.Options,
		)
		return Unknown
	}
	return label
}

// ReferenceName returns the display label for a code in a Reference value's
// table, preferring the row's _comment, then label, then name. The boolean
// reports whether the code exists in the table at all.
func (m *ModelInfo) ReferenceName(name, code string) (string, bool, error) {
	v, err := m.Value(name)
	if err != nil {
		return "", false, trace.Wrap(err)
	}
	ref, ok := v.(ReferenceValue)
	if !ok {
		return "", false, trace.BadParameter("value %q is not a reference", name)
	}
	row, ok := ref.Table[code]
	if !ok {
		return "", false, nil
	}
	for _, key := range []string{"_comment", "label", "name"} {
		if label := utils.StringField(row, key); label != "" {
			return label, true, nil
		}
	}
	return "", true, nil
}

// BinaryMonitorData reports whether status snapshots for this model arrive
// as packed binary rather than JSON.
func (m *ModelInfo) BinaryMonitorData() bool {
	monitoring, ok := m.data["Monitoring"].(map[string]any)
	if !ok {
		return false
	}
	return utils.StringField(monitoring, "type") == "BINARY(BYTE)"
}

// DecodeMonitor decodes one status snapshot into a name-to-value map.
// Binary models decode each protocol field as a big-endian unsigned integer
// rendered as a decimal string; JSON models decode the payload as a JSON
// object.
func (m *ModelInfo) DecodeMonitor(data []byte) (map[string]any, error) {
	if m.BinaryMonitorData() {
		out, err := m.decodeMonitorBinary(data)
		return out, trace.Wrap(err)
	}
	out, err := decodeMonitorJSON(data)
	return out, trace.Wrap(err)
}

func (m *ModelInfo) decodeMonitorBinary(data []byte) (map[string]any, error) {
	monitoring, _ := m.data["Monitoring"].(map[string]any)
	protocol, ok := monitoring["protocol"].([]any)
	if !ok {
		return nil, trace.BadParameter("binary monitoring schema declares no protocol")
	}

	decoded := make(map[string]any, len(protocol))
	for _, item := range protocol {
		field, ok := item.(map[string]any)
		if !ok {
			return nil, trace.BadParameter("malformed binary monitoring protocol entry")
		}
		key := utils.StringField(field, "value")
		start, okStart := intField(field, "startByte")
		length, okLen := intField(field, "length")
		if key == "" || !okStart || !okLen || start < 0 || length < 0 {
			return nil, trace.BadParameter("malformed binary monitoring protocol entry")
		}
		if start+length > len(data) {
			return nil, trace.Wrap(&core.MalformedResponseError{Data: data})
		}
		value := 0
		for _, b := range data[start : start+length] {
			value = value<<8 + int(b)
		}
		decoded[key] = strconv.Itoa(value)
	}
	return decoded, nil
}

// decodeMonitorJSON parses a JSON status payload. Some appliances wrap the
// object in one extra pair of braces; that is tolerated by stripping the
// outer pair and re-parsing once.
func decodeMonitorJSON(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(data, &out); err == nil {
		return out, nil
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) >= 2 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
		if err := json.Unmarshal(trimmed[1:len(trimmed)-1], &out); err == nil {
			return out, nil
		}
	}
	return nil, trace.Wrap(&core.MalformedResponseError{Data: data})
}

// OptionBitValue extracts one packed flag from a decoded status payload.
// The schema's Option1 through Option3 groups each declare bit-fields; the
// group declaring name is located, the group's value is read from the
// payload, and the flag's bits are returned as a decimal string.
func (m *ModelInfo) OptionBitValue(name string, payload map[string]any) (string, error) {
	for _, group := range []string{"Option1", "Option2", "Option3"} {
		desc, ok := m.valueData(group)
		if !ok {
			continue
		}
		options, ok := desc["option"].([]any)
		if !ok {
			continue
		}
		for _, opt := range options {
			field, ok := opt.(map[string]any)
			if !ok || utils.StringField(field, "value") != name {
				continue
			}
			start, okStart := intField(field, "startbit")
			length, okLen := intField(field, "length")
			if !okStart || !okLen || length <= 0 {
				return "", trace.BadParameter("malformed bit-field %q in group %v", name, group)
			}
			raw, ok := payload[group]
			if !ok {
				return "", trace.NotFound("status payload carries no %v group", group)
			}
			groupValue, ok := intFromAny(raw)
			if !ok {
				return "", trace.BadParameter("status payload %v value %v is not numeric", group, raw)
			}
			mask := 1<<length - 1
			return strconv.Itoa(groupValue >> start & mask), nil
		}
	}
	return "", trace.NotFound("no option group declares flag %q", name)
}

// floatField reads a numeric field that may arrive as a JSON number or a
// numeric string.
func floatField(obj map[string]any, key string) (float64, bool) {
	switch n := obj[key].(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// intField reads an integer field that may arrive as a JSON number or a
// numeric string.
func intField(obj map[string]any, key string) (int, bool) {
	f, ok := floatField(obj, key)
	return int(f), ok
}

// intFromAny converts a decoded payload value to an integer.
func intFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}
