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

package model

import (
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/sampsyo/wideq/lib/core"
)

// dryerSchema is a trimmed real-world dryer model document covering every
// value type the engine understands, plus two descriptors it should reject.
const dryerSchema = `{
	"Value": {
		"AntiBacterial": {
			"default": "0",
			"label": "@WM_DRY27_BUTTON_ANTI_BACTERIAL_W",
			"option": {"0": "@CP_OFF_EN_W", "1": "@CP_ON_EN_W"},
			"type": "Enum"
		},
		"Course": {
			"option": ["Course"],
			"type": "Reference"
		},
		"Initial_Time_H": {
			"default": 0,
			"option": {"max": 24, "min": 0},
			"type": "Range"
		},
		"Option1": {
			"default": "0",
			"option": [
				{"default": "0", "length": 1, "startbit": 0, "value": "ChildLock"},
				{"default": "0", "length": 1, "startbit": 1, "value": "ReduceStatic"},
				{"default": "0", "length": 1, "startbit": 2, "value": "EasyIron"},
				{"default": "0", "length": 1, "startbit": 3, "value": "DampDrySingal"},
				{"default": "0", "length": 1, "startbit": 4, "value": "WrinkleCare"},
				{"default": "0", "length": 1, "startbit": 7, "value": "AntiBacterial"}
			],
			"type": "Bit"
		},
		"TimeBsOn": {
			"_comment": "0030 means 12:30 AM, 1230 means 12:30 PM, 0 means off",
			"type": "String"
		},
		"Unexpected": {"type": "Unexpected"},
		"Unexpected2": {"type": "Unexpected", "option": "some option"}
	},
	"Course": {
		"3": {
			"_comment": "Normal",
			"courseType": "Course",
			"id": 3,
			"name": "@WM_DRY27_COURSE_NORMAL_W",
			"script": "",
			"controlEnable": true,
			"freshcareEnable": true,
			"imgIndex": 61
		}
	}
}`

func dryerModel(t *testing.T) *ModelInfo {
	t.Helper()
	info, err := Parse([]byte(dryerSchema))
	require.NoError(t, err)
	return info
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("<html>Bad Gateway</html>"))
	require.Error(t, err)
	var malformed *core.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestValueEnum(t *testing.T) {
	v, err := dryerModel(t).Value("AntiBacterial")
	require.NoError(t, err)
	require.Equal(t, EnumValue{Options: map[string]string{
		"0": "@CP_OFF_EN_W",
		"1": "@CP_ON_EN_W",
	}}, v)
}

func TestValueRange(t *testing.T) {
	v, err := dryerModel(t).Value("Initial_Time_H")
	require.NoError(t, err)
	require.Equal(t, RangeValue{Min: 0, Max: 24, Step: 1}, v)
}

func TestValueBit(t *testing.T) {
	v, err := dryerModel(t).Value("Option1")
	require.NoError(t, err)
	require.Equal(t, BitValue{Options: map[int]string{
		0: "ChildLock",
		1: "ReduceStatic",
		2: "EasyIron",
		3: "DampDrySingal",
		4: "WrinkleCare",
		7: "AntiBacterial",
	}}, v)
}

func TestValueReference(t *testing.T) {
	v, err := dryerModel(t).Value("Course")
	require.NoError(t, err)
	ref, ok := v.(ReferenceValue)
	require.True(t, ok)
	require.Len(t, ref.Table, 1)
	require.Equal(t, "Normal", ref.Table["3"]["_comment"])
	require.Equal(t, "@WM_DRY27_COURSE_NORMAL_W", ref.Table["3"]["name"])
}

func TestValueString(t *testing.T) {
	v, err := dryerModel(t).Value("TimeBsOn")
	require.NoError(t, err)
	require.Equal(t, StringValue{
		Comment: "0030 means 12:30 AM, 1230 means 12:30 PM, 0 means off",
	}, v)
}

func TestValueUnknownName(t *testing.T) {
	_, err := dryerModel(t).Value("Durian")
	require.True(t, trace.IsNotFound(err))
}

func TestValueUnsupported(t *testing.T) {
	_, err := dryerModel(t).Value("Unexpected")
	require.Error(t, err)
	require.ErrorContains(t, err, "unsupported value name: 'Unexpected' type: 'Unexpected'")
}

func TestValueUnsupportedCarriesData(t *testing.T) {
	_, err := dryerModel(t).Value("Unexpected2")
	require.Error(t, err)
	require.ErrorContains(t, err, "unsupported value name: 'Unexpected2' type: 'Unexpected'")
	require.ErrorContains(t, err, "some option")
}

func TestDefault(t *testing.T) {
	info := dryerModel(t)

	def, err := info.Default("AntiBacterial")
	require.NoError(t, err)
	require.Equal(t, "0", def)

	def, err = info.Default("Initial_Time_H")
	require.NoError(t, err)
	require.Equal(t, float64(0), def)

	_, err = info.Default("TimeBsOn")
	require.True(t, trace.IsNotFound(err))

	_, err = info.Default("Durian")
	require.True(t, trace.IsNotFound(err))
}

func TestEncodeEnum(t *testing.T) {
	info := dryerModel(t)

	code, err := info.EncodeEnum("AntiBacterial", "@CP_ON_EN_W")
	require.NoError(t, err)
	require.Equal(t, "1", code)

	_, err = info.EncodeEnum("AntiBacterial", "@CP_MAYBE_EN_W")
	require.True(t, trace.IsNotFound(err))

	_, err = info.EncodeEnum("Initial_Time_H", "@CP_ON_EN_W")
	require.True(t, trace.IsBadParameter(err))
}

func TestDecodeEnum(t *testing.T) {
	info := dryerModel(t)

	require.Equal(t, "@CP_ON_EN_W", info.DecodeEnum("AntiBacterial", "1"))

	// Codes and names the schema has never heard of decode to the
	// sentinel instead of failing the whole snapshot.
	require.Equal(t, Unknown, info.DecodeEnum("AntiBacterial", "9"))
	require.Equal(t, Unknown, info.DecodeEnum("Durian", "1"))
	require.Equal(t, Unknown, info.DecodeEnum("Initial_Time_H", "1"))
}

func TestReferenceName(t *testing.T) {
	info := dryerModel(t)

	name, ok, err := info.ReferenceName("Course", "3")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Normal", name)

	_, ok, err = info.ReferenceName("Course", "99")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = info.ReferenceName("AntiBacterial", "3")
	require.True(t, trace.IsBadParameter(err))
}

func TestRangeInRange(t *testing.T) {
	r := RangeValue{Min: 18, Max: 30, Step: 1}
	require.True(t, r.InRange(18))
	require.True(t, r.InRange(30))
	require.True(t, r.InRange(22.5))
	require.False(t, r.InRange(17))
	require.False(t, r.InRange(31))
}

const binarySchema = `{
	"Monitoring": {
		"type": "BINARY(BYTE)",
		"protocol": [
			{"startByte": 0, "length": 1, "value": "State"},
			{"startByte": 1, "length": 2, "value": "Remain_Time"}
		]
	}
}`

func TestDecodeMonitorBinary(t *testing.T) {
	info, err := Parse([]byte(binarySchema))
	require.NoError(t, err)
	require.True(t, info.BinaryMonitorData())

	decoded, err := info.DecodeMonitor([]byte{0x02, 0x01, 0x2c})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"State":       "2",
		"Remain_Time": "300",
	}, decoded)
}

func TestDecodeMonitorBinaryTruncated(t *testing.T) {
	info, err := Parse([]byte(binarySchema))
	require.NoError(t, err)

	_, err = info.DecodeMonitor([]byte{0x02})
	require.Error(t, err)
	var malformed *core.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestDecodeMonitorJSON(t *testing.T) {
	info := dryerModel(t)
	require.False(t, info.BinaryMonitorData())

	decoded, err := info.DecodeMonitor([]byte(`{"State": "RUNNING", "Remain_Time_H": 1}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"State":         "RUNNING",
		"Remain_Time_H": float64(1),
	}, decoded)
}

func TestDecodeMonitorJSONDoubleWrapped(t *testing.T) {
	// Some appliances wrap the status object in a stray outer brace pair.
	decoded, err := dryerModel(t).DecodeMonitor([]byte(`{{"State": "RUNNING"}}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"State": "RUNNING"}, decoded)
}

func TestDecodeMonitorJSONMalformed(t *testing.T) {
	_, err := dryerModel(t).DecodeMonitor([]byte("not json at all"))
	require.Error(t, err)
	var malformed *core.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestOptionBitValue(t *testing.T) {
	info := dryerModel(t)

	// 128 has only bit 7 set, which Option1 maps to AntiBacterial.
	flag, err := info.OptionBitValue("AntiBacterial", map[string]any{"Option1": "128"})
	require.NoError(t, err)
	require.Equal(t, "1", flag)

	flag, err = info.OptionBitValue("ChildLock", map[string]any{"Option1": "128"})
	require.NoError(t, err)
	require.Equal(t, "0", flag)

	flag, err = info.OptionBitValue("ChildLock", map[string]any{"Option1": float64(129)})
	require.NoError(t, err)
	require.Equal(t, "1", flag)
}

func TestOptionBitValueErrors(t *testing.T) {
	info := dryerModel(t)

	_, err := info.OptionBitValue("Durian", map[string]any{"Option1": "128"})
	require.True(t, trace.IsNotFound(err))

	_, err = info.OptionBitValue("AntiBacterial", map[string]any{})
	require.True(t, trace.IsNotFound(err))

	_, err = info.OptionBitValue("AntiBacterial", map[string]any{"Option1": "banana"})
	require.True(t, trace.IsBadParameter(err))
}
