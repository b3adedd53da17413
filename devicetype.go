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

package wideq

import "fmt"

// DeviceType is the category of appliance reported in the device list.
type DeviceType int

const (
	DeviceTypeRefrigerator        DeviceType = 101
	DeviceTypeKimchiRefrigerator  DeviceType = 102
	DeviceTypeWaterPurifier       DeviceType = 103
	DeviceTypeWasher              DeviceType = 201
	DeviceTypeDryer               DeviceType = 202
	DeviceTypeStyler              DeviceType = 203
	DeviceTypeDishwasher          DeviceType = 204
	DeviceTypeOven                DeviceType = 301
	DeviceTypeMicrowave           DeviceType = 302
	DeviceTypeCooktop             DeviceType = 303
	DeviceTypeHood                DeviceType = 304
	DeviceTypeAC                  DeviceType = 401
	DeviceTypeAirPurifier         DeviceType = 402
	DeviceTypeDehumidifier        DeviceType = 403
	DeviceTypeRobotKing           DeviceType = 501
	DeviceTypeTV                  DeviceType = 701
	DeviceTypeBoiler              DeviceType = 801
	DeviceTypeSpeaker             DeviceType = 901
	DeviceTypeHomevu              DeviceType = 902
	DeviceTypeArch                DeviceType = 1001
	DeviceTypeMissg               DeviceType = 3001
	DeviceTypeSensor              DeviceType = 3002
	DeviceTypeIoTLighting         DeviceType = 3003
	DeviceTypeIoTMotionSensor     DeviceType = 3004
	DeviceTypeIoTSmartPlug        DeviceType = 3005
	DeviceTypeIoTDustSensor       DeviceType = 3006
	DeviceTypeSolarSensor         DeviceType = 3102
	DeviceTypeEMSAirStation       DeviceType = 4001
	DeviceTypeAirSensor           DeviceType = 4003
	DeviceTypePuricareAirDetector DeviceType = 4004
	DeviceTypeV2Phone             DeviceType = 6001
	DeviceTypeHomeRobot           DeviceType = 9000
)

var deviceTypeNames = map[DeviceType]string{
	DeviceTypeRefrigerator:        "REFRIGERATOR",
	DeviceTypeKimchiRefrigerator:  "KIMCHI_REFRIGERATOR",
	DeviceTypeWaterPurifier:       "WATER_PURIFIER",
	DeviceTypeWasher:              "WASHER",
	DeviceTypeDryer:               "DRYER",
	DeviceTypeStyler:              "STYLER",
	DeviceTypeDishwasher:          "DISHWASHER",
	DeviceTypeOven:                "OVEN",
	DeviceTypeMicrowave:           "MICROWAVE",
	DeviceTypeCooktop:             "COOKTOP",
	DeviceTypeHood:                "HOOD",
	DeviceTypeAC:                  "AC",
	DeviceTypeAirPurifier:         "AIR_PURIFIER",
	DeviceTypeDehumidifier:        "DEHUMIDIFIER",
	DeviceTypeRobotKing:           "ROBOT_KING",
	DeviceTypeTV:                  "TV",
	DeviceTypeBoiler:              "BOILER",
	DeviceTypeSpeaker:             "SPEAKER",
	DeviceTypeHomevu:              "HOMEVU",
	DeviceTypeArch:                "ARCH",
	DeviceTypeMissg:               "MISSG",
	DeviceTypeSensor:              "SENSOR",
	DeviceTypeIoTLighting:         "IOT_LIGHTING",
	DeviceTypeIoTMotionSensor:     "IOT_MOTION_SENSOR",
	DeviceTypeIoTSmartPlug:        "IOT_SMART_PLUG",
	DeviceTypeIoTDustSensor:       "IOT_DUST_SENSOR",
	DeviceTypeSolarSensor:         "SOLAR_SENSOR",
	DeviceTypeEMSAirStation:       "EMS_AIR_STATION",
	DeviceTypeAirSensor:           "AIR_SENSOR",
	DeviceTypePuricareAirDetector: "PURICARE_AIR_DETECTOR",
	DeviceTypeV2Phone:             "V2PHONE",
	DeviceTypeHomeRobot:           "HOMEROBOT",
}

// String returns the canonical name for the device type, or a numeric
// placeholder for categories this library does not know about yet.
func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DEVICE_TYPE_%d", int(t))
}
