package sonicare

import "strings"

// Characteristic is a GATT characteristic read during a poll.
type Characteristic int

const (
	CharBattery Characteristic = iota
	CharBrushingTime
	CharState
	CharCurrentTime
	CharMode
	CharStrength
	CharBrushUsage
	CharBrushLifetime
	CharBrushType
)

var characteristicUUIDs = map[Characteristic]string{
	CharBattery:       "00002a19-0000-1000-8000-00805f9b34fb",
	CharBrushingTime:  "477ea600-a260-11e4-ae37-0002a5d54090",
	CharState:         "477ea600-a260-11e4-ae37-0002a5d54010",
	CharCurrentTime:   "477ea600-a260-11e4-ae37-0002a5d54050",
	CharMode:          "477ea600-a260-11e4-ae37-0002a5d54091",
	CharStrength:      "477ea600-a260-11e4-ae37-0002a5d540b0",
	CharBrushUsage:    "477ea600-a260-11e4-ae37-0002a5d54290",
	CharBrushLifetime: "477ea600-a260-11e4-ae37-0002a5d54280",
	CharBrushType:     "477ea600-a260-11e4-ae37-0002a5d542a0",
}

var characteristicNames = map[Characteristic]string{
	CharBattery:       "battery",
	CharBrushingTime:  "brushing time",
	CharState:         "state",
	CharCurrentTime:   "current time",
	CharMode:          "mode",
	CharStrength:      "strength",
	CharBrushUsage:    "brush usage",
	CharBrushLifetime: "brush lifetime",
	CharBrushType:     "brush type",
}

// UUID returns the characteristic's 128-bit UUID in hyphenated form.
func (c Characteristic) UUID() string { return characteristicUUIDs[c] }

func (c Characteristic) String() string {
	if n, ok := characteristicNames[c]; ok {
		return n
	}
	return "unknown characteristic"
}

// RequiredCharacteristics lists the characteristics every poll must read,
// in read order.
func RequiredCharacteristics() []Characteristic {
	return []Characteristic{
		CharBrushUsage,
		CharBrushLifetime,
		CharMode,
		CharStrength,
		CharBattery,
		CharBrushingTime,
		CharState,
		CharCurrentTime,
	}
}

// PolledCharacteristics lists every characteristic a poll reads: the
// required ones followed by optional extras.
func PolledCharacteristics() []Characteristic {
	return append(RequiredCharacteristics(), CharBrushType)
}

// PolledUUIDs returns the UUIDs of PolledCharacteristics.
func PolledUUIDs() []string {
	chars := PolledCharacteristics()
	uuids := make([]string, len(chars))
	for i, c := range chars {
		uuids[i] = c.UUID()
	}
	return uuids
}

// CharacteristicByUUID finds the characteristic with the given UUID.
// Matching ignores case.
func CharacteristicByUUID(uuid string) (Characteristic, bool) {
	uuid = strings.ToLower(uuid)
	for c, u := range characteristicUUIDs {
		if u == uuid {
			return c, true
		}
	}
	return 0, false
}

// Payloads holds the raw bytes read from each characteristic.
type Payloads map[Characteristic][]byte

// PayloadsFromUUIDs converts transport reads keyed by UUID. Unknown UUIDs
// are ignored.
func PayloadsFromUUIDs(raw map[string][]byte) Payloads {
	p := make(Payloads, len(raw))
	for uuid, data := range raw {
		if c, ok := CharacteristicByUUID(uuid); ok {
			p[c] = data
		}
	}
	return p
}
