// Package sonicare identifies Philips Sonicare toothbrushes from BLE
// advertisements, decides when an active poll is due, and decodes the GATT
// characteristic payloads read during a poll into typed sensor readings.
//
// Nothing in this package performs I/O. Transport lives in internal/ble and
// the polling loop in internal/monitor.
package sonicare

import "maps"

// Manufacturer is reported for every classified device.
const Manufacturer = "Philips Sonicare"

// Model is a supported Sonicare hardware variant.
type Model int

const (
	ModelHX6340 Model = iota // kids
	ModelHX992X              // DiamondClean
	ModelHX9990              // Prestige
)

// DefaultModel is assumed for every classified device until the model can be
// read from the advertisement.
const DefaultModel = ModelHX992X

// ModeTable maps a brushing mode code to its name.
type ModeTable map[uint8]string

// Extend returns a new table holding every entry of t plus overrides.
// Overrides win on conflicting codes. t is not modified.
func (t ModeTable) Extend(overrides ModeTable) ModeTable {
	out := make(ModeTable, len(t)+len(overrides))
	maps.Copy(out, t)
	maps.Copy(out, overrides)
	return out
}

var (
	kidsModes = ModeTable{
		0: "none",
	}

	expertCleanModes = ModeTable{
		120: "clean",
		200: "gun health",
		180: "deep clean+",
	}

	diamondCleanModes = expertCleanModes.Extend(ModeTable{160: "white+"})

	prestigeModes = diamondCleanModes.Extend(ModeTable{210: "sensitive"})
)

type modelDescription struct {
	name  string
	modes ModeTable
}

var modelDescriptions = map[Model]modelDescription{
	ModelHX6340: {name: "HX6340", modes: kidsModes},
	ModelHX992X: {name: "HX992X", modes: diamondCleanModes},
	ModelHX9990: {name: "HX9990", modes: prestigeModes},
}

// DisplayName returns the model identifier shown to users, e.g. "HX992X".
func (m Model) DisplayName() string {
	if d, ok := modelDescriptions[m]; ok {
		return d.name
	}
	return "unknown"
}

// String implements fmt.Stringer.
func (m Model) String() string { return m.DisplayName() }

// Modes returns a copy of the model's mode table.
func (m Model) Modes() ModeTable {
	return maps.Clone(modelDescriptions[m].modes)
}

// Mode looks up a mode code in the model's table.
func (m Model) Mode(code uint8) (string, bool) {
	name, ok := modelDescriptions[m].modes[code]
	return name, ok
}

// Models returns every supported model in declaration order.
func Models() []Model {
	return []Model{ModelHX6340, ModelHX992X, ModelHX9990}
}

// StateRun is the toothbrush state label that counts as brushing.
const StateRun = "run"

var states = map[uint8]string{
	0: "off",
	1: "standby",
	2: StateRun,
	3: "charge",
	4: "shutdown",
	6: "validate",
	7: "lightsout",
}

var strengths = map[uint8]string{
	0: "low",
	1: "medium",
	2: "high",
}
