package sonicare

import (
	"encoding/json"
	"time"
)

// Sensor is a kind of reading reported for a device.
type Sensor int

const (
	SensorBrushingTime Sensor = iota
	SensorCurrentTime
	SensorToothbrushState
	SensorMode
	SensorSignalStrength
	SensorBatteryPercent
	SensorBrushType
	SensorBrushStrength
	SensorBrushHeadLifetime
	SensorBrushHeadUsage
	SensorBrushHeadPercentage
)

// BrushingKey is the key of the boolean brushing flag.
const BrushingKey = "brushing"

var sensorKeys = [...]string{
	SensorBrushingTime:        "brushing_time",
	SensorCurrentTime:         "current_time",
	SensorToothbrushState:     "toothbrush_state",
	SensorMode:                "mode",
	SensorSignalStrength:      "signal_strength",
	SensorBatteryPercent:      "battery_percent",
	SensorBrushType:           "brush_type",
	SensorBrushStrength:       "brush_strength",
	SensorBrushHeadLifetime:   "brush_head_lifetime",
	SensorBrushHeadUsage:      "brush_head_usage",
	SensorBrushHeadPercentage: "brush_head_percentage",
}

// String returns the sensor's external key, e.g. "battery_percent".
func (s Sensor) String() string {
	if s < 0 || int(s) >= len(sensorKeys) {
		return "unknown"
	}
	return sensorKeys[s]
}

// Value is a decoded sensor value. The concrete types are Integer, Percent,
// Code, Timestamp and SignalDBm.
type Value interface {
	// Raw returns the value as it is serialized for consumers.
	Raw() any
}

// Integer is an unsigned counter or duration read from the device.
type Integer uint64

func (v Integer) Raw() any { return uint64(v) }

// Percent is a 0-100 percentage.
type Percent uint8

func (v Percent) Raw() any { return uint8(v) }

// SignalDBm is a received signal strength.
type SignalDBm int

func (v SignalDBm) Raw() any { return int(v) }

// Code is a byte code resolved against a lookup table. Known is false when
// the table had no entry, in which case Label reads "unknown <kind> <code>".
type Code struct {
	Code  uint8
	Label string
	Known bool
}

func (v Code) Raw() any { return v.Label }

// TimestampLayout is the layout of formatted device timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a device clock reading.
type Timestamp struct {
	Time time.Time
}

func (v Timestamp) String() string { return v.Time.Format(TimestampLayout) }

func (v Timestamp) Raw() any { return v.String() }

// Reading pairs a sensor with its value.
type Reading struct {
	Sensor Sensor
	Value  Value
}

// Snapshot is the result of one successful poll.
type Snapshot struct {
	Readings []Reading
	Brushing bool
}

// Get returns the value recorded for sensor.
func (s Snapshot) Get(sensor Sensor) (Value, bool) {
	for _, r := range s.Readings {
		if r.Sensor == sensor {
			return r.Value, true
		}
	}
	return nil, false
}

// With returns a copy of s with sensor set to v, replacing any existing
// reading for the same sensor.
func (s Snapshot) With(sensor Sensor, v Value) Snapshot {
	out := Snapshot{
		Readings: make([]Reading, 0, len(s.Readings)+1),
		Brushing: s.Brushing,
	}
	replaced := false
	for _, r := range s.Readings {
		if r.Sensor == sensor {
			r.Value = v
			replaced = true
		}
		out.Readings = append(out.Readings, r)
	}
	if !replaced {
		out.Readings = append(out.Readings, Reading{Sensor: sensor, Value: v})
	}
	return out
}

// Map flattens the snapshot to its external string keys.
func (s Snapshot) Map() map[string]any {
	m := make(map[string]any, len(s.Readings)+1)
	for _, r := range s.Readings {
		m[r.Sensor.String()] = r.Value.Raw()
	}
	m[BrushingKey] = s.Brushing
	return m
}

// MarshalJSON encodes the snapshot as a flat object keyed by sensor.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}
