package sonicare

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

var (
	// ErrMissingPayload means a required characteristic was not read.
	ErrMissingPayload = errors.New("missing payload")
	// ErrInvalidPayload means a payload could not be interpreted.
	ErrInvalidPayload = errors.New("invalid payload")
)

// PayloadError reports which characteristic failed to decode.
type PayloadError struct {
	Characteristic Characteristic
	Err            error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("sonicare: %s: %v", e.Characteristic, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// Decoder turns characteristic payloads into a Snapshot.
type Decoder struct {
	// Location formats the device clock. Nil means time.Local.
	Location *time.Location
}

// Decode converts one poll's payloads into a snapshot and returns the
// brushing state that follows from it. All required payloads must be present;
// otherwise Decode returns an error, no snapshot, and prev unchanged.
// Codes missing from a lookup table decode to an "unknown" label.
func (d Decoder) Decode(payloads Payloads, model Model, prev BrushingState, now time.Time) (Snapshot, BrushingState, error) {
	for _, c := range RequiredCharacteristics() {
		if len(payloads[c]) == 0 {
			return Snapshot{}, prev, &PayloadError{Characteristic: c, Err: ErrMissingPayload}
		}
	}

	brushingTime, err := uintPayload(payloads, CharBrushingTime)
	if err != nil {
		return Snapshot{}, prev, err
	}
	epoch, err := uintPayload(payloads, CharCurrentTime)
	if err != nil {
		return Snapshot{}, prev, err
	}
	if epoch > math.MaxInt64 {
		return Snapshot{}, prev, &PayloadError{
			Characteristic: CharCurrentTime,
			Err:            fmt.Errorf("%w: epoch %d out of range", ErrInvalidPayload, epoch),
		}
	}
	lifetime, err := uintPayload(payloads, CharBrushLifetime)
	if err != nil {
		return Snapshot{}, prev, err
	}
	usage, err := uintPayload(payloads, CharBrushUsage)
	if err != nil {
		return Snapshot{}, prev, err
	}

	state := lookup("state", payloads[CharState][0], states)
	mode := lookup("mode", payloads[CharMode][0], modelDescriptions[model].modes)
	strength := lookup("strength", payloads[CharStrength][0], strengths)

	loc := d.Location
	if loc == nil {
		loc = time.Local
	}

	snap := Snapshot{Readings: []Reading{
		{SensorBrushingTime, Integer(brushingTime)},
		{SensorBatteryPercent, battery(payloads[CharBattery][0])},
		{SensorToothbrushState, state},
		{SensorCurrentTime, Timestamp{Time: time.Unix(int64(epoch), 0).In(loc)}},
		{SensorBrushHeadLifetime, Integer(lifetime)},
		{SensorBrushHeadUsage, Integer(usage)},
		{SensorMode, mode},
		{SensorBrushStrength, strength},
	}}

	if lifetime > 0 {
		snap.Readings = append(snap.Readings, Reading{SensorBrushHeadPercentage, headRemaining(lifetime, usage)})
	}

	if len(payloads[CharBrushType]) > 0 {
		if brushType, err := uintPayload(payloads, CharBrushType); err == nil {
			snap.Readings = append(snap.Readings, Reading{SensorBrushType, Integer(brushType)})
		} else {
			slog.Debug("[sonicare] ignoring brush type", "error", err)
		}
	}

	next := prev
	next.Brushing = state.Label == StateRun
	if next.Brushing {
		next.LastBrush = now
	}
	snap.Brushing = next.Brushing

	return snap, next, nil
}

// uintPayload decodes a little-endian unsigned integer spanning the whole
// payload.
func uintPayload(payloads Payloads, c Characteristic) (uint64, error) {
	data := payloads[c]
	if len(data) > 8 {
		return 0, &PayloadError{
			Characteristic: c,
			Err:            fmt.Errorf("%w: %d bytes exceeds 64-bit integer", ErrInvalidPayload, len(data)),
		}
	}
	var v uint64
	for i, b := range data {
		v |= uint64(b) << (8 * i)
	}
	return v, nil
}

// battery clamps the reported charge to 100%.
func battery(b uint8) Percent {
	if b > 100 {
		slog.Warn("[sonicare] battery level out of range", "value", b)
		return 100
	}
	return Percent(b)
}

func lookup(kind string, code uint8, table map[uint8]string) Code {
	if label, ok := table[code]; ok {
		return Code{Code: code, Label: label, Known: true}
	}
	slog.Warn("[sonicare] unknown code", "kind", kind, "code", code)
	return Code{Code: code, Label: fmt.Sprintf("unknown %s %d", kind, code)}
}

// headRemaining returns the share of brush head life left.
func headRemaining(lifetime, usage uint64) Percent {
	if usage >= lifetime {
		return 0
	}
	left := lifetime - usage
	if left > math.MaxUint64/100 {
		return Percent(left / (lifetime / 100))
	}
	return Percent(left * 100 / lifetime)
}
