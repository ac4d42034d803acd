// Package publish delivers classified devices and poll snapshots to
// consumers.
package publish

import (
	"log/slog"
	"strings"

	"github.com/chaz8081/sonicare-ble/internal/sonicare"
)

// Sink receives device identities and sensor snapshots.
type Sink interface {
	// PublishIdentity announces a newly classified device.
	PublishIdentity(id sonicare.Identity) error
	// PublishSnapshot reports the readings of one successful poll.
	PublishSnapshot(id sonicare.Identity, snap sonicare.Snapshot) error
}

// DeviceID derives a topic-safe identifier from a device address:
// lower case, separators removed.
func DeviceID(address string) string {
	r := strings.NewReplacer(":", "", "-", "")
	return strings.ToLower(r.Replace(address))
}

// identityPayload is the JSON shape of a device announcement.
type identityPayload struct {
	Address      string `json:"address"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Title        string `json:"title"`
}

func newIdentityPayload(id sonicare.Identity) identityPayload {
	return identityPayload{
		Address:      id.Address,
		Manufacturer: id.Manufacturer,
		Model:        id.ModelName,
		Title:        id.Title,
	}
}

// Log writes identities and snapshots to slog. Used when no broker is
// configured.
type Log struct{}

// Compile-time interface satisfaction check.
var _ Sink = Log{}

func (Log) PublishIdentity(id sonicare.Identity) error {
	slog.Info("[publish] device", "title", id.Title, "model", id.ModelName, "address", id.Address)
	return nil
}

func (Log) PublishSnapshot(id sonicare.Identity, snap sonicare.Snapshot) error {
	attrs := []any{"title", id.Title, sonicare.BrushingKey, snap.Brushing}
	for _, r := range snap.Readings {
		attrs = append(attrs, r.Sensor.String(), r.Value.Raw())
	}
	slog.Info("[publish] snapshot", attrs...)
	return nil
}
