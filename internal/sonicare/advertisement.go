package sonicare

import (
	"strings"
)

// AdvertisementUUID is the service UUID every Sonicare brush advertises.
const AdvertisementUUID = "477ea600-a260-11e4-ae37-0002a5d50001"

// Advertisement is one observed BLE advertisement.
type Advertisement struct {
	Address          string
	LocalName        string
	RSSI             int
	ServiceUUIDs     []string
	ManufacturerData map[uint16][]byte
}

// Identity describes a classified device.
type Identity struct {
	Address      string
	Manufacturer string
	Model        Model
	ModelName    string
	Title        string
}

// Classify reports whether adv comes from a Sonicare brush and, if so,
// returns its identity. It holds no state and is safe to call for every
// advertisement.
func Classify(adv Advertisement) (Identity, bool) {
	if !advertisesSonicare(adv.ServiceUUIDs) {
		return Identity{}, false
	}

	// The model byte layout in the manufacturer data is not known yet.
	model := DefaultModel
	name := model.DisplayName()
	return Identity{
		Address:      adv.Address,
		Manufacturer: Manufacturer,
		Model:        model,
		ModelName:    name,
		Title:        name + " " + ShortAddress(adv.Address),
	}, true
}

func advertisesSonicare(uuids []string) bool {
	for _, u := range uuids {
		if strings.Contains(u, AdvertisementUUID) {
			return true
		}
	}
	return false
}

// ShortAddress renders the last four hex digits of a device address, e.g.
// "AA:BB:CC:DD:EE:FF" becomes "EEFF". CoreBluetooth UUID addresses are
// handled the same way.
func ShortAddress(address string) string {
	parts := strings.Split(strings.ReplaceAll(address, "-", ":"), ":")
	var tail string
	if len(parts) >= 2 {
		tail = parts[len(parts)-2] + parts[len(parts)-1]
	} else {
		tail = parts[0]
	}
	tail = strings.ToUpper(tail)
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return tail
}
