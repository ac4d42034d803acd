// Package ble provides the BLE transport used to watch for Sonicare
// advertisements and read GATT characteristics during a poll.
package ble

import "context"

// Advertisement is one advertisement seen while scanning.
type Advertisement struct {
	Address          string
	LocalName        string
	RSSI             int
	ServiceUUIDs     []string
	ManufacturerData map[uint16][]byte
}

// Characteristic represents a readable BLE GATT characteristic.
type Characteristic interface {
	// Read returns the characteristic's current value.
	Read() ([]byte, error)
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristics finds the characteristics with the given UUIDs
	// across all services. UUIDs the peripheral does not expose are absent
	// from the result.
	DiscoverCharacteristics(uuids ...string) (map[string]Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan reports every advertisement to handle until ctx is cancelled.
	// handle may be called from another goroutine and must not block.
	Scan(ctx context.Context, handle func(Advertisement)) error
	// Connect establishes a connection to the device with the given address.
	Connect(ctx context.Context, address string) (Connection, error)
}
