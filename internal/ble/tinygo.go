package ble

import (
	"context"
	"fmt"
	"strings"

	"tinygo.org/x/bluetooth"
)

// maxAttributeLen is the largest value an ATT read can return.
const maxAttributeLen = 512

// TinyGoAdapter wraps tinygo-org/bluetooth (BlueZ on Linux, CoreBluetooth on
// macOS). On macOS, device addresses are CoreBluetooth UUIDs rather than MAC
// addresses.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter

	// watched are the service UUIDs reported in Advertisement.ServiceUUIDs.
	// tinygo only lets us test for a known UUID, not list them.
	watched []bluetooth.UUID
}

// NewTinyGoAdapter creates an adapter on the default controller that reports
// the given service UUIDs when a device advertises them.
func NewTinyGoAdapter(watchServices ...string) (*TinyGoAdapter, error) {
	a := &TinyGoAdapter{adapter: bluetooth.DefaultAdapter}
	for _, s := range watchServices {
		uuid, err := bluetooth.ParseUUID(s)
		if err != nil {
			return nil, fmt.Errorf("ble: parse service UUID %q: %w", s, err)
		}
		a.watched = append(a.watched, uuid)
	}
	return a, nil
}

func (a *TinyGoAdapter) Enable() error {
	return a.adapter.Enable()
}

func (a *TinyGoAdapter) Scan(ctx context.Context, handle func(Advertisement)) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.adapter.StopScan()
		case <-done:
		}
	}()

	err := a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		handle(a.toAdvertisement(result))
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("ble: scan: %w", err)
	}
	return nil
}

func (a *TinyGoAdapter) toAdvertisement(result bluetooth.ScanResult) Advertisement {
	adv := Advertisement{
		Address:   result.Address.String(),
		LocalName: result.LocalName(),
		RSSI:      int(result.RSSI),
	}
	for _, uuid := range a.watched {
		if result.HasServiceUUID(uuid) {
			adv.ServiceUUIDs = append(adv.ServiceUUIDs, uuid.String())
		}
	}
	if md := result.ManufacturerData(); len(md) > 0 {
		adv.ManufacturerData = make(map[uint16][]byte, len(md))
		for _, el := range md {
			adv.ManufacturerData[el.CompanyID] = el.Data
		}
	}
	return adv
}

func (a *TinyGoAdapter) Connect(ctx context.Context, address string) (Connection, error) {
	var addr bluetooth.Address
	addr.Set(address)

	// tinygo/bluetooth's Connect blocks internally with its own timeout.
	// We wrap it to also respect our ctx cancellation.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		// Connect cannot be cancelled. If it succeeds later, drop the link.
		go func() {
			if result := <-ch; result.err == nil {
				_ = result.device.Disconnect()
			}
		}()
		return nil, fmt.Errorf("ble: connect to %s: %w", address, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("ble: connect to %s: %w", address, result.err)
		}
		return &tinyGoConnection{device: result.device}, nil
	}
}

// Compile-time check that TinyGoAdapter implements Adapter.
var _ Adapter = (*TinyGoAdapter)(nil)

type tinyGoConnection struct {
	device bluetooth.Device
}

func (c *tinyGoConnection) DiscoverCharacteristics(uuids ...string) (map[string]Characteristic, error) {
	wanted := make(map[string]bool, len(uuids))
	for _, u := range uuids {
		wanted[strings.ToLower(u)] = true
	}

	svcs, err := c.device.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}

	found := make(map[string]Characteristic, len(uuids))
	for _, svc := range svcs {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("ble: discover characteristics of %s: %w", svc.UUID(), err)
		}
		for i := range chars {
			id := chars[i].UUID().String()
			if wanted[id] {
				found[id] = &tinyGoCharacteristic{char: chars[i]}
			}
		}
	}
	return found, nil
}

func (c *tinyGoConnection) Disconnect() error {
	return c.device.Disconnect()
}

type tinyGoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c *tinyGoCharacteristic) Read() ([]byte, error) {
	buf := make([]byte, maxAttributeLen)
	n, err := c.char.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
