package ble

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

const (
	uuidA = "00002a19-0000-1000-8000-00805f9b34fb"
	uuidB = "477ea600-a260-11e4-ae37-0002a5d54010"
	uuidC = "477ea600-a260-11e4-ae37-0002a5d54090"
)

func TestReadAll(t *testing.T) {
	conn := newMockConnection(map[string]*mockCharacteristic{
		uuidA: {value: []byte{0x55}},
		uuidB: {value: []byte{0x02}},
	})

	values, err := ReadAll(conn, []string{uuidA, uuidB})
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(values[uuidA], []byte{0x55}) {
		t.Errorf("values[%s] = %x, want 55", uuidA, values[uuidA])
	}
	if !bytes.Equal(values[uuidB], []byte{0x02}) {
		t.Errorf("values[%s] = %x, want 02", uuidB, values[uuidB])
	}
}

func TestReadAllAttemptsEveryRead(t *testing.T) {
	failing := &mockCharacteristic{err: errors.New("gatt error")}
	last := &mockCharacteristic{value: []byte{0x01}}
	conn := newMockConnection(map[string]*mockCharacteristic{
		uuidA: failing,
		uuidC: last,
	})

	values, err := ReadAll(conn, []string{uuidA, uuidB, uuidC})
	if err == nil {
		t.Fatal("ReadAll() error = nil, want failures for A and B")
	}
	if !errors.Is(err, ErrCharacteristicNotFound) {
		t.Errorf("ReadAll() error = %v, want ErrCharacteristicNotFound for B", err)
	}
	if last.reads != 1 {
		t.Errorf("characteristic after failure read %d times, want 1", last.reads)
	}
	if len(values) != 1 || !bytes.Equal(values[uuidC], []byte{0x01}) {
		t.Errorf("values = %v, want only %s", values, uuidC)
	}
}

func TestReadAllDiscoverError(t *testing.T) {
	conn := newMockConnection(nil)
	conn.discoverErr = errors.New("no services")

	if _, err := ReadAll(conn, []string{uuidA}); err == nil {
		t.Error("ReadAll() error = nil, want discover error")
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{0, 30 * time.Second, time.Second},
		{1, 30 * time.Second, 2 * time.Second},
		{3, 30 * time.Second, 8 * time.Second},
		{10, 30 * time.Second, 30 * time.Second},
		{2, time.Second, time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.attempt, tt.max); got != tt.want {
			t.Errorf("backoffDelay(%d, %s) = %s, want %s", tt.attempt, tt.max, got, tt.want)
		}
	}
}

func TestConnectWithRetry(t *testing.T) {
	conn := newMockConnection(nil)
	adapter := &mockAdapter{connection: conn, failConnects: 1}

	got, err := ConnectWithRetry(context.Background(), adapter, "AA:BB:CC:DD:EE:FF", 3, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ConnectWithRetry() error = %v", err)
	}
	if got != conn {
		t.Error("ConnectWithRetry() returned unexpected connection")
	}
	if adapter.connects != 2 {
		t.Errorf("connects = %d, want 2", adapter.connects)
	}
}

func TestConnectWithRetryGivesUp(t *testing.T) {
	adapter := &mockAdapter{failConnects: 10}

	_, err := ConnectWithRetry(context.Background(), adapter, "AA:BB:CC:DD:EE:FF", 2, time.Millisecond)
	if err == nil {
		t.Fatal("ConnectWithRetry() error = nil, want failure")
	}
	if adapter.connects != 2 {
		t.Errorf("connects = %d, want 2", adapter.connects)
	}
}

func TestConnectWithRetryStopsOnCancel(t *testing.T) {
	adapter := &mockAdapter{failConnects: 10}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConnectWithRetry(ctx, adapter, "AA:BB:CC:DD:EE:FF", 5, time.Hour)
	if err == nil {
		t.Fatal("ConnectWithRetry() error = nil, want cancellation")
	}
	if adapter.connects != 1 {
		t.Errorf("connects = %d, want 1", adapter.connects)
	}
}

func TestMockAdapterScan(t *testing.T) {
	adapter := &mockAdapter{ads: []Advertisement{{Address: "A"}, {Address: "B"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen []string
	if err := adapter.Scan(ctx, func(a Advertisement) { seen = append(seen, a.Address) }); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("Scan() reported %d advertisements, want 2", len(seen))
	}
}
