package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrCharacteristicNotFound is returned for a UUID the peripheral does not expose.
var ErrCharacteristicNotFound = errors.New("ble: characteristic not found")

// ReadAll reads every characteristic in uuids. Every read is attempted even
// after a failure; the returned map holds the values that were read, keyed by
// lower-case UUID, and the error joins all failures.
func ReadAll(conn Connection, uuids []string) (map[string][]byte, error) {
	chars, err := conn.DiscoverCharacteristics(uuids...)
	if err != nil {
		return nil, err
	}

	values := make(map[string][]byte, len(uuids))
	var errs []error
	for _, u := range uuids {
		id := strings.ToLower(u)
		char, ok := chars[id]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrCharacteristicNotFound, id))
			continue
		}
		data, err := char.Read()
		if err != nil {
			errs = append(errs, fmt.Errorf("ble: read %s: %w", id, err))
			continue
		}
		slog.Debug("[BLE] read characteristic", "uuid", id, "payload", fmt.Sprintf("%x", data))
		values[id] = data
	}
	return values, errors.Join(errs...)
}

// backoffDelay returns the reconnection delay for attempt n, capped at max.
func backoffDelay(attempt int, max time.Duration) time.Duration {
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > max {
		return max
	}
	return delay
}

// ConnectWithRetry connects to address, retrying with exponential backoff up
// to attempts times. It gives up early when ctx is done.
func ConnectWithRetry(ctx context.Context, adapter Adapter, address string, attempts int, maxBackoff time.Duration) (Connection, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		// On the first attempt, try immediately; subsequent attempts use backoff.
		if attempt > 0 {
			delay := backoffDelay(attempt-1, maxBackoff)
			slog.Info("[BLE] connect backoff", "address", address, "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("ble: connect to %s: %w", address, ctx.Err())
			case <-time.After(delay):
			}
		}

		conn, err := adapter.Connect(ctx, address)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		slog.Warn("[BLE] connect failed", "address", address, "error", err, "attempt", attempt+1)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("ble: giving up on %s after %d attempts: %w", address, attempts, lastErr)
}
