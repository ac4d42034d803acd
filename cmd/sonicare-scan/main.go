// Command sonicare-scan is a manual test for advertisement classification.
// It scans for a while and prints every Sonicare brush it sees.
//
// Usage:
//
//	go run ./cmd/sonicare-scan [--duration 10s]
package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/chaz8081/sonicare-ble/internal/ble"
	"github.com/chaz8081/sonicare-ble/internal/sonicare"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "how long to scan")
	flag.Parse()

	adapter, err := ble.NewTinyGoAdapter(sonicare.AdvertisementUUID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := adapter.Enable(); err != nil {
		fmt.Printf("Error: enable adapter: %v\n", err)
		return
	}

	fmt.Printf("Scanning for %s...\n", *duration)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]bool)
	err = adapter.Scan(ctx, func(adv ble.Advertisement) {
		id, ok := sonicare.Classify(sonicare.Advertisement{
			Address:          adv.Address,
			LocalName:        adv.LocalName,
			RSSI:             adv.RSSI,
			ServiceUUIDs:     adv.ServiceUUIDs,
			ManufacturerData: adv.ManufacturerData,
		})
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if seen[id.Address] {
			return
		}
		seen[id.Address] = true
		fmt.Printf("  %-12s %s  rssi=%d  name=%q  mfr=%x\n", id.Title, id.Address, adv.RSSI, adv.LocalName, adv.ManufacturerData)
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("\nDone! Found %d device(s).\n", len(seen))
}
