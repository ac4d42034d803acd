// Package monitor watches BLE advertisements for Sonicare brushes and polls
// each brush on its adaptive schedule, publishing every decoded snapshot.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/sonicare-ble/internal/ble"
	"github.com/chaz8081/sonicare-ble/internal/publish"
	"github.com/chaz8081/sonicare-ble/internal/sonicare"
)

// Options configures the Monitor behavior.
type Options struct {
	Schedule        sonicare.Schedule
	Decoder         sonicare.Decoder
	Timeout         time.Duration // whole connect+read cycle
	ConnectAttempts int
	ReconnectMax    time.Duration
	MaxConcurrent   int              // polls in flight across all devices
	Now             func() time.Time // for tests; defaults to time.Now
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Schedule:        sonicare.DefaultSchedule(),
		Timeout:         30 * time.Second,
		ConnectAttempts: 3,
		ReconnectMax:    8 * time.Second,
		MaxConcurrent:   1,
		Now:             time.Now,
	}
}

// session is everything tracked for one brush.
type session struct {
	identity sonicare.Identity
	state    sonicare.BrushingState
	lastPoll time.Time // last successful poll; zero = never
	rssi     int
	polling  bool

	announced  bool // identity delivered to the sink
	announcing bool
}

// Monitor tracks classified brushes and polls them.
type Monitor struct {
	adapter ble.Adapter
	sink    publish.Sink
	opts    Options

	mu       sync.Mutex
	sessions map[string]*session

	slots chan struct{}
	wg    sync.WaitGroup
}

// New creates a Monitor.
func New(adapter ble.Adapter, sink publish.Sink, opts Options) *Monitor {
	def := DefaultOptions()
	if opts.Schedule == (sonicare.Schedule{}) {
		opts.Schedule = def.Schedule
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = def.ConnectAttempts
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = def.ReconnectMax
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = def.MaxConcurrent
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Monitor{
		adapter:  adapter,
		sink:     sink,
		opts:     opts,
		sessions: make(map[string]*session),
		slots:    make(chan struct{}, opts.MaxConcurrent),
	}
}

// Run enables the adapter and handles advertisements until ctx is
// cancelled, then waits for polls in flight.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.adapter.Enable(); err != nil {
		return fmt.Errorf("monitor: enable adapter: %w", err)
	}

	slog.Info("[poll] scanning", "service", sonicare.AdvertisementUUID)
	err := m.adapter.Scan(ctx, func(adv ble.Advertisement) {
		m.HandleAdvertisement(ctx, adv)
	})
	m.Wait()
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

// HandleAdvertisement classifies adv and starts a background poll if one is
// due. Sink and BLE work happen on background goroutines, so it does not
// block the scan. It reports whether a poll was started. At most one poll per device is
// in flight; if every poll slot is busy the advertisement is skipped and the
// next one retries.
func (m *Monitor) HandleAdvertisement(ctx context.Context, adv ble.Advertisement) bool {
	id, ok := sonicare.Classify(sonicare.Advertisement{
		Address:          adv.Address,
		LocalName:        adv.LocalName,
		RSSI:             adv.RSSI,
		ServiceUUIDs:     adv.ServiceUUIDs,
		ManufacturerData: adv.ManufacturerData,
	})
	if !ok {
		return false
	}

	m.mu.Lock()
	s, known := m.sessions[adv.Address]
	if !known {
		s = &session{identity: id}
		m.sessions[adv.Address] = s
	}
	s.rssi = adv.RSSI
	announce := !s.announced && !s.announcing
	if announce {
		s.announcing = true
	}
	due := !s.polling && m.opts.Schedule.PollDue(s.state, s.lastPoll, m.opts.Now())
	if due {
		select {
		case m.slots <- struct{}{}:
			s.polling = true
		default:
			slog.Debug("[poll] all poll slots busy, skipping", "title", id.Title)
			due = false
		}
	}
	m.mu.Unlock()

	if !known {
		slog.Info("[poll] found device", "title", id.Title, "address", id.Address)
	}
	if announce {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.announce(adv.Address, id)
		}()
	}

	if !due {
		return false
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() { <-m.slots }()
		m.poll(ctx, adv.Address)
	}()
	return true
}

// announce publishes the identity of a device. On failure the next
// advertisement tries again.
func (m *Monitor) announce(address string, id sonicare.Identity) {
	err := m.sink.PublishIdentity(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[address]
	s.announcing = false
	if err != nil {
		slog.Error("[poll] failed to publish device", "title", id.Title, "error", err)
		return
	}
	s.announced = true
}

// poll connects to one device, reads and decodes its characteristics and
// publishes the snapshot. On failure the session keeps its previous state
// and last-poll time, so the next advertisement retries.
func (m *Monitor) poll(ctx context.Context, address string) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	snap, id, err := m.readAndDecode(ctx, address)
	if err != nil {
		m.mu.Lock()
		m.sessions[address].polling = false
		m.mu.Unlock()
		slog.Warn("[poll] poll failed", "address", address, "error", err)
		return
	}

	if err := m.sink.PublishSnapshot(id, snap); err != nil {
		slog.Error("[poll] failed to publish snapshot", "title", id.Title, "error", err)
	}
}

func (m *Monitor) readAndDecode(ctx context.Context, address string) (sonicare.Snapshot, sonicare.Identity, error) {
	start := m.opts.Now()
	conn, err := ble.ConnectWithRetry(ctx, m.adapter, address, m.opts.ConnectAttempts, m.opts.ReconnectMax)
	if err != nil {
		return sonicare.Snapshot{}, sonicare.Identity{}, err
	}

	values, readErr := ble.ReadAll(conn, sonicare.PolledUUIDs())
	if err := conn.Disconnect(); err != nil {
		slog.Debug("[BLE] disconnect failed", "address", address, "error", err)
	}
	if readErr != nil {
		// Optional characteristics may be absent; Decode decides whether
		// what was read is enough.
		slog.Debug("[poll] some reads failed", "address", address, "error", readErr)
	}
	payloads := sonicare.PayloadsFromUUIDs(values)

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[address]
	s.polling = false

	now := m.opts.Now()
	snap, next, err := m.opts.Decoder.Decode(payloads, s.identity.Model, s.state, now)
	if err != nil {
		return sonicare.Snapshot{}, sonicare.Identity{}, err
	}
	s.state = next
	s.lastPoll = now
	snap = snap.With(sonicare.SensorSignalStrength, sonicare.SignalDBm(s.rssi))

	slog.Info("[poll] polled device",
		"title", s.identity.Title,
		"brushing", next.Brushing,
		"took", now.Sub(start).Round(time.Millisecond),
		"next_interval", m.opts.Schedule.Interval(next, now))
	return snap, s.identity, nil
}

// Wait blocks until every poll in flight has finished.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Device is the tracked state of one brush.
type Device struct {
	Identity sonicare.Identity
	State    sonicare.BrushingState
	LastPoll time.Time
	RSSI     int
}

// Devices returns the brushes seen so far.
func (m *Monitor) Devices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Device, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, Device{
			Identity: s.identity,
			State:    s.state,
			LastPoll: s.lastPoll,
			RSSI:     s.rssi,
		})
	}
	return out
}
