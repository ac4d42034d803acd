package sonicare

import "time"

// Polling intervals, as observed on the vendor app.
const (
	DefaultBrushingInterval = 10 * time.Second
	DefaultIdleInterval     = 20 * time.Second
	DefaultRecentlyBrushing = 30 * time.Second
)

// BrushingState is the brushing activity tracked for one device session.
// The zero value means "not brushing, never brushed".
type BrushingState struct {
	Brushing  bool
	LastBrush time.Time
}

// RecentlyBrushed reports whether the last observed brushing happened within
// window of now.
func (s BrushingState) RecentlyBrushed(now time.Time, window time.Duration) bool {
	if s.LastBrush.IsZero() {
		return false
	}
	return now.Sub(s.LastBrush) <= window
}

// Schedule decides when a device should be polled. It polls faster while
// the brush is in use or was used within RecentlyBrushing.
type Schedule struct {
	BrushingInterval time.Duration
	IdleInterval     time.Duration
	RecentlyBrushing time.Duration
}

// DefaultSchedule returns the stock intervals.
func DefaultSchedule() Schedule {
	return Schedule{
		BrushingInterval: DefaultBrushingInterval,
		IdleInterval:     DefaultIdleInterval,
		RecentlyBrushing: DefaultRecentlyBrushing,
	}
}

// Interval returns the polling interval that applies to state at now.
func (s Schedule) Interval(state BrushingState, now time.Time) time.Duration {
	if state.Brushing || state.RecentlyBrushed(now, s.RecentlyBrushing) {
		return s.BrushingInterval
	}
	return s.IdleInterval
}

// PollDue reports whether a poll is due. A zero lastPoll means the device
// has never been polled successfully, which always makes a poll due.
func (s Schedule) PollDue(state BrushingState, lastPoll, now time.Time) bool {
	if lastPoll.IsZero() {
		return true
	}
	return now.Sub(lastPoll) > s.Interval(state, now)
}
