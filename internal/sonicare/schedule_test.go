package sonicare

import (
	"testing"
	"time"
)

func TestPollDueNeverPolled(t *testing.T) {
	now := time.Now()
	s := DefaultSchedule()
	for _, state := range []BrushingState{
		{},
		{Brushing: true, LastBrush: now},
		{LastBrush: now.Add(-time.Hour)},
	} {
		if !s.PollDue(state, time.Time{}, now) {
			t.Errorf("PollDue(%+v, never) = false, want true", state)
		}
	}
}

// Within the 30s grace window the short 10s interval applies, so a brush
// 25s ago makes a poll due once more than 10s have passed (15s is due).
func TestPollDueIntervals(t *testing.T) {
	now := time.Now()
	s := DefaultSchedule()

	tests := []struct {
		name    string
		state   BrushingState
		elapsed time.Duration
		want    bool
	}{
		{"recent brush, within short interval", BrushingState{LastBrush: now.Add(-25 * time.Second)}, 5 * time.Second, false},
		{"recent brush, past short interval", BrushingState{LastBrush: now.Add(-25 * time.Second)}, 15 * time.Second, true},
		{"recent brush, long past", BrushingState{LastBrush: now.Add(-25 * time.Second)}, 31 * time.Second, true},
		{"recent brush at grace edge", BrushingState{LastBrush: now.Add(-30 * time.Second)}, 11 * time.Second, true},
		{"idle, below long interval", BrushingState{LastBrush: now.Add(-40 * time.Second)}, 15 * time.Second, false},
		{"idle, at long interval", BrushingState{LastBrush: now.Add(-40 * time.Second)}, 20 * time.Second, false},
		{"idle, past long interval", BrushingState{LastBrush: now.Add(-40 * time.Second)}, 21 * time.Second, true},
		{"never brushed", BrushingState{}, 15 * time.Second, false},
		{"never brushed, past long interval", BrushingState{}, 21 * time.Second, true},
		{"brushing, at short interval", BrushingState{Brushing: true}, 10 * time.Second, false},
		{"brushing, past short interval", BrushingState{Brushing: true}, 11 * time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.PollDue(tt.state, now.Add(-tt.elapsed), now)
			if got != tt.want {
				t.Errorf("PollDue(elapsed=%s) = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestInterval(t *testing.T) {
	now := time.Now()
	s := DefaultSchedule()

	if got := s.Interval(BrushingState{Brushing: true}, now); got != 10*time.Second {
		t.Errorf("Interval(brushing) = %s, want 10s", got)
	}
	if got := s.Interval(BrushingState{LastBrush: now.Add(-31 * time.Second)}, now); got != 20*time.Second {
		t.Errorf("Interval(idle) = %s, want 20s", got)
	}
}

func TestCustomSchedule(t *testing.T) {
	now := time.Now()
	s := Schedule{BrushingInterval: time.Second, IdleInterval: time.Minute, RecentlyBrushing: time.Minute}
	state := BrushingState{LastBrush: now.Add(-59 * time.Second)}

	if !s.PollDue(state, now.Add(-2*time.Second), now) {
		t.Error("PollDue() = false, want true with 1s brushing interval")
	}
}
