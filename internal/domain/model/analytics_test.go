package model

import (
	"testing"
	"time"
)

func TestVideoAnalytics_ComputeRates(t *testing.T) {
	tests := []struct {
		name        string
		analytics   VideoAnalytics
		wantAverage float64
		wantRate    float64
	}{
		{
			name:      "no views",
			analytics: VideoAnalytics{TotalWatchSeconds: 30, CompletedViews: 1},
		},
		{
			name:        "half completed",
			analytics:   VideoAnalytics{TotalViews: 4, CompletedViews: 2, TotalWatchSeconds: 100},
			wantAverage: 25,
			wantRate:    50,
		},
		{
			name:        "rate capped at 100",
			analytics:   VideoAnalytics{TotalViews: 1, CompletedViews: 3, TotalWatchSeconds: 9},
			wantAverage: 9,
			wantRate:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.analytics
			a.ComputeRates()
			if a.AverageWatchSeconds != tt.wantAverage {
				t.Errorf("AverageWatchSeconds = %v, want %v", a.AverageWatchSeconds, tt.wantAverage)
			}
			if a.CompletionRate != tt.wantRate {
				t.Errorf("CompletionRate = %v, want %v", a.CompletionRate, tt.wantRate)
			}
		})
	}
}

func TestPlaybackSession_State(t *testing.T) {
	s := PlaybackSession{CompletionPercent: 89.9}
	if s.Ended() {
		t.Error("Ended() = true for open session")
	}
	if s.Completed() {
		t.Error("Completed() = true below threshold")
	}

	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.EndedAt = &end
	s.CompletionPercent = CompletedPercent
	if !s.Ended() {
		t.Error("Ended() = false after EndedAt set")
	}
	if !s.Completed() {
		t.Error("Completed() = false at threshold")
	}
}
