package model

import (
	"math"
	"time"
)

// CompletedPercent is the completion at which a view counts as completed.
const CompletedPercent = 90.0

// PlaybackEvent is a player event reported alongside a progress update.
type PlaybackEvent string

const (
	PlaybackEventSeek  PlaybackEvent = "seek"
	PlaybackEventPause PlaybackEvent = "pause"
)

// PlaybackSession tracks one viewer watching one video.
type PlaybackSession struct {
	ID        string     `json:"session_id"`
	VideoID   string     `json:"video_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	// LastProgressAt is the time of the latest progress update, or StartedAt.
	LastProgressAt    time.Time `json:"-"`
	WatchSeconds      float64   `json:"watch_seconds"`
	CompletionPercent float64   `json:"completion_percent"`
	SeekEvents        int       `json:"seek_events"`
	PauseEvents       int       `json:"pause_events"`
}

// Ended reports whether the session has been closed.
func (s *PlaybackSession) Ended() bool {
	return s.EndedAt != nil
}

// Completed reports whether the viewer reached CompletedPercent.
func (s *PlaybackSession) Completed() bool {
	return s.CompletionPercent >= CompletedPercent
}

// Heatmap maps a whole playback second to the number of progress samples at it.
type Heatmap map[int64]int64

// VideoAnalytics aggregates the ended sessions of one video.
type VideoAnalytics struct {
	VideoID             string            `json:"video_id"`
	TotalViews          int64             `json:"total_views"`
	CompletedViews      int64             `json:"completed_views"`
	TotalWatchSeconds   float64           `json:"total_watch_seconds"`
	AverageWatchSeconds float64           `json:"average_watch_seconds"`
	CompletionRate      float64           `json:"completion_rate"`
	Engagement          Heatmap           `json:"engagement"`
	RecentSessions      []PlaybackSession `json:"recent_sessions"`
}

// ComputeRates fills AverageWatchSeconds and CompletionRate from the totals.
// CompletionRate is a percentage.
func (a *VideoAnalytics) ComputeRates() {
	if a.TotalViews <= 0 {
		a.AverageWatchSeconds = 0
		a.CompletionRate = 0
		return
	}
	views := float64(a.TotalViews)
	a.AverageWatchSeconds = a.TotalWatchSeconds / views
	a.CompletionRate = math.Min(float64(a.CompletedViews)/views*100, 100)
}
