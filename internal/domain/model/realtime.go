package model

import "time"

// RealtimeItem is the live viewer count of one video.
type RealtimeItem struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title,omitempty"`
	Viewers int64  `json:"viewers"`
}

// RealtimeStats is a capture of live viewer counts.
type RealtimeStats struct {
	Items     []RealtimeItem `json:"items"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// TotalViewers sums the viewers of every item.
func (r *RealtimeStats) TotalViewers() int64 {
	if r == nil {
		return 0
	}
	var total int64
	for _, it := range r.Items {
		total += it.Viewers
	}
	return total
}
