package model

import (
	"time"
)

// Video is the canonical representation of an upstream video.
// Optional upstream fields are left as zero values when absent.
type Video struct {
	ID          string
	Title       string
	Description string
	// Duration is the playback length in seconds.
	Duration  float64
	Thumbnail string
	Poster    string
	AssetURL  string
	// AssetPath is the directory component of the poster URL, used to
	// resolve sibling assets. Empty when the poster URL has no known shape.
	AssetPath string
	CreatedAt string
	UpdatedAt string
	Views     int64
	// Size is the stored size in bytes; nil when upstream did not report it.
	Size     *int64
	FolderID string
}

// SizeBytes returns the reported size or 0 when unknown.
func (v Video) SizeBytes() int64 {
	if v.Size == nil {
		return 0
	}
	return *v.Size
}

// Folder is the canonical representation of an upstream folder.
type Folder struct {
	ID          string
	Name        string
	Description string
	// VideoCount is the count reported by upstream, nil when absent.
	VideoCount *int64
	CreatedAt  string
	UpdatedAt  string
}

// Snapshot is a point-in-time capture of every video and folder known to the cache.
// A Snapshot is never modified after it has been installed.
type Snapshot struct {
	Videos    []Video
	Folders   []Folder
	Timestamp time.Time
}

// Age returns how old the snapshot is relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	age := now.Sub(s.Timestamp)
	if age < 0 {
		return 0
	}
	return age
}

// FindVideo returns the video with the given ID.
func (s *Snapshot) FindVideo(id string) (Video, bool) {
	for _, v := range s.Videos {
		if v.ID == id {
			return v, true
		}
	}
	return Video{}, false
}

// DanglingVideos returns the number of videos whose folder is not part of the snapshot.
func (s *Snapshot) DanglingVideos() int {
	known := make(map[string]struct{}, len(s.Folders))
	for _, f := range s.Folders {
		known[f.ID] = struct{}{}
	}

	n := 0
	for _, v := range s.Videos {
		if _, ok := known[v.FolderID]; !ok {
			n++
		}
	}
	return n
}
