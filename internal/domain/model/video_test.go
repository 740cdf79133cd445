package model

import (
	"testing"
	"time"
)

func int64Ptr(v int64) *int64 { return &v }

func TestVideo_SizeBytes(t *testing.T) {
	tests := []struct {
		name  string
		video Video
		want  int64
	}{
		{"nil size", Video{ID: "v1"}, 0},
		{"reported size", Video{ID: "v1", Size: int64Ptr(2048)}, 2048},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.video.SizeBytes(); got != tt.want {
				t.Errorf("SizeBytes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshot_Age(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Snapshot{Timestamp: ts}

	if got := s.Age(ts.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("Age() = %v, want %v", got, 90*time.Second)
	}

	// Clock skew must not produce a negative age.
	if got := s.Age(ts.Add(-time.Second)); got != 0 {
		t.Errorf("Age() with earlier now = %v, want 0", got)
	}
}

func TestSnapshot_FindVideo(t *testing.T) {
	s := &Snapshot{
		Videos: []Video{
			{ID: "v1", Title: "One"},
			{ID: "v2", Title: "Two"},
		},
	}

	got, ok := s.FindVideo("v2")
	if !ok {
		t.Fatal("expected v2 to be found")
	}
	if got.Title != "Two" {
		t.Errorf("Title = %v, want Two", got.Title)
	}

	if _, ok := s.FindVideo("missing"); ok {
		t.Error("expected missing video not to be found")
	}
}

func TestSnapshot_DanglingVideos(t *testing.T) {
	s := &Snapshot{
		Folders: []Folder{{ID: "f1"}},
		Videos: []Video{
			{ID: "v1", FolderID: "f1"},
			{ID: "v2", FolderID: "gone"},
			{ID: "v3", FolderID: ""},
		},
	}

	if got := s.DanglingVideos(); got != 2 {
		t.Errorf("DanglingVideos() = %v, want 2", got)
	}
}
