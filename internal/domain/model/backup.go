package model

import (
	"time"
)

// BackupVersion is the format version written into every backup.
const BackupVersion = "1.0.0"

// SupportedBackupVersions lists the versions Verify accepts.
var SupportedBackupVersions = []string{BackupVersion}

// Backup is the exported document. JSON tags define the on-disk format.
type Backup struct {
	Metadata BackupMetadata `json:"metadata"`
	Data     BackupData     `json:"data"`
}

type BackupMetadata struct {
	ExportDate string `json:"exportDate"`
	Version    string `json:"version"`
	RequestID  string `json:"requestId,omitempty"`
	Automated  bool   `json:"automated,omitempty"`
	SizeBytes  int    `json:"sizeBytes"`
	SizeMB     string `json:"sizeMB"`
}

type BackupData struct {
	Videos *VideoSection `json:"videos,omitempty"`
	Logs   *LogSection   `json:"logs,omitempty"`
	Users  *UserSection  `json:"users,omitempty"`
}

type VideoSection struct {
	Count    int            `json:"count"`
	Folders  []BackupFolder `json:"folders"`
	Videos   []BackupVideo  `json:"videos"`
	CachedAt string         `json:"cachedAt"`
}

type BackupVideo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Poster      string  `json:"poster,omitempty"`
	Duration    float64 `json:"duration"`
	Views       int64   `json:"views"`
	FolderID    string  `json:"folder_id"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

type BackupFolder struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	VideoCount  *int64 `json:"video_count,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type LogSection struct {
	Count   int        `json:"count"`
	Entries []LogEntry `json:"entries"`
}

type UserSection struct {
	Count   int    `json:"count"`
	Entries []User `json:"entries"`
}

// LogEntry is a row of the application log table.
type LogEntry struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// User is the non-sensitive projection of a user row.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewBackupVideo projects a cached video into its backup form.
func NewBackupVideo(v Video) BackupVideo {
	return BackupVideo{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Thumbnail:   v.Thumbnail,
		Poster:      v.Poster,
		Duration:    v.Duration,
		Views:       v.Views,
		FolderID:    v.FolderID,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

// NewBackupFolder projects a cached folder into its backup form.
func NewBackupFolder(f Folder) BackupFolder {
	return BackupFolder{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		VideoCount:  f.VideoCount,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
