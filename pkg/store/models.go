package store

import (
	"errors"
	"time"
)

// Sentinel errors returned by lookups.
var (
	ErrTrackNotFound  = errors.New("track not found")
	ErrDuplicateTrack = errors.New("track already exists")
)

// Track is one downloaded audio file's metadata.
type Track struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	GroupID   string    `gorm:"index;not null;size:255" json:"group_id"`
	FileID    string    `gorm:"uniqueIndex;not null;size:255" json:"file_id"`
	Title     string    `gorm:"size:1024" json:"title,omitempty"`
	Performer string    `gorm:"size:1024" json:"performer,omitempty"`
	Extension string    `gorm:"size:16" json:"extension,omitempty"`
	Path      string    `gorm:"size:4096" json:"path,omitempty"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Track.
func (Track) TableName() string {
	return "tracks"
}

// Download statuses recorded per attempt.
const (
	DownloadStatusCompleted = "completed"
	DownloadStatusFailed    = "failed"
	DownloadStatusPrefetch  = "prefetch"
)

// DownloadRecord is one download attempt, successful or not.
type DownloadRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	TrackID    string    `gorm:"index;size:36" json:"track_id"`
	Status     string    `gorm:"not null;size:50" json:"status"`
	Error      string    `gorm:"size:4096" json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for DownloadRecord.
func (DownloadRecord) TableName() string {
	return "download_records"
}

// allModels lists every model passed to AutoMigrate.
func allModels() []any {
	return []any{&Track{}, &DownloadRecord{}}
}
