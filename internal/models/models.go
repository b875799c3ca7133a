package models

import "time"

// User represents a registered account. The core pipeline only consumes the
// identifier; registration and login live in the handlers layer.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	CreatedAt time.Time
}

// Asset is the indexed record for one downloaded video. The document is keyed
// by VideoID in the search index; ObjectKey points at the stored bytes and is
// only populated once the upload has succeeded.
type Asset struct {
	VideoID      string    `json:"video_id"`
	UserID       string    `json:"user_id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Duration     int64     `json:"duration"`
	Uploader     string    `json:"uploader"`
	UploadDate   string    `json:"upload_date"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	Tags         []string  `json:"tags"`
	Description  string    `json:"description"`
	Thumbnail    string    `json:"thumbnail"`
	ObjectKey    string    `json:"object_key"`
	FileName     string    `json:"file_name"`
	FileSize     int64     `json:"file_size"`
	FormatID     string    `json:"format_id"`
	Status       string    `json:"status"`
	DownloadDate time.Time `json:"download_date"`
	ExpiryDate   time.Time `json:"expiry_date"`
}

// Expired reports whether the asset's retention window has elapsed.
func (a Asset) Expired(now time.Time) bool {
	return !a.ExpiryDate.After(now)
}

const (
	AssetStatusCompleted = "completed"
)

// DownloadRequest is the persisted audit record for one acquisition attempt.
// Status only moves forward; completed and failed are terminal.
type DownloadRequest struct {
	ID         string
	UserID     string
	URL        string
	FormatID   string
	Status     string
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

const (
	RequestStatusQueued     = "queued"
	RequestStatusInProgress = "in_progress"
	RequestStatusCompleted  = "completed"
	RequestStatusFailed     = "failed"
)
