package models

import "time"

// Attachment describes a file linked to a record. The bytes live in object
// storage under StorageKey; clients upload and download through presigned
// URLs only.
type Attachment struct {
	ID           string    `json:"id"`
	RecordID     string    `json:"record_id"`
	StorageKey   string    `json:"-"`
	UploadStatus string    `json:"upload_status"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	UploadStatusPending  = "pending"
	UploadStatusUploaded = "uploaded"
)
