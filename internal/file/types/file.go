package types

import (
	"time"
)

// UploadStatus is the outcome of an upload request
type UploadStatus string

const (
	// StatusCreated means the payload was new and a blob was stored
	StatusCreated UploadStatus = "created"
	// StatusDuplicate means identical content was already stored
	StatusDuplicate UploadStatus = "duplicate"
)

// FileRecord is the canonical metadata for a stored file.
// Immutable once created; content_hash is the deduplication key.
type FileRecord struct {
	FileID        string    `json:"file_id"`
	ContentHash   string    `json:"content_hash"`
	Name          string    `json:"name"`
	SizeBytes     int64     `json:"size_bytes"`
	ContentType   string    `json:"content_type"`
	CreatedAt     time.Time `json:"created_at"`
	StorageKey    string    `json:"storage_key"`
	AccessLocator string    `json:"access_locator"`
}

// UploadResult is returned by the deduplication engine for every upload
type UploadResult struct {
	Status UploadStatus `json:"status"`
	Record *FileRecord  `json:"record"`
}

// Stats is the aggregate view over stored files and dedup counters
type Stats struct {
	TotalUniqueFiles  int64 `json:"total_unique_files"`
	DuplicatesAvoided int64 `json:"duplicates_avoided"`
	TotalBytesSaved   int64 `json:"total_bytes_saved"`
}
