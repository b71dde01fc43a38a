package service

import (
	"fmt"
	"net/url"
	"time"

	"github.com/lk2023060901/filevault/internal/file/types"
)

// FileRecordResponse is the wire shape of a stored file record. Field
// names are a compatibility surface for previously stored data.
type FileRecordResponse struct {
	FileID        string `json:"file_id"`
	ContentHash   string `json:"content_hash"`
	Name          string `json:"name"`
	SizeBytes     int64  `json:"size_bytes"`
	ContentType   string `json:"content_type"`
	CreatedAt     string `json:"created_at"`
	StorageKey    string `json:"storage_key"`
	AccessLocator string `json:"access_locator"`
}

// UploadResponse wraps the upload outcome
type UploadResponse struct {
	Status types.UploadStatus  `json:"status"`
	Record *FileRecordResponse `json:"record"`
}

// ListFilesResponse is one page of records. NextCursor is present only
// when more data exists; NextPage is a ready-to-follow query fragment.
type ListFilesResponse struct {
	Files      []*FileRecordResponse `json:"files"`
	NextCursor string                `json:"next_cursor,omitempty"`
	NextPage   string                `json:"next_page,omitempty"`
}

// StatsResponse is the aggregate statistics payload
type StatsResponse struct {
	TotalUniqueFiles  int64 `json:"total_unique_files"`
	DuplicatesAvoided int64 `json:"duplicates_avoided"`
	TotalBytesSaved   int64 `json:"total_bytes_saved"`
}

// DownloadLinkResponse carries a presigned URL plus enough metadata for
// the caller to name and size the download
type DownloadLinkResponse struct {
	DownloadURL      string `json:"download_url"`
	Name             string `json:"name"`
	SizeBytes        int64  `json:"size_bytes"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

func toFileRecordResponse(record *types.FileRecord) *FileRecordResponse {
	return &FileRecordResponse{
		FileID:        record.FileID,
		ContentHash:   record.ContentHash,
		Name:          record.Name,
		SizeBytes:     record.SizeBytes,
		ContentType:   record.ContentType,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
		StorageKey:    record.StorageKey,
		AccessLocator: record.AccessLocator,
	}
}

func toListFilesResponse(records []*types.FileRecord, nextCursor string, limit int) *ListFilesResponse {
	files := make([]*FileRecordResponse, 0, len(records))
	for _, record := range records {
		files = append(files, toFileRecordResponse(record))
	}

	resp := &ListFilesResponse{
		Files:      files,
		NextCursor: nextCursor,
	}
	if nextCursor != "" {
		resp.NextPage = fmt.Sprintf("?limit=%d&cursor=%s", limit, url.QueryEscape(nextCursor))
	}

	return resp
}
