package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/filevault/internal/file/fingerprint"
	"github.com/lk2023060901/filevault/internal/file/types"
	"github.com/lk2023060901/filevault/internal/pkg/logger"
	"go.uber.org/zap"
)

// FileRepo is the metadata store consumed by the engine. PutIfAbsent and
// IncrementCounters must be atomic at the store level; the engine performs
// no client-side locking.
type FileRepo interface {
	// PutIfAbsent conditionally inserts record keyed on content_hash
	// uniqueness. When the hash already exists it reports inserted=false
	// and returns the existing canonical record. The insert must be a
	// single atomic conditional write, never a read-then-write.
	PutIfAbsent(ctx context.Context, record *types.FileRecord) (inserted bool, existing *types.FileRecord, err error)

	// GetByID returns the record for a file_id, or nil when absent
	GetByID(ctx context.Context, fileID string) (*types.FileRecord, error)

	// GetByHash returns the record for a content hash, or nil when absent
	GetByHash(ctx context.Context, contentHash string) (*types.FileRecord, error)

	// ScanPage returns up to limit records in content_hash order starting
	// after afterHash ("" starts from the beginning), and whether more
	// records remain
	ScanPage(ctx context.Context, afterHash string, limit int) (records []*types.FileRecord, hasMore bool, err error)

	// CountUnique returns the number of distinct content hashes stored
	CountUnique(ctx context.Context) (int64, error)

	// IncrementCounters atomically adds to both dedup counters, creating
	// the counter row on first use
	IncrementCounters(ctx context.Context, duplicatesDelta, bytesDelta int64) error

	// GetCounters reads the dedup counters; zeros when never incremented
	GetCounters(ctx context.Context) (duplicatesAvoided, totalBytesSaved int64, err error)
}

// BlobStore is the object store consumed by the engine. Puts are
// idempotent: re-uploading identical bytes under the same key is safe.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
	// ObjectURL returns the durable locator for a key, without credentials
	ObjectURL(key string) string
}

// StatsCache is an optional read-path cache for aggregate statistics.
// Implementations must never fail a request: misses and errors both
// surface as "not cached".
type StatsCache interface {
	Get(ctx context.Context) (*types.Stats, bool)
	Set(ctx context.Context, stats *types.Stats)
	Invalidate(ctx context.Context)
}

// Config holds engine tunables
type Config struct {
	// PresignTTL is the validity window of issued download links
	PresignTTL time.Duration
	// MaxUploadSize caps accepted payloads in bytes (0 disables the cap)
	MaxUploadSize int64
	// DefaultPageSize is applied when a listing request omits a limit
	DefaultPageSize int
	// MaxPageSize caps the listing page size
	MaxPageSize int
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		PresignTTL:      time.Hour,
		MaxUploadSize:   32 << 20,
		DefaultPageSize: 10,
		MaxPageSize:     100,
	}
}

// FileUseCase is the deduplication engine: it fingerprints payloads,
// decides new-vs-duplicate through the store's atomic conditional write,
// stores each unique blob exactly once, and serves lookups, listing,
// statistics and download links over the same metadata.
type FileUseCase struct {
	repo   FileRepo
	blobs  BlobStore
	cache  StatsCache
	config *Config
	logger *logger.Logger
}

// NewFileUseCase creates the engine. cache may be nil.
func NewFileUseCase(repo FileRepo, blobs BlobStore, cache StatsCache, cfg *Config, log *logger.Logger) *FileUseCase {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &FileUseCase{
		repo:   repo,
		blobs:  blobs,
		cache:  cache,
		config: cfg,
		logger: log,
	}
}

// Upload runs the dedup algorithm for one payload.
//
// The metadata record is written conditionally BEFORE the blob: the
// conditional insert is the single atomic decision point, so concurrent
// identical uploads resolve deterministically into exactly one winner
// that performs the blob write. Losers increment the dedup counters
// (best-effort) and return the existing record untouched.
func (uc *FileUseCase) Upload(ctx context.Context, payload []byte, name, contentType string) (*types.UploadResult, error) {
	if len(payload) == 0 {
		return nil, ErrInvalidPayload
	}
	if uc.config.MaxUploadSize > 0 && int64(len(payload)) > uc.config.MaxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, len(payload), uc.config.MaxUploadSize)
	}

	if name == "" {
		name = uuid.New().String() + ".bin"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	contentHash := fingerprint.Sum(payload)
	storageKey := StorageKey(contentHash, name)

	// Speculative record; only persisted if this request wins the insert.
	record := &types.FileRecord{
		FileID:        uuid.New().String(),
		ContentHash:   contentHash,
		Name:          name,
		SizeBytes:     int64(len(payload)),
		ContentType:   contentType,
		CreatedAt:     time.Now().UTC(),
		StorageKey:    storageKey,
		AccessLocator: uc.blobs.ObjectURL(storageKey),
	}

	inserted, existing, err := uc.repo.PutIfAbsent(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("%w: conditional insert failed: %v", ErrStoreUnavailable, err)
	}

	if !inserted {
		// Duplicate path: the blob is never touched. Counter failures are
		// logged, not fatal; stats may undercount transiently.
		if err := uc.repo.IncrementCounters(ctx, 1, record.SizeBytes); err != nil {
			uc.logger.Warn("failed to update dedup counters",
				zap.String("content_hash", contentHash),
				zap.Int64("size_bytes", record.SizeBytes),
				zap.Error(err),
			)
		}
		uc.invalidateStats(ctx)

		uc.logger.Info("duplicate upload detected",
			zap.String("content_hash", contentHash),
			zap.String("existing_file_id", existing.FileID),
		)

		return &types.UploadResult{
			Status: types.StatusDuplicate,
			Record: existing,
		}, nil
	}

	// Winner path: this request owns the blob write.
	if err := uc.blobs.Put(ctx, storageKey, payload, contentType); err != nil {
		// The record now points at a missing blob. Report distinctly so
		// operators can reconcile; never treat as success.
		uc.logger.Error("blob write failed after metadata insert",
			zap.String("file_id", record.FileID),
			zap.String("content_hash", contentHash),
			zap.String("storage_key", storageKey),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: file_id=%s storage_key=%s: %v", ErrInconsistent, record.FileID, storageKey, err)
	}

	uc.invalidateStats(ctx)

	uc.logger.Info("file stored",
		zap.String("file_id", record.FileID),
		zap.String("content_hash", contentHash),
		zap.Int64("size_bytes", record.SizeBytes),
	)

	return &types.UploadResult{
		Status: types.StatusCreated,
		Record: record,
	}, nil
}

// GetRecord returns the record for a file_id
func (uc *FileUseCase) GetRecord(ctx context.Context, fileID string) (*types.FileRecord, error) {
	if fileID == "" {
		return nil, ErrNotFound
	}

	record, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record == nil {
		return nil, ErrNotFound
	}

	return record, nil
}

// ListRecords returns one page of records plus the cursor for the next
// page. nextCursor is empty when no more data exists.
func (uc *FileUseCase) ListRecords(ctx context.Context, cursor string, limit int) ([]*types.FileRecord, string, error) {
	if limit <= 0 {
		limit = uc.config.DefaultPageSize
	}
	if limit > uc.config.MaxPageSize {
		limit = uc.config.MaxPageSize
	}

	afterHash, err := types.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	records, hasMore, err := uc.repo.ScanPage(ctx, afterHash, limit)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	nextCursor := ""
	if hasMore && len(records) > 0 {
		nextCursor = types.EncodeCursor(records[len(records)-1].ContentHash)
	}

	return records, nextCursor, nil
}

// GetStats returns aggregate statistics. The unique-file count is
// computed from the metadata store; swapping in a maintained counter
// only requires a different FileRepo implementation.
func (uc *FileUseCase) GetStats(ctx context.Context) (*types.Stats, error) {
	if uc.cache != nil {
		if stats, ok := uc.cache.Get(ctx); ok {
			return stats, nil
		}
	}

	total, err := uc.repo.CountUnique(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	duplicates, bytesSaved, err := uc.repo.GetCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	stats := &types.Stats{
		TotalUniqueFiles:  total,
		DuplicatesAvoided: duplicates,
		TotalBytesSaved:   bytesSaved,
	}

	if uc.cache != nil {
		uc.cache.Set(ctx, stats)
	}

	return stats, nil
}

// GetDownloadLink issues a time-limited download URL for a stored file.
// Expiry is enforced by the blob store, not tracked here.
func (uc *FileUseCase) GetDownloadLink(ctx context.Context, fileID string) (string, *types.FileRecord, error) {
	record, err := uc.GetRecord(ctx, fileID)
	if err != nil {
		return "", nil, err
	}

	url, err := uc.blobs.PresignDownload(ctx, record.StorageKey, uc.config.PresignTTL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: presign failed: %v", ErrStoreUnavailable, err)
	}

	return url, record, nil
}

// PresignTTL exposes the configured link validity window
func (uc *FileUseCase) PresignTTL() time.Duration {
	return uc.config.PresignTTL
}

func (uc *FileUseCase) invalidateStats(ctx context.Context) {
	if uc.cache != nil {
		uc.cache.Invalidate(ctx)
	}
}

// StorageKey derives the blob location from the content hash and the
// display name. Deriving from the hash makes cross-content key
// collisions structurally impossible; the name keeps downloads readable.
func StorageKey(contentHash, name string) string {
	return fmt.Sprintf("files/%s/%s", contentHash, name)
}
