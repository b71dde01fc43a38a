package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lk2023060901/filevault/internal/file/types"
	"github.com/lk2023060901/filevault/internal/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FileRecordPO is the database model for file metadata. content_hash is
// the primary key: the conditional insert in PutIfAbsent rides on its
// uniqueness, which is what makes deduplication race-safe.
type FileRecordPO struct {
	ContentHash   string    `gorm:"column:content_hash;primaryKey;size:64"`
	FileID        string    `gorm:"column:file_id;type:uuid;not null;uniqueIndex:idx_file_records_file_id"`
	Name          string    `gorm:"column:name;size:512;not null"`
	SizeBytes     int64     `gorm:"column:size_bytes;not null"`
	ContentType   string    `gorm:"column:content_type;size:255"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	StorageKey    string    `gorm:"column:storage_key;size:1024;not null"`
	AccessLocator string    `gorm:"column:access_locator;size:1024"`
}

// TableName specifies the table name
func (FileRecordPO) TableName() string {
	return "file_records"
}

// FileRepo is the gorm/Postgres implementation of biz.FileRepo
type FileRepo struct {
	db *database.DB
}

// NewFileRepo creates the metadata repository
func NewFileRepo(db *database.DB) *FileRepo {
	return &FileRepo{db: db}
}

// PutIfAbsent inserts record unless its content_hash already exists,
// using a single INSERT ... ON CONFLICT DO NOTHING. The duplicate branch
// re-reads the canonical record after the insert reports a conflict;
// records are never deleted, so the read cannot miss.
func (r *FileRepo) PutIfAbsent(ctx context.Context, record *types.FileRecord) (bool, *types.FileRecord, error) {
	po := toPO(record)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_hash"}},
			DoNothing: true,
		}).
		Create(po)
	if result.Error != nil {
		return false, nil, fmt.Errorf("failed to insert file record: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		return true, nil, nil
	}

	existing, err := r.GetByHash(ctx, record.ContentHash)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		return false, nil, fmt.Errorf("conflicting file record disappeared for hash %s", record.ContentHash)
	}

	return false, existing, nil
}

// GetByID returns the record for a file_id, or nil when absent
func (r *FileRepo) GetByID(ctx context.Context, fileID string) (*types.FileRecord, error) {
	var po FileRecordPO
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get file record by id: %w", err)
	}
	return toDomain(&po), nil
}

// GetByHash returns the record for a content hash, or nil when absent
func (r *FileRepo) GetByHash(ctx context.Context, contentHash string) (*types.FileRecord, error) {
	var po FileRecordPO
	err := r.db.WithContext(ctx).Where("content_hash = ?", contentHash).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get file record by hash: %w", err)
	}
	return toDomain(&po), nil
}

// ScanPage returns up to limit records ordered by content_hash, resuming
// after afterHash. It fetches one extra row to detect whether more data
// exists, so a cursor is only handed out when a next page is non-empty.
func (r *FileRepo) ScanPage(ctx context.Context, afterHash string, limit int) ([]*types.FileRecord, bool, error) {
	query := r.db.WithContext(ctx).
		Model(&FileRecordPO{}).
		Order("content_hash ASC").
		Limit(limit + 1)

	if afterHash != "" {
		query = query.Where("content_hash > ?", afterHash)
	}

	var pos []FileRecordPO
	if err := query.Find(&pos).Error; err != nil {
		return nil, false, fmt.Errorf("failed to scan file records: %w", err)
	}

	hasMore := len(pos) > limit
	if hasMore {
		pos = pos[:limit]
	}

	records := make([]*types.FileRecord, 0, len(pos))
	for i := range pos {
		records = append(records, toDomain(&pos[i]))
	}

	return records, hasMore, nil
}

// CountUnique returns the number of stored records. content_hash is the
// primary key, so the row count equals the distinct-hash cardinality.
func (r *FileRepo) CountUnique(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&FileRecordPO{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count file records: %w", err)
	}
	return count, nil
}

func toPO(record *types.FileRecord) *FileRecordPO {
	return &FileRecordPO{
		ContentHash:   record.ContentHash,
		FileID:        record.FileID,
		Name:          record.Name,
		SizeBytes:     record.SizeBytes,
		ContentType:   record.ContentType,
		CreatedAt:     record.CreatedAt,
		StorageKey:    record.StorageKey,
		AccessLocator: record.AccessLocator,
	}
}

func toDomain(po *FileRecordPO) *types.FileRecord {
	return &types.FileRecord{
		ContentHash:   po.ContentHash,
		FileID:        po.FileID,
		Name:          po.Name,
		SizeBytes:     po.SizeBytes,
		ContentType:   po.ContentType,
		CreatedAt:     po.CreatedAt,
		StorageKey:    po.StorageKey,
		AccessLocator: po.AccessLocator,
	}
}
