package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// counterID is the key of the singleton dedup counters row
const counterID = "deduplication_stats"

// DedupCountersPO is the database model for the singleton counter row.
// Both counters are monotonically non-decreasing and only ever written
// through the atomic upsert in IncrementCounters.
type DedupCountersPO struct {
	CounterID         string    `gorm:"column:counter_id;primaryKey;size:64"`
	DuplicatesAvoided int64     `gorm:"column:duplicates_avoided;not null;default:0"`
	TotalBytesSaved   int64     `gorm:"column:total_bytes_saved;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name
func (DedupCountersPO) TableName() string {
	return "dedup_counters"
}

// IncrementCounters atomically adds to both counters, creating the row
// lazily on the first duplicate. The add happens inside the store
// (INSERT ... ON CONFLICT DO UPDATE SET x = x + EXCLUDED.x), so there is
// no read-modify-write window under concurrent duplicate uploads.
func (r *FileRepo) IncrementCounters(ctx context.Context, duplicatesDelta, bytesDelta int64) error {
	po := &DedupCountersPO{
		CounterID:         counterID,
		DuplicatesAvoided: duplicatesDelta,
		TotalBytesSaved:   bytesDelta,
		UpdatedAt:         time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "counter_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"duplicates_avoided": gorm.Expr("dedup_counters.duplicates_avoided + EXCLUDED.duplicates_avoided"),
				"total_bytes_saved":  gorm.Expr("dedup_counters.total_bytes_saved + EXCLUDED.total_bytes_saved"),
				"updated_at":         gorm.Expr("EXCLUDED.updated_at"),
			}),
		}).
		Create(po).Error
	if err != nil {
		return fmt.Errorf("failed to increment dedup counters: %w", err)
	}

	return nil
}

// GetCounters reads the counter row; zeros when no duplicate has ever
// been recorded
func (r *FileRepo) GetCounters(ctx context.Context) (int64, int64, error) {
	var po DedupCountersPO
	err := r.db.WithContext(ctx).Where("counter_id = ?", counterID).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to get dedup counters: %w", err)
	}

	return po.DuplicatesAvoided, po.TotalBytesSaved, nil
}
