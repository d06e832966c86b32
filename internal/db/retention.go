package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// runRetentionOnce deletes events and page views recorded before cutoff.
func runRetentionOnce(db *gorm.DB, cutoff time.Time) (int64, error) {
	var deleted int64
	for _, model := range []any{&Event{}, &PageView{}} {
		res := db.Where(clause.Lt{Column: clause.Column{Name: "timestamp"}, Value: cutoff}).Delete(model)
		if res.Error != nil {
			return deleted, res.Error
		}
		deleted += res.RowsAffected
	}
	return deleted, nil
}

// StartRetentionWorker launches a background goroutine that runs the
// retention cleanup once at startup and then once per day. A
// non-positive retentionDays keeps everything.
func StartRetentionWorker(db *gorm.DB, retentionDays int, log *zap.Logger) {
	if retentionDays <= 0 {
		return
	}
	window := time.Duration(retentionDays) * 24 * time.Hour

	run := func() {
		deleted, err := runRetentionOnce(db, time.Now().Add(-window))
		if err != nil {
			log.Error("retention cleanup failed", zap.Error(err))
			return
		}
		log.Info("retention cleanup finished", zap.Int64("deleted", deleted))
	}

	go func() {
		run()

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			run()
		}
	}()
}
