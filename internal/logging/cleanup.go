package logging

import (
	"log/slog"
	"time"

	"github.com/AlexPunches/1x-fit/internal/models"
	"gorm.io/gorm"
)

// Purge deletes system logs and run history older than retentionDays.
func Purge(db *gorm.DB, retentionDays int, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	logs := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if logs.Error != nil {
		return 0, logs.Error
	}
	runs := db.Where("started_at < ?", cutoff).Delete(&models.EtlRun{})
	if runs.Error != nil {
		return logs.RowsAffected, runs.Error
	}
	return logs.RowsAffected + runs.RowsAffected, nil
}

// StartCleanup runs Purge once a day until done is closed.
func StartCleanup(db *gorm.DB, retentionDays int, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := Purge(db, retentionDays, time.Now())
				if err != nil {
					slog.Error("log cleanup failed", "error", err)
				} else if deleted > 0 {
					slog.Info("log cleanup completed", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
}
