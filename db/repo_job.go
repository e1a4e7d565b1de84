package db

import (
	"context"
	"time"

	"lsbgear/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnqueueJob inserts a Pending job; a duplicate DedupeKey is a no-op rather
// than an error, giving §4.6's "dedupe_key prevents double-queuing".
func (s *Store) EnqueueJob(ctx context.Context, j *models.Job) (bool, error) {
	if j.MaxAttempts == 0 {
		j.MaxAttempts = models.DefaultMaxAttempts
	}
	j.Status = models.JobPending
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedupe_key"}},
		DoNothing: true,
	}).Create(j)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CancelPendingByDedupePrefix deletes Pending jobs whose dedupe_key starts
// with prefix — used by ReminderPlanner to drop reminders whose scheduled
// time no longer matches, and by cancel/return to drop all future
// reminders for a reservation. Jobs already Completed (i.e. already in
// sent_reminders) are untouched because they are no longer Pending.
func (s *Store) CancelPendingByDedupePrefix(ctx context.Context, prefix string) error {
	return s.DB.WithContext(ctx).
		Where("status = ? AND dedupe_key LIKE ?", models.JobPending, prefix+"%").
		Delete(&models.Job{}).Error
}

func (s *Store) CancelPendingByDedupeKey(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).
		Where("status = ? AND dedupe_key = ?", models.JobPending, key).
		Delete(&models.Job{}).Error
}

func (s *Store) PendingDedupeKeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.DB.WithContext(ctx).Model(&models.Job{}).
		Where("status = ? AND dedupe_key LIKE ?", models.JobPending, prefix+"%").
		Pluck("dedupe_key", &keys).Error
	return keys, err
}

// PendingDedupeKey is the (key, scheduled time) pair the ReminderPlanner
// needs to tell "still wanted, unchanged" from "wanted but rescheduled".
type PendingDedupeKey struct {
	DedupeKey       string
	ScheduledForUTC time.Time
}

func (s *Store) PendingJobsByDedupePrefix(ctx context.Context, prefix string) ([]PendingDedupeKey, error) {
	var rows []PendingDedupeKey
	err := s.DB.WithContext(ctx).Model(&models.Job{}).
		Select("dedupe_key, scheduled_for_utc").
		Where("status = ? AND dedupe_key LIKE ?", models.JobPending, prefix+"%").
		Scan(&rows).Error
	return rows, err
}

// LeaseDueJobs atomically marks up to `limit` due Pending jobs Running with
// a fresh lease and increments attempts, returning the leased rows — §4.6
// steps 1-2.
func (s *Store) LeaseDueJobs(ctx context.Context, now time.Time, limit int) ([]models.Job, error) {
	var leased []models.Job
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []models.Job
		if err := tx.
			Where("status = ? AND scheduled_for_utc <= ?", models.JobPending, now).
			Order("scheduled_for_utc ASC").Limit(limit).Find(&due).Error; err != nil {
			return err
		}
		leaseUntil := now.Add(models.LeaseDuration)
		for _, j := range due {
			res := tx.Model(&models.Job{}).
				Where("id = ? AND status = ?", j.ID, models.JobPending).
				Updates(map[string]any{
					"status":          models.JobRunning,
					"lease_until_utc": leaseUntil,
					"attempts":        j.Attempts + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue // raced with another worker/reaper
			}
			j.Status = models.JobRunning
			j.LeaseUntilUTC = &leaseUntil
			j.Attempts++
			leased = append(leased, j)
		}
		return nil
	})
	return leased, err
}

func (s *Store) MarkJobCompleted(ctx context.Context, id int64) error {
	return s.DB.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).
		Updates(map[string]any{"status": models.JobCompleted, "lease_until_utc": nil}).Error
}

// backoffFor implements §4.6 step 4: 5min, 15min, 1h, capped.
func backoffFor(attempts int) time.Duration {
	switch {
	case attempts <= 1:
		return 5 * time.Minute
	case attempts == 2:
		return 15 * time.Minute
	default:
		return 1 * time.Hour
	}
}

func (s *Store) MarkJobFailedOrRetry(ctx context.Context, j models.Job, now time.Time) error {
	if j.Attempts >= j.MaxAttempts {
		return s.DB.WithContext(ctx).Model(&models.Job{}).Where("id = ?", j.ID).
			Updates(map[string]any{"status": models.JobFailed, "lease_until_utc": nil}).Error
	}
	next := now.Add(backoffFor(j.Attempts))
	return s.DB.WithContext(ctx).Model(&models.Job{}).Where("id = ?", j.ID).
		Updates(map[string]any{
			"status":            models.JobPending,
			"scheduled_for_utc": next,
			"lease_until_utc":   nil,
		}).Error
}

// ReapExpiredLeases re-queues Running rows whose lease has expired (§4.6
// step 5), returning how many were reclaimed.
func (s *Store) ReapExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Job{}).
		Where("status = ? AND lease_until_utc < ?", models.JobRunning, now).
		Updates(map[string]any{"status": models.JobPending, "lease_until_utc": nil})
	return res.RowsAffected, res.Error
}
