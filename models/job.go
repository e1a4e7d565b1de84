package models

import (
	"strconv"
	"time"
)

type JobStatus string

const (
	JobPending   JobStatus = "Pending"
	JobRunning   JobStatus = "Running"
	JobCompleted JobStatus = "Completed"
	JobFailed    JobStatus = "Failed"
)

// JobType enumerates the handlers scheduler.Scheduler dispatches to.
type JobType string

const (
	JobReminderDue            JobType = "ReminderDue"
	JobTransferExpire         JobType = "TransferExpire"
	JobTransferExecute        JobType = "TransferExecute"
	JobSessionGC              JobType = "SessionGC"
	JobMessageReconcileGuild  JobType = "MessageReconcileGuild"
	JobWaitlistOfferExpire    JobType = "WaitlistOfferExpire"
)

// DefaultMaxAttempts caps retries before a job is marked Failed.
const DefaultMaxAttempts = 5

// LeaseDuration is how long a Running job's lease is held before the reaper
// considers it abandoned and re-queues it.
const LeaseDuration = 60 * time.Second

// Job is a durable, at-least-once unit of work. DedupeKey (when set) is
// unique, giving exactly-once enqueue semantics per (entity, kind).
type Job struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	JobType        JobType    `gorm:"size:40;index;not null" json:"jobType"`
	Payload        string     `gorm:"type:text" json:"payload"`
	ScheduledForUTC time.Time `gorm:"index;not null" json:"scheduledForUtc"`
	Status         JobStatus  `gorm:"size:20;index;not null;default:'Pending'" json:"status"`
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts    int        `gorm:"not null;default:5" json:"maxAttempts"`
	LeaseUntilUTC  *time.Time `gorm:"index" json:"leaseUntilUtc,omitempty"`
	DedupeKey      *string    `gorm:"uniqueIndex" json:"dedupeKey,omitempty"`

	CreatedUTC time.Time `json:"createdUtc"`
	UpdatedUTC time.Time `json:"updatedUtc"`
}

func (Job) TableName() string { return "jobs" }

type ReminderKind string

const (
	ReminderPreStart ReminderKind = "PreStart"
	ReminderStart    ReminderKind = "Start"
	ReminderPreEnd   ReminderKind = "PreEnd"

	// ReminderWaitlistOffer reuses the sent_reminders delivery ledger for
	// waitlist offer notifications, keyed on a negative pseudo reservation
	// ID (-offerID) so it never collides with a real reservation's rows.
	ReminderWaitlistOffer ReminderKind = "WaitlistOffer"
)

// OverdueReminderKind returns the SentReminder/dedupe kind string for the
// k-th overdue reminder (k starts at 1).
func OverdueReminderKind(k int) ReminderKind {
	return ReminderKind("Overdue_" + strconv.Itoa(k))
}

type DeliveryMethod string

const (
	DeliveryDM      DeliveryMethod = "DM"
	DeliveryChannel DeliveryMethod = "Channel"
	DeliveryFailed  DeliveryMethod = "Failed"
)

// SentReminder is the idempotency ledger keyed on (ReservationID, Kind):
// at most one row, even across retries or multiple scheduler workers.
type SentReminder struct {
	ReservationID int64          `gorm:"primaryKey;autoIncrement:false" json:"reservationId"`
	Kind          ReminderKind   `gorm:"primaryKey;size:30" json:"kind"`
	SentAtUTC     time.Time      `json:"sentAtUtc"`
	Delivery      DeliveryMethod `gorm:"size:20" json:"delivery"`
}

func (SentReminder) TableName() string { return "sent_reminders" }
