package models

import "time"

type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "Confirmed"
	ReservationCancelled ReservationStatus = "Cancelled"
)

// MaxReservationDuration is the §3 invariant: end_utc - start_utc <= 60 days.
const MaxReservationDuration = 60 * 24 * time.Hour

// Reservation is a single loan window. Invariant: StartUTC < EndUTC and
// EndUTC-StartUTC <= MaxReservationDuration, enforced by reservation.Engine
// inside the insert transaction, never only in application code.
type Reservation struct {
	ID          int64             `gorm:"primaryKey" json:"id"`
	EquipmentID int64             `gorm:"index:idx_res_equip_status;not null" json:"equipmentId"`
	UserID      int64             `gorm:"index;not null" json:"userId"`
	StartUTC    time.Time         `gorm:"index;not null" json:"startUtc"`
	EndUTC      time.Time         `gorm:"index;not null" json:"endUtc"`
	Location    *string           `gorm:"size:200" json:"location,omitempty"`
	Status      ReservationStatus `gorm:"size:20;index:idx_res_equip_status;not null;default:'Confirmed'" json:"status"`

	ReturnedAtUTC  *time.Time `json:"returnedAtUtc,omitempty"`
	ReturnLocation *string    `gorm:"size:200" json:"returnLocation,omitempty"`

	CreatedUTC time.Time `json:"createdUtc"`
	UpdatedUTC time.Time `json:"updatedUtc"`
}

func (Reservation) TableName() string { return "reservations" }

// Overlaps reports whether [r.StartUTC,r.EndUTC) intersects [start,end) --
// half-open, so touching endpoints are not a conflict.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.StartUTC.Before(end) && start.Before(r.EndUTC)
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "Pending"
	TransferAccepted  TransferStatus = "Accepted"
	TransferDenied    TransferStatus = "Denied"
	TransferExpired   TransferStatus = "Expired"
	TransferCancelled TransferStatus = "Cancelled"
	TransferExecuted  TransferStatus = "Executed"
)

// TransferExpiryWindow is how long an awaiting-approval (immediate) transfer
// stays Pending before it auto-expires.
const TransferExpiryWindow = 3 * time.Hour

// TransferRequest moves ownership of a Reservation, either immediately
// (awaiting approval) or at a scheduled instant. At most one Pending row
// per ReservationID, enforced by a partial unique index.
type TransferRequest struct {
	ID                  int64          `gorm:"primaryKey" json:"id"`
	ReservationID       int64          `gorm:"index;not null" json:"reservationId"`
	FromUserID          int64          `gorm:"not null" json:"fromUserId"`
	ToUserID            int64          `gorm:"not null" json:"toUserId"`
	RequestedByUserID   int64          `gorm:"not null" json:"requestedByUserId"`
	ExecuteAtUTC        *time.Time     `json:"executeAtUtc,omitempty"`
	ExpiresAtUTC        time.Time      `gorm:"index;not null" json:"expiresAtUtc"`
	Note                *string        `gorm:"size:500" json:"note,omitempty"`
	Status              TransferStatus `gorm:"size:20;index;not null;default:'Pending'" json:"status"`
	CanceledAtUTC       *time.Time     `json:"canceledAtUtc,omitempty"`
	CanceledByUserID    *int64         `json:"canceledByUserId,omitempty"`

	CreatedUTC time.Time `json:"createdUtc"`
	UpdatedUTC time.Time `json:"updatedUtc"`
}

func (TransferRequest) TableName() string { return "transfer_requests" }

// IsScheduled reports whether this is a scheduled-execution transfer
// (ExecuteAtUTC set) as opposed to an awaiting-approval one.
func (t TransferRequest) IsScheduled() bool { return t.ExecuteAtUTC != nil }
