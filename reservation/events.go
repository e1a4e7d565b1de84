package reservation

import "lsbgear/models"

// EventKind enumerates the DomainEvents of §4.3, consumed by reconcile and
// reminder so those packages never need to know engine internals.
type EventKind string

const (
	EventReserved      EventKind = "Reserved"
	EventModified      EventKind = "Modified"
	EventCancelled     EventKind = "Cancelled"
	EventReturned      EventKind = "Returned"
	EventTransferred   EventKind = "Transferred"
	EventStatusChanged EventKind = "StatusChanged"
	// EventFreed fires only on Cancel: the interval is immediately open to
	// other bookings. Return never fires it — end_utc still blocks the
	// window (Open Question #1) — so early reuse after a return is not
	// offered to the waitlist.
	EventFreed EventKind = "Freed"
)

// Event is one DomainEvent. EquipmentID is always populated — it's the
// re-render key the Reconciler keys its per-equipment debounce on.
type Event struct {
	Kind        EventKind
	EquipmentID int64
	Reservation *models.Reservation
	Transfer    *models.TransferRequest
}
