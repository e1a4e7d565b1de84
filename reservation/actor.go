// Package reservation is the ReservationEngine (C3): create/modify/cancel/
// return/transfer operations over a Reservation, with atomic conflict
// detection enforced inside the Store's transaction rather than trusted to
// callers above it.
package reservation

// Capability is one of the three actor capabilities of §4.3's permission
// model. The engine checks these inside the transaction so no UI path can
// bypass them.
type Capability string

const (
	CapSelf   Capability = "self"
	CapAdmin  Capability = "admin"
	CapSystem Capability = "system"
)

// Actor identifies who is performing an operation and what they're allowed
// to do. Handlers build this from Discord role membership before calling
// into the engine; the engine never looks anything up to derive it.
type Actor struct {
	UserID       int64
	Capabilities map[Capability]bool
}

func (a Actor) Has(c Capability) bool { return a.Capabilities[c] }

func (a Actor) IsSelf(ownerUserID int64) bool {
	return a.Has(CapSelf) && a.UserID == ownerUserID
}

func (a Actor) IsAdminOrSystem() bool {
	return a.Has(CapAdmin) || a.Has(CapSystem)
}

// SelfActor builds an Actor with only the self capability — the common
// case for a member acting on their own reservation.
func SelfActor(userID int64) Actor {
	return Actor{UserID: userID, Capabilities: map[Capability]bool{CapSelf: true}}
}

// AdminActor builds an Actor for a guild administrator; still carries
// UserID so "requested_by" / audit fields are attributable to a person.
func AdminActor(userID int64) Actor {
	return Actor{UserID: userID, Capabilities: map[Capability]bool{CapSelf: true, CapAdmin: true}}
}

// SystemActor is used by the JobScheduler's handlers (expiry, scheduled
// transfer execution) where there is no human behind the operation.
func SystemActor() Actor {
	return Actor{UserID: 0, Capabilities: map[Capability]bool{CapSystem: true}}
}
