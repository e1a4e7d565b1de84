// Package editplan is the EditPlanner (C4): a pure function projecting a
// desired ordered message list onto whatever ManagedMessage rows already
// exist, producing the minimal Create/Edit/Delete/Keep sequence — or a
// RebuildAll when the existing order has drifted too far to patch in
// place. No I/O; the Reconciler is the only caller that touches a
// ChatSink.
package editplan

import "lsbgear/models"

// Desired is one message the renderer wants to exist, in final order.
type Desired struct {
	Kind        models.ManagedMessageKind
	EquipmentID *int64 // nil for Header/Guide
	Content     string // fully rendered text; byte-identical inputs render byte-identical content
}

// Existing mirrors a ManagedMessage row plus the content hash it was last
// rendered with, so the planner can tell Keep from Edit without re-fetching
// the message body from the chat platform.
type Existing struct {
	MessageID   int64
	Kind        models.ManagedMessageKind
	EquipmentID *int64
	ContentHash string
}

type OpType string

const (
	OpCreate     OpType = "Create"
	OpEdit       OpType = "Edit"
	OpDelete     OpType = "Delete"
	OpKeep       OpType = "Keep"
	OpRebuildAll OpType = "RebuildAll"
)

// Op is one planned action. For Create/Edit, Content/Desired carries what
// to render; for RebuildAll, DeleteIDs lists everything to remove before
// the caller creates Desired fresh.
type Op struct {
	Type      OpType
	MessageID int64 // set for Edit, Delete, Keep
	Desired   *Desired
	DeleteIDs []int64 // set for RebuildAll: every existing message to delete first
	Rebuild   []Desired
}

// maxIdentityDrift is the "> ~2 swaps" threshold of §4.4: beyond this many
// positions where existing's identity sequence disagrees with desired's,
// patching in place is judged not worth it and a full rebuild is cheaper
// and safer to reason about.
const maxIdentityDrift = 2

func sameIdentity(d Desired, e Existing) bool {
	if d.Kind != e.Kind {
		return false
	}
	if d.EquipmentID == nil && e.EquipmentID == nil {
		return true
	}
	if d.EquipmentID == nil || e.EquipmentID == nil {
		return false
	}
	return *d.EquipmentID == *e.EquipmentID
}

// Plan implements §4.4. desired is already in final order
// (tag.sort_order ASC NULLS LAST, equipment.name ASC applied upstream);
// existing is the current managed_messages rows in their stored order.
func Plan(desired []Desired, existing []Existing) []Op {
	n := len(desired)
	if len(existing) < n {
		n = len(existing)
	}

	drift := 0
	for i := 0; i < n; i++ {
		if !sameIdentity(desired[i], existing[i]) {
			drift++
		}
	}
	if drift > maxIdentityDrift {
		ids := make([]int64, len(existing))
		for i, e := range existing {
			ids[i] = e.MessageID
		}
		rebuild := make([]Desired, len(desired))
		copy(rebuild, desired)
		return []Op{{Type: OpRebuildAll, DeleteIDs: ids, Rebuild: rebuild}}
	}

	var ops []Op
	for i := 0; i < n; i++ {
		d, e := desired[i], existing[i]
		if sameIdentity(d, e) && hashOf(d.Content) == e.ContentHash {
			ops = append(ops, Op{Type: OpKeep, MessageID: e.MessageID})
			continue
		}
		dd := d
		ops = append(ops, Op{Type: OpEdit, MessageID: e.MessageID, Desired: &dd})
	}

	for i := n; i < len(desired); i++ {
		dd := desired[i]
		ops = append(ops, Op{Type: OpCreate, Desired: &dd})
	}
	for i := n; i < len(existing); i++ {
		ops = append(ops, Op{Type: OpDelete, MessageID: existing[i].MessageID})
	}

	return ops
}
