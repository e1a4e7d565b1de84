package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"lsbgear/errs"

	"github.com/stretchr/testify/require"
)

// TestE2E_AtomicConflict covers scenario 1: two concurrent creates for the
// same equipment with overlapping windows must leave exactly one Confirmed.
func TestE2E_AtomicConflict(t *testing.T) {
	store := newTestStore(t)
	seedEquipment(t, store, 1, 1)
	e := New(store, nil)
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	startA := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	endA := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	startB := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
	endB := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, err := e.Create(context.Background(), SelfActor(10), 1, 10, startA, endA, nil, nil, now)
		results[0] = err
	}()
	go func() {
		defer wg.Done()
		_, _, err := e.Create(context.Background(), SelfActor(20), 1, 20, startB, endB, nil, nil, now)
		results[1] = err
	}()
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var d *errs.Domain
		require.ErrorAs(t, err, &d)
		require.Equal(t, errs.Conflict, d.Kind)
		conflicted++
	}
	require.Equal(t, 1, succeeded, "exactly one concurrent create must win")
	require.Equal(t, 1, conflicted)
}

// TestE2E_ReturnThenCorrection covers scenario 2's two boundary outcomes for
// return_undo: inside the 1h correction window it succeeds, past it the
// reservation returns WindowExpired.
func TestE2E_ReturnThenCorrection(t *testing.T) {
	store := newTestStore(t)
	seedEquipment(t, store, 1, 1)
	e := New(store, nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	loc := "Clubroom"

	r1, _, err := e.Create(ctx, SelfActor(10), 1, 10, base.Add(9*time.Hour), base.Add(11*time.Hour), nil, nil, base)
	require.NoError(t, err)
	_, _, err = e.Return(ctx, SelfActor(10), r1.ID, &loc, base.Add(10*time.Hour+30*time.Minute))
	require.NoError(t, err)
	_, _, err = e.ReturnUndo(ctx, SelfActor(10), r1.ID, base.Add(11*time.Hour+15*time.Minute))
	require.NoError(t, err, "undo inside the 1h window must succeed")

	r2, _, err := e.Create(ctx, SelfActor(10), 1, 10, base.Add(21*time.Hour), base.Add(23*time.Hour), nil, nil, base)
	require.NoError(t, err)
	_, _, err = e.Return(ctx, SelfActor(10), r2.ID, &loc, base.Add(22*time.Hour+30*time.Minute))
	require.NoError(t, err)
	_, _, err = e.ReturnUndo(ctx, SelfActor(10), r2.ID, base.Add(23*time.Hour+45*time.Minute))
	var d *errs.Domain
	require.ErrorAs(t, err, &d)
	require.Equal(t, errs.WindowExpired, d.Kind, "undo past the 1h window must fail")
}

// TestE2E_ScheduledTransferCancelledReservationDoesNotExecute covers
// scenario 3's second half: if R is cancelled before execute_at, the due
// sweep must mark the transfer Cancelled(ReservationEnded) without touching
// ownership.
func TestE2E_ScheduledTransferCancelledReservationDoesNotExecute(t *testing.T) {
	store := newTestStore(t)
	seedEquipment(t, store, 1, 1)
	e := New(store, nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	start := base.Add(14 * time.Hour)
	end := base.Add(18 * time.Hour)

	r, _, err := e.Create(ctx, SelfActor(10), 1, 10, start, end, nil, nil, base)
	require.NoError(t, err)

	executeAt := base.Add(15 * time.Hour)
	_, _, err = e.RequestTransfer(ctx, SelfActor(10), r.ID, 20, &executeAt, nil, nil, base.Add(13*time.Hour))
	require.NoError(t, err)

	_, _, err = e.Cancel(ctx, SelfActor(10), r.ID, base.Add(14*time.Hour+30*time.Minute))
	require.NoError(t, err)

	events, err := e.ExpireOverdueTransfers(ctx, executeAt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventStatusChanged, events[0].Kind)

	reloaded, err := store.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), reloaded.UserID, "ownership must not change once the reservation ended")
}

// TestE2E_ScheduledTransferExecutesWhenReservationStillActive is the other
// half of scenario 3: with no cancellation, the due sweep executes the
// transfer and ownership moves to the target user.
func TestE2E_ScheduledTransferExecutesWhenReservationStillActive(t *testing.T) {
	store := newTestStore(t)
	seedEquipment(t, store, 1, 1)
	e := New(store, nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	start := base.Add(14 * time.Hour)
	end := base.Add(18 * time.Hour)

	r, _, err := e.Create(ctx, SelfActor(10), 1, 10, start, end, nil, nil, base)
	require.NoError(t, err)

	executeAt := base.Add(15 * time.Hour)
	_, _, err = e.RequestTransfer(ctx, SelfActor(10), r.ID, 20, &executeAt, nil, nil, base.Add(13*time.Hour))
	require.NoError(t, err)

	events, err := e.ExpireOverdueTransfers(ctx, executeAt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventTransferred, events[0].Kind)

	reloaded, err := store.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, int64(20), reloaded.UserID)
}
