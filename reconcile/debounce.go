package reconcile

import (
	"context"
	"sync"
	"time"
)

// debounceWindow is §4.5's "group reconciliations arriving within a short
// debounce window (e.g. 500 ms) per equipment".
const debounceWindow = 500 * time.Millisecond

type equipmentKey struct {
	guildID     int64
	equipmentID int64
}

// debouncer coalesces repeated NotifyEquipmentChanged calls for the same
// equipment into a single flush, via a per-key timer rather than a single
// global ticker — bursts on one equipment never delay another's refresh.
type debouncer struct {
	flush func(ctx context.Context, key equipmentKey)

	mu      sync.Mutex
	pending map[equipmentKey]*time.Timer
	ctx     context.Context
}

func newDebouncer(flush func(ctx context.Context, key equipmentKey)) *debouncer {
	return &debouncer{flush: flush, pending: map[equipmentKey]*time.Timer{}}
}

func (d *debouncer) run(ctx context.Context) {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()
	<-ctx.Done()
	d.mu.Lock()
	for _, t := range d.pending {
		t.Stop()
	}
	d.pending = map[equipmentKey]*time.Timer{}
	d.mu.Unlock()
}

func (d *debouncer) schedule(key equipmentKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.pending[key]; ok {
		t.Stop()
	}
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	d.pending[key] = time.AfterFunc(debounceWindow, func() {
		d.mu.Lock()
		delete(d.pending, key)
		d.mu.Unlock()
		d.flush(ctx, key)
	})
}
