package core

import (
	"context"
	"sync"
)

// Ticket identifies one request of a logical operation.
type Ticket[K comparable] struct {
	Key K
	seq uint64
}

// Tracker keeps only the newest request of a logical operation (the selected
// day, the displayed month) current. Results of older requests are discarded
// by checking their ticket before they are applied.
type Tracker[K comparable] struct {
	mu     sync.Mutex
	key    K
	seq    uint64
	cancel context.CancelFunc
}

// Begin supersedes the previous request, canceling its context, and returns
// the context the new request must run under.
func (t *Tracker[K]) Begin(ctx context.Context, key K) (context.Context, Ticket[K]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.seq++
	t.key = key
	return ctx, Ticket[K]{Key: key, seq: t.seq}
}

// Mark supersedes the previous request without aborting it.
func (t *Tracker[K]) Mark(key K) Ticket[K] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.key = key
	return Ticket[K]{Key: key, seq: t.seq}
}

// Current reports whether tk is still the newest request.
func (t *Tracker[K]) Current(tk Ticket[K]) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tk.seq == t.seq && tk.Key == t.key
}

// Done releases the context of tk if it is still current.
func (t *Tracker[K]) Done(tk Ticket[K]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tk.seq != t.seq || t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
}

// Reset supersedes everything in flight.
func (t *Tracker[K]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	var zero K
	t.seq++
	t.key = zero
}
