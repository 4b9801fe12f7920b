package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const writeTimeout = 5 * time.Second

type pendingOp struct {
	data    []byte
	at      time.Time
	deleted bool
}

// WriteBehind queues snapshot writes so game sessions never wait on the
// database. Only the latest operation per owner is kept; a delete replaces
// any save still waiting to be written.
type WriteBehind struct {
	store MatchStore

	mu       sync.Mutex
	pending  map[string]pendingOp
	inflight map[string]pendingOp // the batch drain is writing
	wake     chan struct{}
	done    chan struct{}
}

// NewWriteBehind returns a queue in front of store. Call Run to start writing.
func NewWriteBehind(store MatchStore) *WriteBehind {
	return &WriteBehind{
		store:   store,
		pending: make(map[string]pendingOp),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (w *WriteBehind) SaveSnapshot(owner string, data []byte) {
	w.enqueue(owner, pendingOp{data: data, at: time.Now()})
}

func (w *WriteBehind) DeleteSnapshot(owner string) {
	w.enqueue(owner, pendingOp{deleted: true})
}

// PendingSnapshot returns the latest operation for owner that may not have
// reached the store yet. ok is false when nothing is queued.
func (w *WriteBehind) PendingSnapshot(owner string) (data []byte, deleted, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	op, ok := w.pending[owner]
	if !ok {
		op, ok = w.inflight[owner]
	}
	return op.data, op.deleted, ok
}

func (w *WriteBehind) enqueue(owner string, op pendingOp) {
	w.mu.Lock()
	w.pending[owner] = op
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run writes queued operations until ctx is cancelled, then drains what is left.
func (w *WriteBehind) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case <-w.wake:
			w.drain()
		}
	}
}

// Done is closed once Run has returned.
func (w *WriteBehind) Done() <-chan struct{} {
	return w.done
}

func (w *WriteBehind) drain() {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]pendingOp)
	w.inflight = batch
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.inflight = nil
		w.mu.Unlock()
	}()

	for owner, op := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		var err error
		if op.deleted {
			err = w.store.DeleteSnapshot(ctx, owner)
		} else {
			err = w.store.SaveSnapshot(ctx, owner, op.data, op.at)
		}
		cancel()
		if err != nil {
			slog.Warn("snapshot write failed", "tag", "storage", "owner", owner, "deleted", op.deleted, "error", err)
		}
	}
}
