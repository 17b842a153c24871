package vfs

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/store"
)

// mutation is one pending store write. A nil value means delete. A
// barrier carries only a done channel and is closed once every entry
// enqueued before it has been written.
type mutation struct {
	store string
	key   string
	value []byte
	done  chan struct{}
}

// flusher drains mutations to the backing store in enqueue order. The
// global FIFO preserves per-key ordering: two writes to the same path
// are never reordered. Persistence is best effort; a failed batch is
// logged and dropped, since the in-memory cache remains authoritative
// for the session.
type flusher struct {
	db      store.DB
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []mutation
	closed bool
	wg     sync.WaitGroup
}

func newFlusher(db store.DB, logger *logging.Logger, metrics *monitoring.Metrics) *flusher {
	f := &flusher{db: db, logger: logger, metrics: metrics}
	f.cond = sync.NewCond(&f.mu)
	f.wg.Add(1)
	go f.run()
	return f
}

// enqueue appends mutations as one group: they are guaranteed to land
// in the same batch, and therefore in the same store transaction.
func (f *flusher) enqueue(muts ...mutation) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, muts...)
	depth := len(f.queue)
	f.cond.Signal()
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.SetFlushQueueDepth(depth)
	}
}

// flush blocks until everything enqueued before the call has been
// written (or attempted). A canceled context abandons the wait, not
// the writes.
func (f *flusher) flush(ctx context.Context) error {
	done := make(chan struct{})

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.queue = append(f.queue, mutation{done: done})
	f.cond.Signal()
	f.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains the queue and stops the worker
func (f *flusher) close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.cond.Signal()
	f.mu.Unlock()
	f.wg.Wait()
}

func (f *flusher) run() {
	defer f.wg.Done()

	for {
		f.mu.Lock()
		for len(f.queue) == 0 && !f.closed {
			f.cond.Wait()
		}
		if len(f.queue) == 0 {
			f.mu.Unlock()
			return
		}
		batch := f.queue
		f.queue = nil
		f.mu.Unlock()

		f.write(batch)

		if f.metrics != nil {
			f.mu.Lock()
			depth := len(f.queue)
			f.mu.Unlock()
			f.metrics.SetFlushQueueDepth(depth)
		}
	}
}

func (f *flusher) write(batch []mutation) {
	barriers := make([]chan struct{}, 0, 1)
	writes := make([]mutation, 0, len(batch))
	for _, m := range batch {
		if m.done != nil {
			barriers = append(barriers, m.done)
			continue
		}
		writes = append(writes, m)
	}
	defer func() {
		for _, done := range barriers {
			close(done)
		}
	}()

	if len(writes) == 0 {
		return
	}

	stores := make([]string, 0, 2)
	seen := make(map[string]bool, 2)
	for _, m := range writes {
		if !seen[m.store] {
			seen[m.store] = true
			stores = append(stores, m.store)
		}
	}

	err := f.db.Transact(context.Background(), stores, store.ReadWrite, func(tx store.Tx) error {
		for _, m := range writes {
			if m.value == nil {
				if err := tx.Delete(m.store, m.key); err != nil {
					return err
				}
				continue
			}
			if err := tx.Put(m.store, m.key, m.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		f.logger.Error("flush batch failed",
			zap.Int("writes", len(writes)),
			zap.Error(err))
		return
	}

	if f.metrics != nil {
		f.metrics.IncFlushBatches()
	}
}
