// Package dedupe tracks idempotency keys of job submissions.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10000

// Deduper maps idempotency keys to the job they first produced.
type Deduper interface {
	// Claim atomically binds key to jobID unless key is already bound.
	// It returns the bound job id and whether key had been seen before.
	Claim(ctx context.Context, key, jobID string) (string, bool)

	// Release forgets key if it is still bound to jobID, so a later
	// submission can retry it. Used when a claimed submission could not be
	// enqueued. A key rebound to another job is left alone.
	Release(ctx context.Context, key, jobID string)

	Size() int64
}

// node is one entry of the insertion-ordered list.
type node struct {
	key        string
	jobID      string
	prev, next *node
}

func (n *node) reset() {
	n.key, n.jobID = "", ""
	n.prev, n.next = nil, nil
}

// inMemoryDeduper keeps keys in a map plus a doubly linked list in
// insertion order. In bounded mode (maxSize > 0) the oldest key is evicted
// once the limit is reached; otherwise it grows without limit.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]*node
	head     *node // newest
	tail     *node // oldest
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*node),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.nodePool = sync.Pool{
		New: func() any { return &node{} },
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[key]; ok {
		return n.jobID, true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key, n.jobID = key, jobID
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.seen[key] = n
	d.size.Add(1)
	return jobID, false
}

func (d *inMemoryDeduper) Release(_ context.Context, key, jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[key]; ok && n.jobID == jobID {
		d.unlink(n)
	}
}

// evictOldest drops the tail. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail != nil {
		d.unlink(d.tail)
	}
}

// unlink removes n from the map and the list. Caller holds d.mu.
func (d *inMemoryDeduper) unlink(n *node) {
	delete(d.seen, n.key)
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// Size returns the current number of tracked keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
