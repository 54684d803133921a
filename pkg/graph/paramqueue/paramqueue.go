// Package paramqueue implements the reducing parameter queue (C3): a
// single-producer/single-consumer logical map from ParamID to a value, with
// coalescing — a second Set for the same key before the consumer drains
// replaces the pending value according to an Update rule, rather than
// queuing both.
//
// Grounded on this codebase's atomic-bit-pattern parameter storage and the
// lock-free circular-buffer cursor idiom used for the delay-comp ring
// (internal/rtlog, pkg/graph/delaycomp): a fixed slot array addressed by a
// dense index assigned at construction, plus an SPSC ring of dirty slot
// indices so a drain only visits keys that actually changed.
package paramqueue

import (
	"sync/atomic"

	"github.com/vst3go/hostcore/pkg/graph/events"
)

// Updater merges a newly-set value into the slot's previous value. Callers
// provide this at construction time to select main→audio semantics
// (value-overwrite) or audio→main semantics (independent per-field
// last-writer-wins).
type Updater[V any] func(old, incoming V) V

// Overwrite is the main→audio update rule: the incoming value always wins.
func Overwrite[V any](_, incoming V) V {
	return incoming
}

type slot[V any] struct {
	value atomic.Pointer[V]
	dirty atomic.Bool
}

// Queue is the shared state behind a Producer/Consumer pair. Capacity is
// fixed at construction (bounded by num_params, per spec.md §4.3).
type Queue[V any] struct {
	index    map[events.ParamID]int
	slots    []slot[V]
	dirtyQ   []events.ParamID
	mask     uint32
	writePos atomic.Uint64
	readPos  atomic.Uint64
	update   Updater[V]
}

// New builds a queue reserved for exactly the given parameter IDs and
// returns a Producer/Consumer pair. Set on an ID not in ids is a no-op.
func New[V any](ids []events.ParamID, update Updater[V]) (*Producer[V], *Consumer[V]) {
	size := nextPow2(uint32(len(ids)) + 1)
	q := &Queue[V]{
		index:  make(map[events.ParamID]int, len(ids)),
		slots:  make([]slot[V], len(ids)),
		dirtyQ: make([]events.ParamID, size),
		mask:   size - 1,
		update: update,
	}
	for i, id := range ids {
		q.index[id] = i
	}
	return &Producer[V]{q: q}, &Consumer[V]{q: q}
}

func nextPow2(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	return v + 1
}

// Producer is the write half of a reducing queue.
type Producer[V any] struct {
	q *Queue[V]
}

// Set coalesces value into the pending slot for id. Non-blocking, never
// fails for a reserved id; Set on an unreserved id is silently ignored
// (mirrors the teacher's "ignored request, plugin has no such parameter"
// logging idiom — the caller is expected to have validated the id first).
func (p *Producer[V]) Set(id events.ParamID, value V) {
	idx, ok := p.q.index[id]
	if !ok {
		return
	}
	s := &p.q.slots[idx]

	merged := value
	if old := s.value.Load(); old != nil {
		merged = p.q.update(*old, value)
	}
	s.value.Store(&merged)

	if s.dirty.CompareAndSwap(false, true) {
		pos := p.q.writePos.Load()
		p.q.dirtyQ[uint32(pos)&p.q.mask] = id
		p.q.writePos.Store(pos + 1)
	}
}

// ProducerDone is an ordering barrier: all prior Set calls are guaranteed
// visible to the consumer's next Consume after this returns. Go's atomic
// package already gives sequentially-consistent visibility for the
// operations above, so this is a documented no-op rather than a distinct
// fence — kept as an explicit call so producer code reads the same as the
// two-phase contract in spec.md §4.3.
func (p *Producer[V]) ProducerDone() {}

// Consumer is the read half of a reducing queue.
type Consumer[V any] struct {
	q *Queue[V]
}

// Consume applies fn to each coalesced (id, value) pair queued since the
// last Consume, at most once per id, and leaves the queue empty afterward.
func (c *Consumer[V]) Consume(fn func(id events.ParamID, value V)) {
	writePos := c.q.writePos.Load()
	readPos := c.q.readPos.Load()

	for pos := readPos; pos < writePos; pos++ {
		id := c.q.dirtyQ[uint32(pos)&c.q.mask]
		idx := c.q.index[id]
		s := &c.q.slots[idx]
		if !s.dirty.CompareAndSwap(true, false) {
			continue
		}
		v := s.value.Load()
		if v == nil {
			continue
		}
		fn(id, *v)
	}
	c.q.readPos.Store(writePos)
}
