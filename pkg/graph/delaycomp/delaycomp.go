// Package delaycomp implements the delay-comp node cache (C2): a
// keyed-by-(edge,delay) cache of delay lines inserted by the compiler
// wherever the abstract schedule reports differing latency on two paths
// into the same node. A compile cycle is mark-all-inactive,
// lookup-or-insert-and-mark-active per delay entry, then evict whatever is
// still inactive.
//
// Grounded on original_source/src/graph/compiler/delay_comp_task.rs's
// cache.entry(key).or_insert_with(..) pattern. That implementation needs
// basedrop reference counting because Rust frees a HashMap value the
// instant it's evicted; here, eviction only removes the cache's own
// map entry; a task built from a still-referenced node keeps a live Go
// pointer to it regardless of whether the cache still tracks it, so the
// garbage collector — not manual refcounting — is what keeps an
// in-flight schedule's delay lines alive until that schedule is dropped.
package delaycomp

import "github.com/vst3go/hostcore/pkg/graph/bufferpool"

// Key identifies a delay line by the graph edge it compensates and the
// number of samples of compensation required.
type Key struct {
	Edge  uint64
	Delay uint32
}

type entry[V any] struct {
	node   V
	active bool
}

// Cache holds delay nodes of one payload kind (audio, note, or
// parameter-event). The compiler keeps three separate caches, one per
// kind, matching the three independent arenas in pkg/graph/bufferpool.
type Cache[V any] struct {
	nodes   map[Key]*entry[V]
	newNode func(delay uint32) V
}

// NewCache builds an empty cache. newNode constructs a fresh delay line of
// the requested length; it's called at most once per distinct (edge,
// delay) pair per cache lifetime.
func NewCache[V any](newNode func(delay uint32) V) *Cache[V] {
	return &Cache[V]{nodes: make(map[Key]*entry[V]), newNode: newNode}
}

// BeginCompile marks every cached node inactive. Call once per compile,
// before walking the abstract schedule's delay entries.
func (c *Cache[V]) BeginCompile() {
	for _, e := range c.nodes {
		e.active = false
	}
}

// GetOrInsert returns the node for key, constructing one if this is the
// first time it's been seen, and marks it active either way. A delay==0
// key is accepted the same as any other — spec.md §4.2 treats it as a
// defensive branch the caller should log, not an error condition this
// cache rejects.
func (c *Cache[V]) GetOrInsert(key Key) V {
	e, ok := c.nodes[key]
	if !ok {
		e = &entry[V]{node: c.newNode(key.Delay)}
		c.nodes[key] = e
	}
	e.active = true
	return e.node
}

// EndCompile evicts every node that was not touched by a GetOrInsert since
// the last BeginCompile, and reports how many were evicted.
func (c *Cache[V]) EndCompile() int {
	evicted := 0
	for k, e := range c.nodes {
		if !e.active {
			delete(c.nodes, k)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of cached nodes, live and about-to-be-evicted
// alike; mainly useful from tests.
func (c *Cache[V]) Len() int {
	return len(c.nodes)
}

// AudioNode is a single-channel sample delay line. Built on the same
// fixed-capacity ring-buffer idiom as the rest of this codebase's
// lock-free structures, used here single-threaded (the compiler and the
// audio thread never touch the same node concurrently).
type AudioNode struct {
	delay    uint32
	ring     []float32
	writePos uint32
	readPos  uint32
}

// NewAudioNode builds a delay line of the given length, in samples.
func NewAudioNode(delay uint32) *AudioNode {
	return &AudioNode{delay: delay, ring: make([]float32, delay)}
}

// Process delays in by n.delay samples into out. in and out must be the
// same length (the pool's block size); out may alias neither in's nor its
// own buffer's prior contents beyond what this call overwrites.
func (n *AudioNode) Process(in, out *bufferpool.AudioBuffer) {
	if n.delay == 0 {
		copy(out.Samples, in.Samples)
		return
	}
	for i, s := range in.Samples {
		out.Samples[i] = n.ring[n.readPos]
		n.ring[n.writePos] = s
		n.writePos = (n.writePos + 1) % n.delay
		n.readPos = (n.readPos + 1) % n.delay
	}
}

// Delay reports the line's length in samples.
func (n *AudioNode) Delay() uint32 {
	return n.delay
}
