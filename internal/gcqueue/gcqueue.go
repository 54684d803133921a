// Package gcqueue implements the deferred-drop reclamation pattern
// spec.md §9 calls for: "a deferred-drop channel feeding a GC thread; the
// audio thread enqueues, never runs destructors." Grounded on the
// basedrop::Handle pattern referenced throughout original_source (every
// shared schedule/delay-node/processor handle in plugin_host.rs and
// compiler.rs takes a `coll_handle: &basedrop::Handle` to register its
// drop).
//
// Go's garbage collector already reclaims memory without running
// arbitrary code on the thread that drops the last reference, so this
// queue's only job is sequencing *when* a retired object's teardown runs
// — off the audio thread, on a dedicated goroutine — for objects whose
// Drop (or equivalent close/stop method) a real binding might still need
// to run (e.g. an external plug-in process, a closed file handle). A
// plain Go value gains nothing from being routed through here, but this
// is the queue's one mechanism regardless of payload, matching the
// source's uniform treatment of every collected object.
//
// Enqueue is lock-free (a Treiber stack push plus a non-blocking wake
// signal) so the audio thread can retire an object without ever blocking
// on the reclaim goroutine.
package gcqueue

import "sync/atomic"

type node struct {
	drop func()
	next *node
}

// Queue is a lock-free stack of pending reclamations, drained by one
// goroutine that never runs on the audio thread.
type Queue struct {
	head atomic.Pointer[node]
	wake chan struct{}
	done chan struct{}
}

// New starts the reclaim goroutine and returns the queue. Close stops it.
func New() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue registers drop for deferred execution on the reclaim goroutine.
// Never blocks: safe to call from the audio thread's process() path.
// Reclamation order is not FIFO — nothing in this system's drop semantics
// depends on the order retired objects are torn down in.
func (q *Queue) Enqueue(drop func()) {
	n := &node{drop: drop}
	for {
		old := q.head.Load()
		n.next = old
		if q.head.CompareAndSwap(old, n) {
			break
		}
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	for {
		select {
		case <-q.wake:
			q.drainOnce()
		case <-q.done:
			q.drainOnce()
			return
		}
	}
}

func (q *Queue) drainOnce() {
	n := q.head.Swap(nil)
	for n != nil {
		n.drop()
		n = n.next
	}
}

// Close stops the reclaim goroutine after draining pending work.
func (q *Queue) Close() {
	close(q.done)
}
