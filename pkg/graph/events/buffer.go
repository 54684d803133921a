package events

// Buffer is an ordered, reusable list of events — the shared-buffer-pool
// payload type for the note and parameter-event arenas (C1), and the
// in/out event lists a plugin task hands to its processor each block.
// Grounded on the append/clear/drain idiom of this codebase's MIDI event
// queue, simplified to preserve push order rather than sorting by sample
// offset (ordering within one block is established by the producer).
type Buffer struct {
	events []Event
}

// NewBuffer creates an empty buffer with room for capacity events before it
// must grow.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{events: make([]Event, 0, capacity)}
}

// Push appends an event.
func (b *Buffer) Push(e Event) {
	b.events = append(b.events, e)
}

// Len returns the number of pending events.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Clear empties the buffer without releasing its backing array.
func (b *Buffer) Clear() {
	b.events = b.events[:0]
}

// Drain calls fn once per event in push order; the buffer is not modified
// by Drain itself — callers that want a clear-and-drain call Clear after.
func (b *Buffer) Drain(fn func(Event)) {
	for _, e := range b.events {
		fn(e)
	}
}

// All returns the current events without copying.
func (b *Buffer) All() []Event {
	return b.events
}
