package delaycomp

import "github.com/vst3go/hostcore/pkg/graph/events"

// EventNode delays a stream of events by a fixed number of samples, used
// for both the note and parameter-event arenas (spec.md §4.2 treats the
// two as structurally identical delay-comp kinds over different buffer
// pools). An event whose shifted offset falls past the end of the current
// block is held until whichever future block it lands in.
type EventNode struct {
	delay   uint32
	pending []events.Event
}

// NewEventNode builds an event delay line of the given length, in samples.
func NewEventNode(delay uint32) *EventNode {
	return &EventNode{delay: delay}
}

// Process shifts every event in in by n.delay samples and writes whichever
// land within [0, blockSize) of the current block to out, in arrival
// order; events delayed past the end of the block are carried to a future
// call. out is cleared first.
func (n *EventNode) Process(in []events.Event, blockSize int32, out *events.Buffer) {
	out.Clear()

	carried := n.pending[:0]
	for _, e := range n.pending {
		e.SampleOffset -= blockSize
		if e.SampleOffset < blockSize {
			out.Push(e)
		} else {
			carried = append(carried, e)
		}
	}
	n.pending = carried

	for _, e := range in {
		e.SampleOffset += int32(n.delay)
		if e.SampleOffset < blockSize {
			out.Push(e)
		} else {
			n.pending = append(n.pending, e)
		}
	}
}

// Delay reports the line's length in samples.
func (n *EventNode) Delay() uint32 {
	return n.delay
}
