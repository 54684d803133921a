package schedule

import (
	"github.com/vst3go/hostcore/pkg/graph/bufferpool"
	"github.com/vst3go/hostcore/pkg/graph/events"
)

// Transport is the reference-counted-in-the-original transport snapshot
// handed to every task each block. Go's GC makes the reference-counting
// unnecessary: a ProcessorSchedule holds one Transport value and every
// task sees the same snapshot by virtue of sharing the schedule.
type Transport struct {
	SampleRate      float64
	PlayheadSamples int64
	TempoBPM        float64
	IsPlaying       bool

	// StepEvent carries a transport step event for this block, if the
	// transport advanced discontinuously (e.g. a loop wrap or host seek).
	// Nil when the block is a plain continuation of the previous one.
	StepEvent *events.Event
}

// ProcInfo is the per-block context passed to every task (spec.md §4.5,
// §4.8): how many frames this block holds, and the transport snapshot in
// effect for it.
type ProcInfo struct {
	Frames    int
	Transport Transport
}

// SystemBuffers are the host-provided, non-pool-owned audio buffers for
// the graph's external inputs and outputs. The runner refreshes these
// pointers every block; GraphIn/GraphOut tasks are the only ones that
// touch them.
type SystemBuffers struct {
	AudioIn  [][]float32
	AudioOut [][]float32
}

// PluginBuffers is the buffer view a Plugin task hands to its processor:
// shared-pool audio buffers by port, an optional automation event-in/out
// pair, and per-port note-in/note-out buffers (spec.md §4.5).
type PluginBuffers struct {
	AudioIn  []*bufferpool.AudioBuffer
	AudioOut []*bufferpool.AudioBuffer

	EventIn  *events.Buffer // nil if the plug-in has no automation-in port
	EventOut *events.Buffer // nil if the plug-in has no automation-out port

	NoteIn  []*events.Buffer // per note-in port; a nil entry means unconnected
	NoteOut []*events.Buffer // per note-out port
}

// PluginProcessor is the narrow interface a compiled Plugin task calls
// into. Defined here (rather than imported from pkg/host/processor) so
// this package and pkg/host/processor don't form an import cycle:
// pkg/host/processor.AudioThreadProcessor satisfies this interface by
// construction.
type PluginProcessor interface {
	Process(info ProcInfo, buffers PluginBuffers)
}
