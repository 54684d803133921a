// Package schedule defines the shared vocabulary between the abstract
// graph planner, the compiler (C8), the verifier (C9), and the runner
// (C10): the abstract-schedule input types the planner hands the
// compiler, the compiled Task variants the runner executes, and the
// per-block call shapes (ProcInfo, buffer lists) a Task's Run needs.
//
// Grounded on original_source/src/graph/compiler.rs's use of the
// audio_graph crate's ScheduleEntry/InsertedDelay types, translated into
// a single tagged-struct Entry the way this codebase favors small,
// explicit structs over deep interface hierarchies.
package schedule

// PortType identifies which of the three buffer-pool arenas a buffer
// index belongs to.
type PortType int

const (
	AudioPort PortType = iota
	NotePort
	ParamEventPort
)

func (t PortType) String() string {
	switch t {
	case AudioPort:
		return "audio"
	case NotePort:
		return "note"
	case ParamEventPort:
		return "param_event"
	default:
		return "unknown"
	}
}

// BufferID names one buffer by arena and 0-based index.
type BufferID struct {
	Type  PortType
	Index int
}

// EntryKind tags which variant of Entry is populated.
type EntryKind int

const (
	EntryNode EntryKind = iota
	EntryDelay
	EntrySum
)

// NodeEntry is a plug-in, graph-in, or graph-out node with its assigned
// buffers for every port it has in the graph.
type NodeEntry struct {
	ID              uint64
	AssignedBuffers []BufferID
}

// DelayEntry asks the compiler to insert a delay-compensation task on one
// edge. Delay is given in (possibly fractional) samples; the compiler
// rounds to the nearest integer (spec.md §4.6 step 3).
type DelayEntry struct {
	EdgeID       uint64
	Delay        float64
	InputBuffer  BufferID
	OutputBuffer BufferID
}

// SumEntry asks the compiler to insert a task that adds N input buffers
// into one output buffer.
type SumEntry struct {
	Inputs []BufferID
	Output BufferID
}

// Entry is one abstract-schedule step. Exactly the field named by Kind is
// populated; this mirrors a tagged union without needing a type-switch
// over an interface on the compiler's hot path.
type Entry struct {
	Kind  EntryKind
	Node  NodeEntry
	Delay DelayEntry
	Sum   SumEntry
}

// AbstractSchedule is what the graph planner hands the compiler: a
// topologically ordered list of entries plus how many buffers of each
// kind the schedule requires (spec.md §6).
type AbstractSchedule struct {
	NumBuffers [3]int
	Entries    []Entry
}
