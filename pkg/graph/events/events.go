// Package events defines the event taxonomy routed through a plugin's
// process() call: parameter automation, note/MIDI, and transport events.
// Adapted from this codebase's MIDI event taxonomy, generalized to also
// carry parameter and transport events the way the process loop (C7)
// requires.
package events

// ParamID identifies a plugin parameter.
type ParamID uint32

// Type tags the kind of event carried in an Event.
type Type uint8

const (
	TypeParamValue Type = iota
	TypeParamMod
	TypeParamGestureBegin
	TypeParamGestureEnd
	TypeNoteOn
	TypeNoteOff
	TypeNoteChoke
	TypeNoteEnd
	TypeNoteExpression
	TypeMidi
	TypeMidi2
	TypeTransport
)

// Event is a single routed event. Only the fields relevant to Type are
// meaningful; this mirrors a tagged union without the allocation cost of an
// interface-per-event on the realtime path.
type Event struct {
	Type Type

	SampleOffset int32

	// Parameter fields (ParamValue, ParamMod, ParamGestureBegin/End).
	ParamID       ParamID
	Value         float64
	TargetPlugin  uint64 // 0 means "not targeted" / main bus
	HasTarget     bool

	// Note fields (NoteOn..NoteExpression, Midi, Midi2).
	PortIndex int16
	Channel   int16
	Key       int16
	NoteID    int32
	Velocity  float64
	// Data carries the expression value for NoteExpression events,
	// and the raw MIDI byte payload for Midi/Midi2 (packed big-endian into
	// the low bytes of Data).
	Data [4]byte
}

// WithPortIndex returns a copy of e with PortIndex overwritten. Used when a
// per-port note-in buffer is drained: the buffer doesn't know its own
// ordinal, so the processor stamps it in during drain.
func (e Event) WithPortIndex(port int) Event {
	e.PortIndex = int16(port)
	return e
}

// IsNoteEvent reports whether Type is one of the seven note/MIDI kinds
// forwarded from per-port note-in buffers (spec.md §4.5 step 7).
func (e Event) IsNoteEvent() bool {
	switch e.Type {
	case TypeNoteOn, TypeNoteOff, TypeNoteChoke, TypeNoteEnd, TypeNoteExpression, TypeMidi, TypeMidi2:
		return true
	default:
		return false
	}
}

// NewParamValueEvent builds a ParamValueEvent at the given sample offset,
// matching the main→audio drain contract in spec.md §4.5 step 5 (note_id,
// port_index, channel, key all left at -1: host-applied parameter changes
// are not associated with a specific note or port).
func NewParamValueEvent(id ParamID, value float64, sampleOffset int32) Event {
	return Event{
		Type:         TypeParamValue,
		SampleOffset: sampleOffset,
		ParamID:      id,
		Value:        value,
		PortIndex:    -1,
		Channel:      -1,
		Key:          -1,
		NoteID:       -1,
	}
}

// NewParamModEvent builds a ParamModEvent the same way.
func NewParamModEvent(id ParamID, amount float64, sampleOffset int32) Event {
	ev := NewParamValueEvent(id, amount, sampleOffset)
	ev.Type = TypeParamMod
	return ev
}
