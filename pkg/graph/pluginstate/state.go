// Package pluginstate implements the atomic lifecycle state word (C5) shared
// between a plugin's main-thread controller and its audio-thread processor.
package pluginstate

import "sync/atomic"

// State is the 8-valued lifecycle of one plugin instance.
type State uint32

const (
	// Inactive: only the main thread uses the plugin.
	Inactive State = iota
	// InactiveWithError: activation failed.
	InactiveWithError
	// ActiveAndSleeping: active, audio thread may call StartProcessing.
	ActiveAndSleeping
	// ActiveAndProcessing: the plugin is processing.
	ActiveAndProcessing
	// ActiveAndWaitingForQuiet: processing, will sleep once inputs go silent.
	ActiveAndWaitingForQuiet
	// ActiveWithError: StartProcessing failed; no automatic recovery (see §9).
	ActiveWithError
	// WaitingToDrop: the audio-thread processor is waiting to be dropped.
	WaitingToDrop
	// DroppedAndReadyToDeactivate: no longer used by the audio thread; safe
	// for the main thread to call Deactivate.
	DroppedAndReadyToDeactivate
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case InactiveWithError:
		return "InactiveWithError"
	case ActiveAndSleeping:
		return "ActiveAndSleeping"
	case ActiveAndProcessing:
		return "ActiveAndProcessing"
	case ActiveAndWaitingForQuiet:
		return "ActiveAndWaitingForQuiet"
	case ActiveWithError:
		return "ActiveWithError"
	case WaitingToDrop:
		return "WaitingToDrop"
	case DroppedAndReadyToDeactivate:
		return "DroppedAndReadyToDeactivate"
	default:
		return "InactiveWithError"
	}
}

// IsActive excludes the four inactive/drop states.
func (s State) IsActive() bool {
	switch s {
	case Inactive, InactiveWithError, WaitingToDrop, DroppedAndReadyToDeactivate:
		return false
	default:
		return true
	}
}

// IsProcessing reports ActiveAndProcessing or ActiveAndWaitingForQuiet.
func (s State) IsProcessing() bool {
	return s == ActiveAndProcessing || s == ActiveAndWaitingForQuiet
}

// IsSleeping reports ActiveAndSleeping.
func (s State) IsSleeping() bool {
	return s == ActiveAndSleeping
}

// Shared is the atomic state word, readable/writable from both threads.
// Sequential consistency is used throughout: relaxing the ordering is a
// possible future optimization, not attempted here (see SPEC_FULL.md Open
// Questions).
type Shared struct {
	word atomic.Uint32
}

// NewShared creates a state word initialized to Inactive.
func NewShared() *Shared {
	return &Shared{}
}

// Get loads the current state.
func (s *Shared) Get() State {
	return State(s.word.Load())
}

// Set stores a new state.
func (s *Shared) Set(state State) {
	s.word.Store(uint32(state))
}
