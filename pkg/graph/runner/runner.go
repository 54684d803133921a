// Package runner implements the processor schedule runner (C10): the
// audio thread's single per-block entry point. It holds the current
// ProcessorSchedule behind an atomic pointer so the main thread can
// publish a freshly compiled schedule (from pkg/graph/compiler) without
// ever blocking or racing the audio thread reading it.
//
// Grounded on the typed sync/atomic idiom pkg/graph/pluginstate.Shared
// and pkg/graph/hostrequest.Channel already use for cross-thread state
// (an atomic.Uint32 word there, an atomic.Pointer here); original_source has no dedicated runner file
// (schedule.rs's ProcessorSchedule::process_block plays this role
// inline), so the split into its own package follows spec.md §4.8's
// framing of the runner as a distinct component.
package runner

import (
	"sync/atomic"

	"github.com/vst3go/hostcore/pkg/graph/schedule"
)

// Runner dispatches one compiled schedule's tasks, in order, once per
// audio block.
type Runner struct {
	current atomic.Pointer[schedule.ProcessorSchedule]
}

// New builds a runner with no schedule published yet; RunBlock is a no-op
// until the first Publish.
func New() *Runner {
	return &Runner{}
}

// Publish swaps in a newly compiled schedule for the next block the audio
// thread runs. Safe to call from the main thread while the audio thread
// is mid-RunBlock on the previous schedule — the swap is atomic, and the
// old schedule's tasks stay valid (and GC-reachable) for as long as the
// in-flight call holds the old pointer.
func (r *Runner) Publish(s *schedule.ProcessorSchedule) {
	r.current.Store(s)
}

// Current returns the schedule currently in effect, or nil if none has
// been published. Exposed for diagnostics and tests; the audio thread
// itself should call RunBlock rather than load-then-dispatch manually.
func (r *Runner) Current() *schedule.ProcessorSchedule {
	return r.current.Load()
}

// RunBlock executes one audio block: every task in the current schedule,
// in order, against sys. Allocates nothing on its own; a no-op if no
// schedule has been published yet.
func (r *Runner) RunBlock(frames int, transport schedule.Transport, sys schedule.SystemBuffers) {
	sched := r.current.Load()
	if sched == nil {
		return
	}
	info := schedule.ProcInfo{Frames: frames, Transport: transport}
	for _, task := range sched.Tasks {
		task.Run(info, sys)
	}
}
