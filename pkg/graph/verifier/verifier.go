// Package verifier implements the schedule verifier (C9): a check the
// compiler runs over every freshly compiled ProcessorSchedule before
// handing it to the audio thread, looking for the two aliasing bugs
// spec.md §4.7 calls out — a buffer used as both input and output (or
// twice as output) within one task, and a buffer written by two tasks
// that aren't ordered with respect to each other.
//
// Grounded on original_source/src/graph/compiler.rs's call into
// verifier.verify_schedule_for_race_conditions right before returning the
// new schedule; no dedicated verifier source file was retrieved for this
// port, so the check itself is built directly from spec.md's description
// rather than a line-by-line translation.
package verifier

import (
	"fmt"

	"github.com/vst3go/hostcore/pkg/graph/schedule"
)

// Violation names an aliasing bug found in a compiled schedule.
type Violation struct {
	Kind      string
	TaskIndex int
	Buffer    any
}

func (v *Violation) Error() string {
	return fmt.Sprintf("verifier: %s (task %d, buffer %v)", v.Kind, v.TaskIndex, v.Buffer)
}

// Verify checks sched under today's strictly sequential runner (spec.md
// §4.8): every task is its own concurrency group, so the only buffer
// reuse that's ever legal is one task writing a buffer after an earlier
// task has already produced or consumed it.
func Verify(sched *schedule.ProcessorSchedule) error {
	return VerifyGrouped(sched.Tasks, identityGroup)
}

func identityGroup(i int) int { return i }

// VerifyGrouped runs the same check as Verify, but with an explicit
// task-to-concurrency-group mapping: tasks sharing a group are assumed to
// run in parallel, so the same buffer must not be written by two of
// them. This is the seam a future parallel dispatcher would use — pass a
// groupOf that maps several task indices to the same group number, and
// the "written by two tasks in the same group" check starts firing for
// real; under today's one-task-per-group runner it never can.
func VerifyGrouped(tasks []schedule.Task, groupOf func(taskIndex int) int) error {
	writerGroup := make(map[any]int)

	for i, t := range tasks {
		ins, outs := bufferRefs(t)
		group := groupOf(i)

		outSet := make(map[any]bool, len(outs))
		for _, o := range outs {
			if outSet[o] {
				return &Violation{Kind: "buffer assigned as output twice in one task", TaskIndex: i, Buffer: o}
			}
			outSet[o] = true
		}
		for _, in := range ins {
			if outSet[in] {
				return &Violation{Kind: "buffer used as both input and output in one task", TaskIndex: i, Buffer: in}
			}
		}
		for o := range outSet {
			if g, ok := writerGroup[o]; ok && g == group {
				return &Violation{Kind: "buffer written by two tasks in the same concurrency group", TaskIndex: i, Buffer: o}
			}
			writerGroup[o] = group
		}
	}
	return nil
}

// bufferRefs extracts a task's declared inputs and outputs as comparable
// interface values (distinct buffer pointers compare unequal regardless
// of arena), so the checks above don't need a type switch of their own.
func bufferRefs(t schedule.Task) (ins, outs []any) {
	switch v := t.(type) {
	case *schedule.GraphInTask:
		for _, b := range v.Outputs {
			outs = append(outs, b)
		}
	case *schedule.GraphOutTask:
		for _, b := range v.Inputs {
			ins = append(ins, b)
		}
	case *schedule.PluginTask:
		for _, b := range v.Buffers.AudioIn {
			ins = append(ins, b)
		}
		for _, b := range v.Buffers.AudioOut {
			outs = append(outs, b)
		}
		for _, b := range v.Buffers.NoteIn {
			if b != nil {
				ins = append(ins, b)
			}
		}
		for _, b := range v.Buffers.NoteOut {
			if b != nil {
				outs = append(outs, b)
			}
		}
		if v.Buffers.EventIn != nil {
			ins = append(ins, v.Buffers.EventIn)
		}
		if v.Buffers.EventOut != nil {
			outs = append(outs, v.Buffers.EventOut)
		}
	case *schedule.AudioDelayCompTask:
		ins = append(ins, v.In)
		outs = append(outs, v.Out)
	case *schedule.NoteDelayCompTask:
		ins = append(ins, v.In)
		outs = append(outs, v.Out)
	case *schedule.ParamEventDelayCompTask:
		ins = append(ins, v.In)
		outs = append(outs, v.Out)
	case *schedule.SumTask:
		for _, b := range v.Inputs {
			ins = append(ins, b)
		}
		outs = append(outs, v.Output)
	}
	return ins, outs
}
