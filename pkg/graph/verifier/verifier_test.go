package verifier

import (
	"testing"

	"github.com/vst3go/hostcore/pkg/graph/bufferpool"
	"github.com/vst3go/hostcore/pkg/graph/schedule"
)

func audioBuf() *bufferpool.AudioBuffer {
	return &bufferpool.AudioBuffer{Samples: make([]float32, 4)}
}

func TestVerifyPassesNonAliasingSchedule(t *testing.T) {
	a, b, c := audioBuf(), audioBuf(), audioBuf()
	sched := &schedule.ProcessorSchedule{Tasks: []schedule.Task{
		&schedule.GraphInTask{Outputs: []*bufferpool.AudioBuffer{a}},
		&schedule.SumTask{Inputs: []*bufferpool.AudioBuffer{a}, Output: b},
		&schedule.GraphOutTask{Inputs: []*bufferpool.AudioBuffer{b, c}},
	}}

	if err := Verify(sched); err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
}

func TestVerifyCatchesDuplicateOutputWithinTask(t *testing.T) {
	a, out := audioBuf(), audioBuf()
	sched := &schedule.ProcessorSchedule{Tasks: []schedule.Task{
		&schedule.SumTask{Inputs: []*bufferpool.AudioBuffer{a}, Output: out},
		&schedule.GraphInTask{Outputs: []*bufferpool.AudioBuffer{out, out}},
	}}

	err := Verify(sched)
	if err == nil {
		t.Fatalf("expected a violation for the same buffer appearing twice as output")
	}
	v, ok := err.(*Violation)
	if !ok || v.TaskIndex != 1 {
		t.Fatalf("got %v, want a Violation at task 1", err)
	}
}

func TestVerifyCatchesInputOutputAliasWithinTask(t *testing.T) {
	shared := audioBuf()
	sched := &schedule.ProcessorSchedule{Tasks: []schedule.Task{
		&schedule.SumTask{Inputs: []*bufferpool.AudioBuffer{shared}, Output: shared},
	}}

	err := Verify(sched)
	if err == nil {
		t.Fatalf("expected a violation for a task reading and writing the same buffer")
	}
}

func TestVerifyGroupedCatchesSameGroupDoubleWrite(t *testing.T) {
	a, b := audioBuf(), audioBuf()
	tasks := []schedule.Task{
		&schedule.GraphInTask{Outputs: []*bufferpool.AudioBuffer{a}},
		&schedule.GraphInTask{Outputs: []*bufferpool.AudioBuffer{a}},
		&schedule.GraphOutTask{Inputs: []*bufferpool.AudioBuffer{b}},
	}

	// Tasks 0 and 1 placed in the same concurrency group — a future
	// parallel dispatcher's grouping would do this if it ever mis-ordered
	// two writers of the same buffer.
	groupOf := func(i int) int {
		if i < 2 {
			return 0
		}
		return i
	}

	if err := VerifyGrouped(tasks, groupOf); err == nil {
		t.Fatalf("expected a violation for two same-group tasks writing the same buffer")
	}
}

func TestVerifyGroupedAllowsSequentialReuseAcrossGroups(t *testing.T) {
	a := audioBuf()
	tasks := []schedule.Task{
		&schedule.GraphInTask{Outputs: []*bufferpool.AudioBuffer{a}},
		&schedule.GraphInTask{Outputs: []*bufferpool.AudioBuffer{a}},
	}

	// Each task its own group (today's sequential runner): writing the
	// same buffer twice in strict order is fine.
	if err := VerifyGrouped(tasks, identityGroup); err != nil {
		t.Fatalf("unexpected violation for sequential reuse: %v", err)
	}
}
