package compiler

import (
	"testing"

	"github.com/vst3go/hostcore/pkg/graph/schedule"
)

type fakeProcessor struct{ calls int }

func (f *fakeProcessor) Process(schedule.ProcInfo, schedule.PluginBuffers) { f.calls++ }

type mapLookup map[uint64]PluginBinding

func (m mapLookup) PluginBinding(id uint64) (PluginBinding, bool) {
	b, ok := m[id]
	return b, ok
}

const (
	graphInID  uint64 = 1
	graphOutID uint64 = 2
	pluginID   uint64 = 3
)

func TestCompileBuildsGraphInPluginGraphOutChain(t *testing.T) {
	c := New(64)
	proc := &fakeProcessor{}
	lookup := mapLookup{
		pluginID: {Processor: proc, AudioInPorts: 1, AudioOutPorts: 1},
	}

	abstract := schedule.AbstractSchedule{
		NumBuffers: [3]int{2, 0, 0},
		Entries: []schedule.Entry{
			{Kind: schedule.EntryNode, Node: schedule.NodeEntry{
				ID:              graphInID,
				AssignedBuffers: []schedule.BufferID{{Type: schedule.AudioPort, Index: 0}},
			}},
			{Kind: schedule.EntryNode, Node: schedule.NodeEntry{
				ID:              pluginID,
				AssignedBuffers: []schedule.BufferID{{Type: schedule.AudioPort, Index: 0}, {Type: schedule.AudioPort, Index: 1}},
			}},
			{Kind: schedule.EntryNode, Node: schedule.NodeEntry{
				ID:              graphOutID,
				AssignedBuffers: []schedule.BufferID{{Type: schedule.AudioPort, Index: 1}},
			}},
		},
	}

	sched, err := c.Compile(abstract, lookup, graphInID, graphOutID, 1, 1, schedule.Transport{SampleRate: 48000})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(sched.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(sched.Tasks))
	}
	if _, ok := sched.Tasks[0].(*schedule.GraphInTask); !ok {
		t.Fatalf("task 0 = %T, want *GraphInTask", sched.Tasks[0])
	}
	plugTask, ok := sched.Tasks[1].(*schedule.PluginTask)
	if !ok {
		t.Fatalf("task 1 = %T, want *PluginTask", sched.Tasks[1])
	}
	if plugTask.Processor != schedule.PluginProcessor(proc) {
		t.Fatalf("plugin task wired to the wrong processor")
	}
	if len(plugTask.Buffers.AudioIn) != 1 || len(plugTask.Buffers.AudioOut) != 1 {
		t.Fatalf("plugin buffers = %+v, want 1 in / 1 out", plugTask.Buffers)
	}
	if _, ok := sched.Tasks[2].(*schedule.GraphOutTask); !ok {
		t.Fatalf("task 2 = %T, want *GraphOutTask", sched.Tasks[2])
	}
}

func TestCompileRejectsUnknownNode(t *testing.T) {
	c := New(64)
	abstract := schedule.AbstractSchedule{
		NumBuffers: [3]int{1, 0, 0},
		Entries: []schedule.Entry{
			{Kind: schedule.EntryNode, Node: schedule.NodeEntry{ID: 99}},
		},
	}

	_, err := c.Compile(abstract, mapLookup{}, graphInID, graphOutID, 0, 0, schedule.Transport{})
	if err == nil {
		t.Fatalf("expected an error for an unbound node id")
	}
}

func TestCompileRejectsNegativeDelay(t *testing.T) {
	c := New(64)
	abstract := schedule.AbstractSchedule{
		NumBuffers: [3]int{2, 0, 0},
		Entries: []schedule.Entry{
			{Kind: schedule.EntryDelay, Delay: schedule.DelayEntry{
				EdgeID:       7,
				Delay:        -3,
				InputBuffer:  schedule.BufferID{Type: schedule.AudioPort, Index: 0},
				OutputBuffer: schedule.BufferID{Type: schedule.AudioPort, Index: 1},
			}},
		},
	}

	_, err := c.Compile(abstract, mapLookup{}, graphInID, graphOutID, 0, 0, schedule.Transport{})
	if err == nil {
		t.Fatalf("expected an error for a negative delay")
	}
	ce, ok := err.(*CompileError)
	if !ok || ce.Kind != ErrNegativeDelay {
		t.Fatalf("got %v, want a CompileError{Kind: ErrNegativeDelay}", err)
	}
}

func TestCompileInsertsAudioDelayCompTask(t *testing.T) {
	c := New(64)
	abstract := schedule.AbstractSchedule{
		NumBuffers: [3]int{2, 0, 0},
		Entries: []schedule.Entry{
			{Kind: schedule.EntryDelay, Delay: schedule.DelayEntry{
				EdgeID:       7,
				Delay:        4.4,
				InputBuffer:  schedule.BufferID{Type: schedule.AudioPort, Index: 0},
				OutputBuffer: schedule.BufferID{Type: schedule.AudioPort, Index: 1},
			}},
		},
	}

	sched, err := c.Compile(abstract, mapLookup{}, graphInID, graphOutID, 0, 0, schedule.Transport{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	task, ok := sched.Tasks[0].(*schedule.AudioDelayCompTask)
	if !ok {
		t.Fatalf("task 0 = %T, want *AudioDelayCompTask", sched.Tasks[0])
	}
	if task.Node.Delay() != 4 {
		t.Fatalf("delay node rounded to %d samples, want 4", task.Node.Delay())
	}
	if c.audioDelay.Len() != 1 {
		t.Fatalf("audio delay cache has %d entries, want 1", c.audioDelay.Len())
	}
}

func TestCompileEvictsStaleDelayCompEntries(t *testing.T) {
	c := New(64)
	withDelay := schedule.AbstractSchedule{
		NumBuffers: [3]int{2, 0, 0},
		Entries: []schedule.Entry{
			{Kind: schedule.EntryDelay, Delay: schedule.DelayEntry{
				EdgeID:       1,
				Delay:        2,
				InputBuffer:  schedule.BufferID{Type: schedule.AudioPort, Index: 0},
				OutputBuffer: schedule.BufferID{Type: schedule.AudioPort, Index: 1},
			}},
		},
	}
	if _, err := c.Compile(withDelay, mapLookup{}, graphInID, graphOutID, 0, 0, schedule.Transport{}); err != nil {
		t.Fatalf("first compile failed: %v", err)
	}
	if c.audioDelay.Len() != 1 {
		t.Fatalf("expected the delay node to survive the first compile")
	}

	withoutDelay := schedule.AbstractSchedule{NumBuffers: [3]int{2, 0, 0}}
	if _, err := c.Compile(withoutDelay, mapLookup{}, graphInID, graphOutID, 0, 0, schedule.Transport{}); err != nil {
		t.Fatalf("second compile failed: %v", err)
	}
	if c.audioDelay.Len() != 0 {
		t.Fatalf("expected the unused delay node to be evicted, cache still has %d entries", c.audioDelay.Len())
	}
}

func TestCompileBuildsSumTask(t *testing.T) {
	c := New(64)
	abstract := schedule.AbstractSchedule{
		NumBuffers: [3]int{3, 0, 0},
		Entries: []schedule.Entry{
			{Kind: schedule.EntrySum, Sum: schedule.SumEntry{
				Inputs: []schedule.BufferID{{Type: schedule.AudioPort, Index: 0}, {Type: schedule.AudioPort, Index: 1}},
				Output: schedule.BufferID{Type: schedule.AudioPort, Index: 2},
			}},
		},
	}

	sched, err := c.Compile(abstract, mapLookup{}, graphInID, graphOutID, 0, 0, schedule.Transport{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	task, ok := sched.Tasks[0].(*schedule.SumTask)
	if !ok {
		t.Fatalf("task 0 = %T, want *SumTask", sched.Tasks[0])
	}
	if len(task.Inputs) != 2 {
		t.Fatalf("sum task has %d inputs, want 2", len(task.Inputs))
	}
}

func TestCompileRejectsPortCountMismatch(t *testing.T) {
	c := New(64)
	lookup := mapLookup{
		pluginID: {Processor: &fakeProcessor{}, AudioInPorts: 2, AudioOutPorts: 1},
	}
	abstract := schedule.AbstractSchedule{
		NumBuffers: [3]int{2, 0, 0},
		Entries: []schedule.Entry{
			{Kind: schedule.EntryNode, Node: schedule.NodeEntry{
				ID:              pluginID,
				AssignedBuffers: []schedule.BufferID{{Type: schedule.AudioPort, Index: 0}, {Type: schedule.AudioPort, Index: 1}},
			}},
		},
	}

	_, err := c.Compile(abstract, lookup, graphInID, graphOutID, 0, 0, schedule.Transport{})
	if err == nil {
		t.Fatalf("expected a port-count mismatch error")
	}
}
