package schedule

import (
	"github.com/vst3go/hostcore/pkg/graph/bufferpool"
	"github.com/vst3go/hostcore/pkg/graph/delaycomp"
	"github.com/vst3go/hostcore/pkg/graph/events"
)

// Task is one compiled step of a ProcessorSchedule. The runner (C10)
// dispatches to a Task's Run in schedule order; no Task implementation
// may allocate.
type Task interface {
	Run(info ProcInfo, sys SystemBuffers)
}

// GraphInTask copies the host's system audio inputs into the first
// num_graph_in_audio_ports shared buffers, one buffer per channel.
type GraphInTask struct {
	Outputs []*bufferpool.AudioBuffer
}

func (t *GraphInTask) Run(info ProcInfo, sys SystemBuffers) {
	for i, out := range t.Outputs {
		if i >= len(sys.AudioIn) {
			for s := range out.Samples[:info.Frames] {
				out.Samples[s] = 0
			}
			out.ConstantMask = 1
			continue
		}
		copy(out.Samples[:info.Frames], sys.AudioIn[i][:info.Frames])
		out.RefreshConstantMask()
	}
}

// GraphOutTask copies the shared buffers assigned to the graph's output
// ports into the host's system audio outputs.
type GraphOutTask struct {
	Inputs []*bufferpool.AudioBuffer
}

func (t *GraphOutTask) Run(info ProcInfo, sys SystemBuffers) {
	for i, in := range t.Inputs {
		if i >= len(sys.AudioOut) {
			continue
		}
		copy(sys.AudioOut[i][:info.Frames], in.Samples[:info.Frames])
	}
}

// PluginTask invokes a live plug-in's audio-thread processor with its
// wired buffer lists.
type PluginTask struct {
	Processor PluginProcessor
	Buffers   PluginBuffers
}

func (t *PluginTask) Run(info ProcInfo, _ SystemBuffers) {
	t.Processor.Process(info, t.Buffers)
}

// AudioDelayCompTask runs one audio delay line.
type AudioDelayCompTask struct {
	Node *delaycomp.AudioNode
	In   *bufferpool.AudioBuffer
	Out  *bufferpool.AudioBuffer
}

func (t *AudioDelayCompTask) Run(_ ProcInfo, _ SystemBuffers) {
	t.Node.Process(t.In, t.Out)
}

// NoteDelayCompTask runs one note-event delay line.
type NoteDelayCompTask struct {
	Node *delaycomp.EventNode
	In   *events.Buffer
	Out  *events.Buffer
}

func (t *NoteDelayCompTask) Run(info ProcInfo, _ SystemBuffers) {
	t.Node.Process(t.In.All(), int32(info.Frames), t.Out)
}

// ParamEventDelayCompTask runs one parameter-event delay line.
type ParamEventDelayCompTask struct {
	Node *delaycomp.EventNode
	In   *events.Buffer
	Out  *events.Buffer
}

func (t *ParamEventDelayCompTask) Run(info ProcInfo, _ SystemBuffers) {
	t.Node.Process(t.In.All(), int32(info.Frames), t.Out)
}

// SumTask adds N shared audio buffers into one output buffer.
type SumTask struct {
	Inputs []*bufferpool.AudioBuffer
	Output *bufferpool.AudioBuffer
}

func (t *SumTask) Run(info ProcInfo, _ SystemBuffers) {
	out := t.Output.Samples[:info.Frames]
	for i := range out {
		out[i] = 0
	}
	for _, in := range t.Inputs {
		src := in.Samples[:info.Frames]
		for i, s := range src {
			out[i] += s
		}
	}
	t.Output.RefreshConstantMask()
}

// ProcessorSchedule is an ordered, immutable sequence of compiled tasks
// plus the transport state and block size it was compiled for. Replaced
// atomically by publishing a new instance to the audio thread — see
// pkg/graph/runner's Runner.Publish.
type ProcessorSchedule struct {
	Tasks     []Task
	Transport Transport
	BlockSize int
}
