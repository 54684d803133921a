// Package compiler implements the schedule compiler (C8): a one-to-one
// translation of the graph planner's abstract schedule into a
// ProcessorSchedule of concrete tasks wired to live shared buffers, delay
// lines, and plug-in processors, verified for aliasing bugs before it's
// handed to the audio thread.
//
// Grounded on original_source/src/graph/compiler.rs's compile_graph: mark
// every delay-comp cache entry inactive, resize the shared pool, walk the
// abstract schedule building one task per entry, evict whatever delay-comp
// cache entries went untouched, construct the new schedule, and run it
// through the verifier (C9) before returning it.
package compiler

import (
	"fmt"
	"math"

	"github.com/vst3go/hostcore/internal/rtlog"
	"github.com/vst3go/hostcore/pkg/graph/bufferpool"
	"github.com/vst3go/hostcore/pkg/graph/delaycomp"
	"github.com/vst3go/hostcore/pkg/graph/schedule"
	"github.com/vst3go/hostcore/pkg/graph/verifier"
)

// PluginBinding is what the compiler needs to know about a live plug-in
// node to wire its PluginTask: the processor to call, and how many ports
// of each kind it has so the compiler can split a NodeEntry's assigned
// buffers into inputs and outputs. Buffers of a given port type arrive in
// fixed order — all inputs, then all outputs, matching how the graph
// planner lays out a node's own port declarations.
type PluginBinding struct {
	Processor schedule.PluginProcessor

	AudioInPorts  int
	AudioOutPorts int
	NoteInPorts   int
	NoteOutPorts  int
	HasEventIn    bool
	HasEventOut   bool
}

// GraphLookup resolves a NodeEntry's ID to its live plug-in binding. The
// graph-in and graph-out node IDs are handled specially by the compiler
// itself and never queried here.
type GraphLookup interface {
	PluginBinding(nodeID uint64) (PluginBinding, bool)
}

// ErrorKind tags why Compile failed.
type ErrorKind int

const (
	ErrNegativeDelay ErrorKind = iota
	ErrUnknownNode
	ErrPortMismatch
	ErrUnknownPortType
	ErrVerifier
)

// CompileError reports a compile-time failure, optionally wrapping the
// verifier violation that caused it.
type CompileError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *CompileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compiler: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("compiler: %s", e.Message)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// Compiler owns the shared buffer pool (C1) and the three delay-comp
// caches (C2) across repeated compiles — a plug-in insert or removal
// triggers a fresh Compile call, but delay lines whose (edge, delay) pair
// survives unchanged keep their accumulated ring-buffer state instead of
// restarting silent.
type Compiler struct {
	pool *bufferpool.Pool

	audioDelay *delaycomp.Cache[*delaycomp.AudioNode]
	noteDelay  *delaycomp.Cache[*delaycomp.EventNode]
	paramDelay *delaycomp.Cache[*delaycomp.EventNode]

	log *rtlog.Ring
}

// New builds a compiler whose shared pool uses the given block size.
func New(blockSize int) *Compiler {
	return &Compiler{
		pool:       bufferpool.New(blockSize),
		audioDelay: delaycomp.NewCache(delaycomp.NewAudioNode),
		noteDelay:  delaycomp.NewCache(delaycomp.NewEventNode),
		paramDelay: delaycomp.NewCache(delaycomp.NewEventNode),
		log:        rtlog.NewRing(16),
	}
}

// Pool exposes the compiler's shared buffer pool, mainly for tests and
// for sizing decisions made outside a compile (e.g. reporting current
// arena sizes).
func (c *Compiler) Pool() *bufferpool.Pool { return c.pool }

// Log exposes the compiler's warning ring, drained on the main thread
// alongside the rest of the host's non-realtime log output.
func (c *Compiler) Log() *rtlog.Ring { return c.log }

// Compile translates an abstract schedule into a verified
// ProcessorSchedule (spec.md §4.6). graphInID and graphOutID identify the
// two sentinel nodes handled directly rather than through lookup;
// numGraphInAudio/numGraphOutAudio cap how many of the graph's audio
// ports the host side actually has wired.
func (c *Compiler) Compile(
	abstract schedule.AbstractSchedule,
	lookup GraphLookup,
	graphInID, graphOutID uint64,
	numGraphInAudio, numGraphOutAudio int,
	transport schedule.Transport,
) (*schedule.ProcessorSchedule, error) {
	c.audioDelay.BeginCompile()
	c.noteDelay.BeginCompile()
	c.paramDelay.BeginCompile()

	c.pool.SetNumBuffers(abstract.NumBuffers[0], abstract.NumBuffers[1], abstract.NumBuffers[2])
	c.pool.ResetTouched()

	tasks := make([]schedule.Task, 0, len(abstract.Entries))
	for _, e := range abstract.Entries {
		var task schedule.Task
		var err error

		switch e.Kind {
		case schedule.EntryNode:
			task, err = c.buildNodeTask(e.Node, lookup, graphInID, graphOutID, numGraphInAudio, numGraphOutAudio)
		case schedule.EntryDelay:
			task, err = c.buildDelayTask(e.Delay)
		case schedule.EntrySum:
			task = c.buildSumTask(e.Sum)
		default:
			err = &CompileError{Kind: ErrUnknownPortType, Message: fmt.Sprintf("unknown entry kind %d", e.Kind)}
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	c.audioDelay.EndCompile()
	c.noteDelay.EndCompile()
	c.paramDelay.EndCompile()

	newSchedule := &schedule.ProcessorSchedule{
		Tasks:     tasks,
		Transport: transport,
		BlockSize: c.pool.BufferSize(),
	}

	if err := verifier.Verify(newSchedule); err != nil {
		return nil, &CompileError{Kind: ErrVerifier, Message: "verifier rejected the compiled schedule", Cause: err}
	}
	return newSchedule, nil
}

func (c *Compiler) buildNodeTask(
	n schedule.NodeEntry,
	lookup GraphLookup,
	graphInID, graphOutID uint64,
	numGraphInAudio, numGraphOutAudio int,
) (schedule.Task, error) {
	switch n.ID {
	case graphInID:
		outputs := make([]*bufferpool.AudioBuffer, 0, numGraphInAudio)
		for i := 0; i < numGraphInAudio && i < len(n.AssignedBuffers); i++ {
			outputs = append(outputs, c.pool.InitializedAudioBufferAt(n.AssignedBuffers[i].Index))
		}
		return &schedule.GraphInTask{Outputs: outputs}, nil

	case graphOutID:
		inputs := make([]*bufferpool.AudioBuffer, 0, numGraphOutAudio)
		for i := 0; i < numGraphOutAudio && i < len(n.AssignedBuffers); i++ {
			inputs = append(inputs, c.pool.AudioBufferAt(n.AssignedBuffers[i].Index))
		}
		return &schedule.GraphOutTask{Inputs: inputs}, nil

	default:
		binding, ok := lookup.PluginBinding(n.ID)
		if !ok {
			return nil, &CompileError{Kind: ErrUnknownNode, Message: fmt.Sprintf("no live binding for node %d", n.ID)}
		}
		buffers, err := c.assignPluginBuffers(n.AssignedBuffers, binding)
		if err != nil {
			return nil, err
		}
		return &schedule.PluginTask{Processor: binding.Processor, Buffers: buffers}, nil
	}
}

// assignPluginBuffers splits a node's assigned buffers by arena, then by
// binding-declared port counts, in the fixed inputs-then-outputs order
// every node's port list follows.
func (c *Compiler) assignPluginBuffers(assigned []schedule.BufferID, b PluginBinding) (schedule.PluginBuffers, error) {
	var audio, note, paramEvt []schedule.BufferID
	for _, a := range assigned {
		switch a.Type {
		case schedule.AudioPort:
			audio = append(audio, a)
		case schedule.NotePort:
			note = append(note, a)
		case schedule.ParamEventPort:
			paramEvt = append(paramEvt, a)
		}
	}

	wantAudio := b.AudioInPorts + b.AudioOutPorts
	if len(audio) < wantAudio {
		return schedule.PluginBuffers{}, &CompileError{Kind: ErrPortMismatch,
			Message: fmt.Sprintf("plug-in wants %d audio ports, got %d assigned buffers", wantAudio, len(audio))}
	}
	wantNote := b.NoteInPorts + b.NoteOutPorts
	if len(note) < wantNote {
		return schedule.PluginBuffers{}, &CompileError{Kind: ErrPortMismatch,
			Message: fmt.Sprintf("plug-in wants %d note ports, got %d assigned buffers", wantNote, len(note))}
	}
	wantParamEvt := 0
	if b.HasEventIn {
		wantParamEvt++
	}
	if b.HasEventOut {
		wantParamEvt++
	}
	if len(paramEvt) < wantParamEvt {
		return schedule.PluginBuffers{}, &CompileError{Kind: ErrPortMismatch,
			Message: fmt.Sprintf("plug-in wants %d param-event ports, got %d assigned buffers", wantParamEvt, len(paramEvt))}
	}

	buffers := schedule.PluginBuffers{}
	for i := 0; i < b.AudioInPorts; i++ {
		buffers.AudioIn = append(buffers.AudioIn, c.pool.InitializedAudioBufferAt(audio[i].Index))
	}
	for i := 0; i < b.AudioOutPorts; i++ {
		buffers.AudioOut = append(buffers.AudioOut, c.pool.InitializedAudioBufferAt(audio[b.AudioInPorts+i].Index))
	}
	for i := 0; i < b.NoteInPorts; i++ {
		buffers.NoteIn = append(buffers.NoteIn, c.pool.NoteBufferAt(note[i].Index))
	}
	for i := 0; i < b.NoteOutPorts; i++ {
		buffers.NoteOut = append(buffers.NoteOut, c.pool.NoteBufferAt(note[b.NoteInPorts+i].Index))
	}
	idx := 0
	if b.HasEventIn {
		buffers.EventIn = c.pool.ParamEventBufferAt(paramEvt[idx].Index)
		idx++
	}
	if b.HasEventOut {
		buffers.EventOut = c.pool.ParamEventBufferAt(paramEvt[idx].Index)
	}
	return buffers, nil
}

func (c *Compiler) buildDelayTask(d schedule.DelayEntry) (schedule.Task, error) {
	rounded := math.Round(d.Delay)
	if rounded < 0 {
		return nil, &CompileError{Kind: ErrNegativeDelay,
			Message: fmt.Sprintf("edge %d requested a negative delay (%.3f samples)", d.EdgeID, d.Delay)}
	}
	delay := uint32(rounded)
	if delay == 0 {
		c.log.LogValue(rtlog.LevelWarn, "abstract schedule inserted a delay node with 0 latency, edge", int64(d.EdgeID))
	}
	key := delaycomp.Key{Edge: d.EdgeID, Delay: delay}

	switch d.InputBuffer.Type {
	case schedule.AudioPort:
		node := c.audioDelay.GetOrInsert(key)
		return &schedule.AudioDelayCompTask{
			Node: node,
			In:   c.pool.InitializedAudioBufferAt(d.InputBuffer.Index),
			Out:  c.pool.InitializedAudioBufferAt(d.OutputBuffer.Index),
		}, nil
	case schedule.NotePort:
		node := c.noteDelay.GetOrInsert(key)
		return &schedule.NoteDelayCompTask{
			Node: node,
			In:   c.pool.NoteBufferAt(d.InputBuffer.Index),
			Out:  c.pool.NoteBufferAt(d.OutputBuffer.Index),
		}, nil
	case schedule.ParamEventPort:
		node := c.paramDelay.GetOrInsert(key)
		return &schedule.ParamEventDelayCompTask{
			Node: node,
			In:   c.pool.ParamEventBufferAt(d.InputBuffer.Index),
			Out:  c.pool.ParamEventBufferAt(d.OutputBuffer.Index),
		}, nil
	default:
		return nil, &CompileError{Kind: ErrUnknownPortType, Message: fmt.Sprintf("unknown port type %d on edge %d", d.InputBuffer.Type, d.EdgeID)}
	}
}

func (c *Compiler) buildSumTask(s schedule.SumEntry) schedule.Task {
	inputs := make([]*bufferpool.AudioBuffer, len(s.Inputs))
	for i, b := range s.Inputs {
		inputs[i] = c.pool.InitializedAudioBufferAt(b.Index)
	}
	return &schedule.SumTask{
		Inputs: inputs,
		Output: c.pool.InitializedAudioBufferAt(s.Output.Index),
	}
}
