// Package capability defines the two capability sets a bound plug-in
// must implement: the operations the main-thread controller (C6) may
// call, and the operations the audio-thread processor (C7) may call. The
// core never depends on which plug-in format or binding strategy backs
// these — "Dynamic dispatch over plug-in format" (spec.md §9): internal
// Go-native plug-ins and out-of-process/foreign-ABI bindings implement
// the same two interfaces.
//
// Grounded on pkg/framework/plugin's AudioProcessor interface
// (ProcessAudio), widened to the full main/audio split spec.md §6
// describes.
package capability

import (
	"github.com/vst3go/hostcore/pkg/graph/events"
	"github.com/vst3go/hostcore/pkg/graph/schedule"
	"github.com/vst3go/hostcore/pkg/host/paraminfo"
	"github.com/vst3go/hostcore/pkg/host/ports"
)

// Status is a process() call's outcome, dictating the audio-thread
// processor's next state transition (spec.md §4.5 step 15).
type Status int

const (
	StatusContinue Status = iota
	StatusContinueIfNotQuiet
	StatusTail
	StatusSleep
	StatusError
)

// MainThreadPlugin is the set of operations the controller (C6) may call;
// exclusively owned by the main thread.
type MainThreadPlugin interface {
	LoadSaveState(blob []byte) error
	CollectSaveState() []byte

	AudioPortsExt() (*ports.Config, error)
	NotePortsExt() (*ports.Config, error)

	NumParams() int
	ParamInfo(index int) (*paraminfo.Info, error)
	ParamValue(id events.ParamID) (float64, error)
	ParamValueToText(id events.ParamID, value float64, buf []byte) (string, error)
	ParamTextToValue(id events.ParamID, text string) (float64, error)

	// Activate prepares the plug-in to process audio and returns the
	// audio-thread capability that will back its compiled schedule task.
	Activate(sampleRate float64, minFrames, maxFrames int) (AudioThreadPlugin, error)
	Deactivate()

	OnMainThread()
	UpdateTempoMap(tempoBPM float64)

	Latency() int
	HasAutomationOutPort() bool
}

// AudioThreadPlugin is the set of operations the processor (C7) may call;
// exclusively owned by the audio thread once published in a
// ProcessorSchedule.
type AudioThreadPlugin interface {
	StartProcessing() error
	StopProcessing()

	Process(info schedule.ProcInfo, buffers schedule.PluginBuffers, in, out *events.Buffer) Status

	// ParamFlush is the param_flush entry point: process only events, no
	// audio, used while the plug-in is sleeping (spec.md GLOSSARY).
	ParamFlush(in, out *events.Buffer)
}
