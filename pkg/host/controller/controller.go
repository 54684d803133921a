// Package controller implements the plug-in main-thread controller (C6):
// activation, deactivation, removal, parameter writes, and the on_idle
// driver loop.
//
// Grounded on original_source/src/graph/plugin_host.rs's
// PluginInstanceHost and original_source/src/plugin_host/main_thread.rs's
// on_idle, restructured into this codebase's constructor/method style
// (pkg/framework/plugin's Base/Info pairing).
package controller

import (
	"fmt"

	"github.com/vst3go/hostcore/internal/gcqueue"
	"github.com/vst3go/hostcore/pkg/graph/declick"
	"github.com/vst3go/hostcore/pkg/graph/events"
	"github.com/vst3go/hostcore/pkg/graph/hostrequest"
	"github.com/vst3go/hostcore/pkg/graph/paramqueue"
	"github.com/vst3go/hostcore/pkg/graph/pluginstate"
	"github.com/vst3go/hostcore/pkg/host/capability"
	"github.com/vst3go/hostcore/pkg/host/paraminfo"
	"github.com/vst3go/hostcore/pkg/host/ports"
	"github.com/vst3go/hostcore/pkg/host/plugininfo"
	"github.com/vst3go/hostcore/pkg/host/processor"
	"github.com/vst3go/hostcore/pkg/host/savestate"
)

// ActivateErrorKind enumerates activate()'s failure modes (spec.md §4.4).
type ActivateErrorKind int

const (
	NotLoaded ActivateErrorKind = iota
	AlreadyActive
	RestartScheduled
	PluginFailedToGetAudioPortsExt
	PluginFailedToGetNotePortsExt
	PluginFailedToGetParamInfo
	PluginFailedToGetParamValue
	PluginSpecific
)

// ActivateError is returned by Activate on failure.
type ActivateError struct {
	Kind       ActivateErrorKind
	ParamIndex int
	ParamID    events.ParamID
	Message    string
}

func (e *ActivateError) Error() string {
	switch e.Kind {
	case NotLoaded:
		return "controller: plug-in not loaded"
	case AlreadyActive:
		return "controller: plug-in already active"
	case RestartScheduled:
		return "controller: restart already scheduled"
	case PluginFailedToGetAudioPortsExt:
		return fmt.Sprintf("controller: plug-in failed to report audio ports: %s", e.Message)
	case PluginFailedToGetNotePortsExt:
		return fmt.Sprintf("controller: plug-in failed to report note ports: %s", e.Message)
	case PluginFailedToGetParamInfo:
		return fmt.Sprintf("controller: plug-in failed to report param info at index %d: %s", e.ParamIndex, e.Message)
	case PluginFailedToGetParamValue:
		return fmt.Sprintf("controller: plug-in failed to report value of param %d: %s", e.ParamID, e.Message)
	case PluginSpecific:
		return fmt.Sprintf("controller: plug-in error: %s", e.Message)
	default:
		return "controller: unknown activation error"
	}
}

// SetParamError enumerates set_param_value/set_param_mod_amount
// rejections.
type SetParamError int

const (
	ParamDoesNotExist SetParamError = iota
	ParamIsReadOnly
	ParamIsNotModulatable
)

func (e SetParamError) Error() string {
	switch e {
	case ParamDoesNotExist:
		return "controller: parameter does not exist"
	case ParamIsReadOnly:
		return "controller: parameter is read-only"
	case ParamIsNotModulatable:
		return "controller: parameter is not modulatable"
	default:
		return "controller: unknown parameter error"
	}
}

// ActivateResult is Activate's success value.
type ActivateResult struct {
	Processor *processor.AudioThreadProcessor
	// RemovedEdges lists graph edges dropped because a port they
	// referenced disappeared in the new port configuration (supplemental
	// feature 3, SPEC_FULL.md).
	RemovedEdges []uint64
}

// ParamModifiedInfo is emitted from the audio->main queue drain
// (spec.md §4.4 step 6).
type ParamModifiedInfo struct {
	ID          events.ParamID
	Value       float64
	HasValue    bool
	IsGesturing bool
}

// OnIdleEventKind tags a user-visible GUI/lifecycle event translated from
// host-request flags (supplemental feature 1, SPEC_FULL.md).
type OnIdleEventKind int

const (
	PluginGuiClosed OnIdleEventKind = iota
	PluginRequestedToShowGui
	PluginRequestedToHideGui
	PluginRequestedToResizeGui
	PluginChangedGuiResizeHints
	PluginReadyToRemove
)

// OnIdleEvent is one user-visible event produced by OnIdle.
type OnIdleEvent struct {
	Kind OnIdleEventKind
}

// OnIdleResult is OnIdle's return value (spec.md §4.4 step "Return
// (OnIdleResult, modified_params, processor_to_drop)").
type OnIdleResult struct {
	Events         []OnIdleEvent
	ModifiedParams []ParamModifiedInfo
	// ProcessorToDrop, if non-nil, is the just-retired audio-thread
	// processor the caller must enqueue for deferred reclamation
	// (internal/gcqueue) rather than drop inline.
	ProcessorToDrop *processor.AudioThreadProcessor
}

// Controller is the main-thread-owned half of one plug-in instance
// (spec.md §3 "Plug-in instance (C6+C7)").
type Controller struct {
	id     plugininfo.ID
	plugin capability.MainThreadPlugin

	state   *pluginstate.Shared
	request *hostrequest.Channel

	params    *paraminfo.Registry
	savestate *savestate.Manager
	ports     *ports.Config
	restart   bool

	// edgesByPort resolves a port ID to the graph edges referencing it, so
	// a removed port can be reported as removed edges (spec.md §4.4,
	// SPEC_FULL.md supplemental feature 3). Supplied by the caller, since
	// only the graph planner knows its own edges; a nil lookup reports no
	// removed edges.
	edgesByPort func(portID uint64) []uint64

	removeRequested bool

	gesturing map[events.ParamID]bool

	valueProd *paramqueue.Producer[float64]
	modProd   *paramqueue.Producer[float64]
	fromAudio *paramqueue.Consumer[paraminfo.ValueUpdate]

	proc *processor.AudioThreadProcessor

	gc *gcqueue.Queue
}

// New builds a controller wrapping plugin, not yet activated.
func New(id plugininfo.ID, plugin capability.MainThreadPlugin, gc *gcqueue.Queue) *Controller {
	return &Controller{
		id:        id,
		plugin:    plugin,
		state:     pluginstate.NewShared(),
		request:   hostrequest.NewChannel(),
		gesturing: make(map[events.ParamID]bool),
		gc:        gc,
	}
}

// State returns the shared C5 state word, read by both threads.
func (c *Controller) State() *pluginstate.Shared {
	return c.state
}

// SetEdgeLookup installs the callback used to translate a removed port
// into the graph edges that referenced it.
func (c *Controller) SetEdgeLookup(fn func(portID uint64) []uint64) {
	c.edgesByPort = fn
}

// Request returns the shared C4 host-request channel.
func (c *Controller) Request() *hostrequest.Channel {
	return c.request
}

// Activate brings the plug-in from Inactive/InactiveWithError to
// ActiveAndSleeping and builds its audio-thread processor (spec.md §4.4).
func (c *Controller) Activate(sampleRate float64, minFrames, maxFrames int) (*ActivateResult, error) {
	switch c.state.Get() {
	case pluginstate.Inactive, pluginstate.InactiveWithError:
	default:
		return nil, &ActivateError{Kind: AlreadyActive}
	}
	if c.restart {
		return nil, &ActivateError{Kind: RestartScheduled}
	}

	audioPorts, err := c.plugin.AudioPortsExt()
	if err != nil {
		c.state.Set(pluginstate.InactiveWithError)
		return nil, &ActivateError{Kind: PluginFailedToGetAudioPortsExt, Message: err.Error()}
	}
	notePorts, err := c.plugin.NotePortsExt()
	if err != nil {
		c.state.Set(pluginstate.InactiveWithError)
		return nil, &ActivateError{Kind: PluginFailedToGetNotePortsExt, Message: err.Error()}
	}

	n := c.plugin.NumParams()
	registry := paraminfo.NewRegistry()
	for i := 0; i < n; i++ {
		info, err := c.plugin.ParamInfo(i)
		if err != nil {
			c.state.Set(pluginstate.InactiveWithError)
			return nil, &ActivateError{Kind: PluginFailedToGetParamInfo, ParamIndex: i, Message: err.Error()}
		}
		value, err := c.plugin.ParamValue(info.ID)
		if err != nil {
			c.state.Set(pluginstate.InactiveWithError)
			return nil, &ActivateError{Kind: PluginFailedToGetParamValue, ParamID: info.ID, Message: err.Error()}
		}
		info.SetValue(value)
		registry.Add(info)
	}

	combined := &ports.Config{Audio: audioPorts.Audio, Note: notePorts.Note}
	lookup := c.edgesByPort
	if lookup == nil {
		lookup = func(uint64) []uint64 { return nil }
	}
	syncResult := ports.Sync(c.ports, combined, lookup)
	c.ports = combined

	audioCapability, err := c.plugin.Activate(sampleRate, minFrames, maxFrames)
	if err != nil {
		c.state.Set(pluginstate.InactiveWithError)
		return nil, &ActivateError{Kind: PluginSpecific, Message: err.Error()}
	}

	ids := registry.IDs()
	valueProd, valueCons := paramqueue.New[float64](ids, paramqueue.Overwrite[float64])
	modProd, modCons := paramqueue.New[float64](ids, paramqueue.Overwrite[float64])
	fromAudioProd, fromAudioCons := paramqueue.New[paraminfo.ValueUpdate](ids, paraminfo.MergeValueUpdate)

	c.params = registry
	c.savestate = savestate.NewManager(registry)
	c.valueProd = valueProd
	c.modProd = modProd
	c.fromAudio = fromAudioCons

	c.proc = processor.New(c.id, audioCapability, c.state, c.request, valueCons, modCons, fromAudioProd,
		declick.FramesForDuration(sampleRate))

	c.state.Set(pluginstate.ActiveAndSleeping)

	return &ActivateResult{Processor: c.proc, RemovedEdges: syncResult.RemovedEdges}, nil
}

// ScheduleDeactivate requests that the audio thread stop processing and
// drop its processor reference (spec.md §4.4).
func (c *Controller) ScheduleDeactivate() {
	if !c.state.Get().IsActive() {
		return
	}
	c.proc = nil
	c.request.Request(hostrequest.Deactivate)
}

// ScheduleRemove marks the plug-in for removal once deactivated
// (spec.md §4.4).
func (c *Controller) ScheduleRemove() {
	c.removeRequested = true
	c.ScheduleDeactivate()
}

// SetParamValue clamps and enqueues a UI-originated parameter write
// (spec.md §4.4).
func (c *Controller) SetParamValue(id events.ParamID, v float64) (float64, error) {
	p := c.params.Get(id)
	if p == nil {
		return 0, ParamDoesNotExist
	}
	if p.IsReadOnly() {
		return 0, ParamIsReadOnly
	}
	clamped := p.SetValue(v)
	c.valueProd.Set(id, clamped)
	c.valueProd.ProducerDone()
	c.savestate.MarkDirty()
	return clamped, nil
}

// SetParamModAmount enqueues a UI-originated modulation-amount write,
// unclamped (OPEN QUESTIONS — DECISIONS 1: matches the absence of a clamp
// call in the source this behavior was translated from).
func (c *Controller) SetParamModAmount(id events.ParamID, amount float64) error {
	p := c.params.Get(id)
	if p == nil {
		return ParamDoesNotExist
	}
	if !p.IsModulatable() {
		return ParamIsNotModulatable
	}
	c.modProd.Set(id, amount)
	c.modProd.ProducerDone()
	return nil
}

// OnIdle is the controller's single driver, called periodically from the
// main thread (spec.md §4.4).
func (c *Controller) OnIdle(sampleRate float64, minFrames, maxFrames int) OnIdleResult {
	var result OnIdleResult

	flags := c.request.FetchAndClear()
	state := c.state.Get()

	if flags.Contains(hostrequest.MarkDirty) && c.savestate != nil {
		c.savestate.MarkDirty()
	}
	if flags.Contains(hostrequest.Callback) {
		c.plugin.OnMainThread()
	}
	if flags.Contains(hostrequest.RescanParams) {
		// Rescanning params mid-life is deferred to a future reactivation;
		// the registry already reflects the latest values the plug-in
		// reported at the last activation.
	}

	if c.fromAudio != nil {
		c.fromAudio.Consume(func(id events.ParamID, upd paraminfo.ValueUpdate) {
			if upd.HasGesture {
				c.gesturing[id] = upd.GestureOn
			}
			result.ModifiedParams = append(result.ModifiedParams, ParamModifiedInfo{
				ID:          id,
				Value:       upd.Value,
				HasValue:    upd.HasValue,
				IsGesturing: c.gesturing[id],
			})
		})
	}

	if flags.Contains(hostrequest.Restart) || flags.Contains(hostrequest.RescanPorts) {
		c.restart = true
		c.ScheduleDeactivate()
	}

	if flags.Contains(hostrequest.GUIClosed) {
		result.Events = append(result.Events, OnIdleEvent{Kind: PluginGuiClosed})
	}
	if flags.Contains(hostrequest.GUIShow) {
		result.Events = append(result.Events, OnIdleEvent{Kind: PluginRequestedToShowGui})
	}
	if flags.Contains(hostrequest.GUIHide) {
		result.Events = append(result.Events, OnIdleEvent{Kind: PluginRequestedToHideGui})
	}
	if flags.Contains(hostrequest.GUIResize) {
		result.Events = append(result.Events, OnIdleEvent{Kind: PluginRequestedToResizeGui})
	}
	if flags.Contains(hostrequest.GUIHintsChanged) {
		result.Events = append(result.Events, OnIdleEvent{Kind: PluginChangedGuiResizeHints})
	}

	if state == pluginstate.DroppedAndReadyToDeactivate {
		retiring := c.proc
		c.plugin.Deactivate()
		c.state.Set(pluginstate.Inactive)

		if !c.removeRequested && (c.restart || flags.Contains(hostrequest.Process)) {
			c.restart = false
			if _, err := c.Activate(sampleRate, minFrames, maxFrames); err == nil {
				result.ProcessorToDrop = retiring
			}
		} else {
			result.ProcessorToDrop = retiring
		}
		if c.removeRequested {
			result.Events = append(result.Events, OnIdleEvent{Kind: PluginReadyToRemove})
		}
	} else if flags.Contains(hostrequest.Process) && !c.removeRequested && !c.restart {
		switch state {
		case pluginstate.ActiveAndSleeping, pluginstate.ActiveAndProcessing, pluginstate.ActiveAndWaitingForQuiet,
			pluginstate.ActiveWithError, pluginstate.Inactive, pluginstate.InactiveWithError:
			c.request.Request(hostrequest.Process)
		}
	}

	return result
}

// SetBypassed toggles bypass on the live audio-thread processor, starting
// its declick crossfade (supplemental feature 2, SPEC_FULL.md). A no-op
// before first activation.
func (c *Controller) SetBypassed(v bool) {
	if c.proc != nil {
		c.proc.SetBypassed(v)
	}
}

// UpdateTempoMap forwards a tempo change to the plug-in (supplemental
// feature 4, SPEC_FULL.md).
func (c *Controller) UpdateTempoMap(tempoBPM float64) {
	c.plugin.UpdateTempoMap(tempoBPM)
}

// CollectSaveState returns the plug-in's save-state blob if it has
// changed since the last call, else nil.
func (c *Controller) CollectSaveState() []byte {
	if c.savestate == nil {
		return nil
	}
	return c.savestate.Collect()
}

// LoadSaveState restores a previously collected save-state blob.
func (c *Controller) LoadSaveState(blob []byte) error {
	if c.savestate == nil {
		return fmt.Errorf("controller: cannot load state before first activation")
	}
	return c.savestate.Load(blob)
}
