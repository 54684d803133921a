// Package processor implements the plug-in audio-thread processor (C7):
// the per-block process() call a compiled schedule.PluginTask invokes.
//
// Grounded on original_source/src/graph/plugin_host.rs's
// PluginInstanceHostAudioThread::process and spec.md §4.5's sixteen-step
// algorithm, restructured into this codebase's method-on-owned-state style
// (pkg/framework/plugin's AudioProcessor).
package processor

import (
	"github.com/vst3go/hostcore/internal/rtlog"
	"github.com/vst3go/hostcore/pkg/graph/bufferpool"
	"github.com/vst3go/hostcore/pkg/graph/declick"
	"github.com/vst3go/hostcore/pkg/graph/events"
	"github.com/vst3go/hostcore/pkg/graph/hostrequest"
	"github.com/vst3go/hostcore/pkg/graph/paramqueue"
	"github.com/vst3go/hostcore/pkg/graph/pluginstate"
	"github.com/vst3go/hostcore/pkg/graph/schedule"
	"github.com/vst3go/hostcore/pkg/host/capability"
	"github.com/vst3go/hostcore/pkg/host/paraminfo"
	"github.com/vst3go/hostcore/pkg/host/plugininfo"
)

// scratchEventCapacity sizes the processor's own in/out event scratch
// lists: large enough for a worst-case block's worth of drained queue,
// note, and forwarded automation events without growing mid-block.
const scratchEventCapacity = 64

// AudioThreadProcessor is the audio-thread half of one plug-in instance
// (spec.md §3 "Plug-in instance (C6+C7)"). It satisfies
// schedule.PluginProcessor, so a compiled schedule.PluginTask can dispatch
// into it directly.
type AudioThreadProcessor struct {
	id     plugininfo.ID
	plugin capability.AudioThreadPlugin

	state   *pluginstate.Shared
	request *hostrequest.Channel

	valueCons *paramqueue.Consumer[float64]
	modCons   *paramqueue.Consumer[float64]
	toMain    *paramqueue.Producer[paraminfo.ValueUpdate]

	gesturing map[events.ParamID]bool

	inEvents  *events.Buffer
	outEvents *events.Buffer

	bypassed      bool
	bypassMix     declick.Ramp
	declickFrames int

	log *rtlog.Ring
}

// New builds a processor bound to an already-activated plug-in. valueCons
// and modCons drain the controller's UI-originated value/mod queues;
// toMain is the audio->main queue the controller drains in OnIdle.
// declickFrames is the bypass crossfade length in samples, sized once at
// activation time from the sample rate (declick.FramesForDuration).
func New(
	id plugininfo.ID,
	plugin capability.AudioThreadPlugin,
	state *pluginstate.Shared,
	request *hostrequest.Channel,
	valueCons *paramqueue.Consumer[float64],
	modCons *paramqueue.Consumer[float64],
	toMain *paramqueue.Producer[paraminfo.ValueUpdate],
	declickFrames int,
) *AudioThreadProcessor {
	return &AudioThreadProcessor{
		id:            id,
		plugin:        plugin,
		state:         state,
		request:       request,
		valueCons:     valueCons,
		modCons:       modCons,
		toMain:        toMain,
		gesturing:     make(map[events.ParamID]bool),
		inEvents:      events.NewBuffer(scratchEventCapacity),
		outEvents:     events.NewBuffer(scratchEventCapacity),
		declickFrames: declickFrames,
		log:           rtlog.NewRing(64),
	}
}

// Log returns the processor's realtime log ring, drained from a
// non-realtime thread.
func (p *AudioThreadProcessor) Log() *rtlog.Ring {
	return p.log
}

// SetBypassed starts (or re-aims) the bypass crossfade toward v. Called
// from the main thread when the host toggles bypass; the audio thread
// only ever reads the resulting ramp, one sample at a time, so no lock is
// needed beyond the ramp's own single-writer assumption — the main thread
// must not call this concurrently with a Process call for the same
// instance, matching every other main-thread-owned setter in this package.
func (p *AudioThreadProcessor) SetBypassed(v bool) {
	if v == p.bypassed {
		return
	}
	p.bypassed = v
	target := 0.0
	if v {
		target = 1.0
	}
	p.bypassMix.SetTarget(target, p.declickFrames)
}

// applyBypassDeclick crossfades buffers.AudioOut toward buffers.AudioIn (or
// back away from it) sample-by-sample, advancing the shared ramp once per
// sample so every channel moves through the fade in lockstep.
func (p *AudioThreadProcessor) applyBypassDeclick(info schedule.ProcInfo, buffers schedule.PluginBuffers) {
	if !p.bypassed && !p.bypassMix.Active() {
		return
	}
	for s := 0; s < info.Frames; s++ {
		mix := p.bypassMix.Next()
		for ch, out := range buffers.AudioOut {
			if ch >= len(buffers.AudioIn) {
				continue
			}
			dry := float64(buffers.AudioIn[ch].Samples[s])
			out.Samples[s] = float32(float64(out.Samples[s])*(1-mix) + dry*mix)
		}
	}
}

func clearOutputs(buffers schedule.PluginBuffers) {
	if buffers.EventOut != nil {
		buffers.EventOut.Clear()
	}
	for _, nb := range buffers.NoteOut {
		if nb != nil {
			nb.Clear()
		}
	}
}

func allSilent(bufs []*bufferpool.AudioBuffer) bool {
	for _, b := range bufs {
		if !b.IsSilent() {
			return false
		}
	}
	return true
}

func refreshMasks(bufs []*bufferpool.AudioBuffer) {
	for _, b := range bufs {
		b.RefreshConstantMask()
	}
}

// Process runs one block through the bound plug-in, implementing spec.md
// §4.5. It never allocates on a steady-state call: the in/out scratch
// event lists are owned and reused, and the per-param gesture map is
// populated at most once per distinct parameter ID over the processor's
// lifetime.
func (p *AudioThreadProcessor) Process(info schedule.ProcInfo, buffers schedule.PluginBuffers) {
	// Step 1: always clear event-out and note-out buffers.
	clearOutputs(buffers)

	// Step 2.
	state := p.state.Get()
	if !state.IsActive() {
		p.inEvents.Clear()
		return
	}

	// Step 3.
	flags := p.request.Load()
	if flags.Contains(hostrequest.Deactivate) {
		if state.IsProcessing() {
			p.plugin.StopProcessing()
		}
		p.state.Set(pluginstate.WaitingToDrop)
		p.request.Clear(hostrequest.Deactivate)
		return
	}

	// Step 4.
	if state == pluginstate.ActiveWithError {
		return
	}

	// Step 5 + 6: drain UI->audio value/mod queues. hasParamInEvent tracks
	// whether any param-affecting event actually arrived this block
	// (spec.md §4.5 steps 10-11's param_flush gate, original_source's
	// has_param_in_event in plugin_host.rs); a plug-in with no pending
	// param events must not get a param_flush call just for having params.
	hasParamInEvent := false
	p.valueCons.Consume(func(id events.ParamID, v float64) {
		p.inEvents.Push(events.NewParamValueEvent(id, v, 0))
		hasParamInEvent = true
	})
	p.modCons.Consume(func(id events.ParamID, v float64) {
		p.inEvents.Push(events.NewParamModEvent(id, v, 0))
		hasParamInEvent = true
	})

	// Step 7: per note-in port drain, stamping the port ordinal.
	hasNoteIn := false
	for i, nb := range buffers.NoteIn {
		if nb == nil {
			continue
		}
		nb.Drain(func(e events.Event) {
			if e.IsNoteEvent() {
				p.inEvents.Push(e.WithPortIndex(i))
				hasNoteIn = true
			}
		})
	}

	// Step 8: forward targeted param events and transport events from the
	// automation event-in buffer.
	if buffers.EventIn != nil {
		buffers.EventIn.Drain(func(e events.Event) {
			switch {
			case e.Type == events.TypeTransport:
				p.inEvents.Push(e)
			case (e.Type == events.TypeParamValue || e.Type == events.TypeParamMod) && e.HasTarget && e.TargetPlugin == uint64(p.id):
				p.inEvents.Push(e)
				hasParamInEvent = true
			}
		})
	}

	// Step 9.
	if info.Transport.StepEvent != nil {
		p.inEvents.Push(*info.Transport.StepEvent)
	}

	// Step 10: sleep/quiet policy.
	if state == pluginstate.ActiveAndWaitingForQuiet && !hasNoteIn {
		refreshMasks(buffers.AudioIn)
		if allSilent(buffers.AudioIn) {
			p.plugin.StopProcessing()
			p.state.Set(pluginstate.ActiveAndSleeping)
			clearOutputs(buffers)
			if hasParamInEvent {
				p.plugin.ParamFlush(p.inEvents, p.outEvents)
				p.outEvents.Clear()
			}
			p.inEvents.Clear()
			return
		}
	}

	// Step 11: sleeping check.
	if state.IsSleeping() {
		if !flags.Contains(hostrequest.Process) && !hasNoteIn {
			clearOutputs(buffers)
			if hasParamInEvent {
				p.plugin.ParamFlush(p.inEvents, p.outEvents)
				p.outEvents.Clear()
			}
			p.inEvents.Clear()
			return
		}
		p.request.Clear(hostrequest.Process)
		if err := p.plugin.StartProcessing(); err != nil {
			p.state.Set(pluginstate.ActiveWithError)
			clearOutputs(buffers)
			p.inEvents.Clear()
			return
		}
		state = pluginstate.ActiveAndProcessing
		p.state.Set(state)
	}

	// Step 12: refresh audio-in masks (already done above on the
	// waiting-for-quiet path); reset audio-out masks.
	if state != pluginstate.ActiveAndWaitingForQuiet || hasNoteIn {
		refreshMasks(buffers.AudioIn)
	}
	for _, b := range buffers.AudioOut {
		b.ConstantMask = 0
	}

	// Step 13.
	status := p.plugin.Process(info, buffers, p.inEvents, p.outEvents)

	// Bypass crossfade (supplemental feature 2): runs right after the
	// plug-in produces its output, so a bypass toggle fades smoothly
	// regardless of which status the plug-in returns.
	p.applyBypassDeclick(info, buffers)

	// Step 14: clear in_events, route out_events.
	p.inEvents.Clear()
	p.outEvents.Drain(func(e events.Event) {
		switch e.Type {
		case events.TypeParamGestureBegin:
			if p.gesturing[e.ParamID] {
				p.log.LogValue(rtlog.LevelWarn, "duplicate gesture begin for param", int64(e.ParamID))
				return
			}
			p.gesturing[e.ParamID] = true
			p.toMain.Set(e.ParamID, paraminfo.ValueUpdate{GestureOn: true, HasGesture: true})
		case events.TypeParamGestureEnd:
			if !p.gesturing[e.ParamID] {
				p.log.LogValue(rtlog.LevelWarn, "unmatched gesture end for param", int64(e.ParamID))
				return
			}
			p.gesturing[e.ParamID] = false
			p.toMain.Set(e.ParamID, paraminfo.ValueUpdate{GestureOn: false, HasGesture: true})
		case events.TypeParamValue:
			p.toMain.Set(e.ParamID, paraminfo.ValueUpdate{Value: e.Value, HasValue: true})
		case events.TypeParamMod, events.TypeTransport:
			if buffers.EventOut != nil {
				buffers.EventOut.Push(e)
			}
		default:
			if e.IsNoteEvent() && int(e.PortIndex) >= 0 && int(e.PortIndex) < len(buffers.NoteOut) && buffers.NoteOut[e.PortIndex] != nil {
				buffers.NoteOut[e.PortIndex].Push(e)
			}
		}
	})
	p.toMain.ProducerDone()

	// Step 15: clear out_events, apply status.
	p.outEvents.Clear()
	switch status {
	case capability.StatusContinue:
		p.state.Set(pluginstate.ActiveAndProcessing)
	case capability.StatusContinueIfNotQuiet:
		p.state.Set(pluginstate.ActiveAndWaitingForQuiet)
	case capability.StatusTail:
		p.state.Set(pluginstate.ActiveAndProcessing)
		refreshMasks(buffers.AudioOut)
		if allSilent(buffers.AudioOut) {
			p.plugin.StopProcessing()
			p.state.Set(pluginstate.ActiveAndSleeping)
		}
		return
	case capability.StatusSleep:
		p.plugin.StopProcessing()
		p.state.Set(pluginstate.ActiveAndSleeping)
	case capability.StatusError:
		// No state transition: a process() failure silences this block's
		// outputs but gives the plug-in another chance next block
		// (spec.md §7; original_source/src/graph/plugin_host.rs's process
		// only clears outputs here, unlike the start_processing failure in
		// step 11, which does latch ActiveWithError).
		clearOutputs(buffers)
		return
	}

	// Step 16.
	refreshMasks(buffers.AudioOut)
}

// Drop releases the plug-in's processing resources and hands the
// instance off to the main thread, matching spec.md §4.5's drop
// contract: "if is_processing -> stop_processing; then C5 ->
// DroppedAndReadyToDeactivate."
func (p *AudioThreadProcessor) Drop() {
	if p.state.Get().IsProcessing() {
		p.plugin.StopProcessing()
	}
	p.state.Set(pluginstate.DroppedAndReadyToDeactivate)
}
