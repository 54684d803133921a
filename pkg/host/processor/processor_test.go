package processor

import (
	"errors"
	"testing"

	"github.com/vst3go/hostcore/internal/rtlog"
	"github.com/vst3go/hostcore/pkg/graph/bufferpool"
	"github.com/vst3go/hostcore/pkg/graph/events"
	"github.com/vst3go/hostcore/pkg/graph/hostrequest"
	"github.com/vst3go/hostcore/pkg/graph/paramqueue"
	"github.com/vst3go/hostcore/pkg/graph/pluginstate"
	"github.com/vst3go/hostcore/pkg/graph/schedule"
	"github.com/vst3go/hostcore/pkg/host/capability"
	"github.com/vst3go/hostcore/pkg/host/paraminfo"
)

type fakePlugin struct {
	startErr     error
	started      int
	stopped      int
	processCalls int
	status       capability.Status

	// outEvents is pushed into the processor's out buffer on each Process
	// call, letting a test script exactly what the plug-in "emits".
	outEvents []events.Event

	lastIn *events.Buffer

	flushCalls int
}

func (f *fakePlugin) StartProcessing() error {
	f.started++
	return f.startErr
}

func (f *fakePlugin) StopProcessing() {
	f.stopped++
}

func (f *fakePlugin) Process(_ schedule.ProcInfo, _ schedule.PluginBuffers, in, out *events.Buffer) capability.Status {
	f.processCalls++
	f.lastIn = in
	for _, e := range f.outEvents {
		out.Push(e)
	}
	return f.status
}

func (f *fakePlugin) ParamFlush(in, out *events.Buffer) {
	f.flushCalls++
}

func newTestProcessor(t *testing.T, plugin *fakePlugin) (*AudioThreadProcessor, *pluginstate.Shared, *hostrequest.Channel, *paramqueue.Producer[paraminfo.ValueUpdate], *paramqueue.Consumer[paraminfo.ValueUpdate]) {
	t.Helper()
	state := pluginstate.NewShared()
	request := hostrequest.NewChannel()
	ids := []events.ParamID{1, 2}
	valueProd, valueCons := paramqueue.New[float64](ids, paramqueue.Overwrite[float64])
	modProd, modCons := paramqueue.New[float64](ids, paramqueue.Overwrite[float64])
	toMainProd, toMainCons := paramqueue.New[paraminfo.ValueUpdate](ids, paraminfo.MergeValueUpdate)
	_ = valueProd
	_ = modProd
	p := New(1, plugin, state, request, valueCons, modCons, toMainProd, 4)
	return p, state, request, toMainProd, toMainCons
}

func emptyBuffers() schedule.PluginBuffers {
	return schedule.PluginBuffers{}
}

func TestProcessInactiveClearsAndReturns(t *testing.T) {
	plugin := &fakePlugin{}
	p, state, _, _, _ := newTestProcessor(t, plugin)
	state.Set(pluginstate.Inactive)

	p.Process(schedule.ProcInfo{Frames: 64}, emptyBuffers())

	if plugin.processCalls != 0 {
		t.Fatalf("expected plug-in Process not to be called while inactive, got %d calls", plugin.processCalls)
	}
}

func TestProcessDeactivateTransitionsToWaitingToDrop(t *testing.T) {
	plugin := &fakePlugin{}
	p, state, request, _, _ := newTestProcessor(t, plugin)
	state.Set(pluginstate.ActiveAndProcessing)
	request.Request(hostrequest.Deactivate)

	p.Process(schedule.ProcInfo{Frames: 64}, emptyBuffers())

	if got := state.Get(); got != pluginstate.WaitingToDrop {
		t.Fatalf("state = %v, want WaitingToDrop", got)
	}
	if plugin.stopped != 1 {
		t.Fatalf("StopProcessing called %d times, want 1", plugin.stopped)
	}
	if request.Load().Contains(hostrequest.Deactivate) {
		t.Fatalf("Deactivate flag should be cleared after handling")
	}
}

func TestProcessActiveWithErrorShortCircuits(t *testing.T) {
	plugin := &fakePlugin{}
	p, state, _, _, _ := newTestProcessor(t, plugin)
	state.Set(pluginstate.ActiveWithError)

	p.Process(schedule.ProcInfo{Frames: 64}, emptyBuffers())

	if plugin.processCalls != 0 {
		t.Fatalf("expected no Process call while ActiveWithError, got %d", plugin.processCalls)
	}
}

func TestProcessSleepingWithoutRequestStaysAsleep(t *testing.T) {
	plugin := &fakePlugin{}
	p, state, _, _, _ := newTestProcessor(t, plugin)
	state.Set(pluginstate.ActiveAndSleeping)

	p.Process(schedule.ProcInfo{Frames: 64}, emptyBuffers())

	if plugin.started != 0 || plugin.processCalls != 0 {
		t.Fatalf("plug-in should not wake without a PROCESS request or note-in event")
	}
	if got := state.Get(); got != pluginstate.ActiveAndSleeping {
		t.Fatalf("state = %v, want ActiveAndSleeping", got)
	}
}

func TestProcessSleepingWakesOnProcessRequest(t *testing.T) {
	plugin := &fakePlugin{status: capability.StatusContinue}
	p, state, request, _, _ := newTestProcessor(t, plugin)
	state.Set(pluginstate.ActiveAndSleeping)
	request.Request(hostrequest.Process)

	p.Process(schedule.ProcInfo{Frames: 64}, emptyBuffers())

	if plugin.started != 1 {
		t.Fatalf("StartProcessing called %d times, want 1", plugin.started)
	}
	if plugin.processCalls != 1 {
		t.Fatalf("Process called %d times, want 1", plugin.processCalls)
	}
	if got := state.Get(); got != pluginstate.ActiveAndProcessing {
		t.Fatalf("state = %v, want ActiveAndProcessing", got)
	}
	if request.Load().Contains(hostrequest.Process) {
		t.Fatalf("PROCESS flag should be cleared once consumed")
	}
}

func TestProcessStartProcessingFailureSetsError(t *testing.T) {
	plugin := &fakePlugin{startErr: errors.New("boom")}
	p, state, request, _, _ := newTestProcessor(t, plugin)
	state.Set(pluginstate.ActiveAndSleeping)
	request.Request(hostrequest.Process)

	p.Process(schedule.ProcInfo{Frames: 64}, emptyBuffers())

	if got := state.Get(); got != pluginstate.ActiveWithError {
		t.Fatalf("state = %v, want ActiveWithError", got)
	}
	if plugin.processCalls != 0 {
		t.Fatalf("Process must not be called after a failed StartProcessing")
	}
}

func TestProcessStatusTransitions(t *testing.T) {
	cases := []struct {
		name   string
		status capability.Status
		want   pluginstate.State
	}{
		{"continue", capability.StatusContinue, pluginstate.ActiveAndProcessing},
		{"continueIfNotQuiet", capability.StatusContinueIfNotQuiet, pluginstate.ActiveAndWaitingForQuiet},
		{"sleep", capability.StatusSleep, pluginstate.ActiveAndSleeping},
		// StatusError silences this block's outputs but leaves state
		// untouched, unlike a failed StartProcessing (see
		// TestProcessStartProcessingFailureSetsError).
		{"error", capability.StatusError, pluginstate.ActiveAndProcessing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plugin := &fakePlugin{status: tc.status}
			p, state, _, _, _ := newTestProcessor(t, plugin)
			state.Set(pluginstate.ActiveAndProcessing)

			p.Process(schedule.ProcInfo{Frames: 64}, emptyBuffers())

			if got := state.Get(); got != tc.want {
				t.Fatalf("state = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProcessRoutesGestureAndValueEventsToMainQueue(t *testing.T) {
	plugin := &fakePlugin{
		status: capability.StatusContinue,
		outEvents: []events.Event{
			{Type: events.TypeParamGestureBegin, ParamID: 1},
			{Type: events.TypeParamValue, ParamID: 1, Value: 0.75},
			{Type: events.TypeParamGestureEnd, ParamID: 1},
		},
	}
	p, state, _, _, toMainCons := newTestProcessor(t, plugin)
	state.Set(pluginstate.ActiveAndProcessing)

	p.Process(schedule.ProcInfo{Frames: 64}, emptyBuffers())

	var got paraminfo.ValueUpdate
	seen := false
	toMainCons.Consume(func(id events.ParamID, upd paraminfo.ValueUpdate) {
		if id == 1 {
			got = upd
			seen = true
		}
	})
	if !seen {
		t.Fatalf("expected a coalesced update for param 1")
	}
	if !got.HasValue || got.Value != 0.75 {
		t.Fatalf("got value update %+v, want Value=0.75", got)
	}
	if !got.HasGesture || got.GestureOn {
		t.Fatalf("got gesture update %+v, want GestureOn=false after matched end", got)
	}
}

func TestProcessDuplicateGestureBeginIsDropped(t *testing.T) {
	plugin := &fakePlugin{
		status: capability.StatusContinue,
		outEvents: []events.Event{
			{Type: events.TypeParamGestureBegin, ParamID: 1},
		},
	}
	p, state, _, _, toMainCons := newTestProcessor(t, plugin)
	state.Set(pluginstate.ActiveAndProcessing)
	p.gesturing[1] = true // already gesturing before this block

	p.Process(schedule.ProcInfo{Frames: 64}, emptyBuffers())

	toMainCons.Consume(func(id events.ParamID, upd paraminfo.ValueUpdate) {
		t.Fatalf("duplicate gesture begin was forwarded to the main queue: id=%d %+v", id, upd)
	})
	logged := 0
	p.log.Drain(func(rtlog.Level, string) { logged++ })
	if logged != 1 {
		t.Fatalf("logged %d records for the duplicate begin, want 1", logged)
	}
	if p.log.Dropped() != 0 {
		t.Fatalf("the duplicate begin should be logged, not dropped from the ring")
	}
}

func TestProcessWaitingForQuietSleepsWithoutParamFlush(t *testing.T) {
	plugin := &fakePlugin{}
	p, state, _, _, _ := newTestProcessor(t, plugin)
	state.Set(pluginstate.ActiveAndWaitingForQuiet)

	buffers := schedule.PluginBuffers{
		AudioIn: []*bufferpool.AudioBuffer{{Samples: make([]float32, 64)}},
	}
	p.Process(schedule.ProcInfo{Frames: 64}, buffers)

	if plugin.stopped != 1 {
		t.Fatalf("StopProcessing called %d times, want 1", plugin.stopped)
	}
	if got := state.Get(); got != pluginstate.ActiveAndSleeping {
		t.Fatalf("state = %v, want ActiveAndSleeping", got)
	}
	if plugin.flushCalls != 0 {
		t.Fatalf("ParamFlush called %d times, want 0 (no param events pending)", plugin.flushCalls)
	}
}

func TestDropStopsProcessingAndTransitions(t *testing.T) {
	plugin := &fakePlugin{}
	p, state, _, _, _ := newTestProcessor(t, plugin)
	state.Set(pluginstate.ActiveAndProcessing)

	p.Drop()

	if plugin.stopped != 1 {
		t.Fatalf("StopProcessing called %d times, want 1", plugin.stopped)
	}
	if got := state.Get(); got != pluginstate.DroppedAndReadyToDeactivate {
		t.Fatalf("state = %v, want DroppedAndReadyToDeactivate", got)
	}
}
