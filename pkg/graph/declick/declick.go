// Package declick implements the short linear fade C7 applies across a
// bypass-state transition, so a plug-in going in or out of bypass never
// produces an audible click (spec.md GLOSSARY "Declick").
//
// Grounded on original_source/src/plugin_host/main_thread.rs's
// BYPASS_DECLICK_SECS (a fixed 3ms, converted to a frame count once at
// activation time) and shaped after this codebase's linear-smoothing case
// in pkg/framework/param's Smoother: a fixed step size computed once per
// target change, then advanced one sample at a time.
package declick

import "math"

// BypassDeclickSeconds is the fixed fade duration, matching the original's
// BYPASS_DECLICK_SECS.
const BypassDeclickSeconds = 3.0 / 1000.0

// FramesForDuration converts BypassDeclickSeconds to a frame count at the
// given sample rate, rounding to the nearest frame as the original does.
func FramesForDuration(sampleRate float64) int {
	return int(math.Round(sampleRate * BypassDeclickSeconds))
}

// Ramp is a persistent linear mix ramp: Value() is 0 for "fully wet" and 1
// for "fully dry", crossfading linearly over a fixed frame count whenever
// SetTarget moves the target. A zero Ramp starts fully wet and at rest.
type Ramp struct {
	current    float64
	target     float64
	step       float64
	framesLeft int
}

// SetTarget begins (or re-aims) a ramp toward target over frames samples.
// A non-positive frames snaps immediately, matching a zero-length fade.
func (r *Ramp) SetTarget(target float64, frames int) {
	if target == r.target {
		return
	}
	if frames <= 0 {
		r.current = target
		r.target = target
		r.framesLeft = 0
		return
	}
	r.target = target
	r.step = (target - r.current) / float64(frames)
	r.framesLeft = frames
}

// Next advances the ramp by one sample and returns the resulting mix
// value. Safe to call every sample regardless of Active: once at rest it
// simply returns the current value each time.
func (r *Ramp) Next() float64 {
	if r.framesLeft <= 0 {
		return r.current
	}
	r.current += r.step
	r.framesLeft--
	if r.framesLeft == 0 {
		r.current = r.target
	}
	return r.current
}

// Value returns the ramp's current mix value without advancing it.
func (r *Ramp) Value() float64 {
	return r.current
}

// Active reports whether the ramp is still moving toward its target.
func (r *Ramp) Active() bool {
	return r.framesLeft > 0
}
