package declick

import "testing"

func TestFramesForDuration(t *testing.T) {
	got := FramesForDuration(48000)
	if got != 144 {
		t.Fatalf("FramesForDuration(48000) = %d, want 144", got)
	}
}

func TestRampReachesTargetExactlyAtFrameCount(t *testing.T) {
	var r Ramp
	r.SetTarget(1, 4)

	for i := 0; i < 3; i++ {
		if !r.Active() {
			t.Fatalf("ramp should still be active before the final sample")
		}
		r.Next()
	}
	v := r.Next()
	if v != 1 {
		t.Fatalf("final sample = %v, want 1", v)
	}
	if r.Active() {
		t.Fatalf("ramp should be at rest once it reaches its target")
	}
}

func TestRampSnapsOnNonPositiveFrames(t *testing.T) {
	var r Ramp
	r.SetTarget(1, 0)
	if r.Value() != 1 || r.Active() {
		t.Fatalf("zero-length ramp should snap immediately, got value=%v active=%v", r.Value(), r.Active())
	}
}

func TestRampRetargetMidFlightUsesCurrentPosition(t *testing.T) {
	var r Ramp
	r.SetTarget(1, 10)
	for i := 0; i < 5; i++ {
		r.Next()
	}
	mid := r.Value()
	r.SetTarget(0, 5)
	if r.Value() != mid {
		t.Fatalf("SetTarget must not jump the current value, got %v want %v", r.Value(), mid)
	}
	for r.Active() {
		r.Next()
	}
	if r.Value() != 0 {
		t.Fatalf("ramp should settle at the new target, got %v", r.Value())
	}
}

func TestRampIgnoresRedundantSameTargetCall(t *testing.T) {
	var r Ramp
	r.SetTarget(1, 4)
	r.Next()
	before := r.Value()
	framesLeftBefore := r.framesLeft
	r.SetTarget(1, 999) // same target already in flight; must not restep
	if r.Value() != before || r.framesLeft != framesLeftBefore {
		t.Fatalf("redundant SetTarget to the same in-flight target must be a no-op")
	}
}
