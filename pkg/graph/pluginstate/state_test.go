package pluginstate

import "testing"

func TestPredicates(t *testing.T) {
	cases := []struct {
		state               State
		active, processing, sleeping bool
	}{
		{Inactive, false, false, false},
		{InactiveWithError, false, false, false},
		{ActiveAndSleeping, true, false, true},
		{ActiveAndProcessing, true, true, false},
		{ActiveAndWaitingForQuiet, true, true, false},
		{ActiveWithError, true, false, false},
		{WaitingToDrop, false, false, false},
		{DroppedAndReadyToDeactivate, false, false, false},
	}

	for _, c := range cases {
		t.Run(c.state.String(), func(t *testing.T) {
			if got := c.state.IsActive(); got != c.active {
				t.Errorf("IsActive() = %v, want %v", got, c.active)
			}
			if got := c.state.IsProcessing(); got != c.processing {
				t.Errorf("IsProcessing() = %v, want %v", got, c.processing)
			}
			if got := c.state.IsSleeping(); got != c.sleeping {
				t.Errorf("IsSleeping() = %v, want %v", got, c.sleeping)
			}
		})
	}
}

func TestSharedGetSet(t *testing.T) {
	s := NewShared()
	if got := s.Get(); got != Inactive {
		t.Fatalf("new Shared = %v, want Inactive", got)
	}

	s.Set(ActiveAndProcessing)
	if got := s.Get(); got != ActiveAndProcessing {
		t.Fatalf("after Set = %v, want ActiveAndProcessing", got)
	}
}
