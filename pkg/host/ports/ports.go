// Package ports models a plug-in's audio and note port configuration and
// the host-side synchronization step the controller runs at activation
// (spec.md §4.4: "synchronize ports with the abstract graph (adds/removes
// port IDs, records removed edges)").
//
// Adapted from pkg/framework/bus's Configuration/Info: the same
// direction/main-vs-aux modeling, generalized from a single VST3 bus list
// owned by one plug-in into a host-side port set the controller
// diffs against the graph on every (re)activation.
package ports

// Direction is the port's data-flow direction relative to the plug-in.
type Direction int32

const (
	In Direction = iota
	Out
)

// Kind distinguishes a main port (the plug-in's primary signal path) from
// an auxiliary one (sidechains, extra sends).
type Kind int32

const (
	Main Kind = iota
	Aux
)

// AudioPort describes one audio port.
type AudioPort struct {
	ID           uint64
	Direction    Direction
	Kind         Kind
	ChannelCount int
	Name         string
}

// NotePort describes one note/MIDI port.
type NotePort struct {
	ID        uint64
	Direction Direction
	Name      string
}

// Config is a plug-in's full port configuration as reported by
// audio_ports_ext() / note_ports_ext() (spec.md §6).
type Config struct {
	Audio []AudioPort
	Note  []NotePort
}

// Count returns the number of audio ports in the given direction.
func (c *Config) Count(dir Direction) int {
	n := 0
	for _, p := range c.Audio {
		if p.Direction == dir {
			n++
		}
	}
	return n
}

// SyncResult reports what changed when a new Config is synchronized
// against the previous one.
type SyncResult struct {
	AddedAudio   []uint64
	RemovedAudio []uint64
	AddedNote    []uint64
	RemovedNote  []uint64
	// RemovedEdges lists the graph edges that referenced a now-removed
	// port and must be dropped from the abstract schedule before the next
	// compile (spec.md §4.4 "records removed edges").
	RemovedEdges []uint64
}

// Sync diffs next against the ports previously reported (prev may be nil
// on first activation) and returns what the controller must tell the
// graph planner about. edgesByPort looks up which graph edges reference a
// given port ID, so a removed port can be translated into removed edges.
func Sync(prev, next *Config, edgesByPort func(portID uint64) []uint64) SyncResult {
	var res SyncResult

	prevAudio := map[uint64]bool{}
	if prev != nil {
		for _, p := range prev.Audio {
			prevAudio[p.ID] = true
		}
	}
	nextAudio := map[uint64]bool{}
	for _, p := range next.Audio {
		nextAudio[p.ID] = true
		if !prevAudio[p.ID] {
			res.AddedAudio = append(res.AddedAudio, p.ID)
		}
	}
	for id := range prevAudio {
		if !nextAudio[id] {
			res.RemovedAudio = append(res.RemovedAudio, id)
			res.RemovedEdges = append(res.RemovedEdges, edgesByPort(id)...)
		}
	}

	prevNote := map[uint64]bool{}
	if prev != nil {
		for _, p := range prev.Note {
			prevNote[p.ID] = true
		}
	}
	nextNote := map[uint64]bool{}
	for _, p := range next.Note {
		nextNote[p.ID] = true
		if !prevNote[p.ID] {
			res.AddedNote = append(res.AddedNote, p.ID)
		}
	}
	for id := range prevNote {
		if !nextNote[id] {
			res.RemovedNote = append(res.RemovedNote, id)
			res.RemovedEdges = append(res.RemovedEdges, edgesByPort(id)...)
		}
	}

	return res
}

// StereoConfig builds the common two-audio-port (in+out), no-note
// configuration.
func StereoConfig(inID, outID uint64) *Config {
	return &Config{
		Audio: []AudioPort{
			{ID: inID, Direction: In, Kind: Main, ChannelCount: 2, Name: "Stereo In"},
			{ID: outID, Direction: Out, Kind: Main, ChannelCount: 2, Name: "Stereo Out"},
		},
	}
}
