// Package hostrequest implements the atomic flag bitset (C4) a plugin uses
// to ask the host for things — restart, process, a main-thread callback,
// GUI visibility changes — from either thread.
package hostrequest

import "sync/atomic"

// Flags is a bitset of pending host requests.
type Flags uint32

const (
	Restart Flags = 1 << iota
	Process
	Callback
	Deactivate
	MarkDirty
	RescanParams
	RescanPorts
	GUIShow
	GUIHide
	GUIResize
	GUIClosed
	GUIDestroyed
	GUIHintsChanged
)

// Contains reports whether all bits in other are set in f.
func (f Flags) Contains(other Flags) bool {
	return f&other == other
}

// Intersects reports whether any bit in other is set in f.
func (f Flags) Intersects(other Flags) bool {
	return f&other != 0
}

// Channel is the shared, atomically-updated request bitset. Either thread
// may set bits (release-on-set); the main thread fetches-and-clears on each
// idle tick (acquire-on-fetch). The audio-thread processor reads the bits
// with Load and clears only the ones it consumes (Deactivate, Process)
// with Clear.
type Channel struct {
	bits atomic.Uint32
}

// NewChannel creates an empty request channel.
func NewChannel() *Channel {
	return &Channel{}
}

// Request sets bits in the channel. Safe to call from either thread.
func (c *Channel) Request(flags Flags) {
	c.bits.Or(uint32(flags))
}

// Load reads the current bits without clearing them.
func (c *Channel) Load() Flags {
	return Flags(c.bits.Load())
}

// FetchAndClear atomically reads and zeroes the bitset. Intended for the
// main thread's idle tick.
func (c *Channel) FetchAndClear() Flags {
	return Flags(c.bits.Swap(0))
}

// Clear unsets exactly the given bits, leaving others untouched. Used by the
// audio thread to clear Process or Deactivate without disturbing
// concurrently-set bits.
func (c *Channel) Clear(flags Flags) {
	c.bits.And(^uint32(flags))
}
