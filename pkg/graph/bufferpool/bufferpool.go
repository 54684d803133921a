// Package bufferpool implements the shared buffer pool (C1): three
// independent arenas — audio, note, and parameter-event — addressed by
// 0-based index stable within one compile. Buffers are shared (multiple
// tasks may reference the same index) and carry interior mutability; the
// verifier (pkg/graph/verifier) is what guarantees no two concurrently
// runnable tasks write the same buffer.
//
// Grounded on this codebase's process-context buffer-by-index access
// pattern (pkg/framework/process) generalized to three typed, independently
// resizable arenas, per spec.md §3 and §4.1.
package bufferpool

import "github.com/vst3go/hostcore/pkg/graph/events"

// AudioBuffer is one fixed-size block of audio samples plus its constant
// mask — a per-channel bit marking the block as a DC signal, used for
// silence/optimization decisions (spec.md §3, §8 GLOSSARY).
type AudioBuffer struct {
	Samples      []float32
	ConstantMask uint64
}

// Pool owns the three arenas.
type Pool struct {
	blockSize int

	audio        []*AudioBuffer
	audioTouched []bool

	note       []*events.Buffer
	paramEvent []*events.Buffer
}

// New creates an empty pool. blockSize is fixed for the pool's lifetime —
// it's the number of samples in every audio buffer, per spec.md §4.1
// ("buffer_size() is the block size passed to every task").
func New(blockSize int) *Pool {
	return &Pool{blockSize: blockSize}
}

// BufferSize returns the block size passed to every task.
func (p *Pool) BufferSize() int {
	return p.blockSize
}

// SetNumBuffers grows or truncates each arena to the given length. Buffers
// already held by a still-live task survive truncation because references
// are shared pointers, not values: shrinking the audio arena from 5 to 2
// drops this pool's slots 2-4, but a task elsewhere holding buffer index 3
// keeps a valid pointer to it.
func (p *Pool) SetNumBuffers(nAudio, nNote, nParamEvent int) {
	p.audio = resize(p.audio, nAudio, func() *AudioBuffer {
		return &AudioBuffer{Samples: make([]float32, p.blockSize)}
	})
	p.audioTouched = resizeBool(p.audioTouched, nAudio)

	p.note = resize(p.note, nNote, func() *events.Buffer {
		return events.NewBuffer(8)
	})
	p.paramEvent = resize(p.paramEvent, nParamEvent, func() *events.Buffer {
		return events.NewBuffer(8)
	})
}

func resize[T any](cur []*T, n int, zero func() *T) []*T {
	if n <= len(cur) {
		return cur[:n]
	}
	grown := make([]*T, n)
	copy(grown, cur)
	for i := len(cur); i < n; i++ {
		grown[i] = zero()
	}
	return grown
}

func resizeBool(cur []bool, n int) []bool {
	if n <= len(cur) {
		return cur[:n]
	}
	grown := make([]bool, n)
	copy(grown, cur)
	return grown
}

// InitializedAudioBufferAt returns the audio buffer at index i, zeroing its
// samples and clearing its constant mask the first time it's requested in
// this compile. Subsequent calls in the same compile (before the next
// ResetTouched) return the buffer untouched, so multiple tasks writing the
// same shared output buffer accumulate into it rather than clobbering each
// other.
func (p *Pool) InitializedAudioBufferAt(i int) *AudioBuffer {
	buf := p.audio[i]
	if !p.audioTouched[i] {
		for s := range buf.Samples {
			buf.Samples[s] = 0
		}
		buf.ConstantMask = 0
		p.audioTouched[i] = true
	}
	return buf
}

// AudioBufferAt returns the audio buffer at index i without the
// first-touch zeroing behavior of InitializedAudioBufferAt.
func (p *Pool) AudioBufferAt(i int) *AudioBuffer {
	return p.audio[i]
}

// NoteBufferAt returns the note-arena buffer at index i. Note and
// parameter-event arenas are never zeroed on touch (spec.md §4.1) — each
// task that writes one is expected to Clear it explicitly if it wants a
// fresh buffer.
func (p *Pool) NoteBufferAt(i int) *events.Buffer {
	return p.note[i]
}

// ParamEventBufferAt returns the parameter-event arena buffer at index i.
func (p *Pool) ParamEventBufferAt(i int) *events.Buffer {
	return p.paramEvent[i]
}

// ResetTouched clears the first-touch tracking for the audio arena. Called
// once per compile, before the new abstract schedule's tasks start
// requesting buffers, so InitializedAudioBufferAt zeroes each buffer at
// most once per compile rather than once per process call.
func (p *Pool) ResetTouched() {
	for i := range p.audioTouched {
		p.audioTouched[i] = false
	}
}

// RefreshConstantMask recomputes b's constant-mask bit by scanning its
// samples: bit 0 is set when every sample in the block equals the first.
// Single-bit because this pool addresses one channel per buffer index; a
// multi-channel port is several buffer indices, each with its own mask.
func (b *AudioBuffer) RefreshConstantMask() {
	first := b.Samples[0]
	for _, s := range b.Samples[1:] {
		if s != first {
			b.ConstantMask = 0
			return
		}
	}
	b.ConstantMask = 1
}

// IsSilent reports whether the block is both constant and zero.
func (b *AudioBuffer) IsSilent() bool {
	return b.ConstantMask&1 != 0 && b.Samples[0] == 0
}

// NumAudioBuffers, NumNoteBuffers, NumParamEventBuffers report current
// arena lengths, used by the compiler to size its own bookkeeping.
func (p *Pool) NumAudioBuffers() int      { return len(p.audio) }
func (p *Pool) NumNoteBuffers() int       { return len(p.note) }
func (p *Pool) NumParamEventBuffers() int { return len(p.paramEvent) }
