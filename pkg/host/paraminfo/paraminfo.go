// Package paraminfo holds a plug-in's parameter metadata and the
// lock-free plain-value storage the controller (C6) reads and writes.
// Adapted from pkg/framework/param's Registry/Parameter: same atomic
// float64-bit-packed value storage and order-preserving registry, widened
// from a single-plugin's own parameter list into the host-side
// ParamID → ParamInfo map spec.md §3 (C6+C7) requires, with the
// read-only and modulatable flags the controller's set_param_value /
// set_param_mod_amount contracts check.
package paraminfo

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/vst3go/hostcore/pkg/graph/events"
)

// Flags mirrors the per-parameter capability bits a plug-in reports.
type Flags uint32

const (
	CanAutomate Flags = 1 << iota
	IsReadOnly
	IsModulatable
	IsStepped
	IsBypass
)

// Info is one parameter's static metadata plus its current value, stored
// as an atomic bit-packed float64 so the controller can read/write it
// from the main thread while the audio thread's drains never block on it.
type Info struct {
	ID           events.ParamID
	Name         string
	ShortName    string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64
	StepCount    int32
	Flags        Flags

	value atomic.Uint64

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// NewInfo builds a parameter at its default value.
func NewInfo(id events.ParamID, name string, min, max, def float64, flags Flags) *Info {
	p := &Info{ID: id, Name: name, Min: min, Max: max, DefaultValue: def, Flags: flags}
	p.value.Store(math.Float64bits(def))
	return p
}

// Value returns the current plain (denormalized) value.
func (p *Info) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue stores v clamped to [Min, Max] and returns the clamped value,
// matching the controller's set_param_value contract (spec.md §4.4).
func (p *Info) SetValue(v float64) float64 {
	if v < p.Min {
		v = p.Min
	} else if v > p.Max {
		v = p.Max
	}
	p.value.Store(math.Float64bits(v))
	return v
}

// IsReadOnly reports whether set_param_value must reject writes to this
// parameter.
func (p *Info) IsReadOnly() bool {
	return p.Flags&IsReadOnly != 0
}

// IsModulatable reports whether set_param_mod_amount may target this
// parameter.
func (p *Info) IsModulatable() bool {
	return p.Flags&IsModulatable != 0
}

// SetFormatter installs custom value<->text conversion, used by
// param_value_to_text / param_text_to_value.
func (p *Info) SetFormatter(format func(float64) string, parse func(string) (float64, error)) {
	p.formatFunc = format
	p.parseFunc = parse
}

// FormatValue renders v (a plain value) as host-displayable text.
func (p *Info) FormatValue(v float64) string {
	if p.formatFunc != nil {
		return p.formatFunc(v)
	}
	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// ParseValue parses host-entered text back into a plain value.
func (p *Info) ParseValue(text string) (float64, error) {
	if p.parseFunc != nil {
		return p.parseFunc(text)
	}
	return strconv.ParseFloat(text, 64)
}

// ValueUpdate is the audio-thread-to-main-thread queue payload: value and
// gesture fields are tracked independently so a value update coalesced
// with a pending gesture-begin never loses that gesture, and vice versa
// (spec.md §4.3's "per-field overwrite with last-writer-wins").
type ValueUpdate struct {
	Value      float64
	HasValue   bool
	GestureOn  bool
	HasGesture bool
}

// MergeValueUpdate is the audio->main paramqueue.Updater: each field of
// incoming overwrites old only when that field is actually present.
func MergeValueUpdate(old, incoming ValueUpdate) ValueUpdate {
	merged := old
	if incoming.HasValue {
		merged.Value = incoming.Value
		merged.HasValue = true
	}
	if incoming.HasGesture {
		merged.GestureOn = incoming.GestureOn
		merged.HasGesture = true
	}
	return merged
}

// Registry is an order-preserving ParamID -> Info map: the host-side
// parameter list a plug-in reports at activation (spec.md §4.4 step 1).
type Registry struct {
	mu     sync.RWMutex
	params map[events.ParamID]*Info
	order  []events.ParamID
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{params: make(map[events.ParamID]*Info)}
}

// Add registers params in order, skipping IDs already present.
func (r *Registry) Add(params ...*Info) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			continue
		}
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}
}

// Get returns the parameter with the given ID, or nil.
func (r *Registry) Get(id events.ParamID) *Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params[id]
}

// AtIndex returns the parameter at the given activation-order index, or
// nil if out of range.
func (r *Registry) AtIndex(index int) *Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.order) {
		return nil
	}
	return r.params[r.order[index]]
}

// Count returns the number of registered parameters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// IDs returns every registered ID in activation order — used to size the
// C3 queue pair at activation (spec.md §4.4: "allocate C3 queue pair
// sized to num_params").
func (r *Registry) IDs() []events.ParamID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]events.ParamID, len(r.order))
	copy(ids, r.order)
	return ids
}
