// Package savestate implements the save-state blob framing the plug-in
// main-thread capability's load_save_state/collect_save_state operations
// use (spec.md §6). Directly adapted from pkg/framework/state's Manager:
// same magic header + version + parameter-count + (id, value) pairs
// framing, generalized from that package's own param.Registry to
// pkg/host/paraminfo's host-side registry, and returning a byte slice
// rather than writing to a caller-supplied io.Writer — collect_save_state
// returns Option<bytes> (spec.md §6), not a streaming write.
package savestate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vst3go/hostcore/pkg/graph/events"
	"github.com/vst3go/hostcore/pkg/host/paraminfo"
)

const (
	magicHeader  = "HOSTST"
	stateVersion = uint32(1)
)

// CustomSaveFunc lets a plug-in append data beyond its parameter values.
type CustomSaveFunc func(w io.Writer) error

// CustomLoadFunc reads back whatever CustomSaveFunc wrote.
type CustomLoadFunc func(r io.Reader) error

// Manager frames a plug-in's save-state blob around its parameter
// registry, plus an optional plug-in-specific tail.
type Manager struct {
	registry   *paraminfo.Registry
	customSave CustomSaveFunc
	customLoad CustomLoadFunc

	dirty bool
}

// NewManager builds a save-state manager over registry.
func NewManager(registry *paraminfo.Registry) *Manager {
	return &Manager{registry: registry}
}

// SetCustomFuncs installs plug-in-specific save/load beyond parameters.
func (m *Manager) SetCustomFuncs(save CustomSaveFunc, load CustomLoadFunc) {
	m.customSave = save
	m.customLoad = load
}

// MarkDirty records that the plug-in's state has changed since the last
// Collect — set by the controller on every accepted set_param_value
// (spec.md §4.4).
func (m *Manager) MarkDirty() {
	m.dirty = true
}

// IsDirty reports whether state has changed since the last Collect.
func (m *Manager) IsDirty() bool {
	return m.dirty
}

// Collect serializes the current parameter values (and any custom state)
// into a blob, implementing collect_save_state(). Returns nil if nothing
// has changed since the last Collect.
func (m *Manager) Collect() []byte {
	if !m.dirty {
		return nil
	}
	var buf bytes.Buffer
	if err := m.save(&buf); err != nil {
		return nil
	}
	m.dirty = false
	return buf.Bytes()
}

func (m *Manager) save(w io.Writer) error {
	if _, err := w.Write([]byte(magicHeader)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, stateVersion); err != nil {
		return err
	}

	params := m.registry.IDs()
	if err := binary.Write(w, binary.LittleEndian, int32(len(params))); err != nil {
		return err
	}
	for _, id := range params {
		p := m.registry.Get(id)
		if err := binary.Write(w, binary.LittleEndian, uint32(id)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.Value()); err != nil {
			return err
		}
	}

	if m.customSave != nil {
		if err := binary.Write(w, binary.LittleEndian, uint32(1)); err != nil {
			return err
		}
		return m.customSave(w)
	}
	return binary.Write(w, binary.LittleEndian, uint32(0))
}

// Load restores parameter values (and any custom state) from a blob
// previously produced by Collect, implementing load_save_state(bytes).
// Unknown parameter IDs are ignored for forward compatibility.
func (m *Manager) Load(blob []byte) error {
	r := bytes.NewReader(blob)

	header := make([]byte, len(magicHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}
	if string(header) != magicHeader {
		return fmt.Errorf("savestate: invalid header")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version > stateVersion {
		return fmt.Errorf("savestate: version %d is newer than supported version %d", version, stateVersion)
	}

	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return err
	}
	for i := int32(0); i < count; i++ {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return err
		}
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return err
		}
		if p := m.registry.Get(events.ParamID(id)); p != nil {
			p.SetValue(value)
		}
	}

	var hasCustom uint32
	if err := binary.Read(r, binary.LittleEndian, &hasCustom); err != nil {
		return err
	}
	if hasCustom != 0 && m.customLoad != nil {
		return m.customLoad(r)
	}
	return nil
}
