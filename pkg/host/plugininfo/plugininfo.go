// Package plugininfo holds a plug-in instance's immutable identity and
// static descriptor metadata. Adapted from pkg/framework/plugin's
// Info/Base: the same descriptor fields (name, vendor, version, category)
// generalized from a single in-process plug-in's self-description into
// the host-assigned PluginInstanceID spec.md §3 requires ("Plug-in
// instance (C6+C7)... immutable PluginInstanceID"), with the
// format-specific UID derivation dropped — the core treats plug-in
// binding as an opaque capability (spec.md §9 "Dynamic dispatch over
// plug-in format"), so it has no business generating format UIDs.
package plugininfo

// ID is a host-assigned identifier for one plug-in instance, stable for
// the instance's lifetime and used to address it from the abstract
// schedule (schedule.NodeEntry.ID) and from targeted parameter/transport
// events (events.Event.TargetPlugin).
type ID uint64

// Descriptor is a plug-in's static self-description, reported once when
// it's loaded.
type Descriptor struct {
	Name     string
	Vendor   string
	Version  string
	Category string
}

// Instance pairs a host-assigned ID with the descriptor reported by the
// bound plug-in.
type Instance struct {
	ID         ID
	Descriptor Descriptor
}
