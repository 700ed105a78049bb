// Package render connects the conversion core to the live surfaces: it
// pushes control values out as stylesheet properties and DMX channel bytes,
// samples the stylesheet back into values, and mirrors values across linked
// devices.
package render

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/animation"
	"github.com/stylelights/stylelights-go/internal/services/css"
	"github.com/stylelights/stylelights-go/internal/services/stylesheet"
)

// Device is a patched device known to the renderer.
type Device struct {
	ID           string
	Name         string
	CSSID        string
	Type         *fixture.DeviceType
	Universe     int
	StartChannel int

	// LinkedTo names the leader device this one follows. SyncedControls
	// limits which controls are mirrored; empty mirrors all of them.
	LinkedTo       string
	SyncedControls []string
}

// DMXWriter is the slice of the DMX service the renderer needs.
type DMXWriter interface {
	WriteDevice(universe, startChannel int, data []byte)
}

// Renderer owns the patched device set and fans value changes out to the
// stylesheet store and the DMX writer.
type Renderer struct {
	mu       sync.RWMutex
	registry *fixture.Registry
	sheet    *stylesheet.Store
	dmx      DMXWriter

	devices map[string]*Device
	byCSSID map[string]string
	order   []string

	// Last applied values per device, so linked followers and partial
	// updates compose with prior state.
	current map[string]map[string]fixture.Value
}

// NewRenderer creates a renderer. The DMX writer may be nil for a
// stylesheet-only setup.
func NewRenderer(registry *fixture.Registry, sheet *stylesheet.Store, writer DMXWriter) *Renderer {
	return &Renderer{
		registry: registry,
		sheet:    sheet,
		dmx:      writer,
		devices:  make(map[string]*Device),
		byCSSID:  make(map[string]string),
		current:  make(map[string]map[string]fixture.Value),
	}
}

// NewDevice builds a Device from a registered device type id.
func (r *Renderer) NewDevice(id, name, typeID string, universe, startChannel int) (*Device, error) {
	dt, ok := r.registry.DeviceType(typeID)
	if !ok {
		return nil, fmt.Errorf("unknown device type %q", typeID)
	}
	return &Device{
		ID:           id,
		Name:         name,
		Type:         dt,
		Universe:     universe,
		StartChannel: startChannel,
	}, nil
}

// AddDevice registers a device and renders its defaults. The CSS identifier
// is derived from the name, suffixed when already taken.
func (r *Renderer) AddDevice(d *Device, defaults map[string]fixture.Value) error {
	r.mu.Lock()

	if d.Type == nil {
		r.mu.Unlock()
		return fmt.Errorf("device %q has no type", d.Name)
	}
	if _, exists := r.devices[d.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("device id %q already registered", d.ID)
	}

	if d.CSSID == "" {
		taken := make(map[string]bool, len(r.byCSSID))
		for id := range r.byCSSID {
			taken[id] = true
		}
		d.CSSID = fixture.ResolveCSSID(d.Name, taken)
	}

	r.devices[d.ID] = d
	r.byCSSID[d.CSSID] = d.ID
	r.order = append(r.order, d.ID)
	r.mu.Unlock()

	r.ApplyValues(d.ID, defaults)
	return nil
}

// RemoveDevice unregisters a device and clears its stylesheet element.
// Followers of the device are unlinked.
func (r *Renderer) RemoveDevice(id string) {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.devices, id)
	delete(r.byCSSID, d.CSSID)
	delete(r.current, id)
	for i, did := range r.order {
		if did == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for _, other := range r.devices {
		if other.LinkedTo == id {
			other.LinkedTo = ""
		}
	}
	r.mu.Unlock()

	r.sheet.Clear(d.CSSID)
}

// Device returns a registered device by ID.
func (r *Renderer) Device(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// DeviceByCSSID resolves a stylesheet element id back to its device.
func (r *Renderer) DeviceByCSSID(cssID string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCSSID[cssID]
	if !ok {
		return nil, false
	}
	return r.devices[id], true
}

// Devices returns the registered devices in registration order.
func (r *Renderer) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.devices[id])
	}
	return out
}

// ApplyValues merges the given control values into the device's state and
// renders the result to the stylesheet and DMX output. Values then propagate
// to linked followers, filtered by their synced-control lists.
func (r *Renderer) ApplyValues(deviceID string, values map[string]fixture.Value) {
	r.applyValues(deviceID, values, map[string]bool{})
}

func (r *Renderer) applyValues(deviceID string, values map[string]fixture.Value, visited map[string]bool) {
	// Links may be edited into a loop; visited stops the recursion.
	if visited[deviceID] {
		return
	}
	visited[deviceID] = true

	r.mu.Lock()
	d, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return
	}

	state := r.current[deviceID]
	if state == nil {
		state = make(map[string]fixture.Value)
		r.current[deviceID] = state
	}
	for name, v := range values {
		if d.Type.Control(name) != nil {
			state[name] = v
		}
	}
	merged := make(map[string]fixture.Value, len(state))
	for name, v := range state {
		merged[name] = v
	}

	var followers []*Device
	for _, other := range r.devices {
		if other.LinkedTo == deviceID {
			followers = append(followers, other)
		}
	}
	r.mu.Unlock()

	r.sheet.SetProperties(d.CSSID, css.Generate(d.Type, merged))
	if r.dmx != nil {
		r.dmx.WriteDevice(d.Universe, d.StartChannel, fixture.ToDMX(d.Type, merged))
	}

	for _, f := range followers {
		r.applyValues(f.ID, filterControls(values, f.SyncedControls), visited)
	}
}

// Values returns a copy of the device's last applied control values.
func (r *Renderer) Values(deviceID string) map[string]fixture.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.current[deviceID]
	out := make(map[string]fixture.Value, len(state))
	for name, v := range state {
		out[name] = v
	}
	return out
}

// Sync samples the device's computed style back into control values and
// re-renders the DMX block from them. This is the readback path: whatever
// classes and animations resolved to in the stylesheet becomes the output.
func (r *Renderer) Sync(deviceID string) map[string]fixture.Value {
	r.mu.RLock()
	d, ok := r.devices[deviceID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	values := css.Sample(d.Type, r.sheet.Reader(d.CSSID))

	r.mu.Lock()
	r.current[deviceID] = values
	r.mu.Unlock()

	if r.dmx != nil {
		r.dmx.WriteDevice(d.Universe, d.StartChannel, fixture.ToDMX(d.Type, values))
	}
	return values
}

// SyncAll runs Sync for every registered device.
func (r *Renderer) SyncAll() {
	for _, d := range r.Devices() {
		r.Sync(d.ID)
	}
}

// Link makes follower track leader, restricted to the named controls
// (empty means all). Linking a device to itself or to an unknown leader
// is rejected.
func (r *Renderer) Link(followerID, leaderID string, controls []string) error {
	r.mu.Lock()
	follower, ok := r.devices[followerID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown device %q", followerID)
	}
	if _, ok := r.devices[leaderID]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown device %q", leaderID)
	}
	if followerID == leaderID {
		r.mu.Unlock()
		return fmt.Errorf("device %q cannot follow itself", followerID)
	}
	follower.LinkedTo = leaderID
	follower.SyncedControls = append([]string(nil), controls...)
	leaderValues := r.current[leaderID]
	snapshot := make(map[string]fixture.Value, len(leaderValues))
	for name, v := range leaderValues {
		snapshot[name] = v
	}
	r.mu.Unlock()

	// Catch the follower up with the leader's current state.
	r.applyValues(followerID, filterControls(snapshot, follower.SyncedControls), map[string]bool{})
	return nil
}

// Unlink detaches a follower from its leader.
func (r *Renderer) Unlink(followerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[followerID]; ok {
		d.LinkedTo = ""
		d.SyncedControls = nil
	}
}

// Document renders the complete stylesheet: one default rule per device in
// registration order, then the @keyframes blocks for the given animations.
func (r *Renderer) Document(animations []*animation.Animation) string {
	var parts []string
	for _, d := range r.Devices() {
		r.mu.RLock()
		state := r.current[d.ID]
		values := make(map[string]fixture.Value, len(state))
		for name, v := range state {
			values[name] = v
		}
		r.mu.RUnlock()
		parts = append(parts, css.DefaultRule(d.CSSID, d.Type, values))
	}
	for _, anim := range animations {
		types := r.animationTypes(anim)
		for _, dt := range types {
			if rule := anim.KeyframesRule(dt); rule != "" {
				parts = append(parts, rule)
			}
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// animationTypes returns the distinct device types the animation's target
// label matches, sorted by type id for stable output.
func (r *Renderer) animationTypes(anim *animation.Animation) []*fixture.DeviceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]*fixture.DeviceType)
	for _, d := range r.devices {
		if anim.TargetLabel != "" && anim.TargetLabel != d.Type.ID {
			continue
		}
		seen[d.Type.ID] = d.Type
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*fixture.DeviceType, 0, len(ids))
	for _, id := range ids {
		out = append(out, seen[id])
	}
	return out
}

func filterControls(values map[string]fixture.Value, controls []string) map[string]fixture.Value {
	if len(controls) == 0 {
		out := make(map[string]fixture.Value, len(values))
		for name, v := range values {
			out[name] = v
		}
		return out
	}
	out := make(map[string]fixture.Value, len(controls))
	for _, name := range controls {
		if v, ok := values[name]; ok {
			out[name] = v
		}
	}
	return out
}
