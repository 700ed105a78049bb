package mapping

import (
	"strconv"
	"sync"
	"time"

	"github.com/stylelights/stylelights-go/internal/fixture"
)

// StyleSink is the slice of the stylesheet capability the dispatcher
// writes through.
type StyleSink interface {
	AddClass(target, class string)
	RemoveClass(target, class string)
	SetProperty(target, name, value string)
}

// SetValuesFunc applies an explicit control-value set to a device, for
// setValue-action trigger mappings. May be nil.
type SetValuesFunc func(deviceID string, values map[string]fixture.Value)

// inputKey identifies one physical input control. A composite key rather
// than a formatted string keeps device/control ids from colliding on
// separator characters.
type inputKey struct {
	DeviceID  string
	ControlID string
}

// Dispatcher consumes normalized input events and applies the configured
// mappings to the stylesheet. Toggle state is the only mutable session
// state here; it is never persisted and resets on restart.
type Dispatcher struct {
	mu       sync.Mutex
	sheet    StyleSink
	mappings []*Mapping
	toggles  map[inputKey]bool
	timers   map[string]*time.Timer

	setValues SetValuesFunc
}

// NewDispatcher creates a dispatcher writing through the given sink.
func NewDispatcher(sheet StyleSink, setValues SetValuesFunc) *Dispatcher {
	return &Dispatcher{
		sheet:     sheet,
		toggles:   make(map[inputKey]bool),
		timers:    make(map[string]*time.Timer),
		setValues: setValues,
	}
}

// SetMappings replaces the active mapping set. Pending momentary timers for
// removed mappings are cancelled.
func (d *Dispatcher) SetMappings(mappings []*Mapping) {
	d.mu.Lock()
	defer d.mu.Unlock()

	keep := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		keep[m.ID] = true
	}
	for id, timer := range d.timers {
		if !keep[id] {
			timer.Stop()
			delete(d.timers, id)
		}
	}
	d.mappings = append([]*Mapping(nil), mappings...)
}

// Mappings returns the active mapping set.
func (d *Dispatcher) Mappings() []*Mapping {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Mapping(nil), d.mappings...)
}

// ToggleState returns the committed toggle state for an input.
func (d *Dispatcher) ToggleState(deviceID, controlID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.toggles[inputKey{deviceID, controlID}]
}

func (d *Dispatcher) matching(deviceID, controlID string) []*Mapping {
	var out []*Mapping
	for _, m := range d.mappings {
		if m.Matches(deviceID, controlID) {
			out = append(out, m)
		}
	}
	return out
}

// inputToggleMapping returns the input-mode toggle mapping bound to the
// key, if any. Trigger-mode mappings on the same input defer to its state.
func (d *Dispatcher) inputToggleMapping(matches []*Mapping) *Mapping {
	for _, m := range matches {
		if m.Mode == ModeInput && m.ButtonMode == ButtonToggle {
			return m
		}
	}
	return nil
}

// Trigger handles a button press with a 0-1 velocity. An input with no
// matching mapping is a silent no-op.
func (d *Dispatcher) Trigger(deviceID, controlID string, velocity float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := inputKey{deviceID, controlID}
	matches := d.matching(deviceID, controlID)
	toggleInput := d.inputToggleMapping(matches)

	// Input-mode passthrough first, so trigger-mode mappings below see the
	// freshly committed toggle state.
	for _, m := range matches {
		if m.Mode != ModeInput {
			continue
		}
		targets := m.classTargets()
		if m.ButtonMode == ButtonToggle {
			on := !d.toggles[key]
			d.toggles[key] = on
			for _, target := range targets {
				if on {
					d.sheet.AddClass(target, m.OnClassName)
					d.sheet.RemoveClass(target, m.OffClassName)
				} else {
					d.sheet.AddClass(target, m.OffClassName)
					d.sheet.RemoveClass(target, m.OnClassName)
				}
			}
		} else {
			for _, target := range targets {
				d.sheet.AddClass(target, m.DownClassName)
				d.sheet.RemoveClass(target, m.UpClassName)
			}
		}
		if m.PressureProperty != "" {
			for _, target := range targets {
				d.sheet.SetProperty(target, m.PressureProperty, formatFraction(velocity))
			}
		}
	}

	for _, m := range matches {
		if m.Mode != ModeTrigger {
			continue
		}
		if m.ActionType == ActionSetValue {
			if d.setValues != nil {
				for _, targetID := range m.TargetDeviceIDs {
					d.setValues(targetID, m.SetValues)
				}
			}
			continue
		}

		if toggleInput != nil {
			// A paired toggle input owns the state: mirror it instead of
			// running the momentary pulse.
			d.applyMirror(m, d.toggles[key])
			continue
		}
		if m.TriggerType == TriggerNotPressed {
			// Active while released; a press deactivates.
			d.cancelTimer(m.ID)
			for _, target := range m.classTargets() {
				d.sheet.RemoveClass(target, m.CSSClassName)
			}
			continue
		}
		d.pulse(m)
	}
}

// Release handles a button release.
func (d *Dispatcher) Release(deviceID, controlID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	matches := d.matching(deviceID, controlID)
	toggleInput := d.inputToggleMapping(matches)

	for _, m := range matches {
		switch m.Mode {
		case ModeInput:
			if m.ButtonMode != ButtonToggle {
				for _, target := range m.classTargets() {
					d.sheet.RemoveClass(target, m.DownClassName)
					d.sheet.AddClass(target, m.UpClassName)
				}
			}
			// Toggle state was committed on press; release is a no-op.
		case ModeTrigger:
			if m.ActionType == ActionSetValue || m.TriggerType == TriggerAlways {
				continue
			}
			if toggleInput != nil {
				// State already mirrored from the toggle on press.
				continue
			}
			if m.TriggerType == TriggerNotPressed {
				// Active while released: the class persists until the next
				// press, no removal timer.
				for _, target := range m.classTargets() {
					d.sheet.AddClass(target, m.CSSClassName)
				}
				continue
			}
			d.cancelTimer(m.ID)
			for _, target := range m.classTargets() {
				d.sheet.RemoveClass(target, m.CSSClassName)
			}
		}
	}
}

// Change handles a continuous input value in [0,1].
func (d *Dispatcher) Change(deviceID, controlID string, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, m := range d.matching(deviceID, controlID) {
		switch m.Mode {
		case ModeDirect:
			formatted := m.MapValue(value)
			for _, target := range m.classTargets() {
				d.sheet.SetProperty(target, m.PropertyName, formatted)
			}
		case ModeInput:
			if m.PressureProperty != "" {
				for _, target := range m.classTargets() {
					d.sheet.SetProperty(target, m.PressureProperty, formatFraction(value))
				}
			}
		}
	}
}

// applyMirror makes a trigger mapping's class track a committed toggle
// state.
func (d *Dispatcher) applyMirror(m *Mapping, on bool) {
	d.cancelTimer(m.ID)
	for _, target := range m.classTargets() {
		if on {
			d.sheet.AddClass(target, m.CSSClassName)
		} else {
			d.sheet.RemoveClass(target, m.CSSClassName)
		}
	}
}

// pulse runs the momentary trigger: add the class now, schedule its removal
// after duration*iterations unless the animation repeats forever.
// Re-triggering replaces the pending timer so only one removal ever fires.
func (d *Dispatcher) pulse(m *Mapping) {
	for _, target := range m.classTargets() {
		d.sheet.AddClass(target, m.CSSClassName)
	}

	iterations, infinite := m.IterationCount()
	if infinite {
		return
	}
	delay := time.Duration(m.DurationMs*iterations) * time.Millisecond

	d.cancelTimer(m.ID)
	id := m.ID
	targets := m.classTargets()
	class := m.CSSClassName
	d.timers[id] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, id)
		d.mu.Unlock()
		for _, target := range targets {
			d.sheet.RemoveClass(target, class)
		}
	})
}

func (d *Dispatcher) cancelTimer(id string) {
	if timer, ok := d.timers[id]; ok {
		timer.Stop()
		delete(d.timers, id)
	}
}

// Stop cancels all pending momentary timers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
}

func formatFraction(v float64) string {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
