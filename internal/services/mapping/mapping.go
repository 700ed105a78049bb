// Package mapping ties normalized input events to lighting behavior: pulse
// an animation class, continuously drive a custom property, or mirror raw
// input state into CSS for the UI.
package mapping

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/stylelights/stylelights-go/internal/fixture"
)

// Mode selects the mapping behavior.
type Mode string

const (
	// ModeTrigger pulses a CSS class (and thereby an animation) on press.
	ModeTrigger Mode = "trigger"
	// ModeDirect continuously drives a custom property from a 0-1 input.
	ModeDirect Mode = "direct"
	// ModeInput passively mirrors input state into CSS classes/properties.
	ModeInput Mode = "input"
)

// TriggerType selects when a trigger-mode mapping's class is active.
type TriggerType string

const (
	TriggerPressed    TriggerType = "pressed"
	TriggerNotPressed TriggerType = "not-pressed"
	TriggerAlways     TriggerType = "always"
)

// ActionType selects what a trigger-mode mapping does.
type ActionType string

const (
	// ActionAnimation toggles the mapping's CSS class to run an animation.
	ActionAnimation ActionType = "animation"
	// ActionSetValue writes an explicit control-value set to the targets.
	ActionSetValue ActionType = "setValue"
)

// ButtonMode selects the input-mode button semantics.
type ButtonMode string

const (
	ButtonMomentary ButtonMode = "momentary"
	ButtonToggle    ButtonMode = "toggle"
)

// PropertyType selects the unit a direct-mode mapping writes.
type PropertyType string

const (
	PropertyPercentage PropertyType = "percentage"
	PropertyDegrees    PropertyType = "degrees"
	PropertyNumber     PropertyType = "number"
)

// InfiniteIterations marks a trigger animation that never schedules its own
// class removal.
const InfiniteIterations = "infinite"

// Mapping connects one input control to one behavior. The derived CSS
// identifiers are persisted so selectors in previously generated CSS stay
// valid across edits; they regenerate only when Derive is called after a
// rename or button-mode change.
type Mapping struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Mode           Mode   `json:"mode"`
	InputDeviceID  string `json:"inputDeviceId"`
	InputControlID string `json:"inputControlId"`

	// Trigger mode.
	TriggerType     TriggerType              `json:"triggerType,omitempty"`
	ActionType      ActionType               `json:"actionType,omitempty"`
	AnimationName   string                   `json:"animationName,omitempty"`
	SetValues       map[string]fixture.Value `json:"setValues,omitempty"`
	TargetDeviceIDs []string                 `json:"targetDeviceIds,omitempty"`
	CSSClassName    string                   `json:"cssClassName,omitempty"`
	DurationMs      float64                  `json:"durationMs,omitempty"`
	Iterations      string                   `json:"iterations,omitempty"`

	// Direct mode.
	PropertyName string       `json:"propertyName,omitempty"`
	PropertyType PropertyType `json:"propertyType,omitempty"`
	Range        [2]float64   `json:"range,omitempty"`

	// Input mode.
	ButtonMode       ButtonMode `json:"buttonMode,omitempty"`
	DownClassName    string     `json:"downClassName,omitempty"`
	UpClassName      string     `json:"upClassName,omitempty"`
	OnClassName      string     `json:"onClassName,omitempty"`
	OffClassName     string     `json:"offClassName,omitempty"`
	PressureProperty string     `json:"pressureProperty,omitempty"`
}

// Derive regenerates every derived identifier. Call after creating a
// mapping or after changing Name, ButtonMode, the bound input, or
// TriggerType. Exactly one class-name pair is populated per button mode.
func (m *Mapping) Derive() {
	switch m.Mode {
	case ModeTrigger:
		tt := m.TriggerType
		if tt == "" {
			tt = TriggerPressed
		}
		m.CSSClassName = fmt.Sprintf("%s-%s-%s",
			fixture.Slug(m.InputDeviceID), fixture.Slug(m.InputControlID), tt)
	case ModeInput:
		base := fixture.Slug(m.Name)
		if m.ButtonMode == ButtonToggle {
			m.OnClassName = base + "-on"
			m.OffClassName = base + "-off"
			m.DownClassName = ""
			m.UpClassName = ""
		} else {
			m.DownClassName = base + "-down"
			m.UpClassName = base + "-up"
			m.OnClassName = ""
			m.OffClassName = ""
		}
		m.PressureProperty = "--" + base + "-pressure"
	}
}

// HasDerivedNames reports whether the mapping already carries its derived
// CSS identifiers, so callers can avoid regenerating persisted selectors.
func (m *Mapping) HasDerivedNames() bool {
	switch m.Mode {
	case ModeTrigger:
		return m.CSSClassName != ""
	case ModeInput:
		if m.ButtonMode == ButtonToggle {
			return m.OnClassName != "" && m.OffClassName != ""
		}
		return m.DownClassName != "" && m.UpClassName != ""
	}
	return true
}

// MapValue applies the configured range and unit to a normalized 0-1 input
// value. Pure; the dispatch path calls it on every change event.
func (m *Mapping) MapValue(value float64) string {
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}
	v := m.Range[0] + value*(m.Range[1]-m.Range[0])

	switch m.PropertyType {
	case PropertyDegrees:
		return strconv.FormatFloat(v, 'f', 1, 64) + "deg"
	case PropertyNumber:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(v, 'f', 1, 64) + "%"
	}
}

// IterationCount returns the number of animation iterations, and whether
// the animation repeats forever.
func (m *Mapping) IterationCount() (float64, bool) {
	if m.Iterations == InfiniteIterations {
		return 0, true
	}
	n, err := strconv.ParseFloat(m.Iterations, 64)
	if err != nil || n <= 0 {
		return 1, false
	}
	return n, false
}

// Matches reports whether this mapping is bound to the given input.
func (m *Mapping) Matches(deviceID, controlID string) bool {
	return m.InputDeviceID == deviceID && m.InputControlID == controlID
}

// classTargets returns the elements this mapping's classes apply to: the
// configured target devices, or the mapping's own element when none are set.
func (m *Mapping) classTargets() []string {
	if len(m.TargetDeviceIDs) > 0 {
		return m.TargetDeviceIDs
	}
	return []string{fixture.Slug(m.Name)}
}

// mappingJSON mirrors Mapping for (de)serialization without recursing into
// the custom unmarshaler.
type mappingJSON Mapping

// UnmarshalJSON decodes a persisted mapping and migrates legacy documents:
// old versions stored derived class names with "_" separators where the
// current scheme uses "-".
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var raw mappingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Mapping(raw)

	m.CSSClassName = legacyName(m.CSSClassName)
	m.DownClassName = legacyName(m.DownClassName)
	m.UpClassName = legacyName(m.UpClassName)
	m.OnClassName = legacyName(m.OnClassName)
	m.OffClassName = legacyName(m.OffClassName)
	return nil
}

func legacyName(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}
