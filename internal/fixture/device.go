package fixture

import (
	"fmt"
	"strings"
)

// Control is a named, typed sub-unit of a device type, bound to a channel
// offset within the device's channel block.
type Control struct {
	Name string
	Type ControlType

	// Offset is the first channel of this control within the device block.
	// Leave all offsets zero to have NewDeviceType assign them in order.
	Offset int

	// OnValue overrides the toggle threshold. Zero means the default
	// (Safety controls arm at SafetyOnValue, everything else at
	// DefaultOnValue).
	OnValue int

	// CSSUnit overrides the slider unit. UnitAuto resolves from the name.
	CSSUnit Unit
}

// Slug derives the CSS-safe identifier for this control's custom property.
func (c *Control) Slug() string {
	return Slug(c.Name)
}

func (c *Control) onThreshold() int {
	if c.OnValue > 0 {
		return c.OnValue
	}
	if c.Name == "Safety" {
		return SafetyOnValue
	}
	return DefaultOnValue
}

func (c *Control) unit() Unit {
	if c.CSSUnit != UnitAuto {
		return c.CSSUnit
	}
	switch c.Name {
	case "Dimmer", "Intensity":
		return UnitFraction
	default:
		return UnitPercent
	}
}

// tokens returns the on/off token pair for a toggle control. Safety uses
// the none/probably vocabulary.
func (c *Control) tokens() (on, off string) {
	if c.Name == "Safety" {
		return "probably", "none"
	}
	return "on", "off"
}

// DeviceType composes an ordered list of controls into a fixture definition
// with a fixed channel count.
type DeviceType struct {
	ID          string
	DisplayName string
	Controls    []Control

	channelCount int
}

// NewDeviceType builds a device type and validates its channel layout.
// Controls with all-zero offsets are laid out sequentially; explicit offsets
// must partition [0, channelCount) with no gaps or overlaps. Layout errors
// are programmer-contract violations and fail at construction, never at
// runtime.
func NewDeviceType(id, displayName string, controls []Control) (*DeviceType, error) {
	if id == "" {
		return nil, fmt.Errorf("device type: id is required")
	}
	if len(controls) == 0 {
		return nil, fmt.Errorf("device type %q: at least one control is required", id)
	}

	total := 0
	explicit := false
	names := make(map[string]bool, len(controls))
	for i := range controls {
		c := &controls[i]
		if c.Type == nil {
			return nil, fmt.Errorf("device type %q: control %q has no type", id, c.Name)
		}
		width := c.Type.ChannelCount()
		if width < 1 || width > 3 {
			return nil, fmt.Errorf("device type %q: control %q has invalid width %d", id, c.Name, width)
		}
		if names[c.Name] {
			return nil, fmt.Errorf("device type %q: duplicate control name %q", id, c.Name)
		}
		names[c.Name] = true
		if c.Offset != 0 {
			explicit = true
		}
		total += width
	}

	if !explicit {
		offset := 0
		for i := range controls {
			controls[i].Offset = offset
			offset += controls[i].Type.ChannelCount()
		}
	} else {
		// Explicit offsets must cover every channel exactly once.
		seen := make([]bool, total)
		for i := range controls {
			c := &controls[i]
			for ch := c.Offset; ch < c.Offset+c.Type.ChannelCount(); ch++ {
				if ch < 0 || ch >= total {
					return nil, fmt.Errorf("device type %q: control %q offset %d out of range", id, c.Name, c.Offset)
				}
				if seen[ch] {
					return nil, fmt.Errorf("device type %q: control %q overlaps channel %d", id, c.Name, ch)
				}
				seen[ch] = true
			}
		}
	}

	return &DeviceType{
		ID:           id,
		DisplayName:  displayName,
		Controls:     controls,
		channelCount: total,
	}, nil
}

// ChannelCount is the total DMX width of the device type.
func (dt *DeviceType) ChannelCount() int {
	return dt.channelCount
}

// Control returns the named control, or nil if the device type has no
// control by that name.
func (dt *DeviceType) Control(name string) *Control {
	for i := range dt.Controls {
		if dt.Controls[i].Name == name {
			return &dt.Controls[i]
		}
	}
	return nil
}

// ColorControl returns the device's RGB-typed control, or nil when the
// device has none (dimmers, smoke, flame).
func (dt *DeviceType) ColorControl() *Control {
	for i := range dt.Controls {
		if dt.Controls[i].Type.ID() == TypeRGB {
			return &dt.Controls[i]
		}
	}
	return nil
}

// Slug converts a display name into a CSS-safe identifier: lowercase,
// with runs of non-alphanumerics collapsed to single hyphens.
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ResolveCSSID returns a unique CSS identifier for a device name, appending
// a numeric suffix until it no longer collides with taken identifiers.
func ResolveCSSID(name string, taken map[string]bool) string {
	base := Slug(name)
	if base == "" {
		base = "device"
	}
	id := base
	for n := 2; taken[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}
