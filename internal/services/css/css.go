// Package css converts control-value maps to and from CSS property
// assignments. It is the style-engine-facing half of the conversion core:
// all reads go through an injected PropertyReader so the logic never touches
// a concrete rendering surface.
package css

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stylelights/stylelights-go/internal/fixture"
)

// Generate renders a full control-value map for a device type. Controls
// missing from the map render their defaults, so the result always covers
// every property the device owns. Keys are stable across calls.
func Generate(dt *fixture.DeviceType, values map[string]fixture.Value) map[string]string {
	props := make(map[string]string)
	for i := range dt.Controls {
		c := &dt.Controls[i]
		v, ok := values[c.Name]
		if !ok {
			v = c.Type.DefaultValue()
		}
		generateControl(dt, c, v, values, props)
	}
	return props
}

// GeneratePartial renders only the controls named in the map. Keyframe
// snapshots are partial by design; emitting defaults for the rest would pin
// unanimated controls.
func GeneratePartial(dt *fixture.DeviceType, values map[string]fixture.Value) map[string]string {
	props := make(map[string]string)
	for i := range dt.Controls {
		c := &dt.Controls[i]
		v, ok := values[c.Name]
		if !ok {
			continue
		}
		generateControl(dt, c, v, values, props)
	}
	return props
}

func generateControl(dt *fixture.DeviceType, c *fixture.Control, v fixture.Value, all map[string]fixture.Value, props map[string]string) {
	if c.Type.ID() == fixture.TypeRGB {
		// The color property goes through the device rule, not the raw
		// control, so devices without an RGB control stay transparent.
		props["color"] = DeviceColor(dt, all)
		return
	}
	for name, val := range c.Type.GenerateCSS(c, v) {
		props[name] = val
	}
}

// Sample reconstructs a control-value map from a computed-style snapshot.
// It is the exact inverse dispatch of Generate: missing properties fall back
// to the control's default value and malformed strings decode as zero,
// never an error.
func Sample(dt *fixture.DeviceType, read fixture.PropertyReader) map[string]fixture.Value {
	values := make(map[string]fixture.Value, len(dt.Controls))
	for i := range dt.Controls {
		c := &dt.Controls[i]
		v, ok := c.Type.SampleCSS(c, read)
		if !ok {
			v = c.Type.DefaultValue()
		}
		values[c.Name] = v
	}
	return values
}

// DeviceColor is the device-type-specific color rule: the raw channel bytes
// of the device's RGB control as a CSS color, or "transparent" for devices
// with no RGB control. Dimmer and effect channels are rendered as overlay
// layers by consumers, never blended into color.
func DeviceColor(dt *fixture.DeviceType, values map[string]fixture.Value) string {
	c := dt.ColorControl()
	if c == nil {
		return "transparent"
	}
	v, ok := values[c.Name]
	if !ok {
		v = c.Type.DefaultValue()
	}
	return fixture.FormatColor(v)
}

// Declarations renders a property map as sorted CSS declarations, one per
// line, indented for use inside a rule block.
func Declarations(props map[string]string) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %s;\n", name, props[name])
	}
	return b.String()
}

// DefaultRule renders the per-fixture default rule block for a device's
// CSS identifier.
func DefaultRule(cssID string, dt *fixture.DeviceType, values map[string]fixture.Value) string {
	return fmt.Sprintf("#%s {\n%s}", cssID, Declarations(Generate(dt, values)))
}
