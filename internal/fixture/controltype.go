package fixture

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultOnValue is the DMX threshold above which a toggle reads as on.
const DefaultOnValue = 128

// SafetyOnValue is the threshold for Safety toggles on effect fixtures
// (smoke, flame). Kept separate from the generic threshold because hardware
// safety channels arm well below full.
const SafetyOnValue = 125

// PropertyReader reads a computed CSS property value by name. The second
// return is false when the property is absent. Implementations are injected
// so conversion logic never touches a concrete style engine.
type PropertyReader func(name string) (string, bool)

// ControlType describes one variant of the closed control set. Each variant
// knows its DMX width and how to convert values to and from both raw channel
// bytes and CSS property strings.
type ControlType interface {
	ID() string
	DisplayName() string
	ChannelCount() int
	DefaultValue() Value

	// ValueToDMX and DMXToValue are exact inverses over the 0-255 domain,
	// modulo the intentional re-quantization of threshold types.
	ValueToDMX(ctl *Control, v Value) []byte
	DMXToValue(ctl *Control, data []byte) Value

	// GenerateCSS renders a value to CSS property assignments. SampleCSS is
	// the inverse; it returns false only when every property it would read
	// is absent.
	GenerateCSS(ctl *Control, v Value) map[string]string
	SampleCSS(ctl *Control, read PropertyReader) (Value, bool)
}

const (
	TypeSlider = "slider"
	TypeToggle = "toggle"
	TypeRGB    = "rgb"
	TypeXYPad  = "xypad"
)

// Unit selects how a slider control is expressed in CSS.
type Unit int

const (
	// UnitAuto picks the unit from the control's semantic name:
	// Dimmer/Intensity become a 0-1 fraction, everything else a percentage.
	UnitAuto Unit = iota
	// UnitFraction is a 0-1 fraction with 3 decimals.
	UnitFraction
	// UnitPercent is a 0-100 percentage with 1 decimal.
	UnitPercent
	// UnitRaw is the channel byte as a bare integer string, for controls
	// with no recognized semantics.
	UnitRaw
)

// Slider is a single-channel continuous control.
type Slider struct{}

func (Slider) ID() string          { return TypeSlider }
func (Slider) DisplayName() string { return "Slider" }
func (Slider) ChannelCount() int   { return 1 }
func (Slider) DefaultValue() Value { return Number(0) }

func (Slider) ValueToDMX(_ *Control, v Value) []byte {
	return []byte{ClampByte(v.Num)}
}

func (Slider) DMXToValue(_ *Control, data []byte) Value {
	return Number(float64(byteAt(data, 0)))
}

func (s Slider) GenerateCSS(ctl *Control, v Value) map[string]string {
	n := float64(ClampByte(v.Num))
	prop := "--" + ctl.Slug()

	switch ctl.unit() {
	case UnitFraction:
		frac := formatFixed(n/255, 3)
		// Dimmer doubles as the element's opacity so hand-authored CSS can
		// drive it through either property.
		return map[string]string{prop: frac, "opacity": frac}
	case UnitRaw:
		return map[string]string{prop: strconv.Itoa(int(n))}
	default:
		return map[string]string{prop: formatFixed(n/255*100, 1) + "%"}
	}
}

func (s Slider) SampleCSS(ctl *Control, read PropertyReader) (Value, bool) {
	prop := "--" + ctl.Slug()
	raw, ok := read(prop)
	if !ok && ctl.unit() == UnitFraction {
		// Authored CSS may omit the custom property and set opacity alone.
		raw, ok = read("opacity")
	}
	if !ok {
		return Value{}, false
	}

	n := parseLeadingNumber(raw)
	switch ctl.unit() {
	case UnitFraction:
		return Number(float64(ClampByte(n * 255))), true
	case UnitRaw:
		return Number(float64(ClampByte(n))), true
	default:
		return Number(float64(ClampByte(n / 100 * 255))), true
	}
}

// Toggle is a single-channel on/off control quantized through a threshold.
type Toggle struct{}

func (Toggle) ID() string          { return TypeToggle }
func (Toggle) DisplayName() string { return "Toggle" }
func (Toggle) ChannelCount() int   { return 1 }
func (Toggle) DefaultValue() Value { return Number(0) }

func (Toggle) ValueToDMX(ctl *Control, v Value) []byte {
	if v.Num >= float64(ctl.onThreshold()) {
		return []byte{255}
	}
	return []byte{0}
}

func (Toggle) DMXToValue(ctl *Control, data []byte) Value {
	if int(byteAt(data, 0)) >= ctl.onThreshold() {
		return Number(255)
	}
	return Number(0)
}

func (t Toggle) GenerateCSS(ctl *Control, v Value) map[string]string {
	on := v.Num >= float64(ctl.onThreshold())
	onToken, offToken := ctl.tokens()
	token := offToken
	if on {
		token = onToken
	}
	return map[string]string{"--" + ctl.Slug(): token}
}

func (t Toggle) SampleCSS(ctl *Control, read PropertyReader) (Value, bool) {
	raw, ok := read("--" + ctl.Slug())
	if !ok {
		return Value{}, false
	}
	onToken, _ := ctl.tokens()
	if strings.TrimSpace(raw) == onToken {
		return Number(255), true
	}
	return Number(0), true
}

// RGB is a three-channel additive color mixer.
type RGB struct{}

func (RGB) ID() string          { return TypeRGB }
func (RGB) DisplayName() string { return "RGB Color" }
func (RGB) ChannelCount() int   { return 3 }
func (RGB) DefaultValue() Value { return Color(0, 0, 0) }

func (RGB) ValueToDMX(_ *Control, v Value) []byte {
	return []byte{ClampByte(v.Red), ClampByte(v.Green), ClampByte(v.Blue)}
}

func (RGB) DMXToValue(_ *Control, data []byte) Value {
	return Color(
		float64(byteAt(data, 0)),
		float64(byteAt(data, 1)),
		float64(byteAt(data, 2)),
	)
}

func (RGB) GenerateCSS(_ *Control, v Value) map[string]string {
	return map[string]string{"color": FormatColor(v)}
}

func (RGB) SampleCSS(_ *Control, read PropertyReader) (Value, bool) {
	raw, ok := read("color")
	if !ok {
		return Value{}, false
	}
	return ParseColor(raw), true
}

// XYPad is a two-axis positional control (pan/tilt).
type XYPad struct{}

func (XYPad) ID() string          { return TypeXYPad }
func (XYPad) DisplayName() string { return "XY Pad" }
func (XYPad) ChannelCount() int   { return 2 }
func (XYPad) DefaultValue() Value { return Position(128, 128) }

func (XYPad) ValueToDMX(_ *Control, v Value) []byte {
	return []byte{ClampByte(v.X), ClampByte(v.Y)}
}

func (XYPad) DMXToValue(_ *Control, data []byte) Value {
	return Position(float64(byteAt(data, 0)), float64(byteAt(data, 1)))
}

func (XYPad) GenerateCSS(_ *Control, v Value) map[string]string {
	return map[string]string{
		// Pan maps 0-255 onto -50%..+50%, tilt onto 0%..100%.
		"--pan":  formatFixed(v.X/255*100-50, 1) + "%",
		"--tilt": formatFixed(v.Y/255*100, 1) + "%",
	}
}

func (XYPad) SampleCSS(_ *Control, read PropertyReader) (Value, bool) {
	rawPan, okPan := read("--pan")
	rawTilt, okTilt := read("--tilt")
	if !okPan && !okTilt {
		return Value{}, false
	}

	x := 128.0
	if okPan {
		x = (parseLeadingNumber(rawPan) + 50) / 100 * 255
	}
	y := 128.0
	if okTilt {
		y = parseLeadingNumber(rawTilt) / 100 * 255
	}
	return Position(float64(ClampByte(x)), float64(ClampByte(y))), true
}

// FormatColor renders a color value as a CSS rgb() function.
func FormatColor(v Value) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", ClampByte(v.Red), ClampByte(v.Green), ClampByte(v.Blue))
}

// ParseColor parses a CSS rgb() string. Anything unparseable (including
// "transparent") decodes as black; malformed external data never errors.
func ParseColor(raw string) Value {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "rgb(") || !strings.HasSuffix(raw, ")") {
		return Color(0, 0, 0)
	}
	inner := raw[len("rgb(") : len(raw)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return Color(0, 0, 0)
	}
	var comps [3]float64
	for i, p := range parts {
		comps[i] = parseLeadingNumber(p)
	}
	return Color(
		float64(ClampByte(comps[0])),
		float64(ClampByte(comps[1])),
		float64(ClampByte(comps[2])),
	)
}

// parseLeadingNumber parses the leading numeric portion of a CSS value,
// ignoring any trailing unit. Malformed strings parse as 0.
func parseLeadingNumber(raw string) float64 {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) {
		c := raw[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseFloat(raw[:end], 64)
	if err != nil {
		return 0
	}
	return n
}

// formatFixed formats with a fixed number of decimals, matching the CSS
// vocabulary expected by hand-authored stylesheets.
func formatFixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func byteAt(data []byte, i int) byte {
	// Tolerant decode: a truncated array reads as zero-padded.
	if i >= len(data) {
		return 0
	}
	return data[i]
}
