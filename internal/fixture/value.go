// Package fixture defines the control and device type model: the typed,
// self-describing units a fixture is composed of, and the conversions
// between human-meaningful control values and raw DMX channel bytes.
package fixture

import (
	"encoding/json"
	"math"
)

// Kind identifies the shape of a control value.
type Kind int

const (
	// KindNumber is a single numeric value on the 0-255 domain.
	// Toggles also use this shape, quantized to 0/255.
	KindNumber Kind = iota
	// KindColor is an RGB triple, each component 0-255.
	KindColor
	// KindPosition is an XY pair, each axis 0-255.
	KindPosition
)

// Value is the typed, human-meaningful value for a control.
// Only the fields for its Kind are meaningful.
type Value struct {
	Kind Kind

	Num float64

	Red, Green, Blue float64

	X, Y float64
}

// Number returns a numeric value.
func Number(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

// Color returns an RGB value.
func Color(r, g, b float64) Value {
	return Value{Kind: KindColor, Red: r, Green: g, Blue: b}
}

// Position returns an XY value.
func Position(x, y float64) Value {
	return Value{Kind: KindPosition, X: x, Y: y}
}

// colorJSON and positionJSON match the persisted animation format:
// numbers are stored bare, colors as {red,green,blue}, positions as {x,y}.
type colorJSON struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindColor:
		return json.Marshal(colorJSON{Red: v.Red, Green: v.Green, Blue: v.Blue})
	case KindPosition:
		return json.Marshal(positionJSON{X: v.X, Y: v.Y})
	default:
		return json.Marshal(v.Num)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err == nil {
		if _, ok := raw["red"]; ok {
			*v = Color(raw["red"], raw["green"], raw["blue"])
			return nil
		}
		if _, ok := raw["x"]; ok {
			*v = Position(raw["x"], raw["y"])
			return nil
		}
		*v = Number(0)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Number(n)
	return nil
}

// Lerp interpolates component-wise between two values of the same kind.
// Mismatched kinds snap to b, matching keyframe semantics where a control
// changes shape mid-animation (which authoring never produces).
func Lerp(a, b Value, t float64) Value {
	if a.Kind != b.Kind {
		return b
	}
	switch a.Kind {
	case KindColor:
		return Color(
			lerp(a.Red, b.Red, t),
			lerp(a.Green, b.Green, t),
			lerp(a.Blue, b.Blue, t),
		)
	case KindPosition:
		return Position(lerp(a.X, b.X, t), lerp(a.Y, b.Y, t))
	default:
		return Number(lerp(a.Num, b.Num, t))
	}
}

func lerp(a, b, t float64) float64 {
	return math.Round(a + (b-a)*t)
}

// ClampByte clamps a float to the 0-255 DMX domain and rounds to the
// nearest integer.
func ClampByte(v float64) byte {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return byte(r)
}
