// Package animation stores authored animations as ordered, time-stamped
// snapshots of control values, interpolates them for preview, and
// serializes them to declarative keyframe blocks.
package animation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/css"
)

// Keyframe is one time-stamped snapshot. Time is normalized to [0,1] and
// Values may be a partial snapshot of the animation's target controls.
type Keyframe struct {
	Time   float64                  `json:"time"`
	Values map[string]fixture.Value `json:"values"`
}

// Animation is a named, reusable sequence of keyframes. Keyframes are kept
// sorted ascending by time at all times; ties keep insertion order.
type Animation struct {
	Name           string     `json:"name"`
	TargetControls []string   `json:"targetControls"`
	TargetLabel    string     `json:"targetLabel,omitempty"`
	Keyframes      []Keyframe `json:"keyframes"`
}

// New creates an empty animation.
func New(name string, targetControls []string) *Animation {
	return &Animation{
		Name:           name,
		TargetControls: append([]string(nil), targetControls...),
	}
}

// CSSName derives the CSS-safe identifier used for @keyframes and trigger
// classes.
func (a *Animation) CSSName() string {
	return fixture.Slug(a.Name)
}

// AddKeyframe inserts a snapshot at the given time. Values are deep-copied
// so later caller mutations never alias into the stored keyframe.
func (a *Animation) AddKeyframe(time float64, values map[string]fixture.Value) {
	a.Keyframes = append(a.Keyframes, Keyframe{
		Time:   clampTime(time),
		Values: copyValues(values),
	})
	a.sortKeyframes()
}

// RemoveKeyframe deletes the keyframe at index. An out-of-range index is a
// no-op.
func (a *Animation) RemoveKeyframe(index int) {
	if index < 0 || index >= len(a.Keyframes) {
		return
	}
	a.Keyframes = append(a.Keyframes[:index], a.Keyframes[index+1:]...)
}

// UpdateKeyframe patches the keyframe at index. A negative time leaves the
// timestamp untouched; nil values leave the snapshot untouched. Changing
// the time re-sorts the list.
func (a *Animation) UpdateKeyframe(index int, time float64, values map[string]fixture.Value) {
	if index < 0 || index >= len(a.Keyframes) {
		return
	}
	if time >= 0 {
		a.Keyframes[index].Time = clampTime(time)
	}
	if values != nil {
		a.Keyframes[index].Values = copyValues(values)
	}
	a.sortKeyframes()
}

// InterpolateAt returns the control values at a normalized time, for
// authoring-time preview. Outside the keyframe range it clamps to the first
// or last snapshot; in range it linearly interpolates each numeric leaf
// between the bracketing keyframes.
func (a *Animation) InterpolateAt(t float64) map[string]fixture.Value {
	if len(a.Keyframes) == 0 {
		return map[string]fixture.Value{}
	}

	first := a.Keyframes[0]
	if t <= first.Time {
		return copyValues(first.Values)
	}
	last := a.Keyframes[len(a.Keyframes)-1]
	if t >= last.Time {
		return copyValues(last.Values)
	}

	for i := 1; i < len(a.Keyframes); i++ {
		kf := a.Keyframes[i]
		if t > kf.Time {
			continue
		}
		if t == kf.Time {
			// Exactly at a keyframe: its own values, no neighbor drift.
			return copyValues(kf.Values)
		}
		prev := a.Keyframes[i-1]
		span := kf.Time - prev.Time
		progress := 0.0
		if span > 0 {
			progress = (t - prev.Time) / span
		}
		out := make(map[string]fixture.Value, len(kf.Values))
		for name, to := range kf.Values {
			from, ok := prev.Values[name]
			if !ok {
				out[name] = to
				continue
			}
			out[name] = fixture.Lerp(from, to, progress)
		}
		// Controls present earlier but absent in the destination hold their
		// previous value.
		for name, from := range prev.Values {
			if _, ok := out[name]; !ok {
				out[name] = from
			}
		}
		return out
	}
	return copyValues(last.Values)
}

// ToCSSKeyframes renders the animation as declarative percentage blocks for
// the given device type. An empty keyframe list yields an empty string; the
// caller must omit the @keyframes wrapper entirely rather than emit an
// empty one.
func (a *Animation) ToCSSKeyframes(dt *fixture.DeviceType) string {
	if len(a.Keyframes) == 0 {
		return ""
	}

	var b strings.Builder
	for _, kf := range a.Keyframes {
		props := css.GeneratePartial(dt, kf.Values)
		fmt.Fprintf(&b, "%d%% {\n%s}\n", int(kf.Time*100+0.5), css.Declarations(props))
	}
	return b.String()
}

// KeyframesRule wraps the percentage blocks in a named @keyframes rule, or
// returns an empty string for an empty animation.
func (a *Animation) KeyframesRule(dt *fixture.DeviceType) string {
	body := a.ToCSSKeyframes(dt)
	if body == "" {
		return ""
	}
	return fmt.Sprintf("@keyframes %s {\n%s}", a.CSSName(), body)
}

// Normalize restores the keyframe invariants after loading persisted JSON:
// times clamped to [0,1] and the list sorted ascending.
func (a *Animation) Normalize() {
	for i := range a.Keyframes {
		a.Keyframes[i].Time = clampTime(a.Keyframes[i].Time)
		if a.Keyframes[i].Values == nil {
			a.Keyframes[i].Values = map[string]fixture.Value{}
		}
	}
	a.sortKeyframes()
}

func (a *Animation) sortKeyframes() {
	sort.SliceStable(a.Keyframes, func(i, j int) bool {
		return a.Keyframes[i].Time < a.Keyframes[j].Time
	})
}

func clampTime(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func copyValues(values map[string]fixture.Value) map[string]fixture.Value {
	out := make(map[string]fixture.Value, len(values))
	for name, v := range values {
		out[name] = v
	}
	return out
}
