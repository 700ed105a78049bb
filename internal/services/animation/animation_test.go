package animation

import (
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/stylelights/stylelights-go/internal/fixture"
)

func dimmerAnimation() *Animation {
	a := New("Slow Fade", []string{"Dimmer"})
	a.AddKeyframe(0, map[string]fixture.Value{"Dimmer": fixture.Number(0)})
	a.AddKeyframe(1, map[string]fixture.Value{"Dimmer": fixture.Number(255)})
	return a
}

func TestKeyframesStaySorted(t *testing.T) {
	a := New("Chase", []string{"Dimmer"})

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		a.AddKeyframe(rng.Float64(), map[string]fixture.Value{"Dimmer": fixture.Number(float64(i))})
	}
	a.UpdateKeyframe(10, 0.5, nil)
	a.UpdateKeyframe(3, 0.01, nil)
	a.RemoveKeyframe(7)

	for i := 1; i < len(a.Keyframes); i++ {
		if a.Keyframes[i].Time < a.Keyframes[i-1].Time {
			t.Fatalf("keyframes out of order at %d: %v < %v", i, a.Keyframes[i].Time, a.Keyframes[i-1].Time)
		}
	}
}

func TestTieKeepsInsertionOrder(t *testing.T) {
	a := New("Tie", []string{"Dimmer"})
	a.AddKeyframe(0.5, map[string]fixture.Value{"Dimmer": fixture.Number(1)})
	a.AddKeyframe(0.5, map[string]fixture.Value{"Dimmer": fixture.Number(2)})

	if a.Keyframes[0].Values["Dimmer"].Num != 1 || a.Keyframes[1].Values["Dimmer"].Num != 2 {
		t.Errorf("tied keyframes reordered: %+v", a.Keyframes)
	}
}

func TestAddKeyframeDeepCopies(t *testing.T) {
	a := New("Copy", []string{"Dimmer"})
	values := map[string]fixture.Value{"Dimmer": fixture.Number(10)}
	a.AddKeyframe(0, values)

	values["Dimmer"] = fixture.Number(99)
	if a.Keyframes[0].Values["Dimmer"].Num != 10 {
		t.Error("AddKeyframe must deep-copy caller values")
	}
}

func TestInterpolateAtClampsAndHitsKeyframes(t *testing.T) {
	a := dimmerAnimation()

	if v := a.InterpolateAt(-1)["Dimmer"]; v.Num != 0 {
		t.Errorf("before first keyframe = %v, want 0", v.Num)
	}
	if v := a.InterpolateAt(2)["Dimmer"]; v.Num != 255 {
		t.Errorf("after last keyframe = %v, want 255", v.Num)
	}
	if v := a.InterpolateAt(0)["Dimmer"]; v.Num != 0 {
		t.Errorf("at first keyframe = %v, want 0", v.Num)
	}
	if v := a.InterpolateAt(1)["Dimmer"]; v.Num != 255 {
		t.Errorf("at last keyframe = %v, want 255", v.Num)
	}
}

func TestInterpolateAtMidpoint(t *testing.T) {
	a := dimmerAnimation()

	if v := a.InterpolateAt(0.5)["Dimmer"]; v.Num != 128 {
		t.Errorf("midpoint = %v, want 128 (rounded)", v.Num)
	}
}

func TestInterpolateAtExactMiddleKeyframe(t *testing.T) {
	a := New("Three", []string{"Dimmer"})
	a.AddKeyframe(0, map[string]fixture.Value{"Dimmer": fixture.Number(0)})
	a.AddKeyframe(0.5, map[string]fixture.Value{"Dimmer": fixture.Number(40)})
	a.AddKeyframe(1, map[string]fixture.Value{"Dimmer": fixture.Number(255)})

	// Exactly at a keyframe equals that keyframe's values, no drift.
	if v := a.InterpolateAt(0.5)["Dimmer"]; v.Num != 40 {
		t.Errorf("exact keyframe = %v, want 40", v.Num)
	}
}

func TestInterpolateComponentWise(t *testing.T) {
	a := New("Sweep", []string{"Pan/Tilt", "Color"})
	a.AddKeyframe(0, map[string]fixture.Value{
		"Pan/Tilt": fixture.Position(0, 0),
		"Color":    fixture.Color(0, 0, 0),
	})
	a.AddKeyframe(1, map[string]fixture.Value{
		"Pan/Tilt": fixture.Position(255, 100),
		"Color":    fixture.Color(255, 0, 100),
	})

	mid := a.InterpolateAt(0.5)
	if p := mid["Pan/Tilt"]; p.X != 128 || p.Y != 50 {
		t.Errorf("position midpoint = %+v", p)
	}
	if c := mid["Color"]; c.Red != 128 || c.Green != 0 || c.Blue != 50 {
		t.Errorf("color midpoint = %+v", c)
	}
}

func TestInterpolateEmptyAnimation(t *testing.T) {
	a := New("Empty", nil)
	if v := a.InterpolateAt(0.5); len(v) != 0 {
		t.Errorf("empty animation should interpolate to nothing, got %v", v)
	}
}

func TestToCSSKeyframes(t *testing.T) {
	reg := fixture.DefaultRegistry()
	dt, _ := reg.DeviceType("rgb-dimmer")

	a := dimmerAnimation()
	out := a.ToCSSKeyframes(dt)

	if !strings.Contains(out, "0% {") || !strings.Contains(out, "100% {") {
		t.Errorf("expected 0%% and 100%% blocks:\n%s", out)
	}
	if got := strings.Count(out, "% {"); got != 2 {
		t.Errorf("expected exactly two blocks, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "--dimmer: 0.000;") || !strings.Contains(out, "--dimmer: 1.000;") {
		t.Errorf("missing dimmer declarations:\n%s", out)
	}
	// Partial snapshots never pin the color.
	if strings.Contains(out, "color:") {
		t.Errorf("unanimated color pinned:\n%s", out)
	}
}

func TestToCSSKeyframesEmpty(t *testing.T) {
	reg := fixture.DefaultRegistry()
	dt, _ := reg.DeviceType("rgb")

	a := New("Empty", nil)
	if out := a.ToCSSKeyframes(dt); out != "" {
		t.Errorf("empty animation should serialize to empty string, got %q", out)
	}
	if out := a.KeyframesRule(dt); out != "" {
		t.Errorf("empty animation should have no @keyframes wrapper, got %q", out)
	}
}

func TestKeyframesRule(t *testing.T) {
	reg := fixture.DefaultRegistry()
	dt, _ := reg.DeviceType("rgb-dimmer")

	a := dimmerAnimation()
	rule := a.KeyframesRule(dt)
	if !strings.HasPrefix(rule, "@keyframes slow-fade {\n") {
		t.Errorf("rule = %q", rule)
	}
}

func TestAnimationJSONRoundTrip(t *testing.T) {
	a := New("Sweep", []string{"Pan/Tilt"})
	a.TargetLabel = "Moving Head"
	a.AddKeyframe(0, map[string]fixture.Value{"Pan/Tilt": fixture.Position(0, 0)})
	a.AddKeyframe(1, map[string]fixture.Value{"Pan/Tilt": fixture.Position(255, 255)})

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}

	var back Animation
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	back.Normalize()

	if back.Name != "Sweep" || back.TargetLabel != "Moving Head" {
		t.Errorf("metadata lost: %+v", back)
	}
	if len(back.Keyframes) != 2 || back.Keyframes[1].Values["Pan/Tilt"] != fixture.Position(255, 255) {
		t.Errorf("keyframes lost: %+v", back.Keyframes)
	}
}

func TestNormalizeSortsLoadedKeyframes(t *testing.T) {
	raw := `{"name":"Loaded","targetControls":["Dimmer"],"keyframes":[
		{"time":1,"values":{"Dimmer":255}},
		{"time":0,"values":{"Dimmer":0}},
		{"time":2.5,"values":{"Dimmer":128}}
	]}`

	var a Animation
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatal(err)
	}
	a.Normalize()

	if a.Keyframes[0].Time != 0 {
		t.Errorf("first keyframe time = %v, want 0", a.Keyframes[0].Time)
	}
	// Out-of-range time clamps to 1, so the tied pair keeps relative order.
	if a.Keyframes[len(a.Keyframes)-1].Time != 1 {
		t.Errorf("last keyframe time = %v, want 1 (clamped)", a.Keyframes[len(a.Keyframes)-1].Time)
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Put(dimmerAnimation())
	s.Put(New("Other", nil))

	if s.Get("Slow Fade") == nil {
		t.Fatal("Get should find stored animation")
	}
	if s.Get("missing") != nil {
		t.Error("unknown name should be nil")
	}

	all := s.All()
	if len(all) != 2 || all[0].Name != "Slow Fade" {
		t.Errorf("All order wrong: %v", all)
	}

	s.Remove("Slow Fade")
	s.Remove("missing") // no-op
	if s.Get("Slow Fade") != nil || len(s.All()) != 1 {
		t.Error("Remove failed")
	}
}
