package fixture

import (
	"encoding/json"
	"reflect"
	"testing"
)

func rgbDeviceType(t *testing.T) *DeviceType {
	t.Helper()
	dt, err := NewDeviceType("rgb", "RGB Lamp", []Control{
		{Name: "Color", Type: RGB{}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return dt
}

func TestToDMXColorScenario(t *testing.T) {
	dt := rgbDeviceType(t)

	out := ToDMX(dt, map[string]Value{"Color": Color(10, 20, 30)})
	if !reflect.DeepEqual(out, []byte{10, 20, 30}) {
		t.Errorf("ToDMX = %v, want [10 20 30]", out)
	}
}

func TestToDMXDefaultsUnspecifiedControls(t *testing.T) {
	dt, err := NewDeviceType("moving-head", "Moving Head", []Control{
		{Name: "Pan/Tilt", Type: XYPad{}},
		{Name: "Dimmer", Type: Slider{}},
	})
	if err != nil {
		t.Fatal(err)
	}

	out := ToDMX(dt, map[string]Value{"Dimmer": Number(255)})
	// Pan/Tilt defaults to center, dimmer is explicit.
	if !reflect.DeepEqual(out, []byte{128, 128, 255}) {
		t.Errorf("ToDMX = %v, want [128 128 255]", out)
	}
}

func TestFromDMXRoundTrip(t *testing.T) {
	reg := DefaultRegistry()
	dt, _ := reg.DeviceType("rgbwa")

	data := []byte{200, 10, 20, 30, 255, 0}
	values := FromDMX(dt, data)
	back := ToDMX(dt, values)
	if !reflect.DeepEqual(back, data) {
		t.Errorf("round trip %v -> %v", data, back)
	}
}

func TestFromDMXTruncatedAndOversized(t *testing.T) {
	dt := rgbDeviceType(t)

	// Truncated blocks zero-pad.
	values := FromDMX(dt, []byte{42})
	if v := values["Color"]; v.Red != 42 || v.Green != 0 || v.Blue != 0 {
		t.Errorf("truncated decode = %+v", v)
	}

	// Oversized blocks truncate.
	values = FromDMX(dt, []byte{1, 2, 3, 4, 5})
	if v := values["Color"]; v.Red != 1 || v.Green != 2 || v.Blue != 3 {
		t.Errorf("oversized decode = %+v", v)
	}

	// Empty input decodes as all defaults.
	values = FromDMX(dt, nil)
	if v := values["Color"]; v != Color(0, 0, 0) {
		t.Errorf("empty decode = %+v", v)
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{Number(128), "128"},
		{Color(10, 20, 30), `{"red":10,"green":20,"blue":30}`},
		{Position(0, 255), `{"x":0,"y":255}`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.value)
		if err != nil {
			t.Fatalf("marshal %+v: %v", tt.value, err)
		}
		if string(data) != tt.want {
			t.Errorf("marshal %+v = %s, want %s", tt.value, data, tt.want)
		}

		var back Value
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != tt.value {
			t.Errorf("round trip %+v -> %+v", tt.value, back)
		}
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(Number(0), Number(255), 0.5); got.Num != 128 {
		t.Errorf("Lerp numbers = %v, want 128", got.Num)
	}

	got := Lerp(Color(0, 100, 200), Color(100, 200, 250), 0.5)
	if got.Red != 50 || got.Green != 150 || got.Blue != 225 {
		t.Errorf("Lerp color = %+v", got)
	}

	got = Lerp(Position(0, 0), Position(255, 100), 1)
	if got.X != 255 || got.Y != 100 {
		t.Errorf("Lerp position = %+v", got)
	}

	// Mismatched kinds snap to the destination.
	if got := Lerp(Number(5), Color(1, 2, 3), 0.1); got.Kind != KindColor {
		t.Errorf("mismatched kinds should snap, got %+v", got)
	}
}
