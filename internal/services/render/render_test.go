package render

import (
	"strings"
	"sync"
	"testing"

	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/animation"
	"github.com/stylelights/stylelights-go/internal/services/stylesheet"
)

// recordingWriter captures WriteDevice calls.
type recordingWriter struct {
	mu     sync.Mutex
	writes []write
}

type write struct {
	universe, startChannel int
	data                   []byte
}

func (w *recordingWriter) WriteDevice(universe, startChannel int, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, write{universe, startChannel, append([]byte(nil), data...)})
}

func (w *recordingWriter) last() (write, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.writes) == 0 {
		return write{}, false
	}
	return w.writes[len(w.writes)-1], true
}

func newTestRenderer(t *testing.T) (*Renderer, *stylesheet.Store, *recordingWriter) {
	t.Helper()
	sheet := stylesheet.NewStore(nil)
	writer := &recordingWriter{}
	return NewRenderer(fixture.DefaultRegistry(), sheet, writer), sheet, writer
}

func addDevice(t *testing.T, r *Renderer, id, name, typeID string, universe, start int) *Device {
	t.Helper()
	d, err := r.NewDevice(id, name, typeID, universe, start)
	if err != nil {
		t.Fatalf("NewDevice(%s): %v", typeID, err)
	}
	if err := r.AddDevice(d, nil); err != nil {
		t.Fatalf("AddDevice(%s): %v", name, err)
	}
	return d
}

func TestApplyValuesRendersBothSurfaces(t *testing.T) {
	r, sheet, writer := newTestRenderer(t)
	addDevice(t, r, "d1", "Front Wash", "rgb-dimmer", 1, 10)

	r.ApplyValues("d1", map[string]fixture.Value{
		"Dimmer": fixture.Number(255),
		"Color":  fixture.Color(255, 0, 0),
	})

	if v, ok := sheet.Property("front-wash", "color"); !ok || v != "rgb(255, 0, 0)" {
		t.Errorf("color property = %q/%v", v, ok)
	}
	if v, ok := sheet.Property("front-wash", "opacity"); !ok || v != "1.000" {
		t.Errorf("opacity property = %q/%v", v, ok)
	}

	last, ok := writer.last()
	if !ok {
		t.Fatal("expected a DMX write")
	}
	if last.universe != 1 || last.startChannel != 10 {
		t.Errorf("write address = %d/%d", last.universe, last.startChannel)
	}
	want := []byte{255, 255, 0, 0}
	if len(last.data) != len(want) {
		t.Fatalf("write data = %v, want %v", last.data, want)
	}
	for i := range want {
		if last.data[i] != want[i] {
			t.Fatalf("write data = %v, want %v", last.data, want)
		}
	}
}

func TestApplyValuesMergesPartialUpdates(t *testing.T) {
	r, _, writer := newTestRenderer(t)
	addDevice(t, r, "d1", "Wash", "rgb-dimmer", 1, 1)

	r.ApplyValues("d1", map[string]fixture.Value{"Color": fixture.Color(0, 255, 0)})
	r.ApplyValues("d1", map[string]fixture.Value{"Dimmer": fixture.Number(128)})

	last, _ := writer.last()
	if last.data[2] != 255 {
		t.Errorf("green channel = %d, want 255 (color must survive a dimmer-only update)", last.data[2])
	}
	if last.data[0] != 128 {
		t.Errorf("dimmer channel = %d, want 128", last.data[0])
	}
}

func TestApplyValuesIgnoresUnknownControls(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	addDevice(t, r, "d1", "Wash", "rgb", 1, 1)

	r.ApplyValues("d1", map[string]fixture.Value{"Pan": fixture.Number(200)})
	if _, ok := r.Values("d1")["Pan"]; ok {
		t.Error("values not in the device type must be dropped")
	}
}

func TestCSSIDCollisionGetsSuffix(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	first := addDevice(t, r, "d1", "Wash", "rgb", 1, 1)
	second := addDevice(t, r, "d2", "Wash", "rgb", 1, 4)

	if first.CSSID != "wash" {
		t.Errorf("first CSSID = %q", first.CSSID)
	}
	if second.CSSID != "wash-2" {
		t.Errorf("second CSSID = %q", second.CSSID)
	}

	if d, ok := r.DeviceByCSSID("wash-2"); !ok || d.ID != "d2" {
		t.Errorf("DeviceByCSSID(wash-2) = %+v/%v", d, ok)
	}
}

func TestSyncSamplesStylesheet(t *testing.T) {
	r, sheet, writer := newTestRenderer(t)
	addDevice(t, r, "d1", "Spot", "rgb-dimmer", 1, 1)

	sheet.SetProperties("spot", map[string]string{
		"color":    "rgb(10, 20, 30)",
		"--dimmer": "0.502",
	})

	values := r.Sync("d1")
	if values["Color"] != fixture.Color(10, 20, 30) {
		t.Errorf("sampled Color = %+v", values["Color"])
	}
	if values["Dimmer"] != fixture.Number(128) {
		t.Errorf("sampled Dimmer = %+v", values["Dimmer"])
	}

	last, _ := writer.last()
	if last.data[1] != 10 || last.data[0] != 128 {
		t.Errorf("DMX after sync = %v", last.data)
	}
}

func TestLinkedDeviceFollowsLeader(t *testing.T) {
	r, _, writer := newTestRenderer(t)
	addDevice(t, r, "leader", "Left Wash", "rgb-dimmer", 1, 1)
	addDevice(t, r, "follower", "Right Wash", "rgb-dimmer", 1, 5)

	if err := r.Link("follower", "leader", []string{"Color"}); err != nil {
		t.Fatalf("Link: %v", err)
	}

	r.ApplyValues("leader", map[string]fixture.Value{
		"Color":  fixture.Color(0, 0, 255),
		"Dimmer": fixture.Number(200),
	})

	followerValues := r.Values("follower")
	if followerValues["Color"] != fixture.Color(0, 0, 255) {
		t.Errorf("follower Color = %+v", followerValues["Color"])
	}
	if _, ok := followerValues["Dimmer"]; ok {
		t.Error("Dimmer is not synced and must not propagate")
	}

	// Both devices were written.
	writer.mu.Lock()
	addrs := map[int]bool{}
	for _, w := range writer.writes {
		addrs[w.startChannel] = true
	}
	writer.mu.Unlock()
	if !addrs[1] || !addrs[5] {
		t.Errorf("expected writes at channels 1 and 5, got %v", addrs)
	}
}

func TestLinkCycleDoesNotRecurseForever(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	addDevice(t, r, "a", "A", "rgb", 1, 1)
	addDevice(t, r, "b", "B", "rgb", 1, 4)

	if err := r.Link("a", "b", nil); err != nil {
		t.Fatalf("Link a->b: %v", err)
	}
	if err := r.Link("b", "a", nil); err != nil {
		t.Fatalf("Link b->a: %v", err)
	}

	// Must terminate.
	r.ApplyValues("a", map[string]fixture.Value{"Color": fixture.Color(1, 2, 3)})

	if r.Values("b")["Color"] != fixture.Color(1, 2, 3) {
		t.Error("value should propagate once around the loop")
	}
}

func TestLinkValidation(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	addDevice(t, r, "a", "A", "rgb", 1, 1)

	if err := r.Link("a", "a", nil); err == nil {
		t.Error("self link should be rejected")
	}
	if err := r.Link("a", "missing", nil); err == nil {
		t.Error("link to unknown leader should be rejected")
	}
	if err := r.Link("missing", "a", nil); err == nil {
		t.Error("link from unknown follower should be rejected")
	}
}

func TestRemoveDeviceClearsAndUnlinks(t *testing.T) {
	r, sheet, _ := newTestRenderer(t)
	addDevice(t, r, "leader", "Leader", "rgb", 1, 1)
	follower := addDevice(t, r, "follower", "Follower", "rgb", 1, 4)

	if err := r.Link("follower", "leader", nil); err != nil {
		t.Fatalf("Link: %v", err)
	}
	r.RemoveDevice("leader")

	if _, ok := r.Device("leader"); ok {
		t.Error("leader should be gone")
	}
	if follower.LinkedTo != "" {
		t.Errorf("follower still linked to %q", follower.LinkedTo)
	}
	if props := sheet.Properties("leader"); len(props) != 0 {
		t.Errorf("leader element should be cleared, props = %v", props)
	}
}

func TestDocument(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	addDevice(t, r, "d1", "Front Wash", "rgb-dimmer", 1, 1)

	anim := animation.New("Pulse", []string{"Dimmer"})
	anim.AddKeyframe(0, map[string]fixture.Value{"Dimmer": fixture.Number(0)})
	anim.AddKeyframe(1, map[string]fixture.Value{"Dimmer": fixture.Number(255)})

	doc := r.Document([]*animation.Animation{anim})

	if !strings.Contains(doc, "#front-wash {") {
		t.Error("document should contain the device default rule")
	}
	if !strings.Contains(doc, "@keyframes pulse {") {
		t.Error("document should contain the animation keyframes rule")
	}
	if !strings.Contains(doc, "color: rgb(0, 0, 0)") {
		t.Error("default rule should render default color")
	}
}
