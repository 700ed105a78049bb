package stylesheet

import (
	"reflect"
	"testing"

	"github.com/stylelights/stylelights-go/internal/services/pubsub"
)

func TestClasses(t *testing.T) {
	s := NewStore(nil)

	s.AddClass("front-wash", "pad-1-on")
	s.AddClass("front-wash", "pad-1-on") // idempotent
	s.AddClass("front-wash", "active")

	if !s.HasClass("front-wash", "pad-1-on") {
		t.Error("HasClass should be true after AddClass")
	}
	if got := s.Classes("front-wash"); !reflect.DeepEqual(got, []string{"active", "pad-1-on"}) {
		t.Errorf("Classes = %v", got)
	}

	s.RemoveClass("front-wash", "pad-1-on")
	if s.HasClass("front-wash", "pad-1-on") {
		t.Error("HasClass should be false after RemoveClass")
	}

	// Removing from an unknown element is a no-op.
	s.RemoveClass("missing", "x")
}

func TestPropertiesWriteThenRead(t *testing.T) {
	s := NewStore(nil)

	s.SetProperty("spot-1", "--pan", "-50.0%")
	s.SetProperties("spot-1", map[string]string{"--tilt": "100.0%", "opacity": "1.000"})

	// Writer-then-immediate-reader ordering within one goroutine.
	read := s.Reader("spot-1")
	if v, ok := read("--pan"); !ok || v != "-50.0%" {
		t.Errorf("read --pan = %q/%v", v, ok)
	}
	if _, ok := read("--missing"); ok {
		t.Error("missing property should report absent")
	}

	s.RemoveProperty("spot-1", "--pan")
	if _, ok := s.Property("spot-1", "--pan"); ok {
		t.Error("property should be gone after RemoveProperty")
	}

	props := s.Properties("spot-1")
	if len(props) != 2 {
		t.Errorf("Properties = %v", props)
	}
}

func TestPublishesChanges(t *testing.T) {
	ps := pubsub.New()
	s := NewStore(ps)
	sub := ps.Subscribe(pubsub.TopicStyleChanged, "", 10)

	s.AddClass("spot-1", "pad-down")
	s.AddClass("spot-1", "pad-down") // no change, no event
	s.SetProperty("spot-1", "--pan", "0.0%")
	s.SetProperty("spot-1", "--pan", "0.0%") // no change, no event
	s.RemoveClass("spot-1", "pad-down")

	var changes []Change
	for i := 0; i < 3; i++ {
		select {
		case msg := <-sub.Channel:
			changes = append(changes, msg.(Change))
		default:
			t.Fatalf("expected 3 change events, got %d", len(changes))
		}
	}

	select {
	case msg := <-sub.Channel:
		t.Fatalf("unexpected extra event %+v", msg)
	default:
	}

	if changes[0].Class != "pad-down" || changes[0].Removed {
		t.Errorf("first change = %+v", changes[0])
	}
	if changes[2].Class != "pad-down" || !changes[2].Removed {
		t.Errorf("third change = %+v", changes[2])
	}
}

func TestTargetsAndClear(t *testing.T) {
	s := NewStore(nil)
	s.SetProperty("b", "--x", "1")
	s.AddClass("a", "on")

	if got := s.Targets(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Targets = %v", got)
	}

	s.Clear("a")
	if got := s.Targets(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Targets after Clear = %v", got)
	}
}
