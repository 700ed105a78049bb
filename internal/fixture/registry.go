package fixture

import "fmt"

// Registry holds the closed set of control types and the registered device
// types. It is constructed once at startup and passed by reference; tests
// substitute reduced registries.
type Registry struct {
	controlTypes map[string]ControlType
	deviceTypes  map[string]*DeviceType
	order        []string
}

// NewRegistry creates a registry with the built-in control types and no
// device types.
func NewRegistry() *Registry {
	r := &Registry{
		controlTypes: make(map[string]ControlType),
		deviceTypes:  make(map[string]*DeviceType),
	}
	for _, ct := range []ControlType{Slider{}, Toggle{}, RGB{}, XYPad{}} {
		r.controlTypes[ct.ID()] = ct
	}
	return r
}

// ControlType returns the control type for a variant id, or nil for an
// unknown id.
func (r *Registry) ControlType(id string) ControlType {
	return r.controlTypes[id]
}

// RegisterDeviceType adds a device type. Registering a duplicate id is a
// programmer error.
func (r *Registry) RegisterDeviceType(dt *DeviceType) error {
	if _, exists := r.deviceTypes[dt.ID]; exists {
		return fmt.Errorf("device type %q already registered", dt.ID)
	}
	r.deviceTypes[dt.ID] = dt
	r.order = append(r.order, dt.ID)
	return nil
}

// DeviceType returns a registered device type by id.
func (r *Registry) DeviceType(id string) (*DeviceType, bool) {
	dt, ok := r.deviceTypes[id]
	return dt, ok
}

// DeviceTypes returns all registered device types in registration order.
func (r *Registry) DeviceTypes() []*DeviceType {
	out := make([]*DeviceType, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.deviceTypes[id])
	}
	return out
}

// DefaultRegistry builds the registry with the built-in fixture catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	mustRegister := func(id, name string, controls []Control) {
		dt, err := NewDeviceType(id, name, controls)
		if err != nil {
			// Built-in definitions are validated by tests; a failure here is
			// a programming error.
			panic(err)
		}
		if err := r.RegisterDeviceType(dt); err != nil {
			panic(err)
		}
	}

	mustRegister("rgb", "RGB Lamp", []Control{
		{Name: "Color", Type: RGB{}},
	})

	mustRegister("rgb-dimmer", "RGB Lamp with Dimmer", []Control{
		{Name: "Dimmer", Type: Slider{}},
		{Name: "Color", Type: RGB{}},
	})

	mustRegister("rgbwa", "RGBWA Wash", []Control{
		{Name: "Dimmer", Type: Slider{}},
		{Name: "Color", Type: RGB{}},
		{Name: "White", Type: Slider{}},
		{Name: "Amber", Type: Slider{}},
	})

	mustRegister("moving-head", "Moving Head", []Control{
		{Name: "Pan/Tilt", Type: XYPad{}},
		{Name: "Dimmer", Type: Slider{}},
		{Name: "Color", Type: RGB{}},
	})

	mustRegister("smoke", "Smoke Machine", []Control{
		{Name: "Safety", Type: Toggle{}},
		{Name: "Smoke", Type: Slider{}},
	})

	mustRegister("flame", "Flame Projector", []Control{
		{Name: "Safety", Type: Toggle{}},
		{Name: "Flame", Type: Slider{}},
		{Name: "Fuel", Type: Slider{}},
	})

	return r
}
