package fixture

// ToDMX converts a control-value map into the device type's DMX channel
// block. Every component is clamped to 0-255 and rounded; controls missing
// from the map render their type's default value.
func ToDMX(dt *DeviceType, values map[string]Value) []byte {
	out := make([]byte, dt.ChannelCount())
	for i := range dt.Controls {
		c := &dt.Controls[i]
		v, ok := values[c.Name]
		if !ok {
			v = c.Type.DefaultValue()
		}
		copy(out[c.Offset:], c.Type.ValueToDMX(c, v))
	}
	return out
}

// FromDMX converts a DMX channel block back into a control-value map.
// A block of the wrong length is zero-padded or truncated rather than
// rejected; tolerant decode is deliberate.
func FromDMX(dt *DeviceType, data []byte) map[string]Value {
	values := make(map[string]Value, len(dt.Controls))
	for i := range dt.Controls {
		c := &dt.Controls[i]
		var block []byte
		if c.Offset < len(data) {
			end := c.Offset + c.Type.ChannelCount()
			if end > len(data) {
				end = len(data)
			}
			block = data[c.Offset:end]
		}
		values[c.Name] = c.Type.DMXToValue(c, block)
	}
	return values
}
