// Package artnet builds and parses Art-Net ArtDMX packets.
package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	// OpCodeDMX is the Art-Net operation code for DMX data.
	OpCodeDMX uint16 = 0x5000
	// ProtocolVersion is the Art-Net protocol version.
	ProtocolVersion uint16 = 14
	// DMXDataLength is the number of DMX channels per universe.
	DMXDataLength uint16 = 512
	// PacketSize is the total size of an Art-Net DMX packet.
	PacketSize = 18 + DMXDataLength
	// DefaultPort is the standard Art-Net UDP port.
	DefaultPort = 6454
)

// ArtNetID is the Art-Net packet identifier.
var ArtNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

var (
	ErrShortPacket = errors.New("artnet: packet too short")
	ErrBadID       = errors.New("artnet: not an Art-Net packet")
	ErrBadOpCode   = errors.New("artnet: not an ArtDMX packet")
)

// DMXPacket is a decoded ArtDMX payload. Universe is 1-based to match the
// rest of the application.
type DMXPacket struct {
	Universe int
	Sequence byte
	Channels []byte
}

// BuildDMXPacket creates an ArtDMX packet for the given 1-based universe.
// Channels shorter than 512 bytes are zero padded. Sequence should increment
// per packet so receivers can detect out-of-order UDP delivery.
func BuildDMXPacket(universe int, channels []byte, sequence byte) []byte {
	packet := make([]byte, PacketSize)

	copy(packet[0:8], ArtNetID)
	binary.LittleEndian.PutUint16(packet[8:10], OpCodeDMX)
	binary.BigEndian.PutUint16(packet[10:12], ProtocolVersion)
	packet[12] = sequence
	packet[13] = 0 // physical input port
	binary.LittleEndian.PutUint16(packet[14:16], uint16(universe-1))
	binary.BigEndian.PutUint16(packet[16:18], DMXDataLength)

	if len(channels) >= int(DMXDataLength) {
		copy(packet[18:], channels[:DMXDataLength])
	} else {
		copy(packet[18:], channels)
	}

	return packet
}

// ParseDMXPacket decodes an ArtDMX packet. The returned channel slice is a
// copy of the payload, truncated to the declared data length.
func ParseDMXPacket(packet []byte) (*DMXPacket, error) {
	if len(packet) < 18 {
		return nil, ErrShortPacket
	}
	if !bytes.Equal(packet[0:8], ArtNetID) {
		return nil, ErrBadID
	}
	if binary.LittleEndian.Uint16(packet[8:10]) != OpCodeDMX {
		return nil, ErrBadOpCode
	}

	length := int(binary.BigEndian.Uint16(packet[16:18]))
	if length > len(packet)-18 {
		length = len(packet) - 18
	}

	return &DMXPacket{
		Universe: int(binary.LittleEndian.Uint16(packet[14:16])) + 1,
		Sequence: packet[12],
		Channels: append([]byte(nil), packet[18:18+length]...),
	}, nil
}
