package artnet

import (
	"encoding/binary"
	"testing"
)

func TestBuildDMXPacketHeader(t *testing.T) {
	channels := make([]byte, 512)
	packet := BuildDMXPacket(2, channels, 42)

	if len(packet) != int(PacketSize) {
		t.Fatalf("packet size = %d, want %d", len(packet), PacketSize)
	}
	if got := string(packet[0:8]); got != "Art-Net\x00" {
		t.Errorf("ID = %q", got)
	}
	if got := binary.LittleEndian.Uint16(packet[8:10]); got != OpCodeDMX {
		t.Errorf("OpCode = 0x%04x, want 0x%04x", got, OpCodeDMX)
	}
	if got := binary.BigEndian.Uint16(packet[10:12]); got != ProtocolVersion {
		t.Errorf("protocol version = %d, want %d", got, ProtocolVersion)
	}
	if packet[12] != 42 {
		t.Errorf("sequence = %d, want 42", packet[12])
	}
	if packet[13] != 0 {
		t.Errorf("physical = %d, want 0", packet[13])
	}
	// Universe is 0-based on the wire.
	if got := binary.LittleEndian.Uint16(packet[14:16]); got != 1 {
		t.Errorf("universe = %d, want 1", got)
	}
	if got := binary.BigEndian.Uint16(packet[16:18]); got != DMXDataLength {
		t.Errorf("length = %d, want %d", got, DMXDataLength)
	}
}

func TestBuildDMXPacketChannelData(t *testing.T) {
	channels := make([]byte, 512)
	channels[0] = 255
	channels[100] = 128
	channels[511] = 64

	packet := BuildDMXPacket(1, channels, 0)

	if packet[18] != 255 {
		t.Errorf("channel 1 = %d, want 255", packet[18])
	}
	if packet[18+100] != 128 {
		t.Errorf("channel 101 = %d, want 128", packet[18+100])
	}
	if packet[18+511] != 64 {
		t.Errorf("channel 512 = %d, want 64", packet[18+511])
	}
}

func TestBuildDMXPacketZeroPadsShortData(t *testing.T) {
	packet := BuildDMXPacket(1, []byte{100, 200}, 0)

	if packet[18] != 100 || packet[19] != 200 {
		t.Errorf("channels = %d, %d, want 100, 200", packet[18], packet[19])
	}
	for i := 20; i < int(PacketSize); i++ {
		if packet[i] != 0 {
			t.Errorf("offset %d = %d, want 0", i, packet[i])
			break
		}
	}
}

func TestParseDMXPacketRoundTrip(t *testing.T) {
	channels := make([]byte, 512)
	channels[0] = 10
	channels[511] = 99

	parsed, err := ParseDMXPacket(BuildDMXPacket(3, channels, 7))
	if err != nil {
		t.Fatalf("ParseDMXPacket: %v", err)
	}
	if parsed.Universe != 3 {
		t.Errorf("universe = %d, want 3", parsed.Universe)
	}
	if parsed.Sequence != 7 {
		t.Errorf("sequence = %d, want 7", parsed.Sequence)
	}
	if len(parsed.Channels) != 512 || parsed.Channels[0] != 10 || parsed.Channels[511] != 99 {
		t.Errorf("channels round trip failed: len=%d", len(parsed.Channels))
	}
}

func TestParseDMXPacketErrors(t *testing.T) {
	if _, err := ParseDMXPacket([]byte{1, 2, 3}); err != ErrShortPacket {
		t.Errorf("short packet err = %v, want %v", err, ErrShortPacket)
	}

	bad := BuildDMXPacket(1, nil, 0)
	bad[0] = 'X'
	if _, err := ParseDMXPacket(bad); err != ErrBadID {
		t.Errorf("bad id err = %v, want %v", err, ErrBadID)
	}

	wrongOp := BuildDMXPacket(1, nil, 0)
	binary.LittleEndian.PutUint16(wrongOp[8:10], 0x2000)
	if _, err := ParseDMXPacket(wrongOp); err != ErrBadOpCode {
		t.Errorf("bad opcode err = %v, want %v", err, ErrBadOpCode)
	}
}

func TestParseDMXPacketTruncatedData(t *testing.T) {
	// A packet whose declared length exceeds the actual payload parses to
	// the bytes present.
	full := BuildDMXPacket(1, []byte{5, 6, 7}, 0)
	short := full[:18+3]

	parsed, err := ParseDMXPacket(short)
	if err != nil {
		t.Fatalf("ParseDMXPacket: %v", err)
	}
	if len(parsed.Channels) != 3 {
		t.Errorf("channels len = %d, want 3", len(parsed.Channels))
	}
}
