// Package dmx holds the output universes and broadcasts them over Art-Net.
package dmx

import (
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/stylelights/stylelights-go/internal/services/pubsub"
	"github.com/stylelights/stylelights-go/pkg/artnet"
)

const (
	// UniverseSize is the number of channels per DMX universe.
	UniverseSize = 512
	// MaxUniverses is the maximum number of supported universes.
	MaxUniverses = 4
)

// Snapshot is published on TopicDMXOutput whenever a universe changes.
type Snapshot struct {
	Universe int    `json:"universe"`
	Channels []byte `json:"channels"`
}

// Config holds DMX service configuration.
type Config struct {
	Enabled          bool
	BroadcastAddr    string
	Port             int
	UniverseCount    int
	RefreshRateHz    int
	IdleRateHz       int
	HighRateDuration time.Duration
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		BroadcastAddr:    "255.255.255.255",
		Port:             artnet.DefaultPort,
		UniverseCount:    1,
		RefreshRateHz:    44,
		IdleRateHz:       1,
		HighRateDuration: 2 * time.Second,
	}
}

// Service owns the DMX channel state and the Art-Net transmission loop.
// Writers update channels through WriteDevice/SetChannelValue; the loop
// sends dirty universes at the refresh rate and falls back to a keep-alive
// rate when nothing changes.
type Service struct {
	mu sync.RWMutex

	// Channel values per universe. Universes are 1-indexed in the map,
	// channels 0-indexed in the slice.
	universes map[int][]byte

	pubsub *pubsub.PubSub

	enabled          bool
	broadcastAddr    string
	port             int
	refreshRateHz    int
	idleRateHz       int
	highRateDuration time.Duration

	currentRate    int
	highRate       bool
	lastChangeTime time.Time

	dirty          bool
	dirtyUniverses map[int]bool

	// Art-Net sequence number, wraps at 255.
	sequence byte

	conn *net.UDPConn

	stopChan chan struct{}
	running  bool
}

// NewService creates a DMX service. The pubsub bus may be nil.
func NewService(cfg Config, ps *pubsub.PubSub) *Service {
	refreshRate := cfg.RefreshRateHz
	if refreshRate <= 0 {
		refreshRate = 44
	}
	idleRate := cfg.IdleRateHz
	if idleRate <= 0 {
		idleRate = 1
	}
	highRateDuration := cfg.HighRateDuration
	if highRateDuration <= 0 {
		highRateDuration = 2 * time.Second
	}
	port := cfg.Port
	if port <= 0 {
		port = artnet.DefaultPort
	}
	universeCount := cfg.UniverseCount
	if universeCount <= 0 || universeCount > MaxUniverses {
		universeCount = 1
	}

	s := &Service{
		universes:        make(map[int][]byte),
		pubsub:           ps,
		enabled:          cfg.Enabled,
		broadcastAddr:    cfg.BroadcastAddr,
		port:             port,
		refreshRateHz:    refreshRate,
		idleRateHz:       idleRate,
		highRateDuration: highRateDuration,
		currentRate:      idleRate,
		dirtyUniverses:   make(map[int]bool),
		stopChan:         make(chan struct{}),
	}

	for i := 1; i <= universeCount; i++ {
		s.universes[i] = make([]byte, UniverseSize)
	}

	return s
}

// Initialize opens the Art-Net socket and starts the transmission loop.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.enabled {
		addr, err := net.ResolveUDPAddr("udp4", s.broadcastAddr+":"+strconv.Itoa(s.port))
		if err != nil {
			return err
		}
		conn, err := net.DialUDP("udp4", nil, addr)
		if err != nil {
			return err
		}
		s.conn = conn
		log.Printf("DMX output: %d universe(s), Art-Net to %s:%d, %dHz active / %dHz idle",
			len(s.universes), s.broadcastAddr, s.port, s.refreshRateHz, s.idleRateHz)
	} else {
		log.Printf("DMX output: %d universe(s), simulation mode", len(s.universes))
	}

	s.running = true
	go s.transmitLoop()
	return nil
}

// transmitLoop drives transmission at the current adaptive rate. The ticker
// is recreated whenever the rate changes.
func (s *Service) transmitLoop() {
	s.mu.RLock()
	interval := time.Second / time.Duration(s.currentRate)
	s.mu.RUnlock()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastRate := 0

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.transmit()

			s.mu.RLock()
			currentRate := s.currentRate
			s.mu.RUnlock()

			if currentRate != lastRate {
				old := ticker
				ticker = time.NewTicker(time.Second / time.Duration(currentRate))
				old.Stop()
				lastRate = currentRate
			}
		}
	}
}

// transmit runs one cycle: update the adaptive rate, then send dirty
// universes (or all of them as idle keep-alive).
func (s *Service) transmit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.dirty {
		s.lastChangeTime = now
		if !s.highRate {
			s.highRate = true
			s.currentRate = s.refreshRateHz
		}
	} else if s.highRate && !s.lastChangeTime.IsZero() && now.Sub(s.lastChangeTime) > s.highRateDuration {
		s.highRate = false
		s.currentRate = s.idleRateHz
	}

	var targets []int
	if s.dirty && len(s.dirtyUniverses) > 0 {
		for u := range s.dirtyUniverses {
			targets = append(targets, u)
		}
	} else {
		for u := range s.universes {
			targets = append(targets, u)
		}
	}

	for _, universe := range targets {
		channels := s.universes[universe]
		if s.enabled && s.conn != nil {
			s.sequence++
			packet := artnet.BuildDMXPacket(universe, channels, s.sequence)
			if _, err := s.conn.Write(packet); err != nil {
				log.Printf("Art-Net send error for universe %d: %v", universe, err)
			}
		}
		if s.dirtyUniverses[universe] && s.pubsub != nil {
			snap := Snapshot{Universe: universe, Channels: append([]byte(nil), channels...)}
			s.pubsub.Publish(pubsub.TopicDMXOutput, strconv.Itoa(universe), snap)
		}
	}

	s.dirty = false
	s.dirtyUniverses = make(map[int]bool)
}

// markDirty marks a universe as changed. Caller holds the lock.
func (s *Service) markDirty(universe int) {
	s.dirty = true
	s.dirtyUniverses[universe] = true
	s.lastChangeTime = time.Now()
	if !s.highRate {
		s.highRate = true
		s.currentRate = s.refreshRateHz
	}
}

// WriteDevice writes a device's channel block starting at a 1-indexed
// channel. Bytes past the end of the universe are dropped.
func (s *Service) WriteDevice(universe, startChannel int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := s.universes[universe]
	if channels == nil || startChannel < 1 || startChannel > UniverseSize {
		return
	}

	changed := false
	for i, v := range data {
		idx := startChannel - 1 + i
		if idx >= UniverseSize {
			break
		}
		if channels[idx] != v {
			channels[idx] = v
			changed = true
		}
	}
	if changed {
		s.markDirty(universe)
	}
}

// SetChannelValue sets a single channel. Channel is 1-indexed.
func (s *Service) SetChannelValue(universe, channel int, value byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := s.universes[universe]
	if channels == nil || channel < 1 || channel > UniverseSize {
		return
	}
	if channels[channel-1] != value {
		channels[channel-1] = value
		s.markDirty(universe)
	}
}

// GetChannelValue returns the current value of a 1-indexed channel.
func (s *Service) GetChannelValue(universe, channel int) byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channels := s.universes[universe]
	if channels == nil || channel < 1 || channel > UniverseSize {
		return 0
	}
	return channels[channel-1]
}

// ReadDevice returns a copy of a device's channel block.
func (s *Service) ReadDevice(universe, startChannel, count int) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]byte, count)
	channels := s.universes[universe]
	if channels == nil || startChannel < 1 {
		return out
	}
	for i := 0; i < count; i++ {
		idx := startChannel - 1 + i
		if idx >= UniverseSize {
			break
		}
		out[i] = channels[idx]
	}
	return out
}

// GetUniverse returns a copy of all channel values for a universe, or nil
// for an unknown universe.
func (s *Service) GetUniverse(universe int) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channels := s.universes[universe]
	if channels == nil {
		return nil
	}
	return append([]byte(nil), channels...)
}

// Universes returns the configured universe numbers in ascending order.
func (s *Service) Universes() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int, 0, len(s.universes))
	for i := 1; i <= MaxUniverses; i++ {
		if _, ok := s.universes[i]; ok {
			out = append(out, i)
		}
	}
	return out
}

// Blackout zeroes every channel in every universe.
func (s *Service) Blackout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for universe, channels := range s.universes {
		changed := false
		for i := range channels {
			if channels[i] != 0 {
				channels[i] = 0
				changed = true
			}
		}
		if changed {
			s.markDirty(universe)
		}
	}
}

// IsEnabled reports whether Art-Net output is enabled.
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// CurrentRate returns the current transmission rate in Hz.
func (s *Service) CurrentRate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRate
}

// Stop halts the transmission loop, sends a final blackout, and closes
// the socket.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false

	if s.enabled && s.conn != nil {
		zero := make([]byte, UniverseSize)
		for universe := range s.universes {
			s.sequence++
			_, _ = s.conn.Write(artnet.BuildDMXPacket(universe, zero, s.sequence))
		}
		_ = s.conn.Close()
		s.conn = nil
	}
	log.Printf("DMX output stopped")
}
