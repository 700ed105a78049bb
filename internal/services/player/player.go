package player

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/animation"
)

// ValueApplier receives each rendered frame. The renderer satisfies this.
type ValueApplier interface {
	ApplyValues(deviceID string, values map[string]fixture.Value)
}

// Options configures a single playback.
type Options struct {
	// ID names the playback; empty means a generated one.
	ID string
	// Duration is the length of one cycle. Zero or negative snaps the
	// targets straight to the final keyframe.
	Duration time.Duration
	// Iterations is the cycle count; zero or negative repeats forever.
	Iterations int
	Timing     Timing
	OnComplete func()
}

// playback is one running animation bound to a set of devices.
type playback struct {
	id         string
	anim       *animation.Animation
	devices    []string
	startTime  time.Time
	duration   time.Duration
	iterations int
	timing     Timing
	onComplete func()
}

// Player drives active playbacks on a fixed frame clock.
type Player struct {
	mu sync.RWMutex

	applier ValueApplier
	active  map[string]*playback

	stopChan chan struct{}
	running  bool

	frameRate time.Duration // 25ms = 40 frames per second
}

// NewPlayer creates a player that renders frames through the applier.
func NewPlayer(applier ValueApplier) *Player {
	return &Player{
		applier:   applier,
		active:    make(map[string]*playback),
		stopChan:  make(chan struct{}),
		frameRate: 25 * time.Millisecond,
	}
}

// Start starts the frame loop.
func (p *Player) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopChan = make(chan struct{})
	stop := p.stopChan
	p.mu.Unlock()

	go p.frameLoop(stop)
}

// Stop stops the frame loop and drops all active playbacks.
func (p *Player) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.active = make(map[string]*playback)
	close(p.stopChan)
	p.mu.Unlock()
}

func (p *Player) frameLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(p.frameRate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.renderFrame(time.Now())
		}
	}
}

// renderFrame advances every active playback to now. Exported through the
// ticker only; tests call it directly with a synthetic clock.
func (p *Player) renderFrame(now time.Time) {
	p.mu.Lock()

	type frame struct {
		devices []string
		values  map[string]fixture.Value
	}
	var frames []frame
	var completed []string
	var callbacks []func()

	for id, pb := range p.active {
		cycles := float64(now.Sub(pb.startTime)) / float64(pb.duration)

		if pb.iterations > 0 && cycles >= float64(pb.iterations) {
			frames = append(frames, frame{pb.devices, pb.anim.InterpolateAt(1)})
			completed = append(completed, id)
			if pb.onComplete != nil {
				callbacks = append(callbacks, pb.onComplete)
			}
			continue
		}

		progress := cycles - math.Floor(cycles)
		values := pb.anim.InterpolateAt(ApplyTiming(progress, pb.timing))
		frames = append(frames, frame{pb.devices, values})
	}

	for _, id := range completed {
		delete(p.active, id)
	}
	applier := p.applier
	p.mu.Unlock()

	// Apply outside the lock; the renderer takes its own locks.
	for _, f := range frames {
		for _, dev := range f.devices {
			applier.ApplyValues(dev, f.values)
		}
	}
	for _, cb := range callbacks {
		go cb()
	}
}

// Play starts an animation on the given devices and returns the playback
// ID. A device already driven by another playback is taken over; a
// playback left with no devices is cancelled.
func (p *Player) Play(anim *animation.Animation, deviceIDs []string, opts Options) string {
	if opts.Duration <= 0 {
		// Zero duration means no animation frames, just the end state.
		final := anim.InterpolateAt(1)
		for _, dev := range deviceIDs {
			p.applier.ApplyValues(dev, final)
		}
		if opts.OnComplete != nil {
			go opts.OnComplete()
		}
		return opts.ID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := opts.ID
	if id == "" {
		id = fmt.Sprintf("play-%d-%d", time.Now().UnixNano(), len(p.active))
	}

	taken := make(map[string]bool, len(deviceIDs))
	for _, dev := range deviceIDs {
		taken[dev] = true
	}
	var orphaned []string
	for existingID, pb := range p.active {
		if existingID == id {
			orphaned = append(orphaned, existingID)
			continue
		}
		var remaining []string
		for _, dev := range pb.devices {
			if !taken[dev] {
				remaining = append(remaining, dev)
			}
		}
		if len(remaining) == 0 {
			orphaned = append(orphaned, existingID)
		} else {
			pb.devices = remaining
		}
	}
	for _, existingID := range orphaned {
		delete(p.active, existingID)
	}

	p.active[id] = &playback{
		id:         id,
		anim:       anim,
		devices:    append([]string(nil), deviceIDs...),
		startTime:  time.Now(),
		duration:   opts.Duration,
		iterations: opts.Iterations,
		timing:     opts.Timing,
		onComplete: opts.OnComplete,
	}
	return id
}

// Cancel stops a playback without rendering its final frame.
func (p *Player) Cancel(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, id)
}

// CancelAll stops every playback.
func (p *Player) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = make(map[string]*playback)
}

// ActivePlaybacks returns the IDs of the running playbacks.
func (p *Player) ActivePlaybacks() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	return ids
}

// ActiveCount returns the number of running playbacks.
func (p *Player) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.active)
}

// IsRunning reports whether the frame loop is running.
func (p *Player) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
