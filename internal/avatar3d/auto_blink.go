package avatar3d

import (
	"math/rand"
	"sync"
	"time"
)

type BlinkValues struct {
	Left  float32
	Right float32
}

type BlinkState int

const (
	BlinkStateOpen BlinkState = iota
	BlinkStateClosing
	BlinkStateClosed
	BlinkStateOpening
)

// AutoBlinker produces procedural blinks on a randomized schedule. Time only
// advances through Update, so the frame loop owns the clock.
type AutoBlinker struct {
	mu sync.RWMutex

	rng *rand.Rand

	state         BlinkState
	progress      float32
	untilNext     float32
	blinkDuration float32
	minGap        time.Duration
	maxGap        time.Duration
}

func NewAutoBlinker() *AutoBlinker {
	return NewAutoBlinkerWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewAutoBlinkerWithRand(rng *rand.Rand) *AutoBlinker {
	ab := &AutoBlinker{
		rng:           rng,
		blinkDuration: 0.15,
		minGap:        2 * time.Second,
		maxGap:        5 * time.Second,
	}
	ab.untilNext = float32(randomDuration(rng, 2*time.Second, 4*time.Second).Seconds())
	return ab
}

func (ab *AutoBlinker) SetBlinkRate(minGap, maxGap time.Duration) {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	if maxGap < minGap {
		minGap, maxGap = maxGap, minGap
	}
	ab.minGap = minGap
	ab.maxGap = maxGap
}

func (ab *AutoBlinker) SetBlinkDuration(d time.Duration) {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	if d > 0 {
		ab.blinkDuration = float32(d.Seconds())
	}
}

func (ab *AutoBlinker) TriggerBlink() {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	if ab.state == BlinkStateOpen {
		ab.state = BlinkStateClosing
		ab.progress = 0
	}
}

func (ab *AutoBlinker) Update(dt float32) {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	switch ab.state {
	case BlinkStateOpen:
		ab.untilNext -= dt
		if ab.untilNext <= 0 {
			ab.state = BlinkStateClosing
			ab.progress = 0
		}

	case BlinkStateClosing:
		ab.progress += dt / (ab.blinkDuration * 0.4)
		if ab.progress >= 1.0 {
			ab.progress = 1.0
			ab.state = BlinkStateClosed
		}

	case BlinkStateClosed:
		ab.progress += dt / (ab.blinkDuration * 0.1)
		if ab.progress >= 1.1 {
			ab.state = BlinkStateOpening
			ab.progress = 1.0
		}

	case BlinkStateOpening:
		ab.progress -= dt / (ab.blinkDuration * 0.5)
		if ab.progress <= 0 {
			ab.progress = 0
			ab.state = BlinkStateOpen
			ab.untilNext = float32(randomDuration(ab.rng, ab.minGap, ab.maxGap).Seconds())
		}
	}
}

func (ab *AutoBlinker) Blink() BlinkValues {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	v := ab.amount()
	return BlinkValues{Left: v, Right: v}
}

func (ab *AutoBlinker) State() BlinkState {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.state
}

func (ab *AutoBlinker) amount() float32 {
	switch ab.state {
	case BlinkStateClosing:
		return easeOutQuad(ab.progress)
	case BlinkStateClosed:
		return 1.0
	case BlinkStateOpening:
		return easeInQuad(ab.progress)
	default:
		return 0
	}
}

func easeOutQuad(t float32) float32 {
	return t * (2 - t)
}

func easeInQuad(t float32) float32 {
	return t * t
}

func randomDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	return min + time.Duration(rng.Float64()*float64(max-min))
}
