package avatar3d

import (
	"math/rand"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// SaccadeJitter moves the eyes by small random rotations at irregular
// intervals. While inactive it holds the identity rotation.
type SaccadeJitter struct {
	mu sync.RWMutex

	rng *rand.Rand

	active        bool
	amplitudeDeg  float32
	rotationScale float32
	untilNext     float32
	yaw           float32
	pitch         float32
}

func NewSaccadeJitter() *SaccadeJitter {
	return NewSaccadeJitterWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewSaccadeJitterWithRand(rng *rand.Rand) *SaccadeJitter {
	return &SaccadeJitter{
		rng:           rng,
		active:        true,
		amplitudeDeg:  3.0,
		rotationScale: 1.0,
	}
}

func (sj *SaccadeJitter) SetActive(active bool) {
	sj.mu.Lock()
	defer sj.mu.Unlock()
	if sj.active && !active {
		sj.yaw, sj.pitch = 0, 0
		sj.untilNext = 0
	}
	sj.active = active
}

func (sj *SaccadeJitter) Active() bool {
	sj.mu.RLock()
	defer sj.mu.RUnlock()
	return sj.active
}

// SetRotationScale scales the jitter amplitude, 1.0 being the default range.
func (sj *SaccadeJitter) SetRotationScale(scale float32) {
	sj.mu.Lock()
	defer sj.mu.Unlock()
	sj.rotationScale = clamp(scale, 0, 4)
}

func (sj *SaccadeJitter) Update(dt float32) {
	sj.mu.Lock()
	defer sj.mu.Unlock()

	if !sj.active {
		return
	}

	sj.untilNext -= dt
	if sj.untilNext > 0 {
		return
	}

	sj.yaw = (sj.rng.Float32()*2 - 1) * sj.amplitudeDeg
	sj.pitch = (sj.rng.Float32()*2 - 1) * sj.amplitudeDeg * 0.5
	sj.untilNext = float32(randomDuration(sj.rng, 300*time.Millisecond, 1500*time.Millisecond).Seconds())
}

func (sj *SaccadeJitter) Rotation() mgl32.Quat {
	sj.mu.RLock()
	defer sj.mu.RUnlock()

	if !sj.active {
		return mgl32.QuatIdent()
	}
	return EyeRotation(sj.yaw*sj.rotationScale, sj.pitch*sj.rotationScale)
}

// EyeRotation builds an eye-bone rotation from yaw and pitch in degrees.
func EyeRotation(yawDeg, pitchDeg float32) mgl32.Quat {
	yaw := mgl32.QuatRotate(mgl32.DegToRad(yawDeg), mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(mgl32.DegToRad(-pitchDeg), mgl32.Vec3{1, 0, 0})
	return yaw.Mul(pitch).Normalize()
}
