package avatar3d

import "strings"

type BlendshapeIndex int

const (
	BrowDownLeft BlendshapeIndex = iota
	BrowDownRight
	BrowInnerUp
	BrowOuterUpLeft
	BrowOuterUpRight
	CheekPuff
	CheekSquintLeft
	CheekSquintRight
	EyeBlinkLeft
	EyeBlinkRight
	EyeLookDownLeft
	EyeLookDownRight
	EyeLookInLeft
	EyeLookInRight
	EyeLookOutLeft
	EyeLookOutRight
	EyeLookUpLeft
	EyeLookUpRight
	EyeSquintLeft
	EyeSquintRight
	EyeWideLeft
	EyeWideRight
	JawForward
	JawLeft
	JawOpen
	JawRight
	MouthClose
	MouthDimpleLeft
	MouthDimpleRight
	MouthFrownLeft
	MouthFrownRight
	MouthFunnel
	MouthLeft
	MouthLowerDownLeft
	MouthLowerDownRight
	MouthPressLeft
	MouthPressRight
	MouthPucker
	MouthRight
	MouthRollLower
	MouthRollUpper
	MouthShrugLower
	MouthShrugUpper
	MouthSmileLeft
	MouthSmileRight
	MouthStretchLeft
	MouthStretchRight
	MouthUpperUpLeft
	MouthUpperUpRight
	NoseSneerLeft
	NoseSneerRight
	TongueOut

	Neutral
	VowelA
	VowelI
	VowelU
	VowelE
	VowelO
	Blink
	Joy
	Angry
	Sorrow
	Fun
	LookUp
	LookDown
	LookLeft
	LookRight
	BlinkL
	BlinkR
	BlendshapeCount
)

var BlendshapeNames = [BlendshapeCount]string{
	"browDownLeft",
	"browDownRight",
	"browInnerUp",
	"browOuterUpLeft",
	"browOuterUpRight",
	"cheekPuff",
	"cheekSquintLeft",
	"cheekSquintRight",
	"eyeBlinkLeft",
	"eyeBlinkRight",
	"eyeLookDownLeft",
	"eyeLookDownRight",
	"eyeLookInLeft",
	"eyeLookInRight",
	"eyeLookOutLeft",
	"eyeLookOutRight",
	"eyeLookUpLeft",
	"eyeLookUpRight",
	"eyeSquintLeft",
	"eyeSquintRight",
	"eyeWideLeft",
	"eyeWideRight",
	"jawForward",
	"jawLeft",
	"jawOpen",
	"jawRight",
	"mouthClose",
	"mouthDimpleLeft",
	"mouthDimpleRight",
	"mouthFrownLeft",
	"mouthFrownRight",
	"mouthFunnel",
	"mouthLeft",
	"mouthLowerDownLeft",
	"mouthLowerDownRight",
	"mouthPressLeft",
	"mouthPressRight",
	"mouthPucker",
	"mouthRight",
	"mouthRollLower",
	"mouthRollUpper",
	"mouthShrugLower",
	"mouthShrugUpper",
	"mouthSmileLeft",
	"mouthSmileRight",
	"mouthStretchLeft",
	"mouthStretchRight",
	"mouthUpperUpLeft",
	"mouthUpperUpRight",
	"noseSneerLeft",
	"noseSneerRight",
	"tongueOut",

	"Neutral",
	"A",
	"I",
	"U",
	"E",
	"O",
	"Blink",
	"Joy",
	"Angry",
	"Sorrow",
	"Fun",
	"LookUp",
	"LookDown",
	"LookLeft",
	"LookRight",
	"Blink_L",
	"Blink_R",
}

// BlendshapeWeights is the per-frame accumulation surface. Writes through
// AccumulateValue add without clamping so that weighted contributions from
// several callers compose; Clamped produces the value handed to the sink.
type BlendshapeWeights [BlendshapeCount]float32

func NewBlendshapeWeights() BlendshapeWeights {
	return BlendshapeWeights{}
}

func (w *BlendshapeWeights) Set(idx BlendshapeIndex, value float32) {
	if !idx.Valid() {
		return
	}
	w[idx] = clamp(value, 0, 1)
}

func (w *BlendshapeWeights) Get(idx BlendshapeIndex) float32 {
	if !idx.Valid() {
		return 0
	}
	return w[idx]
}

func (w *BlendshapeWeights) AccumulateValue(idx BlendshapeIndex, weight float32) {
	if !idx.Valid() {
		return
	}
	w[idx] += weight
}

func (w *BlendshapeWeights) Reset() {
	for i := range w {
		w[i] = 0
	}
}

func (w *BlendshapeWeights) Clamped() BlendshapeWeights {
	var result BlendshapeWeights
	for i := range w {
		result[i] = clamp(w[i], 0, 1)
	}
	return result
}

// NonZero returns the named weights that differ from zero.
func (w *BlendshapeWeights) NonZero() map[string]float32 {
	result := make(map[string]float32)
	for i, v := range w {
		if v != 0 {
			result[BlendshapeNames[i]] = v
		}
	}
	return result
}

func (idx BlendshapeIndex) Valid() bool {
	return idx >= 0 && idx < BlendshapeCount
}

func (idx BlendshapeIndex) String() string {
	if !idx.Valid() {
		return "unknown"
	}
	return BlendshapeNames[idx]
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// BlendshapeIndexFromName matches ARKit and VRM preset names without regard
// to case. VRM 0.x files spell the per-eye blinks both "Blink_L" and "BlinkL".
func BlendshapeIndexFromName(name string) BlendshapeIndex {
	name = strings.TrimSpace(name)
	for i, n := range BlendshapeNames {
		if strings.EqualFold(n, name) {
			return BlendshapeIndex(i)
		}
	}
	switch strings.ToLower(name) {
	case "blinkl":
		return BlinkL
	case "blinkr":
		return BlinkR
	}
	return -1
}
