// Package animation computes the avatar's per-frame pose from the soul's
// discrete state (emotion, thinking, speaking) and elapsed time.
package animation

import (
	"encoding/json"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
)

const (
	colorLerp     = 0.05
	ringScaleLerp = 0.1
	eyeScaleLerp  = 0.2
	eyeTiltLerp   = 0.1

	bobAmplitude   = 0.1
	pulseAmplitude = 0.02

	thinkingPulseSpeed = 10
	angerPulseSpeed    = 8
	restPulseSpeed     = 2

	blinkThreshold = 0.98
	blinkScaleY    = 0.1
	eyeTilt        = 0.4
	ringExpanded   = 1.2

	speakBobFreq   = 20
	speakBobAmp    = 0.01
	speakScaleFreq = 15
	speakScaleAmp  = 0.1
)

// Vec3 is an Euler rotation or a scale on three axes.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func uniform(v float64) Vec3 { return Vec3{X: v, Y: v, Z: v} }

// Eye holds the smoothed vertical scale and tilt of one eye.
type Eye struct {
	ScaleY float64 `json:"scaleY"`
	TiltZ  float64 `json:"tiltZ"`
}

// Input 是渲染一帧所需的离散状态。Elapsed 以秒为单位。
type Input struct {
	Elapsed  float64
	Emotion  emotion.Tag
	Thinking bool
	Speaking bool
}

// State 是一帧的完整姿态。平滑量（颜色、环缩放、眼睛）依赖上一帧。
type State struct {
	Elapsed       float64
	Color         colorful.Color
	Emissive      colorful.Color
	GroupY        float64
	PulseSpeed    float64
	CoreScale     Vec3
	Ring1Rotation Vec3
	Ring1Scale    float64
	Ring2Rotation Vec3
	Blink         bool
	LeftEye       Eye
	RightEye      Eye
}

// Initial returns the resting pose.
func Initial() State {
	neutral := emotion.Palette(emotion.Neutral)
	return State{
		Color:         neutral,
		Emissive:      neutral,
		PulseSpeed:    restPulseSpeed,
		CoreScale:     uniform(1),
		Ring1Scale:    1,
		Ring2Rotation: Vec3{X: math.Pi / 2},
		LeftEye:       Eye{ScaleY: 1},
		RightEye:      Eye{ScaleY: 1},
	}
}

// PulseSpeed returns the core pulse frequency. Thinking wins over any emotion.
func PulseSpeed(in Input) float64 {
	switch {
	case in.Thinking:
		return thinkingPulseSpeed
	case in.Emotion == emotion.Anger:
		return angerPulseSpeed
	default:
		return restPulseSpeed
	}
}

// Blinking reports whether the eyes close at t. Never while thinking.
func Blinking(t float64, thinking bool) bool {
	return math.Sin(t*3) > blinkThreshold && !thinking
}

// Next computes the frame for in from the previous frame.
func Next(prev State, in Input) State {
	t := in.Elapsed
	next := State{Elapsed: t}

	next.Color = prev.Color.BlendRgb(emotion.Palette(in.Emotion), colorLerp)
	next.Emissive = next.Color

	next.GroupY = bobAmplitude * math.Sin(t)

	next.PulseSpeed = PulseSpeed(in)
	next.CoreScale = uniform(1 + pulseAmplitude*math.Sin(t*next.PulseSpeed))

	next.Ring1Rotation = Vec3{X: 0.5 * t, Y: 0.3 * t}
	ringTarget := 1.0
	if in.Emotion == emotion.Anger || in.Emotion == emotion.Surprise {
		ringTarget = ringExpanded
	}
	next.Ring1Scale = lerp(prev.Ring1Scale, ringTarget, ringScaleLerp)

	next.Ring2Rotation = Vec3{X: 0.4*t + math.Pi/2, Z: 0.6 * t}

	next.Blink = Blinking(t, in.Thinking)
	eyeTarget := 1.0
	if next.Blink {
		eyeTarget = blinkScaleY
	}
	tilt := 0.0
	switch in.Emotion {
	case emotion.Anger:
		tilt = -eyeTilt
	case emotion.Sadness:
		tilt = eyeTilt
	}
	next.LeftEye = Eye{
		ScaleY: lerp(prev.LeftEye.ScaleY, eyeTarget, eyeScaleLerp),
		TiltZ:  lerp(prev.LeftEye.TiltZ, tilt, eyeTiltLerp),
	}
	next.RightEye = Eye{
		ScaleY: lerp(prev.RightEye.ScaleY, eyeTarget, eyeScaleLerp),
		TiltZ:  lerp(prev.RightEye.TiltZ, -tilt, eyeTiltLerp),
	}

	if in.Speaking {
		next.GroupY += speakBobAmp * math.Sin(t*speakBobFreq)
		next.CoreScale.Y *= 1 + speakScaleAmp*math.Sin(t*speakScaleFreq)
	}

	return next
}

func lerp(from, to, alpha float64) float64 {
	return from + (to-from)*alpha
}

type frameJSON struct {
	Elapsed       float64 `json:"elapsed"`
	Color         string  `json:"color"`
	Emissive      string  `json:"emissive"`
	GroupY        float64 `json:"groupY"`
	PulseSpeed    float64 `json:"pulseSpeed"`
	CoreScale     Vec3    `json:"coreScale"`
	Ring1Rotation Vec3    `json:"ring1Rotation"`
	Ring1Scale    float64 `json:"ring1Scale"`
	Ring2Rotation Vec3    `json:"ring2Rotation"`
	Blink         bool    `json:"blink"`
	LeftEye       Eye     `json:"leftEye"`
	RightEye      Eye     `json:"rightEye"`
}

// MarshalJSON encodes colors as hex strings for the frame payload.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(frameJSON{
		Elapsed:       s.Elapsed,
		Color:         s.Color.Clamped().Hex(),
		Emissive:      s.Emissive.Clamped().Hex(),
		GroupY:        s.GroupY,
		PulseSpeed:    s.PulseSpeed,
		CoreScale:     s.CoreScale,
		Ring1Rotation: s.Ring1Rotation,
		Ring1Scale:    s.Ring1Scale,
		Ring2Rotation: s.Ring2Rotation,
		Blink:         s.Blink,
		LeftEye:       s.LeftEye,
		RightEye:      s.RightEye,
	})
}
