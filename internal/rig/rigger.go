package rig

import (
	"math"
	"math/rand"

	"dice-miniapp-backend/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
)

// RigConfig tunes the trajectory rewrite. As with ShadowConfig these are
// deployment knobs, not correctness contracts.
type RigConfig struct {
	// MinFrames below which a recording is too short to segment safely;
	// rigging passes it through untouched.
	MinFrames int

	// Mid-air detection: scan the first MidAirWindow fraction of the
	// sequence for the earliest frame whose average die height is above
	// GroundClearance and has reached PeakFraction of the eventual peak.
	MidAirWindow    float64
	PeakFraction    float64
	GroundClearance float64

	// Settle detection: scanning backward, the earliest-from-the-end frame
	// with every die under SettleSpeed, backed off by SettleBackoff frames
	// so influence begins slightly before natural settling.
	SettleSpeed   float64
	SettleBackoff int

	// Sigmoid blend shaping for the influenced segment.
	BlendCenter    float64
	BlendSteepness float64
	BlendStrength  float64

	// Organic-motion shaping inside the influenced segment.
	DescentHeight    float64
	DescentNudge     float64
	HorizontalJitter float64
	TorqueScale      float64
	MaxAngularSpeed  float64

	// FallbackInfluenceFrames synthesizes this many frames when segmentation
	// yields an empty influence range.
	FallbackInfluenceFrames int

	// ClosingFrames in the tail phase that glide onto the exact target
	// orientation with quadratically decaying velocities.
	ClosingFrames int
}

// DefaultRigConfig returns the canonical tuning.
func DefaultRigConfig() RigConfig {
	return RigConfig{
		MinFrames:               10,
		MidAirWindow:            0.25,
		PeakFraction:            0.75,
		GroundClearance:         1.5,
		SettleSpeed:             0.8,
		SettleBackoff:           5,
		BlendCenter:             0.35,
		BlendSteepness:          12,
		BlendStrength:           0.9,
		DescentHeight:           2.5,
		DescentNudge:            0.6,
		HorizontalJitter:        0.25,
		TorqueScale:             0.3,
		MaxAngularSpeed:         10,
		FallbackInfluenceFrames: 30,
		ClosingFrames:           15,
	}
}

// Rigger rewrites a recorded natural trajectory so the dice settle on chosen
// face values while the motion still reads as continuous rigid-body flight.
type Rigger struct {
	cfg RigConfig
	rng *rand.Rand
}

// NewRigger creates a rigging engine. rng drives landing-orientation jitter
// and the organic velocity noise; passing a seeded source makes rigs
// reproducible.
func NewRigger(cfg RigConfig, rng *rand.Rand) *Rigger {
	if cfg.MinFrames <= 0 {
		cfg = DefaultRigConfig()
	}
	return &Rigger{cfg: cfg, rng: rng}
}

// Rig produces a recording whose dice come to rest showing desired. The
// pre-influence segment of the input is preserved untouched; the influence
// segment is steered by a sigmoid blend; a short closing phase damps the dice
// onto the exact target orientations.
//
// The input passes through unmodified when desired is empty, when the
// recording is shorter than MinFrames, or when desired fails validation
// (wrong die count or a value outside 1..6). No partial rigging is attempted.
func (rg *Rigger) Rig(rec *Recording, desired []int) *Recording {
	if rec == nil {
		return nil
	}
	if len(desired) == 0 || len(rec.Frames) < rg.cfg.MinFrames {
		return rec
	}
	if len(desired) != len(rec.Frames[0].Dice) {
		return rec
	}
	for _, v := range desired {
		if !physics.ValidFace(v) {
			return rec
		}
	}

	frames := rec.Frames
	dieCount := len(frames[0].Dice)

	midAir := rg.findMidAirIndex(frames)
	settle := rg.findSettleIndex(frames)
	if settle <= midAir {
		settle = midAir
	}

	frameMillis := frameSpacing(frames)
	dt := frameMillis / 1000.0

	landing := make([]mgl64.Quat, dieCount)
	for i, face := range desired {
		landing[i] = physics.LandingOrientationFor(face, rg.rng)
	}

	natural := frames[:midAir]

	influenced := rg.influencedFrames(frames, midAir, settle, landing, frameMillis, dt)

	lastTS := frames[0].Timestamp
	last := &frames[0]
	if len(influenced) > 0 {
		last = &influenced[len(influenced)-1]
		lastTS = last.Timestamp
	} else if len(natural) > 0 {
		last = &natural[len(natural)-1]
		lastTS = last.Timestamp
	}

	closing := rg.closingFrames(*last, landing, lastTS, frameMillis, dt)

	out := make([]Frame, 0, len(natural)+len(influenced)+len(closing))
	out = append(out, natural...)
	out = append(out, influenced...)
	out = append(out, closing...)

	return &Recording{
		Frames:         out,
		FinalResults:   append([]int(nil), desired...),
		Complete:       true,
		IsRigged:       true,
		DesiredResults: append([]int(nil), desired...),
	}
}

// findMidAirIndex locates the earliest frame, within the opening window, at
// which the dice are clearly airborne and past most of their ascent. Falls
// back to a quarter of the sequence.
func (rg *Rigger) findMidAirIndex(frames []Frame) int {
	peak := 0.0
	for i := range frames {
		if h := averageHeight(&frames[i]); h > peak {
			peak = h
		}
	}

	window := int(float64(len(frames)) * rg.cfg.MidAirWindow)
	for i := 0; i < window; i++ {
		h := averageHeight(&frames[i])
		if h > rg.cfg.GroundClearance && h >= peak*rg.cfg.PeakFraction {
			return i
		}
	}

	return len(frames) / 4
}

// findSettleIndex scans from the end for the earliest-from-the-end frame at
// which every die is below the settle speed, backed off a few frames so
// influence starts slightly before natural settling. Falls back to two
// thirds of the sequence.
func (rg *Rigger) findSettleIndex(frames []Frame) int {
	settle := -1
	for i := len(frames) - 1; i >= 0; i-- {
		if !allBelowSpeed(&frames[i], rg.cfg.SettleSpeed) {
			break
		}
		settle = i
	}

	if settle < 0 {
		return len(frames) * 2 / 3
	}

	settle -= rg.cfg.SettleBackoff
	if settle < 0 {
		settle = 0
	}
	return settle
}

func (rg *Rigger) blendWeight(progress float64) float64 {
	return rg.cfg.BlendStrength /
		(1 + math.Exp(-rg.cfg.BlendSteepness*(progress-rg.cfg.BlendCenter)))
}

// influencedFrames synthesizes the steered middle phase over
// frames[midAir:settle], extending by Euler extrapolation past the recorded
// range, and appends one soft-landing cushion frame.
func (rg *Rigger) influencedFrames(frames []Frame, midAir, settle int, landing []mgl64.Quat, frameMillis, dt float64) []Frame {
	total := settle - midAir
	if total <= 0 {
		total = rg.cfg.FallbackInfluenceFrames
	}
	if total <= 0 {
		total = 1
	}

	baseTS := frames[0].Timestamp
	if midAir > 0 {
		baseTS = frames[midAir-1].Timestamp
	}

	out := make([]Frame, 0, total+1)
	var prev *Frame

	for i := 0; i < total; i++ {
		progress := float64(i) / float64(total)
		blend := rg.blendWeight(progress)

		frame := Frame{
			Timestamp: baseTS + float64(i+1)*frameMillis,
			Dice:      make([]DieState, len(landing)),
		}

		srcIdx := midAir + i
		for d := range landing {
			var st DieState
			if srcIdx < len(frames) {
				st = frames[srcIdx].Dice[d]
			} else {
				// Past the recorded range there is no natural data; carry
				// the previous synthesized state forward.
				st = prev.Dice[d]
				st.Position = st.Position.Add(st.Velocity.Mul(dt))
			}

			st.Orientation = physics.Slerp(st.Orientation, landing[d], blend)

			if progress > 0.3 && st.Position.Y() < rg.cfg.DescentHeight && st.Velocity.Y() > -rg.cfg.DescentNudge {
				st.Velocity[1] -= rg.cfg.DescentNudge
			}

			if progress > 0.2 && rg.rng != nil {
				st.Velocity[0] += (rg.rng.Float64()*2 - 1) * rg.cfg.HorizontalJitter
				st.Velocity[2] += (rg.rng.Float64()*2 - 1) * rg.cfg.HorizontalJitter
			}

			torque := physics.OrientingTorque(st.Orientation, landing[d], 1.0)
			st.AngularVelocity = st.AngularVelocity.Add(torque.Mul(rg.cfg.TorqueScale * blend))
			if st.AngularVelocity.Len() > rg.cfg.MaxAngularSpeed {
				st.AngularVelocity = st.AngularVelocity.Normalize().Mul(rg.cfg.MaxAngularSpeed)
			}

			frame.Dice[d] = st
		}

		out = append(out, frame)
		prev = &out[len(out)-1]
	}

	// Soft-landing cushion: damp hard and pull most of the way onto the
	// target before the closing phase takes over.
	cushion := Frame{
		Timestamp: prev.Timestamp + frameMillis,
		Dice:      make([]DieState, len(landing)),
	}
	for d := range landing {
		st := prev.Dice[d]
		st.Velocity = st.Velocity.Mul(0.4)
		st.AngularVelocity = st.AngularVelocity.Mul(0.2)
		st.Orientation = physics.Slerp(st.Orientation, landing[d], 0.3)
		cushion.Dice[d] = st
	}

	return append(out, cushion)
}

// closingFrames glides from the cushion frame onto the exact target
// orientations: orientation slerps linearly with progress, velocities decay
// quadratically, and the final frame is hard-zeroed.
func (rg *Rigger) closingFrames(from Frame, landing []mgl64.Quat, lastTS, frameMillis, dt float64) []Frame {
	count := rg.cfg.ClosingFrames
	if count <= 0 {
		count = 1
	}

	out := make([]Frame, 0, count)
	prev := from

	for j := 0; j < count; j++ {
		progress := float64(j+1) / float64(count)
		decay := (1 - progress) * (1 - progress)

		frame := Frame{
			Timestamp: lastTS + float64(j+1)*frameMillis,
			Dice:      make([]DieState, len(landing)),
		}

		for d := range landing {
			st := prev.Dice[d]
			st.Velocity = from.Dice[d].Velocity.Mul(decay)
			st.AngularVelocity = from.Dice[d].AngularVelocity.Mul(decay)
			st.Position = st.Position.Add(st.Velocity.Mul(dt))
			st.Orientation = physics.Slerp(from.Dice[d].Orientation, landing[d], progress)

			if progress >= 1 {
				st.Velocity = mgl64.Vec3{}
				st.AngularVelocity = mgl64.Vec3{}
				st.Orientation = landing[d]
			}

			frame.Dice[d] = st
		}

		out = append(out, frame)
		prev = out[len(out)-1]
	}

	return out
}

func frameSpacing(frames []Frame) float64 {
	if len(frames) >= 2 {
		if d := frames[1].Timestamp - frames[0].Timestamp; d > 0 {
			return d
		}
	}
	return baseFrameMillis
}

func averageHeight(f *Frame) float64 {
	if len(f.Dice) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range f.Dice {
		sum += d.Position.Y()
	}
	return sum / float64(len(f.Dice))
}

func allBelowSpeed(f *Frame, threshold float64) bool {
	for _, d := range f.Dice {
		if d.Velocity.Len() > threshold {
			return false
		}
	}
	return true
}
