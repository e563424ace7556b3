package rig

import (
	"math/rand"

	"dice-miniapp-backend/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
)

// ShadowConfig tunes the hidden pre-computation roll. Thresholds are
// configuration rather than constants; revisions of the front end disagreed
// on exact values, so deployments tune them per tray geometry.
type ShadowConfig struct {
	DieCount int

	// SpeedMultiplier compresses the recorded timeline: each recorded frame
	// covers SpeedMultiplier simulation substeps of 1/60s, so the outcome is
	// known well before the visible animation would finish.
	SpeedMultiplier float64

	// MaxFrames bounds the recording against dice that never settle.
	MaxFrames int

	// Settle predicate: every die below GroundHeight with linear and angular
	// speeds under the thresholds.
	SettleLinearSpeed  float64
	SettleAngularSpeed float64
	GroundHeight       float64

	// Throw impulse shaping.
	BaseUpwardSpeed   float64
	BaseForwardSpeed  float64
	VelocityJitter    float64
	AngularJitter     float64
	SpinBoostChance   float64
	SpinBoostStrength float64

	// IdleHeight is the floating pose the roster rests at between throws.
	IdleHeight  float64
	IdleSpacing float64
}

// DefaultShadowConfig returns the tuning observed to settle two dice within
// a comfortable margin of the frame budget.
func DefaultShadowConfig() ShadowConfig {
	return ShadowConfig{
		DieCount:           2,
		SpeedMultiplier:    6,
		MaxFrames:          600,
		SettleLinearSpeed:  0.15,
		SettleAngularSpeed: 0.25,
		GroundHeight:       1.2,
		BaseUpwardSpeed:    7.0,
		BaseForwardSpeed:   3.5,
		VelocityJitter:     1.2,
		AngularJitter:      8.0,
		SpinBoostChance:    0.25,
		SpinBoostStrength:  6.0,
		IdleHeight:         4.0,
		IdleSpacing:        1.6,
	}
}

// ShadowRoller owns the invisible second world and die roster used to
// pre-compute a throw's outcome. It never touches the visible roster.
type ShadowRoller struct {
	world *physics.World
	dice  []*physics.Body
	rec   *Recorder
	cfg   ShadowConfig
}

// NewShadowRoller builds the shadow world with the same tray geometry and
// die material as the visible one.
func NewShadowRoller(cfg ShadowConfig) *ShadowRoller {
	if cfg.DieCount <= 0 {
		cfg.DieCount = DefaultShadowConfig().DieCount
	}
	if cfg.SpeedMultiplier <= 0 {
		cfg.SpeedMultiplier = DefaultShadowConfig().SpeedMultiplier
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = DefaultShadowConfig().MaxFrames
	}

	s := &ShadowRoller{
		world: physics.NewWorld(),
		rec:   NewRecorder(cfg.SpeedMultiplier),
		cfg:   cfg,
	}

	for i := 0; i < cfg.DieCount; i++ {
		b := physics.NewDieBody(s.idlePosition(i))
		s.world.AddBody(b)
		s.dice = append(s.dice, b)
	}

	return s
}

// DieCount returns the roster size.
func (s *ShadowRoller) DieCount() int {
	if s == nil {
		return 0
	}
	return len(s.dice)
}

// Throw runs the hidden simulation to completion and returns the recording.
// strength scales the base throw impulse; rng drives all jitter so a throw
// is reproducible from its seed. seed optionally carries per-die initial
// states (e.g. copied from the visible roster); when absent the roster is
// reset to the idle floating pose first.
//
// An uninitialized roller resolves with a degenerate recording rather than
// an error; callers fall back to a direct physics throw.
func (s *ShadowRoller) Throw(strength float64, rng *rand.Rand, seed []DieState) *Recording {
	if s == nil || s.world == nil || len(s.dice) == 0 {
		return degenerateRecording(DefaultShadowConfig().DieCount)
	}
	if strength < 0 {
		strength = 0
	}

	s.seedRoster(seed)
	s.applyThrowImpulses(strength, rng)

	dt := 1.0 / 60.0
	substeps := int(s.cfg.SpeedMultiplier)
	if substeps < 1 {
		substeps = 1
	}

	s.rec.Start()
	for i := 0; i < s.cfg.MaxFrames; i++ {
		for sub := 0; sub < substeps; sub++ {
			s.world.Step(dt)
		}
		s.rec.Capture(s.dice)

		if s.settled() {
			break
		}
	}
	s.rec.Stop()

	frames := s.rec.Frames()

	results := make([]int, len(s.dice))
	if len(frames) > 0 {
		last := frames[len(frames)-1]
		for i, st := range last.Dice {
			results[i] = physics.FaceUp(st.Orientation)
		}
	} else {
		for i := range results {
			results[i] = 1
		}
	}

	rec := &Recording{
		Frames:       frames,
		FinalResults: results,
		Complete:     true,
	}

	// The recording holds its own copies of the trajectory, so the roster
	// can go straight back to the idle floating pose for the next throw.
	s.resetRoster()

	return rec
}

func (s *ShadowRoller) idlePosition(i int) mgl64.Vec3 {
	offset := (float64(i) - float64(s.cfg.DieCount-1)/2) * s.cfg.IdleSpacing
	return mgl64.Vec3{offset, s.cfg.IdleHeight, 0}
}

func (s *ShadowRoller) seedRoster(seed []DieState) {
	for i, b := range s.dice {
		if i < len(seed) {
			seed[i].ApplyTo(b)
			continue
		}
		b.Unfreeze()
		b.Position = s.idlePosition(i)
		b.Orientation = mgl64.QuatIdent()
		b.Velocity = mgl64.Vec3{}
		b.AngularVelocity = mgl64.Vec3{}
		b.Wake()
	}
}

func (s *ShadowRoller) resetRoster() {
	for i, b := range s.dice {
		b.Unfreeze()
		b.Position = s.idlePosition(i)
		b.Orientation = mgl64.QuatIdent()
		b.Velocity = mgl64.Vec3{}
		b.AngularVelocity = mgl64.Vec3{}
		b.Sleep()
	}
}

func (s *ShadowRoller) applyThrowImpulses(strength float64, rng *rand.Rand) {
	jitter := func(scale float64) float64 {
		if rng == nil {
			return 0
		}
		return (rng.Float64()*2 - 1) * scale
	}

	for _, b := range s.dice {
		impulse := mgl64.Vec3{
			jitter(s.cfg.VelocityJitter),
			s.cfg.BaseUpwardSpeed*strength + jitter(s.cfg.VelocityJitter),
			s.cfg.BaseForwardSpeed*strength + jitter(s.cfg.VelocityJitter),
		}
		b.ApplyImpulse(impulse)

		spin := mgl64.Vec3{
			jitter(s.cfg.AngularJitter),
			jitter(s.cfg.AngularJitter),
			jitter(s.cfg.AngularJitter),
		}
		b.ApplyAngularImpulse(spin)
	}

	// Occasionally kick one random die on one axis so repeated throws do
	// not tumble alike.
	if rng != nil && rng.Float64() < s.cfg.SpinBoostChance {
		die := s.dice[rng.Intn(len(s.dice))]
		boost := mgl64.Vec3{}
		boost[rng.Intn(3)] = s.cfg.SpinBoostStrength
		die.ApplyAngularImpulse(boost)
	}
}

func (s *ShadowRoller) settled() bool {
	for _, b := range s.dice {
		if b.Position.Y() > s.cfg.GroundHeight {
			return false
		}
		if b.Velocity.Len() > s.cfg.SettleLinearSpeed {
			return false
		}
		if b.AngularVelocity.Len() > s.cfg.SettleAngularSpeed {
			return false
		}
	}
	return true
}
